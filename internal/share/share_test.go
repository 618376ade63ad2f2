package share

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/techtime/internal/common"
)

func TestParseTarget(t *testing.T) {
	cases := []struct {
		raw  string
		want Target
	}{
		{"dir:///tmp/outbox", Target{Kind: KindDir, Path: filepath.FromSlash("/tmp/outbox")}},
		{"/tmp/outbox", Target{Kind: KindDir, Path: filepath.Clean("/tmp/outbox")}},
		{"s3://backups/techtime?region=eu-west-2", Target{Kind: KindS3, Bucket: "backups", Prefix: "techtime/", Region: "eu-west-2"}},
		{"s3://backups", Target{Kind: KindS3, Bucket: "backups"}},
		{"gs://bucket/a/b/", Target{Kind: KindGCS, Bucket: "bucket", Prefix: "a/b/"}},
	}
	for _, tc := range cases {
		t.Run(tc.raw, func(t *testing.T) {
			got, err := ParseTarget(tc.raw)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestParseTarget_Invalid(t *testing.T) {
	for _, raw := range []string{"", "ftp://host/x", "s3:///prefix", "dir://"} {
		_, err := ParseTarget(raw)
		assert.ErrorIs(t, err, common.ErrInvalidInput, raw)
	}
}

func TestObjectKey(t *testing.T) {
	assert.Equal(t, "techtime/b.json", objectKey("techtime/", "/x/y/b.json"))
	assert.Equal(t, "b.json", objectKey("", "/x/y/b.json"))
}

func TestDirSharer_CopiesFiles(t *testing.T) {
	src := t.TempDir()
	a := filepath.Join(src, "a.json")
	b := filepath.Join(src, "b.pdf")
	require.NoError(t, os.WriteFile(a, []byte(`{"ok":true}`), 0o644))
	require.NoError(t, os.WriteFile(b, []byte("%PDF"), 0o644))

	outbox := filepath.Join(t.TempDir(), "outbox")
	s, err := New(context.Background(), "dir://"+filepath.ToSlash(outbox), nil)
	require.NoError(t, err)

	dests, err := s.Share(context.Background(), a, b)
	require.NoError(t, err)
	require.Len(t, dests, 2)

	got, err := os.ReadFile(filepath.Join(outbox, "a.json"))
	require.NoError(t, err)
	assert.Equal(t, `{"ok":true}`, string(got))
	_, err = os.Stat(filepath.Join(outbox, "b.pdf.part"))
	assert.True(t, os.IsNotExist(err))
}

func TestDirSharer_NoFiles(t *testing.T) {
	_, err := NewDirSharer(t.TempDir(), nil).Share(context.Background())
	assert.ErrorIs(t, err, common.ErrInvalidInput)
}

func TestDirSharer_MissingSource(t *testing.T) {
	_, err := NewDirSharer(t.TempDir(), nil).Share(context.Background(), filepath.Join(t.TempDir(), "nope.json"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

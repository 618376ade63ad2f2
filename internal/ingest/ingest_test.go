package ingest

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/techtime/internal/async"
)

type recordingQueue struct {
	mu   sync.Mutex
	jobs []async.Job
}

func (q *recordingQueue) Enqueue(_ context.Context, job async.Job) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.jobs = append(q.jobs, job)
	return nil
}

func (q *recordingQueue) Shutdown(context.Context) {}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestAllowedExt(t *testing.T) {
	assert.True(t, AllowedExt(".JPG"))
	assert.True(t, AllowedExt("heic"))
	assert.False(t, AllowedExt(".pdf"))
	assert.False(t, AllowedExt(""))
}

func TestIsHidden(t *testing.T) {
	assert.True(t, IsHidden("/a/.thumbs"))
	assert.False(t, IsHidden("/a/photo.jpg"))
	assert.False(t, IsHidden("."))
}

func TestIngestDirectory(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "card1.jpg"), "one")
	writeFile(t, filepath.Join(root, "sub", "card2.PNG"), "two")
	writeFile(t, filepath.Join(root, "sub", "copy.jpg"), "one")
	writeFile(t, filepath.Join(root, "notes.txt"), "skip")
	writeFile(t, filepath.Join(root, ".cache", "hidden.jpg"), "three")

	q := &recordingQueue{}
	ing := NewFSIngestor(q, nil)

	results, stats, err := ing.IngestDirectory(context.Background(), root, true)
	require.NoError(t, err)

	assert.Equal(t, uint32(3), stats.Matched)
	assert.Equal(t, uint32(3), stats.Succeeded)
	assert.Equal(t, uint32(1), stats.Deduplicated)
	assert.Zero(t, stats.Failed)
	assert.Len(t, results, 3)
	require.Len(t, q.jobs, 2)
	for _, j := range q.jobs {
		assert.NotEmpty(t, j.TraceID)
		assert.True(t, filepath.IsAbs(j.ImagePath))
	}
}

func TestIngestDirectory_IncludesHiddenWhenAsked(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, ".cache", "hidden.jpg"), "three")

	q := &recordingQueue{}
	_, stats, err := NewFSIngestor(q, nil).IngestDirectory(context.Background(), root, false)
	require.NoError(t, err)
	assert.Equal(t, uint32(1), stats.Succeeded)
	assert.Len(t, q.jobs, 1)
}

func TestIngestDirectory_RequiresRoot(t *testing.T) {
	_, _, err := NewFSIngestor(&recordingQueue{}, nil).IngestDirectory(context.Background(), "  ", true)
	assert.Error(t, err)
}

func TestIngestPath_RejectsUnsupported(t *testing.T) {
	root := t.TempDir()
	p := filepath.Join(root, "doc.pdf")
	writeFile(t, p, "pdf")

	q := &recordingQueue{}
	res, err := NewFSIngestor(q, nil).IngestPath(context.Background(), p)
	assert.Error(t, err)
	assert.False(t, res.Queued)
	assert.Empty(t, q.jobs)
}

func TestStartWatcher_InitialScanAndNewFiles(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "existing.jpg"), "x")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	events, _, err := StartWatcher(ctx, WatchConfig{
		Roots:       []string{root},
		InitialScan: true,
		SkipHidden:  true,
		Debounce:    20 * time.Millisecond,
	})
	require.NoError(t, err)

	select {
	case p := <-events:
		assert.Equal(t, filepath.Join(root, "existing.jpg"), p)
	case <-time.After(2 * time.Second):
		t.Fatal("no initial event")
	}

	writeFile(t, filepath.Join(root, "new.png"), "y")
	select {
	case p := <-events:
		assert.Equal(t, filepath.Join(root, "new.png"), p)
	case <-time.After(3 * time.Second):
		t.Fatal("no event for new file")
	}

	cancel()
	for range events {
	}
}

func TestStartWatcher_NoRoots(t *testing.T) {
	_, _, err := StartWatcher(context.Background(), WatchConfig{})
	assert.Error(t, err)
}

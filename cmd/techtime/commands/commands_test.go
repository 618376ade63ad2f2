package commands

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/techtime/internal/common"
)

func setupEnv(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("TECHTIME_DATA_DIR", dir)
	for _, k := range []string{"TECHTIME_DSN", "TECHTIME_BACKUP_DIR", "TECHTIME_SHARE_URL", "OCR_API_KEY", "OTEL_EXPORTER_OTLP_ENDPOINT", "ARTIFACT_CACHE_DIR"} {
		t.Setenv(k, "")
	}
	t.Setenv("OCR_PROVIDER", "mock")
	t.Setenv("LOG_LEVEL", "error")
	return dir
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := Root()
	root.Writer = &out
	root.ErrWriter = io.Discard
	err := root.Run(context.Background(), append([]string{"techtime"}, args...))
	return out.String(), err
}

func writePNG(t *testing.T, path string) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 40, 20))
	for x := 0; x < 40; x++ {
		img.Set(x, 10, color.Black)
	}
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, img))
	require.NoError(t, f.Close())
}

func TestJobCommands(t *testing.T) {
	setupEnv(t)

	out, err := run(t, "job", "add", "--wip", "100200", "--reg", "ab12 cde", "--aw", "12", "--notes", "clutch")
	require.NoError(t, err)
	assert.Contains(t, out, "1h 0m")

	out, err = run(t, "job", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "100200")
	assert.Contains(t, out, "AB12 CDE")

	out, err = run(t, "summary", "--month", time.Now().Format("2006-01"))
	require.NoError(t, err)
	assert.Contains(t, out, "Jobs:       1")
	assert.Contains(t, out, "Worked:     1h 0m")

	_, err = run(t, "job", "add", "--wip", "100201", "--aw", "0")
	assert.ErrorIs(t, err, common.ErrValidation)

	_, err = run(t, "job", "clear")
	assert.ErrorIs(t, err, common.ErrInvalidInput)

	out, err = run(t, "job", "clear", "--yes")
	require.NoError(t, err)
	assert.Contains(t, out, "All jobs deleted.")

	out, err = run(t, "job", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "No jobs recorded.")
}

var reScanID = regexp.MustCompile(`Scan ([0-9a-f-]{36})`)

func TestScanAndBackupFlow(t *testing.T) {
	dir := setupEnv(t)
	photo := filepath.Join(dir, "card.png")
	writePNG(t, photo)

	out, err := run(t, "scan", "image", photo)
	require.NoError(t, err)
	assert.Contains(t, out, "482913")
	assert.Contains(t, out, "AB12 CDE")
	m := reScanID.FindStringSubmatch(out)
	require.Len(t, m, 2, out)

	out, err = run(t, "scan", "apply", "--id", m[1], "--aw", "6")
	require.NoError(t, err)
	assert.Contains(t, out, "WIP 482913")

	_, err = run(t, "scan", "apply", "--id", m[1], "--aw", "6")
	assert.ErrorIs(t, err, common.ErrInvalidInput)

	out, err = run(t, "scan", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "APPLIED")

	out, err = run(t, "backup", "create")
	require.NoError(t, err)
	assert.Contains(t, out, "Backup of 1 jobs")

	_, err = run(t, "job", "clear", "--yes")
	require.NoError(t, err)

	out, err = run(t, "backup", "import")
	require.NoError(t, err)
	assert.Contains(t, out, "Imported 1 jobs")

	out, err = run(t, "job", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "482913")

	out, err = run(t, "backup", "share")
	require.NoError(t, err)
	assert.Contains(t, out, "Shared")
	entries, err := os.ReadDir(filepath.Join(dir, "outbox"))
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestBackupImport_FailureIsReported(t *testing.T) {
	dir := setupEnv(t)
	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte(`{"version":"1.0"}`), 0o644))

	_, err := run(t, "backup", "import", "--file", bad)
	require.Error(t, err)
	assert.Contains(t, common.UserMessage(err), "Import failed")
}

func TestSettingsCommands(t *testing.T) {
	setupEnv(t)

	out, err := run(t, "settings", "set", "--target", "150", "--theme", "dark")
	require.NoError(t, err)
	assert.Contains(t, out, "target 150h")

	_, err = run(t, "settings", "set", "--theme", "neon")
	assert.ErrorIs(t, err, common.ErrValidation)

	_, err = run(t, "settings", "pin", "--pin", "1234")
	require.NoError(t, err)

	_, err = run(t, "settings", "login", "--pin", "9999")
	require.Error(t, err)
	assert.Equal(t, "Incorrect PIN.", common.UserMessage(err))

	out, err = run(t, "settings", "login", "--pin", "1234")
	require.NoError(t, err)
	assert.Contains(t, out, "Logged in.")

	out, err = run(t, "settings", "name", "--set", "Sam")
	require.NoError(t, err)
	assert.Contains(t, out, "Technician: Sam")

	out, err = run(t, "settings", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "PIN set:        true")
	assert.Contains(t, out, "OCR provider:   mock")
}

func TestNewLogger_Format(t *testing.T) {
	var buf bytes.Buffer
	NewLogger(common.LogConfig{Level: "debug", Format: "json"}, &buf).Debug("hello", "k", "v")
	assert.Contains(t, buf.String(), `"msg":"hello"`)

	buf.Reset()
	NewLogger(common.LogConfig{Level: "bogus"}, &buf).Debug("hidden")
	assert.Empty(t, buf.String())
}

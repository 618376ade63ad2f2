package share

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

// DirSharer copies files into an outbox directory.
type DirSharer struct {
	dir    string
	logger *slog.Logger
}

func NewDirSharer(dir string, logger *slog.Logger) *DirSharer {
	if logger == nil {
		logger = slog.Default()
	}
	return &DirSharer{dir: dir, logger: logger}
}

func (s *DirSharer) Share(ctx context.Context, files ...string) ([]string, error) {
	if err := requireFiles(files); err != nil {
		return nil, err
	}
	start := time.Now()
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return nil, fmt.Errorf("create outbox: %w", err)
	}
	out := make([]string, 0, len(files))
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		dst := filepath.Join(s.dir, filepath.Base(f))
		if err := copyFile(f, dst); err != nil {
			s.logger.Error("share.dir.failed", "file", f, "error", err)
			return out, err
		}
		out = append(out, dst)
	}
	s.logger.Info("share.dir.ok", "dir", s.dir, "files", len(out), "elapsed_ms", time.Since(start).Milliseconds())
	return out, nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer func(in *os.File) { _ = in.Close() }(in)

	tmp := dst + ".part"
	out, err := os.Create(tmp)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		_ = os.Remove(tmp)
		return err
	}
	if err := out.Close(); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, dst)
}

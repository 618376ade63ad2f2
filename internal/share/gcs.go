package share

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"cloud.google.com/go/storage"
)

// GCSSharer writes files as objects in a Cloud Storage bucket.
type GCSSharer struct {
	client *storage.Client
	bucket string
	prefix string
	logger *slog.Logger
}

// NewGCSSharer uses application default credentials.
func NewGCSSharer(ctx context.Context, bucket, prefix string, logger *slog.Logger) (*GCSSharer, error) {
	if logger == nil {
		logger = slog.Default()
	}
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCS client: %w", err)
	}
	return &GCSSharer{client: client, bucket: bucket, prefix: prefix, logger: logger}, nil
}

func (s *GCSSharer) Share(ctx context.Context, files ...string) ([]string, error) {
	if err := requireFiles(files); err != nil {
		return nil, err
	}
	start := time.Now()
	out := make([]string, 0, len(files))
	for _, f := range files {
		name := objectKey(s.prefix, f)
		if err := s.write(ctx, f, name); err != nil {
			s.logger.Error("share.gcs.failed", "bucket", s.bucket, "object", name, "error", err)
			return out, err
		}
		out = append(out, "gs://"+s.bucket+"/"+name)
	}
	s.logger.Info("share.gcs.ok", "bucket", s.bucket, "files", len(out), "elapsed_ms", time.Since(start).Milliseconds())
	return out, nil
}

func (s *GCSSharer) write(ctx context.Context, file, name string) error {
	f, err := os.Open(file)
	if err != nil {
		return err
	}
	defer func(f *os.File) { _ = f.Close() }(f)

	w := s.client.Bucket(s.bucket).Object(name).NewWriter(ctx)
	w.ContentType = contentType(file)
	if _, err := io.Copy(w, f); err != nil {
		_ = w.Close()
		return fmt.Errorf("gcs write failed: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("gcs close failed: %w", err)
	}
	return nil
}

// Close closes the GCS client.
func (s *GCSSharer) Close() error {
	return s.client.Close()
}

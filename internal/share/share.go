// Package share hands finished backup files to a destination outside the
// app: a local outbox directory, an S3 bucket or a GCS bucket.
package share

import (
	"context"
	"fmt"
	"log/slog"
	"mime"
	"net/url"
	"path"
	"path/filepath"
	"strings"

	"github.com/joseph-ayodele/techtime/internal/common"
)

// Sharer delivers files and returns where each one ended up.
type Sharer interface {
	Share(ctx context.Context, files ...string) ([]string, error)
}

// Target kinds.
const (
	KindDir = "dir"
	KindS3  = "s3"
	KindGCS = "gs"
)

// Target is a parsed share URL.
type Target struct {
	Kind     string
	Path     string // dir only
	Bucket   string
	Prefix   string
	Region   string // s3 only, from ?region=
	Endpoint string // s3 only, from ?endpoint=
}

// ParseTarget reads dir:///path, s3://bucket/prefix or gs://bucket/prefix.
// A bare path is treated as a directory.
func ParseTarget(raw string) (Target, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Target{}, common.InvalidArgumentErrorf("share target is empty")
	}
	if !strings.Contains(raw, "://") {
		return Target{Kind: KindDir, Path: filepath.Clean(raw)}, nil
	}
	u, err := url.Parse(raw)
	if err != nil {
		return Target{}, common.InvalidArgumentErrorf("share target %q: %v", raw, err)
	}
	switch u.Scheme {
	case KindDir, "file":
		p := u.Path
		if u.Host != "" {
			p = u.Host + p
		}
		if p == "" {
			return Target{}, common.InvalidArgumentErrorf("share target %q has no path", raw)
		}
		return Target{Kind: KindDir, Path: filepath.FromSlash(p)}, nil
	case KindS3, KindGCS:
		if u.Host == "" {
			return Target{}, common.InvalidArgumentErrorf("share target %q has no bucket", raw)
		}
		prefix := strings.Trim(u.Path, "/")
		if prefix != "" {
			prefix += "/"
		}
		q := u.Query()
		return Target{
			Kind:     u.Scheme,
			Bucket:   u.Host,
			Prefix:   prefix,
			Region:   q.Get("region"),
			Endpoint: q.Get("endpoint"),
		}, nil
	}
	return Target{}, common.InvalidArgumentErrorf("unsupported share scheme %q", u.Scheme)
}

// New builds the Sharer for a share URL.
func New(ctx context.Context, raw string, logger *slog.Logger) (Sharer, error) {
	t, err := ParseTarget(raw)
	if err != nil {
		return nil, err
	}
	switch t.Kind {
	case KindS3:
		return NewS3Sharer(ctx, S3Config{Bucket: t.Bucket, Prefix: t.Prefix, Region: t.Region, Endpoint: t.Endpoint}, logger)
	case KindGCS:
		return NewGCSSharer(ctx, t.Bucket, t.Prefix, logger)
	default:
		return NewDirSharer(t.Path, logger), nil
	}
}

func objectKey(prefix, file string) string {
	return path.Join(prefix, filepath.Base(file))
}

func contentType(file string) string {
	if ct := mime.TypeByExtension(filepath.Ext(file)); ct != "" {
		return ct
	}
	return "application/octet-stream"
}

func requireFiles(files []string) error {
	if len(files) == 0 {
		return fmt.Errorf("share: %w", common.InvalidArgumentErrorf("no files to share"))
	}
	return nil
}

package share

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3Config holds configuration for S3Sharer.
type S3Config struct {
	Bucket   string
	Prefix   string
	Region   string
	Endpoint string // MinIO, LocalStack
}

// S3Sharer uploads files with PutObject under a key prefix.
type S3Sharer struct {
	client *s3.Client
	bucket string
	prefix string
	logger *slog.Logger
}

func NewS3Sharer(ctx context.Context, cfg S3Config, logger *slog.Logger) (*S3Sharer, error) {
	if logger == nil {
		logger = slog.Default()
	}
	var loadOpts []func(*config.LoadOptions) error
	if cfg.Region != "" {
		loadOpts = append(loadOpts, config.WithRegion(cfg.Region))
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})
	return &S3Sharer{client: client, bucket: cfg.Bucket, prefix: cfg.Prefix, logger: logger}, nil
}

func (s *S3Sharer) Share(ctx context.Context, files ...string) ([]string, error) {
	if err := requireFiles(files); err != nil {
		return nil, err
	}
	start := time.Now()
	out := make([]string, 0, len(files))
	for _, f := range files {
		key := objectKey(s.prefix, f)
		if err := s.put(ctx, f, key); err != nil {
			s.logger.Error("share.s3.failed", "bucket", s.bucket, "key", key, "error", err)
			return out, err
		}
		out = append(out, "s3://"+s.bucket+"/"+key)
	}
	s.logger.Info("share.s3.ok", "bucket", s.bucket, "files", len(out), "elapsed_ms", time.Since(start).Milliseconds())
	return out, nil
}

func (s *S3Sharer) put(ctx context.Context, file, key string) error {
	f, err := os.Open(file)
	if err != nil {
		return err
	}
	defer func(f *os.File) { _ = f.Close() }(f)

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        f,
		ContentType: aws.String(contentType(file)),
	})
	if err != nil {
		return fmt.Errorf("s3 put failed: %w", err)
	}
	return nil
}

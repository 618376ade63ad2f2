package repository

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/redis/go-redis/v9"
	_ "modernc.org/sqlite"
)

type Config struct {
	DSN             string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
	DialTimeout     time.Duration
	KeyPrefix       string
}

// Open picks a backend from the DSN scheme: postgres:// or postgresql:// use a
// pgx pool, redis:// or rediss:// use go-redis, anything else is a SQLite file path.
func Open(ctx context.Context, cfg Config, logger *slog.Logger) (Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.DialTimeout <= 0 {
		cfg.DialTimeout = 3 * time.Second
	}
	switch {
	case strings.HasPrefix(cfg.DSN, "postgres://"), strings.HasPrefix(cfg.DSN, "postgresql://"):
		return openPostgres(ctx, cfg, logger)
	case strings.HasPrefix(cfg.DSN, "redis://"), strings.HasPrefix(cfg.DSN, "rediss://"):
		return openRedis(ctx, cfg, logger)
	default:
		return openSQLite(ctx, cfg, logger)
	}
}

func openSQLite(ctx context.Context, cfg Config, logger *slog.Logger) (Store, error) {
	path := strings.TrimPrefix(cfg.DSN, "sqlite://")
	logger.Info("opening sqlite store", "path", path)
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create data dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		logger.Error("failed to open sqlite", "path", path, "error", err)
		return nil, err
	}
	// single writer
	db.SetMaxOpenConns(1)
	if _, err := db.ExecContext(ctx, `PRAGMA busy_timeout = 5000`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite pragma: %w", err)
	}
	s, err := NewSQLStore(ctx, db, DialectSQLite, logger)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func openPostgres(ctx context.Context, cfg Config, logger *slog.Logger) (Store, error) {
	logger.Info("connecting to postgres store")
	pc, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		logger.Error("failed to parse postgres dsn", "error", err)
		return nil, err
	}
	if cfg.MaxConns > 0 {
		pc.MaxConns = cfg.MaxConns
	}
	pc.MinConns = cfg.MinConns
	if cfg.MaxConnLifetime > 0 {
		pc.MaxConnLifetime = cfg.MaxConnLifetime
	}
	if cfg.MaxConnIdleTime > 0 {
		pc.MaxConnIdleTime = cfg.MaxConnIdleTime
	}
	pc.ConnConfig.RuntimeParams["application_name"] = "techtime"

	dialCtx, cancel := context.WithTimeout(ctx, cfg.DialTimeout)
	defer cancel()
	pool, err := pgxpool.NewWithConfig(dialCtx, pc)
	if err != nil {
		logger.Error("failed to connect to postgres", "error", err)
		return nil, err
	}

	db := stdlib.OpenDBFromPool(pool)
	s, err := NewSQLStore(ctx, db, DialectPostgres, logger)
	if err != nil {
		_ = db.Close()
		pool.Close()
		return nil, err
	}
	s.closers = append(s.closers, pool.Close)
	logger.Info("successfully connected to postgres store")
	return s, nil
}

func openRedis(ctx context.Context, cfg Config, logger *slog.Logger) (Store, error) {
	logger.Info("connecting to redis store")
	opts, err := redis.ParseURL(cfg.DSN)
	if err != nil {
		logger.Error("failed to parse redis url", "error", err)
		return nil, err
	}
	opts.DialTimeout = cfg.DialTimeout
	s := NewRedisStore(redis.NewClient(opts), cfg.KeyPrefix, logger)
	if err := HealthCheck(ctx, s, cfg.DialTimeout, logger); err != nil {
		_ = s.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the store, logging instead of returning failures.
func Close(s Store, logger *slog.Logger) {
	if s == nil {
		return
	}
	if logger == nil {
		logger = slog.Default()
	}
	if err := s.Close(); err != nil {
		logger.Error("failed to close store", "error", err)
		return
	}
	logger.Debug("store closed")
}

// HealthCheck pings the backend to catch DSN issues early.
func HealthCheck(ctx context.Context, s Store, timeout time.Duration, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	start := time.Now()
	if err := s.Ping(ctx); err != nil {
		logger.Error("store ping failed", "error", err)
		return err
	}
	logger.Debug("store ping successful", "elapsed_ms", time.Since(start).Milliseconds())
	return nil
}

package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/joseph-ayodele/techtime/internal/common"
)

// Store is the on-device key-value store. Values are JSON documents.
// Get returns an error wrapping common.ErrNotFound for missing keys.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	// SetMany writes all entries atomically where the backend allows it.
	SetMany(ctx context.Context, entries map[string][]byte) error
	Delete(ctx context.Context, key string) error
	Keys(ctx context.Context) ([]string, error)
	Ping(ctx context.Context) error
	Close() error
}

func notFound(key string) error {
	return fmt.Errorf("key %q: %w", key, common.ErrNotFound)
}

// getJSON decodes key into v. found is false when the key is absent.
func getJSON(ctx context.Context, s Store, key string, v any) (found bool, err error) {
	raw, err := s.Get(ctx, key)
	if errors.Is(err, common.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, common.StorageErrorf(err, "read %s", key)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return true, common.StorageErrorf(err, "decode %s", key)
	}
	return true, nil
}

func setJSON(ctx context.Context, s Store, key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return common.StorageErrorf(err, "encode %s", key)
	}
	if err := s.Set(ctx, key, raw); err != nil {
		return common.StorageErrorf(err, "write %s", key)
	}
	return nil
}

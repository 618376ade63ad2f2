package repository

import (
	"context"
	"log/slog"
	"sort"
	"strings"

	"github.com/joseph-ayodele/techtime/constants"
	"github.com/joseph-ayodele/techtime/internal/common"
	"github.com/joseph-ayodele/techtime/internal/entity"
)

// ScanRepository stores one document per scan under "scans/<id>".
type ScanRepository interface {
	List(ctx context.Context) ([]entity.ScanRecord, error)
	Get(ctx context.Context, id string) (*entity.ScanRecord, error)
	Save(ctx context.Context, rec entity.ScanRecord) error
}

type scanRepository struct {
	store  Store
	logger *slog.Logger
}

func NewScanRepository(store Store, logger *slog.Logger) ScanRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &scanRepository{store: store, logger: logger}
}

func scanKey(id string) string { return constants.KeyScans + "/" + id }

func (r *scanRepository) Get(ctx context.Context, id string) (*entity.ScanRecord, error) {
	var rec entity.ScanRecord
	found, err := getJSON(ctx, r.store, scanKey(id), &rec)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, common.NotFoundErrorf("scan %s not found", id)
	}
	return &rec, nil
}

func (r *scanRepository) Save(ctx context.Context, rec entity.ScanRecord) error {
	if err := setJSON(ctx, r.store, scanKey(rec.ID), rec); err != nil {
		r.logger.Error("failed to save scan", "scan_id", rec.ID, "error", err)
		return err
	}
	return nil
}

// List returns scans newest first.
func (r *scanRepository) List(ctx context.Context) ([]entity.ScanRecord, error) {
	keys, err := r.store.Keys(ctx)
	if err != nil {
		return nil, common.StorageErrorf(err, "list keys")
	}
	prefix := constants.KeyScans + "/"
	out := make([]entity.ScanRecord, 0)
	for _, k := range keys {
		if !strings.HasPrefix(k, prefix) {
			continue
		}
		rec, err := r.Get(ctx, strings.TrimPrefix(k, prefix))
		if err != nil {
			return nil, err
		}
		out = append(out, *rec)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

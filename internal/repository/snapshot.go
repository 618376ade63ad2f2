package repository

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"

	"github.com/joseph-ayodele/techtime/constants"
	"github.com/joseph-ayodele/techtime/internal/common"
	"github.com/joseph-ayodele/techtime/internal/entity"
	"github.com/joseph-ayodele/techtime/internal/worktime"
)

// Snapshot is the state restored from a backup in one write.
type Snapshot struct {
	Jobs           []entity.Job
	Settings       entity.AppSettings
	TechnicianName string // empty leaves the stored name untouched
}

// SnapshotRepository writes a full restore through Store.SetMany.
type SnapshotRepository interface {
	Restore(ctx context.Context, snap Snapshot) error
}

type snapshotRepository struct {
	store  Store
	logger *slog.Logger
}

func NewSnapshotRepository(store Store, logger *slog.Logger) SnapshotRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &snapshotRepository{store: store, logger: logger}
}

func (r *snapshotRepository) Restore(ctx context.Context, snap Snapshot) error {
	jobs := make([]entity.Job, len(snap.Jobs))
	for i, j := range snap.Jobs {
		j.TimeInMinutes = worktime.TimeInMinutes(j.AWValue)
		jobs[i] = j
	}

	entries := make(map[string][]byte, 3)
	jobsRaw, err := json.Marshal(jobs)
	if err != nil {
		return common.StorageErrorf(err, "encode %s", constants.KeyJobs)
	}
	entries[constants.KeyJobs] = jobsRaw

	settingsRaw, err := json.Marshal(snap.Settings)
	if err != nil {
		return common.StorageErrorf(err, "encode %s", constants.KeySettings)
	}
	entries[constants.KeySettings] = settingsRaw

	if name := strings.TrimSpace(snap.TechnicianName); name != "" {
		nameRaw, err := json.Marshal(name)
		if err != nil {
			return common.StorageErrorf(err, "encode %s", constants.KeyTechnicianName)
		}
		entries[constants.KeyTechnicianName] = nameRaw
	}

	if err := r.store.SetMany(ctx, entries); err != nil {
		r.logger.Error("failed to restore snapshot", "jobs", len(jobs), "error", err)
		return common.StorageErrorf(err, "restore snapshot")
	}
	r.logger.Info("repository.snapshot.restored", "jobs", len(jobs))
	return nil
}

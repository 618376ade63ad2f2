package repository

import (
	"context"
	"log/slog"
	"slices"

	"github.com/joseph-ayodele/techtime/constants"
	"github.com/joseph-ayodele/techtime/internal/common"
	"github.com/joseph-ayodele/techtime/internal/entity"
	"github.com/joseph-ayodele/techtime/internal/worktime"
)

// JobRepository persists the job list as one JSON array under constants.KeyJobs.
type JobRepository interface {
	List(ctx context.Context) ([]entity.Job, error)
	Get(ctx context.Context, id string) (*entity.Job, error)
	Save(ctx context.Context, job entity.Job) error
	Delete(ctx context.Context, id string) error
	Clear(ctx context.Context) error
	ReplaceAll(ctx context.Context, jobs []entity.Job) error
}

type jobRepository struct {
	store  Store
	logger *slog.Logger
}

func NewJobRepository(store Store, logger *slog.Logger) JobRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &jobRepository{store: store, logger: logger}
}

func (r *jobRepository) List(ctx context.Context) ([]entity.Job, error) {
	var jobs []entity.Job
	if _, err := getJSON(ctx, r.store, constants.KeyJobs, &jobs); err != nil {
		r.logger.Error("failed to load jobs", "error", err)
		return nil, err
	}
	if jobs == nil {
		jobs = []entity.Job{}
	}
	return jobs, nil
}

func (r *jobRepository) Get(ctx context.Context, id string) (*entity.Job, error) {
	jobs, err := r.List(ctx)
	if err != nil {
		return nil, err
	}
	i := slices.IndexFunc(jobs, func(j entity.Job) bool { return j.ID == id })
	if i < 0 {
		return nil, common.NotFoundErrorf("job %s not found", id)
	}
	return &jobs[i], nil
}

// Save inserts or replaces the job with the same ID. New jobs go first.
func (r *jobRepository) Save(ctx context.Context, job entity.Job) error {
	jobs, err := r.List(ctx)
	if err != nil {
		return err
	}
	job.TimeInMinutes = worktime.TimeInMinutes(job.AWValue)
	if i := slices.IndexFunc(jobs, func(j entity.Job) bool { return j.ID == job.ID }); i >= 0 {
		jobs[i] = job
	} else {
		jobs = append([]entity.Job{job}, jobs...)
	}
	if err := setJSON(ctx, r.store, constants.KeyJobs, jobs); err != nil {
		r.logger.Error("failed to save job", "job_id", job.ID, "error", err)
		return err
	}
	return nil
}

func (r *jobRepository) Delete(ctx context.Context, id string) error {
	jobs, err := r.List(ctx)
	if err != nil {
		return err
	}
	n := len(jobs)
	jobs = slices.DeleteFunc(jobs, func(j entity.Job) bool { return j.ID == id })
	if len(jobs) == n {
		return common.NotFoundErrorf("job %s not found", id)
	}
	return r.write(ctx, jobs)
}

func (r *jobRepository) Clear(ctx context.Context) error {
	return r.write(ctx, []entity.Job{})
}

// ReplaceAll swaps the whole job list, re-deriving time for every entry.
func (r *jobRepository) ReplaceAll(ctx context.Context, jobs []entity.Job) error {
	out := make([]entity.Job, len(jobs))
	for i, j := range jobs {
		j.TimeInMinutes = worktime.TimeInMinutes(j.AWValue)
		out[i] = j
	}
	return r.write(ctx, out)
}

func (r *jobRepository) write(ctx context.Context, jobs []entity.Job) error {
	if err := setJSON(ctx, r.store, constants.KeyJobs, jobs); err != nil {
		r.logger.Error("failed to write jobs", "count", len(jobs), "error", err)
		return err
	}
	return nil
}

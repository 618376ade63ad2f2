package jobs

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/joseph-ayodele/techtime/internal/common"
	"github.com/joseph-ayodele/techtime/internal/entity"
	"github.com/joseph-ayodele/techtime/internal/repository"
	"github.com/joseph-ayodele/techtime/internal/worktime"
)

const (
	maxWIPLength  = 20
	maxRegLength  = 12
	maxJobNoLen   = 20
	maxNotesLen   = 500
	maxAWPerEntry = 999
)

// Service handles job business logic.
type Service struct {
	jobRepo      repository.JobRepository
	settingsRepo repository.SettingsRepository
	logger       *slog.Logger
	now          func() time.Time
}

// NewService creates a new job service.
func NewService(jobRepo repository.JobRepository, settingsRepo repository.SettingsRepository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		jobRepo:      jobRepo,
		settingsRepo: settingsRepo,
		logger:       logger,
		now:          time.Now,
	}
}

// CreateJobRequest represents job creation parameters.
type CreateJobRequest struct {
	WIPNumber           string
	VehicleRegistration string
	JobNumber           string
	AWValue             float64
	Notes               string
}

// UpdateJobRequest carries the fields to change; nil leaves a field as is.
type UpdateJobRequest struct {
	ID                  string
	WIPNumber           *string
	VehicleRegistration *string
	JobNumber           *string
	AWValue             *float64
	Notes               *string
}

// NormalizeRegistration upper-cases a plate and collapses inner whitespace.
func NormalizeRegistration(s string) string {
	return strings.Join(strings.Fields(strings.ToUpper(s)), " ")
}

func validate(j entity.Job) error {
	v := common.NewValidator()
	v.Field("wipNumber", j.WIPNumber, common.Required, common.MaxLength(maxWIPLength))
	v.Field("vehicleRegistration", j.VehicleRegistration, common.MaxLength(maxRegLength))
	v.Field("jobNumber", j.JobNumber, common.MaxLength(maxJobNoLen))
	v.Field("notes", j.Notes, common.MaxLength(maxNotesLen))
	v.Field("awValue", j.AWValue, common.Range(0, maxAWPerEntry))
	return v.Error()
}

// Create validates and stores a new job.
func (s *Service) Create(ctx context.Context, req CreateJobRequest) (*entity.Job, error) {
	job := entity.Job{
		ID:                  uuid.NewString(),
		WIPNumber:           strings.TrimSpace(req.WIPNumber),
		VehicleRegistration: NormalizeRegistration(req.VehicleRegistration),
		JobNumber:           strings.TrimSpace(req.JobNumber),
		AWValue:             req.AWValue,
		Notes:               strings.TrimSpace(req.Notes),
		DateCreated:         s.now(),
	}
	if err := validate(job); err != nil {
		s.logger.Warn("job.create.invalid", "wip", job.WIPNumber, "error", err)
		return nil, err
	}
	job.TimeInMinutes = worktime.TimeInMinutes(job.AWValue)

	if err := s.jobRepo.Save(ctx, job); err != nil {
		return nil, err
	}
	s.logger.Info("job.create.ok", "job_id", job.ID, "wip", job.WIPNumber, "aw", job.AWValue)
	return &job, nil
}

// Update applies the non-nil fields of req to an existing job.
func (s *Service) Update(ctx context.Context, req UpdateJobRequest) (*entity.Job, error) {
	job, err := s.jobRepo.Get(ctx, req.ID)
	if err != nil {
		return nil, err
	}
	if req.WIPNumber != nil {
		job.WIPNumber = strings.TrimSpace(*req.WIPNumber)
	}
	if req.VehicleRegistration != nil {
		job.VehicleRegistration = NormalizeRegistration(*req.VehicleRegistration)
	}
	if req.JobNumber != nil {
		job.JobNumber = strings.TrimSpace(*req.JobNumber)
	}
	if req.AWValue != nil {
		job.AWValue = *req.AWValue
	}
	if req.Notes != nil {
		job.Notes = strings.TrimSpace(*req.Notes)
	}
	if err := validate(*job); err != nil {
		s.logger.Warn("job.update.invalid", "job_id", job.ID, "error", err)
		return nil, err
	}
	modified := s.now()
	job.DateModified = &modified
	job.TimeInMinutes = worktime.TimeInMinutes(job.AWValue)

	if err := s.jobRepo.Save(ctx, *job); err != nil {
		return nil, err
	}
	s.logger.Info("job.update.ok", "job_id", job.ID, "aw", job.AWValue)
	return job, nil
}

func (s *Service) Get(ctx context.Context, id string) (*entity.Job, error) {
	return s.jobRepo.Get(ctx, id)
}

func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.jobRepo.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info("job.delete.ok", "job_id", id)
	return nil
}

// Clear removes every job.
func (s *Service) Clear(ctx context.Context) error {
	if err := s.jobRepo.Clear(ctx); err != nil {
		return err
	}
	s.logger.Info("job.clear.ok")
	return nil
}

// ListJobsRequest filters the job list. Month is YYYY-MM; empty means all.
type ListJobsRequest struct {
	Month string
}

// List returns jobs newest first.
func (s *Service) List(ctx context.Context, req ListJobsRequest) ([]entity.Job, error) {
	if req.Month != "" {
		if _, err := time.Parse("2006-01", req.Month); err != nil {
			return nil, common.InvalidArgumentErrorf("month must be YYYY-MM, got %q", req.Month)
		}
	}
	all, err := s.jobRepo.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]entity.Job, 0, len(all))
	for _, g := range worktime.GroupByMonth(all) {
		if req.Month == "" || g.Month == req.Month {
			out = append(out, g.Jobs...)
		}
	}
	s.logger.Debug("job.list.ok", "month", req.Month, "count", len(out))
	return out, nil
}

// Dashboard loads settings and jobs concurrently and summarises month
// (current month when empty).
func (s *Service) Dashboard(ctx context.Context, month string) (worktime.Summary, error) {
	if month == "" {
		month = worktime.CurrentMonth(s.now())
	} else if _, err := time.Parse("2006-01", month); err != nil {
		return worktime.Summary{}, common.InvalidArgumentErrorf("month must be YYYY-MM, got %q", month)
	}

	var (
		settings entity.AppSettings
		all      []entity.Job
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		settings, err = s.settingsRepo.Load(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		all, err = s.jobRepo.List(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		s.logger.Error("job.dashboard.load_failed", "error", err)
		return worktime.Summary{}, err
	}
	return worktime.MonthSummary(all, month, settings), nil
}

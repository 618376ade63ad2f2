package jobs

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/techtime/internal/common"
	"github.com/joseph-ayodele/techtime/internal/entity"
	"github.com/joseph-ayodele/techtime/internal/repository"
)

func newTestService(t *testing.T) (*Service, repository.SettingsRepository) {
	t.Helper()
	store, err := repository.Open(context.Background(), repository.Config{DSN: filepath.Join(t.TempDir(), "jobs.db")}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	settingsRepo := repository.NewSettingsRepository(store, nil)
	return NewService(repository.NewJobRepository(store, nil), settingsRepo, nil), settingsRepo
}

func TestCreate_DerivesTimeAndNormalizes(t *testing.T) {
	svc, _ := newTestService(t)
	job, err := svc.Create(context.Background(), CreateJobRequest{
		WIPNumber:           " 48291 ",
		VehicleRegistration: "ab12   cde",
		AWValue:             12,
		Notes:               "brakes",
	})
	require.NoError(t, err)

	assert.NotEmpty(t, job.ID)
	assert.Equal(t, "48291", job.WIPNumber)
	assert.Equal(t, "AB12 CDE", job.VehicleRegistration)
	assert.Equal(t, 60.0, job.TimeInMinutes)
	assert.False(t, job.DateCreated.IsZero())
	assert.Nil(t, job.DateModified)
}

func TestCreate_Validation(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	tests := []struct {
		name string
		req  CreateJobRequest
	}{
		{"missing wip", CreateJobRequest{AWValue: 1}},
		{"wip too long", CreateJobRequest{WIPNumber: "123456789012345678901", AWValue: 1}},
		{"zero aw", CreateJobRequest{WIPNumber: "1234", AWValue: 0}},
		{"negative aw", CreateJobRequest{WIPNumber: "1234", AWValue: -2}},
		{"aw too large", CreateJobRequest{WIPNumber: "1234", AWValue: 1000}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Create(ctx, tt.req)
			require.Error(t, err)
			assert.ErrorIs(t, err, common.ErrValidation)
		})
	}

	jobs, err := svc.List(ctx, ListJobsRequest{})
	require.NoError(t, err)
	assert.Empty(t, jobs)
}

func TestUpdate_RederivesTime(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	job, err := svc.Create(ctx, CreateJobRequest{WIPNumber: "1111", AWValue: 2})
	require.NoError(t, err)

	aw := 7.5
	notes := "  diag  "
	updated, err := svc.Update(ctx, UpdateJobRequest{ID: job.ID, AWValue: &aw, Notes: &notes})
	require.NoError(t, err)
	assert.Equal(t, 37.5, updated.TimeInMinutes)
	assert.Equal(t, "diag", updated.Notes)
	require.NotNil(t, updated.DateModified)

	bad := 0.0
	_, err = svc.Update(ctx, UpdateJobRequest{ID: job.ID, AWValue: &bad})
	assert.ErrorIs(t, err, common.ErrValidation)

	_, err = svc.Update(ctx, UpdateJobRequest{ID: "missing", AWValue: &aw})
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestListByMonthAndDashboard(t *testing.T) {
	svc, settingsRepo := newTestService(t)
	ctx := context.Background()

	march := time.Date(2024, 3, 10, 9, 0, 0, 0, time.Local)
	svc.now = func() time.Time { return march }
	_, err := svc.Create(ctx, CreateJobRequest{WIPNumber: "1001", AWValue: 12})
	require.NoError(t, err)
	_, err = svc.Create(ctx, CreateJobRequest{WIPNumber: "1002", AWValue: 24})
	require.NoError(t, err)

	svc.now = func() time.Time { return march.AddDate(0, 1, 0) }
	_, err = svc.Create(ctx, CreateJobRequest{WIPNumber: "2001", AWValue: 6})
	require.NoError(t, err)

	inMarch, err := svc.List(ctx, ListJobsRequest{Month: "2024-03"})
	require.NoError(t, err)
	assert.Len(t, inMarch, 2)

	all, err := svc.List(ctx, ListJobsRequest{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "2001", all[0].WIPNumber)

	_, err = svc.List(ctx, ListJobsRequest{Month: "March"})
	assert.ErrorIs(t, err, common.ErrInvalidInput)

	s := entity.DefaultSettings()
	s.TargetHours = 10
	s.AbsenceHours = 4
	require.NoError(t, settingsRepo.Save(ctx, s))

	sum, err := svc.Dashboard(ctx, "2024-03")
	require.NoError(t, err)
	assert.Equal(t, 2, sum.JobCount)
	assert.Equal(t, 36.0, sum.TotalAWs)
	assert.Equal(t, 180.0, sum.TotalMinutes)
	assert.Equal(t, 360.0, sum.TargetMinutes)
	assert.Equal(t, 180.0, sum.RemainingMinutes)
	assert.InDelta(t, 50.0, sum.PercentOfTarget, 1e-9)

	current, err := svc.Dashboard(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, "2024-04", current.Month)
	assert.Equal(t, 1, current.JobCount)
}

func TestDeleteAndClear(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	a, err := svc.Create(ctx, CreateJobRequest{WIPNumber: "1", AWValue: 1})
	require.NoError(t, err)
	_, err = svc.Create(ctx, CreateJobRequest{WIPNumber: "2", AWValue: 1})
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, a.ID))
	assert.ErrorIs(t, svc.Delete(ctx, a.ID), common.ErrNotFound)

	require.NoError(t, svc.Clear(ctx))
	jobs, err := svc.List(ctx, ListJobsRequest{})
	require.NoError(t, err)
	assert.Empty(t, jobs)
}

package worktime

import (
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/techtime/internal/entity"
)

func TestTimeInMinutes_TwelveAWIsOneHour(t *testing.T) {
	assert.Equal(t, 60.0, TimeInMinutes(12))
	assert.Equal(t, "1h 0m", FormatAW(12))
	assert.Equal(t, 1.5, Hours(90))
}

func TestFormatMinutes(t *testing.T) {
	tests := []struct {
		name    string
		minutes float64
		want    string
	}{
		{name: "zero", minutes: 0, want: "0h 0m"},
		{name: "under an hour", minutes: 45, want: "0h 45m"},
		{name: "hours and minutes", minutes: 125, want: "2h 5m"},
		{name: "rounds fractional minutes", minutes: 62.5, want: "1h 3m"},
		{name: "negative", minutes: -90, want: "-1h 30m"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatMinutes(tt.minutes))
		})
	}
}

func TestTimeInMinutes_IsFiveTimesAW(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("time is always aw*5", prop.ForAll(
		func(aw float64) bool {
			return TimeInMinutes(aw) == aw*5
		},
		gen.Float64Range(0, 10000),
	))

	properties.TestingRun(t)
}

func TestMonthSummary(t *testing.T) {
	oct := time.Date(2026, 10, 3, 9, 0, 0, 0, time.Local)
	sep := time.Date(2026, 9, 28, 9, 0, 0, 0, time.Local)
	jobs := []entity.Job{
		{ID: "a", AWValue: 12, DateCreated: oct},
		{ID: "b", AWValue: 24, DateCreated: oct.Add(time.Hour)},
		{ID: "c", AWValue: 100, DateCreated: sep},
	}
	settings := entity.AppSettings{TargetHours: 10, AbsenceHours: 4}

	s := MonthSummary(jobs, "2026-10", settings)
	assert.Equal(t, 2, s.JobCount)
	assert.Equal(t, 36.0, s.TotalAWs)
	assert.Equal(t, 180.0, s.TotalMinutes)
	assert.Equal(t, 360.0, s.TargetMinutes)
	assert.Equal(t, 180.0, s.RemainingMinutes)
	assert.InDelta(t, 50.0, s.PercentOfTarget, 1e-9)
}

func TestMonthSummary_AbsenceAboveTargetClampsToZero(t *testing.T) {
	s := MonthSummary(nil, "2026-10", entity.AppSettings{TargetHours: 5, AbsenceHours: 8})
	assert.Zero(t, s.TargetMinutes)
	assert.Zero(t, s.PercentOfTarget)
}

func TestGroupByMonth_NewestFirst(t *testing.T) {
	d := func(m time.Month, day int) time.Time { return time.Date(2026, m, day, 12, 0, 0, 0, time.Local) }
	jobs := []entity.Job{
		{ID: "sep-1", AWValue: 1, DateCreated: d(9, 1)},
		{ID: "oct-1", AWValue: 2, DateCreated: d(10, 1)},
		{ID: "oct-5", AWValue: 3, DateCreated: d(10, 5)},
	}
	groups := GroupByMonth(jobs)
	require.Len(t, groups, 2)
	assert.Equal(t, "2026-10", groups[0].Month)
	assert.Equal(t, "October 2026", groups[0].Label)
	assert.Equal(t, []string{"oct-5", "oct-1"}, []string{groups[0].Jobs[0].ID, groups[0].Jobs[1].ID})
	assert.Equal(t, 5.0, groups[0].TotalAWs)
	assert.Equal(t, "2026-09", groups[1].Month)
}

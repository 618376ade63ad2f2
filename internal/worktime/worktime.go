// Package worktime converts Allocated Work units into time and builds the
// monthly progress figures shown on the dashboard.
package worktime

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/joseph-ayodele/techtime/internal/entity"
)

// MinutesPerAW is the fixed length of one Allocated Work unit.
const MinutesPerAW = 5

// TimeInMinutes derives job time from its AW value.
func TimeInMinutes(aw float64) float64 {
	return aw * MinutesPerAW
}

// Hours converts minutes to fractional hours.
func Hours(minutes float64) float64 {
	return minutes / 60
}

// FormatMinutes renders minutes as "Xh Ym", rounding to the nearest minute.
func FormatMinutes(minutes float64) string {
	total := int(math.Round(minutes))
	sign := ""
	if total < 0 {
		sign = "-"
		total = -total
	}
	return fmt.Sprintf("%s%dh %dm", sign, total/60, total%60)
}

// FormatAW renders the time for an AW value, e.g. 12 -> "1h 0m".
func FormatAW(aw float64) string {
	return FormatMinutes(TimeInMinutes(aw))
}

// Summary is the progress of one month against the technician's target.
type Summary struct {
	Month            string  `json:"month"`
	JobCount         int     `json:"jobCount"`
	TotalAWs         float64 `json:"totalAWs"`
	TotalMinutes     float64 `json:"totalMinutes"`
	TargetMinutes    float64 `json:"targetMinutes"`
	RemainingMinutes float64 `json:"remainingMinutes"`
	PercentOfTarget  float64 `json:"percentOfTarget"`
}

// MonthSummary totals the jobs created in month (YYYY-MM) against
// (targetHours - absenceHours).
func MonthSummary(jobs []entity.Job, month string, settings entity.AppSettings) Summary {
	s := Summary{Month: month}
	for _, j := range jobs {
		if j.Month() != month {
			continue
		}
		s.JobCount++
		s.TotalAWs += j.AWValue
	}
	s.TotalMinutes = TimeInMinutes(s.TotalAWs)
	s.TargetMinutes = math.Max(0, (settings.TargetHours-settings.AbsenceHours)*60)
	s.RemainingMinutes = math.Max(0, s.TargetMinutes-s.TotalMinutes)
	if s.TargetMinutes > 0 {
		s.PercentOfTarget = s.TotalMinutes / s.TargetMinutes * 100
	}
	return s
}

// MonthGroup is the set of jobs for one calendar month.
type MonthGroup struct {
	Month    string       `json:"month"`
	Label    string       `json:"label"`
	Jobs     []entity.Job `json:"jobs"`
	TotalAWs float64      `json:"totalAWs"`
}

// GroupByMonth buckets jobs by creation month, newest month first and
// newest job first inside a month.
func GroupByMonth(jobs []entity.Job) []MonthGroup {
	idx := map[string]int{}
	var groups []MonthGroup
	for _, j := range jobs {
		m := j.Month()
		i, ok := idx[m]
		if !ok {
			label := m
			if t, err := time.ParseInLocation("2006-01", m, time.Local); err == nil {
				label = t.Format("January 2006")
			}
			groups = append(groups, MonthGroup{Month: m, Label: label})
			i = len(groups) - 1
			idx[m] = i
		}
		groups[i].Jobs = append(groups[i].Jobs, j)
		groups[i].TotalAWs += j.AWValue
	}
	sort.Slice(groups, func(a, b int) bool { return groups[a].Month > groups[b].Month })
	for i := range groups {
		g := groups[i].Jobs
		sort.SliceStable(g, func(a, b int) bool { return g[a].DateCreated.After(g[b].DateCreated) })
	}
	return groups
}

// CurrentMonth returns now's YYYY-MM in local time.
func CurrentMonth(now time.Time) string {
	return now.Local().Format("2006-01")
}

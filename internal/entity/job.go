package entity

import (
	"time"
)

// Job is one recorded piece of technician work.
type Job struct {
	ID                  string     `json:"id"`
	WIPNumber           string     `json:"wipNumber"`
	VehicleRegistration string     `json:"vehicleRegistration"`
	JobNumber           string     `json:"jobNumber,omitempty"`
	AWValue             float64    `json:"awValue"`
	Notes               string     `json:"notes,omitempty"`
	DateCreated         time.Time  `json:"dateCreated"`
	DateModified        *time.Time `json:"dateModified,omitempty"`
	TimeInMinutes       float64    `json:"timeInMinutes"`
}

// Month returns the YYYY-MM bucket the job belongs to, in local time.
func (j Job) Month() string {
	return j.DateCreated.Local().Format("2006-01")
}

package entity

import "time"

// BackupVersion is written into every export.
const BackupVersion = "1.0"

// BackupData is the top-level document of a backup file.
type BackupData struct {
	Version   string         `json:"version"`
	Timestamp time.Time      `json:"timestamp"`
	Jobs      []Job          `json:"jobs"`
	Settings  AppSettings    `json:"settings"`
	Metadata  BackupMetadata `json:"metadata"`
}

// BackupMetadata summarizes the payload. TotalAWs always equals the sum of jobs[].awValue.
type BackupMetadata struct {
	TotalJobs      int     `json:"totalJobs"`
	TotalAWs       float64 `json:"totalAWs"`
	ExportDate     string  `json:"exportDate"`
	AppVersion     string  `json:"appVersion"`
	TechnicianName string  `json:"technicianName,omitempty"`
	Checksum       string  `json:"checksum,omitempty"`
}

package constants

// ScanStatus is the lifecycle state of a stored scan record.
type ScanStatus string

// Stable values (stored as-is in the scans document).
const (
	ScanStatusPending   ScanStatus = "PENDING"   // candidates waiting for selection
	ScanStatusApplied   ScanStatus = "APPLIED"   // selection turned into a job
	ScanStatusDiscarded ScanStatus = "DISCARDED" // user threw the scan away
	ScanStatusFailed    ScanStatus = "FAILED"    // OCR or parse failed
)

// ScanErrorParse is the error code stored on a scan whose text could not be parsed.
const ScanErrorParse = "PARSE_FAILED"

// Storage keys in the key-value store.
const (
	KeySettings        = "settings"
	KeyJobs            = "jobs"
	KeyTechnicianName  = "technician_name"
	KeyBackupDirectory = "backup_directory_uri"
	KeyScans           = "scans"
)

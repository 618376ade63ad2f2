package entity

import (
	"time"

	"github.com/joseph-ayodele/techtime/constants"
)

// ScanRecord is a stored OCR run waiting for (or done with) user selection.
type ScanRecord struct {
	ID            string               `json:"id"`
	ImagePath     string               `json:"imagePath"`
	CreatedAt     time.Time            `json:"createdAt"`
	Status        constants.ScanStatus `json:"status"`
	Provider      string               `json:"provider,omitempty"`
	OCRText       string               `json:"ocrText,omitempty"`
	OCRConfidence float64              `json:"ocrConfidence"`
	NeedsReview   bool                 `json:"needsReview"`
	Candidates    Candidates           `json:"candidates"`
	JobID         string               `json:"jobId,omitempty"`
	ErrorCode     string               `json:"errorCode,omitempty"`
	ErrorMessage  string               `json:"errorMessage,omitempty"`
}

package processor

import (
	"context"
	"log/slog"

	"github.com/joseph-ayodele/techtime/constants"
	"github.com/joseph-ayodele/techtime/internal/entity"
	"github.com/joseph-ayodele/techtime/internal/extract"
	"github.com/joseph-ayodele/techtime/internal/ocr"
)

type OCRStage struct {
	TextExtractor extract.TextExtractor
	Logger        *slog.Logger
}

func NewOCRStage(tx extract.TextExtractor, logger *slog.Logger) *OCRStage {
	if logger == nil {
		logger = slog.Default()
	}
	return &OCRStage{TextExtractor: tx, Logger: logger}
}

// Run performs OCR for rec.ImagePath and records the outcome on rec. On
// failure rec is marked FAILED with the OCR code and a readable message.
func (s *OCRStage) Run(ctx context.Context, rec *entity.ScanRecord) (extract.TextExtractionResult, error) {
	res, err := s.TextExtractor.Extract(ctx, rec.ImagePath)
	rec.Provider = res.Provider
	if err != nil {
		rec.Status = constants.ScanStatusFailed
		rec.ErrorCode = ocr.CodeOf(err)
		rec.ErrorMessage = ocr.UserMessage(err)
		return res, err
	}

	rec.OCRText = res.Text
	rec.OCRConfidence = res.Confidence
	if res.Confidence < constants.LowConfidenceThreshold {
		s.Logger.Warn("image ocr confidence low; needs review", "scan_id", rec.ID, "conf", res.Confidence)
		rec.NeedsReview = true
	}
	return res, nil
}

package extract

import (
	"context"
	"log/slog"

	"github.com/joseph-ayodele/techtime/internal/ocr"
)

type OCRAdapter struct {
	svc    *ocr.Service
	logger *slog.Logger
}

func NewOCRAdapter(svc *ocr.Service, logger *slog.Logger) *OCRAdapter {
	if logger == nil {
		logger = slog.Default()
	}
	return &OCRAdapter{svc: svc, logger: logger}
}

func (a *OCRAdapter) Extract(ctx context.Context, path string) (TextExtractionResult, error) {
	r, err := a.svc.PerformOCR(ctx, path)
	return TextExtractionResult{
		Text:       r.Text,
		Confidence: r.Confidence,
		Provider:   r.Provider,
		Attempts:   r.Attempts,
		Duration:   r.Duration,
		Warnings:   r.Warnings,
	}, err
}

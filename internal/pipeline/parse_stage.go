package processor

import (
	"context"
	"log/slog"

	"github.com/joseph-ayodele/techtime/internal/entity"
	"github.com/joseph-ayodele/techtime/internal/extract"
)

type ParseStage struct {
	Extractor extract.FieldExtractor
	Logger    *slog.Logger
}

func NewParseStage(fe extract.FieldExtractor, logger *slog.Logger) *ParseStage {
	if logger == nil {
		logger = slog.Default()
	}
	return &ParseStage{Extractor: fe, Logger: logger}
}

// Run fills rec.Candidates from rec.OCRText. A scan without a WIP candidate
// always needs review since WIP is mandatory for a job.
func (s *ParseStage) Run(ctx context.Context, rec *entity.ScanRecord) error {
	c, err := s.Extractor.ExtractFields(ctx, rec.OCRText)
	if err != nil {
		return err
	}
	rec.Candidates = c
	if len(c.WIPNumber) == 0 {
		rec.NeedsReview = true
	}
	s.Logger.Info("parse fields done",
		"scan_id", rec.ID,
		"registration", len(c.Registration),
		"wip", len(c.WIPNumber),
		"job_number", len(c.JobNumber),
	)
	return nil
}

package extract

import (
	"context"
	"time"

	"github.com/joseph-ayodele/techtime/internal/entity"
)

// TextExtractor is stage 1: image -> text.
type TextExtractor interface {
	Extract(ctx context.Context, path string) (TextExtractionResult, error)
}

type TextExtractionResult struct {
	Text       string
	Confidence float64
	Provider   string
	Attempts   int
	Duration   time.Duration
	Warnings   []string
}

// FieldExtractor is stage 2: text -> ranked candidates per field.
type FieldExtractor interface {
	ExtractFields(ctx context.Context, text string) (entity.Candidates, error)
}

// RuleExtractor is the pattern-matching FieldExtractor.
type RuleExtractor struct{}

func (RuleExtractor) ExtractFields(ctx context.Context, text string) (entity.Candidates, error) {
	if err := ctx.Err(); err != nil {
		return entity.Candidates{}, err
	}
	return ParseAll(text), nil
}

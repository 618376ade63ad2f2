package ocr

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/joseph-ayodele/techtime/constants"
)

// Provider performs one recognition attempt on a prepared image.
type Provider interface {
	Name() string
	// NeedsNetwork reports whether PerformOCR must check connectivity first.
	NeedsNetwork() bool
	Recognize(ctx context.Context, img preparedImage) (Result, error)
}

// noneProvider is installed when no OCR backend is configured.
type noneProvider struct{}

func (noneProvider) Name() string       { return constants.ProviderNone }
func (noneProvider) NeedsNetwork() bool { return false }
func (noneProvider) Recognize(context.Context, preparedImage) (Result, error) {
	return Result{}, newError(constants.OCRNoAPIKey, "no OCR provider configured", nil)
}

// MockText is what the mock provider returns for every image.
const MockText = `NORTHGATE MOTORS SERVICE DEPT
JOB CARD No: JC48213
WIP No: 482913
Date: 14/03/2024
Vehicle Reg: AB12 CDE
Tel: 01632 960123
Customer: Fleet Account
Work: Front brake pads and discs`

type mockProvider struct{}

func (mockProvider) Name() string       { return constants.ProviderMock }
func (mockProvider) NeedsNetwork() bool { return false }
func (mockProvider) Recognize(ctx context.Context, _ preparedImage) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	return Result{Text: MockText, Confidence: 0.95}, nil
}

// tesseractProvider shells out to the tesseract CLI.
type tesseractProvider struct {
	runner      Runner
	bin         string
	lang        string
	tessdataDir string
}

func (t tesseractProvider) Name() string       { return constants.ProviderTesseract }
func (t tesseractProvider) NeedsNetwork() bool { return false }

func (t tesseractProvider) Recognize(ctx context.Context, img preparedImage) (Result, error) {
	args := []string{img.Path, "stdout", "-l", t.lang}
	if t.tessdataDir != "" {
		args = append(args, "--tessdata-dir", t.tessdataDir)
	}
	out, errb, err := t.runner.Run(ctx, t.bin, args...)
	if err != nil {
		return Result{}, newPermanentError(constants.OCRServerError, "tesseract failed: "+strings.TrimSpace(string(errb)), err)
	}
	res := Result{Text: string(out)}

	// second pass in TSV mode for word confidences
	tsv, _, err := t.runner.Run(ctx, t.bin, append(args, "tsv")...)
	if err == nil {
		if c, ok := meanTSVConfidence(string(tsv)); ok {
			res.Confidence = c
		}
	} else {
		res.Warnings = append(res.Warnings, fmt.Sprintf("tesseract tsv: %v", err))
	}
	return res, nil
}

// meanTSVConfidence averages the conf column (0..100) and returns it in 0..1.
func meanTSVConfidence(tsv string) (float64, bool) {
	var sum, n float64
	for i, ln := range strings.Split(tsv, "\n") {
		if i == 0 || ln == "" {
			continue
		}
		cols := strings.Split(ln, "\t")
		if len(cols) < 12 {
			continue
		}
		c := cols[10]
		if c == "" || c == "-1" {
			continue
		}
		if v, err := strconv.ParseFloat(c, 64); err == nil {
			sum += v
			n++
		}
	}
	if n == 0 {
		return 0, false
	}
	return sum / n / 100, true
}

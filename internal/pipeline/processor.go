package processor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/techtime/constants"
	"github.com/joseph-ayodele/techtime/internal/common"
	"github.com/joseph-ayodele/techtime/internal/entity"
	"github.com/joseph-ayodele/techtime/internal/jobs"
	"github.com/joseph-ayodele/techtime/internal/repository"
)

// Processor coordinates OCR, field parsing and the user's selection.
type Processor struct {
	Logger *slog.Logger
	OCR    *OCRStage
	Parse  *ParseStage
	Scans  repository.ScanRepository
	Jobs   *jobs.Service
	now    func() time.Time
}

func NewProcessor(logger *slog.Logger, ocr *OCRStage, parse *ParseStage, scans repository.ScanRepository, jobsSvc *jobs.Service) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Processor{Logger: logger, OCR: ocr, Parse: parse, Scans: scans, Jobs: jobsSvc, now: time.Now}
}

// Scan runs OCR and parsing for one image and stores the scan record. The
// record is returned (and stored) even when OCR fails.
func (p *Processor) Scan(ctx context.Context, imagePath string) (*entity.ScanRecord, error) {
	if constants.MapExtToFormat(filepath.Ext(imagePath)) != constants.IMAGE {
		return nil, common.InvalidArgumentErrorf("unsupported image type %q", filepath.Ext(imagePath))
	}
	rec := &entity.ScanRecord{
		ID:        uuid.NewString(),
		ImagePath: imagePath,
		CreatedAt: p.now(),
		Status:    constants.ScanStatusPending,
	}

	logger := common.LoggerFromContext(ctx, p.Logger).With("scan_id", rec.ID)

	ocrRes, err := p.OCR.Run(ctx, rec)
	if err != nil {
		logger.Error("processor.ocr.failed", "path", imagePath, "code", rec.ErrorCode, "err", err)
		if serr := p.Scans.Save(ctx, *rec); serr != nil {
			logger.Error("processor.save.failed", "err", serr)
		}
		return rec, err
	}
	logger.Info("processor.ocr.ok",
		"provider", ocrRes.Provider,
		"attempts", ocrRes.Attempts,
		"confidence", ocrRes.Confidence,
	)

	if err := p.Parse.Run(ctx, rec); err != nil {
		rec.Status = constants.ScanStatusFailed
		rec.ErrorCode = constants.ScanErrorParse
		rec.ErrorMessage = common.UserMessage(err)
		logger.Error("processor.parse.failed", "path", imagePath, "err", err)
		if serr := p.Scans.Save(ctx, *rec); serr != nil {
			logger.Error("processor.save.failed", "err", serr)
		}
		return rec, err
	}
	if err := p.Scans.Save(ctx, *rec); err != nil {
		return rec, err
	}
	logger.Info("processor.parse.ok", "needs_review", rec.NeedsReview)
	return rec, nil
}

// FieldChoice picks a value for one field: Manual wins when set, otherwise
// Index selects a candidate. With neither, the top match is used.
type FieldChoice struct {
	Index  *int
	Manual string
}

// Selection is the technician's confirmation of a scan.
type Selection struct {
	Registration FieldChoice
	WIPNumber    FieldChoice
	JobNumber    FieldChoice
	AWValue      float64
	Notes        string
}

func resolve(field string, choice FieldChoice, list []entity.ParseResult) (string, error) {
	if choice.Manual != "" {
		return choice.Manual, nil
	}
	if choice.Index != nil {
		i := *choice.Index
		if i < 0 || i >= len(list) {
			return "", common.NewAppError("VALIDATION_ERROR",
				fmt.Sprintf("%s candidate %d does not exist (%d available)", field, i, len(list)), common.ErrValidation)
		}
		return list[i].Value, nil
	}
	if top, ok := entity.Top(list); ok {
		return top.Value, nil
	}
	return "", nil
}

// Apply turns a pending scan into a job.
func (p *Processor) Apply(ctx context.Context, scanID string, sel Selection) (*entity.Job, error) {
	if verr := common.UUID("scanId", scanID); verr != nil {
		return nil, &common.ValidationErrors{Errors: []common.ValidationError{*verr}}
	}
	rec, err := p.Scans.Get(ctx, scanID)
	if err != nil {
		return nil, err
	}
	if rec.Status != constants.ScanStatusPending {
		return nil, common.InvalidArgumentErrorf("scan %s is %s, only pending scans can be applied", scanID, rec.Status)
	}

	reg, err := resolve("registration", sel.Registration, rec.Candidates.Registration)
	if err != nil {
		return nil, err
	}
	wip, err := resolve("wipNumber", sel.WIPNumber, rec.Candidates.WIPNumber)
	if err != nil {
		return nil, err
	}
	jobNo, err := resolve("jobNumber", sel.JobNumber, rec.Candidates.JobNumber)
	if err != nil {
		return nil, err
	}

	job, err := p.Jobs.Create(ctx, jobs.CreateJobRequest{
		WIPNumber:           wip,
		VehicleRegistration: reg,
		JobNumber:           jobNo,
		AWValue:             sel.AWValue,
		Notes:               sel.Notes,
	})
	if err != nil {
		return nil, err
	}

	// the job is rolled back when the scan cannot be marked applied, so a
	// pending scan never has a job behind it
	rec.Status = constants.ScanStatusApplied
	rec.JobID = job.ID
	if err := p.Scans.Save(ctx, *rec); err != nil {
		p.Logger.Error("processor.apply.save_failed", "scan_id", scanID, "job_id", job.ID, "err", err)
		if derr := p.Jobs.Delete(ctx, job.ID); derr != nil {
			p.Logger.Error("processor.apply.rollback_failed", "scan_id", scanID, "job_id", job.ID, "err", derr)
			return nil, errors.Join(err, derr)
		}
		return nil, err
	}
	p.Logger.Info("processor.apply.ok", "scan_id", scanID, "job_id", job.ID)
	return job, nil
}

// Discard drops a scan that has not been applied.
func (p *Processor) Discard(ctx context.Context, scanID string) error {
	rec, err := p.Scans.Get(ctx, scanID)
	if err != nil {
		return err
	}
	if rec.Status == constants.ScanStatusApplied {
		return common.InvalidArgumentErrorf("scan %s was already applied", scanID)
	}
	rec.Status = constants.ScanStatusDiscarded
	if err := p.Scans.Save(ctx, *rec); err != nil {
		return err
	}
	p.Logger.Info("processor.discard.ok", "scan_id", scanID)
	return nil
}

func (p *Processor) List(ctx context.Context) ([]entity.ScanRecord, error) {
	return p.Scans.List(ctx)
}

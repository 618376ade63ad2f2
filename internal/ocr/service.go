package ocr

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"

	"github.com/joseph-ayodele/techtime/constants"
	"github.com/joseph-ayodele/techtime/internal/common"
)

const tracerName = "github.com/joseph-ayodele/techtime/internal/ocr"

// Point is a vertex of a block's bounding polygon.
type Point struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Block is one recognised word or phrase with its position.
type Block struct {
	Text   string  `json:"text"`
	Bounds []Point `json:"bounds,omitempty"`
}

// Result is the outcome of PerformOCR.
type Result struct {
	Text       string
	Confidence float64 // 0..1
	Blocks     []Block
	Provider   string
	Attempts   int
	Duration   time.Duration
	Warnings   []string
}

// LowConfidence reports whether the text should be reviewed before use.
func (r Result) LowConfidence() bool {
	return r.Confidence < constants.LowConfidenceThreshold
}

// Service turns an image into text with one configured provider.
type Service struct {
	cfg          common.OCRConfig
	provider     Provider
	connectivity Connectivity
	limiter      *rate.Limiter
	prep         imagePrep
	tracer       trace.Tracer
	logger       *slog.Logger
}

type Option func(*Service)

// WithProvider replaces the provider chosen from configuration.
func WithProvider(p Provider) Option {
	return func(s *Service) { s.provider = p }
}

func WithConnectivity(c Connectivity) Option {
	return func(s *Service) { s.connectivity = c }
}

// WithRunner replaces the command runner used by tesseract and HEIC conversion.
func WithRunner(r Runner) Option {
	return func(s *Service) {
		s.prep.runner = r
		if t, ok := s.provider.(tesseractProvider); ok {
			t.runner = r
			s.provider = t
		}
	}
}

func WithHTTPClient(c *http.Client) Option {
	return func(s *Service) {
		if v, ok := s.provider.(*visionProvider); ok {
			v.client = c
		}
	}
}

func NewService(cfg common.OCRConfig, logger *slog.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 12 * time.Second
	}
	if cfg.RetryBase <= 0 {
		cfg.RetryBase = time.Second
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}

	runner := Runner(ExecRunner{Logger: logger})
	s := &Service{
		cfg:          cfg,
		connectivity: DialConnectivity{Host: cfg.ConnectivityHost, Timeout: 3 * time.Second},
		limiter:      rate.NewLimiter(rate.Inf, 0),
		prep: imagePrep{
			runner:        runner,
			logger:        logger,
			heicConverter: cfg.HeicConverter,
			cacheDir:      cfg.ArtifactCacheDir,
			maxDimension:  cfg.MaxImageDimension,
			maxBytes:      constants.MaxImageMBDefault << 20,
		},
		tracer: otel.Tracer(tracerName),
		logger: logger,
	}
	if cfg.RequestsPerMinute > 0 {
		s.limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(cfg.RequestsPerMinute)), cfg.RequestsPerMinute)
	}

	switch cfg.Provider {
	case constants.ProviderVision:
		endpoint := cfg.Endpoint
		if endpoint == "" {
			endpoint = constants.DefaultVisionEndpoint
		}
		s.provider = &visionProvider{client: &http.Client{}, endpoint: endpoint, apiKey: cfg.APIKey, logger: logger}
	case constants.ProviderMock:
		s.provider = mockProvider{}
	case constants.ProviderTesseract:
		bin := cfg.TesseractBin
		if bin == "" {
			bin = "tesseract"
		}
		s.provider = tesseractProvider{runner: runner, bin: bin, lang: "eng", tessdataDir: cfg.TessdataDir}
	default:
		s.provider = noneProvider{}
	}

	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ProviderName returns the active provider.
func (s *Service) ProviderName() string { return s.provider.Name() }

// PerformOCR recognises the text in the image at path. Failures are *Error.
func (s *Service) PerformOCR(ctx context.Context, path string) (Result, error) {
	start := time.Now()
	ctx, span := s.tracer.Start(ctx, "ocr.perform",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("ocr.provider", s.provider.Name()),
			attribute.String("ocr.path", path),
		))
	defer span.End()

	res, err := s.perform(ctx, path)
	res.Provider = s.provider.Name()
	res.Duration = time.Since(start)
	span.SetAttributes(attribute.Int("ocr.attempts", res.Attempts))

	if err != nil {
		code := CodeOf(err)
		span.RecordError(err)
		span.SetStatus(codes.Error, code)
		s.logger.Warn("ocr.perform.failed",
			"path", path,
			"provider", res.Provider,
			"code", code,
			"attempts", res.Attempts,
			"elapsed_ms", res.Duration.Milliseconds(),
			"error", err,
		)
		return res, err
	}
	span.SetAttributes(attribute.Float64("ocr.confidence", res.Confidence), attribute.Int("ocr.text_len", len(res.Text)))
	s.logger.Info("ocr.perform.ok",
		"path", path,
		"provider", res.Provider,
		"attempts", res.Attempts,
		"confidence", res.Confidence,
		"text_len", len(res.Text),
		"elapsed_ms", res.Duration.Milliseconds(),
	)
	return res, nil
}

func (s *Service) perform(ctx context.Context, path string) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, newError(constants.OCRAborted, "cancelled before start", err)
	}
	if s.provider.NeedsNetwork() && !s.connectivity.Online(ctx) {
		return Result{}, newError(constants.OCROffline, "no network connection", nil)
	}

	img, err := s.prep.prepare(ctx, path)
	if err != nil {
		return Result{Warnings: img.Warnings}, err
	}

	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = s.cfg.RetryBase
	eb.Multiplier = 2
	eb.MaxElapsedTime = 0
	policy := backoff.WithContext(backoff.WithMaxRetries(eb, uint64(s.cfg.MaxRetries)), ctx)

	var (
		res      Result
		attempts int
	)
	op := func() error {
		attempts++
		r, err := s.attempt(ctx, img)
		if err == nil {
			res = r
			return nil
		}
		var oe *Error
		if errors.As(err, &oe) && oe.Retryable() {
			return oe
		}
		return backoff.Permanent(err)
	}
	notify := func(err error, wait time.Duration) {
		s.logger.Warn("ocr.perform.retry",
			"path", path,
			"attempt", attempts,
			"code", CodeOf(err),
			"wait_ms", wait.Milliseconds(),
		)
	}

	err = backoff.RetryNotify(op, policy, notify)
	res.Attempts = attempts
	res.Warnings = append(img.Warnings, res.Warnings...)
	if err != nil {
		var oe *Error
		if !errors.As(err, &oe) {
			// the policy stopped on parent cancellation while waiting
			err = newError(constants.OCRAborted, "cancelled", err)
		}
		return res, err
	}

	res.Text = Normalize(res.Text)
	if strings.TrimSpace(res.Text) == "" {
		return res, newError(constants.OCRNoText, "no text detected", nil)
	}
	if res.Confidence <= 0 {
		res.Confidence = heuristicConfidence(res.Text)
	}
	return res, nil
}

// attempt runs one provider call bounded by the per-attempt timeout.
func (s *Service) attempt(parent context.Context, img preparedImage) (Result, error) {
	if err := s.limiter.Wait(parent); err != nil {
		return Result{}, newError(constants.OCRAborted, "cancelled while throttled", err)
	}
	ctx, cancel := context.WithTimeout(parent, s.cfg.Timeout)
	defer cancel()

	res, err := s.provider.Recognize(ctx, img)
	if err == nil {
		return res, nil
	}
	var oe *Error
	if errors.As(err, &oe) {
		return res, oe
	}
	switch {
	case parent.Err() != nil:
		return res, newError(constants.OCRAborted, "cancelled", err)
	case errors.Is(ctx.Err(), context.DeadlineExceeded), errors.Is(err, context.DeadlineExceeded):
		return res, newError(constants.OCRTimeout, fmt.Sprintf("no response within %s", s.cfg.Timeout), err)
	}
	return res, newError(constants.OCRServerError, "OCR request failed", err)
}

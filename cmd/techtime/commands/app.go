package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/joseph-ayodele/techtime/internal/backup"
	"github.com/joseph-ayodele/techtime/internal/common"
	"github.com/joseph-ayodele/techtime/internal/extract"
	"github.com/joseph-ayodele/techtime/internal/jobs"
	"github.com/joseph-ayodele/techtime/internal/ocr"
	processor "github.com/joseph-ayodele/techtime/internal/pipeline"
	"github.com/joseph-ayodele/techtime/internal/repository"
	"github.com/joseph-ayodele/techtime/internal/settings"
	"github.com/joseph-ayodele/techtime/internal/share"
	"github.com/joseph-ayodele/techtime/internal/telemetry"
)

// AppContext holds the wired services for one command run.
type AppContext struct {
	Config    *common.Config
	Logger    *slog.Logger
	Store     repository.Store
	Jobs      *jobs.Service
	Settings  *settings.Service
	Backup    *backup.Service
	OCR       *ocr.Service
	Processor *processor.Processor

	shutdown telemetry.ShutdownFunc
}

// NewAppContext loads configuration, opens the store and wires the services.
func NewAppContext(ctx context.Context, cmd *cli.Command) (*AppContext, error) {
	cfg, err := common.LoadConfig(cmd.String("env"))
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	logger := NewLogger(cfg.Log, errWriter(cmd))
	slog.SetDefault(logger)

	shutdown, err := telemetry.Setup(ctx, cfg.Telemetry, cfg.AppVersion, logger)
	if err != nil {
		logger.Warn("telemetry setup failed, continuing without tracing", "error", err)
		shutdown = func(context.Context) error { return nil }
	}

	store, err := repository.Open(ctx, repository.Config{DSN: cfg.Storage.DSN, DialTimeout: cfg.Storage.DialTimeout}, logger)
	if err != nil {
		_ = shutdown(ctx)
		return nil, err
	}

	jobRepo := repository.NewJobRepository(store, logger)
	settingsRepo := repository.NewSettingsRepository(store, logger)
	profileRepo := repository.NewProfileRepository(store, logger)
	folderRepo := repository.NewFolderRepository(store, logger)
	scanRepo := repository.NewScanRepository(store, logger)
	snapshotRepo := repository.NewSnapshotRepository(store, logger)

	jobsSvc := jobs.NewService(jobRepo, settingsRepo, logger)
	settingsSvc := settings.NewService(settingsRepo, profileRepo, logger)
	ocrSvc := ocr.NewService(cfg.OCR, logger)

	proc := processor.NewProcessor(logger,
		processor.NewOCRStage(extract.NewOCRAdapter(ocrSvc, logger), logger),
		processor.NewParseStage(extract.RuleExtractor{}, logger),
		scanRepo,
		jobsSvc,
	)

	backupOpts := []backup.Option{}
	if cfg.Backup.ShareURL != "" {
		sharer, err := share.New(ctx, cfg.Backup.ShareURL, logger)
		if err != nil {
			logger.Warn("share target unavailable", "url", cfg.Backup.ShareURL, "error", err)
		} else {
			backupOpts = append(backupOpts, backup.WithSharer(sharer))
		}
	}
	backupSvc := backup.NewService(backup.Repositories{
		Jobs:     jobRepo,
		Settings: settingsRepo,
		Profile:  profileRepo,
		Folders:  folderRepo,
		Snapshot: snapshotRepo,
	}, backup.Config{Directory: cfg.Backup.Directory, AppVersion: cfg.AppVersion}, logger, backupOpts...)

	return &AppContext{
		Config:    cfg,
		Logger:    logger,
		Store:     store,
		Jobs:      jobsSvc,
		Settings:  settingsSvc,
		Backup:    backupSvc,
		OCR:       ocrSvc,
		Processor: proc,
		shutdown:  shutdown,
	}, nil
}

// Close releases the store and flushes traces.
func (a *AppContext) Close() {
	repository.Close(a.Store, a.Logger)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = a.shutdown(ctx)
}

// withApp wraps an action so it receives a wired AppContext.
func withApp(fn func(ctx context.Context, cmd *cli.Command, app *AppContext) error) cli.ActionFunc {
	return func(ctx context.Context, cmd *cli.Command) error {
		app, err := NewAppContext(ctx, cmd)
		if err != nil {
			return err
		}
		defer app.Close()
		return fn(ctx, cmd, app)
	}
}

// NewLogger builds the process logger from LOG_LEVEL and LOG_FORMAT.
func NewLogger(cfg common.LogConfig, w io.Writer) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(cfg.Format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func outWriter(cmd *cli.Command) io.Writer {
	if w := cmd.Root().Writer; w != nil {
		return w
	}
	return os.Stdout
}

func errWriter(cmd *cli.Command) io.Writer {
	if w := cmd.Root().ErrWriter; w != nil {
		return w
	}
	return os.Stderr
}

func printf(cmd *cli.Command, format string, args ...any) {
	_, _ = fmt.Fprintf(outWriter(cmd), format, args...)
}

// resultError carries a failed backup.Result to the exit path.
type resultError struct{ msg string }

func (e resultError) Error() string       { return e.msg }
func (e resultError) UserMessage() string { return e.msg }

func report(cmd *cli.Command, res backup.Result) error {
	if !res.Success {
		return resultError{msg: res.Message}
	}
	printf(cmd, "%s\n", res.Message)
	for _, f := range res.Files {
		printf(cmd, "  %s\n", f)
	}
	for _, d := range res.Destinations {
		printf(cmd, "  -> %s\n", d)
	}
	return nil
}

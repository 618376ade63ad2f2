// Package backup exports jobs and settings to timestamped files, restores
// them, and hands exports to a share target.
package backup

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/joseph-ayodele/techtime/internal/common"
	"github.com/joseph-ayodele/techtime/internal/entity"
	"github.com/joseph-ayodele/techtime/internal/repository"
	"github.com/joseph-ayodele/techtime/internal/share"
	"github.com/joseph-ayodele/techtime/internal/worktime"
)

const tracerName = "github.com/joseph-ayodele/techtime/internal/backup"

// Result is what every backup operation reports. Failures never surface as
// errors; Success is false and Message explains what went wrong.
type Result struct {
	Success      bool     `json:"success"`
	Message      string   `json:"message"`
	Files        []string `json:"files,omitempty"`
	Destinations []string `json:"destinations,omitempty"`
	JobsImported int      `json:"jobsImported,omitempty"`
	Dropped      []string `json:"dropped,omitempty"`
}

func failure(prefix string, err error) Result {
	return Result{Success: false, Message: prefix + ": " + common.UserMessage(err)}
}

// Repositories groups the stores the backup service reads and writes.
type Repositories struct {
	Jobs     repository.JobRepository
	Settings repository.SettingsRepository
	Profile  repository.ProfileRepository
	Folders  repository.FolderRepository
	Snapshot repository.SnapshotRepository
}

// Config holds the default backup folder and the version stamped on exports.
type Config struct {
	Directory  string
	AppVersion string
}

type Option func(*Service)

// WithPicker replaces the newest-file picker used by ImportLocalBackup.
func WithPicker(p Picker) Option {
	return func(s *Service) { s.picker = p }
}

// WithSharer sets the share target used by ShareBackup.
func WithSharer(sh share.Sharer) Option {
	return func(s *Service) { s.sharer = sh }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

type Service struct {
	repos      Repositories
	defaultDir string
	appVersion string
	picker     Picker
	sharer     share.Sharer
	logger     *slog.Logger
	tracer     trace.Tracer
	now        func() time.Time
}

func NewService(repos Repositories, cfg Config, logger *slog.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Service{
		repos:      repos,
		defaultDir: cfg.Directory,
		appVersion: cfg.AppVersion,
		picker:     NewestPicker{},
		logger:     logger,
		tracer:     otel.Tracer(tracerName),
		now:        time.Now,
	}
	if s.appVersion == "" {
		s.appVersion = "1.0.0"
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// CreateLocalBackup writes JSON, PDF, HTML and XLSX files for the current
// jobs and settings into the backup folder.
func (s *Service) CreateLocalBackup(ctx context.Context) Result {
	ctx, span := s.tracer.Start(ctx, "backup.create")
	defer span.End()
	start := time.Now()

	files, data, err := s.createLocalBackup(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "create failed")
		s.logger.Error("backup.create.failed", "error", err, "elapsed_ms", time.Since(start).Milliseconds())
		return failure("Backup failed", err)
	}
	span.SetAttributes(attribute.Int("backup.jobs", len(data.Jobs)))
	s.logger.Info("backup.create.ok",
		"json", files[0],
		"jobs", len(data.Jobs),
		"total_aws", data.Metadata.TotalAWs,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return Result{
		Success: true,
		Message: fmt.Sprintf("Backup of %d jobs saved to %s", len(data.Jobs), filepath.Dir(files[0])),
		Files:   files,
	}
}

func (s *Service) createLocalBackup(ctx context.Context) ([]string, entity.BackupData, error) {
	var (
		jobs     []entity.Job
		settings entity.AppSettings
		name     string
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		jobs, err = s.repos.Jobs.List(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		settings, err = s.repos.Settings.Load(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		name, err = s.repos.Profile.TechnicianName(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, entity.BackupData{}, err
	}

	dir, err := s.resolveFolder(ctx)
	if err != nil {
		return nil, entity.BackupData{}, err
	}
	now := s.now()
	data, err := s.buildBackup(jobs, settings, name, now)
	if err != nil {
		return nil, entity.BackupData{}, err
	}

	raw, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return nil, data, fmt.Errorf("encode backup: %w", err)
	}
	raw = append(raw, '\n')

	rep := newReport(data)
	pdfBytes, err := renderPDF(rep)
	if err != nil {
		return nil, data, err
	}
	htmlBytes, err := renderHTML(rep)
	if err != nil {
		return nil, data, err
	}
	xlsxBytes, err := renderXLSX(rep)
	if err != nil {
		return nil, data, err
	}

	base := filepath.Join(dir, backupBaseName(now))
	outputs := []struct {
		ext  string
		data []byte
	}{
		{".json", raw},
		{".pdf", pdfBytes},
		{".html", htmlBytes},
		{".xlsx", xlsxBytes},
	}
	files := make([]string, 0, len(outputs))
	for _, o := range outputs {
		if err := ctx.Err(); err != nil {
			return files, data, err
		}
		p := base + o.ext
		if err := writeFileAtomic(p, o.data); err != nil {
			return files, data, fmt.Errorf("write %s: %w", filepath.Base(p), err)
		}
		files = append(files, p)
	}
	return files, data, nil
}

// buildBackup assembles the export document. Credentials are stripped and
// totals derived from the jobs themselves.
func (s *Service) buildBackup(jobs []entity.Job, settings entity.AppSettings, name string, now time.Time) (entity.BackupData, error) {
	if jobs == nil {
		jobs = []entity.Job{}
	}
	out := make([]entity.Job, len(jobs))
	for i, j := range jobs {
		j.TimeInMinutes = worktime.TimeInMinutes(j.AWValue)
		out[i] = j
	}
	sum, err := Checksum(out)
	if err != nil {
		return entity.BackupData{}, err
	}
	return entity.BackupData{
		Version:   entity.BackupVersion,
		Timestamp: now.UTC(),
		Jobs:      out,
		Settings:  settings.ForExport(),
		Metadata: entity.BackupMetadata{
			TotalJobs:      len(out),
			TotalAWs:       totalAWs(out),
			ExportDate:     now.Local().Format(time.RFC3339),
			AppVersion:     s.appVersion,
			TechnicianName: name,
			Checksum:       sum,
		},
	}, nil
}

func totalAWs(jobs []entity.Job) float64 {
	var t float64
	for _, j := range jobs {
		t += j.AWValue
	}
	return t
}

// ImportLocalBackup restores the file chosen by the picker from the backup folder.
func (s *Service) ImportLocalBackup(ctx context.Context) Result {
	dir, err := s.resolveFolder(ctx)
	if err != nil {
		s.logger.Error("backup.import.failed", "error", err)
		return failure("Import failed", err)
	}
	path, err := s.picker.Pick(ctx, dir)
	if err != nil {
		s.logger.Warn("backup.import.no_file", "dir", dir, "error", err)
		return failure("Import failed", err)
	}
	return s.ImportFromFile(ctx, path)
}

// ImportFromFile validates the backup at path and replaces the stored jobs
// and settings with its contents. The local PIN is kept and the session is
// logged out.
func (s *Service) ImportFromFile(ctx context.Context, path string) Result {
	ctx, span := s.tracer.Start(ctx, "backup.import", trace.WithAttributes(attribute.String("backup.file", filepath.Base(path))))
	defer span.End()
	start := time.Now()

	res, err := s.importFromFile(ctx, path)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "import failed")
		s.logger.Error("backup.import.failed", "path", path, "error", err, "elapsed_ms", time.Since(start).Milliseconds())
		return failure("Import failed", err)
	}
	span.SetAttributes(attribute.Int("backup.jobs", res.JobsImported))
	s.logger.Info("backup.import.ok",
		"path", path,
		"jobs", res.JobsImported,
		"dropped", len(res.Dropped),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return res
}

func (s *Service) importFromFile(ctx context.Context, path string) (Result, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Result{}, err
	}
	data, dropped, err := s.ParseBackup(raw)
	if err != nil {
		return Result{}, err
	}

	local, err := s.repos.Settings.Load(ctx)
	if err != nil {
		return Result{}, err
	}
	restored := data.Settings
	restored.PINHash = local.PINHash
	restored.IsAuthenticated = false
	switch restored.Theme {
	case entity.ThemeLight, entity.ThemeDark, entity.ThemeSystem:
	default:
		restored.Theme = entity.ThemeSystem
	}

	if err := s.repos.Snapshot.Restore(ctx, repository.Snapshot{
		Jobs:           data.Jobs,
		Settings:       restored,
		TechnicianName: data.Metadata.TechnicianName,
	}); err != nil {
		return Result{}, err
	}
	return Result{
		Success:      true,
		Message:      fmt.Sprintf("Imported %d jobs from %s", len(data.Jobs), filepath.Base(path)),
		Files:        []string{path},
		JobsImported: len(data.Jobs),
		Dropped:      dropped,
	}, nil
}

// ParseBackup normalizes, validates and decodes a backup document. Jobs come
// back with time re-derived, ids filled in and duplicates removed; metadata
// totals are recomputed.
func (s *Service) ParseBackup(raw []byte) (entity.BackupData, []string, error) {
	normalized, dropped, err := NormalizeDocument(raw, s.logger)
	if err != nil {
		return entity.BackupData{}, nil, invalid("backup file is not valid JSON", err)
	}
	if err := ValidateDocument(normalized); err != nil {
		return entity.BackupData{}, dropped, invalid("backup file is missing required data", err)
	}
	var data entity.BackupData
	if err := json.Unmarshal(normalized, &data); err != nil {
		return entity.BackupData{}, dropped, invalid("backup file has malformed fields", err)
	}
	if err := CheckVersion(data.Version); err != nil {
		return entity.BackupData{}, dropped, err
	}
	if err := VerifyChecksum(data.Jobs, data.Metadata.Checksum); err != nil {
		return entity.BackupData{}, dropped, err
	}

	seen := make(map[string]struct{}, len(data.Jobs))
	jobs := make([]entity.Job, 0, len(data.Jobs))
	for _, j := range data.Jobs {
		if strings.TrimSpace(j.ID) == "" {
			j.ID = uuid.NewString()
		}
		if _, dup := seen[j.ID]; dup {
			dropped = append(dropped, "jobs."+j.ID+"(duplicate)")
			continue
		}
		seen[j.ID] = struct{}{}
		j.WIPNumber = strings.TrimSpace(j.WIPNumber)
		j.VehicleRegistration = strings.ToUpper(strings.TrimSpace(j.VehicleRegistration))
		j.TimeInMinutes = worktime.TimeInMinutes(j.AWValue)
		jobs = append(jobs, j)
	}
	data.Jobs = jobs

	total := totalAWs(jobs)
	if data.Metadata.TotalJobs != len(jobs) || data.Metadata.TotalAWs != total {
		s.logger.Warn("backup.import.totals_mismatch",
			"file_jobs", data.Metadata.TotalJobs, "jobs", len(jobs),
			"file_aws", data.Metadata.TotalAWs, "aws", total)
	}
	data.Metadata.TotalJobs = len(jobs)
	data.Metadata.TotalAWs = total
	return data, dropped, nil
}

func invalid(msg string, cause error) error {
	return common.NewAppError("VALIDATION_ERROR", msg, errors.Join(common.ErrValidation, cause))
}

// ShareBackup sends the newest JSON backup, and its PDF when present, to the
// configured share target.
func (s *Service) ShareBackup(ctx context.Context) Result {
	ctx, span := s.tracer.Start(ctx, "backup.share")
	defer span.End()

	if s.sharer == nil {
		return Result{Success: false, Message: "Share failed: no share target configured"}
	}
	dir, err := s.resolveFolder(ctx)
	if err != nil {
		return failure("Share failed", err)
	}
	jsons, err := listBackups(dir, ".json")
	if err != nil {
		return failure("Share failed", err)
	}
	if len(jsons) == 0 {
		return Result{Success: false, Message: "Share failed: no backup found, create one first"}
	}
	files := []string{jsons[0]}
	if pdf := strings.TrimSuffix(jsons[0], filepath.Ext(jsons[0])) + ".pdf"; fileExists(pdf) {
		files = append(files, pdf)
	}

	dests, err := s.sharer.Share(ctx, files...)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "share failed")
		s.logger.Error("backup.share.failed", "files", files, "error", err)
		return failure("Share failed", err)
	}
	s.logger.Info("backup.share.ok", "files", len(files), "destinations", dests)
	return Result{
		Success:      true,
		Message:      fmt.Sprintf("Shared %s", filepath.Base(jsons[0])),
		Files:        files,
		Destinations: dests,
	}
}

// SetBackupFolder checks that path is a writable directory and caches it as
// the backup folder.
func (s *Service) SetBackupFolder(ctx context.Context, path string) Result {
	abs, err := validateFolder(path)
	if err != nil {
		s.logger.Warn("backup.folder.invalid", "path", path, "error", err)
		return failure("Could not use folder", err)
	}
	if err := s.repos.Folders.SetBackupFolder(ctx, abs); err != nil {
		return failure("Could not use folder", err)
	}
	s.logger.Info("backup.folder.set", "path", abs)
	return Result{Success: true, Message: "Backups will be saved to " + abs, Files: []string{abs}}
}

// BackupFolder reports the folder backups are written to and whether it
// came from a cached grant.
func (s *Service) BackupFolder(ctx context.Context) (string, bool, error) {
	dir, ok, err := s.repos.Folders.BackupFolder(ctx)
	if err != nil {
		return "", false, err
	}
	if ok {
		return dir, true, nil
	}
	return s.defaultDir, false, nil
}

// resolveFolder returns the cached folder when it still exists, otherwise
// the default folder, creating it if needed.
func (s *Service) resolveFolder(ctx context.Context) (string, error) {
	dir, ok, err := s.repos.Folders.BackupFolder(ctx)
	if err != nil {
		return "", err
	}
	if ok {
		if info, statErr := os.Stat(dir); statErr == nil && info.IsDir() {
			return dir, nil
		}
		s.logger.Warn("backup.folder.stale", "path", dir)
		if err := s.repos.Folders.ClearBackupFolder(ctx); err != nil {
			s.logger.Warn("failed to clear stale backup folder", "error", err)
		}
	}
	if s.defaultDir == "" {
		return "", common.InvalidArgumentErrorf("no backup folder configured")
	}
	if err := os.MkdirAll(s.defaultDir, 0o755); err != nil {
		return "", err
	}
	return s.defaultDir, nil
}

func validateFolder(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return "", common.InvalidArgumentErrorf("folder path is required")
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	info, err := os.Stat(abs)
	if err != nil {
		return "", err
	}
	if !info.IsDir() {
		return "", common.InvalidArgumentErrorf("%s is not a folder", abs)
	}
	probe, err := os.CreateTemp(abs, ".techtime-probe-*")
	if err != nil {
		return "", err
	}
	name := probe.Name()
	_ = probe.Close()
	_ = os.Remove(name)
	return abs, nil
}

func fileExists(p string) bool {
	info, err := os.Stat(p)
	return err == nil && !info.IsDir()
}

func writeFileAtomic(path string, data []byte) error {
	tmp := path + ".part"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return nil
}

package repository

import (
	"context"
	"log/slog"
	"strings"

	"github.com/joseph-ayodele/techtime/constants"
	"github.com/joseph-ayodele/techtime/internal/entity"
)

// SettingsRepository loads and saves the settings document. A missing
// document yields entity.DefaultSettings.
type SettingsRepository interface {
	Load(ctx context.Context) (entity.AppSettings, error)
	Save(ctx context.Context, s entity.AppSettings) error
}

type settingsRepository struct {
	store  Store
	logger *slog.Logger
}

func NewSettingsRepository(store Store, logger *slog.Logger) SettingsRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &settingsRepository{store: store, logger: logger}
}

func (r *settingsRepository) Load(ctx context.Context) (entity.AppSettings, error) {
	s := entity.DefaultSettings()
	if _, err := getJSON(ctx, r.store, constants.KeySettings, &s); err != nil {
		r.logger.Error("failed to load settings", "error", err)
		return entity.AppSettings{}, err
	}
	if s.Theme == "" {
		s.Theme = entity.ThemeSystem
	}
	return s, nil
}

func (r *settingsRepository) Save(ctx context.Context, s entity.AppSettings) error {
	if err := setJSON(ctx, r.store, constants.KeySettings, s); err != nil {
		r.logger.Error("failed to save settings", "error", err)
		return err
	}
	return nil
}

// ProfileRepository stores the technician name printed on exports.
type ProfileRepository interface {
	TechnicianName(ctx context.Context) (string, error)
	SetTechnicianName(ctx context.Context, name string) error
}

type profileRepository struct {
	store  Store
	logger *slog.Logger
}

func NewProfileRepository(store Store, logger *slog.Logger) ProfileRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &profileRepository{store: store, logger: logger}
}

func (r *profileRepository) TechnicianName(ctx context.Context) (string, error) {
	var name string
	if _, err := getJSON(ctx, r.store, constants.KeyTechnicianName, &name); err != nil {
		return "", err
	}
	return name, nil
}

func (r *profileRepository) SetTechnicianName(ctx context.Context, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return r.store.Delete(ctx, constants.KeyTechnicianName)
	}
	if err := setJSON(ctx, r.store, constants.KeyTechnicianName, name); err != nil {
		r.logger.Error("failed to save technician name", "error", err)
		return err
	}
	return nil
}

// FolderRepository caches the granted backup folder.
type FolderRepository interface {
	BackupFolder(ctx context.Context) (string, bool, error)
	SetBackupFolder(ctx context.Context, uri string) error
	ClearBackupFolder(ctx context.Context) error
}

type folderRepository struct {
	store  Store
	logger *slog.Logger
}

func NewFolderRepository(store Store, logger *slog.Logger) FolderRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &folderRepository{store: store, logger: logger}
}

func (r *folderRepository) BackupFolder(ctx context.Context) (string, bool, error) {
	var uri string
	found, err := getJSON(ctx, r.store, constants.KeyBackupDirectory, &uri)
	if err != nil {
		return "", false, err
	}
	return uri, found && uri != "", nil
}

func (r *folderRepository) SetBackupFolder(ctx context.Context, uri string) error {
	if err := setJSON(ctx, r.store, constants.KeyBackupDirectory, uri); err != nil {
		r.logger.Error("failed to cache backup folder", "uri", uri, "error", err)
		return err
	}
	return nil
}

func (r *folderRepository) ClearBackupFolder(ctx context.Context) error {
	return r.store.Delete(ctx, constants.KeyBackupDirectory)
}

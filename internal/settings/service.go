package settings

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/joseph-ayodele/techtime/internal/common"
	"github.com/joseph-ayodele/techtime/internal/entity"
	"github.com/joseph-ayodele/techtime/internal/repository"
)

const maxTargetHours = 744 // hours in a 31-day month

var rePIN = regexp.MustCompile(`^\d{4,6}$`)

// Service handles settings, PIN and technician profile logic.
type Service struct {
	settingsRepo repository.SettingsRepository
	profileRepo  repository.ProfileRepository
	logger       *slog.Logger
	cost         int
}

// NewService creates a new settings service.
func NewService(settingsRepo repository.SettingsRepository, profileRepo repository.ProfileRepository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		settingsRepo: settingsRepo,
		profileRepo:  profileRepo,
		logger:       logger,
		cost:         bcrypt.DefaultCost,
	}
}

func (s *Service) Load(ctx context.Context) (entity.AppSettings, error) {
	return s.settingsRepo.Load(ctx)
}

// UpdateSettingsRequest carries the fields to change; nil leaves a field as is.
type UpdateSettingsRequest struct {
	TargetHours  *float64
	AbsenceHours *float64
	Theme        *string
}

func (s *Service) Update(ctx context.Context, req UpdateSettingsRequest) (entity.AppSettings, error) {
	cur, err := s.settingsRepo.Load(ctx)
	if err != nil {
		return entity.AppSettings{}, err
	}
	if req.TargetHours != nil {
		cur.TargetHours = *req.TargetHours
	}
	if req.AbsenceHours != nil {
		cur.AbsenceHours = *req.AbsenceHours
	}
	if req.Theme != nil {
		cur.Theme = strings.ToLower(strings.TrimSpace(*req.Theme))
	}

	v := common.NewValidator()
	v.Field("targetHours", cur.TargetHours, common.AtLeast(0), common.AtMost(maxTargetHours))
	v.Field("absenceHours", cur.AbsenceHours, common.AtLeast(0), common.AtMost(maxTargetHours))
	v.Field("theme", cur.Theme, common.Required, common.OneOf(entity.ThemeLight, entity.ThemeDark, entity.ThemeSystem))
	if err := v.Error(); err != nil {
		s.logger.Warn("settings.update.invalid", "error", err)
		return entity.AppSettings{}, err
	}

	if err := s.settingsRepo.Save(ctx, cur); err != nil {
		return entity.AppSettings{}, err
	}
	s.logger.Info("settings.update.ok", "target_hours", cur.TargetHours, "absence_hours", cur.AbsenceHours, "theme", cur.Theme)
	return cur, nil
}

// SetPIN stores a bcrypt hash of pin. An empty pin removes PIN protection.
func (s *Service) SetPIN(ctx context.Context, pin string) error {
	cur, err := s.settingsRepo.Load(ctx)
	if err != nil {
		return err
	}
	pin = strings.TrimSpace(pin)
	if pin == "" {
		cur.PINHash = ""
		cur.IsAuthenticated = false
		s.logger.Info("settings.pin.cleared")
		return s.settingsRepo.Save(ctx, cur)
	}
	if !rePIN.MatchString(pin) {
		return common.NewAppError("VALIDATION_ERROR", "PIN must be 4 to 6 digits", common.ErrValidation)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(pin), s.cost)
	if err != nil {
		return fmt.Errorf("hash pin: %w", err)
	}
	cur.PINHash = string(hash)
	cur.IsAuthenticated = true
	if err := s.settingsRepo.Save(ctx, cur); err != nil {
		return err
	}
	s.logger.Info("settings.pin.set")
	return nil
}

// VerifyPIN logs the technician in when pin matches. Without a PIN every
// attempt succeeds.
func (s *Service) VerifyPIN(ctx context.Context, pin string) error {
	cur, err := s.settingsRepo.Load(ctx)
	if err != nil {
		return err
	}
	if cur.HasPIN() {
		err := bcrypt.CompareHashAndPassword([]byte(cur.PINHash), []byte(strings.TrimSpace(pin)))
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			s.logger.Warn("settings.pin.mismatch")
			return common.NewAppError("UNAUTHORIZED", "incorrect PIN", common.ErrUnauthorized)
		}
		if err != nil {
			return fmt.Errorf("compare pin: %w", err)
		}
	}
	cur.IsAuthenticated = true
	return s.settingsRepo.Save(ctx, cur)
}

func (s *Service) Logout(ctx context.Context) error {
	cur, err := s.settingsRepo.Load(ctx)
	if err != nil {
		return err
	}
	cur.IsAuthenticated = false
	return s.settingsRepo.Save(ctx, cur)
}

func (s *Service) TechnicianName(ctx context.Context) (string, error) {
	return s.profileRepo.TechnicianName(ctx)
}

func (s *Service) SetTechnicianName(ctx context.Context, name string) error {
	v := common.NewValidator()
	v.Field("technicianName", name, common.MaxLength(80))
	if err := v.Error(); err != nil {
		return err
	}
	return s.profileRepo.SetTechnicianName(ctx, name)
}

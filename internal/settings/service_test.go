package settings

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/joseph-ayodele/techtime/internal/common"
	"github.com/joseph-ayodele/techtime/internal/entity"
	"github.com/joseph-ayodele/techtime/internal/repository"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	store, err := repository.Open(context.Background(), repository.Config{DSN: filepath.Join(t.TempDir(), "settings.db")}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	svc := NewService(repository.NewSettingsRepository(store, nil), repository.NewProfileRepository(store, nil), nil)
	svc.cost = bcrypt.MinCost
	return svc
}

func ptr[T any](v T) *T { return &v }

func TestUpdate(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	s, err := svc.Update(ctx, UpdateSettingsRequest{TargetHours: ptr(160.0), Theme: ptr("Dark")})
	require.NoError(t, err)
	assert.Equal(t, 160.0, s.TargetHours)
	assert.Equal(t, entity.ThemeDark, s.Theme)

	_, err = svc.Update(ctx, UpdateSettingsRequest{AbsenceHours: ptr(-1.0)})
	assert.ErrorIs(t, err, common.ErrValidation)
	_, err = svc.Update(ctx, UpdateSettingsRequest{Theme: ptr("neon")})
	assert.ErrorIs(t, err, common.ErrValidation)

	loaded, err := svc.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0.0, loaded.AbsenceHours)
	assert.Equal(t, entity.ThemeDark, loaded.Theme)
}

func TestPINLifecycle(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	require.NoError(t, svc.VerifyPIN(ctx, "anything"), "no PIN set")

	assert.ErrorIs(t, svc.SetPIN(ctx, "12ab"), common.ErrValidation)
	require.NoError(t, svc.SetPIN(ctx, "4321"))

	s, err := svc.Load(ctx)
	require.NoError(t, err)
	assert.True(t, s.HasPIN())
	assert.NotContains(t, s.PINHash, "4321")

	require.NoError(t, svc.Logout(ctx))
	err = svc.VerifyPIN(ctx, "0000")
	assert.ErrorIs(t, err, common.ErrUnauthorized)
	assert.Equal(t, "Incorrect PIN.", common.UserMessage(err))
	s, _ = svc.Load(ctx)
	assert.False(t, s.IsAuthenticated)

	require.NoError(t, svc.VerifyPIN(ctx, "4321"))
	s, _ = svc.Load(ctx)
	assert.True(t, s.IsAuthenticated)

	require.NoError(t, svc.SetPIN(ctx, ""))
	s, _ = svc.Load(ctx)
	assert.False(t, s.HasPIN())
}

func TestTechnicianName(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	require.NoError(t, svc.SetTechnicianName(ctx, "Alex Morgan"))
	name, err := svc.TechnicianName(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Alex Morgan", name)
}

package services

import (
	"testing"

	"guardialog/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuthenticate(t *testing.T) {
	cfg, db := setupTestDB(t)
	auth := NewAuthService(cfg, db)

	user, err := auth.CreateUser("ana", "secreto1", false)
	require.NoError(t, err)
	assert.True(t, user.DebeCambiarPassword)

	got, err := auth.Authenticate("ana", "secreto1")
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)

	_, err = auth.Authenticate("ana", "equivocada")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = auth.Authenticate("nadie", "secreto1")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	// an inactive account cannot log in even with the right password
	require.NoError(t, db.Model(&models.User{}).Where("id = ?", user.ID).Update("activo", false).Error)
	_, err = auth.Authenticate("ana", "secreto1")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestChangePasswordClearsForcedFlag(t *testing.T) {
	cfg, db := setupTestDB(t)
	auth := NewAuthService(cfg, db)

	user, err := auth.CreateUser("ana", "temporal", false)
	require.NoError(t, err)
	require.True(t, user.DebeCambiarPassword)

	require.NoError(t, auth.ChangePassword(user.ID, "definitiva1"))

	got, err := auth.Authenticate("ana", "definitiva1")
	require.NoError(t, err)
	assert.False(t, got.DebeCambiarPassword)

	_, err = auth.Authenticate("ana", "temporal")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestEnsureBootstrapAdminIsIdempotent(t *testing.T) {
	cfg, db := setupTestDB(t)
	auth := NewAuthService(cfg, db)

	require.NoError(t, auth.EnsureBootstrapAdmin())
	require.NoError(t, auth.EnsureBootstrapAdmin())

	var count int64
	require.NoError(t, db.Model(&models.User{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)

	admin, err := auth.Authenticate("admin", "admin123")
	require.NoError(t, err)
	assert.True(t, admin.EsAdmin)
	assert.True(t, admin.DebeCambiarPassword)
}

func TestCreateUserDuplicate(t *testing.T) {
	cfg, db := setupTestDB(t)
	users := NewUserService(cfg, db)

	_, err := users.CreateUser("ana", "secreto1", false)
	require.NoError(t, err)

	_, err = users.CreateUser("ana", "otra", false)
	assert.ErrorIs(t, err, ErrUserExists)
}

func TestLastAdminProtection(t *testing.T) {
	cfg, db := setupTestDB(t)
	users := NewUserService(cfg, db)

	admin, err := users.CreateUser("root", "secreto1", true)
	require.NoError(t, err)
	other, err := users.CreateUser("segundo", "secreto1", true)
	require.NoError(t, err)
	regular, err := users.CreateUser("ana", "secreto1", false)
	require.NoError(t, err)

	// with two active admins everything is allowed
	demoted, err := users.ToggleAdmin(other.ID, admin)
	require.NoError(t, err)
	assert.False(t, demoted.EsAdmin)

	// root is now the last active admin
	_, err = users.ToggleAdmin(admin.ID, regular)
	assert.ErrorIs(t, err, ErrLastAdmin)

	_, err = users.ToggleActivo(admin.ID)
	assert.ErrorIs(t, err, ErrLastAdmin)

	err = users.DeleteUser(admin.ID, actor(other.ID, other.Username, false))
	assert.ErrorIs(t, err, ErrLastAdmin)

	_, err = users.UpdateUser(admin.ID, false, true, actor(other.ID, other.Username, false))
	assert.ErrorIs(t, err, ErrLastAdmin)

	_, err = users.UpdateUser(admin.ID, true, false, actor(other.ID, other.Username, false))
	assert.ErrorIs(t, err, ErrLastAdmin)

	// deactivating or deleting a non-admin is fine
	_, err = users.ToggleActivo(regular.ID)
	require.NoError(t, err)
	require.NoError(t, users.DeleteUser(regular.ID, admin))

	// the user list is intact after the refused operations
	all, err := users.GetUsers()
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestSelfChangeBlocked(t *testing.T) {
	cfg, db := setupTestDB(t)
	users := NewUserService(cfg, db)

	admin, err := users.CreateUser("root", "secreto1", true)
	require.NoError(t, err)
	_, err = users.CreateUser("segundo", "secreto1", true)
	require.NoError(t, err)

	// even with another admin around, changing your own role is refused
	_, err = users.ToggleAdmin(admin.ID, admin)
	assert.ErrorIs(t, err, ErrSelfChange)

	_, err = users.UpdateUser(admin.ID, false, true, admin)
	assert.ErrorIs(t, err, ErrSelfChange)

	err = users.DeleteUser(admin.ID, admin)
	assert.ErrorIs(t, err, ErrSelfChange)
}

func TestDeleteUserRemovesSessions(t *testing.T) {
	cfg, db := setupTestDB(t)
	users := NewUserService(cfg, db)
	auth := NewAuthService(cfg, db)

	admin, err := users.CreateUser("root", "secreto1", true)
	require.NoError(t, err)
	ana, err := users.CreateUser("ana", "secreto1", false)
	require.NoError(t, err)

	require.NoError(t, auth.CreateSession(ana.ID, "token-ana", timeIn24h()))
	require.NoError(t, users.DeleteUser(ana.ID, admin))

	var sessions int64
	require.NoError(t, db.Model(&models.Session{}).Where("user_id = ?", ana.ID).Count(&sessions).Error)
	assert.Equal(t, int64(0), sessions)
}

func TestResetPassword(t *testing.T) {
	cfg, db := setupTestDB(t)
	users := NewUserService(cfg, db)
	auth := NewAuthService(cfg, db)

	ana, err := users.CreateUser("ana", "secreto1", false)
	require.NoError(t, err)
	require.NoError(t, auth.ChangePassword(ana.ID, "propia1"))

	require.NoError(t, users.ResetPassword(ana.ID))

	got, err := auth.Authenticate("ana", cfg.Security.ResetPassword)
	require.NoError(t, err)
	assert.True(t, got.DebeCambiarPassword)

	err = users.ResetPassword(9999)
	assert.ErrorIs(t, err, ErrUserNotFound)
}

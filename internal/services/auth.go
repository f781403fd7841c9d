package services

import (
	"errors"
	"time"

	"guardialog/internal/config"
	"guardialog/internal/models"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserNotFound       = errors.New("user not found")
	ErrUserExists         = errors.New("user already exists")
	ErrGuardiaNotFound    = errors.New("guardia not found")
	ErrForbidden          = errors.New("forbidden")
	ErrLastAdmin          = errors.New("cannot remove the last active admin")
	ErrSelfChange         = errors.New("cannot change your own account here")
	ErrValidation         = errors.New("invalid field value")
)

type AuthService struct {
	cfg *config.Config
	db  *gorm.DB
}

func NewAuthService(cfg *config.Config, db *gorm.DB) *AuthService {
	return &AuthService{cfg: cfg, db: db}
}

// HashPassword hashes a password using bcrypt
func (s *AuthService) HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), s.cfg.Security.BcryptCost)
	return string(bytes), err
}

// VerifyPassword verifies a password against a hash
func (s *AuthService) VerifyPassword(hashedPassword, password string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(password))
	return err == nil
}

// Authenticate verifies credentials against active accounts. Missing,
// inactive and wrong-password cases all collapse into ErrInvalidCredentials.
func (s *AuthService) Authenticate(username, password string) (*models.User, error) {
	var user models.User
	if err := s.db.Where("username = ? AND activo = ?", username, true).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if !s.VerifyPassword(user.PasswordHash, password) {
		return nil, ErrInvalidCredentials
	}

	return &user, nil
}

// CreateUser creates a new account with an initial password. The account
// must change it on first login.
func (s *AuthService) CreateUser(username, password string, esAdmin bool) (*models.User, error) {
	var existingUser models.User
	if err := s.db.Where("username = ?", username).First(&existingUser).Error; err == nil {
		return nil, ErrUserExists
	}

	hashedPassword, err := s.HashPassword(password)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		Username:            username,
		PasswordHash:        hashedPassword,
		EsAdmin:             esAdmin,
		Activo:              true,
		DebeCambiarPassword: true,
	}

	if err := s.db.Create(user).Error; err != nil {
		return nil, err
	}

	return user, nil
}

// ChangePassword rehashes and stores the user's own password and clears the
// forced-change flag.
func (s *AuthService) ChangePassword(userID uint, newPassword string) error {
	var user models.User
	if err := s.db.First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrUserNotFound
		}
		return err
	}

	hashedPassword, err := s.HashPassword(newPassword)
	if err != nil {
		return err
	}

	user.PasswordHash = hashedPassword
	user.DebeCambiarPassword = false
	return s.db.Save(&user).Error
}

// EnsureBootstrapAdmin seeds the configured admin account when the user
// table is empty. Runs once at startup, outside the request path. The
// seeded account is forced to rotate its password on first login.
func (s *AuthService) EnsureBootstrapAdmin() error {
	var count int64
	if err := s.db.Model(&models.User{}).Count(&count).Error; err != nil {
		return err
	}

	if count == 0 {
		_, err := s.CreateUser(s.cfg.Bootstrap.Username, s.cfg.Bootstrap.Password, true)
		return err
	}

	return nil
}

// CreateSession creates a new session record
func (s *AuthService) CreateSession(userID uint, token string, expiresAt time.Time) error {
	session := &models.Session{
		UserID:    userID,
		Token:     token,
		ExpiresAt: expiresAt,
	}
	return s.db.Create(session).Error
}

// GetSession retrieves a non-expired session by token
func (s *AuthService) GetSession(token string) (*models.Session, error) {
	var session models.Session
	if err := s.db.Where("token = ? AND expires_at > ?", token, time.Now()).Preload("User").First(&session).Error; err != nil {
		return nil, err
	}
	return &session, nil
}

// DeleteSession deletes a session
func (s *AuthService) DeleteSession(token string) error {
	return s.db.Where("token = ?", token).Delete(&models.Session{}).Error
}

// DeleteExpiredSessions removes expired sessions
func (s *AuthService) DeleteExpiredSessions() error {
	return s.db.Where("expires_at < ?", time.Now()).Delete(&models.Session{}).Error
}

// LogAudit records who did what. Failures are deliberately not surfaced to
// the caller; the audit trail never blocks the operation itself.
func (s *AuthService) LogAudit(userID uint, action, resource, resourceID, ipAddress, userAgent string) {
	auditLog := &models.AuditLog{
		UserID:     userID,
		Action:     action,
		Resource:   resource,
		ResourceID: resourceID,
		IPAddress:  ipAddress,
		UserAgent:  userAgent,
	}
	s.db.Create(auditLog)
}

package services

import (
	"errors"
	"strings"

	"guardialog/internal/config"
	"guardialog/internal/models"

	"gorm.io/gorm"
)

type UserService struct {
	cfg         *config.Config
	db          *gorm.DB
	authService *AuthService
}

func NewUserService(cfg *config.Config, db *gorm.DB) *UserService {
	return &UserService{
		cfg:         cfg,
		db:          db,
		authService: NewAuthService(cfg, db),
	}
}

// GetUsers returns all users ordered by username
func (s *UserService) GetUsers() ([]models.User, error) {
	var users []models.User
	if err := s.db.Order("username").Find(&users).Error; err != nil {
		return nil, err
	}

	for i := range users {
		users[i].PasswordHash = ""
	}

	return users, nil
}

// GetUser returns a specific user by ID
func (s *UserService) GetUser(id uint) (*models.User, error) {
	var user models.User
	if err := s.db.First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	user.PasswordHash = ""
	return &user, nil
}

// CreateUser creates a new account with a temporary password
func (s *UserService) CreateUser(username, password string, esAdmin bool) (*models.User, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, ErrValidation
	}

	user, err := s.authService.CreateUser(username, password, esAdmin)
	if err != nil {
		return nil, err
	}

	user.PasswordHash = ""
	return user, nil
}

// UpdateUser sets the admin and active flags. Stripping the last active
// admin of either flag is refused, as is demoting yourself.
func (s *UserService) UpdateUser(id uint, esAdmin, activo bool, actor *models.User) (*models.User, error) {
	var user models.User

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&user, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrUserNotFound
			}
			return err
		}

		if actor.ID == user.ID && user.EsAdmin && !esAdmin {
			return ErrSelfChange
		}

		losesAdminStanding := user.EsAdmin && user.Activo && !(esAdmin && activo)
		if losesAdminStanding {
			if err := requireOtherActiveAdmin(tx, user.ID); err != nil {
				return err
			}
		}

		user.EsAdmin = esAdmin
		user.Activo = activo
		return tx.Save(&user).Error
	})
	if err != nil {
		return nil, err
	}

	user.PasswordHash = ""
	return &user, nil
}

// ToggleActivo flips the active flag. Deactivating the last active admin is
// refused.
func (s *UserService) ToggleActivo(id uint) (*models.User, error) {
	var user models.User

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&user, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrUserNotFound
			}
			return err
		}

		if user.Activo && user.EsAdmin {
			if err := requireOtherActiveAdmin(tx, user.ID); err != nil {
				return err
			}
		}

		user.Activo = !user.Activo
		return tx.Save(&user).Error
	})
	if err != nil {
		return nil, err
	}

	user.PasswordHash = ""
	return &user, nil
}

// ToggleAdmin flips the admin flag. Changing your own role is refused, and
// so is demoting the last active admin.
func (s *UserService) ToggleAdmin(id uint, actor *models.User) (*models.User, error) {
	if actor.ID == id {
		return nil, ErrSelfChange
	}

	var user models.User

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&user, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrUserNotFound
			}
			return err
		}

		if user.EsAdmin && user.Activo {
			if err := requireOtherActiveAdmin(tx, user.ID); err != nil {
				return err
			}
		}

		user.EsAdmin = !user.EsAdmin
		return tx.Save(&user).Error
	})
	if err != nil {
		return nil, err
	}

	user.PasswordHash = ""
	return &user, nil
}

// DeleteUser removes an account. Self-deletion and deleting the last active
// admin are refused. The user's sessions go with the account; their logged
// guardias stay.
func (s *UserService) DeleteUser(id uint, actor *models.User) error {
	if actor.ID == id {
		return ErrSelfChange
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		var user models.User
		if err := tx.First(&user, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrUserNotFound
			}
			return err
		}

		if user.EsAdmin && user.Activo {
			if err := requireOtherActiveAdmin(tx, user.ID); err != nil {
				return err
			}
		}

		if err := tx.Where("user_id = ?", user.ID).Delete(&models.Session{}).Error; err != nil {
			return err
		}

		return tx.Delete(&user).Error
	})
}

// ResetPassword sets the configured temporary password and forces a change
// on next login.
func (s *UserService) ResetPassword(id uint) error {
	var user models.User
	if err := s.db.First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrUserNotFound
		}
		return err
	}

	hashedPassword, err := s.authService.HashPassword(s.cfg.Security.ResetPassword)
	if err != nil {
		return err
	}

	user.PasswordHash = hashedPassword
	user.DebeCambiarPassword = true
	return s.db.Save(&user).Error
}

// requireOtherActiveAdmin fails with ErrLastAdmin unless some active admin
// other than the given user exists. Must run inside the same transaction as
// the mutation it guards.
func requireOtherActiveAdmin(tx *gorm.DB, excludeID uint) error {
	var others int64
	if err := tx.Model(&models.User{}).
		Where("es_admin = ? AND activo = ? AND id <> ?", true, true, excludeID).
		Count(&others).Error; err != nil {
		return err
	}
	if others == 0 {
		return ErrLastAdmin
	}
	return nil
}

package users

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/mindmarks/accounts/database"
	"github.com/mindmarks/accounts/services/logging"
	"github.com/mindmarks/accounts/services/passwordreset"
	"github.com/mindmarks/accounts/services/refreshtoken"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	ErrUserNotFound = errors.New("user not found")
	ErrEmailTaken   = errors.New("email address already registered")
)

type UserStore interface {
	Create(email, fullName, hashedPassword string) (*User, error)
	FindByEmail(email string) (*User, error)
	FindByID(id string) (*User, error)
	UpdateCredential(userID, hashedPassword string) error
	Delete(userID string) error
}

type Service struct {
	db     *gorm.DB
	logger *logging.Service
}

func NewService(db *gorm.DB, logger *logging.Service) *Service {
	return &Service{
		db:     db,
		logger: logger,
	}
}

// Create stores a new account with the already hashed credential.
// Plaintext passwords never reach this layer.
func (s *Service) Create(email, fullName, hashedPassword string) (*User, error) {
	normalized := normalizeEmail(email)

	var count int64
	if err := s.db.Model(&User{}).Where("email = ?", normalized).Count(&count).Error; err != nil {
		if s.logger != nil {
			s.logger.Error("failed to check email availability", zap.Error(err))
		}
		return nil, fmt.Errorf("failed to check email availability: %w: %w", database.ErrUnavailable, err)
	}

	if count > 0 {
		if s.logger != nil {
			s.logger.Info("account creation rejected - email taken", zap.String("email", normalized))
		}
		return nil, ErrEmailTaken
	}

	user := &User{
		ID:             uuid.New().String(),
		Email:          normalized,
		FullName:       strings.TrimSpace(fullName),
		HashedPassword: hashedPassword,
		IsActive:       true,
		IsSuperuser:    false,
	}

	if err := s.db.Create(user).Error; err != nil {
		if s.logger != nil {
			s.logger.Error("failed to create user", zap.Error(err))
		}
		return nil, fmt.Errorf("failed to create user: %w: %w", database.ErrUnavailable, err)
	}

	if s.logger != nil {
		s.logger.Info("user created",
			zap.String("user_id", user.ID),
			zap.String("email", user.Email))
	}

	return user, nil
}

func (s *Service) FindByEmail(email string) (*User, error) {
	var user User
	err := s.db.Where("email = ?", normalizeEmail(email)).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		if s.logger != nil {
			s.logger.Error("failed to find user by email", zap.Error(err))
		}
		return nil, fmt.Errorf("failed to find user by email: %w: %w", database.ErrUnavailable, err)
	}

	return &user, nil
}

func (s *Service) FindByID(id string) (*User, error) {
	var user User
	err := s.db.Where("id = ?", id).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		if s.logger != nil {
			s.logger.Error("failed to find user by id", zap.Error(err))
		}
		return nil, fmt.Errorf("failed to find user by id: %w: %w", database.ErrUnavailable, err)
	}

	return &user, nil
}

// UpdateCredential replaces the stored password hash for userID.
func (s *Service) UpdateCredential(userID, hashedPassword string) error {
	result := s.db.Model(&User{}).
		Where("id = ?", userID).
		Update("hashed_password", hashedPassword)
	if result.Error != nil {
		if s.logger != nil {
			s.logger.Error("failed to update credential", zap.Error(result.Error))
		}
		return fmt.Errorf("failed to update credential: %w: %w", database.ErrUnavailable, result.Error)
	}

	if result.RowsAffected == 0 {
		return ErrUserNotFound
	}

	if s.logger != nil {
		s.logger.Info("credential updated", zap.String("user_id", userID))
	}

	return nil
}

// Delete removes the account together with its refresh tokens and any
// outstanding password reset tokens, all in one transaction.
func (s *Service) Delete(userID string) error {
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var user User
		if err := tx.Where("id = ?", userID).First(&user).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrUserNotFound
			}
			return fmt.Errorf("failed to load user for deletion: %w: %w", database.ErrUnavailable, err)
		}

		if err := tx.Where("user_id = ?", user.ID).Delete(&refreshtoken.RefreshToken{}).Error; err != nil {
			return fmt.Errorf("failed to delete refresh tokens: %w: %w", database.ErrUnavailable, err)
		}

		if err := tx.Where("email = ?", user.Email).Delete(&passwordreset.PasswordResetToken{}).Error; err != nil {
			return fmt.Errorf("failed to delete password reset tokens: %w: %w", database.ErrUnavailable, err)
		}

		if err := tx.Delete(&user).Error; err != nil {
			return fmt.Errorf("failed to delete user: %w: %w", database.ErrUnavailable, err)
		}

		return nil
	})
	if err != nil {
		if !errors.Is(err, ErrUserNotFound) && s.logger != nil {
			s.logger.Error("failed to delete user", zap.String("user_id", userID), zap.Error(err))
		}
		return err
	}

	if s.logger != nil {
		s.logger.Info("user deleted", zap.String("user_id", userID))
	}

	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

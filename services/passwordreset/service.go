package passwordreset

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mindmarks/accounts/config"
	"github.com/mindmarks/accounts/database"
	"github.com/mindmarks/accounts/services/logging"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ErrTokenNotFound covers unknown, used and expired tokens alike.
var ErrTokenNotFound = errors.New("invalid or expired password reset token")

type PasswordResetStore interface {
	Issue(email string) (string, error)
	VerifyAndConsume(token string) (string, error)
	CleanupExpired() (int64, error)
}

type Service struct {
	db     *gorm.DB
	config *config.Config
	logger *logging.Service
	now    func() time.Time
}

func NewService(db *gorm.DB, config *config.Config, logger *logging.Service) *Service {
	if logger != nil {
		logger.Info("initializing password reset store",
			zap.Duration("token_expiry", config.PasswordReset.Expiry),
			zap.Int("token_length", config.PasswordReset.TokenLength),
			zap.Duration("cleanup_interval", config.PasswordReset.CleanupInterval))
	}

	return &Service{
		db:     db,
		config: config,
		logger: logger,
		now:    time.Now,
	}
}

// WithClock overrides the time source, primarily for tests.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Issue invalidates any live tokens for email and returns a fresh
// secret. The secret is returned exactly once and only its hash is
// stored. Unknown emails yield an empty secret and no error so callers
// can answer uniformly.
func (s *Service) Issue(email string) (string, error) {
	normalized := strings.ToLower(strings.TrimSpace(email))

	if s.logger != nil {
		s.logger.Info("issuing password reset token", zap.String("email", normalized))
	}

	var count int64
	if err := s.db.Table("users").Where("email = ?", normalized).Count(&count).Error; err != nil {
		if s.logger != nil {
			s.logger.Error("failed to check account for password reset", zap.Error(err))
		}
		return "", fmt.Errorf("failed to check account: %w: %w", database.ErrUnavailable, err)
	}

	if count == 0 {
		if s.logger != nil {
			s.logger.Info("password reset requested for unknown email", zap.String("email", normalized))
		}
		return "", nil
	}

	invalidated := s.db.Model(&PasswordResetToken{}).
		Where("email = ? AND used = ?", normalized, false).
		Update("used", true)
	if invalidated.Error != nil {
		if s.logger != nil {
			s.logger.Error("failed to invalidate previous reset tokens", zap.Error(invalidated.Error))
		}
		return "", fmt.Errorf("failed to invalidate previous reset tokens: %w: %w", database.ErrUnavailable, invalidated.Error)
	}

	secret, err := s.generateSecureToken()
	if err != nil {
		if s.logger != nil {
			s.logger.Error("failed to generate password reset token", zap.Error(err))
		}
		return "", fmt.Errorf("failed to generate password reset token: %w", err)
	}

	now := s.now()
	resetToken := PasswordResetToken{
		ID:        uuid.New().String(),
		Email:     normalized,
		TokenHash: s.hashToken(secret),
		ExpiresAt: now.Add(s.config.PasswordReset.Expiry),
		Used:      false,
		CreatedAt: now,
	}

	if err := s.db.Create(&resetToken).Error; err != nil {
		if s.logger != nil {
			s.logger.Error("failed to store password reset token", zap.Error(err))
		}
		return "", fmt.Errorf("failed to store password reset token: %w: %w", database.ErrUnavailable, err)
	}

	if s.logger != nil {
		s.logger.Info("password reset token issued",
			zap.String("email", normalized),
			zap.String("token_id", resetToken.ID),
			zap.Int64("invalidated", invalidated.RowsAffected),
			zap.Time("expires_at", resetToken.ExpiresAt))
	}

	return secret, nil
}

// VerifyAndConsume looks the token up by hash, atomically marks it
// used and returns the owning email. A token can be consumed exactly
// once: when two callers race, one of them gets ErrTokenNotFound.
func (s *Service) VerifyAndConsume(token string) (string, error) {
	if s.logger != nil {
		s.logger.Debug("verifying password reset token")
	}

	tokenHash := s.hashToken(token)

	var resetToken PasswordResetToken
	err := s.db.
		Where("token_hash = ? AND used = ? AND expires_at > ?", tokenHash, false, s.now()).
		First(&resetToken).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			if s.logger != nil {
				s.logger.Warn("password reset token verification failed - no live token")
			}
			return "", ErrTokenNotFound
		}
		if s.logger != nil {
			s.logger.Error("password reset token verification failed - database error", zap.Error(err))
		}
		return "", fmt.Errorf("failed to verify password reset token: %w: %w", database.ErrUnavailable, err)
	}

	consumed := s.db.Model(&PasswordResetToken{}).
		Where("id = ? AND used = ?", resetToken.ID, false).
		Update("used", true)
	if consumed.Error != nil {
		if s.logger != nil {
			s.logger.Error("failed to consume password reset token", zap.Error(consumed.Error))
		}
		return "", fmt.Errorf("failed to consume password reset token: %w: %w", database.ErrUnavailable, consumed.Error)
	}

	if consumed.RowsAffected == 0 {
		if s.logger != nil {
			s.logger.Warn("password reset token already consumed",
				zap.String("token_id", resetToken.ID))
		}
		return "", ErrTokenNotFound
	}

	if s.logger != nil {
		s.logger.Info("password reset token consumed",
			zap.String("email", resetToken.Email),
			zap.String("token_id", resetToken.ID))
	}

	return resetToken.Email, nil
}

func (s *Service) CleanupExpired() (int64, error) {
	if s.logger != nil {
		s.logger.Debug("starting expired password reset token cleanup")
	}

	result := s.db.Where("expires_at < ?", s.now()).Delete(&PasswordResetToken{})
	if result.Error != nil {
		if s.logger != nil {
			s.logger.Error("failed to cleanup expired password reset tokens", zap.Error(result.Error))
		}
		return 0, fmt.Errorf("failed to cleanup expired password reset tokens: %w: %w", database.ErrUnavailable, result.Error)
	}

	if s.logger != nil {
		if result.RowsAffected > 0 {
			s.logger.Info("cleaned up expired password reset tokens",
				zap.Int64("count", result.RowsAffected))
		} else {
			s.logger.Debug("no expired password reset tokens found to cleanup")
		}
	}

	return result.RowsAffected, nil
}

func (s *Service) generateSecureToken() (string, error) {
	bytes := make([]byte, s.config.PasswordReset.TokenLength)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(bytes), nil
}

func (s *Service) hashToken(token string) string {
	hash := sha256.Sum256([]byte(token))
	return hex.EncodeToString(hash[:])
}

func (s *Service) StartCleanupWorker() {
	go func() {
		ticker := time.NewTicker(s.config.PasswordReset.CleanupInterval)
		defer ticker.Stop()

		for range ticker.C {
			if _, err := s.CleanupExpired(); err != nil && s.logger != nil {
				s.logger.Error("password reset cleanup worker failed", zap.Error(err))
			}
		}
	}()

	if s.logger != nil {
		s.logger.Info("started password reset cleanup worker",
			zap.Duration("interval", s.config.PasswordReset.CleanupInterval))
	}
}

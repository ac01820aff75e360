package refreshtoken

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mindmarks/accounts/config"
	"github.com/mindmarks/accounts/database"
	"github.com/mindmarks/accounts/services/logging"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ErrTokenNotFound covers missing, revoked and expired tokens alike so
// callers cannot distinguish why a token stopped being valid.
var ErrTokenNotFound = errors.New("refresh token not found")

type RefreshTokenStore interface {
	Create(userID, token string) (*RefreshToken, error)
	FindLive(token string) (*RefreshToken, error)
	Revoke(token string) (bool, error)
	RevokeAll(userID string) (int64, error)
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
		logger.Info("initializing refresh token store",
			zap.Duration("token_expiry", config.JWT.RefreshExpiry),
			zap.Duration("cleanup_interval", config.RefreshToken.CleanupInterval))
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

func (s *Service) Create(userID, token string) (*RefreshToken, error) {
	if s.logger != nil {
		s.logger.Debug("storing refresh token", zap.String("user_id", userID))
	}

	now := s.now()
	refreshToken := RefreshToken{
		ID:        uuid.New().String(),
		UserID:    userID,
		TokenHash: s.hashToken(token),
		ExpiresAt: now.Add(s.config.JWT.RefreshExpiry),
		CreatedAt: now,
		Revoked:   false,
	}

	if err := s.db.Create(&refreshToken).Error; err != nil {
		if s.logger != nil {
			s.logger.Error("failed to store refresh token", zap.Error(err))
		}
		return nil, fmt.Errorf("failed to store refresh token: %w: %w", database.ErrUnavailable, err)
	}

	if s.logger != nil {
		s.logger.Info("refresh token stored",
			zap.String("user_id", userID),
			zap.String("token_id", refreshToken.ID),
			zap.Time("expires_at", refreshToken.ExpiresAt))
	}

	return &refreshToken, nil
}

// FindLive returns the record for token only while it is neither
// revoked nor expired. It never mutates state.
func (s *Service) FindLive(token string) (*RefreshToken, error) {
	if s.logger != nil {
		s.logger.Debug("looking up refresh token")
	}

	tokenHash := s.hashToken(token)

	var refreshToken RefreshToken
	err := s.db.
		Where("token_hash = ? AND revoked = ? AND expires_at > ?", tokenHash, false, s.now()).
		First(&refreshToken).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			if s.logger != nil {
				s.logger.Warn("refresh token lookup failed - no live token")
			}
			return nil, ErrTokenNotFound
		}
		if s.logger != nil {
			s.logger.Error("refresh token lookup failed - database error", zap.Error(err))
		}
		return nil, fmt.Errorf("failed to look up refresh token: %w: %w", database.ErrUnavailable, err)
	}

	if s.logger != nil {
		s.logger.Debug("refresh token found",
			zap.String("token_id", refreshToken.ID),
			zap.String("user_id", refreshToken.UserID))
	}

	return &refreshToken, nil
}

// Revoke marks the token revoked and reports whether this call did the
// marking. Unknown and already revoked tokens return false without an
// error, which makes concurrent revocations race safe: exactly one
// caller observes true.
func (s *Service) Revoke(token string) (bool, error) {
	if s.logger != nil {
		s.logger.Info("revoking refresh token")
	}

	tokenHash := s.hashToken(token)
	result := s.db.Model(&RefreshToken{}).
		Where("token_hash = ? AND revoked = ?", tokenHash, false).
		Update("revoked", true)

	if result.Error != nil {
		if s.logger != nil {
			s.logger.Error("failed to revoke refresh token", zap.Error(result.Error))
		}
		return false, fmt.Errorf("failed to revoke refresh token: %w: %w", database.ErrUnavailable, result.Error)
	}

	if s.logger != nil {
		s.logger.Info("refresh token revocation finished",
			zap.String("token_hash", tokenHash[:16]+"..."),
			zap.Int64("affected_rows", result.RowsAffected))
	}

	return result.RowsAffected == 1, nil
}

func (s *Service) RevokeAll(userID string) (int64, error) {
	if s.logger != nil {
		s.logger.Info("revoking all refresh tokens for user", zap.String("user_id", userID))
	}

	result := s.db.Model(&RefreshToken{}).
		Where("user_id = ? AND revoked = ?", userID, false).
		Update("revoked", true)

	if result.Error != nil {
		if s.logger != nil {
			s.logger.Error("failed to revoke user refresh tokens",
				zap.Error(result.Error),
				zap.String("user_id", userID))
		}
		return 0, fmt.Errorf("failed to revoke user refresh tokens: %w: %w", database.ErrUnavailable, result.Error)
	}

	if s.logger != nil {
		s.logger.Info("user refresh tokens revoked",
			zap.String("user_id", userID),
			zap.Int64("count", result.RowsAffected))
	}

	return result.RowsAffected, nil
}

// CleanupExpired removes expired rows, revoked or not. Revoked rows
// that have not expired yet are kept until their expiry passes.
func (s *Service) CleanupExpired() (int64, error) {
	if s.logger != nil {
		s.logger.Debug("starting expired refresh token cleanup")
	}

	result := s.db.Where("expires_at < ?", s.now()).Delete(&RefreshToken{})
	if result.Error != nil {
		if s.logger != nil {
			s.logger.Error("failed to cleanup expired refresh tokens", zap.Error(result.Error))
		}
		return 0, fmt.Errorf("failed to cleanup expired tokens: %w: %w", database.ErrUnavailable, result.Error)
	}

	if s.logger != nil {
		if result.RowsAffected > 0 {
			s.logger.Info("cleaned up expired refresh tokens",
				zap.Int64("count", result.RowsAffected))
		} else {
			s.logger.Debug("no expired refresh tokens found to cleanup")
		}
	}

	return result.RowsAffected, nil
}

func (s *Service) hashToken(token string) string {
	hash := sha256.Sum256([]byte(token))
	return hex.EncodeToString(hash[:])
}

func (s *Service) StartCleanupWorker() {
	go func() {
		ticker := time.NewTicker(s.config.RefreshToken.CleanupInterval)
		defer ticker.Stop()

		for range ticker.C {
			if _, err := s.CleanupExpired(); err != nil && s.logger != nil {
				s.logger.Error("refresh token cleanup worker failed", zap.Error(err))
			}
		}
	}()

	if s.logger != nil {
		s.logger.Info("started refresh token cleanup worker",
			zap.Duration("interval", s.config.RefreshToken.CleanupInterval))
	}
}

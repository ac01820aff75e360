package auth

import (
	"errors"
	"strings"

	"github.com/mindmarks/accounts/config"
	"github.com/mindmarks/accounts/services/jwt"
	"github.com/mindmarks/accounts/services/logging"
	"github.com/mindmarks/accounts/services/password"
	"github.com/mindmarks/accounts/services/passwordreset"
	"github.com/mindmarks/accounts/services/refreshtoken"
	"github.com/mindmarks/accounts/services/users"
	"go.uber.org/zap"
)

var (
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrInactiveAccount     = errors.New("account is inactive")
	ErrInvalidRefreshToken = errors.New("invalid or expired refresh token")
	ErrInvalidResetToken   = errors.New("invalid or expired password reset token")
	ErrWeakPassword        = errors.New("password is too weak")
	ErrEmailTaken          = errors.New("email address already registered")
)

// TokenPair is what a successful login or refresh hands back.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
}

const tokenTypeBearer = "bearer"

// Notifier delivers password reset secrets out of band. The service
// never learns how delivery happens.
type Notifier interface {
	SendPasswordReset(email, token string) error
}

type Service struct {
	config    *config.Config
	logger    *logging.Service
	users     users.UserStore
	passwords *password.Service
	tokens    *jwt.Service
	sessions  refreshtoken.RefreshTokenStore
	resets    passwordreset.PasswordResetStore
	notifier  Notifier
}

func NewService(
	cfg *config.Config,
	logger *logging.Service,
	userStore users.UserStore,
	passwords *password.Service,
	tokens *jwt.Service,
	sessions refreshtoken.RefreshTokenStore,
	resets passwordreset.PasswordResetStore,
	notifier Notifier,
) *Service {
	return &Service{
		config:    cfg,
		logger:    logger,
		users:     userStore,
		passwords: passwords,
		tokens:    tokens,
		sessions:  sessions,
		resets:    resets,
		notifier:  notifier,
	}
}

// Register creates an account from a plaintext password. The
// credential is hashed before it reaches the identity store.
func (s *Service) Register(email, fullName, plaintext string) (*users.User, error) {
	if len(plaintext) < s.config.Auth.MinLength {
		if s.logger != nil {
			s.logger.Warn("registration rejected - password below minimum length",
				zap.Int("min_required", s.config.Auth.MinLength))
		}
		return nil, ErrWeakPassword
	}

	user, err := s.users.Create(email, fullName, s.passwords.Hash(plaintext))
	if err != nil {
		if errors.Is(err, users.ErrEmailTaken) {
			return nil, ErrEmailTaken
		}
		return nil, err
	}

	if s.logger != nil {
		s.logger.Info("account registered",
			zap.String("user_id", user.ID),
			zap.String("email", user.Email))
	}

	return user, nil
}

// Login exchanges credentials for a token pair. Credentials are always
// checked before the account flag so a caller cannot probe which of
// the two rejected them.
func (s *Service) Login(email, plaintext string) (*TokenPair, error) {
	user, err := s.users.FindByEmail(email)
	if err != nil {
		if errors.Is(err, users.ErrUserNotFound) {
			if s.logger != nil {
				s.logger.Warn("login failed - unknown email")
			}
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if !s.passwords.Verify(plaintext, user.HashedPassword) {
		if s.logger != nil {
			s.logger.Warn("login failed - wrong password", zap.String("user_id", user.ID))
		}
		return nil, ErrInvalidCredentials
	}

	if !user.IsActive {
		if s.logger != nil {
			s.logger.Warn("login failed - inactive account", zap.String("user_id", user.ID))
		}
		return nil, ErrInactiveAccount
	}

	pair, err := s.issuePair(user.ID)
	if err != nil {
		return nil, err
	}

	if s.logger != nil {
		s.logger.Info("login succeeded", zap.String("user_id", user.ID))
	}

	return pair, nil
}

// Refresh rotates a refresh token: the presented token must pass both
// signature validation and a live-session lookup, and is revoked
// before its replacement is issued. When several callers race on the
// same token the conditional revoke lets exactly one of them win.
func (s *Service) Refresh(refreshToken string) (*TokenPair, error) {
	claims, err := s.tokens.ValidateRefreshToken(refreshToken)
	if err != nil {
		if s.logger != nil {
			s.logger.Warn("refresh failed - token rejected by codec", zap.Error(err))
		}
		return nil, ErrInvalidRefreshToken
	}

	if _, err := s.sessions.FindLive(refreshToken); err != nil {
		if errors.Is(err, refreshtoken.ErrTokenNotFound) {
			if s.logger != nil {
				s.logger.Warn("refresh failed - no live session", zap.String("user_id", claims.UserID))
			}
			return nil, ErrInvalidRefreshToken
		}
		return nil, err
	}

	user, err := s.users.FindByID(claims.UserID)
	if err != nil {
		if errors.Is(err, users.ErrUserNotFound) {
			return nil, ErrInvalidRefreshToken
		}
		return nil, err
	}

	if !user.IsActive {
		if s.logger != nil {
			s.logger.Warn("refresh failed - inactive account", zap.String("user_id", user.ID))
		}
		return nil, ErrInactiveAccount
	}

	revoked, err := s.sessions.Revoke(refreshToken)
	if err != nil {
		return nil, err
	}
	if !revoked {
		if s.logger != nil {
			s.logger.Warn("refresh failed - lost rotation race", zap.String("user_id", user.ID))
		}
		return nil, ErrInvalidRefreshToken
	}

	pair, err := s.issuePair(user.ID)
	if err != nil {
		return nil, err
	}

	if s.logger != nil {
		s.logger.Info("session refreshed", zap.String("user_id", user.ID))
	}

	return pair, nil
}

// Logout revokes the presented refresh token. Tokens that are already
// revoked, expired or simply unknown are treated as logged out, so
// only storage failures surface.
func (s *Service) Logout(refreshToken string) error {
	revoked, err := s.sessions.Revoke(refreshToken)
	if err != nil {
		return err
	}

	if s.logger != nil {
		s.logger.Info("logout processed", zap.Bool("session_revoked", revoked))
	}

	return nil
}

// ForgotPassword starts a reset flow. The outcome is identical for
// known and unknown emails, and a failing notifier is logged rather
// than surfaced, so the response leaks nothing about which accounts
// exist.
func (s *Service) ForgotPassword(email string) error {
	secret, err := s.resets.Issue(email)
	if err != nil {
		return err
	}

	if secret == "" {
		return nil
	}

	if s.notifier != nil {
		normalized := strings.ToLower(strings.TrimSpace(email))
		if err := s.notifier.SendPasswordReset(normalized, secret); err != nil {
			if s.logger != nil {
				s.logger.Error("failed to deliver password reset notification", zap.Error(err))
			}
		}
	}

	return nil
}

// ResetPassword consumes a reset secret and installs the new
// credential. Weak passwords are rejected before the secret is
// consumed so the caller can retry with the same link. Every refresh
// session of the account is revoked afterwards.
func (s *Service) ResetPassword(secret, newPassword string) error {
	if len(newPassword) < s.config.Auth.MinLength {
		if s.logger != nil {
			s.logger.Warn("password reset rejected - password below minimum length",
				zap.Int("min_required", s.config.Auth.MinLength))
		}
		return ErrWeakPassword
	}

	email, err := s.resets.VerifyAndConsume(secret)
	if err != nil {
		if errors.Is(err, passwordreset.ErrTokenNotFound) {
			return ErrInvalidResetToken
		}
		return err
	}

	user, err := s.users.FindByEmail(email)
	if err != nil {
		if errors.Is(err, users.ErrUserNotFound) {
			return ErrInvalidResetToken
		}
		return err
	}

	if err := s.users.UpdateCredential(user.ID, s.passwords.Hash(newPassword)); err != nil {
		return err
	}

	revoked, err := s.sessions.RevokeAll(user.ID)
	if err != nil {
		return err
	}

	if s.logger != nil {
		s.logger.Info("password reset completed",
			zap.String("user_id", user.ID),
			zap.Int64("sessions_revoked", revoked))
	}

	return nil
}

func (s *Service) issuePair(userID string) (*TokenPair, error) {
	access, err := s.tokens.GenerateAccessToken(userID)
	if err != nil {
		return nil, err
	}

	refresh, err := s.tokens.GenerateRefreshToken(userID)
	if err != nil {
		return nil, err
	}

	if _, err := s.sessions.Create(userID, refresh); err != nil {
		return nil, err
	}

	return &TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    tokenTypeBearer,
	}, nil
}

package auth

import (
	"github.com/mindmarks/accounts/config"
	"github.com/mindmarks/accounts/services/jwt"
	"github.com/mindmarks/accounts/services/logging"
	"github.com/mindmarks/accounts/services/password"
	"github.com/mindmarks/accounts/services/passwordreset"
	"github.com/mindmarks/accounts/services/refreshtoken"
	"github.com/mindmarks/accounts/services/users"
	"go.uber.org/fx"
)

func ProvideAuthService(
	cfg *config.Config,
	logger *logging.Service,
	userStore users.UserStore,
	passwords *password.Service,
	tokens *jwt.Service,
	sessions refreshtoken.RefreshTokenStore,
	resets passwordreset.PasswordResetStore,
	notifier Notifier,
) *Service {
	return NewService(cfg, logger, userStore, passwords, tokens, sessions, resets, notifier)
}

var Options = fx.Options(
	fx.Provide(ProvideAuthService),
)

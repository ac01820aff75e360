package jwt

import (
	"github.com/mindmarks/accounts/config"
	"github.com/mindmarks/accounts/services/logging"
	"go.uber.org/fx"
)

func NewJWTService(cfg *config.Config, logger *logging.Service) *Service {
	return NewService(cfg, logger)
}

var Options = fx.Options(
	fx.Provide(NewJWTService),
)

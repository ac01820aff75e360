package passwordreset

import (
	"github.com/mindmarks/accounts/config"
	"github.com/mindmarks/accounts/services/logging"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

func ProvidePasswordResetStore(db *gorm.DB, config *config.Config, logger *logging.Service) PasswordResetStore {
	service := NewService(db, config, logger)

	if config.PasswordReset.CleanupInterval > 0 {
		service.StartCleanupWorker()
	}

	return service
}

var Options = fx.Options(
	fx.Provide(ProvidePasswordResetStore),
)

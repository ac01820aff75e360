package refreshtoken

import (
	"github.com/mindmarks/accounts/config"
	"github.com/mindmarks/accounts/services/logging"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

func ProvideRefreshTokenStore(db *gorm.DB, config *config.Config, logger *logging.Service) RefreshTokenStore {
	service := NewService(db, config, logger)

	if config.RefreshToken.CleanupInterval > 0 {
		service.StartCleanupWorker()
	}

	return service
}

var Options = fx.Options(
	fx.Provide(ProvideRefreshTokenStore),
)

package users

import (
	"github.com/mindmarks/accounts/services/logging"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

func ProvideUserStore(db *gorm.DB, logger *logging.Service) UserStore {
	return NewService(db, logger)
}

var Options = fx.Options(
	fx.Provide(ProvideUserStore),
)

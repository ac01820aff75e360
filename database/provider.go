package database

import (
	"errors"
	"fmt"

	"github.com/mindmarks/accounts/config"
	"github.com/mindmarks/accounts/services/logging"
	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// ErrUnavailable wraps failures of the backing store. Callers use
// errors.Is to tell outages apart from domain rejections.
var ErrUnavailable = errors.New("storage unavailable")

type ModelsOption struct {
	models []any
}

func WithModels(models ...any) *ModelsOption {
	return &ModelsOption{models: models}
}

func ProvideDatabase(cfg config.Config, modelsOpt *ModelsOption, logger *logging.Service) (*gorm.DB, error) {
	var db *gorm.DB
	var err error

	if logger != nil {
		logger.Info("connecting to database",
			zap.String("driver", cfg.Database.Driver))
	}

	switch cfg.Database.Driver {
	case "sqlite":
		db, err = gorm.Open(sqlite.Open(cfg.Database.DSN), &gorm.Config{})
	case "postgres", "postgresql":
		db, err = gorm.Open(postgres.Open(cfg.Database.DSN), &gorm.Config{})
	case "mysql":
		db, err = gorm.Open(mysql.Open(cfg.Database.DSN), &gorm.Config{})
	default:
		return nil, fmt.Errorf("unsupported database driver: %s (supported: sqlite, postgres, mysql)", cfg.Database.Driver)
	}

	if err != nil {
		if logger != nil {
			logger.Error("database connection failed",
				zap.Error(err),
				zap.String("driver", cfg.Database.Driver))
		}
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if cfg.Database.AutoMigrate && modelsOpt != nil && len(modelsOpt.models) > 0 {
		if logger != nil {
			logger.Info("running auto-migration",
				zap.Int("models", len(modelsOpt.models)))
		}
		if err := db.AutoMigrate(modelsOpt.models...); err != nil {
			if logger != nil {
				logger.Error("auto-migration failed", zap.Error(err))
			}
			return nil, fmt.Errorf("failed to auto-migrate models: %w", err)
		}
	}

	if logger != nil {
		logger.Info("database connection established",
			zap.String("driver", cfg.Database.Driver))
	}

	return db, nil
}

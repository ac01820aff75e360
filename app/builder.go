package app

import (
	"fmt"
	"time"

	"github.com/mindmarks/accounts/config"
	"github.com/mindmarks/accounts/database"
	"github.com/mindmarks/accounts/services/auth"
	"github.com/mindmarks/accounts/services/jwt"
	"github.com/mindmarks/accounts/services/logging"
	"github.com/mindmarks/accounts/services/mail"
	"github.com/mindmarks/accounts/services/password"
	"github.com/mindmarks/accounts/services/passwordreset"
	"github.com/mindmarks/accounts/services/refreshtoken"
	"github.com/mindmarks/accounts/services/users"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

type AppBuilder struct {
	config        *config.Config
	services      map[string]bool
	models        []any
	fxOptions     []fx.Option
	errors        []error
	sweepInterval time.Duration
	sweepSet      bool
}

func NewApp() *AppBuilder {
	return &AppBuilder{
		services:  make(map[string]bool),
		models:    make([]any, 0),
		fxOptions: make([]fx.Option, 0),
		errors:    make([]error, 0),
	}
}

func (b *AppBuilder) WithConfig(cfg *config.Config) *AppBuilder {
	if cfg == nil {
		b.addError("config cannot be nil")
		return b
	}
	b.config = cfg
	return b
}

func (b *AppBuilder) WithAutoConfig() *AppBuilder {
	cfg := &config.Config{}
	if err := config.LoadConfig(cfg); err != nil {
		b.addError(fmt.Sprintf("failed to load config: %v", err))
		return b
	}
	b.config = cfg
	return b
}

func (b *AppBuilder) WithDatabase(models ...any) *AppBuilder {
	b.services["database"] = true
	b.models = append(b.models, models...)
	return b
}

func (b *AppBuilder) WithAccounts() *AppBuilder {
	b.services["accounts"] = true
	b.services["database"] = true
	b.models = append(b.models,
		&users.User{},
		&refreshtoken.RefreshToken{},
		&passwordreset.PasswordResetToken{},
	)
	return b
}

func (b *AppBuilder) WithMail() *AppBuilder {
	b.services["mail"] = true
	return b
}

func (b *AppBuilder) WithTokenSweeper(interval time.Duration) *AppBuilder {
	if interval < 0 {
		b.addError("token sweep interval cannot be negative")
		return b
	}
	b.sweepInterval = interval
	b.sweepSet = true
	return b
}

func (b *AppBuilder) WithFxOptions(opts ...fx.Option) *AppBuilder {
	b.fxOptions = append(b.fxOptions, opts...)
	return b
}

func (b *AppBuilder) Build() (*App, error) {

	if err := b.validate(); err != nil {
		return nil, err
	}

	if b.config == nil {
		if err := b.WithAutoConfig().validate(); err != nil {
			return nil, err
		}
	}

	if b.sweepSet {
		b.config.RefreshToken.CleanupInterval = b.sweepInterval
		b.config.PasswordReset.CleanupInterval = b.sweepInterval
	}

	logger, err := b.createLogger()
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	services, err := b.buildServices(logger)
	if err != nil {
		return nil, fmt.Errorf("failed to build services: %w", err)
	}

	fxOptions := b.buildFxOptions(services, logger)

	app := &App{
		config:   b.config,
		logger:   logger,
		services: services,
		db:       services.database,
	}

	if b.services["accounts"] {
		fxOptions = append(fxOptions, fx.Invoke(func(svc *auth.Service) {
			app.accounts = svc
		}))
	}

	fxApp := fx.New(fxOptions...)
	app.fx = fxApp

	return app, nil
}

func (b *AppBuilder) addError(msg string) {
	b.errors = append(b.errors, fmt.Errorf("%s", msg))
}

func (b *AppBuilder) validate() error {

	if len(b.errors) > 0 {
		return fmt.Errorf("configuration errors: %v", b.errors)
	}

	if b.services["accounts"] && !b.services["database"] {
		b.services["database"] = true
	}

	if b.services["accounts"] && !b.services["mail"] {
		b.services["mail"] = true
	}

	return nil
}

func (b *AppBuilder) createLogger() (*logging.Service, error) {
	if b.config == nil {
		return nil, fmt.Errorf("config required for logger creation")
	}

	return logging.NewService(logging.Config{
		Level:      logging.LogLevel(b.config.Log.Level),
		Format:     b.config.Log.Format,
		OutputPath: b.config.Log.Output,
	})
}

type ServiceContainer struct {
	database *gorm.DB
}

func (b *AppBuilder) buildServices(logger *logging.Service) (*ServiceContainer, error) {
	services := &ServiceContainer{}

	if b.services["database"] {
		modelsOpt := &database.ModelsOption{}
		if len(b.models) > 0 {
			modelsOpt = database.WithModels(b.models...)
		}

		db, err := database.ProvideDatabase(*b.config, modelsOpt, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize database: %w", err)
		}
		services.database = db
	}

	return services, nil
}

func (b *AppBuilder) buildFxOptions(services *ServiceContainer, logger *logging.Service) []fx.Option {
	var options []fx.Option

	options = append(options,
		fx.Supply(b.config),
		fx.Supply(logger),
		fx.NopLogger,
	)

	if services.database != nil {
		options = append(options, fx.Supply(services.database))
	}

	if b.services["mail"] {
		options = append(options, mail.Options)
	}
	if b.services["accounts"] {
		options = append(options,
			password.Options,
			jwt.Options,
			users.Options,
			refreshtoken.Options,
			passwordreset.Options,
			auth.Options,
		)
	}

	options = append(options, b.fxOptions...)

	return options
}

package app

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mindmarks/accounts/config"
	"github.com/mindmarks/accounts/internal/options"
	"github.com/mindmarks/accounts/services/auth"
	"github.com/mindmarks/accounts/services/logging"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

type App struct {
	fx       *fx.App
	config   *config.Config
	logger   *logging.Service
	services *ServiceContainer
	db       *gorm.DB
	accounts *auth.Service
}

func New(opts ...options.Option) *App {
	appOpts := &options.Options{}
	for _, opt := range opts {
		opt(appOpts)
	}

	builder := NewApp()

	if appOpts.Config != nil {
		builder.WithConfig(appOpts.Config)
	}
	if appOpts.EnableDatabase {
		builder.WithDatabase(appOpts.DatabaseModels...)
	}
	if appOpts.EnableAccounts {
		builder.WithAccounts()
	}
	if appOpts.EnableMail {
		builder.WithMail()
	}
	if appOpts.EnableSweeper {
		builder.WithTokenSweeper(appOpts.SweepInterval)
	}
	for _, opt := range appOpts.ExtraFxOptions {
		if fxOpt, ok := opt.(fx.Option); ok {
			builder.WithFxOptions(fxOpt)
		}
	}

	app, err := builder.Build()
	if err != nil {
		log.Fatalf("Failed to build application: %v", err)
	}

	return app
}

func (a *App) Start() error {
	ctx := context.Background()
	if err := a.fx.Start(ctx); err != nil {
		return err
	}
	return nil
}

func (a *App) StartTest() error {
	return a.fx.Start(context.Background())
}

func (a *App) Run() {
	if err := a.Start(); err != nil {
		log.Fatalf("Failed to start application: %v", err)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigChan
	if a.logger != nil {
		a.logger.Info("Received shutdown signal, stopping gracefully...")
	} else {
		log.Printf("Received signal %v, shutting down gracefully...", sig)
	}

	a.Stop()
}

func (a *App) Stop() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := a.fx.Stop(ctx); err != nil {
		if a.logger != nil {
			a.logger.Error("Failed to stop application gracefully")
		} else {
			log.Printf("Failed to stop application gracefully: %v", err)
		}
	}
}

func (a *App) StopTest() {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := a.fx.Stop(ctx); err != nil {
		if a.logger != nil {
			a.logger.Error("Failed to stop test application")
		} else {
			log.Printf("Failed to stop test application: %v", err)
		}
	}
}

func (a *App) Accounts() *auth.Service {
	if a.accounts == nil {
		if a.logger != nil {
			a.logger.Warn("Accounts service not initialized - was WithAccounts set and the app started?")
		}
		return nil
	}
	return a.accounts
}

func (a *App) Database() *gorm.DB {
	return a.db
}

func (a *App) DB() *gorm.DB {
	return a.db
}

func (a *App) Logger() *logging.Service {
	return a.logger
}

func (a *App) Config() *config.Config {
	return a.config
}

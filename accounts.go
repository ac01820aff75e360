// Package accounts assembles the credential and session lifecycle
// services into a runnable application. Most callers only need New
// plus a handful of With* options; the app package exposes the full
// builder for anything more involved.
package accounts

import (
	"time"

	"github.com/mindmarks/accounts/app"
	"github.com/mindmarks/accounts/config"
	"github.com/mindmarks/accounts/internal/options"
)

type App = app.App

type Option = options.Option

func New(opts ...Option) *App {
	return app.New(opts...)
}

func WithConfig(cfg *config.Config) Option {
	return options.WithConfig(cfg)
}

func WithDatabase(models ...any) Option {
	return options.WithDatabase(models...)
}

func WithAccounts() Option {
	return options.WithAccounts()
}

func WithMail() Option {
	return options.WithMail()
}

func WithTokenSweeper(interval time.Duration) Option {
	return options.WithTokenSweeper(interval)
}

func WithFxOptions(fxOpts ...any) Option {
	return options.WithFxOptions(fxOpts...)
}

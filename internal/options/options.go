package options

import (
	"time"

	"github.com/mindmarks/accounts/config"
)

type Options struct {
	Config         *config.Config
	EnableDatabase bool
	DatabaseModels []any
	EnableAccounts bool
	EnableMail     bool
	EnableSweeper  bool
	SweepInterval  time.Duration
	ExtraFxOptions []any
}

type Option func(*Options)

func WithConfig(cfg *config.Config) Option {
	return func(opts *Options) {
		opts.Config = cfg
	}
}

func WithDatabase(models ...any) Option {
	return func(opts *Options) {
		opts.EnableDatabase = true
		opts.DatabaseModels = models
	}
}

func WithAccounts() Option {
	return func(opts *Options) {
		opts.EnableAccounts = true
	}
}

func WithMail() Option {
	return func(opts *Options) {
		opts.EnableMail = true
	}
}

func WithTokenSweeper(interval time.Duration) Option {
	return func(opts *Options) {
		opts.EnableSweeper = true
		opts.SweepInterval = interval
	}
}

func WithFxOptions(fxOpts ...any) Option {
	return func(opts *Options) {
		opts.ExtraFxOptions = append(opts.ExtraFxOptions, fxOpts...)
	}
}

package mail

import (
	"github.com/mindmarks/accounts/config"
	"github.com/mindmarks/accounts/services/auth"
	"github.com/mindmarks/accounts/services/logging"
	"go.uber.org/fx"
)

// ProvidePasswordResetMailer wires the notifier the session service
// depends on. Without MAIL_HOST the mailer runs in its logging mode
// instead of failing the whole graph.
func ProvidePasswordResetMailer(cfg *config.Config, logger *logging.Service) (auth.Notifier, error) {
	if cfg.Mail.Host == "" {
		if logger != nil {
			logger.Warn("MAIL_HOST not set - password reset links will only be logged")
		}
		return NewPasswordResetMailer(nil, cfg, logger), nil
	}

	service, err := NewService(&cfg.Mail, logger)
	if err != nil {
		return nil, err
	}

	return NewPasswordResetMailer(service, cfg, logger), nil
}

var Options = fx.Options(
	fx.Provide(ProvidePasswordResetMailer),
)

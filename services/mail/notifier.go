package mail

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/mindmarks/accounts/config"
	"github.com/mindmarks/accounts/services/logging"
	"github.com/wneessen/go-mail"
	"go.uber.org/zap"
)

const resetTemplateName = "password_reset"

// PasswordResetMailer delivers reset secrets as links into the web
// frontend. Without a configured transport it degrades to logging the
// link, which is how local development runs.
type PasswordResetMailer struct {
	mail   *Service
	config *config.Config
	logger *logging.Service
}

func NewPasswordResetMailer(mailService *Service, cfg *config.Config, logger *logging.Service) *PasswordResetMailer {
	return &PasswordResetMailer{
		mail:   mailService,
		config: cfg,
		logger: logger,
	}
}

func (m *PasswordResetMailer) SendPasswordReset(email, token string) error {
	resetURL := fmt.Sprintf("%s/reset-password?token=%s",
		strings.TrimSuffix(m.config.App.URL, "/"), url.QueryEscape(token))
	subject := fmt.Sprintf("Reset Your %s Password", m.config.App.Name)

	if m.mail == nil {
		if m.logger != nil {
			m.logger.Info("mail transport not configured, logging password reset link",
				zap.String("email", email),
				zap.String("reset_url", resetURL))
		}
		return nil
	}

	expiry := m.config.PasswordReset.Expiry.String()

	if m.mail.HasTemplate(resetTemplateName) {
		return m.mail.SendTemplate(resetTemplateName, []string{email}, subject, map[string]any{
			"Email":          email,
			"ResetURL":       resetURL,
			"ExpiryDuration": expiry,
			"AppName":        m.config.App.Name,
		})
	}

	message := m.mail.NewMessage()
	if err := message.To(email); err != nil {
		return fmt.Errorf("failed to set TO address: %w", err)
	}
	message.Subject(subject)
	message.SetBodyString(mail.TypeTextHTML, m.htmlBody(resetURL, expiry))
	message.AddAlternativeString(mail.TypeTextPlain, m.textBody(resetURL, expiry))

	return m.mail.Send(message)
}

func (m *PasswordResetMailer) htmlBody(resetURL, expiry string) string {
	return fmt.Sprintf(`<html>
<body>
	<h2>Password Reset Request</h2>
	<p>You requested a password reset for your %s account.</p>
	<p><a href="%s">Reset your password</a></p>
	<p>This link expires in %s. If you did not request a reset, you can safely ignore this email.</p>
</body>
</html>`, m.config.App.Name, resetURL, expiry)
}

func (m *PasswordResetMailer) textBody(resetURL, expiry string) string {
	return fmt.Sprintf(`You requested a password reset for your %s account.

Open this link to choose a new password:
%s

This link expires in %s. If you did not request a reset, you can safely ignore this email.
`, m.config.App.Name, resetURL, expiry)
}

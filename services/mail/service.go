package mail

import (
	"bytes"
	"fmt"
	htmlTemplate "html/template"
	"path/filepath"
	textTemplate "text/template"
	"time"

	"github.com/mindmarks/accounts/config"
	"github.com/mindmarks/accounts/services/logging"
	"github.com/wneessen/go-mail"
	"go.uber.org/zap"
)

// MailClient is the transport boundary. Production wires an SMTP
// client, tests substitute a capture fake.
type MailClient interface {
	DialAndSend(msg *mail.Msg) error
}

type GoMailClient struct {
	client *mail.Client
}

func (g *GoMailClient) DialAndSend(msg *mail.Msg) error {
	return g.client.DialAndSend(msg)
}

type TemplateData map[string]any

type Service struct {
	config        *config.MailConfig
	client        MailClient
	htmlTemplates *htmlTemplate.Template
	textTemplates *textTemplate.Template
	logger        *logging.Service
}

func NewService(cfg *config.MailConfig, logger *logging.Service) (*Service, error) {
	if logger != nil {
		logger.Info("initializing mail service",
			zap.String("host", cfg.Host),
			zap.Int("port", cfg.Port),
			zap.String("encryption", cfg.Encryption),
			zap.String("from_address", cfg.FromAddress))
	}

	client, err := mail.NewClient(cfg.Host, clientOptions(cfg)...)
	if err != nil {
		if logger != nil {
			logger.Error("failed to create mail client",
				zap.Error(err),
				zap.String("host", cfg.Host),
				zap.Int("port", cfg.Port))
		}
		return nil, fmt.Errorf("failed to create mail client: %w", err)
	}

	return NewServiceWithClient(cfg, logger, &GoMailClient{client: client})
}

// NewServiceWithClient wires an explicit transport, used by tests and
// by callers that manage their own SMTP client.
func NewServiceWithClient(cfg *config.MailConfig, logger *logging.Service, client MailClient) (*Service, error) {
	if cfg.FromAddress == "" {
		if logger != nil {
			logger.Error("mail service initialization failed: FROM_ADDRESS is required")
		}
		return nil, fmt.Errorf("MAIL_FROM_ADDRESS is required")
	}

	service := &Service{
		config: cfg,
		client: client,
		logger: logger,
	}

	if err := service.loadTemplates(); err != nil {
		if logger != nil {
			logger.Error("failed to load mail templates", zap.Error(err))
		}
		return nil, fmt.Errorf("failed to load mail templates: %w", err)
	}

	return service, nil
}

func clientOptions(cfg *config.MailConfig) []mail.Option {
	opts := []mail.Option{mail.WithPort(cfg.Port)}

	if cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(cfg.Username))
	}
	if cfg.Password != "" {
		opts = append(opts, mail.WithPassword(cfg.Password))
	}

	switch cfg.Encryption {
	case "ssl":
		opts = append(opts, mail.WithSSL())
	case "none":
		opts = append(opts, mail.WithTLSPortPolicy(mail.NoTLS))
	default:
		opts = append(opts, mail.WithTLSPortPolicy(mail.TLSMandatory))
	}

	return opts
}

func (s *Service) loadTemplates() error {
	if s.config.TemplatesDir == "" {
		if s.logger != nil {
			s.logger.Debug("no template directory configured, skipping template loading")
		}
		return nil
	}

	htmlFiles, err := filepath.Glob(filepath.Join(s.config.TemplatesDir, "*.html"))
	if err != nil {
		return fmt.Errorf("failed to scan HTML templates: %w", err)
	}
	if len(htmlFiles) > 0 {
		if s.htmlTemplates, err = htmlTemplate.ParseFiles(htmlFiles...); err != nil {
			return fmt.Errorf("failed to parse HTML templates: %w", err)
		}
	}

	textFiles, err := filepath.Glob(filepath.Join(s.config.TemplatesDir, "*.txt"))
	if err != nil {
		return fmt.Errorf("failed to scan text templates: %w", err)
	}
	if len(textFiles) > 0 {
		if s.textTemplates, err = textTemplate.ParseFiles(textFiles...); err != nil {
			return fmt.Errorf("failed to parse text templates: %w", err)
		}
	}

	if s.logger != nil {
		s.logger.Info("mail templates loaded",
			zap.String("templates_dir", s.config.TemplatesDir),
			zap.Int("html_templates", len(htmlFiles)),
			zap.Int("text_templates", len(textFiles)))
	}

	return nil
}

// HasTemplate reports whether a named template was loaded in either
// body flavour.
func (s *Service) HasTemplate(name string) bool {
	if s.htmlTemplates != nil && s.htmlTemplates.Lookup(name+".html") != nil {
		return true
	}
	if s.textTemplates != nil && s.textTemplates.Lookup(name+".txt") != nil {
		return true
	}
	return false
}

func (s *Service) NewMessage() *mail.Msg {
	message := mail.NewMsg()

	fromAddr := s.config.FromAddress
	if s.config.FromName != "" {
		fromAddr = fmt.Sprintf("%s <%s>", s.config.FromName, s.config.FromAddress)
	}

	if err := message.From(fromAddr); err != nil {
		panic(fmt.Sprintf("failed to set FROM address: %s", err))
	}

	return message
}

func (s *Service) compose(to []string, subject string) (*mail.Msg, error) {
	message := s.NewMessage()

	if err := message.To(to...); err != nil {
		if s.logger != nil {
			s.logger.Error("failed to set TO addresses",
				zap.Error(err),
				zap.Strings("recipients", to))
		}
		return nil, fmt.Errorf("failed to set TO addresses: %w", err)
	}

	message.Subject(subject)
	return message, nil
}

func (s *Service) Send(message *mail.Msg) error {
	start := time.Now()

	if err := s.client.DialAndSend(message); err != nil {
		if s.logger != nil {
			s.logger.Error("failed to send email",
				zap.Error(err),
				zap.Duration("attempt_duration", time.Since(start)))
		}
		return err
	}

	if s.logger != nil {
		s.logger.Info("email sent", zap.Duration("send_duration", time.Since(start)))
	}
	return nil
}

func (s *Service) SendTemplate(name string, to []string, subject string, data TemplateData) error {
	if s.logger != nil {
		s.logger.Info("sending template email",
			zap.String("template", name),
			zap.Strings("recipients", to),
			zap.String("subject", subject))
	}

	message, err := s.compose(to, subject)
	if err != nil {
		return err
	}

	htmlBody, textBody, err := s.renderBodies(name, data)
	if err != nil {
		if s.logger != nil {
			s.logger.Error("failed to render template",
				zap.Error(err),
				zap.String("template", name))
		}
		return err
	}

	switch {
	case htmlBody != "" && textBody != "":
		message.SetBodyString(mail.TypeTextHTML, htmlBody)
		message.AddAlternativeString(mail.TypeTextPlain, textBody)
	case htmlBody != "":
		message.SetBodyString(mail.TypeTextHTML, htmlBody)
	default:
		message.SetBodyString(mail.TypeTextPlain, textBody)
	}

	return s.Send(message)
}

// renderBodies renders the HTML and plain text flavours of a named
// template. At least one flavour must exist.
func (s *Service) renderBodies(name string, data TemplateData) (string, string, error) {
	var htmlBody, textBody string
	found := false

	if s.htmlTemplates != nil {
		if tmpl := s.htmlTemplates.Lookup(name + ".html"); tmpl != nil {
			var buf bytes.Buffer
			if err := tmpl.Execute(&buf, data); err != nil {
				return "", "", fmt.Errorf("failed to execute HTML template: %w", err)
			}
			htmlBody = buf.String()
			found = true
		}
	}

	if s.textTemplates != nil {
		if tmpl := s.textTemplates.Lookup(name + ".txt"); tmpl != nil {
			var buf bytes.Buffer
			if err := tmpl.Execute(&buf, data); err != nil {
				return "", "", fmt.Errorf("failed to execute text template: %w", err)
			}
			textBody = buf.String()
			found = true
		}
	}

	if !found {
		return "", "", fmt.Errorf("template '%s' not found", name)
	}

	return htmlBody, textBody, nil
}

func (s *Service) SendPlain(to []string, subject, body string) error {
	if s.logger != nil {
		s.logger.Info("sending plain text email",
			zap.Strings("recipients", to),
			zap.String("subject", subject))
	}

	message, err := s.compose(to, subject)
	if err != nil {
		return err
	}
	message.SetBodyString(mail.TypeTextPlain, body)

	return s.Send(message)
}

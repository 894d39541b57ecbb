package notify

import (
	"context"
	"fmt"
	netmail "net/mail"
	"strings"
	"time"

	"github.com/wneessen/go-mail"

	"github.com/dollarport/edu-site/pkg/logging"
)

// DefaultFromName is the display name used on lead notification mail.
const DefaultFromName = "DollarPort Edu Lead"

// SMTPConfig holds configuration for an authenticated SMTP relay such as
// Gmail with an app password.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	FromName string
}

// SMTPSender delivers mail through an SMTP relay. Port 465 uses implicit
// TLS; every other port requires STARTTLS.
type SMTPSender struct {
	host     string
	port     int
	username string
	password string
	fromName string
	timeout  time.Duration
	logger   *logging.Logger
}

// NewSMTPSender returns nil when credentials are missing.
func NewSMTPSender(cfg SMTPConfig, logger *logging.Logger) *SMTPSender {
	if cfg.Username == "" || cfg.Password == "" {
		return nil
	}
	if logger == nil {
		logger = logging.Default()
	}
	if cfg.Host == "" {
		cfg.Host = "smtp.gmail.com"
	}
	if cfg.Port == 0 {
		cfg.Port = mail.DefaultPortTLS
	}
	if cfg.FromName == "" {
		cfg.FromName = DefaultFromName
	}
	return &SMTPSender{
		host:     cfg.Host,
		port:     cfg.Port,
		username: cfg.Username,
		password: cfg.Password,
		fromName: cfg.FromName,
		timeout:  10 * time.Second,
		logger:   logger,
	}
}

// Send delivers msg. The context deadline bounds the whole SMTP exchange.
func (s *SMTPSender) Send(ctx context.Context, msg EmailMessage) error {
	if s == nil {
		return fmt.Errorf("notify: smtp sender not configured")
	}
	if strings.TrimSpace(msg.To) == "" {
		return fmt.Errorf("notify: recipient required")
	}

	m, err := s.buildMessage(msg)
	if err != nil {
		return err
	}
	client, err := s.newClient()
	if err != nil {
		return fmt.Errorf("notify: smtp client: %w", err)
	}
	if err := client.DialAndSendWithContext(ctx, m); err != nil {
		return fmt.Errorf("notify: smtp send via %s:%d: %w", s.host, s.port, err)
	}

	s.logger.Info("email sent via smtp", "to", msg.To, "subject", msg.Subject)
	return nil
}

func (s *SMTPSender) newClient() (*mail.Client, error) {
	opts := []mail.Option{
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(s.username),
		mail.WithPassword(s.password),
		mail.WithTimeout(s.timeout),
	}
	if s.port == mail.DefaultPortSSL {
		opts = append(opts, mail.WithSSLPort(false))
	} else {
		opts = append(opts, mail.WithTLSPortPolicy(mail.TLSMandatory))
	}
	opts = append(opts, mail.WithPort(s.port))
	return mail.NewClient(s.host, opts...)
}

// buildMessage assembles the outgoing message. An unparseable reply-to is
// dropped rather than failing delivery to HR.
func (s *SMTPSender) buildMessage(msg EmailMessage) (*mail.Msg, error) {
	m := mail.NewMsg()
	if err := m.FromFormat(s.fromName, s.username); err != nil {
		return nil, fmt.Errorf("notify: smtp from address: %w", err)
	}
	if msg.ToName != "" {
		if err := m.AddToFormat(msg.ToName, msg.To); err != nil {
			return nil, fmt.Errorf("notify: smtp recipient: %w", err)
		}
	} else if err := m.To(msg.To); err != nil {
		return nil, fmt.Errorf("notify: smtp recipient: %w", err)
	}
	if msg.ReplyTo != "" {
		if err := m.ReplyTo(msg.ReplyTo); err != nil {
			s.logger.Warn("reply-to address rejected", "reply_to", msg.ReplyTo, "error", err)
		}
	}
	m.Subject(msg.Subject)
	m.SetDate()
	m.SetBodyString(mail.TypeTextPlain, msg.Body)
	return m, nil
}

func formatAddress(name, email string) string {
	return (&netmail.Address{Name: name, Address: email}).String()
}

var _ EmailSender = (*SMTPSender)(nil)

package notification

import (
	"fmt"
	"net/smtp"
	"strings"

	"HttpSpectra/internal/config"
	"HttpSpectra/internal/logging"

	"github.com/sirupsen/logrus"
)

// Notifier defines a generic interface for sending notifications.
type Notifier interface {
	Send(subject, body string) error
}

// EmailNotifier implements the Notifier interface for sending emails.
type EmailNotifier struct {
	cfg  config.SMTPConfig
	auth smtp.Auth
	send func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

// NewEmailNotifier creates a new EmailNotifier.
func NewEmailNotifier(cfg config.SMTPConfig) *EmailNotifier {
	// PlainAuth will not send credentials until the server identifies itself as a trusted one.
	auth := smtp.PlainAuth("", cfg.Username, cfg.Password, cfg.Host)
	return &EmailNotifier{cfg: cfg, auth: auth, send: smtp.SendMail}
}

// Send sends an email to the configured recipients.
func (n *EmailNotifier) Send(subject, body string) error {
	addr := fmt.Sprintf("%s:%d", n.cfg.Host, n.cfg.Port)
	recipients := strings.Split(n.cfg.To, ",")
	for i := range recipients {
		recipients[i] = strings.TrimSpace(recipients[i])
	}

	if err := n.send(addr, n.auth, n.cfg.From, recipients, n.message(subject, body)); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	return nil
}

func (n *EmailNotifier) message(subject, body string) []byte {
	return []byte("To: " + n.cfg.To + "\r\n" +
		"From: " + n.cfg.From + "\r\n" +
		"Subject: " + subject + "\r\n" +
		"Content-Type: text/plain; charset=UTF-8\r\n" +
		"\r\n" +
		body)
}

// LogNotifier writes alerts to the application log.
type LogNotifier struct{}

func (LogNotifier) Send(subject, body string) error {
	logging.WithFields(logrus.Fields{"subject": subject}).Warn(body)
	return nil
}

// New returns the email notifier when an SMTP host is configured, otherwise
// the log notifier.
func New(cfg config.SMTPConfig) Notifier {
	if cfg.Host == "" {
		return LogNotifier{}
	}
	return NewEmailNotifier(cfg)
}

package notify

import (
	"fmt"
	"net/smtp"

	"go.uber.org/zap"
)

// SMTPConfig carries the mail relay settings.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// SMTPMailer delivers messages over plain SMTP with AUTH.
type SMTPMailer struct {
	cfg SMTPConfig
}

func NewSMTPMailer(cfg SMTPConfig) *SMTPMailer {
	return &SMTPMailer{cfg: cfg}
}

func (m *SMTPMailer) Send(msg Message) error {
	addr := fmt.Sprintf("%s:%d", m.cfg.Host, m.cfg.Port)
	auth := smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Host)

	body := fmt.Sprintf(
		"From: %s\r\nTo: %s\r\nSubject: %s\r\nMIME-Version: 1.0\r\nContent-Type: text/plain; charset=\"UTF-8\"\r\n\r\n%s\r\n",
		m.cfg.From, msg.Recipient, msg.Subject, msg.Body,
	)

	if err := smtp.SendMail(addr, auth, m.cfg.From, []string{msg.Recipient}, []byte(body)); err != nil {
		return fmt.Errorf("smtp send to %s failed: %w", msg.Recipient, err)
	}
	return nil
}

// LogMailer writes messages to the log instead of sending them. Used in
// development when no SMTP relay is configured.
type LogMailer struct {
	logger *zap.Logger
}

func NewLogMailer(logger *zap.Logger) *LogMailer {
	return &LogMailer{logger: logger}
}

func (m *LogMailer) Send(msg Message) error {
	m.logger.Info("mail (not sent, no smtp relay configured)",
		zap.String("to", msg.Recipient),
		zap.String("subject", msg.Subject),
		zap.String("body", msg.Body))
	return nil
}

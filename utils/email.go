package utils

import (
	"fmt"

	"gopkg.in/gomail.v2"
)

// EmailConfig holds email configuration
type EmailConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// Mailer sends HTML email over SMTP
type Mailer struct {
	config EmailConfig
	dialer *gomail.Dialer
}

// NewMailer creates a Mailer for the given SMTP settings
func NewMailer(config EmailConfig) *Mailer {
	return &Mailer{
		config: config,
		dialer: gomail.NewDialer(config.Host, config.Port, config.Username, config.Password),
	}
}

// Send delivers one HTML message
func (m *Mailer) Send(to, subject, htmlBody string) error {
	if m.config.Host == "" {
		return fmt.Errorf("smtp host not configured")
	}

	msg := gomail.NewMessage()
	msg.SetHeader("From", m.config.From)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/html", htmlBody)

	if err := m.dialer.DialAndSend(msg); err != nil {
		return fmt.Errorf("failed to send email: %v", err)
	}
	return nil
}

package alerts

import (
	"context"
	"fmt"

	"gopkg.in/gomail.v2"
)

type EmailConfig struct {
	Host     string   `yaml:"host"`
	Port     int      `yaml:"port"`
	User     string   `yaml:"user"`
	Password string   `yaml:"password"`
	From     string   `yaml:"from"`
	To       []string `yaml:"to"`
}

type Email struct {
	cfg  EmailConfig
	send func(m *gomail.Message) error
}

func NewEmail(cfg EmailConfig) *Email {
	dialer := gomail.NewDialer(cfg.Host, cfg.Port, cfg.User, cfg.Password)
	return &Email{cfg: cfg, send: func(m *gomail.Message) error { return dialer.DialAndSend(m) }}
}

func (e *Email) Notify(ctx context.Context, a Alert) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m := gomail.NewMessage()
	m.SetHeader("From", e.cfg.From)
	m.SetHeader("To", e.cfg.To...)
	m.SetHeader("Subject", "[footballhub] "+a.Subject)
	m.SetBody("text/plain", a.Body)

	if err := e.send(m); err != nil {
		return fmt.Errorf("failed to send alert email: %w", err)
	}
	return nil
}

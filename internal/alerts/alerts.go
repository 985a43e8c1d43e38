// Package alerts notifies operators when OTP delivery breaks down.
// Alerts are best effort: failures are logged by the caller, never returned
// to the end user.
package alerts

import (
	"context"
	"errors"
	"log/slog"
)

type Alert struct {
	Subject string
	Body    string
}

type Notifier interface {
	Notify(ctx context.Context, a Alert) error
}

// Nop — используется, когда ни один канал оповещений не настроен.
type Nop struct{}

func (Nop) Notify(context.Context, Alert) error { return nil }

// Multi fans an alert out to every notifier and joins their errors.
type Multi []Notifier

func (m Multi) Notify(ctx context.Context, a Alert) error {
	var errs []error
	for _, n := range m {
		if err := n.Notify(ctx, a); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Build returns the notifiers that are configured, or Nop.
func Build(cfg Config, logger *slog.Logger) Notifier {
	var out Multi
	if cfg.Telegram.Token != "" && cfg.Telegram.ChatID != 0 {
		out = append(out, NewTelegram(cfg.Telegram, nil))
	}
	if cfg.Email.Host != "" && len(cfg.Email.To) > 0 {
		out = append(out, NewEmail(cfg.Email))
	}
	if len(out) == 0 {
		logger.Info("ops alerts disabled: no telegram or email configured")
		return Nop{}
	}
	return out
}

type Config struct {
	Telegram TelegramConfig `yaml:"telegram"`
	Email    EmailConfig    `yaml:"email"`
}

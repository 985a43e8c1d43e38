// Package rate throttles OTP sends per phone number: a short cooldown between
// consecutive sends plus a cap per window that blocks the number for a while.
package rate

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var (
	ErrCooldown = errors.New("please wait before requesting another code")
	ErrBlocked  = errors.New("too many code requests; try again later")
)

// LimitError carries how long the caller should wait.
type LimitError struct {
	Err        error
	RetryAfter time.Duration
}

func (e *LimitError) Error() string {
	return fmt.Sprintf("%v (retry after %s)", e.Err, e.RetryAfter.Round(time.Second))
}

func (e *LimitError) Unwrap() error { return e.Err }

// Limiter decides whether another code may be sent to key right now.
// Refund clears the cooldown taken by the last Allow when nothing was
// delivered; the window count stays.
type Limiter interface {
	Allow(ctx context.Context, key string) error
	Refund(ctx context.Context, key string) error
}

type Config struct {
	Cooldown     time.Duration `yaml:"cooldown"`
	Window       time.Duration `yaml:"window"`
	MaxPerWindow int           `yaml:"max_per_window"`
}

func (c Config) withDefaults() Config {
	if c.Cooldown <= 0 {
		c.Cooldown = 45 * time.Second
	}
	if c.Window <= 0 {
		c.Window = 10 * time.Minute
	}
	if c.MaxPerWindow <= 0 {
		c.MaxPerWindow = 5
	}
	return c
}

// blockFor: сколько держим номер заблокированным после превышения лимита.
func (c Config) blockFor() time.Duration { return 3 * c.Window }

// Nop allows everything.
type Nop struct{}

func (Nop) Allow(context.Context, string) error { return nil }
func (Nop) Refund(context.Context, string) error { return nil }

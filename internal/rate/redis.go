package rate

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisLimiter is shared by every instance that talks to the same redis.
type RedisLimiter struct {
	rdb redis.UniversalClient
	cfg Config
}

func NewRedisLimiter(rdb redis.UniversalClient, cfg Config) *RedisLimiter {
	return &RedisLimiter{rdb: rdb, cfg: cfg.withDefaults()}
}

func (l *RedisLimiter) Allow(ctx context.Context, key string) error {
	blockKey := fmt.Sprintf("otp_rate:block:%s", key)
	lastKey := fmt.Sprintf("otp_rate:last:%s", key)
	countKey := fmt.Sprintf("otp_rate:count:%s", key)

	// 1. номер заблокирован
	if ttl, err := l.rdb.PTTL(ctx, blockKey).Result(); err != nil {
		return fmt.Errorf("rate block ttl: %w", err)
	} else if ttl > 0 {
		return &LimitError{Err: ErrBlocked, RetryAfter: ttl}
	}

	// 2. cooldown с прошлой отправки
	ok, err := l.rdb.SetNX(ctx, lastKey, "1", l.cfg.Cooldown).Result()
	if err != nil {
		return fmt.Errorf("rate cooldown: %w", err)
	}
	if !ok {
		ttl, _ := l.rdb.PTTL(ctx, lastKey).Result()
		if ttl <= 0 {
			ttl = l.cfg.Cooldown
		}
		return &LimitError{Err: ErrCooldown, RetryAfter: ttl}
	}

	// 3. счётчик в окне
	cnt, err := l.rdb.Incr(ctx, countKey).Result()
	if err != nil {
		return fmt.Errorf("rate counter: %w", err)
	}
	if cnt == 1 {
		if err := l.rdb.Expire(ctx, countKey, l.cfg.Window).Err(); err != nil {
			return fmt.Errorf("rate counter expire: %w", err)
		}
	}
	if int(cnt) > l.cfg.MaxPerWindow {
		block := l.cfg.blockFor()
		if err := l.rdb.Set(ctx, blockKey, "1", block).Err(); err != nil {
			return fmt.Errorf("rate block: %w", err)
		}
		return &LimitError{Err: ErrBlocked, RetryAfter: block}
	}
	return nil
}

func (l *RedisLimiter) Refund(ctx context.Context, key string) error {
	if err := l.rdb.Del(ctx, fmt.Sprintf("otp_rate:last:%s", key)).Err(); err != nil {
		return fmt.Errorf("rate refund: %w", err)
	}
	return nil
}

var _ Limiter = (*RedisLimiter)(nil)

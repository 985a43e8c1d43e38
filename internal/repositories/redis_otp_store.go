package repositories

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"footballhub/internal/models"
)

// keyGrace — ключ живёт дольше TTL кода, чтобы verify успел увидеть
// просроченную запись и вернуть CodeExpired, а не NoActiveCode.
const keyGrace = time.Hour

var (
	incrScript = redis.NewScript(`
if redis.call("EXISTS", KEYS[1]) == 0 then
  return -1
end
return redis.call("HINCRBY", KEYS[1], "attempts", 1)
`)

	consumeScript = redis.NewScript(`
if redis.call("HGET", KEYS[1], "id") == ARGV[1] then
  return redis.call("DEL", KEYS[1])
end
return 0
`)

	markExpiredScript = redis.NewScript(`
if redis.call("HGET", KEYS[1], "id") == ARGV[1] then
  redis.call("HSET", KEYS[1], "expired", "1")
end
return 0
`)
)

type RedisOTPStore struct {
	rdb    redis.UniversalClient
	prefix string
	now    func() time.Time
	logger *slog.Logger
}

func NewRedisOTPStore(rdb redis.UniversalClient, prefix string, now func() time.Time, logger *slog.Logger) *RedisOTPStore {
	if prefix == "" {
		prefix = "otp"
	}
	if now == nil {
		now = time.Now
	}
	return &RedisOTPStore{rdb: rdb, prefix: prefix, now: now, logger: logger}
}

func (s *RedisOTPStore) key(phoneKey string, source models.Channel) string {
	return fmt.Sprintf("%s:%s:%s", s.prefix, phoneKey, source)
}

func (s *RedisOTPStore) Put(ctx context.Context, rec *models.OTPRecord) error {
	k := s.key(rec.PhoneKey, rec.Source)
	// срок ключа считаем от часов стора, а не от часов redis
	ttl := rec.ExpiresAt.Sub(s.now()) + keyGrace
	_, err := s.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Del(ctx, k)
		p.HSet(ctx, k,
			"id", rec.ID,
			"phone_key", rec.PhoneKey,
			"source", string(rec.Source),
			"code_hash", rec.CodeHash,
			"created_at", rec.CreatedAt.UnixNano(),
			"expires_at", rec.ExpiresAt.UnixNano(),
			"attempts", rec.Attempts,
			"expired", boolFlag(rec.Expired),
		)
		p.PExpire(ctx, k, ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("put otp record: %w", err)
	}
	return nil
}

func (s *RedisOTPStore) Get(ctx context.Context, phoneKey string) (*models.OTPRecord, error) {
	return getLatest(ctx, s, phoneKey)
}

func (s *RedisOTPStore) GetBySource(ctx context.Context, phoneKey string, source models.Channel) (*models.OTPRecord, error) {
	k := s.key(phoneKey, source)
	vals, err := s.rdb.HGetAll(ctx, k).Result()
	if err != nil {
		return nil, fmt.Errorf("get otp record: %w", err)
	}
	if len(vals) == 0 {
		return nil, nil
	}
	rec, err := decodeRedisRecord(vals)
	if err != nil {
		return nil, fmt.Errorf("decode otp record %s: %w", k, err)
	}
	if !rec.Expired && markExpired(rec, s.now()).Expired {
		// флаг всё равно выводится из expires_at
		if err := markExpiredScript.Run(ctx, s.rdb, []string{k}, rec.ID).Err(); err != nil && s.logger != nil {
			s.logger.WarnContext(ctx, "mark otp expired failed", "source", rec.Source, "error", err)
		}
	}
	return rec, nil
}

func (s *RedisOTPStore) IncrementAttempts(ctx context.Context, phoneKey string, source models.Channel) (int, error) {
	n, err := incrScript.Run(ctx, s.rdb, []string{s.key(phoneKey, source)}).Int()
	if err != nil {
		return 0, fmt.Errorf("increment otp attempts: %w", err)
	}
	if n < 0 {
		return 0, ErrNotFound
	}
	return n, nil
}

func (s *RedisOTPStore) Delete(ctx context.Context, phoneKey string, source models.Channel) error {
	if err := s.rdb.Del(ctx, s.key(phoneKey, source)).Err(); err != nil {
		return fmt.Errorf("delete otp record: %w", err)
	}
	return nil
}

func (s *RedisOTPStore) Consume(ctx context.Context, phoneKey string, source models.Channel, recordID string) (bool, error) {
	n, err := consumeScript.Run(ctx, s.rdb, []string{s.key(phoneKey, source)}, recordID).Int()
	if err != nil {
		return false, fmt.Errorf("consume otp record: %w", err)
	}
	return n == 1, nil
}

func decodeRedisRecord(vals map[string]string) (*models.OTPRecord, error) {
	created, err := strconv.ParseInt(vals["created_at"], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("created_at: %w", err)
	}
	expires, err := strconv.ParseInt(vals["expires_at"], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("expires_at: %w", err)
	}
	attempts, err := strconv.Atoi(vals["attempts"])
	if err != nil {
		return nil, fmt.Errorf("attempts: %w", err)
	}
	return &models.OTPRecord{
		ID:        vals["id"],
		PhoneKey:  vals["phone_key"],
		Source:    models.Channel(vals["source"]),
		CodeHash:  vals["code_hash"],
		CreatedAt: time.Unix(0, created).UTC(),
		ExpiresAt: time.Unix(0, expires).UTC(),
		Attempts:  attempts,
		Expired:   vals["expired"] == "1",
	}, nil
}

func boolFlag(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

var _ OTPStore = (*RedisOTPStore)(nil)

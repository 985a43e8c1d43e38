package repositories

import (
	"context"
	"errors"
	"time"

	"footballhub/internal/models"
)

var ErrNotFound = errors.New("otp record not found")

// OTPStore — хранилище активных кодов. Одна запись на пару (phoneKey, source).
// Отсутствующая запись возвращается как (nil, nil).
type OTPStore interface {
	Put(ctx context.Context, rec *models.OTPRecord) error
	// Get — самая свежая запись по номеру среди всех каналов.
	Get(ctx context.Context, phoneKey string) (*models.OTPRecord, error)
	GetBySource(ctx context.Context, phoneKey string, source models.Channel) (*models.OTPRecord, error)
	// IncrementAttempts атомарно увеличивает счётчик и возвращает новое значение.
	IncrementAttempts(ctx context.Context, phoneKey string, source models.Channel) (int, error)
	Delete(ctx context.Context, phoneKey string, source models.Channel) error
	// Consume удаляет запись, только если она всё ещё та же (recordID).
	// false: запись уже удалена или перезаписана другим запросом.
	Consume(ctx context.Context, phoneKey string, source models.Channel, recordID string) (bool, error)
}

// markExpired — ленивая проверка TTL при чтении.
func markExpired(rec *models.OTPRecord, now time.Time) *models.OTPRecord {
	if rec != nil && !rec.Expired && rec.IsExpiredAt(now) {
		rec.Expired = true
	}
	return rec
}

// latest picks the newest record, or nil.
func latest(recs ...*models.OTPRecord) *models.OTPRecord {
	var out *models.OTPRecord
	for _, r := range recs {
		if r == nil {
			continue
		}
		if out == nil || r.CreatedAt.After(out.CreatedAt) {
			out = r
		}
	}
	return out
}

func getLatest(ctx context.Context, s OTPStore, phoneKey string) (*models.OTPRecord, error) {
	recs := make([]*models.OTPRecord, 0, len(models.Channels))
	for _, ch := range models.Channels {
		rec, err := s.GetBySource(ctx, phoneKey, ch)
		if err != nil {
			return nil, err
		}
		recs = append(recs, rec)
	}
	return latest(recs...), nil
}

package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"sync"
	"time"

	"footballhub/internal/models"
)

// DeliveryLog — журнал вызовов провайдеров для отчётов и разбора инцидентов.
type DeliveryLog interface {
	Record(ctx context.Context, a models.DeliveryAttempt) error
	Summary(ctx context.Context, since time.Time) ([]models.ChannelStat, error)
}

type PostgresDeliveryLog struct {
	DB *sql.DB
}

func NewPostgresDeliveryLog(db *sql.DB) *PostgresDeliveryLog {
	return &PostgresDeliveryLog{DB: db}
}

func (r *PostgresDeliveryLog) Record(ctx context.Context, a models.DeliveryAttempt) error {
	const q = `
		INSERT INTO otp_delivery_log (id, phone_masked, country_code, channel, provider, attempt, ok, error_kind, duration_ms, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	if _, err := r.DB.ExecContext(ctx, q,
		a.ID, a.PhoneMasked, a.CountryCode, string(a.Channel), a.Provider, a.Attempt, a.OK, a.ErrorKind,
		a.Duration.Milliseconds(), a.CreatedAt,
	); err != nil {
		return fmt.Errorf("record delivery attempt: %w", err)
	}
	return nil
}

func (r *PostgresDeliveryLog) Summary(ctx context.Context, since time.Time) ([]models.ChannelStat, error) {
	const q = `
		SELECT channel, provider,
		       COUNT(*) FILTER (WHERE ok) AS sent,
		       COUNT(*) FILTER (WHERE NOT ok) AS failed
		FROM otp_delivery_log
		WHERE created_at >= $1
		GROUP BY channel, provider
		ORDER BY channel, provider
	`
	rows, err := r.DB.QueryContext(ctx, q, since)
	if err != nil {
		return nil, fmt.Errorf("delivery summary: %w", err)
	}
	defer rows.Close()

	var stats []models.ChannelStat
	for rows.Next() {
		var (
			st      models.ChannelStat
			channel string
		)
		if err := rows.Scan(&channel, &st.Provider, &st.Sent, &st.Failed); err != nil {
			return nil, fmt.Errorf("scan delivery summary: %w", err)
		}
		st.Channel = models.Channel(channel)
		stats = append(stats, st)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("delivery summary rows: %w", err)
	}
	return stats, nil
}

// MemoryDeliveryLog keeps the last max attempts in a ring.
type MemoryDeliveryLog struct {
	mu       sync.Mutex
	attempts []models.DeliveryAttempt
	max      int
}

func NewMemoryDeliveryLog(max int) *MemoryDeliveryLog {
	if max <= 0 {
		max = 10000
	}
	return &MemoryDeliveryLog{max: max}
}

func (l *MemoryDeliveryLog) Record(_ context.Context, a models.DeliveryAttempt) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.attempts) >= l.max {
		l.attempts = l.attempts[1:]
	}
	l.attempts = append(l.attempts, a)
	return nil
}

func (l *MemoryDeliveryLog) Summary(_ context.Context, since time.Time) ([]models.ChannelStat, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	type key struct {
		ch       models.Channel
		provider string
	}
	agg := map[key]*models.ChannelStat{}
	for _, a := range l.attempts {
		if a.CreatedAt.Before(since) {
			continue
		}
		k := key{a.Channel, a.Provider}
		st, ok := agg[k]
		if !ok {
			st = &models.ChannelStat{Channel: a.Channel, Provider: a.Provider}
			agg[k] = st
		}
		if a.OK {
			st.Sent++
		} else {
			st.Failed++
		}
	}

	out := make([]models.ChannelStat, 0, len(agg))
	for _, st := range agg {
		out = append(out, *st)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Channel != out[j].Channel {
			return out[i].Channel < out[j].Channel
		}
		return out[i].Provider < out[j].Provider
	})
	return out, nil
}

var (
	_ DeliveryLog = (*PostgresDeliveryLog)(nil)
	_ DeliveryLog = (*MemoryDeliveryLog)(nil)
)

package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"footballhub/internal/models"
)

type PostgresOTPStore struct {
	DB     *sql.DB
	now    func() time.Time
	logger *slog.Logger
}

func NewPostgresOTPStore(db *sql.DB, now func() time.Time, logger *slog.Logger) *PostgresOTPStore {
	if now == nil {
		now = time.Now
	}
	return &PostgresOTPStore{DB: db, now: now, logger: logger}
}

// Put — upsert: новая отправка перезаписывает прежнюю запись и сбрасывает счётчик.
func (r *PostgresOTPStore) Put(ctx context.Context, rec *models.OTPRecord) error {
	const q = `
		INSERT INTO otp_records (phone_key, source, id, code_hash, created_at, expires_at, attempts, expired)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (phone_key, source) DO UPDATE
		SET id = EXCLUDED.id,
		    code_hash = EXCLUDED.code_hash,
		    created_at = EXCLUDED.created_at,
		    expires_at = EXCLUDED.expires_at,
		    attempts = EXCLUDED.attempts,
		    expired = EXCLUDED.expired
	`
	if _, err := r.DB.ExecContext(ctx, q,
		rec.PhoneKey, string(rec.Source), rec.ID, rec.CodeHash, rec.CreatedAt, rec.ExpiresAt, rec.Attempts, rec.Expired,
	); err != nil {
		return fmt.Errorf("put otp record: %w", err)
	}
	return nil
}

func (r *PostgresOTPStore) Get(ctx context.Context, phoneKey string) (*models.OTPRecord, error) {
	const q = `
		SELECT id, phone_key, source, code_hash, created_at, expires_at, attempts, expired
		FROM otp_records
		WHERE phone_key = $1
		ORDER BY created_at DESC
		LIMIT 1
	`
	rec, err := r.scanOne(r.DB.QueryRowContext(ctx, q, phoneKey))
	if err != nil {
		return nil, fmt.Errorf("get otp record: %w", err)
	}
	return r.checkExpiry(ctx, rec), nil
}

func (r *PostgresOTPStore) GetBySource(ctx context.Context, phoneKey string, source models.Channel) (*models.OTPRecord, error) {
	const q = `
		SELECT id, phone_key, source, code_hash, created_at, expires_at, attempts, expired
		FROM otp_records
		WHERE phone_key = $1 AND source = $2
	`
	rec, err := r.scanOne(r.DB.QueryRowContext(ctx, q, phoneKey, string(source)))
	if err != nil {
		return nil, fmt.Errorf("get otp record by source: %w", err)
	}
	return r.checkExpiry(ctx, rec), nil
}

func (r *PostgresOTPStore) IncrementAttempts(ctx context.Context, phoneKey string, source models.Channel) (int, error) {
	const q = `
		UPDATE otp_records
		SET attempts = attempts + 1
		WHERE phone_key = $1 AND source = $2
		RETURNING attempts
	`
	var attempts int
	if err := r.DB.QueryRowContext(ctx, q, phoneKey, string(source)).Scan(&attempts); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, ErrNotFound
		}
		return 0, fmt.Errorf("increment otp attempts: %w", err)
	}
	return attempts, nil
}

func (r *PostgresOTPStore) Delete(ctx context.Context, phoneKey string, source models.Channel) error {
	if _, err := r.DB.ExecContext(ctx, `DELETE FROM otp_records WHERE phone_key = $1 AND source = $2`, phoneKey, string(source)); err != nil {
		return fmt.Errorf("delete otp record: %w", err)
	}
	return nil
}

func (r *PostgresOTPStore) Consume(ctx context.Context, phoneKey string, source models.Channel, recordID string) (bool, error) {
	res, err := r.DB.ExecContext(ctx,
		`DELETE FROM otp_records WHERE phone_key = $1 AND source = $2 AND id = $3`,
		phoneKey, string(source), recordID,
	)
	if err != nil {
		return false, fmt.Errorf("consume otp record: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("consume otp record: %w", err)
	}
	return n == 1, nil
}

func (r *PostgresOTPStore) scanOne(row *sql.Row) (*models.OTPRecord, error) {
	var (
		rec    models.OTPRecord
		source string
	)
	if err := row.Scan(
		&rec.ID, &rec.PhoneKey, &source, &rec.CodeHash, &rec.CreatedAt, &rec.ExpiresAt, &rec.Attempts, &rec.Expired,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	rec.Source = models.Channel(source)
	return &rec, nil
}

// checkExpiry помечает просроченную запись; сам флаг в БД best effort.
func (r *PostgresOTPStore) checkExpiry(ctx context.Context, rec *models.OTPRecord) *models.OTPRecord {
	if rec == nil || rec.Expired {
		return rec
	}
	if !markExpired(rec, r.now()).Expired {
		return rec
	}
	const q = `UPDATE otp_records SET expired = TRUE WHERE phone_key = $1 AND source = $2 AND id = $3`
	if _, err := r.DB.ExecContext(ctx, q, rec.PhoneKey, string(rec.Source), rec.ID); err != nil && r.logger != nil {
		r.logger.WarnContext(ctx, "mark otp expired failed", "source", rec.Source, "error", err)
	}
	return rec
}

var _ OTPStore = (*PostgresOTPStore)(nil)

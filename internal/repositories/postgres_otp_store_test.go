package repositories_test

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"footballhub/internal/models"
	"footballhub/internal/repositories"
)

var otpColumns = []string{"id", "phone_key", "source", "code_hash", "created_at", "expires_at", "attempts", "expired"}

func newPostgresStore(t *testing.T, clock *fakeClock) (*repositories.PostgresOTPStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		_ = db.Close()
	})
	return repositories.NewPostgresOTPStore(db, clock.Now, quietLogger()), mock
}

func TestPostgresOTPStore_Put(t *testing.T) {
	clock := newFakeClock()
	s, mock := newPostgresStore(t, clock)
	rec := newRecord(clock, "r1", models.ChannelSMS)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO otp_records")).
		WithArgs(rec.PhoneKey, "sms", "r1", "hash-r1", rec.CreatedAt, rec.ExpiresAt, 0, false).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, s.Put(context.Background(), rec))
}

func TestPostgresOTPStore_GetBySource(t *testing.T) {
	clock := newFakeClock()
	s, mock := newPostgresStore(t, clock)
	rec := newRecord(clock, "r1", models.ChannelWhatsApp)

	mock.ExpectQuery(regexp.QuoteMeta("FROM otp_records")).
		WithArgs(rec.PhoneKey, "whatsapp").
		WillReturnRows(sqlmock.NewRows(otpColumns).
			AddRow("r1", rec.PhoneKey, "whatsapp", "hash-r1", rec.CreatedAt, rec.ExpiresAt, 2, false))

	got, err := s.GetBySource(context.Background(), rec.PhoneKey, models.ChannelWhatsApp)

	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, models.ChannelWhatsApp, got.Source)
	assert.Equal(t, 2, got.Attempts)
	assert.False(t, got.Expired)
}

func TestPostgresOTPStore_GetMissing(t *testing.T) {
	s, mock := newPostgresStore(t, newFakeClock())

	mock.ExpectQuery(regexp.QuoteMeta("FROM otp_records")).
		WithArgs("+201001234567").
		WillReturnError(sql.ErrNoRows)

	got, err := s.Get(context.Background(), "+201001234567")

	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestPostgresOTPStore_GetMarksExpired(t *testing.T) {
	clock := newFakeClock()
	s, mock := newPostgresStore(t, clock)
	rec := newRecord(clock, "r1", models.ChannelSMS)
	clock.Advance(6 * time.Minute)

	mock.ExpectQuery(regexp.QuoteMeta("ORDER BY created_at DESC")).
		WithArgs(rec.PhoneKey).
		WillReturnRows(sqlmock.NewRows(otpColumns).
			AddRow("r1", rec.PhoneKey, "sms", "hash-r1", rec.CreatedAt, rec.ExpiresAt, 0, false))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE otp_records SET expired = TRUE")).
		WithArgs(rec.PhoneKey, "sms", "r1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	got, err := s.Get(context.Background(), rec.PhoneKey)

	require.NoError(t, err)
	require.NotNil(t, got)
	assert.True(t, got.Expired)
}

func TestPostgresOTPStore_IncrementAttempts(t *testing.T) {
	s, mock := newPostgresStore(t, newFakeClock())

	mock.ExpectQuery(regexp.QuoteMeta("SET attempts = attempts + 1")).
		WithArgs("+201001234567", "sms").
		WillReturnRows(sqlmock.NewRows([]string{"attempts"}).AddRow(3))
	mock.ExpectQuery(regexp.QuoteMeta("SET attempts = attempts + 1")).
		WithArgs("+201001234567", "whatsapp").
		WillReturnError(sql.ErrNoRows)

	n, err := s.IncrementAttempts(context.Background(), "+201001234567", models.ChannelSMS)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	_, err = s.IncrementAttempts(context.Background(), "+201001234567", models.ChannelWhatsApp)
	assert.ErrorIs(t, err, repositories.ErrNotFound)
}

func TestPostgresOTPStore_Consume(t *testing.T) {
	s, mock := newPostgresStore(t, newFakeClock())
	const q = "DELETE FROM otp_records WHERE phone_key = $1 AND source = $2 AND id = $3"

	mock.ExpectExec(regexp.QuoteMeta(q)).
		WithArgs("+201001234567", "sms", "r1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(q)).
		WithArgs("+201001234567", "sms", "r1").
		WillReturnResult(sqlmock.NewResult(0, 0))

	ok, err := s.Consume(context.Background(), "+201001234567", models.ChannelSMS, "r1")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.Consume(context.Background(), "+201001234567", models.ChannelSMS, "r1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestPostgresOTPStore_Delete(t *testing.T) {
	s, mock := newPostgresStore(t, newFakeClock())

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM otp_records WHERE phone_key = $1 AND source = $2")).
		WithArgs("+201001234567", "whatsapp").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, s.Delete(context.Background(), "+201001234567", models.ChannelWhatsApp))
}

package repositories_test

import (
	"context"
	"io"
	"log/slog"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"footballhub/internal/models"
	"footballhub/internal/repositories"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func attempt(at time.Time, ch models.Channel, provider string, ok bool) models.DeliveryAttempt {
	return models.DeliveryAttempt{
		ID:          provider + at.String(),
		PhoneMasked: "+20*******567",
		CountryCode: "20",
		Channel:     ch,
		Provider:    provider,
		Attempt:     1,
		OK:          ok,
		CreatedAt:   at,
	}
}

func TestMemoryDeliveryLog_Summary(t *testing.T) {
	ctx := context.Background()
	l := repositories.NewMemoryDeliveryLog(0)
	base := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, l.Record(ctx, attempt(base.Add(-time.Hour), models.ChannelSMS, "mobizon", true)))
	require.NoError(t, l.Record(ctx, attempt(base, models.ChannelSMS, "mobizon", true)))
	require.NoError(t, l.Record(ctx, attempt(base.Add(time.Minute), models.ChannelSMS, "mobizon", false)))
	require.NoError(t, l.Record(ctx, attempt(base.Add(2*time.Minute), models.ChannelWhatsApp, "whatsapp_cloud", true)))

	stats, err := l.Summary(ctx, base)

	require.NoError(t, err)
	assert.Equal(t, []models.ChannelStat{
		{Channel: models.ChannelSMS, Provider: "mobizon", Sent: 1, Failed: 1},
		{Channel: models.ChannelWhatsApp, Provider: "whatsapp_cloud", Sent: 1},
	}, stats)
}

func TestMemoryDeliveryLog_Bounded(t *testing.T) {
	ctx := context.Background()
	l := repositories.NewMemoryDeliveryLog(2)
	base := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)

	for i := 0; i < 5; i++ {
		require.NoError(t, l.Record(ctx, attempt(base.Add(time.Duration(i)*time.Second), models.ChannelSMS, "mobizon", true)))
	}

	stats, err := l.Summary(ctx, time.Time{})
	require.NoError(t, err)
	require.Len(t, stats, 1)
	assert.Equal(t, 2, stats[0].Sent)
}

func TestPostgresDeliveryLog(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	l := repositories.NewPostgresDeliveryLog(db)
	ctx := context.Background()
	at := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	a := attempt(at, models.ChannelSMS, "mobizon", false)
	a.ErrorKind = "transient_provider_error"
	a.Duration = 1500 * time.Millisecond

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO otp_delivery_log")).
		WithArgs(a.ID, a.PhoneMasked, "20", "sms", "mobizon", 1, false, "transient_provider_error", int64(1500), at).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta("FROM otp_delivery_log")).
		WithArgs(at).
		WillReturnRows(sqlmock.NewRows([]string{"channel", "provider", "sent", "failed"}).
			AddRow("sms", "mobizon", 4, 1).
			AddRow("whatsapp", "green", 2, 0))

	require.NoError(t, l.Record(ctx, a))
	stats, err := l.Summary(ctx, at)

	require.NoError(t, err)
	assert.Equal(t, []models.ChannelStat{
		{Channel: models.ChannelSMS, Provider: "mobizon", Sent: 4, Failed: 1},
		{Channel: models.ChannelWhatsApp, Provider: "green", Sent: 2},
	}, stats)
	assert.NoError(t, mock.ExpectationsWereMet())
}

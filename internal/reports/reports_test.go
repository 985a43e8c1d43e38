package reports_test

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"footballhub/internal/models"
	"footballhub/internal/reports"
	"footballhub/internal/repositories"
)

func TestSummaryAndPDF(t *testing.T) {
	ctx := context.Background()
	log := repositories.NewMemoryDeliveryLog(0)
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	for i, ok := range []bool{true, true, true, false} {
		require.NoError(t, log.Record(ctx, models.DeliveryAttempt{
			ID:        string(rune('a' + i)),
			Channel:   models.ChannelWhatsApp,
			Provider:  "whatsapp_cloud",
			OK:        ok,
			CreatedAt: now.Add(-time.Duration(i) * time.Minute),
		}))
	}
	svc := reports.NewService(log, "")
	svc.Now = func() time.Time { return now }

	sum, err := svc.Summary(ctx, now.Add(-24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 3, sum.Sent)
	assert.Equal(t, 1, sum.Failed)
	assert.InDelta(t, 0.75, sum.SuccessRate, 1e-9)

	var buf bytes.Buffer
	require.NoError(t, svc.RenderPDF(&buf, sum))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")))
}

func TestSummary_Empty(t *testing.T) {
	svc := reports.NewService(repositories.NewMemoryDeliveryLog(0), "")

	sum, err := svc.Summary(context.Background(), time.Now().Add(-time.Hour))

	require.NoError(t, err)
	assert.NotNil(t, sum.Stats)
	assert.Zero(t, sum.SuccessRate)

	var buf bytes.Buffer
	require.NoError(t, svc.RenderPDF(&buf, sum))
	assert.NotZero(t, buf.Len())
}

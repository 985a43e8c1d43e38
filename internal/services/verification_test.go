package services_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"footballhub/internal/models"
	"footballhub/internal/phone"
	"footballhub/internal/services"
)

func sendWhatsApp(t *testing.T) (*harness, string) {
	t.Helper()
	wa := newFake("wa", models.ChannelWhatsApp, true)
	h := newHarness(t, harnessOpts{}, wa)
	_, err := h.delivery.SendOTP(context.Background(), services.SendRequest{RawPhone: "+966501234567"})
	require.NoError(t, err)
	return h, wa.lastCode(t)
}

func wrongCode(code string) string {
	b := []byte(code)
	b[len(b)-1] = '0' + (b[len(b)-1]-'0'+1)%10
	return string(b)
}

func TestVerify_Success(t *testing.T) {
	h, code := sendWhatsApp(t)

	out, err := h.verify.Verify(context.Background(), services.VerifyRequest{RawPhone: "00966 50 123 4567", Code: code})

	require.NoError(t, err)
	assert.Equal(t, "+966501234567", out.PhoneKey)
	assert.Equal(t, models.ChannelWhatsApp, out.Source)
}

// A successful verify consumes the record; the same code then has nothing to match.
func TestVerify_OneTimeUse(t *testing.T) {
	h, code := sendWhatsApp(t)
	ctx := context.Background()

	_, err := h.verify.Verify(ctx, services.VerifyRequest{RawPhone: "+966501234567", Code: code})
	require.NoError(t, err)

	_, err = h.verify.Verify(ctx, services.VerifyRequest{RawPhone: "+966501234567", Code: code})
	assert.ErrorIs(t, err, services.ErrNoActiveCode)
}

func TestVerify_ExpiredRegardlessOfCode(t *testing.T) {
	h, code := sendWhatsApp(t)
	ctx := context.Background()
	h.clock.Advance(5*time.Minute + time.Second)

	_, err := h.verify.Verify(ctx, services.VerifyRequest{RawPhone: "+966501234567", Code: code})
	assert.ErrorIs(t, err, services.ErrCodeExpired)

	_, err = h.verify.Verify(ctx, services.VerifyRequest{RawPhone: "+966501234567", Code: wrongCode(code)})
	assert.ErrorIs(t, err, services.ErrCodeExpired)

	rec, err := h.store.Get(ctx, "+966501234567")
	require.NoError(t, err)
	assert.Zero(t, rec.Attempts, "expired checks must not count as attempts")
}

func TestVerify_Lockout(t *testing.T) {
	h, code := sendWhatsApp(t)
	ctx := context.Background()
	bad := wrongCode(code)

	_, err := h.verify.Verify(ctx, services.VerifyRequest{RawPhone: "+966501234567", Code: bad})
	assert.ErrorIs(t, err, services.ErrCodeMismatch)
	_, err = h.verify.Verify(ctx, services.VerifyRequest{RawPhone: "+966501234567", Code: bad})
	assert.ErrorIs(t, err, services.ErrCodeMismatch)
	_, err = h.verify.Verify(ctx, services.VerifyRequest{RawPhone: "+966501234567", Code: bad})
	assert.ErrorIs(t, err, services.ErrTooManyAttempts)

	_, err = h.verify.Verify(ctx, services.VerifyRequest{RawPhone: "+966501234567", Code: code})
	assert.ErrorIs(t, err, services.ErrTooManyAttempts)
}

func TestVerify_NewSendResetsAttempts(t *testing.T) {
	wa := newFake("wa", models.ChannelWhatsApp, true)
	h := newHarness(t, harnessOpts{}, wa)
	ctx := context.Background()
	_, err := h.delivery.SendOTP(ctx, services.SendRequest{RawPhone: "+966501234567"})
	require.NoError(t, err)
	bad := wrongCode(wa.lastCode(t))
	for i := 0; i < 3; i++ {
		_, _ = h.verify.Verify(ctx, services.VerifyRequest{RawPhone: "+966501234567", Code: bad})
	}

	_, err = h.delivery.SendOTP(ctx, services.SendRequest{RawPhone: "+966501234567"})
	require.NoError(t, err)

	_, err = h.verify.Verify(ctx, services.VerifyRequest{RawPhone: "+966501234567", Code: wa.lastCode(t)})
	assert.NoError(t, err)
}

func TestVerify_NoActiveCode(t *testing.T) {
	h, code := sendWhatsApp(t)
	ctx := context.Background()

	_, err := h.verify.Verify(ctx, services.VerifyRequest{RawPhone: "+201001234567", Code: code})
	assert.ErrorIs(t, err, services.ErrNoActiveCode)

	_, err = h.verify.Verify(ctx, services.VerifyRequest{RawPhone: "+966501234567", Code: code, Source: models.ChannelSMS})
	assert.ErrorIs(t, err, services.ErrNoActiveCode)
}

func TestVerify_InvalidPhone(t *testing.T) {
	h, code := sendWhatsApp(t)

	_, err := h.verify.Verify(context.Background(), services.VerifyRequest{RawPhone: "abc", Code: code})

	assert.ErrorIs(t, err, phone.ErrInvalidPhoneFormat)
}

// Concurrent verifies with the right code: exactly one wins, the rest see NoActiveCode.
func TestVerify_ConcurrentSuccessIsSingle(t *testing.T) {
	h, code := sendWhatsApp(t)
	ctx := context.Background()

	const n = 8
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		success int
		noCode  int
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := h.verify.Verify(ctx, services.VerifyRequest{RawPhone: "+966501234567", Code: code})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				success++
			case assert.ErrorIs(t, err, services.ErrNoActiveCode):
				noCode++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, success)
	assert.Equal(t, n-1, noCode)
}

// Concurrent wrong codes never push attempts past what was submitted.
func TestVerify_ConcurrentMismatchesCountOnce(t *testing.T) {
	h, code := sendWhatsApp(t)
	ctx := context.Background()
	h.verify.MaxAttempts = 100

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = h.verify.Verify(ctx, services.VerifyRequest{RawPhone: "+966501234567", Code: wrongCode(code)})
		}()
	}
	wg.Wait()

	rec, err := h.store.Get(ctx, "+966501234567")
	require.NoError(t, err)
	assert.Equal(t, 10, rec.Attempts)
}

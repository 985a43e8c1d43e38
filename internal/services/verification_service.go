package services

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"footballhub/internal/models"
	"footballhub/internal/phone"
	"footballhub/internal/repositories"
)

type VerifyRequest struct {
	RawPhone string
	Code     string
	// Пустой Source: проверяем самую свежую запись по номеру.
	Source models.Channel
}

type VerifyResult struct {
	PhoneKey string         `json:"phoneNumber"`
	Source   models.Channel `json:"source"`
}

type VerificationService struct {
	Store       repositories.OTPStore
	Hasher      CodeHasher
	MaxAttempts int
	Logger      *slog.Logger
	Now         func() time.Time
}

func NewVerificationService(store repositories.OTPStore, policy OTPPolicy, logger *slog.Logger) *VerificationService {
	policy = policy.WithDefaults()
	return &VerificationService{
		Store:       store,
		Hasher:      BcryptHasher{Cost: policy.BcryptCost},
		MaxAttempts: policy.MaxAttempts,
		Logger:      logger.With("component", "otp_verify"),
		Now:         time.Now,
	}
}

// Verify проверяет код. Состояния записи:
// PENDING -> VERIFIED (запись удалена), EXPIRED, LOCKED, PENDING (attempts+1).
func (s *VerificationService) Verify(ctx context.Context, req VerifyRequest) (*VerifyResult, error) {
	phoneKey, _, err := phone.Normalize(req.RawPhone)
	if err != nil && !errors.Is(err, phone.ErrUnknownCountry) {
		return nil, err
	}

	var rec *models.OTPRecord
	if req.Source != models.ChannelNone {
		rec, err = s.Store.GetBySource(ctx, phoneKey, req.Source)
	} else {
		rec, err = s.Store.Get(ctx, phoneKey)
	}
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, ErrNoActiveCode
	}
	log := s.Logger.With("phone", phone.Mask(phoneKey), "source", rec.Source)

	if rec.Expired || rec.IsExpiredAt(s.Now()) {
		log.InfoContext(ctx, "otp expired")
		return nil, ErrCodeExpired
	}
	if rec.Attempts >= s.MaxAttempts {
		return nil, ErrTooManyAttempts
	}

	if !s.Hasher.Compare(rec.CodeHash, req.Code) {
		n, err := s.Store.IncrementAttempts(ctx, phoneKey, rec.Source)
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrNoActiveCode
		}
		if err != nil {
			return nil, err
		}
		log.InfoContext(ctx, "otp mismatch", "attempts", n)
		if n >= s.MaxAttempts {
			return nil, ErrTooManyAttempts
		}
		return nil, ErrCodeMismatch
	}

	ok, err := s.Store.Consume(ctx, phoneKey, rec.Source, rec.ID)
	if err != nil {
		return nil, err
	}
	if !ok {
		// другой запрос успел раньше, либо код перевыпущен
		return nil, ErrNoActiveCode
	}
	log.InfoContext(ctx, "otp verified")
	return &VerifyResult{PhoneKey: phoneKey, Source: rec.Source}, nil
}

package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"footballhub/internal/alerts"
	"footballhub/internal/models"
	"footballhub/internal/phone"
	"footballhub/internal/providers"
	"footballhub/internal/rate"
	"footballhub/internal/repositories"
)

// Статусы отправки
const (
	StatusDelivered = "delivered"
	StatusPartial   = "partial"
	StatusDevMode   = "dev_mode"
	StatusFailed    = "failed"
)

// ErrorKindStore: провайдер принял сообщение, но запись не сохранилась.
const ErrorKindStore = "store_error"

// OTPPolicy — настройки жизненного цикла кода.
type OTPPolicy struct {
	TTL         time.Duration `yaml:"ttl"`
	MaxAttempts int           `yaml:"max_attempts"`
	CodeLength  int           `yaml:"code_length"`
	Retries     int           `yaml:"retries"`
	DevMode     bool          `yaml:"dev_mode"`
	BcryptCost  int           `yaml:"bcrypt_cost"`
}

func (p OTPPolicy) WithDefaults() OTPPolicy {
	if p.TTL <= 0 {
		p.TTL = 5 * time.Minute
	}
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = 3
	}
	if p.CodeLength == 0 {
		p.CodeLength = MaxCodeLength
	}
	if p.Retries < 0 {
		p.Retries = 0
	}
	return p
}

// Router is the part of routing.Router the service needs.
type Router interface {
	Route(countryCode string) models.ChannelPlan
	RouteUnknown() (models.ChannelPlan, error)
}

// ProviderSource is the part of providers.Registry the service needs.
type ProviderSource interface {
	For(ch models.Channel) (providers.Provider, bool)
	AnyConfigured() bool
}

type SendRequest struct {
	RawPhone    string
	DisplayName string
	Lang        string
	CodeLength  int
	// 0 = OTPPolicy.TTL
	TTL time.Duration
}

// ChannelAttempt is the outcome of one channel after all retries.
type ChannelAttempt struct {
	Channel   models.Channel `json:"channel"`
	Provider  string         `json:"provider"`
	Tries     int            `json:"tries"`
	OK        bool           `json:"ok"`
	ErrorKind string         `json:"errorKind,omitempty"`

	storeErr error
}

type SendResult struct {
	PhoneKey          string           `json:"phoneNumber"`
	CountryCode       string           `json:"countryCode"`
	ChannelsAttempted []ChannelAttempt `json:"channelsAttempted"`
	Delivered         []models.Channel `json:"delivered"`
	Status            string           `json:"status"`
	// DevCode заполняется только в dev-режиме.
	DevCode string `json:"-"`
}

type DeliveryService struct {
	Store     repositories.OTPStore
	Log       repositories.DeliveryLog
	Router    Router
	Providers ProviderSource
	Limiter   rate.Limiter
	Alerts    alerts.Notifier
	Hasher    CodeHasher
	Policy    OTPPolicy
	Logger    *slog.Logger
	Now       func() time.Time
}

func NewDeliveryService(
	store repositories.OTPStore,
	deliveryLog repositories.DeliveryLog,
	router Router,
	registry ProviderSource,
	limiter rate.Limiter,
	notifier alerts.Notifier,
	policy OTPPolicy,
	logger *slog.Logger,
) *DeliveryService {
	if limiter == nil {
		limiter = rate.Nop{}
	}
	if notifier == nil {
		notifier = alerts.Nop{}
	}
	if deliveryLog == nil {
		deliveryLog = repositories.NewMemoryDeliveryLog(0)
	}
	policy = policy.WithDefaults()
	return &DeliveryService{
		Store:     store,
		Log:       deliveryLog,
		Router:    router,
		Providers: registry,
		Limiter:   limiter,
		Alerts:    notifier,
		Hasher:    BcryptHasher{Cost: policy.BcryptCost},
		Policy:    policy,
		Logger:    logger.With("component", "otp_delivery"),
		Now:       time.Now,
	}
}

// SendOTP генерирует код, доставляет его по плану страны и сохраняет
// запись для каждого канала, который принял сообщение.
func (s *DeliveryService) SendOTP(ctx context.Context, req SendRequest) (*SendResult, error) {
	phoneKey, cc, err := phone.Normalize(req.RawPhone)
	var plan models.ChannelPlan
	switch {
	case errors.Is(err, phone.ErrUnknownCountry):
		plan, err = s.Router.RouteUnknown()
		if err != nil {
			return nil, err
		}
	case err != nil:
		return nil, err
	default:
		plan = s.Router.Route(cc)
	}

	length := req.CodeLength
	if length == 0 {
		length = s.Policy.CodeLength
	}
	if length < MinCodeLength || length > MaxCodeLength {
		return nil, ErrInvalidCodeLength
	}
	ttl := req.TTL
	if ttl <= 0 {
		ttl = s.Policy.TTL
	}

	if err := s.Limiter.Allow(ctx, phoneKey); err != nil {
		return nil, err
	}

	result := &SendResult{PhoneKey: phoneKey, CountryCode: cc}
	msg := providers.Message{PhoneKey: phoneKey, DisplayName: req.DisplayName, Lang: req.Lang, TTL: ttl}

	if s.Policy.DevMode && !s.Providers.AnyConfigured() {
		return s.sendDevMode(ctx, result, length, ttl)
	}

	if plan.Dual {
		err = s.sendDual(ctx, plan, msg, cc, length, result)
	} else {
		err = s.sendSingle(ctx, plan, msg, cc, length, result)
	}
	if err != nil {
		s.refund(ctx, phoneKey)
		return nil, err
	}

	if len(result.Delivered) == 0 {
		s.refund(ctx, phoneKey)
		for _, a := range result.ChannelsAttempted {
			if a.storeErr != nil {
				return nil, a.storeErr
			}
		}
		result.Status = StatusFailed
		s.alertFailure(ctx, result)
		return result, ErrDeliveryFailed
	}
	s.dropSuperseded(ctx, phoneKey, result.Delivered)

	switch {
	case plan.Dual && len(result.Delivered) < len(plan.Channels()):
		result.Status = StatusPartial
	default:
		result.Status = StatusDelivered
	}
	s.Logger.InfoContext(ctx, "otp sent",
		"phone", phone.Mask(phoneKey), "status", result.Status, "delivered", result.Delivered)
	return result, nil
}

// sendSingle — основной канал, при неудаче запасной со свежим кодом.
func (s *DeliveryService) sendSingle(ctx context.Context, plan models.ChannelPlan, msg providers.Message, cc string, length int, result *SendResult) error {
	for _, ch := range plan.Channels() {
		att, err := s.deliver(ctx, ch, msg, cc, length)
		if err != nil {
			return err
		}
		result.ChannelsAttempted = append(result.ChannelsAttempted, att)
		if att.OK {
			result.Delivered = append(result.Delivered, ch)
			return nil
		}
		if ctx.Err() != nil {
			return nil
		}
	}
	return nil
}

// sendDual — оба канала параллельно, у каждого свой код и свой контекст.
// Падение одного канала не отменяет другой.
func (s *DeliveryService) sendDual(ctx context.Context, plan models.ChannelPlan, msg providers.Message, cc string, length int, result *SendResult) error {
	channels := plan.Channels()
	attempts := make([]ChannelAttempt, len(channels))

	var g errgroup.Group
	for i, ch := range channels {
		g.Go(func() error {
			chCtx, cancel := context.WithCancel(ctx)
			defer cancel()
			att, err := s.deliver(chCtx, ch, msg, cc, length)
			attempts[i] = att
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	for _, att := range attempts {
		result.ChannelsAttempted = append(result.ChannelsAttempted, att)
		if att.OK {
			result.Delivered = append(result.Delivered, att.Channel)
		}
	}
	return nil
}

// deliver sends a fresh code over ch, retrying transient failures, and stores
// the record on success. A store failure only marks the attempt as failed;
// the returned error is reserved for code generation.
func (s *DeliveryService) deliver(ctx context.Context, ch models.Channel, msg providers.Message, cc string, length int) (ChannelAttempt, error) {
	att := ChannelAttempt{Channel: ch}

	p, ok := s.Providers.For(ch)
	if !ok {
		att.ErrorKind = string(providers.ErrorConfiguration)
		s.Logger.WarnContext(ctx, "no provider registered", "channel", ch)
		return att, nil
	}
	att.Provider = p.Name()

	code, err := GenerateCode(length)
	if err != nil {
		return att, err
	}
	msg.Code = code

	var res providers.DeliveryResult
	for try := 0; try <= s.Policy.Retries; try++ {
		att.Tries++
		started := s.Now()
		res = p.Send(ctx, msg)
		s.audit(ctx, msg.PhoneKey, cc, p, att.Tries, res, s.Now().Sub(started))

		if res.OK || res.ErrorKind == providers.ErrorConfiguration || ctx.Err() != nil {
			break
		}
		s.Logger.WarnContext(ctx, "provider send failed",
			"provider", p.Name(), "try", att.Tries, "phone", phone.Mask(msg.PhoneKey), "error", res.Err)
	}

	if !res.OK {
		att.ErrorKind = string(res.ErrorKind)
		if res.ErrorKind == providers.ErrorConfiguration {
			s.Logger.WarnContext(ctx, "provider not configured", "provider", p.Name(), "error", res.Err)
		}
		return att, nil
	}

	if err := s.store(ctx, msg.PhoneKey, ch, code, msg.TTL); err != nil {
		att.ErrorKind = ErrorKindStore
		att.storeErr = err
		s.Logger.ErrorContext(ctx, "otp record not stored",
			"channel", ch, "phone", phone.Mask(msg.PhoneKey), "error", err)
		return att, nil
	}
	att.OK = true
	return att, nil
}

// dropSuperseded удаляет записи каналов, по которым новый код не ушёл:
// старый код после новой отправки действовать не должен.
func (s *DeliveryService) dropSuperseded(ctx context.Context, phoneKey string, delivered []models.Channel) {
	for _, ch := range models.Channels {
		if slices.Contains(delivered, ch) {
			continue
		}
		if err := s.Store.Delete(ctx, phoneKey, ch); err != nil {
			s.Logger.ErrorContext(ctx, "drop superseded otp failed",
				"channel", ch, "phone", phone.Mask(phoneKey), "error", err)
		}
	}
}

// refund возвращает cooldown, если код так и не дошёл: повтор разрешён сразу.
// Счётчик окна не возвращается.
func (s *DeliveryService) refund(ctx context.Context, phoneKey string) {
	if err := s.Limiter.Refund(ctx, phoneKey); err != nil {
		s.Logger.WarnContext(ctx, "rate refund failed", "phone", phone.Mask(phoneKey), "error", err)
	}
}

func (s *DeliveryService) store(ctx context.Context, phoneKey string, source models.Channel, code string, ttl time.Duration) error {
	hash, err := s.Hasher.Hash(code)
	if err != nil {
		return err
	}
	now := s.Now()
	rec := &models.OTPRecord{
		ID:        uuid.NewString(),
		PhoneKey:  phoneKey,
		Source:    source,
		CodeHash:  hash,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}
	if err := s.Store.Put(ctx, rec); err != nil {
		return fmt.Errorf("store otp: %w", err)
	}
	return nil
}

// sendDevMode — ни один провайдер не настроен: код сохраняем под sms
// и возвращаем вызывающему. Только для локальной разработки.
func (s *DeliveryService) sendDevMode(ctx context.Context, result *SendResult, length int, ttl time.Duration) (*SendResult, error) {
	code, err := GenerateCode(length)
	if err != nil {
		s.refund(ctx, result.PhoneKey)
		return nil, err
	}
	if err := s.store(ctx, result.PhoneKey, models.ChannelSMS, code, ttl); err != nil {
		s.refund(ctx, result.PhoneKey)
		return nil, err
	}
	s.dropSuperseded(ctx, result.PhoneKey, []models.Channel{models.ChannelSMS})
	s.Logger.WarnContext(ctx, "dev mode: no provider configured, code returned in response",
		"phone", phone.Mask(result.PhoneKey))
	result.ChannelsAttempted = []ChannelAttempt{{Channel: models.ChannelSMS, Provider: "dev", OK: true}}
	result.Delivered = []models.Channel{models.ChannelSMS}
	result.Status = StatusDevMode
	result.DevCode = code
	return result, nil
}

func (s *DeliveryService) audit(ctx context.Context, phoneKey, cc string, p providers.Provider, try int, res providers.DeliveryResult, took time.Duration) {
	a := models.DeliveryAttempt{
		ID:          uuid.NewString(),
		PhoneMasked: phone.Mask(phoneKey),
		CountryCode: cc,
		Channel:     p.Channel(),
		Provider:    p.Name(),
		Attempt:     try,
		OK:          res.OK,
		ErrorKind:   string(res.ErrorKind),
		Duration:    took,
		CreatedAt:   s.Now(),
	}
	if err := s.Log.Record(context.WithoutCancel(ctx), a); err != nil {
		s.Logger.WarnContext(ctx, "delivery log write failed", "error", err)
	}
}

func (s *DeliveryService) alertFailure(ctx context.Context, result *SendResult) {
	parts := make([]string, 0, len(result.ChannelsAttempted))
	for _, a := range result.ChannelsAttempted {
		parts = append(parts, fmt.Sprintf("%s/%s: %s (tries=%d)", a.Channel, a.Provider, a.ErrorKind, a.Tries))
	}
	alert := alerts.Alert{
		Subject: "OTP delivery failed",
		Body: fmt.Sprintf("phone: %s\ncountry: %s\nattempts:\n%s",
			phone.Mask(result.PhoneKey), result.CountryCode, strings.Join(parts, "\n")),
	}
	s.Logger.ErrorContext(ctx, "otp delivery failed", "phone", phone.Mask(result.PhoneKey), "attempts", parts)

	bg := context.WithoutCancel(ctx)
	go func() {
		actx, cancel := context.WithTimeout(bg, 15*time.Second)
		defer cancel()
		if err := s.Alerts.Notify(actx, alert); err != nil {
			s.Logger.Warn("ops alert failed", "error", err)
		}
	}()
}

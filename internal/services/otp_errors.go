package services

import "errors"

// Ошибки доставки
var (
	ErrDeliveryFailed    = errors.New("otp delivery failed on every channel")
	ErrInvalidCodeLength = errors.New("code length must be between 4 and 6")
)

// Ошибки проверки кода; наружу отдаются раздельно, чтобы клиент мог
// показать «отправить заново» или «неверный код».
var (
	ErrNoActiveCode    = errors.New("no active code")
	ErrCodeExpired     = errors.New("code expired")
	ErrTooManyAttempts = errors.New("too many attempts")
	ErrCodeMismatch    = errors.New("code mismatch")
)

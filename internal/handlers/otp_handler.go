package handlers

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"footballhub/internal/models"
	"footballhub/internal/phone"
	"footballhub/internal/rate"
	"footballhub/internal/services"
)

type OTPSender interface {
	SendOTP(ctx context.Context, req services.SendRequest) (*services.SendResult, error)
}

type OTPVerifier interface {
	Verify(ctx context.Context, req services.VerifyRequest) (*services.VerifyResult, error)
}

type OTPHandler struct {
	Sender   OTPSender
	Verifier OTPVerifier
	Logger   *slog.Logger
}

func NewOTPHandler(sender OTPSender, verifier OTPVerifier, logger *slog.Logger) *OTPHandler {
	return &OTPHandler{Sender: sender, Verifier: verifier, Logger: logger.With("component", "otp_http")}
}

type SendOTPRequest struct {
	PhoneNumber string `json:"phoneNumber" validate:"required,max=32"`
	Name        string `json:"name" validate:"required,max=64"`
	Lang        string `json:"lang,omitempty" validate:"omitempty,max=16"`
	CodeLength  int    `json:"codeLength,omitempty" validate:"omitempty,min=4,max=6"`
	TTLSeconds  int    `json:"ttlSeconds,omitempty" validate:"omitempty,min=30,max=900"`
}

type SendOTPResponse struct {
	Success           bool                      `json:"success"`
	PhoneNumber       string                    `json:"phoneNumber"`
	CountryCode       string                    `json:"countryCode,omitempty"`
	Status            string                    `json:"status"`
	ChannelsAttempted []services.ChannelAttempt `json:"channelsAttempted"`
	Delivered         []models.Channel          `json:"delivered"`
	DevModeCode       string                    `json:"devModeCode,omitempty"`
	Error             string                    `json:"error,omitempty"`
}

type VerifyOTPRequest struct {
	PhoneNumber string         `json:"phoneNumber" validate:"required,max=32"`
	OTPCode     string         `json:"otpCode" validate:"required,numeric,min=4,max=6"`
	Source      models.Channel `json:"source,omitempty" validate:"omitempty,oneof=sms whatsapp"`
}

type VerifyOTPResponse struct {
	Success bool           `json:"success"`
	Source  models.Channel `json:"source,omitempty"`
	Error   string         `json:"error,omitempty"`
	Reason  string         `json:"reason,omitempty"`
}

// @Summary      Отправить OTP
// @Description  Нормализует номер, выбирает каналы по стране и доставляет код
// @Tags         OTP
// @Accept       json
// @Produce      json
// @Param        body  body      SendOTPRequest  true  "Номер и имя получателя"
// @Success      200   {object}  SendOTPResponse
// @Failure      400   {object}  map[string]interface{}
// @Failure      429   {object}  map[string]interface{}
// @Failure      502   {object}  SendOTPResponse
// @Failure      500   {object}  map[string]interface{}
// @Router       /otp/send [post]
func (h *OTPHandler) Send(c *gin.Context) {
	var req SendOTPRequest
	if err := BindAndValidate(c, &req); err != nil {
		return
	}

	res, err := h.Sender.SendOTP(c.Request.Context(), services.SendRequest{
		RawPhone:    req.PhoneNumber,
		DisplayName: req.Name,
		Lang:        req.Lang,
		CodeLength:  req.CodeLength,
		TTL:         time.Duration(req.TTLSeconds) * time.Second,
	})

	var limitErr *rate.LimitError
	switch {
	case err == nil:
		c.JSON(http.StatusOK, sendResponse(res, ""))
	case errors.Is(err, phone.ErrInvalidPhoneFormat):
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "invalid phone number", "reason": "invalid_phone"})
	case errors.Is(err, phone.ErrUnknownCountry):
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "unsupported country", "reason": "unknown_country"})
	case errors.Is(err, services.ErrInvalidCodeLength):
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error(), "reason": "invalid_code_length"})
	case errors.As(err, &limitErr):
		reason := "cooldown"
		if errors.Is(err, rate.ErrBlocked) {
			reason = "blocked"
		}
		c.Header("Retry-After", strconv.Itoa(int(math.Ceil(limitErr.RetryAfter.Seconds()))))
		c.JSON(http.StatusTooManyRequests, gin.H{"success": false, "error": limitErr.Err.Error(), "reason": reason})
	case errors.Is(err, services.ErrDeliveryFailed):
		c.JSON(http.StatusBadGateway, sendResponse(res, "could not deliver the code, try again"))
	default:
		h.Logger.ErrorContext(c.Request.Context(), "send otp failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "internal error"})
	}
}

func sendResponse(res *services.SendResult, errMsg string) SendOTPResponse {
	out := SendOTPResponse{Success: errMsg == "", Error: errMsg}
	if res == nil {
		return out
	}
	out.PhoneNumber = res.PhoneKey
	out.CountryCode = res.CountryCode
	out.Status = res.Status
	out.ChannelsAttempted = res.ChannelsAttempted
	out.Delivered = res.Delivered
	out.DevModeCode = res.DevCode
	if out.ChannelsAttempted == nil {
		out.ChannelsAttempted = []services.ChannelAttempt{}
	}
	if out.Delivered == nil {
		out.Delivered = []models.Channel{}
	}
	return out
}

// @Summary      Проверить OTP
// @Description  Сверяет код с активной записью; при успехе запись удаляется
// @Tags         OTP
// @Accept       json
// @Produce      json
// @Param        body  body      VerifyOTPRequest  true  "Номер, код и (опционально) канал"
// @Success      200   {object}  VerifyOTPResponse
// @Failure      400   {object}  VerifyOTPResponse
// @Failure      404   {object}  VerifyOTPResponse
// @Failure      500   {object}  VerifyOTPResponse
// @Router       /otp/verify [post]
func (h *OTPHandler) Verify(c *gin.Context) {
	var req VerifyOTPRequest
	if err := BindAndValidate(c, &req); err != nil {
		return
	}

	res, err := h.Verifier.Verify(c.Request.Context(), services.VerifyRequest{
		RawPhone: req.PhoneNumber,
		Code:     req.OTPCode,
		Source:   req.Source,
	})
	if err == nil {
		c.JSON(http.StatusOK, VerifyOTPResponse{Success: true, Source: res.Source})
		return
	}

	status, reason, msg := verifyFailure(err)
	if status == http.StatusInternalServerError {
		h.Logger.ErrorContext(c.Request.Context(), "verify otp failed", "error", err)
	}
	c.JSON(status, VerifyOTPResponse{Error: msg, Reason: reason})
}

func verifyFailure(err error) (status int, reason, msg string) {
	switch {
	case errors.Is(err, services.ErrNoActiveCode):
		return http.StatusNotFound, "no_active_code", "no active code, request a new one"
	case errors.Is(err, services.ErrCodeExpired):
		return http.StatusBadRequest, "code_expired", "code expired, request a new one"
	case errors.Is(err, services.ErrTooManyAttempts):
		return http.StatusBadRequest, "too_many_attempts", "too many attempts, request a new code"
	case errors.Is(err, services.ErrCodeMismatch):
		return http.StatusBadRequest, "code_mismatch", "wrong code"
	case errors.Is(err, phone.ErrInvalidPhoneFormat):
		return http.StatusBadRequest, "invalid_phone", "invalid phone number"
	}
	return http.StatusInternalServerError, "", "internal error"
}

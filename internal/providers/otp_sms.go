package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"

	"footballhub/internal/models"
)

type OTPSMSConfig struct {
	Token   string        `yaml:"token"`
	BaseURL string        `yaml:"base_url"`
	Timeout time.Duration `yaml:"timeout"`
}

// OTPSMS — «новый» OTP-эндпоинт вендора: multipart/form-data, токен в заголовке.
// Вендор умеет генерировать код сам, но мы всегда передаём свой через custom_code,
// иначе хранилище не сможет его проверить.
type OTPSMS struct {
	cfg    OTPSMSConfig
	client *http.Client
	logger *slog.Logger
}

type otpSMSResponse struct {
	Status  int    `json:"status"`
	Message string `json:"message"`
	Data    struct {
		Reference string `json:"reference"`
	} `json:"data"`
}

func NewOTPSMS(cfg OTPSMSConfig, logger *slog.Logger) *OTPSMS {
	return &OTPSMS{
		cfg:    cfg,
		client: newHTTPClient(cfg.Timeout),
		logger: logger.With("provider", "otp_sms"),
	}
}

func (o *OTPSMS) Name() string            { return "otp_sms" }
func (o *OTPSMS) Channel() models.Channel { return models.ChannelSMS }

func (o *OTPSMS) Check() error {
	var absent []string
	if strings.TrimSpace(o.cfg.Token) == "" {
		absent = append(absent, "token")
	}
	if strings.TrimSpace(o.cfg.BaseURL) == "" {
		absent = append(absent, "base_url")
	}
	if len(absent) > 0 {
		return missing(o.Name(), absent...)
	}
	return nil
}

func (o *OTPSMS) Send(ctx context.Context, msg Message) DeliveryResult {
	if err := o.Check(); err != nil {
		return misconfigured(err)
	}

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	fields := [][2]string{
		{"phoneNumber", msg.PhoneKey},
		{"name", msg.DisplayName},
		{"type", "sms"},
		{"otp_length", strconv.Itoa(len(msg.Code))},
		{"lang", ResolveLang(msg.Lang)},
		{"custom_code", msg.Code},
	}
	for _, f := range fields {
		if err := w.WriteField(f[0], f[1]); err != nil {
			return transient("write field %s: %v", f[0], err)
		}
	}
	if err := w.Close(); err != nil {
		return transient("close multipart: %v", err)
	}

	endpoint := strings.TrimRight(o.cfg.BaseURL, "/") + "/api/v2/send/otp"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, &buf)
	if err != nil {
		return transient("build request: %v", err)
	}
	req.Header.Set("Content-Type", w.FormDataContentType())
	req.Header.Set("X-Api-Token", o.cfg.Token)

	status, body, err := do(o.client, req)
	if err != nil {
		return transient("otp sms request: %v", err)
	}
	if !is2xx(status) {
		return transient("otp sms http %d: %s", status, truncate(body))
	}

	var out otpSMSResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return transient("otp sms parse response: %v", err)
	}
	if out.Status != http.StatusOK {
		return transient("otp sms status %d: %s", out.Status, out.Message)
	}
	o.logger.DebugContext(ctx, "otp sms accepted", "reference", out.Data.Reference)
	return delivered(out.Data.Reference)
}

var _ Provider = (*OTPSMS)(nil)

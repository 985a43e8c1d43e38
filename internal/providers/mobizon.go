package providers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"footballhub/internal/models"
	"footballhub/internal/phone"
)

type MobizonConfig struct {
	APIKey   string        `yaml:"api_key"`
	SenderID string        `yaml:"sender_id"`
	BaseURL  string        `yaml:"base_url"`
	DryRun   bool          `yaml:"dry_run"`
	Timeout  time.Duration `yaml:"timeout"`
}

// Mobizon — обычные SMS: form-POST, apiKey в теле формы.
type Mobizon struct {
	cfg    MobizonConfig
	texts  *Texts
	client *http.Client
	logger *slog.Logger
}

type mobizonResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    struct {
		MessageID json.Number `json:"messageId"`
	} `json:"data"`
}

func NewMobizon(cfg MobizonConfig, texts *Texts, logger *slog.Logger) *Mobizon {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.mobizon.kz"
	}
	return &Mobizon{
		cfg:    cfg,
		texts:  texts,
		client: newHTTPClient(cfg.Timeout),
		logger: logger.With("provider", "mobizon"),
	}
}

func (m *Mobizon) Name() string            { return "mobizon" }
func (m *Mobizon) Channel() models.Channel { return models.ChannelSMS }

func (m *Mobizon) Check() error {
	if m.cfg.DryRun {
		return nil
	}
	if strings.TrimSpace(m.cfg.APIKey) == "" {
		return missing(m.Name(), "api_key")
	}
	return nil
}

func (m *Mobizon) Send(ctx context.Context, msg Message) DeliveryResult {
	if err := m.Check(); err != nil {
		return misconfigured(err)
	}
	text := m.texts.OTP(msg)

	// DRY-RUN: не делаем HTTP-запрос
	if m.cfg.DryRun {
		m.logger.InfoContext(ctx, "dry-run send", "to", phone.Mask(msg.PhoneKey), "sender", m.cfg.SenderID)
		return delivered("dry-run")
	}

	form := url.Values{
		"apiKey":    {m.cfg.APIKey},
		"recipient": {phone.Digits(msg.PhoneKey)},
		"text":      {text},
	}
	if m.cfg.SenderID != "" {
		form.Set("from", m.cfg.SenderID)
	}

	endpoint := strings.TrimRight(m.cfg.BaseURL, "/") + "/service/message/sendsmsmessage"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return transient("build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	status, body, err := do(m.client, req)
	if err != nil {
		return transient("mobizon request: %v", err)
	}
	if !is2xx(status) {
		return transient("mobizon http %d: %s", status, truncate(body))
	}

	var result mobizonResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return transient("mobizon parse response: %v", err)
	}
	if result.Code != 0 {
		return transient("mobizon returned error code %d: %s", result.Code, result.Message)
	}
	return delivered(result.Data.MessageID.String())
}

var _ Provider = (*Mobizon)(nil)

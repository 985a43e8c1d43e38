package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"footballhub/internal/models"
)

type TemplatedSMSConfig struct {
	Token      string        `yaml:"token"`
	TemplateID string        `yaml:"template_id"`
	SenderID   string        `yaml:"sender_id"`
	BaseURL    string        `yaml:"base_url"`
	Timeout    time.Duration `yaml:"timeout"`
}

// TemplatedSMS sends a pre-approved template; the vendor renders the text.
type TemplatedSMS struct {
	cfg    TemplatedSMSConfig
	client *http.Client
	logger *slog.Logger
}

type templatedSMSRequest struct {
	To         string            `json:"to"`
	Sender     string            `json:"sender,omitempty"`
	TemplateID string            `json:"template_id"`
	Language   string            `json:"language"`
	Variables  map[string]string `json:"variables"`
}

type templatedSMSResponse struct {
	Success   bool   `json:"success"`
	MessageID string `json:"message_id"`
	Error     string `json:"error"`
}

func NewTemplatedSMS(cfg TemplatedSMSConfig, logger *slog.Logger) *TemplatedSMS {
	return &TemplatedSMS{
		cfg:    cfg,
		client: newHTTPClient(cfg.Timeout),
		logger: logger.With("provider", "templated_sms"),
	}
}

func (t *TemplatedSMS) Name() string            { return "templated_sms" }
func (t *TemplatedSMS) Channel() models.Channel { return models.ChannelSMS }

func (t *TemplatedSMS) Check() error {
	var absent []string
	if strings.TrimSpace(t.cfg.Token) == "" {
		absent = append(absent, "token")
	}
	if strings.TrimSpace(t.cfg.TemplateID) == "" {
		absent = append(absent, "template_id")
	}
	if strings.TrimSpace(t.cfg.BaseURL) == "" {
		absent = append(absent, "base_url")
	}
	if len(absent) > 0 {
		return missing(t.Name(), absent...)
	}
	return nil
}

func (t *TemplatedSMS) Send(ctx context.Context, msg Message) DeliveryResult {
	if err := t.Check(); err != nil {
		return misconfigured(err)
	}

	payload, err := json.Marshal(templatedSMSRequest{
		To:         msg.PhoneKey,
		Sender:     t.cfg.SenderID,
		TemplateID: t.cfg.TemplateID,
		Language:   ResolveLang(msg.Lang),
		Variables: map[string]string{
			"code": msg.Code,
			"name": msg.DisplayName,
		},
	})
	if err != nil {
		return transient("marshal payload: %v", err)
	}

	endpoint := strings.TrimRight(t.cfg.BaseURL, "/") + "/api/v1/messages/template"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return transient("build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+t.cfg.Token)

	status, body, err := do(t.client, req)
	if err != nil {
		return transient("templated sms request: %v", err)
	}
	if !is2xx(status) {
		return transient("templated sms http %d: %s", status, truncate(body))
	}

	var out templatedSMSResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return transient("templated sms parse response: %v", err)
	}
	if !out.Success {
		return transient("templated sms rejected: %s", out.Error)
	}
	t.logger.DebugContext(ctx, "templated sms accepted", "id", out.MessageID)
	return delivered(out.MessageID)
}

var _ Provider = (*TemplatedSMS)(nil)

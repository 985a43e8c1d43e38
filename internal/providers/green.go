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
	"footballhub/internal/phone"
)

type GreenConfig struct {
	InstanceID string        `yaml:"instance_id"`
	Token      string        `yaml:"token"`
	BaseURL    string        `yaml:"base_url"`
	Timeout    time.Duration `yaml:"timeout"`
}

// Green — WhatsApp через шлюз-инстанс; текст собираем сами.
type Green struct {
	cfg    GreenConfig
	texts  *Texts
	client *http.Client
	logger *slog.Logger
}

type greenRequest struct {
	ChatID  string `json:"chatId"`
	Message string `json:"message"`
}

type greenResponse struct {
	IDMessage string `json:"idMessage"`
}

func NewGreen(cfg GreenConfig, texts *Texts, logger *slog.Logger) *Green {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.green-api.com"
	}
	return &Green{
		cfg:    cfg,
		texts:  texts,
		client: newHTTPClient(cfg.Timeout),
		logger: logger.With("provider", "green"),
	}
}

func (g *Green) Name() string            { return "green" }
func (g *Green) Channel() models.Channel { return models.ChannelWhatsApp }

func (g *Green) Check() error {
	var absent []string
	if strings.TrimSpace(g.cfg.InstanceID) == "" {
		absent = append(absent, "instance_id")
	}
	if strings.TrimSpace(g.cfg.Token) == "" {
		absent = append(absent, "token")
	}
	if len(absent) > 0 {
		return missing(g.Name(), absent...)
	}
	return nil
}

func (g *Green) Send(ctx context.Context, msg Message) DeliveryResult {
	if err := g.Check(); err != nil {
		return misconfigured(err)
	}

	payload, err := json.Marshal(greenRequest{
		ChatID:  phone.Digits(msg.PhoneKey) + "@c.us",
		Message: g.texts.OTP(msg),
	})
	if err != nil {
		return transient("marshal payload: %v", err)
	}

	endpoint := strings.TrimRight(g.cfg.BaseURL, "/") + "/waInstance" + g.cfg.InstanceID + "/sendMessage/" + g.cfg.Token
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return transient("build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")

	status, body, err := do(g.client, req)
	if err != nil {
		return transient("green request: %v", err)
	}
	if !is2xx(status) {
		return transient("green http %d: %s", status, truncate(body))
	}

	var out greenResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return transient("green parse response: %v", err)
	}
	if out.IDMessage == "" {
		return transient("green response without idMessage: %s", truncate(body))
	}
	g.logger.DebugContext(ctx, "green accepted", "to", phone.Mask(msg.PhoneKey), "id", out.IDMessage)
	return delivered(out.IDMessage)
}

var _ Provider = (*Green)(nil)

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

type WhatsAppConfig struct {
	Token         string        `yaml:"token"`
	PhoneNumberID string        `yaml:"phone_number_id"`
	Template      string        `yaml:"template"`
	BaseURL       string        `yaml:"base_url"`
	APIVersion    string        `yaml:"api_version"`
	CopyButton    bool          `yaml:"copy_code_button"`
	Timeout       time.Duration `yaml:"timeout"`
}

// WhatsApp — Meta Cloud API, шаблон authentication с кодом в теле
// и (опционально) кнопкой копирования кода.
type WhatsApp struct {
	cfg    WhatsAppConfig
	client *http.Client
	logger *slog.Logger
}

type waParameter struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type waComponent struct {
	Type       string        `json:"type"`
	SubType    string        `json:"sub_type,omitempty"`
	Index      string        `json:"index,omitempty"`
	Parameters []waParameter `json:"parameters"`
}

type waTemplate struct {
	Name       string        `json:"name"`
	Language   waLanguage    `json:"language"`
	Components []waComponent `json:"components"`
}

type waLanguage struct {
	Code string `json:"code"`
}

type waRequest struct {
	MessagingProduct string     `json:"messaging_product"`
	To               string     `json:"to"`
	Type             string     `json:"type"`
	Template         waTemplate `json:"template"`
}

type waResponse struct {
	Messages []struct {
		ID string `json:"id"`
	} `json:"messages"`
	Error *struct {
		Message string `json:"message"`
		Code    int    `json:"code"`
	} `json:"error"`
}

func NewWhatsApp(cfg WhatsAppConfig, logger *slog.Logger) *WhatsApp {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://graph.facebook.com"
	}
	if cfg.APIVersion == "" {
		cfg.APIVersion = "v21.0"
	}
	return &WhatsApp{
		cfg:    cfg,
		client: newHTTPClient(cfg.Timeout),
		logger: logger.With("provider", "whatsapp_cloud"),
	}
}

func (w *WhatsApp) Name() string            { return "whatsapp_cloud" }
func (w *WhatsApp) Channel() models.Channel { return models.ChannelWhatsApp }

func (w *WhatsApp) Check() error {
	var absent []string
	if strings.TrimSpace(w.cfg.Token) == "" {
		absent = append(absent, "token")
	}
	if strings.TrimSpace(w.cfg.PhoneNumberID) == "" {
		absent = append(absent, "phone_number_id")
	}
	if strings.TrimSpace(w.cfg.Template) == "" {
		absent = append(absent, "template")
	}
	if len(absent) > 0 {
		return missing(w.Name(), absent...)
	}
	return nil
}

func (w *WhatsApp) Send(ctx context.Context, msg Message) DeliveryResult {
	if err := w.Check(); err != nil {
		return misconfigured(err)
	}

	components := []waComponent{{
		Type:       "body",
		Parameters: []waParameter{{Type: "text", Text: msg.Code}},
	}}
	if w.cfg.CopyButton {
		components = append(components, waComponent{
			Type:       "button",
			SubType:    "url",
			Index:      "0",
			Parameters: []waParameter{{Type: "text", Text: msg.Code}},
		})
	}

	payload, err := json.Marshal(waRequest{
		MessagingProduct: "whatsapp",
		To:               phone.Digits(msg.PhoneKey),
		Type:             "template",
		Template: waTemplate{
			Name:       w.cfg.Template,
			Language:   waLanguage{Code: ResolveLang(msg.Lang)},
			Components: components,
		},
	})
	if err != nil {
		return transient("marshal payload: %v", err)
	}

	endpoint := strings.TrimRight(w.cfg.BaseURL, "/") + "/" + w.cfg.APIVersion + "/" + w.cfg.PhoneNumberID + "/messages"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return transient("build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+w.cfg.Token)

	status, body, err := do(w.client, req)
	if err != nil {
		return transient("whatsapp request: %v", err)
	}

	var out waResponse
	_ = json.Unmarshal(body, &out)
	if !is2xx(status) {
		if out.Error != nil {
			return transient("whatsapp http %d: %s (code %d)", status, out.Error.Message, out.Error.Code)
		}
		return transient("whatsapp http %d: %s", status, truncate(body))
	}
	if len(out.Messages) == 0 || out.Messages[0].ID == "" {
		return transient("whatsapp response without message id: %s", truncate(body))
	}
	w.logger.DebugContext(ctx, "whatsapp accepted", "to", phone.Mask(msg.PhoneKey), "id", out.Messages[0].ID)
	return delivered(out.Messages[0].ID)
}

var _ Provider = (*WhatsApp)(nil)

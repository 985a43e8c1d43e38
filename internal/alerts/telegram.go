package alerts

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

type TelegramConfig struct {
	Token  string `yaml:"token"`
	ChatID int64  `yaml:"chat_id"`
	// APIEndpoint — формат tgbotapi.APIEndpoint; пустой = api.telegram.org.
	APIEndpoint string `yaml:"api_endpoint"`
}

// Telegram шлёт алерты в служебный чат. Бот создаётся лениво: конструктор
// tgbotapi ходит в getMe, а старт сервиса не должен зависеть от Telegram.
type Telegram struct {
	cfg    TelegramConfig
	client *http.Client

	mu  sync.Mutex
	bot *tgbotapi.BotAPI
}

func NewTelegram(cfg TelegramConfig, client *http.Client) *Telegram {
	if cfg.APIEndpoint == "" {
		cfg.APIEndpoint = tgbotapi.APIEndpoint
	}
	if client == nil {
		client = &http.Client{}
	}
	return &Telegram{cfg: cfg, client: client}
}

func (t *Telegram) botAPI() (*tgbotapi.BotAPI, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.bot != nil {
		return t.bot, nil
	}
	bot, err := tgbotapi.NewBotAPIWithClient(t.cfg.Token, t.cfg.APIEndpoint, t.client)
	if err != nil {
		return nil, fmt.Errorf("telegram bot init: %w", err)
	}
	t.bot = bot
	return bot, nil
}

func (t *Telegram) Notify(ctx context.Context, a Alert) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	bot, err := t.botAPI()
	if err != nil {
		return err
	}
	msg := tgbotapi.NewMessage(t.cfg.ChatID, fmt.Sprintf("⚠️ %s\n\n%s", a.Subject, a.Body))
	msg.DisableWebPagePreview = true
	if _, err := bot.Send(msg); err != nil {
		return fmt.Errorf("telegram send: %w", err)
	}
	return nil
}

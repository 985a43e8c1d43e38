package providers

import (
	"embed"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/nicksnyder/go-i18n/v2/i18n"
	"golang.org/x/text/language"
)

//go:embed locales/*.json
var localeFS embed.FS

var (
	supportedLangs = []language.Tag{language.English, language.Arabic}
	langMatcher    = language.NewMatcher(supportedLangs)
)

// ResolveLang maps any BCP 47 tag to one of the languages we have texts for.
func ResolveLang(lang string) string {
	lang = strings.TrimSpace(lang)
	if lang == "" {
		return "en"
	}
	tag, err := language.Parse(lang)
	if err != nil {
		return "en"
	}
	_, idx, conf := langMatcher.Match(tag)
	if conf == language.No {
		return "en"
	}
	return supportedLangs[idx].String()
}

// Texts renders the localized OTP message body for text-based channels.
type Texts struct {
	bundle *i18n.Bundle
}

func NewTexts() (*Texts, error) {
	bundle := i18n.NewBundle(language.English)
	bundle.RegisterUnmarshalFunc("json", json.Unmarshal)
	for _, f := range []string{"locales/active.en.json", "locales/active.ar.json"} {
		if _, err := bundle.LoadMessageFileFS(localeFS, f); err != nil {
			return nil, fmt.Errorf("load %s: %w", f, err)
		}
	}
	return &Texts{bundle: bundle}, nil
}

func (t *Texts) OTP(msg Message) string {
	minutes := int(msg.TTL.Round(time.Minute) / time.Minute)
	if minutes < 1 {
		minutes = 1
	}
	id := "OTPCode"
	if strings.TrimSpace(msg.DisplayName) == "" {
		id = "OTPCodeAnonymous"
	}
	if t != nil && t.bundle != nil {
		loc := i18n.NewLocalizer(t.bundle, ResolveLang(msg.Lang))
		s, err := loc.Localize(&i18n.LocalizeConfig{
			MessageID: id,
			TemplateData: map[string]any{
				"Name":    msg.DisplayName,
				"Code":    msg.Code,
				"Minutes": minutes,
			},
		})
		if err == nil {
			return s
		}
	}
	return fmt.Sprintf("Your verification code is %s. It expires in %d min.", msg.Code, minutes)
}

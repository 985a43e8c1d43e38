package models

import "time"

// Channel — транспорт доставки кода (он же source у записи).
type Channel string

const (
	ChannelNone     Channel = ""
	ChannelSMS      Channel = "sms"
	ChannelWhatsApp Channel = "whatsapp"
)

// Channels lists every channel a record can be tagged with.
var Channels = []Channel{ChannelSMS, ChannelWhatsApp}

func ParseChannel(s string) (Channel, bool) {
	switch Channel(s) {
	case ChannelSMS:
		return ChannelSMS, true
	case ChannelWhatsApp:
		return ChannelWhatsApp, true
	}
	return ChannelNone, false
}

// OTPRecord — одна активная запись на пару (phone_key, source).
// Код храним только в виде bcrypt-хэша.
type OTPRecord struct {
	ID        string    `json:"id"`
	PhoneKey  string    `json:"phone_key"`
	Source    Channel   `json:"source"`
	CodeHash  string    `json:"-"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
	Attempts  int       `json:"attempts"`
	Expired   bool      `json:"expired"`
}

// IsExpiredAt reports whether the TTL window has elapsed at now.
func (r *OTPRecord) IsExpiredAt(now time.Time) bool {
	return now.After(r.ExpiresAt)
}

// ChannelPlan describes how a country is served. For a dual plan both
// Primary and Fallback are sent concurrently instead of sequentially.
type ChannelPlan struct {
	Primary  Channel `json:"primary" yaml:"primary"`
	Fallback Channel `json:"fallback,omitempty" yaml:"fallback"`
	Dual     bool    `json:"dual" yaml:"dual"`
}

func (p ChannelPlan) Channels() []Channel {
	out := []Channel{p.Primary}
	if p.Fallback != ChannelNone && p.Fallback != p.Primary {
		out = append(out, p.Fallback)
	}
	return out
}

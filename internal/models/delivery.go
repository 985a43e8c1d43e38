package models

import "time"

// DeliveryAttempt — строка аудита: один вызов провайдера.
// Номер хранится в маскированном виде, код не хранится вообще.
type DeliveryAttempt struct {
	ID          string        `json:"id"`
	PhoneMasked string        `json:"phone_masked"`
	CountryCode string        `json:"country_code"`
	Channel     Channel       `json:"channel"`
	Provider    string        `json:"provider"`
	Attempt     int           `json:"attempt"`
	OK          bool          `json:"ok"`
	ErrorKind   string        `json:"error_kind,omitempty"`
	Duration    time.Duration `json:"duration"`
	CreatedAt   time.Time     `json:"created_at"`
}

type ChannelStat struct {
	Channel  Channel `json:"channel"`
	Provider string  `json:"provider"`
	Sent     int     `json:"sent"`
	Failed   int     `json:"failed"`
}

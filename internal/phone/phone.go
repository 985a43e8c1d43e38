// Package phone canonicalizes user-entered phone numbers into the
// international "+<digits>" key used by the OTP store.
package phone

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
)

var (
	ErrInvalidPhoneFormat = errors.New("invalid phone format")
	ErrUnknownCountry     = errors.New("unknown country code")
)

const (
	minDigits = 10
	maxDigits = 15
)

// Normalize strips formatting characters and returns the canonical key
// ("+" followed by digits) together with the calling code.
//
// When the calling code cannot be matched the key is still returned along
// with ErrUnknownCountry, so callers may route the number to a default plan.
func Normalize(raw string) (phoneKey, countryCode string, err error) {
	s := strings.Map(func(r rune) rune {
		switch {
		case unicode.IsSpace(r):
			return -1
		case r == '(' || r == ')' || r == '-' || r == '.':
			return -1
		}
		return r
	}, raw)

	switch {
	case strings.HasPrefix(s, "+"):
		s = s[1:]
	case strings.HasPrefix(s, "00"):
		s = s[2:]
	}

	if s == "" {
		return "", "", fmt.Errorf("%w: no digits", ErrInvalidPhoneFormat)
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return "", "", fmt.Errorf("%w: unexpected character %q", ErrInvalidPhoneFormat, r)
		}
	}
	if len(s) < minDigits || len(s) > maxDigits {
		return "", "", fmt.Errorf("%w: %d digits", ErrInvalidPhoneFormat, len(s))
	}

	phoneKey = "+" + s
	countryCode = MatchCountry(s)
	if countryCode == "" {
		return phoneKey, "", ErrUnknownCountry
	}
	return phoneKey, countryCode, nil
}

// MatchCountry returns the longest calling code that prefixes digits.
func MatchCountry(digits string) string {
	for n := 3; n >= 1; n-- {
		if len(digits) < n {
			continue
		}
		if _, ok := callingCodes[digits[:n]]; ok {
			return digits[:n]
		}
	}
	return ""
}

// Digits drops the leading "+" of a phone key; most provider APIs want bare digits.
func Digits(phoneKey string) string {
	return strings.TrimPrefix(phoneKey, "+")
}

// Mask hides everything but the calling code and the last three digits.
func Mask(phoneKey string) string {
	d := Digits(phoneKey)
	if len(d) <= 3 {
		return phoneKey
	}
	cc := MatchCountry(d)
	hidden := len(d) - len(cc) - 3
	if hidden < 0 {
		hidden = 0
	}
	return "+" + cc + strings.Repeat("*", hidden) + d[len(d)-3:]
}

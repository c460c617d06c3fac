package domain

import (
	"net/mail"
	"strings"
	"unicode"
)

const (
	MinPasswordLength  = 10
	MaxDisplayNameLen  = 64
	MaxUserAgentLength = 512
)

// NormalizeEmail lowercases and trims an address. Emails are stored and
// compared in this form.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func ValidateEmail(email string) error {
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return ErrInvalidEmail
	}
	return nil
}

// ValidatePassword enforces the strength rule: minimum length and at least
// two of {letters, digits, symbols}.
func ValidatePassword(password string) error {
	if len(password) < MinPasswordLength {
		return ErrWeakPassword
	}
	var letters, digits, symbols bool
	for _, r := range password {
		switch {
		case unicode.IsLetter(r):
			letters = true
		case unicode.IsDigit(r):
			digits = true
		default:
			symbols = true
		}
	}
	classes := 0
	for _, ok := range []bool{letters, digits, symbols} {
		if ok {
			classes++
		}
	}
	if classes < 2 {
		return ErrWeakPassword
	}
	return nil
}

// NormalizeDisplayName trims the name and validates its length. An empty
// name is allowed; clients fall back to the truncated email.
func NormalizeDisplayName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if len(name) > MaxDisplayNameLen {
		return "", ErrDisplayNameTooLong
	}
	return name, nil
}

// TruncateUserAgent caps stored user agent strings at the column size.
func TruncateUserAgent(ua string) string {
	if len(ua) > MaxUserAgentLength {
		return ua[:MaxUserAgentLength]
	}
	return ua
}

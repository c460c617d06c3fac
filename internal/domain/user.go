package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

type User struct {
	ID           uuid.UUID  `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	Email        string     `json:"email" gorm:"uniqueIndex;not null"`
	PasswordHash string     `json:"-" gorm:"not null"`
	DisplayName  string     `json:"displayName"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
	LastLoginAt  *time.Time `json:"lastLoginAt,omitempty"`
}

// Identity is the label shown for the user in client surfaces: the display
// name when set, otherwise the email with its local part truncated.
func (u *User) Identity() string {
	if u.DisplayName != "" {
		return u.DisplayName
	}
	return TruncateEmail(u.Email)
}

// TruncateEmail shortens the local part of an address for display,
// e.g. "abc@example.com" -> "abc...@example.com".
func TruncateEmail(email string) string {
	at := strings.LastIndex(email, "@")
	if at <= 0 {
		return email
	}
	local, rest := email[:at], email[at:]
	if len(local) > 3 {
		local = local[:3]
	}
	return local + "..." + rest
}

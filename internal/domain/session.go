package domain

import (
	"time"

	"github.com/google/uuid"
)

// Session authorizes a cookie-bearing client for a bounded time window. The
// cookie carries an opaque token; only its SHA-256 hash is stored here.
type Session struct {
	ID        uuid.UUID `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	UserID    uuid.UUID `json:"userId" gorm:"type:uuid;not null;index"`
	TokenHash string    `json:"-" gorm:"uniqueIndex;not null"`
	IssuedAt  time.Time `json:"issuedAt" gorm:"not null"`
	ExpiresAt time.Time `json:"expiresAt" gorm:"not null"`
	Revoked   bool      `json:"-" gorm:"not null;default:false"`
	Demo      bool      `json:"demo" gorm:"not null;default:false"`
	IPAddress *string   `json:"-"`
	UserAgent *string   `json:"-" gorm:"size:512"`
}

func (s *Session) TableName() string { return "user_sessions" }

// Valid reports whether the session still authorizes requests. Revoked and
// expired sessions are equally invalid; expiry is checked, never swept.
func (s *Session) Valid(now time.Time) bool {
	return !s.Revoked && now.Before(s.ExpiresAt)
}

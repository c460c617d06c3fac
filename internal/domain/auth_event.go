package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Auth event actions
const (
	AuthActionLogin    = "login"
	AuthActionRegister = "register"
	AuthActionLogout   = "logout"
	AuthActionDemo     = "demo"
)

// Auth event outcomes
const (
	AuthOutcomeSuccess = "success"
	AuthOutcomeFailure = "failure"
)

// AuthEvent is an append-only audit record. It is written on every
// authentication attempt and never read back by application logic.
type AuthEvent struct {
	ID         uuid.UUID      `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	Action     string         `json:"action" gorm:"not null;index"`
	Outcome    string         `json:"outcome" gorm:"not null"`
	UserID     *uuid.UUID     `json:"userId,omitempty" gorm:"type:uuid"`
	DurationMs int64          `json:"durationMs"`
	Detail     datatypes.JSON `json:"detail,omitempty"`
	CreatedAt  time.Time      `json:"createdAt"`
}

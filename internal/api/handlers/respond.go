package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/medtrack/medtrack-server/internal/domain"
)

// Stable error codes shared with clients.
const (
	CodeValidationError    = "VALIDATION_ERROR"
	CodeInvalidCredentials = "INVALID_CREDENTIALS"
	CodeConflict           = "CONFLICT"
	CodeRateLimited        = "RATE_LIMITED"
)

type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

type UserResponse struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	DisplayName string `json:"displayName,omitempty"`
}

type SessionResponse struct {
	ID        string    `json:"id"`
	ExpiresAt time.Time `json:"expiresAt"`
	Demo      bool      `json:"demo,omitempty"`
}

type AuthResponse struct {
	User    UserResponse    `json:"user"`
	Session SessionResponse `json:"session"`
}

// SessionStatusResponse is the GET /session body for both outcomes.
type SessionStatusResponse struct {
	Authenticated bool             `json:"authenticated"`
	User          *UserResponse    `json:"user,omitempty"`
	Session       *SessionResponse `json:"session,omitempty"`
}

func newUserResponse(user *domain.User) UserResponse {
	return UserResponse{
		ID:          user.ID.String(),
		Email:       user.Email,
		DisplayName: user.DisplayName,
	}
}

func newSessionResponse(session *domain.Session) SessionResponse {
	return SessionResponse{
		ID:        session.ID.String(),
		ExpiresAt: session.ExpiresAt,
		Demo:      session.Demo,
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, ErrorResponse{Code: code, Message: message})
}

func writeFieldError(w http.ResponseWriter, code, message, field string) {
	writeJSON(w, http.StatusBadRequest, ErrorResponse{Code: code, Message: message, Field: field})
}

package testutil

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/medtrack/medtrack-server/internal/domain"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// UserBuilder creates test users with a builder pattern
type UserBuilder struct {
	email       string
	password    string
	displayName string
}

// NewUserBuilder creates a new UserBuilder with default values
func NewUserBuilder() *UserBuilder {
	return &UserBuilder{
		email:    fmt.Sprintf("testuser_%s@example.com", uuid.New().String()[:8]),
		password: "testpassword123!",
	}
}

// WithEmail sets the email
func (b *UserBuilder) WithEmail(email string) *UserBuilder {
	b.email = email
	return b
}

// WithPassword sets the password
func (b *UserBuilder) WithPassword(password string) *UserBuilder {
	b.password = password
	return b
}

// WithDisplayName sets the display name
func (b *UserBuilder) WithDisplayName(name string) *UserBuilder {
	b.displayName = name
	return b
}

// Build creates the user in the database and returns the user with the raw password
func (b *UserBuilder) Build(t *testing.T, db *gorm.DB) (*domain.User, string) {
	t.Helper()

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(b.password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("failed to hash password: %v", err)
	}

	user := &domain.User{
		ID:           uuid.New(),
		Email:        domain.NormalizeEmail(b.email),
		PasswordHash: string(hashedPassword),
		DisplayName:  b.displayName,
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}

	if err := db.Create(user).Error; err != nil {
		t.Fatalf("failed to create user: %v", err)
	}

	return user, b.password
}

// SessionBuilder creates session rows directly, bypassing the issuer, so
// tests can shape expiry and revocation.
type SessionBuilder struct {
	user      *domain.User
	expiresAt time.Time
	revoked   bool
	demo      bool
}

// NewSessionBuilder creates a new SessionBuilder with a one-hour expiry
func NewSessionBuilder(user *domain.User) *SessionBuilder {
	return &SessionBuilder{
		user:      user,
		expiresAt: time.Now().Add(time.Hour),
	}
}

// ExpiredAt sets the expiry timestamp
func (b *SessionBuilder) ExpiredAt(at time.Time) *SessionBuilder {
	b.expiresAt = at
	return b
}

// Revoked marks the session revoked
func (b *SessionBuilder) Revoked() *SessionBuilder {
	b.revoked = true
	return b
}

// Demo marks the session as a demo session
func (b *SessionBuilder) Demo() *SessionBuilder {
	b.demo = true
	return b
}

// Build creates the session and returns it with the raw token
func (b *SessionBuilder) Build(t *testing.T, db *gorm.DB) (*domain.Session, string) {
	t.Helper()

	token := uuid.New().String()
	sum := sha256.Sum256([]byte(token))

	session := &domain.Session{
		ID:        uuid.New(),
		UserID:    b.user.ID,
		TokenHash: hex.EncodeToString(sum[:]),
		IssuedAt:  time.Now().Add(-time.Minute),
		ExpiresAt: b.expiresAt,
		Revoked:   b.revoked,
		Demo:      b.demo,
	}

	if err := db.Create(session).Error; err != nil {
		t.Fatalf("failed to create session: %v", err)
	}

	return session, token
}

// AuthResponse matches the API auth response
type AuthResponse struct {
	User struct {
		ID          string `json:"id"`
		Email       string `json:"email"`
		DisplayName string `json:"displayName"`
	} `json:"user"`
	Session struct {
		ID        string    `json:"id"`
		ExpiresAt time.Time `json:"expiresAt"`
		Demo      bool      `json:"demo"`
	} `json:"session"`
}

// BuildAndAuthenticate registers the user via the API and returns the
// response plus the session cookie the server set.
func (b *UserBuilder) BuildAndAuthenticate(t *testing.T, ts *TestServer) (*AuthResponse, *http.Cookie) {
	t.Helper()

	reqBody := map[string]string{
		"email":       b.email,
		"password":    b.password,
		"displayName": b.displayName,
	}
	body, _ := json.Marshal(reqBody)

	resp, err := http.Post(ts.APIURL("/auth/register"), "application/json", bytes.NewBuffer(body))
	if err != nil {
		t.Fatalf("failed to register user: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("unexpected status code: %d", resp.StatusCode)
	}

	var authResp AuthResponse
	if err := json.NewDecoder(resp.Body).Decode(&authResp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	var sessionCookie *http.Cookie
	for _, c := range resp.Cookies() {
		if c.Name == ts.Config.CookieName {
			sessionCookie = c
		}
	}
	if sessionCookie == nil {
		t.Fatalf("register response did not set the session cookie")
	}

	return &authResp, sessionCookie
}

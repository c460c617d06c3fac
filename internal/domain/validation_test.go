package domain_test

import (
	"strings"
	"testing"

	"github.com/medtrack/medtrack-server/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidatePassword(t *testing.T) {
	tests := []struct {
		name     string
		password string
		wantErr  error
	}{
		{name: "letters and digits", password: "abcdef1234"},
		{name: "letters and symbols", password: "abcdefgh!?"},
		{name: "digits and symbols", password: "12345678!?"},
		{name: "all three classes", password: "StrongPass123!"},
		{name: "too short", password: "abc123!", wantErr: domain.ErrWeakPassword},
		{name: "nine characters two classes", password: "abcdef123", wantErr: domain.ErrWeakPassword},
		{name: "only letters", password: "abcdefghij", wantErr: domain.ErrWeakPassword},
		{name: "only digits", password: "1234567890", wantErr: domain.ErrWeakPassword},
		{name: "empty", password: "", wantErr: domain.ErrWeakPassword},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := domain.ValidatePassword(tt.password)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestValidateEmail(t *testing.T) {
	tests := []struct {
		name    string
		email   string
		wantErr bool
	}{
		{name: "plain address", email: "user@example.com"},
		{name: "subdomain", email: "user@mail.example.com"},
		{name: "plus tag", email: "user+tag@example.com"},
		{name: "missing at", email: "userexample.com", wantErr: true},
		{name: "missing domain", email: "user@", wantErr: true},
		{name: "display name form", email: "User <user@example.com>", wantErr: true},
		{name: "empty", email: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := domain.ValidateEmail(tt.email)
			if tt.wantErr {
				assert.ErrorIs(t, err, domain.ErrInvalidEmail)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestNormalizeEmail(t *testing.T) {
	assert.Equal(t, "user@example.com", domain.NormalizeEmail("  User@EXAMPLE.com "))
}

func TestNormalizeDisplayName(t *testing.T) {
	name, err := domain.NormalizeDisplayName("  Alex  ")
	require.NoError(t, err)
	assert.Equal(t, "Alex", name)

	_, err = domain.NormalizeDisplayName(strings.Repeat("x", 65))
	assert.ErrorIs(t, err, domain.ErrDisplayNameTooLong)

	name, err = domain.NormalizeDisplayName("")
	require.NoError(t, err)
	assert.Empty(t, name)
}

func TestUserIdentity(t *testing.T) {
	named := &domain.User{Email: "abc@example.com", DisplayName: "Alex"}
	assert.Equal(t, "Alex", named.Identity())

	unnamed := &domain.User{Email: "abc@example.com"}
	assert.Equal(t, "abc...@example.com", unnamed.Identity())

	long := &domain.User{Email: "longlocalpart@example.com"}
	assert.Equal(t, "lon...@example.com", long.Identity())
}

func TestTruncateUserAgent(t *testing.T) {
	short := "Mozilla/5.0"
	assert.Equal(t, short, domain.TruncateUserAgent(short))

	long := strings.Repeat("a", 600)
	assert.Len(t, domain.TruncateUserAgent(long), domain.MaxUserAgentLength)
}

package service

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/medtrack/medtrack-server/internal/config"
	"github.com/medtrack/medtrack-server/internal/domain"
	"github.com/medtrack/medtrack-server/internal/ratelimit"
	"github.com/medtrack/medtrack-server/internal/repository"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// RateLimitedError wraps domain.ErrRateLimited with retry-after semantics.
type RateLimitedError struct {
	RetryAfter time.Duration
}

func (e *RateLimitedError) Error() string { return domain.ErrRateLimited.Error() }
func (e *RateLimitedError) Unwrap() error { return domain.ErrRateLimited }

type AuthService struct {
	userRepo    repository.UserRepository
	sessionRepo repository.SessionRepository
	eventRepo   repository.AuthEventRepository
	limiter     *ratelimit.Limiter
	cfg         *config.Config
}

func NewAuthService(repos *repository.Repositories, limiter *ratelimit.Limiter, cfg *config.Config) *AuthService {
	return &AuthService{
		userRepo:    repos.User,
		sessionRepo: repos.Session,
		eventRepo:   repos.AuthEvent,
		limiter:     limiter,
		cfg:         cfg,
	}
}

type RegisterInput struct {
	Email       string
	Password    string
	DisplayName string
}

type LoginInput struct {
	Email    string
	Password string
}

// RequestMeta carries per-request session metadata from the transport layer.
type RequestMeta struct {
	IPAddress string
	UserAgent string
}

type AuthResult struct {
	User    *domain.User
	Session *domain.Session
	// Token is the raw opaque session reference destined for the cookie.
	// It is never persisted; only its hash is.
	Token string
}

func (s *AuthService) Register(ctx context.Context, input RegisterInput, meta RequestMeta) (*AuthResult, error) {
	start := time.Now()

	email := domain.NormalizeEmail(input.Email)
	if err := domain.ValidateEmail(email); err != nil {
		return nil, err
	}
	if err := domain.ValidatePassword(input.Password); err != nil {
		return nil, err
	}
	displayName, err := domain.NormalizeDisplayName(input.DisplayName)
	if err != nil {
		return nil, err
	}

	existing, err := s.userRepo.GetByEmail(ctx, email)
	if err == nil && existing != nil {
		s.emitEvent(ctx, domain.AuthActionRegister, domain.AuthOutcomeFailure, nil, start, map[string]any{"reason": "conflict"})
		return nil, domain.ErrEmailTaken
	}
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(input.Password), s.cfg.BcryptCost)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	user := &domain.User{
		ID:           uuid.New(),
		Email:        email,
		PasswordHash: string(hashedPassword),
		DisplayName:  displayName,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		// Two registrations for the same email can both pass the lookup
		// above; the unique index decides the loser.
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			s.emitEvent(ctx, domain.AuthActionRegister, domain.AuthOutcomeFailure, nil, start, map[string]any{"reason": "conflict"})
			return nil, domain.ErrEmailTaken
		}
		return nil, err
	}

	result, err := s.issueSession(ctx, user, false, meta)
	if err != nil {
		return nil, err
	}

	s.emitEvent(ctx, domain.AuthActionRegister, domain.AuthOutcomeSuccess, &user.ID, start, nil)
	return result, nil
}

func (s *AuthService) Login(ctx context.Context, input LoginInput, meta RequestMeta) (*AuthResult, error) {
	start := time.Now()

	email := domain.NormalizeEmail(input.Email)
	key := "login:" + email

	// The limiter is consulted before credentials are examined, so a locked
	// bucket blocks even a correct password.
	if ok, retryAfter := s.limiter.Allow(ctx, key); !ok {
		s.emitEvent(ctx, domain.AuthActionLogin, domain.AuthOutcomeFailure, nil, start, map[string]any{"reason": "rate_limited"})
		return nil, &RateLimitedError{RetryAfter: retryAfter}
	}

	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			s.limiter.Record(ctx, key)
			s.emitEvent(ctx, domain.AuthActionLogin, domain.AuthOutcomeFailure, nil, start, map[string]any{"reason": "credentials"})
			return nil, domain.ErrInvalidCredentials
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(input.Password)); err != nil {
		s.limiter.Record(ctx, key)
		s.emitEvent(ctx, domain.AuthActionLogin, domain.AuthOutcomeFailure, &user.ID, start, map[string]any{"reason": "credentials"})
		return nil, domain.ErrInvalidCredentials
	}

	now := time.Now()
	user.LastLoginAt = &now
	user.UpdatedAt = now
	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, err
	}

	result, err := s.issueSession(ctx, user, false, meta)
	if err != nil {
		return nil, err
	}

	s.emitEvent(ctx, domain.AuthActionLogin, domain.AuthOutcomeSuccess, &user.ID, start, nil)
	return result, nil
}

// Logout revokes the session behind token. Missing or already-revoked
// sessions still succeed: logout is idempotent.
func (s *AuthService) Logout(ctx context.Context, token string) error {
	start := time.Now()

	session, err := s.sessionRepo.GetByTokenHash(ctx, hashToken(token))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			s.emitEvent(ctx, domain.AuthActionLogout, domain.AuthOutcomeSuccess, nil, start, nil)
			return nil
		}
		return err
	}

	if err := s.sessionRepo.Revoke(ctx, session.ID); err != nil {
		return err
	}

	s.emitEvent(ctx, domain.AuthActionLogout, domain.AuthOutcomeSuccess, &session.UserID, start, nil)
	return nil
}

// StartDemo creates a throwaway account and a session flagged demo, with no
// registration step. Abuse is limited per client IP.
func (s *AuthService) StartDemo(ctx context.Context, meta RequestMeta) (*AuthResult, error) {
	start := time.Now()

	key := "demo:" + meta.IPAddress
	if ok, retryAfter := s.limiter.Allow(ctx, key); !ok {
		s.emitEvent(ctx, domain.AuthActionDemo, domain.AuthOutcomeFailure, nil, start, map[string]any{"reason": "rate_limited"})
		return nil, &RateLimitedError{RetryAfter: retryAfter}
	}
	s.limiter.Record(ctx, key)

	// Demo accounts get an unguessable password hash so they can never be
	// logged into through the credential path.
	secret, err := newSessionToken()
	if err != nil {
		return nil, err
	}
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(secret), s.cfg.BcryptCost)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	user := &domain.User{
		ID:           uuid.New(),
		Email:        fmt.Sprintf("demo-%s@demo.invalid", uuid.New().String()[:8]),
		PasswordHash: string(hashedPassword),
		DisplayName:  "Demo User",
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}

	result, err := s.issueSession(ctx, user, true, meta)
	if err != nil {
		return nil, err
	}

	s.emitEvent(ctx, domain.AuthActionDemo, domain.AuthOutcomeSuccess, &user.ID, start, nil)
	return result, nil
}

// ValidateSession resolves an opaque token to its user and session. Not
// found, revoked and expired all collapse into domain.ErrSessionInvalid; the
// caller must not be able to tell which it was.
func (s *AuthService) ValidateSession(ctx context.Context, token string) (*domain.User, *domain.Session, error) {
	session, err := s.sessionRepo.GetByTokenHash(ctx, hashToken(token))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, domain.ErrSessionInvalid
		}
		return nil, nil, err
	}

	if !session.Valid(time.Now()) {
		return nil, nil, domain.ErrSessionInvalid
	}

	user, err := s.userRepo.GetByID(ctx, session.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, domain.ErrSessionInvalid
		}
		return nil, nil, err
	}

	return user, session, nil
}

func (s *AuthService) issueSession(ctx context.Context, user *domain.User, demo bool, meta RequestMeta) (*AuthResult, error) {
	token, err := newSessionToken()
	if err != nil {
		return nil, err
	}

	now := time.Now()
	session := &domain.Session{
		ID:        uuid.New(),
		UserID:    user.ID,
		TokenHash: hashToken(token),
		IssuedAt:  now,
		ExpiresAt: now.Add(s.cfg.SessionTTL),
		Demo:      demo,
	}
	if meta.IPAddress != "" {
		session.IPAddress = &meta.IPAddress
	}
	if meta.UserAgent != "" {
		ua := domain.TruncateUserAgent(meta.UserAgent)
		session.UserAgent = &ua
	}

	if err := s.sessionRepo.Create(ctx, session); err != nil {
		return nil, err
	}

	return &AuthResult{User: user, Session: session, Token: token}, nil
}

func (s *AuthService) emitEvent(ctx context.Context, action, outcome string, userID *uuid.UUID, start time.Time, detail map[string]any) {
	event := &domain.AuthEvent{
		ID:         uuid.New(),
		Action:     action,
		Outcome:    outcome,
		UserID:     userID,
		DurationMs: time.Since(start).Milliseconds(),
		CreatedAt:  time.Now(),
	}
	if detail != nil {
		if raw, err := json.Marshal(detail); err == nil {
			event.Detail = raw
		}
	}

	// Audit writes never fail the request they describe.
	if err := s.eventRepo.Create(ctx, event); err != nil {
		log.Printf("ERROR [service.Auth] failed to record auth event action=%s outcome=%s: %v", action, outcome, err)
	}
}

// newSessionToken mints the opaque session reference carried by the cookie:
// 32 random bytes, base64url. Clients never decode it.
func newSessionToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/medtrack/medtrack-server/internal/domain"
)

type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	Update(ctx context.Context, user *domain.User) error
}

type SessionRepository interface {
	Create(ctx context.Context, session *domain.Session) error
	GetByTokenHash(ctx context.Context, tokenHash string) (*domain.Session, error)
	Revoke(ctx context.Context, id uuid.UUID) error
	RevokeByUserID(ctx context.Context, userID uuid.UUID) error
}

// AuthEventRepository is a write-only audit sink.
type AuthEventRepository interface {
	Create(ctx context.Context, event *domain.AuthEvent) error
}

type Repositories struct {
	User      UserRepository
	Session   SessionRepository
	AuthEvent AuthEventRepository
}

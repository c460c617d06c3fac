package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/medtrack/medtrack-server/internal/config"
	"github.com/medtrack/medtrack-server/internal/domain"
	"github.com/medtrack/medtrack-server/internal/service"
)

type contextKey string

const (
	userKey    contextKey = "user"
	sessionKey contextKey = "session"
)

// Session resolves the session cookie before protected handlers run. A
// missing cookie, an unknown token, a revoked session and an expired session
// all produce the same 401 body; callers cannot tell which case they hit.
// Valid sessions put the resolved user and session on the request context.
func Session(authService *service.AuthService, cfg *config.Config) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie(cfg.CookieName)
			if err != nil || cookie.Value == "" {
				unauthenticated(w)
				return
			}

			user, session, err := authService.ValidateSession(r.Context(), cookie.Value)
			if err != nil {
				if errors.Is(err, domain.ErrSessionInvalid) {
					// The cookie no longer resolves; drop it from the client.
					http.SetCookie(w, ClearSessionCookie(cfg))
					unauthenticated(w)
					return
				}
				http.Error(w, "Internal server error", http.StatusInternalServerError)
				return
			}

			ctx := context.WithValue(r.Context(), userKey, user)
			ctx = context.WithValue(ctx, sessionKey, session)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func unauthenticated(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(`{"authenticated":false}`))
}

func GetUser(ctx context.Context) (*domain.User, bool) {
	user, ok := ctx.Value(userKey).(*domain.User)
	return user, ok
}

func GetSession(ctx context.Context) (*domain.Session, bool) {
	session, ok := ctx.Value(sessionKey).(*domain.Session)
	return session, ok
}

func GetUserID(ctx context.Context) (uuid.UUID, bool) {
	user, ok := GetUser(ctx)
	if !ok {
		return uuid.Nil, false
	}
	return user.ID, true
}

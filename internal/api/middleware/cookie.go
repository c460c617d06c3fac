package middleware

import (
	"net/http"
	"time"

	"github.com/medtrack/medtrack-server/internal/config"
)

// SessionCookie builds the cookie carrying the opaque session token. The
// client never reads its value; HttpOnly keeps scripts away from it, and the
// production profile (Secure, SameSite=Strict) tightens delivery.
func SessionCookie(cfg *config.Config, token string, ttl time.Duration) *http.Cookie {
	sameSite := http.SameSiteLaxMode
	if cfg.Production() {
		sameSite = http.SameSiteStrictMode
	}
	return &http.Cookie{
		Name:     cfg.CookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(ttl.Seconds()),
		HttpOnly: true,
		Secure:   cfg.Production(),
		SameSite: sameSite,
	}
}

// ClearSessionCookie expires the session cookie on the client.
func ClearSessionCookie(cfg *config.Config) *http.Cookie {
	c := SessionCookie(cfg, "", 0)
	c.MaxAge = -1
	return c
}

package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"math"
	"net/http"
	"strconv"

	"github.com/medtrack/medtrack-server/internal/api/middleware"
	"github.com/medtrack/medtrack-server/internal/config"
	"github.com/medtrack/medtrack-server/internal/domain"
	"github.com/medtrack/medtrack-server/internal/service"
)

type AuthHandler struct {
	authService *service.AuthService
	cfg         *config.Config
}

func NewAuthHandler(authService *service.AuthService, cfg *config.Config) *AuthHandler {
	return &AuthHandler{authService: authService, cfg: cfg}
}

type RegisterRequest struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	DisplayName string `json:"displayName,omitempty"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, CodeValidationError, "Invalid request body")
		return
	}

	if ok := requireCredentials(w, req.Email, req.Password); !ok {
		return
	}

	result, err := h.authService.Register(r.Context(), service.RegisterInput{
		Email:       req.Email,
		Password:    req.Password,
		DisplayName: req.DisplayName,
	}, requestMeta(r))
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidEmail):
			writeFieldError(w, CodeValidationError, err.Error(), "email")
		case errors.Is(err, domain.ErrWeakPassword):
			writeFieldError(w, CodeValidationError, err.Error(), "password")
		case errors.Is(err, domain.ErrDisplayNameTooLong):
			writeFieldError(w, CodeValidationError, err.Error(), "displayName")
		case errors.Is(err, domain.ErrEmailTaken):
			// Deliberately generic: the conflict response must not confirm
			// that the address is registered.
			writeError(w, http.StatusConflict, CodeConflict, "Registration could not be completed")
		default:
			log.Printf("ERROR [handlers.Auth] register failed: %v", err)
			writeError(w, http.StatusInternalServerError, "INTERNAL", "Internal server error")
		}
		return
	}

	http.SetCookie(w, middleware.SessionCookie(h.cfg, result.Token, h.cfg.SessionTTL))
	writeJSON(w, http.StatusCreated, AuthResponse{
		User:    newUserResponse(result.User),
		Session: newSessionResponse(result.Session),
	})
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, CodeValidationError, "Invalid request body")
		return
	}

	if ok := requireCredentials(w, req.Email, req.Password); !ok {
		return
	}

	result, err := h.authService.Login(r.Context(), service.LoginInput{
		Email:    req.Email,
		Password: req.Password,
	}, requestMeta(r))
	if err != nil {
		var rateErr *service.RateLimitedError
		switch {
		case errors.As(err, &rateErr):
			secs := int(math.Ceil(rateErr.RetryAfter.Seconds()))
			if secs < 1 {
				secs = 1
			}
			w.Header().Set("Retry-After", strconv.Itoa(secs))
			writeError(w, http.StatusTooManyRequests, CodeRateLimited, "Too many attempts, try again later")
		case errors.Is(err, domain.ErrInvalidCredentials):
			// Identical body whether the email is unknown or the password is
			// wrong.
			writeError(w, http.StatusUnauthorized, CodeInvalidCredentials, "Invalid email or password")
		default:
			log.Printf("ERROR [handlers.Auth] login failed: %v", err)
			writeError(w, http.StatusInternalServerError, "INTERNAL", "Internal server error")
		}
		return
	}

	http.SetCookie(w, middleware.SessionCookie(h.cfg, result.Token, h.cfg.SessionTTL))
	writeJSON(w, http.StatusOK, AuthResponse{
		User:    newUserResponse(result.User),
		Session: newSessionResponse(result.Session),
	})
}

// Logout always reports success, with or without a resolvable session.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(h.cfg.CookieName); err == nil && cookie.Value != "" {
		if err := h.authService.Logout(r.Context(), cookie.Value); err != nil {
			log.Printf("ERROR [handlers.Auth] logout failed: %v", err)
		}
	}

	http.SetCookie(w, middleware.ClearSessionCookie(h.cfg))
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// SessionStatus reports the resolved identity. It runs behind the session
// middleware, which already answered 401 for anything unresolvable.
func (h *AuthHandler) SessionStatus(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	session, ok2 := middleware.GetSession(r.Context())
	if !ok || !ok2 {
		writeJSON(w, http.StatusUnauthorized, SessionStatusResponse{Authenticated: false})
		return
	}

	userResp := newUserResponse(user)
	sessionResp := newSessionResponse(session)
	writeJSON(w, http.StatusOK, SessionStatusResponse{
		Authenticated: true,
		User:          &userResp,
		Session:       &sessionResp,
	})
}

func (h *AuthHandler) Demo(w http.ResponseWriter, r *http.Request) {
	result, err := h.authService.StartDemo(r.Context(), requestMeta(r))
	if err != nil {
		var rateErr *service.RateLimitedError
		if errors.As(err, &rateErr) {
			secs := int(math.Ceil(rateErr.RetryAfter.Seconds()))
			if secs < 1 {
				secs = 1
			}
			w.Header().Set("Retry-After", strconv.Itoa(secs))
			writeError(w, http.StatusTooManyRequests, CodeRateLimited, "Too many attempts, try again later")
			return
		}
		log.Printf("ERROR [handlers.Auth] demo session failed: %v", err)
		writeError(w, http.StatusInternalServerError, "INTERNAL", "Internal server error")
		return
	}

	http.SetCookie(w, middleware.SessionCookie(h.cfg, result.Token, h.cfg.SessionTTL))
	writeJSON(w, http.StatusCreated, AuthResponse{
		User:    newUserResponse(result.User),
		Session: newSessionResponse(result.Session),
	})
}

// Me returns the authenticated user's profile with the identity label used by
// the top bar.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, SessionStatusResponse{Authenticated: false})
		return
	}

	writeJSON(w, http.StatusOK, struct {
		UserResponse
		Identity string `json:"identity"`
	}{
		UserResponse: newUserResponse(user),
		Identity:     user.Identity(),
	})
}

// requireCredentials rejects requests missing email or password, naming the
// missing field when only one is absent. Reports whether the request may
// proceed.
func requireCredentials(w http.ResponseWriter, email, password string) bool {
	switch {
	case email == "" && password == "":
		writeError(w, http.StatusBadRequest, CodeValidationError, "Email and password are required")
	case email == "":
		writeFieldError(w, CodeValidationError, "Email is required", "email")
	case password == "":
		writeFieldError(w, CodeValidationError, "Password is required", "password")
	default:
		return true
	}
	return false
}

func requestMeta(r *http.Request) service.RequestMeta {
	return service.RequestMeta{
		IPAddress: middleware.ClientIP(r),
		UserAgent: r.UserAgent(),
	}
}

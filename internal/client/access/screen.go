// Package access drives the login/register screen. It mirrors the server's
// validation for the cheap cases so obviously bad input never costs a round
// trip, and it owns the submit lifecycle: idle -> submitting -> success or
// error.
package access

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/medtrack/medtrack-server/internal/client/api"
	"github.com/medtrack/medtrack-server/internal/client/session"
)

type Mode string

const (
	ModeLogin    Mode = "login"
	ModeRegister Mode = "register"
)

// DashboardRoute is where a completed authentication lands.
const DashboardRoute = "/dashboard"

// Client-side validation codes, mirroring (not replacing) the server rules.
const (
	CodeEmailPasswordRequired = "EMAIL_PASSWORD_REQUIRED"
	CodePasswordTooShort      = "PASSWORD_TOO_SHORT"
)

const minPasswordLength = 10

// defaultBannerMinVisible is how long the registration success banner stays
// before it can be dismissed.
const defaultBannerMinVisible = 2 * time.Second

type FormError struct {
	Code    string
	Message string
}

func (e *FormError) Error() string { return e.Message }

// FormState is a render snapshot. The password never appears here and is
// never logged.
type FormState struct {
	Mode          Mode
	Email         string
	DisplayName   string
	Submitting    bool
	Err           *FormError
	BannerVisible bool
}

// Result reports what a Submit call did.
type Result struct {
	// Ignored is set when the submit was dropped by the duplicate-submission
	// guard; no network call happened.
	Ignored bool
	// RedirectTo is set once authentication completed.
	RedirectTo string
}

// AuthAPI is the slice of the API client the screen needs.
type AuthAPI interface {
	Login(ctx context.Context, req api.LoginRequest) (*api.AuthResponse, error)
	Register(ctx context.Context, req api.RegisterRequest) (*api.AuthResponse, error)
}

type Screen struct {
	client AuthAPI
	store  *session.Store
	now    func() time.Time

	bannerMinVisible time.Duration

	mu            sync.Mutex
	mode          Mode
	email         string
	password      string
	displayName   string
	submitting    bool
	err           *FormError
	bannerShownAt time.Time
	bannerVisible bool
}

func NewScreen(client AuthAPI, store *session.Store) *Screen {
	return &Screen{
		client:           client,
		store:            store,
		now:              time.Now,
		bannerMinVisible: defaultBannerMinVisible,
		mode:             ModeLogin,
	}
}

func (s *Screen) SetEmail(v string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.email = v
}

func (s *Screen) SetPassword(v string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.password = v
}

func (s *Screen) SetDisplayName(v string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.displayName = v
}

// ToggleMode flips login/register. Mode-specific errors are cleared; the
// email survives the flip as a convenience, the password does not.
func (s *Screen) ToggleMode() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.submitting {
		return
	}
	if s.mode == ModeLogin {
		s.mode = ModeRegister
	} else {
		s.mode = ModeLogin
	}
	s.err = nil
	s.password = ""
}

func (s *Screen) Snapshot() FormState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return FormState{
		Mode:          s.mode,
		Email:         s.email,
		DisplayName:   s.displayName,
		Submitting:    s.submitting,
		Err:           s.err,
		BannerVisible: s.bannerVisible,
	}
}

// Submit runs the current form. A submit while one is in flight is ignored;
// cheap validation failures never reach the network; on any failure the
// entered values stay in place for correction.
func (s *Screen) Submit(ctx context.Context) Result {
	s.mu.Lock()
	if s.submitting {
		s.mu.Unlock()
		return Result{Ignored: true}
	}

	if s.email == "" || s.password == "" {
		s.err = &FormError{Code: CodeEmailPasswordRequired, Message: "Email and password are required"}
		s.mu.Unlock()
		return Result{}
	}
	if len(s.password) < minPasswordLength {
		s.err = &FormError{Code: CodePasswordTooShort, Message: "Password must be at least 10 characters"}
		s.mu.Unlock()
		return Result{}
	}

	s.submitting = true
	s.err = nil
	mode := s.mode
	email, password, displayName := s.email, s.password, s.displayName
	s.mu.Unlock()

	var resp *api.AuthResponse
	var err error
	if mode == ModeRegister {
		resp, err = s.client.Register(ctx, api.RegisterRequest{
			Email:       email,
			Password:    password,
			DisplayName: displayName,
		})
	} else {
		resp, err = s.client.Login(ctx, api.LoginRequest{Email: email, Password: password})
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.submitting = false
	s.password = ""

	if err != nil {
		s.err = mapError(err)
		return Result{}
	}

	// Registration is authoritative auto-login: the cookie is already set,
	// so the screen proceeds to the authenticated area, not a second prompt.
	s.store.SetAuthenticated(&resp.User, &resp.Session)
	if mode == ModeRegister {
		s.bannerVisible = true
		s.bannerShownAt = s.now()
	}
	return Result{RedirectTo: DashboardRoute}
}

// DismissBanner hides the registration success banner once its minimum
// visible duration has passed. Reports whether it was dismissed.
func (s *Screen) DismissBanner() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.bannerVisible {
		return false
	}
	if s.now().Sub(s.bannerShownAt) < s.bannerMinVisible {
		return false
	}
	s.bannerVisible = false
	return true
}

// mapError turns client API errors into user-facing form errors. Auth and
// conflict outcomes stay generic so the form cannot be used to probe which
// accounts exist.
func mapError(err error) *FormError {
	var validationErr *api.ValidationError
	var rateErr *api.RateLimitedError
	switch {
	case errors.As(err, &validationErr):
		return &FormError{Code: validationErr.Code, Message: validationErr.Message}
	case errors.Is(err, api.ErrUnauthenticated):
		return &FormError{Code: "INVALID_CREDENTIALS", Message: "Invalid email or password"}
	case errors.Is(err, api.ErrConflict):
		return &FormError{Code: "CONFLICT", Message: "Registration could not be completed"}
	case errors.As(err, &rateErr):
		return &FormError{Code: "RATE_LIMITED", Message: "Too many attempts, try again later"}
	default:
		return &FormError{Code: "INFRASTRUCTURE", Message: "Something went wrong, please try again"}
	}
}

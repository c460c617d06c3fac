// Package api is the typed HTTP client for the Medical Tracker auth API. The
// session cookie lives in the client's jar; callers observe only whether
// authenticated requests succeed, never the cookie's content.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"strconv"
	"time"
)

// Expected non-success outcomes.
var (
	// ErrUnauthenticated means the server resolved the caller as logged out.
	// It is an expected state, not a fault.
	ErrUnauthenticated = errors.New("not authenticated")
	ErrConflict        = errors.New("registration could not be completed")
)

// ValidationError is a client-correctable, field-level rejection.
type ValidationError struct {
	Code    string
	Message string
	Field   string
}

func (e *ValidationError) Error() string { return e.Message }

// RateLimitedError carries the server's retry-after hint.
type RateLimitedError struct {
	RetryAfter time.Duration
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("rate limited, retry after %s", e.RetryAfter)
}

// InfraError marks network or server faults, distinct from "logged out" so
// callers can offer a retry instead of treating the fault as a logout.
type InfraError struct {
	Status int
	Err    error
}

func (e *InfraError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("infrastructure fault: %v", e.Err)
	}
	return fmt.Sprintf("infrastructure fault: status %d", e.Status)
}

func (e *InfraError) Unwrap() error { return e.Err }

// Response types matching backend

type User struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	DisplayName string `json:"displayName,omitempty"`
}

type Session struct {
	ID        string    `json:"id"`
	ExpiresAt time.Time `json:"expiresAt"`
	Demo      bool      `json:"demo,omitempty"`
}

type AuthResponse struct {
	User    User    `json:"user"`
	Session Session `json:"session"`
}

type SessionStatus struct {
	Authenticated bool     `json:"authenticated"`
	User          *User    `json:"user,omitempty"`
	Session       *Session `json:"session,omitempty"`
}

type Profile struct {
	User
	Identity string `json:"identity"`
}

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

// Client handles HTTP communication with the backend.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

func NewClient(baseURL string) (*Client, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	return &Client{
		baseURL: baseURL + "/api/v1",
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
			Jar:     jar,
		},
	}, nil
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

func (c *Client) Register(ctx context.Context, req RegisterRequest) (*AuthResponse, error) {
	var resp AuthResponse
	if err := c.doRequest(ctx, http.MethodPost, "/auth/register", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) Login(ctx context.Context, req LoginRequest) (*AuthResponse, error) {
	var resp AuthResponse
	if err := c.doRequest(ctx, http.MethodPost, "/auth/login", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) Logout(ctx context.Context) error {
	return c.doRequest(ctx, http.MethodPost, "/auth/logout", nil, nil)
}

// Session probes the identity endpoint. A logged-out caller gets
// ErrUnauthenticated; anything beyond 200/401 is an InfraError.
func (c *Client) Session(ctx context.Context) (*SessionStatus, error) {
	var resp SessionStatus
	if err := c.doRequest(ctx, http.MethodGet, "/auth/session", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) Demo(ctx context.Context) (*AuthResponse, error) {
	var resp AuthResponse
	if err := c.doRequest(ctx, http.MethodPost, "/auth/demo", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) Me(ctx context.Context) (*Profile, error) {
	var resp Profile
	if err := c.doRequest(ctx, http.MethodGet, "/users/me", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) doRequest(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &InfraError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		if out == nil {
			return nil
		}
		return json.NewDecoder(resp.Body).Decode(out)
	}

	return c.mapError(resp)
}

func (c *Client) mapError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	var apiErr apiError
	_ = json.Unmarshal(raw, &apiErr)

	switch resp.StatusCode {
	case http.StatusUnauthorized:
		return ErrUnauthenticated
	case http.StatusBadRequest:
		if apiErr.Message == "" {
			apiErr.Message = "validation failed"
		}
		return &ValidationError{Code: apiErr.Code, Message: apiErr.Message, Field: apiErr.Field}
	case http.StatusConflict:
		return ErrConflict
	case http.StatusTooManyRequests:
		retryAfter := time.Minute
		if secs, err := strconv.Atoi(resp.Header.Get("Retry-After")); err == nil {
			retryAfter = time.Duration(secs) * time.Second
		}
		return &RateLimitedError{RetryAfter: retryAfter}
	default:
		return &InfraError{Status: resp.StatusCode}
	}
}

package handlers_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/medtrack/medtrack-server/internal/api/handlers"
	"github.com/medtrack/medtrack-server/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func postJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()

	raw, err := json.Marshal(body)
	require.NoError(t, err)

	resp, err := http.Post(url, "application/json", bytes.NewBuffer(raw))
	require.NoError(t, err)
	return resp
}

func getWithCookie(t *testing.T, url string, cookie *http.Cookie) *http.Response {
	t.Helper()

	req, err := http.NewRequest(http.MethodGet, url, nil)
	require.NoError(t, err)
	if cookie != nil {
		req.AddCookie(cookie)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

func TestAuthHandler_MissingCredentialsNameTheMissingField(t *testing.T) {
	ts := testutil.NewTestServer(t)

	tests := []struct {
		name      string
		request   map[string]string
		wantField string
	}{
		{
			name:      "missing password",
			request:   map[string]string{"email": "a@example.com"},
			wantField: "password",
		},
		{
			name:      "missing email",
			request:   map[string]string{"password": "StrongPass123!"},
			wantField: "email",
		},
		{
			name:      "both missing carries no field",
			request:   map[string]string{},
			wantField: "",
		},
	}

	for _, path := range []string{"/auth/register", "/auth/login"} {
		for _, tt := range tests {
			t.Run(path+" "+tt.name, func(t *testing.T) {
				resp := postJSON(t, ts.APIURL(path), tt.request)
				defer resp.Body.Close()

				assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
				var body handlers.ErrorResponse
				testutil.AssertJSONResponse(t, resp, &body)
				assert.Equal(t, handlers.CodeValidationError, body.Code)
				assert.Equal(t, tt.wantField, body.Field)
			})
		}
	}
}

func TestAuthHandler_Register(t *testing.T) {
	ts := testutil.NewTestServer(t)

	tests := []struct {
		name           string
		request        map[string]string
		setup          func()
		expectedStatus int
		expectedCode   string
		checkResponse  func(*testing.T, *http.Response)
	}{
		{
			name: "successful registration",
			request: map[string]string{
				"email":    "user_a@example.com",
				"password": "StrongPass123!",
			},
			expectedStatus: http.StatusCreated,
			checkResponse: func(t *testing.T, resp *http.Response) {
				var result testutil.AuthResponse
				testutil.AssertJSONResponse(t, resp, &result)
				assert.Equal(t, "user_a@example.com", result.User.Email)
				assert.NotEmpty(t, result.Session.ID)
				assert.True(t, result.Session.ExpiresAt.After(time.Now()))

				var hasCookie bool
				for _, c := range resp.Cookies() {
					if c.Name == ts.Config.CookieName {
						hasCookie = true
						assert.True(t, c.HttpOnly)
						assert.NotEmpty(t, c.Value)
					}
				}
				assert.True(t, hasCookie, "register must set the session cookie")
			},
		},
		{
			name: "weak password",
			request: map[string]string{
				"email":    "weak@example.com",
				"password": "short1!",
			},
			expectedStatus: http.StatusBadRequest,
			expectedCode:   handlers.CodeValidationError,
		},
		{
			name: "malformed email",
			request: map[string]string{
				"email":    "not-an-email",
				"password": "StrongPass123!",
			},
			expectedStatus: http.StatusBadRequest,
			expectedCode:   handlers.CodeValidationError,
		},
		{
			name: "missing password",
			request: map[string]string{
				"email": "nopass@example.com",
			},
			expectedStatus: http.StatusBadRequest,
			expectedCode:   handlers.CodeValidationError,
		},
		{
			name: "duplicate email",
			request: map[string]string{
				"email":    "existing@example.com",
				"password": "StrongPass123!",
			},
			setup: func() {
				testutil.NewUserBuilder().
					WithEmail("existing@example.com").
					Build(t, ts.DB.DB)
			},
			expectedStatus: http.StatusConflict,
			expectedCode:   handlers.CodeConflict,
			checkResponse: func(t *testing.T, resp *http.Response) {
				// The conflict body must not reveal that the email exists.
				var body struct {
					Message string `json:"message"`
				}
				testutil.AssertJSONResponse(t, resp, &body)
				assert.NotContains(t, strings.ToLower(body.Message), "email")
				assert.NotContains(t, strings.ToLower(body.Message), "exist")
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts.DB.Truncate(t)

			if tt.setup != nil {
				tt.setup()
			}

			resp := postJSON(t, ts.APIURL("/auth/register"), tt.request)
			defer resp.Body.Close()

			assert.Equal(t, tt.expectedStatus, resp.StatusCode)
			if tt.expectedCode != "" {
				var body struct {
					Code string `json:"code"`
				}
				testutil.AssertJSONResponse(t, resp, &body)
				assert.Equal(t, tt.expectedCode, body.Code)
			}
			if tt.checkResponse != nil {
				tt.checkResponse(t, resp)
			}
		})
	}
}

func TestAuthHandler_RegisterThenSession(t *testing.T) {
	ts := testutil.NewTestServer(t)

	_, cookie := testutil.NewUserBuilder().
		WithEmail("user_a@example.com").
		WithPassword("StrongPass123!").
		BuildAndAuthenticate(t, ts)

	resp := getWithCookie(t, ts.APIURL("/auth/session"), cookie)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)

	var status struct {
		Authenticated bool `json:"authenticated"`
		User          *struct {
			Email string `json:"email"`
		} `json:"user"`
	}
	testutil.AssertJSONResponse(t, resp, &status)
	assert.True(t, status.Authenticated)
	require.NotNil(t, status.User)
	assert.Equal(t, "user_a@example.com", status.User.Email)
}

func TestAuthHandler_Login(t *testing.T) {
	ts := testutil.NewTestServer(t)

	user, rawPassword := testutil.NewUserBuilder().
		WithEmail("login@example.com").
		WithPassword("correcthorse1!").
		Build(t, ts.DB.DB)

	t.Run("successful login", func(t *testing.T) {
		resp := postJSON(t, ts.APIURL("/auth/login"), map[string]string{
			"email":    user.Email,
			"password": rawPassword,
		})
		defer resp.Body.Close()

		require.Equal(t, http.StatusOK, resp.StatusCode)

		var result testutil.AuthResponse
		testutil.AssertJSONResponse(t, resp, &result)
		assert.Equal(t, user.Email, result.User.Email)
	})

	t.Run("wrong password and unknown email share one response", func(t *testing.T) {
		respWrong := postJSON(t, ts.APIURL("/auth/login"), map[string]string{
			"email":    user.Email,
			"password": "wrongpassword1!",
		})
		defer respWrong.Body.Close()
		respUnknown := postJSON(t, ts.APIURL("/auth/login"), map[string]string{
			"email":    "nobody@example.com",
			"password": "whatever1234!",
		})
		defer respUnknown.Body.Close()

		testutil.AssertErrorCode(t, respWrong, http.StatusUnauthorized, handlers.CodeInvalidCredentials)
		testutil.AssertErrorCode(t, respUnknown, http.StatusUnauthorized, handlers.CodeInvalidCredentials)
	})

	t.Run("missing fields", func(t *testing.T) {
		resp := postJSON(t, ts.APIURL("/auth/login"), map[string]string{"email": user.Email})
		defer resp.Body.Close()

		testutil.AssertErrorCode(t, resp, http.StatusBadRequest, handlers.CodeValidationError)
	})
}

func TestAuthHandler_LoginRateLimited(t *testing.T) {
	ts := testutil.NewTestServer(t)

	user, rawPassword := testutil.NewUserBuilder().
		WithEmail("locked@example.com").
		WithPassword("correcthorse1!").
		Build(t, ts.DB.DB)

	for i := 0; i < 5; i++ {
		resp := postJSON(t, ts.APIURL("/auth/login"), map[string]string{
			"email":    user.Email,
			"password": "wrongpassword1!",
		})
		testutil.AssertStatusCode(t, resp, http.StatusUnauthorized)
		resp.Body.Close()
	}

	// Sixth attempt inside the window: rate limited, not invalid credentials,
	// even though the password is now correct.
	resp := postJSON(t, ts.APIURL("/auth/login"), map[string]string{
		"email":    user.Email,
		"password": rawPassword,
	})
	defer resp.Body.Close()

	testutil.AssertErrorCode(t, resp, http.StatusTooManyRequests, handlers.CodeRateLimited)
	assert.NotEmpty(t, resp.Header.Get("Retry-After"))
}

func TestAuthHandler_Logout(t *testing.T) {
	ts := testutil.NewTestServer(t)

	user, _ := testutil.NewUserBuilder().Build(t, ts.DB.DB)
	_, token := testutil.NewSessionBuilder(user).Build(t, ts.DB.DB)
	cookie := &http.Cookie{Name: ts.Config.CookieName, Value: token}

	logout := func() *http.Response {
		req, err := http.NewRequest(http.MethodPost, ts.APIURL("/auth/logout"), nil)
		require.NoError(t, err)
		req.AddCookie(cookie)
		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		return resp
	}

	// Logout succeeds, repeats succeed, and the cookie is expired each time.
	for i := 0; i < 2; i++ {
		resp := logout()
		testutil.AssertStatusCode(t, resp, http.StatusOK)
		for _, c := range resp.Cookies() {
			if c.Name == ts.Config.CookieName {
				assert.Negative(t, c.MaxAge)
			}
		}
		resp.Body.Close()
	}

	// The revoked session no longer authorizes requests.
	resp := getWithCookie(t, ts.APIURL("/auth/session"), cookie)
	defer resp.Body.Close()
	testutil.AssertStatusCode(t, resp, http.StatusUnauthorized)

	// No cookie at all also succeeds.
	noCookie, err := http.Post(ts.APIURL("/auth/logout"), "application/json", nil)
	require.NoError(t, err)
	defer noCookie.Body.Close()
	testutil.AssertStatusCode(t, noCookie, http.StatusOK)
}

func TestAuthHandler_SessionUnauthenticated(t *testing.T) {
	ts := testutil.NewTestServer(t)

	user, _ := testutil.NewUserBuilder().Build(t, ts.DB.DB)
	_, expiredToken := testutil.NewSessionBuilder(user).
		ExpiredAt(time.Now().Add(-time.Minute)).
		Build(t, ts.DB.DB)
	_, revokedToken := testutil.NewSessionBuilder(user).
		Revoked().
		Build(t, ts.DB.DB)

	cases := []struct {
		name   string
		cookie *http.Cookie
	}{
		{name: "no cookie", cookie: nil},
		{name: "garbage token", cookie: &http.Cookie{Name: ts.Config.CookieName, Value: "bogus"}},
		{name: "expired session", cookie: &http.Cookie{Name: ts.Config.CookieName, Value: expiredToken}},
		{name: "revoked session", cookie: &http.Cookie{Name: ts.Config.CookieName, Value: revokedToken}},
	}

	var bodies []string
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp := getWithCookie(t, ts.APIURL("/auth/session"), tc.cookie)
			defer resp.Body.Close()

			assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

			var raw json.RawMessage
			testutil.AssertJSONResponse(t, resp, &raw)
			bodies = append(bodies, string(raw))
		})
	}

	// Every failure mode produces the identical body; the reason never
	// leaks.
	for i := 1; i < len(bodies); i++ {
		assert.JSONEq(t, bodies[0], bodies[i])
	}
}

func TestAuthHandler_Demo(t *testing.T) {
	ts := testutil.NewTestServer(t)

	resp, err := http.Post(ts.APIURL("/auth/demo"), "application/json", nil)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var result testutil.AuthResponse
	testutil.AssertJSONResponse(t, resp, &result)
	assert.True(t, result.Session.Demo)

	var cookie *http.Cookie
	for _, c := range resp.Cookies() {
		if c.Name == ts.Config.CookieName {
			cookie = c
		}
	}
	require.NotNil(t, cookie)

	probe := getWithCookie(t, ts.APIURL("/auth/session"), cookie)
	defer probe.Body.Close()
	testutil.AssertStatusCode(t, probe, http.StatusOK)
}

func TestAuthHandler_Me(t *testing.T) {
	ts := testutil.NewTestServer(t)

	_, cookie := testutil.NewUserBuilder().
		WithEmail("abc@example.com").
		BuildAndAuthenticate(t, ts)

	resp := getWithCookie(t, ts.APIURL("/users/me"), cookie)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)

	var profile struct {
		Email    string `json:"email"`
		Identity string `json:"identity"`
	}
	testutil.AssertJSONResponse(t, resp, &profile)
	assert.Equal(t, "abc@example.com", profile.Email)
	assert.Equal(t, "abc...@example.com", profile.Identity)

	unauth := getWithCookie(t, ts.APIURL("/users/me"), nil)
	defer unauth.Body.Close()
	testutil.AssertStatusCode(t, unauth, http.StatusUnauthorized)
}

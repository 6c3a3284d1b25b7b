package handlers_test

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avelldiaz/authbase/internal/auth"
	"github.com/avelldiaz/authbase/internal/config"
	"github.com/avelldiaz/authbase/internal/models"
	"github.com/avelldiaz/authbase/internal/server"
	"github.com/avelldiaz/authbase/internal/storage/memory"
)

const testSecret = "handler-test-secret"

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Errors  []string        `json:"errors"`
}

type sessionData struct {
	User      models.SafeUser `json:"user"`
	Token     string          `json:"token"`
	ExpiresIn int64           `json:"expiresIn"`
}

func newTestServer(t *testing.T, secret string) (*httptest.Server, *memory.Store) {
	t.Helper()

	cfg := config.Config{
		Env:         "production",
		Port:        "0",
		JWTSecret:   secret,
		JWTTTL:      time.Hour,
		CORSOrigins: []string{"*"},
	}
	store := memory.NewStore()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	ts := httptest.NewServer(server.New(cfg, store, log).Handler())
	t.Cleanup(ts.Close)
	return ts, store
}

func postJSON(t *testing.T, url string, payload any) (*http.Response, envelope) {
	t.Helper()

	body, err := json.Marshal(payload)
	require.NoError(t, err)

	resp, err := http.Post(url, "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	return resp, decodeEnvelope(t, resp)
}

func getWithToken(t *testing.T, url, token string) (*http.Response, envelope) {
	t.Helper()

	req, err := http.NewRequest(http.MethodGet, url, nil)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp, decodeEnvelope(t, resp)
}

func decodeEnvelope(t *testing.T, resp *http.Response) envelope {
	t.Helper()
	defer resp.Body.Close()

	var env envelope
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
	return env
}

func signUpPayload() map[string]string {
	return map[string]string{
		"email":    "test@example.com",
		"password": "SecurePass1",
		"fullName": "Test User",
	}
}

func TestSignUp(t *testing.T) {
	ts, _ := newTestServer(t, testSecret)

	resp, env := postJSON(t, ts.URL+"/api/auth/signup", signUpPayload())
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	require.True(t, env.Success)

	var data sessionData
	require.NoError(t, json.Unmarshal(env.Data, &data))
	assert.Equal(t, "test@example.com", data.User.Email)
	assert.Equal(t, "Test User", data.User.FullName)
	assert.NotEmpty(t, data.User.ID)
	assert.NotEmpty(t, data.Token)
	assert.Equal(t, int64(3600), data.ExpiresIn)

	// The raw payload must not leak any password material.
	raw, err := json.Marshal(env)
	require.NoError(t, err)
	assert.NotContains(t, strings.ToLower(string(raw)), "password")
}

func TestSignUp_Duplicate(t *testing.T) {
	ts, _ := newTestServer(t, testSecret)

	resp, _ := postJSON(t, ts.URL+"/api/auth/signup", signUpPayload())
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, env := postJSON(t, ts.URL+"/api/auth/signup", signUpPayload())
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.False(t, env.Success)
	assert.Equal(t, "An account with this email already exists.", env.Message)
}

func TestSignUp_DuplicateDiffersOnlyByCase(t *testing.T) {
	ts, _ := newTestServer(t, testSecret)

	resp, _ := postJSON(t, ts.URL+"/api/auth/signup", signUpPayload())
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	payload := signUpPayload()
	payload["email"] = "TEST@EXAMPLE.COM"
	resp, _ = postJSON(t, ts.URL+"/api/auth/signup", payload)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestSignUp_Validation(t *testing.T) {
	ts, _ := newTestServer(t, testSecret)

	tests := []struct {
		name    string
		payload map[string]string
		want    []string
	}{
		{
			name:    "bad email",
			payload: map[string]string{"email": "not-an-email", "password": "SecurePass1", "fullName": "Test User"},
			want:    []string{"Email must be a valid email address"},
		},
		{
			name:    "empty email",
			payload: map[string]string{"email": "", "password": "SecurePass1", "fullName": "Test User"},
			want:    []string{"Email is required"},
		},
		{
			name:    "weak password and short name",
			payload: map[string]string{"email": "test@example.com", "password": "weakpass", "fullName": "X"},
			want: []string{
				"Full name must be at least 2 characters",
				"Password must contain at least one uppercase letter",
				"Password must contain at least one number",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, env := postJSON(t, ts.URL+"/api/auth/signup", tt.payload)
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
			assert.False(t, env.Success)
			assert.Equal(t, "Validation failed", env.Message)
			assert.Equal(t, tt.want, env.Errors)
		})
	}
}

func TestSignUp_MalformedJSON(t *testing.T) {
	ts, _ := newTestServer(t, testSecret)

	resp, err := http.Post(ts.URL+"/api/auth/signup", "application/json", strings.NewReader("{not json"))
	require.NoError(t, err)
	env := decodeEnvelope(t, resp)

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.False(t, env.Success)
}

func TestSignIn(t *testing.T) {
	ts, _ := newTestServer(t, testSecret)

	resp, _ := postJSON(t, ts.URL+"/api/auth/signup", signUpPayload())
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	t.Run("correct credentials", func(t *testing.T) {
		resp, env := postJSON(t, ts.URL+"/api/auth/signin", map[string]string{
			"email":    "test@example.com",
			"password": "SecurePass1",
		})
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "Login successful.", env.Message)

		var data sessionData
		require.NoError(t, json.Unmarshal(env.Data, &data))
		assert.Equal(t, "test@example.com", data.User.Email)
		assert.NotEmpty(t, data.Token)
	})

	t.Run("wrong password and unknown email are indistinguishable", func(t *testing.T) {
		respWrong, envWrong := postJSON(t, ts.URL+"/api/auth/signin", map[string]string{
			"email":    "test@example.com",
			"password": "WrongPass1",
		})
		respUnknown, envUnknown := postJSON(t, ts.URL+"/api/auth/signin", map[string]string{
			"email":    "nobody@example.com",
			"password": "SecurePass1",
		})

		assert.Equal(t, http.StatusUnauthorized, respWrong.StatusCode)
		assert.Equal(t, http.StatusUnauthorized, respUnknown.StatusCode)
		assert.Equal(t, envWrong, envUnknown)
		assert.Equal(t, "Invalid email or password.", envWrong.Message)
	})

	t.Run("missing password", func(t *testing.T) {
		resp, env := postJSON(t, ts.URL+"/api/auth/signin", map[string]string{
			"email": "test@example.com",
		})
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, []string{"Password is required"}, env.Errors)
	})
}

func TestMe(t *testing.T) {
	ts, store := newTestServer(t, testSecret)

	resp, env := postJSON(t, ts.URL+"/api/auth/signup", signUpPayload())
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var session sessionData
	require.NoError(t, json.Unmarshal(env.Data, &session))

	t.Run("no token", func(t *testing.T) {
		resp, env := getWithToken(t, ts.URL+"/api/auth/me", "")
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		assert.Equal(t, "Access denied. No token provided.", env.Message)
	})

	t.Run("garbage token", func(t *testing.T) {
		resp, env := getWithToken(t, ts.URL+"/api/auth/me", "not.a.jwt")
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		assert.Equal(t, "Invalid or expired token.", env.Message)
	})

	t.Run("expired token", func(t *testing.T) {
		expired, err := auth.NewTokenManager(testSecret, -time.Minute).
			Issue(session.User.ID, session.User.Email)
		require.NoError(t, err)

		resp, env := getWithToken(t, ts.URL+"/api/auth/me", expired)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		assert.Equal(t, "Token has expired.", env.Message)
	})

	t.Run("valid token", func(t *testing.T) {
		resp, env := getWithToken(t, ts.URL+"/api/auth/me", session.Token)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var data struct {
			User models.SafeUser `json:"user"`
		}
		require.NoError(t, json.Unmarshal(env.Data, &data))
		assert.Equal(t, session.User.ID, data.User.ID)
		assert.Equal(t, "test@example.com", data.User.Email)
	})

	t.Run("account removed after issuance", func(t *testing.T) {
		store.Delete(t.Context(), session.User.ID)

		resp, env := getWithToken(t, ts.URL+"/api/auth/me", session.Token)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		assert.Equal(t, "Invalid or expired token.", env.Message)
	})
}

func TestMissingSecretFailsClosed(t *testing.T) {
	ts, _ := newTestServer(t, "")

	resp, env := postJSON(t, ts.URL+"/api/auth/signup", signUpPayload())
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Equal(t, "Server configuration error.", env.Message)

	resp, env = getWithToken(t, ts.URL+"/api/auth/me", "any-token")
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Equal(t, "Server configuration error.", env.Message)
}

func TestNotFoundRoute(t *testing.T) {
	ts, _ := newTestServer(t, testSecret)

	resp, err := http.Get(ts.URL + "/api/auth/nope")
	require.NoError(t, err)
	env := decodeEnvelope(t, resp)

	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.False(t, env.Success)
	assert.Equal(t, "Not found", env.Message)
}

func TestHealth(t *testing.T) {
	ts, _ := newTestServer(t, testSecret)

	resp, err := http.Get(ts.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "ok", body["status"])
	assert.NotEmpty(t, body["timestamp"])
}

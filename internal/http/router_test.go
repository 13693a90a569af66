package http

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/helioauth/accounts/internal/config"
	"github.com/helioauth/accounts/pkg/auth"
	"github.com/helioauth/accounts/pkg/domain"
	"github.com/helioauth/accounts/pkg/repository"
)

// captureSender records the last verification code so the tests can complete
// the flow without a mailbox.
type captureSender struct {
	mu       sync.Mutex
	fail     bool
	lastCode string
}

func (c *captureSender) SendOTPEmail(to, name, code string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fail {
		return domain.ErrEmailSend
	}
	c.lastCode = code
	return nil
}

func (c *captureSender) code() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastCode
}

type testEnv struct {
	router http.Handler
	store  *repository.MemoryStore
	sender *captureSender
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := repository.NewMemoryStore()
	sender := &captureSender{}

	hasher := auth.NewHasher(bcrypt.MinCost)
	accounts := auth.NewAccountService(store, hasher)
	verification := auth.NewVerificationService(auth.VerificationConfig{}, store, sender)
	tokens := auth.NewTokenService(auth.TokenConfig{Secret: []byte("test-secret"), Issuer: "accounts-test"})

	router := NewRouter(RouterConfig{
		Logger:              logger,
		AccountService:      accounts,
		VerificationService: verification,
		TokenService:        tokens,
		Store:               store,
		MaxRequestBodySize:  1 << 20,
		RateLimit:           config.RateLimitConfig{Enabled: false},
		SecurityHeaders:     config.SecurityHeadersConfig{Enabled: false},
	})

	return &testEnv{router: router, store: store, sender: sender}
}

func (e *testEnv) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(encoded)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRegisterVerifyLoginFlow(t *testing.T) {
	env := newTestEnv(t)

	// Register.
	rec := env.do(t, http.MethodPost, "/v1/auth/register", "", map[string]string{
		"name":     "Jane Doe",
		"email":    "Jane@Example.com",
		"password": "password1",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	body := decodeBody(t, rec)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, true, body["requiresVerification"])
	assert.Equal(t, "jane@example.com", body["email"])
	assert.NotEmpty(t, body["userId"])
	require.NotEmpty(t, env.sender.code())

	// Login before verification is refused.
	rec = env.do(t, http.MethodPost, "/v1/auth/login", "", map[string]string{
		"email":    "jane@example.com",
		"password": "password1",
	})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	// A wrong code burns an attempt.
	wrong := "000000"
	if wrong == env.sender.code() {
		wrong = "000001"
	}
	rec = env.do(t, http.MethodPost, "/v1/auth/verify", "", map[string]string{
		"email": "jane@example.com",
		"code":  wrong,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decodeBody(t, rec)["error"], "4 attempts remaining")

	// The right code verifies and returns a session token.
	rec = env.do(t, http.MethodPost, "/v1/auth/verify", "", map[string]string{
		"email": "jane@example.com",
		"code":  env.sender.code(),
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	body = decodeBody(t, rec)
	token, _ := body["token"].(string)
	require.NotEmpty(t, token)
	user := body["user"].(map[string]any)
	assert.Equal(t, true, user["emailVerified"])

	// Replaying the consumed code fails.
	rec = env.do(t, http.MethodPost, "/v1/auth/verify", "", map[string]string{
		"email": "jane@example.com",
		"code":  env.sender.code(),
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// Login now succeeds.
	rec = env.do(t, http.MethodPost, "/v1/auth/login", "", map[string]string{
		"email":    "jane@example.com",
		"password": "password1",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	body = decodeBody(t, rec)
	user = body["user"].(map[string]any)
	assert.Equal(t, "jane@example.com", user["email"])

	// The token from verification works on protected routes.
	rec = env.do(t, http.MethodGet, "/v1/me", token, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRegister_DuplicateEmail(t *testing.T) {
	env := newTestEnv(t)

	payload := map[string]string{"name": "Jane", "email": "jane@example.com", "password": "password1"}
	rec := env.do(t, http.MethodPost, "/v1/auth/register", "", payload)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = env.do(t, http.MethodPost, "/v1/auth/register", "", payload)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestRegister_Validation(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name    string
		payload map[string]string
	}{
		{name: "missing fields", payload: map[string]string{"email": "jane@example.com"}},
		{name: "bad email", payload: map[string]string{"name": "Jane", "email": "nope", "password": "password1"}},
		{name: "weak password", payload: map[string]string{"name": "Jane", "email": "jane@example.com", "password": "short"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(t, http.MethodPost, "/v1/auth/register", "", tt.payload)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestLogin_InvalidCredentials(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/v1/auth/login", "", map[string]string{
		"email":    "nobody@example.com",
		"password": "password1",
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestVerify_UnknownAccount(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/v1/auth/verify", "", map[string]string{
		"email": "nobody@example.com",
		"code":  "123456",
	})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestVerify_AttemptsExhausted(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/v1/auth/register", "", map[string]string{
		"name":     "Jane",
		"email":    "jane@example.com",
		"password": "password1",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	wrong := "000000"
	if wrong == env.sender.code() {
		wrong = "000001"
	}
	for i := 0; i < auth.DefaultMaxOTPAttempts; i++ {
		rec = env.do(t, http.MethodPost, "/v1/auth/verify", "", map[string]string{
			"email": "jane@example.com",
			"code":  wrong,
		})
		require.Equal(t, http.StatusBadRequest, rec.Code)
	}

	// Even the correct code is refused once the attempts are spent.
	rec = env.do(t, http.MethodPost, "/v1/auth/verify", "", map[string]string{
		"email": "jane@example.com",
		"code":  env.sender.code(),
	})
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)

	// Resend issues a fresh code that unblocks the account.
	rec = env.do(t, http.MethodPost, "/v1/auth/resend", "", map[string]string{
		"email": "jane@example.com",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodPost, "/v1/auth/verify", "", map[string]string{
		"email": "jane@example.com",
		"code":  env.sender.code(),
	})
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestResend(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/v1/auth/resend", "", map[string]string{"email": "nobody@example.com"})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = env.do(t, http.MethodPost, "/v1/auth/register", "", map[string]string{
		"name":     "Jane",
		"email":    "jane@example.com",
		"password": "password1",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = env.do(t, http.MethodPost, "/v1/auth/verify", "", map[string]string{
		"email": "jane@example.com",
		"code":  env.sender.code(),
	})
	require.Equal(t, http.StatusOK, rec.Code)

	// Resend for an already verified account is rejected.
	rec = env.do(t, http.MethodPost, "/v1/auth/resend", "", map[string]string{"email": "jane@example.com"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestResend_SendFailure(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/v1/auth/register", "", map[string]string{
		"name":     "Jane",
		"email":    "jane@example.com",
		"password": "password1",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	env.sender.fail = true
	rec = env.do(t, http.MethodPost, "/v1/auth/resend", "", map[string]string{"email": "jane@example.com"})
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

// registerAndVerify runs the happy path and returns a session token.
func registerAndVerify(t *testing.T, env *testEnv, email string) string {
	t.Helper()

	rec := env.do(t, http.MethodPost, "/v1/auth/register", "", map[string]string{
		"name":     "Jane Doe",
		"email":    email,
		"password": "password1",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = env.do(t, http.MethodPost, "/v1/auth/verify", "", map[string]string{
		"email": email,
		"code":  env.sender.code(),
	})
	require.Equal(t, http.StatusOK, rec.Code)

	token, _ := decodeBody(t, rec)["token"].(string)
	require.NotEmpty(t, token)
	return token
}

func TestMe_Get(t *testing.T) {
	env := newTestEnv(t)
	token := registerAndVerify(t, env, "jane@example.com")

	rec := env.do(t, http.MethodGet, "/v1/me", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	user := decodeBody(t, rec)["user"].(map[string]any)
	assert.Equal(t, "Jane Doe", user["name"])
	assert.Equal(t, "jane@example.com", user["email"])
	assert.Equal(t, true, user["emailVerified"])

	rec = env.do(t, http.MethodGet, "/v1/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestMe_Update(t *testing.T) {
	env := newTestEnv(t)
	token := registerAndVerify(t, env, "jane@example.com")

	rec := env.do(t, http.MethodPatch, "/v1/me", token, map[string]string{"name": "Jane Smith"})
	require.Equal(t, http.StatusOK, rec.Code)
	user := decodeBody(t, rec)["user"].(map[string]any)
	assert.Equal(t, "Jane Smith", user["name"])
	assert.Equal(t, true, user["emailVerified"])

	// Changing the email drops back to unverified and sends a new code.
	rec = env.do(t, http.MethodPatch, "/v1/me", token, map[string]string{"email": "new@example.com"})
	require.Equal(t, http.StatusOK, rec.Code)
	user = decodeBody(t, rec)["user"].(map[string]any)
	assert.Equal(t, "new@example.com", user["email"])
	assert.Equal(t, false, user["emailVerified"])

	rec = env.do(t, http.MethodPost, "/v1/auth/verify", "", map[string]string{
		"email": "new@example.com",
		"code":  env.sender.code(),
	})
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestMe_Update_EmailTaken(t *testing.T) {
	env := newTestEnv(t)
	registerAndVerify(t, env, "john@example.com")
	token := registerAndVerify(t, env, "jane@example.com")

	rec := env.do(t, http.MethodPatch, "/v1/me", token, map[string]string{"email": "john@example.com"})
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestMe_ChangePassword(t *testing.T) {
	env := newTestEnv(t)
	token := registerAndVerify(t, env, "jane@example.com")

	rec := env.do(t, http.MethodPost, "/v1/me/password", token, map[string]string{
		"currentPassword": "wrong-password",
		"newPassword":     "newpassword1",
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = env.do(t, http.MethodPost, "/v1/me/password", token, map[string]string{
		"currentPassword": "password1",
		"newPassword":     "newpassword1",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	// The old password no longer works; the new one does.
	rec = env.do(t, http.MethodPost, "/v1/auth/login", "", map[string]string{
		"email":    "jane@example.com",
		"password": "password1",
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = env.do(t, http.MethodPost, "/v1/auth/login", "", map[string]string{
		"email":    "jane@example.com",
		"password": "newpassword1",
	})
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestMalformedJSON(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodPost, "/v1/auth/register", strings.NewReader("{not json"))
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

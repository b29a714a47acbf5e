package server

import (
	"bytes"
	"context"
	"ctchen222/accounts/internal/api/controller"
	"ctchen222/accounts/internal/api/repository"
	"ctchen222/accounts/internal/api/repository/mocks"
	"ctchen222/accounts/internal/api/service"
	"ctchen222/accounts/internal/auth"
	"ctchen222/accounts/internal/db"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

type envelope struct {
	Success bool            `json:"success"`
	Code    int             `json:"code"`
	Extras  json.RawMessage `json:"extras"`
}

type errorExtras struct {
	Message string              `json:"message"`
	Errors  map[string][]string `json:"errors"`
}

type profile struct {
	UserID    string `json:"user_id"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	Bio       string `json:"bio"`
}

func newTestServer(t *testing.T, checks map[string]HealthCheck) http.Handler {
	t.Helper()
	gin.SetMode(gin.TestMode)

	ctx := context.Background()
	conn, err := db.Connect(ctx, ":memory:")
	require.NoError(t, err)
	require.NoError(t, db.InitializeSchema(ctx, conn))
	t.Cleanup(func() { conn.Close() })

	var mu sync.Mutex
	versions := map[int64]int64{}
	sessionRepo := mocks.NewMockSessionRepository(gomock.NewController(t))
	sessionRepo.EXPECT().Version(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, id int64) (int64, error) {
		mu.Lock()
		defer mu.Unlock()
		return versions[id], nil
	}).AnyTimes()
	sessionRepo.EXPECT().Rotate(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, id int64) (int64, error) {
		mu.Lock()
		defer mu.Unlock()
		versions[id]++
		return versions[id], nil
	}).AnyTimes()

	users := repository.NewUserRepository(conn)
	sessions := service.NewSessionService(auth.NewTokenIssuer("test-secret", time.Hour), sessionRepo, users)
	userService := service.NewUserService(users, auth.NewAuthenticator(users), sessions, service.Options{PasswordMinLength: 8})

	return NewServer(controller.NewUserController(userService), sessions, checks).Engine()
}

func do(t *testing.T, h http.Handler, method, path, token string, body any) (int, envelope) {
	t.Helper()
	var buf bytes.Buffer
	switch b := body.(type) {
	case nil:
	case string:
		buf.WriteString(b)
	default:
		require.NoError(t, json.NewEncoder(&buf).Encode(b))
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return rec.Code, env
}

func decode[T any](t *testing.T, raw json.RawMessage) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(raw, &v))
	return v
}

func signUp(t *testing.T, h http.Handler, username, email, password string) profile {
	t.Helper()
	code, env := do(t, h, http.MethodPost, "/api/auth/signup", "", map[string]string{
		"username":  username,
		"email":     email,
		"password1": password,
		"password2": password,
	})
	require.Equal(t, http.StatusOK, code, string(env.Extras))
	return decode[profile](t, env.Extras)
}

func login(t *testing.T, h http.Handler, username, password string) string {
	t.Helper()
	code, env := do(t, h, http.MethodPost, "/api/auth/login", "", map[string]string{
		"username": username,
		"password": password,
	})
	require.Equal(t, http.StatusOK, code, string(env.Extras))
	return decode[struct {
		Token string `json:"token"`
	}](t, env.Extras).Token
}

func TestSignUpAndLogin(t *testing.T) {
	h := newTestServer(t, nil)

	p := signUp(t, h, "alice", "alice@example.com", "wonderland")
	assert.Equal(t, "alice", p.Username)
	assert.Equal(t, "alice@example.com", p.Email)
	assert.NotEmpty(t, p.UserID)

	token := login(t, h, "alice", "wonderland")
	assert.NotEmpty(t, token)

	code, env := do(t, h, http.MethodGet, "/api/users/me", token, nil)
	require.Equal(t, http.StatusOK, code)
	me := decode[profile](t, env.Extras)
	assert.Equal(t, p.UserID, me.UserID)
}

func TestSignUp_ValidationErrors(t *testing.T) {
	h := newTestServer(t, nil)
	signUp(t, h, "alice", "alice@example.com", "wonderland")

	code, env := do(t, h, http.MethodPost, "/api/auth/signup", "", map[string]string{
		"username":  "alice",
		"email":     "alice@example.com",
		"password1": "short",
		"password2": "short",
	})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.False(t, env.Success)
	extras := decode[errorExtras](t, env.Extras)
	assert.Equal(t, map[string][]string{
		"username":  {"A user is already registered with this username."},
		"email":     {"A user is already registered with this e-mail address."},
		"password1": {"Password must be a minimum of 8 characters."},
	}, extras.Errors)

	code, env = do(t, h, http.MethodPost, "/api/auth/signup", "", map[string]string{
		"username":  "bobby",
		"email":     "bob@example.com",
		"password1": "wonderland",
		"password2": "wonderlant",
	})
	assert.Equal(t, http.StatusBadRequest, code)
	extras = decode[errorExtras](t, env.Extras)
	assert.Equal(t, []string{"The two password fields didn't match."}, extras.Errors["non_field_errors"])
}

func TestLogin_Rejections(t *testing.T) {
	h := newTestServer(t, nil)
	signUp(t, h, "alice", "alice@example.com", "wonderland")

	tests := []struct {
		name string
		body map[string]string
		want string
	}{
		{"missing password", map[string]string{"username": "alice"}, `Must include "username" and "password".`},
		{"wrong password", map[string]string{"username": "alice", "password": "nope-nope"}, "Unable to log in with provided credentials."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, env := do(t, h, http.MethodPost, "/api/auth/login", "", tt.body)
			assert.Equal(t, http.StatusBadRequest, code)
			extras := decode[errorExtras](t, env.Extras)
			assert.Equal(t, []string{tt.want}, extras.Errors["non_field_errors"])
		})
	}
}

func TestMalformedJSON(t *testing.T) {
	h := newTestServer(t, nil)

	code, env := do(t, h, http.MethodPost, "/api/auth/signup", "", "{not json")
	assert.Equal(t, http.StatusBadRequest, code)
	assert.False(t, env.Success)
}

func TestAuthRequired(t *testing.T) {
	h := newTestServer(t, nil)

	code, env := do(t, h, http.MethodGet, "/api/users/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, "Authentication credentials were not provided.", decode[errorExtras](t, env.Extras).Message)

	code, env = do(t, h, http.MethodGet, "/api/users/me", "garbage", nil)
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, "Invalid token.", decode[errorExtras](t, env.Extras).Message)

	code, _ = do(t, h, http.MethodPost, "/api/auth/password/change", "", map[string]string{})
	assert.Equal(t, http.StatusUnauthorized, code)
}

func TestChangePassword_RotatesSession(t *testing.T) {
	h := newTestServer(t, nil)
	signUp(t, h, "alice", "alice@example.com", "wonderland")
	oldToken := login(t, h, "alice", "wonderland")

	code, env := do(t, h, http.MethodPost, "/api/auth/password/change", oldToken, map[string]string{
		"old_password":  "wrong-password",
		"new_password1": "looking-glass",
		"new_password2": "looking-glass",
	})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, []string{"Invalid password"}, decode[errorExtras](t, env.Extras).Errors["old_password"])

	code, env = do(t, h, http.MethodPost, "/api/auth/password/change", oldToken, map[string]string{
		"old_password":  "wonderland",
		"new_password1": "looking-glass",
		"new_password2": "looking-glass",
	})
	require.Equal(t, http.StatusOK, code, string(env.Extras))
	newToken := decode[struct {
		Token string `json:"token"`
	}](t, env.Extras).Token
	require.NotEmpty(t, newToken)

	code, _ = do(t, h, http.MethodGet, "/api/users/me", oldToken, nil)
	assert.Equal(t, http.StatusUnauthorized, code)

	code, _ = do(t, h, http.MethodGet, "/api/users/me", newToken, nil)
	assert.Equal(t, http.StatusOK, code)

	code, _ = do(t, h, http.MethodPost, "/api/auth/login", "", map[string]string{"username": "alice", "password": "wonderland"})
	assert.Equal(t, http.StatusBadRequest, code)
	login(t, h, "alice", "looking-glass")
}

func TestUpdateProfile_IgnoresEmail(t *testing.T) {
	h := newTestServer(t, nil)
	signUp(t, h, "alice", "alice@example.com", "wonderland")
	token := login(t, h, "alice", "wonderland")

	code, env := do(t, h, http.MethodPatch, "/api/users/me", token, map[string]string{
		"email":      "mallory@example.com",
		"first_name": "Alice",
		"bio":        "curiouser",
	})
	require.Equal(t, http.StatusOK, code, string(env.Extras))
	p := decode[profile](t, env.Extras)
	assert.Equal(t, "alice@example.com", p.Email)
	assert.Equal(t, "Alice", p.FirstName)
	assert.Equal(t, "curiouser", p.Bio)

	code, env = do(t, h, http.MethodPatch, "/api/users/me", token, map[string]string{"username": "abc"})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, []string{"Ensure this field has at least 5 characters."}, decode[errorExtras](t, env.Extras).Errors["username"])
}

func TestHealth(t *testing.T) {
	ok := func(context.Context) error { return nil }
	down := func(context.Context) error { return errors.New("connection refused") }

	h := newTestServer(t, map[string]HealthCheck{"db": ok})
	code, env := do(t, h, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, map[string]string{"db": "ok"}, decode[map[string]string](t, env.Extras))

	h = newTestServer(t, map[string]HealthCheck{"db": ok, "redis": down})
	code, env = do(t, h, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, map[string]string{"db": "ok", "redis": "connection refused"}, decode[map[string]string](t, env.Extras))
}

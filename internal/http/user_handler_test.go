package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"vmforge/internal/domain"
	"vmforge/internal/repository"
	"vmforge/internal/service"
)

type mockUsers struct {
	seq     int64
	byID    map[int64]domain.User
	byEmail map[string]int64
}

func newMockUsers() *mockUsers {
	return &mockUsers{
		byID:    make(map[int64]domain.User),
		byEmail: make(map[string]int64),
	}
}

func (m *mockUsers) Create(_ context.Context, user domain.User) (int64, error) {
	if _, ok := m.byEmail[user.Email]; ok {
		return 0, repository.ErrDuplicateEmail
	}
	m.seq++
	user.ID = m.seq
	m.byID[user.ID] = user
	m.byEmail[user.Email] = user.ID
	return user.ID, nil
}

func (m *mockUsers) GetByID(_ context.Context, id int64) (domain.User, error) {
	user, ok := m.byID[id]
	if !ok {
		return domain.User{}, pgx.ErrNoRows
	}
	return user, nil
}

func (m *mockUsers) GetByEmail(_ context.Context, email string) (domain.User, error) {
	id, ok := m.byEmail[email]
	if !ok {
		return domain.User{}, pgx.ErrNoRows
	}
	return m.GetByID(context.Background(), id)
}

func (m *mockUsers) UpdateLastLogin(_ context.Context, id int64, at time.Time) error {
	user, ok := m.byID[id]
	if !ok {
		return pgx.ErrNoRows
	}
	user.LastLogin = &at
	m.byID[id] = user
	return nil
}

type mockSessions struct {
	users    *mockUsers
	seq      int64
	sessions map[string]domain.Session
}

func newMockSessions(users *mockUsers) *mockSessions {
	return &mockSessions{
		users:    users,
		sessions: make(map[string]domain.Session),
	}
}

func (m *mockSessions) Create(_ context.Context, session domain.Session) (int64, error) {
	m.seq++
	session.ID = m.seq
	m.sessions[session.Token] = session
	return session.ID, nil
}

func (m *mockSessions) GetUserByToken(_ context.Context, token string, now time.Time) (domain.User, error) {
	session, ok := m.sessions[token]
	if !ok || !session.ExpiresAt.After(now) {
		return domain.User{}, pgx.ErrNoRows
	}
	return m.users.GetByID(context.Background(), session.UserID)
}

func (m *mockSessions) DeleteByToken(_ context.Context, token string) error {
	delete(m.sessions, token)
	return nil
}

func (m *mockSessions) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	var n int64
	for token, session := range m.sessions {
		if !session.ExpiresAt.After(now) {
			delete(m.sessions, token)
			n++
		}
	}
	return n, nil
}

func setupAuthRouter() (*gin.Engine, *mockUsers) {
	gin.SetMode(gin.TestMode)
	users := newMockUsers()
	sessions := newMockSessions(users)
	userSvc := service.NewUserService(zap.NewNop(), users)
	sessionSvc := service.NewSessionService("secret", time.Hour, sessions)
	h := NewUserHandler(zap.NewNop(), userSvc, sessionSvc)

	r := gin.New()
	api := r.Group("/api")
	api.POST("/signup", h.Signup)
	api.POST("/login", h.Login)
	api.POST("/logout", h.Logout)
	api.GET("/verify-session", h.VerifySession)
	authed := api.Group("")
	authed.Use(AuthMiddleware(sessionSvc))
	authed.GET("/users/me", h.Me)
	return r, users
}

func performRequest(r http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	var payload []byte
	if body != nil {
		payload, _ = json.Marshal(body)
	}
	req := httptest.NewRequest(method, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return out
}

func signup(t *testing.T, r http.Handler, email string) string {
	t.Helper()
	rec := performRequest(r, http.MethodPost, "/api/signup", map[string]string{
		"name":     "A",
		"email":    email,
		"password": "abcdef",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("signup: expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}
	token, _ := decodeBody(t, rec)["token"].(string)
	if token == "" {
		t.Fatalf("signup: expected non-empty token")
	}
	return token
}

func TestSignup_Success(t *testing.T) {
	r, _ := setupAuthRouter()
	signup(t, r, "a@x.com")
}

func TestSignup_DuplicateEmail(t *testing.T) {
	r, users := setupAuthRouter()
	signup(t, r, "a@x.com")
	before := len(users.byID)

	rec := performRequest(r, http.MethodPost, "/api/signup", map[string]string{
		"name":     "A",
		"email":    "a@x.com",
		"password": "abcdef",
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rec.Code)
	}
	if len(users.byID) != before {
		t.Fatalf("duplicate signup must not create accounts")
	}
}

func TestSignup_ShortPassword(t *testing.T) {
	r, _ := setupAuthRouter()
	rec := performRequest(r, http.MethodPost, "/api/signup", map[string]string{
		"name":     "A",
		"email":    "a@x.com",
		"password": "abc",
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rec.Code)
	}
}

func TestLogin_WrongPassword(t *testing.T) {
	r, _ := setupAuthRouter()
	signup(t, r, "a@x.com")

	rec := performRequest(r, http.MethodPost, "/api/login", map[string]string{
		"email":    "a@x.com",
		"password": "wrongpw",
	})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected status 401, got %d", rec.Code)
	}
}

func TestLogin_UnknownEmail(t *testing.T) {
	r, _ := setupAuthRouter()
	rec := performRequest(r, http.MethodPost, "/api/login", map[string]string{
		"email":    "nobody@x.com",
		"password": "abcdef",
	})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected status 401, got %d", rec.Code)
	}
}

func TestLogin_Success(t *testing.T) {
	r, users := setupAuthRouter()
	signup(t, r, "a@x.com")

	rec := performRequest(r, http.MethodPost, "/api/login", map[string]string{
		"email":    "a@x.com",
		"password": "abcdef",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if token, _ := decodeBody(t, rec)["token"].(string); token == "" {
		t.Fatalf("expected new token on login")
	}
	stored, _ := users.GetByEmail(context.Background(), "a@x.com")
	if stored.LastLogin == nil {
		t.Fatalf("expected last_login updated on login")
	}
}

func TestLogout_ThenVerifySessionFails(t *testing.T) {
	r, _ := setupAuthRouter()
	token := signup(t, r, "a@x.com")

	rec := performRequest(r, http.MethodGet, "/api/verify-session?token="+token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("verify before logout: expected status 200, got %d", rec.Code)
	}

	rec = performRequest(r, http.MethodPost, "/api/logout", map[string]string{"token": token})
	if rec.Code != http.StatusOK {
		t.Fatalf("logout: expected status 200, got %d", rec.Code)
	}
	if success, _ := decodeBody(t, rec)["success"].(bool); !success {
		t.Fatalf("logout must report success")
	}

	rec = performRequest(r, http.MethodGet, "/api/verify-session?token="+token, nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("verify after logout: expected status 401, got %d", rec.Code)
	}
}

func TestVerifySession_MissingToken(t *testing.T) {
	r, _ := setupAuthRouter()
	rec := performRequest(r, http.MethodGet, "/api/verify-session", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected status 401, got %d", rec.Code)
	}
}

func TestMe_WithBearerToken(t *testing.T) {
	r, _ := setupAuthRouter()
	token := signup(t, r, "a@x.com")

	req := httptest.NewRequest(http.MethodGet, "/api/users/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	body := decodeBody(t, rec)
	user, _ := body["user"].(map[string]any)
	if user == nil || user["email"] != "a@x.com" {
		t.Fatalf("unexpected user payload: %v", body)
	}
	if _, leaked := user["password_hash"]; leaked {
		t.Fatalf("password hash must never be serialized")
	}
}

func TestMe_Unauthenticated(t *testing.T) {
	r, _ := setupAuthRouter()
	rec := performRequest(r, http.MethodGet, "/api/users/me", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected status 401, got %d", rec.Code)
	}
}

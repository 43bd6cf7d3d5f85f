package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/intranet-auth-api/internal/application/auth"
	"github.com/intranet-auth-api/internal/domain"
	"github.com/intranet-auth-api/internal/transport/http/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// --- mocks ---

type mockAuthSvc struct{ mock.Mock }

func (m *mockAuthSvc) RequestLogin(ctx context.Context, req auth.LoginRequest, ip string) error {
	return m.Called(ctx, req, ip).Error(0)
}
func (m *mockAuthSvc) VerifyLogin(ctx context.Context, req auth.VerifyRequest) (*auth.LoginResult, error) {
	args := m.Called(ctx, req)
	if r, _ := args.Get(0).(*auth.LoginResult); r != nil {
		return r, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockAuthSvc) PasswordLogin(ctx context.Context, req auth.PasswordLoginRequest, ip string) (*auth.LoginResult, error) {
	args := m.Called(ctx, req, ip)
	if r, _ := args.Get(0).(*auth.LoginResult); r != nil {
		return r, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockAuthSvc) Register(ctx context.Context, req domain.RegisterRequest) (*domain.User, error) {
	args := m.Called(ctx, req)
	if u, _ := args.Get(0).(*domain.User); u != nil {
		return u, args.Error(1)
	}
	return nil, args.Error(1)
}

type mockSessionSvc struct{ mock.Mock }

func (m *mockSessionSvc) Issue(ctx context.Context, userID string) (string, *domain.Session, error) {
	args := m.Called(ctx, userID)
	sess, _ := args.Get(1).(*domain.Session)
	return args.String(0), sess, args.Error(2)
}
func (m *mockSessionSvc) Validate(ctx context.Context, plaintext string) (*domain.Session, error) {
	args := m.Called(ctx, plaintext)
	if s, _ := args.Get(0).(*domain.Session); s != nil {
		return s, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockSessionSvc) Destroy(ctx context.Context, plaintext string) error {
	return m.Called(ctx, plaintext).Error(0)
}
func (m *mockSessionSvc) DestroyAllForUser(ctx context.Context, userID string) error {
	return m.Called(ctx, userID).Error(0)
}
func (m *mockSessionSvc) SweepExpired(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

// --- helpers ---

var testCookies = &middleware.CookieWriter{Domain: "", Secure: false}

func postJSON(t *testing.T, h http.HandlerFunc, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	b, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewReader(b))
	req.RemoteAddr = "10.0.0.1:4567"
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func sessionCookie(t *testing.T, rr *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range rr.Result().Cookies() {
		if c.Name == middleware.SessionCookieName {
			return c
		}
	}
	t.Fatal("session cookie not set")
	return nil
}

// --- Login ---

func TestLogin_ReturnsVerifyStep(t *testing.T) {
	svc := &mockAuthSvc{}
	svc.On("RequestLogin", mock.Anything, auth.LoginRequest{Email: "User@inpe.br"}, "10.0.0.1").Return(nil)

	h := NewAuthHandler(svc, nil, testCookies)
	rr := postJSON(t, h.Login, map[string]string{"email": "User@inpe.br"})

	assert.Equal(t, http.StatusOK, rr.Code)
	var body LoginStepEnvelope
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, "verify", body.Step)
	assert.Equal(t, "user@inpe.br", body.Email)
}

func TestLogin_RateLimited_Returns429(t *testing.T) {
	svc := &mockAuthSvc{}
	svc.On("RequestLogin", mock.Anything, mock.Anything, mock.Anything).Return(domain.ErrRateLimited)

	h := NewAuthHandler(svc, nil, testCookies)
	rr := postJSON(t, h.Login, map[string]string{"email": "user@inpe.br"})

	assert.Equal(t, http.StatusTooManyRequests, rr.Code)
}

func TestLogin_MissingEmail_Returns400(t *testing.T) {
	svc := &mockAuthSvc{}

	h := NewAuthHandler(svc, nil, testCookies)
	rr := postJSON(t, h.Login, map[string]string{})

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	svc.AssertNotCalled(t, "RequestLogin", mock.Anything, mock.Anything, mock.Anything)
}

// --- Verify ---

func TestVerify_SetsSessionCookie(t *testing.T) {
	expires := time.Now().Add(7 * 24 * time.Hour).Truncate(time.Second)
	svc := &mockAuthSvc{}
	svc.On("VerifyLogin", mock.Anything, auth.VerifyRequest{Email: "user@inpe.br", Code: "4H7KX"}).Return(&auth.LoginResult{
		Token:   "plaintext-token",
		Session: &domain.Session{UserID: "u1", ExpiresAt: expires.Unix()},
		User:    &domain.User{UserID: "u1", Email: "user@inpe.br"},
	}, nil)

	h := NewAuthHandler(svc, nil, testCookies)
	rr := postJSON(t, h.Verify, map[string]string{"email": "user@inpe.br", "code": "4H7KX"})

	assert.Equal(t, http.StatusOK, rr.Code)
	c := sessionCookie(t, rr)
	assert.Equal(t, "plaintext-token", c.Value)
	assert.True(t, c.HttpOnly)
	assert.Equal(t, http.SameSiteLaxMode, c.SameSite)
	assert.Equal(t, expires.Unix(), c.Expires.Unix())

	var body AuthEnvelope
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, "plaintext-token", body.Token)
	assert.Equal(t, "u1", body.User.UserID)
}

func TestVerify_BadCode_Returns401(t *testing.T) {
	svc := &mockAuthSvc{}
	svc.On("VerifyLogin", mock.Anything, mock.Anything).Return(nil, domain.ErrUnauthorized)

	h := NewAuthHandler(svc, nil, testCookies)
	rr := postJSON(t, h.Verify, map[string]string{"email": "user@inpe.br", "code": "WRONG"})

	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Empty(t, rr.Result().Cookies())
}

// --- Register ---

func TestRegister_Returns201(t *testing.T) {
	svc := &mockAuthSvc{}
	svc.On("Register", mock.Anything, mock.Anything).Return(&domain.User{UserID: "u1", Email: "new@inpe.br"}, nil)

	h := NewAuthHandler(svc, nil, testCookies)
	rr := postJSON(t, h.Register, map[string]string{"email": "new@inpe.br", "password": "hunter2hunter2"})

	assert.Equal(t, http.StatusCreated, rr.Code)
}

func TestRegister_Conflict_Returns409(t *testing.T) {
	svc := &mockAuthSvc{}
	svc.On("Register", mock.Anything, mock.Anything).Return(nil, domain.ErrConflict)

	h := NewAuthHandler(svc, nil, testCookies)
	rr := postJSON(t, h.Register, map[string]string{"email": "dup@inpe.br", "password": "hunter2hunter2"})

	assert.Equal(t, http.StatusConflict, rr.Code)
}

// --- Logout ---

func TestLogout_DestroysSessionAndClearsCookie(t *testing.T) {
	sessions := &mockSessionSvc{}
	sessions.On("Destroy", mock.Anything, "plaintext-token").Return(nil)

	h := NewAuthHandler(nil, sessions, testCookies)
	req := httptest.NewRequest(http.MethodPost, "/", nil)
	req.AddCookie(&http.Cookie{Name: middleware.SessionCookieName, Value: "plaintext-token"})
	rr := httptest.NewRecorder()
	h.Logout(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	c := sessionCookie(t, rr)
	assert.Empty(t, c.Value)
	assert.Negative(t, c.MaxAge)
	sessions.AssertExpectations(t)
}

func TestLogout_NoCookie_StillOK(t *testing.T) {
	sessions := &mockSessionSvc{}

	h := NewAuthHandler(nil, sessions, testCookies)
	req := httptest.NewRequest(http.MethodPost, "/", nil)
	rr := httptest.NewRecorder()
	h.Logout(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	sessions.AssertNotCalled(t, "Destroy", mock.Anything, mock.Anything)
}

package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/intranet-auth-api/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockSessionService struct{ mock.Mock }

func (m *mockSessionService) Issue(ctx context.Context, userID string) (string, *domain.Session, error) {
	args := m.Called(ctx, userID)
	sess, _ := args.Get(1).(*domain.Session)
	return args.String(0), sess, args.Error(2)
}
func (m *mockSessionService) Validate(ctx context.Context, plaintext string) (*domain.Session, error) {
	args := m.Called(ctx, plaintext)
	if s, _ := args.Get(0).(*domain.Session); s != nil {
		return s, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockSessionService) Destroy(ctx context.Context, plaintext string) error {
	return m.Called(ctx, plaintext).Error(0)
}
func (m *mockSessionService) DestroyAllForUser(ctx context.Context, userID string) error {
	return m.Called(ctx, userID).Error(0)
}
func (m *mockSessionService) SweepExpired(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func okHandler(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) }

var testCookies = &CookieWriter{Domain: "", Secure: false}

func TestAuth_MissingToken(t *testing.T) {
	svc := &mockSessionService{}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rr := httptest.NewRecorder()
	Auth(svc, testCookies)(http.HandlerFunc(okHandler)).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	svc.AssertNotCalled(t, "Validate", mock.Anything, mock.Anything)
}

func TestAuth_InvalidToken(t *testing.T) {
	svc := &mockSessionService{}
	svc.On("Validate", mock.Anything, "bogus").Return(nil, domain.ErrUnauthorized)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: "bogus"})
	rr := httptest.NewRecorder()
	Auth(svc, testCookies)(http.HandlerFunc(okHandler)).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestAuth_ValidCookie_InjectsSessionAndRefreshesCookie(t *testing.T) {
	expires := time.Now().Add(7 * 24 * time.Hour).Truncate(time.Second)
	sess := &domain.Session{
		TokenHash: "hash",
		UserID:    "u1",
		ExpiresAt: expires.Unix(),
		User:      &domain.User{UserID: "u1", Email: "user@inpe.br"},
	}
	svc := &mockSessionService{}
	svc.On("Validate", mock.Anything, "plaintext-token").Return(sess, nil)

	var got *domain.Session
	capture := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = SessionFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: "plaintext-token"})
	rr := httptest.NewRecorder()
	Auth(svc, testCookies)(capture).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	require.NotNil(t, got)
	assert.Equal(t, "u1", got.UserID)

	cookies := rr.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, SessionCookieName, cookies[0].Name)
	assert.Equal(t, "plaintext-token", cookies[0].Value)
	assert.True(t, cookies[0].HttpOnly)
	assert.Equal(t, expires.Unix(), cookies[0].Expires.Unix())
}

func TestAuth_BearerFallback(t *testing.T) {
	sess := &domain.Session{UserID: "u1", ExpiresAt: time.Now().Add(time.Hour).Unix()}
	svc := &mockSessionService{}
	svc.On("Validate", mock.Anything, "plaintext-token").Return(sess, nil)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer plaintext-token")
	rr := httptest.NewRecorder()
	Auth(svc, testCookies)(http.HandlerFunc(okHandler)).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
}

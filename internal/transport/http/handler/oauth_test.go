package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/intranet-auth-api/internal/application/oauth"
	"github.com/intranet-auth-api/internal/domain"
	"github.com/intranet-auth-api/internal/transport/http/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockOAuthSvc struct{ mock.Mock }

func (m *mockOAuthSvc) Start() (*oauth.StartResult, error) {
	args := m.Called()
	if r, _ := args.Get(0).(*oauth.StartResult); r != nil {
		return r, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockOAuthSvc) Callback(ctx context.Context, p oauth.CallbackParams) (*oauth.LoginResult, error) {
	args := m.Called(ctx, p)
	if r, _ := args.Get(0).(*oauth.LoginResult); r != nil {
		return r, args.Error(1)
	}
	return nil, args.Error(1)
}

func cookieByName(rr *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range rr.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func TestOAuthStart_SetsFlowCookiesAndRedirects(t *testing.T) {
	svc := &mockOAuthSvc{}
	svc.On("Start").Return(&oauth.StartResult{
		AuthURL:      "https://provider/auth?state=st",
		State:        "st",
		CodeVerifier: "ver",
	}, nil)

	h := NewOAuthHandler(svc, testCookies, "https://app/home", "https://app/login-error")
	req := httptest.NewRequest(http.MethodGet, "/v1/oauth/google/start", nil)
	rr := httptest.NewRecorder()
	h.Start(rr, req)

	assert.Equal(t, http.StatusFound, rr.Code)
	assert.Equal(t, "https://provider/auth?state=st", rr.Header().Get("Location"))

	state := cookieByName(rr, middleware.StateCookieName)
	require.NotNil(t, state)
	assert.Equal(t, "st", state.Value)
	assert.Equal(t, 600, state.MaxAge)
	assert.True(t, state.HttpOnly)
	assert.Equal(t, http.SameSiteLaxMode, state.SameSite)

	verifier := cookieByName(rr, middleware.VerifierCookieName)
	require.NotNil(t, verifier)
	assert.Equal(t, "ver", verifier.Value)
	assert.Equal(t, 600, verifier.MaxAge)
}

func TestOAuthCallback_Success_SetsSessionCookie(t *testing.T) {
	expires := time.Now().Add(7 * 24 * time.Hour).Truncate(time.Second)
	svc := &mockOAuthSvc{}
	svc.On("Callback", mock.Anything, oauth.CallbackParams{
		QueryCode:      "authcode",
		QueryState:     "st",
		CookieState:    "st",
		CookieVerifier: "ver",
	}).Return(&oauth.LoginResult{
		Token:   "plaintext-token",
		Session: &domain.Session{UserID: "u1", ExpiresAt: expires.Unix()},
		User:    &domain.User{UserID: "u1"},
	}, nil)

	h := NewOAuthHandler(svc, testCookies, "https://app/home", "https://app/login-error")
	req := httptest.NewRequest(http.MethodGet, "/v1/oauth/google/callback?code=authcode&state=st", nil)
	req.AddCookie(&http.Cookie{Name: middleware.StateCookieName, Value: "st"})
	req.AddCookie(&http.Cookie{Name: middleware.VerifierCookieName, Value: "ver"})
	rr := httptest.NewRecorder()
	h.Callback(rr, req)

	assert.Equal(t, http.StatusFound, rr.Code)
	assert.Equal(t, "https://app/home", rr.Header().Get("Location"))

	sess := cookieByName(rr, middleware.SessionCookieName)
	require.NotNil(t, sess)
	assert.Equal(t, "plaintext-token", sess.Value)

	// The handshake cookies are cleared once used.
	assert.Negative(t, cookieByName(rr, middleware.StateCookieName).MaxAge)
	assert.Negative(t, cookieByName(rr, middleware.VerifierCookieName).MaxAge)
}

func TestOAuthCallback_Failure_RedirectsWithOpaqueCode(t *testing.T) {
	svc := &mockOAuthSvc{}
	svc.On("Callback", mock.Anything, mock.Anything).Return(nil,
		&domain.FlowError{Code: domain.OAuthCSRFMismatch})

	h := NewOAuthHandler(svc, testCookies, "https://app/home", "https://app/login-error")
	req := httptest.NewRequest(http.MethodGet, "/v1/oauth/google/callback?code=authcode&state=tampered", nil)
	req.AddCookie(&http.Cookie{Name: middleware.StateCookieName, Value: "st"})
	req.AddCookie(&http.Cookie{Name: middleware.VerifierCookieName, Value: "ver"})
	rr := httptest.NewRecorder()
	h.Callback(rr, req)

	assert.Equal(t, http.StatusFound, rr.Code)
	assert.Equal(t, "https://app/login-error?code=CSRF_MISMATCH", rr.Header().Get("Location"))
	assert.Nil(t, cookieByName(rr, middleware.SessionCookieName))
}

func TestOAuthCallback_MissingCookies_PassesEmptyParams(t *testing.T) {
	svc := &mockOAuthSvc{}
	svc.On("Callback", mock.Anything, oauth.CallbackParams{
		QueryCode:  "authcode",
		QueryState: "st",
	}).Return(nil, &domain.FlowError{Code: domain.OAuthInvalidParams})

	h := NewOAuthHandler(svc, testCookies, "https://app/home", "https://app/login-error")
	req := httptest.NewRequest(http.MethodGet, "/v1/oauth/google/callback?code=authcode&state=st", nil)
	rr := httptest.NewRecorder()
	h.Callback(rr, req)

	assert.Equal(t, "https://app/login-error?code=INVALID_PARAMS", rr.Header().Get("Location"))
}

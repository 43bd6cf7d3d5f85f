package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/intranet-auth-api/internal/application/oauth"
	"github.com/intranet-auth-api/internal/domain"
	"github.com/intranet-auth-api/internal/transport/http/middleware"
)

// OAuthHandler drives the browser side of the PKCE handshake: ephemeral
// cookies out, provider redirect, then the callback that lands the user on
// the success or error page.
type OAuthHandler struct {
	svc        oauth.Service
	cookies    *middleware.CookieWriter
	successURL string
	errorURL   string
}

func NewOAuthHandler(svc oauth.Service, cookies *middleware.CookieWriter, successURL, errorURL string) *OAuthHandler {
	return &OAuthHandler{svc: svc, cookies: cookies, successURL: successURL, errorURL: errorURL}
}

// Start begins the flow: fresh state and verifier cookies, then a redirect
// to the provider's authorization page.
func (h *OAuthHandler) Start(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.Start()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	h.cookies.SetFlow(w, middleware.StateCookieName, res.State)
	h.cookies.SetFlow(w, middleware.VerifierCookieName, res.CodeVerifier)
	http.Redirect(w, r, res.AuthURL, http.StatusFound)
}

// Callback finishes the flow. The ephemeral cookies are cleared whatever the
// outcome; a cookie that outlived its handshake is useless to the next one.
func (h *OAuthHandler) Callback(w http.ResponseWriter, r *http.Request) {
	params := oauth.CallbackParams{
		QueryCode:  r.URL.Query().Get("code"),
		QueryState: r.URL.Query().Get("state"),
	}
	if c, err := r.Cookie(middleware.StateCookieName); err == nil {
		params.CookieState = c.Value
	}
	if c, err := r.Cookie(middleware.VerifierCookieName); err == nil {
		params.CookieVerifier = c.Value
	}
	h.cookies.ClearFlow(w, middleware.StateCookieName)
	h.cookies.ClearFlow(w, middleware.VerifierCookieName)

	res, err := h.svc.Callback(r.Context(), params)
	if err != nil {
		code := domain.OAuthCodeExchangeFailed
		var fe *domain.FlowError
		if errors.As(err, &fe) {
			code = fe.Code
		}
		slog.Warn("oauth callback failed", "code", code, "err", err)
		http.Redirect(w, r, h.errorURL+"?code="+url.QueryEscape(code), http.StatusFound)
		return
	}

	h.cookies.SetSession(w, res.Token, time.Unix(res.Session.ExpiresAt, 0))
	http.Redirect(w, r, h.successURL, http.StatusFound)
}

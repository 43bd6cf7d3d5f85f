package middleware

import (
	"net/http"
	"time"
)

// Cookie names shared by the middleware and the handlers.
const (
	SessionCookieName  = "session_token"
	StateCookieName    = "oauth_state"
	VerifierCookieName = "oauth_code_verifier"
)

// flowCookieMaxAge bounds how long an OAuth handshake may take.
const flowCookieMaxAge = 600

// CookieWriter centralizes cookie attributes so every handler sets them
// identically.
type CookieWriter struct {
	Domain string
	Secure bool
}

// SetSession writes the session cookie. The expiry mirrors the session row,
// so a renewed session pushes the cookie forward on every response.
func (c *CookieWriter) SetSession(w http.ResponseWriter, token string, expires time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    token,
		Path:     "/",
		Domain:   c.Domain,
		Expires:  expires,
		HttpOnly: true,
		Secure:   c.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (c *CookieWriter) ClearSession(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		Domain:   c.Domain,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   c.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// SetFlow writes an ephemeral OAuth handshake cookie.
func (c *CookieWriter) SetFlow(w http.ResponseWriter, name, value string) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		Domain:   c.Domain,
		MaxAge:   flowCookieMaxAge,
		HttpOnly: true,
		Secure:   c.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (c *CookieWriter) ClearFlow(w http.ResponseWriter, name string) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		Domain:   c.Domain,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   c.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

package middleware

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/intranet-auth-api/internal/application/session"
	"github.com/intranet-auth-api/internal/domain"
)

type contextKey string

const sessionKey contextKey = "session"

// Auth returns middleware that resolves the caller's session and injects it
// into the request context. The token is read from the session cookie, with
// an Authorization Bearer fallback for non-browser clients. Validation may
// renew the session, so the cookie is re-set with the current expiry.
func Auth(svc session.Service, cookies *CookieWriter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := TokenFromRequest(r)
			if token == "" {
				writeJSONError(w, http.StatusUnauthorized, "missing session token")
				return
			}
			sess, err := svc.Validate(r.Context(), token)
			if err != nil {
				writeJSONError(w, http.StatusUnauthorized, "invalid or expired session")
				return
			}
			cookies.SetSession(w, token, time.Unix(sess.ExpiresAt, 0))
			ctx := context.WithValue(r.Context(), sessionKey, sess)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// TokenFromRequest extracts the plaintext session token from the cookie or,
// failing that, from the Authorization header.
func TokenFromRequest(r *http.Request) string {
	if c, err := r.Cookie(SessionCookieName); err == nil && c.Value != "" {
		return c.Value
	}
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimPrefix(h, "Bearer ")
	}
	return ""
}

// SessionFromContext extracts the validated session from the request context.
func SessionFromContext(ctx context.Context) (*domain.Session, bool) {
	s, ok := ctx.Value(sessionKey).(*domain.Session)
	return s, ok
}

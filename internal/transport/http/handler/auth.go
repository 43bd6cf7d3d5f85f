package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/intranet-auth-api/internal/application/auth"
	"github.com/intranet-auth-api/internal/application/session"
	"github.com/intranet-auth-api/internal/domain"
	"github.com/intranet-auth-api/internal/pkg/validate"
	"github.com/intranet-auth-api/internal/transport/http/middleware"
)

// AuthHandler handles the OTP, password, and registration endpoints.
type AuthHandler struct {
	svc      auth.Service
	sessions session.Service
	cookies  *middleware.CookieWriter
}

func NewAuthHandler(svc auth.Service, sessions session.Service, cookies *middleware.CookieWriter) *AuthHandler {
	return &AuthHandler{svc: svc, sessions: sessions, cookies: cookies}
}

// Login issues a one-time code for the given email.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req auth.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validate.Struct(&req); err != nil {
		writeError(w, http.StatusBadRequest, "email required")
		return
	}
	if err := h.svc.RequestLogin(r.Context(), req, middleware.ClientIP(r)); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, LoginStepEnvelope{
		Step:  "verify",
		Email: domain.NormalizeEmail(req.Email),
	})
}

// Verify exchanges an email+code pair for a session.
func (h *AuthHandler) Verify(w http.ResponseWriter, r *http.Request) {
	var req auth.VerifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validate.Struct(&req); err != nil {
		writeError(w, http.StatusBadRequest, "email and code required")
		return
	}
	res, err := h.svc.VerifyLogin(r.Context(), req)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	h.writeLogin(w, res)
}

// PasswordLogin authenticates a local account with email+password.
func (h *AuthHandler) PasswordLogin(w http.ResponseWriter, r *http.Request) {
	var req auth.PasswordLoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validate.Struct(&req); err != nil {
		writeError(w, http.StatusBadRequest, "email and password required")
		return
	}
	res, err := h.svc.PasswordLogin(r.Context(), req, middleware.ClientIP(r))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	h.writeLogin(w, res)
}

// Register creates a local account.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req domain.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validate.Struct(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid registration fields")
		return
	}
	u, err := h.svc.Register(r.Context(), req)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, AuthEnvelope{User: u, Message: "registered"})
}

// Logout destroys the caller's session and clears the cookie. Idempotent:
// a missing or already-destroyed session still returns 200.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if token := middleware.TokenFromRequest(r); token != "" {
		if err := h.sessions.Destroy(r.Context(), token); err != nil {
			writeDomainError(w, err)
			return
		}
	}
	h.cookies.ClearSession(w)
	writeJSON(w, http.StatusOK, MessageEnvelope{Message: "logged out"})
}

func (h *AuthHandler) writeLogin(w http.ResponseWriter, res *auth.LoginResult) {
	h.cookies.SetSession(w, res.Token, time.Unix(res.Session.ExpiresAt, 0))
	writeJSON(w, http.StatusOK, AuthEnvelope{
		Token:   res.Token,
		Session: res.Session,
		User:    res.User,
	})
}

package handler

import (
	"encoding/json"
	"net/http"

	"github.com/intranet-auth-api/internal/application/session"
	"github.com/intranet-auth-api/internal/transport/http/middleware"
)

// SessionHandler handles session introspection endpoints.
type SessionHandler struct {
	svc session.Service
}

func NewSessionHandler(svc session.Service) *SessionHandler {
	return &SessionHandler{svc: svc}
}

// GetCurrent returns the session resolved by the auth middleware.
func (h *SessionHandler) GetCurrent(w http.ResponseWriter, r *http.Request) {
	sess, ok := middleware.SessionFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	writeJSON(w, http.StatusOK, SessionEnvelope{Session: sess, User: sess.User})
}

// Validate checks an explicit token. It serves non-browser callers that hold
// the token outside a cookie, and it renews the session like any other
// validation.
func (h *SessionHandler) Validate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Token == "" {
		writeError(w, http.StatusBadRequest, "token required")
		return
	}
	sess, err := h.svc.Validate(r.Context(), req.Token)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, SessionEnvelope{Session: sess, User: sess.User})
}

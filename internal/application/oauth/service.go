package oauth

import (
	"context"
	"crypto/subtle"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/intranet-auth-api/internal/domain"
	"github.com/intranet-auth-api/internal/pkg/id"
	"golang.org/x/oauth2"
)

// UserRepository is the slice of the user store the coordinator needs.
type UserRepository interface {
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByGoogleSub(ctx context.Context, sub string) (*domain.User, error)
	Put(ctx context.Context, u *domain.User) error
	LinkGoogle(ctx context.Context, userID, sub, name, picture string) error
}

// SessionIssuer mints a session once the handshake resolves to a local user.
type SessionIssuer interface {
	Issue(ctx context.Context, userID string) (plaintext string, sess *domain.Session, err error)
}

// IdentityVerifier validates a provider ID token and extracts its claims.
type IdentityVerifier interface {
	Verify(ctx context.Context, rawToken string) (*domain.IdentityClaims, error)
}

// Exchanger is the token-endpoint side of the provider. *oauth2.Config
// satisfies it; tests substitute a double.
type Exchanger interface {
	Exchange(ctx context.Context, code string, opts ...oauth2.AuthCodeOption) (*oauth2.Token, error)
	AuthCodeURL(state string, opts ...oauth2.AuthCodeOption) string
}

// StartResult carries everything the transport layer needs to begin a flow:
// the provider redirect URL plus the two ephemeral secrets it must set as
// cookies. Neither secret is persisted server-side.
type StartResult struct {
	AuthURL      string
	State        string
	CodeVerifier string
}

// CallbackParams are the four values the callback request must present.
type CallbackParams struct {
	QueryCode      string
	QueryState     string
	CookieState    string
	CookieVerifier string
}

// LoginResult mirrors the OTP/password login outcome.
type LoginResult struct {
	Token   string
	Session *domain.Session
	User    *domain.User
}

type Service interface {
	// Start begins a PKCE flow: fresh state and verifier, challenge derived
	// from the verifier, provider authorization URL.
	Start() (*StartResult, error)
	// Callback drives the rest of the state machine. Every failure is a
	// *domain.FlowError whose code is safe to show the browser.
	Callback(ctx context.Context, p CallbackParams) (*LoginResult, error)
}

type Deps struct {
	Users           UserRepository
	Sessions        SessionIssuer
	Verifier        IdentityVerifier
	Provider        Exchanger
	AllowedDomains  []string // empty slice allows every domain
	ExchangeTimeout time.Duration
	Now             func() time.Time
}

type service struct {
	users           UserRepository
	sessions        SessionIssuer
	verifier        IdentityVerifier
	provider        Exchanger
	allowedDomains  []string
	exchangeTimeout time.Duration
	now             func() time.Time
}

func NewService(deps Deps) Service {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.ExchangeTimeout <= 0 {
		deps.ExchangeTimeout = 10 * time.Second
	}
	return &service{
		users:           deps.Users,
		sessions:        deps.Sessions,
		verifier:        deps.Verifier,
		provider:        deps.Provider,
		allowedDomains:  deps.AllowedDomains,
		exchangeTimeout: deps.ExchangeTimeout,
		now:             deps.Now,
	}
}

func flowFail(code string, cause error) error {
	return &domain.FlowError{Code: code, Cause: cause}
}

func (s *service) Start() (*StartResult, error) {
	state := oauth2.GenerateVerifier()
	verifier := oauth2.GenerateVerifier()
	url := s.provider.AuthCodeURL(state, oauth2.S256ChallengeOption(verifier))
	return &StartResult{AuthURL: url, State: state, CodeVerifier: verifier}, nil
}

func (s *service) Callback(ctx context.Context, p CallbackParams) (*LoginResult, error) {
	if p.QueryCode == "" || p.QueryState == "" || p.CookieState == "" || p.CookieVerifier == "" {
		return nil, flowFail(domain.OAuthInvalidParams, fmt.Errorf("missing callback parameter"))
	}
	if subtle.ConstantTimeCompare([]byte(p.QueryState), []byte(p.CookieState)) != 1 {
		return nil, flowFail(domain.OAuthCSRFMismatch, fmt.Errorf("state does not match cookie"))
	}

	exCtx, cancel := context.WithTimeout(ctx, s.exchangeTimeout)
	defer cancel()
	tok, err := s.provider.Exchange(exCtx, p.QueryCode, oauth2.VerifierOption(p.CookieVerifier))
	if err != nil {
		return nil, flowFail(domain.OAuthCodeExchangeFailed, fmt.Errorf("token exchange: %w", err))
	}
	rawID, _ := tok.Extra("id_token").(string)
	if rawID == "" {
		return nil, flowFail(domain.OAuthCodeExchangeFailed, fmt.Errorf("token response missing id_token"))
	}
	claims, err := s.verifier.Verify(ctx, rawID)
	if err != nil {
		return nil, flowFail(domain.OAuthCodeExchangeFailed, err)
	}

	// The allow-list gate runs before any row is written, so a user from an
	// unauthorized domain never gets an account.
	if !s.domainAllowed(claims.Email) {
		return nil, flowFail(domain.OAuthUnauthorizedDomain,
			fmt.Errorf("email domain not allowed: %w", domain.ErrForbidden))
	}

	u, err := s.resolveUser(ctx, claims)
	if err != nil {
		return nil, flowFail(domain.OAuthCodeExchangeFailed, err)
	}
	if !u.Enable {
		return nil, flowFail(domain.OAuthUnauthorizedDomain,
			fmt.Errorf("account disabled: %w", domain.ErrForbidden))
	}

	plaintext, sess, err := s.sessions.Issue(ctx, u.UserID)
	if err != nil {
		return nil, flowFail(domain.OAuthCodeExchangeFailed, err)
	}
	sess.User = u
	return &LoginResult{Token: plaintext, Session: sess, User: u}, nil
}

func (s *service) domainAllowed(email string) bool {
	if len(s.allowedDomains) == 0 {
		return true
	}
	at := strings.LastIndex(email, "@")
	if at < 0 {
		return false
	}
	dom := strings.ToLower(email[at+1:])
	for _, allowed := range s.allowedDomains {
		if dom == strings.ToLower(allowed) {
			return true
		}
	}
	return false
}

// resolveUser maps verified claims to a local account: by provider subject
// first, then by email (linking the subject to an existing local account),
// creating a fresh account as the last resort.
func (s *service) resolveUser(ctx context.Context, claims *domain.IdentityClaims) (*domain.User, error) {
	if u, err := s.users.GetByGoogleSub(ctx, claims.Sub); err == nil {
		return u, nil
	}

	email := domain.NormalizeEmail(claims.Email)
	if u, err := s.users.GetByEmail(ctx, email); err == nil {
		if err := s.users.LinkGoogle(ctx, u.UserID, claims.Sub, claims.Name, claims.Picture); err != nil {
			return nil, err
		}
		u.GoogleSub = claims.Sub
		slog.Info("linked google identity to existing account", "user_id", u.UserID)
		return u, nil
	}

	now := s.now().UTC()
	u := &domain.User{
		UserID:         id.New(),
		Email:          email,
		Name:           claims.Name,
		Picture:        claims.Picture,
		EmailConfirmed: true,
		AuthProvider:   domain.ProviderGoogle,
		GoogleSub:      claims.Sub,
		Enable:         true,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.users.Put(ctx, u); err != nil {
		return nil, err
	}
	slog.Info("created account from google identity", "user_id", u.UserID)
	return u, nil
}

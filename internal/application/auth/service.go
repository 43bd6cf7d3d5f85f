package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/intranet-auth-api/internal/domain"
	"github.com/intranet-auth-api/internal/pkg/id"
	"github.com/intranet-auth-api/internal/pkg/otp"
	"github.com/intranet-auth-api/internal/pkg/password"
)

// Route names used as the rate-limit key's route component.
const (
	RouteLogin         = "login"
	RoutePasswordLogin = "password-login"
)

type LoginRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type VerifyRequest struct {
	Email string `json:"email" validate:"required,email"`
	Code  string `json:"code" validate:"required"`
}

type PasswordLoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// LoginResult carries the one-time plaintext token out to the handler, which
// turns it into the session cookie. It is never persisted or logged.
type LoginResult struct {
	Token   string
	Session *domain.Session
	User    *domain.User
}

// UserRepository is the user-row contract this service requires.
type UserRepository interface {
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	Put(ctx context.Context, u *domain.User) error
}

// OtpRepository is the code-row contract this service requires.
type OtpRepository interface {
	Put(ctx context.Context, c *domain.OtpCode) error
	Get(ctx context.Context, email string) (*domain.OtpCode, error)
	ConsumeIfActive(ctx context.Context, email, codeHash string, now int64) (bool, error)
}

// SessionIssuer is the slice of the session manager this service calls.
type SessionIssuer interface {
	Issue(ctx context.Context, userID string) (plaintext string, sess *domain.Session, err error)
}

// RateLimiter gates the issuance endpoints.
type RateLimiter interface {
	Check(ctx context.Context, email, ip, route string) error
	Record(ctx context.Context, email, ip, route string) error
}

// Mailer matches the smtp infrastructure contract.
type Mailer interface {
	SendEmail(to, subject, body string) error
}

// SMSSender matches the sns infrastructure contract.
type SMSSender interface {
	SendSMS(ctx context.Context, to, message string) error
}

type Service interface {
	// RequestLogin rate-limits, issues a fresh single-use code (superseding
	// any prior one for the email), and dispatches it. Delivery failures are
	// logged but never roll back issuance.
	RequestLogin(ctx context.Context, req LoginRequest, ip string) error
	// VerifyLogin consumes the code and issues a session. The user row is
	// created on first successful verification.
	VerifyLogin(ctx context.Context, req VerifyRequest) (*LoginResult, error)
	// PasswordLogin authenticates a local account by password.
	PasswordLogin(ctx context.Context, req PasswordLoginRequest, ip string) (*LoginResult, error)
	// Register creates a local account with a bcrypt password hash.
	Register(ctx context.Context, req domain.RegisterRequest) (*domain.User, error)
}

type Deps struct {
	UserRepo  UserRepository
	OtpRepo   OtpRepository
	Sessions  SessionIssuer
	Limiter   RateLimiter
	Mailer    Mailer
	SMSSender SMSSender // optional
	OTPLength int
	OTPTTL    time.Duration
	Now       func() time.Time // defaults to time.Now
}

type service struct {
	users     UserRepository
	codes     OtpRepository
	sessions  SessionIssuer
	limiter   RateLimiter
	mailer    Mailer
	smsSender SMSSender
	otpLength int
	otpTTL    time.Duration
	now       func() time.Time
}

func NewService(deps Deps) Service {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	return &service{
		users:     deps.UserRepo,
		codes:     deps.OtpRepo,
		sessions:  deps.Sessions,
		limiter:   deps.Limiter,
		mailer:    deps.Mailer,
		smsSender: deps.SMSSender,
		otpLength: deps.OTPLength,
		otpTTL:    deps.OTPTTL,
		now:       deps.Now,
	}
}

// invalidCredentials is the single generic failure for every bad-credential
// path: wrong code, consumed code, expired code, unknown account, wrong
// password, disabled account. The distinction lives only in the log.
func invalidCredentials() error {
	return fmt.Errorf("invalid credentials: %w", domain.ErrUnauthorized)
}

func (s *service) RequestLogin(ctx context.Context, req LoginRequest, ip string) error {
	email := domain.NormalizeEmail(req.Email)

	if err := s.limiter.Check(ctx, email, ip, RouteLogin); err != nil {
		return err
	}
	if err := s.limiter.Record(ctx, email, ip, RouteLogin); err != nil {
		return err
	}

	code, err := otp.New(s.otpLength)
	if err != nil {
		return err
	}
	// Put overwrites the row for this email, superseding any prior code.
	rec := &domain.OtpCode{
		Email:     email,
		CodeHash:  otp.Hash(code),
		ExpiresAt: s.now().Add(s.otpTTL).Unix(),
		Consumed:  false,
	}
	if err := s.codes.Put(ctx, rec); err != nil {
		return err
	}

	body := fmt.Sprintf("Your login code is %s. It expires in %d minutes.", code, int(s.otpTTL.Minutes()))
	if err := s.mailer.SendEmail(email, "Your login code", body); err != nil {
		slog.Warn("failed to send login code email", "email", email, "err", err)
	}

	// Best-effort secondary channel for accounts with a confirmed phone.
	if s.smsSender != nil {
		if u, err := s.users.GetByEmail(ctx, email); err == nil && u.PhoneConfirmed && u.Phone != nil {
			if err := s.smsSender.SendSMS(ctx, *u.Phone, "Your login code is "+code); err != nil {
				slog.Warn("failed to send login code sms", "email", email, "err", err)
			}
		}
	}
	return nil
}

func (s *service) VerifyLogin(ctx context.Context, req VerifyRequest) (*LoginResult, error) {
	email := domain.NormalizeEmail(req.Email)
	codeHash := otp.Hash(otp.Canonicalize(req.Code))
	now := s.now()

	rec, err := s.codes.Get(ctx, email)
	if err != nil {
		slog.Debug("no login code on record", "email", email)
		return nil, invalidCredentials()
	}
	switch {
	case rec.Consumed:
		slog.Debug("login code already consumed", "email", email)
		return nil, invalidCredentials()
	case rec.ExpiresAt <= now.Unix():
		slog.Debug("login code expired", "email", email)
		return nil, invalidCredentials()
	case !otp.Equal(rec.CodeHash, codeHash):
		slog.Debug("login code mismatch", "email", email)
		return nil, invalidCredentials()
	}

	// The conditional update is the authority: mark-consumed and the final
	// match check happen in one write, so a concurrent replay of the same
	// code cannot succeed twice.
	ok, err := s.codes.ConsumeIfActive(ctx, email, codeHash, now.Unix())
	if err != nil {
		return nil, err
	}
	if !ok {
		slog.Debug("login code lost consume race", "email", email)
		return nil, invalidCredentials()
	}

	u, err := s.findOrCreateByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if !u.Enable {
		slog.Debug("login attempt for disabled account", "user_id", u.UserID)
		return nil, invalidCredentials()
	}

	plaintext, sess, err := s.sessions.Issue(ctx, u.UserID)
	if err != nil {
		return nil, err
	}
	sess.User = u
	return &LoginResult{Token: plaintext, Session: sess, User: u}, nil
}

func (s *service) PasswordLogin(ctx context.Context, req PasswordLoginRequest, ip string) (*LoginResult, error) {
	email := domain.NormalizeEmail(req.Email)

	if err := s.limiter.Check(ctx, email, ip, RoutePasswordLogin); err != nil {
		return nil, err
	}
	if err := s.limiter.Record(ctx, email, ip, RoutePasswordLogin); err != nil {
		return nil, err
	}

	u, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		slog.Debug("password login for unknown email", "email", email)
		return nil, invalidCredentials()
	}
	if !u.Enable {
		slog.Debug("password login for disabled account", "user_id", u.UserID)
		return nil, invalidCredentials()
	}
	// OAuth-only accounts have no password hash; same generic failure.
	if u.PasswordHash == "" || !password.Compare(u.PasswordHash, req.Password) {
		slog.Debug("password mismatch", "user_id", u.UserID)
		return nil, invalidCredentials()
	}

	plaintext, sess, err := s.sessions.Issue(ctx, u.UserID)
	if err != nil {
		return nil, err
	}
	sess.User = u
	return &LoginResult{Token: plaintext, Session: sess, User: u}, nil
}

func (s *service) Register(ctx context.Context, req domain.RegisterRequest) (*domain.User, error) {
	email := domain.NormalizeEmail(req.Email)
	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return nil, fmt.Errorf("email already registered: %w", domain.ErrConflict)
	} else if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	hash, err := password.Hash(req.Password)
	if err != nil {
		return nil, err
	}
	now := s.now().UTC()
	u := &domain.User{
		UserID:       id.New(),
		Email:        email,
		Name:         req.Name,
		PasswordHash: hash,
		AuthProvider: domain.ProviderLocal,
		Enable:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.users.Put(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// findOrCreateByEmail resolves the account for a verified email, creating it
// on first login. Proving control of the inbox is what email verification
// means, so the new row starts confirmed.
func (s *service) findOrCreateByEmail(ctx context.Context, email string) (*domain.User, error) {
	u, err := s.users.GetByEmail(ctx, email)
	if err == nil {
		return u, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}
	now := s.now().UTC()
	u = &domain.User{
		UserID:         id.New(),
		Email:          email,
		EmailConfirmed: true,
		AuthProvider:   domain.ProviderLocal,
		Enable:         true,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.users.Put(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

package session

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/intranet-auth-api/internal/domain"
	"github.com/intranet-auth-api/internal/pkg/token"
)

// SessionRepository is the session-row contract the manager requires.
type SessionRepository interface {
	Put(ctx context.Context, s *domain.Session) error
	GetByTokenHash(ctx context.Context, tokenHash string) (*domain.Session, error)
	ExtendExpiry(ctx context.Context, tokenHash string, newExpiry int64) error
	Delete(ctx context.Context, tokenHash string) error
	DeleteByUser(ctx context.Context, userID string) error
	DeleteExpired(ctx context.Context, now int64) (int, error)
}

// UserRepository is the user-row contract the manager requires.
type UserRepository interface {
	Get(ctx context.Context, userID string) (*domain.User, error)
}

type Service interface {
	// Issue creates a session and returns the plaintext token exactly once.
	Issue(ctx context.Context, userID string) (plaintext string, sess *domain.Session, err error)
	// Validate resolves a plaintext token to its session and user, sliding
	// the expiry forward when the remaining lifetime runs low. Every failure
	// mode surfaces as the same generic error.
	Validate(ctx context.Context, plaintext string) (*domain.Session, error)
	// Destroy deletes the matching session row; idempotent on absent tokens.
	Destroy(ctx context.Context, plaintext string) error
	DestroyAllForUser(ctx context.Context, userID string) error
	// SweepExpired removes rows past their expiry; hygiene, not correctness.
	SweepExpired(ctx context.Context) error
}

type Deps struct {
	SessionRepo SessionRepository
	UserRepo    UserRepository
	Lifetime    time.Duration
	RenewWithin time.Duration
	Now         func() time.Time // defaults to time.Now
}

type service struct {
	sessions    SessionRepository
	users       UserRepository
	lifetime    time.Duration
	renewWithin time.Duration
	now         func() time.Time
}

func NewService(deps Deps) Service {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	return &service{
		sessions:    deps.SessionRepo,
		users:       deps.UserRepo,
		lifetime:    deps.Lifetime,
		renewWithin: deps.RenewWithin,
		now:         deps.Now,
	}
}

// invalidSession is the single outcome every validation failure collapses to.
// The caller-visible error never distinguishes not-found from expired.
func invalidSession() error {
	return fmt.Errorf("invalid session: %w", domain.ErrUnauthorized)
}

func (s *service) Issue(ctx context.Context, userID string) (string, *domain.Session, error) {
	plaintext, err := token.New()
	if err != nil {
		return "", nil, err
	}
	now := s.now().UTC()
	sess := &domain.Session{
		TokenHash: token.Hash(plaintext),
		UserID:    userID,
		ExpiresAt: now.Add(s.lifetime).Unix(),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.sessions.Put(ctx, sess); err != nil {
		return "", nil, err
	}
	return plaintext, sess, nil
}

func (s *service) Validate(ctx context.Context, plaintext string) (*domain.Session, error) {
	hash := token.Hash(plaintext)
	sess, err := s.sessions.GetByTokenHash(ctx, hash)
	if err != nil {
		slog.Debug("session lookup failed", "err", err)
		return nil, invalidSession()
	}
	now := s.now()
	if sess.Expired(now) {
		slog.Debug("session expired", "user_id", sess.UserID, "expires_at", sess.ExpiresAt)
		return nil, invalidSession()
	}
	u, err := s.users.Get(ctx, sess.UserID)
	if err != nil {
		slog.Warn("session references missing user", "user_id", sess.UserID, "err", err)
		return nil, invalidSession()
	}
	if !u.Enable {
		slog.Debug("session for disabled user", "user_id", sess.UserID)
		return nil, invalidSession()
	}

	// Sliding renewal: only when the remaining lifetime runs low, so hot
	// paths stay read-only. Persist failure is tolerable — the session is
	// still valid until its current expiry.
	if remaining := time.Unix(sess.ExpiresAt, 0).Sub(now); remaining < s.renewWithin {
		newExpiry := now.Add(s.lifetime).Unix()
		if err := s.sessions.ExtendExpiry(ctx, hash, newExpiry); err != nil {
			slog.Warn("failed to extend session expiry", "user_id", sess.UserID, "err", err)
		} else {
			sess.ExpiresAt = newExpiry
		}
	}

	sess.User = u
	return sess, nil
}

func (s *service) Destroy(ctx context.Context, plaintext string) error {
	return s.sessions.Delete(ctx, token.Hash(plaintext))
}

func (s *service) DestroyAllForUser(ctx context.Context, userID string) error {
	return s.sessions.DeleteByUser(ctx, userID)
}

func (s *service) SweepExpired(ctx context.Context) error {
	n, err := s.sessions.DeleteExpired(ctx, s.now().Unix())
	if err != nil {
		return err
	}
	if n > 0 {
		slog.Info("swept expired sessions", "deleted", n)
	}
	return nil
}

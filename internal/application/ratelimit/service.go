package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/intranet-auth-api/internal/domain"
)

// RateLimitRepository is the counter-row contract the limiter requires.
type RateLimitRepository interface {
	Get(ctx context.Context, limitKey string) (*domain.RateLimitRecord, error)
	IncrementInWindow(ctx context.Context, limitKey string, windowStart, now int64) (bool, error)
	Reset(ctx context.Context, limitKey string, now int64) error
	DeleteOlderThan(ctx context.Context, cutoff int64) (int, error)
}

// Service is a durable fixed-window limiter keyed by (email, ip, route).
// The separate Check and Record steps admit a small race under heavy
// concurrency — slightly more than limit attempts can slip through a window
// boundary. That is accepted: this is abuse mitigation, not an authorization
// boundary. Counters live in the store, so behavior is correct across
// multiple server instances.
type Service interface {
	// Check returns domain.ErrRateLimited when the counter for the key has
	// reached the limit within the current window. A missing record or one
	// whose last request predates the window counts as zero.
	Check(ctx context.Context, email, ip, route string) error
	// Record counts an attempt: increments within an open window, or resets
	// the counter to 1 when the window has elapsed.
	Record(ctx context.Context, email, ip, route string) error
	// Purge drops records older than the retention threshold. Hygiene only.
	Purge(ctx context.Context) error
}

type Deps struct {
	Repo      RateLimitRepository
	Limit     int
	Window    time.Duration
	Retention time.Duration
	Now       func() time.Time // defaults to time.Now
}

type service struct {
	repo      RateLimitRepository
	limit     int
	window    time.Duration
	retention time.Duration
	now       func() time.Time
}

func NewService(deps Deps) Service {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	return &service{
		repo:      deps.Repo,
		limit:     deps.Limit,
		window:    deps.Window,
		retention: deps.Retention,
		now:       deps.Now,
	}
}

func (s *service) Check(ctx context.Context, email, ip, route string) error {
	key := domain.RateLimitKey(domain.NormalizeEmail(email), ip, route)
	rec, err := s.repo.Get(ctx, key)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil
		}
		return err
	}
	windowStart := s.now().Add(-s.window).Unix()
	if rec.LastRequest < windowStart {
		// Window elapsed — counter is stale, treated as zero.
		return nil
	}
	if rec.Count >= s.limit {
		return fmt.Errorf("too many attempts for %s: %w", route, domain.ErrRateLimited)
	}
	return nil
}

func (s *service) Record(ctx context.Context, email, ip, route string) error {
	key := domain.RateLimitKey(domain.NormalizeEmail(email), ip, route)
	now := s.now()
	windowStart := now.Add(-s.window).Unix()
	ok, err := s.repo.IncrementInWindow(ctx, key, windowStart, now.Unix())
	if err != nil {
		return err
	}
	if !ok {
		// No row, or the window elapsed: start a fresh one at count 1.
		return s.repo.Reset(ctx, key, now.Unix())
	}
	return nil
}

func (s *service) Purge(ctx context.Context) error {
	cutoff := s.now().Add(-s.retention).Unix()
	n, err := s.repo.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		return err
	}
	if n > 0 {
		slog.Info("purged stale rate limit records", "deleted", n)
	}
	return nil
}

// Package session implements the hybrid session store: an in-memory map of
// token -> session overlaying the durable sessions table.
package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/azisaba/azisaba-commander-api/internal/api/metrics"
	"github.com/azisaba/azisaba-commander-api/internal/core/domain"
	"github.com/azisaba/azisaba-commander-api/internal/core/ports"
)

const (
	// cacheClamp caps how far ahead a cached expiry may lie. The durable
	// row keeps the true expiry; the clamp only bounds cache memory and
	// forces a periodic durable re-read for long-lived sessions.
	cacheClamp = 12 * time.Hour
	// negativeTTL is the synthetic expiry of a cached miss.
	negativeTTL = time.Hour
)

// Store is safe for concurrent use by the request dispatcher, the refresh
// timers and the subscriber loop.
type Store struct {
	repo ports.SessionRepository
	log  zerolog.Logger
	now  func() time.Time

	mu    sync.RWMutex
	cache map[string]domain.Session
}

func NewStore(repo ports.SessionRepository, log zerolog.Logger) *Store {
	return &Store{
		repo:  repo,
		log:   log,
		now:   time.Now,
		cache: make(map[string]domain.Session),
	}
}

// Put persists the session and then caches it with a clamped expiry.
func (s *Store) Put(ctx context.Context, sess domain.Session) error {
	if err := s.repo.Insert(ctx, sess); err != nil {
		return err
	}
	s.mu.Lock()
	s.cache[sess.Token] = s.clamp(sess, s.now())
	s.mu.Unlock()
	return nil
}

// Get resolves a token. With useCache an unexpired cached entry is served
// directly; otherwise the durable store is consulted. A durable miss is
// cached as a negative placeholder so repeated probes of a nonexistent
// token skip the store. A placeholder that is still fresh stays
// authoritative and is never promoted to a positive session.
func (s *Store) Get(ctx context.Context, token string, useCache bool) (*domain.Session, error) {
	now := s.now()

	s.mu.RLock()
	cached, ok := s.cache[token]
	s.mu.RUnlock()

	if ok && !cached.Expired(now) {
		if cached.Negative() {
			return nil, domain.ErrSessionNotFound
		}
		if useCache {
			return &cached, nil
		}
	}

	sess, err := s.repo.Find(ctx, token)
	if err != nil {
		if errors.Is(err, domain.ErrSessionNotFound) {
			s.mu.Lock()
			s.cache[token] = domain.Session{
				Token:     token,
				ExpiresAt: now.Add(negativeTTL),
				Status:    domain.StatusPending,
			}
			s.mu.Unlock()
			return nil, domain.ErrSessionNotFound
		}
		return nil, err
	}

	clamped := s.clamp(*sess, now)
	s.mu.Lock()
	s.cache[token] = clamped
	s.mu.Unlock()
	return &clamped, nil
}

// Delete removes the session from both layers.
func (s *Store) Delete(ctx context.Context, token string) error {
	if err := s.repo.Delete(ctx, token); err != nil {
		return err
	}
	s.mu.Lock()
	delete(s.cache, token)
	s.mu.Unlock()
	return nil
}

// Issue creates a fresh session of the given status. Token generation races
// a fixed timeout so entropy-source starvation cannot stall a login
// indefinitely.
func (s *Store) Issue(ctx context.Context, userID int64, ip string, status domain.SessionStatus, ttl time.Duration) (*domain.Session, error) {
	token, err := GenerateToken(ctx)
	if err != nil {
		return nil, err
	}
	sess := domain.Session{
		Token:     token,
		ExpiresAt: s.now().Add(ttl),
		UserID:    userID,
		IP:        ip,
		Status:    status,
	}
	if err := s.Put(ctx, sess); err != nil {
		return nil, err
	}
	metrics.SessionsIssuedTotal.WithLabelValues(string(status)).Inc()
	return &sess, nil
}

// Rotate moves a session to its next status by deleting the old token and
// issuing a new one. Live tokens are never mutated in place; an illegal
// transition is rejected outright.
func (s *Store) Rotate(ctx context.Context, old domain.Session, next domain.SessionStatus, ttl time.Duration) (*domain.Session, error) {
	if !old.Status.CanTransitionTo(next) {
		return nil, domain.ErrForbidden
	}
	if err := s.Delete(ctx, old.Token); err != nil {
		return nil, err
	}
	return s.Issue(ctx, old.UserID, old.IP, next, ttl)
}

// ValidateAndGet enforces the three acceptance conditions on every
// authorized call: AUTHORIZED status, unexpired, and the bound IP equal to
// the requester's resolved IP. Any mismatch fails closed.
func (s *Store) ValidateAndGet(ctx context.Context, token, ip string) (*domain.Session, error) {
	if token == "" {
		return nil, domain.ErrUnauthenticated
	}
	sess, err := s.Get(ctx, token, true)
	if err != nil {
		if errors.Is(err, domain.ErrSessionNotFound) {
			return nil, domain.ErrUnauthenticated
		}
		return nil, err
	}
	if sess.Status != domain.StatusAuthorized || sess.Expired(s.now()) || sess.IP != ip {
		return nil, domain.ErrUnauthenticated
	}
	return sess, nil
}

func (s *Store) clamp(sess domain.Session, now time.Time) domain.Session {
	if max := now.Add(cacheClamp); sess.ExpiresAt.After(max) {
		sess.ExpiresAt = max
	}
	return sess
}

// Package session tracks the signed-in user and exposes it as the presence
// signal the reporter gates on.
package session

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"georeporter/internal/core"
)

var (
	ErrNoSubject = errors.New("token has no subject")
	ErrExpired   = errors.New("token expired")
)

// Claims are the JWT claims read from an access token.
type Claims struct {
	Email string `json:"email,omitempty"`
	Role  string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// ParseToken reads an access token without verifying its signature; the
// remote function is the one that verifies it. The token must carry a
// subject and must not be expired at now.
func ParseToken(token string, now time.Time) (*core.Identity, error) {
	var claims Claims
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(token, &claims); err != nil {
		return nil, fmt.Errorf("parsing access token: %w", err)
	}

	if claims.Subject == "" {
		return nil, ErrNoSubject
	}

	id := &core.Identity{UserID: claims.Subject, AccessToken: token}
	if claims.ExpiresAt != nil {
		id.ExpiresAt = claims.ExpiresAt.Time
		if !now.Before(id.ExpiresAt) {
			return nil, fmt.Errorf("%w at %s", ErrExpired, id.ExpiresAt.Format(time.RFC3339))
		}
	}
	return id, nil
}

// Store holds the current session. The zero value is not usable; call NewStore.
type Store struct {
	clock core.Clock

	mu      sync.RWMutex
	current *core.Identity
	subs    map[int]func(*core.Identity)
	nextSub int
}

// NewStore creates an empty store.
func NewStore(clock core.Clock) *Store {
	if clock == nil {
		clock = core.RealClock{}
	}
	return &Store{clock: clock, subs: make(map[int]func(*core.Identity))}
}

// Set signs in with an access token. An invalid or expired token leaves
// the store signed out and returns the parse error.
func (s *Store) Set(token string) error {
	id, err := ParseToken(token, s.clock.Now())
	if err != nil {
		s.update(nil)
		return err
	}
	s.update(id)
	return nil
}

// Clear signs out.
func (s *Store) Clear() {
	s.update(nil)
}

// Current returns the active identity, or nil when signed out or expired.
// An expired identity is cleared and subscribers are notified.
func (s *Store) Current() *core.Identity {
	s.mu.RLock()
	id := s.current
	s.mu.RUnlock()

	if id != nil && !id.ExpiresAt.IsZero() && !s.clock.Now().Before(id.ExpiresAt) {
		s.update(nil)
		return nil
	}
	return id
}

// AccessToken implements core.TokenSource.
func (s *Store) AccessToken() (string, bool) {
	id := s.Current()
	if id == nil {
		return "", false
	}
	return id.AccessToken, true
}

// Subscribe registers fn to be called with the new identity whenever it
// changes. Returns an unsubscribe function.
func (s *Store) Subscribe(fn func(*core.Identity)) func() {
	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}

func (s *Store) update(id *core.Identity) {
	s.mu.Lock()
	if s.current.Same(id) {
		s.mu.Unlock()
		return
	}
	s.current = id
	subs := make([]func(*core.Identity), 0, len(s.subs))
	for _, fn := range s.subs {
		subs = append(subs, fn)
	}
	s.mu.Unlock()

	for _, fn := range subs {
		fn(id)
	}
}

// Package session holds the in-memory table of authenticated browser
// sessions. The table is the only mutable state shared between request
// workers, so every operation takes the store's lock.
package session

import (
	"crypto/rand"
	"encoding/base64"
	"sync"
	"time"
)

const tokenBytes = 32 // 256 bits of entropy per token

// Store maps opaque tokens to their expiry times.
type Store struct {
	mu     sync.Mutex
	ttl    time.Duration
	tokens map[string]time.Time
	now    func() time.Time
}

func New(ttl time.Duration) *Store {
	return &Store{
		ttl:    ttl,
		tokens: map[string]time.Time{},
		now:    time.Now,
	}
}

// Create mints a new session token valid for the store's TTL.
func (s *Store) Create() (string, error) {
	var b [tokenBytes]byte
	if _, err := rand.Read(b[:]); err != nil {
		return "", err
	}
	tok := base64.RawURLEncoding.EncodeToString(b[:])
	s.mu.Lock()
	s.tokens[tok] = s.now().Add(s.ttl)
	s.mu.Unlock()
	return tok, nil
}

// Validate reports whether tok identifies a live, unexpired session.
func (s *Store) Validate(tok string) bool {
	if tok == "" {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	exp, ok := s.tokens[tok]
	return ok && exp.After(s.now())
}

// Invalidate removes tok immediately. Unknown tokens are a no-op.
func (s *Store) Invalidate(tok string) {
	s.mu.Lock()
	delete(s.tokens, tok)
	s.mu.Unlock()
}

// SweepExpired drops every session whose expiry is at or before now.
// Called opportunistically ahead of each authentication check rather
// than from a background timer.
func (s *Store) SweepExpired() {
	now := s.now()
	s.mu.Lock()
	for tok, exp := range s.tokens {
		if !exp.After(now) {
			delete(s.tokens, tok)
		}
	}
	s.mu.Unlock()
}

// Len reports the number of sessions currently held, expired or not.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tokens)
}

// TTL returns the configured session lifetime.
func (s *Store) TTL() time.Duration { return s.ttl }

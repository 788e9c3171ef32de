// Package auth caches the remote session material (token, principal,
// expiry) in the local store. Acquiring the token is the job of the
// identity provider; this package only remembers and checks it.
package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/alfredjeanlab/quickreply/internal/store"
)

// ErrNoPrincipal is returned by Login when the principal can be derived
// neither from the token nor from the caller.
var ErrNoPrincipal = errors.New("auth: token carries no subject and no principal was given")

// Session is the cached authentication material.
type Session struct {
	Token     string    `json:"token"`
	Principal string    `json:"principal"`
	Expiry    time.Time `json:"expiry,omitzero"`
}

// Valid reports whether the session is usable at now. A zero expiry never
// expires.
func (s *Session) Valid(now time.Time) bool {
	if s == nil || s.Token == "" || s.Principal == "" {
		return false
	}
	return s.Expiry.IsZero() || now.Before(s.Expiry)
}

// Sessions persists the current session under store.KeyAuth.
type Sessions struct {
	kv  store.Store
	now func() time.Time

	mu     sync.Mutex
	cached *Session
	loaded bool
}

// NewSessions creates a session cache over kv.
func NewSessions(kv store.Store) *Sessions {
	return &Sessions{kv: kv, now: time.Now}
}

// Login stores token as the current session. If the token is a JWT its
// "sub" claim names the principal and "exp" the expiry; the signature is
// not verified here, the remote mirror does that. A non-empty principal
// overrides the subject.
func (s *Sessions) Login(ctx context.Context, token, principal string) (*Session, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, errors.New("auth: empty token")
	}
	sess := &Session{Token: token, Principal: principal}

	claims := jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err == nil {
		if sess.Principal == "" {
			sess.Principal = claims.Subject
		}
		if claims.ExpiresAt != nil {
			sess.Expiry = claims.ExpiresAt.Time.UTC()
		}
	}
	if sess.Principal == "" {
		return nil, ErrNoPrincipal
	}
	if !sess.Valid(s.now()) {
		return nil, fmt.Errorf("auth: token expired at %s", sess.Expiry.Format(time.RFC3339))
	}

	data, err := json.Marshal(sess)
	if err != nil {
		return nil, fmt.Errorf("encode session: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.kv.Put(ctx, store.KeyAuth, data); err != nil {
		return nil, fmt.Errorf("persist session: %w", err)
	}
	s.cached, s.loaded = sess, true
	cp := *sess
	return &cp, nil
}

// Current returns the stored session if one exists and has not expired.
// The store is re-read on every call so a login made by another process
// sharing it is seen; the last good read is kept for transient failures.
func (s *Sessions) Current(ctx context.Context) (*Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, err := s.kv.Get(ctx, store.KeyAuth)
	switch {
	case errors.Is(err, store.ErrNotFound):
		s.cached, s.loaded = nil, true
	case err != nil:
		if !s.loaded {
			return nil, false
		}
	default:
		var sess Session
		if json.Unmarshal(data, &sess) == nil {
			s.cached = &sess
		} else {
			s.cached = nil
		}
		s.loaded = true
	}
	if !s.cached.Valid(s.now()) {
		return nil, false
	}
	cp := *s.cached
	return &cp, true
}

// Logout forgets the cached session.
func (s *Sessions) Logout(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.kv.Delete(ctx, store.KeyAuth); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	s.cached, s.loaded = nil, true
	return nil
}

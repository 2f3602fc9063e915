// Package memory is an in-process IdentityStore for tests, examples and the load
// test. It is safe for concurrent use; SwapRefreshToken is atomic under its mutex.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/MrEthical07/authcore"
)

// Store keeps identities in a map keyed by email.
type Store struct {
	mu         sync.RWMutex
	identities map[string]authcore.Identity
}

// New returns an empty Store.
func New() *Store {
	return &Store{identities: make(map[string]authcore.Identity)}
}

// FindByEmail returns a copy of the stored identity.
func (s *Store) FindByEmail(_ context.Context, email string) (*authcore.Identity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ident, ok := s.identities[email]
	if !ok {
		return nil, fmt.Errorf("%w: %s", authcore.ErrIdentityNotFound, email)
	}
	return &ident, nil
}

func (s *Store) Create(_ context.Context, ident *authcore.Identity) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.identities[ident.Email]; ok {
		return fmt.Errorf("%w: %s", authcore.ErrIdentityExists, ident.Email)
	}
	s.identities[ident.Email] = *ident
	return nil
}

// Persist writes Confirmed and RefreshToken. Confirmed is never cleared.
func (s *Store) Persist(_ context.Context, ident *authcore.Identity) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.identities[ident.Email]
	if !ok {
		return fmt.Errorf("%w: %s", authcore.ErrIdentityNotFound, ident.Email)
	}
	cur.Confirmed = cur.Confirmed || ident.Confirmed
	cur.RefreshToken = ident.RefreshToken
	s.identities[ident.Email] = cur
	return nil
}

func (s *Store) MarkConfirmed(_ context.Context, email string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.identities[email]
	if !ok {
		return false, fmt.Errorf("%w: %s", authcore.ErrIdentityNotFound, email)
	}
	if cur.Confirmed {
		return false, nil
	}
	cur.Confirmed = true
	s.identities[email] = cur
	return true, nil
}

func (s *Store) Delete(_ context.Context, email string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.identities[email]; !ok {
		return fmt.Errorf("%w: %s", authcore.ErrIdentityNotFound, email)
	}
	delete(s.identities, email)
	return nil
}

func (s *Store) SwapRefreshToken(_ context.Context, email, expected, next string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.identities[email]
	if !ok {
		return false, fmt.Errorf("%w: %s", authcore.ErrIdentityNotFound, email)
	}
	if cur.RefreshToken != expected {
		return false, nil
	}
	cur.RefreshToken = next
	s.identities[email] = cur
	return true, nil
}

func (s *Store) UpdatePasswordHash(_ context.Context, email, hash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.identities[email]
	if !ok {
		return fmt.Errorf("%w: %s", authcore.ErrIdentityNotFound, email)
	}
	cur.PasswordHash = hash
	s.identities[email] = cur
	return nil
}

// Len reports how many identities are stored.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.identities)
}

var _ authcore.IdentityStore = (*Store)(nil)

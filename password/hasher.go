package password

import (
	"errors"
	"strings"
)

// ErrEmptyPassword is returned when attempting to hash an empty password.
var ErrEmptyPassword = errors.New("password cannot be empty")

// Hasher hashes and verifies passwords.
//
// Verify never returns an error: a malformed or unsupported hash simply does not match.
type Hasher interface {
	Hash(password string) (string, error)
	Verify(password, encodedHash string) bool
	NeedsUpgrade(encodedHash string) bool
}

// scheme reports whether an encoded hash belongs to a Hasher.
type scheme interface {
	Hasher
	Owns(encodedHash string) bool
}

// Multi hashes with a primary scheme and verifies against any registered scheme.
type Multi struct {
	primary scheme
	legacy  []scheme
}

// NewMulti builds a Multi. The primary hasher produces every new hash; legacy hashers
// are only consulted for verification.
func NewMulti(primary *Argon2, legacy ...*Bcrypt) *Multi {
	m := &Multi{primary: primary}
	for _, l := range legacy {
		if l != nil {
			m.legacy = append(m.legacy, l)
		}
	}
	return m
}

// Hash hashes with the primary scheme.
func (m *Multi) Hash(password string) (string, error) {
	return m.primary.Hash(password)
}

// Verify dispatches on the hash prefix.
func (m *Multi) Verify(password, encodedHash string) bool {
	if s := m.schemeFor(encodedHash); s != nil {
		return s.Verify(password, encodedHash)
	}
	return false
}

// NeedsUpgrade is true for any hash not produced by the primary scheme with its current
// parameters.
func (m *Multi) NeedsUpgrade(encodedHash string) bool {
	if !m.primary.Owns(encodedHash) {
		return true
	}
	return m.primary.NeedsUpgrade(encodedHash)
}

func (m *Multi) schemeFor(encodedHash string) scheme {
	if m.primary.Owns(encodedHash) {
		return m.primary
	}
	for _, l := range m.legacy {
		if l.Owns(encodedHash) {
			return l
		}
	}
	return nil
}

func hasAnyPrefix(s string, prefixes ...string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}

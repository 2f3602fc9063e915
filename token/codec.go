package token

import (
	"crypto/ed25519"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// ErrInvalid is the single failure returned by Decode and Parse.
var ErrInvalid = errors.New("token: invalid")

// Scope tags the purpose of a token.
type Scope string

const (
	ScopeAccess            Scope = "access"
	ScopeRefresh           Scope = "refresh"
	ScopeEmailConfirmation Scope = "email-confirmation"
)

// Valid reports whether s is one of the known scopes.
func (s Scope) Valid() bool {
	switch s {
	case ScopeAccess, ScopeRefresh, ScopeEmailConfirmation:
		return true
	}
	return false
}

// SigningMethod selects the JWS algorithm.
type SigningMethod string

const (
	MethodHS256   SigningMethod = "hs256"
	MethodEd25519 SigningMethod = "ed25519"
)

// Config configures a [Codec].
//
// For HS256, Secret is both the signing and the verification key. For Ed25519,
// PrivateKey signs and PublicKey verifies; either may be raw key bytes or PEM.
// A codec holding only a public key can decode but not issue.
type Config struct {
	SigningMethod SigningMethod
	Secret        []byte
	PrivateKey    []byte
	PublicKey     []byte
	Issuer        string
	Now           func() time.Time
}

// Claims is the decoded token payload. Prev is set on rotated refresh tokens and
// holds the jti of the token they replaced.
type Claims struct {
	Scope Scope  `json:"scope"`
	Prev  string `json:"prev,omitempty"`
	jwt.RegisteredClaims
}

// Codec signs and verifies tokens. It is immutable after construction and safe for
// concurrent use.
type Codec struct {
	method    jwt.SigningMethod
	signKey   interface{}
	verifyKey interface{}
	issuer    string
	now       func() time.Time
	parser    *jwt.Parser
}

const minSecretBytes = 32

// NewCodec validates cfg and resolves its keys.
func NewCodec(cfg Config) (*Codec, error) {
	c := &Codec{
		issuer: strings.TrimSpace(cfg.Issuer),
		now:    cfg.Now,
	}
	if c.now == nil {
		c.now = time.Now
	}

	switch cfg.SigningMethod {
	case MethodHS256, "":
		if len(cfg.Secret) < minSecretBytes {
			return nil, fmt.Errorf("hs256 requires a secret of at least %d bytes", minSecretBytes)
		}
		c.method = jwt.SigningMethodHS256
		c.signKey = cfg.Secret
		c.verifyKey = cfg.Secret
	case MethodEd25519:
		c.method = jwt.SigningMethodEdDSA
		if len(cfg.PrivateKey) > 0 {
			priv, err := parseEdPrivateKey(cfg.PrivateKey)
			if err != nil {
				return nil, err
			}
			c.signKey = priv
			c.verifyKey = priv.Public()
		}
		if len(cfg.PublicKey) > 0 {
			pub, err := parseEdPublicKey(cfg.PublicKey)
			if err != nil {
				return nil, err
			}
			c.verifyKey = pub
		}
		if c.verifyKey == nil {
			return nil, errors.New("ed25519 requires a private or public key")
		}
	default:
		return nil, errors.New("unsupported signing method")
	}

	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{c.method.Alg()}),
		jwt.WithTimeFunc(c.now),
		jwt.WithExpirationRequired(),
	}
	if c.issuer != "" {
		options = append(options, jwt.WithIssuer(c.issuer))
	}
	c.parser = jwt.NewParser(options...)

	return c, nil
}

// Issue signs a token for subject with the given scope, valid for ttl from now.
func (c *Codec) Issue(subject string, scope Scope, ttl time.Duration) (string, error) {
	return c.issue(subject, scope, ttl, "")
}

// IssueRotation signs a refresh token that replaces the refresh token whose jti is
// prev.
func (c *Codec) IssueRotation(subject string, ttl time.Duration, prev string) (string, error) {
	if prev == "" {
		return "", errors.New("rotation requires the previous token id")
	}
	return c.issue(subject, ScopeRefresh, ttl, prev)
}

func (c *Codec) issue(subject string, scope Scope, ttl time.Duration, prev string) (string, error) {
	if subject == "" {
		return "", errors.New("token subject is empty")
	}
	if !scope.Valid() {
		return "", fmt.Errorf("unknown token scope %q", scope)
	}
	if ttl <= 0 {
		return "", errors.New("token ttl must be positive")
	}
	if c.signKey == nil {
		return "", errors.New("codec has no signing key")
	}

	iat := c.now().Truncate(time.Second)
	claims := Claims{
		Scope: scope,
		Prev:  prev,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   subject,
			Issuer:    c.issuer,
			IssuedAt:  jwt.NewNumericDate(iat),
			ExpiresAt: jwt.NewNumericDate(iat.Add(ttl)),
		},
	}

	return jwt.NewWithClaims(c.method, claims).SignedString(c.signKey)
}

// Decode verifies raw and returns its subject when the token carries the expected
// scope and has not expired.
func (c *Codec) Decode(raw string, expected Scope) (string, error) {
	claims, err := c.Parse(raw, expected)
	if err != nil {
		return "", err
	}
	return claims.Subject, nil
}

// Parse is Decode returning the full claim set.
func (c *Codec) Parse(raw string, expected Scope) (*Claims, error) {
	if raw == "" {
		return nil, ErrInvalid
	}

	tok, err := c.parser.ParseWithClaims(raw, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if t.Method.Alg() != c.method.Alg() {
			return nil, fmt.Errorf("unexpected signing algorithm: %s", t.Method.Alg())
		}
		return c.verifyKey, nil
	})
	if err != nil {
		return nil, ErrInvalid
	}

	claims, ok := tok.Claims.(*Claims)
	if !ok || !tok.Valid {
		return nil, ErrInvalid
	}
	if claims.Scope != expected || claims.Subject == "" {
		return nil, ErrInvalid
	}

	return claims, nil
}

func parseEdPrivateKey(key []byte) (ed25519.PrivateKey, error) {
	if len(key) == ed25519.PrivateKeySize {
		return ed25519.PrivateKey(key), nil
	}
	parsed, err := jwt.ParseEdPrivateKeyFromPEM(key)
	if err != nil {
		return nil, errors.New("invalid ed25519 private key")
	}
	edKey, ok := parsed.(ed25519.PrivateKey)
	if !ok {
		return nil, errors.New("invalid ed25519 private key type")
	}
	return edKey, nil
}

func parseEdPublicKey(key []byte) (ed25519.PublicKey, error) {
	if len(key) == ed25519.PublicKeySize {
		return ed25519.PublicKey(key), nil
	}
	parsed, err := jwt.ParseEdPublicKeyFromPEM(key)
	if err != nil {
		return nil, errors.New("invalid ed25519 public key")
	}
	edKey, ok := parsed.(ed25519.PublicKey)
	if !ok {
		return nil, errors.New("invalid ed25519 public key type")
	}
	return edKey, nil
}

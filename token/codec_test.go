package token

import (
	"crypto/ed25519"
	"crypto/rand"
	"strings"
	"sync"
	"testing"
	"time"

	gjwt "github.com/golang-jwt/jwt/v5"
)

var testSecret = []byte("0123456789abcdef0123456789abcdef")

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	c.now = t
	c.mu.Unlock()
}

func newTestCodec(t *testing.T) (*Codec, *fakeClock) {
	t.Helper()
	clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	c, err := NewCodec(Config{SigningMethod: MethodHS256, Secret: testSecret, Now: clock.Now})
	if err != nil {
		t.Fatalf("NewCodec error: %v", err)
	}
	return c, clock
}

func TestIssueDecodeRoundTrip(t *testing.T) {
	c, _ := newTestCodec(t)

	for _, scope := range []Scope{ScopeAccess, ScopeRefresh, ScopeEmailConfirmation} {
		raw, err := c.Issue("alice@example.com", scope, time.Minute)
		if err != nil {
			t.Fatalf("Issue(%s) error: %v", scope, err)
		}
		if strings.Count(raw, ".") != 2 {
			t.Fatalf("expected compact JWS, got %q", raw)
		}
		sub, err := c.Decode(raw, scope)
		if err != nil {
			t.Fatalf("Decode(%s) error: %v", scope, err)
		}
		if sub != "alice@example.com" {
			t.Fatalf("unexpected subject %q", sub)
		}
	}
}

func TestDecodeRejectsWrongScope(t *testing.T) {
	c, _ := newTestCodec(t)

	raw, err := c.Issue("alice@example.com", ScopeAccess, time.Minute)
	if err != nil {
		t.Fatalf("Issue error: %v", err)
	}
	if _, err := c.Decode(raw, ScopeRefresh); err != ErrInvalid {
		t.Fatalf("expected ErrInvalid for wrong scope, got %v", err)
	}
	if _, err := c.Decode(raw, ScopeEmailConfirmation); err != ErrInvalid {
		t.Fatalf("expected ErrInvalid for wrong scope, got %v", err)
	}
}

func TestDecodeExpiryBoundary(t *testing.T) {
	c, clock := newTestCodec(t)
	start := clock.Now()

	raw, err := c.Issue("alice@example.com", ScopeAccess, 900*time.Second)
	if err != nil {
		t.Fatalf("Issue error: %v", err)
	}

	clock.Set(start.Add(899 * time.Second))
	if _, err := c.Decode(raw, ScopeAccess); err != nil {
		t.Fatalf("expected token valid one second before exp, got %v", err)
	}

	clock.Set(start.Add(900 * time.Second))
	if _, err := c.Decode(raw, ScopeAccess); err != ErrInvalid {
		t.Fatalf("expected ErrInvalid at exp, got %v", err)
	}

	clock.Set(start.Add(901 * time.Second))
	if _, err := c.Decode(raw, ScopeAccess); err != ErrInvalid {
		t.Fatalf("expected ErrInvalid after exp, got %v", err)
	}
}

func TestDecodeRejectsTamperedSignature(t *testing.T) {
	c, _ := newTestCodec(t)

	raw, err := c.Issue("alice@example.com", ScopeAccess, time.Minute)
	if err != nil {
		t.Fatalf("Issue error: %v", err)
	}
	parts := strings.Split(raw, ".")
	sig := []byte(parts[2])
	if sig[0] == 'A' {
		sig[0] = 'B'
	} else {
		sig[0] = 'A'
	}
	tampered := parts[0] + "." + parts[1] + "." + string(sig)

	if _, err := c.Decode(tampered, ScopeAccess); err != ErrInvalid {
		t.Fatalf("expected ErrInvalid for tampered token, got %v", err)
	}
}

func TestDecodeRejectsForeignSecret(t *testing.T) {
	c, clock := newTestCodec(t)
	other, err := NewCodec(Config{Secret: []byte("ffffffffffffffffffffffffffffffff"), Now: clock.Now})
	if err != nil {
		t.Fatalf("NewCodec error: %v", err)
	}

	raw, err := other.Issue("alice@example.com", ScopeAccess, time.Minute)
	if err != nil {
		t.Fatalf("Issue error: %v", err)
	}
	if _, err := c.Decode(raw, ScopeAccess); err != ErrInvalid {
		t.Fatalf("expected ErrInvalid for foreign secret, got %v", err)
	}
}

func TestDecodeRejectsWrongAlgorithm(t *testing.T) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("generate ed25519 key: %v", err)
	}
	c, err := NewCodec(Config{SigningMethod: MethodEd25519, PublicKey: pub})
	if err != nil {
		t.Fatalf("NewCodec error: %v", err)
	}

	claims := Claims{Scope: ScopeAccess, RegisteredClaims: gjwt.RegisteredClaims{
		Subject:   "alice@example.com",
		ExpiresAt: gjwt.NewNumericDate(time.Now().Add(time.Minute)),
	}}
	hs, err := gjwt.NewWithClaims(gjwt.SigningMethodHS256, claims).SignedString([]byte(pub))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	if _, err := c.Decode(hs, ScopeAccess); err != ErrInvalid {
		t.Fatalf("expected wrong algorithm to be rejected, got %v", err)
	}

	ed, err := gjwt.NewWithClaims(gjwt.SigningMethodEdDSA, claims).SignedString(priv)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	if _, err := c.Decode(ed, ScopeAccess); err != nil {
		t.Fatalf("expected ed25519 token to verify, got %v", err)
	}
	if _, err := c.Issue("alice@example.com", ScopeAccess, time.Minute); err == nil {
		t.Fatal("expected verify-only codec to refuse issuing")
	}
}

func TestDecodeRejectsMissingExpiry(t *testing.T) {
	c, _ := newTestCodec(t)

	claims := Claims{Scope: ScopeAccess, RegisteredClaims: gjwt.RegisteredClaims{Subject: "alice@example.com"}}
	raw, err := gjwt.NewWithClaims(gjwt.SigningMethodHS256, claims).SignedString(testSecret)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	if _, err := c.Decode(raw, ScopeAccess); err != ErrInvalid {
		t.Fatalf("expected token without exp to be rejected, got %v", err)
	}
}

func TestIssueProducesDistinctTokensWithinOneSecond(t *testing.T) {
	c, _ := newTestCodec(t)

	a, err := c.Issue("alice@example.com", ScopeRefresh, time.Hour)
	if err != nil {
		t.Fatalf("Issue error: %v", err)
	}
	b, err := c.Issue("alice@example.com", ScopeRefresh, time.Hour)
	if err != nil {
		t.Fatalf("Issue error: %v", err)
	}
	if a == b {
		t.Fatal("expected distinct tokens for identical subject, scope and second")
	}

	claims, err := c.Parse(a, ScopeRefresh)
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	if claims.ID == "" || claims.IssuedAt == nil || claims.ExpiresAt == nil {
		t.Fatalf("expected jti, iat and exp to be set: %+v", claims)
	}
	if got := claims.ExpiresAt.Sub(claims.IssuedAt.Time); got != time.Hour {
		t.Fatalf("expected exp - iat = 1h, got %v", got)
	}
}

func TestIssueRotationRecordsPredecessor(t *testing.T) {
	c, _ := newTestCodec(t)

	first, err := c.Issue("alice@example.com", ScopeRefresh, time.Hour)
	if err != nil {
		t.Fatalf("Issue error: %v", err)
	}
	firstClaims, err := c.Parse(first, ScopeRefresh)
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	if firstClaims.Prev != "" {
		t.Fatalf("fresh token must not carry prev, got %q", firstClaims.Prev)
	}

	next, err := c.IssueRotation("alice@example.com", time.Hour, firstClaims.ID)
	if err != nil {
		t.Fatalf("IssueRotation error: %v", err)
	}
	nextClaims, err := c.Parse(next, ScopeRefresh)
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	if nextClaims.Prev != firstClaims.ID {
		t.Fatalf("expected prev %q, got %q", firstClaims.ID, nextClaims.Prev)
	}

	if _, err := c.IssueRotation("alice@example.com", time.Hour, ""); err == nil {
		t.Fatal("expected error for empty prev")
	}
}

func TestIssuerMismatchRejected(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	a, err := NewCodec(Config{Secret: testSecret, Issuer: "authcore", Now: clock.Now})
	if err != nil {
		t.Fatalf("NewCodec error: %v", err)
	}
	b, err := NewCodec(Config{Secret: testSecret, Issuer: "someone-else", Now: clock.Now})
	if err != nil {
		t.Fatalf("NewCodec error: %v", err)
	}

	raw, err := b.Issue("alice@example.com", ScopeAccess, time.Minute)
	if err != nil {
		t.Fatalf("Issue error: %v", err)
	}
	if _, err := a.Decode(raw, ScopeAccess); err != ErrInvalid {
		t.Fatalf("expected issuer mismatch to be rejected, got %v", err)
	}
}

func TestNewCodecValidation(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
	}{
		{"short secret", Config{SigningMethod: MethodHS256, Secret: []byte("short")}},
		{"unknown method", Config{SigningMethod: "rs256", Secret: testSecret}},
		{"ed25519 without keys", Config{SigningMethod: MethodEd25519}},
		{"bad ed25519 key", Config{SigningMethod: MethodEd25519, PublicKey: []byte("nope")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewCodec(tt.cfg); err == nil {
				t.Fatalf("expected %s to be rejected", tt.name)
			}
		})
	}
}

func TestIssueValidation(t *testing.T) {
	c, _ := newTestCodec(t)

	if _, err := c.Issue("", ScopeAccess, time.Minute); err == nil {
		t.Fatal("expected empty subject to be rejected")
	}
	if _, err := c.Issue("a", Scope("admin"), time.Minute); err == nil {
		t.Fatal("expected unknown scope to be rejected")
	}
	if _, err := c.Issue("a", ScopeAccess, 0); err == nil {
		t.Fatal("expected zero ttl to be rejected")
	}
}

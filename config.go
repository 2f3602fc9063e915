package authcore

import (
	"errors"
	"time"

	"github.com/MrEthical07/authcore/cache"
	"github.com/MrEthical07/authcore/password"
	"github.com/MrEthical07/authcore/token"
	"golang.org/x/crypto/bcrypt"
)

// Config is the complete Engine configuration. Start from [DefaultConfig].
type Config struct {
	JWT      JWTConfig
	Password PasswordConfig
	Cache    CacheConfig
	Signup   SignupConfig
	Metrics  MetricsConfig
}

/*
====================================
JWT CONFIG
====================================
*/

// JWTConfig controls token signing and lifetimes.
//
// RotationGrace is the window during which presenting the direct predecessor of a
// freshly rotated stored token is treated as a lost concurrent rotation rather than
// reuse. Any other mismatch clears the stored token. Zero clears on every mismatch.
//
// With ed25519, a PublicKey alone yields a verify-only engine: Authorize and
// ConfirmEmail work, operations that issue tokens fail.
type JWTConfig struct {
	AccessTTL       time.Duration
	RefreshTTL      time.Duration
	ConfirmationTTL time.Duration
	RotationGrace   time.Duration
	SigningMethod   string // "hs256" (default) or "ed25519"
	Secret          []byte
	PrivateKey      []byte
	PublicKey       []byte
	Issuer          string
}

/*
====================================
PASSWORD CONFIG
====================================
*/

// PasswordConfig holds Argon2id cost parameters and the legacy bcrypt policy.
type PasswordConfig struct {
	Memory           uint32 // in KB
	Time             uint32
	Parallelism      uint8
	SaltLength       uint32
	KeyLength        uint32
	MaxPasswordBytes int
	UpgradeOnLogin   bool
	AcceptBcrypt     bool
	BcryptCost       int
}

/*
====================================
CACHE CONFIG
====================================
*/

// CacheConfig controls the Redis snapshot cache.
type CacheConfig struct {
	RedisPrefix string
	TTL         time.Duration
}

// SignupConfig bounds signup input.
type SignupConfig struct {
	MinPasswordLength int
	MaxPasswordLength int
}

// MetricsConfig toggles in-process metrics.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

/*
====================================
DEFAULT CONFIG
====================================
*/

// DefaultConfig returns production defaults. A signing secret or key pair must still
// be supplied.
func DefaultConfig() Config {
	argon := password.DefaultConfig()
	return Config{
		JWT: JWTConfig{
			AccessTTL:       900 * time.Second,
			RefreshTTL:      7 * 24 * time.Hour,
			ConfirmationTTL: 7 * 24 * time.Hour,
			RotationGrace:   10 * time.Second,
			SigningMethod:   string(token.MethodHS256),
		},
		Password: PasswordConfig{
			Memory:           argon.Memory,
			Time:             argon.Time,
			Parallelism:      argon.Parallelism,
			SaltLength:       argon.SaltLength,
			KeyLength:        argon.KeyLength,
			MaxPasswordBytes: password.DefaultMaxPasswordBytes,
			UpgradeOnLogin:   true,
			AcceptBcrypt:     true,
			BcryptCost:       bcrypt.DefaultCost,
		},
		Cache: CacheConfig{
			RedisPrefix: cache.DefaultPrefix,
			TTL:         cache.DefaultTTL,
		},
		Signup: SignupConfig{
			MinPasswordLength: 6,
			MaxPasswordLength: 128,
		},
		Metrics: MetricsConfig{
			Enabled:                 false,
			EnableLatencyHistograms: false,
		},
	}
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.JWT.Secret = cloneBytes(cfg.JWT.Secret)
	out.JWT.PrivateKey = cloneBytes(cfg.JWT.PrivateKey)
	out.JWT.PublicKey = cloneBytes(cfg.JWT.PublicKey)
	return out
}

func cloneBytes(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

/*
====================================
VALIDATION
====================================
*/

// Validate checks the configuration for internal consistency. Key material is
// checked again by the token codec at Build time.
func (c *Config) Validate() error {
	// JWT
	if c.JWT.AccessTTL <= 0 {
		return errors.New("JWT AccessTTL must be > 0")
	}
	if c.JWT.RefreshTTL <= 0 {
		return errors.New("JWT RefreshTTL must be > 0")
	}
	if c.JWT.ConfirmationTTL <= 0 {
		return errors.New("JWT ConfirmationTTL must be > 0")
	}
	if c.JWT.RotationGrace < 0 {
		return errors.New("JWT RotationGrace must be >= 0")
	}
	if c.JWT.RotationGrace >= c.JWT.RefreshTTL {
		return errors.New("JWT RotationGrace must be shorter than RefreshTTL")
	}

	switch token.SigningMethod(c.JWT.SigningMethod) {
	case token.MethodHS256:
		if len(c.JWT.Secret) == 0 {
			return errors.New("hs256 requires Secret")
		}
	case token.MethodEd25519:
		if len(c.JWT.PrivateKey) == 0 && len(c.JWT.PublicKey) == 0 {
			return errors.New("ed25519 requires PrivateKey or PublicKey")
		}
	default:
		return errors.New("unsupported JWT signing method")
	}

	// Password
	if c.Password.Memory < 8*1024 {
		return errors.New("Password Memory must be >= 8192 KB")
	}
	if c.Password.Time < 1 {
		return errors.New("Password Time must be >= 1")
	}
	if c.Password.Parallelism < 1 {
		return errors.New("Password Parallelism must be >= 1")
	}
	if c.Password.SaltLength < 16 {
		return errors.New("Password SaltLength must be >= 16")
	}
	if c.Password.KeyLength < 16 {
		return errors.New("Password KeyLength must be >= 16")
	}
	if c.Password.MaxPasswordBytes < 0 {
		return errors.New("Password MaxPasswordBytes must be >= 0")
	}
	if c.Password.AcceptBcrypt && c.Password.BcryptCost != 0 &&
		(c.Password.BcryptCost < bcrypt.MinCost || c.Password.BcryptCost > bcrypt.MaxCost) {
		return errors.New("Password BcryptCost out of range")
	}

	// Cache
	if c.Cache.TTL <= 0 {
		return errors.New("Cache TTL must be > 0")
	}

	// Signup
	if c.Signup.MinPasswordLength < 1 {
		return errors.New("Signup MinPasswordLength must be >= 1")
	}
	if c.Signup.MaxPasswordLength < c.Signup.MinPasswordLength {
		return errors.New("Signup MaxPasswordLength must be >= MinPasswordLength")
	}
	maxBytes := c.Password.MaxPasswordBytes
	if maxBytes == 0 {
		maxBytes = password.DefaultMaxPasswordBytes
	}
	if c.Signup.MaxPasswordLength*4 > maxBytes {
		return errors.New("Signup MaxPasswordLength exceeds Password MaxPasswordBytes")
	}

	// Metrics
	if c.Metrics.EnableLatencyHistograms && !c.Metrics.Enabled {
		return errors.New("Metrics EnableLatencyHistograms requires Metrics Enabled")
	}

	return nil
}

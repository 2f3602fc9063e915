package authcore

import (
	"context"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
)

// Identity is the durable authenticated-user record.
//
// An empty RefreshToken means no refresh token is live. The Engine mutates only
// Confirmed and RefreshToken.
type Identity struct {
	ID           string
	Email        string
	PasswordHash string
	Confirmed    bool
	RefreshToken string
	CreatedAt    time.Time
}

// TokenTypeBearer is the token_type reported with every issued pair.
const TokenTypeBearer = "bearer"

// TokenPair is returned by IssueSession, Login and Refresh.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
}

// ConfirmOutcome is the non-error result of ConfirmEmail and RequestConfirmation.
type ConfirmOutcome uint8

const (
	// Confirmed means the call flipped the identity from unconfirmed to confirmed
	// (ConfirmEmail) or issued a confirmation token (RequestConfirmation).
	Confirmed ConfirmOutcome = iota + 1
	// AlreadyConfirmed means the identity was confirmed before the call.
	AlreadyConfirmed
)

func (o ConfirmOutcome) String() string {
	switch o {
	case Confirmed:
		return "confirmed"
	case AlreadyConfirmed:
		return "already_confirmed"
	default:
		return "unknown"
	}
}

// IdentityStore is the durable source of truth for identities.
//
// FindByEmail returns an error wrapping [ErrIdentityNotFound] when absent. Create
// returns an error wrapping [ErrIdentityExists] for a duplicate email. Persist writes
// only Confirmed and RefreshToken and never turns a confirmed identity back to
// unconfirmed. MarkConfirmed sets Confirmed without touching RefreshToken and reports
// whether it changed. SwapRefreshToken replaces the stored refresh token with next
// only if it currently equals expected, in one atomic step, and reports whether the
// swap happened.
type IdentityStore interface {
	FindByEmail(ctx context.Context, email string) (*Identity, error)
	Create(ctx context.Context, identity *Identity) error
	Persist(ctx context.Context, identity *Identity) error
	MarkConfirmed(ctx context.Context, email string) (bool, error)
	Delete(ctx context.Context, email string) error
	SwapRefreshToken(ctx context.Context, email, expected, next string) (bool, error)
	UpdatePasswordHash(ctx context.Context, email, hash string) error
}

// Clock supplies the current time.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock.
type SystemClock struct{}

// Now returns time.Now().
func (SystemClock) Now() time.Time { return time.Now() }

// SignupRequest is the input to Engine.Signup.
type SignupRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// SignupResult carries the created identity and the confirmation token to deliver.
type SignupResult struct {
	Identity          *Identity
	ConfirmationToken string
}

func (r SignupRequest) validate(cfg SignupConfig) error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, validation.Length(3, 254), is.Email),
		validation.Field(&r.Password, validation.Required, validation.Length(cfg.MinPasswordLength, cfg.MaxPasswordLength)),
	)
}

package authcore

import "errors"

var (
	// ErrInvalidCredentials means no identity matches the email.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrIncorrectPassword means the identity exists but the password does not match.
	ErrIncorrectPassword = errors.New("incorrect password")
	// ErrEmailNotConfirmed means the identity exists but has not confirmed its email.
	ErrEmailNotConfirmed = errors.New("email not confirmed")

	// ErrAuthentication is the single failure for any token that does not decode:
	// bad signature, wrong scope or expiry are not distinguished.
	ErrAuthentication = errors.New("could not validate credentials")
	// ErrInvalidRefreshToken means the refresh token is not the stored one.
	ErrInvalidRefreshToken = errors.New("invalid refresh token")
	// ErrUserNotFound means a valid token names an identity that no longer exists.
	ErrUserNotFound = errors.New("user not found")

	// ErrAccountExists is returned by Signup for a duplicate email.
	ErrAccountExists = errors.New("account already exists")
	// ErrInvalidSignup wraps signup input validation failures.
	ErrInvalidSignup = errors.New("invalid signup request")

	// ErrEngineNotReady is returned when an Engine method is called on a nil or
	// partially constructed Engine.
	ErrEngineNotReady = errors.New("engine not initialized")
)

// Store sentinels. IdentityStore implementations wrap these so the Engine can map
// them with errors.Is.
var (
	ErrIdentityNotFound = errors.New("identity not found")
	ErrIdentityExists   = errors.New("identity already exists")
)

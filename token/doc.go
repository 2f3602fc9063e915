// Package token issues and decodes the signed, scoped, time-limited tokens used by the
// authentication core: access, refresh and email-confirmation tokens.
//
// # Wire format
//
// Tokens are compact JWS strings (three base64url segments). The payload carries
// sub, scope, iat, exp and jti. HS256 is the default signing method; Ed25519 is
// available when asymmetric verification is needed.
//
// # Failure model
//
// Decode collapses every failure (malformed input, bad signature, wrong algorithm,
// wrong scope, expiry) into [ErrInvalid]. A token is expired once now >= exp.
//
// # What this package must NOT do
//
//   - Consult storage. Refresh-token equality checks belong to the Engine.
//   - Read the wall clock directly when a clock is configured.
//   - Distinguish failure causes to callers.
package token

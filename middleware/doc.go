// Package middleware adapts authcore.Engine to net/http.
//
// # Guards
//
//   - [Guard] resolves the bearer access token through Engine.Authorize and puts
//     the identity on the request context.
//   - [RequireConfirmed] additionally rejects identities whose email is not
//     confirmed.
//
// Handlers read the identity with [IdentityFromContext].
//
// This package translates HTTP semantics into Engine calls. It never parses
// tokens or touches Redis itself.
package middleware

// Package authcore is an authentication and session core: password verification,
// signed-token issuance for access, refresh and email confirmation, refresh-token
// rotation with reuse detection, and cache-backed identity resolution for every
// authorizing request.
//
// An [Engine] is built once through [Builder.Build] and passed explicitly to request
// handlers. Engine methods are safe to call from multiple goroutines and start no
// background work.
//
// # Architecture boundaries
//
// authcore is the public surface. It exposes [Engine], [Builder], [Config], the
// [IdentityStore] contract and value types. Password hashing lives in password/,
// token signing in token/, the Redis snapshot cache in cache/. Durable storage is
// supplied by the caller; store/memory and store/postgres are ready-made adapters.
//
// # What this package must NOT do
//
//   - Expose Redis clients or snapshot encoding in its public API.
//   - Hold a lock while hashing a password or signing a token.
//   - Log plaintext passwords or raw tokens.
//   - Update a cached snapshot in place. Mutations delete the cache entry and the
//     next Authorize repopulates it from the store.
package authcore

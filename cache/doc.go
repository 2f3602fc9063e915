// Package cache keeps short-lived identity snapshots in Redis so that authorizing
// requests can resolve an identity without touching the durable store.
//
// # Binary encoding
//
// Snapshots are stored as a compact binary record prefixed by a schema byte. The
// decoder accepts every schema version it has ever written; new versions append
// fields and never reinterpret old ones.
//
// # Architecture boundaries
//
// This package owns the [Store] (Redis GET, SET EX, DEL) and the [Snapshot] model.
// Deciding when to fall back to the durable store, and when an entry must be
// invalidated, belongs to the Engine.
//
// # What this package must NOT do
//
//   - Import authcore or token (no upward imports).
//   - Store password hashes or refresh tokens in a [Snapshot].
package cache

// Package postgres implements authcore.IdentityStore on PostgreSQL through pgx.
//
// Refresh-token rotation is a single conditional UPDATE, so concurrent rotations of
// the same token are serialized by the database. Schema migrations are embedded and
// applied with goose.
//
// Errors carry oops codes and wrap the authcore store sentinels, so callers can use
// errors.Is(err, authcore.ErrIdentityNotFound) across the boundary.
package postgres

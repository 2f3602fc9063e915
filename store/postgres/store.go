package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/samber/oops"

	"github.com/MrEthical07/authcore"
)

const uniqueViolation = "23505"

// pool is the subset of *pgxpool.Pool used by Store.
type pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store is a PostgreSQL-backed identity store.
type Store struct {
	pool pool
}

// New wraps an existing pool.
func New(p pool) *Store {
	return &Store{pool: p}
}

// Connect opens a pgx pool for dsn and verifies it with a ping.
func Connect(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	p, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, oops.Code("DB_CONNECT_FAILED").With("operation", "create pool").Wrap(err)
	}
	if err := p.Ping(ctx); err != nil {
		p.Close()
		return nil, oops.Code("DB_CONNECT_FAILED").With("operation", "ping").Wrap(err)
	}
	return p, nil
}

// FindByEmail loads one identity.
func (s *Store) FindByEmail(ctx context.Context, email string) (*authcore.Identity, error) {
	var (
		ident   authcore.Identity
		refresh *string
	)
	err := s.pool.QueryRow(ctx, `
		SELECT id, email, password_hash, confirmed, refresh_token, created_at
		FROM identities WHERE email = $1
	`, email).Scan(&ident.ID, &ident.Email, &ident.PasswordHash, &ident.Confirmed, &refresh, &ident.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, notFound(email)
		}
		return nil, oops.Code("IDENTITY_QUERY_FAILED").With("operation", "find identity").Wrap(err)
	}
	if refresh != nil {
		ident.RefreshToken = *refresh
	}
	return &ident, nil
}

// Create inserts a new identity. A duplicate email wraps authcore.ErrIdentityExists.
func (s *Store) Create(ctx context.Context, ident *authcore.Identity) error {
	createdAt := ident.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO identities (id, email, password_hash, confirmed, refresh_token, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, ident.ID, ident.Email, ident.PasswordHash, ident.Confirmed, nullable(ident.RefreshToken), createdAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return oops.Code("IDENTITY_EXISTS").
				With("constraint", pgErr.ConstraintName).
				Wrap(authcore.ErrIdentityExists)
		}
		return oops.Code("IDENTITY_CREATE_FAILED").With("id", ident.ID).Wrap(err)
	}
	return nil
}

// Persist writes confirmed and refresh_token. A confirmed row stays confirmed.
func (s *Store) Persist(ctx context.Context, ident *authcore.Identity) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE identities SET confirmed = confirmed OR $2, refresh_token = $3 WHERE email = $1
	`, ident.Email, ident.Confirmed, nullable(ident.RefreshToken))
	if err != nil {
		return oops.Code("IDENTITY_PERSIST_FAILED").With("id", ident.ID).Wrap(err)
	}
	if tag.RowsAffected() == 0 {
		return notFound(ident.Email)
	}
	return nil
}

// MarkConfirmed flips confirmed to true and reports whether this call changed it.
func (s *Store) MarkConfirmed(ctx context.Context, email string) (bool, error) {
	tag, err := s.pool.Exec(ctx, `
		UPDATE identities SET confirmed = TRUE WHERE email = $1 AND NOT confirmed
	`, email)
	if err != nil {
		return false, oops.Code("IDENTITY_CONFIRM_FAILED").With("operation", "mark confirmed").Wrap(err)
	}
	if tag.RowsAffected() == 1 {
		return true, nil
	}

	exists, err := s.exists(ctx, email)
	if err != nil {
		return false, oops.Code("IDENTITY_CONFIRM_FAILED").With("operation", "check identity").Wrap(err)
	}
	if !exists {
		return false, notFound(email)
	}
	return false, nil
}

// Delete removes the identity row.
func (s *Store) Delete(ctx context.Context, email string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM identities WHERE email = $1`, email)
	if err != nil {
		return oops.Code("IDENTITY_DELETE_FAILED").With("operation", "delete identity").Wrap(err)
	}
	if tag.RowsAffected() == 0 {
		return notFound(email)
	}
	return nil
}

// SwapRefreshToken sets refresh_token to next only where it still equals expected.
// An empty string stands for NULL on both sides.
func (s *Store) SwapRefreshToken(ctx context.Context, email, expected, next string) (bool, error) {
	tag, err := s.pool.Exec(ctx, `
		UPDATE identities SET refresh_token = $3
		WHERE email = $1 AND refresh_token IS NOT DISTINCT FROM $2
	`, email, nullable(expected), nullable(next))
	if err != nil {
		return false, oops.Code("REFRESH_SWAP_FAILED").With("operation", "swap refresh token").Wrap(err)
	}
	if tag.RowsAffected() == 1 {
		return true, nil
	}

	exists, err := s.exists(ctx, email)
	if err != nil {
		return false, oops.Code("REFRESH_SWAP_FAILED").With("operation", "check identity").Wrap(err)
	}
	if !exists {
		return false, notFound(email)
	}
	return false, nil
}

// UpdatePasswordHash replaces the stored hash.
func (s *Store) UpdatePasswordHash(ctx context.Context, email, hash string) error {
	tag, err := s.pool.Exec(ctx, `UPDATE identities SET password_hash = $2 WHERE email = $1`, email, hash)
	if err != nil {
		return oops.Code("PASSWORD_UPDATE_FAILED").With("operation", "update password hash").Wrap(err)
	}
	if tag.RowsAffected() == 0 {
		return notFound(email)
	}
	return nil
}

func (s *Store) exists(ctx context.Context, email string) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM identities WHERE email = $1)`, email).Scan(&exists)
	return exists, err
}

func notFound(email string) error {
	return oops.Code("IDENTITY_NOT_FOUND").With("email", email).Wrap(authcore.ErrIdentityNotFound)
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

var _ authcore.IdentityStore = (*Store)(nil)

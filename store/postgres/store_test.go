package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrEthical07/authcore"
)

var identityColumns = []string{"id", "email", "password_hash", "confirmed", "refresh_token", "created_at"}

func newMockStore(t *testing.T) (*Store, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err, "failed to create mock")
	t.Cleanup(mock.Close)
	return New(mock), mock
}

func TestStore_FindByEmail(t *testing.T) {
	created := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	refresh := "r1"

	tests := []struct {
		name      string
		setupMock func(mock pgxmock.PgxPoolIface)
		want      *authcore.Identity
		wantIs    error
		wantErr   bool
	}{
		{
			name: "found with refresh token",
			setupMock: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectQuery(`SELECT id, email, password_hash, confirmed, refresh_token, created_at`).
					WithArgs("a@x.com").
					WillReturnRows(pgxmock.NewRows(identityColumns).
						AddRow("id-1", "a@x.com", "hash", true, &refresh, created))
			},
			want: &authcore.Identity{
				ID: "id-1", Email: "a@x.com", PasswordHash: "hash",
				Confirmed: true, RefreshToken: "r1", CreatedAt: created,
			},
		},
		{
			name: "found with null refresh token",
			setupMock: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectQuery(`SELECT id, email`).
					WithArgs("a@x.com").
					WillReturnRows(pgxmock.NewRows(identityColumns).
						AddRow("id-1", "a@x.com", "hash", false, (*string)(nil), created))
			},
			want: &authcore.Identity{
				ID: "id-1", Email: "a@x.com", PasswordHash: "hash", CreatedAt: created,
			},
		},
		{
			name: "not found",
			setupMock: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectQuery(`SELECT id, email`).
					WithArgs("a@x.com").
					WillReturnError(pgx.ErrNoRows)
			},
			wantErr: true,
			wantIs:  authcore.ErrIdentityNotFound,
		},
		{
			name: "database error",
			setupMock: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectQuery(`SELECT id, email`).
					WithArgs("a@x.com").
					WillReturnError(errors.New("connection refused"))
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, mock := newMockStore(t)
			tt.setupMock(mock)

			got, err := store.FindByEmail(context.Background(), "a@x.com")
			if tt.wantErr {
				require.Error(t, err)
				if tt.wantIs != nil {
					assert.ErrorIs(t, err, tt.wantIs)
				} else {
					assert.NotErrorIs(t, err, authcore.ErrIdentityNotFound)
				}
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.want, got)
			}
			assert.NoError(t, mock.ExpectationsWereMet(), "unfulfilled expectations")
		})
	}
}

func TestStore_Create(t *testing.T) {
	ident := &authcore.Identity{
		ID:           "id-1",
		Email:        "a@x.com",
		PasswordHash: "hash",
		CreatedAt:    time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
	}

	t.Run("inserts identity", func(t *testing.T) {
		store, mock := newMockStore(t)
		mock.ExpectExec(`INSERT INTO identities`).
			WithArgs("id-1", "a@x.com", "hash", false, nil, ident.CreatedAt).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))

		require.NoError(t, store.Create(context.Background(), ident))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("duplicate email", func(t *testing.T) {
		store, mock := newMockStore(t)
		mock.ExpectExec(`INSERT INTO identities`).
			WithArgs("id-1", "a@x.com", "hash", false, nil, ident.CreatedAt).
			WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "identities_email_key"})

		err := store.Create(context.Background(), ident)
		require.Error(t, err)
		assert.ErrorIs(t, err, authcore.ErrIdentityExists)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("other failure", func(t *testing.T) {
		store, mock := newMockStore(t)
		mock.ExpectExec(`INSERT INTO identities`).
			WithArgs("id-1", "a@x.com", "hash", false, nil, ident.CreatedAt).
			WillReturnError(errors.New("disk full"))

		err := store.Create(context.Background(), ident)
		require.Error(t, err)
		assert.NotErrorIs(t, err, authcore.ErrIdentityExists)
		assert.Contains(t, err.Error(), "disk full")
	})
}

func TestStore_Persist(t *testing.T) {
	t.Run("writes confirmed and refresh token", func(t *testing.T) {
		store, mock := newMockStore(t)
		mock.ExpectExec(`UPDATE identities SET confirmed = confirmed OR`).
			WithArgs("a@x.com", true, "r2").
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))

		err := store.Persist(context.Background(), &authcore.Identity{Email: "a@x.com", Confirmed: true, RefreshToken: "r2"})
		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("missing identity", func(t *testing.T) {
		store, mock := newMockStore(t)
		mock.ExpectExec(`UPDATE identities SET confirmed`).
			WithArgs("a@x.com", false, nil).
			WillReturnResult(pgxmock.NewResult("UPDATE", 0))

		err := store.Persist(context.Background(), &authcore.Identity{Email: "a@x.com"})
		assert.ErrorIs(t, err, authcore.ErrIdentityNotFound)
	})
}

func TestStore_MarkConfirmed(t *testing.T) {
	tests := []struct {
		name    string
		setup   func(mock pgxmock.PgxPoolIface)
		want    bool
		wantErr error
	}{
		{
			name: "flips unconfirmed",
			setup: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectExec(`UPDATE identities SET confirmed = TRUE`).
					WithArgs("a@x.com").
					WillReturnResult(pgxmock.NewResult("UPDATE", 1))
			},
			want: true,
		},
		{
			name: "already confirmed",
			setup: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectExec(`UPDATE identities SET confirmed = TRUE`).
					WithArgs("a@x.com").
					WillReturnResult(pgxmock.NewResult("UPDATE", 0))
				mock.ExpectQuery(`SELECT EXISTS`).
					WithArgs("a@x.com").
					WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(true))
			},
			want: false,
		},
		{
			name: "missing identity",
			setup: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectExec(`UPDATE identities SET confirmed = TRUE`).
					WithArgs("a@x.com").
					WillReturnResult(pgxmock.NewResult("UPDATE", 0))
				mock.ExpectQuery(`SELECT EXISTS`).
					WithArgs("a@x.com").
					WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(false))
			},
			wantErr: authcore.ErrIdentityNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, mock := newMockStore(t)
			tt.setup(mock)

			got, err := store.MarkConfirmed(context.Background(), "a@x.com")
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
			}
			assert.Equal(t, tt.want, got)
			assert.NoError(t, mock.ExpectationsWereMet(), "unfulfilled expectations")
		})
	}
}

func TestStore_SwapRefreshToken(t *testing.T) {
	tests := []struct {
		name      string
		expected  string
		setupMock func(mock pgxmock.PgxPoolIface)
		want      bool
		wantIs    error
	}{
		{
			name:     "swapped",
			expected: "r1",
			setupMock: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectExec(`UPDATE identities SET refresh_token`).
					WithArgs("a@x.com", "r1", "r2").
					WillReturnResult(pgxmock.NewResult("UPDATE", 1))
			},
			want: true,
		},
		{
			name:     "stale expected value",
			expected: "r1",
			setupMock: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectExec(`UPDATE identities SET refresh_token`).
					WithArgs("a@x.com", "r1", "r2").
					WillReturnResult(pgxmock.NewResult("UPDATE", 0))
				mock.ExpectQuery(`SELECT EXISTS`).
					WithArgs("a@x.com").
					WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(true))
			},
			want: false,
		},
		{
			name:     "null expected value",
			expected: "",
			setupMock: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectExec(`UPDATE identities SET refresh_token`).
					WithArgs("a@x.com", nil, "r2").
					WillReturnResult(pgxmock.NewResult("UPDATE", 1))
			},
			want: true,
		},
		{
			name:     "identity gone",
			expected: "r1",
			setupMock: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectExec(`UPDATE identities SET refresh_token`).
					WithArgs("a@x.com", "r1", "r2").
					WillReturnResult(pgxmock.NewResult("UPDATE", 0))
				mock.ExpectQuery(`SELECT EXISTS`).
					WithArgs("a@x.com").
					WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(false))
			},
			wantIs: authcore.ErrIdentityNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, mock := newMockStore(t)
			tt.setupMock(mock)

			got, err := store.SwapRefreshToken(context.Background(), "a@x.com", tt.expected, "r2")
			if tt.wantIs != nil {
				assert.ErrorIs(t, err, tt.wantIs)
			} else {
				require.NoError(t, err)
			}
			assert.Equal(t, tt.want, got)
			assert.NoError(t, mock.ExpectationsWereMet(), "unfulfilled expectations")
		})
	}
}

func TestStore_DeleteAndUpdatePasswordHash(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectExec(`DELETE FROM identities`).
		WithArgs("a@x.com").
		WillReturnResult(pgxmock.NewResult("DELETE", 1))
	mock.ExpectExec(`DELETE FROM identities`).
		WithArgs("a@x.com").
		WillReturnResult(pgxmock.NewResult("DELETE", 0))
	mock.ExpectExec(`UPDATE identities SET password_hash`).
		WithArgs("a@x.com", "new-hash").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	ctx := context.Background()
	require.NoError(t, store.Delete(ctx, "a@x.com"))
	assert.ErrorIs(t, store.Delete(ctx, "a@x.com"), authcore.ErrIdentityNotFound)
	require.NoError(t, store.UpdatePasswordHash(ctx, "a@x.com", "new-hash"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

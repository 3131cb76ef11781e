package auth

import (
	"context"
	"errors"
	"log/slog"
	"regexp"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/go-pokedex-api/internal/api"
	"github.com/FACorreiaa/go-pokedex-api/internal/types"
)

var accountColumnNames = []string{
	"id", "username", "email", "password_hash", "role", "enabled", "display_name", "bio", "gender",
	"favorite_region", "language", "avatar", "country", "birth_date", "created_at", "updated_at",
}

func accountRow(id uuid.UUID, username, role string) *pgxmock.Rows {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	display := username
	region := "Kanto"
	return pgxmock.NewRows(accountColumnNames).AddRow(
		id, username, username+"@kanto.example", "$2a$04$hash", role, true,
		&display, nil, nil, &region, nil, nil, nil, nil, now, now,
	)
}

func TestPostgresCredentialStoreGetByUsername(t *testing.T) {
	id := uuid.New()

	tests := []struct {
		name      string
		setupMock func(mock pgxmock.PgxPoolIface)
		wantErr   error
	}{
		{
			name: "found",
			setupMock: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectQuery(`SELECT .* FROM users WHERE username = \$1`).
					WithArgs("ash").
					WillReturnRows(accountRow(id, "ash", "ADMIN"))
			},
		},
		{
			name: "absent",
			setupMock: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectQuery(`SELECT .* FROM users WHERE username = \$1`).
					WithArgs("ash").
					WillReturnRows(pgxmock.NewRows(accountColumnNames))
			},
			wantErr: api.ErrNotFound,
		},
		{
			name: "database error",
			setupMock: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectQuery(`SELECT .* FROM users WHERE username = \$1`).
					WithArgs("ash").
					WillReturnError(errors.New("connection refused"))
			},
			wantErr: api.ErrStorage,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock, err := pgxmock.NewPool()
			require.NoError(t, err)
			defer mock.Close()
			tt.setupMock(mock)

			store := NewPostgresCredentialStore(mock, slog.Default())
			account, err := store.GetByUsername(context.Background(), "ash")

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, account)
			} else {
				require.NoError(t, err)
				assert.Equal(t, id, account.ID)
				assert.Equal(t, types.RoleAdmin, account.Role)
				require.NotNil(t, account.FavoriteRegion)
				assert.Equal(t, "Kanto", *account.FavoriteRegion)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestPostgresCredentialStoreExists(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT EXISTS(SELECT 1 FROM users WHERE email = $1)`)).
		WithArgs("ash@x.io").
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(true))

	store := NewPostgresCredentialStore(mock, slog.Default())
	exists, err := store.ExistsByEmail(context.Background(), "ash@x.io")
	require.NoError(t, err)
	assert.True(t, exists)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresCredentialStoreCreate(t *testing.T) {
	newAccount := func() *types.Account {
		return &types.Account{Username: "ash", Email: "ash@x.io", PasswordHash: "h", Role: types.RoleUser, Enabled: true}
	}

	t.Run("fills generated fields", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		id := uuid.New()
		now := time.Now().UTC()
		mock.ExpectQuery(`INSERT INTO users`).
			WithArgs("ash", "ash@x.io", "h", "USER", true,
				pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
			WillReturnRows(pgxmock.NewRows([]string{"id", "created_at", "updated_at"}).AddRow(id, now, now))

		account := newAccount()
		require.NoError(t, NewPostgresCredentialStore(mock, slog.Default()).Create(context.Background(), account))
		assert.Equal(t, id, account.ID)
		assert.Equal(t, now, account.CreatedAt)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	for constraint, want := range map[string]error{
		"users_username_key": api.ErrDuplicateUsername,
		"users_email_key":    api.ErrDuplicateEmail,
	} {
		t.Run(constraint, func(t *testing.T) {
			mock, err := pgxmock.NewPool()
			require.NoError(t, err)
			defer mock.Close()

			mock.ExpectQuery(`INSERT INTO users`).
				WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: constraint})

			err = NewPostgresCredentialStore(mock, slog.Default()).Create(context.Background(), newAccount())
			assert.ErrorIs(t, err, want)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestPostgresCredentialStoreUpdate(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	id := uuid.New()
	bio := "gotta catch em all"
	mock.ExpectQuery(regexp.QuoteMeta(`UPDATE users SET bio = $1, updated_at = NOW() WHERE id = $2 RETURNING`)).
		WithArgs(bio, id).
		WillReturnRows(accountRow(id, "ash", "USER"))

	account, err := NewPostgresCredentialStore(mock, slog.Default()).
		Update(context.Background(), id, types.ProfileUpdateParams{Bio: &bio})
	require.NoError(t, err)
	assert.Equal(t, "ash", account.Username)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresCredentialStoreDelete(t *testing.T) {
	id := uuid.New()

	t.Run("removes favorites then account", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		mock.ExpectBegin()
		mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM favorites WHERE user_id = $1`)).
			WithArgs(id).
			WillReturnResult(pgxmock.NewResult("DELETE", 3))
		mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM users WHERE id = $1`)).
			WithArgs(id).
			WillReturnResult(pgxmock.NewResult("DELETE", 1))
		mock.ExpectCommit()

		require.NoError(t, NewPostgresCredentialStore(mock, slog.Default()).Delete(context.Background(), id))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("missing account rolls back", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		mock.ExpectBegin()
		mock.ExpectExec(`DELETE FROM favorites`).WithArgs(id).WillReturnResult(pgxmock.NewResult("DELETE", 0))
		mock.ExpectExec(`DELETE FROM users`).WithArgs(id).WillReturnResult(pgxmock.NewResult("DELETE", 0))
		mock.ExpectRollback()

		err = NewPostgresCredentialStore(mock, slog.Default()).Delete(context.Background(), id)
		assert.ErrorIs(t, err, api.ErrNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

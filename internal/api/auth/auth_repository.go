package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"

	database "github.com/FACorreiaa/go-pokedex-api/app/db"
	"github.com/FACorreiaa/go-pokedex-api/internal/api"
	"github.com/FACorreiaa/go-pokedex-api/internal/types"
)

var _ CredentialStore = (*PostgresCredentialStore)(nil)

// CredentialStore persists accounts. Lookups of absent rows return
// api.ErrNotFound; unique violations return the matching duplicate error.
type CredentialStore interface {
	GetByUsername(ctx context.Context, username string) (*types.Account, error)
	GetByEmail(ctx context.Context, email string) (*types.Account, error)
	ExistsByUsername(ctx context.Context, username string) (bool, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	Create(ctx context.Context, account *types.Account) error
	Update(ctx context.Context, id uuid.UUID, params types.ProfileUpdateParams) (*types.Account, error)
	// Delete removes the account and its favorites in one transaction.
	Delete(ctx context.Context, id uuid.UUID) error
}

type PostgresCredentialStore struct {
	logger *slog.Logger
	pgpool database.Pool
}

func NewPostgresCredentialStore(pgpool database.Pool, logger *slog.Logger) *PostgresCredentialStore {
	return &PostgresCredentialStore{
		logger: logger,
		pgpool: pgpool,
	}
}

const accountColumns = `id, username, email, password_hash, role, enabled, display_name, bio, gender,
	favorite_region, language, avatar, country, birth_date, created_at, updated_at`

func scanAccount(row pgx.Row) (*types.Account, error) {
	var a types.Account
	var role string
	err := row.Scan(
		&a.ID, &a.Username, &a.Email, &a.PasswordHash, &role, &a.Enabled,
		&a.DisplayName, &a.Bio, &a.Gender, &a.FavoriteRegion, &a.Language, &a.Avatar,
		&a.Country, &a.BirthDate, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	a.Role = types.Role(role)
	return &a, nil
}

func (r *PostgresCredentialStore) getBy(ctx context.Context, column, value string) (*types.Account, error) {
	ctx, span := otel.Tracer("CredentialStore").Start(ctx, "GetBy", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.sql.table", "users"),
		attribute.String("lookup.column", column),
	))
	defer span.End()

	l := r.logger.With(slog.String("method", "GetBy"), slog.String("column", column))

	query := fmt.Sprintf(`SELECT %s FROM users WHERE %s = $1`, accountColumns, column)
	account, err := scanAccount(r.pgpool.QueryRow(ctx, query, value))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			span.SetStatus(codes.Ok, "Account not found")
			return nil, fmt.Errorf("account: %w", api.ErrNotFound)
		}
		l.ErrorContext(ctx, "Failed to fetch account", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB query failed")
		return nil, api.StorageError("select account", err)
	}
	span.SetStatus(codes.Ok, "Account fetched")
	return account, nil
}

func (r *PostgresCredentialStore) GetByUsername(ctx context.Context, username string) (*types.Account, error) {
	return r.getBy(ctx, "username", username)
}

func (r *PostgresCredentialStore) GetByEmail(ctx context.Context, email string) (*types.Account, error) {
	return r.getBy(ctx, "email", email)
}

func (r *PostgresCredentialStore) exists(ctx context.Context, column, value string) (bool, error) {
	var exists bool
	query := fmt.Sprintf(`SELECT EXISTS(SELECT 1 FROM users WHERE %s = $1)`, column)
	if err := r.pgpool.QueryRow(ctx, query, value).Scan(&exists); err != nil {
		r.logger.ErrorContext(ctx, "Failed to check account existence",
			slog.String("column", column), slog.Any("error", err))
		return false, api.StorageError("check account exists", err)
	}
	return exists, nil
}

func (r *PostgresCredentialStore) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	return r.exists(ctx, "username", username)
}

func (r *PostgresCredentialStore) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	return r.exists(ctx, "email", email)
}

// Create inserts account and fills in its generated id and timestamps.
func (r *PostgresCredentialStore) Create(ctx context.Context, account *types.Account) error {
	ctx, span := otel.Tracer("CredentialStore").Start(ctx, "Create", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.sql.table", "users"),
	))
	defer span.End()

	l := r.logger.With(slog.String("method", "Create"), slog.String("username", account.Username))

	query := `
		INSERT INTO users (username, email, password_hash, role, enabled, display_name,
		                   favorite_region, language, country, birth_date)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id, created_at, updated_at`

	err := r.pgpool.QueryRow(ctx, query,
		account.Username, account.Email, account.PasswordHash, string(account.Role), account.Enabled,
		account.DisplayName, account.FavoriteRegion, account.Language, account.Country, account.BirthDate,
	).Scan(&account.ID, &account.CreatedAt, &account.UpdatedAt)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Insert failed")
		if database.IsUniqueViolation(err) {
			l.WarnContext(ctx, "Account insert hit a unique constraint", slog.String("constraint", database.ConstraintName(err)))
			return duplicateFor(err)
		}
		l.ErrorContext(ctx, "Failed to insert account", slog.Any("error", err))
		return api.StorageError("insert account", err)
	}

	l.InfoContext(ctx, "Account created", slog.String("id", account.ID.String()))
	span.SetStatus(codes.Ok, "Account created")
	return nil
}

func duplicateFor(err error) error {
	if strings.Contains(database.ConstraintName(err), "email") {
		return api.ErrDuplicateEmail
	}
	return api.ErrDuplicateUsername
}

// Update applies the non-nil fields of params and returns the stored row.
func (r *PostgresCredentialStore) Update(ctx context.Context, id uuid.UUID, params types.ProfileUpdateParams) (*types.Account, error) {
	ctx, span := otel.Tracer("CredentialStore").Start(ctx, "Update", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.sql.table", "users"),
		attribute.String("db.user.id", id.String()),
	))
	defer span.End()

	l := r.logger.With(slog.String("method", "Update"), slog.String("userID", id.String()))

	var setClauses []string
	var args []interface{}
	argID := 1

	addClause := func(column string, value *string) {
		if value == nil {
			return
		}
		setClauses = append(setClauses, fmt.Sprintf("%s = $%d", column, argID))
		args = append(args, *value)
		argID++
	}
	addClause("username", params.Username)
	addClause("display_name", params.DisplayName)
	addClause("bio", params.Bio)
	addClause("gender", params.Gender)
	addClause("favorite_region", params.FavoriteRegion)
	addClause("language", params.Language)
	addClause("avatar", params.Avatar)

	setClauses = append(setClauses, "updated_at = NOW()")
	span.SetAttributes(attribute.Int("update.fields_count", len(setClauses)-1))

	query := fmt.Sprintf("UPDATE users SET %s WHERE id = $%d RETURNING %s",
		strings.Join(setClauses, ", "), argID, accountColumns)
	args = append(args, id)

	account, err := scanAccount(r.pgpool.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			span.SetStatus(codes.Error, "Account not found")
			return nil, fmt.Errorf("account %s: %w", id, api.ErrNotFound)
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "Update failed")
		if database.IsUniqueViolation(err) {
			return nil, duplicateFor(err)
		}
		l.ErrorContext(ctx, "Failed to update account", slog.Any("error", err))
		return nil, api.StorageError("update account", err)
	}

	l.InfoContext(ctx, "Account updated")
	span.SetStatus(codes.Ok, "Account updated")
	return account, nil
}

func (r *PostgresCredentialStore) Delete(ctx context.Context, id uuid.UUID) error {
	ctx, span := otel.Tracer("CredentialStore").Start(ctx, "Delete", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.sql.table", "users, favorites"),
		attribute.String("db.user.id", id.String()),
	))
	defer span.End()

	l := r.logger.With(slog.String("method", "Delete"), slog.String("userID", id.String()))

	tx, err := r.pgpool.Begin(ctx)
	if err != nil {
		span.RecordError(err)
		return api.StorageError("begin delete account", err)
	}
	defer tx.Rollback(ctx)

	if _, err = tx.Exec(ctx, `DELETE FROM favorites WHERE user_id = $1`, id); err != nil {
		l.ErrorContext(ctx, "Failed to delete favorites", slog.Any("error", err))
		span.RecordError(err)
		return api.StorageError("delete favorites", err)
	}

	tag, err := tx.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		l.ErrorContext(ctx, "Failed to delete account", slog.Any("error", err))
		span.RecordError(err)
		return api.StorageError("delete account", err)
	}
	if tag.RowsAffected() == 0 {
		span.SetStatus(codes.Error, "Account not found")
		return fmt.Errorf("account %s: %w", id, api.ErrNotFound)
	}

	if err = tx.Commit(ctx); err != nil {
		span.RecordError(err)
		return api.StorageError("commit delete account", err)
	}

	l.InfoContext(ctx, "Account deleted")
	span.SetStatus(codes.Ok, "Account deleted")
	return nil
}

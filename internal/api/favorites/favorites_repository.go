package favorites

import (
	"context"
	"fmt"
	"log/slog"

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

var _ Repository = (*PostgresRepository)(nil)

// Repository stores favorites per account, addressed by username. Favorites
// reference creatures by Pokédex number, not by id.
type Repository interface {
	List(ctx context.Context, username string) ([]types.Favorite, error)
	Add(ctx context.Context, username string, number int) error
	Remove(ctx context.Context, username string, number int) (bool, error)
	Exists(ctx context.Context, username string, number int) (bool, error)
}

type PostgresRepository struct {
	logger *slog.Logger
	pgpool database.Querier
}

func NewPostgresRepository(pgpool database.Querier, logger *slog.Logger) *PostgresRepository {
	return &PostgresRepository{
		logger: logger,
		pgpool: pgpool,
	}
}

func startSpan(ctx context.Context, name, username string) (context.Context, trace.Span) {
	return otel.Tracer("FavoritesRepository").Start(ctx, name, trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.sql.table", "favorites"),
		attribute.String("user.username", username),
	))
}

// List returns the account's favorites, newest first.
func (r *PostgresRepository) List(ctx context.Context, username string) ([]types.Favorite, error) {
	ctx, span := startSpan(ctx, "List", username)
	defer span.End()

	rows, err := r.pgpool.Query(ctx, `
		SELECT f.creature_number, f.added_at
		FROM favorites f
		JOIN users u ON u.id = f.user_id
		WHERE u.username = $1
		ORDER BY f.added_at DESC, f.id DESC`, username)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to list favorites", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB query failed")
		return nil, api.StorageError("list favorites", err)
	}

	favs, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (types.Favorite, error) {
		var f types.Favorite
		err := row.Scan(&f.CreatureNumber, &f.AddedAt)
		return f, err
	})
	if err != nil {
		span.RecordError(err)
		return nil, api.StorageError("scan favorites", err)
	}

	span.SetStatus(codes.Ok, "Favorites listed")
	return favs, nil
}

func (r *PostgresRepository) Add(ctx context.Context, username string, number int) error {
	ctx, span := startSpan(ctx, "Add", username)
	defer span.End()

	tag, err := r.pgpool.Exec(ctx, `
		INSERT INTO favorites (user_id, creature_number)
		SELECT id, $2 FROM users WHERE username = $1`, username, number)
	if err != nil {
		span.RecordError(err)
		if database.IsUniqueViolation(err) {
			span.SetStatus(codes.Error, "Already favorite")
			return api.ErrAlreadyFavorite
		}
		r.logger.ErrorContext(ctx, "Failed to add favorite", slog.Int("number", number), slog.Any("error", err))
		span.SetStatus(codes.Error, "Insert failed")
		return api.StorageError("insert favorite", err)
	}
	if tag.RowsAffected() == 0 {
		span.SetStatus(codes.Error, "Account not found")
		return fmt.Errorf("account %s: %w", username, api.ErrNotFound)
	}

	span.SetStatus(codes.Ok, "Favorite added")
	return nil
}

// Remove reports whether a favorite was deleted.
func (r *PostgresRepository) Remove(ctx context.Context, username string, number int) (bool, error) {
	ctx, span := startSpan(ctx, "Remove", username)
	defer span.End()

	tag, err := r.pgpool.Exec(ctx, `
		DELETE FROM favorites f
		USING users u
		WHERE f.user_id = u.id AND u.username = $1 AND f.creature_number = $2`, username, number)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to remove favorite", slog.Int("number", number), slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Delete failed")
		return false, api.StorageError("delete favorite", err)
	}

	span.SetStatus(codes.Ok, "Favorite removed")
	return tag.RowsAffected() > 0, nil
}

func (r *PostgresRepository) Exists(ctx context.Context, username string, number int) (bool, error) {
	var exists bool
	err := r.pgpool.QueryRow(ctx, `
		SELECT EXISTS(
			SELECT 1 FROM favorites f
			JOIN users u ON u.id = f.user_id
			WHERE u.username = $1 AND f.creature_number = $2
		)`, username, number).Scan(&exists)
	if err != nil {
		return false, api.StorageError("check favorite", err)
	}
	return exists, nil
}

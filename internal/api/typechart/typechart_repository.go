package typechart

import (
	"context"
	"errors"
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

// Repository reads the seeded type catalog. Types are never written at runtime.
type Repository interface {
	All(ctx context.Context) ([]types.CreatureType, error)
	GetByID(ctx context.Context, id int) (*types.CreatureType, error)
	GetByName(ctx context.Context, name string) (*types.CreatureType, error)
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

func (r *PostgresRepository) All(ctx context.Context) ([]types.CreatureType, error) {
	ctx, span := otel.Tracer("TypeRepository").Start(ctx, "All", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.sql.table", "types"),
	))
	defer span.End()

	rows, err := r.pgpool.Query(ctx, `SELECT id, name, icon, color FROM types ORDER BY id`)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to list types", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB query failed")
		return nil, api.StorageError("list types", err)
	}

	list, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (types.CreatureType, error) {
		var t types.CreatureType
		err := row.Scan(&t.ID, &t.Name, &t.Icon, &t.Color)
		return t, err
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Scan failed")
		return nil, api.StorageError("scan types", err)
	}

	span.SetAttributes(attribute.Int("results.count", len(list)))
	span.SetStatus(codes.Ok, "Types listed")
	return list, nil
}

func (r *PostgresRepository) getOne(ctx context.Context, where string, arg any) (*types.CreatureType, error) {
	ctx, span := otel.Tracer("TypeRepository").Start(ctx, "GetOne", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.sql.table", "types"),
	))
	defer span.End()

	var t types.CreatureType
	query := fmt.Sprintf(`SELECT id, name, icon, color FROM types WHERE %s`, where)
	err := r.pgpool.QueryRow(ctx, query, arg).Scan(&t.ID, &t.Name, &t.Icon, &t.Color)
	if errors.Is(err, pgx.ErrNoRows) {
		span.SetStatus(codes.Error, "Type not found")
		return nil, fmt.Errorf("type %v: %w", arg, api.ErrNotFound)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB query failed")
		return nil, api.StorageError("select type", err)
	}
	span.SetStatus(codes.Ok, "Type fetched")
	return &t, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id int) (*types.CreatureType, error) {
	return r.getOne(ctx, "id = $1", id)
}

// GetByName ignores case, so "fire" finds "Fire".
func (r *PostgresRepository) GetByName(ctx context.Context, name string) (*types.CreatureType, error) {
	return r.getOne(ctx, "lower(name) = lower($1)", name)
}

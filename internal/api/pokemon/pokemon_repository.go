package pokemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

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

var _ AggregateRepository = (*PostgresAggregateRepository)(nil)

// AggregateRepository owns every write to a creature and its dependents
// (type links, stats, evolution edges). Each mutation runs in a single
// transaction; a failed step leaves no trace.
type AggregateRepository interface {
	Create(ctx context.Context, params types.CreateCreatureParams) (int, error)
	Update(ctx context.Context, id int, params types.UpdateCreatureParams) error
	Delete(ctx context.Context, id int) error
	AddEvolution(ctx context.Context, originID int, params types.AddEvolutionParams) (*types.Evolution, error)
	SetImageURL(ctx context.Context, id int, url *string) error

	View(ctx context.Context, id int) (*types.CreatureView, error)
	ViewByNumber(ctx context.Context, number int) (*types.CreatureView, error)
	List(ctx context.Context) ([]types.CreatureView, error)
	SearchByName(ctx context.Context, fragment string) ([]types.CreatureView, error)
	ListByGeneration(ctx context.Context, generation int) ([]types.CreatureView, error)
	ListByType(ctx context.Context, typeName string) ([]types.CreatureView, error)
	ExistsByNumber(ctx context.Context, number int) (bool, error)
}

type PostgresAggregateRepository struct {
	logger *slog.Logger
	pgpool database.Pool
}

func NewPostgresAggregateRepository(pgpool database.Pool, logger *slog.Logger) *PostgresAggregateRepository {
	return &PostgresAggregateRepository{
		logger: logger,
		pgpool: pgpool,
	}
}

const (
	minGeneration = 1
	maxGeneration = 9
	minTypes      = 1
	maxTypes      = 2
)

func validGeneration(g int) bool { return g >= minGeneration && g <= maxGeneration }

func (r *PostgresAggregateRepository) startSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	attrs = append(attrs, semconv.DBSystemPostgreSQL, attribute.String("db.sql.table", "creatures"))
	return otel.Tracer("AggregateRepository").Start(ctx, name, trace.WithAttributes(attrs...))
}

func fail(span trace.Span, err error, msg string) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, msg)
	return err
}

// observe feeds the query metrics. Domain rejections are not query errors.
func observe(ctx context.Context, op string, start time.Time, err error) {
	if !errors.Is(err, api.ErrStorage) {
		err = nil
	}
	database.ObserveQuery(ctx, op, start, err)
}

func numberTaken(ctx context.Context, q database.Querier, number int) (bool, error) {
	var taken bool
	err := q.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM creatures WHERE number = $1)`, number).Scan(&taken)
	if err != nil {
		return false, api.StorageError("check creature number", err)
	}
	return taken, nil
}

// resolveTypes checks the count and maps names to ids, keeping input order.
func resolveTypes(ctx context.Context, q database.Querier, names []string) ([]int, error) {
	if len(names) < minTypes || len(names) > maxTypes {
		return nil, api.ErrInvalidTypeCount
	}
	if len(names) == 2 && strings.EqualFold(names[0], names[1]) {
		return nil, fmt.Errorf("%w: types must be distinct", api.ErrInvalidTypeCount)
	}

	rows, err := q.Query(ctx, `SELECT id, name FROM types WHERE name = ANY($1)`, names)
	if err != nil {
		return nil, api.StorageError("resolve types", err)
	}
	defer rows.Close()

	byName := make(map[string]int, len(names))
	for rows.Next() {
		var id int
		var name string
		if err = rows.Scan(&id, &name); err != nil {
			return nil, api.StorageError("scan type", err)
		}
		byName[name] = id
	}
	if err = rows.Err(); err != nil {
		return nil, api.StorageError("read types", err)
	}

	ids := make([]int, 0, len(names))
	for _, name := range names {
		id, ok := byName[name]
		if !ok {
			return nil, fmt.Errorf("%w: %q", api.ErrUnknownType, name)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func validateStats(s *types.Stats) error {
	if s != nil && !s.Valid() {
		return api.ErrInvalidStat
	}
	return nil
}

func linkTypes(ctx context.Context, q database.Querier, creatureID int, typeIDs []int) error {
	for i, typeID := range typeIDs {
		_, err := q.Exec(ctx,
			`INSERT INTO creature_types (creature_id, type_id, slot) VALUES ($1, $2, $3)`,
			creatureID, typeID, i+1)
		if err != nil {
			return api.StorageError("link type", err)
		}
	}
	return nil
}

func upsertStats(ctx context.Context, q database.Querier, creatureID int, s types.Stats) error {
	_, err := q.Exec(ctx, `
		INSERT INTO stats (creature_id, hp, attack, defense, speed, special_attack, special_defense)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (creature_id) DO UPDATE SET
			hp = EXCLUDED.hp,
			attack = EXCLUDED.attack,
			defense = EXCLUDED.defense,
			speed = EXCLUDED.speed,
			special_attack = EXCLUDED.special_attack,
			special_defense = EXCLUDED.special_defense`,
		creatureID, s.HP, s.Attack, s.Defense, s.Speed, s.SpecialAttack, s.SpecialDefense)
	if err != nil {
		return api.StorageError("upsert stats", err)
	}
	return nil
}

// lockCreature takes a row lock so concurrent mutations of the same id serialize.
func lockCreature(ctx context.Context, tx pgx.Tx, id int) (number int, err error) {
	err = tx.QueryRow(ctx, `SELECT number FROM creatures WHERE id = $1 FOR UPDATE`, id).Scan(&number)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, fmt.Errorf("creature %d: %w", id, api.ErrNotFound)
	}
	if err != nil {
		return 0, api.StorageError("lock creature", err)
	}
	return number, nil
}

// Create validates in this order: number uniqueness, type count, generation,
// type existence, stat ranges. Nothing is written unless all of them pass.
func (r *PostgresAggregateRepository) Create(ctx context.Context, params types.CreateCreatureParams) (id int, err error) {
	ctx, span := r.startSpan(ctx, "Create", attribute.Int("creature.number", params.Number))
	defer span.End()

	l := r.logger.With(slog.String("method", "Create"), slog.Int("number", params.Number))
	start := time.Now()
	defer func() { observe(ctx, "create_creature", start, err) }()

	tx, err := r.pgpool.Begin(ctx)
	if err != nil {
		return 0, fail(span, api.StorageError("begin create creature", err), "Begin failed")
	}
	defer tx.Rollback(ctx)

	taken, err := numberTaken(ctx, tx, params.Number)
	if err != nil {
		return 0, fail(span, err, "Number check failed")
	}
	if taken {
		return 0, fail(span, api.ErrDuplicateNumber, "Duplicate number")
	}
	if len(params.Types) < minTypes || len(params.Types) > maxTypes {
		return 0, fail(span, api.ErrInvalidTypeCount, "Invalid type count")
	}
	if !validGeneration(params.Generation) {
		return 0, fail(span, api.ErrInvalidGeneration, "Invalid generation")
	}
	typeIDs, err := resolveTypes(ctx, tx, params.Types)
	if err != nil {
		return 0, fail(span, err, "Type resolution failed")
	}
	if err = validateStats(params.Stats); err != nil {
		return 0, fail(span, err, "Invalid stats")
	}

	err = tx.QueryRow(ctx, `
		INSERT INTO creatures (number, name, height, weight, description, generation)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`,
		params.Number, params.Name, params.Height, params.Weight, params.Description, params.Generation,
	).Scan(&id)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return 0, fail(span, api.ErrDuplicateNumber, "Duplicate number")
		}
		l.ErrorContext(ctx, "Failed to insert creature", slog.Any("error", err))
		return 0, fail(span, api.StorageError("insert creature", err), "Insert failed")
	}

	if err = linkTypes(ctx, tx, id, typeIDs); err != nil {
		return 0, fail(span, err, "Type link failed")
	}
	if params.Stats != nil {
		if err = upsertStats(ctx, tx, id, *params.Stats); err != nil {
			return 0, fail(span, err, "Stats insert failed")
		}
	}

	if err = tx.Commit(ctx); err != nil {
		return 0, fail(span, api.StorageError("commit create creature", err), "Commit failed")
	}

	l.InfoContext(ctx, "Creature created", slog.Int("id", id))
	span.SetAttributes(attribute.Int("creature.id", id))
	span.SetStatus(codes.Ok, "Creature created")
	return id, nil
}

// Update applies a patch. A non-nil Types replaces every type link; a non-nil
// Stats overwrites or creates the stats row.
func (r *PostgresAggregateRepository) Update(ctx context.Context, id int, params types.UpdateCreatureParams) (err error) {
	ctx, span := r.startSpan(ctx, "Update", attribute.Int("creature.id", id))
	defer span.End()

	l := r.logger.With(slog.String("method", "Update"), slog.Int("id", id))
	start := time.Now()
	defer func() { observe(ctx, "update_creature", start, err) }()

	tx, err := r.pgpool.Begin(ctx)
	if err != nil {
		return fail(span, api.StorageError("begin update creature", err), "Begin failed")
	}
	defer tx.Rollback(ctx)

	currentNumber, err := lockCreature(ctx, tx, id)
	if err != nil {
		return fail(span, err, "Lock failed")
	}

	if params.Number != nil && *params.Number != currentNumber {
		taken, err := numberTaken(ctx, tx, *params.Number)
		if err != nil {
			return fail(span, err, "Number check failed")
		}
		if taken {
			return fail(span, api.ErrDuplicateNumber, "Duplicate number")
		}
	}
	if params.Generation != nil && !validGeneration(*params.Generation) {
		return fail(span, api.ErrInvalidGeneration, "Invalid generation")
	}
	var typeIDs []int
	if params.Types != nil {
		if typeIDs, err = resolveTypes(ctx, tx, *params.Types); err != nil {
			return fail(span, err, "Type resolution failed")
		}
	}
	if err = validateStats(params.Stats); err != nil {
		return fail(span, err, "Invalid stats")
	}

	var setClauses []string
	var args []interface{}
	argID := 1
	set := func(column string, value interface{}) {
		setClauses = append(setClauses, fmt.Sprintf("%s = $%d", column, argID))
		args = append(args, value)
		argID++
	}
	if params.Number != nil {
		set("number", *params.Number)
	}
	if params.Name != nil {
		set("name", *params.Name)
	}
	if params.Height != nil {
		set("height", *params.Height)
	}
	if params.Weight != nil {
		set("weight", *params.Weight)
	}
	if params.Description != nil {
		set("description", *params.Description)
	}
	if params.Generation != nil {
		set("generation", *params.Generation)
	}

	if len(setClauses) > 0 {
		query := fmt.Sprintf("UPDATE creatures SET %s WHERE id = $%d", strings.Join(setClauses, ", "), argID)
		args = append(args, id)
		if _, err = tx.Exec(ctx, query, args...); err != nil {
			if database.IsUniqueViolation(err) {
				return fail(span, api.ErrDuplicateNumber, "Duplicate number")
			}
			l.ErrorContext(ctx, "Failed to update creature", slog.Any("error", err))
			return fail(span, api.StorageError("update creature", err), "Update failed")
		}
	}

	if params.Types != nil {
		if _, err = tx.Exec(ctx, `DELETE FROM creature_types WHERE creature_id = $1`, id); err != nil {
			return fail(span, api.StorageError("clear type links", err), "Type clear failed")
		}
		if err = linkTypes(ctx, tx, id, typeIDs); err != nil {
			return fail(span, err, "Type link failed")
		}
	}
	if params.Stats != nil {
		if err = upsertStats(ctx, tx, id, *params.Stats); err != nil {
			return fail(span, err, "Stats upsert failed")
		}
	}

	if err = tx.Commit(ctx); err != nil {
		return fail(span, api.StorageError("commit update creature", err), "Commit failed")
	}

	l.InfoContext(ctx, "Creature updated", slog.Int("fields", len(setClauses)))
	span.SetStatus(codes.Ok, "Creature updated")
	return nil
}

// Delete removes every evolution edge touching the creature, then its stats,
// type links and finally the creature row.
func (r *PostgresAggregateRepository) Delete(ctx context.Context, id int) (err error) {
	ctx, span := r.startSpan(ctx, "Delete", attribute.Int("creature.id", id))
	defer span.End()

	l := r.logger.With(slog.String("method", "Delete"), slog.Int("id", id))
	start := time.Now()
	defer func() { observe(ctx, "delete_creature", start, err) }()

	tx, err := r.pgpool.Begin(ctx)
	if err != nil {
		return fail(span, api.StorageError("begin delete creature", err), "Begin failed")
	}
	defer tx.Rollback(ctx)

	if _, err = lockCreature(ctx, tx, id); err != nil {
		return fail(span, err, "Lock failed")
	}

	rows, err := tx.Query(ctx, `SELECT id FROM evolutions WHERE origin_id = $1 OR destination_id = $1`, id)
	if err != nil {
		return fail(span, api.StorageError("collect evolutions", err), "Evolution lookup failed")
	}
	edgeIDs, err := pgx.CollectRows(rows, pgx.RowTo[int])
	if err != nil {
		return fail(span, api.StorageError("scan evolutions", err), "Evolution scan failed")
	}

	if len(edgeIDs) > 0 {
		if _, err = tx.Exec(ctx, `DELETE FROM evolutions WHERE id = ANY($1)`, edgeIDs); err != nil {
			return fail(span, api.StorageError("delete evolutions", err), "Evolution delete failed")
		}
	}
	if _, err = tx.Exec(ctx, `DELETE FROM stats WHERE creature_id = $1`, id); err != nil {
		return fail(span, api.StorageError("delete stats", err), "Stats delete failed")
	}
	if _, err = tx.Exec(ctx, `DELETE FROM creature_types WHERE creature_id = $1`, id); err != nil {
		return fail(span, api.StorageError("delete type links", err), "Type link delete failed")
	}
	if _, err = tx.Exec(ctx, `DELETE FROM creatures WHERE id = $1`, id); err != nil {
		return fail(span, api.StorageError("delete creature", err), "Creature delete failed")
	}

	if err = tx.Commit(ctx); err != nil {
		return fail(span, api.StorageError("commit delete creature", err), "Commit failed")
	}

	l.InfoContext(ctx, "Creature deleted", slog.Int("evolutions_removed", len(edgeIDs)))
	span.SetStatus(codes.Ok, "Creature deleted")
	return nil
}

// AddEvolution records an origin -> destination edge. Longer cycles are allowed.
func (r *PostgresAggregateRepository) AddEvolution(ctx context.Context, originID int, params types.AddEvolutionParams) (evo *types.Evolution, err error) {
	ctx, span := r.startSpan(ctx, "AddEvolution",
		attribute.Int("evolution.origin", originID),
		attribute.Int("evolution.destination", params.DestinationID))
	defer span.End()

	start := time.Now()
	defer func() { observe(ctx, "add_evolution", start, err) }()

	if originID == params.DestinationID {
		return nil, fail(span, api.ErrSelfEvolution, "Self evolution")
	}

	tx, err := r.pgpool.Begin(ctx)
	if err != nil {
		return nil, fail(span, api.StorageError("begin add evolution", err), "Begin failed")
	}
	defer tx.Rollback(ctx)

	// share locks keep both endpoints alive until the edge is committed
	rows, err := tx.Query(ctx, `SELECT id FROM creatures WHERE id = ANY($1) FOR SHARE`, []int{originID, params.DestinationID})
	if err != nil {
		return nil, fail(span, api.StorageError("lock evolution endpoints", err), "Endpoint lookup failed")
	}
	found, err := pgx.CollectRows(rows, pgx.RowTo[int])
	if err != nil {
		return nil, fail(span, api.StorageError("scan evolution endpoints", err), "Endpoint scan failed")
	}
	if len(found) != 2 {
		return nil, fail(span, fmt.Errorf("evolution endpoint: %w", api.ErrNotFound), "Endpoint missing")
	}

	evo = &types.Evolution{
		OriginID:      originID,
		DestinationID: params.DestinationID,
		Level:         params.Level,
		Method:        params.Method,
	}
	err = tx.QueryRow(ctx, `
		INSERT INTO evolutions (origin_id, destination_id, level, method)
		VALUES ($1, $2, $3, $4)
		RETURNING id`,
		originID, params.DestinationID, params.Level, params.Method,
	).Scan(&evo.ID)
	if err != nil {
		return nil, fail(span, api.StorageError("insert evolution", err), "Insert failed")
	}

	if err = tx.Commit(ctx); err != nil {
		return nil, fail(span, api.StorageError("commit add evolution", err), "Commit failed")
	}

	r.logger.InfoContext(ctx, "Evolution added", slog.Int("id", evo.ID),
		slog.Int("origin", originID), slog.Int("destination", params.DestinationID))
	span.SetStatus(codes.Ok, "Evolution added")
	return evo, nil
}

func (r *PostgresAggregateRepository) SetImageURL(ctx context.Context, id int, url *string) (err error) {
	ctx, span := r.startSpan(ctx, "SetImageURL", attribute.Int("creature.id", id))
	defer span.End()

	start := time.Now()
	defer func() { observe(ctx, "set_image_url", start, err) }()

	tag, err := r.pgpool.Exec(ctx, `UPDATE creatures SET image_url = $1 WHERE id = $2`, url, id)
	if err != nil {
		return fail(span, api.StorageError("set image url", err), "Update failed")
	}
	if tag.RowsAffected() == 0 {
		return fail(span, fmt.Errorf("creature %d: %w", id, api.ErrNotFound), "Creature not found")
	}
	span.SetStatus(codes.Ok, "Image url set")
	return nil
}

func (r *PostgresAggregateRepository) ExistsByNumber(ctx context.Context, number int) (bool, error) {
	return numberTaken(ctx, r.pgpool, number)
}

package pokemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/FACorreiaa/go-pokedex-api/internal/api"
	"github.com/FACorreiaa/go-pokedex-api/internal/types"
)

const creatureColumns = `c.id, c.number, c.name, c.height, c.weight, c.description, c.image_url, c.generation`

func scanCreature(row pgx.Row) (types.Creature, error) {
	var c types.Creature
	err := row.Scan(&c.ID, &c.Number, &c.Name, &c.Height, &c.Weight, &c.Description, &c.ImageURL, &c.Generation)
	return c, err
}

func (r *PostgresAggregateRepository) viewOne(ctx context.Context, op string, where string, arg int) (view *types.CreatureView, err error) {
	ctx, span := r.startSpan(ctx, op)
	defer span.End()

	start := time.Now()
	defer func() { observe(ctx, "view_creature", start, err) }()

	query := fmt.Sprintf(`SELECT %s FROM creatures c WHERE %s = $1`, creatureColumns, where)
	c, err := scanCreature(r.pgpool.QueryRow(ctx, query, arg))
	if errors.Is(err, pgx.ErrNoRows) {
		span.SetStatus(codes.Error, "Creature not found")
		return nil, fmt.Errorf("creature %s %d: %w", where, arg, api.ErrNotFound)
	}
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to fetch creature", slog.String("by", where), slog.Any("error", err))
		return nil, fail(span, api.StorageError("select creature", err), "Query failed")
	}

	views, err := r.assemble(ctx, []types.Creature{c})
	if err != nil {
		return nil, fail(span, err, "Assembly failed")
	}
	span.SetStatus(codes.Ok, "Creature viewed")
	return &views[0], nil
}

// View returns the creature with its types in slot order, its stats with
// their total and its outgoing evolutions.
func (r *PostgresAggregateRepository) View(ctx context.Context, id int) (*types.CreatureView, error) {
	return r.viewOne(ctx, "View", "c.id", id)
}

func (r *PostgresAggregateRepository) ViewByNumber(ctx context.Context, number int) (*types.CreatureView, error) {
	return r.viewOne(ctx, "ViewByNumber", "c.number", number)
}

func (r *PostgresAggregateRepository) list(ctx context.Context, op string, query string, args ...interface{}) (views []types.CreatureView, err error) {
	ctx, span := r.startSpan(ctx, op)
	defer span.End()

	start := time.Now()
	defer func() { observe(ctx, "list_creatures", start, err) }()

	rows, err := r.pgpool.Query(ctx, query, args...)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to list creatures", slog.String("op", op), slog.Any("error", err))
		return nil, fail(span, api.StorageError("list creatures", err), "Query failed")
	}
	defer rows.Close()

	var creatures []types.Creature
	for rows.Next() {
		c, err := scanCreature(rows)
		if err != nil {
			return nil, fail(span, api.StorageError("scan creature", err), "Scan failed")
		}
		creatures = append(creatures, c)
	}
	if err = rows.Err(); err != nil {
		return nil, fail(span, api.StorageError("read creatures", err), "Rows failed")
	}
	rows.Close()

	views, err = r.assemble(ctx, creatures)
	if err != nil {
		return nil, fail(span, err, "Assembly failed")
	}
	span.SetAttributes(attribute.Int("results.count", len(views)))
	span.SetStatus(codes.Ok, "Creatures listed")
	return views, nil
}

func (r *PostgresAggregateRepository) List(ctx context.Context) ([]types.CreatureView, error) {
	return r.list(ctx, "List",
		fmt.Sprintf(`SELECT %s FROM creatures c ORDER BY c.number`, creatureColumns))
}

// SearchByName matches a case-insensitive name fragment. The fragment is
// compared literally, so % and _ carry no pattern meaning.
func (r *PostgresAggregateRepository) SearchByName(ctx context.Context, fragment string) ([]types.CreatureView, error) {
	return r.list(ctx, "SearchByName",
		fmt.Sprintf(`SELECT %s FROM creatures c WHERE strpos(lower(c.name), lower($1)) > 0 ORDER BY c.number`, creatureColumns),
		fragment)
}

func (r *PostgresAggregateRepository) ListByGeneration(ctx context.Context, generation int) ([]types.CreatureView, error) {
	return r.list(ctx, "ListByGeneration",
		fmt.Sprintf(`SELECT %s FROM creatures c WHERE c.generation = $1 ORDER BY c.number`, creatureColumns),
		generation)
}

func (r *PostgresAggregateRepository) ListByType(ctx context.Context, typeName string) ([]types.CreatureView, error) {
	return r.list(ctx, "ListByType",
		fmt.Sprintf(`SELECT %s FROM creatures c
		WHERE c.id IN (
			SELECT ct.creature_id FROM creature_types ct
			JOIN types t ON t.id = ct.type_id
			WHERE lower(t.name) = lower($1)
		)
		ORDER BY c.number`, creatureColumns),
		typeName)
}

// assemble loads types, stats and outgoing evolutions for a batch of
// creatures with one query each.
func (r *PostgresAggregateRepository) assemble(ctx context.Context, creatures []types.Creature) ([]types.CreatureView, error) {
	views := make([]types.CreatureView, len(creatures))
	if len(creatures) == 0 {
		return views, nil
	}

	ids := make([]int, len(creatures))
	index := make(map[int]int, len(creatures))
	for i, c := range creatures {
		ids[i] = c.ID
		index[c.ID] = i
		views[i] = types.CreatureView{
			Creature:   c,
			Types:      []string{},
			Evolutions: []types.EvolutionView{},
		}
	}

	if err := r.loadTypes(ctx, ids, views, index); err != nil {
		return nil, err
	}
	if err := r.loadStats(ctx, ids, views, index); err != nil {
		return nil, err
	}
	if err := r.loadEvolutions(ctx, ids, views, index); err != nil {
		return nil, err
	}
	return views, nil
}

func (r *PostgresAggregateRepository) loadTypes(ctx context.Context, ids []int, views []types.CreatureView, index map[int]int) error {
	rows, err := r.pgpool.Query(ctx, `
		SELECT ct.creature_id, t.name
		FROM creature_types ct
		JOIN types t ON t.id = ct.type_id
		WHERE ct.creature_id = ANY($1)
		ORDER BY ct.creature_id, ct.slot`, ids)
	if err != nil {
		return api.StorageError("load creature types", err)
	}
	defer rows.Close()

	for rows.Next() {
		var creatureID int
		var name string
		if err = rows.Scan(&creatureID, &name); err != nil {
			return api.StorageError("scan creature type", err)
		}
		if i, ok := index[creatureID]; ok {
			views[i].Types = append(views[i].Types, name)
		}
	}
	if err = rows.Err(); err != nil {
		return api.StorageError("read creature types", err)
	}
	return nil
}

func (r *PostgresAggregateRepository) loadStats(ctx context.Context, ids []int, views []types.CreatureView, index map[int]int) error {
	rows, err := r.pgpool.Query(ctx, `
		SELECT creature_id, hp, attack, defense, speed, special_attack, special_defense
		FROM stats
		WHERE creature_id = ANY($1)`, ids)
	if err != nil {
		return api.StorageError("load stats", err)
	}
	defer rows.Close()

	for rows.Next() {
		var creatureID int
		var s types.Stats
		if err = rows.Scan(&creatureID, &s.HP, &s.Attack, &s.Defense, &s.Speed, &s.SpecialAttack, &s.SpecialDefense); err != nil {
			return api.StorageError("scan stats", err)
		}
		if i, ok := index[creatureID]; ok {
			views[i].Stats = &types.StatsView{Stats: s, Total: s.Total()}
		}
	}
	if err = rows.Err(); err != nil {
		return api.StorageError("read stats", err)
	}
	return nil
}

// loadEvolutions attaches each edge to its origin only; the destination's
// view does not list it.
func (r *PostgresAggregateRepository) loadEvolutions(ctx context.Context, ids []int, views []types.CreatureView, index map[int]int) error {
	rows, err := r.pgpool.Query(ctx, `
		SELECT e.id, e.origin_id, o.name, d.name, e.level, e.method
		FROM evolutions e
		JOIN creatures o ON o.id = e.origin_id
		JOIN creatures d ON d.id = e.destination_id
		WHERE e.origin_id = ANY($1)
		ORDER BY e.origin_id, e.id`, ids)
	if err != nil {
		return api.StorageError("load evolutions", err)
	}
	defer rows.Close()

	for rows.Next() {
		var originID int
		var ev types.EvolutionView
		if err = rows.Scan(&ev.ID, &originID, &ev.OriginName, &ev.DestinationName, &ev.Level, &ev.Method); err != nil {
			return api.StorageError("scan evolution", err)
		}
		if i, ok := index[originID]; ok {
			views[i].Evolutions = append(views[i].Evolutions, ev)
		}
	}
	if err = rows.Err(); err != nil {
		return api.StorageError("read evolutions", err)
	}
	return nil
}

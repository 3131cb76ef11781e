package pokemon

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/FACorreiaa/go-pokedex-api/app/observability/metrics"
	"github.com/FACorreiaa/go-pokedex-api/internal/api"
	"github.com/FACorreiaa/go-pokedex-api/internal/types"
)

var _ CatalogService = (*CatalogServiceImpl)(nil)

// CatalogService exposes the creature catalog to handlers and to the
// favorites and image features.
type CatalogService interface {
	Create(ctx context.Context, params types.CreateCreatureParams) (*types.CreatureView, error)
	Update(ctx context.Context, id int, params types.UpdateCreatureParams) (*types.CreatureView, error)
	Delete(ctx context.Context, id int) error
	AddEvolution(ctx context.Context, originID int, params types.AddEvolutionParams) (*types.Evolution, error)
	SetImageURL(ctx context.Context, id int, url *string) error

	Get(ctx context.Context, id int) (*types.CreatureView, error)
	GetByNumber(ctx context.Context, number int) (*types.CreatureView, error)
	List(ctx context.Context) ([]types.CreatureView, error)
	Search(ctx context.Context, name string) ([]types.CreatureView, error)
	ListByGeneration(ctx context.Context, generation int) ([]types.CreatureView, error)
	ListByType(ctx context.Context, typeName string) ([]types.CreatureView, error)
	Exists(ctx context.Context, number int) (bool, error)
}

type CatalogServiceImpl struct {
	logger *slog.Logger
	repo   AggregateRepository
}

func NewCatalogService(repo AggregateRepository, logger *slog.Logger) *CatalogServiceImpl {
	return &CatalogServiceImpl{
		logger: logger,
		repo:   repo,
	}
}

func (s *CatalogServiceImpl) mutated(ctx context.Context, kind string) {
	metrics.Get().CreatureMutationsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("kind", kind)))
}

func (s *CatalogServiceImpl) Create(ctx context.Context, params types.CreateCreatureParams) (*types.CreatureView, error) {
	ctx, span := otel.Tracer("CatalogService").Start(ctx, "Create", trace.WithAttributes(
		attribute.Int("creature.number", params.Number),
		attribute.String("creature.name", params.Name),
	))
	defer span.End()

	l := s.logger.With(slog.String("method", "Create"), slog.Int("number", params.Number))

	id, err := s.repo.Create(ctx, params)
	if err != nil {
		l.WarnContext(ctx, "Creature creation rejected", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Create failed")
		return nil, fmt.Errorf("error creating creature: %w", err)
	}
	s.mutated(ctx, "create")

	view, err := s.repo.View(ctx, id)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("error loading created creature: %w", err)
	}

	l.InfoContext(ctx, "Creature created", slog.Int("id", id))
	span.SetStatus(codes.Ok, "Creature created")
	return view, nil
}

func (s *CatalogServiceImpl) Update(ctx context.Context, id int, params types.UpdateCreatureParams) (*types.CreatureView, error) {
	ctx, span := otel.Tracer("CatalogService").Start(ctx, "Update", trace.WithAttributes(
		attribute.Int("creature.id", id),
	))
	defer span.End()

	l := s.logger.With(slog.String("method", "Update"), slog.Int("id", id))

	if err := s.repo.Update(ctx, id, params); err != nil {
		l.WarnContext(ctx, "Creature update rejected", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Update failed")
		return nil, fmt.Errorf("error updating creature: %w", err)
	}
	s.mutated(ctx, "update")

	view, err := s.repo.View(ctx, id)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("error loading updated creature: %w", err)
	}
	span.SetStatus(codes.Ok, "Creature updated")
	return view, nil
}

func (s *CatalogServiceImpl) Delete(ctx context.Context, id int) error {
	ctx, span := otel.Tracer("CatalogService").Start(ctx, "Delete", trace.WithAttributes(
		attribute.Int("creature.id", id),
	))
	defer span.End()

	if err := s.repo.Delete(ctx, id); err != nil {
		s.logger.WarnContext(ctx, "Creature delete failed", slog.Int("id", id), slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Delete failed")
		return fmt.Errorf("error deleting creature: %w", err)
	}
	s.mutated(ctx, "delete")
	span.SetStatus(codes.Ok, "Creature deleted")
	return nil
}

func (s *CatalogServiceImpl) AddEvolution(ctx context.Context, originID int, params types.AddEvolutionParams) (*types.Evolution, error) {
	ctx, span := otel.Tracer("CatalogService").Start(ctx, "AddEvolution", trace.WithAttributes(
		attribute.Int("evolution.origin", originID),
		attribute.Int("evolution.destination", params.DestinationID),
	))
	defer span.End()

	evo, err := s.repo.AddEvolution(ctx, originID, params)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "AddEvolution failed")
		return nil, fmt.Errorf("error adding evolution: %w", err)
	}
	s.mutated(ctx, "evolution")
	span.SetStatus(codes.Ok, "Evolution added")
	return evo, nil
}

func (s *CatalogServiceImpl) SetImageURL(ctx context.Context, id int, url *string) error {
	if err := s.repo.SetImageURL(ctx, id, url); err != nil {
		return fmt.Errorf("error setting image url: %w", err)
	}
	s.mutated(ctx, "image")
	return nil
}

func (s *CatalogServiceImpl) Get(ctx context.Context, id int) (*types.CreatureView, error) {
	view, err := s.repo.View(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("error fetching creature: %w", err)
	}
	return view, nil
}

func (s *CatalogServiceImpl) GetByNumber(ctx context.Context, number int) (*types.CreatureView, error) {
	view, err := s.repo.ViewByNumber(ctx, number)
	if err != nil {
		return nil, fmt.Errorf("error fetching creature by number: %w", err)
	}
	return view, nil
}

func (s *CatalogServiceImpl) List(ctx context.Context) ([]types.CreatureView, error) {
	views, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("error listing creatures: %w", err)
	}
	return views, nil
}

func (s *CatalogServiceImpl) Search(ctx context.Context, name string) ([]types.CreatureView, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", api.ErrInvalidInput)
	}
	views, err := s.repo.SearchByName(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("error searching creatures: %w", err)
	}
	return views, nil
}

func (s *CatalogServiceImpl) ListByGeneration(ctx context.Context, generation int) ([]types.CreatureView, error) {
	if !validGeneration(generation) {
		return nil, api.ErrInvalidGeneration
	}
	views, err := s.repo.ListByGeneration(ctx, generation)
	if err != nil {
		return nil, fmt.Errorf("error listing generation %d: %w", generation, err)
	}
	return views, nil
}

func (s *CatalogServiceImpl) ListByType(ctx context.Context, typeName string) ([]types.CreatureView, error) {
	views, err := s.repo.ListByType(ctx, typeName)
	if err != nil {
		return nil, fmt.Errorf("error listing type %s: %w", typeName, err)
	}
	return views, nil
}

func (s *CatalogServiceImpl) Exists(ctx context.Context, number int) (bool, error) {
	return s.repo.ExistsByNumber(ctx, number)
}

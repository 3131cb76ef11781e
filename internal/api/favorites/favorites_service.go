package favorites

import (
	"context"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/FACorreiaa/go-pokedex-api/internal/api"
	"github.com/FACorreiaa/go-pokedex-api/internal/types"
)

var _ Service = (*ServiceImpl)(nil)

type Service interface {
	List(ctx context.Context, username string) ([]int, error)
	Add(ctx context.Context, username string, number int) error
	Remove(ctx context.Context, username string, number int) error
	Toggle(ctx context.Context, username string, number int) (*types.FavoriteStatus, error)
	Check(ctx context.Context, username string, number int) (*types.FavoriteStatus, error)
}

// CreatureLookup answers whether a Pokédex number is in the catalog.
type CreatureLookup interface {
	Exists(ctx context.Context, number int) (bool, error)
}

type ServiceImpl struct {
	logger    *slog.Logger
	repo      Repository
	creatures CreatureLookup
}

func NewService(repo Repository, creatures CreatureLookup, logger *slog.Logger) *ServiceImpl {
	return &ServiceImpl{
		logger:    logger,
		repo:      repo,
		creatures: creatures,
	}
}

func (s *ServiceImpl) List(ctx context.Context, username string) ([]int, error) {
	favs, err := s.repo.List(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("error listing favorites: %w", err)
	}
	numbers := make([]int, len(favs))
	for i, f := range favs {
		numbers[i] = f.CreatureNumber
	}
	return numbers, nil
}

func (s *ServiceImpl) Add(ctx context.Context, username string, number int) error {
	ctx, span := otel.Tracer("FavoritesService").Start(ctx, "Add", trace.WithAttributes(
		attribute.String("user.username", username),
		attribute.Int("creature.number", number),
	))
	defer span.End()

	known, err := s.creatures.Exists(ctx, number)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("error checking creature: %w", err)
	}
	if !known {
		span.SetStatus(codes.Error, "Unknown creature")
		return fmt.Errorf("creature number %d: %w", number, api.ErrNotFound)
	}

	already, err := s.repo.Exists(ctx, username, number)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("error checking favorite: %w", err)
	}
	if already {
		span.SetStatus(codes.Error, "Already favorite")
		return api.ErrAlreadyFavorite
	}

	if err = s.repo.Add(ctx, username, number); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Add failed")
		return fmt.Errorf("error adding favorite: %w", err)
	}

	s.logger.InfoContext(ctx, "Favorite added", slog.String("username", username), slog.Int("number", number))
	span.SetStatus(codes.Ok, "Favorite added")
	return nil
}

func (s *ServiceImpl) Remove(ctx context.Context, username string, number int) error {
	removed, err := s.repo.Remove(ctx, username, number)
	if err != nil {
		return fmt.Errorf("error removing favorite: %w", err)
	}
	if !removed {
		s.logger.DebugContext(ctx, "Favorite was not set", slog.String("username", username), slog.Int("number", number))
	}
	return nil
}

// Toggle flips the favorite state and returns the new one.
func (s *ServiceImpl) Toggle(ctx context.Context, username string, number int) (*types.FavoriteStatus, error) {
	removed, err := s.repo.Remove(ctx, username, number)
	if err != nil {
		return nil, fmt.Errorf("error toggling favorite: %w", err)
	}
	if removed {
		return &types.FavoriteStatus{CreatureNumber: number, Favorite: false}, nil
	}
	if err = s.Add(ctx, username, number); err != nil {
		return nil, err
	}
	return &types.FavoriteStatus{CreatureNumber: number, Favorite: true}, nil
}

func (s *ServiceImpl) Check(ctx context.Context, username string, number int) (*types.FavoriteStatus, error) {
	exists, err := s.repo.Exists(ctx, username, number)
	if err != nil {
		return nil, fmt.Errorf("error checking favorite: %w", err)
	}
	return &types.FavoriteStatus{CreatureNumber: number, Favorite: exists}, nil
}

package typechart

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/patrickmn/go-cache"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/FACorreiaa/go-pokedex-api/config"
	"github.com/FACorreiaa/go-pokedex-api/internal/types"
)

var _ Service = (*ServiceImpl)(nil)

type Service interface {
	All(ctx context.Context) ([]types.CreatureType, error)
	GetByID(ctx context.Context, id int) (*types.CreatureType, error)
	GetByName(ctx context.Context, name string) (*types.CreatureType, error)
}

// ServiceImpl serves the type catalog from an in-process cache. The catalog
// only changes through migrations, so entries simply expire.
type ServiceImpl struct {
	logger *slog.Logger
	repo   Repository
	cache  *cache.Cache
}

func NewService(repo Repository, cfg config.CacheConfig, logger *slog.Logger) *ServiceImpl {
	return &ServiceImpl{
		logger: logger,
		repo:   repo,
		cache:  cache.New(cfg.TTL, cfg.Cleanup),
	}
}

const allTypesKey = "types:all"

func (s *ServiceImpl) All(ctx context.Context) ([]types.CreatureType, error) {
	ctx, span := otel.Tracer("TypeService").Start(ctx, "All")
	defer span.End()

	if cached, found := s.cache.Get(allTypesKey); found {
		if list, ok := cached.([]types.CreatureType); ok {
			span.SetAttributes(attribute.Bool("cache.hit", true))
			span.SetStatus(codes.Ok, "Served from cache")
			return list, nil
		}
	}

	list, err := s.repo.All(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Repository failed")
		return nil, fmt.Errorf("error listing types: %w", err)
	}
	s.cache.Set(allTypesKey, list, cache.DefaultExpiration)
	s.logger.DebugContext(ctx, "Type catalog cached", slog.Int("count", len(list)))
	span.SetStatus(codes.Ok, "Types listed")
	return list, nil
}

func (s *ServiceImpl) GetByID(ctx context.Context, id int) (*types.CreatureType, error) {
	key := fmt.Sprintf("types:id:%d", id)
	if cached, found := s.cache.Get(key); found {
		if t, ok := cached.(*types.CreatureType); ok {
			return t, nil
		}
	}

	t, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("error fetching type: %w", err)
	}
	s.cache.Set(key, t, cache.DefaultExpiration)
	return t, nil
}

func (s *ServiceImpl) GetByName(ctx context.Context, name string) (*types.CreatureType, error) {
	key := "types:name:" + strings.ToLower(name)
	if cached, found := s.cache.Get(key); found {
		if t, ok := cached.(*types.CreatureType); ok {
			return t, nil
		}
	}

	t, err := s.repo.GetByName(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("error fetching type: %w", err)
	}
	s.cache.Set(key, t, cache.DefaultExpiration)
	return t, nil
}

package container

import (
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/afero"

	"github.com/FACorreiaa/go-pokedex-api/config"
	"github.com/FACorreiaa/go-pokedex-api/internal/api/auth"
	"github.com/FACorreiaa/go-pokedex-api/internal/api/favorites"
	"github.com/FACorreiaa/go-pokedex-api/internal/api/images"
	"github.com/FACorreiaa/go-pokedex-api/internal/api/pokemon"
	"github.com/FACorreiaa/go-pokedex-api/internal/api/typechart"
)

// Container holds all application dependencies
type Container struct {
	Config *config.Config
	Logger *slog.Logger
	Pool   *pgxpool.Pool

	Admission        *auth.Admission
	AuthHandler      *auth.AuthHandler
	PokemonHandler   *pokemon.PokemonHandler
	TypeHandler      *typechart.TypeHandler
	FavoritesHandler *favorites.FavoritesHandler
	ImageHandler     *images.ImageHandler
}

// NewContainer wires repositories, services and handlers on top of an open
// pool. Images are written to fs under cfg.Storage.UploadDir.
func NewContainer(cfg *config.Config, pool *pgxpool.Pool, fs afero.Fs, logger *slog.Logger) (*Container, error) {
	tokens, err := auth.NewTokenCodec(cfg.JWT)
	if err != nil {
		return nil, fmt.Errorf("error creating token codec: %w", err)
	}

	credentialStore := auth.NewPostgresCredentialStore(pool, logger)
	authService := auth.NewAuthService(credentialStore, auth.NewBcryptHasher(0), tokens, cfg.Profile, logger)
	admission := auth.NewAdmission(tokens, auth.NewAccessPolicy(), logger)

	aggregateRepo := pokemon.NewPostgresAggregateRepository(pool, logger)
	catalog := pokemon.NewCatalogService(aggregateRepo, logger)

	typeRepo := typechart.NewPostgresRepository(pool, logger)
	typeService := typechart.NewService(typeRepo, cfg.Cache, logger)

	favoritesRepo := favorites.NewPostgresRepository(pool, logger)
	favoritesService := favorites.NewService(favoritesRepo, catalog, logger)

	store, err := images.NewStore(fs, cfg.Storage)
	if err != nil {
		return nil, err
	}
	imageService := images.NewImageService(store, catalog, logger)

	return &Container{
		Config:           cfg,
		Logger:           logger,
		Pool:             pool,
		Admission:        admission,
		AuthHandler:      auth.NewAuthHandler(authService, logger),
		PokemonHandler:   pokemon.NewPokemonHandler(catalog, logger),
		TypeHandler:      typechart.NewTypeHandler(typeService, logger),
		FavoritesHandler: favorites.NewFavoritesHandler(favoritesService, logger),
		ImageHandler:     images.NewImageHandler(imageService, cfg.Storage.MaxUploadBytes, logger),
	}, nil
}

// Close releases the pool.
func (c *Container) Close() {
	if c.Pool != nil {
		c.Pool.Close()
	}
	c.Logger.Info("Container resources released")
}

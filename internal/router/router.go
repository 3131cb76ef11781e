package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	httpSwagger "github.com/swaggo/http-swagger/v2"

	"github.com/FACorreiaa/go-pokedex-api/internal/api/auth"
	"github.com/FACorreiaa/go-pokedex-api/internal/api/favorites"
	"github.com/FACorreiaa/go-pokedex-api/internal/api/images"
	"github.com/FACorreiaa/go-pokedex-api/internal/api/pokemon"
	"github.com/FACorreiaa/go-pokedex-api/internal/api/typechart"
)

// Config contains dependencies needed for the router setup
type Config struct {
	AuthHandler      *auth.AuthHandler
	PokemonHandler   *pokemon.PokemonHandler
	TypeHandler      *typechart.TypeHandler
	FavoritesHandler *favorites.FavoritesHandler
	ImageHandler     *images.ImageHandler
	Admission        *auth.Admission
	AllowedOrigins   []string
}

var defaultOrigins = []string{"http://localhost:5173", "http://localhost:3000"}

// SetupRouter initializes the application routes. Server-wide middleware
// (request id, logging, recoverer) is applied in main before mounting.
//
// Every route declares the operation it performs and the admission
// middleware asks the access policy before the handler runs.
func SetupRouter(cfg *Config) chi.Router {
	r := chi.NewRouter()

	origins := cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = defaultOrigins
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/ping", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("pong"))
	})
	r.Get("/swagger/*", httpSwagger.WrapHandler)

	require := func(res auth.Resource, act auth.Action) func(http.Handler) http.Handler {
		return cfg.Admission.Require(auth.Op(res, act))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.With(require(auth.ResourceAuth, auth.ActionCreate)).Post("/register", cfg.AuthHandler.Register)
			r.With(require(auth.ResourceAuth, auth.ActionRead)).Post("/login", cfg.AuthHandler.Login)
			r.With(require(auth.ResourceAuth, auth.ActionRead)).Get("/validate", cfg.AuthHandler.Validate)
			r.With(require(auth.ResourceAccount, auth.ActionUpdate)).Put("/profile", cfg.AuthHandler.UpdateProfile)
			r.With(require(auth.ResourceAccount, auth.ActionDelete)).Delete("/account", cfg.AuthHandler.DeleteAccount)
		})

		r.Route("/pokemon", func(r chi.Router) {
			read := require(auth.ResourceCatalog, auth.ActionRead)
			create := require(auth.ResourceCatalog, auth.ActionCreate)
			del := require(auth.ResourceCatalog, auth.ActionDelete)

			r.With(read).Get("/", cfg.PokemonHandler.ListPokemon)
			r.With(create).Post("/", cfg.PokemonHandler.CreatePokemon)
			r.With(read).Get("/search", cfg.PokemonHandler.SearchPokemon)
			r.With(read).Get("/number/{number}", cfg.PokemonHandler.GetPokemonByNumber)
			r.With(read).Get("/generation/{generation}", cfg.PokemonHandler.ListByGeneration)
			r.With(read).Get("/type/{type}", cfg.PokemonHandler.ListByType)

			r.Route("/{id}", func(r chi.Router) {
				r.With(read).Get("/", cfg.PokemonHandler.GetPokemon)
				r.With(require(auth.ResourceCatalog, auth.ActionUpdate)).Put("/", cfg.PokemonHandler.UpdatePokemon)
				r.With(del).Delete("/", cfg.PokemonHandler.DeletePokemon)
				r.With(create).Post("/evolutions", cfg.PokemonHandler.AddEvolution)

				r.With(read).Get("/image", cfg.ImageHandler.GetImage)
				r.With(create).Post("/image", cfg.ImageHandler.UploadImage)
				r.With(del).Delete("/image", cfg.ImageHandler.DeleteImage)
			})
		})

		r.Route("/types", func(r chi.Router) {
			r.Use(require(auth.ResourceCatalog, auth.ActionRead))
			r.Get("/", cfg.TypeHandler.ListTypes)
			r.Get("/{id}", cfg.TypeHandler.GetType)
			r.Get("/name/{name}", cfg.TypeHandler.GetTypeByName)
		})

		r.Route("/favorites", func(r chi.Router) {
			read := require(auth.ResourceFavorites, auth.ActionRead)

			r.With(read).Get("/", cfg.FavoritesHandler.ListFavorites)
			r.With(read).Get("/{number}", cfg.FavoritesHandler.CheckFavorite)
			r.With(require(auth.ResourceFavorites, auth.ActionCreate)).Post("/{number}", cfg.FavoritesHandler.AddFavorite)
			r.With(require(auth.ResourceFavorites, auth.ActionDelete)).Delete("/{number}", cfg.FavoritesHandler.RemoveFavorite)
			r.With(require(auth.ResourceFavorites, auth.ActionUpdate)).Post("/{number}/toggle", cfg.FavoritesHandler.ToggleFavorite)
		})
	})

	return r
}

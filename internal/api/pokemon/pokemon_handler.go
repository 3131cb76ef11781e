package pokemon

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/FACorreiaa/go-pokedex-api/internal/api"
	"github.com/FACorreiaa/go-pokedex-api/internal/types"
)

type PokemonHandler struct {
	catalog CatalogService
	logger  *slog.Logger
}

func NewPokemonHandler(catalog CatalogService, logger *slog.Logger) *PokemonHandler {
	return &PokemonHandler{
		catalog: catalog,
		logger:  logger,
	}
}

func (h *PokemonHandler) writeList(w http.ResponseWriter, r *http.Request, views []types.CreatureView, err error) {
	if err != nil {
		api.WriteServiceError(w, r, err)
		return
	}
	if views == nil {
		views = []types.CreatureView{}
	}
	api.WriteJSONResponse(w, r, http.StatusOK, views)
}

// ListPokemon godoc
// @Summary      List every creature
// @Tags         Pokemon
// @Produce      json
// @Success      200 {array} types.CreatureView
// @Router       /pokemon [get]
func (h *PokemonHandler) ListPokemon(w http.ResponseWriter, r *http.Request) {
	views, err := h.catalog.List(r.Context())
	h.writeList(w, r, views, err)
}

// GetPokemon godoc
// @Summary      Get a creature by id
// @Tags         Pokemon
// @Produce      json
// @Param        id path int true "Creature id"
// @Success      200 {object} types.CreatureView
// @Failure      404 {object} api.Response
// @Router       /pokemon/{id} [get]
func (h *PokemonHandler) GetPokemon(w http.ResponseWriter, r *http.Request) {
	id, err := api.IntURLParam(r, "id")
	if err != nil {
		api.WriteServiceError(w, r, err)
		return
	}
	view, err := h.catalog.Get(r.Context(), id)
	if err != nil {
		api.WriteServiceError(w, r, err)
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, view)
}

// GetPokemonByNumber godoc
// @Summary      Get a creature by Pokédex number
// @Tags         Pokemon
// @Produce      json
// @Param        number path int true "Pokédex number"
// @Success      200 {object} types.CreatureView
// @Failure      404 {object} api.Response
// @Router       /pokemon/number/{number} [get]
func (h *PokemonHandler) GetPokemonByNumber(w http.ResponseWriter, r *http.Request) {
	number, err := api.IntURLParam(r, "number")
	if err != nil {
		api.WriteServiceError(w, r, err)
		return
	}
	view, err := h.catalog.GetByNumber(r.Context(), number)
	if err != nil {
		api.WriteServiceError(w, r, err)
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, view)
}

// SearchPokemon godoc
// @Summary      Search creatures by name
// @Tags         Pokemon
// @Produce      json
// @Param        name query string true "Name fragment"
// @Success      200 {array} types.CreatureView
// @Failure      400 {object} api.Response
// @Router       /pokemon/search [get]
func (h *PokemonHandler) SearchPokemon(w http.ResponseWriter, r *http.Request) {
	views, err := h.catalog.Search(r.Context(), r.URL.Query().Get("name"))
	h.writeList(w, r, views, err)
}

// ListByGeneration godoc
// @Summary      List creatures of a generation
// @Tags         Pokemon
// @Produce      json
// @Param        generation path int true "Generation (1-9)"
// @Success      200 {array} types.CreatureView
// @Failure      400 {object} api.Response
// @Router       /pokemon/generation/{generation} [get]
func (h *PokemonHandler) ListByGeneration(w http.ResponseWriter, r *http.Request) {
	generation, err := api.IntURLParam(r, "generation")
	if err != nil {
		api.WriteServiceError(w, r, api.ErrInvalidGeneration)
		return
	}
	views, err := h.catalog.ListByGeneration(r.Context(), generation)
	h.writeList(w, r, views, err)
}

// ListByType godoc
// @Summary      List creatures having a type
// @Tags         Pokemon
// @Produce      json
// @Param        type path string true "Type name"
// @Success      200 {array} types.CreatureView
// @Router       /pokemon/type/{type} [get]
func (h *PokemonHandler) ListByType(w http.ResponseWriter, r *http.Request) {
	views, err := h.catalog.ListByType(r.Context(), chi.URLParam(r, "type"))
	h.writeList(w, r, views, err)
}

// CreatePokemon godoc
// @Summary      Create a creature with its types and stats
// @Description  Types are ordered, the first is the primary type. Stats are optional.
// @Tags         Pokemon
// @Accept       json
// @Produce      json
// @Param        body body types.CreateCreatureParams true "Creature"
// @Success      201 {object} types.CreatureView
// @Failure      400 {object} api.Response
// @Failure      401 {object} api.Response
// @Failure      409 {object} api.Response "Number already exists"
// @Security     BearerAuth
// @Router       /pokemon [post]
func (h *PokemonHandler) CreatePokemon(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	l := h.logger.With(slog.String("handler", "CreatePokemon"))

	var params types.CreateCreatureParams
	if err := api.DecodeJSONBody(w, r, &params); err != nil {
		l.WarnContext(ctx, "Failed to decode request", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if err := api.ValidateStruct(params); err != nil {
		api.WriteServiceError(w, r, err)
		return
	}

	view, err := h.catalog.Create(ctx, params)
	if err != nil {
		api.WriteServiceError(w, r, err)
		return
	}
	api.WriteJSONResponse(w, r, http.StatusCreated, view)
}

// UpdatePokemon godoc
// @Summary      Patch a creature
// @Description  Only supplied fields change. A supplied types list replaces all types.
// @Tags         Pokemon
// @Accept       json
// @Produce      json
// @Param        id path int true "Creature id"
// @Param        body body types.UpdateCreatureParams true "Fields to change"
// @Success      200 {object} types.CreatureView
// @Failure      400 {object} api.Response
// @Failure      404 {object} api.Response
// @Failure      409 {object} api.Response
// @Security     BearerAuth
// @Router       /pokemon/{id} [put]
func (h *PokemonHandler) UpdatePokemon(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	l := h.logger.With(slog.String("handler", "UpdatePokemon"))

	id, err := api.IntURLParam(r, "id")
	if err != nil {
		api.WriteServiceError(w, r, err)
		return
	}

	var params types.UpdateCreatureParams
	if err = api.DecodeJSONBody(w, r, &params); err != nil {
		l.WarnContext(ctx, "Failed to decode request", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}

	view, err := h.catalog.Update(ctx, id, params)
	if err != nil {
		api.WriteServiceError(w, r, err)
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, view)
}

// DeletePokemon godoc
// @Summary      Delete a creature and everything it owns
// @Tags         Pokemon
// @Param        id path int true "Creature id"
// @Success      204
// @Failure      403 {object} api.Response "Admin only"
// @Failure      404 {object} api.Response
// @Security     BearerAuth
// @Router       /pokemon/{id} [delete]
func (h *PokemonHandler) DeletePokemon(w http.ResponseWriter, r *http.Request) {
	id, err := api.IntURLParam(r, "id")
	if err != nil {
		api.WriteServiceError(w, r, err)
		return
	}
	if err = h.catalog.Delete(r.Context(), id); err != nil {
		api.WriteServiceError(w, r, err)
		return
	}
	api.WriteJSONResponse(w, r, http.StatusNoContent, nil)
}

// AddEvolution godoc
// @Summary      Add an evolution edge
// @Tags         Pokemon
// @Accept       json
// @Produce      json
// @Param        id path int true "Origin creature id"
// @Param        body body types.AddEvolutionParams true "Destination and trigger"
// @Success      201 {object} types.Evolution
// @Failure      400 {object} api.Response
// @Failure      404 {object} api.Response
// @Security     BearerAuth
// @Router       /pokemon/{id}/evolutions [post]
func (h *PokemonHandler) AddEvolution(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	originID, err := api.IntURLParam(r, "id")
	if err != nil {
		api.WriteServiceError(w, r, err)
		return
	}

	var params types.AddEvolutionParams
	if err = api.DecodeJSONBody(w, r, &params); err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if err = api.ValidateStruct(params); err != nil {
		api.WriteServiceError(w, r, err)
		return
	}

	evo, err := h.catalog.AddEvolution(ctx, originID, params)
	if err != nil {
		h.logger.WarnContext(ctx, "Evolution rejected", slog.Int("origin", originID), slog.Any("error", err))
		api.WriteServiceError(w, r, err)
		return
	}
	api.WriteJSONResponse(w, r, http.StatusCreated, evo)
}

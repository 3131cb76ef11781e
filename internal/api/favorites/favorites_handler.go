package favorites

import (
	"log/slog"
	"net/http"

	"github.com/FACorreiaa/go-pokedex-api/internal/api"
	"github.com/FACorreiaa/go-pokedex-api/internal/api/auth"
	"github.com/FACorreiaa/go-pokedex-api/internal/types"
)

type FavoritesHandler struct {
	service Service
	logger  *slog.Logger
}

func NewFavoritesHandler(service Service, logger *slog.Logger) *FavoritesHandler {
	return &FavoritesHandler{
		service: service,
		logger:  logger,
	}
}

// caller returns the authenticated username, writing 401 when there is none.
func caller(w http.ResponseWriter, r *http.Request) (string, bool) {
	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		api.ErrorResponse(w, r, http.StatusUnauthorized, "Authentication required")
		return "", false
	}
	return identity.Subject, true
}

// ListFavorites godoc
// @Summary      List the caller's favorite Pokédex numbers
// @Description  Newest first.
// @Tags         Favorites
// @Produce      json
// @Success      200 {array} int
// @Failure      401 {object} api.Response
// @Security     BearerAuth
// @Router       /favorites [get]
func (h *FavoritesHandler) ListFavorites(w http.ResponseWriter, r *http.Request) {
	username, ok := caller(w, r)
	if !ok {
		return
	}
	numbers, err := h.service.List(r.Context(), username)
	if err != nil {
		api.WriteServiceError(w, r, err)
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, numbers)
}

// AddFavorite godoc
// @Summary      Add a creature to the caller's favorites
// @Tags         Favorites
// @Produce      json
// @Param        number path int true "Pokédex number"
// @Success      201 {object} types.FavoriteStatus
// @Failure      404 {object} api.Response "Unknown creature"
// @Failure      409 {object} api.Response "Already a favorite"
// @Security     BearerAuth
// @Router       /favorites/{number} [post]
func (h *FavoritesHandler) AddFavorite(w http.ResponseWriter, r *http.Request) {
	username, ok := caller(w, r)
	if !ok {
		return
	}
	number, err := api.IntURLParam(r, "number")
	if err != nil {
		api.WriteServiceError(w, r, err)
		return
	}
	if err = h.service.Add(r.Context(), username, number); err != nil {
		h.logger.WarnContext(r.Context(), "Favorite not added", slog.Int("number", number), slog.Any("error", err))
		api.WriteServiceError(w, r, err)
		return
	}
	api.WriteJSONResponse(w, r, http.StatusCreated, types.FavoriteStatus{CreatureNumber: number, Favorite: true})
}

// RemoveFavorite godoc
// @Summary      Remove a creature from the caller's favorites
// @Tags         Favorites
// @Param        number path int true "Pokédex number"
// @Description  Removing a creature that is not a favorite also succeeds.
// @Success      204
// @Security     BearerAuth
// @Router       /favorites/{number} [delete]
func (h *FavoritesHandler) RemoveFavorite(w http.ResponseWriter, r *http.Request) {
	username, ok := caller(w, r)
	if !ok {
		return
	}
	number, err := api.IntURLParam(r, "number")
	if err != nil {
		api.WriteServiceError(w, r, err)
		return
	}
	if err = h.service.Remove(r.Context(), username, number); err != nil {
		api.WriteServiceError(w, r, err)
		return
	}
	api.WriteJSONResponse(w, r, http.StatusNoContent, nil)
}

// ToggleFavorite godoc
// @Summary      Flip the favorite state of a creature
// @Tags         Favorites
// @Produce      json
// @Param        number path int true "Pokédex number"
// @Success      200 {object} types.FavoriteStatus
// @Security     BearerAuth
// @Router       /favorites/{number}/toggle [post]
func (h *FavoritesHandler) ToggleFavorite(w http.ResponseWriter, r *http.Request) {
	username, ok := caller(w, r)
	if !ok {
		return
	}
	number, err := api.IntURLParam(r, "number")
	if err != nil {
		api.WriteServiceError(w, r, err)
		return
	}
	status, err := h.service.Toggle(r.Context(), username, number)
	if err != nil {
		api.WriteServiceError(w, r, err)
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, status)
}

// CheckFavorite godoc
// @Summary      Tell whether a creature is a favorite
// @Tags         Favorites
// @Produce      json
// @Param        number path int true "Pokédex number"
// @Success      200 {object} types.FavoriteStatus
// @Security     BearerAuth
// @Router       /favorites/{number} [get]
func (h *FavoritesHandler) CheckFavorite(w http.ResponseWriter, r *http.Request) {
	username, ok := caller(w, r)
	if !ok {
		return
	}
	number, err := api.IntURLParam(r, "number")
	if err != nil {
		api.WriteServiceError(w, r, err)
		return
	}
	status, err := h.service.Check(r.Context(), username, number)
	if err != nil {
		api.WriteServiceError(w, r, err)
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, status)
}

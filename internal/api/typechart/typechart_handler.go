package typechart

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/FACorreiaa/go-pokedex-api/internal/api"
)

type TypeHandler struct {
	service Service
	logger  *slog.Logger
}

func NewTypeHandler(service Service, logger *slog.Logger) *TypeHandler {
	return &TypeHandler{
		service: service,
		logger:  logger,
	}
}

// ListTypes godoc
// @Summary      List the type catalog
// @Tags         Types
// @Produce      json
// @Success      200 {array} types.CreatureType
// @Router       /types [get]
func (h *TypeHandler) ListTypes(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.All(r.Context())
	if err != nil {
		h.logger.ErrorContext(r.Context(), "Failed to list types", slog.Any("error", err))
		api.WriteServiceError(w, r, err)
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, list)
}

// GetType godoc
// @Summary      Get a type by id
// @Tags         Types
// @Produce      json
// @Param        id path int true "Type id"
// @Success      200 {object} types.CreatureType
// @Failure      404 {object} api.Response
// @Router       /types/{id} [get]
func (h *TypeHandler) GetType(w http.ResponseWriter, r *http.Request) {
	id, err := api.IntURLParam(r, "id")
	if err != nil {
		api.WriteServiceError(w, r, err)
		return
	}
	t, err := h.service.GetByID(r.Context(), id)
	if err != nil {
		api.WriteServiceError(w, r, err)
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, t)
}

// GetTypeByName godoc
// @Summary      Get a type by name
// @Tags         Types
// @Produce      json
// @Param        name path string true "Type name"
// @Success      200 {object} types.CreatureType
// @Failure      404 {object} api.Response
// @Router       /types/name/{name} [get]
func (h *TypeHandler) GetTypeByName(w http.ResponseWriter, r *http.Request) {
	t, err := h.service.GetByName(r.Context(), chi.URLParam(r, "name"))
	if err != nil {
		api.WriteServiceError(w, r, err)
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, t)
}

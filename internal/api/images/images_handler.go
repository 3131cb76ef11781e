package images

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/FACorreiaa/go-pokedex-api/internal/api"
)

const formField = "file"

type ImageHandler struct {
	service  *ImageService
	logger   *slog.Logger
	maxBytes int64
}

func NewImageHandler(service *ImageService, maxBytes int64, logger *slog.Logger) *ImageHandler {
	return &ImageHandler{
		service:  service,
		logger:   logger,
		maxBytes: maxBytes,
	}
}

// UploadImage godoc
// @Summary      Upload or replace a creature's image
// @Description  png, jpg, jpeg or gif. Any previous image of the creature is replaced.
// @Tags         Images
// @Accept       multipart/form-data
// @Produce      json
// @Param        id path int true "Creature id"
// @Param        file formData file true "Image file"
// @Success      200 {object} Uploaded
// @Failure      400 {object} api.Response
// @Failure      404 {object} api.Response
// @Security     BearerAuth
// @Router       /pokemon/{id}/image [post]
func (h *ImageHandler) UploadImage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	l := h.logger.With(slog.String("handler", "UploadImage"))

	id, err := api.IntURLParam(r, "id")
	if err != nil {
		api.WriteServiceError(w, r, err)
		return
	}

	// room for the multipart envelope around the file itself
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBytes+1<<20)
	file, header, err := r.FormFile(formField)
	if err != nil {
		l.WarnContext(ctx, "No image in request", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusBadRequest, "multipart field \"file\" is required")
		return
	}
	defer file.Close()

	uploaded, err := h.service.Upload(ctx, id, header.Header.Get("Content-Type"), header.Filename, file)
	if err != nil {
		api.WriteServiceError(w, r, err)
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, uploaded)
}

// GetImage godoc
// @Summary      Download a creature's image
// @Tags         Images
// @Produce      image/png,image/jpeg,image/gif
// @Param        id path int true "Creature id"
// @Success      200 {file} binary
// @Failure      404 {object} api.Response
// @Router       /pokemon/{id}/image [get]
func (h *ImageHandler) GetImage(w http.ResponseWriter, r *http.Request) {
	id, err := api.IntURLParam(r, "id")
	if err != nil {
		api.WriteServiceError(w, r, err)
		return
	}

	f, contentType, err := h.service.Open(r.Context(), id)
	if err != nil {
		api.WriteServiceError(w, r, err)
		return
	}
	defer f.Close()

	modTime := time.Time{}
	if info, statErr := f.Stat(); statErr == nil {
		modTime = info.ModTime()
	}
	w.Header().Set("Content-Type", contentType)
	http.ServeContent(w, r, f.Name(), modTime, f)
}

// DeleteImage godoc
// @Summary      Delete a creature's image
// @Tags         Images
// @Param        id path int true "Creature id"
// @Success      204
// @Failure      403 {object} api.Response "Admin only"
// @Failure      404 {object} api.Response
// @Security     BearerAuth
// @Router       /pokemon/{id}/image [delete]
func (h *ImageHandler) DeleteImage(w http.ResponseWriter, r *http.Request) {
	id, err := api.IntURLParam(r, "id")
	if err != nil {
		api.WriteServiceError(w, r, err)
		return
	}
	if err = h.service.Delete(r.Context(), id); err != nil {
		api.WriteServiceError(w, r, err)
		return
	}
	api.WriteJSONResponse(w, r, http.StatusNoContent, nil)
}

package auth

import (
	"log/slog"
	"net/http"

	"github.com/FACorreiaa/go-pokedex-api/internal/api"
	"github.com/FACorreiaa/go-pokedex-api/internal/types"
)

type AuthHandler struct {
	authService AuthService
	logger      *slog.Logger
}

func NewAuthHandler(authService AuthService, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		logger:      logger,
	}
}

// Register godoc
// @Summary      Register an account
// @Description  Creates a USER account and returns a bearer token with the profile.
// @Tags         Auth
// @Accept       json
// @Produce      json
// @Param        body body RegisterRequest true "Registration data"
// @Success      201 {object} types.IssuedCredential
// @Failure      400 {object} api.Response "Invalid input"
// @Failure      409 {object} api.Response "Username or email taken"
// @Router       /auth/register [post]
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	l := h.logger.With(slog.String("handler", "Register"))

	var req RegisterRequest
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		l.WarnContext(ctx, "Failed to decode request", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if err := api.ValidateStruct(req); err != nil {
		api.WriteServiceError(w, r, err)
		return
	}

	cred, err := h.authService.Register(ctx, types.RegisterParams{
		Username:  req.Username,
		Password:  req.Password,
		Email:     req.Email,
		Country:   req.Country,
		BirthDate: req.BirthDate,
	})
	if err != nil {
		l.WarnContext(ctx, "Registration failed", slog.Any("error", err))
		api.WriteServiceError(w, r, err)
		return
	}

	api.WriteJSONResponse(w, r, http.StatusCreated, cred)
}

// Login godoc
// @Summary      Log in
// @Tags         Auth
// @Accept       json
// @Produce      json
// @Param        body body LoginRequest true "Credentials"
// @Success      200 {object} types.IssuedCredential
// @Failure      401 {object} api.Response "Invalid username or password"
// @Router       /auth/login [post]
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	l := h.logger.With(slog.String("handler", "Login"))

	var req LoginRequest
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		l.WarnContext(ctx, "Failed to decode request", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if err := api.ValidateStruct(req); err != nil {
		api.WriteServiceError(w, r, err)
		return
	}

	cred, err := h.authService.Login(ctx, req.Username, req.Password)
	if err != nil {
		api.WriteServiceError(w, r, err)
		return
	}

	api.WriteJSONResponse(w, r, http.StatusOK, cred)
}

// Validate godoc
// @Summary      Inspect the bearer token
// @Tags         Auth
// @Produce      json
// @Success      200 {object} ValidateResponse
// @Failure      401 {object} ValidateResponse
// @Security     BearerAuth
// @Router       /auth/validate [get]
func (h *AuthHandler) Validate(w http.ResponseWriter, r *http.Request) {
	token, ok := BearerToken(r)
	if !ok || !h.authService.Validate(token) {
		api.WriteJSONResponse(w, r, http.StatusUnauthorized, ValidateResponse{Valid: false})
		return
	}
	subject, _ := h.authService.SubjectOf(token)
	role, _ := h.authService.RoleOf(token)
	api.WriteJSONResponse(w, r, http.StatusOK, ValidateResponse{
		Valid:    true,
		Username: subject,
		Role:     string(role),
	})
}

// UpdateProfile godoc
// @Summary      Update the caller's profile
// @Description  Only supplied fields change. A new token is returned because the username may change.
// @Tags         Auth
// @Accept       json
// @Produce      json
// @Param        body body ProfileUpdateRequest true "Fields to change"
// @Success      200 {object} types.IssuedCredential
// @Failure      400 {object} api.Response
// @Failure      401 {object} api.Response
// @Failure      409 {object} api.Response "Username taken"
// @Security     BearerAuth
// @Router       /auth/profile [put]
func (h *AuthHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	l := h.logger.With(slog.String("handler", "UpdateProfile"))

	identity, ok := IdentityFromContext(ctx)
	if !ok {
		api.ErrorResponse(w, r, http.StatusUnauthorized, "Authentication required")
		return
	}

	var req ProfileUpdateRequest
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		l.WarnContext(ctx, "Failed to decode request", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if err := api.ValidateStruct(req); err != nil {
		api.WriteServiceError(w, r, err)
		return
	}

	cred, err := h.authService.UpdateProfile(ctx, identity.Subject, types.ProfileUpdateParams{
		Username:       req.Username,
		DisplayName:    req.DisplayName,
		Bio:            req.Bio,
		Gender:         req.Gender,
		FavoriteRegion: req.FavoriteRegion,
		Language:       req.Language,
		Avatar:         req.Avatar,
	})
	if err != nil {
		l.WarnContext(ctx, "Profile update failed", slog.Any("error", err))
		api.WriteServiceError(w, r, err)
		return
	}

	api.WriteJSONResponse(w, r, http.StatusOK, cred)
}

// DeleteAccount godoc
// @Summary      Delete the caller's account
// @Tags         Auth
// @Success      204
// @Failure      401 {object} api.Response
// @Failure      404 {object} api.Response
// @Security     BearerAuth
// @Router       /auth/account [delete]
func (h *AuthHandler) DeleteAccount(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	identity, ok := IdentityFromContext(ctx)
	if !ok {
		api.ErrorResponse(w, r, http.StatusUnauthorized, "Authentication required")
		return
	}

	if err := h.authService.DeleteAccount(ctx, identity.Subject); err != nil {
		h.logger.WarnContext(ctx, "Account deletion failed", slog.Any("error", err))
		api.WriteServiceError(w, r, err)
		return
	}

	api.WriteJSONResponse(w, r, http.StatusNoContent, nil)
}

package auth

import "time"

type RegisterRequest struct {
	Username  string     `json:"username" validate:"required,max=50" example:"ash"`
	Password  string     `json:"password" validate:"required,max=72" example:"pikachu1"`
	Email     string     `json:"email" validate:"required,max=100" example:"ash@kanto.example"`
	Country   *string    `json:"country,omitempty" validate:"omitempty,max=50"`
	BirthDate *time.Time `json:"birth_date,omitempty"`
}

type LoginRequest struct {
	Username string `json:"username" validate:"required" example:"ash"`
	Password string `json:"password" validate:"required" example:"pikachu1"`
}

type ProfileUpdateRequest struct {
	Username       *string `json:"username,omitempty" validate:"omitempty,max=50"`
	DisplayName    *string `json:"display_name,omitempty" validate:"omitempty,max=100"`
	Bio            *string `json:"bio,omitempty"`
	Gender         *string `json:"gender,omitempty" validate:"omitempty,max=20"`
	FavoriteRegion *string `json:"favorite_region,omitempty" validate:"omitempty,max=50"`
	Language       *string `json:"language,omitempty" validate:"omitempty,max=50"`
	Avatar         *string `json:"avatar,omitempty"`
}

type ValidateResponse struct {
	Valid    bool   `json:"valid"`
	Username string `json:"username,omitempty"`
	Role     string `json:"role,omitempty"`
}

package types

import (
	"time"

	"github.com/google/uuid"
)

// Role is the closed set of account roles.
type Role string

const (
	RoleUser  Role = "USER"
	RoleAdmin Role = "ADMIN"
)

// ParseRole accepts only the known role names.
func ParseRole(s string) (Role, bool) {
	switch Role(s) {
	case RoleUser:
		return RoleUser, true
	case RoleAdmin:
		return RoleAdmin, true
	}
	return "", false
}

// Account is a registered user. PasswordHash never leaves the server.
type Account struct {
	ID             uuid.UUID  `json:"id"`
	Username       string     `json:"username" example:"ash"`
	Email          string     `json:"email" example:"ash@kanto.example"`
	PasswordHash   string     `json:"-"`
	Role           Role       `json:"role" example:"USER"`
	Enabled        bool       `json:"enabled"`
	DisplayName    *string    `json:"display_name,omitempty"`
	Bio            *string    `json:"bio,omitempty"`
	Gender         *string    `json:"gender,omitempty"`
	FavoriteRegion *string    `json:"favorite_region,omitempty"`
	Language       *string    `json:"language,omitempty"`
	Avatar         *string    `json:"avatar,omitempty"`
	Country        *string    `json:"country,omitempty"`
	BirthDate      *time.Time `json:"birth_date,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// Identity is what a verified bearer token proves.
type Identity struct {
	Subject string
	Role    Role
}

// IssuedCredential is returned by register, login and profile updates.
type IssuedCredential struct {
	Token          string  `json:"token" example:"eyJhbGciOiJIUzI1NiJ9..."`
	Username       string  `json:"username"`
	Email          string  `json:"email"`
	Role           Role    `json:"role"`
	DisplayName    *string `json:"display_name,omitempty"`
	Bio            *string `json:"bio,omitempty"`
	Gender         *string `json:"gender,omitempty"`
	FavoriteRegion *string `json:"favorite_region,omitempty"`
	Language       *string `json:"language,omitempty"`
	Avatar         *string `json:"avatar,omitempty"`
}

// RegisterParams is the input of a registration.
type RegisterParams struct {
	Username  string     `json:"username" example:"ash"`
	Password  string     `json:"password" example:"pikachu1"`
	Email     string     `json:"email" example:"ash@kanto.example"`
	Country   *string    `json:"country,omitempty"`
	BirthDate *time.Time `json:"birth_date,omitempty"`
}

// ProfileUpdateParams holds the fields a user may change on their own account.
// nil means "leave as is".
type ProfileUpdateParams struct {
	Username       *string `json:"username,omitempty"`
	DisplayName    *string `json:"display_name,omitempty"`
	Bio            *string `json:"bio,omitempty"`
	Gender         *string `json:"gender,omitempty"`
	FavoriteRegion *string `json:"favorite_region,omitempty"`
	Language       *string `json:"language,omitempty"`
	Avatar         *string `json:"avatar,omitempty"`
}

// Empty reports whether no field is set.
func (p ProfileUpdateParams) Empty() bool {
	return p.Username == nil && p.DisplayName == nil && p.Bio == nil && p.Gender == nil &&
		p.FavoriteRegion == nil && p.Language == nil && p.Avatar == nil
}

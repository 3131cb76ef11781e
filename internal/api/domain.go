package api

import (
	"errors"
	"fmt"

	"github.com/samber/oops"
)

// Error classes. Handlers translate these to HTTP statuses; every specific
// error below wraps exactly one of them.
var (
	ErrValidation      = errors.New("validation failed")
	ErrNotFound        = errors.New("not found")
	ErrConflict        = errors.New("conflict")
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrForbidden       = errors.New("forbidden")
	ErrStorage         = errors.New("storage failure")
)

var (
	ErrInvalidInput      = fmt.Errorf("%w: invalid input", ErrValidation)
	ErrInvalidTypeCount  = fmt.Errorf("%w: a creature needs one or two types", ErrValidation)
	ErrInvalidGeneration = fmt.Errorf("%w: generation must be between 1 and 9", ErrValidation)
	ErrUnknownType       = fmt.Errorf("%w: unknown type", ErrValidation)
	ErrInvalidStat       = fmt.Errorf("%w: stats must be between 1 and 255", ErrValidation)
	ErrSelfEvolution     = fmt.Errorf("%w: a creature cannot evolve into itself", ErrValidation)
	ErrInvalidImage      = fmt.Errorf("%w: invalid image", ErrValidation)

	ErrDuplicateUsername = fmt.Errorf("%w: username already taken", ErrConflict)
	ErrDuplicateEmail    = fmt.Errorf("%w: email already registered", ErrConflict)
	ErrDuplicateNumber   = fmt.Errorf("%w: creature number already exists", ErrConflict)
	ErrAlreadyFavorite   = fmt.Errorf("%w: creature already in favorites", ErrConflict)

	ErrInvalidCredentials = fmt.Errorf("%w: invalid username or password", ErrUnauthenticated)
)

// StorageError wraps a database or filesystem failure so that it matches
// ErrStorage and still unwraps to the driver error.
func StorageError(op string, err error) error {
	return oops.
		Code("STORAGE_FAILURE").
		With("op", op).
		Wrap(fmt.Errorf("%w: %s: %w", ErrStorage, op, err))
}

// Response is the generic envelope for message-only replies.
type Response struct {
	Success bool   `json:"success" example:"true"`
	Message string `json:"message,omitempty" example:"Operation successful"`
	Error   string `json:"error,omitempty" example:"Resource not found"`
}

package domain

import "errors"

// ErrNotFound is returned by repo and service functions when the requested
// resource does not exist, or exists only in a retired state.
// Handlers should map this to HTTP 404.
var ErrNotFound = errors.New("not found")

// ErrValidation is returned by service functions when input fails business
// rule validation (e.g. missing title, end time not after start time).
// Handlers should map this to HTTP 422 Unprocessable Entity.
var ErrValidation = errors.New("validation error")

// ErrConflict is returned by repo functions when a write collides with a
// uniqueness constraint. The tag reconciler recovers from it locally by
// re-reading the row the other writer created.
var ErrConflict = errors.New("conflict")

// ErrForbidden is returned when the calling account may not act on a plan.
// Handlers should map this to HTTP 403.
var ErrForbidden = errors.New("forbidden")

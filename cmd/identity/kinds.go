package identity

import "errors"

// Error kinds shared by every Store implementation. Callers match them
// with errors.Is; the HTTP layer translates them into status codes.
var (
	ErrInvalidInput = errors.New("invalid_input")
	ErrNotFound     = errors.New("not_found")
	ErrConflict     = errors.New("conflict")
)

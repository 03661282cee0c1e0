package service

import "errors"

// Sentinel errors wrapped by every service with fmt.Errorf("%w: ...").
// httpserver maps them onto status codes; anything unwrapped becomes a 500.
var (
	ErrValidation   = errors.New("validation")   // 400
	ErrUnauthorized = errors.New("unauthorized") // 401
	ErrForbidden    = errors.New("forbidden")    // 403
	ErrNotFound     = errors.New("not found")    // 404
	ErrConflict     = errors.New("conflict")     // 409
)

package services

import "errors"

// Errors surfaced by the provider and the translator. Handlers map each to
// exactly one HTTP status.
var (
	ErrAuthenticationRequired = errors.New("authentication required")
	ErrNotFound               = errors.New("not found")
	ErrConflict               = errors.New("conflict")
	ErrPayloadTooLarge        = errors.New("payload too large")
	ErrBackend                = errors.New("backend error")
	ErrNotImplemented         = errors.New("not implemented")
	ErrForbidden              = errors.New("forbidden")
)

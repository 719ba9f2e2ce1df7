package api

import "errors"

// Sentinel kinds for API errors.
var (
	ErrBadRequest         = errors.New("bad request")
	ErrTokenNotConfigured = errors.New("aggregation trigger not configured")
	ErrForbidden          = errors.New("forbidden")
)

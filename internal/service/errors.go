package service

import "errors"

// Domain failures cross the service boundary as sentinel values; handlers and
// the websocket client translate them into client-visible fault codes.
var (
	ErrNotFound            = errors.New("not found")
	ErrForbidden           = errors.New("forbidden")
	ErrBlocked             = errors.New("conversation blocked")
	ErrValidation          = errors.New("invalid input")
	ErrRateLimited         = errors.New("rate limited")
	ErrSelfMessaging       = errors.New("cannot message yourself")
	ErrListingNotAvailable = errors.New("listing not available")
)

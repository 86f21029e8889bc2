package services

import "errors"

var (
	ErrUnauthorized        = errors.New("unauthorized: invalid webhook secret")
	ErrSecretNotConfigured = errors.New("webhook secret is not configured")
	ErrInvalidSecret       = errors.New("webhook secret must not be empty")
	ErrOrderNotResolved    = errors.New("order not found or could not be resolved")
	ErrInvalidPayload      = errors.New("invalid webhook payload")
	ErrTransitionFailed    = errors.New("failed to record payment on order")

	ErrInvalidOrder      = errors.New("invalid order")
	ErrInvalidStatus     = errors.New("invalid order status")
	ErrInvalidTransition = errors.New("status transition not allowed")
	ErrConcurrentUpdate  = errors.New("order was modified concurrently")
)

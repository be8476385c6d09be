package subscriptions

import "errors"

// Repository errors.
var (
	ErrNotFound          = errors.New("email not found in subscriptions")
	ErrAlreadySubscribed = errors.New("email already subscribed")
)

// Validation errors.
var (
	ErrInvalidEmail = errors.New("invalid email address")
)

package domain

import "errors"

var (
	ErrValidation = errors.New("validation error")
	ErrNotFound   = errors.New("not found")
	ErrConflict   = errors.New("conflict")

	// ErrDeliveryFailed marks an operation whose only email could not be delivered.
	ErrDeliveryFailed = errors.New("delivery failed")
)

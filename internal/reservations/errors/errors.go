package errors

import "errors"

var (
	ErrNotFound = errors.New("reservation not found")

	ErrInvalidID = errors.New("invalid reservation ID format")

	// ErrPersistence marks failures of the durable store (connectivity, constraint violation).
	ErrPersistence = errors.New("reservation store unavailable")

	// ErrIndex marks failures of the expiry index.
	ErrIndex = errors.New("expiry index unavailable")
)

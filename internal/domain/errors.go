package domain

import "errors"

var (
	// ErrInvalidOrder rejects malformed creation input. Not retryable.
	ErrInvalidOrder = errors.New("invalid order")

	// ErrInvalidTransition rejects a status change that is not an edge of
	// the lifecycle graph.
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrUnauthorized means no principal was supplied with the request.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrForbidden means the principal's role or ownership does not permit
	// the operation.
	ErrForbidden = errors.New("forbidden")

	// ErrConflict means a concurrent transition won the race; the caller
	// should reload the order and retry.
	ErrConflict = errors.New("order was modified concurrently")

	// ErrChannelBackpressure means a publish attempt timed out because the
	// underlying channel would not accept the event. Retryable.
	ErrChannelBackpressure = errors.New("event channel backpressured")

	ErrOrderNotFound = errors.New("order not found")
)

// Package common holds the sentinel errors shared across server components.
//
// The taxonomy maps directly onto what a client may observe:
//   - ErrUnauthenticated: the connection is refused, no events are processed.
//   - ErrValidation: the triggering event is rejected, no state changes.
//   - ErrPersistence: a required store write failed; the operation is aborted.
//   - ErrBackbone: the pub/sub layer is unavailable; instance health degrades.
package common

import "errors"

var (
	ErrNotFound = errors.New("not found")

	ErrUnauthenticated = errors.New("authentication required")
	ErrInvalidToken    = errors.New("invalid token")

	ErrValidation  = errors.New("validation error")
	ErrPersistence = errors.New("persistence failure")
	ErrBackbone    = errors.New("backbone failure")

	ErrInternal = errors.New("internal error")
)

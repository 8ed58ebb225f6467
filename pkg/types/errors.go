// Package types defines error types
package types

import (
	"errors"
	"fmt"
)

// Predefined errors
var (
	// ErrEmpty indicates a queue read timed out without an item
	ErrEmpty = errors.New("queue is empty")

	// ErrPendingWork indicates termination was requested while orders are still pending
	ErrPendingWork = errors.New("orders still pending")

	// ErrProtocolViolation indicates an acknowledgment without a matching retrieval
	ErrProtocolViolation = errors.New("queue protocol violation")

	// ErrAlreadyRunning indicates a run is already in progress
	ErrAlreadyRunning = errors.New("service is already running")

	// ErrInvalidOrder indicates a nil or malformed order
	ErrInvalidOrder = errors.New("invalid order")
)

// ProcessingError represents a failure while a worker prepared an order
type ProcessingError struct {
	// Worker is the identifier of the worker that hit the failure
	Worker string

	// OrderID is the identifier of the order being prepared
	OrderID int

	// Kind is the order kind
	Kind string

	// Cause is the underlying error
	Cause error

	// Context contains error context information
	Context map[string]interface{}
}

// Error implements the error interface
func (e *ProcessingError) Error() string {
	return fmt.Sprintf("%s failed to prepare order %d (%s): %v", e.Worker, e.OrderID, e.Kind, e.Cause)
}

// Unwrap returns the underlying error
func (e *ProcessingError) Unwrap() error {
	return e.Cause
}

// Is checks if the error is a specific error
func (e *ProcessingError) Is(target error) bool {
	return errors.Is(e.Cause, target)
}

// NewProcessingError creates a new processing error
func NewProcessingError(worker string, orderID int, kind string, cause error) *ProcessingError {
	return &ProcessingError{
		Worker:  worker,
		OrderID: orderID,
		Kind:    kind,
		Cause:   cause,
		Context: make(map[string]interface{}),
	}
}

// WithContext adds error context
func (e *ProcessingError) WithContext(key string, value interface{}) *ProcessingError {
	e.Context[key] = value
	return e
}

// IsProcessingError reports whether err carries a ProcessingError
func IsProcessingError(err error) bool {
	var pe *ProcessingError
	return errors.As(err, &pe)
}

// Package types defines core interfaces and types shared by the queue, worker and service packages
package types

// ErrorHandler is called with every ProcessingError a worker recovers from.
// The returned error is ignored by the worker; it exists so handlers can be
// chained.
type ErrorHandler func(error) error

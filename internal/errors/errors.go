// Package errors defines application-specific error types and sentinel errors.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinel errors for common conditions.
var (
	ErrQueueClosed     = errors.New("queue is closed for sending")
	ErrCancelled       = errors.New("operation cancelled")
	ErrInvalidArgument = errors.New("invalid argument")
	ErrQueueFull       = errors.New("queue is full")
	ErrSinkClosed      = errors.New("sink is closed")
	ErrBackpressure    = errors.New("remote store applied backpressure")
	ErrConnectionLost  = errors.New("connection lost")
)

// ValidationError represents a point validation failure.
type ValidationError struct {
	Metric string
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error: metric=%q field=%s: %s",
		e.Metric, e.Field, e.Reason)
}

// Unwrap lets callers match any validation failure as ErrInvalidArgument.
func (e *ValidationError) Unwrap() error {
	return ErrInvalidArgument
}

// DispatchError represents a batch that could not be delivered to a sink.
type DispatchError struct {
	Sink    string
	Stream  string
	BatchID string
	Size    int
	Err     error
}

func (e *DispatchError) Error() string {
	return fmt.Sprintf("dispatch error: sink=%s stream=%s batch=%s size=%d: %v",
		e.Sink, e.Stream, e.BatchID, e.Size, e.Err)
}

func (e *DispatchError) Unwrap() error {
	return e.Err
}

// IsRetryable determines if a DispatchError is retryable.
func (e *DispatchError) IsRetryable() bool {
	return IsRetryable(e.Err)
}

// TransportError represents a failed request against the remote store.
// StatusCode is zero when the request never produced a response.
type TransportError struct {
	Endpoint   string
	StatusCode int
	Body       string
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("transport error: endpoint=%s: %v", e.Endpoint, e.Err)
	}
	return fmt.Sprintf("transport error: endpoint=%s status=%d: %s",
		e.Endpoint, e.StatusCode, e.Body)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// IsRetryable reports whether the request may succeed when repeated.
// Network failures and 5xx responses are retryable, 4xx are not.
func (e *TransportError) IsRetryable() bool {
	if e.StatusCode == 0 {
		return true
	}
	return e.StatusCode >= http.StatusInternalServerError || e.StatusCode == http.StatusTooManyRequests
}

// StorageError represents a storage operation failure.
type StorageError struct {
	Operation string
	Path      string
	Err       error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage error: operation=%s path=%s: %v",
		e.Operation, e.Path, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// IsRetryable determines if a StorageError is retryable based on the operation type.
func (e *StorageError) IsRetryable() bool {
	return e.Operation == "write" || e.Operation == "upload" || e.Operation == "create"
}

// Retryable defines an interface for errors that can indicate if they are retryable.
type Retryable interface {
	error
	IsRetryable() bool
}

// IsRetryable checks if an error is retryable.
// It first checks if the error implements the Retryable interface,
// then falls back to checking sentinel errors.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	var retryable Retryable
	if errors.As(err, &retryable) {
		return retryable.IsRetryable()
	}

	if errors.Is(err, ErrConnectionLost) || errors.Is(err, ErrBackpressure) {
		return true
	}

	return false
}

// IsBackpressure reports whether err signals that the remote store is
// overloaded and producers should be paused.
func IsBackpressure(err error) bool {
	return errors.Is(err, ErrBackpressure)
}

package helpers

import (
	"errors"
	"fmt"
	"runtime/debug"
)

// -----------------------------------------------------------------------------
// Custom Error Types
// -----------------------------------------------------------------------------

type QuoteBroadcasterError struct {
	Message string
	Cause   error
}

func (e *QuoteBroadcasterError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *QuoteBroadcasterError) Unwrap() error {
	return e.Cause
}

// Distinct error kinds, matched with errors.As.
type ConfigurationError struct{ QuoteBroadcasterError }
type DatabaseError struct{ QuoteBroadcasterError }

// ProviderError: the market-data source failed or returned malformed data.
type ProviderError struct{ QuoteBroadcasterError }

// TransportError: a push to one client failed.
type TransportError struct{ QuoteBroadcasterError }

// ProtocolError: a client sent a message we cannot interpret.
type ProtocolError struct{ QuoteBroadcasterError }

// SchedulerTickError: unexpected failure inside one scheduler tick.
type SchedulerTickError struct{ QuoteBroadcasterError }

// -----------------------------------------------------------------------------
// Constructors
// -----------------------------------------------------------------------------

func NewProviderError(symbol string, cause error) error {
	return &ProviderError{QuoteBroadcasterError{Message: fmt.Sprintf("provider failed for %s", symbol), Cause: cause}}
}

func NewTransportError(connID string, cause error) error {
	return &TransportError{QuoteBroadcasterError{Message: fmt.Sprintf("push to %s failed", connID), Cause: cause}}
}

func NewProtocolError(connID string, cause error) error {
	return &ProtocolError{QuoteBroadcasterError{Message: fmt.Sprintf("bad message from %s", connID), Cause: cause}}
}

func NewSchedulerTickError(cause error) error {
	return &SchedulerTickError{QuoteBroadcasterError{Message: "scheduler tick aborted", Cause: cause}}
}

func NewConfigurationError(msg string, cause error) error {
	return &ConfigurationError{QuoteBroadcasterError{Message: msg, Cause: cause}}
}

func NewDatabaseError(msg string, cause error) error {
	return &DatabaseError{QuoteBroadcasterError{Message: msg, Cause: cause}}
}

// -----------------------------------------------------------------------------
// Panic recovery
// -----------------------------------------------------------------------------

// ErrPanic is the cause of errors produced by RecoverError.
var ErrPanic = errors.New("panic")

// RecoverError turns a recovered panic value into an error carrying the stack.
// Use as: defer func() { if r := recover(); r != nil { err = RecoverError(r) } }()
func RecoverError(r interface{}) error {
	if err, ok := r.(error); ok {
		return fmt.Errorf("%w: %w\n%s", ErrPanic, err, debug.Stack())
	}
	return fmt.Errorf("%w: %v\n%s", ErrPanic, r, debug.Stack())
}

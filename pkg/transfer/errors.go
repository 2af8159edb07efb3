// ABOUTME: Error taxonomy for codec transfers
// ABOUTME: Configuration, decode stream, allocation, stop and sink-close errors
package transfer

import (
	"errors"
	"fmt"
)

// ErrStopRequested is returned when a cooperative stop request was observed.
// It is not a failure: sessions that see it finish with the Stopped outcome.
var ErrStopRequested = errors.New("stop requested")

// ConfigurationError reports an invalid mode, bitrate index, complexity or
// sample format. It is always detected before any I/O where possible and is
// never retried.
type ConfigurationError struct {
	Field  string
	Value  any
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid %s %v: %s", e.Field, e.Value, e.Reason)
}

// Configf builds a ConfigurationError with a formatted reason
func Configf(field string, value any, format string, args ...any) error {
	return &ConfigurationError{
		Field:  field,
		Value:  value,
		Reason: fmt.Sprintf(format, args...),
	}
}

// DecodeStreamError reports a fatal error from the underlying compressed
// stream decoder (a negative read count or a read error other than EOF).
type DecodeStreamError struct {
	Frames int
	Err    error
}

func (e *DecodeStreamError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("decode stream error: read returned %d", e.Frames)
	}
	return fmt.Sprintf("decode stream error: read returned %d: %v", e.Frames, e.Err)
}

func (e *DecodeStreamError) Unwrap() error { return e.Err }

// AllocationError reports a scratch or I/O buffer that could not be sized
// for the session's format.
type AllocationError struct {
	What string
	Size int
	Err  error
}

func (e *AllocationError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("failed to allocate %s (%d bytes)", e.What, e.Size)
	}
	return fmt.Sprintf("failed to allocate %s (%d bytes): %v", e.What, e.Size, e.Err)
}

func (e *AllocationError) Unwrap() error { return e.Err }

// SinkCloseWarning reports a failed drain or close of the encoder output.
// It is attached to a Result as a secondary diagnostic and never replaces
// the session's outcome.
type SinkCloseWarning struct {
	Err error
}

func (e *SinkCloseWarning) Error() string {
	return fmt.Sprintf("failed to close output cleanly: %v", e.Err)
}

func (e *SinkCloseWarning) Unwrap() error { return e.Err }

// IsConfiguration reports whether err is (or wraps) a ConfigurationError
func IsConfiguration(err error) bool {
	var cfgErr *ConfigurationError
	return errors.As(err, &cfgErr)
}

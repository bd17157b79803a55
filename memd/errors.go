package memd

import (
	"errors"
	"fmt"
)

// Error types for wire protocol operations. They tell clients whether the
// connection's protocol state is still trustworthy after the failure.

// InvalidKeyError is returned when a key fails validation before anything is
// written. The connection remains valid.
type InvalidKeyError struct {
	Message string
}

func (e *InvalidKeyError) Error() string {
	return "invalid key: " + e.Message
}

// ShouldCloseConnection returns false - nothing was written
func (e *InvalidKeyError) ShouldCloseConnection() bool {
	return false
}

// ParseError represents a client-side parsing failure: either the server
// violated the protocol or the parser has a bug. Framing is lost either way.
//
// Connection handling: CLOSE, state is uncertain
type ParseError struct {
	Message string
	Err     error // underlying error, if any
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return "parse error: " + e.Message + ": " + e.Err.Error()
	}
	return "parse error: " + e.Message
}

// Unwrap returns the underlying error for error chain inspection
func (e *ParseError) Unwrap() error {
	return e.Err
}

// ShouldCloseConnection returns true - parse errors indicate corrupted state
func (e *ParseError) ShouldCloseConnection() bool {
	return true
}

// ConnectionError wraps underlying I/O errors from connection operations.
//
// Connection handling: already broken, CLOSE and potentially RECONNECT
type ConnectionError struct {
	Op  string // operation that failed (read, write, dial)
	Err error  // underlying error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("connection error during %s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error for error chain inspection
func (e *ConnectionError) Unwrap() error {
	return e.Err
}

// ShouldCloseConnection returns true - the connection is broken
func (e *ConnectionError) ShouldCloseConnection() bool {
	return true
}

// ErrorWithConnectionState is implemented by all protocol error types and
// reports whether the connection should be closed.
type ErrorWithConnectionState interface {
	error
	ShouldCloseConnection() bool
}

// ShouldCloseConnection reports whether an error requires closing the
// connection. Unknown error types are treated conservatively as fatal.
func ShouldCloseConnection(err error) bool {
	if err == nil {
		return false
	}

	var e ErrorWithConnectionState
	if errors.As(err, &e) {
		return e.ShouldCloseConnection()
	}

	return true
}

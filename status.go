package couchkit

import "errors"

// Status is the result code of the last operation applied to a Document or
// view stream. Negative outcomes of well-formed operations (missing keys,
// CAS conflicts, timeouts) are reported through Status rather than returned
// errors; callers check Status explicitly after each blocking call.
type Status uint8

const (
	// StatusSuccess indicates the operation completed as requested.
	StatusSuccess Status = iota

	// StatusKeyNotFound indicates a get, replace, remove or touch
	// targeted a key that does not exist.
	StatusKeyNotFound

	// StatusKeyExists indicates an insert targeted a key that already
	// exists.
	StatusKeyExists

	// StatusCasMismatch indicates a mutation carried a stale CAS token.
	StatusCasMismatch

	// StatusDurabilityTimeout indicates the persist/replicate requirement
	// was not satisfied in time.
	StatusDurabilityTimeout

	// StatusOperationTimeout indicates the transport gave up waiting for
	// the server.
	StatusOperationTimeout

	// StatusNetworkError indicates a transport-level failure.
	StatusNetworkError

	// StatusServerError indicates the server rejected the operation for a
	// reason other than the ones above.
	StatusServerError
)

// ErrMalformedRequest is returned immediately for programmer errors such as
// an empty key or view path. It never appears as a Document status.
var ErrMalformedRequest = errors.New("couchkit: malformed request")

// Sentinel errors corresponding to the negative statuses, returned by
// Status.Err for callers that prefer errors.Is checks.
var (
	ErrKeyNotFound       = errors.New("couchkit: key not found")
	ErrKeyExists         = errors.New("couchkit: key already exists")
	ErrCasMismatch       = errors.New("couchkit: CAS mismatch")
	ErrDurabilityTimeout = errors.New("couchkit: durability requirement not met in time")
	ErrOperationTimeout  = errors.New("couchkit: operation timed out")
	ErrNetworkError      = errors.New("couchkit: network error")
	ErrServerError       = errors.New("couchkit: server error")
)

// Ok reports whether the status is StatusSuccess.
func (s Status) Ok() bool {
	return s == StatusSuccess
}

// Err returns the sentinel error for a negative status, or nil for
// StatusSuccess.
func (s Status) Err() error {
	switch s {
	case StatusSuccess:
		return nil
	case StatusKeyNotFound:
		return ErrKeyNotFound
	case StatusKeyExists:
		return ErrKeyExists
	case StatusCasMismatch:
		return ErrCasMismatch
	case StatusDurabilityTimeout:
		return ErrDurabilityTimeout
	case StatusOperationTimeout:
		return ErrOperationTimeout
	case StatusNetworkError:
		return ErrNetworkError
	default:
		return ErrServerError
	}
}

func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "success"
	case StatusKeyNotFound:
		return "key not found"
	case StatusKeyExists:
		return "key exists"
	case StatusCasMismatch:
		return "CAS mismatch"
	case StatusDurabilityTimeout:
		return "durability timeout"
	case StatusOperationTimeout:
		return "operation timeout"
	case StatusNetworkError:
		return "network error"
	case StatusServerError:
		return "server error"
	default:
		return "unknown status"
	}
}

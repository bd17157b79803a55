package couchkit

import (
	"log"
	"time"
)

// RelativeExpiryCutoff is the boundary between relative and absolute expiry
// values, in seconds. Values below it are seconds-from-now; values at or
// above it are absolute Unix timestamps. 30 days, matching the server's
// convention.
const RelativeExpiryCutoff = 30 * 24 * 60 * 60

// DefaultOperationTimeout bounds a single operation, and with it the
// transform retry loop.
const DefaultOperationTimeout = 2500 * time.Millisecond

// Logger is the minimal logging surface used for diagnostics that must not
// abort processing, such as a panicking view row handler.
type Logger interface {
	Printf(format string, args ...any)
}

// Config holds the client-side settings shared by every operation issued
// through a Bucket. It is passed by reference; use Scoped for a temporary
// override.
type Config struct {
	// OperationTimeout is how long a single operation may remain
	// outstanding before the transport fails it, and the wall-clock
	// budget of a Transform call.
	OperationTimeout time.Duration

	// ConnectTimeout bounds establishing the initial set of node
	// connections. Owned by the transport.
	ConnectTimeout time.Duration

	// NodeConnectTimeout bounds connecting to a single node. Owned by
	// the transport.
	NodeConnectTimeout time.Duration

	// CertPath is the TLS trust anchor path handed to the transport.
	CertPath string

	// Logger receives diagnostics. Defaults to the standard library
	// logger.
	Logger Logger
}

// DefaultConfig returns a Config with the default timeouts.
func DefaultConfig() *Config {
	return &Config{
		OperationTimeout:   DefaultOperationTimeout,
		ConnectTimeout:     5 * time.Second,
		NodeConnectTimeout: 2 * time.Second,
	}
}

// Scoped applies an override to the config and returns a restore function
// that reinstates the previous values. Intended for defer so the override is
// popped on all exit paths:
//
//	defer cfg.Scoped(func(c *Config) { c.OperationTimeout = time.Second })()
func (c *Config) Scoped(apply func(*Config)) (restore func()) {
	saved := *c
	apply(c)
	return func() { *c = saved }
}

func (c *Config) logger() Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return log.Default()
}

// OpOptions carries per-operation settings recognized by the dispatcher.
// The zero value is valid for unconditional operations.
type OpOptions struct {
	// IgnoreCas makes a mutation proceed even if the server-side CAS
	// differs from the Document's.
	IgnoreCas bool

	// PersistTo is the number of nodes, master included, that must have
	// persisted the mutation before it completes. Negative means best
	// effort: persist to as many as currently available.
	PersistTo int

	// ReplicateTo is the number of replicas that must hold the mutation
	// in RAM, same sign convention as PersistTo.
	ReplicateTo int

	// Expiry overrides the Document's Expiry for this operation when
	// non-zero. Same relative/absolute convention.
	Expiry uint32
}

// normalizeExpiry resolves the relative/absolute expiry convention into an
// absolute Unix timestamp the server can store directly. Zero stays zero.
func normalizeExpiry(expiry uint32, now time.Time) uint32 {
	if expiry == 0 || expiry >= RelativeExpiryCutoff {
		return expiry
	}
	return uint32(now.Unix()) + expiry
}

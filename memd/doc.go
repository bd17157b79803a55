// Package memd is the low-level wire protocol used by the bundled cluster
// transport: a line-oriented framing with an opaque token on every frame so
// responses can be correlated to pipelined requests in any order.
//
// # Core types
//
// Request and Frame are pure data containers without embedded logic:
//
//   - Request: one key-value operation or view query on the wire
//   - Frame: one parsed server frame - an operation response (RES), a view
//     row (ROW), or a view final (END)
//
// # Wire format
//
// Requests:
//
//	<cmd> <key> <opaque> <cas> <expiry> <flags> <persist> <replicate> <size>\r\n[<data>\r\n]
//
// Server frames:
//
//	RES <opaque> <status> <cas> <flags> <size>\r\n[<data>\r\n]
//	ROW <opaque> <klen> <vlen> <ilen> <glen> <dlen>\r\n<segments>\r\n
//	END <opaque> <status> <http> <size>\r\n[<meta>\r\n]
//
// # Error handling
//
// Parse and I/O failures are returned as typed errors that indicate whether
// the connection state is still trustworthy; use ShouldCloseConnection to
// decide between closing and reusing the connection.
//
// # Design principles
//
//  1. Zero business logic - just serialization and parsing
//  2. No connection management - caller controls connections
//  3. Clear error semantics - connection state is explicit
package memd

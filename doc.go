// Package couchkit is the client-side data-access engine for a distributed
// key-value/document cluster: it dispatches logical operations (get, insert,
// replace, remove, touch, view queries) onto a cluster transport, correlates
// the asynchronous completions back to the issuing Documents, and layers the
// CAS-based optimistic concurrency contract, batched multi-operation
// tracking, a read-modify-write transform loop, and bounded-memory view row
// streaming on top.
//
// The cluster protocol itself lives behind the Transport interface; the
// cluster subpackage provides a pooled, pipelined reference implementation.
package couchkit

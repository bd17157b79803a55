package couchkit

// OpKind identifies a logical key-value operation.
type OpKind uint8

const (
	OpGet OpKind = iota
	OpGetAndTouch
	OpInsert
	OpReplace
	OpUpsert
	OpRemove
	OpTouch
)

// IsMutation reports whether the operation writes or deletes a value.
func (k OpKind) IsMutation() bool {
	switch k {
	case OpInsert, OpReplace, OpUpsert, OpRemove:
		return true
	default:
		return false
	}
}

// IsRead reports whether the operation returns a value on success.
func (k OpKind) IsRead() bool {
	return k == OpGet || k == OpGetAndTouch
}

func (k OpKind) String() string {
	switch k {
	case OpGet:
		return "get"
	case OpGetAndTouch:
		return "get_and_touch"
	case OpInsert:
		return "insert"
	case OpReplace:
		return "replace"
	case OpUpsert:
		return "upsert"
	case OpRemove:
		return "remove"
	case OpTouch:
		return "touch"
	default:
		return "unknown"
	}
}

// CompletionFunc receives the outcome of a single operation: the status,
// the result bytes for reads (nil otherwise), the new CAS token, and the
// item flags word.
type CompletionFunc func(status Status, value []byte, cas uint64, flags uint32)

// Op is one submitted operation. The transport invokes Complete exactly once,
// from within a Wait or WaitOne call on the submitting goroutine.
type Op struct {
	Kind        OpKind
	Key         string
	Value       []byte // mutation payload, nil for reads
	Cas         uint64 // expected version, zero for unconditional
	Expiry      uint32 // absolute Unix timestamp, zero for none
	Flags       uint32 // item flags word (encodes Format)
	PersistTo   int
	ReplicateTo int
	Complete    CompletionFunc
}

// RowFunc receives one view result row: key, value, source document id,
// optional geometry, and optional embedded full document.
type RowFunc func(key, value, docID, geometry, doc []byte)

// FinalFunc receives the view query's terminal signal: its status, the raw
// trailing metadata blob, and the HTTP status code (zero if unavailable).
type FinalFunc func(status Status, meta []byte, httpStatus int)

// ViewQuery is one submitted view query. The transport invokes OnRow once
// per row in server-emission order and OnFinal exactly once afterward, all
// from within Wait or WaitOne calls.
type ViewQuery struct {
	Method  string // "GET" or "PUT"
	Path    string // _design/<ddoc>/_view/<view>?... or a raw design path
	Body    []byte // request body for PUT
	OnRow   RowFunc
	OnFinal FinalFunc
}

// Transport is the underlying cluster-client contract the engine rides on.
// Connection establishment, topology, and wire framing live behind it.
//
// The dispatch model is cooperative: completions are delivered only while
// the caller is blocked in Wait or WaitOne, on the calling goroutine. No
// callback fires between those calls, so Document and stream state need no
// locking.
type Transport interface {
	// SubmitOperation enqueues one operation. An error is returned only
	// for submission failures; outcomes arrive through op.Complete.
	SubmitOperation(op *Op) error

	// SubmitViewQuery enqueues one view query.
	SubmitViewQuery(q *ViewQuery) error

	// Wait blocks until every outstanding operation has completed,
	// dispatching completion callbacks as they arrive.
	Wait()

	// WaitOne blocks until at least one completion callback has fired,
	// then returns true. It returns false if nothing is outstanding.
	WaitOne() bool

	// Close releases the transport. Outstanding operations complete with
	// StatusNetworkError.
	Close() error
}

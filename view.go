package couchkit

import (
	"encoding/json"
	"net/url"
)

// viewRowBufferCap is how many rows accumulate before the handler is invoked
// with a batch. Bounds memory for large result sets without reordering rows.
const viewRowBufferCap = 20

// Row is one result entry from a view query.
type Row struct {
	Key      []byte // emitted key
	Value    []byte // emitted value
	ID       []byte // source document id
	Geometry []byte // spatial views only, nil otherwise
	Doc      []byte // embedded full document when requested, nil otherwise
}

// ViewHandler receives buffered row batches as they fill, then one final
// call with rows == nil as the explicit end-of-stream signal. A panic inside
// the handler is recovered and logged; the stream keeps going.
type ViewHandler func(stream *ViewStream, rows []Row)

// ViewStream is the incremental row-delivery state machine for one view
// query: rows arriving from the transport are buffered in bounded chunks and
// flushed to the handler, in server-emission order.
type ViewStream struct {
	bucket     *Bucket // released at final delivery
	handler    ViewHandler
	buf        []Row
	done       bool
	status     Status
	meta       []byte
	httpStatus int
}

// View issues a view query and returns its stream. The handler starts
// receiving batches once the caller drives the event loop (directly via the
// transport, or through ViewSlurp / ViewIterator).
func (b *Bucket) View(method, path string, body []byte, handler ViewHandler) (*ViewStream, error) {
	if path == "" {
		return nil, ErrMalformedRequest
	}

	vs := &ViewStream{
		bucket:  b,
		handler: handler,
		buf:     make([]Row, 0, viewRowBufferCap),
	}

	q := &ViewQuery{
		Method:  method,
		Path:    path,
		Body:    body,
		OnRow:   vs.onRow,
		OnFinal: vs.onFinal,
	}
	if err := b.transport.SubmitViewQuery(q); err != nil {
		return nil, err
	}
	b.stats.recordViewQuery()
	return vs, nil
}

// Done reports whether the final response has been processed. No rows are
// delivered after Done.
func (vs *ViewStream) Done() bool {
	return vs.done
}

// Status returns the server-reported outcome of the query, valid once Done.
func (vs *ViewStream) Status() Status {
	return vs.status
}

// Meta returns the raw trailing metadata blob, valid once Done.
func (vs *ViewStream) Meta() json.RawMessage {
	return vs.meta
}

// HTTPStatus returns the HTTP status of the view response, zero if the
// transport did not report one.
func (vs *ViewStream) HTTPStatus() int {
	return vs.httpStatus
}

func (vs *ViewStream) onRow(key, value, docID, geometry, doc []byte) {
	if vs.done {
		return
	}
	vs.buf = append(vs.buf, Row{Key: key, Value: value, ID: docID, Geometry: geometry, Doc: doc})
	if len(vs.buf) >= viewRowBufferCap {
		vs.flush()
	}
}

func (vs *ViewStream) onFinal(status Status, meta []byte, httpStatus int) {
	if vs.done {
		return
	}
	vs.flush()
	vs.status = status
	vs.meta = meta
	vs.httpStatus = httpStatus
	vs.done = true
	// Terminal invocation with no rows so consumers can tell "buffer
	// flush" from "stream complete".
	vs.invoke(nil)
	vs.bucket = nil
}

func (vs *ViewStream) flush() {
	if len(vs.buf) == 0 {
		return
	}
	rows := vs.buf
	vs.buf = make([]Row, 0, viewRowBufferCap)
	vs.bucket.stats.recordViewRows(len(rows))
	vs.invoke(rows)
}

// invoke delivers one batch to user code. A panicking handler must not
// corrupt the in-flight network state, so the panic is recovered and logged
// and processing of subsequent rows continues.
func (vs *ViewStream) invoke(rows []Row) {
	if vs.handler == nil {
		return
	}
	logger := vs.logSource() // resolved before the handler can panic
	defer func() {
		if r := recover(); r != nil {
			logger.Printf("couchkit: view row handler panic: %v", r)
		}
	}()
	vs.handler(vs, rows)
}

// logSource resolves the stream's logger, falling back to the default config once
// the bucket reference has been released.
func (vs *ViewStream) logSource() Logger {
	if vs.bucket != nil {
		return vs.bucket.cfg.logger()
	}
	return DefaultConfig().logger()
}

// ViewResult is the aggregated outcome of a slurped view query.
type ViewResult struct {
	Rows       []Row
	Status     Status
	Meta       json.RawMessage
	HTTPStatus int
}

// Ok reports whether the query itself succeeded.
func (r *ViewResult) Ok() bool {
	return r.Status.Ok()
}

// ViewPath builds the query path for a named view:
// _design/<ddoc>/_view/<view> with the encoded options appended.
func ViewPath(ddoc, view string, opts url.Values) (string, error) {
	if ddoc == "" || view == "" {
		return "", ErrMalformedRequest
	}
	path := "_design/" + ddoc + "/_view/" + view
	if len(opts) > 0 {
		path += "?" + opts.Encode()
	}
	return path, nil
}

// ViewSlurp issues the view query and drives the event loop until the final
// response, returning every row in delivery order plus the final metadata.
func (b *Bucket) ViewSlurp(ddoc, view string, opts url.Values) (*ViewResult, error) {
	path, err := ViewPath(ddoc, view, opts)
	if err != nil {
		return nil, err
	}
	return b.slurpPath("GET", path, nil)
}

// slurpPath runs the row stream in blocking mode against an arbitrary path.
func (b *Bucket) slurpPath(method, path string, body []byte) (*ViewResult, error) {
	res := &ViewResult{}
	vs, err := b.View(method, path, body, func(_ *ViewStream, rows []Row) {
		res.Rows = append(res.Rows, rows...)
	})
	if err != nil {
		return nil, err
	}

	b.driveUntilDone(vs)
	res.Status = vs.status
	res.Meta = vs.meta
	res.HTTPStatus = vs.httpStatus
	return res, nil
}

// driveUntilDone pumps the event loop until the stream reaches its terminal
// state. A stalled transport is surfaced as a network error on the stream.
func (b *Bucket) driveUntilDone(vs *ViewStream) {
	for !vs.done {
		if !b.transport.WaitOne() {
			vs.onFinal(StatusNetworkError, nil, 0)
			return
		}
	}
}

// ViewIterator pulls row batches on demand, driving the event loop just
// enough to produce more buffered rows or detect completion.
type ViewIterator struct {
	bucket *Bucket
	stream *ViewStream
	queue  []Row
}

// ViewIterator issues the view query in pull mode.
func (b *Bucket) ViewIterator(ddoc, view string, opts url.Values) (*ViewIterator, error) {
	path, err := ViewPath(ddoc, view, opts)
	if err != nil {
		return nil, err
	}

	it := &ViewIterator{bucket: b}
	vs, err := b.View("GET", path, nil, func(_ *ViewStream, rows []Row) {
		it.queue = append(it.queue, rows...)
	})
	if err != nil {
		return nil, err
	}
	it.stream = vs
	return it, nil
}

// NextBatch returns the next buffered rows, blocking on the event loop while
// the stream is still producing. It returns nil once the stream is done and
// every row has been consumed.
func (it *ViewIterator) NextBatch() []Row {
	for len(it.queue) == 0 && !it.stream.done {
		if !it.bucket.transport.WaitOne() {
			it.stream.onFinal(StatusNetworkError, nil, 0)
			break
		}
	}
	rows := it.queue
	it.queue = nil
	return rows
}

// Done reports whether the stream has finished and the queue is drained.
func (it *ViewIterator) Done() bool {
	return it.stream.done && len(it.queue) == 0
}

// Stream exposes the underlying stream for final status and metadata.
func (it *ViewIterator) Stream() *ViewStream {
	return it.stream
}

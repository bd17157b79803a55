package couchkit

// Batch tracks a set of operations issued together and hands their Documents
// back in completion order. Submissions never block; completions are pulled
// through WaitOne, which drives the transport's event dispatch as needed.
//
// There is no ordering guarantee between issuance and completion: a
// later-submitted fast operation may complete before an earlier slow one.
type Batch struct {
	bucket      *Bucket
	outstanding int
	completed   []*Document // FIFO, completion order
}

// NewBatch creates an empty batch bound to the bucket.
func (b *Bucket) NewBatch() *Batch {
	return &Batch{bucket: b}
}

// Submit enqueues one operation without blocking. The outcome lands on the
// given Document and the Document becomes available through WaitOne once its
// completion arrives.
func (bt *Batch) Submit(kind OpKind, doc *Document, opts *OpOptions) error {
	if doc == nil || doc.ID == "" {
		return ErrMalformedRequest
	}
	if opts == nil {
		opts = &OpOptions{}
	}

	op := bt.bucket.buildOp(kind, doc, opts)
	inner := op.Complete
	op.Complete = func(status Status, value []byte, cas uint64, flags uint32) {
		inner(status, value, cas, flags)
		bt.outstanding--
		bt.completed = append(bt.completed, doc)
		bt.bucket.stats.recordOp(kind, status)
	}

	if err := bt.bucket.transport.SubmitOperation(op); err != nil {
		doc.Status = StatusNetworkError
		return err
	}
	bt.outstanding++
	return nil
}

// WaitOne blocks until the next completed Document is available and returns
// it. Each submitted Document is returned exactly once, in completion order.
// Returns nil once every submitted operation has been consumed.
func (bt *Batch) WaitOne() *Document {
	for len(bt.completed) == 0 {
		if bt.outstanding == 0 {
			return nil
		}
		if !bt.bucket.transport.WaitOne() {
			// Transport has nothing left to dispatch; the pending
			// completions can never arrive.
			return nil
		}
	}
	doc := bt.completed[0]
	bt.completed = bt.completed[1:]
	return doc
}

// WaitAll drains the event loop until every submitted operation has
// completed. The Documents remain consumable through WaitOne afterwards.
func (bt *Batch) WaitAll() {
	for bt.outstanding > 0 {
		if !bt.bucket.transport.WaitOne() {
			return
		}
	}
}

// Pending returns the number of submitted operations that have not yet
// completed.
func (bt *Batch) Pending() int {
	return bt.outstanding
}

// Remaining returns the number of completed Documents not yet consumed.
func (bt *Batch) Remaining() int {
	return len(bt.completed)
}

package couchkit

import "time"

// Bucket is the operation dispatcher: it turns logical operations on
// Documents into transport submissions and resolves their completions back
// onto the same Documents.
//
// A Bucket is bound to one Transport for its whole lifetime. Every in-flight
// operation references the transport through the bucket, so the transport
// must outlive all outstanding operations; Close the bucket only once
// nothing is pending.
type Bucket struct {
	transport Transport
	cfg       *Config
	stats     *clientStatsCollector
}

// NewBucket creates a Bucket on top of a transport. A nil cfg uses
// DefaultConfig.
func NewBucket(transport Transport, cfg *Config) *Bucket {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	return &Bucket{
		transport: transport,
		cfg:       cfg,
		stats:     newClientStatsCollector(),
	}
}

// Config returns the bucket's configuration for inspection or a Scoped
// override.
func (b *Bucket) Config() *Config {
	return b.cfg
}

// Transport returns the underlying transport.
func (b *Bucket) Transport() Transport {
	return b.transport
}

// Stats returns a snapshot of client statistics.
func (b *Bucket) Stats() ClientStats {
	return b.stats.snapshot()
}

// Close releases the underlying transport.
func (b *Bucket) Close() error {
	return b.transport.Close()
}

// buildOp assembles the transport operation for a document, resolving the
// CAS and expiry conventions. The completion writes the outcome back into
// the document.
func (b *Bucket) buildOp(kind OpKind, doc *Document, opts *OpOptions) *Op {
	expiry := opts.Expiry
	if expiry == 0 {
		expiry = doc.Expiry
	}

	cas := doc.Cas
	if opts.IgnoreCas || kind == OpInsert {
		cas = 0
	}

	op := &Op{
		Kind:        kind,
		Key:         doc.ID,
		Cas:         cas,
		Expiry:      normalizeExpiry(expiry, time.Now()),
		Flags:       uint32(doc.Format),
		PersistTo:   opts.PersistTo,
		ReplicateTo: opts.ReplicateTo,
		Complete:    documentCompletion(doc, kind),
	}
	if kind.IsMutation() && kind != OpRemove {
		op.Value = doc.Value
	}
	return op
}

// documentCompletion resolves one completion onto the document: status
// always, CAS on success, value and format on successful reads.
func documentCompletion(doc *Document, kind OpKind) CompletionFunc {
	return func(status Status, value []byte, cas uint64, flags uint32) {
		doc.Status = status
		if !status.Ok() {
			return
		}
		doc.Cas = cas
		if kind.IsRead() {
			doc.Value = value
			doc.Format = Format(flags)
		}
	}
}

// Do submits one operation for the document and blocks until its completion
// arrives, draining the transport's event dispatch as needed. The outcome is
// recorded on the document's Status; the returned error is non-nil only for
// malformed calls and submission failures.
func (b *Bucket) Do(kind OpKind, doc *Document, opts *OpOptions) error {
	if doc == nil || doc.ID == "" {
		return ErrMalformedRequest
	}
	if opts == nil {
		opts = &OpOptions{}
	}

	done := false
	op := b.buildOp(kind, doc, opts)
	inner := op.Complete
	op.Complete = func(status Status, value []byte, cas uint64, flags uint32) {
		inner(status, value, cas, flags)
		done = true
	}

	if err := b.transport.SubmitOperation(op); err != nil {
		doc.Status = StatusNetworkError
		b.stats.recordOp(kind, doc.Status)
		return err
	}

	// Other callers' completions may be dispatched along the way; keep
	// draining until ours lands.
	for !done {
		if !b.transport.WaitOne() {
			doc.Status = StatusNetworkError
			break
		}
	}

	b.stats.recordOp(kind, doc.Status)
	return nil
}

// Get retrieves the document's value and CAS.
func (b *Bucket) Get(doc *Document, opts *OpOptions) error {
	return b.Do(OpGet, doc, opts)
}

// GetByID retrieves the document with the given key.
func (b *Bucket) GetByID(id string) (*Document, error) {
	doc := NewDocument(id)
	if err := b.Get(doc, nil); err != nil {
		return nil, err
	}
	return doc, nil
}

// GetAndTouch retrieves the document and updates its expiry in one round
// trip.
func (b *Bucket) GetAndTouch(doc *Document, opts *OpOptions) error {
	return b.Do(OpGetAndTouch, doc, opts)
}

// Insert stores the document only if the key does not exist yet.
func (b *Bucket) Insert(doc *Document, opts *OpOptions) error {
	return b.Do(OpInsert, doc, opts)
}

// Replace stores the document only if the key exists, honoring the
// document's CAS unless opts.IgnoreCas is set.
func (b *Bucket) Replace(doc *Document, opts *OpOptions) error {
	return b.Do(OpReplace, doc, opts)
}

// Upsert stores the document unconditionally on existence, still honoring a
// non-zero CAS.
func (b *Bucket) Upsert(doc *Document, opts *OpOptions) error {
	return b.Do(OpUpsert, doc, opts)
}

// Remove deletes the document's key.
func (b *Bucket) Remove(doc *Document, opts *OpOptions) error {
	return b.Do(OpRemove, doc, opts)
}

// Touch updates the document's expiry without transferring the value.
func (b *Bucket) Touch(doc *Document, opts *OpOptions) error {
	return b.Do(OpTouch, doc, opts)
}

package couchkit

import "time"

// TransformOutcome distinguishes how a read-modify-write loop ended.
type TransformOutcome uint8

const (
	// TransformApplied means the transformed value was stored.
	TransformApplied TransformOutcome = iota

	// TransformSkipped means the transform function signalled that no
	// change was desired; nothing was written.
	TransformSkipped

	// TransformExhausted means the wall-clock deadline expired while
	// retrying under contention. The document is left in whatever state
	// the last round reached; inspect its Status.
	TransformExhausted

	// TransformFailed means a replace or re-get ended with a status other
	// than CAS mismatch. The status is passed through on the document.
	TransformFailed
)

func (o TransformOutcome) String() string {
	switch o {
	case TransformApplied:
		return "applied"
	case TransformSkipped:
		return "skipped"
	case TransformExhausted:
		return "exhausted"
	case TransformFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// TransformFunc mutates the document's value in place. Returning false
// signals that no change is desired and stops the loop without writing.
type TransformFunc func(doc *Document) (changed bool, err error)

// Transform runs a read-modify-write loop on the document: apply fn, then
// replace using the document's current CAS. A CAS mismatch refreshes the
// document with a get and retries from the top; any other failure or success
// ends the loop. The whole loop is bounded by the configured operation
// timeout to avoid retry storms under heavy contention.
func (b *Bucket) Transform(doc *Document, fn TransformFunc) (TransformOutcome, error) {
	if doc == nil || doc.ID == "" || fn == nil {
		return TransformFailed, ErrMalformedRequest
	}

	deadline := time.Now().Add(b.cfg.OperationTimeout)

	for {
		changed, err := fn(doc)
		if err != nil {
			return TransformFailed, err
		}
		if !changed {
			return TransformSkipped, nil
		}

		if err := b.Replace(doc, nil); err != nil {
			return TransformFailed, err
		}

		switch doc.Status {
		case StatusSuccess:
			return TransformApplied, nil
		case StatusCasMismatch:
			// Another writer won the race: refresh value and CAS,
			// then retry the transform from the top.
		default:
			return TransformFailed, nil
		}

		if time.Now().After(deadline) {
			return TransformExhausted, nil
		}

		b.stats.recordCasRetry()
		if err := b.Get(doc, nil); err != nil {
			return TransformFailed, err
		}
		// A failed re-get leaves a stale CAS behind; the next replace
		// fails fast and ends the loop. No separate short-circuit.
	}
}

// TransformByID fetches the document and runs Transform on it. A failed
// fetch is not short-circuited: the loop proceeds and the first replace
// fails fast against the missing key.
func (b *Bucket) TransformByID(id string, fn TransformFunc) (*Document, TransformOutcome, error) {
	doc := NewDocument(id)
	if err := b.Get(doc, nil); err != nil {
		return nil, TransformFailed, err
	}
	outcome, err := b.Transform(doc, fn)
	return doc, outcome, err
}

package couchkit

import (
	"encoding/json"

	"github.com/vmihailenco/msgpack/v5"
)

// Format tags how a Document value is encoded on the wire. It travels in the
// item flags word so that readers written against other SDKs can decode the
// value the same way.
type Format uint32

const (
	// FmtRaw stores the value bytes untouched.
	FmtRaw Format = iota

	// FmtJSON encodes the value with encoding/json.
	FmtJSON

	// FmtStorable encodes the value with msgpack, the generic serialized
	// form for values that are not valid JSON.
	FmtStorable
)

// Document is the unit of data exchange. The same instance is legitimately
// reused across an initial read and a subsequent conditional write: a Get
// populates Value and Cas, a mutation submitted afterward carries that Cas
// and fails with StatusCasMismatch if another writer got there first.
//
// Documents are owned by the caller and mutated in place by every operation
// that touches them. ID is fixed at creation.
type Document struct {
	// ID is the opaque document key. Treated as immutable after creation.
	ID string

	// Value is the encoded payload, interpreted per Format.
	Value []byte

	// Cas is the server-observed version token as of the last successful
	// get or mutation. Zero means "no version known".
	Cas uint64

	// Expiry is a time-to-live in seconds when below RelativeExpiryCutoff,
	// otherwise an absolute Unix timestamp.
	Expiry uint32

	// Format tags the encoding of Value.
	Format Format

	// Status is the result code of the last operation.
	Status Status
}

// NewDocument creates a Document with the given key and no value.
func NewDocument(id string) *Document {
	return &Document{ID: id, Format: FmtJSON}
}

// NewRawDocument creates a Document carrying pre-encoded bytes.
func NewRawDocument(id string, value []byte) *Document {
	return &Document{ID: id, Value: value, Format: FmtRaw}
}

// Ok reports whether the last operation on the document succeeded.
func (d *Document) Ok() bool {
	return d.Status.Ok()
}

// Err returns the sentinel error for the document's current status, or nil.
func (d *Document) Err() error {
	return d.Status.Err()
}

// ErrorMessage returns a human-readable description of the current status.
func (d *Document) ErrorMessage() string {
	return d.Status.String()
}

// SetValue encodes v into Value according to the document's Format.
// FmtRaw requires v to be a []byte or string.
func (d *Document) SetValue(v any) error {
	switch d.Format {
	case FmtJSON:
		data, err := json.Marshal(v)
		if err != nil {
			return err
		}
		d.Value = data
	case FmtStorable:
		data, err := msgpack.Marshal(v)
		if err != nil {
			return err
		}
		d.Value = data
	default:
		switch raw := v.(type) {
		case []byte:
			d.Value = raw
		case string:
			d.Value = []byte(raw)
		default:
			return ErrMalformedRequest
		}
	}
	return nil
}

// ValueInto decodes Value into out according to the document's Format.
// FmtRaw requires out to be a *[]byte.
func (d *Document) ValueInto(out any) error {
	switch d.Format {
	case FmtJSON:
		return json.Unmarshal(d.Value, out)
	case FmtStorable:
		return msgpack.Unmarshal(d.Value, out)
	default:
		raw, ok := out.(*[]byte)
		if !ok {
			return ErrMalformedRequest
		}
		*raw = d.Value
		return nil
	}
}

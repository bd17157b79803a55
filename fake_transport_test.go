package couchkit

import (
	"strings"
	"sync/atomic"
)

// fakeEntry is one stored item in the fake transport.
type fakeEntry struct {
	value  []byte
	cas    uint64
	flags  uint32
	expiry uint32
}

// fakeView scripts the outcome of one view query path.
type fakeView struct {
	rows       []Row
	status     Status
	meta       []byte
	httpStatus int
}

// fakeTransport is an in-memory Transport with CAS semantics. Outcomes are
// computed at submit time; delivery happens one closure per WaitOne call so
// tests can observe and reorder the pending queue.
type fakeTransport struct {
	store   map[string]*fakeEntry
	views   map[string]*fakeView // keyed by "<method>:<path>"
	casSeq  atomic.Uint64
	queue   []func()
	closed  bool
	submits int

	// onMutate runs before each mutation is applied, letting tests race
	// a concurrent writer against the caller.
	onMutate func()
}

var _ Transport = (*fakeTransport)(nil)

func newFakeTransport() *fakeTransport {
	return &fakeTransport{
		store: make(map[string]*fakeEntry),
		views: make(map[string]*fakeView),
	}
}

// seed stores an entry directly, bypassing the queue. Returns its CAS.
func (f *fakeTransport) seed(key string, value []byte, flags uint32) uint64 {
	cas := f.casSeq.Add(1)
	f.store[key] = &fakeEntry{value: value, cas: cas, flags: flags}
	return cas
}

func (f *fakeTransport) addView(method, path string, v *fakeView) {
	f.views[method+":"+path] = v
}

func (f *fakeTransport) SubmitOperation(op *Op) error {
	if f.closed {
		return ErrNetworkError
	}
	f.submits++

	if op.Kind.IsMutation() && f.onMutate != nil {
		f.onMutate()
	}

	status, value, cas, flags := f.apply(op)
	complete := op.Complete
	f.queue = append(f.queue, func() {
		complete(status, value, cas, flags)
	})
	return nil
}

func (f *fakeTransport) apply(op *Op) (Status, []byte, uint64, uint32) {
	entry, exists := f.store[op.Key]

	switch op.Kind {
	case OpGet:
		if !exists {
			return StatusKeyNotFound, nil, 0, 0
		}
		return StatusSuccess, entry.value, entry.cas, entry.flags

	case OpGetAndTouch:
		if !exists {
			return StatusKeyNotFound, nil, 0, 0
		}
		entry.expiry = op.Expiry
		return StatusSuccess, entry.value, entry.cas, entry.flags

	case OpInsert:
		if exists {
			return StatusKeyExists, nil, 0, 0
		}
		cas := f.casSeq.Add(1)
		f.store[op.Key] = &fakeEntry{value: op.Value, cas: cas, flags: op.Flags, expiry: op.Expiry}
		return StatusSuccess, nil, cas, 0

	case OpReplace:
		if !exists {
			return StatusKeyNotFound, nil, 0, 0
		}
		if op.Cas != 0 && op.Cas != entry.cas {
			return StatusCasMismatch, nil, 0, 0
		}
		entry.value = op.Value
		entry.flags = op.Flags
		entry.expiry = op.Expiry
		entry.cas = f.casSeq.Add(1)
		return StatusSuccess, nil, entry.cas, 0

	case OpUpsert:
		if op.Cas != 0 {
			if !exists {
				return StatusKeyNotFound, nil, 0, 0
			}
			if op.Cas != entry.cas {
				return StatusCasMismatch, nil, 0, 0
			}
		}
		cas := f.casSeq.Add(1)
		f.store[op.Key] = &fakeEntry{value: op.Value, cas: cas, flags: op.Flags, expiry: op.Expiry}
		return StatusSuccess, nil, cas, 0

	case OpRemove:
		if !exists {
			return StatusKeyNotFound, nil, 0, 0
		}
		if op.Cas != 0 && op.Cas != entry.cas {
			return StatusCasMismatch, nil, 0, 0
		}
		delete(f.store, op.Key)
		return StatusSuccess, nil, 0, 0

	case OpTouch:
		if !exists {
			return StatusKeyNotFound, nil, 0, 0
		}
		entry.expiry = op.Expiry
		return StatusSuccess, nil, entry.cas, 0
	}

	return StatusServerError, nil, 0, 0
}

func (f *fakeTransport) SubmitViewQuery(q *ViewQuery) error {
	if f.closed {
		return ErrNetworkError
	}
	f.submits++

	v, ok := f.views[q.Method+":"+q.Path]
	if !ok {
		// Fall back to prefix matching so scripted views ignore options.
		for key, scripted := range f.views {
			if strings.HasPrefix(q.Method+":"+q.Path, key) {
				v = scripted
				ok = true
				break
			}
		}
	}
	if !ok {
		f.queue = append(f.queue, func() {
			q.OnFinal(StatusKeyNotFound, nil, 404)
		})
		return nil
	}

	// One queue slot per row keeps delivery granularity observable.
	for i := range v.rows {
		row := v.rows[i]
		f.queue = append(f.queue, func() {
			q.OnRow(row.Key, row.Value, row.ID, row.Geometry, row.Doc)
		})
	}
	f.queue = append(f.queue, func() {
		q.OnFinal(v.status, v.meta, v.httpStatus)
	})
	return nil
}

func (f *fakeTransport) WaitOne() bool {
	if len(f.queue) == 0 {
		return false
	}
	fn := f.queue[0]
	f.queue = f.queue[1:]
	fn()
	return true
}

func (f *fakeTransport) Wait() {
	for f.WaitOne() {
	}
}

func (f *fakeTransport) Close() error {
	f.closed = true
	f.queue = nil
	return nil
}

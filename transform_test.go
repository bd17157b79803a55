package couchkit

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func incrementCounter(doc *Document) (bool, error) {
	var n int
	if err := doc.ValueInto(&n); err != nil {
		return false, err
	}
	return true, doc.SetValue(n + 1)
}

func TestTransformApplied(t *testing.T) {
	bucket, ft := newTestBucket(t)
	ft.seed("counter", []byte(`41`), uint32(FmtJSON))

	doc, err := bucket.GetByID("counter")
	require.NoError(t, err)

	outcome, err := bucket.Transform(doc, incrementCounter)
	require.NoError(t, err)
	assert.Equal(t, TransformApplied, outcome)
	assert.Equal(t, []byte(`42`), ft.store["counter"].value)
	assert.True(t, doc.Ok())
}

func TestTransformSkipped(t *testing.T) {
	bucket, ft := newTestBucket(t)
	cas := ft.seed("frozen", []byte(`1`), uint32(FmtJSON))

	doc, err := bucket.GetByID("frozen")
	require.NoError(t, err)

	outcome, err := bucket.Transform(doc, func(*Document) (bool, error) {
		return false, nil
	})
	require.NoError(t, err)
	assert.Equal(t, TransformSkipped, outcome)
	assert.Equal(t, cas, ft.store["frozen"].cas, "skipped transform must not write")
}

func TestTransformFnError(t *testing.T) {
	bucket, ft := newTestBucket(t)
	ft.seed("bad", []byte(`1`), uint32(FmtJSON))

	boom := errors.New("boom")
	doc, err := bucket.GetByID("bad")
	require.NoError(t, err)

	outcome, err := bucket.Transform(doc, func(*Document) (bool, error) {
		return false, boom
	})
	assert.Equal(t, TransformFailed, outcome)
	assert.ErrorIs(t, err, boom)
}

func TestTransformRetriesOnCasMismatch(t *testing.T) {
	bucket, ft := newTestBucket(t)
	ft.seed("contested", []byte(`10`), uint32(FmtJSON))

	doc, err := bucket.GetByID("contested")
	require.NoError(t, err)

	// One concurrent write lands between our get and replace.
	raced := false
	ft.onMutate = func() {
		if !raced {
			raced = true
			ft.seed("contested", []byte(`100`), uint32(FmtJSON))
		}
	}

	calls := 0
	outcome, err := bucket.Transform(doc, func(d *Document) (bool, error) {
		calls++
		return incrementCounter(d)
	})
	require.NoError(t, err)
	assert.Equal(t, TransformApplied, outcome)
	assert.Equal(t, 2, calls, "transform must re-run against the refreshed value")
	assert.Equal(t, []byte(`101`), ft.store["contested"].value,
		"retry must apply on top of the racing writer's value")
	assert.EqualValues(t, 1, bucket.Stats().CasRetries)
}

func TestTransformExhaustedUnderContention(t *testing.T) {
	bucket, ft := newTestBucket(t)
	ft.seed("storm", []byte(`0`), uint32(FmtJSON))

	// Every attempt loses the race, and the budget is already spent.
	ft.onMutate = func() {
		ft.seed("storm", []byte(`0`), uint32(FmtJSON))
	}
	defer bucket.Config().Scoped(func(c *Config) {
		c.OperationTimeout = -time.Millisecond
	})()

	doc, err := bucket.GetByID("storm")
	require.NoError(t, err)

	outcome, err := bucket.Transform(doc, incrementCounter)
	require.NoError(t, err)
	assert.Equal(t, TransformExhausted, outcome)
	assert.Equal(t, StatusCasMismatch, doc.Status)
}

func TestTransformFailsOnMissingKey(t *testing.T) {
	bucket, _ := newTestBucket(t)

	doc := NewRawDocument("nowhere", []byte("v"))
	outcome, err := bucket.Transform(doc, func(*Document) (bool, error) {
		return true, nil
	})
	require.NoError(t, err)
	assert.Equal(t, TransformFailed, outcome)
	assert.Equal(t, StatusKeyNotFound, doc.Status)
}

func TestTransformValidation(t *testing.T) {
	bucket, _ := newTestBucket(t)

	outcome, err := bucket.Transform(nil, incrementCounter)
	assert.Equal(t, TransformFailed, outcome)
	assert.ErrorIs(t, err, ErrMalformedRequest)

	outcome, err = bucket.Transform(NewDocument("k"), nil)
	assert.Equal(t, TransformFailed, outcome)
	assert.ErrorIs(t, err, ErrMalformedRequest)
}

func TestTransformByID(t *testing.T) {
	bucket, ft := newTestBucket(t)
	ft.seed("n", []byte(`7`), uint32(FmtJSON))

	doc, outcome, err := bucket.TransformByID("n", incrementCounter)
	require.NoError(t, err)
	assert.Equal(t, TransformApplied, outcome)
	assert.Equal(t, []byte(`8`), doc.Value)
	assert.Equal(t, []byte(`8`), ft.store["n"].value)
}

func TestTransformByIDMissingKey(t *testing.T) {
	bucket, _ := newTestBucket(t)

	// The fetch misses; the transform fails on the first replace rather
	// than being short-circuited.
	doc, outcome, err := bucket.TransformByID("absent", func(d *Document) (bool, error) {
		d.Value = []byte(`1`)
		return true, nil
	})
	require.NoError(t, err)
	assert.Equal(t, TransformFailed, outcome)
	assert.Equal(t, StatusKeyNotFound, doc.Status)
}

func TestTransformOutcomeString(t *testing.T) {
	assert.Equal(t, "applied", TransformApplied.String())
	assert.Equal(t, "skipped", TransformSkipped.String())
	assert.Equal(t, "exhausted", TransformExhausted.String())
	assert.Equal(t, "failed", TransformFailed.String())
}

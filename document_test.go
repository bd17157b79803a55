package couchkit

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDocumentDefaults(t *testing.T) {
	doc := NewDocument("user:42")
	assert.Equal(t, "user:42", doc.ID)
	assert.Equal(t, FmtJSON, doc.Format)
	assert.Nil(t, doc.Value)
	assert.Zero(t, doc.Cas)
	assert.True(t, doc.Ok(), "new document should start in success state")

	raw := NewRawDocument("blob:1", []byte{0xDE, 0xAD})
	assert.Equal(t, FmtRaw, raw.Format)
	assert.Equal(t, []byte{0xDE, 0xAD}, raw.Value)
}

func TestDocumentJSONRoundTrip(t *testing.T) {
	type profile struct {
		Name string `json:"name"`
		Age  int    `json:"age"`
	}

	doc := NewDocument("profile:1")
	require.NoError(t, doc.SetValue(profile{Name: "ada", Age: 36}))
	assert.JSONEq(t, `{"name":"ada","age":36}`, string(doc.Value))

	var got profile
	require.NoError(t, doc.ValueInto(&got))
	assert.Equal(t, profile{Name: "ada", Age: 36}, got)
}

func TestDocumentStorableRoundTrip(t *testing.T) {
	doc := NewDocument("session:9")
	doc.Format = FmtStorable

	in := map[string]any{"token": "abc", "hits": int64(7)}
	require.NoError(t, doc.SetValue(in))

	var got map[string]any
	require.NoError(t, doc.ValueInto(&got))
	assert.Equal(t, "abc", got["token"])
	assert.EqualValues(t, 7, got["hits"])
}

func TestDocumentRawFormat(t *testing.T) {
	doc := NewRawDocument("raw:1", nil)

	require.NoError(t, doc.SetValue([]byte("payload")))
	assert.Equal(t, []byte("payload"), doc.Value)

	require.NoError(t, doc.SetValue("text"))
	assert.Equal(t, []byte("text"), doc.Value)

	err := doc.SetValue(42)
	assert.ErrorIs(t, err, ErrMalformedRequest)

	var out []byte
	require.NoError(t, doc.ValueInto(&out))
	assert.Equal(t, []byte("text"), out)

	var wrong string
	assert.ErrorIs(t, doc.ValueInto(&wrong), ErrMalformedRequest)
}

func TestDocumentStatusHelpers(t *testing.T) {
	doc := NewDocument("k")
	doc.Status = StatusKeyNotFound

	assert.False(t, doc.Ok())
	assert.ErrorIs(t, doc.Err(), ErrKeyNotFound)
	assert.Equal(t, "key not found", doc.ErrorMessage())

	doc.Status = StatusSuccess
	assert.True(t, doc.Ok())
	assert.NoError(t, doc.Err())
}

func TestStatusErrMapping(t *testing.T) {
	cases := []struct {
		status Status
		err    error
	}{
		{StatusSuccess, nil},
		{StatusKeyNotFound, ErrKeyNotFound},
		{StatusKeyExists, ErrKeyExists},
		{StatusCasMismatch, ErrCasMismatch},
		{StatusDurabilityTimeout, ErrDurabilityTimeout},
		{StatusOperationTimeout, ErrOperationTimeout},
		{StatusNetworkError, ErrNetworkError},
		{StatusServerError, ErrServerError},
	}
	for _, tc := range cases {
		if tc.err == nil {
			assert.NoError(t, tc.status.Err())
			continue
		}
		assert.ErrorIs(t, tc.status.Err(), tc.err, tc.status.String())
	}
}

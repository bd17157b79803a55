package memd

import (
	"bufio"
	"bytes"
	"io"
	"strconv"
)

var crlfBytes = []byte(CRLF)

// ReadFrame reads and parses a single server frame from r.
//
// Go errors returned indicate I/O or parsing failures:
//   - io.EOF wrapped in ConnectionError: connection closed
//   - ParseError: malformed frame, connection should be closed
//
// Server-side operation failures are not Go errors; they arrive as response
// statuses inside the frame.
func ReadFrame(r *bufio.Reader) (*Frame, error) {
	line, err := r.ReadSlice('\n')
	if err == bufio.ErrBufferFull {
		line, err = r.ReadBytes('\n')
	}
	if err != nil {
		return nil, &ConnectionError{Op: "read", Err: err}
	}
	line = bytes.TrimSuffix(line, crlfBytes)

	fields := bytes.Fields(line)
	if len(fields) == 0 {
		return nil, &ParseError{Message: "empty frame line"}
	}

	switch string(fields[0]) {
	case FrameMarkerResponse:
		return readResponseFrame(r, fields[1:])
	case FrameMarkerRow:
		return readRowFrame(r, fields[1:])
	case FrameMarkerFinal:
		return readFinalFrame(r, fields[1:])
	default:
		return nil, &ParseError{Message: "unknown frame marker: " + string(fields[0])}
	}
}

// RES <opaque> <status> <cas> <flags> <size>
func readResponseFrame(r *bufio.Reader, fields [][]byte) (*Frame, error) {
	if len(fields) != 5 {
		return nil, &ParseError{Message: "RES frame needs 5 fields"}
	}

	opaque, err := parseUint(fields[0])
	if err != nil {
		return nil, &ParseError{Message: "invalid opaque in RES frame", Err: err}
	}
	cas, err := parseUint(fields[2])
	if err != nil {
		return nil, &ParseError{Message: "invalid cas in RES frame", Err: err}
	}
	flags, err := parseUint(fields[3])
	if err != nil {
		return nil, &ParseError{Message: "invalid flags in RES frame", Err: err}
	}
	size, err := parseSize(fields[4])
	if err != nil {
		return nil, err
	}

	resp := &Response{
		Opaque: opaque,
		Status: StatusType(fields[1]),
		Cas:    cas,
		Flags:  uint32(flags),
	}
	if size > 0 {
		resp.Data, err = readDataBlock(r, size)
		if err != nil {
			return nil, err
		}
	}
	return &Frame{Kind: FrameResponse, Response: resp}, nil
}

// ROW <opaque> <klen> <vlen> <ilen> <glen> <dlen>
func readRowFrame(r *bufio.Reader, fields [][]byte) (*Frame, error) {
	if len(fields) != 6 {
		return nil, &ParseError{Message: "ROW frame needs 6 fields"}
	}

	opaque, err := parseUint(fields[0])
	if err != nil {
		return nil, &ParseError{Message: "invalid opaque in ROW frame", Err: err}
	}

	var sizes [5]int
	total := 0
	for i, f := range fields[1:] {
		sizes[i], err = parseSize(f)
		if err != nil {
			return nil, err
		}
		total += sizes[i]
	}

	data, err := readDataBlock(r, total)
	if err != nil {
		return nil, err
	}

	row := &Row{Opaque: opaque}
	segments := []*[]byte{&row.Key, &row.Value, &row.DocID, &row.Geometry, &row.Doc}
	offset := 0
	for i, seg := range segments {
		if sizes[i] == 0 {
			continue
		}
		*seg = data[offset : offset+sizes[i]]
		offset += sizes[i]
	}
	return &Frame{Kind: FrameRow, Row: row}, nil
}

// END <opaque> <status> <http> <size>
func readFinalFrame(r *bufio.Reader, fields [][]byte) (*Frame, error) {
	if len(fields) != 4 {
		return nil, &ParseError{Message: "END frame needs 4 fields"}
	}

	opaque, err := parseUint(fields[0])
	if err != nil {
		return nil, &ParseError{Message: "invalid opaque in END frame", Err: err}
	}
	httpStatus, err := strconv.Atoi(string(fields[2]))
	if err != nil {
		return nil, &ParseError{Message: "invalid http status in END frame", Err: err}
	}
	size, err := parseSize(fields[3])
	if err != nil {
		return nil, err
	}

	final := &Final{
		Opaque:     opaque,
		Status:     StatusType(fields[1]),
		HTTPStatus: httpStatus,
	}
	if size > 0 {
		final.Meta, err = readDataBlock(r, size)
		if err != nil {
			return nil, err
		}
	}
	return &Frame{Kind: FrameFinal, Final: final}, nil
}

// readDataBlock reads size bytes plus the trailing CRLF in one read.
func readDataBlock(r *bufio.Reader, size int) ([]byte, error) {
	data := make([]byte, size+2)
	if _, err := io.ReadFull(r, data); err != nil {
		return nil, &ParseError{Message: "failed to read data block", Err: err}
	}
	if !bytes.HasSuffix(data, crlfBytes) {
		return nil, &ParseError{Message: "invalid data block terminator"}
	}
	return data[:size], nil
}

func parseUint(b []byte) (uint64, error) {
	return strconv.ParseUint(string(b), 10, 64)
}

func parseSize(b []byte) (int, error) {
	size, err := strconv.Atoi(string(b))
	if err != nil {
		return 0, &ParseError{Message: "invalid size field", Err: err}
	}
	if size < 0 || size > MaxValueLength {
		return 0, &ParseError{Message: "size field out of range"}
	}
	return size, nil
}

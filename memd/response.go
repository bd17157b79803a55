package memd

// FrameKind discriminates the three server frame shapes.
type FrameKind uint8

const (
	// FrameResponse is an operation response (RES).
	FrameResponse FrameKind = iota

	// FrameRow is one view result row (ROW).
	FrameRow

	// FrameFinal is a view query's terminal frame (END).
	FrameFinal
)

// Response is a parsed operation response.
type Response struct {
	Opaque uint64
	Status StatusType
	Cas    uint64
	Flags  uint32
	Data   []byte // value bytes for reads, diagnostic text for ER
}

// IsSuccess reports whether the response indicates a successful operation.
func (r *Response) IsSuccess() bool {
	return r.Status == StatusOK
}

// IsMiss reports whether the response indicates a missing key.
func (r *Response) IsMiss() bool {
	return r.Status == StatusNotFound
}

// IsCasMismatch reports whether the response indicates a stale CAS token.
func (r *Response) IsCasMismatch() bool {
	return r.Status == StatusCasMismatch
}

// Row is one parsed view row. Absent segments are nil.
type Row struct {
	Opaque   uint64
	Key      []byte
	Value    []byte
	DocID    []byte
	Geometry []byte
	Doc      []byte
}

// Final is a view query's parsed terminal frame.
type Final struct {
	Opaque     uint64
	Status     StatusType
	HTTPStatus int
	Meta       []byte
}

// Frame is one parsed server frame; exactly one of the pointers matching
// Kind is set.
type Frame struct {
	Kind     FrameKind
	Response *Response
	Row      *Row
	Final    *Final
}

// OpaqueToken returns the correlation token of the frame regardless of kind.
func (f *Frame) OpaqueToken() uint64 {
	switch f.Kind {
	case FrameRow:
		return f.Row.Opaque
	case FrameFinal:
		return f.Final.Opaque
	default:
		return f.Response.Opaque
	}
}

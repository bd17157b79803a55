package memd

// CmdType represents a request command code (3 characters).
type CmdType string

// StatusType represents a response status code (2 characters).
type StatusType string

// Protocol delimiters
const (
	// CRLF is the line terminator
	CRLF = "\r\n"

	// Space separates line tokens
	Space = " "
)

// Command codes
const (
	CmdGet         CmdType = "GET" // retrieve value, CAS and flags
	CmdGetAndTouch CmdType = "GAT" // retrieve and update expiry
	CmdInsert      CmdType = "ADD" // store only if the key is absent
	CmdReplace     CmdType = "REP" // store only if the key exists, CAS-checked
	CmdUpsert      CmdType = "SET" // store unconditionally, CAS-checked if non-zero
	CmdRemove      CmdType = "DEL" // delete, CAS-checked if non-zero
	CmdTouch       CmdType = "TCH" // update expiry only
	CmdViewQuery   CmdType = "VQR" // view query; key is <method>:<path>
	CmdNoOp        CmdType = "NOP" // liveness check
)

// Frame markers for server frames
const (
	FrameMarkerResponse = "RES" // operation response
	FrameMarkerRow      = "ROW" // one view row
	FrameMarkerFinal    = "END" // view query terminal frame
)

// Response status codes
const (
	StatusOK                StatusType = "OK" // operation succeeded
	StatusNotFound          StatusType = "NF" // key does not exist
	StatusExists            StatusType = "EX" // insert on an existing key
	StatusCasMismatch       StatusType = "CM" // stale CAS token
	StatusDurabilityTimeout StatusType = "DT" // persist/replicate requirement not met
	StatusTimeout           StatusType = "TO" // server-side operation timeout
	StatusServerError       StatusType = "ER" // other server-side failure
)

// Protocol limits
const (
	// MaxKeyLength is the maximum key length in bytes.
	MaxKeyLength = 250

	// MaxValueLength is the maximum value size accepted on the wire.
	MaxValueLength = 20 * 1024 * 1024
)

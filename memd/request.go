package memd

import "strings"

// Request represents one wire request. This is a low-level container for
// request data without serialization logic; fields map directly to line
// tokens.
type Request struct {
	// Command is the 3-character command code.
	Command CmdType

	// Key is the document key (1-250 bytes, no whitespace). For
	// CmdViewQuery it carries "<method>:<path>". Empty for CmdNoOp.
	Key string

	// Opaque correlates the response frame(s) back to this request.
	Opaque uint64

	// Cas is the expected version token, zero for unconditional.
	Cas uint64

	// Expiry is an absolute Unix timestamp, zero for none.
	Expiry uint32

	// Flags is the item flags word stored alongside the value.
	Flags uint32

	// PersistTo / ReplicateTo are the durability requirements, sign
	// convention per the client: negative means best effort.
	PersistTo   int
	ReplicateTo int

	// Data is the value to store, or the view query body. Size is derived
	// from len(Data).
	Data []byte
}

// HasData reports whether the command carries a data block on the wire.
func (r *Request) HasData() bool {
	switch r.Command {
	case CmdInsert, CmdReplace, CmdUpsert, CmdViewQuery:
		return true
	default:
		return false
	}
}

// ViewRequest builds a CmdViewQuery request for a method and path.
func ViewRequest(opaque uint64, method, path string, body []byte) *Request {
	return &Request{
		Command: CmdViewQuery,
		Key:     method + ":" + path,
		Opaque:  opaque,
		Data:    body,
	}
}

// ValidateKey checks that a key fits the wire protocol: 1-250 bytes with no
// whitespace. View query keys additionally require the "<method>:" prefix,
// which the ViewRequest constructor guarantees.
func ValidateKey(key string) error {
	if len(key) == 0 {
		return &InvalidKeyError{Message: "key is empty"}
	}
	if len(key) > MaxKeyLength {
		return &InvalidKeyError{Message: "key exceeds maximum length of 250 bytes"}
	}
	if strings.ContainsAny(key, " \t\r\n") {
		return &InvalidKeyError{Message: "key contains whitespace"}
	}
	return nil
}

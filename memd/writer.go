package memd

import (
	"bufio"
	"strconv"
)

// WriteRequest serializes a request to wire format, writes it to bw and
// flushes.
//
// Format: <cmd> <key> <opaque> <cas> <expiry> <flags> <persist> <replicate> <size>\r\n[<data>\r\n]
//
// The key is validated before anything is written, so a validation failure
// leaves the connection usable.
func WriteRequest(bw *bufio.Writer, req *Request) error {
	if req.Command == CmdNoOp {
		bw.WriteString(string(CmdNoOp))
		bw.WriteString(CRLF)
		if err := bw.Flush(); err != nil {
			return &ConnectionError{Op: "write", Err: err}
		}
		return nil
	}

	if err := ValidateKey(req.Key); err != nil {
		return err
	}
	if len(req.Data) > MaxValueLength {
		return &InvalidKeyError{Message: "value exceeds maximum size"}
	}

	var scratch [20]byte

	bw.WriteString(string(req.Command))
	bw.WriteByte(' ')
	bw.WriteString(req.Key)
	bw.WriteByte(' ')
	bw.Write(strconv.AppendUint(scratch[:0], req.Opaque, 10))
	bw.WriteByte(' ')
	bw.Write(strconv.AppendUint(scratch[:0], req.Cas, 10))
	bw.WriteByte(' ')
	bw.Write(strconv.AppendUint(scratch[:0], uint64(req.Expiry), 10))
	bw.WriteByte(' ')
	bw.Write(strconv.AppendUint(scratch[:0], uint64(req.Flags), 10))
	bw.WriteByte(' ')
	bw.Write(strconv.AppendInt(scratch[:0], int64(req.PersistTo), 10))
	bw.WriteByte(' ')
	bw.Write(strconv.AppendInt(scratch[:0], int64(req.ReplicateTo), 10))
	bw.WriteByte(' ')
	bw.Write(strconv.AppendInt(scratch[:0], int64(len(req.Data)), 10))
	bw.WriteString(CRLF)

	if req.HasData() {
		if len(req.Data) > 0 {
			if _, err := bw.Write(req.Data); err != nil {
				return &ConnectionError{Op: "write", Err: err}
			}
		}
		bw.WriteString(CRLF)
	}

	if err := bw.Flush(); err != nil {
		return &ConnectionError{Op: "write", Err: err}
	}
	return nil
}

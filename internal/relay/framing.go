package relay

import "bytes"

// Terminator ends one request on the wire.
const Terminator = "\n\n\n\n"

var terminator = []byte(Terminator)

// splitRequest returns the bytes before the first terminator in buf and the
// bytes after it. ok is false when buf holds no complete request.
func splitRequest(buf []byte) (req, rest []byte, ok bool) {
	i := bytes.Index(buf, terminator)
	if i < 0 {
		return nil, buf, false
	}
	return buf[:i], buf[i+len(terminator):], true
}

// Frame appends the terminator to a query for sending to the relay.
func Frame(sql string) []byte {
	out := make([]byte, 0, len(sql)+len(terminator))
	out = append(out, sql...)
	return append(out, terminator...)
}

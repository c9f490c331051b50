// Package envelope finds the trailing citation payload that the answer
// stream appends after the prose: {"type":"sources","content":[...]}.
package envelope

import (
	"bytes"
	"encoding/json"
)

const sourcesType = "sources"

// Match locates a complete envelope inside a buffer.
type Match struct {
	Start   int
	End     int
	Content json.RawMessage
}

// header is the token sequence every envelope starts with. Whitespace is
// allowed between tokens.
var header = [][]byte{
	[]byte("{"),
	[]byte(`"type"`),
	[]byte(":"),
	[]byte(`"sources"`),
}

// Detect reports whether buf ends (ignoring trailing whitespace) with a
// syntactically complete sources object. The scan is right-anchored: the
// candidate start moves left one '{' at a time and the first candidate that
// is valid JSON decides the result. Incomplete input is simply not a match.
func Detect(buf []byte) (Match, bool) {
	end := len(bytes.TrimRight(buf, " \t\r\n"))
	if end == 0 || buf[end-1] != '}' {
		return Match{}, false
	}

	for i := bytes.LastIndexByte(buf[:end], '{'); i >= 0; i = bytes.LastIndexByte(buf[:i], '{') {
		candidate := buf[i:end]
		if !json.Valid(candidate) {
			continue
		}
		// Only one object can be valid and end at the same offset, so the
		// first valid candidate is final.
		var head struct {
			Type    string          `json:"type"`
			Content json.RawMessage `json:"content"`
		}
		if err := json.Unmarshal(candidate, &head); err != nil || head.Type != sourcesType {
			return Match{}, false
		}
		return Match{Start: i, End: end, Content: head.Content}, true
	}
	return Match{}, false
}

// PendingStart returns the offset of the leftmost '{' whose remainder is
// still consistent with an envelope header, or len(buf) when there is none.
// Bytes from that offset on may turn out to be an envelope once more of the
// stream arrives.
func PendingStart(buf []byte) int {
	for i := 0; i < len(buf); {
		j := bytes.IndexByte(buf[i:], '{')
		if j < 0 {
			break
		}
		if couldStartEnvelope(buf[i+j:]) {
			return i + j
		}
		i += j + 1
	}
	return len(buf)
}

func couldStartEnvelope(b []byte) bool {
	pos := 0
	for ti, tok := range header {
		if ti > 0 {
			for pos < len(b) && isSpace(b[pos]) {
				pos++
			}
		}
		if pos == len(b) {
			return true
		}
		n := len(tok)
		if rest := len(b) - pos; rest < n {
			n = rest
		}
		if !bytes.Equal(b[pos:pos+n], tok[:n]) {
			return false
		}
		pos += n
		if n < len(tok) {
			return true
		}
	}
	return true
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\r' || c == '\n'
}

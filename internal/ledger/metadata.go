package ledger

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"strings"
	"unicode/utf8"
)

// DecodeMetadata turns the JSON form of a label's metadatum into the payload
// string. Byte metadata arrives as "0x"-prefixed hex, long payloads as a list of
// chunks. It returns nil for null and for shapes that cannot carry a payload.
func DecodeMetadata(raw json.RawMessage) *string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil
	}

	switch raw[0] {
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil
		}
		decoded := decodeChunk(s)
		return &decoded
	case '[':
		var chunks []json.RawMessage
		if err := json.Unmarshal(raw, &chunks); err != nil {
			return nil
		}
		var payload []byte
		var literal strings.Builder
		for _, chunk := range chunks {
			var s string
			if err := json.Unmarshal(chunk, &s); err != nil {
				return nil
			}
			b, ok := chunkBytes(s)
			if !ok {
				b = []byte(s)
			}
			payload = append(payload, b...)
			literal.WriteString(s)
		}
		// chunks are cut at byte offsets, so a rune may span two of them
		if utf8.Valid(payload) {
			out := string(payload)
			return &out
		}
		out := literal.String()
		return &out
	default:
		return nil
	}
}

// decodeChunk returns the text of a single metadatum. A text metadatum that
// is itself valid "0x" hex cannot be told apart from a byte metadatum in the
// JSON rendering and is decoded as bytes too.
func decodeChunk(s string) string {
	b, ok := chunkBytes(s)
	if !ok || !utf8.Valid(b) {
		return s
	}
	return string(b)
}

// chunkBytes hex-decodes a "0x"-prefixed byte metadatum
func chunkBytes(s string) ([]byte, bool) {
	if !strings.HasPrefix(s, "0x") {
		return nil, false
	}
	b, err := hex.DecodeString(s[2:])
	if err != nil {
		return nil, false
	}
	return b, true
}

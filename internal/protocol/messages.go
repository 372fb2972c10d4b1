package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ENCODE (client -> server). Either Doc (a JSON object) or Text in the
// named Format is set.
type EncodeMsg struct {
	Type            string          `json:"type"`
	ProtocolVersion string          `json:"protocol_version"`
	ID              string          `json:"id"`
	Compression     string          `json:"compression,omitempty"`
	Doc             json.RawMessage `json:"doc,omitempty"`
	Format          string          `json:"format,omitempty"`
	Text            string          `json:"text,omitempty"`
}

// ERROR (server -> client)
type ErrorMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	ID              string `json:"id,omitempty"`
	Code            string `json:"code"`
	Message         string `json:"message"`
	Path            string `json:"path,omitempty"`
}

func NewError(id, code, message string) ErrorMsg {
	return ErrorMsg{
		Type:            TypeError,
		ProtocolVersion: Version,
		ID:              id,
		Code:            code,
		Message:         message,
	}
}

// MaxIDLen bounds request ids so they fit the one-byte length prefix of a
// binary reply.
const MaxIDLen = 255

var ErrBadReply = errors.New("malformed binary reply")

// AppendReply appends a binary ENCODE reply: [len(id) u8][id][payload].
func AppendReply(dst []byte, id string, payload []byte) ([]byte, error) {
	if len(id) > MaxIDLen {
		return dst, fmt.Errorf("id longer than %d bytes", MaxIDLen)
	}
	dst = append(dst, byte(len(id)))
	dst = append(dst, id...)
	return append(dst, payload...), nil
}

func SplitReply(b []byte) (id string, payload []byte, err error) {
	if len(b) < 1 || len(b) < 1+int(b[0]) {
		return "", nil, ErrBadReply
	}
	n := int(b[0])
	return string(b[1 : 1+n]), b[1+n:], nil
}

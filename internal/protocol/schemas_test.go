package protocol_test

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"nbtforge.ai/internal/protocol"
)

func TestSchemas_ValidateMessages(t *testing.T) {
	compile := func(name string) *jsonschema.Schema {
		t.Helper()
		p := filepath.Join("..", "..", "schemas", name)
		s, err := jsonschema.Compile(p)
		if err != nil {
			t.Fatalf("compile %s: %v", name, err)
		}
		return s
	}
	asAny := func(v any) any {
		t.Helper()
		b, err := json.Marshal(v)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		var out any
		if err := json.Unmarshal(b, &out); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		return out
	}

	encodeSchema := compile("encode.schema.json")
	errorSchema := compile("error.schema.json")

	req := protocol.EncodeMsg{
		Type:            protocol.TypeEncode,
		ProtocolVersion: protocol.Version,
		ID:              "r1",
		Compression:     "gzip",
		Doc:             json.RawMessage(`{"id":5}`),
	}
	if err := encodeSchema.Validate(asAny(req)); err != nil {
		t.Fatalf("validate encode: %v", err)
	}

	text := protocol.EncodeMsg{
		Type:            protocol.TypeEncode,
		ProtocolVersion: protocol.Version,
		ID:              "r2",
		Format:          "yaml",
		Text:            "id: 5\n",
	}
	if err := encodeSchema.Validate(asAny(text)); err != nil {
		t.Fatalf("validate encode text: %v", err)
	}

	bad := req
	bad.Compression = "brotli"
	if err := encodeSchema.Validate(asAny(bad)); err == nil {
		t.Fatalf("expected unknown compression rejected")
	}

	for _, code := range []string{protocol.ErrBadRequest, protocol.ErrBadLiteral, protocol.ErrInternal} {
		if err := errorSchema.Validate(asAny(protocol.NewError("r1", code, "boom"))); err != nil {
			t.Fatalf("validate error %s: %v", code, err)
		}
	}
}

func TestReplyFraming(t *testing.T) {
	b, err := protocol.AppendReply(nil, "req-7", []byte{10, 0, 0, 0})
	if err != nil {
		t.Fatalf("AppendReply: %v", err)
	}
	if b[0] != 5 {
		t.Fatalf("id length byte=%d want 5", b[0])
	}
	id, payload, err := protocol.SplitReply(b)
	if err != nil {
		t.Fatalf("SplitReply: %v", err)
	}
	if id != "req-7" || string(payload) != "\x0a\x00\x00\x00" {
		t.Fatalf("got id=%q payload=% x", id, payload)
	}

	if _, _, err := protocol.SplitReply([]byte{9, 'a'}); err != protocol.ErrBadReply {
		t.Fatalf("short reply: got %v", err)
	}
	long := make([]byte, protocol.MaxIDLen+1)
	if _, err := protocol.AppendReply(nil, string(long), nil); err == nil {
		t.Fatalf("expected long id rejected")
	}
}

func TestDecodeBase(t *testing.T) {
	m, err := protocol.DecodeBase([]byte(`{"type":"ENCODE","protocol_version":"1.0","id":"x"}`))
	if err != nil {
		t.Fatalf("DecodeBase: %v", err)
	}
	if m.Type != protocol.TypeEncode || m.ProtocolVersion != protocol.Version {
		t.Fatalf("got %+v", m)
	}
}

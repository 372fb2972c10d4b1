package ws

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"nbtforge.ai/internal/doc"
	"nbtforge.ai/internal/frame"
	"nbtforge.ai/internal/inspect"
	"nbtforge.ai/internal/nbt"
	"nbtforge.ai/internal/protocol"
)

func newTestServer(t *testing.T, cfg Config) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(NewServer(cfg, nil).Mux())
	t.Cleanup(srv.Close)
	return srv
}

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/v1/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func send(t *testing.T, conn *websocket.Conn, m protocol.EncodeMsg) (int, []byte) {
	t.Helper()
	m.Type = protocol.TypeEncode
	if m.ProtocolVersion == "" {
		m.ProtocolVersion = protocol.Version
	}
	b, err := json.Marshal(m)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
		t.Fatalf("write: %v", err)
	}
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	mt, reply, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	return mt, reply
}

func TestWS_EncodeRoundTrip(t *testing.T) {
	srv := newTestServer(t, Config{Compression: frame.Gzip})
	conn := dial(t, srv)

	mt, reply := send(t, conn, protocol.EncodeMsg{ID: "r1", Doc: json.RawMessage(`{"id":5,"health":"20.0d"}`)})
	if mt != websocket.BinaryMessage {
		t.Fatalf("expected binary reply, got %d: %s", mt, reply)
	}
	id, payload, err := protocol.SplitReply(reply)
	if err != nil {
		t.Fatalf("SplitReply: %v", err)
	}
	if id != "r1" {
		t.Fatalf("id=%q", id)
	}
	raw, c, err := frame.Decompress(payload)
	if err != nil {
		t.Fatalf("Decompress: %v", err)
	}
	if c != frame.Gzip {
		t.Fatalf("compression=%v want gzip", c)
	}
	want := nbt.MustEncode(nbt.Compound{{Name: "id", Value: 5}, {Name: "health", Value: "20.0d"}})
	if !bytes.Equal(raw, want) {
		t.Fatalf("payload mismatch:\n got % x\nwant % x", raw, want)
	}

	// YAML text with an explicit compression on the same connection.
	mt, reply = send(t, conn, protocol.EncodeMsg{ID: "r2", Format: "yaml", Text: "seed: !long 7\n", Compression: "none"})
	if mt != websocket.BinaryMessage {
		t.Fatalf("expected binary reply, got %s", reply)
	}
	_, payload, _ = protocol.SplitReply(reply)
	root, err := inspect.Parse(payload)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if tag := root.Get("seed"); tag == nil || tag.Kind != nbt.TagLong || tag.Value != int64(7) {
		t.Fatalf("seed tag: %+v", tag)
	}
}

func TestWS_Errors(t *testing.T) {
	srv := newTestServer(t, Config{})
	conn := dial(t, srv)

	cases := []struct {
		name string
		msg  protocol.EncodeMsg
		code string
	}{
		{"missing doc", protocol.EncodeMsg{ID: "a"}, protocol.ErrProtoBadRequest},
		{"bad version", protocol.EncodeMsg{ID: "b", ProtocolVersion: "0.1", Doc: json.RawMessage(`{}`)}, protocol.ErrProtoBadRequest},
		{"bad compression", protocol.EncodeMsg{ID: "c", Compression: "brotli", Doc: json.RawMessage(`{}`)}, protocol.ErrProtoBadRequest},
		{"root not mapping", protocol.EncodeMsg{ID: "d", Doc: json.RawMessage(`[1,2]`)}, protocol.ErrInvalidTarget},
		{"bad literal", protocol.EncodeMsg{ID: "e", Doc: json.RawMessage(`{"seed":"1.5l"}`)}, protocol.ErrBadLiteral},
		{"bad element", protocol.EncodeMsg{ID: "f", Doc: json.RawMessage(`{"xs":[1,9007199254740993]}`)}, protocol.ErrBadElement},
	}
	for _, tc := range cases {
		mt, reply := send(t, conn, tc.msg)
		if mt != websocket.TextMessage {
			t.Fatalf("%s: expected text reply", tc.name)
		}
		var em protocol.ErrorMsg
		if err := json.Unmarshal(reply, &em); err != nil {
			t.Fatalf("%s: unmarshal: %v", tc.name, err)
		}
		if em.Type != protocol.TypeError || em.Code != tc.code {
			t.Fatalf("%s: got %+v want code %s", tc.name, em, tc.code)
		}
		if em.ID != tc.msg.ID && tc.code != protocol.ErrProtoBadRequest {
			t.Fatalf("%s: id=%q want %q", tc.name, em.ID, tc.msg.ID)
		}
	}

	// The literal failure reports where it happened.
	_, reply := send(t, conn, protocol.EncodeMsg{ID: "g", Doc: json.RawMessage(`{"outer":{"seed":"1.5l"}}`)})
	var em protocol.ErrorMsg
	_ = json.Unmarshal(reply, &em)
	if em.Path != "outer.seed" {
		t.Fatalf("path=%q want outer.seed", em.Path)
	}
}

func TestHTTP_Encode(t *testing.T) {
	srv := newTestServer(t, Config{})

	resp, err := http.Post(srv.URL+"/v1/encode?compression=zstd", "application/json", strings.NewReader(`{"name":"diamond_sword","count":"3b"}`))
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		t.Fatalf("status=%d body=%s", resp.StatusCode, b)
	}
	if got := resp.Header.Get("X-NBT-Compression"); got != "zstd" {
		t.Fatalf("X-NBT-Compression=%q", got)
	}
	body, _ := io.ReadAll(resp.Body)
	raw, _, err := frame.Decompress(body)
	if err != nil {
		t.Fatalf("Decompress: %v", err)
	}
	root, err := inspect.Parse(raw)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if tag := root.Get("count"); tag == nil || tag.Kind != nbt.TagByte || tag.Value != int8(3) {
		t.Fatalf("count tag: %+v", tag)
	}
}

func TestHTTP_Errors(t *testing.T) {
	srv := newTestServer(t, Config{MaxRequestBytes: 64})

	resp, err := http.Get(srv.URL + "/v1/encode")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Fatalf("GET status=%d", resp.StatusCode)
	}

	post := func(body string) (int, protocol.ErrorMsg) {
		t.Helper()
		resp, err := http.Post(srv.URL+"/v1/encode", "application/json", strings.NewReader(body))
		if err != nil {
			t.Fatalf("POST: %v", err)
		}
		defer resp.Body.Close()
		var em protocol.ErrorMsg
		if err := json.NewDecoder(resp.Body).Decode(&em); err != nil {
			t.Fatalf("decode error body: %v", err)
		}
		return resp.StatusCode, em
	}

	if st, em := post(`{"a":`); st != http.StatusBadRequest || em.Code != protocol.ErrBadRequest {
		t.Fatalf("syntax: status=%d %+v", st, em)
	}
	if st, em := post(`{"a":"` + strings.Repeat("x", 100) + `"}`); st != http.StatusRequestEntityTooLarge || em.Code != protocol.ErrTooLarge {
		t.Fatalf("too large: status=%d %+v", st, em)
	}
	if st, em := post(`{"a":"1.5l"}`); st != http.StatusUnprocessableEntity || em.Code != protocol.ErrBadLiteral || em.Path != "a" {
		t.Fatalf("literal: status=%d %+v", st, em)
	}
}

func TestHTTP_SchemaRejects(t *testing.T) {
	path := filepath.Join(t.TempDir(), "s.json")
	if err := os.WriteFile(path, []byte(`{"type":"object","required":["id"]}`), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	schema, err := doc.CompileSchema(path)
	if err != nil {
		t.Fatalf("CompileSchema: %v", err)
	}
	srv := newTestServer(t, Config{Schema: schema})

	resp, err := http.Post(srv.URL+"/v1/encode", "application/json", strings.NewReader(`{"name":"x"}`))
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	defer resp.Body.Close()
	var em protocol.ErrorMsg
	_ = json.NewDecoder(resp.Body).Decode(&em)
	if resp.StatusCode != http.StatusUnprocessableEntity || em.Code != protocol.ErrSchema {
		t.Fatalf("status=%d %+v", resp.StatusCode, em)
	}
}

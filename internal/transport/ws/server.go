package ws

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"nbtforge.ai/internal/doc"
	"nbtforge.ai/internal/frame"
	"nbtforge.ai/internal/index"
	"nbtforge.ai/internal/protocol"
)

const DefaultMaxRequestBytes = 4 << 20

type Config struct {
	// Compression applies when a request does not name one.
	Compression     frame.Compression
	Schema          *doc.Schema
	Index           *index.Index
	MaxRequestBytes int64
}

type Server struct {
	cfg Config
	log *log.Logger

	upgrader websocket.Upgrader
}

func NewServer(cfg Config, logger *log.Logger) *Server {
	if cfg.MaxRequestBytes <= 0 {
		cfg.MaxRequestBytes = DefaultMaxRequestBytes
	}
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	s := &Server{
		cfg: cfg,
		log: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  64 * 1024,
			WriteBufferSize: 64 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true }, // dev default
		},
	}
	return s
}

// Mux routes /healthz, /v1/encode and /v1/ws.
func (s *Server) Mux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(rw http.ResponseWriter, r *http.Request) {
		rw.WriteHeader(200)
		_, _ = rw.Write([]byte("ok"))
	})
	mux.HandleFunc("/v1/encode", s.EncodeHandler())
	mux.HandleFunc("/v1/ws", s.Handler())
	return mux
}

// Handler serves ENCODE requests over a websocket. Each text message gets
// exactly one reply: a binary frame on success or an ERROR message.
func (s *Server) Handler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		conn, err := s.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		conn.SetReadLimit(s.cfg.MaxRequestBytes)

		for {
			_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
			mt, msg, err := conn.ReadMessage()
			if err != nil {
				if errors.Is(err, websocket.ErrReadLimit) {
					_ = writeJSON(conn, protocol.NewError("", protocol.ErrTooLarge, "message too large"))
				}
				return
			}
			if mt != websocket.TextMessage {
				if err := writeJSON(conn, protocol.NewError("", protocol.ErrProtoBadRequest, "expected text message")); err != nil {
					return
				}
				continue
			}
			if err := s.serveMessage(conn, msg, r.RemoteAddr); err != nil {
				return
			}
		}
	}
}

func (s *Server) serveMessage(conn *websocket.Conn, msg []byte, remote string) error {
	base, err := protocol.DecodeBase(msg)
	if err != nil {
		return writeJSON(conn, protocol.NewError("", protocol.ErrProtoBadRequest, "bad json"))
	}
	if base.Type != protocol.TypeEncode {
		return writeJSON(conn, protocol.NewError("", protocol.ErrProtoBadRequest, "unsupported type "+base.Type))
	}
	var m protocol.EncodeMsg
	if err := json.Unmarshal(msg, &m); err != nil {
		return writeJSON(conn, protocol.NewError("", protocol.ErrProtoBadRequest, err.Error()))
	}
	if m.ProtocolVersion != protocol.Version {
		return writeJSON(conn, protocol.NewError(m.ID, protocol.ErrProtoBadRequest, "bad protocol_version"))
	}
	if len(m.ID) > protocol.MaxIDLen {
		return writeJSON(conn, protocol.NewError("", protocol.ErrProtoBadRequest, "id too long"))
	}

	d, c, err := s.decodeRequest(m)
	if err == nil {
		var framed []byte
		framed, err = s.encode(d, c, "ws:"+remote)
		if err == nil {
			reply, _ := protocol.AppendReply(make([]byte, 0, 1+len(m.ID)+len(framed)), m.ID, framed)
			_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
			return conn.WriteMessage(websocket.BinaryMessage, reply)
		}
	}
	s.log.Printf("ws encode id=%s: %v", m.ID, err)
	return writeJSON(conn, errorMsg(m.ID, err))
}

// EncodeHandler serves POST /v1/encode. The body is the document itself;
// ?format= selects its syntax (default json) and ?compression= the framing.
func (s *Server) EncodeHandler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			rw.Header().Set("Allow", http.MethodPost)
			http.Error(rw, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		body, err := io.ReadAll(http.MaxBytesReader(rw, r.Body, s.cfg.MaxRequestBytes))
		if err != nil {
			var mbe *http.MaxBytesError
			if errors.As(err, &mbe) {
				writeHTTPError(rw, http.StatusRequestEntityTooLarge, protocol.NewError("", protocol.ErrTooLarge, err.Error()))
				return
			}
			writeHTTPError(rw, http.StatusBadRequest, protocol.NewError("", protocol.ErrProtoBadRequest, err.Error()))
			return
		}

		q := r.URL.Query()
		m := protocol.EncodeMsg{Compression: q.Get("compression")}
		if f := q.Get("format"); f != "" && f != "json" {
			m.Format, m.Text = f, string(body)
		} else {
			m.Doc = body
		}
		if len(body) == 0 {
			m.Doc, m.Text = nil, ""
		}

		d, c, err := s.decodeRequest(m)
		if err == nil {
			var framed []byte
			framed, err = s.encode(d, c, "http:"+r.RemoteAddr)
			if err == nil {
				rw.Header().Set("Content-Type", "application/octet-stream")
				rw.Header().Set("X-NBT-Compression", c.String())
				_, _ = rw.Write(framed)
				return
			}
		}
		s.log.Printf("http encode: %v", err)
		writeHTTPError(rw, statusOf(err), errorMsg("", err))
	}
}

func writeHTTPError(rw http.ResponseWriter, status int, m protocol.ErrorMsg) {
	rw.Header().Set("Content-Type", "application/json")
	rw.WriteHeader(status)
	_ = json.NewEncoder(rw).Encode(m)
}

func writeJSON(conn *websocket.Conn, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	return conn.WriteMessage(websocket.TextMessage, b)
}

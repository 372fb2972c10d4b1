package ws

import (
	"errors"
	"fmt"
	"net/http"

	"nbtforge.ai/internal/doc"
	"nbtforge.ai/internal/frame"
	"nbtforge.ai/internal/index"
	"nbtforge.ai/internal/nbt"
	"nbtforge.ai/internal/protocol"
)

// requestError carries the protocol code for a failed request.
type requestError struct {
	code   string
	status int
	path   string
	err    error
}

func (e *requestError) Error() string { return e.err.Error() }
func (e *requestError) Unwrap() error { return e.err }

func badRequest(code string, err error) *requestError {
	return &requestError{code: code, status: http.StatusBadRequest, err: err}
}

// classifyEncodeError maps encoder failures to protocol codes.
func classifyEncodeError(err error) *requestError {
	re := &requestError{code: protocol.ErrInternal, status: http.StatusInternalServerError, err: err}
	var ee *nbt.EncodeError
	if errors.As(err, &ee) {
		re.path = ee.Path
	}
	var le *nbt.LiteralError
	var ce *nbt.CoercionError
	switch {
	case errors.Is(err, nbt.ErrRootNotRecord):
		re.code, re.status = protocol.ErrInvalidTarget, http.StatusUnprocessableEntity
	case errors.As(err, &le):
		re.code, re.status = protocol.ErrBadLiteral, http.StatusUnprocessableEntity
	case errors.As(err, &ce):
		re.code, re.status = protocol.ErrBadElement, http.StatusUnprocessableEntity
	case errors.Is(err, nbt.ErrStringTooLong):
		re.code, re.status = protocol.ErrStringLimit, http.StatusUnprocessableEntity
	}
	return re
}

// encode runs one document through validation, the encoder and framing.
// source names the request in the index.
func (s *Server) encode(d *doc.Document, c frame.Compression, source string) ([]byte, error) {
	if s.cfg.Schema != nil {
		if err := s.cfg.Schema.Validate(d); err != nil {
			re := badRequest(protocol.ErrSchema, err)
			re.status = http.StatusUnprocessableEntity
			return nil, re
		}
	}
	raw, err := nbt.Encode(d.Root)
	if err != nil {
		return nil, classifyEncodeError(err)
	}
	framed, err := frame.Compress(raw, c)
	if err != nil {
		return nil, &requestError{code: protocol.ErrInternal, status: http.StatusInternalServerError, err: fmt.Errorf("compress: %w", err)}
	}
	if s.cfg.Index != nil {
		s.cfg.Index.Record(index.Entry{
			Source:      source,
			Format:      d.Format.String(),
			Compression: c.String(),
			RawSize:     int64(len(raw)),
			FramedSize:  int64(len(framed)),
			Digest:      index.Digest(raw),
		})
	}
	return framed, nil
}

// decodeRequest turns an ENCODE message into a document and compression.
func (s *Server) decodeRequest(m protocol.EncodeMsg) (*doc.Document, frame.Compression, error) {
	c := s.cfg.Compression
	if m.Compression != "" {
		var err error
		if c, err = frame.ParseCompression(m.Compression); err != nil {
			return nil, 0, badRequest(protocol.ErrProtoBadRequest, err)
		}
	}
	var (
		d   *doc.Document
		err error
	)
	switch {
	case len(m.Doc) > 0 && m.Text != "":
		return nil, 0, badRequest(protocol.ErrProtoBadRequest, errors.New("doc and text are mutually exclusive"))
	case len(m.Doc) > 0:
		d, err = doc.Decode(m.Doc, doc.FormatJSON)
	case m.Text != "":
		f := doc.FormatYAML
		if m.Format != "" {
			if f, err = doc.ParseFormat(m.Format); err != nil {
				return nil, 0, badRequest(protocol.ErrProtoBadRequest, err)
			}
		}
		d, err = doc.Decode([]byte(m.Text), f)
	default:
		return nil, 0, badRequest(protocol.ErrProtoBadRequest, errors.New("missing doc"))
	}
	if err != nil {
		if errors.Is(err, doc.ErrRootNotMapping) {
			re := badRequest(protocol.ErrInvalidTarget, err)
			re.status = http.StatusUnprocessableEntity
			return nil, 0, re
		}
		return nil, 0, badRequest(protocol.ErrBadRequest, err)
	}
	return d, c, nil
}

func errorMsg(id string, err error) protocol.ErrorMsg {
	var re *requestError
	if !errors.As(err, &re) {
		return protocol.NewError(id, protocol.ErrInternal, err.Error())
	}
	m := protocol.NewError(id, re.code, re.Error())
	m.Path = re.path
	return m
}

func statusOf(err error) int {
	var re *requestError
	if errors.As(err, &re) {
		return re.status
	}
	return http.StatusInternalServerError
}

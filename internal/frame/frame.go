// Package frame wraps encoded NBT in the compression formats NBT files are
// commonly stored in.
package frame

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zlib"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

type Compression int

const (
	None Compression = iota
	Gzip
	Zlib
	Zstd
	LZ4
)

var compressionNames = map[Compression]string{
	None: "none",
	Gzip: "gzip",
	Zlib: "zlib",
	Zstd: "zstd",
	LZ4:  "lz4",
}

func (c Compression) String() string {
	if s, ok := compressionNames[c]; ok {
		return s
	}
	return fmt.Sprintf("compression(%d)", int(c))
}

// Ext is the conventional file suffix for c ("" for None).
func (c Compression) Ext() string {
	switch c {
	case Gzip:
		return ".gz"
	case Zlib:
		return ".zlib"
	case Zstd:
		return ".zst"
	case LZ4:
		return ".lz4"
	}
	return ""
}

func ParseCompression(s string) (Compression, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none", "raw":
		return None, nil
	case "gzip", "gz":
		return Gzip, nil
	case "zlib":
		return Zlib, nil
	case "zstd", "zst":
		return Zstd, nil
	case "lz4":
		return LZ4, nil
	}
	return None, fmt.Errorf("unknown compression %q", s)
}

func (c *Compression) UnmarshalText(b []byte) error {
	v, err := ParseCompression(string(b))
	if err != nil {
		return err
	}
	*c = v
	return nil
}

func (c Compression) MarshalText() ([]byte, error) { return []byte(c.String()), nil }

type nopCloser struct{ io.Writer }

func (nopCloser) Close() error { return nil }

// NewWriter returns a writer compressing into w. Close flushes the stream
// but does not close w.
func NewWriter(w io.Writer, c Compression) (io.WriteCloser, error) {
	switch c {
	case None:
		return nopCloser{w}, nil
	case Gzip:
		return gzip.NewWriter(w), nil
	case Zlib:
		return zlib.NewWriter(w), nil
	case Zstd:
		enc, err := zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedDefault))
		if err != nil {
			return nil, err
		}
		return enc, nil
	case LZ4:
		return lz4.NewWriter(w), nil
	}
	return nil, fmt.Errorf("unknown compression %v", c)
}

// Sniff identifies the compression of a stream from its first bytes.
func Sniff(head []byte) Compression {
	switch {
	case len(head) >= 2 && head[0] == 0x1f && head[1] == 0x8b:
		return Gzip
	case len(head) >= 4 && head[0] == 0x28 && head[1] == 0xb5 && head[2] == 0x2f && head[3] == 0xfd:
		return Zstd
	case len(head) >= 4 && head[0] == 0x04 && head[1] == 0x22 && head[2] == 0x4d && head[3] == 0x18:
		return LZ4
	case len(head) >= 2 && head[0] == 0x78 && (uint16(head[0])<<8|uint16(head[1]))%31 == 0:
		return Zlib
	}
	return None
}

type readCloser struct {
	io.Reader
	close func() error
}

func (r readCloser) Close() error {
	if r.close == nil {
		return nil
	}
	return r.close()
}

// NewReader detects the compression of r and returns a decompressing reader.
func NewReader(r io.Reader) (io.ReadCloser, Compression, error) {
	br := bufio.NewReaderSize(r, 64*1024)
	head, _ := br.Peek(4)
	c := Sniff(head)
	switch c {
	case Gzip:
		zr, err := gzip.NewReader(br)
		if err != nil {
			return nil, c, err
		}
		return zr, c, nil
	case Zlib:
		zr, err := zlib.NewReader(br)
		if err != nil {
			return nil, c, err
		}
		return zr, c, nil
	case Zstd:
		dec, err := zstd.NewReader(br)
		if err != nil {
			return nil, c, err
		}
		return readCloser{Reader: dec, close: func() error { dec.Close(); return nil }}, c, nil
	case LZ4:
		return readCloser{Reader: lz4.NewReader(br)}, c, nil
	}
	return readCloser{Reader: br}, None, nil
}

// Compress returns data framed with c.
func Compress(data []byte, c Compression) ([]byte, error) {
	if c == None {
		return data, nil
	}
	var buf bytes.Buffer
	w, err := NewWriter(&buf, c)
	if err != nil {
		return nil, err
	}
	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("%s close: %w", c, err)
	}
	return buf.Bytes(), nil
}

// Decompress reverses Compress, detecting the framing.
func Decompress(data []byte) ([]byte, Compression, error) {
	r, c, err := NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, c, err
	}
	defer r.Close()
	out, err := io.ReadAll(r)
	if err != nil {
		return nil, c, fmt.Errorf("%s read: %w", c, err)
	}
	return out, c, nil
}

// WriteFile frames data with c and writes it to path through a temp file
// and rename. Parent directories are created.
func WriteFile(path string, data []byte, c Compression) (int64, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return 0, err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp-*")
	if err != nil {
		return 0, err
	}
	defer os.Remove(tmp.Name())

	cw := &countingWriter{w: tmp}
	fw, err := NewWriter(cw, c)
	if err != nil {
		_ = tmp.Close()
		return 0, err
	}
	if _, err := fw.Write(data); err != nil {
		_ = tmp.Close()
		return 0, err
	}
	if err := fw.Close(); err != nil {
		_ = tmp.Close()
		return 0, err
	}
	if err := tmp.Close(); err != nil {
		return 0, err
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return 0, err
	}
	return cw.n, nil
}

// ReadFile reads path and strips any framing.
func ReadFile(path string) ([]byte, Compression, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, None, err
	}
	defer f.Close()
	r, c, err := NewReader(f)
	if err != nil {
		return nil, c, err
	}
	defer r.Close()
	out, err := io.ReadAll(r)
	return out, c, err
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}

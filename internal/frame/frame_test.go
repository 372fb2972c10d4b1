package frame

import (
	"bytes"
	"path/filepath"
	"testing"
)

func payload() []byte {
	b := make([]byte, 0, 4096)
	for i := 0; i < 4096; i++ {
		b = append(b, byte(i%17))
	}
	return b
}

func TestCompress_RoundTrip(t *testing.T) {
	in := payload()
	for _, c := range []Compression{None, Gzip, Zlib, Zstd, LZ4} {
		framed, err := Compress(in, c)
		if err != nil {
			t.Fatalf("%s: Compress: %v", c, err)
		}
		if got := Sniff(framed); got != c {
			t.Fatalf("%s: Sniff: got %s", c, got)
		}
		out, detected, err := Decompress(framed)
		if err != nil {
			t.Fatalf("%s: Decompress: %v", c, err)
		}
		if detected != c {
			t.Fatalf("%s: detected %s", c, detected)
		}
		if !bytes.Equal(out, in) {
			t.Fatalf("%s: payload mismatch", c)
		}
	}
}

func TestSniff_RawNBT(t *testing.T) {
	// An uncompressed document starts with the compound opcode.
	if got := Sniff([]byte{10, 0, 0, 0}); got != None {
		t.Fatalf("got %s want none", got)
	}
}

func TestParseCompression(t *testing.T) {
	cases := map[string]Compression{"": None, "GZIP": Gzip, "gz": Gzip, "zlib": Zlib, "zst": Zstd, "lz4": LZ4}
	for in, want := range cases {
		got, err := ParseCompression(in)
		if err != nil || got != want {
			t.Fatalf("ParseCompression(%q): got %s, %v want %s", in, got, err, want)
		}
	}
	if _, err := ParseCompression("brotli"); err == nil {
		t.Fatalf("expected error for brotli")
	}
}

func TestWriteFile_ReadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "level.dat")
	in := payload()
	n, err := WriteFile(path, in, Gzip)
	if err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if n <= 0 || n >= int64(len(in)) {
		t.Fatalf("framed size: got %d", n)
	}
	out, c, err := ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if c != Gzip || !bytes.Equal(out, in) {
		t.Fatalf("ReadFile: compression=%s equal=%v", c, bytes.Equal(out, in))
	}
}

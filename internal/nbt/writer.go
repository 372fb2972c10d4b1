package nbt

import (
	"encoding/binary"
	"errors"
	"math"
)

// ErrStringTooLong is recorded when a name or string payload exceeds the
// uint16 length prefix.
var ErrStringTooLong = errors.New("nbt: string longer than 65535 bytes")

// Writer appends NBT tags to a single growable buffer.
//
// Every multi-byte value is written big-endian. Calls chain:
//
//	w.Compound(nbt.Unnamed).Int(5, nbt.Named("id")).End()
//
// A Writer is not safe for concurrent use. The first length overflow is kept
// in Err; writing continues so the buffer layout stays self-consistent.
type Writer struct {
	buf []byte
	err error
}

// NewWriter returns a Writer whose buffer starts with capacity sizeHint.
func NewWriter(sizeHint int) *Writer {
	if sizeHint < 0 {
		sizeHint = 0
	}
	return &Writer{buf: make([]byte, 0, sizeHint)}
}

func (w *Writer) Bytes() []byte { return w.buf }
func (w *Writer) Len() int      { return len(w.buf) }
func (w *Writer) Err() error    { return w.err }

// Reset drops the buffered bytes and any recorded error, keeping capacity.
func (w *Writer) Reset() {
	w.buf = w.buf[:0]
	w.err = nil
}

func (w *Writer) End() *Writer {
	w.buf = append(w.buf, byte(TagEnd))
	return w
}

func (w *Writer) Byte(v int8, name Name) *Writer {
	w.header(TagByte, name)
	w.buf = append(w.buf, byte(v))
	return w
}

func (w *Writer) Short(v int16, name Name) *Writer {
	w.header(TagShort, name)
	w.buf = binary.BigEndian.AppendUint16(w.buf, uint16(v))
	return w
}

func (w *Writer) Int(v int32, name Name) *Writer {
	w.header(TagInt, name)
	w.buf = binary.BigEndian.AppendUint32(w.buf, uint32(v))
	return w
}

func (w *Writer) Long(v int64, name Name) *Writer {
	w.header(TagLong, name)
	w.buf = binary.BigEndian.AppendUint64(w.buf, uint64(v))
	return w
}

func (w *Writer) Float(v float32, name Name) *Writer {
	w.header(TagFloat, name)
	w.buf = binary.BigEndian.AppendUint32(w.buf, math.Float32bits(v))
	return w
}

func (w *Writer) Double(v float64, name Name) *Writer {
	w.header(TagDouble, name)
	w.buf = binary.BigEndian.AppendUint64(w.buf, math.Float64bits(v))
	return w
}

func (w *Writer) ByteArray(v []int8, name Name) *Writer {
	w.header(TagByteArray, name)
	w.buf = binary.BigEndian.AppendUint32(w.buf, uint32(len(v)))
	w.grow(len(v))
	for _, b := range v {
		w.buf = append(w.buf, byte(b))
	}
	return w
}

// String writes a STRING tag. The length prefix counts UTF-8 bytes.
func (w *Writer) String(v string, name Name) *Writer {
	w.header(TagString, name)
	w.text(v)
	return w
}

// List writes a LIST header: element opcode and count. The n elements must
// follow as ListElement writes of kind elem.
func (w *Writer) List(elem Kind, n int32, name Name) *Writer {
	w.header(TagList, name)
	w.buf = append(w.buf, byte(elem))
	w.buf = binary.BigEndian.AppendUint32(w.buf, uint32(n))
	return w
}

// Compound opens a compound. Children follow; close it with End.
func (w *Writer) Compound(name Name) *Writer {
	w.header(TagCompound, name)
	return w
}

func (w *Writer) IntArray(v []int32, name Name) *Writer {
	w.header(TagIntArray, name)
	w.buf = binary.BigEndian.AppendUint32(w.buf, uint32(len(v)))
	w.grow(4 * len(v))
	for _, x := range v {
		w.buf = binary.BigEndian.AppendUint32(w.buf, uint32(x))
	}
	return w
}

func (w *Writer) LongArray(v []int64, name Name) *Writer {
	w.header(TagLongArray, name)
	w.buf = binary.BigEndian.AppendUint32(w.buf, uint32(len(v)))
	w.grow(8 * len(v))
	for _, x := range v {
		w.buf = binary.BigEndian.AppendUint64(w.buf, uint64(x))
	}
	return w
}

func (w *Writer) header(k Kind, name Name) {
	if !name.HasHeader() {
		return
	}
	w.buf = append(w.buf, byte(k))
	w.text(name.s)
}

func (w *Writer) text(s string) {
	if len(s) > math.MaxUint16 && w.err == nil {
		w.err = ErrStringTooLong
	}
	w.buf = binary.BigEndian.AppendUint16(w.buf, uint16(len(s)))
	w.buf = append(w.buf, s...)
}

func (w *Writer) grow(n int) {
	if cap(w.buf)-len(w.buf) >= n {
		return
	}
	next := make([]byte, len(w.buf), 2*cap(w.buf)+n)
	copy(next, w.buf)
	w.buf = next
}

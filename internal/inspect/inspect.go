// Package inspect reads uncompressed NBT back into a tag tree for dumping
// and for checking encoder output.
package inspect

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"strconv"

	"nbtforge.ai/internal/nbt"
)

const maxDepth = 512

var (
	ErrTruncated = errors.New("inspect: truncated input")
	ErrTrailing  = errors.New("inspect: trailing bytes after root tag")
	ErrTooDeep   = errors.New("inspect: nesting deeper than 512")
)

type UnknownKindError struct {
	Kind   nbt.Kind
	Offset int
}

func (e *UnknownKindError) Error() string {
	return fmt.Sprintf("inspect: unknown tag type %d at offset %d", uint8(e.Kind), e.Offset)
}

// Tag is one decoded tag. Value holds int8, int16, int32, int64, float32,
// float64, []int8, string, []int32, []int64, or []*Tag for lists and
// compounds. ElemKind is set for lists.
type Tag struct {
	Kind     nbt.Kind
	Name     string
	ElemKind nbt.Kind
	Value    any
}

// Children returns list elements or compound members.
func (t *Tag) Children() []*Tag {
	if t == nil {
		return nil
	}
	c, _ := t.Value.([]*Tag)
	return c
}

// Get walks compound member names and list indexes. Missing steps return nil.
func (t *Tag) Get(path ...string) *Tag {
	cur := t
	for _, step := range path {
		if cur == nil {
			return nil
		}
		switch cur.Kind {
		case nbt.TagCompound:
			var next *Tag
			for _, c := range cur.Children() {
				if c.Name == step {
					next = c
					break
				}
			}
			cur = next
		case nbt.TagList:
			i, err := strconv.Atoi(step)
			kids := cur.Children()
			if err != nil || i < 0 || i >= len(kids) {
				return nil
			}
			cur = kids[i]
		default:
			return nil
		}
	}
	return cur
}

// Parse decodes exactly one named root tag.
func Parse(data []byte) (*Tag, error) {
	r := &reader{b: data}
	k, err := r.kind()
	if err != nil {
		return nil, err
	}
	name, err := r.string()
	if err != nil {
		return nil, err
	}
	t, err := r.payload(k, 0)
	if err != nil {
		return nil, err
	}
	t.Name = name
	if r.off != len(r.b) {
		return nil, fmt.Errorf("%w (%d)", ErrTrailing, len(r.b)-r.off)
	}
	return t, nil
}

type reader struct {
	b   []byte
	off int
}

func (r *reader) take(n int) ([]byte, error) {
	if n < 0 || len(r.b)-r.off < n {
		return nil, ErrTruncated
	}
	p := r.b[r.off : r.off+n]
	r.off += n
	return p, nil
}

func (r *reader) kind() (nbt.Kind, error) {
	p, err := r.take(1)
	if err != nil {
		return 0, err
	}
	k := nbt.Kind(p[0])
	if !k.Valid() {
		return 0, &UnknownKindError{Kind: k, Offset: r.off - 1}
	}
	return k, nil
}

func (r *reader) u16() (uint16, error) {
	p, err := r.take(2)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint16(p), nil
}

func (r *reader) u32() (uint32, error) {
	p, err := r.take(4)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(p), nil
}

func (r *reader) u64() (uint64, error) {
	p, err := r.take(8)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint64(p), nil
}

func (r *reader) string() (string, error) {
	n, err := r.u16()
	if err != nil {
		return "", err
	}
	p, err := r.take(int(n))
	if err != nil {
		return "", err
	}
	return string(p), nil
}

func (r *reader) count() (int, error) {
	n, err := r.u32()
	if err != nil {
		return 0, err
	}
	c := int(int32(n))
	if c < 0 {
		c = 0
	}
	return c, nil
}

func (r *reader) payload(k nbt.Kind, depth int) (*Tag, error) {
	if depth > maxDepth {
		return nil, ErrTooDeep
	}
	t := &Tag{Kind: k}
	switch k {
	case nbt.TagByte:
		p, err := r.take(1)
		if err != nil {
			return nil, err
		}
		t.Value = int8(p[0])
	case nbt.TagShort:
		v, err := r.u16()
		if err != nil {
			return nil, err
		}
		t.Value = int16(v)
	case nbt.TagInt:
		v, err := r.u32()
		if err != nil {
			return nil, err
		}
		t.Value = int32(v)
	case nbt.TagLong:
		v, err := r.u64()
		if err != nil {
			return nil, err
		}
		t.Value = int64(v)
	case nbt.TagFloat:
		v, err := r.u32()
		if err != nil {
			return nil, err
		}
		t.Value = math.Float32frombits(v)
	case nbt.TagDouble:
		v, err := r.u64()
		if err != nil {
			return nil, err
		}
		t.Value = math.Float64frombits(v)
	case nbt.TagByteArray:
		n, err := r.count()
		if err != nil {
			return nil, err
		}
		p, err := r.take(n)
		if err != nil {
			return nil, err
		}
		xs := make([]int8, n)
		for i, b := range p {
			xs[i] = int8(b)
		}
		t.Value = xs
	case nbt.TagString:
		s, err := r.string()
		if err != nil {
			return nil, err
		}
		t.Value = s
	case nbt.TagList:
		ek, err := r.kind()
		if err != nil {
			return nil, err
		}
		n, err := r.count()
		if err != nil {
			return nil, err
		}
		t.ElemKind = ek
		kids := make([]*Tag, 0, min(n, 1024))
		for i := 0; i < n; i++ {
			c, err := r.payload(ek, depth+1)
			if err != nil {
				return nil, err
			}
			kids = append(kids, c)
		}
		t.Value = kids
	case nbt.TagCompound:
		var kids []*Tag
		for {
			ck, err := r.kind()
			if err != nil {
				return nil, err
			}
			if ck == nbt.TagEnd {
				break
			}
			name, err := r.string()
			if err != nil {
				return nil, err
			}
			c, err := r.payload(ck, depth+1)
			if err != nil {
				return nil, err
			}
			c.Name = name
			kids = append(kids, c)
		}
		t.Value = kids
	case nbt.TagIntArray:
		n, err := r.count()
		if err != nil {
			return nil, err
		}
		xs := make([]int32, 0, min(n, 1024))
		for i := 0; i < n; i++ {
			v, err := r.u32()
			if err != nil {
				return nil, err
			}
			xs = append(xs, int32(v))
		}
		t.Value = xs
	case nbt.TagLongArray:
		n, err := r.count()
		if err != nil {
			return nil, err
		}
		xs := make([]int64, 0, min(n, 1024))
		for i := 0; i < n; i++ {
			v, err := r.u64()
			if err != nil {
				return nil, err
			}
			xs = append(xs, int64(v))
		}
		t.Value = xs
	case nbt.TagEnd:
	}
	return t, nil
}

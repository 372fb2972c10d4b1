package nbt

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrRootNotRecord is returned when Encode is given anything but a keyed
// record.
var ErrRootNotRecord = errors.New("nbt: root value is not a keyed record")

// LiteralError reports a long literal ("123l") whose prefix is not an
// integer. It aborts the whole conversion.
type LiteralError struct {
	Text string
	Err  error
}

func (e *LiteralError) Error() string {
	return fmt.Sprintf("nbt: invalid long literal %q: %v", e.Text, e.Err)
}

func (e *LiteralError) Unwrap() error { return e.Err }

// CoercionError reports a list element that the list's element writer
// cannot accept at all.
type CoercionError struct {
	Kind  Kind
	Value any
	Err   error
}

func (e *CoercionError) Error() string {
	msg := fmt.Sprintf("nbt: cannot write %T as %s list element", e.Value, e.Kind)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *CoercionError) Unwrap() error { return e.Err }

// EncodeError carries the path of the value that failed, e.g.
// "display.Lore[2]".
type EncodeError struct {
	Path string
	Err  error
}

func (e *EncodeError) Error() string {
	return fmt.Sprintf("nbt: encode %s: %v", e.Path, e.Err)
}

func (e *EncodeError) Unwrap() error { return e.Err }

type pathSeg struct {
	name  string
	index int
}

type path []pathSeg

func (p path) String() string {
	if len(p) == 0 {
		return "<root>"
	}
	var b strings.Builder
	for i, s := range p {
		if s.index >= 0 {
			b.WriteByte('[')
			b.WriteString(strconv.Itoa(s.index))
			b.WriteByte(']')
			continue
		}
		if i > 0 {
			b.WriteByte('.')
		}
		b.WriteString(s.name)
	}
	return b.String()
}

// Package nbt writes Named Binary Tag documents.
//
// Encode turns a keyed record into an uncompressed NBT document: an unnamed
// root compound, one tag per field, and a closing END. Each value is
// classified in this order:
//
//	Long, int64, *big.Int         TAG_Long
//	bool                          TAG_Byte (1 or 0)
//	other numbers                 TAG_Int if integral, else TAG_Float
//	slices and arrays             TAG_List
//	nil                           TAG_Int 0
//	ByteArray, []int8, []byte     TAG_Byte_Array
//	IntArray, []int32             TAG_Int_Array
//	LongArray, []int64            TAG_Long_Array
//	Compound, maps, structs       TAG_Compound
//	string                        typed literal or TAG_String
//	anything else                 TAG_Int 0
//
// A string ending in b, s, l, f or d whose remaining characters are only
// digits, '.' and '-' is a typed literal and becomes TAG_Byte, TAG_Short,
// TAG_Long, TAG_Float or TAG_Double. This is the only way to get those
// narrow kinds from a scalar.
//
// A list takes its element kind from its first element. Every other element
// is forced through that kind's writer; see coerce.go for what happens to
// mismatched values.
package nbt

import "fmt"

type encoder struct {
	w    *Writer
	path path
}

// Encode converts root, which must be a keyed record, into an NBT document.
// On error no bytes are returned.
func Encode(root any) ([]byte, error) {
	root = indirect(root)
	if classify(root) != classRecord {
		return nil, ErrRootNotRecord
	}
	fields, _ := recordFields(root)

	e := &encoder{w: NewWriter(512)}
	e.w.Compound(Unnamed)
	if err := e.compoundBody(fields); err != nil {
		return nil, err
	}
	return e.w.Bytes(), nil
}

// MustEncode is Encode for literals known to be valid. It panics on error.
func MustEncode(root any) []byte {
	b, err := Encode(root)
	if err != nil {
		panic(fmt.Sprintf("nbt.MustEncode: %v", err))
	}
	return b
}

func (e *encoder) fail(err error) error {
	if _, ok := err.(*EncodeError); ok {
		return err
	}
	return &EncodeError{Path: e.path.String(), Err: err}
}

func (e *encoder) push(s pathSeg) { e.path = append(e.path, s) }
func (e *encoder) pop()           { e.path = e.path[:len(e.path)-1] }

func (e *encoder) compoundBody(fields []Field) error {
	for _, f := range fields {
		e.push(pathSeg{name: f.Name, index: -1})
		err := e.value(f.Value, Named(f.Name))
		if err == nil {
			err = e.w.Err()
		}
		if err != nil {
			return e.fail(err)
		}
		e.pop()
	}
	e.w.End()
	return nil
}

func (e *encoder) value(v any, name Name) error {
	v = indirect(v)
	switch classify(v) {
	case classLong:
		e.w.Long(longOf(v), name)
	case classBool:
		var b int8
		if truthy(v) {
			b = 1
		}
		e.w.Byte(b, name)
	case classNumber:
		f := numberOf(v)
		if isIntegral(f) {
			e.w.Int(toInt32(f), name)
		} else {
			e.w.Float(float32(f), name)
		}
	case classSequence:
		return e.list(sequenceOf(v), name)
	case classByteArray:
		e.w.ByteArray(bytesOf(v), name)
	case classIntArray:
		e.w.IntArray(intsOf(v), name)
	case classLongArray:
		e.w.LongArray(longsOf(v), name)
	case classRecord:
		fields, _ := recordFields(v)
		e.w.Compound(name)
		return e.compoundBody(fields)
	case classText:
		s := textOf(v)
		if prefix, suffix, ok := splitLiteral(s); ok {
			return e.writeLiteral(suffix, prefix, name)
		}
		e.w.String(s, name)
	default:
		// null and unrecognised values
		e.w.Int(0, name)
	}
	return nil
}

// elemWriter writes one list element without a header.
type elemWriter func(v any) error

func (e *encoder) list(items []any, name Name) error {
	kind, write := TagInt, e.zeroInt
	if len(items) > 0 {
		kind, write = e.elementWriter(indirect(items[0]))
	}
	e.w.List(kind, int32(len(items)), name)
	for i, it := range items {
		e.push(pathSeg{index: i})
		err := write(indirect(it))
		if err == nil {
			err = e.w.Err()
		}
		if err != nil {
			return e.fail(err)
		}
		e.pop()
	}
	return nil
}

func (e *encoder) zeroInt(any) error {
	e.w.Int(0, ListElement)
	return nil
}

// elementWriter picks the list element kind from first and returns the
// writer every element of the list goes through.
func (e *encoder) elementWriter(first any) (Kind, elemWriter) {
	switch classify(first) {
	case classLong:
		return TagLong, func(v any) error {
			n, err := toLong(v)
			if err != nil {
				return &CoercionError{Kind: TagLong, Value: v, Err: err}
			}
			e.w.Long(n, ListElement)
			return nil
		}
	case classBool:
		return TagByte, func(v any) error {
			var b int8
			if truthy(v) {
				b = 1
			}
			e.w.Byte(b, ListElement)
			return nil
		}
	case classNumber:
		if !isIntegral(numberOf(first)) {
			return TagFloat, func(v any) error {
				f, err := toNumber(v)
				if err != nil {
					return &CoercionError{Kind: TagFloat, Value: v, Err: err}
				}
				e.w.Float(float32(f), ListElement)
				return nil
			}
		}
		return TagInt, func(v any) error {
			f, err := toNumber(v)
			if err != nil {
				return &CoercionError{Kind: TagInt, Value: v, Err: err}
			}
			e.w.Int(toInt32(f), ListElement)
			return nil
		}
	case classSequence:
		return TagList, func(v any) error {
			if classify(v) != classSequence {
				e.w.List(TagInt, 0, ListElement)
				return nil
			}
			return e.list(sequenceOf(v), ListElement)
		}
	case classByteArray:
		return TagByteArray, func(v any) error {
			var xs []int8
			if classify(v) == classByteArray {
				xs = bytesOf(v)
			}
			e.w.ByteArray(xs, ListElement)
			return nil
		}
	case classIntArray:
		return TagIntArray, func(v any) error {
			var xs []int32
			if classify(v) == classIntArray {
				xs = intsOf(v)
			}
			e.w.IntArray(xs, ListElement)
			return nil
		}
	case classLongArray:
		return TagLongArray, func(v any) error {
			var xs []int64
			if classify(v) == classLongArray {
				xs = longsOf(v)
			}
			e.w.LongArray(xs, ListElement)
			return nil
		}
	case classRecord:
		return TagCompound, func(v any) error {
			fields, _ := recordFields(v)
			return e.compoundBody(fields)
		}
	case classText:
		if _, suffix, ok := splitLiteral(textOf(first)); ok {
			kind, _ := literalKind(suffix)
			return kind, func(v any) error {
				if classify(v) != classText {
					return &CoercionError{Kind: kind, Value: v}
				}
				return e.writeLiteral(suffix, dropLast(textOf(v)), ListElement)
			}
		}
		return TagString, func(v any) error {
			if classify(v) != classText {
				return &CoercionError{Kind: TagString, Value: v}
			}
			e.w.String(textOf(v), ListElement)
			return nil
		}
	}
	return TagInt, e.zeroInt
}

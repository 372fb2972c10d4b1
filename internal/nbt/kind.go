package nbt

import "fmt"

// Kind is the one-byte tag type opcode.
type Kind uint8

const (
	TagEnd Kind = iota
	TagByte
	TagShort
	TagInt
	TagLong
	TagFloat
	TagDouble
	TagByteArray
	TagString
	TagList
	TagCompound
	TagIntArray
	TagLongArray
)

var kindNames = [...]string{
	TagEnd:       "TAG_End",
	TagByte:      "TAG_Byte",
	TagShort:     "TAG_Short",
	TagInt:       "TAG_Int",
	TagLong:      "TAG_Long",
	TagFloat:     "TAG_Float",
	TagDouble:    "TAG_Double",
	TagByteArray: "TAG_Byte_Array",
	TagString:    "TAG_String",
	TagList:      "TAG_List",
	TagCompound:  "TAG_Compound",
	TagIntArray:  "TAG_Int_Array",
	TagLongArray: "TAG_Long_Array",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("TAG_Unknown(%d)", uint8(k))
}

// Valid reports whether k is a known opcode.
func (k Kind) Valid() bool { return k <= TagLongArray }

// Name selects how a tag header is written.
//
// The zero value is Unnamed: a header with an empty name, which is what the
// document root uses. List elements use ListElement and carry no header at
// all, because the enclosing list already declares kind and count.
type Name struct {
	s    string
	elem bool
}

var (
	Unnamed     = Name{}
	ListElement = Name{elem: true}
)

// Named returns a header selector carrying s.
func Named(s string) Name { return Name{s: s} }

// HasHeader reports whether a header is written.
func (n Name) HasHeader() bool { return !n.elem }

func (n Name) String() string {
	if n.elem {
		return "<list element>"
	}
	return n.s
}

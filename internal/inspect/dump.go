package inspect

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"nbtforge.ai/internal/nbt"
)

// Dump writes t in the classic indented text form:
//
//	TAG_Compound(''): 2 entries
//	{
//	  TAG_Int('id'): 5
//	  TAG_String('name'): 'diamond_sword'
//	}
func Dump(w io.Writer, t *Tag) error {
	bw := bufio.NewWriter(w)
	dump(bw, t, 0, true)
	return bw.Flush()
}

func dump(w *bufio.Writer, t *Tag, depth int, named bool) {
	indent := strings.Repeat("  ", depth)
	w.WriteString(indent)
	w.WriteString(t.Kind.String())
	if named {
		w.WriteString("(" + quote(t.Name) + ")")
	} else {
		w.WriteString("(None)")
	}
	w.WriteString(": ")

	switch t.Kind {
	case nbt.TagCompound, nbt.TagList:
		kids := t.Children()
		if t.Kind == nbt.TagList {
			fmt.Fprintf(w, "%d entries of type %s\n", len(kids), t.ElemKind)
		} else {
			fmt.Fprintf(w, "%d entries\n", len(kids))
		}
		w.WriteString(indent + "{\n")
		for _, c := range kids {
			dump(w, c, depth+1, t.Kind == nbt.TagCompound)
		}
		w.WriteString(indent + "}\n")
		return
	case nbt.TagString:
		w.WriteString(quote(t.Value.(string)))
	case nbt.TagByteArray:
		fmt.Fprintf(w, "[%d bytes]", len(t.Value.([]int8)))
	case nbt.TagIntArray:
		fmt.Fprintf(w, "%v", t.Value)
	case nbt.TagLongArray:
		fmt.Fprintf(w, "%v", t.Value)
	case nbt.TagFloat:
		w.WriteString(strconv.FormatFloat(float64(t.Value.(float32)), 'g', -1, 32))
	case nbt.TagDouble:
		w.WriteString(strconv.FormatFloat(t.Value.(float64), 'g', -1, 64))
	case nbt.TagEnd:
	default:
		fmt.Fprintf(w, "%d", t.Value)
	}
	w.WriteByte('\n')
}

func quote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `\'`) + "'"
}

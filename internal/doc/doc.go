// Package doc loads input documents into ordered records ready for nbt.Encode.
package doc

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"nbtforge.ai/internal/nbt"
)

type Format int

const (
	FormatUnknown Format = iota
	FormatYAML
	FormatJSON
	FormatTOML
	FormatCBOR
)

func (f Format) String() string {
	switch f {
	case FormatYAML:
		return "yaml"
	case FormatJSON:
		return "json"
	case FormatTOML:
		return "toml"
	case FormatCBOR:
		return "cbor"
	}
	return "unknown"
}

// ParseFormat accepts a format name or a file extension with its dot.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimPrefix(strings.TrimSpace(s), ".")) {
	case "yaml", "yml":
		return FormatYAML, nil
	case "json", "jsonc":
		return FormatJSON, nil
	case "toml":
		return FormatTOML, nil
	case "cbor":
		return FormatCBOR, nil
	}
	return FormatUnknown, fmt.Errorf("unknown document format %q", s)
}

var ErrRootNotMapping = errors.New("document root is not a mapping")

// Document is a decoded input. Integers within ±2^53 are plain ints,
// larger ones nbt.Long, so classification matches a JSON-style host.
type Document struct {
	Format Format
	Root   nbt.Compound
}

// Load reads path, choosing the decoder from the file extension.
func Load(path string) (*Document, error) {
	f, err := ParseFormat(filepath.Ext(path))
	if err != nil {
		return nil, err
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	d, err := Decode(raw, f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	return d, nil
}

func Decode(data []byte, f Format) (*Document, error) {
	var (
		root nbt.Compound
		err  error
	)
	switch f {
	case FormatYAML:
		root, err = decodeYAML(data)
	case FormatJSON:
		root, err = decodeJSON(data)
	case FormatTOML:
		root, err = decodeTOML(data)
	case FormatCBOR:
		root, err = decodeCBOR(data)
	default:
		return nil, fmt.Errorf("unknown document format %v", f)
	}
	if err != nil {
		return nil, err
	}
	return &Document{Format: f, Root: root}, nil
}

const maxSafeInt = 1<<53 - 1

func intValue(i int64) any {
	if i >= -maxSafeInt && i <= maxSafeInt {
		return int(i)
	}
	return nbt.Long(i)
}

func uintValue(u uint64) any {
	if u <= maxSafeInt {
		return int(u)
	}
	return nbt.Long(int64(u))
}

func toInt8s(items []any) (nbt.ByteArray, error) {
	out := make(nbt.ByteArray, len(items))
	for i, it := range items {
		n, ok := it.(int)
		if !ok || n < math.MinInt8 || n > math.MaxUint8 {
			return nil, fmt.Errorf("byte array element %d: %v out of range", i, it)
		}
		out[i] = int8(n)
	}
	return out, nil
}

func toInt32s(items []any) (nbt.IntArray, error) {
	out := make(nbt.IntArray, len(items))
	for i, it := range items {
		n, ok := it.(int)
		if !ok || n < math.MinInt32 || n > math.MaxInt32 {
			return nil, fmt.Errorf("int array element %d: %v out of range", i, it)
		}
		out[i] = int32(n)
	}
	return out, nil
}

func toInt64s(items []any) (nbt.LongArray, error) {
	out := make(nbt.LongArray, len(items))
	for i, it := range items {
		switch n := it.(type) {
		case int:
			out[i] = int64(n)
		case nbt.Long:
			out[i] = int64(n)
		default:
			return nil, fmt.Errorf("long array element %d: %v is not an integer", i, it)
		}
	}
	return out, nil
}

// fromGeneric converts decoder output built from unordered maps. rank
// orders the keys of the map at path; keys it does not know sort after the
// known ones, alphabetically.
func fromGeneric(v any, path []string, rank func(path []string, key string) (int, bool)) (any, error) {
	switch x := v.(type) {
	case map[string]any:
		keys := make([]string, 0, len(x))
		for k := range x {
			keys = append(keys, k)
		}
		sort.SliceStable(keys, func(i, j int) bool {
			ri, oki := rank(path, keys[i])
			rj, okj := rank(path, keys[j])
			switch {
			case oki && okj:
				return ri < rj
			case oki != okj:
				return oki
			}
			return keys[i] < keys[j]
		})
		out := make(nbt.Compound, 0, len(keys))
		for _, k := range keys {
			cv, err := fromGeneric(x[k], append(path[:len(path):len(path)], k), rank)
			if err != nil {
				return nil, err
			}
			out = append(out, nbt.Field{Name: k, Value: cv})
		}
		return out, nil
	case []map[string]any:
		out := make([]any, len(x))
		for i, m := range x {
			cv, err := fromGeneric(m, path, rank)
			if err != nil {
				return nil, err
			}
			out[i] = cv
		}
		return out, nil
	case []any:
		out := make([]any, len(x))
		for i, it := range x {
			cv, err := fromGeneric(it, path, rank)
			if err != nil {
				return nil, err
			}
			out[i] = cv
		}
		return out, nil
	case int64:
		return intValue(x), nil
	case uint64:
		return uintValue(x), nil
	case []byte:
		out := make(nbt.ByteArray, len(x))
		for i, b := range x {
			out[i] = int8(b)
		}
		return out, nil
	case nil, bool, float64, string, nbt.Long:
		return x, nil
	case float32:
		return float64(x), nil
	}
	return nil, fmt.Errorf("%s: unsupported value of type %T", strings.Join(path, "."), v)
}

// Plain returns the document as JSON-shaped data (map[string]any, []any,
// json.Number, string, bool, nil) for schema validation.
func (d *Document) Plain() any { return plain(d.Root) }

func plain(v any) any {
	switch x := v.(type) {
	case nbt.Compound:
		m := make(map[string]any, len(x))
		for _, f := range x {
			m[f.Name] = plain(f.Value)
		}
		return m
	case []any:
		out := make([]any, len(x))
		for i, it := range x {
			out[i] = plain(it)
		}
		return out
	case nbt.ByteArray:
		return plainInts(x)
	case nbt.IntArray:
		return plainInts(x)
	case nbt.LongArray:
		return plainInts(x)
	case nbt.Long:
		return json.Number(strconv.FormatInt(int64(x), 10))
	case int:
		return json.Number(strconv.Itoa(x))
	case float64:
		return json.Number(strconv.FormatFloat(x, 'g', -1, 64))
	}
	return v
}

func plainInts[T int8 | int32 | int64](xs []T) []any {
	out := make([]any, len(xs))
	for i, x := range xs {
		out[i] = json.Number(strconv.FormatInt(int64(x), 10))
	}
	return out
}

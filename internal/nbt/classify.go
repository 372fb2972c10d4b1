package nbt

import (
	"encoding/json"
	"math/big"
	"reflect"
	"sort"
	"strings"
)

// class is the classification of an input value. The constants are listed
// in precedence order.
type class int

const (
	classLong class = iota
	classBool
	classNumber
	classSequence
	classNull
	classByteArray
	classIntArray
	classLongArray
	classRecord
	classText
	classOther
)

var (
	typeInt8s    = reflect.TypeOf([]int8(nil))
	typeBytes    = reflect.TypeOf([]byte(nil))
	typeInt32s   = reflect.TypeOf([]int32(nil))
	typeInt64s   = reflect.TypeOf([]int64(nil))
	typeCompound = reflect.TypeOf(Compound(nil))
)

// indirect follows pointers and interfaces. A nil pointer becomes nil.
func indirect(v any) any {
	for {
		switch x := v.(type) {
		case nil:
			return nil
		case *big.Int:
			if x == nil {
				return nil
			}
			return v
		}
		rv := reflect.ValueOf(v)
		if rv.Kind() != reflect.Pointer && rv.Kind() != reflect.Interface {
			return v
		}
		if rv.IsNil() {
			return nil
		}
		v = rv.Elem().Interface()
	}
}

func reflectValue(v any) reflect.Value { return reflect.ValueOf(indirect(v)) }

func classify(v any) class {
	switch x := v.(type) {
	case nil:
		return classNull
	case Long, int64:
		return classLong
	case *big.Int:
		if x == nil {
			return classNull
		}
		return classLong
	case bool:
		return classBool
	case int, int8, int16, int32, uint, uint8, uint16, uint32, uint64, uintptr,
		float32, float64, json.Number:
		return classNumber
	case []any:
		return classSequence
	case ByteArray, []int8, []byte:
		return classByteArray
	case IntArray, []int32:
		return classIntArray
	case LongArray, []int64:
		return classLongArray
	case Compound, map[string]any:
		return classRecord
	case string:
		return classText
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			return classNull
		}
		return classify(rv.Elem().Interface())
	case reflect.Bool:
		return classBool
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr,
		reflect.Float32, reflect.Float64:
		return classNumber
	case reflect.Slice:
		switch t := rv.Type(); {
		case t.ConvertibleTo(typeInt8s), t.ConvertibleTo(typeBytes):
			return classByteArray
		case t.ConvertibleTo(typeInt32s):
			return classIntArray
		case t.ConvertibleTo(typeInt64s):
			return classLongArray
		case t.ConvertibleTo(typeCompound):
			return classRecord
		}
		return classSequence
	case reflect.Array:
		return classSequence
	case reflect.Map:
		if rv.Type().Key().Kind() == reflect.String {
			return classRecord
		}
	case reflect.Struct:
		return classRecord
	case reflect.String:
		return classText
	}
	return classOther
}

func longOf(v any) int64 {
	switch x := indirect(v).(type) {
	case Long:
		return int64(x)
	case int64:
		return x
	case *big.Int:
		return wrapBig(x)
	}
	return reflectValue(v).Int()
}

func textOf(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return reflectValue(v).String()
}

func sequenceOf(v any) []any {
	if xs, ok := v.([]any); ok {
		return xs
	}
	rv := reflectValue(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
	default:
		return nil
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out
}

func bytesOf(v any) []int8 {
	switch x := v.(type) {
	case ByteArray:
		return x
	case []int8:
		return x
	case []byte:
		out := make([]int8, len(x))
		for i, b := range x {
			out[i] = int8(b)
		}
		return out
	}
	rv := reflectValue(v)
	if rv.Type().ConvertibleTo(typeBytes) {
		return bytesOf(rv.Convert(typeBytes).Interface())
	}
	return rv.Convert(typeInt8s).Interface().([]int8)
}

func intsOf(v any) []int32 {
	switch x := v.(type) {
	case IntArray:
		return x
	case []int32:
		return x
	}
	return reflectValue(v).Convert(typeInt32s).Interface().([]int32)
}

func longsOf(v any) []int64 {
	switch x := v.(type) {
	case LongArray:
		return x
	case []int64:
		return x
	}
	return reflectValue(v).Convert(typeInt64s).Interface().([]int64)
}

// recordFields lists the entries of a keyed record. Maps are visited in
// sorted key order; structs in field order.
func recordFields(v any) ([]Field, bool) {
	switch x := v.(type) {
	case Compound:
		return x, true
	case map[string]any:
		keys := make([]string, 0, len(x))
		for k := range x {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		out := make([]Field, len(keys))
		for i, k := range keys {
			out[i] = Field{Name: k, Value: x[k]}
		}
		return out, true
	}

	rv := reflectValue(v)
	switch rv.Kind() {
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return nil, false
		}
		keys := rv.MapKeys()
		sort.Slice(keys, func(i, j int) bool { return keys[i].String() < keys[j].String() })
		out := make([]Field, len(keys))
		for i, k := range keys {
			out[i] = Field{Name: k.String(), Value: rv.MapIndex(k).Interface()}
		}
		return out, true
	case reflect.Slice:
		if rv.Type().ConvertibleTo(typeCompound) {
			return rv.Convert(typeCompound).Interface().(Compound), true
		}
	case reflect.Struct:
		return structFields(rv), true
	}
	return nil, false
}

// structFields reads exported fields. The `nbt` tag renames a field, "-"
// skips it and ",omitempty" drops zero values.
func structFields(rv reflect.Value) []Field {
	rt := rv.Type()
	out := make([]Field, 0, rt.NumField())
	for i := 0; i < rt.NumField(); i++ {
		sf := rt.Field(i)
		if !sf.IsExported() {
			continue
		}
		name := sf.Name
		omitEmpty := false
		if tag, ok := sf.Tag.Lookup("nbt"); ok {
			if tag == "-" {
				continue
			}
			n, opts, _ := strings.Cut(tag, ",")
			if n != "" {
				name = n
			}
			omitEmpty = opts == "omitempty"
		}
		fv := rv.Field(i)
		if omitEmpty && fv.IsZero() {
			continue
		}
		out = append(out, Field{Name: name, Value: fv.Interface()})
	}
	return out
}

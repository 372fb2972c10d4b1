package doc

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/fxamacker/cbor/v2"

	"nbtforge.ai/internal/nbt"
)

func names(c nbt.Compound) []string {
	out := make([]string, len(c))
	for i, f := range c {
		out[i] = f.Name
	}
	return out
}

func TestDecodeYAML_OrderAndTags(t *testing.T) {
	d, err := Decode([]byte(`
id: 5
name: diamond_sword
health: 20.0d
seed: !long 12
big: 9007199254740993
blocks: !bytes [1, 255, -1]
uuid: !ints [1, 2, 3, 4]
heights: !longs [7]
raw: !!binary AQI=
owner: ~
display:
  Lore: [a, b]
`), FormatYAML)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	want := []string{"id", "name", "health", "seed", "big", "blocks", "uuid", "heights", "raw", "owner", "display"}
	if got := names(d.Root); !reflect.DeepEqual(got, want) {
		t.Fatalf("order: got %v want %v", got, want)
	}
	check := map[string]any{
		"id":      5,
		"name":    "diamond_sword",
		"health":  "20.0d",
		"seed":    nbt.Long(12),
		"big":     nbt.Long(9007199254740993),
		"blocks":  nbt.ByteArray{1, -1, -1},
		"uuid":    nbt.IntArray{1, 2, 3, 4},
		"heights": nbt.LongArray{7},
		"raw":     nbt.ByteArray{1, 2},
		"owner":   nil,
	}
	for k, want := range check {
		got, _ := d.Root.Get(k)
		if !reflect.DeepEqual(got, want) {
			t.Fatalf("%s: got %#v want %#v", k, got, want)
		}
	}
	disp, _ := d.Root.Get("display")
	lore, _ := disp.(nbt.Compound).Get("Lore")
	if !reflect.DeepEqual(lore, []any{"a", "b"}) {
		t.Fatalf("Lore: got %#v", lore)
	}
}

func TestDecodeYAML_Errors(t *testing.T) {
	if _, err := Decode([]byte("- 1\n- 2\n"), FormatYAML); !errors.Is(err, ErrRootNotMapping) {
		t.Fatalf("sequence root: got %v", err)
	}
	if _, err := Decode([]byte("a: !bytes [1000]\n"), FormatYAML); err == nil {
		t.Fatalf("expected byte range error")
	}
	d, err := Decode([]byte(""), FormatYAML)
	if err != nil || len(d.Root) != 0 {
		t.Fatalf("empty: %v %v", d, err)
	}
}

func TestDecodeJSON_OrderCommentsNumbers(t *testing.T) {
	d, err := Decode([]byte(`{
		// item
		"z": 1,
		"a": 1.5,
		"big": 12345678901234567890123,
		"long": 9007199254740993,
		"list": [1, "x", null, true, {"k": "v"}],
	}`), FormatJSON)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if got := names(d.Root); !reflect.DeepEqual(got, []string{"z", "a", "big", "long", "list"}) {
		t.Fatalf("order: got %v", got)
	}
	if v, _ := d.Root.Get("z"); v != 1 {
		t.Fatalf("z: %#v", v)
	}
	if v, _ := d.Root.Get("a"); v != 1.5 {
		t.Fatalf("a: %#v", v)
	}
	if v, _ := d.Root.Get("big"); v != 1.2345678901234568e22 {
		t.Fatalf("big: %#v", v)
	}
	if v, _ := d.Root.Get("long"); v != nbt.Long(9007199254740993) {
		t.Fatalf("long: %#v", v)
	}
	list, _ := d.Root.Get("list")
	want := []any{1, "x", nil, true, nbt.Compound{{Name: "k", Value: "v"}}}
	if !reflect.DeepEqual(list, want) {
		t.Fatalf("list: got %#v", list)
	}
}

func TestDecodeJSON_Errors(t *testing.T) {
	if _, err := Decode([]byte(`[1]`), FormatJSON); !errors.Is(err, ErrRootNotMapping) {
		t.Fatalf("array root: got %v", err)
	}
	if _, err := Decode([]byte(`{"a":1} {"b":2}`), FormatJSON); err == nil {
		t.Fatalf("expected trailing data error")
	}
	if _, err := Decode([]byte(`{"a":`), FormatJSON); err == nil {
		t.Fatalf("expected syntax error")
	}
}

func TestDecodeTOML_Order(t *testing.T) {
	d, err := Decode([]byte(`
name = "sword"
count = 3
ratio = 0.5
when = 2024-01-02T03:04:05Z

[display]
title = "Blade"
color = 16711680

[[enchants]]
id = "sharpness"
lvl = "5s"
`), FormatTOML)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if got := names(d.Root); !reflect.DeepEqual(got, []string{"name", "count", "ratio", "when", "display", "enchants"}) {
		t.Fatalf("order: got %v", got)
	}
	if v, _ := d.Root.Get("count"); v != 3 {
		t.Fatalf("count: %#v", v)
	}
	if v, _ := d.Root.Get("when"); v != "2024-01-02T03:04:05Z" {
		t.Fatalf("when: %#v", v)
	}
	disp, _ := d.Root.Get("display")
	if got := names(disp.(nbt.Compound)); !reflect.DeepEqual(got, []string{"title", "color"}) {
		t.Fatalf("display order: got %v", got)
	}
	ench, _ := d.Root.Get("enchants")
	items := ench.([]any)
	if len(items) != 1 || !reflect.DeepEqual(names(items[0].(nbt.Compound)), []string{"id", "lvl"}) {
		t.Fatalf("enchants: %#v", ench)
	}
}

func TestDecodeCBOR(t *testing.T) {
	data, err := cbor.Marshal(map[string]any{
		"b":     []byte{1, 2},
		"a":     uint64(7),
		"neg":   int64(-3),
		"huge":  uint64(1) << 60,
		"f":     1.25,
		"items": []any{"x", true},
	})
	if err != nil {
		t.Fatalf("cbor.Marshal: %v", err)
	}
	d, err := Decode(data, FormatCBOR)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if got := names(d.Root); !reflect.DeepEqual(got, []string{"a", "b", "f", "huge", "items", "neg"}) {
		t.Fatalf("order: got %v", got)
	}
	checks := map[string]any{
		"a":     7,
		"b":     nbt.ByteArray{1, 2},
		"neg":   -3,
		"huge":  nbt.Long(1 << 60),
		"f":     1.25,
		"items": []any{"x", true},
	}
	for k, want := range checks {
		got, _ := d.Root.Get(k)
		if !reflect.DeepEqual(got, want) {
			t.Fatalf("%s: got %#v want %#v", k, got, want)
		}
	}
}

func TestLoad_ByExtension(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "item.jsonc")
	if err := os.WriteFile(path, []byte(`{"id": 5 /* sword */}`), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	d, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if d.Format != FormatJSON {
		t.Fatalf("format: %v", d.Format)
	}
	if _, err := Load(filepath.Join(dir, "item.xml")); err == nil {
		t.Fatalf("expected unknown format error")
	}
}

func TestSchema_Validate(t *testing.T) {
	dir := t.TempDir()
	schemaPath := filepath.Join(dir, "item.schema.json")
	schema := `{
	  "$schema": "https://json-schema.org/draft/2020-12/schema",
	  "type": "object",
	  "required": ["id"],
	  "properties": {
	    "id": {"type": "integer"},
	    "uuid": {"type": "array", "items": {"type": "integer"}}
	  }
	}`
	if err := os.WriteFile(schemaPath, []byte(schema), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	s, err := CompileSchema(schemaPath)
	if err != nil {
		t.Fatalf("CompileSchema: %v", err)
	}

	good, err := Decode([]byte("id: 5\nuuid: !ints [1, 2]\n"), FormatYAML)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if err := s.Validate(good); err != nil {
		t.Fatalf("Validate good: %v", err)
	}

	bad, err := Decode([]byte("id: sword\n"), FormatYAML)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if err := s.Validate(bad); err == nil || !strings.Contains(err.Error(), "schema") {
		t.Fatalf("Validate bad: got %v", err)
	}

	var none *Schema
	if err := none.Validate(bad); err != nil {
		t.Fatalf("nil schema: %v", err)
	}
}

func TestDocument_Encodes(t *testing.T) {
	d, err := Decode([]byte(`{"id": 5, "name": "diamond_sword", "enchants": [1, 2, 3]}`), FormatJSON)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	got, err := nbt.Encode(d.Root)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	want := nbt.MustEncode(nbt.Compound{
		{Name: "id", Value: 5},
		{Name: "name", Value: "diamond_sword"},
		{Name: "enchants", Value: []any{1, 2, 3}},
	})
	if string(got) != string(want) {
		t.Fatalf("got % x want % x", got, want)
	}
}

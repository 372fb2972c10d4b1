package doc

import (
	"fmt"
	"math/big"
	"reflect"

	"github.com/fxamacker/cbor/v2"

	"nbtforge.ai/internal/nbt"
)

var cborDecMode cbor.DecMode

func init() {
	var err error
	cborDecMode, err = cbor.DecOptions{
		// NBT compound names are strings; any-typed maps must decode as
		// map[string]any rather than map[interface{}]interface{}.
		DefaultMapType: reflect.TypeOf(map[string]any(nil)),
	}.DecMode()
	if err != nil {
		panic("doc: CBOR decoder initialization failed: " + err.Error())
	}
}

// decodeCBOR decodes one CBOR data item. Maps carry no order on the wire, so
// keys are sorted. Byte strings become byte arrays and bignums longs.
func decodeCBOR(data []byte) (nbt.Compound, error) {
	var raw any
	if err := cborDecMode.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("cbor: %w", err)
	}
	if _, ok := raw.(map[string]any); !ok {
		return nil, ErrRootNotMapping
	}
	v, err := fromGeneric(cborValues(raw), nil, func([]string, string) (int, bool) { return 0, false })
	if err != nil {
		return nil, fmt.Errorf("cbor: %w", err)
	}
	return v.(nbt.Compound), nil
}

// cborValues rewrites the decoder types fromGeneric does not know.
func cborValues(v any) any {
	switch x := v.(type) {
	case map[string]any:
		for k, e := range x {
			x[k] = cborValues(e)
		}
		return x
	case []any:
		for i, e := range x {
			x[i] = cborValues(e)
		}
		return x
	case big.Int:
		if x.IsInt64() {
			return x.Int64()
		}
		return nbt.Long(new(big.Int).And(&x, new(big.Int).SetUint64(^uint64(0))).Uint64())
	case cbor.Tag:
		return cborValues(x.Content)
	}
	return v
}

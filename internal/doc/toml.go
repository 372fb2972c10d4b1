package doc

import (
	"fmt"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"nbtforge.ai/internal/nbt"
)

// decodeTOML keeps key order using the decoder's key metadata. Datetimes
// become RFC 3339 strings.
func decodeTOML(data []byte) (nbt.Compound, error) {
	var raw map[string]any
	md, err := toml.Decode(string(data), &raw)
	if err != nil {
		return nil, fmt.Errorf("toml: %w", err)
	}

	order := make(map[string]int)
	for i, k := range md.Keys() {
		p := strings.Join(k, "\x00")
		if _, seen := order[p]; !seen {
			order[p] = i
		}
	}
	rank := func(path []string, key string) (int, bool) {
		i, ok := order[strings.Join(append(path[:len(path):len(path)], key), "\x00")]
		return i, ok
	}

	v, err := fromGeneric(tomlTimes(raw), nil, rank)
	if err != nil {
		return nil, fmt.Errorf("toml: %w", err)
	}
	return v.(nbt.Compound), nil
}

func tomlTimes(v any) any {
	switch x := v.(type) {
	case map[string]any:
		for k, e := range x {
			x[k] = tomlTimes(e)
		}
		return x
	case []map[string]any:
		for i, e := range x {
			x[i] = tomlTimes(e).(map[string]any)
		}
		return x
	case []any:
		for i, e := range x {
			x[i] = tomlTimes(e)
		}
		return x
	case time.Time:
		return x.Format(time.RFC3339Nano)
	}
	return v
}

package doc

import (
	"fmt"
	"strconv"

	"gopkg.in/yaml.v3"

	"nbtforge.ai/internal/nbt"
)

// YAML documents may use local tags for values a plain YAML scalar cannot
// express:
//
//	seed: !long 12
//	blocks: !bytes [1, 2, 255]
//	uuid: !ints [1, 2, 3, 4]
//	heights: !longs [1, 2]
const (
	tagLong  = "!long"
	tagBytes = "!bytes"
	tagInts  = "!ints"
	tagLongs = "!longs"
)

func decodeYAML(data []byte) (nbt.Compound, error) {
	var n yaml.Node
	if err := yaml.Unmarshal(data, &n); err != nil {
		return nil, fmt.Errorf("yaml: %w", err)
	}
	if n.Kind == 0 {
		return nbt.Compound{}, nil
	}
	v, err := yamlValue(&n)
	if err != nil {
		return nil, err
	}
	c, ok := v.(nbt.Compound)
	if !ok {
		if v == nil {
			return nbt.Compound{}, nil
		}
		return nil, ErrRootNotMapping
	}
	return c, nil
}

func yamlValue(n *yaml.Node) (any, error) {
	switch n.Kind {
	case yaml.DocumentNode:
		if len(n.Content) == 0 {
			return nil, nil
		}
		return yamlValue(n.Content[0])
	case yaml.AliasNode:
		return yamlValue(n.Alias)
	case yaml.MappingNode:
		out := make(nbt.Compound, 0, len(n.Content)/2)
		for i := 0; i+1 < len(n.Content); i += 2 {
			k, v := n.Content[i], n.Content[i+1]
			if k.ShortTag() == "!!merge" {
				merged, err := yamlValue(v)
				if err != nil {
					return nil, err
				}
				if mc, ok := merged.(nbt.Compound); ok {
					for _, f := range mc {
						out.Set(f.Name, f.Value)
					}
				}
				continue
			}
			cv, err := yamlValue(v)
			if err != nil {
				return nil, err
			}
			out.Set(k.Value, cv)
		}
		return out, nil
	case yaml.SequenceNode:
		items := make([]any, len(n.Content))
		for i, c := range n.Content {
			v, err := yamlValue(c)
			if err != nil {
				return nil, err
			}
			items[i] = v
		}
		var err error
		var out any = items
		switch n.Tag {
		case tagBytes:
			out, err = toInt8s(items)
		case tagInts:
			out, err = toInt32s(items)
		case tagLongs:
			out, err = toInt64s(items)
		}
		if err != nil {
			return nil, fmt.Errorf("yaml line %d: %w", n.Line, err)
		}
		return out, nil
	case yaml.ScalarNode:
		return yamlScalar(n)
	}
	return nil, fmt.Errorf("yaml line %d: unexpected node kind %d", n.Line, n.Kind)
}

func yamlScalar(n *yaml.Node) (any, error) {
	switch n.ShortTag() {
	case "!!null":
		return nil, nil
	case "!!bool":
		var b bool
		if err := n.Decode(&b); err != nil {
			return nil, err
		}
		return b, nil
	case "!!int":
		var i int64
		if err := n.Decode(&i); err != nil {
			var f float64
			if ferr := n.Decode(&f); ferr != nil {
				return nil, err
			}
			return f, nil
		}
		return intValue(i), nil
	case "!!float":
		var f float64
		if err := n.Decode(&f); err != nil {
			return nil, err
		}
		return f, nil
	case "!!binary":
		var s string
		if err := n.Decode(&s); err != nil {
			return nil, err
		}
		out := make(nbt.ByteArray, len(s))
		for i := 0; i < len(s); i++ {
			out[i] = int8(s[i])
		}
		return out, nil
	case tagLong:
		i, err := strconv.ParseInt(n.Value, 0, 64)
		if err != nil {
			return nil, fmt.Errorf("yaml line %d: %s %q: %w", n.Line, tagLong, n.Value, err)
		}
		return nbt.Long(i), nil
	}
	return n.Value, nil
}

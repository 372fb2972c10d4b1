package nbt

// Input values are ordinary Go values. These named types exist for the cases
// a generic value tree cannot express on its own: a 64-bit integer that must
// not be treated as a plain number, and the three typed arrays.
//
//	nbt.Compound{
//		{"id", 5},
//		{"uuid", nbt.IntArray{1, 2, 3, 4}},
//		{"seed", nbt.Long(-7)},
//		{"health", "20.0d"},
//	}
type (
	Long      int64
	ByteArray []int8
	IntArray  []int32
	LongArray []int64
)

// Field is one named entry of an ordered record.
type Field struct {
	Name  string
	Value any
}

// Compound is a keyed record that keeps insertion order. Maps are written
// with their keys sorted; use Compound when order matters.
type Compound []Field

// Get returns the first value stored under name.
func (c Compound) Get(name string) (any, bool) {
	for _, f := range c {
		if f.Name == name {
			return f.Value, true
		}
	}
	return nil, false
}

// Set replaces the value under name, appending a field if absent.
func (c *Compound) Set(name string, v any) {
	for i := range *c {
		if (*c)[i].Name == name {
			(*c)[i].Value = v
			return
		}
	}
	*c = append(*c, Field{Name: name, Value: v})
}

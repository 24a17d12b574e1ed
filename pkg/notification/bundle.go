package notification

import (
	"reflect"
)

// Bundle is an opaque key-value payload. Values are primitives, strings,
// slices of those, or nested Bundles.
type Bundle map[string]any

// Clone returns a deep copy of the bundle. A nil bundle clones to nil.
func (b Bundle) Clone() Bundle {
	if b == nil {
		return nil
	}
	out := make(Bundle, len(b))
	for k, v := range b {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch val := v.(type) {
	case Bundle:
		return val.Clone()
	case map[string]any:
		return Bundle(val).Clone()
	case []any:
		out := make([]any, len(val))
		for i := range val {
			out[i] = cloneValue(val[i])
		}
		return out
	case []string:
		return append([]string(nil), val...)
	case []int:
		return append([]int(nil), val...)
	case []int64:
		return append([]int64(nil), val...)
	case []float64:
		return append([]float64(nil), val...)
	case []byte:
		return append([]byte(nil), val...)
	default:
		return v
	}
}

// Equal reports whether two bundles hold the same keys and values.
func (b Bundle) Equal(other Bundle) bool {
	return reflect.DeepEqual(b, other)
}

// String returns the string value stored under key.
func (b Bundle) String(key string) (string, bool) {
	s, ok := b[key].(string)
	return s, ok
}

// Int returns the integer value stored under key. JSON numbers decode as
// float64 and are accepted when integral.
func (b Bundle) Int(key string) (int64, bool) {
	switch v := b[key].(type) {
	case int:
		return int64(v), true
	case int32:
		return int64(v), true
	case int64:
		return v, true
	case float64:
		if v == float64(int64(v)) {
			return int64(v), true
		}
	}
	return 0, false
}

// Nested returns the nested bundle stored under key.
func (b Bundle) Nested(key string) (Bundle, bool) {
	switch v := b[key].(type) {
	case Bundle:
		return v, true
	case map[string]any:
		return Bundle(v), true
	}
	return nil, false
}

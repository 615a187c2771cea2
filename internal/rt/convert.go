package rt

import (
	"fmt"
	"math"
)

// FromGo converts a value produced by a YAML or JSON decoder into a runtime
// value. Integers become int64 and sequences []Value; mappings have no
// runtime counterpart.
func FromGo(v any) (Value, error) {
	switch x := v.(type) {
	case nil, bool, string, float64, int64:
		return x, nil
	case int:
		return int64(x), nil
	case int32:
		return int64(x), nil
	case uint64:
		if x > math.MaxInt64 {
			return nil, fmt.Errorf("integer %d overflows Int", x)
		}
		return int64(x), nil
	case float32:
		return float64(x), nil
	case []any:
		out := make([]Value, len(x))
		for i, e := range x {
			cv, err := FromGo(e)
			if err != nil {
				return nil, fmt.Errorf("[%d]: %w", i, err)
			}
			out[i] = cv
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unsupported value of type %T", v)
	}
}

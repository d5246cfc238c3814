package partition

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/dshills/scopeiq/pkg/types"
)

const (
	// DefaultTopK is used when no count is supplied
	DefaultTopK = 10

	// MaxTopK bounds a single partition query
	MaxTopK = 100
)

// CoerceTopK turns untyped caller input into a usable result count.
// nil or an empty string yields def. Numbers and numeric strings are
// truncated and clamped to [1, MaxTopK]. Anything else is ErrValidation.
func CoerceTopK(v any, def int) (int, error) {
	var f float64

	switch x := v.(type) {
	case nil:
		return ClampTopK(def), nil
	case int:
		f = float64(x)
	case int32:
		f = float64(x)
	case int64:
		f = float64(x)
	case uint:
		f = float64(x)
	case float32:
		f = float64(x)
	case float64:
		f = x
	case json.Number:
		n, err := x.Float64()
		if err != nil {
			return 0, types.ValidationErrorf("topK %q is not a number", x.String())
		}
		f = n
	case string:
		s := strings.TrimSpace(x)
		if s == "" {
			return ClampTopK(def), nil
		}
		n, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, types.ValidationErrorf("topK %q is not a number", x)
		}
		f = n
	default:
		return 0, types.ValidationErrorf("topK has unsupported type %T", v)
	}

	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, types.ValidationErrorf("topK must be finite")
	}
	if f > MaxTopK {
		return MaxTopK, nil
	}
	return ClampTopK(int(f)), nil
}

// ClampTopK forces k into [1, MaxTopK]
func ClampTopK(k int) int {
	switch {
	case k < 1:
		return 1
	case k > MaxTopK:
		return MaxTopK
	default:
		return k
	}
}

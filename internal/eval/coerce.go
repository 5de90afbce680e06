package eval

import (
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"
)

// Coercion rules, applied uniformly by every consumer of the condition
// grammar:
//
//   - Booleans compare strictly: a bool never equals a non-bool
//   - Ordering operators coerce both sides to float64, accepting numeric
//     strings; a side that cannot be coerced is an error
//   - equals compares numerically when both sides coerce to numbers,
//     otherwise by deep equality; nil equals only nil
var ErrNotComparable = errors.New("operand is not comparable numerically")

func opEquals(left, right any) (bool, error) {
	return looseEquals(left, right), nil
}

func opNotEquals(left, right any) (bool, error) {
	return !looseEquals(left, right), nil
}

func opGt(left, right any) (bool, error) {
	l, r, err := orderingOperands(left, right)
	if err != nil {
		return false, err
	}
	return l > r, nil
}

func opGte(left, right any) (bool, error) {
	l, r, err := orderingOperands(left, right)
	if err != nil {
		return false, err
	}
	return l >= r, nil
}

func opLt(left, right any) (bool, error) {
	l, r, err := orderingOperands(left, right)
	if err != nil {
		return false, err
	}
	return l < r, nil
}

func opLte(left, right any) (bool, error) {
	l, r, err := orderingOperands(left, right)
	if err != nil {
		return false, err
	}
	return l <= r, nil
}

func opContains(left, right any) (bool, error) {
	switch l := left.(type) {
	case string:
		return strings.Contains(l, stringify(right)), nil
	case []any:
		for _, item := range l {
			if looseEquals(item, right) {
				return true, nil
			}
		}
		return false, nil
	case nil:
		return false, nil
	default:
		return false, nil
	}
}

func opNotContains(left, right any) (bool, error) {
	ok, err := opContains(left, right)
	return !ok, err
}

func opEmpty(left, _ any) (bool, error) {
	return isEmpty(left), nil
}

func opNotEmpty(left, _ any) (bool, error) {
	return !isEmpty(left), nil
}

func looseEquals(left, right any) bool {
	if left == nil || right == nil {
		return left == nil && right == nil
	}

	lb, lok := left.(bool)
	rb, rok := right.(bool)
	if lok || rok {
		return lok && rok && lb == rb
	}

	lf, lok := asFloat(left)
	rf, rok := asFloat(right)
	if lok && rok {
		return lf == rf
	}

	ls, lok := left.(string)
	rs, rok := right.(string)
	if lok && rok {
		return ls == rs
	}

	return reflect.DeepEqual(left, right)
}

func orderingOperands(left, right any) (float64, float64, error) {
	l, ok := asFloat(left)
	if !ok {
		return 0, 0, fmt.Errorf("%w: %v", ErrNotComparable, left)
	}
	r, ok := asFloat(right)
	if !ok {
		return 0, 0, fmt.Errorf("%w: %v", ErrNotComparable, right)
	}
	return l, r, nil
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

func isEmpty(v any) bool {
	switch val := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(val) == ""
	case []any:
		return len(val) == 0
	case map[string]any:
		return len(val) == 0
	default:
		return false
	}
}

func stringify(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}

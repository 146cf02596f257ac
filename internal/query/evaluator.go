package query

import (
	"reflect"
	"strings"

	"github.com/ambardb/ambar/internal/codec"
)

// Matches reports whether doc satisfies every condition of q. An empty
// query matches every document. A field absent from the document fails all
// of its conditions, OpNotIn included: missing fields satisfy no membership
// test, positive or negative.
func Matches(q Query, doc map[string]any) bool {
	for field, conds := range q {
		value, present := doc[field]
		if !present || value == nil {
			return false
		}
		for _, cond := range conds {
			if !matchCondition(cond, value) {
				return false
			}
		}
	}
	return true
}

func matchCondition(cond Condition, value any) bool {
	switch cond.Op {
	case OpEqual:
		return equalValues(value, cond.Value)
	case OpGreater:
		c, ok := compareValues(value, cond.Value)
		return ok && c > 0
	case OpGreaterOrEqual:
		c, ok := compareValues(value, cond.Value)
		return ok && c >= 0
	case OpLess:
		c, ok := compareValues(value, cond.Value)
		return ok && c < 0
	case OpLessOrEqual:
		c, ok := compareValues(value, cond.Value)
		return ok && c <= 0
	case OpIn:
		return inSequence(value, cond.Value)
	case OpNotIn:
		return !inSequence(value, cond.Value)
	case OpBetween:
		bounds, ok := toSlice(cond.Value)
		if !ok || len(bounds) != 2 {
			return false
		}
		lo, okLo := compareValues(value, bounds[0])
		hi, okHi := compareValues(value, bounds[1])
		return okLo && okHi && lo >= 0 && hi <= 0
	default:
		return false
	}
}

func inSequence(value, seq any) bool {
	items, ok := toSlice(seq)
	if !ok {
		return false
	}
	for _, item := range items {
		if equalValues(value, item) {
			return true
		}
	}
	return false
}

// equalValues tests strict equality with numeric and ISO-date
// normalization: 25 equals 25.0, and two strings that both parse as
// ISO-8601 timestamps compare as instants.
func equalValues(a, b any) bool {
	if c, ok := compareValues(a, b); ok {
		return c == 0
	}
	return reflect.DeepEqual(a, b)
}

// compareValues performs natural comparison on numbers, timestamps and
// strings. Mixed types are not comparable: the predicate fails rather than
// erroring.
func compareValues(a, b any) (int, bool) {
	if fa, ok := toFloat(a); ok {
		fb, ok := toFloat(b)
		if !ok {
			return 0, false
		}
		switch {
		case fa < fb:
			return -1, true
		case fa > fb:
			return 1, true
		default:
			return 0, true
		}
	}

	sa, okA := a.(string)
	sb, okB := b.(string)
	if !okA || !okB {
		return 0, false
	}
	if ta, ok := codec.ParseTime(sa); ok {
		if tb, ok := codec.ParseTime(sb); ok {
			return ta.Compare(tb), true
		}
		return 0, false
	}
	return strings.Compare(sa, sb), true
}

func toFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case float32:
		return float64(x), true
	case int:
		return float64(x), true
	case int32:
		return float64(x), true
	case int64:
		return float64(x), true
	case uint:
		return float64(x), true
	case uint64:
		return float64(x), true
	default:
		return 0, false
	}
}

package query

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"
)

// ErrValidation marks a malformed query. Every parse error wraps it, so
// callers can reject the call without inspecting individual sentinels.
var ErrValidation = errors.New("query: validation failed")

// Validation errors.
var (
	ErrUnknownOperator = fmt.Errorf("%w: unknown operator", ErrValidation)
	ErrInvalidBetween  = fmt.Errorf("%w: $between requires a two-element range", ErrValidation)
	ErrInvalidIn       = fmt.Errorf("%w: $in and $nin require a sequence of values", ErrValidation)
)

// operators maps external dialect names to internal constants.
var operators = map[string]Operator{
	"$eq":      OpEqual,
	"$gt":      OpGreater,
	"$gte":     OpGreaterOrEqual,
	"$lt":      OpLess,
	"$lte":     OpLessOrEqual,
	"$in":      OpIn,
	"$nin":     OpNotIn,
	"$between": OpBetween,
}

// Parse normalizes a document-shaped predicate into its structured form.
// Each field maps either to a scalar (implicit equality) or to an object of
// operator clauses, e.g. {age: {$gte: 18, $lt: 30}}. A nil or empty
// predicate parses to an empty query, which matches every document.
func Parse(raw map[string]any) (Query, error) {
	q := make(Query, len(raw))
	for field, spec := range raw {
		conds, err := parseField(field, spec)
		if err != nil {
			return nil, err
		}
		q[field] = conds
	}
	return q, nil
}

func parseField(field string, spec any) ([]Condition, error) {
	clauses, ok := spec.(map[string]any)
	if !ok || !hasOperatorKeys(clauses) {
		// Scalar, sequence, or plain nested object: implicit equality.
		return []Condition{{Op: OpEqual, Value: spec}}, nil
	}

	// Map iteration order is random; sort clause names so the structured
	// form (and everything planned from it) is deterministic.
	names := make([]string, 0, len(clauses))
	for name := range clauses {
		names = append(names, name)
	}
	sort.Strings(names)

	conds := make([]Condition, 0, len(names))
	for _, name := range names {
		op, ok := operators[name]
		if !ok {
			return nil, fmt.Errorf("%w: %q on field %q", ErrUnknownOperator, name, field)
		}
		value := clauses[name]
		switch op {
		case OpBetween:
			bounds, ok := toSlice(value)
			if !ok || len(bounds) != 2 {
				return nil, fmt.Errorf("%w: field %q", ErrInvalidBetween, field)
			}
			value = bounds
		case OpIn, OpNotIn:
			seq, ok := toSlice(value)
			if !ok {
				return nil, fmt.Errorf("%w: field %q", ErrInvalidIn, field)
			}
			value = seq
		}
		conds = append(conds, Condition{Op: op, Value: value})
	}
	return conds, nil
}

// hasOperatorKeys reports whether m looks like an operator clause object.
// An object whose keys carry no dollar prefix is an equality match on the
// object itself; mixing prefixed and plain keys is rejected during parsing.
func hasOperatorKeys(m map[string]any) bool {
	for name := range m {
		if strings.HasPrefix(name, "$") {
			return true
		}
	}
	return false
}

// toSlice converts any slice or array value to []any.
func toSlice(v any) ([]any, bool) {
	if s, ok := v.([]any); ok {
		return s, true
	}
	rv := reflect.ValueOf(v)
	if !rv.IsValid() || (rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array) {
		return nil, false
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out, true
}

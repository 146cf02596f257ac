// Package query provides the document query dialect for Ambar: parsing of
// document-shaped predicates into a structured form, in-memory evaluation of
// that form against documents, and planning of the execution strategy
// (server-side tag filter, full scan, or a hybrid of both).
package query

// Operator identifies a predicate operator in the structured query form.
type Operator int

const (
	// OpEqual tests strict equality (with ISO-date normalization).
	OpEqual Operator = iota
	// OpGreater tests strict greater-than.
	OpGreater
	// OpGreaterOrEqual tests greater-than-or-equal.
	OpGreaterOrEqual
	// OpLess tests strict less-than.
	OpLess
	// OpLessOrEqual tests less-than-or-equal.
	OpLessOrEqual
	// OpIn tests membership in a finite sequence.
	OpIn
	// OpNotIn tests non-membership in a finite sequence.
	OpNotIn
	// OpBetween tests an inclusive two-ended range.
	OpBetween
)

// String returns the external dialect name of the operator.
func (op Operator) String() string {
	switch op {
	case OpEqual:
		return "$eq"
	case OpGreater:
		return "$gt"
	case OpGreaterOrEqual:
		return "$gte"
	case OpLess:
		return "$lt"
	case OpLessOrEqual:
		return "$lte"
	case OpIn:
		return "$in"
	case OpNotIn:
		return "$nin"
	case OpBetween:
		return "$between"
	default:
		return "unknown"
	}
}

// Condition is a single operator applied to a field value.
type Condition struct {
	Op    Operator
	Value any
}

// Query is the structured form of a predicate: for each field, the ordered
// list of conditions that must all hold. A scalar in the external dialect
// collapses to a single OpEqual condition.
type Query map[string][]Condition

package query

import (
	"fmt"
	"slices"
	"strings"

	"github.com/ambardb/ambar/internal/catalog"
	"github.com/ambardb/ambar/internal/codec"
)

// Mode selects how a query executes against the store.
type Mode int

const (
	// ModeList enumerates the container without a predicate.
	ModeList Mode = iota
	// ModeTagFilter pushes the whole predicate to the server as a
	// tag-filter expression.
	ModeTagFilter
	// ModeHybrid pushes the indexed subset of the predicate as a tag
	// filter to narrow candidates and evaluates the rest in memory.
	ModeHybrid
	// ModeScan enumerates the container and evaluates the whole predicate
	// in memory.
	ModeScan
)

// String returns the mode name.
func (m Mode) String() string {
	switch m {
	case ModeList:
		return "list"
	case ModeTagFilter:
		return "tag-filter"
	case ModeHybrid:
		return "hybrid"
	case ModeScan:
		return "scan"
	default:
		return "unknown"
	}
}

// Plan is the chosen execution strategy for a parsed query.
type Plan struct {
	Mode Mode

	// Expr is the tag-filter expression. Set for ModeTagFilter and
	// ModeHybrid.
	Expr string

	// Residual holds the conditions evaluated in memory over fetched
	// documents. Set for ModeHybrid and ModeScan. Pagination counts hits
	// after the residual filter.
	Residual Query

	// CoveringIndex is the identifier of a compound index that exactly
	// covers an all-equality tag-filter query, when one exists. The
	// server indexes every tag independently; the compound definition
	// certifies the combination and is surfaced for observability only.
	CoveringIndex string
}

// BuildPlan translates a parsed query into an execution strategy against
// the given catalog. Per field: if the field is indexed and every one of
// its conditions is expressible in the tag-filter dialect, the conditions
// become filter atoms; otherwise the whole field goes to the residual. The
// dialect has no disjunction, so $in and $nin are never expressible; unique
// fields may carry hashed tags, so only equality is pushed for them.
func BuildPlan(q Query, def *catalog.Definition) Plan {
	if len(q) == 0 {
		return Plan{Mode: ModeList}
	}

	fields := make([]string, 0, len(q))
	for f := range q {
		fields = append(fields, f)
	}
	slices.Sort(fields)

	var atoms []string
	residual := make(Query)
	for _, field := range fields {
		conds := q[field]
		if !def.IsIndexed(field) {
			residual[field] = conds
			continue
		}
		fieldAtoms, ok := filterAtoms(field, conds, def.IsUnique(field))
		if !ok {
			residual[field] = conds
			continue
		}
		atoms = append(atoms, fieldAtoms...)
	}

	switch {
	case len(atoms) == 0:
		return Plan{Mode: ModeScan, Residual: q}
	case len(residual) == 0:
		return Plan{
			Mode:          ModeTagFilter,
			Expr:          strings.Join(atoms, " AND "),
			CoveringIndex: coveringIndex(q, def, fields),
		}
	default:
		return Plan{Mode: ModeHybrid, Expr: strings.Join(atoms, " AND "), Residual: residual}
	}
}

// filterAtoms renders all conditions of one field as tag-filter atoms.
// Returns false when any condition is inexpressible; the field is then
// evaluated in memory instead.
func filterAtoms(field string, conds []Condition, unique bool) ([]string, bool) {
	atoms := make([]string, 0, len(conds))
	for _, cond := range conds {
		switch cond.Op {
		case OpEqual:
			enc, err := codec.TagValue(cond.Value, unique)
			if err != nil {
				return nil, false
			}
			atoms = append(atoms, atom(field, "=", enc))
		case OpGreater, OpGreaterOrEqual, OpLess, OpLessOrEqual:
			if unique {
				// Hashed tags preserve no order.
				return nil, false
			}
			enc, err := codec.Encode(cond.Value)
			if err != nil {
				return nil, false
			}
			atoms = append(atoms, atom(field, rangeOp(cond.Op), enc))
		case OpBetween:
			if unique {
				return nil, false
			}
			bounds, ok := toSlice(cond.Value)
			if !ok || len(bounds) != 2 {
				return nil, false
			}
			lo, errLo := codec.Encode(bounds[0])
			hi, errHi := codec.Encode(bounds[1])
			if errLo != nil || errHi != nil {
				return nil, false
			}
			atoms = append(atoms, fmt.Sprintf(`"%s" BETWEEN '%s' AND '%s'`,
				field, quoteValue(lo), quoteValue(hi)))
		default:
			// $in, $nin: the dialect has no disjunction.
			return nil, false
		}
	}
	return atoms, true
}

func rangeOp(op Operator) string {
	switch op {
	case OpGreater:
		return ">"
	case OpGreaterOrEqual:
		return ">="
	case OpLess:
		return "<"
	case OpLessOrEqual:
		return "<="
	default:
		return ""
	}
}

func atom(field, op, value string) string {
	return fmt.Sprintf(`"%s" %s '%s'`, field, op, quoteValue(value))
}

// quoteValue doubles single quotes per the filter grammar. Encoded values
// cannot contain quotes, but probe expressions are built from the same
// helper and stay safe regardless of input.
func quoteValue(v string) string {
	return strings.ReplaceAll(v, "'", "''")
}

// EqualityExpr builds a single-atom equality expression for an
// already-encoded tag value. Used by the write path for unique probes.
func EqualityExpr(field, encoded string) string {
	return atom(field, "=", encoded)
}

// coveringIndex returns the identifier of a compound index whose field
// list exactly matches the query's fields when every condition is an
// equality, or the empty string.
func coveringIndex(q Query, def *catalog.Definition, fields []string) string {
	for _, conds := range q {
		for _, cond := range conds {
			if cond.Op != OpEqual {
				return ""
			}
		}
	}
	for id, idx := range def.Indexes {
		sorted := slices.Clone(idx.Fields)
		slices.Sort(sorted)
		if slices.Equal(sorted, fields) {
			return id
		}
	}
	return ""
}

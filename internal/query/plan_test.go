package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ambardb/ambar/internal/catalog"
	"github.com/ambardb/ambar/internal/codec"
)

func testDef() *catalog.Definition {
	return &catalog.Definition{
		IndexedFields: []string{"age", "city", "email"},
		UniqueFields:  []string{"email"},
		Indexes: map[string]catalog.Index{
			"age_city": {Fields: []string{"age", "city"}},
		},
	}
}

func TestBuildPlanEmptyQuery(t *testing.T) {
	plan := BuildPlan(Query{}, catalog.NewDefinition())
	assert.Equal(t, ModeList, plan.Mode)
	assert.Empty(t, plan.Expr)
	assert.Empty(t, plan.Residual)
}

func TestBuildPlanTagFilter(t *testing.T) {
	q := mustParse(t, map[string]any{"age": 30, "city": "NYC"})
	plan := BuildPlan(q, testDef())

	assert.Equal(t, ModeTagFilter, plan.Mode)
	assert.Equal(t, `"age" = '`+codec.EncodeInt64(30)+`' AND "city" = 'NYC'`, plan.Expr)
	assert.Empty(t, plan.Residual)
	assert.Equal(t, "age_city", plan.CoveringIndex)
}

func TestBuildPlanRangeAtoms(t *testing.T) {
	q := mustParse(t, map[string]any{"age": map[string]any{"$gte": 30}})
	plan := BuildPlan(q, testDef())

	assert.Equal(t, ModeTagFilter, plan.Mode)
	assert.Equal(t, `"age" >= '`+codec.EncodeInt64(30)+`'`, plan.Expr)
	assert.Empty(t, plan.CoveringIndex)
}

func TestBuildPlanBetweenAtom(t *testing.T) {
	q := mustParse(t, map[string]any{"age": map[string]any{"$between": []any{26, 34}}})
	plan := BuildPlan(q, testDef())

	assert.Equal(t, ModeTagFilter, plan.Mode)
	assert.Equal(t,
		`"age" BETWEEN '`+codec.EncodeInt64(26)+`' AND '`+codec.EncodeInt64(34)+`'`,
		plan.Expr)
}

func TestBuildPlanFullScan(t *testing.T) {
	// No queried field is indexed.
	q := mustParse(t, map[string]any{"profession": "Engineer"})
	plan := BuildPlan(q, testDef())

	assert.Equal(t, ModeScan, plan.Mode)
	assert.Empty(t, plan.Expr)
	assert.Equal(t, q, plan.Residual)
}

func TestBuildPlanHybrid(t *testing.T) {
	q := mustParse(t, map[string]any{"age": 30, "profession": "Engineer"})
	plan := BuildPlan(q, testDef())

	assert.Equal(t, ModeHybrid, plan.Mode)
	assert.Equal(t, `"age" = '`+codec.EncodeInt64(30)+`'`, plan.Expr)
	require.Len(t, plan.Residual, 1)
	assert.Contains(t, plan.Residual, "profession")
}

func TestBuildPlanInForcesScan(t *testing.T) {
	// The dialect has no disjunction: $in is never tag-expressible, even
	// on an indexed field.
	q := mustParse(t, map[string]any{"city": map[string]any{"$in": []any{"NYC", "LA"}}})
	plan := BuildPlan(q, testDef())

	assert.Equal(t, ModeScan, plan.Mode)
	assert.Equal(t, q, plan.Residual)
}

func TestBuildPlanNinForcesScan(t *testing.T) {
	q := mustParse(t, map[string]any{"city": map[string]any{"$nin": []any{"NYC"}}})
	plan := BuildPlan(q, testDef())
	assert.Equal(t, ModeScan, plan.Mode)
}

func TestBuildPlanUniqueFieldEqualityUsesHashRule(t *testing.T) {
	q := mustParse(t, map[string]any{"email": "a@b"})
	plan := BuildPlan(q, testDef())

	assert.Equal(t, ModeTagFilter, plan.Mode)
	assert.Equal(t, `"email" = '`+codec.Hash("a@b")+`'`, plan.Expr)
}

func TestBuildPlanUniqueFieldRangeFallsBack(t *testing.T) {
	// Hashed tags preserve no order; ranges on unique fields scan.
	q := mustParse(t, map[string]any{"email": map[string]any{"$gt": "a"}})
	plan := BuildPlan(q, testDef())
	assert.Equal(t, ModeScan, plan.Mode)
}

func TestBuildPlanUnsupportedValueFallsBack(t *testing.T) {
	// A value with no tag encoding cannot be pushed to the server.
	q := mustParse(t, map[string]any{"age": 3.5})
	plan := BuildPlan(q, testDef())
	assert.Equal(t, ModeScan, plan.Mode)
}

func TestEqualityExprQuoting(t *testing.T) {
	assert.Equal(t, `"f" = 'it''s'`, EqualityExpr("f", "it's"))
}

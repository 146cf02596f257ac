package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseScalarEquality(t *testing.T) {
	q, err := Parse(map[string]any{"city": "NYC", "age": 30})
	require.NoError(t, err)
	require.Len(t, q, 2)
	assert.Equal(t, []Condition{{Op: OpEqual, Value: "NYC"}}, q["city"])
	assert.Equal(t, []Condition{{Op: OpEqual, Value: 30}}, q["age"])
}

func TestParseEmpty(t *testing.T) {
	q, err := Parse(nil)
	require.NoError(t, err)
	assert.Empty(t, q)

	q, err = Parse(map[string]any{})
	require.NoError(t, err)
	assert.Empty(t, q)
}

func TestParseOperatorClauses(t *testing.T) {
	q, err := Parse(map[string]any{
		"age": map[string]any{"$gte": 18, "$lt": 30},
	})
	require.NoError(t, err)
	// Clause names sort, so $gte precedes $lt.
	assert.Equal(t, []Condition{
		{Op: OpGreaterOrEqual, Value: 18},
		{Op: OpLess, Value: 30},
	}, q["age"])
}

func TestParseAllOperators(t *testing.T) {
	cases := map[string]Operator{
		"$eq":  OpEqual,
		"$gt":  OpGreater,
		"$gte": OpGreaterOrEqual,
		"$lt":  OpLess,
		"$lte": OpLessOrEqual,
	}
	for name, op := range cases {
		t.Run(name, func(t *testing.T) {
			q, err := Parse(map[string]any{"f": map[string]any{name: 1}})
			require.NoError(t, err)
			require.Len(t, q["f"], 1)
			assert.Equal(t, op, q["f"][0].Op)
		})
	}
}

func TestParseBetween(t *testing.T) {
	q, err := Parse(map[string]any{"age": map[string]any{"$between": []any{26, 34}}})
	require.NoError(t, err)
	assert.Equal(t, []Condition{{Op: OpBetween, Value: []any{26, 34}}}, q["age"])

	// Typed slices are accepted too.
	q, err = Parse(map[string]any{"age": map[string]any{"$between": []int{26, 34}}})
	require.NoError(t, err)
	assert.Equal(t, OpBetween, q["age"][0].Op)
}

func TestParseBetweenValidation(t *testing.T) {
	for _, bad := range []any{26, []any{26}, []any{1, 2, 3}, "26,34"} {
		_, err := Parse(map[string]any{"age": map[string]any{"$between": bad}})
		assert.ErrorIs(t, err, ErrInvalidBetween, "value %v", bad)
		assert.ErrorIs(t, err, ErrValidation)
	}
}

func TestParseInValidation(t *testing.T) {
	_, err := Parse(map[string]any{"city": map[string]any{"$in": "NYC"}})
	assert.ErrorIs(t, err, ErrInvalidIn)

	q, err := Parse(map[string]any{"city": map[string]any{"$in": []any{"NYC", "LA"}}})
	require.NoError(t, err)
	assert.Equal(t, OpIn, q["city"][0].Op)
}

func TestParseUnknownOperator(t *testing.T) {
	_, err := Parse(map[string]any{"f": map[string]any{"$exists": true}})
	assert.ErrorIs(t, err, ErrUnknownOperator)
}

func TestParsePlainObjectIsEquality(t *testing.T) {
	// An object without dollar-prefixed keys is an equality match on the
	// object itself.
	q, err := Parse(map[string]any{"address": map[string]any{"city": "NYC"}})
	require.NoError(t, err)
	assert.Equal(t, OpEqual, q["address"][0].Op)
}

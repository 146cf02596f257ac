package store

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func drain(t *testing.T, it Iterator) []string {
	t.Helper()
	var names []string
	for {
		name, err := it.Next(context.Background())
		if errors.Is(err, ErrDone) {
			return names
		}
		require.NoError(t, err)
		names = append(names, name)
	}
}

func newTestStore(t *testing.T) *MemoryStore {
	t.Helper()
	s := NewMemoryStore()
	require.NoError(t, s.EnsureContainer(context.Background(), "docs"))
	return s
}

func TestPutGetRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	etag, err := s.Put(ctx, "docs", "a", []byte(`{"x":1}`), PutOptions{})
	require.NoError(t, err)
	require.NotEmpty(t, etag)

	obj, err := s.Get(ctx, "docs", "a")
	require.NoError(t, err)
	assert.Equal(t, []byte(`{"x":1}`), obj.Data)
	assert.Equal(t, etag, obj.ETag)
}

func TestGetMissing(t *testing.T) {
	s := newTestStore(t)
	_, err := s.Get(context.Background(), "docs", "nope")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = s.Get(context.Background(), "no-container", "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPutPreconditions(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	etag, err := s.Put(ctx, "docs", "a", []byte("v1"), PutOptions{IfNoneMatch: true})
	require.NoError(t, err)

	// If-None-Match on an existing blob fails.
	_, err = s.Put(ctx, "docs", "a", []byte("v2"), PutOptions{IfNoneMatch: true})
	assert.ErrorIs(t, err, ErrPreconditionFailed)

	// If-Match with a stale etag fails.
	_, err = s.Put(ctx, "docs", "a", []byte("v2"), PutOptions{IfMatch: "stale"})
	assert.ErrorIs(t, err, ErrPreconditionFailed)

	// If-Match with the current etag succeeds and rotates the etag.
	etag2, err := s.Put(ctx, "docs", "a", []byte("v2"), PutOptions{IfMatch: etag})
	require.NoError(t, err)
	assert.NotEqual(t, etag, etag2)

	// If-Match on a missing blob fails.
	_, err = s.Put(ctx, "docs", "b", []byte("v1"), PutOptions{IfMatch: etag2})
	assert.ErrorIs(t, err, ErrPreconditionFailed)
}

func TestPutRejectsInvalidTags(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.Put(ctx, "docs", "a", nil, PutOptions{Tags: map[string]string{"k": "no|pe"}})
	assert.ErrorIs(t, err, ErrInvalidTag)

	_, err = s.Put(ctx, "docs", "a", nil, PutOptions{Tags: map[string]string{"k": ""}})
	assert.ErrorIs(t, err, ErrInvalidTag)

	tooMany := make(map[string]string)
	for i := 0; i < MaxTagsPerBlob+1; i++ {
		tooMany[string(rune('a'+i))] = "v"
	}
	_, err = s.Put(ctx, "docs", "a", nil, PutOptions{Tags: tooMany})
	assert.ErrorIs(t, err, ErrInvalidTag)
}

func TestDeleteIdempotent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.Put(ctx, "docs", "a", []byte("v"), PutOptions{})
	require.NoError(t, err)

	require.NoError(t, s.Delete(ctx, "docs", "a"))
	require.NoError(t, s.Delete(ctx, "docs", "a"))
	require.NoError(t, s.Delete(ctx, "missing", "a"))
}

func TestListLexicographicOrder(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for _, name := range []string{"c", "a", "b", "__system"} {
		_, err := s.Put(ctx, "docs", name, []byte("v"), PutOptions{})
		require.NoError(t, err)
	}

	assert.Equal(t, []string{"__system", "a", "b", "c"}, drain(t, s.List(ctx, "docs", "")))
	assert.Equal(t, []string{"a"}, drain(t, s.List(ctx, "docs", "a")))
	assert.Empty(t, drain(t, s.List(ctx, "missing", "")))
}

func TestFindByTags(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	put := func(name string, tags map[string]string) {
		t.Helper()
		_, err := s.Put(ctx, "docs", name, []byte("{}"), PutOptions{Tags: tags})
		require.NoError(t, err)
	}
	put("u1", map[string]string{"age": "025", "city": "NYC"})
	put("u2", map[string]string{"age": "030", "city": "NYC"})
	put("u3", map[string]string{"age": "035", "city": "LA"})
	put("u4", map[string]string{"city": "NYC"})

	cases := []struct {
		expr string
		want []string
	}{
		{`"city" = 'NYC'`, []string{"u1", "u2", "u4"}},
		{`"age" >= '030'`, []string{"u2", "u3"}},
		{`"age" > '030'`, []string{"u3"}},
		{`"age" <= '030'`, []string{"u1", "u2"}},
		{`"age" BETWEEN '026' AND '034'`, []string{"u2"}},
		{`"age" = '030' AND "city" = 'NYC'`, []string{"u2"}},
		{`"age" = '030' AND "city" = 'LA'`, nil},
		{`"missing" = 'x'`, nil},
	}
	for _, tc := range cases {
		t.Run(tc.expr, func(t *testing.T) {
			assert.Equal(t, tc.want, drain(t, s.FindByTags(ctx, "docs", tc.expr)))
		})
	}
}

func TestDropContainer(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.Put(ctx, "docs", "a", []byte("v"), PutOptions{})
	require.NoError(t, err)

	require.NoError(t, s.DropContainer(ctx, "docs"))
	require.NoError(t, s.DropContainer(ctx, "docs"))

	names, err := s.ListContainers(ctx)
	require.NoError(t, err)
	assert.Empty(t, names)
}

func TestListContainers(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, s.EnsureContainer(ctx, "beta"))
	require.NoError(t, s.EnsureContainer(ctx, "alpha"))

	names, err := s.ListContainers(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"alpha", "beta"}, names)
}

func TestIteratorHonorsCancellation(t *testing.T) {
	s := newTestStore(t)
	ctx, cancel := context.WithCancel(context.Background())

	_, err := s.Put(ctx, "docs", "a", []byte("v"), PutOptions{})
	require.NoError(t, err)

	it := s.List(context.Background(), "docs", "")
	cancel()
	_, err = it.Next(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

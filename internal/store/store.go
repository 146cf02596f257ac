// Package store defines the object-store contract the Ambar core runs
// against: containers of named blobs with per-blob metadata tags, etag
// preconditions for compare-and-swap writes, and server-side tag search.
// Two implementations are provided: an in-process store for tests and
// single-node use, and an adapter over Azure Blob Storage blob-index tags.
package store

import (
	"context"
	"errors"
)

// Store errors.
var (
	// ErrNotFound is returned when a blob does not exist.
	ErrNotFound = errors.New("store: blob not found")
	// ErrContainerNotFound is returned when a container does not exist.
	ErrContainerNotFound = errors.New("store: container not found")
	// ErrPreconditionFailed is returned when an etag precondition is not met.
	ErrPreconditionFailed = errors.New("store: precondition failed")
	// ErrInvalidTag is returned when a tag key or value violates the
	// tag alphabet or size limits.
	ErrInvalidTag = errors.New("store: invalid blob tag")
	// ErrDone signals the end of an iteration.
	ErrDone = errors.New("store: iteration done")
)

// MaxTagsPerBlob is the maximum number of tags a single blob may carry.
const MaxTagsPerBlob = 10

// PutOptions carries tags and write preconditions for Put.
type PutOptions struct {
	// Tags is the metadata tag set to attach to the blob.
	Tags map[string]string

	// IfMatch, when non-empty, makes the write conditional on the blob's
	// current etag matching.
	IfMatch string

	// IfNoneMatch, when true, makes the write conditional on the blob not
	// existing (If-None-Match: *).
	IfNoneMatch bool
}

// Object is the payload and version token of a fetched blob.
type Object struct {
	Data []byte
	ETag string
}

// Iterator yields blob names one at a time. Next returns ErrDone when the
// sequence is exhausted. Iterators are not safe for concurrent use.
type Iterator interface {
	Next(ctx context.Context) (string, error)
}

// Store is the abstract object store the core depends on. All operations
// honor context cancellation; pending I/O is abandoned on cancel and no
// rollback is attempted.
type Store interface {
	// EnsureContainer creates the container if absent. Idempotent.
	EnsureContainer(ctx context.Context, name string) error

	// Put writes a blob with the given tags and preconditions and returns
	// the new etag.
	Put(ctx context.Context, container, name string, data []byte, opts PutOptions) (string, error)

	// Get fetches a blob's payload and etag. Returns ErrNotFound if the
	// blob (or its container) is absent.
	Get(ctx context.Context, container, name string) (*Object, error)

	// Exists reports whether a blob exists.
	Exists(ctx context.Context, container, name string) (bool, error)

	// Delete removes a blob. Deleting an absent blob is a no-op.
	Delete(ctx context.Context, container, name string) error

	// List enumerates blob names with the given prefix in the store's
	// listing order. A missing container yields an empty sequence.
	List(ctx context.Context, container, prefix string) Iterator

	// FindByTags enumerates names of blobs whose tags satisfy expr, a
	// conjunction of `"key" OP 'value'` atoms joined by AND, with OP one
	// of =, >, >=, <, <= or BETWEEN ... AND ...; comparisons are
	// byte-lexicographic.
	FindByTags(ctx context.Context, container, expr string) Iterator

	// DropContainer removes a container and everything in it. Dropping an
	// absent container is a no-op.
	DropContainer(ctx context.Context, name string) error

	// ListContainers returns the names of all containers.
	ListContainers(ctx context.Context) ([]string, error)
}

// sliceIterator iterates over a materialized name slice.
type sliceIterator struct {
	names []string
	pos   int
}

// NewSliceIterator returns an Iterator over a fixed set of names.
func NewSliceIterator(names []string) Iterator {
	return &sliceIterator{names: names}
}

func (it *sliceIterator) Next(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if it.pos >= len(it.names) {
		return "", ErrDone
	}
	name := it.names[it.pos]
	it.pos++
	return name, nil
}

// errIterator returns a fixed error from every Next call.
type errIterator struct{ err error }

// NewErrIterator returns an Iterator that fails immediately with err.
func NewErrIterator(err error) Iterator {
	return &errIterator{err: err}
}

func (it *errIterator) Next(ctx context.Context) (string, error) {
	return "", it.err
}

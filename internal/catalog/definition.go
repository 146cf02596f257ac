// Package catalog owns the lifecycle of per-collection index metadata: the
// set of fields projected as blob tags, the subset enforced as unique, and
// the compound index definitions. The catalog lives in a single well-known
// blob per collection and is mutated under optimistic concurrency with etag
// preconditions.
package catalog

import (
	"errors"
	"fmt"
	"regexp"
	"slices"
	"strings"
)

// BlobName is the well-known blob holding a collection's index metadata.
// The double-underscore prefix marks it as a system blob: listings and
// searches skip it.
const BlobName = "__collection_indexes"

// MaxIndexedFields is the blob-tag cardinality limit per collection.
const MaxIndexedFields = 10

// Catalog errors.
var (
	// ErrTooManyIndexedFields is returned when an index would push the
	// collection past the tag limit. Not retried.
	ErrTooManyIndexedFields = fmt.Errorf("catalog: more than %d indexed fields", MaxIndexedFields)
	// ErrNoFields is returned when createIndex is called without fields.
	ErrNoFields = errors.New("catalog: index requires at least one field")
	// ErrConflict is returned when a catalog write lost a compare-and-swap
	// race and retries were exhausted.
	ErrConflict = errors.New("catalog: concurrent update conflict")
	// ErrInvalidField is returned when an index field name cannot serve as
	// a tag key. Caught at index creation; otherwise it would only surface
	// as a failed write on every document touching the field.
	ErrInvalidField = errors.New("catalog: field name is not a valid tag key")
)

// fieldNamePattern is the tag-key alphabet and length limit of the
// substrate. Indexed field names become tag keys verbatim.
var fieldNamePattern = regexp.MustCompile(`^[A-Za-z0-9 .\-/:_]{1,256}$`)

// Index is a single or compound index definition.
type Index struct {
	// Fields is the ordered field list. Order is significant: [a,b] and
	// [b,a] are distinct indexes.
	Fields []string `json:"fields"`
	// Unique marks the index as a uniqueness constraint.
	Unique bool `json:"unique"`
}

// Definition is the index catalog of one collection. It is the sole source
// of truth for which fields are indexed; tags on document blobs are a
// derived projection.
type Definition struct {
	// IndexedFields are the fields materialized as blob tags.
	IndexedFields []string `json:"indexedFields"`
	// UniqueFields is the subset of IndexedFields enforced as unique.
	UniqueFields []string `json:"uniqueFields"`
	// Indexes maps an index identifier (the fields joined by "_") to its
	// definition.
	Indexes map[string]Index `json:"indexes"`

	// etag is the server version token of the catalog blob. Empty for a
	// catalog that has never been persisted. Runtime only, never part of
	// the payload.
	etag string
}

// NewDefinition returns an empty catalog with no version token.
func NewDefinition() *Definition {
	return &Definition{Indexes: make(map[string]Index)}
}

// IndexID derives the identifier of an index over the given fields.
func IndexID(fields []string) string {
	return strings.Join(fields, "_")
}

// IsIndexed reports whether field is projected as a blob tag.
func (d *Definition) IsIndexed(field string) bool {
	return slices.Contains(d.IndexedFields, field)
}

// IsUnique reports whether field carries a uniqueness constraint.
func (d *Definition) IsUnique(field string) bool {
	return slices.Contains(d.UniqueFields, field)
}

// ETag returns the catalog's version token, empty if never persisted.
func (d *Definition) ETag() string {
	return d.etag
}

// Clone returns a deep copy sharing no state with d, including the version
// token.
func (d *Definition) Clone() *Definition {
	c := &Definition{
		IndexedFields: slices.Clone(d.IndexedFields),
		UniqueFields:  slices.Clone(d.UniqueFields),
		Indexes:       make(map[string]Index, len(d.Indexes)),
		etag:          d.etag,
	}
	for id, idx := range d.Indexes {
		c.Indexes[id] = Index{Fields: slices.Clone(idx.Fields), Unique: idx.Unique}
	}
	return c
}

// apply adds or updates an index over fields, marking each constituent
// field as indexed and, for single-field unique indexes, as unique. It
// reports whether the definition changed, so an identical createIndex is a
// no-op after the first. The tag cap is checked before mutation and its
// violation is terminal.
func (d *Definition) apply(fields []string, unique bool) (bool, error) {
	if len(fields) == 0 {
		return false, ErrNoFields
	}
	for _, f := range fields {
		if !fieldNamePattern.MatchString(f) {
			return false, fmt.Errorf("%w: %q", ErrInvalidField, f)
		}
	}

	added := 0
	for _, f := range fields {
		if !d.IsIndexed(f) {
			added++
		}
	}
	if len(d.IndexedFields)+added > MaxIndexedFields {
		return false, fmt.Errorf("%w: adding %v", ErrTooManyIndexedFields, fields)
	}

	changed := false
	for _, f := range fields {
		if !d.IsIndexed(f) {
			d.IndexedFields = append(d.IndexedFields, f)
			changed = true
		}
	}
	// Compound indexes record uniqueness as bookkeeping only; uniqueness is
	// enforced per single field on the write path.
	if unique && len(fields) == 1 && !d.IsUnique(fields[0]) {
		d.UniqueFields = append(d.UniqueFields, fields[0])
		changed = true
	}

	id := IndexID(fields)
	want := Index{Fields: slices.Clone(fields), Unique: unique}
	if have, ok := d.Indexes[id]; !ok || !slices.Equal(have.Fields, want.Fields) || have.Unique != want.Unique {
		if d.Indexes == nil {
			d.Indexes = make(map[string]Index)
		}
		d.Indexes[id] = want
		changed = true
	}
	return changed, nil
}

// Package engine implements the public operations of the Ambar core:
// document create, read, update and delete, query execution, index
// management, and collection lifecycle. It wires the tag codec, the query
// planner, the index catalog and the storage substrate together; the
// external CRUD facade fans its method calls through this package.
package engine

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ambardb/ambar/internal/catalog"
	"github.com/ambardb/ambar/internal/store"
)

// Engine errors.
var (
	// ErrNotFound is returned when a document is absent on read or update.
	ErrNotFound = errors.New("engine: document not found")
	// ErrUniqueViolation is returned when a unique-field probe matched
	// another document.
	ErrUniqueViolation = errors.New("engine: unique constraint violation")
	// ErrReservedID is returned when a caller-supplied document id uses
	// the system-reserved prefix. Writing under such a name would clobber
	// engine metadata like the index catalog.
	ErrReservedID = errors.New("engine: document id uses a reserved prefix")
)

// UniqueViolationError reports which unique field an operation collided on.
type UniqueViolationError struct {
	Field string
	Value any
}

func (e *UniqueViolationError) Error() string {
	return fmt.Sprintf("engine: unique constraint violation on field %q (value %v)", e.Field, e.Value)
}

func (e *UniqueViolationError) Unwrap() error {
	return ErrUniqueViolation
}

// Document is a JSON-representable document value. Every persisted
// document carries a canonical "id" field equal to its blob name.
type Document = map[string]any

// IDSource mints document identifiers. Identifiers must be
// lexicographically sortable and unique; the default source produces
// time-ordered UUIDv7 strings.
type IDSource func() string

// systemPrefix marks blobs reserved by the engine. Such names never appear
// in query results and cannot be addressed as documents.
const systemPrefix = "__"

func isSystemBlob(name string) bool {
	return strings.HasPrefix(name, systemPrefix)
}

// Engine executes document and index operations against an object store.
type Engine struct {
	store    store.Store
	catalogs *catalog.Manager
	log      *zap.Logger
	newID    IDSource
}

// Option customizes an Engine.
type Option func(*Engine)

// WithIDSource replaces the default UUIDv7 identifier source.
func WithIDSource(src IDSource) Option {
	return func(e *Engine) { e.newID = src }
}

// New creates an Engine over the given store.
func New(st store.Store, log *zap.Logger, opts ...Option) *Engine {
	if log == nil {
		log = zap.NewNop()
	}
	e := &Engine{
		store:    st,
		catalogs: catalog.NewManager(st, log),
		log:      log,
		newID: func() string {
			return uuid.Must(uuid.NewV7()).String()
		},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

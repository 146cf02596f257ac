package engine

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/ambardb/ambar/internal/catalog"
	"github.com/ambardb/ambar/internal/codec"
	"github.com/ambardb/ambar/internal/query"
	"github.com/ambardb/ambar/internal/store"
)

// buildTags materializes the indexed projection of doc: one tag per
// catalog-indexed field with a defined, non-null, encodable value. Fields
// whose values have no tag encoding are skipped with a warning and the
// write continues untagged for that field.
func (e *Engine) buildTags(container string, def *catalog.Definition, doc Document) map[string]string {
	tags := make(map[string]string, len(def.IndexedFields))
	for _, field := range def.IndexedFields {
		value, ok := doc[field]
		if !ok || value == nil {
			continue
		}
		encoded, err := codec.TagValue(value, def.IsUnique(field))
		if err != nil {
			e.log.Warn("field value has no tag encoding, skipping tag",
				zap.String("collection", container),
				zap.String("field", field),
				zap.Error(err))
			continue
		}
		tags[field] = encoded
	}
	return tags
}

// checkUnique probes the store for another document carrying any of the
// given unique tag values. excludeID exempts the document being updated
// from its own values. The probe-then-write sequence is best-effort under
// concurrent writers; strict uniqueness under contention is out of scope.
func (e *Engine) checkUnique(ctx context.Context, container string, def *catalog.Definition, tags map[string]string, doc Document, excludeID string) error {
	for _, field := range def.UniqueFields {
		encoded, ok := tags[field]
		if !ok {
			continue
		}
		it := e.store.FindByTags(ctx, container, query.EqualityExpr(field, encoded))
		for {
			name, err := it.Next(ctx)
			if errors.Is(err, store.ErrDone) || errors.Is(err, store.ErrContainerNotFound) {
				break
			}
			if err != nil {
				return fmt.Errorf("engine: unique probe on %q: %w", field, err)
			}
			if isSystemBlob(name) || name == excludeID {
				continue
			}
			return &UniqueViolationError{Field: field, Value: doc[field]}
		}
	}
	return nil
}

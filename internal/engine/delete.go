package engine

import (
	"context"
	"fmt"
)

// Delete removes a document by identifier. Deleting an absent document is
// a no-op; system blob names are treated as absent.
func (e *Engine) Delete(ctx context.Context, collection, id string) error {
	if isSystemBlob(id) {
		return nil
	}
	container := SanitizeCollectionName(collection)
	if err := e.store.Delete(ctx, container, id); err != nil {
		return fmt.Errorf("engine: delete %s/%s: %w", collection, id, err)
	}
	return nil
}

package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ambardb/ambar/internal/store"
)

// Read fetches a document by identifier.
func (e *Engine) Read(ctx context.Context, collection, id string) (Document, error) {
	container := SanitizeCollectionName(collection)
	if isSystemBlob(id) {
		return nil, fmt.Errorf("engine: read %s/%s: %w", collection, id, ErrNotFound)
	}

	obj, err := e.store.Get(ctx, container, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) || errors.Is(err, store.ErrContainerNotFound) {
			return nil, fmt.Errorf("engine: read %s/%s: %w", collection, id, ErrNotFound)
		}
		return nil, fmt.Errorf("engine: read %s/%s: %w", collection, id, err)
	}

	var doc Document
	if err := json.Unmarshal(obj.Data, &doc); err != nil {
		return nil, fmt.Errorf("engine: decode %s/%s: %w", collection, id, err)
	}
	return doc, nil
}

package engine

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ambardb/ambar/internal/store"
)

// Create persists a new document. When id is empty a fresh identifier is
// minted; either way the stored document carries an "id" field equal to
// its blob name. Identifiers with the system prefix are rejected: the
// blob namespace they live in belongs to the engine. Indexed fields are
// materialized as blob tags and unique fields are probed before the
// write.
func (e *Engine) Create(ctx context.Context, collection string, data Document, id string) (Document, error) {
	if isSystemBlob(id) {
		return nil, fmt.Errorf("%w: %q", ErrReservedID, id)
	}
	container := SanitizeCollectionName(collection)
	if err := e.store.EnsureContainer(ctx, container); err != nil {
		return nil, fmt.Errorf("engine: create in %s: %w", collection, err)
	}

	if id == "" {
		id = e.newID()
	}
	doc := make(Document, len(data)+1)
	for k, v := range data {
		doc[k] = v
	}
	doc["id"] = id

	def, err := e.catalogs.Load(ctx, container)
	if err != nil {
		return nil, err
	}
	tags := e.buildTags(container, def, doc)
	if err := e.checkUnique(ctx, container, def, tags, doc, ""); err != nil {
		return nil, err
	}

	payload, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("engine: encode document %s: %w", id, err)
	}
	if _, err := e.store.Put(ctx, container, id, payload, store.PutOptions{Tags: tags}); err != nil {
		return nil, fmt.Errorf("engine: create %s/%s: %w", collection, id, err)
	}
	return doc, nil
}

package engine

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ambardb/ambar/internal/store"
)

// Update replaces a document in full. The tag set is recomputed from the
// new document; unique fields are re-probed only when their encoded value
// changed, and the document's own identifier is exempt from the violation
// set.
func (e *Engine) Update(ctx context.Context, collection, id string, data Document) (Document, error) {
	container := SanitizeCollectionName(collection)

	old, err := e.Read(ctx, collection, id)
	if err != nil {
		return nil, err
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
	newTags := e.buildTags(container, def, doc)
	oldTags := e.buildTags(container, def, old)

	changed := make(map[string]string, len(newTags))
	for field, encoded := range newTags {
		if oldTags[field] != encoded {
			changed[field] = encoded
		}
	}
	if err := e.checkUnique(ctx, container, def, changed, doc, id); err != nil {
		return nil, err
	}

	payload, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("engine: encode document %s: %w", id, err)
	}
	if _, err := e.store.Put(ctx, container, id, payload, store.PutOptions{Tags: newTags}); err != nil {
		return nil, fmt.Errorf("engine: update %s/%s: %w", collection, id, err)
	}
	return doc, nil
}

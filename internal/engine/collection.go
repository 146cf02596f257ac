package engine

import (
	"context"
	"fmt"
	"strings"
)

// Container name limits imposed by the substrate.
const (
	minContainerName = 3
	maxContainerName = 63
)

// SanitizeCollectionName maps a collection name to a valid container
// identifier: lowercased, characters outside [a-z0-9-] stripped, runs of
// '-' collapsed, leading and trailing '-' removed, and the result clamped
// to the container length limits (padded with 'a' when too short).
func SanitizeCollectionName(name string) string {
	var b strings.Builder
	lastDash := false
	for _, r := range strings.ToLower(name) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastDash = false
		case r == '-':
			if !lastDash && b.Len() > 0 {
				b.WriteByte('-')
			}
			lastDash = true
		}
	}
	s := strings.TrimRight(b.String(), "-")
	if len(s) > maxContainerName {
		s = strings.TrimRight(s[:maxContainerName], "-")
	}
	for len(s) < minContainerName {
		s += "a"
	}
	return s
}

// CreateIndex adds or updates a single or compound index on a collection.
// Constituent fields become part of the tagged projection on subsequent
// writes; existing documents are not re-tagged.
func (e *Engine) CreateIndex(ctx context.Context, collection string, fields []string, unique bool) error {
	container := SanitizeCollectionName(collection)
	if err := e.store.EnsureContainer(ctx, container); err != nil {
		return fmt.Errorf("engine: create index on %s: %w", collection, err)
	}
	return e.catalogs.CreateIndex(ctx, container, fields, unique)
}

// DropCollection removes the collection's container and everything in it,
// and evicts its catalog cache entry. Dropping an absent collection is a
// no-op.
func (e *Engine) DropCollection(ctx context.Context, collection string) error {
	container := SanitizeCollectionName(collection)
	if err := e.store.DropContainer(ctx, container); err != nil {
		return fmt.Errorf("engine: drop collection %s: %w", collection, err)
	}
	e.catalogs.Evict(container)
	return nil
}

// ListCollections returns the sanitized names of all collections.
func (e *Engine) ListCollections(ctx context.Context) ([]string, error) {
	names, err := e.store.ListContainers(ctx)
	if err != nil {
		return nil, fmt.Errorf("engine: list collections: %w", err)
	}
	return names, nil
}

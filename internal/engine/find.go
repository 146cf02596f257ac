package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/ambardb/ambar/internal/query"
	"github.com/ambardb/ambar/internal/store"
)

// FindOptions paginate a find. Offset documents are skipped and at most
// Limit documents are returned; a non-positive Limit returns everything.
// Pagination counts hits after any in-memory filtering.
type FindOptions struct {
	Limit  int
	Offset int
}

// Find executes a document-shaped predicate against a collection. The
// planner picks listing, server-side tag filtering, a hybrid of tag
// filtering and in-memory evaluation, or a full scan. Results arrive in
// the listing order of the underlying store; no further ordering is
// guaranteed.
func (e *Engine) Find(ctx context.Context, collection string, predicate map[string]any, opts FindOptions) ([]Document, error) {
	q, err := query.Parse(predicate)
	if err != nil {
		return nil, err
	}
	container := SanitizeCollectionName(collection)
	def, err := e.catalogs.Load(ctx, container)
	if err != nil {
		return nil, err
	}

	plan := query.BuildPlan(q, def)
	e.log.Debug("query planned",
		zap.String("collection", container),
		zap.Stringer("mode", plan.Mode),
		zap.String("expr", plan.Expr),
		zap.String("coveringIndex", plan.CoveringIndex))

	return e.execute(ctx, container, plan, opts)
}

// Count returns the number of documents matching the predicate.
func (e *Engine) Count(ctx context.Context, collection string, predicate map[string]any) (int, error) {
	q, err := query.Parse(predicate)
	if err != nil {
		return 0, err
	}
	container := SanitizeCollectionName(collection)
	def, err := e.catalogs.Load(ctx, container)
	if err != nil {
		return 0, err
	}
	plan := query.BuildPlan(q, def)

	count := 0
	needDoc := len(plan.Residual) > 0
	err = e.stream(ctx, container, plan, needDoc, func(Document) bool {
		count++
		return true
	})
	if err != nil {
		return 0, err
	}
	return count, nil
}

// execute runs a plan and applies pagination over the hit stream:
// enumeration stops once offset+limit hits have been produced.
func (e *Engine) execute(ctx context.Context, container string, plan query.Plan, opts FindOptions) ([]Document, error) {
	offset := opts.Offset
	if offset < 0 {
		offset = 0
	}

	var out []Document
	skipped := 0
	err := e.stream(ctx, container, plan, true, func(doc Document) bool {
		if skipped < offset {
			skipped++
			return true
		}
		out = append(out, doc)
		return opts.Limit <= 0 || len(out) < opts.Limit
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// stream enumerates the plan's candidate set, applies the residual filter,
// and feeds each hit to yield until yield returns false or the candidates
// are exhausted. When needDoc is false and the plan has no residual, hits
// are counted from names alone and yield receives nil documents. A failed
// or vanished document fetch drops that hit and the stream continues.
func (e *Engine) stream(ctx context.Context, container string, plan query.Plan, needDoc bool, yield func(Document) bool) error {
	var it store.Iterator
	switch plan.Mode {
	case query.ModeTagFilter, query.ModeHybrid:
		it = e.store.FindByTags(ctx, container, plan.Expr)
	default:
		it = e.store.List(ctx, container, "")
	}

	fetch := needDoc || len(plan.Residual) > 0
	for {
		name, err := it.Next(ctx)
		if errors.Is(err, store.ErrDone) || errors.Is(err, store.ErrContainerNotFound) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("engine: enumerate %s: %w", container, err)
		}
		if isSystemBlob(name) {
			continue
		}

		var doc Document
		if fetch {
			obj, err := e.store.Get(ctx, container, name)
			if err != nil {
				// Deleted between list and fetch, or a transient store
				// failure: drop the hit, the query itself succeeds.
				e.log.Warn("dropping query hit after fetch failure",
					zap.String("collection", container),
					zap.String("id", name),
					zap.Error(err))
				continue
			}
			if err := json.Unmarshal(obj.Data, &doc); err != nil {
				e.log.Warn("dropping undecodable document",
					zap.String("collection", container),
					zap.String("id", name),
					zap.Error(err))
				continue
			}
			if len(plan.Residual) > 0 && !query.Matches(plan.Residual, doc) {
				continue
			}
		}
		if !yield(doc) {
			return nil
		}
	}
}

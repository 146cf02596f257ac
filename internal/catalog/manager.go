package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/ambardb/ambar/internal/store"
)

// Retry parameters for catalog compare-and-swap writes.
const (
	maxRetries   = 5
	initialDelay = 100 * time.Millisecond
	maxDelay     = 5 * time.Second
)

// Manager loads, caches and saves collection catalogs. The cache is a
// process-wide map keyed by container name; staleness is bounded by the
// compare-and-swap discipline: any save racing a concurrent writer fails
// its precondition, refreshes the cache and retries.
type Manager struct {
	store store.Store
	log   *zap.Logger

	mu    sync.RWMutex
	cache map[string]*Definition
}

// NewManager returns a Manager over the given store.
func NewManager(st store.Store, log *zap.Logger) *Manager {
	if log == nil {
		log = zap.NewNop()
	}
	return &Manager{
		store: st,
		log:   log,
		cache: make(map[string]*Definition),
	}
}

// Load returns the catalog for a container, from cache when present. A
// container with no catalog blob yields an empty definition with no
// version token.
func (m *Manager) Load(ctx context.Context, container string) (*Definition, error) {
	m.mu.RLock()
	cached, ok := m.cache[container]
	m.mu.RUnlock()
	if ok {
		return cached.Clone(), nil
	}
	return m.refresh(ctx, container)
}

// refresh fetches the catalog blob, bypassing the cache, and stores the
// result back into it.
func (m *Manager) refresh(ctx context.Context, container string) (*Definition, error) {
	obj, err := m.store.Get(ctx, container, BlobName)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) || errors.Is(err, store.ErrContainerNotFound) {
			return NewDefinition(), nil
		}
		return nil, fmt.Errorf("catalog: load %s: %w", container, err)
	}

	def := NewDefinition()
	if err := json.Unmarshal(obj.Data, def); err != nil {
		return nil, fmt.Errorf("catalog: decode %s: %w", container, err)
	}
	if def.Indexes == nil {
		def.Indexes = make(map[string]Index)
	}
	def.etag = obj.ETag

	m.mu.Lock()
	m.cache[container] = def
	m.mu.Unlock()
	return def.Clone(), nil
}

// Save persists def with a version precondition: If-Match when the catalog
// has been read from the store, If-None-Match: * for a first write. On a
// precondition failure the cache entry is refreshed and ErrConflict is
// returned; the caller decides whether to retry.
func (m *Manager) Save(ctx context.Context, container string, def *Definition) error {
	payload, err := json.Marshal(def)
	if err != nil {
		return fmt.Errorf("catalog: encode %s: %w", container, err)
	}

	opts := store.PutOptions{}
	if def.etag != "" {
		opts.IfMatch = def.etag
	} else {
		opts.IfNoneMatch = true
	}

	etag, err := m.store.Put(ctx, container, BlobName, payload, opts)
	if err != nil {
		if errors.Is(err, store.ErrPreconditionFailed) {
			if _, rerr := m.refresh(ctx, container); rerr != nil {
				m.log.Warn("catalog refresh after conflict failed",
					zap.String("collection", container), zap.Error(rerr))
			}
			return fmt.Errorf("catalog: save %s: %w", container, ErrConflict)
		}
		return fmt.Errorf("catalog: save %s: %w", container, err)
	}

	def.etag = etag
	m.mu.Lock()
	m.cache[container] = def.Clone()
	m.mu.Unlock()
	return nil
}

// CreateIndex adds or updates an index over fields. The mutation is
// reapplied idempotently against a freshly loaded catalog on every
// compare-and-swap conflict, up to maxRetries attempts with exponential
// backoff. A tag-cap violation is terminal and not retried.
func (m *Manager) CreateIndex(ctx context.Context, container string, fields []string, unique bool) error {
	if len(fields) == 0 {
		return ErrNoFields
	}

	for attempt := 0; ; attempt++ {
		var def *Definition
		var err error
		if attempt == 0 {
			def, err = m.Load(ctx, container)
		} else {
			def, err = m.refresh(ctx, container)
		}
		if err != nil {
			return err
		}

		changed, err := def.apply(fields, unique)
		if err != nil {
			return err
		}
		if !changed {
			return nil
		}

		err = m.Save(ctx, container, def)
		if err == nil {
			return nil
		}
		if !errors.Is(err, ErrConflict) {
			return err
		}
		if attempt >= maxRetries {
			return fmt.Errorf("catalog: create index %s on %s after %d retries: %w",
				IndexID(fields), container, maxRetries, ErrConflict)
		}

		delay := backoffDelay(attempt)
		m.log.Debug("catalog conflict, retrying",
			zap.String("collection", container),
			zap.Int("attempt", attempt+1),
			zap.Duration("delay", delay))
		if err := sleep(ctx, delay); err != nil {
			return err
		}
	}
}

// backoffDelay is min(initialDelay * 2^attempt, maxDelay).
func backoffDelay(attempt int) time.Duration {
	delay := initialDelay << uint(attempt)
	if delay > maxDelay || delay <= 0 {
		delay = maxDelay
	}
	return delay
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Evict drops a container's cache entry. Called when the collection is
// dropped.
func (m *Manager) Evict(container string) {
	m.mu.Lock()
	delete(m.cache, container)
	m.mu.Unlock()
}

package store

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/cespare/xxhash/v2"
)

// tagValuePattern is the alphabet a tag key or value must match.
var tagValuePattern = regexp.MustCompile(`^[A-Za-z0-9 .\-/:_]+$`)

// maxTagLength is the per-tag key/value size limit in bytes.
const maxTagLength = 256

type memObject struct {
	data []byte
	etag string
	tags map[string]string
}

// MemoryStore is an in-process Store. It mirrors the semantics the engine
// relies on from the cloud substrate: etag preconditions, lexicographic
// listing order, tag validation, and full evaluation of the tag-filter
// grammar, so tag-filter mode and full-scan mode can be compared over
// identical state.
type MemoryStore struct {
	mu         sync.RWMutex
	containers map[string]map[string]*memObject
	seq        uint64
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{containers: make(map[string]map[string]*memObject)}
}

func (s *MemoryStore) EnsureContainer(ctx context.Context, name string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.containers[name]; !ok {
		s.containers[name] = make(map[string]*memObject)
	}
	return nil
}

func (s *MemoryStore) Put(ctx context.Context, container, name string, data []byte, opts PutOptions) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err := validateTags(opts.Tags); err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	blobs, ok := s.containers[container]
	if !ok {
		return "", fmt.Errorf("put %s/%s: %w", container, name, ErrContainerNotFound)
	}

	existing := blobs[name]
	if opts.IfNoneMatch && existing != nil {
		return "", fmt.Errorf("put %s/%s: %w", container, name, ErrPreconditionFailed)
	}
	if opts.IfMatch != "" && (existing == nil || existing.etag != opts.IfMatch) {
		return "", fmt.Errorf("put %s/%s: %w", container, name, ErrPreconditionFailed)
	}

	s.seq++
	obj := &memObject{
		data: append([]byte(nil), data...),
		etag: fmt.Sprintf("%x-%x", xxhash.Sum64(data), s.seq),
		tags: make(map[string]string, len(opts.Tags)),
	}
	for k, v := range opts.Tags {
		obj.tags[k] = v
	}
	blobs[name] = obj
	return obj.etag, nil
}

func validateTags(tags map[string]string) error {
	if len(tags) > MaxTagsPerBlob {
		return fmt.Errorf("%w: %d tags exceeds the limit of %d", ErrInvalidTag, len(tags), MaxTagsPerBlob)
	}
	for k, v := range tags {
		if k == "" || len(k) > maxTagLength || !tagValuePattern.MatchString(k) {
			return fmt.Errorf("%w: key %q", ErrInvalidTag, k)
		}
		if v == "" || len(v) > maxTagLength || !tagValuePattern.MatchString(v) {
			return fmt.Errorf("%w: value %q for key %q", ErrInvalidTag, v, k)
		}
	}
	return nil
}

func (s *MemoryStore) Get(ctx context.Context, container, name string) (*Object, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	blobs, ok := s.containers[container]
	if !ok {
		return nil, fmt.Errorf("get %s/%s: %w", container, name, ErrNotFound)
	}
	obj, ok := blobs[name]
	if !ok {
		return nil, fmt.Errorf("get %s/%s: %w", container, name, ErrNotFound)
	}
	return &Object{Data: append([]byte(nil), obj.data...), ETag: obj.etag}, nil
}

func (s *MemoryStore) Exists(ctx context.Context, container, name string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	blobs, ok := s.containers[container]
	if !ok {
		return false, nil
	}
	_, ok = blobs[name]
	return ok, nil
}

func (s *MemoryStore) Delete(ctx context.Context, container, name string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if blobs, ok := s.containers[container]; ok {
		delete(blobs, name)
	}
	return nil
}

func (s *MemoryStore) List(ctx context.Context, container, prefix string) Iterator {
	s.mu.RLock()
	defer s.mu.RUnlock()

	blobs, ok := s.containers[container]
	if !ok {
		return NewSliceIterator(nil)
	}
	names := make([]string, 0, len(blobs))
	for name := range blobs {
		if strings.HasPrefix(name, prefix) {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return NewSliceIterator(names)
}

func (s *MemoryStore) FindByTags(ctx context.Context, container, expr string) Iterator {
	atoms, err := parseWhere(expr)
	if err != nil {
		return NewErrIterator(err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	blobs, ok := s.containers[container]
	if !ok {
		return NewSliceIterator(nil)
	}
	var names []string
	for name, obj := range blobs {
		if matchesAtoms(obj.tags, atoms) {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return NewSliceIterator(names)
}

func matchesAtoms(tags map[string]string, atoms []whereAtom) bool {
	for _, a := range atoms {
		v, ok := tags[a.key]
		if !ok {
			return false
		}
		switch a.op {
		case "=":
			if v != a.lo {
				return false
			}
		case ">":
			if !(v > a.lo) {
				return false
			}
		case ">=":
			if !(v >= a.lo) {
				return false
			}
		case "<":
			if !(v < a.lo) {
				return false
			}
		case "<=":
			if !(v <= a.lo) {
				return false
			}
		case "BETWEEN":
			if !(v >= a.lo && v <= a.hi) {
				return false
			}
		default:
			return false
		}
	}
	return true
}

func (s *MemoryStore) DropContainer(ctx context.Context, name string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.containers, name)
	return nil
}

func (s *MemoryStore) ListContainers(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.containers))
	for name := range s.containers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

package energytags

import (
	"context"
	"sync"
	"time"
)

// InMemoryRepository is an in-memory implementation of Repository for
// development and tests.
type InMemoryRepository struct {
	mu   sync.RWMutex
	tags map[string]*Tag
}

// NewInMemoryRepository creates a new in-memory repository, optionally seeded.
func NewInMemoryRepository(seed ...*Tag) *InMemoryRepository {
	repo := &InMemoryRepository{
		tags: make(map[string]*Tag, len(seed)),
	}
	for _, t := range seed {
		repo.tags[t.StationID] = t
	}
	return repo
}

func (r *InMemoryRepository) GetTag(_ context.Context, stationID string) (*Tag, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tag, ok := r.tags[stationID]
	if !ok {
		return nil, ErrTagNotFound
	}
	return tag, nil
}

func (r *InMemoryRepository) ListTags(context.Context) (map[string]*Tag, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make(map[string]*Tag, len(r.tags))
	for k, v := range r.tags {
		result[k] = v
	}
	return result, nil
}

func (r *InMemoryRepository) SetTag(_ context.Context, tag *Tag) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	tag.UpdatedAt = time.Now()
	r.tags[tag.StationID] = tag
	return nil
}

func (r *InMemoryRepository) SetTags(_ context.Context, tags []*Tag) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	for _, tag := range tags {
		tag.UpdatedAt = now
		r.tags[tag.StationID] = tag
	}
	return nil
}

func (r *InMemoryRepository) DeleteTag(_ context.Context, stationID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.tags[stationID]; !ok {
		return ErrTagNotFound
	}
	delete(r.tags, stationID)
	return nil
}

var _ Repository = (*InMemoryRepository)(nil)

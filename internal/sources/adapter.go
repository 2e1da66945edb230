package sources

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/maxaizer/tender-monitor/internal/entities"
)

// Adapter fetches candidate tenders for keywords from one source.
type Adapter interface {
	Source() entities.Source
	Fetch(ctx context.Context, keywords []string, maxResults int) ([]entities.Candidate, error)
}

type Registry struct {
	mu       sync.RWMutex
	adapters map[entities.Source]Adapter
}

func NewRegistry(adapters ...Adapter) (*Registry, error) {
	r := &Registry{adapters: map[entities.Source]Adapter{}}
	for _, adapter := range adapters {
		if err := r.Register(adapter); err != nil {
			return nil, err
		}
	}
	return r, nil
}

func (r *Registry) Register(adapter Adapter) error {
	source := adapter.Source()
	if !source.Valid() {
		return fmt.Errorf("%w: %q", entities.ErrUnknownSource, source)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.adapters[source]; exists {
		return fmt.Errorf("adapter for %s is already registered", source)
	}
	r.adapters[source] = adapter
	return nil
}

func (r *Registry) Get(source entities.Source) (Adapter, error) {
	if !source.Valid() {
		return nil, fmt.Errorf("%w: %q", entities.ErrUnknownSource, source)
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	adapter, ok := r.adapters[source]
	if !ok {
		return nil, fmt.Errorf("no adapter registered for %s", source)
	}
	return adapter, nil
}

func (r *Registry) Sources() []entities.Source {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]entities.Source, 0, len(r.adapters))
	for source := range r.adapters {
		result = append(result, source)
	}
	sort.Slice(result, func(i, j int) bool { return result[i] < result[j] })
	return result
}

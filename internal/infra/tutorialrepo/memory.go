package tutorialrepo

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/yanqian/tutorials-api/internal/domain/tutorial"
	"github.com/yanqian/tutorials-api/pkg/util"
)

// MemoryRepository is an in-memory tutorial.Repository used for tests/dev.
type MemoryRepository struct {
	mu    sync.RWMutex
	items map[string]tutorial.Tutorial
	seq   int64
	order map[string]int64
	now   func() time.Time
}

// NewMemoryRepository constructs a repo backed by memory.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		items: make(map[string]tutorial.Tutorial),
		order: make(map[string]int64),
		now:   util.NowUTC,
	}
}

// Create implements tutorial.Repository.
func (r *MemoryRepository) Create(_ context.Context, t tutorial.Tutorial) (tutorial.Tutorial, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t.ID = uuid.NewString()
	if t.CreatedAt.IsZero() {
		t.CreatedAt = r.now()
	}
	t.UpdatedAt = t.CreatedAt
	r.seq++
	r.items[t.ID] = t
	r.order[t.ID] = r.seq
	return t, nil
}

// List implements tutorial.Repository. Results keep insertion order.
func (r *MemoryRepository) List(_ context.Context, filter tutorial.Filter) ([]tutorial.Tutorial, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	needle := strings.ToLower(filter.Title)
	out := make([]tutorial.Tutorial, 0, len(r.items))
	for _, t := range r.items {
		if needle != "" && !strings.Contains(strings.ToLower(t.Title), needle) {
			continue
		}
		if filter.Published != nil && t.Published != *filter.Published {
			continue
		}
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool {
		return r.order[out[i].ID] < r.order[out[j].ID]
	})
	return out, nil
}

// Get implements tutorial.Repository.
func (r *MemoryRepository) Get(_ context.Context, id string) (tutorial.Tutorial, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.items[id]
	return t, ok, nil
}

// Update implements tutorial.Repository.
func (r *MemoryRepository) Update(_ context.Context, id string, input tutorial.UpdateInput) (tutorial.Tutorial, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.items[id]
	if !ok {
		return tutorial.Tutorial{}, false, nil
	}
	input.Apply(&t)
	t.UpdatedAt = r.now()
	r.items[id] = t
	return t, true, nil
}

// Delete implements tutorial.Repository.
func (r *MemoryRepository) Delete(_ context.Context, id string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[id]; !ok {
		return false, nil
	}
	delete(r.items, id)
	delete(r.order, id)
	return true, nil
}

// DeleteAll implements tutorial.Repository.
func (r *MemoryRepository) DeleteAll(_ context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := int64(len(r.items))
	r.items = make(map[string]tutorial.Tutorial)
	r.order = make(map[string]int64)
	return n, nil
}

var _ tutorial.Repository = (*MemoryRepository)(nil)

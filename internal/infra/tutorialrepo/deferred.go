package tutorialrepo

import (
	"context"
	"sync"

	"github.com/yanqian/tutorials-api/internal/domain/tutorial"
)

// DeferredRepository forwards to a repository that becomes available once the
// database connection succeeds. Until then every call fails with
// tutorial.ErrNotConnected, so routes stay mounted while the connection is pending.
type DeferredRepository struct {
	mu     sync.RWMutex
	target tutorial.Repository
}

// NewDeferredRepository returns a repository with no target yet.
func NewDeferredRepository() *DeferredRepository {
	return &DeferredRepository{}
}

// Resolve installs the live repository.
func (r *DeferredRepository) Resolve(target tutorial.Repository) {
	r.mu.Lock()
	r.target = target
	r.mu.Unlock()
}

// Ready reports whether a target has been installed.
func (r *DeferredRepository) Ready() bool {
	_, err := r.current()
	return err == nil
}

func (r *DeferredRepository) current() (tutorial.Repository, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.target == nil {
		return nil, tutorial.ErrNotConnected
	}
	return r.target, nil
}

func (r *DeferredRepository) Create(ctx context.Context, t tutorial.Tutorial) (tutorial.Tutorial, error) {
	repo, err := r.current()
	if err != nil {
		return tutorial.Tutorial{}, err
	}
	return repo.Create(ctx, t)
}

func (r *DeferredRepository) List(ctx context.Context, filter tutorial.Filter) ([]tutorial.Tutorial, error) {
	repo, err := r.current()
	if err != nil {
		return nil, err
	}
	return repo.List(ctx, filter)
}

func (r *DeferredRepository) Get(ctx context.Context, id string) (tutorial.Tutorial, bool, error) {
	repo, err := r.current()
	if err != nil {
		return tutorial.Tutorial{}, false, err
	}
	return repo.Get(ctx, id)
}

func (r *DeferredRepository) Update(ctx context.Context, id string, input tutorial.UpdateInput) (tutorial.Tutorial, bool, error) {
	repo, err := r.current()
	if err != nil {
		return tutorial.Tutorial{}, false, err
	}
	return repo.Update(ctx, id, input)
}

func (r *DeferredRepository) Delete(ctx context.Context, id string) (bool, error) {
	repo, err := r.current()
	if err != nil {
		return false, err
	}
	return repo.Delete(ctx, id)
}

func (r *DeferredRepository) DeleteAll(ctx context.Context) (int64, error) {
	repo, err := r.current()
	if err != nil {
		return 0, err
	}
	return repo.DeleteAll(ctx)
}

var _ tutorial.Repository = (*DeferredRepository)(nil)

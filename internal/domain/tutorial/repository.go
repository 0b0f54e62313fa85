package tutorial

import "context"

// Repository abstracts tutorial persistence.
type Repository interface {
	Create(ctx context.Context, t Tutorial) (Tutorial, error)
	List(ctx context.Context, filter Filter) ([]Tutorial, error)
	Get(ctx context.Context, id string) (Tutorial, bool, error)
	Update(ctx context.Context, id string, input UpdateInput) (Tutorial, bool, error)
	Delete(ctx context.Context, id string) (bool, error)
	DeleteAll(ctx context.Context) (int64, error)
}

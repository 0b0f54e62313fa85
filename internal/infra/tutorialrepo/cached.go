package tutorialrepo

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/valkey-io/valkey-go"

	"github.com/yanqian/tutorials-api/internal/domain/tutorial"
	"github.com/yanqian/tutorials-api/pkg/metrics"
)

// CachedRepository keeps single-tutorial reads in Valkey. Entry keys embed a
// generation number so DeleteAll can drop every entry with one INCR.
type CachedRepository struct {
	inner  tutorial.Repository
	client valkey.Client
	prefix string
	ttl    time.Duration
	logger *slog.Logger
}

// NewCachedRepository wraps inner with a Valkey read-through cache.
func NewCachedRepository(inner tutorial.Repository, client valkey.Client, prefix string, ttl time.Duration, logger *slog.Logger) *CachedRepository {
	if prefix == "" {
		prefix = "tutorials"
	}
	return &CachedRepository{
		inner:  inner,
		client: client,
		prefix: prefix,
		ttl:    ttl,
		logger: logger.With("component", "tutorialrepo.cache"),
	}
}

func (r *CachedRepository) Create(ctx context.Context, t tutorial.Tutorial) (tutorial.Tutorial, error) {
	return r.inner.Create(ctx, t)
}

func (r *CachedRepository) List(ctx context.Context, filter tutorial.Filter) ([]tutorial.Tutorial, error) {
	return r.inner.List(ctx, filter)
}

func (r *CachedRepository) Get(ctx context.Context, id string) (tutorial.Tutorial, bool, error) {
	key, err := r.entryKey(ctx, id)
	if err == nil {
		payload, getErr := r.client.Do(ctx, r.client.B().Get().Key(key).Build()).ToString()
		switch {
		case getErr == nil:
			var cached tutorial.Tutorial
			if jsonErr := json.Unmarshal([]byte(payload), &cached); jsonErr == nil {
				metrics.CacheLookups.WithLabelValues("hit").Inc()
				return cached, true, nil
			}
			metrics.CacheLookups.WithLabelValues("error").Inc()
		case valkey.IsValkeyNil(getErr):
			metrics.CacheLookups.WithLabelValues("miss").Inc()
		default:
			metrics.CacheLookups.WithLabelValues("error").Inc()
			r.logger.Warn("cache read failed", "key", key, "error", getErr)
		}
	} else {
		r.logger.Warn("cache generation read failed", "error", err)
	}

	t, ok, err := r.inner.Get(ctx, id)
	if err != nil || !ok || key == "" {
		return t, ok, err
	}
	r.store(ctx, key, t)
	return t, true, nil
}

func (r *CachedRepository) Update(ctx context.Context, id string, input tutorial.UpdateInput) (tutorial.Tutorial, bool, error) {
	t, ok, err := r.inner.Update(ctx, id, input)
	if err == nil && ok {
		r.invalidate(ctx, id)
	}
	return t, ok, err
}

func (r *CachedRepository) Delete(ctx context.Context, id string) (bool, error) {
	ok, err := r.inner.Delete(ctx, id)
	if err == nil && ok {
		r.invalidate(ctx, id)
	}
	return ok, err
}

func (r *CachedRepository) DeleteAll(ctx context.Context) (int64, error) {
	n, err := r.inner.DeleteAll(ctx)
	if err != nil {
		return n, err
	}
	if incrErr := r.client.Do(ctx, r.client.B().Incr().Key(r.generationKey()).Build()).Error(); incrErr != nil {
		r.logger.Warn("cache generation bump failed", "error", incrErr)
	}
	return n, nil
}

func (r *CachedRepository) store(ctx context.Context, key string, t tutorial.Tutorial) {
	payload, err := json.Marshal(t)
	if err != nil {
		return
	}
	builder := r.client.B().Set().Key(key).Value(string(payload))
	var cmd valkey.Completed
	if r.ttl > 0 {
		ttl := r.ttl
		if ttl < time.Second {
			ttl = time.Second
		}
		cmd = builder.Ex(ttl).Build()
	} else {
		cmd = builder.Build()
	}
	if err := r.client.Do(ctx, cmd).Error(); err != nil {
		r.logger.Warn("cache write failed", "key", key, "error", err)
	}
}

func (r *CachedRepository) invalidate(ctx context.Context, id string) {
	key, err := r.entryKey(ctx, id)
	if err != nil {
		r.logger.Warn("cache generation read failed", "error", err)
		return
	}
	if err := r.client.Do(ctx, r.client.B().Del().Key(key).Build()).Error(); err != nil {
		r.logger.Warn("cache invalidation failed", "key", key, "error", err)
	}
}

func (r *CachedRepository) entryKey(ctx context.Context, id string) (string, error) {
	gen, err := r.client.Do(ctx, r.client.B().Get().Key(r.generationKey()).Build()).ToString()
	if err != nil {
		if !valkey.IsValkeyNil(err) {
			return "", err
		}
		gen = "0"
	}
	return fmt.Sprintf("%s:g%s:%s", r.prefix, gen, id), nil
}

func (r *CachedRepository) generationKey() string {
	return r.prefix + ":gen"
}

var _ tutorial.Repository = (*CachedRepository)(nil)

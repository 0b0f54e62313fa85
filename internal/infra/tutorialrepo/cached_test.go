package tutorialrepo

import (
	"context"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"
	"github.com/valkey-io/valkey-go"

	"github.com/yanqian/tutorials-api/internal/domain/tutorial"
)

type countingRepo struct {
	tutorial.Repository
	gets atomic.Int32
}

func (c *countingRepo) Get(ctx context.Context, id string) (tutorial.Tutorial, bool, error) {
	c.gets.Add(1)
	return c.Repository.Get(ctx, id)
}

func newCachedUnderTest(t *testing.T) (*CachedRepository, *countingRepo, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client, err := valkey.NewClient(valkey.ClientOption{
		InitAddress:  []string{mr.Addr()},
		DisableCache: true,
		AlwaysRESP2:  true,
	})
	require.NoError(t, err)
	t.Cleanup(client.Close)

	inner := &countingRepo{Repository: NewMemoryRepository()}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewCachedRepository(inner, client, "test", time.Minute, logger), inner, mr
}

func TestCachedRepository_ServesRepeatedReads(t *testing.T) {
	ctx := context.Background()
	repo, inner, mr := newCachedUnderTest(t)

	created, err := repo.Create(ctx, tutorial.Tutorial{
		Title:     "cached",
		CreatedAt: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		got, ok, err := repo.Get(ctx, created.ID)
		require.NoError(t, err)
		require.True(t, ok)
		require.Equal(t, created, got)
	}
	require.Equal(t, int32(1), inner.gets.Load())
	require.True(t, mr.Exists("test:g0:"+created.ID))
}

func TestCachedRepository_InvalidatesOnWrite(t *testing.T) {
	ctx := context.Background()
	repo, inner, _ := newCachedUnderTest(t)

	created, err := repo.Create(ctx, tutorial.Tutorial{Title: "before"})
	require.NoError(t, err)
	_, _, err = repo.Get(ctx, created.ID)
	require.NoError(t, err)

	title := "after"
	_, ok, err := repo.Update(ctx, created.ID, tutorial.UpdateInput{Title: &title})
	require.NoError(t, err)
	require.True(t, ok)

	got, ok, err := repo.Get(ctx, created.ID)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "after", got.Title)
	require.Equal(t, int32(2), inner.gets.Load())
}

func TestCachedRepository_DeleteAllBumpsGeneration(t *testing.T) {
	ctx := context.Background()
	repo, _, mr := newCachedUnderTest(t)

	created, err := repo.Create(ctx, tutorial.Tutorial{Title: "gone"})
	require.NoError(t, err)
	_, _, err = repo.Get(ctx, created.ID)
	require.NoError(t, err)

	n, err := repo.DeleteAll(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(1), n)

	gen, err := mr.Get("test:gen")
	require.NoError(t, err)
	require.Equal(t, "1", gen)

	_, ok, err := repo.Get(ctx, created.ID)
	require.NoError(t, err)
	require.False(t, ok)
}

package tutorialrepo

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/yanqian/tutorials-api/internal/domain/tutorial"
)

func TestMemoryRepository_CRUD(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()

	first, err := repo.Create(ctx, tutorial.Tutorial{Title: "Node Basics"})
	require.NoError(t, err)
	require.NotEmpty(t, first.ID)
	_, err = repo.Create(ctx, tutorial.Tutorial{Title: "Go Concurrency", Published: true})
	require.NoError(t, err)

	all, err := repo.List(ctx, tutorial.Filter{})
	require.NoError(t, err)
	require.Len(t, all, 2)
	require.Equal(t, "Node Basics", all[0].Title)

	byTitle, err := repo.List(ctx, tutorial.Filter{Title: "node"})
	require.NoError(t, err)
	require.Len(t, byTitle, 1)

	published := true
	pub, err := repo.List(ctx, tutorial.Filter{Published: &published})
	require.NoError(t, err)
	require.Len(t, pub, 1)
	require.Equal(t, "Go Concurrency", pub[0].Title)

	desc := "intro"
	updated, ok, err := repo.Update(ctx, first.ID, tutorial.UpdateInput{Description: &desc})
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "intro", updated.Description)
	require.Equal(t, "Node Basics", updated.Title)

	_, ok, err = repo.Update(ctx, "missing", tutorial.UpdateInput{Description: &desc})
	require.NoError(t, err)
	require.False(t, ok)

	deleted, err := repo.Delete(ctx, first.ID)
	require.NoError(t, err)
	require.True(t, deleted)
	_, ok, err = repo.Get(ctx, first.ID)
	require.NoError(t, err)
	require.False(t, ok)

	n, err := repo.DeleteAll(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(1), n)
}

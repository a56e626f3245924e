package stores

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/umerkhan95/sitefeed/internal/data/db"
)

func newTestRunStore(t *testing.T) *RunStore {
	t.Helper()
	database, err := db.Open(t.TempDir(), db.DefaultOpenOptions())
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close() })
	return NewRunStore(database)
}

func ptr[T any](v T) *T { return &v }

func TestRunStore_SaveAndGet(t *testing.T) {
	ctx := context.Background()
	store := newTestRunStore(t)

	require.NoError(t, store.Save(ctx, Run{ID: "run-1", URL: "https://example.com", State: "submitting"}))

	got, err := store.Get(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, "https://example.com", got.URL)
	assert.Equal(t, "submitting", got.State)
	assert.Nil(t, got.OriginalScore)
	assert.False(t, got.CreatedAt.IsZero())
}

func TestRunStore_SaveUpdatesExisting(t *testing.T) {
	ctx := context.Background()
	store := newTestRunStore(t)

	created := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	require.NoError(t, store.Save(ctx, Run{ID: "run-1", URL: "https://example.com", State: "polling", JobID: "job-9", CreatedAt: created}))
	require.NoError(t, store.Save(ctx, Run{
		ID:             "run-1",
		URL:            "https://example.com",
		JobID:          "job-9",
		State:          "succeeded",
		OriginalScore:  ptr(50.0),
		OptimizedScore: ptr(75.0),
		CreatedAt:      created,
	}))

	got, err := store.Get(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, "succeeded", got.State)
	assert.Equal(t, "job-9", got.JobID)
	require.NotNil(t, got.OriginalScore)
	assert.InDelta(t, 50.0, *got.OriginalScore, 0.0001)
	require.NotNil(t, got.OptimizedScore)
	assert.InDelta(t, 75.0, *got.OptimizedScore, 0.0001)
	assert.True(t, got.CreatedAt.Equal(created))
}

func TestRunStore_GetNotFound(t *testing.T) {
	store := newTestRunStore(t)

	_, err := store.Get(context.Background(), "missing")
	assert.True(t, IsNotFoundError(err))
}

func TestRunStore_ListNewestFirst(t *testing.T) {
	ctx := context.Background()
	store := newTestRunStore(t)

	base := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	for i, id := range []string{"a", "b", "c"} {
		require.NoError(t, store.Save(ctx, Run{
			ID:        id,
			URL:       "https://example.com/" + id,
			State:     "failed",
			CreatedAt: base.Add(time.Duration(i) * time.Hour),
		}))
	}

	runs, err := store.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, runs, 3)
	assert.Equal(t, []string{"c", "b", "a"}, []string{runs[0].ID, runs[1].ID, runs[2].ID})

	runs, err = store.List(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, runs, 2)
}

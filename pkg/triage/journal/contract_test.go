package journal_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/randalmurphal/triage/pkg/triage/journal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testCtx() context.Context {
	return context.Background()
}

func sampleRecord(runID string, created time.Time) journal.Record {
	return journal.Record{
		RunID:     runID,
		Graph:     "customerService",
		Input:     "产品质量问题",
		Solution:  "product quality",
		Path:      []string{"feedback_classifier", "specific_question_classifier", "recorder"},
		Duration:  42 * time.Millisecond,
		CreatedAt: created,
	}
}

// runStoreContract exercises the behavior every Store must share.
func runStoreContract(t *testing.T, newStore func(t *testing.T) journal.Store) {
	t.Helper()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	t.Run("save and get", func(t *testing.T) {
		store := newStore(t)
		want := sampleRecord("run-1", base)
		require.NoError(t, store.Save(testCtx(), want))

		got, err := store.Get(testCtx(), "run-1")
		require.NoError(t, err)
		assert.Equal(t, want.RunID, got.RunID)
		assert.Equal(t, want.Graph, got.Graph)
		assert.Equal(t, want.Input, got.Input)
		assert.Equal(t, want.Solution, got.Solution)
		assert.Equal(t, want.Path, got.Path)
		assert.Equal(t, want.Duration, got.Duration)
		assert.True(t, want.CreatedAt.Equal(got.CreatedAt), "created_at %v != %v", got.CreatedAt, want.CreatedAt)
		assert.False(t, got.Failed())
	})

	t.Run("get unknown", func(t *testing.T) {
		store := newStore(t)
		_, err := store.Get(testCtx(), "missing")
		assert.ErrorIs(t, err, journal.ErrNotFound)
	})

	t.Run("save replaces", func(t *testing.T) {
		store := newStore(t)
		require.NoError(t, store.Save(testCtx(), sampleRecord("run-1", base)))

		failed := sampleRecord("run-1", base)
		failed.Solution = ""
		failed.Path = []string{"feedback_classifier"}
		failed.Error = "node feedback_classifier: boom"
		require.NoError(t, store.Save(testCtx(), failed))

		got, err := store.Get(testCtx(), "run-1")
		require.NoError(t, err)
		assert.True(t, got.Failed())
		assert.Equal(t, failed.Error, got.Error)
		assert.Equal(t, []string{"feedback_classifier"}, got.Path)

		list, err := store.List(testCtx(), 10)
		require.NoError(t, err)
		assert.Len(t, list, 1)
	})

	t.Run("save fills created_at", func(t *testing.T) {
		store := newStore(t)
		rec := sampleRecord("run-1", time.Time{})
		require.NoError(t, store.Save(testCtx(), rec))

		got, err := store.Get(testCtx(), "run-1")
		require.NoError(t, err)
		assert.WithinDuration(t, time.Now(), got.CreatedAt, time.Minute)
	})

	t.Run("empty run id", func(t *testing.T) {
		store := newStore(t)
		err := store.Save(testCtx(), sampleRecord("", base))
		assert.ErrorIs(t, err, journal.ErrEmptyRunID)
	})

	t.Run("list newest first with limit", func(t *testing.T) {
		store := newStore(t)
		for i := range 5 {
			rec := sampleRecord(fmt.Sprintf("run-%d", i), base.Add(time.Duration(i)*time.Second))
			require.NoError(t, store.Save(testCtx(), rec))
		}

		list, err := store.List(testCtx(), 3)
		require.NoError(t, err)
		require.Len(t, list, 3)
		assert.Equal(t, "run-4", list[0].RunID)
		assert.Equal(t, "run-3", list[1].RunID)
		assert.Equal(t, "run-2", list[2].RunID)

		all, err := store.List(testCtx(), 0)
		require.NoError(t, err)
		assert.Len(t, all, 5)
	})

	t.Run("list empty", func(t *testing.T) {
		store := newStore(t)
		list, err := store.List(testCtx(), 10)
		require.NoError(t, err)
		assert.Empty(t, list)
	})

	t.Run("nil path", func(t *testing.T) {
		store := newStore(t)
		rec := sampleRecord("run-1", base)
		rec.Path = nil
		require.NoError(t, store.Save(testCtx(), rec))

		got, err := store.Get(testCtx(), "run-1")
		require.NoError(t, err)
		assert.Empty(t, got.Path)
	})

	t.Run("closed", func(t *testing.T) {
		store := newStore(t)
		require.NoError(t, store.Close())
		assert.NoError(t, store.Close(), "close is idempotent")

		assert.ErrorIs(t, store.Save(testCtx(), sampleRecord("run-1", base)), journal.ErrStoreClosed)
		_, err := store.Get(testCtx(), "run-1")
		assert.ErrorIs(t, err, journal.ErrStoreClosed)
		_, err = store.List(testCtx(), 1)
		assert.ErrorIs(t, err, journal.ErrStoreClosed)
	})

	t.Run("concurrent", func(t *testing.T) {
		store := newStore(t)
		const workers = 10
		const perWorker = 10

		var wg sync.WaitGroup
		for w := range workers {
			wg.Add(1)
			go func(w int) {
				defer wg.Done()
				for i := range perWorker {
					id := fmt.Sprintf("run-%d-%d", w, i)
					assert.NoError(t, store.Save(testCtx(), sampleRecord(id, base.Add(time.Duration(i)*time.Millisecond))))
					_, err := store.Get(testCtx(), id)
					assert.NoError(t, err)
				}
			}(w)
		}
		wg.Wait()

		list, err := store.List(testCtx(), workers*perWorker)
		require.NoError(t, err)
		assert.Len(t, list, workers*perWorker)
	})
}

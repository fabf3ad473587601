package journal_test

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/randalmurphal/triage/pkg/triage/journal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openSQLite(t *testing.T, path string) *journal.SQLiteStore {
	t.Helper()
	store, err := journal.NewSQLiteStore(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestSQLiteStore_Contract(t *testing.T) {
	runStoreContract(t, func(t *testing.T) journal.Store {
		return openSQLite(t, filepath.Join(t.TempDir(), "journal.db"))
	})
}

func TestSQLiteStore_SurvivesReopen(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "journal.db")

	first := openSQLite(t, dbPath)
	require.NoError(t, first.Save(testCtx(), sampleRecord("run-1", time.Now())))
	require.NoError(t, first.Close())

	got, err := openSQLite(t, dbPath).Get(testCtx(), "run-1")
	require.NoError(t, err)
	assert.Equal(t, "product quality", got.Solution)
}

func TestSQLiteStore_MemoryDatabase(t *testing.T) {
	store := openSQLite(t, ":memory:")
	require.NoError(t, store.Save(testCtx(), sampleRecord("run-1", time.Now())))

	recs, err := store.List(testCtx(), 0)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "run-1", recs[0].RunID)
}

func TestSQLiteStore_UnwritableDirectory(t *testing.T) {
	_, err := journal.NewSQLiteStore("/nonexistent/path/journal.db")
	assert.Error(t, err)
}

package buffer

import (
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "buffer.db"), "buffer")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestEnqueueGetRemove(t *testing.T) {
	store := openTestStore(t)

	payload, _ := json.Marshal(map[string]string{"title": "Buy milk"})
	require.NoError(t, store.Enqueue(Item{
		UserID:    "user-a",
		TaskID:    "task-1",
		Operation: "task.created",
		Data:      payload,
	}))

	size, err := store.Size()
	require.NoError(t, err)
	require.Equal(t, 1, size)

	items, err := store.GetBatch(10)
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.Equal(t, "task.created", items[0].Operation)
	require.Equal(t, "user-a", items[0].UserID)
	require.NotEmpty(t, items[0].ID)

	require.NoError(t, store.Remove(items[0]))
	size, err = store.Size()
	require.NoError(t, err)
	require.Equal(t, 0, size)
}

func TestPriorityOrdering(t *testing.T) {
	store := openTestStore(t)

	require.NoError(t, store.Enqueue(Item{TaskID: "low", Operation: "task.updated", Priority: 5, Data: []byte(`{}`)}))
	require.NoError(t, store.Enqueue(Item{TaskID: "high", Operation: "task.updated", Priority: 1, Data: []byte(`{}`)}))

	items, err := store.GetBatch(10)
	require.NoError(t, err)
	require.Len(t, items, 2)
	require.Equal(t, "high", items[0].TaskID)
}

func TestCleanupDropsOldItems(t *testing.T) {
	store := openTestStore(t)

	require.NoError(t, store.Enqueue(Item{TaskID: "stale", Operation: "task.deleted", Timestamp: time.Now().Add(-48 * time.Hour), Data: []byte(`{}`)}))
	require.NoError(t, store.Enqueue(Item{TaskID: "fresh", Operation: "task.deleted", Data: []byte(`{}`)}))

	require.NoError(t, store.Cleanup(time.Now().Add(-24*time.Hour)))

	items, err := store.GetBatch(10)
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.Equal(t, "fresh", items[0].TaskID)
}

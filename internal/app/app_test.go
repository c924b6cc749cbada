package app

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	bolt "go.etcd.io/bbolt"

	"github.com/ivanoskov/fintrack_bot/internal/config"
	"github.com/ivanoskov/fintrack_bot/internal/repository"
)

func TestCloseRunsInReverseOrder(t *testing.T) {
	var order []int
	a := &App{closers: []func(){
		func() { order = append(order, 1) },
		func() { order = append(order, 2) },
	}}

	a.Close()
	a.Close()

	assert.Equal(t, []int{2, 1}, order)
}

func TestPruneUpdatesKeepsRecentEntries(t *testing.T) {
	db, err := bolt.Open(filepath.Join(t.TempDir(), "updates.db"), 0600, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	updates, err := repository.NewUpdateLog(db)
	require.NoError(t, err)

	now := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)
	_, err = updates.MarkHandled(1, now.Add(-72*time.Hour))
	require.NoError(t, err)
	_, err = updates.MarkHandled(2, now.Add(-time.Hour))
	require.NoError(t, err)

	a := &App{Updates: updates}
	a.PruneUpdates(context.Background(), now)

	first, err := updates.MarkHandled(1, now)
	require.NoError(t, err)
	assert.True(t, first, "old entry should be pruned")

	first, err = updates.MarkHandled(2, now)
	require.NoError(t, err)
	assert.False(t, first, "recent entry should survive")
}

func TestNewRepositoryRejectsMissingSupabaseURL(t *testing.T) {
	cfg := &config.Config{
		StorageBackend: config.BackendSupabase,
		SupabaseURL:    "",
		SupabaseKey:    "key",
		SupabaseSchema: "fintrack",
	}

	_, err := newRepository(context.Background(), cfg)
	assert.Error(t, err)
}

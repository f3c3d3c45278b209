package di

import (
	"os"
	"path/filepath"
	"songbook/internal/gate"
	"songbook/internal/playback"
	"songbook/internal/player"
	"songbook/internal/storage"
	"songbook/internal/structures"
	"songbook/internal/testutil"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMaintenance_ResetPage(t *testing.T) {
	conf := &structures.Config{
		Store:       structures.StoreConfig{Driver: "memory"},
		Persistence: structures.Persistence{FilePath: filepath.Join(t.TempDir(), "store.bin")},
	}
	logger := &testutil.MockLogger{}
	store := storage.NewMemoryStore(1)
	m := &Maintenance{
		Store:     store,
		Scheduler: storage.NewScheduler(conf, logger, store, &testutil.MockCompressor{}, &testutil.MockMetrics{}),
		Logger:    logger,
	}

	locked := player.Namespace("dev-1", "/summer/")
	other := player.Namespace("dev-2", "/summer/")
	for _, ns := range []string{locked, other} {
		require.NoError(t, store.Apply(ns,
			storage.Put(gate.KeyAttempts, "5"),
			storage.Put(gate.KeyLockUntil, "99999999999999"),
			storage.Put(playback.KeyState, `{"index":0,"time":3}`),
		))
	}

	require.NoError(t, m.ResetPage("dev-1", "/summer/"))

	for _, k := range []string{gate.KeyAttempts, gate.KeyLockUntil, playback.KeyState} {
		_, err := store.Get(locked, k)
		assert.ErrorIs(t, err, storage.ErrNotFound, k)
	}
	v, err := store.Get(other, gate.KeyAttempts)
	require.NoError(t, err)
	assert.Equal(t, "5", v)

	_, err = os.Stat(conf.Persistence.FilePath)
	assert.NoError(t, err, "snapshot written after reset")
}

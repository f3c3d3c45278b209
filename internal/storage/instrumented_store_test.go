package storage

import (
	"errors"
	"songbook/internal/testutil"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type brokenStore struct{}

var errBroken = errors.New("backend down")

func (brokenStore) Get(_, _ string) (string, error)     { return "", errBroken }
func (brokenStore) Set(_, _, _ string) error            { return errBroken }
func (brokenStore) Remove(_, _ string) error            { return errBroken }
func (brokenStore) Apply(_ string, _ ...Mutation) error { return errBroken }
func (brokenStore) Close() error                        { return nil }

func TestMetricsStore_CountsHitsAndMisses(t *testing.T) {
	metrics := &testutil.MockMetrics{}
	s := NewInstrumentedStore(NewMemoryStore(1), metrics, &testutil.MockLogger{})

	require.NoError(t, s.Set("/p/", "k", "v"))
	_, err := s.Get("/p/", "k")
	require.NoError(t, err)
	_, err = s.Get("/p/", "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	assert.Equal(t, 1, metrics.StoreHits)
	assert.Equal(t, 1, metrics.StoreMisses)
	assert.Empty(t, metrics.StoreErrors)
}

func TestMetricsStore_FailuresAreCountedAndLogged(t *testing.T) {
	metrics := &testutil.MockMetrics{}
	logger := &testutil.MockLogger{}
	s := NewInstrumentedStore(brokenStore{}, metrics, logger)

	_, err := s.Get("/p/", "k")
	assert.ErrorIs(t, err, errBroken)
	assert.ErrorIs(t, s.Apply("/p/", Put("k", "v")), errBroken)
	assert.ErrorIs(t, s.Remove("/p/", "k"), errBroken)

	assert.Equal(t, 1, metrics.StoreErrors["get"])
	assert.Equal(t, 1, metrics.StoreErrors["apply"])
	assert.Equal(t, 1, metrics.StoreErrors["remove"])
	assert.Equal(t, 3, logger.Count("warn"))
}

func TestAsSnapshotter_UnwrapsInstrumentedStore(t *testing.T) {
	mem := NewMemoryStore(1)
	wrapped := NewInstrumentedStore(mem, &testutil.MockMetrics{}, &testutil.MockLogger{})

	snap, ok := AsSnapshotter(wrapped)
	require.True(t, ok)
	assert.Same(t, mem, snap)
}

func TestAsSnapshotter_NonSnapshotStore(t *testing.T) {
	wrapped := NewInstrumentedStore(brokenStore{}, &testutil.MockMetrics{}, &testutil.MockLogger{})
	_, ok := AsSnapshotter(wrapped)
	assert.False(t, ok)
}

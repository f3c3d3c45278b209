package gate

import (
	"errors"
	"songbook/internal/storage"
	"songbook/internal/testutil"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	json "github.com/goccy/go-json"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const page = "device-1:/albums/summer/"

type failingStore struct{}

var errDown = errors.New("store down")

func (failingStore) Get(_, _ string) (string, error)             { return "", errDown }
func (failingStore) Set(_, _, _ string) error                    { return errDown }
func (failingStore) Remove(_, _ string) error                    { return errDown }
func (failingStore) Apply(_ string, _ ...storage.Mutation) error { return errDown }
func (failingStore) Close() error                                { return nil }

func newGate(t *testing.T, store storage.Store, secret string, fc clockwork.Clock) *Gate {
	t.Helper()
	g := New(page, secret, store, Options{
		MaxAttempts:  5,
		LockDuration: 10 * time.Minute,
		Clock:        fc,
		Logger:       &testutil.MockLogger{},
	})
	t.Cleanup(g.Close)
	return g
}

func TestGate_BypassWithoutValidSecret(t *testing.T) {
	for _, secret := range []string{"", "123", "12345", "abcd", "12 4"} {
		store := storage.NewMemoryStore(1)
		g := newGate(t, store, secret, clockwork.NewFakeClock())

		d := g.Evaluate()
		assert.Equal(t, StateBypassed, d.State, "secret %q", secret)
		assert.True(t, d.Proceed())

		opened := false
		g.Open(func() { opened = true })
		assert.True(t, opened)

		res := g.Submit("0000")
		assert.Equal(t, OutcomeIgnored, res.Outcome)
		assert.Equal(t, int64(0), store.Len(), "bypassed gate must not touch the store")
	}
}

func TestGate_RemainingAttemptsCountDown(t *testing.T) {
	store := storage.NewMemoryStore(1)
	g := newGate(t, store, "4821", clockwork.NewFakeClock())

	d := g.Evaluate()
	assert.Equal(t, StateAwaitingInput, d.State)
	assert.Equal(t, 5, d.AttemptsRemaining)
	assert.False(t, d.Proceed())

	for k := 1; k <= 4; k++ {
		res := g.Submit("0000")
		assert.Equal(t, OutcomeRejected, res.Outcome)
		assert.Equal(t, StateAwaitingInput, res.Decision.State)
		assert.Equal(t, 5-k, res.Decision.AttemptsRemaining)
	}

	v, err := store.Get(page, KeyAttempts)
	require.NoError(t, err)
	assert.Equal(t, "4", v)
}

func TestGate_MalformedDoesNotConsumeAttempts(t *testing.T) {
	store := storage.NewMemoryStore(1)
	g := newGate(t, store, "4821", clockwork.NewFakeClock())

	for _, candidate := range []string{"", "12", "12345", "12a4", "-123"} {
		res := g.Submit(candidate)
		assert.Equal(t, OutcomeMalformed, res.Outcome, "candidate %q", candidate)
		assert.Equal(t, 5, res.Decision.AttemptsRemaining)
	}
	_, err := store.Get(page, KeyAttempts)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestGate_TrimsWhitespace(t *testing.T) {
	g := newGate(t, storage.NewMemoryStore(1), "4821", clockwork.NewFakeClock())

	res := g.Submit("  4821\n")
	assert.Equal(t, OutcomeAccepted, res.Outcome)
	assert.Equal(t, StateUnlocked, res.Decision.State)
}

func TestGate_LockoutAndRecovery(t *testing.T) {
	fc := clockwork.NewFakeClock()
	store := storage.NewMemoryStore(1)
	g := newGate(t, store, "4821", fc)

	unlocked := 0
	g.Open(func() { unlocked++ })
	assert.Equal(t, 0, unlocked)

	var res Result
	for i := 0; i < 5; i++ {
		res = g.Submit("1111")
	}
	assert.Equal(t, OutcomeRejected, res.Outcome)
	assert.Equal(t, StateLockedOut, res.Decision.State)
	assert.Equal(t, 10*time.Minute, res.Decision.LockRemaining)

	lock, err := store.Get(page, KeyLockUntil)
	require.NoError(t, err)
	assert.Equal(t, formatMillis(fc.Now().Add(10*time.Minute).UnixMilli()), lock)

	// The right code is ignored while locked.
	res = g.Submit("4821")
	assert.Equal(t, OutcomeLocked, res.Outcome)
	assert.Equal(t, 0, unlocked)

	fc.Advance(4 * time.Minute)
	d := g.Evaluate()
	assert.Equal(t, StateLockedOut, d.State)
	assert.Equal(t, 6*time.Minute, d.LockRemaining)

	fc.Advance(6 * time.Minute)
	d = g.Tick()
	assert.Equal(t, StateAwaitingInput, d.State)
	assert.Equal(t, 5, d.AttemptsRemaining)

	res = g.Submit("4821")
	assert.Equal(t, OutcomeAccepted, res.Outcome)
	assert.Equal(t, 1, unlocked)

	authed, err := store.Get(page, KeyAuthorized)
	require.NoError(t, err)
	assert.Equal(t, "1", authed)
	_, err = store.Get(page, KeyAttempts)
	assert.ErrorIs(t, err, storage.ErrNotFound)
	_, err = store.Get(page, KeyLockUntil)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestGate_LockHoldsForItsFullDuration(t *testing.T) {
	fc := clockwork.NewFakeClock()
	store := storage.NewMemoryStore(1)
	g := newGate(t, store, "4821", fc)

	for i := 0; i < 5; i++ {
		g.Submit("1111")
	}

	fc.Advance(10*time.Minute - time.Millisecond)
	d := g.Evaluate()
	assert.Equal(t, StateLockedOut, d.State)
	assert.Equal(t, time.Millisecond, d.LockRemaining)

	res := g.Submit("4821")
	assert.Equal(t, OutcomeLocked, res.Outcome)
	assert.Equal(t, StateLockedOut, res.Decision.State)
	res = g.Submit("1111")
	assert.Equal(t, OutcomeLocked, res.Outcome)
	attempts, err := store.Get(page, KeyAttempts)
	require.NoError(t, err)
	assert.Equal(t, "5", attempts, "submissions during the lock are not counted")

	fc.Advance(time.Millisecond)
	d = g.Evaluate()
	assert.Equal(t, StateAwaitingInput, d.State)
	assert.Equal(t, time.Duration(0), d.LockRemaining)
	assert.Equal(t, 5, d.AttemptsRemaining)
}

func TestGate_WrongAfterLockElapsedStartsFresh(t *testing.T) {
	fc := clockwork.NewFakeClock()
	store := storage.NewMemoryStore(1)
	g := newGate(t, store, "4821", fc)

	for i := 0; i < 5; i++ {
		g.Submit("1111")
	}
	fc.Advance(10 * time.Minute)

	res := g.Submit("2222")
	assert.Equal(t, OutcomeRejected, res.Outcome)
	assert.Equal(t, 4, res.Decision.AttemptsRemaining)
	_, err := store.Get(page, KeyLockUntil)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestGate_UnlockFiresOnce(t *testing.T) {
	g := newGate(t, storage.NewMemoryStore(1), "4821", clockwork.NewFakeClock())

	var calls int32
	g.Open(func() { atomic.AddInt32(&calls, 1) })

	assert.Equal(t, OutcomeAccepted, g.Submit("4821").Outcome)
	assert.Equal(t, OutcomeIgnored, g.Submit("4821").Outcome)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestGate_RestoresPersistedState(t *testing.T) {
	fc := clockwork.NewFakeClock()
	store := storage.NewMemoryStore(1)

	t.Run("unlocked", func(t *testing.T) {
		require.NoError(t, store.Set(page, KeyAuthorized, "1"))
		g := newGate(t, store, "4821", fc)

		opened := false
		g.Open(func() { opened = true })
		assert.Equal(t, StateUnlocked, g.State())
		assert.True(t, opened)
		require.NoError(t, Clear(store, page))
	})

	t.Run("locked", func(t *testing.T) {
		until := fc.Now().Add(3 * time.Minute).UnixMilli()
		require.NoError(t, store.Apply(page,
			storage.Put(KeyAttempts, "5"),
			storage.Put(KeyLockUntil, formatMillis(until)),
		))
		g := newGate(t, store, "4821", fc)

		d := g.Evaluate()
		assert.Equal(t, StateLockedOut, d.State)
		assert.Equal(t, 3*time.Minute, d.LockRemaining)
		require.NoError(t, Clear(store, page))
	})

	t.Run("garbage values read as zero", func(t *testing.T) {
		require.NoError(t, store.Apply(page,
			storage.Put(KeyAttempts, "lots"),
			storage.Put(KeyLockUntil, "soon"),
		))
		g := newGate(t, store, "4821", fc)

		d := g.Evaluate()
		assert.Equal(t, StateAwaitingInput, d.State)
		assert.Equal(t, 5, d.AttemptsRemaining)
		require.NoError(t, Clear(store, page))
	})
}

func TestGate_HonoursLockWrittenElsewhere(t *testing.T) {
	fc := clockwork.NewFakeClock()
	store := storage.NewMemoryStore(1)
	g := newGate(t, store, "4821", fc)

	other := newGate(t, store, "4821", fc)
	for i := 0; i < 5; i++ {
		other.Submit("9999")
	}

	res := g.Submit("4821")
	assert.Equal(t, OutcomeLocked, res.Outcome)
	assert.Equal(t, StateLockedOut, g.State())
}

func TestGate_DegradesToMemoryOnly(t *testing.T) {
	logger := &testutil.MockLogger{}
	g := New(page, "4821", failingStore{}, Options{Clock: clockwork.NewFakeClock(), Logger: logger})
	defer g.Close()

	assert.True(t, g.MemoryOnly())
	assert.Equal(t, 1, logger.Count("warn"))

	for k := 1; k <= 4; k++ {
		res := g.Submit("0000")
		assert.Equal(t, DefaultMaxAttempts-k, res.Decision.AttemptsRemaining)
	}
	res := g.Submit("0000")
	assert.Equal(t, StateLockedOut, res.Decision.State)
	assert.Equal(t, DefaultLockDuration, res.Decision.LockRemaining)
	// the store failure once, then the lockout itself
	assert.Equal(t, 2, logger.Count("warn"))
}

func TestGate_CountdownStopsWhenLockLifts(t *testing.T) {
	fc := clockwork.NewFakeClock()
	store := storage.NewMemoryStore(1)

	var ticks atomic.Int32
	g := New(page, "4821", store, Options{
		Clock:             fc,
		Logger:            &testutil.MockLogger{},
		CountdownInterval: time.Second,
		OnTick:            func(Decision) { ticks.Add(1) },
	})
	defer g.Close()

	for i := 0; i < DefaultMaxAttempts; i++ {
		g.Submit("1111")
	}
	assert.True(t, g.CountdownActive())

	fc.BlockUntil(1)
	fc.Advance(DefaultLockDuration)

	assert.Eventually(t, func() bool { return !g.CountdownActive() }, time.Second, 5*time.Millisecond)
	assert.Equal(t, StateAwaitingInput, g.State())
	assert.GreaterOrEqual(t, ticks.Load(), int32(1))
}

func TestGate_CloseStopsCountdown(t *testing.T) {
	fc := clockwork.NewFakeClock()
	store := storage.NewMemoryStore(1)
	until := fc.Now().Add(time.Minute).UnixMilli()
	require.NoError(t, store.Apply(page,
		storage.Put(KeyAttempts, "5"),
		storage.Put(KeyLockUntil, formatMillis(until)),
	))

	g := New(page, "4821", store, Options{Clock: fc, CountdownInterval: time.Second})
	assert.True(t, g.CountdownActive())

	g.Close()
	assert.False(t, g.CountdownActive())
	assert.Equal(t, OutcomeIgnored, g.Submit("4821").Outcome)
}

func TestClear(t *testing.T) {
	store := storage.NewMemoryStore(1)
	require.NoError(t, store.Apply(page,
		storage.Put(KeyAuthorized, "1"),
		storage.Put(KeyAttempts, "3"),
		storage.Put(KeyLockUntil, "1"),
		storage.Put("albumPlayerState", `{"index":1,"time":2}`),
	))

	require.NoError(t, Clear(store, page))
	for _, k := range Keys {
		_, err := store.Get(page, k)
		assert.ErrorIs(t, err, storage.ErrNotFound, k)
	}
	_, err := store.Get(page, "albumPlayerState")
	assert.NoError(t, err)
}

func formatMillis(ms int64) string {
	return strconv.FormatInt(ms, 10)
}

func TestDecision_JSON(t *testing.T) {
	raw, err := json.Marshal(Decision{State: StateLockedOut, LockRemaining: 90 * time.Second})
	require.NoError(t, err)
	assert.JSONEq(t, `{"state":"locked_out","attemptsRemaining":0,"lockRemainingMs":90000,"proceed":false}`, string(raw))

	raw, err = json.Marshal(Result{Outcome: OutcomeAccepted, Decision: Decision{State: StateUnlocked}})
	require.NoError(t, err)
	assert.JSONEq(t, `{"outcome":"accepted","gate":{"state":"unlocked","attemptsRemaining":0,"lockRemainingMs":0,"proceed":true}}`, string(raw))
}

package gate

import (
	"errors"
	"songbook/internal/storage"
	"strconv"
	"time"
)

const (
	KeyAuthorized = "songbook_authed"
	KeyAttempts   = "songbook_attempts"
	KeyLockUntil  = "songbook_lockuntil"

	authorizedFlag = "1"
)

// Keys lists every key the gate owns for a page.
var Keys = []string{KeyAuthorized, KeyAttempts, KeyLockUntil}

// DurableKeys tells the store to keep every gate key until it is removed: an
// unlock lasts until reset, and a lock for its full duration.
func DurableKeys() storage.PinnedKeys {
	return storage.PinnedKeys(Keys)
}

// AccessState is what the gate persists per page. A zero LockUntil means not locked.
type AccessState struct {
	Unlocked     bool
	AttemptCount int
	LockUntil    time.Time
}

func (s AccessState) locked(now time.Time) bool {
	return !s.LockUntil.IsZero() && now.Before(s.LockUntil)
}

// lockElapsed is true once a lockout has run its full course.
func (s AccessState) lockElapsed(now time.Time) bool {
	return !s.LockUntil.IsZero() && !now.Before(s.LockUntil)
}

func (s AccessState) mutations() []storage.Mutation {
	if s.Unlocked {
		return []storage.Mutation{
			storage.Put(KeyAuthorized, authorizedFlag),
			storage.Del(KeyAttempts),
			storage.Del(KeyLockUntil),
		}
	}
	muts := []storage.Mutation{storage.Put(KeyAttempts, strconv.Itoa(s.AttemptCount))}
	if s.LockUntil.IsZero() {
		return append(muts, storage.Del(KeyLockUntil))
	}
	return append(muts, storage.Put(KeyLockUntil, strconv.FormatInt(s.LockUntil.UnixMilli(), 10)))
}

// loadAccessState reads the three gate keys. Unparsable values read as their zero value;
// only a failing store is an error.
func loadAccessState(store storage.Store, page string) (AccessState, error) {
	var s AccessState

	authed, err := readKey(store, page, KeyAuthorized)
	if err != nil {
		return s, err
	}
	s.Unlocked = authed == authorizedFlag

	attempts, err := readKey(store, page, KeyAttempts)
	if err != nil {
		return s, err
	}
	if n, convErr := strconv.Atoi(attempts); convErr == nil && n > 0 {
		s.AttemptCount = n
	}

	lockUntil, err := readKey(store, page, KeyLockUntil)
	if err != nil {
		return s, err
	}
	if ms, convErr := strconv.ParseInt(lockUntil, 10, 64); convErr == nil && ms > 0 {
		s.LockUntil = time.UnixMilli(ms)
	}
	return s, nil
}

func readKey(store storage.Store, page, key string) (string, error) {
	v, err := store.Get(page, key)
	if errors.Is(err, storage.ErrNotFound) {
		return "", nil
	}
	return v, err
}

// Clear removes every gate key for page.
func Clear(store storage.Store, page string) error {
	muts := make([]storage.Mutation, 0, len(Keys))
	for _, k := range Keys {
		muts = append(muts, storage.Del(k))
	}
	return store.Apply(page, muts...)
}

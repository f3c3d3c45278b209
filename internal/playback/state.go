package playback

import (
	"errors"
	"fmt"
	"math"
	"songbook/internal/storage"

	json "github.com/goccy/go-json"
)

// KeyState holds the JSON playback blob for a page.
const KeyState = "albumPlayerState"

var errNoState = errors.New("no saved playback state")

// State is the persisted position: which track and how far into it.
type State struct {
	Index int     `json:"index"`
	Time  float64 `json:"time"`
}

func loadState(store storage.Store, page string) (State, error) {
	var s State
	raw, err := store.Get(page, KeyState)
	if errors.Is(err, storage.ErrNotFound) {
		return s, errNoState
	}
	if err != nil {
		return s, err
	}
	if err := json.Unmarshal([]byte(raw), &s); err != nil {
		return s, fmt.Errorf("decode %s: %w", KeyState, err)
	}
	if math.IsNaN(s.Time) || math.IsInf(s.Time, 0) || s.Time < 0 {
		s.Time = 0
	}
	return s, nil
}

func saveState(store storage.Store, page string, s State) error {
	raw, err := json.Marshal(s)
	if err != nil {
		return err
	}
	return store.Set(page, KeyState, string(raw))
}

// Clear drops the saved playback state for page.
func Clear(store storage.Store, page string) error {
	return store.Remove(page, KeyState)
}

package services

import (
	"songbook/internal/player"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

type mounted struct {
	player   *player.Player
	lastUsed time.Time
}

// Registry holds the players currently mounted, keyed by device and page path,
// along with when each was last used.
type Registry struct {
	mu      sync.RWMutex
	clock   clockwork.Clock
	players map[string]*mounted
}

func NewRegistry(clock clockwork.Clock) *Registry {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Registry{clock: clock, players: make(map[string]*mounted)}
}

// put stores p and returns whatever it replaced.
func (r *Registry) put(key string, p *player.Player) *player.Player {
	r.mu.Lock()
	defer r.mu.Unlock()
	var prev *player.Player
	if m, ok := r.players[key]; ok {
		prev = m.player
	}
	r.players[key] = &mounted{player: p, lastUsed: r.clock.Now()}
	return prev
}

// get returns the player under key and marks it used.
func (r *Registry) get(key string) (*player.Player, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.players[key]
	if !ok {
		return nil, false
	}
	m.lastUsed = r.clock.Now()
	return m.player, true
}

func (r *Registry) remove(key string) (*player.Player, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.players[key]
	if !ok {
		return nil, false
	}
	delete(r.players, key)
	return m.player, true
}

func (r *Registry) drain() []*player.Player {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*player.Player, 0, len(r.players))
	for _, m := range r.players {
		out = append(out, m.player)
	}
	r.players = make(map[string]*mounted)
	return out
}

// removeIdle forgets every player not used for at least maxIdle.
func (r *Registry) removeIdle(maxIdle time.Duration) []*player.Player {
	r.mu.Lock()
	defer r.mu.Unlock()
	cutoff := r.clock.Now().Add(-maxIdle)
	var out []*player.Player
	for key, m := range r.players {
		if m.lastUsed.After(cutoff) {
			continue
		}
		out = append(out, m.player)
		delete(r.players, key)
	}
	return out
}

func (r *Registry) MountedCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.players)
}

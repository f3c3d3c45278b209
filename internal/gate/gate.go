// Package gate decides whether a visitor may open an album page. It compares a
// submitted code against the album secret, limits wrong guesses and locks the
// page for a while once the limit is hit. It is a deterrent, not a security
// boundary: the state lives on the visitor's side of the store.
package gate

import (
	"context"
	"crypto/subtle"
	"songbook/internal/album"
	"songbook/internal/providers"
	"songbook/internal/storage"
	"strings"
	"sync"
	"time"

	json "github.com/goccy/go-json"
	"github.com/jonboulle/clockwork"
)

const (
	DefaultMaxAttempts  = 5
	DefaultLockDuration = 10 * time.Minute
)

type State int

const (
	StateBypassed State = iota
	StateAwaitingInput
	StateLockedOut
	StateUnlocked
)

func (s State) String() string {
	switch s {
	case StateBypassed:
		return "bypassed"
	case StateAwaitingInput:
		return "awaiting_input"
	case StateLockedOut:
		return "locked_out"
	case StateUnlocked:
		return "unlocked"
	default:
		return "unknown"
	}
}

func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

type Outcome int

const (
	// OutcomeAccepted: the code matched and the gate is now unlocked.
	OutcomeAccepted Outcome = iota
	// OutcomeRejected: a well-formed wrong code; one attempt consumed.
	OutcomeRejected
	// OutcomeMalformed: not four digits; no attempt consumed.
	OutcomeMalformed
	// OutcomeLocked: submitted during a lockout and ignored.
	OutcomeLocked
	// OutcomeIgnored: the gate is not waiting for input.
	OutcomeIgnored
)

func (o Outcome) MarshalText() ([]byte, error) {
	return []byte(o.String()), nil
}

func (o Outcome) String() string {
	switch o {
	case OutcomeAccepted:
		return "accepted"
	case OutcomeRejected:
		return "rejected"
	case OutcomeMalformed:
		return "malformed"
	case OutcomeLocked:
		return "locked"
	default:
		return "ignored"
	}
}

type Decision struct {
	State             State
	AttemptsRemaining int
	LockRemaining     time.Duration
}

// Proceed reports whether the page behind the gate may be initialised.
func (d Decision) Proceed() bool {
	return d.State == StateBypassed || d.State == StateUnlocked
}

type decisionJSON struct {
	State             State `json:"state"`
	AttemptsRemaining int   `json:"attemptsRemaining"`
	LockRemainingMs   int64 `json:"lockRemainingMs"`
	Proceed           bool  `json:"proceed"`
}

func (d Decision) MarshalJSON() ([]byte, error) {
	return json.Marshal(decisionJSON{
		State:             d.State,
		AttemptsRemaining: d.AttemptsRemaining,
		LockRemainingMs:   d.LockRemaining.Milliseconds(),
		Proceed:           d.Proceed(),
	})
}

type Result struct {
	Outcome  Outcome  `json:"outcome"`
	Decision Decision `json:"gate"`
}

type Options struct {
	MaxAttempts  int
	LockDuration time.Duration
	Clock        clockwork.Clock
	Logger       providers.Logger
	// CountdownInterval > 0 runs a ticker while locked out that calls Tick
	// and then OnTick, stopping itself when the lock lifts.
	CountdownInterval time.Duration
	OnTick            func(Decision)
}

type Gate struct {
	mu sync.Mutex

	page         string
	secret       string
	hasSecret    bool
	store        storage.Store
	clock        clockwork.Clock
	logger       providers.Logger
	maxAttempts  int
	lockDuration time.Duration

	access     AccessState
	current    State
	memoryOnly bool

	onUnlock func()
	notified bool

	countdownInterval time.Duration
	onTick            func(Decision)
	stopCountdown     context.CancelFunc
	countdownDone     chan struct{}
	closed            bool
}

// New computes the initial gate state for page. A secret that is not exactly
// four digits bypasses the gate and never touches the store.
func New(page, secret string, store storage.Store, opts Options) *Gate {
	g := &Gate{
		page:              page,
		secret:            secret,
		hasSecret:         album.ValidSecret(secret),
		store:             store,
		clock:             opts.Clock,
		logger:            opts.Logger,
		maxAttempts:       opts.MaxAttempts,
		lockDuration:      opts.LockDuration,
		countdownInterval: opts.CountdownInterval,
		onTick:            opts.OnTick,
	}
	if g.clock == nil {
		g.clock = clockwork.NewRealClock()
	}
	if g.maxAttempts <= 0 {
		g.maxAttempts = DefaultMaxAttempts
	}
	if g.lockDuration <= 0 {
		g.lockDuration = DefaultLockDuration
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if g.hasSecret {
		g.refreshLocked()
	}
	g.current = g.computeLocked(g.clock.Now())
	if g.current == StateLockedOut {
		g.startCountdownLocked()
	}
	return g
}

func (g *Gate) computeLocked(now time.Time) State {
	switch {
	case !g.hasSecret:
		return StateBypassed
	case g.access.Unlocked:
		return StateUnlocked
	case g.access.locked(now):
		return StateLockedOut
	default:
		return StateAwaitingInput
	}
}

func (g *Gate) decisionLocked(now time.Time) Decision {
	d := Decision{State: g.current}
	switch g.current {
	case StateAwaitingInput:
		attempts := g.access.AttemptCount
		if g.access.lockElapsed(now) {
			attempts = 0
		}
		d.AttemptsRemaining = max(g.maxAttempts-attempts, 0)
	case StateLockedOut:
		d.LockRemaining = max(g.access.LockUntil.Sub(now), 0)
	}
	return d
}

// refreshLocked re-reads persisted state so a lock or unlock written by another
// tab is honoured. A failing store switches the gate to memory-only for good.
func (g *Gate) refreshLocked() {
	if g.memoryOnly {
		return
	}
	s, err := loadAccessState(g.store, g.page)
	if err != nil {
		g.degradeLocked("read", err)
		return
	}
	g.access = s
}

func (g *Gate) persistLocked() {
	if g.memoryOnly {
		return
	}
	if err := g.store.Apply(g.page, g.access.mutations()...); err != nil {
		g.degradeLocked("write", err)
	}
}

func (g *Gate) degradeLocked(op string, err error) {
	g.memoryOnly = true
	if g.logger != nil {
		g.logger.Warnf(providers.TypeGate, "gate %s: store %s failed, attempts kept in memory only: %s", g.page, op, err)
	}
}

// Evaluate recomputes the state from the clock and returns the current decision.
func (g *Gate) Evaluate() Decision {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.evaluateLocked()
}

func (g *Gate) evaluateLocked() Decision {
	now := g.clock.Now()
	prev := g.current
	if prev == StateLockedOut || prev == StateAwaitingInput {
		g.current = g.computeLocked(now)
	}
	if prev == StateLockedOut && g.current != StateLockedOut {
		g.stopCountdownLocked()
		if g.logger != nil {
			g.logger.Infof(providers.TypeGate, "gate %s: lockout expired", g.page)
		}
	}
	return g.decisionLocked(now)
}

// Tick is the countdown step: it lifts an expired lock and reports what remains.
func (g *Gate) Tick() Decision {
	return g.Evaluate()
}

// Submit checks candidate against the secret. Surrounding whitespace is ignored;
// anything that is not four digits is rejected without consuming an attempt.
func (g *Gate) Submit(candidate string) Result {
	g.mu.Lock()

	if g.closed || g.current == StateBypassed || g.current == StateUnlocked {
		res := Result{Outcome: OutcomeIgnored, Decision: g.decisionLocked(g.clock.Now())}
		g.mu.Unlock()
		return res
	}

	g.refreshLocked()
	now := g.clock.Now()

	if g.access.Unlocked {
		g.current = StateUnlocked
		g.stopCountdownLocked()
		res := Result{Outcome: OutcomeIgnored, Decision: g.decisionLocked(now)}
		notify := g.takeUnlockLocked()
		g.mu.Unlock()
		notify()
		return res
	}

	if g.access.locked(now) {
		g.current = StateLockedOut
		g.startCountdownLocked()
		res := Result{Outcome: OutcomeLocked, Decision: g.decisionLocked(now)}
		g.mu.Unlock()
		return res
	}
	g.current = StateAwaitingInput

	code := strings.TrimSpace(candidate)
	if !album.ValidSecret(code) {
		res := Result{Outcome: OutcomeMalformed, Decision: g.decisionLocked(now)}
		g.mu.Unlock()
		return res
	}

	if g.access.lockElapsed(now) {
		g.access.AttemptCount = 0
		g.access.LockUntil = time.Time{}
	}

	if subtle.ConstantTimeCompare([]byte(code), []byte(g.secret)) == 1 {
		g.access = AccessState{Unlocked: true}
		g.persistLocked()
		g.current = StateUnlocked
		g.stopCountdownLocked()
		if g.logger != nil {
			g.logger.Infof(providers.TypeGate, "gate %s: unlocked", g.page)
		}
		res := Result{Outcome: OutcomeAccepted, Decision: g.decisionLocked(now)}
		notify := g.takeUnlockLocked()
		g.mu.Unlock()
		notify()
		return res
	}

	g.access.AttemptCount++
	if g.access.AttemptCount >= g.maxAttempts {
		g.access.LockUntil = now.Add(g.lockDuration)
		g.current = StateLockedOut
		if g.logger != nil {
			g.logger.Warnf(providers.TypeGate, "gate %s: locked until %s after %d attempts", g.page, g.access.LockUntil.Format(time.RFC3339), g.access.AttemptCount)
		}
	}
	g.persistLocked()
	if g.current == StateLockedOut {
		g.startCountdownLocked()
	}
	res := Result{Outcome: OutcomeRejected, Decision: g.decisionLocked(now)}
	g.mu.Unlock()
	return res
}

// Open registers onUnlock. It runs right away when the gate is already passable,
// otherwise once, after the successful submission has been persisted.
func (g *Gate) Open(onUnlock func()) {
	g.mu.Lock()
	g.onUnlock = onUnlock
	var notify func()
	if g.current == StateBypassed || g.current == StateUnlocked {
		notify = g.takeUnlockLocked()
	}
	g.mu.Unlock()
	if notify != nil {
		notify()
	}
}

func (g *Gate) takeUnlockLocked() func() {
	if g.notified || g.onUnlock == nil {
		return func() {}
	}
	g.notified = true
	return g.onUnlock
}

func (g *Gate) startCountdownLocked() {
	if g.countdownInterval <= 0 || g.stopCountdown != nil || g.closed {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	g.stopCountdown = cancel
	g.countdownDone = done
	go g.runCountdown(ctx, g.clock.NewTicker(g.countdownInterval), done)
}

func (g *Gate) stopCountdownLocked() {
	if g.stopCountdown == nil {
		return
	}
	g.stopCountdown()
	g.stopCountdown = nil
}

func (g *Gate) runCountdown(ctx context.Context, ticker clockwork.Ticker, done chan struct{}) {
	defer close(done)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			d := g.Tick()
			if g.onTick != nil {
				g.onTick(d)
			}
			if d.State != StateLockedOut {
				return
			}
		}
	}
}

// CountdownActive reports whether a lockout ticker is running.
func (g *Gate) CountdownActive() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.stopCountdown != nil
}

// Close stops the countdown and waits for it to exit. Later submissions are ignored.
func (g *Gate) Close() {
	g.mu.Lock()
	g.closed = true
	done := g.countdownDone
	g.stopCountdownLocked()
	g.mu.Unlock()
	if done != nil {
		<-done
	}
}

func (g *Gate) State() State {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.current
}

// MemoryOnly reports whether the store failed and the gate stopped persisting.
func (g *Gate) MemoryOnly() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.memoryOnly
}

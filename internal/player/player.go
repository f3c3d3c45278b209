// Package player mounts an album page for one device: it resolves the album,
// sets up the access gate and hands the playlist to a playback session once
// the gate opens.
package player

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"songbook/internal/album"
	"songbook/internal/gate"
	"songbook/internal/playback"
	"songbook/internal/providers"
	"songbook/internal/storage"
	"songbook/internal/structures"
	"sync"

	"github.com/jonboulle/clockwork"
)

// ResetParam in a page address wipes everything stored for that page.
const ResetParam = "reset"

// LoadFailedMessage is shown when the album document cannot be fetched or parsed.
const LoadFailedMessage = "failed to load album"

var (
	ErrLocked      = errors.New("player is locked")
	ErrUnavailable = errors.New("album unavailable")
	ErrBadAddress  = errors.New("bad page address")
)

// Namespace scopes stored keys to one device and one page path.
func Namespace(device, pagePath string) string {
	return device + ":" + pagePath
}

type Mounter struct {
	source  album.Source
	store   storage.Store
	logger  providers.Logger
	metrics providers.MetricsProviderInterface
	clock   clockwork.Clock
	gate    structures.GateConfig
	play    structures.PlaybackConfig
}

func NewMounter(conf *structures.Config, source album.Source, store storage.Store, logger providers.Logger, metrics providers.MetricsProviderInterface, clock clockwork.Clock) *Mounter {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Mounter{
		source:  source,
		store:   store,
		logger:  logger,
		metrics: metrics,
		clock:   clock,
		gate:    conf.Gate,
		play:    conf.Playback,
	}
}

type Player struct {
	mu sync.Mutex

	device    string
	path      string
	namespace string
	address   string
	album     album.Album
	failed    bool

	gate    *gate.Gate
	session *playback.Session
	media   *RemoteMedia
	metrics providers.MetricsProviderInterface
}

// Mount prepares the page at pageURL for device. An unreachable or broken album
// still yields a player, in the failed state; only an unparsable address is an error.
func (m *Mounter) Mount(ctx context.Context, device, pageURL string) (*Player, error) {
	u, err := url.Parse(pageURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrBadAddress, err)
	}
	pagePath := u.Path
	if pagePath == "" {
		pagePath = "/"
	}
	ns := Namespace(device, pagePath)

	q := u.Query()
	if q.Has(ResetParam) {
		m.reset(ns)
		q.Del(ResetParam)
		u.RawQuery = q.Encode()
	}

	p := &Player{
		device:    device,
		path:      pagePath,
		namespace: ns,
		address:   u.String(),
		media:     NewRemoteMedia(),
		metrics:   m.metrics,
	}

	doc, err := m.source.Fetch(ctx, pagePath)
	if err != nil {
		m.logger.Errorf(providers.TypeApp, "mount %s: %s", pagePath, err)
		p.failed = true
		return p, nil
	}
	p.album = doc.Album.Public()

	p.session = playback.NewSession(ns, m.store, p.media, playback.Options{
		PersistInterval: m.play.PersistInterval,
		SeekEpsilon:     m.play.SeekEpsilon,
		Clock:           m.clock,
		Logger:          m.logger,
		Metrics:         m.metrics,
	})

	secret, _ := doc.Secret()
	p.gate = gate.New(ns, secret, m.store, gate.Options{
		MaxAttempts:       m.gate.MaxAttempts,
		LockDuration:      m.gate.LockDuration,
		CountdownInterval: m.gate.CountdownInterval,
		Clock:             m.clock,
		Logger:            m.logger,
	})

	tracks := doc.Playlist()
	p.gate.Open(func() {
		p.session.Initialize(tracks)
		if !p.session.Restore() {
			p.session.Load(0, true)
		}
	})
	return p, nil
}

func (m *Mounter) reset(ns string) {
	if err := gate.Clear(m.store, ns); err != nil {
		m.logger.Warnf(providers.TypeStore, "reset %s: %s", ns, err)
	}
	if err := playback.Clear(m.store, ns); err != nil {
		m.logger.Warnf(providers.TypeStore, "reset %s: %s", ns, err)
	}
	m.logger.Infof(providers.TypeApp, "reset stored state for %s", ns)
}

// Address is the page address with the reset parameter removed.
func (p *Player) Address() string { return p.address }

func (p *Player) Path() string { return p.path }

func (p *Player) Device() string { return p.device }

func (p *Player) Failed() bool { return p.failed }

func (p *Player) Album() album.Album { return p.album }

// Decision is the gate decision, or nil when the album failed to load.
func (p *Player) Decision() *gate.Decision {
	if p.failed {
		return nil
	}
	d := p.gate.Evaluate()
	return &d
}

func (p *Player) ready() error {
	if p.failed {
		return ErrUnavailable
	}
	if !p.gate.Evaluate().Proceed() {
		return ErrLocked
	}
	return nil
}

// Submit passes a code to the gate. On success the playlist is already loaded
// when Submit returns.
func (p *Player) Submit(code string) (gate.Result, error) {
	if p.failed {
		return gate.Result{}, ErrUnavailable
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	res := p.gate.Submit(code)
	p.metrics.IncGateOutcome(res.Outcome.String())
	if res.Outcome == gate.OutcomeRejected && res.Decision.State == gate.StateLockedOut {
		p.metrics.IncLockouts()
	}
	return res, nil
}

// Event applies a browser report and dispatches the event that came with it.
func (p *Player) Event(ev playback.Event, r Report) error {
	if err := p.ready(); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.media.Update(r)
	p.session.Dispatch(ev)
	return nil
}

// Select is a click on a playlist row.
func (p *Player) Select(index int) error {
	if err := p.ready(); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.session.Load(index, true)
	return nil
}

func (p *Player) Toggle() error {
	if err := p.ready(); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.session.Toggle()
	return nil
}

// ResetPlayback forgets the saved position without touching the gate.
func (p *Player) ResetPlayback() error {
	if err := p.ready(); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.session.Reset()
}

// Unload writes the final position and stops the lockout countdown.
func (p *Player) Unload() {
	if p.failed {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.session.Unload()
	p.gate.Close()
}

type Snapshot struct {
	Address  string         `json:"address"`
	Album    album.Album    `json:"album"`
	Error    string         `json:"error,omitempty"`
	Gate     *gate.Decision `json:"gate,omitempty"`
	Playback *playback.View `json:"playback,omitempty"`
	Commands []Command      `json:"commands"`
}

// Snapshot describes the page and drains pending media commands. Playback is
// only included once the gate has opened.
func (p *Player) Snapshot() Snapshot {
	s := Snapshot{Address: p.address, Album: p.album, Commands: []Command{}}
	if p.failed {
		s.Error = LoadFailedMessage
		return s
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	d := p.gate.Evaluate()
	s.Gate = &d
	if d.Proceed() {
		v := p.session.View()
		s.Playback = &v
		s.Commands = p.media.Drain()
	}
	return s
}

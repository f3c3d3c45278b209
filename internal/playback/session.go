// Package playback drives one media element through an album playlist and
// remembers the track and position between visits.
package playback

import (
	"errors"
	"math"
	"songbook/internal/album"
	"songbook/internal/providers"
	"songbook/internal/storage"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

const (
	DefaultPersistInterval = 1200 * time.Millisecond
	DefaultSeekEpsilon     = 0.25
)

type Options struct {
	PersistInterval time.Duration
	// SeekEpsilon keeps a restore seek short of the end of the track, where
	// some players fire ended straight away. Zero means DefaultSeekEpsilon.
	SeekEpsilon float64
	Clock       clockwork.Clock
	Logger      providers.Logger
	Metrics     providers.MetricsProviderInterface
}

// Row is one playlist entry as shown to the visitor.
type Row struct {
	Number int    `json:"number"`
	Title  string `json:"title"`
	Artist string `json:"artist,omitempty"`
	Active bool   `json:"active"`
}

// View is what the page renders around the media element.
type View struct {
	Title          string `json:"title"`
	ArtistLine     string `json:"artistLine,omitempty"`
	Index          int    `json:"index"`
	OverlayVisible bool   `json:"overlayVisible"`
	Empty          bool   `json:"empty"`
	Rows           []Row  `json:"rows"`
}

type Session struct {
	mu sync.Mutex

	page    string
	store   storage.Store
	media   Media
	clock   clockwork.Clock
	logger  providers.Logger
	metrics providers.MetricsProviderInterface

	persistInterval time.Duration
	seekEpsilon     float64

	tracks      []album.Track
	initialized bool
	index       int
	overlay     bool
	lastPersist time.Time

	seekPending bool
	seekTarget  float64
}

func NewSession(page string, store storage.Store, media Media, opts Options) *Session {
	s := &Session{
		page:            page,
		store:           store,
		media:           media,
		clock:           opts.Clock,
		logger:          opts.Logger,
		metrics:         opts.Metrics,
		persistInterval: opts.PersistInterval,
		seekEpsilon:     opts.SeekEpsilon,
		index:           -1,
		overlay:         true,
	}
	if s.clock == nil {
		s.clock = clockwork.NewRealClock()
	}
	if s.persistInterval <= 0 {
		s.persistInterval = DefaultPersistInterval
	}
	if s.seekEpsilon <= 0 {
		s.seekEpsilon = DefaultSeekEpsilon
	}
	return s
}

// Initialize installs the playlist. An empty playlist is terminal: nothing
// will be loaded, played or persisted afterwards.
func (s *Session) Initialize(tracks []album.Track) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tracks = append([]album.Track(nil), tracks...)
	s.initialized = true
	s.index = -1
	s.overlay = true
	if len(s.tracks) == 0 && s.logger != nil {
		s.logger.Infof(providers.TypePlayback, "session %s: no playable tracks", s.page)
	}
}

func (s *Session) Empty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.initialized && len(s.tracks) == 0
}

// Load switches to track index. Out of range indexes are ignored.
func (s *Session) Load(index int, autoplay bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loadLocked(index, autoplay)
}

func (s *Session) loadLocked(index int, autoplay bool) bool {
	if index < 0 || index >= len(s.tracks) {
		return false
	}
	s.index = index
	s.seekPending = false
	s.media.SetSource(s.tracks[index].Source)
	s.overlay = true
	s.persistLocked(true)
	if autoplay {
		s.playLocked()
	}
	return true
}

// playLocked requests playback. A refused request leaves the overlay showing.
func (s *Session) playLocked() {
	if err := s.media.Play(); err != nil {
		s.overlay = true
		if s.logger != nil {
			s.logger.Debugf(providers.TypePlayback, "session %s: play refused: %s", s.page, err)
		}
	}
}

// Restore reloads the saved track and schedules a seek to the saved position
// for when the media reports its duration. It reports false when there is
// nothing usable to restore.
func (s *Session) Restore() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.tracks) == 0 {
		return false
	}
	saved, err := loadState(s.store, s.page)
	if err != nil {
		if !errors.Is(err, errNoState) && s.logger != nil {
			s.logger.Warnf(providers.TypePlayback, "session %s: ignoring saved state: %s", s.page, err)
		}
		return false
	}
	index := saved.Index
	if index < 0 || index >= len(s.tracks) {
		index = 0
	}
	s.loadLocked(index, false)
	s.seekPending = true
	s.seekTarget = saved.Time
	return true
}

// Dispatch feeds a media notification into the session.
func (s *Session) Dispatch(ev Event) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.tracks) == 0 {
		return
	}
	switch ev {
	case EventPlay:
		s.overlay = false
	case EventPause:
		s.overlay = true
		s.persistLocked(true)
	case EventEnded:
		if !s.loadLocked(s.index+1, true) {
			s.overlay = true
			s.persistLocked(true)
		}
	case EventTimeUpdate:
		s.persistLocked(false)
	case EventMetadataLoaded:
		s.applySeekLocked()
	}
}

func (s *Session) applySeekLocked() {
	if !s.seekPending {
		return
	}
	s.seekPending = false

	target := s.seekTarget
	if d := s.media.Duration(); d > 0 && !math.IsInf(d, 0) && !math.IsNaN(d) {
		target = math.Min(target, d-s.seekEpsilon)
	}
	s.media.Seek(math.Max(target, 0))
	s.playLocked()
}

// Toggle is the cover play button.
func (s *Session) Toggle() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.tracks) == 0 || s.index < 0 {
		return
	}
	if s.media.Paused() {
		s.playLocked()
		return
	}
	s.media.Pause()
}

// Unload forces a write of the current position; the page is going away.
func (s *Session) Unload() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.persistLocked(true)
}

// Reset forgets the saved position for this page.
func (s *Session) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seekPending = false
	return Clear(s.store, s.page)
}

func (s *Session) persistLocked(force bool) {
	if len(s.tracks) == 0 || s.index < 0 {
		return
	}
	now := s.clock.Now()
	if !force && !s.lastPersist.IsZero() && now.Sub(s.lastPersist) < s.persistInterval {
		return
	}

	pos := s.media.CurrentTime()
	if math.IsNaN(pos) || math.IsInf(pos, 0) || pos < 0 {
		pos = 0
	}
	if err := saveState(s.store, s.page, State{Index: s.index, Time: pos}); err != nil {
		if s.logger != nil {
			s.logger.Warnf(providers.TypePlayback, "session %s: persist failed: %s", s.page, err)
		}
		return
	}
	s.lastPersist = now
	if s.metrics != nil {
		kind := "throttled"
		if force {
			kind = "forced"
		}
		s.metrics.IncPlaybackPersists(kind)
	}
}

func (s *Session) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()

	v := View{
		Index:          s.index,
		OverlayVisible: s.overlay,
		Empty:          s.initialized && len(s.tracks) == 0,
		Rows:           make([]Row, 0, len(s.tracks)),
	}
	for i, t := range s.tracks {
		v.Rows = append(v.Rows, Row{Number: i + 1, Title: t.Title, Artist: t.Artist, Active: i == s.index})
	}
	if s.index >= 0 && s.index < len(s.tracks) {
		t := s.tracks[s.index]
		v.Title = t.Title
		if t.Artist != "" {
			v.ArtistLine = "Artist: " + t.Artist
		}
	}
	return v
}

// Index is the active track, or -1 before anything was loaded.
func (s *Session) Index() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.index
}

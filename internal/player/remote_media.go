package player

import (
	"math"
	"sync"
)

type CommandOp string

const (
	OpSource CommandOp = "src"
	OpSeek   CommandOp = "seek"
	OpPlay   CommandOp = "play"
	OpPause  CommandOp = "pause"
)

// Command is an instruction for the browser's audio element.
type Command struct {
	Op   CommandOp `json:"op"`
	Src  string    `json:"src,omitempty"`
	Time float64   `json:"time,omitempty"`
}

// Report is the element state the browser sends along with every event.
type Report struct {
	CurrentTime float64 `json:"currentTime"`
	Duration    float64 `json:"duration"`
	Paused      bool    `json:"paused"`
}

// RemoteMedia mirrors an audio element living in the browser. Reads answer from
// the last report, writes are queued as commands for the next response.
type RemoteMedia struct {
	mu       sync.Mutex
	src      string
	time     float64
	duration float64
	paused   bool
	queue    []Command
}

func NewRemoteMedia() *RemoteMedia {
	return &RemoteMedia{paused: true}
}

func finite(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

// Update applies a browser report.
func (m *RemoteMedia) Update(r Report) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.time = math.Max(finite(r.CurrentTime), 0)
	m.duration = finite(r.Duration)
	m.paused = r.Paused
}

func (m *RemoteMedia) SetSource(src string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.src = src
	m.time = 0
	m.duration = 0
	m.paused = true
	m.queue = append(m.queue, Command{Op: OpSource, Src: src})
}

func (m *RemoteMedia) Source() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.src
}

func (m *RemoteMedia) CurrentTime() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.time
}

func (m *RemoteMedia) Seek(seconds float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.time = seconds
	m.queue = append(m.queue, Command{Op: OpSeek, Time: seconds})
}

func (m *RemoteMedia) Duration() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.duration
}

// Play only queues the request. If the browser refuses it, the element stays
// paused and the next report says so.
func (m *RemoteMedia) Play() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queue = append(m.queue, Command{Op: OpPlay})
	return nil
}

func (m *RemoteMedia) Pause() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.paused = true
	m.queue = append(m.queue, Command{Op: OpPause})
}

func (m *RemoteMedia) Paused() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.paused
}

// Drain returns and clears the pending commands.
func (m *RemoteMedia) Drain() []Command {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := m.queue
	m.queue = nil
	if out == nil {
		out = []Command{}
	}
	return out
}

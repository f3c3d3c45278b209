package testutil

import (
	"fmt"
	"songbook/internal/providers"
	"sync"
	"time"
)

// MockLogger implements providers.Logger and records calls.
type MockLogger struct {
	mu   sync.Mutex
	Logs []LogEntry
}

type LogEntry struct {
	Level  string
	Type   providers.TypeEnum
	Format string
	Args   []interface{}
}

func (e LogEntry) Message() string {
	return fmt.Sprintf(e.Format, e.Args...)
}

func (m *MockLogger) record(level string, t providers.TypeEnum, format string, args ...interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Logs = append(m.Logs, LogEntry{Level: level, Type: t, Format: format, Args: args})
}

func (m *MockLogger) Errorf(t providers.TypeEnum, format string, args ...interface{}) {
	m.record("error", t, format, args...)
}
func (m *MockLogger) Warnf(t providers.TypeEnum, format string, args ...interface{}) {
	m.record("warn", t, format, args...)
}
func (m *MockLogger) Debugf(t providers.TypeEnum, format string, args ...interface{}) {
	m.record("debug", t, format, args...)
}
func (m *MockLogger) Infof(t providers.TypeEnum, format string, args ...interface{}) {
	m.record("info", t, format, args...)
}
func (m *MockLogger) Fatalf(t providers.TypeEnum, format string, args ...interface{}) {
	m.record("fatal", t, format, args...)
}
func (m *MockLogger) Close() {}

// Count returns how many entries were logged at level.
func (m *MockLogger) Count(level string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, e := range m.Logs {
		if e.Level == level {
			n++
		}
	}
	return n
}

// MockMetrics implements providers.MetricsProviderInterface.
type MockMetrics struct {
	mu                  sync.Mutex
	StoreHits           int
	StoreMisses         int
	StoreErrors         map[string]int
	PersistenceObserved int
	GateOutcomes        map[string]int
	Lockouts            int
	PlaybackPersists    map[string]int
}

func (m *MockMetrics) IncRequestsTotal(_ string, _ int)                 {}
func (m *MockMetrics) ObserveRequestDuration(_ string, _ time.Duration) {}

func (m *MockMetrics) IncStoreHits() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.StoreHits++
}

func (m *MockMetrics) IncStoreMisses() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.StoreMisses++
}

func (m *MockMetrics) IncStoreErrors(op string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.StoreErrors == nil {
		m.StoreErrors = make(map[string]int)
	}
	m.StoreErrors[op]++
}

func (m *MockMetrics) ObservePersistenceDuration(_ time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.PersistenceObserved++
}

func (m *MockMetrics) IncGateOutcome(outcome string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.GateOutcomes == nil {
		m.GateOutcomes = make(map[string]int)
	}
	m.GateOutcomes[outcome]++
}

func (m *MockMetrics) IncLockouts() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Lockouts++
}

func (m *MockMetrics) IncPlaybackPersists(kind string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.PlaybackPersists == nil {
		m.PlaybackPersists = make(map[string]int)
	}
	m.PlaybackPersists[kind]++
}

// Persists returns the number of playback writes of kind.
func (m *MockMetrics) Persists(kind string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.PlaybackPersists[kind]
}

// MockCompressor implements interfaces.CompressorInterface with injectable behavior.
type MockCompressor struct {
	CompressFn   func([]byte) ([]byte, error)
	DecompressFn func([]byte) ([]byte, error)
	Closed       bool
}

func (m *MockCompressor) Compress(val []byte) ([]byte, error) {
	if m.CompressFn != nil {
		return m.CompressFn(val)
	}
	out := make([]byte, len(val))
	copy(out, val)
	return out, nil
}

func (m *MockCompressor) Decompress(val []byte) ([]byte, error) {
	if m.DecompressFn != nil {
		return m.DecompressFn(val)
	}
	out := make([]byte, len(val))
	copy(out, val)
	return out, nil
}

func (m *MockCompressor) Close() { m.Closed = true }

// FakeMedia implements playback.Media. It starts paused with an unknown duration.
type FakeMedia struct {
	Src     string
	Time    float64
	Dur     float64
	Playing bool
	PlayErr error

	Sources    []string
	Seeks      []float64
	PlayCalls  int
	PauseCalls int
}

func (f *FakeMedia) SetSource(src string) {
	f.Src = src
	f.Sources = append(f.Sources, src)
	f.Time = 0
	f.Dur = 0
	f.Playing = false
}

func (f *FakeMedia) CurrentTime() float64 { return f.Time }

func (f *FakeMedia) Seek(seconds float64) {
	f.Time = seconds
	f.Seeks = append(f.Seeks, seconds)
}

func (f *FakeMedia) Duration() float64 { return f.Dur }

func (f *FakeMedia) Play() error {
	f.PlayCalls++
	if f.PlayErr != nil {
		return f.PlayErr
	}
	f.Playing = true
	return nil
}

func (f *FakeMedia) Pause() {
	f.PauseCalls++
	f.Playing = false
}

func (f *FakeMedia) Paused() bool { return !f.Playing }

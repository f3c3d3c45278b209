package providers

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockMetrics struct {
	requestEndpoint string
	requestStatus   int
	requestCalls    int
	durationCalls   int
}

func (m *mockMetrics) IncRequestsTotal(endpoint string, status int) {
	m.requestEndpoint = endpoint
	m.requestStatus = status
	m.requestCalls++
}
func (m *mockMetrics) ObserveRequestDuration(_ string, _ time.Duration) { m.durationCalls++ }
func (m *mockMetrics) IncStoreHits()                                    {}
func (m *mockMetrics) IncStoreMisses()                                  {}
func (m *mockMetrics) IncStoreErrors(_ string)                          {}
func (m *mockMetrics) ObservePersistenceDuration(_ time.Duration)       {}
func (m *mockMetrics) IncGateOutcome(_ string)                          {}
func (m *mockMetrics) IncLockouts()                                     {}
func (m *mockMetrics) IncPlaybackPersists(_ string)                     {}

type recordingLogger struct {
	lines []string
	types []TypeEnum
}

func (l *recordingLogger) Errorf(_ TypeEnum, _ string, _ ...interface{}) {}
func (l *recordingLogger) Warnf(_ TypeEnum, _ string, _ ...interface{})  {}
func (l *recordingLogger) Debugf(t TypeEnum, format string, args ...interface{}) {
	l.types = append(l.types, t)
	l.lines = append(l.lines, fmt.Sprintf(format, args...))
}
func (l *recordingLogger) Infof(_ TypeEnum, _ string, _ ...interface{})  {}
func (l *recordingLogger) Fatalf(_ TypeEnum, _ string, _ ...interface{}) {}
func (l *recordingLogger) Close()                                        {}

func TestMetricsMiddleware_CapturesStatusAndEndpoint(t *testing.T) {
	metrics := &mockMetrics{}

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	})

	mw := MetricsMiddleware(metrics, handler)

	req := httptest.NewRequest(http.MethodPost, "/api/gate/submit", nil)
	rr := httptest.NewRecorder()
	mw.ServeHTTP(rr, req)

	assert.Equal(t, 1, metrics.requestCalls)
	assert.Equal(t, "/api/gate/submit", metrics.requestEndpoint)
	assert.Equal(t, http.StatusForbidden, metrics.requestStatus)
	assert.Equal(t, 1, metrics.durationCalls)
}

func TestMetricsMiddleware_DefaultStatus200(t *testing.T) {
	metrics := &mockMetrics{}

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})

	mw := MetricsMiddleware(metrics, handler)

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	rr := httptest.NewRecorder()
	mw.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, metrics.requestStatus)
}

func TestStatusWriter_WriteHeader(t *testing.T) {
	rr := httptest.NewRecorder()
	sw := &statusWriter{ResponseWriter: rr, status: http.StatusOK}

	sw.WriteHeader(http.StatusNotFound)
	assert.Equal(t, http.StatusNotFound, sw.status)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestLoggingMiddleware_LogsMethodTypeAndStatus(t *testing.T) {
	logger := &recordingLogger{}
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	LoggingMiddleware(logger, handler).ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/api/mount", nil))

	require.Len(t, logger.lines, 1)
	assert.Equal(t, TypePost, logger.types[0])
	assert.Contains(t, logger.lines[0], "POST /api/mount -> 404")
}

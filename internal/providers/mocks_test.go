package providers

import (
	"sync"
	"time"
)

// local mocks; testutil imports this package

type testLogger struct {
	mu    sync.Mutex
	lines []string
}

func (m *testLogger) add(level string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lines = append(m.lines, level)
}

func (m *testLogger) Errorf(_ TypeEnum, _ string, _ ...interface{}) { m.add("error") }
func (m *testLogger) Warnf(_ TypeEnum, _ string, _ ...interface{})  { m.add("warn") }
func (m *testLogger) Debugf(_ TypeEnum, _ string, _ ...interface{}) { m.add("debug") }
func (m *testLogger) Infof(_ TypeEnum, _ string, _ ...interface{})  { m.add("info") }
func (m *testLogger) Fatalf(_ TypeEnum, _ string, _ ...interface{}) { m.add("fatal") }
func (m *testLogger) Close()                                        {}

func (m *testLogger) count(level string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, l := range m.lines {
		if l == level {
			n++
		}
	}
	return n
}

type testMetrics struct {
	mu        sync.Mutex
	hits      int
	misses    int
	requests  map[string]int
	durations int
}

func (m *testMetrics) IncRequestsTotal(path string, _ int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.requests == nil {
		m.requests = make(map[string]int)
	}
	m.requests[path]++
}
func (m *testMetrics) ObserveRequestDuration(_ string, _ time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.durations++
}
func (m *testMetrics) IncCacheHits()             { m.hits++ }
func (m *testMetrics) IncCacheMisses()           { m.misses++ }
func (m *testMetrics) IncIncrements()            {}
func (m *testMetrics) IncHeartbeats()            {}
func (m *testMetrics) SetOnlineIdentities(_ int) {}
func (m *testMetrics) AddEventsPruned(_ int)     {}
func (m *testMetrics) SetStreamClients(_ int)    {}

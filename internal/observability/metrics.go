package observability

import (
	"sort"
	"strings"
	"sync"
	"time"
)

// Metrics keeps in-process counters keyed by (name, tags) and emits every
// update as a metric event so an external collector can tail the stream.
type Metrics struct {
	mu       sync.Mutex
	counters map[string]int64
	logger   *Logger
}

func NewMetrics(logger *Logger) *Metrics {
	return &Metrics{
		counters: make(map[string]int64),
		logger:   logger,
	}
}

// Incr increments a named counter. Tags are folded into the key in a
// deterministic order.
func (m *Metrics) Incr(name string, tags map[string]string) {
	if m == nil {
		return
	}
	key := metricKey(name, tags)

	m.mu.Lock()
	m.counters[key]++
	value := m.counters[key]
	m.mu.Unlock()

	m.logger.Log(Event{
		Type: EventTypeMetric,
		Data: map[string]any{
			"metric": name,
			"kind":   "counter",
			"tags":   tags,
			"value":  value,
		},
	})
}

// Timing records a duration for a named timer.
func (m *Metrics) Timing(name string, d time.Duration, tags map[string]string) {
	if m == nil {
		return
	}
	m.logger.Log(Event{
		Type: EventTypeMetric,
		Data: map[string]any{
			"metric":      name,
			"kind":        "timer",
			"tags":        tags,
			"duration_ms": float64(d.Microseconds()) / 1000.0,
		},
	})
}

// Counter returns the current value of a counter, mainly for tests.
func (m *Metrics) Counter(name string, tags map[string]string) int64 {
	if m == nil {
		return 0
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.counters[metricKey(name, tags)]
}

func metricKey(name string, tags map[string]string) string {
	if len(tags) == 0 {
		return name
	}
	parts := make([]string, 0, len(tags))
	for k, v := range tags {
		parts = append(parts, k+"="+v)
	}
	sort.Strings(parts)
	return name + "|" + strings.Join(parts, ",")
}

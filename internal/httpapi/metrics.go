package httpapi

import (
	"sync"
	"time"
)

const maxMetricsLines = 500

// requestLine is one entry in the in-process ring buffer backing
// GET /metrics (spec.md §6's "last-N request lines").
type requestLine struct {
	Timestamp time.Time     `json:"timestamp"`
	Method    string        `json:"method"`
	Path      string        `json:"path"`
	Status    int           `json:"status"`
	Duration  int64     `json:"duration_ms"`
}

// metricsRecorder keeps the most recent maxMetricsLines requests in
// memory, trading durability for a zero-dependency /metrics endpoint —
// full observability is a named Non-goal (spec.md §1).
type metricsRecorder struct {
	mu    sync.Mutex
	lines []requestLine
}

func newMetricsRecorder() *metricsRecorder {
	return &metricsRecorder{lines: make([]requestLine, 0, maxMetricsLines)}
}

func (r *metricsRecorder) record(method, path string, status int, d time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.lines = append(r.lines, requestLine{
		Timestamp: time.Now().UTC(),
		Method:    method,
		Path:      path,
		Status:    status,
		Duration:  d.Milliseconds(),
	})

	if len(r.lines) > maxMetricsLines {
		r.lines = r.lines[len(r.lines)-maxMetricsLines:]
	}
}

func (r *metricsRecorder) snapshot() []requestLine {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]requestLine, len(r.lines))
	copy(out, r.lines)

	return out
}

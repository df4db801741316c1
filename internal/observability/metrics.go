package observability

import (
	"sort"
	"strconv"
	"sync"
	"time"
)

// Metrics provides basic in-memory counters.
type Metrics struct {
	mu            sync.Mutex
	requestCount  map[string]int64
	errorCount    map[string]int64
	totalLatency  time.Duration
	requests      int64
	votesAccepted int64
	votesRejected map[string]int64
	startedAt     time.Time
}

// RouteCount is a single counter entry in a snapshot.
type RouteCount struct {
	Key   string `json:"key"`
	Count int64  `json:"count"`
}

// MetricsSnapshot is a point-in-time copy of the counters.
type MetricsSnapshot struct {
	UptimeSeconds    int64            `json:"uptimeSeconds"`
	Requests         int64            `json:"requests"`
	AvgLatencyMillis float64          `json:"avgLatencyMillis"`
	ByRoute          []RouteCount     `json:"byRoute"`
	Errors           []RouteCount     `json:"errors"`
	VotesAccepted    int64            `json:"votesAccepted"`
	VotesRejected    map[string]int64 `json:"votesRejected"`
}

// NewMetrics initializes metrics storage.
func NewMetrics() *Metrics {
	return &Metrics{
		requestCount:  make(map[string]int64),
		errorCount:    make(map[string]int64),
		votesRejected: make(map[string]int64),
		startedAt:     time.Now(),
	}
}

// RecordRequest increments counters for requests.
func (m *Metrics) RecordRequest(path, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	key := pathKey(path, method, status)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requestCount[key]++
	m.requests++
	m.totalLatency += duration
}

// RecordError increments error counters.
func (m *Metrics) RecordError(path, method, code string) {
	if m == nil {
		return
	}
	key := path + "|" + method + "|" + code
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errorCount[key]++
}

// RecordVote counts a vote outcome. An empty code means the vote was accepted.
func (m *Metrics) RecordVote(code string) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if code == "" {
		m.votesAccepted++
		return
	}
	m.votesRejected[code]++
}

// Snapshot copies the current counters.
func (m *Metrics) Snapshot() MetricsSnapshot {
	if m == nil {
		return MetricsSnapshot{VotesRejected: map[string]int64{}}
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	snap := MetricsSnapshot{
		UptimeSeconds: int64(time.Since(m.startedAt).Seconds()),
		Requests:      m.requests,
		ByRoute:       sortedCounts(m.requestCount),
		Errors:        sortedCounts(m.errorCount),
		VotesAccepted: m.votesAccepted,
		VotesRejected: make(map[string]int64, len(m.votesRejected)),
	}
	if m.requests > 0 {
		snap.AvgLatencyMillis = float64(m.totalLatency.Milliseconds()) / float64(m.requests)
	}
	for k, v := range m.votesRejected {
		snap.VotesRejected[k] = v
	}
	return snap
}

func sortedCounts(src map[string]int64) []RouteCount {
	out := make([]RouteCount, 0, len(src))
	for k, v := range src {
		out = append(out, RouteCount{Key: k, Count: v})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

func pathKey(path, method string, status int) string {
	return path + "|" + method + "|" + strconv.Itoa(status)
}

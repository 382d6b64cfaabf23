package observability

import (
	"sort"
	"strconv"
	"sync"
	"time"
)

// Metrics provides basic in-memory counters.
type Metrics struct {
	mu               sync.Mutex
	requestCount     map[string]int64
	errorCount       map[string]int64
	interactionCount map[string]int64
	latencyTotal     map[string]time.Duration
}

// NewMetrics initializes metrics storage.
func NewMetrics() *Metrics {
	return &Metrics{
		requestCount:     make(map[string]int64),
		errorCount:       make(map[string]int64),
		interactionCount: make(map[string]int64),
		latencyTotal:     make(map[string]time.Duration),
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
	m.latencyTotal["http|"+path+"|"+method] += duration
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

// RecordInteraction counts a handled chat interaction by kind, route and outcome code.
// An empty code means success.
func (m *Metrics) RecordInteraction(kind, route, code string, duration time.Duration) {
	if m == nil {
		return
	}
	if code == "" {
		code = "OK"
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.interactionCount[kind+"|"+route+"|"+code]++
	m.latencyTotal["interaction|"+kind+"|"+route] += duration
}

// Snapshot is a point-in-time copy of every counter.
type Snapshot struct {
	Requests     []Counter `json:"requests"`
	Errors       []Counter `json:"errors"`
	Interactions []Counter `json:"interactions"`
}

// Counter is one labelled count.
type Counter struct {
	Key   string `json:"key"`
	Count int64  `json:"count"`
}

// Snapshot copies the counters, sorted by key.
func (m *Metrics) Snapshot() Snapshot {
	if m == nil {
		return Snapshot{}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return Snapshot{
		Requests:     counters(m.requestCount),
		Errors:       counters(m.errorCount),
		Interactions: counters(m.interactionCount),
	}
}

func counters(in map[string]int64) []Counter {
	out := make([]Counter, 0, len(in))
	for k, v := range in {
		out = append(out, Counter{Key: k, Count: v})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

func pathKey(path, method string, status int) string {
	return path + "|" + method + "|" + strconv.Itoa(status)
}

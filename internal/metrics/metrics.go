// Package metrics is a small Prometheus-text-format collector for the
// obfuscation service. It renders counters, gauges, and one latency
// histogram without pulling in prometheus/client_golang.
package metrics

import (
	"fmt"
	"math"
	"net/http"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// Counter is a monotonically increasing counter.
type Counter struct {
	name  string
	help  string
	value atomic.Int64
}

func (c *Counter) Inc() { c.value.Add(1) }
func (c *Counter) Add(n int64) { c.value.Add(n) }
func (c *Counter) Value() int64 { return c.value.Load() }

// Gauge is a value that can go up and down.
type Gauge struct {
	name  string
	help  string
	value atomic.Int64
}

func (g *Gauge) Inc() { g.value.Add(1) }
func (g *Gauge) Dec() { g.value.Add(-1) }
func (g *Gauge) Set(v int64) { g.value.Store(v) }
func (g *Gauge) Value() int64 { return g.value.Load() }

// Histogram tracks a value distribution over fixed buckets.
type Histogram struct {
	name    string
	help    string
	mu      sync.Mutex
	count   int64
	sum     float64
	bounds  []float64
	buckets []int64
}

func (h *Histogram) Observe(v float64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.count++
	h.sum += v
	for i, le := range h.bounds {
		if v <= le {
			h.buckets[i]++
		}
	}
}

// Registry holds all metrics and renders them in exposition format.
type Registry struct {
	mu         sync.Mutex
	counters   []*Counter
	gauges     []*Gauge
	histograms []*Histogram
	startTime  time.Time
}

func NewRegistry() *Registry {
	return &Registry{startTime: time.Now()}
}

// Default is the process-wide registry.
var Default = NewRegistry()

func (r *Registry) Counter(name, help string) *Counter {
	r.mu.Lock()
	defer r.mu.Unlock()
	c := &Counter{name: name, help: help}
	r.counters = append(r.counters, c)
	return c
}

func (r *Registry) Gauge(name, help string) *Gauge {
	r.mu.Lock()
	defer r.mu.Unlock()
	g := &Gauge{name: name, help: help}
	r.gauges = append(r.gauges, g)
	return g
}

func (r *Registry) Histogram(name, help string, bounds []float64) *Histogram {
	r.mu.Lock()
	defer r.mu.Unlock()
	sort.Float64s(bounds)
	h := &Histogram{name: name, help: help, bounds: bounds, buckets: make([]int64, len(bounds))}
	r.histograms = append(r.histograms, h)
	return h
}

// Uptime returns how long the registry has existed.
func (r *Registry) Uptime() time.Duration {
	return time.Since(r.startTime)
}

// Render writes every metric in Prometheus text exposition format.
func (r *Registry) Render() string {
	r.mu.Lock()
	defer r.mu.Unlock()

	var sb strings.Builder
	fmt.Fprintf(&sb, "# HELP obfuscator_uptime_seconds Time since start in seconds\n")
	fmt.Fprintf(&sb, "# TYPE obfuscator_uptime_seconds gauge\n")
	fmt.Fprintf(&sb, "obfuscator_uptime_seconds %d\n", int64(r.Uptime().Seconds()))

	for _, c := range r.counters {
		fmt.Fprintf(&sb, "# HELP %s %s\n# TYPE %s counter\n%s %d\n", c.name, c.help, c.name, c.name, c.Value())
	}
	for _, g := range r.gauges {
		fmt.Fprintf(&sb, "# HELP %s %s\n# TYPE %s gauge\n%s %d\n", g.name, g.help, g.name, g.name, g.Value())
	}
	for _, h := range r.histograms {
		h.mu.Lock()
		fmt.Fprintf(&sb, "# HELP %s %s\n# TYPE %s histogram\n", h.name, h.help, h.name)
		for i, le := range h.bounds {
			label := fmt.Sprintf("%g", le)
			if math.IsInf(le, 1) {
				label = "+Inf"
			}
			fmt.Fprintf(&sb, "%s_bucket{le=%q} %d\n", h.name, label, h.buckets[i])
		}
		fmt.Fprintf(&sb, "%s_count %d\n", h.name, h.count)
		fmt.Fprintf(&sb, "%s_sum %f\n", h.name, h.sum)
		h.mu.Unlock()
	}
	return sb.String()
}

// Handler serves the registry at an HTTP endpoint.
func (r *Registry) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")
		fmt.Fprint(w, r.Render())
	}
}

// Metrics used across the service.
var (
	JobsStarted   = Default.Counter("obfuscator_jobs_started_total", "Jobs accepted for processing")
	JobsCompleted = Default.Counter("obfuscator_jobs_completed_total", "Jobs finished successfully")
	JobsFailed    = Default.Counter("obfuscator_jobs_failed_total", "Jobs ended in a failure event")
	ArtifactBytes = Default.Counter("obfuscator_artifact_bytes_total", "Artifact bytes written")
	SweepDeletes  = Default.Counter("obfuscator_sweep_deletes_total", "Files removed by the retention sweep")
	WSConnections = Default.Gauge("obfuscator_ws_connections", "Open progress-channel connections")

	EngineLatency = Default.Histogram("obfuscator_engine_seconds", "External engine call latency in seconds",
		[]float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120, math.Inf(1)})
)

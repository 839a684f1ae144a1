package metrics

import (
	"math"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestCounterAndGauge(t *testing.T) {
	r := NewRegistry()
	c := r.Counter("test_jobs_total", "help")
	c.Inc()
	c.Add(2)
	if c.Value() != 3 {
		t.Errorf("counter = %d", c.Value())
	}

	g := r.Gauge("test_conns", "help")
	g.Inc()
	g.Inc()
	g.Dec()
	if g.Value() != 1 {
		t.Errorf("gauge = %d", g.Value())
	}
	g.Set(42)
	if g.Value() != 42 {
		t.Errorf("gauge after set = %d", g.Value())
	}
}

func TestHistogramBuckets(t *testing.T) {
	r := NewRegistry()
	h := r.Histogram("test_latency", "help", []float64{1, 5, math.Inf(1)})
	h.Observe(0.5)
	h.Observe(3)
	h.Observe(100)

	out := r.Render()
	for _, want := range []string{
		`test_latency_bucket{le="1"} 1`,
		`test_latency_bucket{le="5"} 2`,
		`test_latency_bucket{le="+Inf"} 3`,
		"test_latency_count 3",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("render missing %q:\n%s", want, out)
		}
	}
}

func TestRenderFormat(t *testing.T) {
	r := NewRegistry()
	c := r.Counter("test_total", "A test counter")
	c.Inc()

	out := r.Render()
	for _, want := range []string{
		"# HELP test_total A test counter",
		"# TYPE test_total counter",
		"test_total 1",
		"# TYPE obfuscator_uptime_seconds gauge",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("render missing %q:\n%s", want, out)
		}
	}
}

func TestHandler(t *testing.T) {
	r := NewRegistry()
	r.Counter("test_total", "help").Inc()

	rec := httptest.NewRecorder()
	r.Handler()(rec, httptest.NewRequest("GET", "/metrics", nil))

	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/plain") {
		t.Errorf("content type %q", ct)
	}
	if !strings.Contains(rec.Body.String(), "test_total 1") {
		t.Errorf("body:\n%s", rec.Body.String())
	}
}

package runner

import (
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"
)

// Values are recorded in microseconds, 1us to 60s, 3 significant digits.
const (
	minLatencyUs = 1
	maxLatencyUs = 60_000_000
)

// Latency summarizes recorded response durations.
type Latency struct {
	Count int64         `json:"count"`
	Min   time.Duration `json:"min"`
	Mean  time.Duration `json:"mean"`
	P50   time.Duration `json:"p50"`
	P95   time.Duration `json:"p95"`
	P99   time.Duration `json:"p99"`
	Max   time.Duration `json:"max"`
}

type latencyRecorder struct {
	all    *hdrhistogram.Histogram
	byRule map[string]*hdrhistogram.Histogram
}

func newLatencyRecorder() *latencyRecorder {
	return &latencyRecorder{
		all:    hdrhistogram.New(minLatencyUs, maxLatencyUs, 3),
		byRule: make(map[string]*hdrhistogram.Histogram),
	}
}

// record ignores zero durations: most hand-written transcripts leave
// duration_ms out.
func (l *latencyRecorder) record(rule string, d time.Duration) {
	if d <= 0 {
		return
	}
	us := d.Microseconds()
	if us < minLatencyUs {
		us = minLatencyUs
	}
	if us > maxLatencyUs {
		us = maxLatencyUs
	}
	_ = l.all.RecordValue(us)

	h, ok := l.byRule[rule]
	if !ok {
		h = hdrhistogram.New(minLatencyUs, maxLatencyUs, 3)
		l.byRule[rule] = h
	}
	_ = h.RecordValue(us)
}

func (l *latencyRecorder) summary() Latency {
	return summarize(l.all)
}

func (l *latencyRecorder) perRule() map[string]Latency {
	out := make(map[string]Latency, len(l.byRule))
	for rule, h := range l.byRule {
		out[rule] = summarize(h)
	}
	return out
}

func summarize(h *hdrhistogram.Histogram) Latency {
	if h.TotalCount() == 0 {
		return Latency{}
	}
	us := func(v int64) time.Duration { return time.Duration(v) * time.Microsecond }
	return Latency{
		Count: h.TotalCount(),
		Min:   us(h.Min()),
		Mean:  us(int64(h.Mean())),
		P50:   us(h.ValueAtQuantile(50)),
		P95:   us(h.ValueAtQuantile(95)),
		P99:   us(h.ValueAtQuantile(99)),
		Max:   us(h.Max()),
	}
}

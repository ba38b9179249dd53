package core

import (
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"
)

// latencyRecorder tracks batch write durations in microseconds.
type latencyRecorder struct {
	hist *hdrhistogram.Histogram
}

func newLatencyRecorder() *latencyRecorder {
	// 1µs to 1h at 3 significant figures.
	return &latencyRecorder{hist: hdrhistogram.New(1, int64(time.Hour/time.Microsecond), 3)}
}

// Record adds one observation. Values outside the trackable range are clamped.
func (r *latencyRecorder) Record(d time.Duration) {
	us := d.Microseconds()
	if us < 1 {
		us = 1
	}
	if limit := r.hist.HighestTrackableValue(); us > limit {
		us = limit
	}
	_ = r.hist.RecordValue(us)
}

// Summary returns count, median, p99 and max.
func (r *latencyRecorder) Summary() LatencySummary {
	if r.hist.TotalCount() == 0 {
		return LatencySummary{}
	}
	return LatencySummary{
		Count: r.hist.TotalCount(),
		P50:   time.Duration(r.hist.ValueAtQuantile(50)) * time.Microsecond,
		P99:   time.Duration(r.hist.ValueAtQuantile(99)) * time.Microsecond,
		Max:   time.Duration(r.hist.Max()) * time.Microsecond,
	}
}

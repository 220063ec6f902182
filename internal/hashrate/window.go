// Package hashrate implements the difficulty-weighted hashrate estimator
// and accuracy accounting spec.md §4.5 describes for each live order.
// Adapted from the teacher's internal/stratum/hashrate.Window: the same
// rolling-deque shape, generalized from a fixed-duration divisor to the
// exact span between the first and last sample still in the window, which
// this domain's formula requires.
package hashrate

import (
	"sync"
	"time"
)

// Diff1Target is 2^32, the hash count represented by difficulty 1.
const Diff1Target = 4294967296.0

type sample struct {
	at         time.Time
	difficulty float64
}

// Window is a rolling deque of accepted-share difficulty samples. Adapted
// from the teacher's Window (internal/stratum/hashrate/hashrate.go), with
// Hashrate computing `(Σdifficulty)×2³²/(t_last−t_first)` over the samples
// still in span, per spec.md §4.5, instead of dividing by the window's
// fixed duration — a session that has mined for only 40s out of a 5-minute
// window must be scored over those 40s, not diluted by the empty rest of
// the window.
type Window struct {
	mu      sync.Mutex
	span    time.Duration
	samples []sample
}

// NewWindow returns a Window that keeps samples for span.
func NewWindow(span time.Duration) *Window {
	return &Window{span: span}
}

// Add records an accepted share's difficulty at the given time.
func (w *Window) Add(difficulty float64, at time.Time) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.samples = append(w.samples, sample{at: at, difficulty: difficulty})
	w.evictLocked(at)
}

func (w *Window) evictLocked(now time.Time) {
	cutoff := now.Add(-w.span)
	i := 0
	for i < len(w.samples) && w.samples[i].at.Before(cutoff) {
		i++
	}
	if i > 0 {
		w.samples = w.samples[i:]
	}
}

// Hashrate returns the current estimate and true, or (0, false) when fewer
// than two samples remain in the window — undefined per spec.md §4.5,
// which P3 interprets as "zero before the first accepted share".
func (w *Window) Hashrate(now time.Time) (float64, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.evictLocked(now)
	if len(w.samples) < 2 {
		return 0, false
	}
	var sum float64
	for _, s := range w.samples {
		sum += s.difficulty
	}
	elapsed := w.samples[len(w.samples)-1].at.Sub(w.samples[0].at).Seconds()
	if elapsed <= 0 {
		return 0, false
	}
	return sum * Diff1Target / elapsed, true
}

// SampleCount reports how many samples remain in the window, for tests.
func (w *Window) SampleCount(now time.Time) int {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.evictLocked(now)
	return len(w.samples)
}

// FormatUnit scales hashrate to the largest unit among {H,KH,MH,GH,TH,PH}/s
// for display, per spec.md §4.5 ("the wire value is always raw H/s").
// Adapted from the teacher's Calculator.Format.
func FormatUnit(hashrate float64) (value float64, unit string) {
	units := []string{"H/s", "KH/s", "MH/s", "GH/s", "TH/s", "PH/s"}
	v := hashrate
	i := 0
	for v >= 1000 && i < len(units)-1 {
		v /= 1000
		i++
	}
	return v, units[i]
}

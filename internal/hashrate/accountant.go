package hashrate

import (
	"sync"
	"time"
)

// WindowSpan is the rolling window spec.md §4.5 keys the hashrate estimate
// to.
const WindowSpan = 5 * time.Minute

// ReportInterval is how often the proxy's background reporter reads and
// resets period counters across all live sessions (spec.md §4.5/§5).
const ReportInterval = 300 * time.Second

// LowAccuracyThreshold is the accuracy percentage below which a
// hashrate_low notification fires (spec.md §4.5/S6).
const LowAccuracyThreshold = 50.0

// Accountant tracks one order's live delivery telemetry: the rolling
// hashrate window, period accepted/rejected counters reset on each
// Report, and the hashrate_low hysteresis. Generalized from the teacher's
// per-connection stratum/hashrate.Window into a per-order accountant with
// the accuracy/ordered-hashrate comparison and low-hashrate edge detection
// spec.md §4.5 adds on top.
type Accountant struct {
	orderedHashrate float64

	window *Window

	mu             sync.Mutex
	periodAccepted int64
	periodRejected int64
	totalAccepted  int64
	totalRejected  int64
	belowThreshold bool
}

// NewAccountant builds an Accountant for an order whose listing promised
// orderedHashrate H/s.
func NewAccountant(orderedHashrate float64) *Accountant {
	return &Accountant{orderedHashrate: orderedHashrate, window: NewWindow(WindowSpan)}
}

// RecordAccepted records an accepted share's difficulty (P3: shares_accepted
// is non-decreasing).
func (a *Accountant) RecordAccepted(difficulty float64, at time.Time) {
	a.mu.Lock()
	a.periodAccepted++
	a.totalAccepted++
	a.mu.Unlock()
	a.window.Add(difficulty, at)
}

// RecordRejected records a rejected (or stale) share.
func (a *Accountant) RecordRejected() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.periodRejected++
	a.totalRejected++
}

// CurrentHashrate returns the live estimate, zero before the first
// accepted share or whenever fewer than two samples remain (P3).
func (a *Accountant) CurrentHashrate(now time.Time) float64 {
	hr, ok := a.window.Hashrate(now)
	if !ok {
		return 0
	}
	return hr
}

// Accuracy implements spec.md §4.5: min(100, 100×avg_hashrate/ordered_hashrate).
// An order with no stated ordered hashrate (catalog entries with unknown
// unit conversion) is treated as always-accurate rather than dividing by
// zero.
func (a *Accountant) Accuracy(avgHashrate float64) float64 {
	if a.orderedHashrate <= 0 {
		return 100
	}
	pct := 100 * avgHashrate / a.orderedHashrate
	if pct > 100 {
		return 100
	}
	return pct
}

// Report drains the period counters and returns the current snapshot the
// 300s reporter sends to the control plane, plus whether a hashrate_low
// notification should fire now. shouldNotifyLow is edge-triggered: true
// only on the first below-threshold report of a streak, matching S6's
// "exactly once per consecutive below-threshold interval" rather than
// once per report while the streak continues.
func (a *Accountant) Report(now time.Time) (accepted, rejected int64, hashrate, accuracy float64, shouldNotifyLow bool) {
	hashrate = a.CurrentHashrate(now)
	accuracy = a.Accuracy(hashrate)

	a.mu.Lock()
	accepted, rejected = a.periodAccepted, a.periodRejected
	a.periodAccepted, a.periodRejected = 0, 0
	wasBelow := a.belowThreshold
	isBelow := accuracy < LowAccuracyThreshold
	a.belowThreshold = isBelow
	a.mu.Unlock()

	shouldNotifyLow = isBelow && !wasBelow
	return accepted, rejected, hashrate, accuracy, shouldNotifyLow
}

// Totals returns the lifetime accepted/rejected counts.
func (a *Accountant) Totals() (accepted, rejected int64) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.totalAccepted, a.totalRejected
}

// Package metrics exposes this marketplace's operational counters and
// gauges to Prometheus: one registry per process (proxy or control
// plane), scraped over /metrics via promhttp.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry wraps a dedicated prometheus.Registry with the collectors
// this marketplace records, rather than the teacher's dynamically-keyed
// map-of-collectors — every metric this domain emits is known up front,
// so each gets a concrete field instead of a name string looked up at
// call time.
type Registry struct {
	reg *prometheus.Registry

	OrdersCreated     *prometheus.CounterVec
	OrdersTerminated  *prometheus.CounterVec
	EscrowLockedCtr   prometheus.Counter
	EscrowReleasedCtr *prometheus.CounterVec
	ActiveConnections prometheus.Gauge
	SharesSubmitted   *prometheus.CounterVec
	HashrateObserved  *prometheus.GaugeVec
}

// New builds a Registry with every collector registered and ready to
// record, labelled for the process that owns it ("proxy" or
// "controlplane").
func New(component string) *Registry {
	reg := prometheus.NewRegistry()

	constLabels := prometheus.Labels{"component": component}

	r := &Registry{
		reg: reg,
		OrdersCreated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "hashmarket_orders_created_total",
			Help:        "Orders created, by algorithm.",
			ConstLabels: constLabels,
		}, []string{"algorithm"}),
		OrdersTerminated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "hashmarket_orders_terminated_total",
			Help:        "Orders reaching a terminal state, by status and admin action.",
			ConstLabels: constLabels,
		}, []string{"status", "admin_action"}),
		EscrowLockedCtr: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "hashmarket_escrow_locked_total",
			Help:        "Count of successful LockEscrow calls.",
			ConstLabels: constLabels,
		}),
		EscrowReleasedCtr: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "hashmarket_escrow_released_total",
			Help:        "Count of ReleaseEscrow calls, by outcome.",
			ConstLabels: constLabels,
		}, []string{"outcome"}),
		ActiveConnections: prometheus.NewGauge(prometheus.GaugeOpts{
			Name:        "hashmarket_proxy_active_connections",
			Help:        "Currently connected seller rig sessions.",
			ConstLabels: constLabels,
		}),
		SharesSubmitted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "hashmarket_shares_submitted_total",
			Help:        "Shares submitted, by outcome (accepted/rejected/stale).",
			ConstLabels: constLabels,
		}, []string{"outcome"}),
		HashrateObserved: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name:        "hashmarket_worker_hashrate_hs",
			Help:        "Last-observed hashrate for a connected worker, in H/s.",
			ConstLabels: constLabels,
		}, []string{"worker_id"}),
	}

	reg.MustRegister(
		r.OrdersCreated, r.OrdersTerminated, r.EscrowLockedCtr, r.EscrowReleasedCtr,
		r.ActiveConnections, r.SharesSubmitted, r.HashrateObserved,
	)

	return r
}

// Handler returns the HTTP handler a server mounts at /metrics.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{})
}

// The methods below satisfy internal/stratum.Metrics, letting the relay
// engine report directly into this registry without stratum importing
// the prometheus client itself.

// ConnectionOpened records a new seller rig session.
func (r *Registry) ConnectionOpened() { r.ActiveConnections.Inc() }

// ConnectionClosed records a seller rig session ending.
func (r *Registry) ConnectionClosed() { r.ActiveConnections.Dec() }

// ShareRecorded records one submitted share by outcome
// ("accepted"/"rejected"/"stale").
func (r *Registry) ShareRecorded(outcome string) {
	r.SharesSubmitted.WithLabelValues(outcome).Inc()
}

// HashrateRecorded records the latest observed hashrate for a worker.
func (r *Registry) HashrateRecorded(workerID string, hashrateHS float64) {
	r.HashrateObserved.WithLabelValues(workerID).Set(hashrateHS)
}

// The methods below satisfy internal/orders.Metrics.

// OrderCreated records a new order, by algorithm.
func (r *Registry) OrderCreated(algorithm string) {
	r.OrdersCreated.WithLabelValues(algorithm).Inc()
}

// OrderTerminated records an order reaching a terminal state, by status
// and the admin action that settled it.
func (r *Registry) OrderTerminated(status, adminAction string) {
	r.OrdersTerminated.WithLabelValues(status, adminAction).Inc()
}

// The methods below satisfy internal/ledger.Metrics.

// EscrowLocked records a successful LockEscrow call.
func (r *Registry) EscrowLocked() {
	r.EscrowLockedCtr.Inc()
}

// EscrowReleased records a ReleaseEscrow call, by outcome shape
// ("full_payout"/"full_refund"/"partial").
func (r *Registry) EscrowReleased(outcome string) {
	r.EscrowReleasedCtr.WithLabelValues(outcome).Inc()
}

package controlplane

import (
	"time"

	"github.com/hashmarket/hashmarket-core/internal/orders"
	"github.com/hashmarket/hashmarket-core/internal/stratum"
)

// Wire payloads shared between Client (proxy side) and the gin handlers
// in internal/api/ingress_handlers.go (control-plane side). Kept here,
// not in internal/api, so a proxy binary can depend on this package
// alone without pulling in gin.

// orderLookupResponse mirrors stratum.OrderLookup over the wire.
type orderLookupResponse struct {
	OrderID         string               `json:"order_id"`
	Destination     orders.PoolDestination `json:"destination"`
	Algorithm       string               `json:"algorithm"`
	Hours           int                  `json:"hours"`
	Status          orders.Status        `json:"status"`
	OrderedHashrate float64              `json:"ordered_hashrate"`
}

func toWire(l stratum.OrderLookup) orderLookupResponse {
	return orderLookupResponse{
		OrderID:         l.OrderID,
		Destination:     l.Destination,
		Algorithm:       l.Algorithm,
		Hours:           l.Hours,
		Status:          l.Status,
		OrderedHashrate: l.OrderedHashrate,
	}
}

func (r orderLookupResponse) toDomain() stratum.OrderLookup {
	return stratum.OrderLookup{
		OrderID:         r.OrderID,
		Destination:     r.Destination,
		Algorithm:       r.Algorithm,
		Hours:           r.Hours,
		Status:          r.Status,
		OrderedHashrate: r.OrderedHashrate,
	}
}

type connectRequest struct {
	WorkerID  string `json:"worker_id"`
	RemoteIP  string `json:"remote_ip"`
	UserAgent string `json:"user_agent"`
}

type shareRequest struct {
	WorkerID   string    `json:"worker_id"`
	Outcome    string    `json:"outcome"`
	Difficulty float64   `json:"difficulty"`
	At         time.Time `json:"at"`
}

type hashrateRequest struct {
	WorkerID string  `json:"worker_id"`
	Hashrate float64 `json:"hashrate"`
	Accuracy float64 `json:"accuracy"`
	Accepted int64   `json:"accepted"`
	Rejected int64   `json:"rejected"`
	Low      bool    `json:"low"`
}

type disconnectRequest struct {
	WorkerID string `json:"worker_id"`
	Reason   string `json:"reason"`
}

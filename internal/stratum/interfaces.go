package stratum

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/hashmarket/hashmarket-core/internal/orders"
)

// =============================================================================
// DOMAIN INTERFACES
// Replaces the teacher's protocol-version/pool-authority ISP surface
// (job distribution, vardiff, V2 encryption, block templates) with the
// narrower seam this proxy actually needs: resolve a worker id to an
// order's destination pool, dial that pool, and report share/hashrate
// telemetry back to the control plane.
// =============================================================================

// ShareOutcome classifies a resolved submit for ShareRecorder/ControlPlane.
type ShareOutcome string

const (
	ShareAccepted ShareOutcome = "accepted"
	ShareRejected ShareOutcome = "rejected"
	ShareStale    ShareOutcome = "stale"
)

// OrderLookup is what the control plane returns for a worker id: enough
// to dial the real pool and know whether the order is still payable.
type OrderLookup struct {
	OrderID         string
	Destination     orders.PoolDestination
	Algorithm       string
	Hours           int
	Status          orders.Status
	OrderedHashrate float64 // the listing's promised H/s, for accuracy scoring
}

// ControlPlane is the proxy's view of the five ingress endpoints the
// control plane exposes (get_order_by_worker, connect, share, hashrate,
// disconnect). Implementations must treat every call as advisory: a
// failure here must never tear down a live relay, only get logged.
type ControlPlane interface {
	GetOrderByWorker(ctx context.Context, workerID string) (OrderLookup, error)
	Connect(ctx context.Context, workerID, remoteIP, userAgent string)
	Share(ctx context.Context, workerID string, outcome ShareOutcome, difficulty float64, at time.Time)
	Hashrate(ctx context.Context, workerID string, hashrate, accuracy float64, accepted, rejected int64, low bool)
	Disconnect(ctx context.Context, workerID, reason string)
}

// PoolDialer opens a connection to an order's destination pool.
type PoolDialer interface {
	DialPool(ctx context.Context, dest orders.PoolDestination) (net.Conn, error)
}

// NetPoolDialer dials the real network, trying the primary host first and
// falling back to the backup host if the primary refuses or times out.
type NetPoolDialer struct {
	DialTimeout time.Duration
}

// DialPool implements PoolDialer.
func (d NetPoolDialer) DialPool(ctx context.Context, dest orders.PoolDestination) (net.Conn, error) {
	timeout := d.DialTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	dialer := net.Dialer{Timeout: timeout}

	primary := fmt.Sprintf("%s:%d", dest.Host, dest.Port)
	conn, err := dialer.DialContext(ctx, "tcp", primary)
	if err == nil {
		return conn, nil
	}
	if dest.BackupHost == "" {
		return nil, fmt.Errorf("dial pool %s: %w", primary, err)
	}

	backup := fmt.Sprintf("%s:%d", dest.BackupHost, dest.BackupPort)
	conn, backupErr := dialer.DialContext(ctx, "tcp", backup)
	if backupErr != nil {
		return nil, fmt.Errorf("dial pool %s: %w (backup %s: %v)", primary, err, backup, backupErr)
	}
	return conn, nil
}

// ShareRecorder persists the append-only share log a dispute review reads
// from (spec.md §4.7).
type ShareRecorder interface {
	RecordShare(ctx context.Context, workerID string, outcome ShareOutcome, difficulty float64, at time.Time)
}

// Package controlplane implements the five control-plane ingress
// endpoints a regional proxy calls against an order's worker id
// (spec.md §4.6): order lookup, connect, share, hashrate, disconnect.
// Service holds the domain logic the control-plane binary serves over
// HTTP (internal/api/ingress_handlers.go); Client is the HTTP caller a
// proxy process holds, implementing stratum.ControlPlane.
package controlplane

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/hashmarket/hashmarket-core/internal/orders"
	"github.com/hashmarket/hashmarket-core/internal/stratum"
)

// Service is the in-process implementation of the five ingress
// operations, driven directly by internal/orders.Machine/Repository. The
// control-plane binary wraps it with gin handlers; nothing about it
// depends on HTTP.
type Service struct {
	repo    orders.Repository
	machine *orders.Machine
	logger  *log.Logger
}

// NewService builds a Service.
func NewService(repo orders.Repository, machine *orders.Machine, logger *log.Logger) *Service {
	if logger == nil {
		logger = log.Default()
	}
	return &Service{repo: repo, machine: machine, logger: logger}
}

func workerIDToOrderCode(workerID string) string {
	code, _, found := strings.Cut(workerID, ".")
	if !found {
		return workerID
	}
	return code
}

// OrderByWorker resolves a worker id to the order it rents, for the
// proxy's handshake-time authorization check. A worker id carries an
// optional ".suffix" (rig/worker label) the proxy strips before lookup.
func (s *Service) OrderByWorker(ctx context.Context, workerID string) (stratum.OrderLookup, error) {
	order, err := s.repo.GetOrderByCode(ctx, workerIDToOrderCode(workerID))
	if err != nil {
		return stratum.OrderLookup{}, err
	}
	if order.Status != orders.StatusPaid && order.Status != orders.StatusActive {
		return stratum.OrderLookup{}, orders.ErrOrderNotFound
	}
	return stratum.OrderLookup{
		OrderID:         order.OrderCode,
		Destination:     order.PoolDestination,
		Algorithm:       order.Algorithm,
		Hours:           order.Hours,
		Status:          order.Status,
		OrderedHashrate: order.Hashrate,
	}, nil
}

// Connect implements the paid→active transition (R1) the first proxy
// connect event for a worker triggers. Idempotent: a reconnect on an
// already-active order is a no-op (Machine.HandleConnect handles this).
func (s *Service) Connect(ctx context.Context, workerID, remoteIP, userAgent string) error {
	_, err := s.machine.HandleConnect(ctx, workerIDToOrderCode(workerID))
	return err
}

// Share records one resolved share outcome against the order's running
// telemetry counters (spec.md §4.5). Share counts are advisory running
// totals maintained here; the authoritative append-only record lives in
// internal/shares, written independently by the proxy's batched writer.
func (s *Service) Share(ctx context.Context, workerID string, outcome stratum.ShareOutcome, difficulty float64, at time.Time) error {
	order, err := s.repo.GetOrderByCode(ctx, workerIDToOrderCode(workerID))
	if err != nil {
		return err
	}

	switch outcome {
	case stratum.ShareAccepted:
		order.SharesAccepted++
	default:
		order.SharesRejected++
	}
	order.LastShareAt = &at

	return s.repo.UpdateOrder(ctx, order)
}

// Hashrate applies the proxy's periodic hashrate report onto the order's
// live telemetry snapshot (spec.md §3: "the proxy is the sole writer of
// ... share telemetry").
func (s *Service) Hashrate(ctx context.Context, workerID string, hashrate, accuracy float64, accepted, rejected int64, low bool) error {
	order, err := s.repo.GetOrderByCode(ctx, workerIDToOrderCode(workerID))
	if err != nil {
		return err
	}

	order.CurrentHashrate = hashrate
	order.Accuracy = accuracy
	if order.AvgHashrate == 0 {
		order.AvgHashrate = hashrate
	} else {
		order.AvgHashrate = (order.AvgHashrate + hashrate) / 2
	}

	if low {
		s.logger.Printf("controlplane: order %s reporting low hashrate accuracy=%.2f", order.OrderCode, accuracy)
	}

	return s.repo.UpdateOrder(ctx, order)
}

// Disconnect is an advisory signal only (spec.md §4.6/§7): a session
// dropping does not by itself move the order out of "active" since the
// seller's rig may reconnect. It is logged for operational visibility
// and otherwise a no-op against order state.
func (s *Service) Disconnect(ctx context.Context, workerID, reason string) error {
	s.logger.Printf("controlplane: worker %s disconnected: %s", workerID, reason)
	return nil
}

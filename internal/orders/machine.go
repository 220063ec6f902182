package orders

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/hashmarket/hashmarket-core/internal/money"
	"github.com/hashmarket/hashmarket-core/internal/validation"
)

// Metrics receives counts of orders created and orders reaching a
// terminal state. Satisfied by *internal/metrics.Registry; nil is a
// valid Machine.metrics (every call site guards it).
type Metrics interface {
	OrderCreated(algorithm string)
	OrderTerminated(status, adminAction string)
}

// Machine drives the order lifecycle diagram in spec.md §4.2. It is the
// sole writer of Order.Status; every terminal transition is funneled
// through escrow.ReleaseEscrow exactly once (P2).
type Machine struct {
	repo    Repository
	escrow  EscrowEngine
	now     func() time.Time
	metrics Metrics
}

// NewMachine builds a Machine. now defaults to time.Now; tests may
// override it via WithClock.
func NewMachine(repo Repository, escrow EscrowEngine) *Machine {
	return &Machine{repo: repo, escrow: escrow, now: time.Now}
}

// WithClock overrides the machine's time source, for deterministic tests.
func (m *Machine) WithClock(now func() time.Time) *Machine {
	m.now = now
	return m
}

// WithMetrics attaches a Metrics sink the machine reports order
// creation and termination events to.
func (m *Machine) WithMetrics(metrics Metrics) *Machine {
	m.metrics = metrics
	return m
}

const maxOrderCodeAttempts = 5

func (m *Machine) freshOrderCode(ctx context.Context) (string, error) {
	for i := 0; i < maxOrderCodeAttempts; i++ {
		code, err := GenerateOrderCode()
		if err != nil {
			return "", err
		}
		exists, err := m.repo.OrderCodeExists(ctx, code)
		if err != nil {
			return "", err
		}
		if !exists {
			return code, nil
		}
	}
	return "", fmt.Errorf("could not allocate a unique order code after %d attempts", maxOrderCodeAttempts)
}

// Create validates and inserts a new order in state "paid", locking the
// buyer's escrow for total_paid. On any validation or persistence
// failure, nothing is left behind: if locking escrow succeeds but the
// order cannot be persisted, the lock is compensated with an immediate
// full refund so no funds are stranded in escrow for an order that does
// not exist.
func (m *Machine) Create(ctx context.Context, params CreateParams) (*Order, error) {
	listing := params.Listing

	if listing.Status != ListingActive {
		return nil, ErrListingNotActive
	}
	if params.BuyerID == listing.SellerID {
		return nil, ErrBuyerIsSeller
	}
	if params.Hours < listing.MinHours || params.Hours > listing.MaxHours {
		return nil, ErrHoursOutOfRange
	}
	if params.BuyerBanned {
		return nil, ErrBuyerBanned
	}
	if err := validatePoolDestination(params.Destination); err != nil {
		return nil, err
	}

	subtotal := listing.PricePerHour.Mul(decimal.NewFromInt(int64(params.Hours)))
	commission := money.Commission(subtotal)
	total := subtotal.Add(commission)

	code, err := m.freshOrderCode(ctx)
	if err != nil {
		return nil, err
	}

	orderID := uuid.New()
	now := m.now()

	if err := m.escrow.LockEscrow(ctx, params.BuyerID, total); err != nil {
		return nil, err
	}

	order := &Order{
		ID:              orderID,
		OrderCode:       code,
		BuyerID:         params.BuyerID,
		SellerID:        listing.SellerID,
		ListingID:       listing.ID,
		Algorithm:       listing.Algorithm,
		Hashrate:        listing.HashrateValue,
		Hours:           params.Hours,
		Subtotal:        subtotal,
		Commission:      commission,
		TotalPaid:       total,
		PoolDestination: params.Destination,
		PaidAt:          now,
		Status:          StatusPaid,
	}

	if err := m.repo.InsertOrder(ctx, order); err != nil {
		m.compensateFailedCreate(ctx, *order)
		return nil, fmt.Errorf("persist order: %w", err)
	}

	if err := m.repo.SetListingStatus(ctx, listing.ID, ListingRented); err != nil {
		m.compensateFailedCreate(ctx, *order)
		return nil, fmt.Errorf("mark listing rented: %w", err)
	}

	if m.metrics != nil {
		m.metrics.OrderCreated(order.Algorithm)
	}

	return order, nil
}

// validatePoolDestination rejects a buyer-supplied destination before
// escrow is ever locked against it; these fields end up rewritten
// directly onto the wire toward a real mining pool (P4) and persisted
// verbatim, so they get the same content check usernames and passwords
// get in internal/auth.
func validatePoolDestination(d PoolDestination) error {
	fields := map[string]string{
		"host":     d.Host,
		"wallet":   d.Wallet,
		"worker":   d.Worker,
		"password": d.Password,
	}
	for name, value := range fields {
		if err := validation.ValidatePoolDestinationField(name, value); err != nil {
			return fmt.Errorf("%w: %s: %v", ErrInvalidPoolDestination, name, err)
		}
	}
	return nil
}

func (m *Machine) compensateFailedCreate(ctx context.Context, order Order) {
	// Best-effort: a failed Create must not strand funds in escrow for an
	// order that will never exist. Errors here are not surfaced to the
	// caller, who already has the original persistence error; a future
	// reconciliation job is expected to catch anything this misses.
	_, _ = m.escrow.ReleaseEscrow(ctx, order.ID, order.BuyerID, order.SellerID,
		order.TotalPaid, money.Zero, order.TotalPaid, money.Zero)
}

// HandleConnect implements the paid→active transition (R1): it is
// triggered by the first proxy connect event for the order's worker id
// and is idempotent on repeated connects.
func (m *Machine) HandleConnect(ctx context.Context, orderCode string) (*Order, error) {
	order, err := m.repo.GetOrderByCode(ctx, orderCode)
	if err != nil {
		return nil, err
	}
	if order.Status != StatusPaid && order.Status != StatusActive {
		return nil, fmt.Errorf("%w: connect on order in status %s", ErrInvalidTransition, order.Status)
	}
	if order.Status == StatusActive {
		return order, nil
	}

	now := m.now()
	expectedEnd := now.Add(time.Duration(order.Hours) * time.Hour)
	order.Status = StatusActive
	order.StartedAt = &now
	order.ExpectedEndAt = &expectedEnd

	if err := m.repo.UpdateOrder(ctx, order); err != nil {
		return nil, fmt.Errorf("activate order: %w", err)
	}
	return order, nil
}

// Confirm implements the active→delivering transition triggered by the
// buyer's explicit confirmation.
func (m *Machine) Confirm(ctx context.Context, orderID uuid.UUID) (*Order, error) {
	return m.enterDelivering(ctx, orderID)
}

// Expire implements the active→delivering transition triggered
// automatically once now >= expected_end_at. A simultaneous dispute wins
// over expiry (tie-break rule in spec.md §4.2): if a dispute is already
// open on the order, Expire is a no-op that returns the order unchanged.
func (m *Machine) Expire(ctx context.Context, orderID uuid.UUID) (*Order, error) {
	order, err := m.repo.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.Status == StatusDispute {
		return order, nil
	}
	if order.ExpectedEndAt == nil || m.now().Before(*order.ExpectedEndAt) {
		return order, nil
	}
	return m.enterDelivering(ctx, orderID)
}

func (m *Machine) enterDelivering(ctx context.Context, orderID uuid.UUID) (*Order, error) {
	order, err := m.repo.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.Status == StatusDispute {
		// Tie-break: dispute wins over a concurrent confirm/expire.
		return order, nil
	}
	if order.Status != StatusActive {
		if order.IsTerminal() {
			return nil, ErrOrderTerminal
		}
		return nil, fmt.Errorf("%w: expected active, got %s", ErrInvalidTransition, order.Status)
	}

	now := m.now()
	order.Status = StatusDelivering
	order.ReviewAt = &now
	if err := m.repo.UpdateOrder(ctx, order); err != nil {
		return nil, fmt.Errorf("move order to delivering: %w", err)
	}
	return order, nil
}

// OpenDispute implements the active|delivering→dispute transition. A
// dispute opened after the order has already reached a terminal state is
// rejected (ErrOrderTerminal).
func (m *Machine) OpenDispute(ctx context.Context, orderID, openerID uuid.UUID, reason DisputeReason) (*Dispute, error) {
	order, err := m.repo.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.IsTerminal() {
		return nil, ErrOrderTerminal
	}
	if order.Status != StatusActive && order.Status != StatusDelivering {
		return nil, fmt.Errorf("%w: dispute requires active or delivering, got %s", ErrInvalidTransition, order.Status)
	}

	order.Status = StatusDispute
	if err := m.repo.UpdateOrder(ctx, order); err != nil {
		return nil, fmt.Errorf("move order to dispute: %w", err)
	}

	dispute := &Dispute{
		ID:                uuid.New(),
		OrderID:           orderID,
		OpenerID:          openerID,
		Reason:            reason,
		TelemetrySnapshot: order.Telemetry,
		OpenedAt:          m.now(),
	}
	if err := m.repo.InsertDispute(ctx, dispute); err != nil {
		return nil, fmt.Errorf("record dispute: %w", err)
	}
	return dispute, nil
}

// AdminSettle implements the dispute|delivering→completed|cancelled
// transition (§4.2's "only by admin action"). It is idempotent: a
// repeated call on an already-settled order returns the order unchanged
// along with the cached ledger outcome (P2), rather than re-applying the
// action.
func (m *Machine) AdminSettle(ctx context.Context, orderID uuid.UUID, action AdminAction, partialPercent int) (*Order, error) {
	order, err := m.repo.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.IsTerminal() {
		return order, nil
	}
	if order.Status != StatusDispute && order.Status != StatusDelivering {
		return nil, fmt.Errorf("%w: settlement requires dispute or delivering, got %s", ErrDisputeInvalidState, order.Status)
	}

	var payout, refund, commission decimal.Decimal
	var finalStatus Status

	switch action {
	case ActionApprove:
		payout = order.Subtotal
		refund = order.TotalPaid.Sub(payout)
		commission = order.Commission
		finalStatus = StatusCompleted
	case ActionReject:
		payout = money.Zero
		refund = order.TotalPaid
		commission = money.Zero
		finalStatus = StatusCancelled
	case ActionPartial:
		pct := decimal.NewFromInt(int64(partialPercent)).Div(decimal.NewFromInt(100))
		payout = money.Round2(order.Subtotal.Mul(pct))
		refund = order.TotalPaid.Sub(payout)
		commission = money.Commission(payout)
		finalStatus = StatusCompleted
	default:
		return nil, fmt.Errorf("%w: unknown admin action %q", ErrInvalidTransition, action)
	}

	outcome, err := m.escrow.ReleaseEscrow(ctx, order.ID, order.BuyerID, order.SellerID, order.TotalPaid, payout, refund, commission)
	if err != nil {
		return nil, err
	}

	now := m.now()
	order.Status = finalStatus
	order.PayoutAmount = outcome.Payout
	order.RefundAmount = outcome.Refund
	order.AdminAction = action
	if finalStatus == StatusCompleted {
		order.CompletedAt = &now
	} else {
		order.CancelledAt = &now
	}

	if err := m.repo.UpdateOrder(ctx, order); err != nil {
		return nil, fmt.Errorf("persist settlement: %w", err)
	}
	if err := m.repo.SetListingStatus(ctx, order.ListingID, ListingActive); err != nil {
		return nil, fmt.Errorf("reopen listing: %w", err)
	}

	if dispute, err := m.repo.GetOpenDispute(ctx, order.ID); err == nil && dispute != nil && dispute.ResolvedAt == nil {
		resolved := now
		dispute.ResolvedAt = &resolved
		dispute.ResolverID = nil
		switch action {
		case ActionApprove:
			dispute.Resolution = ResolutionFullPayout
		case ActionReject:
			dispute.Resolution = ResolutionCancelled
		case ActionPartial:
			dispute.Resolution = ResolutionPartial
		}
		_ = m.repo.UpdateDispute(ctx, dispute)
	}

	if m.metrics != nil {
		m.metrics.OrderTerminated(string(finalStatus), string(action))
	}

	return order, nil
}

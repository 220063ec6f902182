package orders

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hashmarket/hashmarket-core/internal/ledger"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

type testRig struct {
	orders  *MemoryRepository
	ledgers *ledger.MemoryRepository
	escrow  *ledger.Service
	machine *Machine
	clock   time.Time
}

func newTestRig() *testRig {
	orderRepo := NewMemoryRepository()
	ledgerRepo := ledger.NewMemoryRepository()
	escrow := ledger.NewService(ledgerRepo, ledger.NoopLocker{})
	rig := &testRig{
		orders:  orderRepo,
		ledgers: ledgerRepo,
		escrow:  escrow,
		clock:   time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	rig.machine = NewMachine(orderRepo, escrow).WithClock(func() time.Time { return rig.clock })
	return rig
}

func (r *testRig) seedListing(sellerID uuid.UUID) Listing {
	l := Listing{
		ID:           uuid.New(),
		SellerID:     sellerID,
		Algorithm:    "sha256",
		PricePerHour: dec("1.00"),
		MinHours:     1,
		MaxHours:     24,
		Status:       ListingActive,
	}
	r.orders.SeedListing(l)
	return l
}

// S1-shaped happy path through Create.
func TestMachine_Create_LocksEscrowAndFreezesPriceBreakdown(t *testing.T) {
	rig := newTestRig()
	ctx := context.Background()
	seller := uuid.New()
	buyer := uuid.New()
	listing := rig.seedListing(seller)
	rig.ledgers.Seed(ledger.Account{UserID: buyer, Available: dec("100.00")})

	order, err := rig.machine.Create(ctx, CreateParams{Listing: listing, BuyerID: buyer, Hours: 10})
	require.NoError(t, err)
	assert.Equal(t, StatusPaid, order.Status)
	assert.True(t, order.Subtotal.Equal(dec("10.00")))
	assert.True(t, order.Commission.Equal(dec("0.30")))
	assert.True(t, order.TotalPaid.Equal(dec("10.30")))

	buyerAcct, _ := rig.ledgers.GetAccount(ctx, buyer)
	assert.True(t, buyerAcct.Available.Equal(dec("89.70")))
	assert.True(t, buyerAcct.Escrow.Equal(dec("10.30")))

	l, _ := rig.orders.GetListing(ctx, listing.ID)
	assert.Equal(t, ListingRented, l.Status)
}

// B1: boundary hours accepted at min and max, rejected outside.
func TestMachine_Create_HoursBoundary(t *testing.T) {
	rig := newTestRig()
	ctx := context.Background()
	seller := uuid.New()
	buyer := uuid.New()
	listing := rig.seedListing(seller)
	rig.ledgers.Seed(ledger.Account{UserID: buyer, Available: dec("1000.00")})

	_, err := rig.machine.Create(ctx, CreateParams{Listing: listing, BuyerID: buyer, Hours: listing.MinHours})
	assert.NoError(t, err)

	listing2 := rig.seedListing(seller)
	_, err = rig.machine.Create(ctx, CreateParams{Listing: listing2, BuyerID: buyer, Hours: listing2.MaxHours})
	assert.NoError(t, err)

	listing3 := rig.seedListing(seller)
	_, err = rig.machine.Create(ctx, CreateParams{Listing: listing3, BuyerID: buyer, Hours: listing3.MaxHours + 1})
	assert.ErrorIs(t, err, ErrHoursOutOfRange)

	listing4 := rig.seedListing(seller)
	_, err = rig.machine.Create(ctx, CreateParams{Listing: listing4, BuyerID: buyer, Hours: listing4.MinHours - 1})
	assert.ErrorIs(t, err, ErrHoursOutOfRange)
}

func TestMachine_Create_RejectsSellerBuyingOwnListing(t *testing.T) {
	rig := newTestRig()
	ctx := context.Background()
	seller := uuid.New()
	listing := rig.seedListing(seller)
	rig.ledgers.Seed(ledger.Account{UserID: seller, Available: dec("100.00")})

	_, err := rig.machine.Create(ctx, CreateParams{Listing: listing, BuyerID: seller, Hours: 5})
	assert.ErrorIs(t, err, ErrBuyerIsSeller)
}

// R1: connect then identical connect yields a single paid->active
// transition; expected_end_at is set only once.
func TestMachine_HandleConnect_IdempotentOnRepeatedConnect(t *testing.T) {
	rig := newTestRig()
	ctx := context.Background()
	seller, buyer := uuid.New(), uuid.New()
	listing := rig.seedListing(seller)
	rig.ledgers.Seed(ledger.Account{UserID: buyer, Available: dec("100.00")})
	order, err := rig.machine.Create(ctx, CreateParams{Listing: listing, BuyerID: buyer, Hours: 10})
	require.NoError(t, err)

	first, err := rig.machine.HandleConnect(ctx, order.OrderCode)
	require.NoError(t, err)
	assert.Equal(t, StatusActive, first.Status)
	firstExpectedEnd := *first.ExpectedEndAt

	rig.clock = rig.clock.Add(time.Hour)
	second, err := rig.machine.HandleConnect(ctx, order.OrderCode)
	require.NoError(t, err)
	assert.Equal(t, StatusActive, second.Status)
	assert.Equal(t, firstExpectedEnd, *second.ExpectedEndAt, "expected_end_at must not move on a repeated connect")
}

// Tie-break: a simultaneous expire and open dispute resolves to dispute.
func TestMachine_Expire_LosesToOpenDispute(t *testing.T) {
	rig := newTestRig()
	ctx := context.Background()
	seller, buyer := uuid.New(), uuid.New()
	listing := rig.seedListing(seller)
	rig.ledgers.Seed(ledger.Account{UserID: buyer, Available: dec("100.00")})
	order, err := rig.machine.Create(ctx, CreateParams{Listing: listing, BuyerID: buyer, Hours: 10})
	require.NoError(t, err)
	_, err = rig.machine.HandleConnect(ctx, order.OrderCode)
	require.NoError(t, err)

	_, err = rig.machine.OpenDispute(ctx, order.ID, buyer, ReasonLowHashrate)
	require.NoError(t, err)

	rig.clock = rig.clock.Add(11 * time.Hour)
	result, err := rig.machine.Expire(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusDispute, result.Status, "dispute must win over a concurrent expire")
}

// B2: partial(0%) produces the same monetary outcome as reject (full
// refund, no payout, no commission); partial(100%) produces the same
// monetary outcome as approve. The admin_action field still records the
// literal choice the admin made.
func TestMachine_AdminSettle_PartialBoundariesMatchRejectAndApprove(t *testing.T) {
	rig := newTestRig()
	ctx := context.Background()

	settleVia := func(action AdminAction, pct int) *Order {
		seller, buyer := uuid.New(), uuid.New()
		listing := rig.seedListing(seller)
		rig.ledgers.Seed(ledger.Account{UserID: buyer, Available: dec("100.00")})
		order, err := rig.machine.Create(ctx, CreateParams{Listing: listing, BuyerID: buyer, Hours: 10})
		require.NoError(t, err)
		_, err = rig.machine.HandleConnect(ctx, order.OrderCode)
		require.NoError(t, err)
		_, err = rig.machine.Confirm(ctx, order.ID)
		require.NoError(t, err)
		settled, err := rig.machine.AdminSettle(ctx, order.ID, action, pct)
		require.NoError(t, err)
		return settled
	}

	rejected := settleVia(ActionReject, 0)
	partialZero := settleVia(ActionPartial, 0)
	assert.True(t, partialZero.PayoutAmount.Equal(rejected.PayoutAmount))
	assert.True(t, partialZero.RefundAmount.Equal(rejected.RefundAmount))
	assert.Equal(t, ActionPartial, partialZero.AdminAction)
	assert.Equal(t, ActionReject, rejected.AdminAction)

	approved := settleVia(ActionApprove, 0)
	partialFull := settleVia(ActionPartial, 100)
	assert.True(t, partialFull.PayoutAmount.Equal(approved.PayoutAmount))
	assert.True(t, partialFull.RefundAmount.Equal(approved.RefundAmount))
	assert.Equal(t, ActionPartial, partialFull.AdminAction)
	assert.Equal(t, ActionApprove, approved.AdminAction)
}

// P2: a repeated admin action on a completed order is a no-op that
// returns the prior outcome.
func TestMachine_AdminSettle_IdempotentOnTerminalOrder(t *testing.T) {
	rig := newTestRig()
	ctx := context.Background()
	seller, buyer := uuid.New(), uuid.New()
	listing := rig.seedListing(seller)
	rig.ledgers.Seed(ledger.Account{UserID: buyer, Available: dec("100.00")})
	order, err := rig.machine.Create(ctx, CreateParams{Listing: listing, BuyerID: buyer, Hours: 10})
	require.NoError(t, err)
	_, err = rig.machine.HandleConnect(ctx, order.OrderCode)
	require.NoError(t, err)
	_, err = rig.machine.Confirm(ctx, order.ID)
	require.NoError(t, err)

	first, err := rig.machine.AdminSettle(ctx, order.ID, ActionApprove, 0)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, first.Status)

	second, err := rig.machine.AdminSettle(ctx, order.ID, ActionReject, 0)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, second.Status, "a repeated admin action must not re-settle a terminal order")
	assert.True(t, second.PayoutAmount.Equal(first.PayoutAmount))
}

func TestMachine_OpenDispute_RejectedOnTerminalOrder(t *testing.T) {
	rig := newTestRig()
	ctx := context.Background()
	seller, buyer := uuid.New(), uuid.New()
	listing := rig.seedListing(seller)
	rig.ledgers.Seed(ledger.Account{UserID: buyer, Available: dec("100.00")})
	order, err := rig.machine.Create(ctx, CreateParams{Listing: listing, BuyerID: buyer, Hours: 10})
	require.NoError(t, err)
	_, err = rig.machine.HandleConnect(ctx, order.OrderCode)
	require.NoError(t, err)
	_, err = rig.machine.Confirm(ctx, order.ID)
	require.NoError(t, err)
	_, err = rig.machine.AdminSettle(ctx, order.ID, ActionApprove, 0)
	require.NoError(t, err)

	_, err = rig.machine.OpenDispute(ctx, order.ID, buyer, ReasonOffline)
	assert.ErrorIs(t, err, ErrOrderTerminal)
}

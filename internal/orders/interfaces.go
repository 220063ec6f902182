package orders

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/hashmarket/hashmarket-core/internal/ledger"
)

// Repository persists listings, orders, and disputes. Its methods do not
// share a transaction with the EscrowEngine calls the Machine pairs them
// with: Create locks escrow first, then inserts the order and flips the
// listing status as separate calls, and refunds the escrow in full if
// either of those fails.
type Repository interface {
	GetListing(ctx context.Context, id uuid.UUID) (*Listing, error)
	SetListingStatus(ctx context.Context, id uuid.UUID, status ListingStatus) error

	InsertOrder(ctx context.Context, order *Order) error
	GetOrder(ctx context.Context, id uuid.UUID) (*Order, error)
	GetOrderByCode(ctx context.Context, code string) (*Order, error)
	OrderCodeExists(ctx context.Context, code string) (bool, error)
	UpdateOrder(ctx context.Context, order *Order) error

	// ListExpiringActive returns every active order whose expected_end_at
	// has passed asOf, for ReviewQueue's polling loop (spec.md §4.7).
	ListExpiringActive(ctx context.Context, asOf time.Time) ([]*Order, error)

	InsertDispute(ctx context.Context, dispute *Dispute) error
	GetOpenDispute(ctx context.Context, orderID uuid.UUID) (*Dispute, error)
	UpdateDispute(ctx context.Context, dispute *Dispute) error

	// ListOpenDisputes returns every unresolved dispute, for the admin
	// dispute queue.
	ListOpenDisputes(ctx context.Context) ([]*Dispute, error)
}

// EscrowEngine is the subset of ledger.Service the order machine drives:
// Create calls LockEscrow, every terminal transition calls ReleaseEscrow
// exactly once (spec.md §4.7, P2). Declared as an interface (ISP) so
// Machine can be unit tested against ledger.NewService(ledger.NewMemoryRepository(), ...)
// or a narrower fake.
type EscrowEngine interface {
	LockEscrow(ctx context.Context, userID uuid.UUID, amount decimal.Decimal) error
	ReleaseEscrow(ctx context.Context, orderID, buyerID, sellerID uuid.UUID, totalPaid, payout, refund, commission decimal.Decimal) (*ledger.ReleaseOutcome, error)
}

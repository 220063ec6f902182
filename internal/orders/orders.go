// Package orders implements the order lifecycle state machine (spec.md
// §4.2): listing → paid order → active rental → delivering → terminal
// settlement, with dispute and admin-adjudication branches. The order
// machine is the sole writer of Order.Status; every terminal transition
// is funneled through the ledger's ReleaseEscrow exactly once.
package orders

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ListingStatus is the lifecycle of a seller's advertised rig.
type ListingStatus string

const (
	ListingActive  ListingStatus = "active"
	ListingRented  ListingStatus = "rented"
	ListingPaused  ListingStatus = "paused"
	ListingRemoved ListingStatus = "removed"
)

// Listing is a seller's advertised hashpower offer.
type Listing struct {
	ID               uuid.UUID       `db:"id"`
	SellerID         uuid.UUID       `db:"seller_id"`
	Algorithm        string          `db:"algorithm"`
	HashrateValue    float64         `db:"hashrate_value"`
	HashrateUnit     string          `db:"hashrate_unit"`
	PricePerHour     decimal.Decimal `db:"price_per_hour"`
	MinHours         int             `db:"min_hours"`
	MaxHours         int             `db:"max_hours"`
	ProxyRegion      string          `db:"proxy_region"`
	Status           ListingStatus   `db:"status"`
	CreatedAt        time.Time       `db:"created_at"`
	UpdatedAt        time.Time       `db:"updated_at"`
}

// Status is a position in the order lifecycle diagram (spec.md §4.2).
type Status string

const (
	StatusPaid       Status = "paid"
	StatusActive     Status = "active"
	StatusDelivering Status = "delivering"
	StatusDispute    Status = "dispute"
	StatusCompleted  Status = "completed"
	StatusCancelled  Status = "cancelled"
)

// IsTerminal reports whether s is a settled, immutable state.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// AdminAction records which of approve/reject/partial(p%) settled a
// dispute or delivering order, even when two choices produce the same
// numeric outcome (boundary case B2).
type AdminAction string

const (
	ActionApprove AdminAction = "approve"
	ActionReject  AdminAction = "reject"
	ActionPartial AdminAction = "partial"
)

// PoolDestination is the real mining pool an order's rig is pointed at.
// Never sent to the buyer's rig in full; the proxy substitutes these
// credentials onto the wire (P4).
type PoolDestination struct {
	Host        string `db:"pool_host"`
	Port        int    `db:"pool_port"`
	Wallet      string `db:"pool_wallet"`
	Worker      string `db:"pool_worker"`
	Password    string `db:"pool_password"`
	BackupHost  string `db:"pool_backup_host"`
	BackupPort  int    `db:"pool_backup_port"`
}

// Telemetry is the live delivery snapshot the proxy and hashrate
// accountant keep current on an order (spec.md §3, ownership: "the proxy
// is the sole writer of ... share telemetry").
type Telemetry struct {
	CurrentHashrate float64    `db:"current_hashrate"`
	AvgHashrate     float64    `db:"avg_hashrate"`
	Accuracy        float64    `db:"accuracy"`
	SharesAccepted  int64      `db:"shares_accepted"`
	SharesRejected  int64      `db:"shares_rejected"`
	LastShareAt     *time.Time `db:"last_share_at"`
}

// Settlement is the admin-decided outcome recorded at terminal state.
type Settlement struct {
	PayoutAmount decimal.Decimal `db:"payout_amount"`
	RefundAmount decimal.Decimal `db:"refund_amount"`
	AdminAction  AdminAction     `db:"admin_action"`
}

// Order is one rental of a Listing's hashpower.
type Order struct {
	ID          uuid.UUID `db:"id"`
	OrderCode   string    `db:"order_code"`
	BuyerID     uuid.UUID `db:"buyer_id"`
	SellerID    uuid.UUID `db:"seller_id"`
	ListingID   uuid.UUID `db:"listing_id"`
	Algorithm   string    `db:"algorithm"`
	Hashrate    float64   `db:"ordered_hashrate"`
	Hours       int       `db:"hours"`

	Subtotal   decimal.Decimal `db:"subtotal"`
	Commission decimal.Decimal `db:"commission"`
	TotalPaid  decimal.Decimal `db:"total_paid"`

	PoolDestination
	ProxyEndpoint string `db:"proxy_endpoint"`

	Telemetry

	PaidAt        time.Time  `db:"paid_at"`
	StartedAt     *time.Time `db:"started_at"`
	ExpectedEndAt *time.Time `db:"expected_end_at"`
	ReviewAt      *time.Time `db:"review_at"`
	CompletedAt   *time.Time `db:"completed_at"`
	CancelledAt   *time.Time `db:"cancelled_at"`

	Status Status `db:"status"`

	Settlement
}

// DisputeReason enumerates why a buyer or seller opened a dispute.
type DisputeReason string

const (
	ReasonLowHashrate DisputeReason = "low_hashrate"
	ReasonOffline     DisputeReason = "offline"
	ReasonWrongPool   DisputeReason = "wrong_pool"
	ReasonWrongWallet DisputeReason = "wrong_wallet"
	ReasonOther       DisputeReason = "other"
)

// DisputeResolution is the shape of the settlement an admin applies.
type DisputeResolution string

const (
	ResolutionFullRefund DisputeResolution = "full_refund"
	ResolutionFullPayout DisputeResolution = "full_payout"
	ResolutionPartial    DisputeResolution = "partial"
	ResolutionCancelled  DisputeResolution = "cancelled"
)

// Dispute captures the state of an order at the moment either party
// escalated it.
type Dispute struct {
	ID                 uuid.UUID         `db:"id"`
	OrderID            uuid.UUID         `db:"order_id"`
	OpenerID           uuid.UUID         `db:"opener_id"`
	Reason             DisputeReason     `db:"reason"`
	TelemetrySnapshot  Telemetry         `db:"-"`
	Resolution         DisputeResolution `db:"resolution"`
	ResolverID         *uuid.UUID        `db:"resolver_id"`
	OpenedAt           time.Time         `db:"opened_at"`
	ResolvedAt         *time.Time        `db:"resolved_at"`
}

// CreateParams is the input to Machine.Create.
type CreateParams struct {
	Listing     Listing
	BuyerID     uuid.UUID
	Hours       int
	Destination PoolDestination
	BuyerBanned bool
}

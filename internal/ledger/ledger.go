// Package ledger implements the escrow and balance engine: every user's
// balance triple (available, escrow, pending) plus the append-only
// transaction log that justifies each mutation. It exposes four atomic
// primitives — LockEscrow, ReleaseEscrow, CreditDeposit, DebitWithdraw —
// and nothing else is permitted to write a balance field.
package ledger

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TransactionKind tags a row in the append-only transaction log.
type TransactionKind string

const (
	KindEscrowLock TransactionKind = "escrow_lock"
	KindPayout     TransactionKind = "payout"
	KindRefund     TransactionKind = "refund"
	KindCommission TransactionKind = "commission"
	KindDeposit    TransactionKind = "deposit"
	KindWithdraw   TransactionKind = "withdraw"
)

// WithdrawStatus is the lifecycle state of a debit_withdraw primitive's
// resulting ledger row.
type WithdrawStatus string

const (
	WithdrawPending    WithdrawStatus = "pending"
	WithdrawProcessing WithdrawStatus = "processing"
)

// Account is a user's balance triple. available+escrow+pending must never
// go negative (I1); every mutation is paired with exactly one Transaction
// row (I2).
type Account struct {
	UserID    uuid.UUID       `db:"user_id"`
	Available decimal.Decimal `db:"available"`
	Escrow    decimal.Decimal `db:"escrow"`
	Pending   decimal.Decimal `db:"pending"`
	Banned    bool            `db:"banned"`
	UpdatedAt time.Time       `db:"updated_at"`
}

// Transaction is one row of the append-only ledger log. BalanceBefore and
// BalanceAfter refer to whichever of the three compartments Amount moved
// (Compartment).
type Transaction struct {
	ID             uuid.UUID       `db:"id"`
	UserID         uuid.UUID       `db:"user_id"`
	OrderID        *uuid.UUID      `db:"order_id"`
	Kind           TransactionKind `db:"kind"`
	Compartment    string          `db:"compartment"`
	Amount         decimal.Decimal `db:"amount"`
	BalanceBefore  decimal.Decimal `db:"balance_before"`
	BalanceAfter   decimal.Decimal `db:"balance_after"`
	ExternalTxHash *string         `db:"external_tx_hash"`
	CreatedAt      time.Time       `db:"created_at"`
}

// WithdrawRequest is the record a DebitWithdraw call produces; it is the
// caller's receipt and the row an admin approves for amounts above the
// approval threshold.
type WithdrawRequest struct {
	ID          uuid.UUID       `db:"id"`
	UserID      uuid.UUID       `db:"user_id"`
	Amount      decimal.Decimal `db:"amount"`
	Fee         decimal.Decimal `db:"fee"`
	Destination string          `db:"destination"`
	Status      WithdrawStatus  `db:"status"`
	CreatedAt   time.Time       `db:"created_at"`
}

// ReleaseOutcome is the settled result of release_escrow, cached so a
// repeated admin action on a terminal order returns it unchanged (P2).
type ReleaseOutcome struct {
	OrderID    uuid.UUID
	Payout     decimal.Decimal
	Refund     decimal.Decimal
	Commission decimal.Decimal
}

// PlatformRevenueAccountID is the fixed account credited with every
// commission (§4.1 release_escrow, "credits platform revenue account").
var PlatformRevenueAccountID = uuid.MustParse("00000000-0000-0000-0000-000000000001")

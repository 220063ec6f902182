package ledger

import "errors"

var (
	// ErrInsufficientFunds is returned by LockEscrow and DebitWithdraw when
	// available balance cannot cover the requested amount.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrInvalidSettlement is returned by ReleaseEscrow when
	// payout+refund != order.total_paid or commission > payout.
	ErrInvalidSettlement = errors.New("invalid settlement: payout+refund must equal total paid and commission must not exceed payout")

	// ErrAccountNotFound is returned when the account row does not exist.
	ErrAccountNotFound = errors.New("ledger account not found")

	// ErrAccountBanned is returned by primitives that must not move funds
	// for a banned user.
	ErrAccountBanned = errors.New("ledger account is banned")

	// ErrNegativeAmount guards every primitive against a non-positive
	// amount argument.
	ErrNegativeAmount = errors.New("amount must be positive")
)

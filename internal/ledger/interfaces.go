package ledger

import (
	"context"

	"github.com/google/uuid"
)

// Repository persists accounts, the transaction log, and withdraw requests.
// A single Repository call wraps its work in one serializable transaction;
// it is the only component permitted to issue `SELECT ... FOR UPDATE`
// against the accounts table.
type Repository interface {
	// WithAccountLock runs fn with userID's account row locked and persists
	// whatever mutation fn returns alongside the given transaction rows,
	// atomically. Used by LockEscrow, CreditDeposit and DebitWithdraw.
	WithAccountLock(ctx context.Context, userID uuid.UUID, fn func(acct *Account) ([]Transaction, error)) error

	// WithOrderSettlement locks every account touched by a release_escrow
	// call (buyer, seller, platform) in a fixed order to avoid deadlock,
	// then persists the mutations and transaction rows atomically.
	WithOrderSettlement(ctx context.Context, buyerID, sellerID uuid.UUID, fn func(buyer, seller, platform *Account) ([]Transaction, error)) error

	GetAccount(ctx context.Context, userID uuid.UUID) (*Account, error)

	FindDepositByExternalTxHash(ctx context.Context, hash string) (*Transaction, error)

	FindReleaseOutcome(ctx context.Context, orderID uuid.UUID) (*ReleaseOutcome, error)
	SaveReleaseOutcome(ctx context.Context, outcome ReleaseOutcome) error

	SaveWithdrawRequest(ctx context.Context, req WithdrawRequest) error
}

// Locker provides the distributed mutual exclusion ReleaseEscrow needs
// across control-plane instances, layered in front of the row lock
// (internal/cache implements this over Redis).
type Locker interface {
	// Lock blocks until it holds the named lock or ctx is done, returning
	// a release function.
	Lock(ctx context.Context, key string) (release func(), err error)
}

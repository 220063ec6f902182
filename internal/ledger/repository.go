package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// PostgresRepository implements Repository against Postgres via sqlx,
// following the handle-wrapping style of the connectivity layer in
// internal/database: a thin struct around *sqlx.DB, one exported method
// per operation, errors wrapped with fmt.Errorf("%w").
type PostgresRepository struct {
	db *sqlx.DB
}

// NewPostgresRepository builds a Repository backed by db.
func NewPostgresRepository(db *sqlx.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) GetAccount(ctx context.Context, userID uuid.UUID) (*Account, error) {
	var acct Account
	err := r.db.GetContext(ctx, &acct,
		`SELECT user_id, available, escrow, pending, banned, updated_at FROM accounts WHERE user_id = $1`,
		userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrAccountNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get account %s: %w", userID, err)
	}
	return &acct, nil
}

func (r *PostgresRepository) lockAccount(ctx context.Context, tx *sqlx.Tx, userID uuid.UUID) (*Account, error) {
	var acct Account
	err := tx.GetContext(ctx, &acct,
		`SELECT user_id, available, escrow, pending, banned, updated_at FROM accounts WHERE user_id = $1 FOR UPDATE`,
		userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrAccountNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("lock account %s: %w", userID, err)
	}
	return &acct, nil
}

func (r *PostgresRepository) persistAccount(ctx context.Context, tx *sqlx.Tx, acct *Account) error {
	_, err := tx.ExecContext(ctx,
		`UPDATE accounts SET available = $2, escrow = $3, pending = $4, updated_at = $5 WHERE user_id = $1`,
		acct.UserID, acct.Available, acct.Escrow, acct.Pending, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("persist account %s: %w", acct.UserID, err)
	}
	return nil
}

func (r *PostgresRepository) insertTransactions(ctx context.Context, tx *sqlx.Tx, rows []Transaction) error {
	for i := range rows {
		row := &rows[i]
		if row.ID == uuid.Nil {
			row.ID = uuid.New()
		}
		if row.CreatedAt.IsZero() {
			row.CreatedAt = time.Now().UTC()
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO ledger_transactions
				(id, user_id, order_id, kind, compartment, amount, balance_before, balance_after, external_tx_hash, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
			row.ID, row.UserID, row.OrderID, row.Kind, row.Compartment,
			row.Amount, row.BalanceBefore, row.BalanceAfter, row.ExternalTxHash, row.CreatedAt)
		if err != nil {
			return fmt.Errorf("append ledger transaction: %w", err)
		}
	}
	return nil
}

func (r *PostgresRepository) WithAccountLock(ctx context.Context, userID uuid.UUID, fn func(acct *Account) ([]Transaction, error)) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin ledger tx: %w", err)
	}
	defer tx.Rollback()

	acct, err := r.lockAccount(ctx, tx, userID)
	if err != nil {
		return err
	}

	rows, err := fn(acct)
	if err != nil {
		return err
	}

	if err := r.persistAccount(ctx, tx, acct); err != nil {
		return err
	}
	if err := r.insertTransactions(ctx, tx, rows); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit ledger tx: %w", err)
	}
	return nil
}

// WithOrderSettlement locks buyer, seller, and platform revenue accounts
// in ascending UUID order to avoid a lock-order deadlock against a
// concurrent settlement touching the same two accounts in reverse.
func (r *PostgresRepository) WithOrderSettlement(ctx context.Context, buyerID, sellerID uuid.UUID, fn func(buyer, seller, platform *Account) ([]Transaction, error)) error {
	ids := []uuid.UUID{buyerID, sellerID, PlatformRevenueAccountID}
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin settlement tx: %w", err)
	}
	defer tx.Rollback()

	locked := make(map[uuid.UUID]*Account, 3)
	for _, id := range ids {
		acct, err := r.lockAccount(ctx, tx, id)
		if err != nil {
			return err
		}
		locked[id] = acct
	}

	rows, err := fn(locked[buyerID], locked[sellerID], locked[PlatformRevenueAccountID])
	if err != nil {
		return err
	}

	for _, acct := range locked {
		if err := r.persistAccount(ctx, tx, acct); err != nil {
			return err
		}
	}
	if err := r.insertTransactions(ctx, tx, rows); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit settlement tx: %w", err)
	}
	return nil
}

func (r *PostgresRepository) FindDepositByExternalTxHash(ctx context.Context, hash string) (*Transaction, error) {
	var txn Transaction
	err := r.db.GetContext(ctx, &txn,
		`SELECT id, user_id, order_id, kind, compartment, amount, balance_before, balance_after, external_tx_hash, created_at
		 FROM ledger_transactions WHERE kind = $1 AND external_tx_hash = $2`,
		KindDeposit, hash)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find deposit by tx hash: %w", err)
	}
	return &txn, nil
}

func (r *PostgresRepository) FindReleaseOutcome(ctx context.Context, orderID uuid.UUID) (*ReleaseOutcome, error) {
	var out ReleaseOutcome
	err := r.db.GetContext(ctx, &out,
		`SELECT order_id, payout, refund, commission FROM release_outcomes WHERE order_id = $1`,
		orderID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find release outcome for order %s: %w", orderID, err)
	}
	return &out, nil
}

func (r *PostgresRepository) SaveReleaseOutcome(ctx context.Context, outcome ReleaseOutcome) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO release_outcomes (order_id, payout, refund, commission)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (order_id) DO NOTHING`,
		outcome.OrderID, outcome.Payout, outcome.Refund, outcome.Commission)
	if err != nil {
		return fmt.Errorf("save release outcome for order %s: %w", outcome.OrderID, err)
	}
	return nil
}

func (r *PostgresRepository) SaveWithdrawRequest(ctx context.Context, req WithdrawRequest) error {
	if req.ID == uuid.Nil {
		req.ID = uuid.New()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO withdraw_requests (id, user_id, amount, fee, destination, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		req.ID, req.UserID, req.Amount, req.Fee, req.Destination, req.Status, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("save withdraw request: %w", err)
	}
	return nil
}

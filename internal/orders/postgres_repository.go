package orders

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// PostgresRepository implements Repository against Postgres via sqlx,
// the same thin-struct-around-*sqlx.DB shape as ledger.PostgresRepository
// and internal/shares.PostgresRepository: one exported method per
// operation, errors wrapped with fmt.Errorf("%w").
type PostgresRepository struct {
	db *sqlx.DB
}

// NewPostgresRepository builds a Repository backed by db.
func NewPostgresRepository(db *sqlx.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) GetListing(ctx context.Context, id uuid.UUID) (*Listing, error) {
	var l Listing
	err := r.db.GetContext(ctx, &l, `
		SELECT id, seller_id, algorithm, hashrate_value, hashrate_unit, price_per_hour,
		       min_hours, max_hours, proxy_region, status, created_at, updated_at
		FROM listings WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get listing %s: %w", id, err)
	}
	return &l, nil
}

func (r *PostgresRepository) SetListingStatus(ctx context.Context, id uuid.UUID, status ListingStatus) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE listings SET status = $2, updated_at = $3 WHERE id = $1`, id, status, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("set listing %s status: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrOrderNotFound
	}
	return nil
}

const orderColumns = `
	id, order_code, buyer_id, seller_id, listing_id, algorithm, ordered_hashrate, hours,
	subtotal, commission, total_paid,
	pool_host, pool_port, pool_wallet, pool_worker, pool_password, pool_backup_host, pool_backup_port,
	proxy_endpoint,
	current_hashrate, avg_hashrate, accuracy, shares_accepted, shares_rejected, last_share_at,
	paid_at, started_at, expected_end_at, review_at, completed_at, cancelled_at,
	status, payout_amount, refund_amount, admin_action`

func (r *PostgresRepository) InsertOrder(ctx context.Context, order *Order) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO orders (`+orderColumns+`)
		VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8,
			$9, $10, $11,
			$12, $13, $14, $15, $16, $17, $18,
			$19,
			$20, $21, $22, $23, $24, $25,
			$26, $27, $28, $29, $30, $31,
			$32, $33, $34, $35)`,
		order.ID, order.OrderCode, order.BuyerID, order.SellerID, order.ListingID, order.Algorithm, order.Hashrate, order.Hours,
		order.Subtotal, order.Commission, order.TotalPaid,
		order.Host, order.Port, order.Wallet, order.Worker, order.Password, order.BackupHost, order.BackupPort,
		order.ProxyEndpoint,
		order.CurrentHashrate, order.AvgHashrate, order.Accuracy, order.SharesAccepted, order.SharesRejected, order.LastShareAt,
		order.PaidAt, order.StartedAt, order.ExpectedEndAt, order.ReviewAt, order.CompletedAt, order.CancelledAt,
		order.Status, order.PayoutAmount, order.RefundAmount, order.AdminAction)
	if err != nil {
		return fmt.Errorf("insert order %s: %w", order.OrderCode, err)
	}
	return nil
}

func (r *PostgresRepository) getOrderWhere(ctx context.Context, clause string, arg interface{}) (*Order, error) {
	var o Order
	err := r.db.GetContext(ctx, &o, `SELECT `+orderColumns+` FROM orders WHERE `+clause, arg)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get order (%s): %w", clause, err)
	}
	return &o, nil
}

func (r *PostgresRepository) GetOrder(ctx context.Context, id uuid.UUID) (*Order, error) {
	return r.getOrderWhere(ctx, "id = $1", id)
}

func (r *PostgresRepository) GetOrderByCode(ctx context.Context, code string) (*Order, error) {
	return r.getOrderWhere(ctx, "order_code = $1", code)
}

func (r *PostgresRepository) OrderCodeExists(ctx context.Context, code string) (bool, error) {
	var exists bool
	err := r.db.GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM orders WHERE order_code = $1)`, code)
	if err != nil {
		return false, fmt.Errorf("check order code %s: %w", code, err)
	}
	return exists, nil
}

func (r *PostgresRepository) UpdateOrder(ctx context.Context, order *Order) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE orders SET
			current_hashrate = $2, avg_hashrate = $3, accuracy = $4,
			shares_accepted = $5, shares_rejected = $6, last_share_at = $7,
			started_at = $8, expected_end_at = $9, review_at = $10,
			completed_at = $11, cancelled_at = $12,
			status = $13, payout_amount = $14, refund_amount = $15, admin_action = $16
		WHERE id = $1`,
		order.ID,
		order.CurrentHashrate, order.AvgHashrate, order.Accuracy,
		order.SharesAccepted, order.SharesRejected, order.LastShareAt,
		order.StartedAt, order.ExpectedEndAt, order.ReviewAt,
		order.CompletedAt, order.CancelledAt,
		order.Status, order.PayoutAmount, order.RefundAmount, order.AdminAction)
	if err != nil {
		return fmt.Errorf("update order %s: %w", order.ID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrOrderNotFound
	}
	return nil
}

// ListExpiringActive returns every order in status "active" whose
// expected_end_at has already passed, for ReviewQueue's polling loop
// (spec.md §4.7).
func (r *PostgresRepository) ListExpiringActive(ctx context.Context, asOf time.Time) ([]*Order, error) {
	var rows []*Order
	err := r.db.SelectContext(ctx, &rows, `
		SELECT `+orderColumns+` FROM orders
		WHERE status = $1 AND expected_end_at IS NOT NULL AND expected_end_at <= $2`,
		StatusActive, asOf)
	if err != nil {
		return nil, fmt.Errorf("list expiring active orders: %w", err)
	}
	return rows, nil
}

func (r *PostgresRepository) InsertDispute(ctx context.Context, dispute *Dispute) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO disputes (id, order_id, opener_id, reason, resolution, resolver_id, opened_at, resolved_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		dispute.ID, dispute.OrderID, dispute.OpenerID, dispute.Reason,
		dispute.Resolution, dispute.ResolverID, dispute.OpenedAt, dispute.ResolvedAt)
	if err != nil {
		return fmt.Errorf("insert dispute for order %s: %w", dispute.OrderID, err)
	}
	return nil
}

func (r *PostgresRepository) GetOpenDispute(ctx context.Context, orderID uuid.UUID) (*Dispute, error) {
	var d Dispute
	err := r.db.GetContext(ctx, &d, `
		SELECT id, order_id, opener_id, reason, resolution, resolver_id, opened_at, resolved_at
		FROM disputes WHERE order_id = $1 AND resolved_at IS NULL`, orderID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get open dispute for order %s: %w", orderID, err)
	}
	return &d, nil
}

func (r *PostgresRepository) UpdateDispute(ctx context.Context, dispute *Dispute) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE disputes SET resolution = $2, resolver_id = $3, resolved_at = $4 WHERE id = $1`,
		dispute.ID, dispute.Resolution, dispute.ResolverID, dispute.ResolvedAt)
	if err != nil {
		return fmt.Errorf("update dispute %s: %w", dispute.ID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrOrderNotFound
	}
	return nil
}

// ListOpenDisputes returns every unresolved dispute, for the admin
// dispute queue (internal/api/admin_handlers.go).
func (r *PostgresRepository) ListOpenDisputes(ctx context.Context) ([]*Dispute, error) {
	var rows []*Dispute
	err := r.db.SelectContext(ctx, &rows, `
		SELECT id, order_id, opener_id, reason, resolution, resolver_id, opened_at, resolved_at
		FROM disputes WHERE resolved_at IS NULL ORDER BY opened_at ASC`)
	if err != nil {
		return nil, fmt.Errorf("list open disputes: %w", err)
	}
	return rows, nil
}

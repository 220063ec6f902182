package shares

import (
	"context"
	"strings"

	"github.com/jmoiron/sqlx"
)

// Repository persists share log entries. Adapted from
// internal/ledger.Repository's seam: a thin interface in front of sqlx so
// tests can substitute sqlmock without touching the batching logic above
// it.
type Repository interface {
	InsertBatch(ctx context.Context, entries []Entry) error
}

// PostgresRepository implements Repository against Postgres via sqlx, the
// same thin-struct-around-*sqlx.DB shape as ledger.PostgresRepository.
type PostgresRepository struct {
	db *sqlx.DB
}

// NewPostgresRepository wraps an already-configured sqlx.DB (see
// internal/database).
func NewPostgresRepository(db *sqlx.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// InsertBatch writes every entry in one multi-row INSERT, the same
// batched-write shape the teacher's shares.BatchProcessor used to
// amortize per-share overhead, generalized from an in-memory validation
// batch into a single round trip to Postgres.
func (r *PostgresRepository) InsertBatch(ctx context.Context, entries []Entry) error {
	if len(entries) == 0 {
		return nil
	}

	var b strings.Builder
	b.WriteString("INSERT INTO share_log (worker_id, outcome, difficulty, observed_at) VALUES ")
	args := make([]interface{}, 0, len(entries)*4)
	for i, e := range entries {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString("(?, ?, ?, ?)")
		args = append(args, e.WorkerID, string(e.Outcome), e.Difficulty, e.At)
	}

	query := r.db.Rebind(b.String())
	_, err := r.db.ExecContext(ctx, query, args...)
	return err
}

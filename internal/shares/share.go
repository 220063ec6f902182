// Package shares persists the append-only share log a dispute review
// reads from: every resolved submit a relay session observes, whether
// accepted, rejected, or swept as stale. The log is reconcilable with
// money (a session's lifetime accepted/rejected counters must always
// match the sum of its logged entries) but is itself never a write path
// for escrow — only the order machine and ledger move funds.
package shares

import (
	"time"

	"github.com/hashmarket/hashmarket-core/internal/stratum"
)

// Entry is one logged share outcome. WorkerID is the order code; the
// control plane joins against the orders table to resolve the order row
// when a dispute review reads the log, so the hot relay path never pays
// for that lookup itself.
type Entry struct {
	WorkerID   string               `db:"worker_id"`
	Outcome    stratum.ShareOutcome `db:"outcome"`
	Difficulty float64              `db:"difficulty"`
	At         time.Time            `db:"observed_at"`
}

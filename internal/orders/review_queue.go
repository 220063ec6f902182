package orders

import (
	"context"
	"log"
	"sync"
	"time"
)

// DefaultReviewInterval is how often ReviewQueue polls for orders whose
// delivery window has elapsed. spec.md §9 leaves the poll cadence
// unspecified; one minute is frequent enough that a buyer's "delivering"
// review window starts promptly after expected_end_at without hammering
// the orders table.
const DefaultReviewInterval = time.Minute

// ReviewQueue drives the active→delivering transition automatically once
// an order's rental period elapses (spec.md §4.2/§4.7), the way the
// engine's reportLoop drives its own ticker-based sweep.
type ReviewQueue struct {
	repo     Repository
	machine  *Machine
	interval time.Duration
	logger   *log.Logger
	now      func() time.Time

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewReviewQueue builds a ReviewQueue. interval <= 0 uses DefaultReviewInterval.
func NewReviewQueue(repo Repository, machine *Machine, interval time.Duration, logger *log.Logger) *ReviewQueue {
	if interval <= 0 {
		interval = DefaultReviewInterval
	}
	if logger == nil {
		logger = log.Default()
	}
	return &ReviewQueue{repo: repo, machine: machine, interval: interval, logger: logger, now: time.Now}
}

// Start begins the polling loop in a background goroutine.
func (q *ReviewQueue) Start() {
	q.ctx, q.cancel = context.WithCancel(context.Background())
	q.wg.Add(1)
	go q.run()
}

// Stop cancels the polling loop and waits for it to exit.
func (q *ReviewQueue) Stop() {
	if q.cancel != nil {
		q.cancel()
	}
	q.wg.Wait()
}

func (q *ReviewQueue) run() {
	defer q.wg.Done()
	ticker := time.NewTicker(q.interval)
	defer ticker.Stop()

	for {
		select {
		case <-q.ctx.Done():
			return
		case <-ticker.C:
			q.sweep()
		}
	}
}

// sweep is exported-shaped (lowercase, but callable via Sweep for tests)
// so a test can drive one pass synchronously instead of waiting on the
// ticker.
func (q *ReviewQueue) sweep() {
	q.Sweep(q.ctx)
}

// Sweep runs one pass over every active order whose expected_end_at has
// elapsed, moving each into "delivering" via Machine.Expire. A dispute
// opened concurrently on an order wins the tie-break (Expire is a no-op
// in that case); any other per-order error is logged and does not stop
// the sweep.
func (q *ReviewQueue) Sweep(ctx context.Context) {
	orders, err := q.repo.ListExpiringActive(ctx, q.now())
	if err != nil {
		q.logger.Printf("review queue: list expiring active orders: %v", err)
		return
	}
	for _, order := range orders {
		if _, err := q.machine.Expire(ctx, order.ID); err != nil {
			q.logger.Printf("review queue: expire order %s: %v", order.OrderCode, err)
		}
	}
}

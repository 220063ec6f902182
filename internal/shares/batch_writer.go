package shares

import (
	"context"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hashmarket/hashmarket-core/internal/stratum"
)

// =============================================================================
// BATCHED SHARE LOG WRITER
// Adapted from the teacher's shares.BatchProcessor: the same bounded
// input queue, batch-size/batch-timeout worker loop, and atomic
// statistics, generalized from an in-memory Blake2S validation pipeline
// (this domain's proxy never validates a share itself — the destination
// pool already did) into a batched append-only writer for resolved share
// outcomes. One worker is enough here: there is no CPU-bound hashing
// step to parallelize across shares, only a bulk INSERT to amortize.
// =============================================================================

// BatchConfig configures the writer.
type BatchConfig struct {
	QueueSize    int
	BatchSize    int
	BatchTimeout time.Duration
}

// DefaultBatchConfig returns production defaults.
func DefaultBatchConfig() BatchConfig {
	return BatchConfig{
		QueueSize:    10000,
		BatchSize:    200,
		BatchTimeout: 50 * time.Millisecond,
	}
}

// BatchStatistics tracks writer throughput using atomic operations, the
// same lock-free read pattern as the teacher's BatchStatistics.
type BatchStatistics struct {
	TotalReceived  int64
	TotalWritten   int64
	TotalDropped   int64
	BatchesFlushed int64
	FlushErrors    int64
}

// Writer batches RecordShare calls and flushes them to a Repository.
// Implements stratum.ShareRecorder.
type Writer struct {
	config BatchConfig
	repo   Repository
	logger *log.Logger

	input chan Entry
	ctx   context.Context
	cancel context.CancelFunc
	wg    sync.WaitGroup

	stats   BatchStatistics
	stopped int32
}

// NewWriter builds a Writer and starts its background flush loop.
func NewWriter(config BatchConfig, repo Repository, logger *log.Logger) *Writer {
	if config.QueueSize <= 0 {
		config.QueueSize = 10000
	}
	if config.BatchSize <= 0 {
		config.BatchSize = 200
	}
	if config.BatchTimeout <= 0 {
		config.BatchTimeout = 50 * time.Millisecond
	}
	if logger == nil {
		logger = log.Default()
	}

	ctx, cancel := context.WithCancel(context.Background())
	w := &Writer{
		config: config,
		repo:   repo,
		logger: logger,
		input:  make(chan Entry, config.QueueSize),
		ctx:    ctx,
		cancel: cancel,
	}
	w.wg.Add(1)
	go w.run()
	return w
}

// RecordShare implements stratum.ShareRecorder. The relay's read loop
// must never block on a database write, so a full queue drops the entry
// and counts it rather than stalling the miner↔pool socket pair.
func (w *Writer) RecordShare(ctx context.Context, workerID string, outcome stratum.ShareOutcome, difficulty float64, at time.Time) {
	if atomic.LoadInt32(&w.stopped) != 0 {
		return
	}
	atomic.AddInt64(&w.stats.TotalReceived, 1)

	select {
	case w.input <- Entry{WorkerID: workerID, Outcome: outcome, Difficulty: difficulty, At: at}:
	default:
		atomic.AddInt64(&w.stats.TotalDropped, 1)
	}
}

// Stop drains the queue, flushes whatever remains, and stops the writer.
func (w *Writer) Stop() {
	atomic.StoreInt32(&w.stopped, 1)
	w.cancel()
	w.wg.Wait()
}

// Statistics returns current throughput counters (lock-free read).
func (w *Writer) Statistics() BatchStatistics {
	return BatchStatistics{
		TotalReceived:  atomic.LoadInt64(&w.stats.TotalReceived),
		TotalWritten:   atomic.LoadInt64(&w.stats.TotalWritten),
		TotalDropped:   atomic.LoadInt64(&w.stats.TotalDropped),
		BatchesFlushed: atomic.LoadInt64(&w.stats.BatchesFlushed),
		FlushErrors:    atomic.LoadInt64(&w.stats.FlushErrors),
	}
}

func (w *Writer) run() {
	defer w.wg.Done()

	batch := make([]Entry, 0, w.config.BatchSize)
	timer := time.NewTimer(w.config.BatchTimeout)
	defer timer.Stop()

	flush := func() {
		if len(batch) == 0 {
			return
		}
		if err := w.repo.InsertBatch(context.Background(), batch); err != nil {
			atomic.AddInt64(&w.stats.FlushErrors, 1)
			w.logger.Printf("shares: flush of %d entries failed: %v", len(batch), err)
		} else {
			atomic.AddInt64(&w.stats.TotalWritten, int64(len(batch)))
		}
		atomic.AddInt64(&w.stats.BatchesFlushed, 1)
		batch = batch[:0]
	}

	for {
		select {
		case <-w.ctx.Done():
			for {
				select {
				case e := <-w.input:
					batch = append(batch, e)
				default:
					flush()
					return
				}
			}

		case e := <-w.input:
			batch = append(batch, e)
			if len(batch) >= w.config.BatchSize {
				flush()
				if !timer.Stop() {
					<-timer.C
				}
				timer.Reset(w.config.BatchTimeout)
			}

		case <-timer.C:
			flush()
			timer.Reset(w.config.BatchTimeout)
		}
	}
}

package shares

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/hashmarket/hashmarket-core/internal/stratum"
)

type fakeRepo struct {
	mu    sync.Mutex
	calls [][]Entry
}

func (f *fakeRepo) InsertBatch(ctx context.Context, entries []Entry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := make([]Entry, len(entries))
	copy(cp, entries)
	f.calls = append(f.calls, cp)
	return nil
}

func (f *fakeRepo) total() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, batch := range f.calls {
		n += len(batch)
	}
	return n
}

func TestWriter_FlushesOnBatchSize(t *testing.T) {
	repo := &fakeRepo{}
	w := NewWriter(BatchConfig{QueueSize: 100, BatchSize: 3, BatchTimeout: time.Hour}, repo, nil)
	defer w.Stop()

	for i := 0; i < 3; i++ {
		w.RecordShare(context.Background(), "hb_ord_x", stratum.ShareAccepted, 1, time.Now())
	}

	deadline := time.Now().Add(2 * time.Second)
	for repo.total() < 3 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if repo.total() != 3 {
		t.Fatalf("total written = %d, want 3", repo.total())
	}
}

func TestWriter_FlushesOnTimeout(t *testing.T) {
	repo := &fakeRepo{}
	w := NewWriter(BatchConfig{QueueSize: 100, BatchSize: 100, BatchTimeout: 20 * time.Millisecond}, repo, nil)
	defer w.Stop()

	w.RecordShare(context.Background(), "hb_ord_y", stratum.ShareRejected, 1, time.Now())

	deadline := time.Now().Add(2 * time.Second)
	for repo.total() < 1 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if repo.total() != 1 {
		t.Fatalf("total written = %d, want 1 after batch timeout", repo.total())
	}
}

func TestWriter_DropsWhenQueueFull(t *testing.T) {
	repo := &fakeRepo{}
	w := NewWriter(BatchConfig{QueueSize: 1, BatchSize: 1000, BatchTimeout: time.Hour}, repo, nil)
	defer w.Stop()

	for i := 0; i < 10; i++ {
		w.RecordShare(context.Background(), "hb_ord_z", stratum.ShareAccepted, 1, time.Now())
	}

	stats := w.Statistics()
	if stats.TotalDropped == 0 {
		t.Fatalf("expected some shares dropped once the queue filled")
	}
}

func TestWriter_StopFlushesRemainder(t *testing.T) {
	repo := &fakeRepo{}
	w := NewWriter(BatchConfig{QueueSize: 100, BatchSize: 100, BatchTimeout: time.Hour}, repo, nil)

	w.RecordShare(context.Background(), "hb_ord_w", stratum.ShareAccepted, 1, time.Now())
	w.Stop()

	if repo.total() != 1 {
		t.Fatalf("total written after Stop = %d, want 1", repo.total())
	}
}

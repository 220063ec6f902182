package stratum

import (
	"context"
	"net"
	"sync"
	"time"

	"github.com/hashmarket/hashmarket-core/internal/orders"
)

// =============================================================================
// TEST DOUBLES
// Hand-written fakes in the teacher's mocks.go style (plain structs
// recording calls, no mocking framework), generalized from stratum-wire
// mocks to the new ControlPlane/PoolDialer/ShareRecorder seams.
// =============================================================================

// FakeControlPlane answers GetOrderByWorker from a seeded map and records
// every Connect/Share/Hashrate/Disconnect call for assertions.
type FakeControlPlane struct {
	mu      sync.Mutex
	orders  map[string]OrderLookup
	connect []string
	shares  []fakeShareCall
	hash    []fakeHashrateCall
	discs   []fakeDiscCall
}

type fakeShareCall struct {
	WorkerID   string
	Outcome    ShareOutcome
	Difficulty float64
}

type fakeHashrateCall struct {
	WorkerID  string
	Hashrate  float64
	Accuracy  float64
	Accepted  int64
	Rejected  int64
	LowNotify bool
}

type fakeDiscCall struct {
	WorkerID string
	Reason   string
}

// NewFakeControlPlane builds an empty fake; seed it with Seed before use.
func NewFakeControlPlane() *FakeControlPlane {
	return &FakeControlPlane{orders: make(map[string]OrderLookup)}
}

// Seed registers the lookup result for a worker id.
func (f *FakeControlPlane) Seed(workerID string, lookup OrderLookup) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.orders[workerID] = lookup
}

func (f *FakeControlPlane) GetOrderByWorker(ctx context.Context, workerID string) (OrderLookup, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	lookup, ok := f.orders[workerID]
	if !ok {
		return OrderLookup{}, ErrUnknownWorker
	}
	return lookup, nil
}

func (f *FakeControlPlane) Connect(ctx context.Context, workerID, remoteIP, userAgent string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.connect = append(f.connect, workerID)
}

func (f *FakeControlPlane) Share(ctx context.Context, workerID string, outcome ShareOutcome, difficulty float64, at time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.shares = append(f.shares, fakeShareCall{workerID, outcome, difficulty})
}

func (f *FakeControlPlane) Hashrate(ctx context.Context, workerID string, hashrate, accuracy float64, accepted, rejected int64, low bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.hash = append(f.hash, fakeHashrateCall{workerID, hashrate, accuracy, accepted, rejected, low})
}

func (f *FakeControlPlane) Disconnect(ctx context.Context, workerID, reason string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.discs = append(f.discs, fakeDiscCall{workerID, reason})
}

// DisconnectCount reports how many times Disconnect fired for workerID,
// for R2's idempotent-disconnect assertion.
func (f *FakeControlPlane) DisconnectCount(workerID string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, d := range f.discs {
		if d.WorkerID == workerID {
			n++
		}
	}
	return n
}

func (f *FakeControlPlane) ShareCalls() []fakeShareCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]fakeShareCall, len(f.shares))
	copy(out, f.shares)
	return out
}

// PipeDialer hands out one end of a net.Pipe per DialPool call, giving
// the test the other end to drive as the "real" destination pool without
// opening any actual sockets.
type PipeDialer struct {
	mu     sync.Mutex
	ends   []net.Conn
	Error  error
	Dialed chan net.Conn // fires the server-side end of each new pipe
}

func NewPipeDialer() *PipeDialer {
	return &PipeDialer{Dialed: make(chan net.Conn, 16)}
}

func (d *PipeDialer) DialPool(ctx context.Context, dest orders.PoolDestination) (net.Conn, error) {
	if d.Error != nil {
		return nil, d.Error
	}
	client, server := net.Pipe()
	d.mu.Lock()
	d.ends = append(d.ends, server)
	d.mu.Unlock()
	d.Dialed <- server
	return client, nil
}

// PoolEnds returns the server-side ends handed out so far, in dial order.
func (d *PipeDialer) PoolEnds() []net.Conn {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]net.Conn, len(d.ends))
	copy(out, d.ends)
	return out
}

// FakeShareRecorder records every RecordShare call for assertions.
type FakeShareRecorder struct {
	mu    sync.Mutex
	calls []fakeShareCall
}

func NewFakeShareRecorder() *FakeShareRecorder { return &FakeShareRecorder{} }

func (f *FakeShareRecorder) RecordShare(ctx context.Context, workerID string, outcome ShareOutcome, difficulty float64, at time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, fakeShareCall{workerID, outcome, difficulty})
}

func (f *FakeShareRecorder) Calls() []fakeShareCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]fakeShareCall, len(f.calls))
	copy(out, f.calls)
	return out
}

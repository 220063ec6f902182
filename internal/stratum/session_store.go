package stratum

import (
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hashmarket/hashmarket-core/internal/hashrate"
	"github.com/hashmarket/hashmarket-core/internal/orders"
)

// =============================================================================
// SESSION STORE
// Adapted from the teacher's sharded ConnectionManager: the same FNV-1a
// shard hash and per-shard sync.RWMutex design, generalized so the key is
// the worker id (the order code) rather than a per-connection UUID, since
// the proxy needs O(1) lookup of a live session by worker id for the
// hashrate reporter and duplicate-authorize eviction (S5).
// =============================================================================

const sessionShardCount = 64

type sessionShard struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

// SessionStore indexes live sessions by worker id.
type SessionStore struct {
	shards [sessionShardCount]*sessionShard
}

// NewSessionStore builds an empty, ready-to-use store.
func NewSessionStore() *SessionStore {
	st := &SessionStore{}
	for i := range st.shards {
		st.shards[i] = &sessionShard{sessions: make(map[string]*Session)}
	}
	return st
}

func (st *SessionStore) shardFor(workerID string) *sessionShard {
	hash := uint32(2166136261)
	for i := 0; i < len(workerID); i++ {
		hash ^= uint32(workerID[i])
		hash *= 16777619
	}
	return st.shards[hash%sessionShardCount]
}

// Put installs s, returning whatever session previously occupied its
// worker id slot so the caller can terminate it (S5: a duplicate
// authorize for the same worker id kills the prior session and the new
// one proceeds).
func (st *SessionStore) Put(s *Session) (evicted *Session) {
	shard := st.shardFor(s.WorkerID)
	shard.mu.Lock()
	evicted = shard.sessions[s.WorkerID]
	shard.sessions[s.WorkerID] = s
	shard.mu.Unlock()
	return evicted
}

// Get looks up the live session for workerID.
func (st *SessionStore) Get(workerID string) (*Session, bool) {
	shard := st.shardFor(workerID)
	shard.mu.RLock()
	defer shard.mu.RUnlock()
	s, ok := shard.sessions[workerID]
	return s, ok
}

// Remove deletes workerID's entry only if it still points at s — a
// session that Put already evicted must not delete whatever replaced it.
func (st *SessionStore) Remove(s *Session) {
	shard := st.shardFor(s.WorkerID)
	shard.mu.Lock()
	if shard.sessions[s.WorkerID] == s {
		delete(shard.sessions, s.WorkerID)
	}
	shard.mu.Unlock()
}

// ForEach iterates every live session; used by the 300s hashrate reporter.
func (st *SessionStore) ForEach(fn func(*Session)) {
	for _, shard := range st.shards {
		shard.mu.RLock()
		for _, s := range shard.sessions {
			fn(s)
		}
		shard.mu.RUnlock()
	}
}

// Count returns the number of live sessions across all shards.
func (st *SessionStore) Count() int {
	n := 0
	for _, shard := range st.shards {
		shard.mu.RLock()
		n += len(shard.sessions)
		shard.mu.RUnlock()
	}
	return n
}

// =============================================================================
// SESSION
// Adapted from the teacher's ManagedConnection, generalized from a single
// ASIC-dialect miner connection to the two-dialect relay session this
// proxy runs: it now owns a second socket (the destination pool), a
// dialect tag, and the pending-submit correlation map the handshake and
// streaming loops share.
// =============================================================================

// Phase is a position in a session's handshake/streaming lifecycle.
type Phase string

const (
	PhaseAwaitingHandshake Phase = "awaiting_handshake"
	PhaseStreaming         Phase = "streaming"
	PhaseClosed            Phase = "closed"
)

// Dialect identifies which Stratum flavor a session's miner speaks.
type Dialect string

const (
	DialectA       Dialect = "A"
	DialectB       Dialect = "B"
	DialectUnknown Dialect = "unknown"
)

// staleAfter is how long a forwarded submit waits for a pool reply before
// it is swept and recorded as stale.
const staleAfter = 120 * time.Second

type pendingSubmit struct {
	difficulty  float64
	submittedAt time.Time
}

// Session is the live state of one miner↔pool relay. pending submits,
// the current difficulty, and the accepted/rejected counters are guarded
// by a single mutex rather than split strictly across the two I/O
// goroutines: each touches them for a single map operation at a time, so
// the mutex costs nothing in practice while staying simpler than
// message-passing the same state between the two halves.
type Session struct {
	WorkerID    string // the order code; the sole Stratum login token
	OrderID     string
	RemoteIP    string
	UserAgent   string
	ConnectedAt time.Time
	Destination orders.PoolDestination

	Accountant *hashrate.Accountant

	miner net.Conn
	pool  net.Conn

	phase   atomic.Value // Phase
	dialect atomic.Value // Dialect

	mu             sync.Mutex
	difficulty     float64
	pendingSubmits map[string]pendingSubmit

	closeOnce sync.Once
	closed    chan struct{}
}

func newSession(workerID string, miner net.Conn, orderedHashrate float64) *Session {
	s := &Session{
		WorkerID:       workerID,
		ConnectedAt:    time.Now(),
		Accountant:     hashrate.NewAccountant(orderedHashrate),
		miner:          miner,
		pendingSubmits: make(map[string]pendingSubmit),
		closed:         make(chan struct{}),
	}
	s.phase.Store(PhaseAwaitingHandshake)
	s.dialect.Store(DialectUnknown)
	return s
}

func (s *Session) Phase() Phase         { return s.phase.Load().(Phase) }
func (s *Session) setPhase(p Phase)     { s.phase.Store(p) }
func (s *Session) Dialect() Dialect     { return s.dialect.Load().(Dialect) }
func (s *Session) setDialect(d Dialect) { s.dialect.Store(d) }

func (s *Session) setDifficulty(d float64) {
	s.mu.Lock()
	s.difficulty = d
	s.mu.Unlock()
}

func (s *Session) currentDifficulty() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.difficulty
}

// recordSubmit stores the difficulty a forwarded share was mined at under
// its JSON-RPC request id, first sweeping anything already past
// staleAfter and counting it rejected so a pool reply that never arrives
// still surfaces as a share outcome instead of leaking silently.
func (s *Session) recordSubmit(id string, now time.Time) {
	if id == "" {
		return
	}
	var stale int
	s.mu.Lock()
	for k, v := range s.pendingSubmits {
		if now.Sub(v.submittedAt) > staleAfter {
			delete(s.pendingSubmits, k)
			stale++
		}
	}
	s.pendingSubmits[id] = pendingSubmit{difficulty: s.difficulty, submittedAt: now}
	s.mu.Unlock()
	for i := 0; i < stale; i++ {
		s.Accountant.RecordRejected()
	}
}

// resolveSubmit pops a pending submit by id, returning the difficulty it
// was recorded at and whether it was found. A miss means the reply
// arrived after the staleness sweep already evicted the entry, or never
// matched a submit at all.
func (s *Session) resolveSubmit(id string) (float64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.pendingSubmits[id]
	if !ok {
		return 0, false
	}
	delete(s.pendingSubmits, id)
	return p.difficulty, true
}

// markClosed signals Closed exactly once, reporting whether this call was
// the one that did it.
func (s *Session) markClosed() bool {
	closed := false
	s.closeOnce.Do(func() {
		close(s.closed)
		closed = true
	})
	return closed
}

// Closed is signaled once either half of the session has torn down.
func (s *Session) Closed() <-chan struct{} { return s.closed }

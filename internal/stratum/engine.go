package stratum

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net"
	"sync"
	"time"

	"github.com/hashmarket/hashmarket-core/internal/hashrate"
	"github.com/hashmarket/hashmarket-core/internal/orders"
)

// =============================================================================
// RELAY ENGINE
// Adapted from the teacher's PoolCoordinator accept/process loop — the
// same listener, per-connection goroutine, and newline-buffered read
// shape — generalized from a single in-house pool authority (job
// distribution, vardiff, share batching against a local DB) into a
// dual-dialect relay that dials a real destination pool per order and
// forwards each side's traffic with credentials substituted in place.
// =============================================================================

// Config configures the relay engine's timeouts (spec.md §5).
type Config struct {
	ListenAddress    string
	HandshakeTimeout time.Duration
	IdleTimeout      time.Duration
	DialTimeout      time.Duration
}

// DefaultConfig returns the timeouts spec.md §5 names: 30s handshake,
// 600s idle, plus a conservative pool-dial timeout.
func DefaultConfig() Config {
	return Config{
		ListenAddress:    ":3333",
		HandshakeTimeout: 30 * time.Second,
		IdleTimeout:      600 * time.Second,
		DialTimeout:      10 * time.Second,
	}
}

// Metrics receives operational counters from the engine as sessions
// connect, disconnect, submit shares, and report hashrate. Satisfied by
// *internal/metrics.Registry; nil is a valid Engine.metrics (every call
// site guards it), for tests and anywhere metrics aren't wired up.
type Metrics interface {
	ConnectionOpened()
	ConnectionClosed()
	ShareRecorded(outcome string)
	HashrateRecorded(workerID string, hashrateHS float64)
}

// Engine runs the listener and orchestrates every live relay session.
type Engine struct {
	cfg     Config
	cp      ControlPlane
	dialer  PoolDialer
	store   *SessionStore
	shares  ShareRecorder
	logger  *log.Logger
	metrics Metrics

	now func() time.Time

	listener net.Listener
	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup
}

// NewEngine builds an Engine ready to Start.
func NewEngine(cfg Config, cp ControlPlane, dialer PoolDialer, shares ShareRecorder, logger *log.Logger) *Engine {
	if logger == nil {
		logger = log.Default()
	}
	return &Engine{
		cfg:    cfg,
		cp:     cp,
		dialer: dialer,
		store:  NewSessionStore(),
		shares: shares,
		logger: logger,
		now:    time.Now,
	}
}

// WithMetrics attaches a Metrics sink the engine reports connection,
// share, and hashrate events to. Returns the engine for chaining at
// construction time.
func (e *Engine) WithMetrics(m Metrics) *Engine {
	e.metrics = m
	return e
}

// Start opens the listener and begins accepting connections plus the
// background hashrate reporter.
func (e *Engine) Start() error {
	listener, err := net.Listen("tcp", e.cfg.ListenAddress)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", e.cfg.ListenAddress, err)
	}
	e.listener = listener
	e.ctx, e.cancel = context.WithCancel(context.Background())

	e.wg.Add(2)
	go e.acceptLoop()
	go e.reportLoop()
	return nil
}

// Stop closes the listener, tears down every live session, and waits for
// all goroutines to exit.
func (e *Engine) Stop() error {
	e.cancel()
	if e.listener != nil {
		e.listener.Close()
	}
	e.store.ForEach(func(s *Session) {
		s.markClosed()
		if s.miner != nil {
			s.miner.Close()
		}
		if s.pool != nil {
			s.pool.Close()
		}
	})
	e.wg.Wait()
	return nil
}

// SessionCount reports how many relays are currently live.
func (e *Engine) SessionCount() int { return e.store.Count() }

func (e *Engine) acceptLoop() {
	defer e.wg.Done()
	for {
		select {
		case <-e.ctx.Done():
			return
		default:
		}
		if tcp, ok := e.listener.(*net.TCPListener); ok {
			tcp.SetDeadline(time.Now().Add(time.Second))
		}
		conn, err := e.listener.Accept()
		if err != nil {
			if e.ctx.Err() != nil {
				return
			}
			continue
		}
		e.wg.Add(1)
		go func() {
			defer e.wg.Done()
			e.HandleConnection(e.ctx, conn)
		}()
	}
}

// reportLoop drains each session's period counters every ReportInterval
// and forwards the snapshot to the control plane's hashrate endpoint
// (spec.md §4.5/§4.6).
func (e *Engine) reportLoop() {
	defer e.wg.Done()
	ticker := time.NewTicker(hashrate.ReportInterval)
	defer ticker.Stop()
	for {
		select {
		case <-e.ctx.Done():
			return
		case <-ticker.C:
			now := e.now()
			e.store.ForEach(func(s *Session) {
				accepted, rejected, hashrate, accuracy, low := s.Accountant.Report(now)
				e.cp.Hashrate(e.ctx, s.WorkerID, hashrate, accuracy, accepted, rejected, low)
				if e.metrics != nil {
					e.metrics.HashrateRecorded(s.WorkerID, hashrate)
				}
			})
		}
	}
}

// HandleConnection drives one miner socket end to end: handshake, dial
// the destination pool, relay in both directions, and clean up exactly
// once on either side's termination.
func (e *Engine) HandleConnection(ctx context.Context, miner net.Conn) {
	defer miner.Close()

	remoteIP, _, _ := net.SplitHostPort(miner.RemoteAddr().String())
	reader := bufio.NewReader(miner)

	session, userAgent, err := e.handshake(ctx, miner, reader, remoteIP)
	if err != nil {
		e.logger.Printf("stratum: handshake from %s failed: %v", remoteIP, err)
		return
	}
	defer func() {
		if session.markClosed() {
			session.pool.Close()
			e.store.Remove(session)
			e.cp.Disconnect(ctx, session.WorkerID, "connection closed")
			if e.metrics != nil {
				e.metrics.ConnectionClosed()
			}
		}
	}()

	if evicted := e.store.Put(session); evicted != nil {
		evicted.markClosed()
		evicted.miner.Close()
		evicted.pool.Close()
		e.store.Remove(evicted)
		e.cp.Disconnect(ctx, evicted.WorkerID, "superseded by new connection")
		if e.metrics != nil {
			e.metrics.ConnectionClosed()
		}
	}
	e.cp.Connect(ctx, session.WorkerID, remoteIP, userAgent)
	if e.metrics != nil {
		e.metrics.ConnectionOpened()
	}

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		e.minerToPool(session, reader)
		session.pool.Close()
		miner.Close()
	}()
	go func() {
		defer wg.Done()
		e.poolToMiner(session)
		miner.Close()
		session.pool.Close()
	}()
	wg.Wait()
}

// handshake reads lines from the miner until it has resolved a worker id
// and opened the destination pool connection, then replays the
// authorize/login to the pool. mining.subscribe is answered locally
// (spec.md §4.4 step 2); everything else blocks on a control-plane
// lookup before the relay can begin.
func (e *Engine) handshake(ctx context.Context, miner net.Conn, reader *bufio.Reader, remoteIP string) (*Session, string, error) {
	deadline := time.Now().Add(e.cfg.HandshakeTimeout)
	miner.SetReadDeadline(deadline)

	userAgent := ""
	for {
		line, err := readLine(reader)
		if err != nil {
			return nil, "", fmt.Errorf("%w: %v", ErrHandshakeTimeout, err)
		}
		if len(line) == 0 {
			continue // B3: a bare newline is not a frame
		}

		var env envelope
		if err := json.Unmarshal(line, &env); err != nil {
			miner.Write(append(encodeErrorResponse(nil, 20, "parse error"), '\n'))
			continue
		}

		switch env.Method {
		case "mining.subscribe":
			if ua, ok := firstStringParam(env.Params); ok {
				userAgent = ua
			}
			resp := encodeSubscribeResponse(env.ID, randomHex(8), randomHex(4), 4)
			miner.Write(append(resp, '\n'))

		case "mining.authorize":
			return e.completeHandshakeA(ctx, miner, remoteIP, userAgent, env)

		case "login":
			return e.completeHandshakeB(ctx, miner, remoteIP, env)

		default:
			miner.Write(append(encodeErrorResponse(env.ID, 20, "unexpected method before authorize/login"), '\n'))
		}

		if time.Now().After(deadline) {
			return nil, "", ErrHandshakeTimeout
		}
	}
}

func firstStringParam(params json.RawMessage) (string, bool) {
	var args []json.RawMessage
	if err := json.Unmarshal(params, &args); err != nil || len(args) == 0 {
		return "", false
	}
	var s string
	if err := json.Unmarshal(args[0], &s); err != nil {
		return "", false
	}
	return s, true
}

func (e *Engine) completeHandshakeA(ctx context.Context, miner net.Conn, remoteIP, userAgent string, env envelope) (*Session, string, error) {
	var args []json.RawMessage
	if err := json.Unmarshal(env.Params, &args); err != nil || len(args) == 0 {
		miner.Write(append(encodeErrorResponse(env.ID, 24, "invalid authorize params"), '\n'))
		return nil, "", ErrInvalidLogin
	}
	var login string
	if err := json.Unmarshal(args[0], &login); err != nil {
		miner.Write(append(encodeErrorResponse(env.ID, 24, "invalid worker name"), '\n'))
		return nil, "", ErrInvalidLogin
	}

	workerID, _ := splitWorkerID(login)
	lookup, session, err := e.resolveAndDial(ctx, miner, env.ID, workerID, remoteIP)
	if err != nil {
		return nil, "", err
	}
	session.UserAgent = userAgent
	session.setDialect(DialectA)

	rewritten, err := rewriteAuthorizeA(env.Params, lookup.Destination)
	if err != nil {
		miner.Write(append(encodeErrorResponse(env.ID, 24, "rewrite failed"), '\n'))
		session.pool.Close()
		return nil, "", ErrInvalidLogin
	}
	if err := writeEnvelope(session.pool, env.ID, "mining.authorize", rewritten); err != nil {
		miner.Write(append(encodeErrorResponse(env.ID, 24, "pool authorize failed"), '\n'))
		session.pool.Close()
		return nil, "", ErrPoolUnreachable
	}

	session.setPhase(PhaseStreaming)
	return session, userAgent, nil
}

func (e *Engine) completeHandshakeB(ctx context.Context, miner net.Conn, remoteIP string, env envelope) (*Session, string, error) {
	p, err := decodeLoginB(env.Params)
	if err != nil || p.Login == "" {
		miner.Write(append(encodeErrorResponse(env.ID, 24, "invalid login params"), '\n'))
		return nil, "", ErrInvalidLogin
	}

	workerID, _ := splitWorkerID(p.Login)
	lookup, session, err := e.resolveAndDial(ctx, miner, env.ID, workerID, remoteIP)
	if err != nil {
		return nil, "", err
	}
	session.UserAgent = p.Agent
	session.setDialect(DialectB)

	rewritten := rewriteLoginB(p.Agent, lookup.Destination)
	if err := writeEnvelope(session.pool, env.ID, "login", rewritten); err != nil {
		miner.Write(append(encodeErrorResponse(env.ID, 24, "pool login failed"), '\n'))
		session.pool.Close()
		return nil, "", ErrPoolUnreachable
	}

	session.setPhase(PhaseStreaming)
	return session, p.Agent, nil
}

// resolveAndDial validates a candidate worker id against the control
// plane and, on success, opens the destination pool connection.
func (e *Engine) resolveAndDial(ctx context.Context, miner net.Conn, id json.RawMessage, workerID, remoteIP string) (OrderLookup, *Session, error) {
	if !looksLikeOrderCode(workerID) {
		miner.Write(append(encodeErrorResponse(id, 24, "unknown worker"), '\n'))
		return OrderLookup{}, nil, ErrUnknownWorker
	}

	lookup, err := e.cp.GetOrderByWorker(ctx, workerID)
	if err != nil || (lookup.Status != orders.StatusPaid && lookup.Status != orders.StatusActive) {
		miner.Write(append(encodeErrorResponse(id, 24, "unknown or inactive worker"), '\n'))
		return OrderLookup{}, nil, ErrUnknownWorker
	}

	dialCtx, cancel := context.WithTimeout(ctx, e.cfg.DialTimeout)
	defer cancel()
	poolConn, err := e.dialer.DialPool(dialCtx, lookup.Destination)
	if err != nil {
		miner.Write(append(encodeErrorResponse(id, 25, "destination pool unreachable"), '\n'))
		return OrderLookup{}, nil, ErrPoolUnreachable
	}

	session := newSession(workerID, miner, lookup.OrderedHashrate)
	session.OrderID = lookup.OrderID
	session.RemoteIP = remoteIP
	session.Destination = lookup.Destination
	session.pool = poolConn
	return lookup, session, nil
}

func writeEnvelope(conn net.Conn, id json.RawMessage, method string, params json.RawMessage) error {
	msg := struct {
		ID     json.RawMessage `json:"id"`
		Method string          `json:"method"`
		Params json.RawMessage `json:"params"`
	}{ID: id, Method: method, Params: params}
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	_, err = conn.Write(append(data, '\n'))
	return err
}

// minerToPool relays every line the miner sends onward to the pool,
// rewriting mining.submit/submit credentials and recording pending
// submits for reply correlation.
func (e *Engine) minerToPool(s *Session, reader *bufio.Reader) {
	for {
		s.miner.SetReadDeadline(time.Now().Add(session600IdleTimeout(e)))
		line, err := readLine(reader)
		if err != nil {
			return
		}
		if len(line) == 0 {
			continue
		}

		var env envelope
		if err := json.Unmarshal(line, &env); err != nil {
			continue
		}

		switch {
		case s.Dialect() == DialectA && env.Method == "mining.submit":
			now := time.Now()
			s.recordSubmit(canonicalID(env.ID), now)
			rewritten, err := rewriteSubmitA(env.Params, s.Destination)
			if err != nil {
				continue
			}
			writeEnvelope(s.pool, env.ID, env.Method, rewritten)

		case s.Dialect() == DialectB && env.Method == "submit":
			now := time.Now()
			s.recordSubmit(canonicalID(env.ID), now)
			s.pool.Write(append(line, '\n'))

		default:
			s.pool.Write(append(line, '\n'))
		}
	}
}

// poolToMiner relays every line the pool sends back to the miner
// unchanged, resolving share outcomes against pending submits and
// tracking difficulty updates.
func (e *Engine) poolToMiner(s *Session) {
	reader := bufio.NewReader(s.pool)
	for {
		line, err := readLine(reader)
		if err != nil {
			return
		}
		if len(line) == 0 {
			continue
		}

		var env envelope
		if err := json.Unmarshal(line, &env); err == nil {
			e.observePoolLine(s, env)
		}

		s.miner.Write(append(line, '\n'))
	}
}

func (e *Engine) observePoolLine(s *Session, env envelope) {
	now := time.Now()

	if env.isReply() {
		id := canonicalID(env.ID)
		if difficulty, ok := s.resolveSubmit(id); ok {
			outcome := ShareRejected
			if !env.hasError() && env.resultIsTruthy() {
				outcome = ShareAccepted
				s.Accountant.RecordAccepted(difficulty, now)
			} else {
				s.Accountant.RecordRejected()
			}
			if e.shares != nil {
				e.shares.RecordShare(e.ctx, s.WorkerID, outcome, difficulty, now)
			}
			e.cp.Share(e.ctx, s.WorkerID, outcome, difficulty, now)
			if e.metrics != nil {
				e.metrics.ShareRecorded(string(outcome))
			}
		}
		return
	}

	switch env.Method {
	case "mining.set_difficulty":
		var args []float64
		if json.Unmarshal(env.Params, &args) == nil && len(args) > 0 {
			s.setDifficulty(args[0])
		}
	case "job":
		var p struct {
			Target string `json:"target"`
		}
		if json.Unmarshal(env.Params, &p) == nil && p.Target != "" {
			if diff, ok := difficultyFromTargetHex(p.Target); ok {
				s.setDifficulty(diff)
			}
		}
	}
}

func session600IdleTimeout(e *Engine) time.Duration {
	if e.cfg.IdleTimeout > 0 {
		return e.cfg.IdleTimeout
	}
	return 600 * time.Second
}

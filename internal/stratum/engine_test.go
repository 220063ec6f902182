package stratum

import (
	"bufio"
	"context"
	"encoding/json"
	"net"
	"testing"
	"time"

	"github.com/hashmarket/hashmarket-core/internal/orders"
)

func readJSONLine(t *testing.T, r *bufio.Reader) map[string]interface{} {
	t.Helper()
	line, err := r.ReadString('\n')
	if err != nil {
		t.Fatalf("read line: %v", err)
	}
	var m map[string]interface{}
	if err := json.Unmarshal([]byte(line), &m); err != nil {
		t.Fatalf("unmarshal %q: %v", line, err)
	}
	return m
}

func writeLine(t *testing.T, conn net.Conn, line string) {
	t.Helper()
	if _, err := conn.Write([]byte(line + "\n")); err != nil {
		t.Fatalf("write line: %v", err)
	}
}

// TestEngine_DialectA_HandshakeRelayAndShareAccounting exercises the full
// dialect-A path end to end: subscribe is answered locally, authorize is
// rewritten to the pool's wallet.worker credential and replayed with the
// same request id, and an accepted submit reply is counted and reported
// through ShareRecorder (P4, P3).
func TestEngine_DialectA_HandshakeRelayAndShareAccounting(t *testing.T) {
	cp := NewFakeControlPlane()
	workerID := "hb_ord_abc123"
	cp.Seed(workerID, OrderLookup{
		OrderID: "order-1",
		Destination: orders.PoolDestination{
			Host: "pool.example.com", Port: 3333,
			Wallet: "wallet1", Worker: "rig1", Password: "x",
		},
		Status:          orders.StatusActive,
		OrderedHashrate: 1_000_000,
	})
	dialer := NewPipeDialer()
	recorder := NewFakeShareRecorder()
	engine := NewEngine(DefaultConfig(), cp, dialer, recorder, nil)

	minerSide, proxySide := net.Pipe()
	done := make(chan struct{})
	go func() {
		engine.HandleConnection(context.Background(), proxySide)
		close(done)
	}()

	minerReader := bufio.NewReader(minerSide)

	writeLine(t, minerSide, `{"id":1,"method":"mining.subscribe","params":["miner/1.0"]}`)
	sub := readJSONLine(t, minerReader)
	if sub["id"] != float64(1) {
		t.Fatalf("subscribe reply id = %v, want 1", sub["id"])
	}

	writeLine(t, minerSide, `{"id":2,"method":"mining.authorize","params":["hb_ord_abc123.rig1","anything"]}`)

	var poolConn net.Conn
	select {
	case poolConn = <-dialer.Dialed:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for the engine to dial the destination pool")
	}
	poolReader := bufio.NewReader(poolConn)

	authLine := readJSONLine(t, poolReader)
	if authLine["id"] != float64(2) {
		t.Fatalf("authorize forwarded with id %v, want 2 (same id reused)", authLine["id"])
	}
	params, _ := authLine["params"].([]interface{})
	if len(params) < 1 || params[0] != "wallet1.rig1" {
		t.Fatalf("authorize params = %v, want pool credential wallet1.rig1 substituted in", params)
	}

	writeLine(t, poolConn, `{"id":2,"result":true,"error":null}`)
	authReply := readJSONLine(t, minerReader)
	if authReply["result"] != true {
		t.Fatalf("expected the pool's authorize reply to reach the miner unchanged")
	}

	writeLine(t, minerSide, `{"id":3,"method":"mining.submit","params":["hb_ord_abc123.rig1","job1","ex2","ntime","nonce"]}`)
	submitLine := readJSONLine(t, poolReader)
	submitParams, _ := submitLine["params"].([]interface{})
	if len(submitParams) < 1 || submitParams[0] != "wallet1.rig1" {
		t.Fatalf("submit params = %v, want worker name rewritten to wallet1.rig1", submitParams)
	}

	writeLine(t, poolConn, `{"id":3,"result":true,"error":null}`)
	submitReply := readJSONLine(t, minerReader)
	if submitReply["result"] != true {
		t.Fatalf("expected the pool's submit reply to reach the miner unchanged")
	}

	deadline := time.Now().Add(2 * time.Second)
	for len(recorder.Calls()) == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	calls := recorder.Calls()
	if len(calls) != 1 || calls[0].Outcome != ShareAccepted {
		t.Fatalf("RecordShare calls = %+v, want one accepted share", calls)
	}

	minerSide.Close()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("HandleConnection did not return after the miner closed")
	}
	if n := cp.DisconnectCount(workerID); n != 1 {
		t.Fatalf("Disconnect called %d times, want exactly 1 (R2)", n)
	}
}

// TestEngine_UnknownWorkerRejectedDuringHandshake covers the control
// plane resolving nothing for an authorize attempt.
func TestEngine_UnknownWorkerRejectedDuringHandshake(t *testing.T) {
	cp := NewFakeControlPlane()
	dialer := NewPipeDialer()
	engine := NewEngine(DefaultConfig(), cp, dialer, NewFakeShareRecorder(), nil)

	minerSide, proxySide := net.Pipe()
	done := make(chan struct{})
	go func() {
		engine.HandleConnection(context.Background(), proxySide)
		close(done)
	}()

	minerReader := bufio.NewReader(minerSide)
	writeLine(t, minerSide, `{"id":1,"method":"mining.authorize","params":["hb_ord_nosuchorder.rig","x"]}`)
	reply := readJSONLine(t, minerReader)
	if reply["error"] == nil {
		t.Fatalf("expected an error reply for an unresolvable worker id")
	}

	minerSide.Close()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("HandleConnection did not return after rejecting the handshake")
	}
}

// TestEngine_DialectB_LoginRewritesCredentials covers the CryptoNight/
// RandomX login dialect.
func TestEngine_DialectB_LoginRewritesCredentials(t *testing.T) {
	cp := NewFakeControlPlane()
	workerID := "hb_ord_xmr001"
	cp.Seed(workerID, OrderLookup{
		OrderID: "order-2",
		Destination: orders.PoolDestination{
			Host: "xmrpool.example.com", Port: 4444,
			Wallet: "4Axxxx", Password: "x",
		},
		Status:          orders.StatusActive,
		OrderedHashrate: 5000,
	})
	dialer := NewPipeDialer()
	engine := NewEngine(DefaultConfig(), cp, dialer, NewFakeShareRecorder(), nil)

	minerSide, proxySide := net.Pipe()
	done := make(chan struct{})
	go func() {
		engine.HandleConnection(context.Background(), proxySide)
		close(done)
	}()

	writeLine(t, minerSide, `{"id":1,"method":"login","params":{"login":"hb_ord_xmr001","pass":"x","agent":"xmrig/6.0"}}`)

	var poolConn net.Conn
	select {
	case poolConn = <-dialer.Dialed:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for the engine to dial the destination pool")
	}
	poolReader := bufio.NewReader(poolConn)
	loginLine := readJSONLine(t, poolReader)
	params, _ := loginLine["params"].(map[string]interface{})
	if params["login"] != "4Axxxx" {
		t.Fatalf("login params = %v, want wallet credential substituted in", params)
	}

	minerSide.Close()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("HandleConnection did not return")
	}
}

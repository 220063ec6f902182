// Package stratum implements the dual-dialect Stratum relay: handshake,
// worker-id resolution, credential rewriting, and submit/reply
// correlation over a single TCP socket per miner (spec.md §4.4 equivalent
// component design). Adapted from the teacher's internal/stratum package
// — message.go's duck-typed JSON-RPC shapes and pool_coordinator.go's
// accept/process loop are generalized here from a single in-house ASIC
// dialect into a detect, rewrite, and relay engine fronting a real
// third-party destination pool.
package stratum

import (
	"bufio"
	"bytes"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
)

// MaxLineBytes bounds a single newline-delimited Stratum frame (B3).
const MaxLineBytes = 64 * 1024

// envelope is the superset of fields either dialect's JSON-RPC line may
// carry, kept as raw JSON so the dispatcher can inspect just the method
// before a dialect-specific decoder re-parses params/result/error
// precisely. Adapted from the teacher's StratumMessage/StratumResponse.
type envelope struct {
	ID     json.RawMessage `json:"id,omitempty"`
	Method string          `json:"method,omitempty"`
	Params json.RawMessage `json:"params,omitempty"`
	Result json.RawMessage `json:"result,omitempty"`
	Error  json.RawMessage `json:"error,omitempty"`
}

// isReply reports whether env looks like a response (no method, carries
// an id) rather than a request or notification.
func (e envelope) isReply() bool {
	return e.Method == "" && len(e.ID) > 0 && string(e.ID) != "null"
}

func (e envelope) hasError() bool {
	return len(e.Error) > 0 && string(e.Error) != "null"
}

// resultIsTruthy reports whether a reply's result should be treated as an
// accepted share: boolean true, or any non-null, non-false value (pools
// reply to dialect-B submits with an object like {"status":"OK"}).
func (e envelope) resultIsTruthy() bool {
	r := bytes.TrimSpace(e.Result)
	if len(r) == 0 || string(r) == "null" || string(r) == "false" {
		return false
	}
	return true
}

// readLine reads one newline-delimited frame, trimming a trailing
// "\r\n"/"\n". A bare newline decodes to a zero-length, non-error slice,
// which callers must ignore per B3 rather than treat as a protocol error.
func readLine(r *bufio.Reader) ([]byte, error) {
	line, err := r.ReadBytes('\n')
	if err != nil {
		return nil, err
	}
	if len(line) > MaxLineBytes {
		return nil, ErrLineTooLong
	}
	return bytes.TrimRight(line, "\r\n"), nil
}

// canonicalID normalizes a JSON-RPC id's raw encoding to a comparable
// string so "1" and "1.0" (some pools re-serialize numeric ids) still
// correlate with the id the proxy originally forwarded.
func canonicalID(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			return s
		}
		return string(raw)
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err != nil {
		return string(raw)
	}
	if f == float64(int64(f)) {
		return itoa(int64(f))
	}
	return string(raw)
}

func itoa(n int64) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}

func randomHex(n int) string {
	buf := make([]byte, n)
	rand.Read(buf) //nolint:errcheck // crypto/rand failing here is unrecoverable; a zeroed value just means a bland extranonce.
	return hex.EncodeToString(buf)
}

// encodeSubscribeResponse synthesizes a local mining.subscribe reply. The
// proxy is free to make these up (spec.md §4.4 step 2); real subscription
// parameters are renegotiated with the destination pool during the
// authorize replay, adapted from the teacher's NewSubscribeResponse.
func encodeSubscribeResponse(id json.RawMessage, subscriptionID, extranonce1 string, extranonce2Size int) []byte {
	msg := struct {
		ID     json.RawMessage `json:"id"`
		Result []interface{}   `json:"result"`
		Error  interface{}     `json:"error"`
	}{
		ID: id,
		Result: []interface{}{
			[][]string{{"mining.notify", subscriptionID}},
			extranonce1,
			extranonce2Size,
		},
	}
	data, _ := json.Marshal(msg)
	return data
}

// encodeErrorResponse builds a JSON-RPC error reply, adapted from the
// teacher's NewErrorResponse (error shape: [code, message, null]).
func encodeErrorResponse(id json.RawMessage, code int, message string) []byte {
	msg := struct {
		ID     json.RawMessage `json:"id"`
		Result interface{}     `json:"result"`
		Error  []interface{}   `json:"error"`
	}{ID: id, Error: []interface{}{code, message, nil}}
	data, _ := json.Marshal(msg)
	return data
}

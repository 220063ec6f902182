package stratum

import (
	"encoding/json"
	"strings"

	"github.com/hashmarket/hashmarket-core/internal/orders"
)

// splitWorkerID pulls the order code (the sole Stratum login token, per
// orders.OrderCodePrefix) out of a dialect-A "worker.rig" login or a
// dialect-B flat login field, discarding whatever rig/suffix suffix the
// miner appended after a dot.
func splitWorkerID(login string) (workerID, suffix string) {
	if i := strings.IndexByte(login, '.'); i >= 0 {
		return login[:i], login[i+1:]
	}
	return login, ""
}

// looksLikeOrderCode reports whether login has the hb_ord_ shape the
// control plane issues, before spending a round trip resolving it.
func looksLikeOrderCode(login string) bool {
	return strings.HasPrefix(login, orders.OrderCodePrefix) && len(login) > len(orders.OrderCodePrefix)
}

// poolCredential formats the real destination pool's login per spec.md
// §4.4 step 5: "wallet.worker" when a worker name is configured, the
// bare wallet otherwise.
func poolCredential(dest orders.PoolDestination) string {
	if dest.Worker == "" {
		return dest.Wallet
	}
	return dest.Wallet + "." + dest.Worker
}

// -----------------------------------------------------------------------------
// Dialect A: mining.subscribe / mining.authorize / mining.submit
// -----------------------------------------------------------------------------

// rewriteAuthorizeA replaces the miner's worker.rig login with the pool's
// real wallet.worker credential inside a mining.authorize params array,
// reusing the original request id so the pool's reply threads straight
// back to the miner (P4: worker credentials never reach the pool).
func rewriteAuthorizeA(params json.RawMessage, dest orders.PoolDestination) (json.RawMessage, error) {
	var args []json.RawMessage
	if err := json.Unmarshal(params, &args); err != nil {
		return nil, err
	}
	cred, _ := json.Marshal(poolCredential(dest))
	if len(args) == 0 {
		args = []json.RawMessage{cred}
	} else {
		args[0] = cred
	}
	if len(args) == 1 {
		pw, _ := json.Marshal(dest.Password)
		args = append(args, pw)
	} else {
		pw, _ := json.Marshal(dest.Password)
		args[1] = pw
	}
	return json.Marshal(args)
}

// rewriteSubmitA replaces the miner's worker.rig name in a mining.submit
// params array with the pool's wallet.worker credential, leaving the
// job id, extranonce2, ntime, and nonce fields untouched.
func rewriteSubmitA(params json.RawMessage, dest orders.PoolDestination) (json.RawMessage, error) {
	var args []json.RawMessage
	if err := json.Unmarshal(params, &args); err != nil {
		return nil, err
	}
	if len(args) == 0 {
		return params, nil
	}
	cred, _ := json.Marshal(poolCredential(dest))
	args[0] = cred
	return json.Marshal(args)
}

// -----------------------------------------------------------------------------
// Dialect B: {"method":"login","params":{"login":...,"pass":...,"agent":...}}
// -----------------------------------------------------------------------------

type loginParamsB struct {
	Login string          `json:"login"`
	Pass  string          `json:"pass"`
	Agent string          `json:"agent,omitempty"`
	Rest  json.RawMessage `json:"-"`
}

// decodeLoginB extracts login/pass/agent from a dialect-B login request,
// tolerating pools that add extra fields this proxy doesn't care about.
func decodeLoginB(params json.RawMessage) (loginParamsB, error) {
	var p struct {
		Login string `json:"login"`
		Pass  string `json:"pass"`
		Agent string `json:"agent"`
	}
	if err := json.Unmarshal(params, &p); err != nil {
		return loginParamsB{}, err
	}
	return loginParamsB{Login: p.Login, Pass: p.Pass, Agent: p.Agent}, nil
}

// rewriteLoginB re-encodes a dialect-B login with the pool's wallet.worker
// credential substituted in place of the miner's order code.
func rewriteLoginB(agent string, dest orders.PoolDestination) json.RawMessage {
	out := struct {
		Login string `json:"login"`
		Pass  string `json:"pass"`
		Agent string `json:"agent,omitempty"`
	}{
		Login: poolCredential(dest),
		Pass:  dest.Password,
		Agent: agent,
	}
	data, _ := json.Marshal(out)
	return data
}

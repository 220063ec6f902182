package stratum

import (
	"math/big"
	"strings"
)

// maxTarget256 is 2^256 - 1, the difficulty-1 target.
var maxTarget256 = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1))

// difficultyFromTargetHex recovers a dialect-B session's difficulty from
// the hex target a pool sends in its job notification, per
// difficulty = (2^256-1) / target / 2^32. Best-effort: an unparsable or
// zero target leaves the session's difficulty unchanged (spec.md §4.4's
// dialect-B difficulty recovery is advisory, not authoritative).
func difficultyFromTargetHex(hexTarget string) (float64, bool) {
	hexTarget = strings.TrimPrefix(strings.TrimSpace(hexTarget), "0x")
	if hexTarget == "" {
		return 0, false
	}
	target, ok := new(big.Int).SetString(hexTarget, 16)
	if !ok || target.Sign() <= 0 {
		return 0, false
	}
	quot := new(big.Int).Div(maxTarget256, target)
	f := new(big.Float).SetInt(quot)
	f.Quo(f, big.NewFloat(4294967296.0))
	result, _ := f.Float64()
	if result <= 0 {
		return 0, false
	}
	return result, true
}

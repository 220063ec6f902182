package orders

import (
	"crypto/rand"
	"fmt"
)

// OrderCodePrefix is the fixed lead-in documented in spec.md §6: "String
// matching hb_ord_<alphanumeric>". Exported so callers outside this
// package (the Stratum engine's handshake) can validate a worker id's
// shape before looking it up.
const OrderCodePrefix = "hb_ord_"

const orderCodePrefix = OrderCodePrefix

// orderCodeAlphabet is the URL-safe base62 character set used for the
// random suffix. spec.md §9 leaves the character set and length
// unspecified ("generate_order_code() is referenced as a database
// function ... an implementation must fix this choice"); 8 characters of
// base62 gives ~47 bits of entropy per code, ample for collision-checked
// generation at marketplace scale.
const orderCodeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

const orderCodeSuffixLen = 8

// GenerateOrderCode returns a new random order code of the form
// hb_ord_XXXXXXXX. Callers must collision-check against storage before
// accepting it (spec.md §9's recommended approach).
func GenerateOrderCode() (string, error) {
	buf := make([]byte, orderCodeSuffixLen)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate order code: %w", err)
	}
	suffix := make([]byte, orderCodeSuffixLen)
	for i, b := range buf {
		suffix[i] = orderCodeAlphabet[int(b)%len(orderCodeAlphabet)]
	}
	return orderCodePrefix + string(suffix), nil
}

package stratum

import "errors"

var (
	// ErrLineTooLong is returned when a single newline-delimited frame
	// exceeds MaxLineBytes (B3: "line longer than 64 KiB terminates the
	// session").
	ErrLineTooLong = errors.New("stratum: line exceeds 64KiB limit")

	// ErrHandshakeTimeout means the miner never completed subscribe/authorize
	// within the handshake window (spec.md §5: "Handshake 30s").
	ErrHandshakeTimeout = errors.New("stratum: handshake not completed within timeout")

	// ErrUnknownWorker means the worker id did not resolve to a payable
	// order.
	ErrUnknownWorker = errors.New("stratum: worker id does not resolve to a payable order")

	// ErrInvalidLogin means the authorize/login message was malformed.
	ErrInvalidLogin = errors.New("stratum: malformed login/authorize message")

	// ErrPoolUnreachable means the destination pool refused the connection
	// on both its primary and backup address.
	ErrPoolUnreachable = errors.New("stratum: could not open destination pool connection")
)

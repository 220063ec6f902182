package orders

import "errors"

var (
	// ErrListingNotActive is returned by Create when the listing is not
	// currently available for rent.
	ErrListingNotActive = errors.New("listing is not active")

	// ErrBuyerIsSeller is returned by Create when buyer and seller are the
	// same user.
	ErrBuyerIsSeller = errors.New("buyer cannot rent their own listing")

	// ErrHoursOutOfRange is returned by Create when hours falls outside
	// [listing.MinHours, listing.MaxHours] (B1).
	ErrHoursOutOfRange = errors.New("hours outside listing's allowed range")

	// ErrBuyerBanned is returned by Create for a banned buyer.
	ErrBuyerBanned = errors.New("buyer is banned")

	// ErrOrderNotFound is returned when an order code or id does not
	// resolve to a stored order.
	ErrOrderNotFound = errors.New("order not found")

	// ErrOrderTerminal is returned by any transition attempted on an
	// order already in a terminal state, including a dispute opened after
	// admin action already settled it.
	ErrOrderTerminal = errors.New("order is in a terminal state")

	// ErrInvalidTransition is returned when a transition is attempted
	// from a status that does not permit it.
	ErrInvalidTransition = errors.New("invalid order state transition")

	// ErrDisputeInvalidState is returned when a dispute resolution is
	// attempted on an order in neither the dispute nor the delivering state.
	ErrDisputeInvalidState = errors.New("DISPUTE_INVALID_STATE")

	// ErrInvalidPoolDestination is returned by Create when one of the
	// buyer-supplied pool destination fields fails content validation
	// (internal/validation.ValidatePoolDestinationField).
	ErrInvalidPoolDestination = errors.New("invalid pool destination")
)

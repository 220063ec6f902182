// Package external declares the Go-side seam for every out-of-scope
// collaborator named in spec.md §6: listing search, wallet/profile,
// messaging/notifications, ratings, on-chain deposit verification, and
// the admin UI backend. None of these are built out (spec.md
// Non-goals) — only the interface and a no-op implementation exist,
// the same pattern as the teacher's
// internal/payouts.NullMergedMiningProvider for a subsystem it also
// declares but does not wire up.
package external

import "context"

// ListingSearch would back marketplace listing discovery/pagination —
// out of scope; this core only needs Listing lookup by id
// (internal/orders.Repository.GetListing), never search.
type ListingSearch interface {
	Search(ctx context.Context, query string, page, limit int) ([]string, error)
}

// WalletProfileService would back wallet-connect and seller/buyer
// profile endpoints — out of scope; this core only needs the
// PoolDestination wallet fields already carried on an Order.
type WalletProfileService interface {
	ProfileFor(ctx context.Context, userID string) (map[string]string, error)
}

// MessagingNotifier would deliver order/dispute notifications to buyers
// and sellers out-of-band (email, push, in-app) — out of scope.
type MessagingNotifier interface {
	Notify(ctx context.Context, userID, message string) error
}

// RatingsService would let a buyer or seller rate each other after a
// completed order — out of scope.
type RatingsService interface {
	RecordRating(ctx context.Context, orderID string, stars int, comment string) error
}

// OnChainDepositVerifier would confirm an incoming crypto deposit
// against a block explorer or node before CreditDeposit runs — out of
// scope; ledger.Service.CreditDeposit is idempotent on external_tx_hash
// and assumes its caller already verified the chain.
type OnChainDepositVerifier interface {
	VerifyDeposit(ctx context.Context, txHash string, minConfirmations int) (bool, error)
}

// AdminUIBackend would serve the dispute-review web console's static
// assets and session handling — out of scope; internal/api's dispute
// endpoints are consumed directly, without a UI layer in this core.
type AdminUIBackend interface {
	ServeSession(ctx context.Context, adminID string) (string, error)
}

// CatalogReader would back administrative CRUD over pool/algorithm
// catalogs a listing references — out of scope; Listing.Algorithm is a
// free-form string this core never validates against a catalog.
type CatalogReader interface {
	Algorithms(ctx context.Context) ([]string, error)
}

// NullCollaborators implements every interface above as a no-op,
// matching the teacher's NullMergedMiningProvider: wire this in when a
// concrete implementation has not been built, so a caller can hold the
// interface without a nil-pointer check at every call site.
type NullCollaborators struct{}

func (NullCollaborators) Search(ctx context.Context, query string, page, limit int) ([]string, error) {
	return nil, nil
}

func (NullCollaborators) ProfileFor(ctx context.Context, userID string) (map[string]string, error) {
	return nil, nil
}

func (NullCollaborators) Notify(ctx context.Context, userID, message string) error {
	return nil
}

func (NullCollaborators) RecordRating(ctx context.Context, orderID string, stars int, comment string) error {
	return nil
}

func (NullCollaborators) VerifyDeposit(ctx context.Context, txHash string, minConfirmations int) (bool, error) {
	return false, nil
}

func (NullCollaborators) ServeSession(ctx context.Context, adminID string) (string, error) {
	return "", nil
}

func (NullCollaborators) Algorithms(ctx context.Context) ([]string, error) {
	return nil, nil
}

var (
	_ ListingSearch          = NullCollaborators{}
	_ WalletProfileService   = NullCollaborators{}
	_ MessagingNotifier      = NullCollaborators{}
	_ RatingsService         = NullCollaborators{}
	_ OnChainDepositVerifier = NullCollaborators{}
	_ AdminUIBackend         = NullCollaborators{}
	_ CatalogReader          = NullCollaborators{}
)

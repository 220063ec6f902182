package ledger

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// =============================================================================
// MOCK IMPLEMENTATIONS FOR TESTING
// In-memory stand-ins for the ISP interfaces above, exercised by service
// tests that care about balance arithmetic rather than SQL wiring.
// =============================================================================

// MemoryRepository is an in-memory Repository for unit tests. It serializes
// WithAccountLock and WithOrderSettlement calls behind one mutex and guards
// its maps with another, which is enough to exercise the atomicity the real
// FOR UPDATE transactions provide without a database, while still letting
// fn call the repository's lookup methods.
type MemoryRepository struct {
	mu        sync.Mutex
	opMu      sync.Mutex
	accounts  map[uuid.UUID]*Account
	txns      []Transaction
	outcomes  map[uuid.UUID]ReleaseOutcome
	withdraws []WithdrawRequest
}

// NewMemoryRepository builds an empty MemoryRepository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		accounts: map[uuid.UUID]*Account{
			PlatformRevenueAccountID: {UserID: PlatformRevenueAccountID},
		},
		outcomes: map[uuid.UUID]ReleaseOutcome{},
	}
}

// Seed installs an account with the given balances, for test setup.
func (m *MemoryRepository) Seed(acct Account) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a := acct
	m.accounts[acct.UserID] = &a
}

func (m *MemoryRepository) account(id uuid.UUID) *Account {
	if a, ok := m.accounts[id]; ok {
		return a
	}
	a := &Account{UserID: id}
	m.accounts[id] = a
	return a
}

func (m *MemoryRepository) WithAccountLock(ctx context.Context, userID uuid.UUID, fn func(acct *Account) ([]Transaction, error)) error {
	m.opMu.Lock()
	defer m.opMu.Unlock()

	m.mu.Lock()
	acct := m.account(userID)
	snapshot := *acct
	m.mu.Unlock()

	rows, err := fn(&snapshot)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	*acct = snapshot
	m.txns = append(m.txns, rows...)
	return nil
}

func (m *MemoryRepository) WithOrderSettlement(ctx context.Context, buyerID, sellerID uuid.UUID, fn func(buyer, seller, platform *Account) ([]Transaction, error)) error {
	m.opMu.Lock()
	defer m.opMu.Unlock()
	m.mu.Lock()
	defer m.mu.Unlock()

	buyer := *m.account(buyerID)
	seller := *m.account(sellerID)
	platform := *m.account(PlatformRevenueAccountID)

	rows, err := fn(&buyer, &seller, &platform)
	if err != nil {
		return err
	}

	*m.accounts[buyerID] = buyer
	*m.accounts[sellerID] = seller
	*m.accounts[PlatformRevenueAccountID] = platform
	m.txns = append(m.txns, rows...)
	return nil
}

func (m *MemoryRepository) GetAccount(ctx context.Context, userID uuid.UUID) (*Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.accounts[userID]
	if !ok {
		return nil, ErrAccountNotFound
	}
	cp := *a
	return &cp, nil
}

func (m *MemoryRepository) FindDepositByExternalTxHash(ctx context.Context, hash string) (*Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.txns {
		if m.txns[i].Kind == KindDeposit && m.txns[i].ExternalTxHash != nil && *m.txns[i].ExternalTxHash == hash {
			cp := m.txns[i]
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *MemoryRepository) FindReleaseOutcome(ctx context.Context, orderID uuid.UUID) (*ReleaseOutcome, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if o, ok := m.outcomes[orderID]; ok {
		cp := o
		return &cp, nil
	}
	return nil, nil
}

func (m *MemoryRepository) SaveReleaseOutcome(ctx context.Context, outcome ReleaseOutcome) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.outcomes[outcome.OrderID]; ok {
		return nil
	}
	m.outcomes[outcome.OrderID] = outcome
	return nil
}

func (m *MemoryRepository) SaveWithdrawRequest(ctx context.Context, req WithdrawRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.withdraws = append(m.withdraws, req)
	return nil
}

// NoopLocker implements Locker as a process-local no-op, used where tests
// don't need cross-instance mutual exclusion.
type NoopLocker struct{}

func (NoopLocker) Lock(ctx context.Context, key string) (func(), error) {
	return func() {}, nil
}

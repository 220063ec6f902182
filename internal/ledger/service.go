package ledger

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/hashmarket/hashmarket-core/internal/money"
)

// Metrics receives counts of escrow lock/release calls. Satisfied by
// *internal/metrics.Registry; nil is a valid Service.metrics (every call
// site guards it).
type Metrics interface {
	EscrowLocked()
	EscrowReleased(outcome string)
}

// Service implements the four escrow primitives from §4.1. Every method is
// a single atomic unit; partial application is never visible to callers.
type Service struct {
	repo    Repository
	locks   Locker
	metrics Metrics
}

// NewService builds a Service. locks may be nil, in which case
// ReleaseEscrow relies solely on the account row locks taken by
// Repository.WithOrderSettlement (acceptable for a single control-plane
// instance; a Locker is required once there is more than one).
func NewService(repo Repository, locks Locker) *Service {
	return &Service{repo: repo, locks: locks}
}

// WithMetrics attaches a Metrics sink the service reports escrow
// lock/release events to.
func (s *Service) WithMetrics(metrics Metrics) *Service {
	s.metrics = metrics
	return s
}

func txRow(userID uuid.UUID, orderID *uuid.UUID, kind TransactionKind, compartment string, amount, before, after decimal.Decimal) Transaction {
	return Transaction{
		UserID:        userID,
		OrderID:       orderID,
		Kind:          kind,
		Compartment:   compartment,
		Amount:        amount,
		BalanceBefore: before,
		BalanceAfter:  after,
	}
}

// LockEscrow requires available >= amount; moves amount from available to
// escrow. Fails with ErrInsufficientFunds otherwise.
func (s *Service) LockEscrow(ctx context.Context, userID uuid.UUID, amount decimal.Decimal) error {
	if amount.Sign() <= 0 {
		return ErrNegativeAmount
	}
	err := s.repo.WithAccountLock(ctx, userID, func(acct *Account) ([]Transaction, error) {
		if acct.Banned {
			return nil, ErrAccountBanned
		}
		if acct.Available.LessThan(amount) {
			return nil, fmt.Errorf("%w: available=%s requested=%s", ErrInsufficientFunds, acct.Available, amount)
		}
		availBefore := acct.Available
		escrowBefore := acct.Escrow
		acct.Available = acct.Available.Sub(amount)
		acct.Escrow = acct.Escrow.Add(amount)
		return []Transaction{
			txRow(userID, nil, KindEscrowLock, "available", amount.Neg(), availBefore, acct.Available),
			txRow(userID, nil, KindEscrowLock, "escrow", amount, escrowBefore, acct.Escrow),
		}, nil
	})
	if err == nil && s.metrics != nil {
		s.metrics.EscrowLocked()
	}
	return err
}

// ReleaseEscrow requires payout+refund == totalPaid and commission <=
// payout. It atomically debits the buyer's escrow by totalPaid, credits
// the seller's available by payout-commission, credits the buyer's
// available by refund, and credits the platform revenue account by
// commission. It is idempotent per orderID: a repeated call returns the
// outcome recorded by the first successful call (P2).
func (s *Service) ReleaseEscrow(ctx context.Context, orderID, buyerID, sellerID uuid.UUID, totalPaid, payout, refund, commission decimal.Decimal) (*ReleaseOutcome, error) {
	if existing, err := s.repo.FindReleaseOutcome(ctx, orderID); err != nil {
		return nil, err
	} else if existing != nil {
		return existing, nil
	}

	if !payout.Add(refund).Equal(totalPaid) {
		return nil, fmt.Errorf("%w: payout(%s)+refund(%s) != total_paid(%s)", ErrInvalidSettlement, payout, refund, totalPaid)
	}
	if commission.GreaterThan(payout) {
		return nil, fmt.Errorf("%w: commission(%s) > payout(%s)", ErrInvalidSettlement, commission, payout)
	}

	if s.locks != nil {
		release, err := s.locks.Lock(ctx, "release_escrow:"+orderID.String())
		if err != nil {
			return nil, fmt.Errorf("acquire settlement lock: %w", err)
		}
		defer release()

		if existing, err := s.repo.FindReleaseOutcome(ctx, orderID); err != nil {
			return nil, err
		} else if existing != nil {
			return existing, nil
		}
	}

	sellerNet := payout.Sub(commission)

	err := s.repo.WithOrderSettlement(ctx, buyerID, sellerID, func(buyer, seller, platform *Account) ([]Transaction, error) {
		var rows []Transaction

		escrowBefore := buyer.Escrow
		buyer.Escrow = buyer.Escrow.Sub(totalPaid)
		rows = append(rows, txRow(buyerID, &orderID, KindPayout, "escrow", totalPaid.Neg(), escrowBefore, buyer.Escrow))

		if sellerNet.Sign() > 0 {
			before := seller.Available
			seller.Available = seller.Available.Add(sellerNet)
			rows = append(rows, txRow(sellerID, &orderID, KindPayout, "available", sellerNet, before, seller.Available))
		}

		if refund.Sign() > 0 {
			before := buyer.Available
			buyer.Available = buyer.Available.Add(refund)
			rows = append(rows, txRow(buyerID, &orderID, KindRefund, "available", refund, before, buyer.Available))
		}

		if commission.Sign() > 0 {
			before := platform.Available
			platform.Available = platform.Available.Add(commission)
			rows = append(rows, txRow(PlatformRevenueAccountID, &orderID, KindCommission, "available", commission, before, platform.Available))
		}

		return rows, nil
	})
	if err != nil {
		return nil, err
	}

	outcome := ReleaseOutcome{OrderID: orderID, Payout: payout, Refund: refund, Commission: commission}
	if err := s.repo.SaveReleaseOutcome(ctx, outcome); err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.EscrowReleased(releaseOutcomeShape(payout, refund))
	}

	return &outcome, nil
}

// releaseOutcomeShape labels a settlement by which side of the escrow it
// moved money to, for the EscrowReleased metric.
func releaseOutcomeShape(payout, refund decimal.Decimal) string {
	switch {
	case refund.Sign() == 0:
		return "full_payout"
	case payout.Sign() == 0:
		return "full_refund"
	default:
		return "partial"
	}
}

// CreditDeposit increments available by amount. Idempotent on
// externalTxHash: a second call with the same hash is a no-op that returns
// nil without mutating balances (P5).
func (s *Service) CreditDeposit(ctx context.Context, userID uuid.UUID, amount decimal.Decimal, externalTxHash string) error {
	if amount.Sign() <= 0 {
		return ErrNegativeAmount
	}
	if existing, err := s.repo.FindDepositByExternalTxHash(ctx, externalTxHash); err != nil {
		return err
	} else if existing != nil {
		return nil
	}

	return s.repo.WithAccountLock(ctx, userID, func(acct *Account) ([]Transaction, error) {
		// Re-check inside the lock: two concurrent deposits with the same
		// hash must not both pass the pre-check above.
		if existing, err := s.repo.FindDepositByExternalTxHash(ctx, externalTxHash); err != nil {
			return nil, err
		} else if existing != nil {
			return nil, nil
		}
		before := acct.Available
		acct.Available = acct.Available.Add(amount)
		hash := externalTxHash
		row := txRow(userID, nil, KindDeposit, "available", amount, before, acct.Available)
		row.ExternalTxHash = &hash
		return []Transaction{row}, nil
	})
}

// DebitWithdraw requires available >= amount+fee. It decrements available
// by amount+fee and records a withdraw request in state "pending" (amount
// above money.WithdrawApprovalThreshold requires admin approval) or
// "processing" otherwise.
func (s *Service) DebitWithdraw(ctx context.Context, userID uuid.UUID, amount decimal.Decimal, destination string) (*WithdrawRequest, error) {
	if amount.Sign() <= 0 {
		return nil, ErrNegativeAmount
	}
	fee := money.WithdrawFee
	total := amount.Add(fee)

	var req WithdrawRequest
	err := s.repo.WithAccountLock(ctx, userID, func(acct *Account) ([]Transaction, error) {
		if acct.Banned {
			return nil, ErrAccountBanned
		}
		if acct.Available.LessThan(total) {
			return nil, fmt.Errorf("%w: available=%s requested=%s", ErrInsufficientFunds, acct.Available, total)
		}
		before := acct.Available
		acct.Available = acct.Available.Sub(total)

		status := WithdrawProcessing
		if amount.GreaterThan(money.WithdrawApprovalThreshold) {
			status = WithdrawPending
		}
		req = WithdrawRequest{
			ID:          uuid.New(),
			UserID:      userID,
			Amount:      amount,
			Fee:         fee,
			Destination: destination,
			Status:      status,
		}

		return []Transaction{txRow(userID, nil, KindWithdraw, "available", total.Neg(), before, acct.Available)}, nil
	})
	if err != nil {
		return nil, err
	}

	if err := s.repo.SaveWithdrawRequest(ctx, req); err != nil {
		return nil, err
	}
	return &req, nil
}

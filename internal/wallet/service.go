package wallet

import (
	"context"
	"fmt"
	"time"

	"github.com/sokoni-app/sokoni_wallet/internal/ledger"
	"github.com/sokoni-app/sokoni_wallet/internal/notification"
	"github.com/sokoni-app/sokoni_wallet/internal/settlement"
)

// Service coordinates wallet funding and withdrawal against the ledger store,
// scheduling settlement for every pending transaction it creates.
type Service struct {
	store     ledger.Store
	scheduler settlement.Scheduler
	notifier  notification.Notifier
}

// NewService builds a wallet service instance.
func NewService(store ledger.Store, scheduler settlement.Scheduler, notifier notification.Notifier) *Service {
	return &Service{store: store, scheduler: scheduler, notifier: notifier}
}

// FundInput captures the data for a wallet top-up.
type FundInput struct {
	OwnerID string
	Amount  int64
	Method  string
}

// WithdrawInput captures the data for a wallet withdrawal.
type WithdrawInput struct {
	OwnerID     string
	Amount      int64
	Destination string
}

// MutationResult describes the pending transaction and the balance projection
// as of the call; the balance reflects only settled transactions.
type MutationResult struct {
	Transaction ledger.Transaction
	Balance     int64
}

// BalanceView is the on-demand balance projection for a wallet.
type BalanceView struct {
	WalletID string
	Amount   int64
	AsOf     time.Time
}

// Fund creates a pending deposit and schedules its settlement. The returned
// balance is unchanged until the deposit settles.
func (s *Service) Fund(ctx context.Context, input FundInput) (MutationResult, error) {
	w, err := s.store.WalletByOwner(ctx, input.OwnerID)
	if err != nil {
		return MutationResult{}, err
	}

	tx, err := s.store.Fund(ctx, w.ID, input.Amount, ledger.DepositMetadata{Method: input.Method})
	if err != nil {
		return MutationResult{}, err
	}

	if err := s.scheduler.Schedule(ctx, tx.ID, tx.Kind); err != nil {
		// The deposit must not appear accepted if its settlement was never
		// scheduled; cancel it so the caller can retry.
		if _, cancelErr := s.store.ApplyTransition(ctx, tx.ID, ledger.StatusFailed); cancelErr != nil {
			return MutationResult{}, fmt.Errorf("schedule settlement: %w (compensation failed: %v)", err, cancelErr)
		}
		return MutationResult{}, fmt.Errorf("schedule settlement: %w", err)
	}

	s.notify(ctx, notification.Message{
		Kind:        notification.KindDepositInitiated,
		Destination: input.OwnerID,
		Body:        fmt.Sprintf("Deposit of %d via %s is pending settlement", input.Amount, input.Method),
		Balance:     w.Balance,
	})

	return MutationResult{Transaction: tx, Balance: w.Balance}, nil
}

// Withdraw creates a pending withdrawal and schedules its settlement.
func (s *Service) Withdraw(ctx context.Context, input WithdrawInput) (MutationResult, error) {
	w, err := s.store.WalletByOwner(ctx, input.OwnerID)
	if err != nil {
		return MutationResult{}, err
	}

	tx, err := s.store.Withdraw(ctx, w.ID, input.Amount, ledger.WithdrawalMetadata{Destination: input.Destination})
	if err != nil {
		return MutationResult{}, err
	}

	if err := s.scheduler.Schedule(ctx, tx.ID, tx.Kind); err != nil {
		if _, cancelErr := s.store.ApplyTransition(ctx, tx.ID, ledger.StatusFailed); cancelErr != nil {
			return MutationResult{}, fmt.Errorf("schedule settlement: %w (compensation failed: %v)", err, cancelErr)
		}
		return MutationResult{}, fmt.Errorf("schedule settlement: %w", err)
	}

	s.notify(ctx, notification.Message{
		Kind:        notification.KindWithdrawalInitiated,
		Destination: input.OwnerID,
		Body:        fmt.Sprintf("Withdrawal of %d to %s is pending settlement", input.Amount, input.Destination),
		Balance:     w.Balance,
	})

	return MutationResult{Transaction: tx, Balance: w.Balance}, nil
}

// Balance returns the settled balance projection for the owner's wallet.
func (s *Service) Balance(ctx context.Context, ownerID string) (BalanceView, error) {
	w, err := s.store.WalletByOwner(ctx, ownerID)
	if err != nil {
		return BalanceView{}, err
	}
	amount, err := s.store.Balance(ctx, w.ID)
	if err != nil {
		return BalanceView{}, err
	}
	return BalanceView{WalletID: w.ID, Amount: amount, AsOf: time.Now().UTC()}, nil
}

// Statement returns the owner's transactions, newest first.
func (s *Service) Statement(ctx context.Context, ownerID string, limit int) ([]ledger.Transaction, error) {
	w, err := s.store.WalletByOwner(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	return s.store.Transactions(ctx, w.ID, limit)
}

// Cancel cancels one of the owner's pending transactions. The cancellation
// routes through the ledger's transition path, so a transaction that already
// settled is reversed and one that already failed is rejected.
func (s *Service) Cancel(ctx context.Context, ownerID, transactionID string) (ledger.Transaction, error) {
	w, err := s.store.WalletByOwner(ctx, ownerID)
	if err != nil {
		return ledger.Transaction{}, err
	}

	existing, err := s.store.Transaction(ctx, transactionID)
	if err != nil {
		return ledger.Transaction{}, err
	}
	if existing.WalletID != w.ID {
		return ledger.Transaction{}, ledger.ErrTransactionNotFound
	}

	tx, err := s.store.ApplyTransition(ctx, transactionID, ledger.StatusCancelled)
	if err != nil {
		return ledger.Transaction{}, err
	}

	balance, _ := s.store.Balance(ctx, w.ID)
	s.notify(ctx, notification.Message{
		Kind:        notification.KindTransactionCancelled,
		Destination: ownerID,
		Body:        fmt.Sprintf("Transaction %s cancelled", tx.Reference),
		Balance:     balance,
	})
	return tx, nil
}

func (s *Service) notify(ctx context.Context, msg notification.Message) {
	if s.notifier != nil {
		_ = s.notifier.Send(ctx, msg)
	}
}

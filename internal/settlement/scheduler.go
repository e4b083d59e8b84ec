package settlement

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/sokoni-app/sokoni_wallet/internal/ledger"
)

// Default gateway confirmation delays per transaction kind.
const (
	DefaultDepositDelay    = 2 * time.Second
	DefaultWithdrawalDelay = 3 * time.Second
)

// Delays holds the simulated gateway confirmation latency per kind.
type Delays struct {
	Deposit    time.Duration
	Withdrawal time.Duration
}

// DefaultDelays returns the stand-in gateway latencies.
func DefaultDelays() Delays {
	return Delays{Deposit: DefaultDepositDelay, Withdrawal: DefaultWithdrawalDelay}
}

func (d Delays) forKind(kind ledger.Kind) time.Duration {
	switch kind {
	case ledger.KindWithdrawal:
		if d.Withdrawal > 0 {
			return d.Withdrawal
		}
		return DefaultWithdrawalDelay
	default:
		if d.Deposit > 0 {
			return d.Deposit
		}
		return DefaultDepositDelay
	}
}

// Scheduler stands in for an asynchronous payment gateway: it arranges for a
// pending transaction to be completed after a kind-specific delay. Completion
// always re-enters ledger.Store.ApplyTransition, so a transaction resolved
// before the delay elapses makes the callback a harmless no-op.
type Scheduler interface {
	Schedule(ctx context.Context, transactionID string, kind ledger.Kind) error
}

// TimerScheduler completes transactions with in-process timers. It is used for
// development runs without Redis; scheduled settlements do not survive a
// restart.
type TimerScheduler struct {
	store  ledger.Store
	delays Delays
	logger *slog.Logger
}

// NewTimerScheduler builds an in-process settlement scheduler.
func NewTimerScheduler(store ledger.Store, delays Delays, logger *slog.Logger) *TimerScheduler {
	return &TimerScheduler{store: store, delays: delays, logger: logger}
}

// Schedule arranges exactly one completion attempt after the kind's delay.
func (s *TimerScheduler) Schedule(_ context.Context, transactionID string, kind ledger.Kind) error {
	delay := s.delays.forKind(kind)
	time.AfterFunc(delay, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.settle(ctx, transactionID)
	})
	return nil
}

func (s *TimerScheduler) settle(ctx context.Context, transactionID string) {
	tx, err := s.store.ApplyTransition(ctx, transactionID, ledger.StatusCompleted)
	switch {
	case err == nil:
		s.logger.Info("transaction settled", "transaction_id", tx.ID, "kind", tx.Kind, "amount", tx.Amount)
	case errors.Is(err, ledger.ErrInvalidTransition):
		// Resolved before the timer fired; nothing to do.
		s.logger.Debug("settlement skipped", "transaction_id", transactionID)
	default:
		s.logger.Error("settlement failed", "transaction_id", transactionID, "error", err)
	}
}

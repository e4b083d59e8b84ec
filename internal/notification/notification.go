package notification

import (
	"context"
	"log/slog"
)

const (
	// KindDepositInitiated indicates a wallet top-up awaiting settlement.
	KindDepositInitiated = "deposit_initiated"
	// KindWithdrawalInitiated indicates a withdrawal awaiting settlement.
	KindWithdrawalInitiated = "withdrawal_initiated"
	// KindPayment indicates a completed purchase debit.
	KindPayment = "payment"
	// KindRefund indicates a refunded order credit.
	KindRefund = "refund"
	// KindTransactionCancelled indicates a pending transaction was cancelled.
	KindTransactionCancelled = "transaction_cancelled"
)

// Message describes a notification payload pushed back to the owner's client
// after a ledger mutation, carrying the refreshed balance projection.
type Message struct {
	Kind        string
	Destination string
	Body        string
	Balance     int64
}

// Notifier delivers notifications to downstream systems.
type Notifier interface {
	Send(ctx context.Context, message Message) error
}

// LoggerNotifier is a stub implementation that writes notifications to the logger.
type LoggerNotifier struct {
	logger *slog.Logger
}

// NewLoggerNotifier constructs a logging notifier stub.
func NewLoggerNotifier(logger *slog.Logger) *LoggerNotifier {
	return &LoggerNotifier{logger: logger}
}

// Send writes the message to the structured logger.
func (n *LoggerNotifier) Send(_ context.Context, message Message) error {
	if n == nil || n.logger == nil {
		return nil
	}
	n.logger.Info("notification",
		"kind", message.Kind,
		"destination", message.Destination,
		"body", message.Body,
		"balance", message.Balance,
	)
	return nil
}

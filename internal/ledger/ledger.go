package ledger

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrInvalidAmount occurs when an operation receives a non-positive amount.
	ErrInvalidAmount = errors.New("amount must be positive")

	// ErrWalletNotFound indicates no wallet resolves for the given identifier or owner.
	ErrWalletNotFound = errors.New("wallet not found")

	// ErrInsufficientBalance occurs when a debit exceeds the settled wallet balance.
	ErrInsufficientBalance = errors.New("insufficient balance")

	// ErrInvalidTransition indicates an illegal transaction status change. The
	// transition is rejected and the wallet balance is left untouched.
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrTransactionNotFound indicates the referenced transaction does not exist.
	ErrTransactionNotFound = errors.New("transaction not found")

	// ErrOrderNotFound indicates the referenced order does not exist.
	ErrOrderNotFound = errors.New("order not found")

	// ErrDuplicateReference indicates the generated or supplied transaction
	// reference already exists.
	ErrDuplicateReference = errors.New("duplicate transaction reference")
)

// Kind classifies a ledger transaction. Deposits and refunds carry positive
// amounts; withdrawals and payments carry negative amounts.
type Kind string

const (
	KindDeposit    Kind = "deposit"
	KindWithdrawal Kind = "withdrawal"
	KindPayment    Kind = "payment"
	KindRefund     Kind = "refund"
)

// Status is the lifecycle state of a transaction.
type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

// OrderStatus is the lifecycle state of a buyer's order.
type OrderStatus string

const (
	OrderPending   OrderStatus = "pending"
	OrderPaid      OrderStatus = "paid"
	OrderShipped   OrderStatus = "shipped"
	OrderDelivered OrderStatus = "delivered"
	OrderCancelled OrderStatus = "cancelled"
)

// Wallet is a per-user balance record. Balance is kept in integer minor units
// and always equals the sum of amounts over the wallet's completed transactions.
type Wallet struct {
	ID        string
	OwnerID   string
	Balance   int64
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Transaction is a signed, kind-tagged ledger entry. Amount and Kind never
// change after creation; only Status moves, via Store.ApplyTransition.
type Transaction struct {
	ID          string
	WalletID    string
	Kind        Kind
	Amount      int64
	Status      Status
	Description string
	Reference   string
	Metadata    Metadata
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Order is a buyer's purchase record, settled by exactly one payment transaction.
type Order struct {
	ID                    string
	BuyerID               string
	ProductID             string
	Amount                int64
	Status                OrderStatus
	SettlingTransactionID string
	CreatedAt             time.Time
	UpdatedAt             time.Time
}

// PayInput carries the data for an atomic purchase.
type PayInput struct {
	WalletID    string
	BuyerID     string
	ProductID   string
	Amount      int64
	Description string
}

// PayResult is the committed outcome of a purchase: the paid order, its
// settling transaction, and the wallet balance after the debit.
type PayResult struct {
	Order       Order
	Transaction Transaction
	Balance     int64
}

// RefundResult is the committed outcome of refunding a paid order.
type RefundResult struct {
	Order       Order
	Transaction Transaction
	Balance     int64
}

// Store is the sole authority over wallet balances, transactions and orders.
// Every balance mutation goes through ApplyTransition or the atomic Pay and
// RefundOrder paths; no other code writes balance.
type Store interface {
	// EnsureWallet provisions the owner's wallet if missing and returns it.
	// There is exactly one wallet per owner.
	EnsureWallet(ctx context.Context, ownerID string) (Wallet, error)
	// WalletByOwner resolves the owner's wallet.
	WalletByOwner(ctx context.Context, ownerID string) (Wallet, error)
	// Balance returns the settled balance for the wallet.
	Balance(ctx context.Context, walletID string) (int64, error)

	// Fund creates a pending deposit. The balance is unaffected until the
	// transaction settles via ApplyTransition.
	Fund(ctx context.Context, walletID string, amount int64, meta DepositMetadata) (Transaction, error)
	// Withdraw creates a pending withdrawal with signed amount -amount after
	// checking the settled balance covers it. Pending outflows do not reserve
	// balance.
	Withdraw(ctx context.Context, walletID string, amount int64, meta WithdrawalMetadata) (Transaction, error)
	// Pay atomically creates an order, records a completed payment transaction,
	// debits the wallet and marks the order paid. Either every effect is
	// persisted or none is.
	Pay(ctx context.Context, input PayInput) (PayResult, error)
	// RefundOrder reverses a paid order: records a completed refund transaction,
	// credits the wallet and cancels the order, atomically.
	RefundOrder(ctx context.Context, orderID, reason string) (RefundResult, error)

	// ApplyTransition moves a transaction to the next status. Legal moves are
	// pending->completed|failed|cancelled and completed->failed|cancelled.
	// Entering completed applies the amount to the balance exactly once;
	// leaving completed reverses it exactly once. Illegal moves return
	// ErrInvalidTransition and never touch the balance.
	ApplyTransition(ctx context.Context, transactionID string, next Status) (Transaction, error)

	// Transaction fetches a single transaction.
	Transaction(ctx context.Context, transactionID string) (Transaction, error)
	// Transactions lists the wallet's transactions, newest first.
	Transactions(ctx context.Context, walletID string, limit int) ([]Transaction, error)
	// Orders lists the buyer's orders, newest first.
	Orders(ctx context.Context, buyerID string, limit int) ([]Order, error)
	// Order fetches a single order.
	Order(ctx context.Context, orderID string) (Order, error)
	// AdvanceOrder moves an order along the fulfilment lifecycle
	// (paid->shipped->delivered, pending|paid->cancelled). No balance effect.
	AdvanceOrder(ctx context.Context, orderID string, next OrderStatus) (Order, error)
}

const defaultListLimit = 50

// canTransition reports whether a transaction status change is legal. Failed
// and cancelled are terminal.
func canTransition(from, to Status) bool {
	switch from {
	case StatusPending:
		return to == StatusCompleted || to == StatusFailed || to == StatusCancelled
	case StatusCompleted:
		return to == StatusFailed || to == StatusCancelled
	default:
		return false
	}
}

// balanceDelta returns the balance adjustment a status change carries: the
// transaction amount on entering completed, its negation on leaving completed,
// zero otherwise.
func balanceDelta(amount int64, from, to Status) int64 {
	switch {
	case from != StatusCompleted && to == StatusCompleted:
		return amount
	case from == StatusCompleted && to != StatusCompleted:
		return -amount
	default:
		return 0
	}
}

// canAdvanceOrder reports whether an order status change is legal for the
// seller-driven fulfilment path. Paid orders are cancelled through RefundOrder,
// never directly.
func canAdvanceOrder(from, to OrderStatus) bool {
	switch from {
	case OrderPending:
		return to == OrderCancelled
	case OrderPaid:
		return to == OrderShipped
	case OrderShipped:
		return to == OrderDelivered
	default:
		return false
	}
}

func normalizeLimit(limit int) int {
	if limit <= 0 || limit > defaultListLimit {
		return defaultListLimit
	}
	return limit
}

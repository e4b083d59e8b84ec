package ledger

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
)

func newTestWallet(t *testing.T, s Store) Wallet {
	t.Helper()
	w, err := s.EnsureWallet(context.Background(), uuid.NewString())
	if err != nil {
		t.Fatalf("ensure wallet: %v", err)
	}
	return w
}

// completedSum recomputes the balance from the transaction log so tests can
// check the store never lets the cached balance drift.
func completedSum(t *testing.T, s Store, walletID string) int64 {
	t.Helper()
	txs, err := s.Transactions(context.Background(), walletID, 0)
	if err != nil {
		t.Fatalf("list transactions: %v", err)
	}
	var sum int64
	for _, tx := range txs {
		if tx.Status == StatusCompleted {
			sum += tx.Amount
		}
	}
	return sum
}

func assertBalance(t *testing.T, s Store, walletID string, want int64) {
	t.Helper()
	got, err := s.Balance(context.Background(), walletID)
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if got != want {
		t.Fatalf("expected balance %d, got %d", want, got)
	}
	if sum := completedSum(t, s, walletID); sum != got {
		t.Fatalf("balance %d drifted from completed sum %d", got, sum)
	}
}

func TestEnsureWalletIdempotent(t *testing.T) {
	s := NewInMemory()
	ctx := context.Background()

	owner := uuid.NewString()
	first, err := s.EnsureWallet(ctx, owner)
	if err != nil {
		t.Fatalf("ensure wallet: %v", err)
	}
	second, err := s.EnsureWallet(ctx, owner)
	if err != nil {
		t.Fatalf("ensure wallet again: %v", err)
	}
	if first.ID != second.ID {
		t.Fatalf("expected one wallet per owner, got %s and %s", first.ID, second.ID)
	}
}

func TestFundSettlementLifecycle(t *testing.T) {
	s := NewInMemory()
	ctx := context.Background()
	w := newTestWallet(t, s)

	tx, err := s.Fund(ctx, w.ID, 1_000, DepositMetadata{Method: "bank"})
	if err != nil {
		t.Fatalf("fund: %v", err)
	}
	if tx.Status != StatusPending {
		t.Fatalf("expected pending deposit, got %s", tx.Status)
	}
	if tx.Kind != KindDeposit || tx.Amount != 1_000 {
		t.Fatalf("unexpected transaction %s %d", tx.Kind, tx.Amount)
	}
	assertBalance(t, s, w.ID, 0)

	if _, err := s.ApplyTransition(ctx, tx.ID, StatusCompleted); err != nil {
		t.Fatalf("settle deposit: %v", err)
	}
	assertBalance(t, s, w.ID, 1_000)
}

func TestFundRejectsNonPositiveAmount(t *testing.T) {
	s := NewInMemory()
	ctx := context.Background()
	w := newTestWallet(t, s)

	if _, err := s.Fund(ctx, w.ID, -50, DepositMetadata{Method: "bank"}); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}

	txs, err := s.Transactions(ctx, w.ID, 0)
	if err != nil {
		t.Fatalf("list transactions: %v", err)
	}
	if len(txs) != 0 {
		t.Fatalf("expected no transaction persisted, got %d", len(txs))
	}
}

func TestFundUnknownWallet(t *testing.T) {
	s := NewInMemory()
	if _, err := s.Fund(context.Background(), uuid.NewString(), 100, DepositMetadata{Method: "bank"}); !errors.Is(err, ErrWalletNotFound) {
		t.Fatalf("expected ErrWalletNotFound, got %v", err)
	}
}

func TestWithdrawInsufficientBalance(t *testing.T) {
	s := NewInMemory()
	ctx := context.Background()
	w := newTestWallet(t, s)
	SeedBalance(s, w.ID, 400)

	if _, err := s.Withdraw(ctx, w.ID, 500, WithdrawalMetadata{Destination: "acct-123"}); !errors.Is(err, ErrInsufficientBalance) {
		t.Fatalf("expected ErrInsufficientBalance, got %v", err)
	}
	assertBalance(t, s, w.ID, 400)

	txs, _ := s.Transactions(ctx, w.ID, 0)
	if len(txs) != 1 { // only the seed deposit
		t.Fatalf("expected no withdrawal persisted, got %d transactions", len(txs))
	}
}

func TestWithdrawSettles(t *testing.T) {
	s := NewInMemory()
	ctx := context.Background()
	w := newTestWallet(t, s)
	SeedBalance(s, w.ID, 400)

	tx, err := s.Withdraw(ctx, w.ID, 400, WithdrawalMetadata{Destination: "acct-123"})
	if err != nil {
		t.Fatalf("withdraw: %v", err)
	}
	if tx.Status != StatusPending || tx.Amount != -400 {
		t.Fatalf("expected pending withdrawal of -400, got %s %d", tx.Status, tx.Amount)
	}
	assertBalance(t, s, w.ID, 400)

	if _, err := s.ApplyTransition(ctx, tx.ID, StatusCompleted); err != nil {
		t.Fatalf("settle withdrawal: %v", err)
	}
	assertBalance(t, s, w.ID, 0)
}

func TestPayIsAtomic(t *testing.T) {
	s := NewInMemory()
	ctx := context.Background()
	w := newTestWallet(t, s)
	SeedBalance(s, w.ID, 1_000)

	productID := uuid.NewString()
	res, err := s.Pay(ctx, PayInput{
		WalletID:  w.ID,
		BuyerID:   w.OwnerID,
		ProductID: productID,
		Amount:    600,
	})
	if err != nil {
		t.Fatalf("pay: %v", err)
	}

	if res.Order.Status != OrderPaid {
		t.Fatalf("expected paid order, got %s", res.Order.Status)
	}
	if res.Order.SettlingTransactionID != res.Transaction.ID {
		t.Fatalf("order not linked to settling transaction")
	}
	if res.Transaction.Status != StatusCompleted || res.Transaction.Amount != -600 {
		t.Fatalf("unexpected payment transaction %s %d", res.Transaction.Status, res.Transaction.Amount)
	}
	if res.Balance != 400 {
		t.Fatalf("expected balance 400, got %d", res.Balance)
	}
	assertBalance(t, s, w.ID, 400)

	meta, ok := res.Transaction.Metadata.(PaymentMetadata)
	if !ok {
		t.Fatalf("expected payment metadata, got %T", res.Transaction.Metadata)
	}
	if meta.OrderID != res.Order.ID || meta.ProductID != productID {
		t.Fatalf("payment metadata does not reference order")
	}
}

func TestPayFailureLeavesNoTrace(t *testing.T) {
	s := NewInMemory()
	ctx := context.Background()
	w := newTestWallet(t, s)
	SeedBalance(s, w.ID, 100)

	_, err := s.Pay(ctx, PayInput{WalletID: w.ID, BuyerID: w.OwnerID, ProductID: uuid.NewString(), Amount: 600})
	if !errors.Is(err, ErrInsufficientBalance) {
		t.Fatalf("expected ErrInsufficientBalance, got %v", err)
	}

	orders, err := s.Orders(ctx, w.OwnerID, 0)
	if err != nil {
		t.Fatalf("list orders: %v", err)
	}
	if len(orders) != 0 {
		t.Fatalf("expected no order persisted, got %d", len(orders))
	}
	txs, _ := s.Transactions(ctx, w.ID, 0)
	if len(txs) != 1 { // only the seed deposit
		t.Fatalf("expected no payment persisted, got %d transactions", len(txs))
	}
	assertBalance(t, s, w.ID, 100)
}

func TestCompletedNeverAppliesTwice(t *testing.T) {
	s := NewInMemory()
	ctx := context.Background()
	w := newTestWallet(t, s)

	tx, err := s.Fund(ctx, w.ID, 1_000, DepositMetadata{Method: "bank"})
	if err != nil {
		t.Fatalf("fund: %v", err)
	}
	if _, err := s.ApplyTransition(ctx, tx.ID, StatusCompleted); err != nil {
		t.Fatalf("first completion: %v", err)
	}
	if _, err := s.ApplyTransition(ctx, tx.ID, StatusCompleted); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition on repeat completion, got %v", err)
	}
	assertBalance(t, s, w.ID, 1_000)
}

func TestReversalAppliesOnce(t *testing.T) {
	s := NewInMemory()
	ctx := context.Background()
	w := newTestWallet(t, s)

	tx, err := s.Fund(ctx, w.ID, 1_000, DepositMetadata{Method: "bank"})
	if err != nil {
		t.Fatalf("fund: %v", err)
	}
	if _, err := s.ApplyTransition(ctx, tx.ID, StatusCompleted); err != nil {
		t.Fatalf("complete: %v", err)
	}
	assertBalance(t, s, w.ID, 1_000)

	if _, err := s.ApplyTransition(ctx, tx.ID, StatusCancelled); err != nil {
		t.Fatalf("reversal: %v", err)
	}
	assertBalance(t, s, w.ID, 0)

	// Cancelled is terminal; a repeat attempt must not touch the balance.
	if _, err := s.ApplyTransition(ctx, tx.ID, StatusCancelled); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
	assertBalance(t, s, w.ID, 0)
}

func TestCancelPendingSkipsBalance(t *testing.T) {
	s := NewInMemory()
	ctx := context.Background()
	w := newTestWallet(t, s)

	tx, err := s.Fund(ctx, w.ID, 500, DepositMetadata{Method: "bank"})
	if err != nil {
		t.Fatalf("fund: %v", err)
	}
	if _, err := s.ApplyTransition(ctx, tx.ID, StatusCancelled); err != nil {
		t.Fatalf("cancel pending: %v", err)
	}
	assertBalance(t, s, w.ID, 0)

	// A late settlement callback must become a no-op.
	if _, err := s.ApplyTransition(ctx, tx.ID, StatusCompleted); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition for settled-after-cancel, got %v", err)
	}
	assertBalance(t, s, w.ID, 0)
}

func TestSignLaw(t *testing.T) {
	s := NewInMemory()
	ctx := context.Background()
	w := newTestWallet(t, s)
	SeedBalance(s, w.ID, 2_000)

	if tx, _ := s.Fund(ctx, w.ID, 100, DepositMetadata{Method: "bank"}); tx.Amount <= 0 {
		t.Fatalf("deposit amount must be positive, got %d", tx.Amount)
	}
	if tx, _ := s.Withdraw(ctx, w.ID, 100, WithdrawalMetadata{Destination: "acct"}); tx.Amount >= 0 {
		t.Fatalf("withdrawal amount must be negative, got %d", tx.Amount)
	}
	res, err := s.Pay(ctx, PayInput{WalletID: w.ID, BuyerID: w.OwnerID, ProductID: uuid.NewString(), Amount: 300})
	if err != nil {
		t.Fatalf("pay: %v", err)
	}
	if res.Transaction.Amount >= 0 {
		t.Fatalf("payment amount must be negative, got %d", res.Transaction.Amount)
	}
	refund, err := s.RefundOrder(ctx, res.Order.ID, "buyer complaint")
	if err != nil {
		t.Fatalf("refund: %v", err)
	}
	if refund.Transaction.Amount <= 0 {
		t.Fatalf("refund amount must be positive, got %d", refund.Transaction.Amount)
	}
}

func TestRefundOrder(t *testing.T) {
	s := NewInMemory()
	ctx := context.Background()
	w := newTestWallet(t, s)
	SeedBalance(s, w.ID, 1_000)

	res, err := s.Pay(ctx, PayInput{WalletID: w.ID, BuyerID: w.OwnerID, ProductID: uuid.NewString(), Amount: 600})
	if err != nil {
		t.Fatalf("pay: %v", err)
	}
	assertBalance(t, s, w.ID, 400)

	refund, err := s.RefundOrder(ctx, res.Order.ID, "out of stock")
	if err != nil {
		t.Fatalf("refund: %v", err)
	}
	if refund.Order.Status != OrderCancelled {
		t.Fatalf("expected cancelled order, got %s", refund.Order.Status)
	}
	if refund.Transaction.Kind != KindRefund || refund.Transaction.Status != StatusCompleted {
		t.Fatalf("unexpected refund transaction %s %s", refund.Transaction.Kind, refund.Transaction.Status)
	}
	assertBalance(t, s, w.ID, 1_000)

	// A second refund of the same order must be rejected.
	if _, err := s.RefundOrder(ctx, res.Order.ID, "again"); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
	assertBalance(t, s, w.ID, 1_000)
}

func TestAdvanceOrderLifecycle(t *testing.T) {
	s := NewInMemory()
	ctx := context.Background()
	w := newTestWallet(t, s)
	SeedBalance(s, w.ID, 1_000)

	res, err := s.Pay(ctx, PayInput{WalletID: w.ID, BuyerID: w.OwnerID, ProductID: uuid.NewString(), Amount: 250})
	if err != nil {
		t.Fatalf("pay: %v", err)
	}

	order, err := s.AdvanceOrder(ctx, res.Order.ID, OrderShipped)
	if err != nil {
		t.Fatalf("ship: %v", err)
	}
	if order.Status != OrderShipped {
		t.Fatalf("expected shipped, got %s", order.Status)
	}
	if _, err := s.AdvanceOrder(ctx, res.Order.ID, OrderDelivered); err != nil {
		t.Fatalf("deliver: %v", err)
	}
	if _, err := s.AdvanceOrder(ctx, res.Order.ID, OrderCancelled); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition after delivery, got %v", err)
	}
}

func TestTransactionsNewestFirst(t *testing.T) {
	s := NewInMemory()
	ctx := context.Background()
	w := newTestWallet(t, s)

	first, _ := s.Fund(ctx, w.ID, 100, DepositMetadata{Method: "bank"})
	second, _ := s.Fund(ctx, w.ID, 200, DepositMetadata{Method: "card"})

	txs, err := s.Transactions(ctx, w.ID, 0)
	if err != nil {
		t.Fatalf("list transactions: %v", err)
	}
	if len(txs) != 2 {
		t.Fatalf("expected 2 transactions, got %d", len(txs))
	}
	if txs[0].ID != second.ID || txs[1].ID != first.ID {
		t.Fatalf("expected newest-first ordering")
	}

	limited, err := s.Transactions(ctx, w.ID, 1)
	if err != nil {
		t.Fatalf("list limited: %v", err)
	}
	if len(limited) != 1 || limited[0].ID != second.ID {
		t.Fatalf("expected the newest transaction only")
	}
}

func TestReversalGuardsNegativeBalance(t *testing.T) {
	s := NewInMemory()
	ctx := context.Background()
	w := newTestWallet(t, s)

	dep, _ := s.Fund(ctx, w.ID, 1_000, DepositMetadata{Method: "bank"})
	if _, err := s.ApplyTransition(ctx, dep.ID, StatusCompleted); err != nil {
		t.Fatalf("complete deposit: %v", err)
	}
	// Spend most of the deposit.
	if _, err := s.Pay(ctx, PayInput{WalletID: w.ID, BuyerID: w.OwnerID, ProductID: uuid.NewString(), Amount: 800}); err != nil {
		t.Fatalf("pay: %v", err)
	}

	// Reversing the deposit would now drive the balance to -800.
	if _, err := s.ApplyTransition(ctx, dep.ID, StatusCancelled); !errors.Is(err, ErrInsufficientBalance) {
		t.Fatalf("expected ErrInsufficientBalance, got %v", err)
	}
	assertBalance(t, s, w.ID, 200)
}

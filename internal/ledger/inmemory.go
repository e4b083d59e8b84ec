package ledger

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

type inMemoryStore struct {
	mu            sync.RWMutex
	wallets       map[string]Wallet
	walletByOwner map[string]string
	transactions  map[string]Transaction
	walletTxIDs   map[string][]string
	orders        map[string]Order
	buyerOrderIDs map[string][]string
	references    map[string]struct{}
}

// NewInMemory creates a concurrency-safe in-memory store. It backs unit tests
// and database-less development runs.
func NewInMemory() Store {
	return &inMemoryStore{
		wallets:       make(map[string]Wallet),
		walletByOwner: make(map[string]string),
		transactions:  make(map[string]Transaction),
		walletTxIDs:   make(map[string][]string),
		orders:        make(map[string]Order),
		buyerOrderIDs: make(map[string][]string),
		references:    make(map[string]struct{}),
	}
}

func (s *inMemoryStore) EnsureWallet(_ context.Context, ownerID string) (Wallet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if id, ok := s.walletByOwner[ownerID]; ok {
		return s.wallets[id], nil
	}
	now := time.Now().UTC()
	w := Wallet{
		ID:        uuid.NewString(),
		OwnerID:   ownerID,
		Balance:   0,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.wallets[w.ID] = w
	s.walletByOwner[ownerID] = w.ID
	return w, nil
}

func (s *inMemoryStore) WalletByOwner(_ context.Context, ownerID string) (Wallet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.walletByOwner[ownerID]
	if !ok {
		return Wallet{}, ErrWalletNotFound
	}
	return s.wallets[id], nil
}

func (s *inMemoryStore) Balance(_ context.Context, walletID string) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	w, ok := s.wallets[walletID]
	if !ok {
		return 0, ErrWalletNotFound
	}
	return w.Balance, nil
}

func (s *inMemoryStore) Fund(_ context.Context, walletID string, amount int64, meta DepositMetadata) (Transaction, error) {
	if amount <= 0 {
		return Transaction{}, ErrInvalidAmount
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.wallets[walletID]; !ok {
		return Transaction{}, ErrWalletNotFound
	}

	tx := s.newTransaction(walletID, KindDeposit, amount, StatusPending, meta,
		fmt.Sprintf("wallet top-up via %s", meta.Method))
	return tx, nil
}

func (s *inMemoryStore) Withdraw(_ context.Context, walletID string, amount int64, meta WithdrawalMetadata) (Transaction, error) {
	if amount <= 0 {
		return Transaction{}, ErrInvalidAmount
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	w, ok := s.wallets[walletID]
	if !ok {
		return Transaction{}, ErrWalletNotFound
	}
	if w.Balance < amount {
		return Transaction{}, ErrInsufficientBalance
	}

	tx := s.newTransaction(walletID, KindWithdrawal, -amount, StatusPending, meta,
		fmt.Sprintf("withdrawal to %s", meta.Destination))
	return tx, nil
}

func (s *inMemoryStore) Pay(_ context.Context, input PayInput) (PayResult, error) {
	if input.Amount <= 0 {
		return PayResult{}, ErrInvalidAmount
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	w, ok := s.wallets[input.WalletID]
	if !ok {
		return PayResult{}, ErrWalletNotFound
	}
	if w.Balance < input.Amount {
		return PayResult{}, ErrInsufficientBalance
	}

	now := time.Now().UTC()
	order := Order{
		ID:        uuid.NewString(),
		BuyerID:   input.BuyerID,
		ProductID: input.ProductID,
		Amount:    input.Amount,
		Status:    OrderPending,
		CreatedAt: now,
		UpdatedAt: now,
	}

	tx := s.newTransaction(input.WalletID, KindPayment, -input.Amount, StatusCompleted,
		PaymentMetadata{OrderID: order.ID, ProductID: input.ProductID}, input.Description)

	w.Balance += tx.Amount
	w.UpdatedAt = now
	s.wallets[w.ID] = w

	order.Status = OrderPaid
	order.SettlingTransactionID = tx.ID
	s.orders[order.ID] = order
	s.buyerOrderIDs[order.BuyerID] = append(s.buyerOrderIDs[order.BuyerID], order.ID)

	return PayResult{Order: order, Transaction: tx, Balance: w.Balance}, nil
}

func (s *inMemoryStore) RefundOrder(_ context.Context, orderID, reason string) (RefundResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	order, ok := s.orders[orderID]
	if !ok {
		return RefundResult{}, ErrOrderNotFound
	}
	if order.Status != OrderPaid {
		return RefundResult{}, ErrInvalidTransition
	}

	walletID, ok := s.walletByOwner[order.BuyerID]
	if !ok {
		return RefundResult{}, ErrWalletNotFound
	}

	now := time.Now().UTC()
	tx := s.newTransaction(walletID, KindRefund, order.Amount, StatusCompleted,
		RefundMetadata{OrderID: order.ID, Reason: reason},
		fmt.Sprintf("refund for order %s", order.ID))

	w := s.wallets[walletID]
	w.Balance += tx.Amount
	w.UpdatedAt = now
	s.wallets[walletID] = w

	order.Status = OrderCancelled
	order.UpdatedAt = now
	s.orders[order.ID] = order

	return RefundResult{Order: order, Transaction: tx, Balance: w.Balance}, nil
}

func (s *inMemoryStore) ApplyTransition(_ context.Context, transactionID string, next Status) (Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, ok := s.transactions[transactionID]
	if !ok {
		return Transaction{}, ErrTransactionNotFound
	}
	if !canTransition(tx.Status, next) {
		return Transaction{}, ErrInvalidTransition
	}

	if delta := balanceDelta(tx.Amount, tx.Status, next); delta != 0 {
		w := s.wallets[tx.WalletID]
		if w.Balance+delta < 0 {
			return Transaction{}, ErrInsufficientBalance
		}
		now := time.Now().UTC()
		w.Balance += delta
		w.UpdatedAt = now
		s.wallets[w.ID] = w
	}

	tx.Status = next
	tx.UpdatedAt = time.Now().UTC()
	s.transactions[tx.ID] = tx
	return tx, nil
}

func (s *inMemoryStore) Transaction(_ context.Context, transactionID string) (Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	tx, ok := s.transactions[transactionID]
	if !ok {
		return Transaction{}, ErrTransactionNotFound
	}
	return tx, nil
}

func (s *inMemoryStore) Transactions(_ context.Context, walletID string, limit int) ([]Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.wallets[walletID]; !ok {
		return nil, ErrWalletNotFound
	}

	ids := s.walletTxIDs[walletID]
	limit = normalizeLimit(limit)
	out := make([]Transaction, 0, limit)
	for i := len(ids) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, s.transactions[ids[i]])
	}
	return out, nil
}

func (s *inMemoryStore) Orders(_ context.Context, buyerID string, limit int) ([]Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := s.buyerOrderIDs[buyerID]
	limit = normalizeLimit(limit)
	out := make([]Order, 0, limit)
	for i := len(ids) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, s.orders[ids[i]])
	}
	return out, nil
}

func (s *inMemoryStore) Order(_ context.Context, orderID string) (Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	order, ok := s.orders[orderID]
	if !ok {
		return Order{}, ErrOrderNotFound
	}
	return order, nil
}

func (s *inMemoryStore) AdvanceOrder(_ context.Context, orderID string, next OrderStatus) (Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	order, ok := s.orders[orderID]
	if !ok {
		return Order{}, ErrOrderNotFound
	}
	if !canAdvanceOrder(order.Status, next) {
		return Order{}, ErrInvalidTransition
	}

	order.Status = next
	order.UpdatedAt = time.Now().UTC()
	s.orders[order.ID] = order
	return order, nil
}

// newTransaction creates and indexes a transaction. Callers hold s.mu.
func (s *inMemoryStore) newTransaction(walletID string, kind Kind, amount int64, status Status, meta Metadata, description string) Transaction {
	now := time.Now().UTC()
	tx := Transaction{
		ID:          uuid.NewString(),
		WalletID:    walletID,
		Kind:        kind,
		Amount:      amount,
		Status:      status,
		Description: description,
		Reference:   newReference(kind),
		Metadata:    meta,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	s.transactions[tx.ID] = tx
	s.walletTxIDs[walletID] = append(s.walletTxIDs[walletID], tx.ID)
	s.references[tx.Reference] = struct{}{}
	return tx
}

func newReference(kind Kind) string {
	prefix := map[Kind]string{
		KindDeposit:    "dep",
		KindWithdrawal: "wd",
		KindPayment:    "pay",
		KindRefund:     "ref",
	}[kind]
	return fmt.Sprintf("%s_%s", prefix, uuid.NewString())
}

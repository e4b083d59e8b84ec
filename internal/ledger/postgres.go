package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore persists the ledger in PostgreSQL. Every balance mutation
// pairs the status write with the wallet balance write inside one database
// transaction, so no intermediate state is observable.
type PostgresStore struct {
	db *pgxpool.Pool
}

// NewPostgresStore constructs a Postgres-backed ledger store.
func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

const transactionColumns = `id, wallet_id, kind, amount, status, description, reference, metadata, created_at, updated_at`

const orderColumns = `id, buyer_id, product_id, amount, status, COALESCE(settling_transaction_id::text, ''), created_at, updated_at`

// EnsureWallet provisions the owner's wallet if missing.
func (s *PostgresStore) EnsureWallet(ctx context.Context, ownerID string) (Wallet, error) {
	owner, err := uuid.Parse(ownerID)
	if err != nil {
		return Wallet{}, ErrWalletNotFound
	}
	now := time.Now().UTC()
	_, err = s.db.Exec(ctx, `INSERT INTO wallets (id, owner_id, balance, created_at, updated_at)
        VALUES ($1, $2, 0, $3, $3) ON CONFLICT (owner_id) DO NOTHING`, uuid.New(), owner, now)
	if err != nil {
		return Wallet{}, err
	}
	return s.WalletByOwner(ctx, ownerID)
}

// WalletByOwner resolves the owner's wallet.
func (s *PostgresStore) WalletByOwner(ctx context.Context, ownerID string) (Wallet, error) {
	owner, err := uuid.Parse(ownerID)
	if err != nil {
		return Wallet{}, ErrWalletNotFound
	}
	row := s.db.QueryRow(ctx, `SELECT id, owner_id, balance, created_at, updated_at
        FROM wallets WHERE owner_id = $1`, owner)
	return scanWallet(row)
}

// Balance returns the settled balance for the wallet.
func (s *PostgresStore) Balance(ctx context.Context, walletID string) (int64, error) {
	id, err := uuid.Parse(walletID)
	if err != nil {
		return 0, ErrWalletNotFound
	}
	var balance int64
	if err := s.db.QueryRow(ctx, `SELECT balance FROM wallets WHERE id = $1`, id).Scan(&balance); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrWalletNotFound
		}
		return 0, err
	}
	return balance, nil
}

// Fund records a pending deposit for the wallet.
func (s *PostgresStore) Fund(ctx context.Context, walletID string, amount int64, meta DepositMetadata) (Transaction, error) {
	if amount <= 0 {
		return Transaction{}, ErrInvalidAmount
	}
	wid, err := uuid.Parse(walletID)
	if err != nil {
		return Transaction{}, ErrWalletNotFound
	}

	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return Transaction{}, err
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	if err := lockWallet(ctx, tx, wid); err != nil {
		return Transaction{}, err
	}

	record, err := insertTransaction(ctx, tx, wid, KindDeposit, amount, StatusPending, meta,
		fmt.Sprintf("wallet top-up via %s", meta.Method))
	if err != nil {
		return Transaction{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return Transaction{}, err
	}
	return record, nil
}

// Withdraw records a pending withdrawal after verifying the settled balance.
func (s *PostgresStore) Withdraw(ctx context.Context, walletID string, amount int64, meta WithdrawalMetadata) (Transaction, error) {
	if amount <= 0 {
		return Transaction{}, ErrInvalidAmount
	}
	wid, err := uuid.Parse(walletID)
	if err != nil {
		return Transaction{}, ErrWalletNotFound
	}

	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return Transaction{}, err
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	balance, err := lockedBalance(ctx, tx, wid)
	if err != nil {
		return Transaction{}, err
	}
	if balance < amount {
		return Transaction{}, ErrInsufficientBalance
	}

	record, err := insertTransaction(ctx, tx, wid, KindWithdrawal, -amount, StatusPending, meta,
		fmt.Sprintf("withdrawal to %s", meta.Destination))
	if err != nil {
		return Transaction{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return Transaction{}, err
	}
	return record, nil
}

// Pay performs the atomic purchase path: order, completed payment transaction,
// balance debit and paid flip commit together or not at all.
func (s *PostgresStore) Pay(ctx context.Context, input PayInput) (PayResult, error) {
	if input.Amount <= 0 {
		return PayResult{}, ErrInvalidAmount
	}
	wid, err := uuid.Parse(input.WalletID)
	if err != nil {
		return PayResult{}, ErrWalletNotFound
	}
	buyer, err := uuid.Parse(input.BuyerID)
	if err != nil {
		return PayResult{}, fmt.Errorf("invalid buyer id: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return PayResult{}, err
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	balance, err := lockedBalance(ctx, tx, wid)
	if err != nil {
		return PayResult{}, err
	}
	if balance < input.Amount {
		return PayResult{}, ErrInsufficientBalance
	}

	now := time.Now().UTC()
	orderID := uuid.New()
	if _, err := tx.Exec(ctx, `INSERT INTO orders (id, buyer_id, product_id, amount, status, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $6)`,
		orderID, buyer, input.ProductID, input.Amount, OrderPending, now); err != nil {
		return PayResult{}, err
	}

	record, err := insertTransaction(ctx, tx, wid, KindPayment, -input.Amount, StatusCompleted,
		PaymentMetadata{OrderID: orderID.String(), ProductID: input.ProductID}, input.Description)
	if err != nil {
		return PayResult{}, err
	}

	newBalance, err := adjustBalance(ctx, tx, wid, record.Amount)
	if err != nil {
		return PayResult{}, err
	}

	row := tx.QueryRow(ctx, `UPDATE orders SET status = $1, settling_transaction_id = $2, updated_at = $3
        WHERE id = $4 RETURNING `+orderColumns, OrderPaid, record.ID, now, orderID)
	order, err := scanOrder(row)
	if err != nil {
		return PayResult{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return PayResult{}, err
	}
	return PayResult{Order: order, Transaction: record, Balance: newBalance}, nil
}

// RefundOrder reverses a paid order atomically.
func (s *PostgresStore) RefundOrder(ctx context.Context, orderID, reason string) (RefundResult, error) {
	oid, err := uuid.Parse(orderID)
	if err != nil {
		return RefundResult{}, ErrOrderNotFound
	}

	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return RefundResult{}, err
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	row := tx.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1 FOR UPDATE`, oid)
	order, err := scanOrder(row)
	if err != nil {
		return RefundResult{}, err
	}
	if order.Status != OrderPaid {
		return RefundResult{}, ErrInvalidTransition
	}

	var wid uuid.UUID
	if err := tx.QueryRow(ctx, `SELECT id FROM wallets WHERE owner_id = $1 FOR UPDATE`, order.BuyerID).Scan(&wid); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return RefundResult{}, ErrWalletNotFound
		}
		return RefundResult{}, err
	}

	record, err := insertTransaction(ctx, tx, wid, KindRefund, order.Amount, StatusCompleted,
		RefundMetadata{OrderID: order.ID, Reason: reason},
		fmt.Sprintf("refund for order %s", order.ID))
	if err != nil {
		return RefundResult{}, err
	}

	newBalance, err := adjustBalance(ctx, tx, wid, record.Amount)
	if err != nil {
		return RefundResult{}, err
	}

	now := time.Now().UTC()
	row = tx.QueryRow(ctx, `UPDATE orders SET status = $1, updated_at = $2 WHERE id = $3
        RETURNING `+orderColumns, OrderCancelled, now, oid)
	order, err = scanOrder(row)
	if err != nil {
		return RefundResult{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return RefundResult{}, err
	}
	return RefundResult{Order: order, Transaction: record, Balance: newBalance}, nil
}

// ApplyTransition moves a transaction to its next status and applies the
// balance delta in the same database transaction.
func (s *PostgresStore) ApplyTransition(ctx context.Context, transactionID string, next Status) (Transaction, error) {
	tid, err := uuid.Parse(transactionID)
	if err != nil {
		return Transaction{}, ErrTransactionNotFound
	}

	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return Transaction{}, err
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	row := tx.QueryRow(ctx, `SELECT `+transactionColumns+` FROM transactions WHERE id = $1 FOR UPDATE`, tid)
	record, err := scanTransaction(row)
	if err != nil {
		return Transaction{}, err
	}
	if !canTransition(record.Status, next) {
		return Transaction{}, ErrInvalidTransition
	}

	if delta := balanceDelta(record.Amount, record.Status, next); delta != 0 {
		wid, err := uuid.Parse(record.WalletID)
		if err != nil {
			return Transaction{}, ErrWalletNotFound
		}
		if _, err := adjustBalance(ctx, tx, wid, delta); err != nil {
			return Transaction{}, err
		}
	}

	now := time.Now().UTC()
	row = tx.QueryRow(ctx, `UPDATE transactions SET status = $1, updated_at = $2 WHERE id = $3
        RETURNING `+transactionColumns, next, now, tid)
	record, err = scanTransaction(row)
	if err != nil {
		return Transaction{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return Transaction{}, err
	}
	return record, nil
}

// Transaction fetches a single transaction.
func (s *PostgresStore) Transaction(ctx context.Context, transactionID string) (Transaction, error) {
	tid, err := uuid.Parse(transactionID)
	if err != nil {
		return Transaction{}, ErrTransactionNotFound
	}
	row := s.db.QueryRow(ctx, `SELECT `+transactionColumns+` FROM transactions WHERE id = $1`, tid)
	return scanTransaction(row)
}

// Transactions lists the wallet's transactions, newest first.
func (s *PostgresStore) Transactions(ctx context.Context, walletID string, limit int) ([]Transaction, error) {
	wid, err := uuid.Parse(walletID)
	if err != nil {
		return nil, ErrWalletNotFound
	}
	rows, err := s.db.Query(ctx, `SELECT `+transactionColumns+` FROM transactions
        WHERE wallet_id = $1 ORDER BY created_at DESC LIMIT $2`, wid, normalizeLimit(limit))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Transaction
	for rows.Next() {
		record, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, record)
	}
	return out, rows.Err()
}

// Orders lists the buyer's orders, newest first.
func (s *PostgresStore) Orders(ctx context.Context, buyerID string, limit int) ([]Order, error) {
	buyer, err := uuid.Parse(buyerID)
	if err != nil {
		return nil, fmt.Errorf("invalid buyer id: %w", err)
	}
	rows, err := s.db.Query(ctx, `SELECT `+orderColumns+` FROM orders
        WHERE buyer_id = $1 ORDER BY created_at DESC LIMIT $2`, buyer, normalizeLimit(limit))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Order
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, order)
	}
	return out, rows.Err()
}

// Order fetches a single order.
func (s *PostgresStore) Order(ctx context.Context, orderID string) (Order, error) {
	oid, err := uuid.Parse(orderID)
	if err != nil {
		return Order{}, ErrOrderNotFound
	}
	row := s.db.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, oid)
	return scanOrder(row)
}

// AdvanceOrder moves an order along the fulfilment lifecycle.
func (s *PostgresStore) AdvanceOrder(ctx context.Context, orderID string, next OrderStatus) (Order, error) {
	oid, err := uuid.Parse(orderID)
	if err != nil {
		return Order{}, ErrOrderNotFound
	}

	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return Order{}, err
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	row := tx.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1 FOR UPDATE`, oid)
	order, err := scanOrder(row)
	if err != nil {
		return Order{}, err
	}
	if !canAdvanceOrder(order.Status, next) {
		return Order{}, ErrInvalidTransition
	}

	row = tx.QueryRow(ctx, `UPDATE orders SET status = $1, updated_at = $2 WHERE id = $3
        RETURNING `+orderColumns, next, time.Now().UTC(), oid)
	order, err = scanOrder(row)
	if err != nil {
		return Order{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return Order{}, err
	}
	return order, nil
}

func lockWallet(ctx context.Context, tx pgx.Tx, walletID uuid.UUID) error {
	var id uuid.UUID
	if err := tx.QueryRow(ctx, `SELECT id FROM wallets WHERE id = $1 FOR UPDATE`, walletID).Scan(&id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrWalletNotFound
		}
		return err
	}
	return nil
}

func lockedBalance(ctx context.Context, tx pgx.Tx, walletID uuid.UUID) (int64, error) {
	var balance int64
	if err := tx.QueryRow(ctx, `SELECT balance FROM wallets WHERE id = $1 FOR UPDATE`, walletID).Scan(&balance); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrWalletNotFound
		}
		return 0, err
	}
	return balance, nil
}

// adjustBalance applies a signed delta, guarded so the balance never drops
// below zero.
func adjustBalance(ctx context.Context, tx pgx.Tx, walletID uuid.UUID, delta int64) (int64, error) {
	var balance int64
	err := tx.QueryRow(ctx, `UPDATE wallets SET balance = balance + $1, updated_at = $2
        WHERE id = $3 AND balance + $1 >= 0 RETURNING balance`, delta, time.Now().UTC(), walletID).Scan(&balance)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrInsufficientBalance
		}
		return 0, err
	}
	return balance, nil
}

func insertTransaction(ctx context.Context, tx pgx.Tx, walletID uuid.UUID, kind Kind, amount int64, status Status, meta Metadata, description string) (Transaction, error) {
	raw, err := encodeMetadata(meta)
	if err != nil {
		return Transaction{}, err
	}
	now := time.Now().UTC()
	row := tx.QueryRow(ctx, `INSERT INTO transactions (id, wallet_id, kind, amount, status, description, reference, metadata, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $9) RETURNING `+transactionColumns,
		uuid.New(), walletID, kind, amount, status, description, newReference(kind), raw, now)
	return scanTransaction(row)
}

func scanWallet(row pgx.Row) (Wallet, error) {
	var (
		w       Wallet
		id      uuid.UUID
		ownerID uuid.UUID
	)
	if err := row.Scan(&id, &ownerID, &w.Balance, &w.CreatedAt, &w.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Wallet{}, ErrWalletNotFound
		}
		return Wallet{}, err
	}
	w.ID = id.String()
	w.OwnerID = ownerID.String()
	return w, nil
}

func scanTransaction(row pgx.Row) (Transaction, error) {
	var (
		t        Transaction
		id       uuid.UUID
		walletID uuid.UUID
		raw      []byte
	)
	if err := row.Scan(&id, &walletID, &t.Kind, &t.Amount, &t.Status, &t.Description, &t.Reference, &raw, &t.CreatedAt, &t.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Transaction{}, ErrTransactionNotFound
		}
		return Transaction{}, err
	}
	t.ID = id.String()
	t.WalletID = walletID.String()
	meta, err := decodeMetadata(t.Kind, raw)
	if err != nil {
		return Transaction{}, err
	}
	t.Metadata = meta
	return t, nil
}

func scanOrder(row pgx.Row) (Order, error) {
	var (
		o       Order
		id      uuid.UUID
		buyerID uuid.UUID
	)
	if err := row.Scan(&id, &buyerID, &o.ProductID, &o.Amount, &o.Status, &o.SettlingTransactionID, &o.CreatedAt, &o.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Order{}, ErrOrderNotFound
		}
		return Order{}, err
	}
	o.ID = id.String()
	o.BuyerID = buyerID.String()
	return o, nil
}

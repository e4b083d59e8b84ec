package orders

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/sokoni-app/sokoni_wallet/internal/catalog"
	"github.com/sokoni-app/sokoni_wallet/internal/ledger"
)

type fixture struct {
	svc      *Service
	store    ledger.Store
	products *catalog.MemoryCatalog
	buyerID  string
	sellerID string
	walletID string
}

func newFixture(t *testing.T, balance int64) fixture {
	t.Helper()
	store := ledger.NewInMemory()
	products := catalog.NewMemoryCatalog()
	svc := NewService(store, products, nil)

	buyerID := uuid.NewString()
	w, err := store.EnsureWallet(context.Background(), buyerID)
	if err != nil {
		t.Fatalf("ensure wallet: %v", err)
	}
	if balance > 0 {
		ledger.SeedBalance(store, w.ID, balance)
	}

	return fixture{
		svc:      svc,
		store:    store,
		products: products,
		buyerID:  buyerID,
		sellerID: uuid.NewString(),
		walletID: w.ID,
	}
}

func TestPayUsesListedPrice(t *testing.T) {
	f := newFixture(t, 5_000)
	ctx := context.Background()
	product := f.products.Add(f.sellerID, "charcoal stove", 1_500)

	res, err := f.svc.Pay(ctx, PayInput{BuyerID: f.buyerID, ProductID: product.ID})
	if err != nil {
		t.Fatalf("pay: %v", err)
	}
	if res.Transaction.Amount != -1_500 {
		t.Fatalf("expected debit of the listed price, got %d", res.Transaction.Amount)
	}
	if res.Order.Status != ledger.OrderPaid {
		t.Fatalf("expected paid order, got %s", res.Order.Status)
	}
	if res.Order.SettlingTransactionID != res.Transaction.ID {
		t.Fatal("order must reference its settling transaction")
	}
	if res.Balance != 3_500 {
		t.Fatalf("expected balance 3500, got %d", res.Balance)
	}
}

func TestPayRejectsDelistedProduct(t *testing.T) {
	f := newFixture(t, 5_000)
	ctx := context.Background()
	product := f.products.Add(f.sellerID, "old phone", 2_000)
	f.products.Deactivate(product.ID)

	_, err := f.svc.Pay(ctx, PayInput{BuyerID: f.buyerID, ProductID: product.ID})
	if !errors.Is(err, catalog.ErrProductNotFound) {
		t.Fatalf("expected ErrProductNotFound for delisted product, got %v", err)
	}
}

func TestPayUnknownProduct(t *testing.T) {
	f := newFixture(t, 5_000)

	_, err := f.svc.Pay(context.Background(), PayInput{BuyerID: f.buyerID, ProductID: uuid.NewString()})
	if !errors.Is(err, catalog.ErrProductNotFound) {
		t.Fatalf("expected ErrProductNotFound, got %v", err)
	}
}

func TestPayInsufficientBalanceLeavesNoOrder(t *testing.T) {
	f := newFixture(t, 100)
	ctx := context.Background()
	product := f.products.Add(f.sellerID, "solar lamp", 900)

	_, err := f.svc.Pay(ctx, PayInput{BuyerID: f.buyerID, ProductID: product.ID})
	if !errors.Is(err, ledger.ErrInsufficientBalance) {
		t.Fatalf("expected ErrInsufficientBalance, got %v", err)
	}

	list, err := f.store.Orders(ctx, f.buyerID, 0)
	if err != nil {
		t.Fatalf("list orders: %v", err)
	}
	if len(list) != 0 {
		t.Fatalf("failed purchase must not leave an order, got %d", len(list))
	}
	if balance, _ := f.store.Balance(ctx, f.walletID); balance != 100 {
		t.Fatalf("expected balance untouched at 100, got %d", balance)
	}
}

func TestAdvanceRequiresSeller(t *testing.T) {
	f := newFixture(t, 5_000)
	ctx := context.Background()
	product := f.products.Add(f.sellerID, "bicycle", 2_500)

	res, err := f.svc.Pay(ctx, PayInput{BuyerID: f.buyerID, ProductID: product.ID})
	if err != nil {
		t.Fatalf("pay: %v", err)
	}

	if _, err := f.svc.Advance(ctx, uuid.NewString(), res.Order.ID, ledger.OrderShipped); !errors.Is(err, ErrNotSeller) {
		t.Fatalf("expected ErrNotSeller for a stranger, got %v", err)
	}

	order, err := f.svc.Advance(ctx, f.sellerID, res.Order.ID, ledger.OrderShipped)
	if err != nil {
		t.Fatalf("advance: %v", err)
	}
	if order.Status != ledger.OrderShipped {
		t.Fatalf("expected shipped, got %s", order.Status)
	}
}

func TestRefundCreditsBuyer(t *testing.T) {
	f := newFixture(t, 5_000)
	ctx := context.Background()
	product := f.products.Add(f.sellerID, "radio", 1_000)

	res, err := f.svc.Pay(ctx, PayInput{BuyerID: f.buyerID, ProductID: product.ID})
	if err != nil {
		t.Fatalf("pay: %v", err)
	}

	refund, err := f.svc.Refund(ctx, f.sellerID, res.Order.ID, "out of stock")
	if err != nil {
		t.Fatalf("refund: %v", err)
	}
	if refund.Order.Status != ledger.OrderCancelled {
		t.Fatalf("expected cancelled order, got %s", refund.Order.Status)
	}
	if refund.Transaction.Kind != ledger.KindRefund || refund.Transaction.Amount != 1_000 {
		t.Fatalf("expected positive refund of 1000, got %s %d", refund.Transaction.Kind, refund.Transaction.Amount)
	}
	if refund.Balance != 5_000 {
		t.Fatalf("expected balance restored to 5000, got %d", refund.Balance)
	}

	// Refunding twice is rejected.
	if _, err := f.svc.Refund(ctx, f.sellerID, res.Order.ID, "again"); !errors.Is(err, ledger.ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition on double refund, got %v", err)
	}
}

func TestRefundRequiresSeller(t *testing.T) {
	f := newFixture(t, 5_000)
	ctx := context.Background()
	product := f.products.Add(f.sellerID, "kettle", 800)

	res, err := f.svc.Pay(ctx, PayInput{BuyerID: f.buyerID, ProductID: product.ID})
	if err != nil {
		t.Fatalf("pay: %v", err)
	}

	if _, err := f.svc.Refund(ctx, f.buyerID, res.Order.ID, "changed my mind"); !errors.Is(err, ErrNotSeller) {
		t.Fatalf("expected ErrNotSeller, got %v", err)
	}
}

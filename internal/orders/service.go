package orders

import (
	"context"
	"errors"
	"fmt"

	"github.com/sokoni-app/sokoni_wallet/internal/catalog"
	"github.com/sokoni-app/sokoni_wallet/internal/ledger"
	"github.com/sokoni-app/sokoni_wallet/internal/notification"
)

// ErrNotSeller indicates the caller does not own the product behind the order.
var ErrNotSeller = errors.New("not the seller of this order")

// Service wires purchases against the catalog and the ledger store.
type Service struct {
	store    ledger.Store
	products catalog.Catalog
	notifier notification.Notifier
}

// NewService constructs an order service.
func NewService(store ledger.Store, products catalog.Catalog, notifier notification.Notifier) *Service {
	return &Service{store: store, products: products, notifier: notifier}
}

// PayInput captures the data needed to purchase a product. A zero Amount means
// "pay the listed price".
type PayInput struct {
	BuyerID   string
	ProductID string
	Amount    int64
}

// Pay validates the product and settles the purchase atomically: the order,
// its completed payment transaction and the balance debit commit as a unit.
func (s *Service) Pay(ctx context.Context, input PayInput) (ledger.PayResult, error) {
	product, err := s.products.Product(ctx, input.ProductID)
	if err != nil {
		return ledger.PayResult{}, err
	}
	if !product.Active {
		return ledger.PayResult{}, catalog.ErrProductNotFound
	}

	amount := input.Amount
	if amount == 0 {
		amount = product.Price
	}
	if amount <= 0 {
		return ledger.PayResult{}, ledger.ErrInvalidAmount
	}

	w, err := s.store.WalletByOwner(ctx, input.BuyerID)
	if err != nil {
		return ledger.PayResult{}, err
	}

	res, err := s.store.Pay(ctx, ledger.PayInput{
		WalletID:    w.ID,
		BuyerID:     input.BuyerID,
		ProductID:   product.ID,
		Amount:      amount,
		Description: fmt.Sprintf("purchase of %s", product.Name),
	})
	if err != nil {
		return ledger.PayResult{}, err
	}

	s.notify(ctx, notification.Message{
		Kind:        notification.KindPayment,
		Destination: input.BuyerID,
		Body:        fmt.Sprintf("Paid %d for %s", amount, product.Name),
		Balance:     res.Balance,
	})

	return res, nil
}

// List returns the buyer's orders, newest first.
func (s *Service) List(ctx context.Context, buyerID string, limit int) ([]ledger.Order, error) {
	return s.store.Orders(ctx, buyerID, limit)
}

// Advance moves an order along the fulfilment lifecycle on behalf of the
// product's seller.
func (s *Service) Advance(ctx context.Context, sellerID, orderID string, next ledger.OrderStatus) (ledger.Order, error) {
	order, err := s.store.Order(ctx, orderID)
	if err != nil {
		return ledger.Order{}, err
	}
	if err := s.requireSeller(ctx, sellerID, order.ProductID); err != nil {
		return ledger.Order{}, err
	}
	return s.store.AdvanceOrder(ctx, orderID, next)
}

// Refund reverses a paid order on behalf of the seller, crediting the buyer's
// wallet and cancelling the order atomically.
func (s *Service) Refund(ctx context.Context, sellerID, orderID, reason string) (ledger.RefundResult, error) {
	order, err := s.store.Order(ctx, orderID)
	if err != nil {
		return ledger.RefundResult{}, err
	}
	if err := s.requireSeller(ctx, sellerID, order.ProductID); err != nil {
		return ledger.RefundResult{}, err
	}

	res, err := s.store.RefundOrder(ctx, orderID, reason)
	if err != nil {
		return ledger.RefundResult{}, err
	}

	s.notify(ctx, notification.Message{
		Kind:        notification.KindRefund,
		Destination: res.Order.BuyerID,
		Body:        fmt.Sprintf("Order %s refunded: %s", res.Order.ID, reason),
		Balance:     res.Balance,
	})
	return res, nil
}

func (s *Service) requireSeller(ctx context.Context, sellerID, productID string) error {
	product, err := s.products.Product(ctx, productID)
	if err != nil {
		return err
	}
	if product.SellerID != sellerID {
		return ErrNotSeller
	}
	return nil
}

func (s *Service) notify(ctx context.Context, msg notification.Message) {
	if s.notifier != nil {
		_ = s.notifier.Send(ctx, msg)
	}
}

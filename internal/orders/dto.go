package orders

import (
	"time"

	"github.com/sokoni-app/sokoni_wallet/internal/ledger"
)

// PayRequest captures user-provided purchase data. Amount is optional; zero
// means "pay the listed price".
type PayRequest struct {
	ProductID string `json:"product_id"`
	Amount    int64  `json:"amount"`
}

// AdvanceRequest moves an order to the next fulfilment status.
type AdvanceRequest struct {
	Status string `json:"status"`
}

// RefundRequest reverses a paid order.
type RefundRequest struct {
	Reason string `json:"reason"`
}

// OrderResponse is the API shape of an order.
type OrderResponse struct {
	ID                    string    `json:"id"`
	ProductID             string    `json:"product_id"`
	Amount                int64     `json:"amount"`
	Status                string    `json:"status"`
	SettlingTransactionID string    `json:"settling_transaction_id,omitempty"`
	CreatedAt             time.Time `json:"created_at"`
}

// PayResponse reports the committed purchase.
type PayResponse struct {
	Order         OrderResponse `json:"order"`
	TransactionID string        `json:"transaction_id"`
	Balance       int64         `json:"balance"`
}

func toOrderResponse(o ledger.Order) OrderResponse {
	return OrderResponse{
		ID:                    o.ID,
		ProductID:             o.ProductID,
		Amount:                o.Amount,
		Status:                string(o.Status),
		SettlingTransactionID: o.SettlingTransactionID,
		CreatedAt:             o.CreatedAt,
	}
}

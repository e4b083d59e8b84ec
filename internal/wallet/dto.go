package wallet

import (
	"time"

	"github.com/sokoni-app/sokoni_wallet/internal/ledger"
)

// FundRequest captures user-provided data to top up a wallet.
type FundRequest struct {
	Amount int64  `json:"amount"`
	Method string `json:"method"`
}

// WithdrawRequest captures withdrawal details.
type WithdrawRequest struct {
	Amount      int64  `json:"amount"`
	Destination string `json:"destination"`
}

// TransactionResponse is the API shape of a ledger transaction.
type TransactionResponse struct {
	ID          string    `json:"id"`
	Kind        string    `json:"kind"`
	Amount      int64     `json:"amount"`
	Status      string    `json:"status"`
	Description string    `json:"description"`
	Reference   string    `json:"reference"`
	CreatedAt   time.Time `json:"created_at"`
}

// MutationResponse reports the accepted transaction and the settled balance.
type MutationResponse struct {
	Transaction TransactionResponse `json:"transaction"`
	Balance     int64               `json:"balance"`
}

// BalanceResponse is the balance projection payload.
type BalanceResponse struct {
	WalletID string    `json:"wallet_id"`
	Balance  int64     `json:"balance"`
	AsOf     time.Time `json:"as_of"`
}

func toTransactionResponse(tx ledger.Transaction) TransactionResponse {
	return TransactionResponse{
		ID:          tx.ID,
		Kind:        string(tx.Kind),
		Amount:      tx.Amount,
		Status:      string(tx.Status),
		Description: tx.Description,
		Reference:   tx.Reference,
		CreatedAt:   tx.CreatedAt,
	}
}

func toMutationResponse(res MutationResult) MutationResponse {
	return MutationResponse{
		Transaction: toTransactionResponse(res.Transaction),
		Balance:     res.Balance,
	}
}

package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/sokoni-app/sokoni_wallet/internal/wallet"
)

// RegisterWalletRoutes wires wallet funding, withdrawal and projection endpoints.
func RegisterWalletRoutes(r fiber.Router, h *wallet.Handler) {
	r.Post("/wallet/fund", h.Fund)
	r.Post("/wallet/withdraw", h.Withdraw)
	r.Get("/wallet", h.Balance)
	r.Get("/wallet/transactions", h.Transactions)
	r.Post("/wallet/transactions/:txId/cancel", h.Cancel)
}

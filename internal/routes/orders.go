package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/sokoni-app/sokoni_wallet/internal/orders"
)

// RegisterOrderRoutes wires purchase and fulfilment endpoints.
func RegisterOrderRoutes(r fiber.Router, h *orders.Handler) {
	r.Post("/orders", h.Pay)
	r.Get("/orders", h.List)
	r.Patch("/orders/:orderId/status", h.Advance)
	r.Post("/orders/:orderId/refund", h.Refund)
}

package orders

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/sokoni-app/sokoni_wallet/internal/catalog"
	"github.com/sokoni-app/sokoni_wallet/internal/ledger"
)

// Handler exposes HTTP endpoints for purchases and order fulfilment.
type Handler struct {
	service *Service
}

// NewHandler constructs an orders handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Pay purchases a product with the caller's wallet.
func (h *Handler) Pay(c *fiber.Ctx) error {
	buyerID, _ := c.Locals("user_id").(string)
	var req PayRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}

	res, err := h.service.Pay(c.UserContext(), PayInput{
		BuyerID:   buyerID,
		ProductID: req.ProductID,
		Amount:    req.Amount,
	})
	if err != nil {
		return mapOrderError(err)
	}

	return c.Status(http.StatusCreated).JSON(PayResponse{
		Order:         toOrderResponse(res.Order),
		TransactionID: res.Transaction.ID,
		Balance:       res.Balance,
	})
}

// List returns the caller's orders, newest first.
func (h *Handler) List(c *fiber.Ctx) error {
	buyerID, _ := c.Locals("user_id").(string)
	limit := c.QueryInt("limit")

	list, err := h.service.List(c.UserContext(), buyerID, limit)
	if err != nil {
		return mapOrderError(err)
	}

	out := make([]OrderResponse, 0, len(list))
	for _, o := range list {
		out = append(out, toOrderResponse(o))
	}
	return c.JSON(fiber.Map{"orders": out})
}

// Advance moves an order forward in the fulfilment lifecycle.
func (h *Handler) Advance(c *fiber.Ctx) error {
	sellerID, _ := c.Locals("user_id").(string)
	orderID := c.Params("orderId")
	var req AdvanceRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}

	order, err := h.service.Advance(c.UserContext(), sellerID, orderID, ledger.OrderStatus(req.Status))
	if err != nil {
		return mapOrderError(err)
	}
	return c.JSON(toOrderResponse(order))
}

// Refund reverses a paid order.
func (h *Handler) Refund(c *fiber.Ctx) error {
	sellerID, _ := c.Locals("user_id").(string)
	orderID := c.Params("orderId")
	var req RefundRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}

	res, err := h.service.Refund(c.UserContext(), sellerID, orderID, req.Reason)
	if err != nil {
		return mapOrderError(err)
	}
	return c.JSON(fiber.Map{
		"order":          toOrderResponse(res.Order),
		"transaction_id": res.Transaction.ID,
	})
}

func mapOrderError(err error) error {
	switch {
	case errors.Is(err, catalog.ErrProductNotFound):
		return fiber.NewError(http.StatusNotFound, err.Error())
	case errors.Is(err, ErrNotSeller):
		return fiber.NewError(http.StatusForbidden, err.Error())
	case errors.Is(err, ledger.ErrInvalidAmount):
		return fiber.NewError(http.StatusBadRequest, err.Error())
	case errors.Is(err, ledger.ErrInsufficientBalance):
		return fiber.NewError(http.StatusBadRequest, "insufficient balance; fund your wallet and retry")
	case errors.Is(err, ledger.ErrWalletNotFound), errors.Is(err, ledger.ErrOrderNotFound):
		return fiber.NewError(http.StatusNotFound, err.Error())
	case errors.Is(err, ledger.ErrInvalidTransition):
		return fiber.NewError(http.StatusConflict, err.Error())
	default:
		return fiber.NewError(http.StatusInternalServerError, "operation failed; please retry")
	}
}

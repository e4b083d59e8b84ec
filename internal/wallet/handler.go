package wallet

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/sokoni-app/sokoni_wallet/internal/ledger"
)

// Handler exposes HTTP endpoints for wallet funding, withdrawal and projections.
type Handler struct {
	service *Service
}

// NewHandler constructs a wallet handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Fund tops up the caller's wallet.
func (h *Handler) Fund(c *fiber.Ctx) error {
	ownerID, _ := c.Locals("user_id").(string)
	var req FundRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}

	res, err := h.service.Fund(c.UserContext(), FundInput{
		OwnerID: ownerID,
		Amount:  req.Amount,
		Method:  req.Method,
	})
	if err != nil {
		return mapLedgerError(err)
	}

	return c.Status(http.StatusAccepted).JSON(toMutationResponse(res))
}

// Withdraw moves funds out of the caller's wallet.
func (h *Handler) Withdraw(c *fiber.Ctx) error {
	ownerID, _ := c.Locals("user_id").(string)
	var req WithdrawRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}

	res, err := h.service.Withdraw(c.UserContext(), WithdrawInput{
		OwnerID:     ownerID,
		Amount:      req.Amount,
		Destination: req.Destination,
	})
	if err != nil {
		return mapLedgerError(err)
	}

	return c.Status(http.StatusAccepted).JSON(toMutationResponse(res))
}

// Balance returns the caller's settled balance.
func (h *Handler) Balance(c *fiber.Ctx) error {
	ownerID, _ := c.Locals("user_id").(string)
	view, err := h.service.Balance(c.UserContext(), ownerID)
	if err != nil {
		return mapLedgerError(err)
	}
	return c.JSON(BalanceResponse{WalletID: view.WalletID, Balance: view.Amount, AsOf: view.AsOf})
}

// Transactions returns the caller's statement, newest first.
func (h *Handler) Transactions(c *fiber.Ctx) error {
	ownerID, _ := c.Locals("user_id").(string)
	limit := c.QueryInt("limit")

	txs, err := h.service.Statement(c.UserContext(), ownerID, limit)
	if err != nil {
		return mapLedgerError(err)
	}

	out := make([]TransactionResponse, 0, len(txs))
	for _, tx := range txs {
		out = append(out, toTransactionResponse(tx))
	}
	return c.JSON(fiber.Map{"transactions": out})
}

// Cancel cancels one of the caller's pending transactions.
func (h *Handler) Cancel(c *fiber.Ctx) error {
	ownerID, _ := c.Locals("user_id").(string)
	txID := c.Params("txId")

	tx, err := h.service.Cancel(c.UserContext(), ownerID, txID)
	if err != nil {
		return mapLedgerError(err)
	}
	return c.JSON(toTransactionResponse(tx))
}

// mapLedgerError converts ledger sentinel errors into HTTP errors with
// actionable messages.
func mapLedgerError(err error) error {
	switch {
	case errors.Is(err, ledger.ErrInvalidAmount):
		return fiber.NewError(http.StatusBadRequest, err.Error())
	case errors.Is(err, ledger.ErrInsufficientBalance):
		return fiber.NewError(http.StatusBadRequest, "insufficient balance; fund your wallet and retry")
	case errors.Is(err, ledger.ErrWalletNotFound),
		errors.Is(err, ledger.ErrTransactionNotFound),
		errors.Is(err, ledger.ErrOrderNotFound):
		return fiber.NewError(http.StatusNotFound, err.Error())
	case errors.Is(err, ledger.ErrInvalidTransition):
		return fiber.NewError(http.StatusConflict, err.Error())
	default:
		return fiber.NewError(http.StatusInternalServerError, "operation failed; please retry")
	}
}

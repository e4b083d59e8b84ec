package auth

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/sokoni-app/sokoni_wallet/internal/identity"
)

// Handler exposes registration and token endpoints.
type Handler struct {
	identities *identity.Service
	tokens     *Service
}

// NewHandler constructs an auth handler.
func NewHandler(identities *identity.Service, tokens *Service) *Handler {
	return &Handler{identities: identities, tokens: tokens}
}

type registerRequest struct {
	Phone    string `json:"phone"`
	PIN      string `json:"pin"`
	DeviceID string `json:"device_id"`
	Role     string `json:"role"`
}

type loginRequest struct {
	Phone    string `json:"phone"`
	PIN      string `json:"pin"`
	DeviceID string `json:"device_id"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// Register creates a user, provisions their wallet and issues tokens.
func (h *Handler) Register(c *fiber.Ctx) error {
	var req registerRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}

	user, err := h.identities.Register(c.UserContext(), identity.RegisterInput{
		Credentials: identity.Credentials{Phone: req.Phone, PIN: req.PIN, DeviceID: req.DeviceID},
		Role:        req.Role,
	})
	if err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}

	pair, err := h.tokens.Login(user)
	if err != nil {
		return fiber.NewError(http.StatusInternalServerError, "token issuance failed")
	}

	return c.Status(http.StatusCreated).JSON(fiber.Map{
		"user_id": user.ID,
		"role":    user.Role,
		"tokens":  pair,
	})
}

// Login authenticates credentials and issues tokens.
func (h *Handler) Login(c *fiber.Ctx) error {
	var req loginRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}

	user, err := h.identities.Authenticate(c.UserContext(), identity.Credentials{
		Phone: req.Phone, PIN: req.PIN, DeviceID: req.DeviceID,
	})
	if err != nil {
		return fiber.NewError(http.StatusUnauthorized, "invalid credentials")
	}

	pair, err := h.tokens.Login(user)
	if err != nil {
		return fiber.NewError(http.StatusInternalServerError, "token issuance failed")
	}
	return c.JSON(pair)
}

// Refresh exchanges a refresh token for a new access token.
func (h *Handler) Refresh(c *fiber.Ctx) error {
	var req refreshRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}

	access, expiresIn, err := h.tokens.Refresh(c.UserContext(), req.RefreshToken)
	if err != nil {
		return fiber.NewError(http.StatusUnauthorized, err.Error())
	}
	return c.JSON(fiber.Map{"access_token": access, "expires_in": expiresIn})
}

// Logout invalidates every token issued to the caller.
func (h *Handler) Logout(c *fiber.Ctx) error {
	userID, _ := c.Locals("user_id").(string)
	if userID == "" {
		return c.SendStatus(http.StatusUnauthorized)
	}
	if err := h.tokens.Logout(c.UserContext(), userID); err != nil {
		return fiber.NewError(http.StatusInternalServerError, "logout failed")
	}
	return c.SendStatus(http.StatusNoContent)
}

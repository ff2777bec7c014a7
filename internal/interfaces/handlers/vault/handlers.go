package vault

import (
	vaultsvc "fracshare-backend/internal/application/vault"
	"fracshare-backend/internal/middleware"
	"fracshare-backend/internal/pkg/constants"
	"fracshare-backend/internal/pkg/response"
	"fracshare-backend/internal/pkg/validation"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type Handlers struct {
	Service *vaultsvc.Service
}

// Deposit POST /api/v1/vault/deposit (admin credit, the Stripe webhook is
// the normal on-ramp)
func (h *Handlers) Deposit(c *fiber.Ctx) error {
	var body struct {
		Address     string `json:"address"`
		PaymentUnit string `json:"payment_unit"`
		Amount      int64  `json:"amount"`
	}
	if err := c.BodyParser(&body); err != nil {
		return response.Error(c, "Missing required fields", 400, nil)
	}
	if !validation.IsValidAddress(body.Address) {
		return response.Error(c, "Invalid address", 400, nil)
	}
	if body.PaymentUnit == "" {
		body.PaymentUnit = constants.DefaultPaymentUnit
	}
	balance, err := h.Service.Deposit(c.UserContext(), body.Address, body.PaymentUnit, body.Amount)
	if err != nil {
		return vaultError(c, err)
	}
	return response.Success(c, "Funds deposited", fiber.Map{
		"address":      body.Address,
		"payment_unit": body.PaymentUnit,
		"balance":      balance,
	}, nil)
}

// Withdraw POST /api/v1/vault/withdraw
func (h *Handlers) Withdraw(c *fiber.Ctx) error {
	var body struct {
		PaymentUnit string `json:"payment_unit"`
		Amount      int64  `json:"amount"`
	}
	if err := c.BodyParser(&body); err != nil {
		return response.Error(c, "Missing required fields", 400, nil)
	}
	address := middleware.GetUserAddress(c)
	if address == "" {
		return response.Error(c, "No address in session", 403, nil)
	}
	if body.PaymentUnit == "" {
		body.PaymentUnit = constants.DefaultPaymentUnit
	}
	balance, err := h.Service.Withdraw(c.UserContext(), address, body.PaymentUnit, body.Amount)
	if err != nil {
		return vaultError(c, err)
	}
	return response.Success(c, "Funds withdrawn", fiber.Map{
		"address":      address,
		"payment_unit": body.PaymentUnit,
		"balance":      balance,
	}, nil)
}

// Balance GET /api/v1/vault/balance?payment_unit=
func (h *Handlers) Balance(c *fiber.Ctx) error {
	address := middleware.GetUserAddress(c)
	if address == "" {
		return response.Error(c, "No address in session", 403, nil)
	}
	paymentUnit := c.Query("payment_unit", constants.DefaultPaymentUnit)
	balance, err := h.Service.CashBalance(c.UserContext(), address, paymentUnit)
	if err != nil {
		return vaultError(c, err)
	}
	return response.Success(c, "Cash balance fetched", fiber.Map{
		"address":      address,
		"payment_unit": paymentUnit,
		"balance":      balance,
	}, nil)
}

// Ticket GET /api/v1/vault/tickets/:ticket_id
func (h *Handlers) Ticket(c *fiber.Ctx) error {
	ticketID, err := uuid.Parse(c.Params("ticket_id"))
	if err != nil {
		return response.Error(c, "Invalid UUID format for ticket_id", 400, nil)
	}
	ticket, err := h.Service.GetTicket(c.UserContext(), ticketID)
	if err != nil {
		return vaultError(c, err)
	}
	return response.Success(c, "Escrow ticket fetched", ticket, nil)
}

func vaultError(c *fiber.Ctx, err error) error {
	switch err {
	case vaultsvc.ErrInvalidAmount:
		return response.Error(c, err.Error(), 400, nil)
	case vaultsvc.ErrInsufficientFunds:
		return response.Error(c, err.Error(), 409, nil)
	case vaultsvc.ErrTicketNotFound:
		return response.Error(c, err.Error(), 404, nil)
	case vaultsvc.ErrTicketNotHeld, vaultsvc.ErrTicketShort:
		return response.Error(c, err.Error(), 409, nil)
	default:
		return response.Error(c, "Internal Server Error", 500, nil)
	}
}

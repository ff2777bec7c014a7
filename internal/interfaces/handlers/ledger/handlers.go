package ledger

import (
	"strconv"

	ledgersvc "fracshare-backend/internal/application/ledger"
	"fracshare-backend/internal/middleware"
	"fracshare-backend/internal/pkg/response"
	"fracshare-backend/internal/pkg/validation"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type Handlers struct {
	Service *ledgersvc.Service
}

// Transfer POST /api/v1/ledger/transfer
func (h *Handlers) Transfer(c *fiber.Ctx) error {
	var body struct {
		AssetID string `json:"asset_id"`
		To      string `json:"to"`
		Amount  int64  `json:"amount"`
	}
	if err := c.BodyParser(&body); err != nil {
		return response.Error(c, "Missing required fields", 400, nil)
	}
	assetID, err := uuid.Parse(body.AssetID)
	if err != nil {
		return response.Error(c, "Invalid UUID format for asset_id", 400, nil)
	}
	if !validation.IsValidAddress(body.To) {
		return response.Error(c, "Invalid address for to", 400, nil)
	}
	from := middleware.GetUserAddress(c)
	if from == "" {
		return response.Error(c, "No address in session", 403, nil)
	}

	if err := h.Service.Transfer(c.UserContext(), assetID, from, body.To, body.Amount); err != nil {
		return ledgerError(c, err)
	}
	return response.Success(c, "Units transferred", fiber.Map{
		"asset_id": assetID,
		"from":     from,
		"to":       body.To,
		"amount":   body.Amount,
	}, nil)
}

// CreateCheckpoint POST /api/v1/ledger/create-checkpoint
func (h *Handlers) CreateCheckpoint(c *fiber.Ctx) error {
	var body struct {
		AssetID string `json:"asset_id"`
	}
	if err := c.BodyParser(&body); err != nil {
		return response.Error(c, "Missing required fields", 400, nil)
	}
	assetID, err := uuid.Parse(body.AssetID)
	if err != nil {
		return response.Error(c, "Invalid UUID format for asset_id", 400, nil)
	}
	actor := middleware.GetUserAddress(c)
	if actor == "" {
		return response.Error(c, "No address in session", 403, nil)
	}

	id, err := h.Service.CreateCheckpoint(c.UserContext(), assetID, actor)
	if err != nil {
		return ledgerError(c, err)
	}
	return response.SuccessCreated(c, "Checkpoint created", fiber.Map{
		"asset_id":      assetID,
		"checkpoint_id": id,
	}, nil)
}

// Balance GET /api/v1/ledger/balance/:asset_id?address=
func (h *Handlers) Balance(c *fiber.Ctx) error {
	assetID, err := uuid.Parse(c.Params("asset_id"))
	if err != nil {
		return response.Error(c, "Invalid UUID format for asset_id", 400, nil)
	}
	address := c.Query("address")
	if address == "" {
		address = middleware.GetUserAddress(c)
	}
	if !validation.IsValidAddress(address) {
		return response.Error(c, "Invalid address", 400, nil)
	}
	balance, err := h.Service.BalanceOf(c.UserContext(), assetID, address)
	if err != nil {
		return ledgerError(c, err)
	}
	return response.Success(c, "Balance fetched", fiber.Map{
		"asset_id": assetID,
		"address":  address,
		"balance":  balance,
	}, nil)
}

// BalanceAt GET /api/v1/ledger/balance-at?asset_id=&address=&checkpoint_id=
func (h *Handlers) BalanceAt(c *fiber.Ctx) error {
	assetID, err := uuid.Parse(c.Query("asset_id"))
	if err != nil {
		return response.Error(c, "Invalid UUID format for asset_id", 400, nil)
	}
	address := c.Query("address")
	if address == "" {
		address = middleware.GetUserAddress(c)
	}
	checkpointID, err := strconv.ParseInt(c.Query("checkpoint_id"), 10, 64)
	if err != nil {
		return response.Error(c, "Invalid checkpoint_id", 400, nil)
	}
	balance, err := h.Service.BalanceAt(c.UserContext(), assetID, address, checkpointID)
	if err != nil {
		return ledgerError(c, err)
	}
	return response.Success(c, "Historical balance fetched", fiber.Map{
		"asset_id":      assetID,
		"address":       address,
		"checkpoint_id": checkpointID,
		"balance":       balance,
	}, nil)
}

// SupplyAt GET /api/v1/ledger/supply-at?asset_id=&checkpoint_id=
func (h *Handlers) SupplyAt(c *fiber.Ctx) error {
	assetID, err := uuid.Parse(c.Query("asset_id"))
	if err != nil {
		return response.Error(c, "Invalid UUID format for asset_id", 400, nil)
	}
	checkpointID, err := strconv.ParseInt(c.Query("checkpoint_id"), 10, 64)
	if err != nil {
		return response.Error(c, "Invalid checkpoint_id", 400, nil)
	}
	supply, err := h.Service.TotalSupplyAt(c.UserContext(), assetID, checkpointID)
	if err != nil {
		return ledgerError(c, err)
	}
	return response.Success(c, "Historical supply fetched", fiber.Map{
		"asset_id":      assetID,
		"checkpoint_id": checkpointID,
		"total_supply":  supply,
	}, nil)
}

// Holdings GET /api/v1/ledger/holdings/:asset_id
func (h *Handlers) Holdings(c *fiber.Ctx) error {
	assetID, err := uuid.Parse(c.Params("asset_id"))
	if err != nil {
		return response.Error(c, "Invalid UUID format for asset_id", 400, nil)
	}
	holdings, err := h.Service.Holdings(c.UserContext(), assetID)
	if err != nil {
		return ledgerError(c, err)
	}
	return response.Success(c, "Holdings fetched", holdings, nil)
}

func ledgerError(c *fiber.Ctx, err error) error {
	switch err {
	case ledgersvc.ErrAssetNotFound:
		return response.Error(c, err.Error(), 404, nil)
	case ledgersvc.ErrUnknownCheckpoint:
		return response.Error(c, err.Error(), 404, nil)
	case ledgersvc.ErrInvalidAmount, ledgersvc.ErrSelfTransfer:
		return response.Error(c, err.Error(), 400, nil)
	case ledgersvc.ErrInsufficientBalance:
		return response.Error(c, err.Error(), 409, nil)
	case ledgersvc.ErrNotCheckpointAuthority:
		return response.Error(c, err.Error(), 403, nil)
	default:
		return response.Error(c, "Internal Server Error", 500, nil)
	}
}

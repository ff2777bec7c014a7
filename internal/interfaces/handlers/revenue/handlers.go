package revenue

import (
	revenuesvc "fracshare-backend/internal/application/revenue"
	"fracshare-backend/internal/middleware"
	"fracshare-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type Handlers struct {
	Service *revenuesvc.Service
}

// Claim POST /api/v1/revenue/rounds/:round_id/claim
func (h *Handlers) Claim(c *fiber.Ctx) error {
	roundID, err := uuid.Parse(c.Params("round_id"))
	if err != nil {
		return response.Error(c, "Invalid UUID format for round_id", 400, nil)
	}
	holder := middleware.GetUserAddress(c)
	if holder == "" {
		return response.Error(c, "No address in session", 403, nil)
	}
	amount, err := h.Service.Claim(c.UserContext(), roundID, holder)
	if err != nil {
		return revenueError(c, err)
	}
	return response.Success(c, "Revenue claimed", fiber.Map{
		"round_id": roundID,
		"holder":   holder,
		"amount":   amount,
	}, nil)
}

// GetRound GET /api/v1/revenue/rounds/:round_id
func (h *Handlers) GetRound(c *fiber.Ctx) error {
	roundID, err := uuid.Parse(c.Params("round_id"))
	if err != nil {
		return response.Error(c, "Invalid UUID format for round_id", 400, nil)
	}
	round, err := h.Service.GetRound(c.UserContext(), roundID)
	if err != nil {
		return revenueError(c, err)
	}
	return response.Success(c, "Revenue round fetched", round, nil)
}

// AssetRounds GET /api/v1/assets/:asset_id/revenue-rounds
func (h *Handlers) AssetRounds(c *fiber.Ctx) error {
	assetID, err := uuid.Parse(c.Params("asset_id"))
	if err != nil {
		return response.Error(c, "Invalid UUID format for asset_id", 400, nil)
	}
	rounds, err := h.Service.AssetRounds(c.UserContext(), assetID)
	if err != nil {
		return revenueError(c, err)
	}
	return response.Success(c, "Revenue rounds fetched", rounds, nil)
}

// RoundClaims GET /api/v1/revenue/rounds/:round_id/claims
func (h *Handlers) RoundClaims(c *fiber.Ctx) error {
	roundID, err := uuid.Parse(c.Params("round_id"))
	if err != nil {
		return response.Error(c, "Invalid UUID format for round_id", 400, nil)
	}
	claims, err := h.Service.RoundClaims(c.UserContext(), roundID)
	if err != nil {
		return revenueError(c, err)
	}
	return response.Success(c, "Claims fetched", claims, nil)
}

func revenueError(c *fiber.Ctx, err error) error {
	switch err {
	case revenuesvc.ErrRoundNotFound:
		return response.Error(c, err.Error(), 404, nil)
	case revenuesvc.ErrAlreadyClaimed:
		return response.Error(c, err.Error(), 409, nil)
	case revenuesvc.ErrNoBalance, revenuesvc.ErrInvalidAmount:
		return response.Error(c, err.Error(), 400, nil)
	default:
		return response.Error(c, "Internal Server Error", 500, nil)
	}
}

package assets

import (
	assetssvc "fracshare-backend/internal/application/assets"
	"fracshare-backend/internal/middleware"
	"fracshare-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type Handlers struct {
	Service *assetssvc.Service
}

// Issue POST /api/v1/assets
func (h *Handlers) Issue(c *fiber.Ctx) error {
	var body struct {
		AssetTypeID         string `json:"asset_type_id"`
		Symbol              string `json:"symbol"`
		TotalSupply         int64  `json:"total_supply"`
		CheckpointAuthority string `json:"checkpoint_authority"`
	}
	if err := c.BodyParser(&body); err != nil {
		return response.Error(c, "Missing required fields", 400, nil)
	}
	typeID, err := uuid.Parse(body.AssetTypeID)
	if err != nil {
		return response.Error(c, "Invalid UUID format for asset_type_id", 400, nil)
	}
	issuer := middleware.GetUserAddress(c)
	if issuer == "" {
		return response.Error(c, "No address in session", 403, nil)
	}

	// An empty checkpoint_authority falls back to the service's configured
	// distributor address, never the issuer.
	asset, err := h.Service.IssueAsset(c.UserContext(), assetssvc.IssueParams{
		Issuer:              issuer,
		AssetTypeID:         typeID,
		Symbol:              body.Symbol,
		TotalSupply:         body.TotalSupply,
		CheckpointAuthority: body.CheckpointAuthority,
	})
	if err != nil {
		switch err {
		case assetssvc.ErrTypeNotFound:
			return response.Error(c, err.Error(), 404, nil)
		case assetssvc.ErrSymbolTaken:
			return response.Error(c, err.Error(), 409, nil)
		case assetssvc.ErrSymbolRequired, assetssvc.ErrInvalidSupply, assetssvc.ErrInvalidAuthority:
			return response.Error(c, err.Error(), 400, nil)
		default:
			return response.Error(c, "Internal Server Error", 500, nil)
		}
	}
	return response.SuccessCreated(c, "Asset issued", asset, nil)
}

// Get GET /api/v1/assets/:asset_id
func (h *Handlers) Get(c *fiber.Ctx) error {
	assetID, err := uuid.Parse(c.Params("asset_id"))
	if err != nil {
		return response.Error(c, "Invalid UUID format for asset_id", 400, nil)
	}
	asset, err := h.Service.GetAsset(c.UserContext(), assetID)
	if err != nil {
		if err == assetssvc.ErrAssetNotFound {
			return response.Error(c, err.Error(), 404, nil)
		}
		return response.Error(c, "Internal Server Error", 500, nil)
	}
	return response.Success(c, "Asset fetched", asset, nil)
}

// List GET /api/v1/assets
func (h *Handlers) List(c *fiber.Ctx) error {
	out, err := h.Service.ListAssets(c.UserContext())
	if err != nil {
		return response.Error(c, "Internal Server Error", 500, nil)
	}
	return response.Success(c, "Assets fetched", out, nil)
}

package registry

import (
	registrysvc "fracshare-backend/internal/application/registry"
	"fracshare-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type Handlers struct {
	Service *registrysvc.Service
}

// CreateAssetType POST /api/v1/registry/asset-types
func (h *Handlers) CreateAssetType(c *fiber.Ctx) error {
	var body struct {
		Name       string `json:"name"`
		SchemaHash string `json:"schema_hash"`
	}
	if err := c.BodyParser(&body); err != nil {
		return response.Error(c, "Missing required fields", 400, nil)
	}
	assetType, err := h.Service.CreateAssetType(c.UserContext(), body.Name, body.SchemaHash)
	if err != nil {
		switch err {
		case registrysvc.ErrInvalidSchema, registrysvc.ErrNameRequired:
			return response.Error(c, err.Error(), 400, nil)
		case registrysvc.ErrNameTaken:
			return response.Error(c, err.Error(), 409, nil)
		default:
			return response.Error(c, "Internal Server Error", 500, nil)
		}
	}
	return response.SuccessCreated(c, "Asset type created", assetType, nil)
}

// GetAssetType GET /api/v1/registry/asset-types/:type_id
func (h *Handlers) GetAssetType(c *fiber.Ctx) error {
	typeID, err := uuid.Parse(c.Params("type_id"))
	if err != nil {
		return response.Error(c, "Invalid UUID format for type_id", 400, nil)
	}
	assetType, err := h.Service.GetAssetType(c.UserContext(), typeID)
	if err != nil {
		if err == registrysvc.ErrTypeNotFound {
			return response.Error(c, err.Error(), 404, nil)
		}
		return response.Error(c, "Internal Server Error", 500, nil)
	}
	return response.Success(c, "Asset type fetched", assetType, nil)
}

package events

import (
	eventssvc "fracshare-backend/internal/application/events"
	"fracshare-backend/internal/middleware"
	"fracshare-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type Handlers struct {
	Service *eventssvc.Service
}

// AssetEvents GET /api/v1/assets/:asset_id/events
func (h *Handlers) AssetEvents(c *fiber.Ctx) error {
	assetID, err := uuid.Parse(c.Params("asset_id"))
	if err != nil {
		return response.Error(c, "Invalid UUID format for asset_id", 400, nil)
	}
	out, err := h.Service.AssetEvents(c.UserContext(), assetID)
	if err != nil {
		return response.Error(c, "Internal Server Error", 500, nil)
	}
	return response.Success(c, "Events fetched", out, nil)
}

// MyEvents GET /api/v1/events/mine
func (h *Handlers) MyEvents(c *fiber.Ctx) error {
	actor := middleware.GetUserAddress(c)
	if actor == "" {
		return response.Error(c, "No address in session", 403, nil)
	}
	out, err := h.Service.ActorEvents(c.UserContext(), actor)
	if err != nil {
		return response.Error(c, "Internal Server Error", 500, nil)
	}
	return response.Success(c, "Events fetched", out, nil)
}

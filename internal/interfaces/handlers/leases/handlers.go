package leases

import (
	"encoding/hex"

	"fracshare-backend/internal/application/leaseintent"
	"fracshare-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type Handlers struct {
	Service *leaseintent.Service
}

// Get GET /api/v1/leases/:lease_id
func (h *Handlers) Get(c *fiber.Ctx) error {
	leaseID, err := uuid.Parse(c.Params("lease_id"))
	if err != nil {
		return response.Error(c, "Invalid UUID format for lease_id", 400, nil)
	}
	lease, err := h.Service.GetLease(c.UserContext(), leaseID)
	if err != nil {
		if err == leaseintent.ErrLeaseNotFound {
			return response.Error(c, err.Error(), 404, nil)
		}
		return response.Error(c, "Internal Server Error", 500, nil)
	}
	return response.Success(c, "Lease fetched", lease, nil)
}

// Digest POST /api/v1/leases/digest returns the canonical digest parties
// must sign for an intent, so clients do not reimplement the encoding.
func (h *Handlers) Digest(c *fiber.Ctx) error {
	var intent leaseintent.Intent
	if err := c.BodyParser(&intent); err != nil {
		return response.Error(c, "Missing required fields", 400, nil)
	}
	digest := leaseintent.HashIntent(intent)
	return response.Success(c, "Intent digest computed", fiber.Map{
		"digest": hex.EncodeToString(digest[:]),
	}, nil)
}

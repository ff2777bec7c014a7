package salebook

import (
	"encoding/hex"
	"time"

	"fracshare-backend/internal/application/leaseintent"
	ledgersvc "fracshare-backend/internal/application/ledger"
	revenuesvc "fracshare-backend/internal/application/revenue"
	salebooksvc "fracshare-backend/internal/application/salebook"
	vaultsvc "fracshare-backend/internal/application/vault"
	"fracshare-backend/internal/middleware"
	"fracshare-backend/internal/pkg/constants"
	"fracshare-backend/internal/pkg/response"
	"fracshare-backend/internal/pkg/validation"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type Handlers struct {
	Service *salebooksvc.Service
}

// PostSale POST /api/v1/listings/sale
func (h *Handlers) PostSale(c *fiber.Ctx) error {
	var body struct {
		AssetID      string `json:"asset_id"`
		PaymentUnit  string `json:"payment_unit"`
		Units        int64  `json:"units"`
		MinUnitPrice int64  `json:"min_unit_price"`
	}
	if err := c.BodyParser(&body); err != nil {
		return response.Error(c, "Missing required fields", 400, nil)
	}
	assetID, err := uuid.Parse(body.AssetID)
	if err != nil {
		return response.Error(c, "Invalid UUID format for asset_id", 400, nil)
	}
	seller := middleware.GetUserAddress(c)
	if seller == "" {
		return response.Error(c, "No address in session", 403, nil)
	}
	if body.PaymentUnit == "" {
		body.PaymentUnit = constants.DefaultPaymentUnit
	}
	listing, err := h.Service.PostSale(c.UserContext(), seller, assetID, body.PaymentUnit, body.Units, body.MinUnitPrice)
	if err != nil {
		return salebookError(c, err)
	}
	return response.SuccessCreated(c, "Sale listing created", listing, nil)
}

// PostLease POST /api/v1/listings/lease
func (h *Handlers) PostLease(c *fiber.Ctx) error {
	var body struct {
		AssetID         string `json:"asset_id"`
		PaymentUnit     string `json:"payment_unit"`
		RentAmount      int64  `json:"rent_amount"`
		RentPeriodSecs  int64  `json:"rent_period_secs"`
		SecurityDeposit int64  `json:"security_deposit"`
	}
	if err := c.BodyParser(&body); err != nil {
		return response.Error(c, "Missing required fields", 400, nil)
	}
	assetID, err := uuid.Parse(body.AssetID)
	if err != nil {
		return response.Error(c, "Invalid UUID format for asset_id", 400, nil)
	}
	lessor := middleware.GetUserAddress(c)
	if lessor == "" {
		return response.Error(c, "No address in session", 403, nil)
	}
	if body.PaymentUnit == "" {
		body.PaymentUnit = constants.DefaultPaymentUnit
	}
	listing, err := h.Service.PostLeaseOffer(c.UserContext(), lessor, assetID, body.PaymentUnit, body.RentAmount, body.RentPeriodSecs, body.SecurityDeposit)
	if err != nil {
		return salebookError(c, err)
	}
	return response.SuccessCreated(c, "Lease offer created", listing, nil)
}

// PlaceBid POST /api/v1/listings/:listing_id/bids
func (h *Handlers) PlaceBid(c *fiber.Ctx) error {
	listingID, err := uuid.Parse(c.Params("listing_id"))
	if err != nil {
		return response.Error(c, "Invalid UUID format for listing_id", 400, nil)
	}
	var body struct {
		Units     int64 `json:"units"`
		UnitPrice int64 `json:"unit_price"`
	}
	if err := c.BodyParser(&body); err != nil {
		return response.Error(c, "Missing required fields", 400, nil)
	}
	bidder := middleware.GetUserAddress(c)
	if bidder == "" {
		return response.Error(c, "No address in session", 403, nil)
	}
	bid, err := h.Service.PlaceBid(c.UserContext(), bidder, listingID, body.Units, body.UnitPrice)
	if err != nil {
		return salebookError(c, err)
	}
	return response.SuccessCreated(c, "Bid placed", bid, nil)
}

// PlaceLeaseBid POST /api/v1/listings/:listing_id/lease-bids
func (h *Handlers) PlaceLeaseBid(c *fiber.Ctx) error {
	listingID, err := uuid.Parse(c.Params("listing_id"))
	if err != nil {
		return response.Error(c, "Invalid UUID format for listing_id", 400, nil)
	}
	lessee := middleware.GetUserAddress(c)
	if lessee == "" {
		return response.Error(c, "No address in session", 403, nil)
	}
	bid, err := h.Service.PlaceLeaseBid(c.UserContext(), lessee, listingID)
	if err != nil {
		return salebookError(c, err)
	}
	return response.SuccessCreated(c, "Lease bid placed", bid, nil)
}

// AcceptBid POST /api/v1/listings/:listing_id/accept
func (h *Handlers) AcceptBid(c *fiber.Ctx) error {
	listingID, err := uuid.Parse(c.Params("listing_id"))
	if err != nil {
		return response.Error(c, "Invalid UUID format for listing_id", 400, nil)
	}
	var body struct {
		BidID string `json:"bid_id"`
	}
	if err := c.BodyParser(&body); err != nil {
		return response.Error(c, "Missing required fields", 400, nil)
	}
	bidID, err := uuid.Parse(body.BidID)
	if err != nil {
		return response.Error(c, "Invalid UUID format for bid_id", 400, nil)
	}
	seller := middleware.GetUserAddress(c)
	if seller == "" {
		return response.Error(c, "No address in session", 403, nil)
	}
	bid, err := h.Service.AcceptBid(c.UserContext(), seller, listingID, bidID)
	if err != nil {
		return salebookError(c, err)
	}
	return response.Success(c, "Bid accepted", bid, nil)
}

// AcceptLeaseBid POST /api/v1/listings/:listing_id/accept-lease
func (h *Handlers) AcceptLeaseBid(c *fiber.Ctx) error {
	listingID, err := uuid.Parse(c.Params("listing_id"))
	if err != nil {
		return response.Error(c, "Invalid UUID format for listing_id", 400, nil)
	}
	var body struct {
		BidID     string             `json:"bid_id"`
		Intent    leaseintent.Intent `json:"intent"`
		LessorSig string             `json:"lessor_sig"`
		LesseeSig string             `json:"lessee_sig"`
	}
	if err := c.BodyParser(&body); err != nil {
		return response.Error(c, "Missing required fields", 400, nil)
	}
	bidID, err := uuid.Parse(body.BidID)
	if err != nil {
		return response.Error(c, "Invalid UUID format for bid_id", 400, nil)
	}
	if !validation.IsValidSignature(body.LessorSig) || !validation.IsValidSignature(body.LesseeSig) {
		return response.Error(c, "Signatures must be 128-char hex", 400, nil)
	}
	lessorSig, _ := hex.DecodeString(body.LessorSig)
	lesseeSig, _ := hex.DecodeString(body.LesseeSig)
	lessor := middleware.GetUserAddress(c)
	if lessor == "" {
		return response.Error(c, "No address in session", 403, nil)
	}
	lease, err := h.Service.AcceptLeaseBid(c.UserContext(), lessor, listingID, bidID, body.Intent, lessorSig, lesseeSig, time.Now())
	if err != nil {
		return salebookError(c, err)
	}
	return response.Success(c, "Lease bid accepted", lease, nil)
}

// CancelListing POST /api/v1/listings/:listing_id/cancel
func (h *Handlers) CancelListing(c *fiber.Ctx) error {
	listingID, err := uuid.Parse(c.Params("listing_id"))
	if err != nil {
		return response.Error(c, "Invalid UUID format for listing_id", 400, nil)
	}
	seller := middleware.GetUserAddress(c)
	if seller == "" {
		return response.Error(c, "No address in session", 403, nil)
	}
	if err := h.Service.CancelListing(c.UserContext(), seller, listingID); err != nil {
		return salebookError(c, err)
	}
	return response.Success(c, "Listing cancelled", fiber.Map{"listing_id": listingID}, nil)
}

// CancelBid POST /api/v1/bids/:bid_id/cancel
func (h *Handlers) CancelBid(c *fiber.Ctx) error {
	bidID, err := uuid.Parse(c.Params("bid_id"))
	if err != nil {
		return response.Error(c, "Invalid UUID format for bid_id", 400, nil)
	}
	bidder := middleware.GetUserAddress(c)
	if bidder == "" {
		return response.Error(c, "No address in session", 403, nil)
	}
	if err := h.Service.CancelBid(c.UserContext(), bidder, bidID); err != nil {
		return salebookError(c, err)
	}
	return response.Success(c, "Bid cancelled", fiber.Map{"bid_id": bidID}, nil)
}

// GetListing GET /api/v1/listings/:listing_id
func (h *Handlers) GetListing(c *fiber.Ctx) error {
	listingID, err := uuid.Parse(c.Params("listing_id"))
	if err != nil {
		return response.Error(c, "Invalid UUID format for listing_id", 400, nil)
	}
	listing, err := h.Service.GetListing(c.UserContext(), listingID)
	if err != nil {
		return salebookError(c, err)
	}
	return response.Success(c, "Listing fetched", listing, nil)
}

// AssetListings GET /api/v1/assets/:asset_id/listings
func (h *Handlers) AssetListings(c *fiber.Ctx) error {
	assetID, err := uuid.Parse(c.Params("asset_id"))
	if err != nil {
		return response.Error(c, "Invalid UUID format for asset_id", 400, nil)
	}
	out, err := h.Service.AssetListings(c.UserContext(), assetID)
	if err != nil {
		return salebookError(c, err)
	}
	return response.Success(c, "Listings fetched", out, nil)
}

// ListingBids GET /api/v1/listings/:listing_id/bids
func (h *Handlers) ListingBids(c *fiber.Ctx) error {
	listingID, err := uuid.Parse(c.Params("listing_id"))
	if err != nil {
		return response.Error(c, "Invalid UUID format for listing_id", 400, nil)
	}
	out, err := h.Service.ListingBids(c.UserContext(), listingID)
	if err != nil {
		return salebookError(c, err)
	}
	return response.Success(c, "Bids fetched", out, nil)
}

func salebookError(c *fiber.Ctx, err error) error {
	switch err {
	case salebooksvc.ErrListingNotFound, salebooksvc.ErrBidNotFound:
		return response.Error(c, err.Error(), 404, nil)
	case salebooksvc.ErrListingClosed, salebooksvc.ErrBidNotOpen:
		return response.Error(c, err.Error(), 409, nil)
	case salebooksvc.ErrInvalidAmount, salebooksvc.ErrWrongKind, salebooksvc.ErrIntentMismatch:
		return response.Error(c, err.Error(), 400, nil)
	case salebooksvc.ErrNotSeller, salebooksvc.ErrNotBidder:
		return response.Error(c, err.Error(), 403, nil)
	case leaseintent.ErrIntentExpired, leaseintent.ErrBadTiming,
		leaseintent.ErrSchemaMismatch, leaseintent.ErrInvalidSignature:
		return response.Error(c, err.Error(), 400, nil)
	case leaseintent.ErrNonceUsed:
		return response.Error(c, err.Error(), 409, nil)
	case ledgersvc.ErrInsufficientBalance:
		return response.Error(c, err.Error(), 409, nil)
	case ledgersvc.ErrAssetNotFound:
		return response.Error(c, err.Error(), 404, nil)
	case vaultsvc.ErrInsufficientFunds:
		return response.Error(c, err.Error(), 409, nil)
	case revenuesvc.ErrInvalidAmount:
		return response.Error(c, err.Error(), 400, nil)
	default:
		return response.Error(c, "Internal Server Error", 500, nil)
	}
}

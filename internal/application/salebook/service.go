package salebook

import (
	"context"
	"math"
	"time"

	"fracshare-backend/internal/application/events"
	"fracshare-backend/internal/application/leaseintent"
	"fracshare-backend/internal/application/ledger"
	"fracshare-backend/internal/application/revenue"
	"fracshare-backend/internal/application/vault"
	"fracshare-backend/internal/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Service is the marketplace settlement engine: sale listings with
// competitive bids, and the lease-offer path that ends in a verified lease
// plus an open revenue round. Every entry point runs one transaction;
// bookkeeping (bid and listing state) is written before funds or units move.
type Service struct {
	DB      *gorm.DB
	Ledger  *ledger.Service
	Vault   *vault.Service
	Intents *leaseintent.Service
	Revenue *revenue.Service
	Events  *events.Service
}

// PostSale lists units for sale. Units stay with the seller but are locked
// so the later settlement transfer cannot fail on balance.
func (s *Service) PostSale(ctx context.Context, seller string, assetID uuid.UUID, paymentUnit string, units, minUnitPrice int64) (*domain.Listing, error) {
	if units <= 0 || minUnitPrice <= 0 {
		return nil, ErrInvalidAmount
	}
	var listing domain.Listing
	var ev *domain.MarketEvent
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.Ledger.LockUnitsTx(tx, assetID, seller, units); err != nil {
			return err
		}
		listing = domain.Listing{
			AssetID:       assetID,
			Kind:          domain.ListingKindSale,
			SellerAddress: seller,
			PaymentUnit:   paymentUnit,
			UnitsOffered:  units,
			MinUnitPrice:  minUnitPrice,
			Status:        domain.ListingStatusOpen,
		}
		if err := tx.Create(&listing).Error; err != nil {
			return err
		}
		var err error
		ev, err = s.Events.EmitTx(tx, assetID, domain.EventListingCreated, seller, &listing.ListingID, map[string]interface{}{
			"listing_id":     listing.ListingID,
			"kind":           listing.Kind,
			"units_offered":  units,
			"min_unit_price": minUnitPrice,
			"payment_unit":   paymentUnit,
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	s.Events.Publish(ctx, ev)
	return &listing, nil
}

// PlaceBid escrows units*unitPrice and opens a competing bid. Bids larger
// than the remaining listing are allowed here and rejected only at
// acceptance, so rival bids can overbid each other freely.
func (s *Service) PlaceBid(ctx context.Context, bidder string, listingID uuid.UUID, units, unitPrice int64) (*domain.Bid, error) {
	if units <= 0 || unitPrice <= 0 {
		return nil, ErrInvalidAmount
	}
	// units*unitPrice must not wrap, or the wrong amount gets escrowed.
	if units > math.MaxInt64/unitPrice {
		return nil, ErrInvalidAmount
	}
	var bid domain.Bid
	var ev *domain.MarketEvent
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		listing, err := s.openListingTx(tx, listingID)
		if err != nil {
			return err
		}
		if listing.Kind != domain.ListingKindSale {
			return ErrWrongKind
		}
		escrow := units * unitPrice
		bidID := uuid.New()
		ticket, err := s.Vault.CaptureTx(tx, bidder, listing.PaymentUnit, escrow, domain.TicketPurposeBid, &bidID)
		if err != nil {
			return err
		}
		bid = domain.Bid{
			BidID:          bidID,
			ListingID:      listingID,
			BidderAddress:  bidder,
			Units:          units,
			UnitPrice:      unitPrice,
			EscrowAmount:   escrow,
			EscrowTicketID: ticket.TicketID,
			Status:         domain.BidStatusOpen,
		}
		if err := tx.Create(&bid).Error; err != nil {
			return err
		}
		ev, err = s.Events.EmitTx(tx, listing.AssetID, domain.EventBidPlaced, bidder, &bid.BidID, map[string]interface{}{
			"bid_id":     bid.BidID,
			"listing_id": listingID,
			"units":      units,
			"unit_price": unitPrice,
			"escrow":     escrow,
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	s.Events.Publish(ctx, ev)
	return &bid, nil
}

// AcceptBid settles one bid: units to the bidder, escrow to the seller,
// every rival open bid refunded, unsold locked units released. A listing is
// consumed by exactly one accepted bid, so it closes even on a partial fill.
func (s *Service) AcceptBid(ctx context.Context, seller string, listingID, bidID uuid.UUID) (*domain.Bid, error) {
	var bid domain.Bid
	var evs []*domain.MarketEvent
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		listing, err := s.openListingTx(tx, listingID)
		if err != nil {
			return err
		}
		if listing.Kind != domain.ListingKindSale {
			return ErrWrongKind
		}
		if listing.SellerAddress != seller {
			return ErrNotSeller
		}
		if err := tx.Where("bid_id = ? AND listing_id = ?", bidID, listingID).First(&bid).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return ErrBidNotFound
			}
			return err
		}
		if bid.Status != domain.BidStatusOpen {
			return ErrBidNotOpen
		}
		remaining := listing.UnitsOffered - listing.UnitsSold
		if bid.Units > remaining {
			return ErrInvalidAmount
		}

		// Bookkeeping first, value movement after.
		bid.Status = domain.BidStatusAccepted
		if err := tx.Save(&bid).Error; err != nil {
			return err
		}
		listing.UnitsSold += bid.Units
		listing.Status = domain.ListingStatusSettled
		listing.AcceptedBidID = &bid.BidID
		if err := tx.Save(listing).Error; err != nil {
			return err
		}

		if err := s.Ledger.TransferLockedTx(tx, listing.AssetID, seller, bid.BidderAddress, bid.Units); err != nil {
			return err
		}
		if err := s.Vault.ReleaseTx(tx, bid.EscrowTicketID, seller); err != nil {
			return err
		}
		unsold := listing.UnitsOffered - listing.UnitsSold
		if unsold > 0 {
			if err := s.Ledger.UnlockUnitsTx(tx, listing.AssetID, seller, unsold); err != nil {
				return err
			}
		}

		ev, err := s.Events.EmitTx(tx, listing.AssetID, domain.EventBidAccepted, seller, &bid.BidID, map[string]interface{}{
			"bid_id":     bid.BidID,
			"listing_id": listingID,
			"bidder":     bid.BidderAddress,
			"units":      bid.Units,
			"unit_price": bid.UnitPrice,
			"paid":       bid.EscrowAmount,
		})
		if err != nil {
			return err
		}
		evs = append(evs, ev)

		refunded, err := s.refundOpenBidsTx(tx, listing, bid.BidID)
		if err != nil {
			return err
		}
		evs = append(evs, refunded...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.Events.Publish(ctx, evs...)
	return &bid, nil
}

// CancelListing withdraws an open listing, refunds every open bid and
// unlocks the seller's reserved units.
func (s *Service) CancelListing(ctx context.Context, seller string, listingID uuid.UUID) error {
	var evs []*domain.MarketEvent
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		listing, err := s.openListingTx(tx, listingID)
		if err != nil {
			return err
		}
		if listing.SellerAddress != seller {
			return ErrNotSeller
		}
		listing.Status = domain.ListingStatusCancelled
		if err := tx.Save(listing).Error; err != nil {
			return err
		}
		if listing.Kind == domain.ListingKindSale {
			if err := s.Ledger.UnlockUnitsTx(tx, listing.AssetID, seller, listing.UnitsOffered); err != nil {
				return err
			}
		}
		refunded, err := s.refundOpenBidsTx(tx, listing, uuid.Nil)
		if err != nil {
			return err
		}
		evs = refunded
		ev, err := s.Events.EmitTx(tx, listing.AssetID, domain.EventListingCancelled, seller, &listing.ListingID, map[string]interface{}{
			"listing_id": listing.ListingID,
		})
		if err != nil {
			return err
		}
		evs = append(evs, ev)
		return nil
	})
	if err != nil {
		return err
	}
	s.Events.Publish(ctx, evs...)
	return nil
}

// CancelBid lets a bidder withdraw an open bid and reclaim its escrow.
func (s *Service) CancelBid(ctx context.Context, bidder string, bidID uuid.UUID) error {
	var ev *domain.MarketEvent
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var bid domain.Bid
		if err := tx.Where("bid_id = ?", bidID).First(&bid).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return ErrBidNotFound
			}
			return err
		}
		if bid.BidderAddress != bidder {
			return ErrNotBidder
		}
		if bid.Status != domain.BidStatusOpen {
			return ErrBidNotOpen
		}
		bid.Status = domain.BidStatusCancelled
		if err := tx.Save(&bid).Error; err != nil {
			return err
		}
		if err := s.Vault.RefundTx(tx, bid.EscrowTicketID); err != nil {
			return err
		}
		var listing domain.Listing
		if err := tx.Where("listing_id = ?", bid.ListingID).First(&listing).Error; err != nil {
			return err
		}
		var err error
		ev, err = s.Events.EmitTx(tx, listing.AssetID, domain.EventBidRefunded, bidder, &bid.BidID, map[string]interface{}{
			"bid_id":     bid.BidID,
			"listing_id": bid.ListingID,
			"refunded":   bid.EscrowAmount,
		})
		return err
	})
	if err != nil {
		return err
	}
	s.Events.Publish(ctx, ev)
	return nil
}

// PostLeaseOffer lists the asset for lease under the terms the lessor will
// later sign an intent over. Only a current holder may offer a lease.
func (s *Service) PostLeaseOffer(ctx context.Context, lessor string, assetID uuid.UUID, paymentUnit string, rentAmount, rentPeriodSecs, securityDeposit int64) (*domain.Listing, error) {
	if rentAmount <= 0 || rentPeriodSecs <= 0 || securityDeposit < 0 {
		return nil, ErrInvalidAmount
	}
	var listing domain.Listing
	var ev *domain.MarketEvent
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var holding domain.Holding
		if err := tx.Where("asset_id = ? AND address = ?", assetID, lessor).First(&holding).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return ledger.ErrInsufficientBalance
			}
			return err
		}
		if holding.Units <= 0 {
			return ledger.ErrInsufficientBalance
		}
		listing = domain.Listing{
			AssetID:         assetID,
			Kind:            domain.ListingKindLease,
			SellerAddress:   lessor,
			PaymentUnit:     paymentUnit,
			RentAmount:      rentAmount,
			RentPeriodSecs:  rentPeriodSecs,
			SecurityDeposit: securityDeposit,
			Status:          domain.ListingStatusOpen,
		}
		if err := tx.Create(&listing).Error; err != nil {
			return err
		}
		var err error
		ev, err = s.Events.EmitTx(tx, assetID, domain.EventListingCreated, lessor, &listing.ListingID, map[string]interface{}{
			"listing_id":       listing.ListingID,
			"kind":             listing.Kind,
			"rent_amount":      rentAmount,
			"rent_period_secs": rentPeriodSecs,
			"security_deposit": securityDeposit,
			"payment_unit":     paymentUnit,
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	s.Events.Publish(ctx, ev)
	return &listing, nil
}

// PlaceLeaseBid escrows rent plus deposit against a lease offer.
func (s *Service) PlaceLeaseBid(ctx context.Context, lessee string, listingID uuid.UUID) (*domain.Bid, error) {
	var bid domain.Bid
	var ev *domain.MarketEvent
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		listing, err := s.openListingTx(tx, listingID)
		if err != nil {
			return err
		}
		if listing.Kind != domain.ListingKindLease {
			return ErrWrongKind
		}
		escrow := listing.RentAmount + listing.SecurityDeposit
		bidID := uuid.New()
		ticket, err := s.Vault.CaptureTx(tx, lessee, listing.PaymentUnit, escrow, domain.TicketPurposeLease, &bidID)
		if err != nil {
			return err
		}
		bid = domain.Bid{
			BidID:          bidID,
			ListingID:      listingID,
			BidderAddress:  lessee,
			EscrowAmount:   escrow,
			EscrowTicketID: ticket.TicketID,
			Status:         domain.BidStatusOpen,
		}
		if err := tx.Create(&bid).Error; err != nil {
			return err
		}
		ev, err = s.Events.EmitTx(tx, listing.AssetID, domain.EventBidPlaced, lessee, &bid.BidID, map[string]interface{}{
			"bid_id":     bid.BidID,
			"listing_id": listingID,
			"escrow":     escrow,
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	s.Events.Publish(ctx, ev)
	return &bid, nil
}

// AcceptLeaseBid is the whole lease commit path in one transaction: intent
// verification (signatures, nonce, schema, timing), then a ledger
// checkpoint, then a revenue round funded with the rent carved from the
// lessee's escrow. The deposit stays held in the original ticket for the
// life of the lease. Rival lease bids are refunded.
func (s *Service) AcceptLeaseBid(ctx context.Context, lessor string, listingID, bidID uuid.UUID, intent leaseintent.Intent, lessorSig, lesseeSig []byte, now time.Time) (*domain.LeaseRecord, error) {
	var lease *domain.LeaseRecord
	var evs []*domain.MarketEvent
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		listing, err := s.openListingTx(tx, listingID)
		if err != nil {
			return err
		}
		if listing.Kind != domain.ListingKindLease {
			return ErrWrongKind
		}
		if listing.SellerAddress != lessor {
			return ErrNotSeller
		}
		var bid domain.Bid
		if err := tx.Where("bid_id = ? AND listing_id = ?", bidID, listingID).First(&bid).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return ErrBidNotFound
			}
			return err
		}
		if bid.Status != domain.BidStatusOpen {
			return ErrBidNotOpen
		}
		if intent.Lessor != lessor ||
			intent.Lessee != bid.BidderAddress ||
			intent.AssetID != listing.AssetID ||
			intent.PaymentUnit != listing.PaymentUnit ||
			intent.RentAmount != listing.RentAmount ||
			intent.RentPeriodSecs != listing.RentPeriodSecs ||
			intent.SecurityDeposit != listing.SecurityDeposit {
			return ErrIntentMismatch
		}

		lease, err = s.Intents.VerifyTx(tx, intent, lessorSig, lesseeSig, now)
		if err != nil {
			return err
		}

		bid.Status = domain.BidStatusAccepted
		if err := tx.Save(&bid).Error; err != nil {
			return err
		}
		listing.Status = domain.ListingStatusSettled
		listing.AcceptedBidID = &bid.BidID
		if err := tx.Save(listing).Error; err != nil {
			return err
		}

		round, roundEv, err := s.Revenue.OpenRoundTx(tx, listing.AssetID, lease.LeaseID, listing.PaymentUnit, listing.RentAmount, bid.EscrowTicketID)
		if err != nil {
			return err
		}

		lease.CheckpointID = round.CheckpointID
		lease.RoundID = &round.RoundID
		if listing.SecurityDeposit > 0 {
			lease.DepositTicketID = &bid.EscrowTicketID
		}
		if err := tx.Save(lease).Error; err != nil {
			return err
		}

		leaseEv, err := s.Events.EmitTx(tx, listing.AssetID, domain.EventLeaseVerified, lessor, &lease.LeaseID, map[string]interface{}{
			"lease_id": lease.LeaseID,
			"lessor":   lease.LessorAddress,
			"lessee":   lease.LesseeAddress,
			"asset_id": lease.AssetID,
		})
		if err != nil {
			return err
		}
		evs = append(evs, leaseEv, roundEv)

		refunded, err := s.refundOpenBidsTx(tx, listing, bid.BidID)
		if err != nil {
			return err
		}
		evs = append(evs, refunded...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.Events.Publish(ctx, evs...)
	return lease, nil
}

// GetListing returns one listing, consumed or not.
func (s *Service) GetListing(ctx context.Context, listingID uuid.UUID) (*domain.Listing, error) {
	var listing domain.Listing
	if err := s.DB.WithContext(ctx).Where("listing_id = ?", listingID).First(&listing).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrListingNotFound
		}
		return nil, err
	}
	return &listing, nil
}

// AssetListings lists all listings for one asset, newest first.
func (s *Service) AssetListings(ctx context.Context, assetID uuid.UUID) ([]domain.Listing, error) {
	var out []domain.Listing
	err := s.DB.WithContext(ctx).Where("asset_id = ?", assetID).Order(`"createdAt" DESC`).Find(&out).Error
	return out, err
}

// ListingBids lists all bids on a listing, newest first.
func (s *Service) ListingBids(ctx context.Context, listingID uuid.UUID) ([]domain.Bid, error) {
	var out []domain.Bid
	err := s.DB.WithContext(ctx).Where("listing_id = ?", listingID).Order(`"createdAt" DESC`).Find(&out).Error
	return out, err
}

func (s *Service) openListingTx(tx *gorm.DB, listingID uuid.UUID) (*domain.Listing, error) {
	var listing domain.Listing
	if err := tx.Where("listing_id = ?", listingID).First(&listing).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrListingNotFound
		}
		return nil, err
	}
	if listing.Status != domain.ListingStatusOpen {
		return nil, ErrListingClosed
	}
	return &listing, nil
}

// refundOpenBidsTx refunds every remaining open bid on a listing except the
// winner (uuid.Nil when there is none).
func (s *Service) refundOpenBidsTx(tx *gorm.DB, listing *domain.Listing, winner uuid.UUID) ([]*domain.MarketEvent, error) {
	var open []domain.Bid
	if err := tx.Where("listing_id = ? AND status = ?", listing.ListingID, domain.BidStatusOpen).Find(&open).Error; err != nil {
		return nil, err
	}
	var evs []*domain.MarketEvent
	for i := range open {
		bid := &open[i]
		if bid.BidID == winner {
			continue
		}
		bid.Status = domain.BidStatusRefunded
		if err := tx.Save(bid).Error; err != nil {
			return nil, err
		}
		if err := s.Vault.RefundTx(tx, bid.EscrowTicketID); err != nil {
			return nil, err
		}
		ev, err := s.Events.EmitTx(tx, listing.AssetID, domain.EventBidRefunded, bid.BidderAddress, &bid.BidID, map[string]interface{}{
			"bid_id":     bid.BidID,
			"listing_id": listing.ListingID,
			"refunded":   bid.EscrowAmount,
		})
		if err != nil {
			return nil, err
		}
		evs = append(evs, ev)
	}
	return evs, nil
}

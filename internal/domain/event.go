package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Market event types emitted to the off-chain indexer.
const (
	EventAssetIssued      = "ASSET_ISSUED"
	EventListingCreated   = "LISTING_CREATED"
	EventListingCancelled = "LISTING_CANCELLED"
	EventBidPlaced        = "BID_PLACED"
	EventBidAccepted      = "BID_ACCEPTED"
	EventBidRefunded      = "BID_REFUNDED"
	EventLeaseVerified    = "LEASE_VERIFIED"
	EventRoundOpened      = "ROUND_OPENED"
	EventRevenueClaimed   = "REVENUE_CLAIMED"
	EventDepositCredited  = "DEPOSIT_CREDITED"
)

// MarketEvent is one committed state change, written in the same transaction
// as the change itself and replayed to Redis after commit. EventData carries
// enough to rebuild marketplace state downstream without re-deriving it.
type MarketEvent struct {
	EventID      uuid.UUID      `gorm:"column:event_id;type:uuid;primaryKey" json:"event_id"`
	AssetID      uuid.UUID      `gorm:"column:asset_id;type:uuid;not null;index" json:"asset_id"`
	EventType    string         `gorm:"column:event_type;type:varchar(30);not null" json:"event_type"`
	ActorAddress string         `gorm:"column:actor_address;type:char(64);not null;index" json:"actor_address"`
	RefID        *uuid.UUID     `gorm:"column:ref_id;type:uuid" json:"ref_id"`
	EventData    datatypes.JSON `gorm:"column:event_data;type:jsonb;not null" json:"event_data"`
	CreatedAt    time.Time      `gorm:"column:createdAt" json:"createdAt"`
}

func (MarketEvent) TableName() string {
	return "MarketEvents"
}

func (e *MarketEvent) BeforeCreate(tx *gorm.DB) error {
	if e.EventID == uuid.Nil {
		e.EventID = uuid.New()
	}
	return nil
}

package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Listing kinds and statuses. Settled and cancelled listings stay queryable
// forever; status and fill counters are the only fields that change after
// creation.
const (
	ListingKindSale  = "sale"
	ListingKindLease = "lease"

	ListingStatusOpen      = "open"
	ListingStatusSettled   = "settled"
	ListingStatusCancelled = "cancelled"
)

// Listing is a sale offer of ownership units or a lease offer of the whole
// asset. Sale listings carry UnitsOffered/MinUnitPrice; lease listings carry
// the rent terms the lessor will sign an intent over.
type Listing struct {
	ListingID       uuid.UUID  `gorm:"column:listing_id;type:uuid;primaryKey" json:"listing_id"`
	AssetID         uuid.UUID  `gorm:"column:asset_id;type:uuid;not null;index" json:"asset_id"`
	Kind            string     `gorm:"column:kind;type:varchar(10);not null" json:"kind"`
	SellerAddress   string     `gorm:"column:seller_address;type:char(64);not null" json:"seller_address"`
	PaymentUnit     string     `gorm:"column:payment_unit;type:varchar(12);not null" json:"payment_unit"`
	UnitsOffered    int64      `gorm:"column:units_offered;not null;default:0" json:"units_offered"`
	UnitsSold       int64      `gorm:"column:units_sold;not null;default:0" json:"units_sold"`
	MinUnitPrice    int64      `gorm:"column:min_unit_price;not null;default:0" json:"min_unit_price"`
	RentAmount      int64      `gorm:"column:rent_amount;not null;default:0" json:"rent_amount"`
	RentPeriodSecs  int64      `gorm:"column:rent_period_secs;not null;default:0" json:"rent_period_secs"`
	SecurityDeposit int64      `gorm:"column:security_deposit;not null;default:0" json:"security_deposit"`
	Status          string     `gorm:"column:status;type:varchar(20);default:'open'" json:"status"`
	AcceptedBidID   *uuid.UUID `gorm:"column:accepted_bid_id;type:uuid" json:"accepted_bid_id"`
	CreatedAt       time.Time  `gorm:"column:createdAt" json:"createdAt"`
	UpdatedAt       time.Time  `gorm:"column:updatedAt" json:"updatedAt"`
}

func (Listing) TableName() string {
	return "Listings"
}

// BeforeCreate sets listing_id if not already set (DBs without default uuid).
func (l *Listing) BeforeCreate(tx *gorm.DB) error {
	if l.ListingID == uuid.Nil {
		l.ListingID = uuid.New()
	}
	return nil
}

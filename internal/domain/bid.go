package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Bid statuses. A bid reaches exactly one terminal state: accepted,
// refunded (outbid or listing cancelled) or cancelled (by the bidder).
const (
	BidStatusOpen      = "open"
	BidStatusAccepted  = "accepted"
	BidStatusRefunded  = "refunded"
	BidStatusCancelled = "cancelled"
)

// Bid is a competing offer on a listing. The bid's funds sit in the escrow
// vault under EscrowTicketID from creation until the bid settles.
type Bid struct {
	BidID          uuid.UUID `gorm:"column:bid_id;type:uuid;primaryKey" json:"bid_id"`
	ListingID      uuid.UUID `gorm:"column:listing_id;type:uuid;not null;index" json:"listing_id"`
	BidderAddress  string    `gorm:"column:bidder_address;type:char(64);not null" json:"bidder_address"`
	Units          int64     `gorm:"column:units;not null;default:0" json:"units"`
	UnitPrice      int64     `gorm:"column:unit_price;not null;default:0" json:"unit_price"`
	EscrowAmount   int64     `gorm:"column:escrow_amount;not null" json:"escrow_amount"`
	EscrowTicketID uuid.UUID `gorm:"column:escrow_ticket_id;type:uuid;not null" json:"escrow_ticket_id"`
	Status         string    `gorm:"column:status;type:varchar(20);default:'open'" json:"status"`
	CreatedAt      time.Time `gorm:"column:createdAt" json:"createdAt"`
	UpdatedAt      time.Time `gorm:"column:updatedAt" json:"updatedAt"`
}

func (Bid) TableName() string {
	return "Bids"
}

func (b *Bid) BeforeCreate(tx *gorm.DB) error {
	if b.BidID == uuid.Nil {
		b.BidID = uuid.New()
	}
	return nil
}

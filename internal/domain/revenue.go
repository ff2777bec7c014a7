package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// RevenueRound is one pro-rata payout pot, pinned to the ledger checkpoint
// cut at lease acceptance. ClaimedTotal only ever grows and never exceeds
// TotalEscrowed; the difference left after all claims is dust and stays in
// the vault ticket.
type RevenueRound struct {
	RoundID        uuid.UUID `gorm:"column:round_id;type:uuid;primaryKey" json:"round_id"`
	AssetID        uuid.UUID `gorm:"column:asset_id;type:uuid;not null;index" json:"asset_id"`
	LeaseID        uuid.UUID `gorm:"column:lease_id;type:uuid;not null" json:"lease_id"`
	CheckpointID   int64     `gorm:"column:checkpoint_id;not null" json:"checkpoint_id"`
	PaymentUnit    string    `gorm:"column:payment_unit;type:varchar(12);not null" json:"payment_unit"`
	TotalEscrowed  int64     `gorm:"column:total_escrowed;not null" json:"total_escrowed"`
	ClaimedTotal   int64     `gorm:"column:claimed_total;not null;default:0" json:"claimed_total"`
	EscrowTicketID uuid.UUID `gorm:"column:escrow_ticket_id;type:uuid;not null" json:"escrow_ticket_id"`
	CreatedAt      time.Time `gorm:"column:createdAt" json:"createdAt"`
	UpdatedAt      time.Time `gorm:"column:updatedAt" json:"updatedAt"`
}

func (RevenueRound) TableName() string {
	return "RevenueRounds"
}

func (r *RevenueRound) BeforeCreate(tx *gorm.DB) error {
	if r.RoundID == uuid.Nil {
		r.RoundID = uuid.New()
	}
	return nil
}

// RevenueClaim records one holder's payout from a round. The unique index
// on (round_id, holder_address) blocks double claims.
type RevenueClaim struct {
	ClaimID       uuid.UUID `gorm:"column:claim_id;type:uuid;primaryKey" json:"claim_id"`
	RoundID       uuid.UUID `gorm:"column:round_id;type:uuid;not null;uniqueIndex:idx_claim_round_holder" json:"round_id"`
	HolderAddress string    `gorm:"column:holder_address;type:char(64);not null;uniqueIndex:idx_claim_round_holder" json:"holder_address"`
	Amount        int64     `gorm:"column:amount;not null" json:"amount"`
	CreatedAt     time.Time `gorm:"column:createdAt" json:"createdAt"`
}

func (RevenueClaim) TableName() string {
	return "RevenueClaims"
}

func (c *RevenueClaim) BeforeCreate(tx *gorm.DB) error {
	if c.ClaimID == uuid.Nil {
		c.ClaimID = uuid.New()
	}
	return nil
}

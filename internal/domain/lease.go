package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// LeaseRecord is the accepted, immutable form of a dual-signed lease
// intent. Nothing updates a lease row after creation; the security deposit
// stays in the vault under DepositTicketID for the life of the lease.
type LeaseRecord struct {
	LeaseID         uuid.UUID  `gorm:"column:lease_id;type:uuid;primaryKey" json:"lease_id"`
	AssetID         uuid.UUID  `gorm:"column:asset_id;type:uuid;not null;index" json:"asset_id"`
	LessorAddress   string     `gorm:"column:lessor_address;type:char(64);not null" json:"lessor_address"`
	LesseeAddress   string     `gorm:"column:lessee_address;type:char(64);not null;index" json:"lessee_address"`
	PaymentUnit     string     `gorm:"column:payment_unit;type:varchar(12);not null" json:"payment_unit"`
	RentAmount      int64      `gorm:"column:rent_amount;not null" json:"rent_amount"`
	RentPeriodSecs  int64      `gorm:"column:rent_period_secs;not null" json:"rent_period_secs"`
	SecurityDeposit int64      `gorm:"column:security_deposit;not null" json:"security_deposit"`
	StartTime       time.Time  `gorm:"column:start_time;not null" json:"start_time"`
	EndTime         time.Time  `gorm:"column:end_time;not null" json:"end_time"`
	MetadataHash    string     `gorm:"column:metadata_hash;type:char(64);not null" json:"metadata_hash"`
	LegalDocHash    string     `gorm:"column:legal_doc_hash;type:char(64);not null" json:"legal_doc_hash"`
	Nonce           uint64     `gorm:"column:nonce;not null" json:"nonce"`
	TermsVersion    int        `gorm:"column:terms_version;not null" json:"terms_version"`
	SchemaHash      string     `gorm:"column:schema_hash;type:char(64);not null" json:"schema_hash"`
	CheckpointID    int64      `gorm:"column:checkpoint_id;not null" json:"checkpoint_id"`
	RoundID         *uuid.UUID `gorm:"column:round_id;type:uuid" json:"round_id"`
	DepositTicketID *uuid.UUID `gorm:"column:deposit_ticket_id;type:uuid" json:"deposit_ticket_id"`
	CreatedAt       time.Time  `gorm:"column:createdAt" json:"createdAt"`
	UpdatedAt       time.Time  `gorm:"column:updatedAt" json:"updatedAt"`
}

func (LeaseRecord) TableName() string {
	return "Leases"
}

func (l *LeaseRecord) BeforeCreate(tx *gorm.DB) error {
	if l.LeaseID == uuid.Nil {
		l.LeaseID = uuid.New()
	}
	return nil
}

// LeaseNonce marks one (asset, nonce) pair as consumed. The unique index is
// the single-use guarantee; inserting a duplicate fails the transaction.
type LeaseNonce struct {
	ID         uint64    `gorm:"column:id;primaryKey;autoIncrement" json:"-"`
	AssetID    uuid.UUID `gorm:"column:asset_id;type:uuid;not null;uniqueIndex:idx_nonce_asset" json:"asset_id"`
	Nonce      uint64    `gorm:"column:nonce;not null;uniqueIndex:idx_nonce_asset" json:"nonce"`
	LeaseID    uuid.UUID `gorm:"column:lease_id;type:uuid;not null" json:"lease_id"`
	ConsumedAt time.Time `gorm:"column:consumed_at;not null" json:"consumed_at"`
}

func (LeaseNonce) TableName() string {
	return "LeaseNonces"
}

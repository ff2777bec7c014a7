package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Holding is a holder's current position in one asset. LockedUnits are
// units committed to open sale listings and not available for transfer.
type Holding struct {
	HoldingID   uuid.UUID `gorm:"column:holding_id;type:uuid;primaryKey" json:"holding_id"`
	AssetID     uuid.UUID `gorm:"column:asset_id;type:uuid;not null;uniqueIndex:idx_holding_asset_addr" json:"asset_id"`
	Address     string    `gorm:"column:address;type:char(64);not null;uniqueIndex:idx_holding_asset_addr" json:"address"`
	Units       int64     `gorm:"column:units;not null;default:0" json:"units"`
	LockedUnits int64     `gorm:"column:locked_units;not null;default:0" json:"locked_units"`
	CreatedAt   time.Time `gorm:"column:createdAt" json:"createdAt"`
	UpdatedAt   time.Time `gorm:"column:updatedAt" json:"updatedAt"`
}

func (Holding) TableName() string {
	return "Holdings"
}

func (h *Holding) BeforeCreate(tx *gorm.DB) error {
	if h.HoldingID == uuid.Nil {
		h.HoldingID = uuid.New()
	}
	return nil
}

// BalanceRecord is one dated entry of a holder's balance history.
// CheckpointSeq is latest_checkpoint+1 at write time, so records written
// after checkpoint N belong to the interval that closes as checkpoint N+1.
// A historical balance lookup takes the newest record with seq <= requested.
type BalanceRecord struct {
	RecordID      uint64    `gorm:"column:record_id;primaryKey;autoIncrement" json:"record_id"`
	AssetID       uuid.UUID `gorm:"column:asset_id;type:uuid;not null;index:idx_balrec_lookup" json:"asset_id"`
	Address       string    `gorm:"column:address;type:char(64);not null;index:idx_balrec_lookup" json:"address"`
	CheckpointSeq int64     `gorm:"column:checkpoint_seq;not null;index:idx_balrec_lookup" json:"checkpoint_seq"`
	Units         int64     `gorm:"column:units;not null" json:"units"`
	CreatedAt     time.Time `gorm:"column:createdAt" json:"createdAt"`
}

func (BalanceRecord) TableName() string {
	return "BalanceRecords"
}

// Checkpoint closes the balance state of one asset under a sequential id
// (1-based). Rows are append-only and never updated.
type Checkpoint struct {
	ID           uint64    `gorm:"column:id;primaryKey;autoIncrement" json:"-"`
	AssetID      uuid.UUID `gorm:"column:asset_id;type:uuid;not null;uniqueIndex:idx_checkpoint_asset_seq" json:"asset_id"`
	CheckpointID int64     `gorm:"column:checkpoint_id;not null;uniqueIndex:idx_checkpoint_asset_seq" json:"checkpoint_id"`
	TotalSupply  int64     `gorm:"column:total_supply;not null" json:"total_supply"`
	CreatedAt    time.Time `gorm:"column:createdAt" json:"createdAt"`
}

func (Checkpoint) TableName() string {
	return "Checkpoints"
}

package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AssetType is the registry entry describing a class of leasable assets.
// SchemaHash pins the metadata schema lease intents must be built against.
type AssetType struct {
	TypeID     uuid.UUID `gorm:"column:type_id;type:uuid;primaryKey" json:"type_id"`
	Name       string    `gorm:"column:name;not null;uniqueIndex" json:"name"`
	SchemaHash string    `gorm:"column:schema_hash;type:char(64);not null" json:"schema_hash"`
	CreatedAt  time.Time `gorm:"column:createdAt" json:"createdAt"`
	UpdatedAt  time.Time `gorm:"column:updatedAt" json:"updatedAt"`
}

func (AssetType) TableName() string {
	return "AssetTypes"
}

func (t *AssetType) BeforeCreate(tx *gorm.DB) error {
	if t.TypeID == uuid.Nil {
		t.TypeID = uuid.New()
	}
	return nil
}

// Asset is one fractionalized asset: a fixed supply of fungible ownership
// units plus the address allowed to cut ledger checkpoints for it.
// LatestCheckpoint is the id of the newest checkpoint (0 = none yet).
type Asset struct {
	AssetID             uuid.UUID `gorm:"column:asset_id;type:uuid;primaryKey" json:"asset_id"`
	AssetTypeID         uuid.UUID `gorm:"column:asset_type_id;type:uuid;not null" json:"asset_type_id"`
	Symbol              string    `gorm:"column:symbol;type:varchar(12);not null;uniqueIndex" json:"symbol"`
	TotalSupply         int64     `gorm:"column:total_supply;not null" json:"total_supply"`
	IssuerAddress       string    `gorm:"column:issuer_address;type:char(64);not null" json:"issuer_address"`
	CheckpointAuthority string    `gorm:"column:checkpoint_authority;type:char(64);not null" json:"checkpoint_authority"`
	LatestCheckpoint    int64     `gorm:"column:latest_checkpoint;not null;default:0" json:"latest_checkpoint"`
	CreatedAt           time.Time `gorm:"column:createdAt" json:"createdAt"`
	UpdatedAt           time.Time `gorm:"column:updatedAt" json:"updatedAt"`
}

func (Asset) TableName() string {
	return "Assets"
}

// BeforeCreate sets asset_id if not already set (DBs without default uuid).
func (a *Asset) BeforeCreate(tx *gorm.DB) error {
	if a.AssetID == uuid.Nil {
		a.AssetID = uuid.New()
	}
	return nil
}

package ledger

import (
	"context"

	"fracshare-backend/internal/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Service is the ownership ledger: current holdings plus the append-only
// balance history that makes checkpoints O(1). Every balance mutation writes
// a BalanceRecord tagged with the interval that will close as the next
// checkpoint, so cutting a checkpoint never copies the balance table.
type Service struct {
	DB *gorm.DB
}

// Transfer moves units between two holders.
func (s *Service) Transfer(ctx context.Context, assetID uuid.UUID, from, to string, amount int64) error {
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return s.TransferTx(tx, assetID, from, to, amount)
	})
}

// TransferTx moves available (unlocked) units inside an existing transaction.
func (s *Service) TransferTx(tx *gorm.DB, assetID uuid.UUID, from, to string, amount int64) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}
	if from == to {
		return ErrSelfTransfer
	}
	asset, err := s.assetTx(tx, assetID)
	if err != nil {
		return err
	}
	sender, err := s.holdingTx(tx, assetID, from)
	if err != nil {
		return err
	}
	if sender == nil || sender.Units-sender.LockedUnits < amount {
		return ErrInsufficientBalance
	}
	sender.Units -= amount
	if err := tx.Save(sender).Error; err != nil {
		return err
	}
	if err := s.appendRecordTx(tx, asset, from, sender.Units); err != nil {
		return err
	}
	return s.creditUnitsTx(tx, asset, to, amount)
}

// TransferLockedTx settles units a seller previously locked for a listing.
// Only the salebook calls this, at bid acceptance.
func (s *Service) TransferLockedTx(tx *gorm.DB, assetID uuid.UUID, from, to string, amount int64) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}
	asset, err := s.assetTx(tx, assetID)
	if err != nil {
		return err
	}
	sender, err := s.holdingTx(tx, assetID, from)
	if err != nil {
		return err
	}
	if sender == nil || sender.LockedUnits < amount || sender.Units < amount {
		return ErrInsufficientBalance
	}
	sender.Units -= amount
	sender.LockedUnits -= amount
	if err := tx.Save(sender).Error; err != nil {
		return err
	}
	if err := s.appendRecordTx(tx, asset, from, sender.Units); err != nil {
		return err
	}
	return s.creditUnitsTx(tx, asset, to, amount)
}

// LockUnitsTx reserves units against a sale listing. Locked units stay with
// the holder (and keep counting toward checkpoints) but cannot be moved
// except through TransferLockedTx.
func (s *Service) LockUnitsTx(tx *gorm.DB, assetID uuid.UUID, holder string, amount int64) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}
	h, err := s.holdingTx(tx, assetID, holder)
	if err != nil {
		return err
	}
	if h == nil || h.Units-h.LockedUnits < amount {
		return ErrInsufficientBalance
	}
	h.LockedUnits += amount
	return tx.Save(h).Error
}

// UnlockUnitsTx releases a sale reservation (listing cancelled or partially
// filled).
func (s *Service) UnlockUnitsTx(tx *gorm.DB, assetID uuid.UUID, holder string, amount int64) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}
	h, err := s.holdingTx(tx, assetID, holder)
	if err != nil {
		return err
	}
	if h == nil || h.LockedUnits < amount {
		return ErrInsufficientBalance
	}
	h.LockedUnits -= amount
	return tx.Save(h).Error
}

// MintTx credits the full initial supply at issuance.
func (s *Service) MintTx(tx *gorm.DB, asset *domain.Asset, to string, amount int64) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}
	return s.creditUnitsTx(tx, asset, to, amount)
}

// BalanceOf returns the holder's current units (0 for unknown holders).
func (s *Service) BalanceOf(ctx context.Context, assetID uuid.UUID, holder string) (int64, error) {
	h, err := s.holdingTx(s.DB.WithContext(ctx), assetID, holder)
	if err != nil {
		return 0, err
	}
	if h == nil {
		return 0, nil
	}
	return h.Units, nil
}

// Holdings lists all current positions in an asset.
func (s *Service) Holdings(ctx context.Context, assetID uuid.UUID) ([]domain.Holding, error) {
	var out []domain.Holding
	err := s.DB.WithContext(ctx).Where("asset_id = ?", assetID).Order("address ASC").Find(&out).Error
	return out, err
}

// CreateCheckpoint cuts a new checkpoint; only the asset's checkpoint
// authority may call.
func (s *Service) CreateCheckpoint(ctx context.Context, assetID uuid.UUID, actor string) (int64, error) {
	var id int64
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		id, err = s.CreateCheckpointTx(tx, assetID, actor)
		return err
	})
	return id, err
}

// CreateCheckpointTx closes the current interval under the next sequential
// checkpoint id and records the total supply as of creation.
func (s *Service) CreateCheckpointTx(tx *gorm.DB, assetID uuid.UUID, actor string) (int64, error) {
	asset, err := s.assetTx(tx, assetID)
	if err != nil {
		return 0, err
	}
	if actor != asset.CheckpointAuthority {
		return 0, ErrNotCheckpointAuthority
	}
	newID := asset.LatestCheckpoint + 1
	cp := domain.Checkpoint{
		AssetID:      assetID,
		CheckpointID: newID,
		TotalSupply:  asset.TotalSupply,
	}
	if err := tx.Create(&cp).Error; err != nil {
		return 0, err
	}
	asset.LatestCheckpoint = newID
	if err := tx.Save(asset).Error; err != nil {
		return 0, err
	}
	return newID, nil
}

// BalanceAt answers the holder's balance as of a past checkpoint.
func (s *Service) BalanceAt(ctx context.Context, assetID uuid.UUID, holder string, checkpointID int64) (int64, error) {
	return s.BalanceAtTx(s.DB.WithContext(ctx), assetID, holder, checkpointID)
}

// BalanceAtTx resolves the newest balance record at or before the requested
// checkpoint (the SQL form of a binary search over the holder's history).
func (s *Service) BalanceAtTx(tx *gorm.DB, assetID uuid.UUID, holder string, checkpointID int64) (int64, error) {
	asset, err := s.assetTx(tx, assetID)
	if err != nil {
		return 0, err
	}
	if checkpointID <= 0 || checkpointID > asset.LatestCheckpoint {
		return 0, ErrUnknownCheckpoint
	}
	var rec domain.BalanceRecord
	err = tx.Where("asset_id = ? AND address = ? AND checkpoint_seq <= ?", assetID, holder, checkpointID).
		Order("checkpoint_seq DESC").Order("record_id DESC").
		First(&rec).Error
	if err == gorm.ErrRecordNotFound {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return rec.Units, nil
}

// TotalSupplyAt answers the total supply as of a past checkpoint.
func (s *Service) TotalSupplyAt(ctx context.Context, assetID uuid.UUID, checkpointID int64) (int64, error) {
	return s.TotalSupplyAtTx(s.DB.WithContext(ctx), assetID, checkpointID)
}

// TotalSupplyAtTx reads the supply recorded when the checkpoint was cut.
func (s *Service) TotalSupplyAtTx(tx *gorm.DB, assetID uuid.UUID, checkpointID int64) (int64, error) {
	if checkpointID <= 0 {
		return 0, ErrUnknownCheckpoint
	}
	var cp domain.Checkpoint
	err := tx.Where("asset_id = ? AND checkpoint_id = ?", assetID, checkpointID).First(&cp).Error
	if err == gorm.ErrRecordNotFound {
		return 0, ErrUnknownCheckpoint
	}
	if err != nil {
		return 0, err
	}
	return cp.TotalSupply, nil
}

func (s *Service) creditUnitsTx(tx *gorm.DB, asset *domain.Asset, to string, amount int64) error {
	h, err := s.holdingTx(tx, asset.AssetID, to)
	if err != nil {
		return err
	}
	if h == nil {
		h = &domain.Holding{AssetID: asset.AssetID, Address: to, Units: amount}
		if err := tx.Create(h).Error; err != nil {
			return err
		}
	} else {
		h.Units += amount
		if err := tx.Save(h).Error; err != nil {
			return err
		}
	}
	return s.appendRecordTx(tx, asset, to, h.Units)
}

// appendRecordTx dates the holder's new balance into the interval that will
// close as checkpoint latest+1.
func (s *Service) appendRecordTx(tx *gorm.DB, asset *domain.Asset, holder string, units int64) error {
	rec := domain.BalanceRecord{
		AssetID:       asset.AssetID,
		Address:       holder,
		CheckpointSeq: asset.LatestCheckpoint + 1,
		Units:         units,
	}
	return tx.Create(&rec).Error
}

func (s *Service) assetTx(tx *gorm.DB, assetID uuid.UUID) (*domain.Asset, error) {
	var asset domain.Asset
	if err := tx.Where("asset_id = ?", assetID).First(&asset).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrAssetNotFound
		}
		return nil, err
	}
	return &asset, nil
}

func (s *Service) holdingTx(tx *gorm.DB, assetID uuid.UUID, address string) (*domain.Holding, error) {
	var h domain.Holding
	err := tx.Where("asset_id = ? AND address = ?", assetID, address).First(&h).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &h, nil
}

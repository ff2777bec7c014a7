package assets

import (
	"context"
	"errors"

	"fracshare-backend/internal/application/events"
	"fracshare-backend/internal/application/ledger"
	"fracshare-backend/internal/domain"
	"fracshare-backend/internal/pkg/validation"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var (
	ErrAssetNotFound    = errors.New("Asset not found")
	ErrTypeNotFound     = errors.New("Asset type not found")
	ErrSymbolRequired   = errors.New("Asset symbol is required")
	ErrSymbolTaken      = errors.New("Asset symbol already exists")
	ErrInvalidSupply    = errors.New("Total supply must be a positive number")
	ErrInvalidAuthority = errors.New("Checkpoint authority must be a valid address")
)

// Service issues fractionalized assets: one row in Assets plus the full
// supply minted to the issuer as the first ledger entry. DefaultAuthority is
// the checkpoint authority used when issuance names none; it must be the
// same address the revenue distributor cuts checkpoints as, or lease
// acceptance on the asset can never open a round.
type Service struct {
	DB               *gorm.DB
	Ledger           *ledger.Service
	Events           *events.Service
	DefaultAuthority string
}

type IssueParams struct {
	Issuer              string
	AssetTypeID         uuid.UUID
	Symbol              string
	TotalSupply         int64
	CheckpointAuthority string
}

func (s *Service) IssueAsset(ctx context.Context, p IssueParams) (*domain.Asset, error) {
	if p.Symbol == "" {
		return nil, ErrSymbolRequired
	}
	if p.TotalSupply <= 0 {
		return nil, ErrInvalidSupply
	}
	if p.CheckpointAuthority == "" {
		p.CheckpointAuthority = s.DefaultAuthority
	}
	if !validation.IsValidAddress(p.CheckpointAuthority) {
		return nil, ErrInvalidAuthority
	}

	var asset domain.Asset
	var ev *domain.MarketEvent
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var at domain.AssetType
		if err := tx.Where("type_id = ?", p.AssetTypeID).First(&at).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return ErrTypeNotFound
			}
			return err
		}
		var existing domain.Asset
		if err := tx.Where("symbol = ?", p.Symbol).First(&existing).Error; err == nil {
			return ErrSymbolTaken
		} else if err != gorm.ErrRecordNotFound {
			return err
		}

		asset = domain.Asset{
			AssetTypeID:         p.AssetTypeID,
			Symbol:              p.Symbol,
			TotalSupply:         p.TotalSupply,
			IssuerAddress:       p.Issuer,
			CheckpointAuthority: p.CheckpointAuthority,
		}
		if err := tx.Create(&asset).Error; err != nil {
			return err
		}
		if err := s.Ledger.MintTx(tx, &asset, p.Issuer, p.TotalSupply); err != nil {
			return err
		}
		var err error
		ev, err = s.Events.EmitTx(tx, asset.AssetID, domain.EventAssetIssued, p.Issuer, nil, map[string]interface{}{
			"symbol":       asset.Symbol,
			"total_supply": asset.TotalSupply,
			"issuer":       p.Issuer,
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	s.Events.Publish(ctx, ev)
	return &asset, nil
}

func (s *Service) GetAsset(ctx context.Context, assetID uuid.UUID) (*domain.Asset, error) {
	var asset domain.Asset
	if err := s.DB.WithContext(ctx).Where("asset_id = ?", assetID).First(&asset).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrAssetNotFound
		}
		return nil, err
	}
	return &asset, nil
}

func (s *Service) ListAssets(ctx context.Context) ([]domain.Asset, error) {
	var out []domain.Asset
	err := s.DB.WithContext(ctx).Order(`"createdAt" ASC`).Find(&out).Error
	return out, err
}

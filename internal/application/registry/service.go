package registry

import (
	"context"
	"errors"

	"fracshare-backend/internal/domain"
	"fracshare-backend/internal/pkg/validation"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var (
	ErrTypeNotFound  = errors.New("Asset type not found")
	ErrAssetNotFound = errors.New("Asset not found")
	ErrInvalidSchema = errors.New("Schema hash must be a 64-char hex digest")
	ErrNameRequired  = errors.New("Asset type name is required")
	ErrNameTaken     = errors.New("Asset type name already exists")
)

// Service is the asset-type registry: a small CRUD table pinning the schema
// hash every lease intent for that type must match.
type Service struct {
	DB *gorm.DB
}

func (s *Service) CreateAssetType(ctx context.Context, name, schemaHash string) (*domain.AssetType, error) {
	if name == "" {
		return nil, ErrNameRequired
	}
	if !validation.IsValidHash(schemaHash) {
		return nil, ErrInvalidSchema
	}
	var existing domain.AssetType
	err := s.DB.WithContext(ctx).Where("name = ?", name).First(&existing).Error
	if err == nil {
		return nil, ErrNameTaken
	}
	if err != gorm.ErrRecordNotFound {
		return nil, err
	}
	t := domain.AssetType{Name: name, SchemaHash: schemaHash}
	if err := s.DB.WithContext(ctx).Create(&t).Error; err != nil {
		return nil, err
	}
	return &t, nil
}

func (s *Service) GetAssetType(ctx context.Context, typeID uuid.UUID) (*domain.AssetType, error) {
	var t domain.AssetType
	if err := s.DB.WithContext(ctx).Where("type_id = ?", typeID).First(&t).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrTypeNotFound
		}
		return nil, err
	}
	return &t, nil
}

// SchemaHashForAsset resolves an asset to its type's registered schema hash.
// The lease intent verifier consumes this through its SchemaLookup interface.
func (s *Service) SchemaHashForAsset(tx *gorm.DB, assetID uuid.UUID) (string, error) {
	var asset domain.Asset
	if err := tx.Where("asset_id = ?", assetID).First(&asset).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return "", ErrAssetNotFound
		}
		return "", err
	}
	var t domain.AssetType
	if err := tx.Where("type_id = ?", asset.AssetTypeID).First(&t).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return "", ErrTypeNotFound
		}
		return "", err
	}
	return t.SchemaHash, nil
}

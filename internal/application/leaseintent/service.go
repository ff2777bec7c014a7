package leaseintent

import (
	"context"
	"crypto/ed25519"
	"encoding/hex"
	"time"

	"fracshare-backend/internal/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// SchemaLookup resolves an asset to the schema hash registered for its type.
type SchemaLookup interface {
	SchemaHashForAsset(tx *gorm.DB, assetID uuid.UUID) (string, error)
}

// Service validates lease intents and consumes nonces. It is stateless apart
// from the nonce table; the salebook drives it from inside lease acceptance.
type Service struct {
	DB      *gorm.DB
	Schemas SchemaLookup
}

// VerifyTx runs the full acceptance check for a dual-signed intent. Check
// order matters: an expired or malformed intent must be rejected without
// consuming its nonce, so the same nonce can be resubmitted corrected. On
// success the nonce is consumed and the immutable lease row is written; the
// caller fills in checkpoint and round references before committing.
func (s *Service) VerifyTx(tx *gorm.DB, intent Intent, lessorSig, lesseeSig []byte, now time.Time) (*domain.LeaseRecord, error) {
	if now.Unix() > intent.Deadline {
		return nil, ErrIntentExpired
	}

	var used domain.LeaseNonce
	err := tx.Where("asset_id = ? AND nonce = ?", intent.AssetID, intent.Nonce).First(&used).Error
	if err == nil {
		return nil, ErrNonceUsed
	}
	if err != gorm.ErrRecordNotFound {
		return nil, err
	}

	registered, err := s.Schemas.SchemaHashForAsset(tx, intent.AssetID)
	if err != nil {
		return nil, err
	}
	if registered != intent.SchemaHash {
		return nil, ErrSchemaMismatch
	}

	if intent.StartTime >= intent.EndTime {
		return nil, ErrBadTiming
	}

	digest := HashIntent(intent)
	if !verifySig(intent.Lessor, digest[:], lessorSig) {
		return nil, ErrInvalidSignature
	}
	if !verifySig(intent.Lessee, digest[:], lesseeSig) {
		return nil, ErrInvalidSignature
	}

	lease := domain.LeaseRecord{
		AssetID:         intent.AssetID,
		LessorAddress:   intent.Lessor,
		LesseeAddress:   intent.Lessee,
		PaymentUnit:     intent.PaymentUnit,
		RentAmount:      intent.RentAmount,
		RentPeriodSecs:  intent.RentPeriodSecs,
		SecurityDeposit: intent.SecurityDeposit,
		StartTime:       time.Unix(intent.StartTime, 0).UTC(),
		EndTime:         time.Unix(intent.EndTime, 0).UTC(),
		MetadataHash:    intent.MetadataHash,
		LegalDocHash:    intent.LegalDocHash,
		Nonce:           intent.Nonce,
		TermsVersion:    intent.TermsVersion,
		SchemaHash:      intent.SchemaHash,
	}
	if err := tx.Create(&lease).Error; err != nil {
		return nil, err
	}

	consumed := domain.LeaseNonce{
		AssetID:    intent.AssetID,
		Nonce:      intent.Nonce,
		LeaseID:    lease.LeaseID,
		ConsumedAt: now.UTC(),
	}
	if err := tx.Create(&consumed).Error; err != nil {
		return nil, err
	}
	return &lease, nil
}

// GetLease returns one lease record for audit.
func (s *Service) GetLease(ctx context.Context, leaseID uuid.UUID) (*domain.LeaseRecord, error) {
	var lease domain.LeaseRecord
	if err := s.DB.WithContext(ctx).Where("lease_id = ?", leaseID).First(&lease).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrLeaseNotFound
		}
		return nil, err
	}
	return &lease, nil
}

func verifySig(address string, digest, sig []byte) bool {
	pub, err := hex.DecodeString(address)
	if err != nil || len(pub) != ed25519.PublicKeySize {
		return false
	}
	if len(sig) != ed25519.SignatureSize {
		return false
	}
	return ed25519.Verify(ed25519.PublicKey(pub), digest, sig)
}

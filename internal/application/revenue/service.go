package revenue

import (
	"context"
	"math/big"

	"fracshare-backend/internal/application/events"
	"fracshare-backend/internal/application/vault"
	"fracshare-backend/internal/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CheckpointedBalanceSource is the slice of the ownership ledger the
// distributor needs: cut a checkpoint, then read frozen balances from it.
type CheckpointedBalanceSource interface {
	CreateCheckpointTx(tx *gorm.DB, assetID uuid.UUID, actor string) (int64, error)
	BalanceAtTx(tx *gorm.DB, assetID uuid.UUID, holder string, checkpointID int64) (int64, error)
	TotalSupplyAtTx(tx *gorm.DB, assetID uuid.UUID, checkpointID int64) (int64, error)
}

// Service opens revenue rounds at lease acceptance and pays pro-rata claims
// against the checkpoint frozen in the round. Authority is the address this
// service holds the checkpoint capability as; assets issued for leasing name
// it as their checkpoint authority.
type Service struct {
	DB        *gorm.DB
	Ledger    CheckpointedBalanceSource
	Vault     *vault.Service
	Events    *events.Service
	Authority string
}

// OpenRoundTx cuts a checkpoint, carves the rent out of the lease escrow
// into a round-owned ticket, and records the round. Only lease acceptance
// calls this, on its own transaction.
func (s *Service) OpenRoundTx(tx *gorm.DB, assetID, leaseID uuid.UUID, paymentUnit string, amount int64, sourceTicketID uuid.UUID) (*domain.RevenueRound, *domain.MarketEvent, error) {
	if amount <= 0 {
		return nil, nil, ErrInvalidAmount
	}
	checkpointID, err := s.Ledger.CreateCheckpointTx(tx, assetID, s.Authority)
	if err != nil {
		return nil, nil, err
	}

	roundID := uuid.New()
	ticket, err := s.Vault.CarveTx(tx, sourceTicketID, amount, domain.TicketPurposeRevenueRound, &roundID)
	if err != nil {
		return nil, nil, err
	}

	round := domain.RevenueRound{
		RoundID:        roundID,
		AssetID:        assetID,
		LeaseID:        leaseID,
		CheckpointID:   checkpointID,
		PaymentUnit:    paymentUnit,
		TotalEscrowed:  amount,
		EscrowTicketID: ticket.TicketID,
	}
	if err := tx.Create(&round).Error; err != nil {
		return nil, nil, err
	}

	ev, err := s.Events.EmitTx(tx, assetID, domain.EventRoundOpened, s.Authority, &roundID, map[string]interface{}{
		"round_id":      roundID,
		"checkpoint_id": checkpointID,
		"payment_unit":  paymentUnit,
		"total_amount":  amount,
	})
	if err != nil {
		return nil, nil, err
	}
	return &round, ev, nil
}

// Claim pays the caller their share of a round, once. The share is
// floor(total * balanceAt / supplyAt); integer truncation leaves dust in the
// round ticket, which is never redistributed.
func (s *Service) Claim(ctx context.Context, roundID uuid.UUID, holder string) (int64, error) {
	var paid int64
	var ev *domain.MarketEvent
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var round domain.RevenueRound
		if err := tx.Where("round_id = ?", roundID).First(&round).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return ErrRoundNotFound
			}
			return err
		}

		var existing domain.RevenueClaim
		err := tx.Where("round_id = ? AND holder_address = ?", roundID, holder).First(&existing).Error
		if err == nil {
			return ErrAlreadyClaimed
		}
		if err != gorm.ErrRecordNotFound {
			return err
		}

		balance, err := s.Ledger.BalanceAtTx(tx, round.AssetID, holder, round.CheckpointID)
		if err != nil {
			return err
		}
		supply, err := s.Ledger.TotalSupplyAtTx(tx, round.AssetID, round.CheckpointID)
		if err != nil {
			return err
		}

		amount := proRata(round.TotalEscrowed, balance, supply)
		if amount == 0 {
			return ErrNoBalance
		}

		// Claim bookkeeping is written before any funds move.
		claim := domain.RevenueClaim{RoundID: roundID, HolderAddress: holder, Amount: amount}
		if err := tx.Create(&claim).Error; err != nil {
			return err
		}
		round.ClaimedTotal += amount
		if err := tx.Save(&round).Error; err != nil {
			return err
		}
		if err := s.Vault.PayoutTx(tx, round.EscrowTicketID, holder, amount); err != nil {
			return err
		}

		paid = amount
		ev, err = s.Events.EmitTx(tx, round.AssetID, domain.EventRevenueClaimed, holder, &roundID, map[string]interface{}{
			"round_id": roundID,
			"holder":   holder,
			"amount":   amount,
		})
		return err
	})
	if err != nil {
		return 0, err
	}
	s.Events.Publish(ctx, ev)
	return paid, nil
}

// GetRound returns one round for audit.
func (s *Service) GetRound(ctx context.Context, roundID uuid.UUID) (*domain.RevenueRound, error) {
	var round domain.RevenueRound
	if err := s.DB.WithContext(ctx).Where("round_id = ?", roundID).First(&round).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrRoundNotFound
		}
		return nil, err
	}
	return &round, nil
}

// AssetRounds lists an asset's rounds, oldest first.
func (s *Service) AssetRounds(ctx context.Context, assetID uuid.UUID) ([]domain.RevenueRound, error) {
	var out []domain.RevenueRound
	err := s.DB.WithContext(ctx).Where("asset_id = ?", assetID).Order(`"createdAt" ASC`).Find(&out).Error
	return out, err
}

// RoundClaims lists a round's claims for audit.
func (s *Service) RoundClaims(ctx context.Context, roundID uuid.UUID) ([]domain.RevenueClaim, error) {
	var out []domain.RevenueClaim
	err := s.DB.WithContext(ctx).Where("round_id = ?", roundID).Order(`"createdAt" ASC`).Find(&out).Error
	return out, err
}

// proRata computes floor(total * balance / supply) without intermediate
// overflow.
func proRata(total, balance, supply int64) int64 {
	if balance <= 0 || supply <= 0 {
		return 0
	}
	n := new(big.Int).Mul(big.NewInt(total), big.NewInt(balance))
	n.Quo(n, big.NewInt(supply))
	return n.Int64()
}

package revenue

import (
	"context"
	"fmt"
	"testing"

	eventssvc "fracshare-backend/internal/application/events"
	ledgersvc "fracshare-backend/internal/application/ledger"
	vaultsvc "fracshare-backend/internal/application/vault"
	"fracshare-backend/internal/domain"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

const unit = "usd_cents"

func testAddr(n int) string {
	return fmt.Sprintf("%064x", n)
}

type revenueFixture struct {
	svc    *Service
	vault  *vaultsvc.Service
	ledger *ledgersvc.Service
	asset  *domain.Asset
	db     *gorm.DB
}

// setupRevenueTest issues an asset to testAddr(1) and funds testAddr(5) as
// the lessee whose rent escrow the round draws from.
func setupRevenueTest(t *testing.T, supply int64) *revenueFixture {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&domain.Asset{}, &domain.Holding{}, &domain.BalanceRecord{}, &domain.Checkpoint{},
		&domain.CashAccount{}, &domain.EscrowTicket{},
		&domain.RevenueRound{}, &domain.RevenueClaim{}, &domain.MarketEvent{},
	))

	ledger := &ledgersvc.Service{DB: db}
	vault := &vaultsvc.Service{DB: db}
	evs := &eventssvc.Service{DB: db}
	svc := &Service{DB: db, Ledger: ledger, Vault: vault, Events: evs, Authority: testAddr(9)}

	asset := &domain.Asset{
		AssetTypeID:         uuid.New(),
		Symbol:              "VILLA-1",
		TotalSupply:         supply,
		IssuerAddress:       testAddr(1),
		CheckpointAuthority: testAddr(9),
	}
	require.NoError(t, db.Create(asset).Error)
	require.NoError(t, db.Transaction(func(tx *gorm.DB) error {
		return ledger.MintTx(tx, asset, asset.IssuerAddress, supply)
	}))
	return &revenueFixture{svc: svc, vault: vault, ledger: ledger, asset: asset, db: db}
}

// openRound escrows the lessee's rent and opens a round over it.
func (f *revenueFixture) openRound(t *testing.T, rent int64) *domain.RevenueRound {
	_, err := f.vault.Deposit(context.Background(), testAddr(5), unit, rent)
	require.NoError(t, err)

	var round *domain.RevenueRound
	require.NoError(t, f.db.Transaction(func(tx *gorm.DB) error {
		ticket, err := f.vault.CaptureTx(tx, testAddr(5), unit, rent, domain.TicketPurposeLease, nil)
		if err != nil {
			return err
		}
		round, _, err = f.svc.OpenRoundTx(tx, f.asset.AssetID, uuid.New(), unit, rent, ticket.TicketID)
		return err
	}))
	return round
}

func TestClaim_ProRataSplit(t *testing.T) {
	f := setupRevenueTest(t, 10_000)
	ctx := context.Background()

	// 70/30 split frozen before the round's checkpoint.
	require.NoError(t, f.ledger.Transfer(ctx, f.asset.AssetID, testAddr(1), testAddr(2), 3_000))
	round := f.openRound(t, 10_000_000)

	paid1, err := f.svc.Claim(ctx, round.RoundID, testAddr(1))
	require.NoError(t, err)
	assert.Equal(t, int64(7_000_000), paid1)

	paid2, err := f.svc.Claim(ctx, round.RoundID, testAddr(2))
	require.NoError(t, err)
	assert.Equal(t, int64(3_000_000), paid2)

	b1, err := f.vault.CashBalance(ctx, testAddr(1), unit)
	require.NoError(t, err)
	assert.Equal(t, int64(7_000_000), b1)

	got, err := f.svc.GetRound(ctx, round.RoundID)
	require.NoError(t, err)
	assert.Equal(t, int64(10_000_000), got.ClaimedTotal)
}

func TestClaim_PostCheckpointTransferIrrelevant(t *testing.T) {
	f := setupRevenueTest(t, 10_000)
	ctx := context.Background()

	round := f.openRound(t, 1_000_000)

	// Units moved after the checkpoint do not shift the payout.
	require.NoError(t, f.ledger.Transfer(ctx, f.asset.AssetID, testAddr(1), testAddr(2), 5_000))

	paid, err := f.svc.Claim(ctx, round.RoundID, testAddr(1))
	require.NoError(t, err)
	assert.Equal(t, int64(1_000_000), paid)

	_, err = f.svc.Claim(ctx, round.RoundID, testAddr(2))
	assert.Equal(t, ErrNoBalance, err)
}

func TestClaim_OncePerHolder(t *testing.T) {
	f := setupRevenueTest(t, 10_000)
	ctx := context.Background()
	round := f.openRound(t, 500_000)

	_, err := f.svc.Claim(ctx, round.RoundID, testAddr(1))
	require.NoError(t, err)
	_, err = f.svc.Claim(ctx, round.RoundID, testAddr(1))
	assert.Equal(t, ErrAlreadyClaimed, err)
}

func TestClaim_DustStaysInTicket(t *testing.T) {
	f := setupRevenueTest(t, 3)
	ctx := context.Background()

	require.NoError(t, f.ledger.Transfer(ctx, f.asset.AssetID, testAddr(1), testAddr(2), 1))
	require.NoError(t, f.ledger.Transfer(ctx, f.asset.AssetID, testAddr(1), testAddr(3), 1))
	round := f.openRound(t, 100)

	var total int64
	for _, holder := range []string{testAddr(1), testAddr(2), testAddr(3)} {
		paid, err := f.svc.Claim(ctx, round.RoundID, holder)
		require.NoError(t, err)
		assert.Equal(t, int64(33), paid)
		total += paid
	}
	assert.Equal(t, int64(99), total)

	// The truncated remainder stays held in the round ticket.
	ticket, err := f.vault.GetTicket(ctx, round.EscrowTicketID)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusHeld, ticket.Status)
	assert.Equal(t, int64(99), ticket.ReleasedAmount)
}

func TestClaim_Rejections(t *testing.T) {
	f := setupRevenueTest(t, 10_000)
	ctx := context.Background()
	round := f.openRound(t, 500_000)

	_, err := f.svc.Claim(ctx, uuid.New(), testAddr(1))
	assert.Equal(t, ErrRoundNotFound, err)

	// No balance at the checkpoint.
	_, err = f.svc.Claim(ctx, round.RoundID, testAddr(8))
	assert.Equal(t, ErrNoBalance, err)
}

func TestOpenRoundTx_RequiresPositiveAmount(t *testing.T) {
	f := setupRevenueTest(t, 10_000)
	err := f.db.Transaction(func(tx *gorm.DB) error {
		_, _, err := f.svc.OpenRoundTx(tx, f.asset.AssetID, uuid.New(), unit, 0, uuid.New())
		return err
	})
	assert.Equal(t, ErrInvalidAmount, err)
}

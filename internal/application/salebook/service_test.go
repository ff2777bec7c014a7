package salebook

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math"
	"testing"
	"time"

	assetssvc "fracshare-backend/internal/application/assets"
	eventssvc "fracshare-backend/internal/application/events"
	"fracshare-backend/internal/application/leaseintent"
	ledgersvc "fracshare-backend/internal/application/ledger"
	registrysvc "fracshare-backend/internal/application/registry"
	revenuesvc "fracshare-backend/internal/application/revenue"
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

type signer struct {
	address string
	priv    ed25519.PrivateKey
}

func newSigner(t *testing.T) signer {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	return signer{address: hex.EncodeToString(pub), priv: priv}
}

func (s signer) sign(digest [32]byte) []byte {
	return ed25519.Sign(s.priv, digest[:])
}

type salebookFixture struct {
	svc        *Service
	ledger     *ledgersvc.Service
	vault      *vaultsvc.Service
	revenue    *revenuesvc.Service
	db         *gorm.DB
	asset      *domain.Asset
	schemaHash string
}

func setupSalebookTest(t *testing.T) *salebookFixture {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&domain.AssetType{}, &domain.Asset{}, &domain.Holding{}, &domain.BalanceRecord{}, &domain.Checkpoint{},
		&domain.Listing{}, &domain.Bid{}, &domain.CashAccount{}, &domain.EscrowTicket{},
		&domain.LeaseRecord{}, &domain.LeaseNonce{}, &domain.RevenueRound{}, &domain.RevenueClaim{},
		&domain.MarketEvent{},
	))

	sum := sha256.Sum256([]byte("villa-schema-v1"))
	schemaHash := hex.EncodeToString(sum[:])
	assetType := domain.AssetType{Name: "villa", SchemaHash: schemaHash}
	require.NoError(t, db.Create(&assetType).Error)

	ledger := &ledgersvc.Service{DB: db}
	vault := &vaultsvc.Service{DB: db}
	evs := &eventssvc.Service{DB: db}
	registry := &registrysvc.Service{DB: db}
	intents := &leaseintent.Service{DB: db, Schemas: registry}
	revenue := &revenuesvc.Service{DB: db, Ledger: ledger, Vault: vault, Events: evs, Authority: testAddr(9)}
	svc := &Service{DB: db, Ledger: ledger, Vault: vault, Intents: intents, Revenue: revenue, Events: evs}

	asset := &domain.Asset{
		AssetTypeID:         assetType.TypeID,
		Symbol:              "VILLA-1",
		TotalSupply:         10_000,
		IssuerAddress:       testAddr(1),
		CheckpointAuthority: testAddr(9),
	}
	require.NoError(t, db.Create(asset).Error)
	require.NoError(t, db.Transaction(func(tx *gorm.DB) error {
		return ledger.MintTx(tx, asset, asset.IssuerAddress, asset.TotalSupply)
	}))
	return &salebookFixture{
		svc: svc, ledger: ledger, vault: vault, revenue: revenue,
		db: db, asset: asset, schemaHash: schemaHash,
	}
}

func (f *salebookFixture) fund(t *testing.T, addr string, amount int64) {
	_, err := f.vault.Deposit(context.Background(), addr, unit, amount)
	require.NoError(t, err)
}

func TestPostSale_LocksUnits(t *testing.T) {
	f := setupSalebookTest(t)
	ctx := context.Background()

	listing, err := f.svc.PostSale(ctx, testAddr(1), f.asset.AssetID, unit, 4_000, 100)
	require.NoError(t, err)
	assert.Equal(t, domain.ListingStatusOpen, listing.Status)

	// Locked units cannot be spent elsewhere.
	err = f.ledger.Transfer(ctx, f.asset.AssetID, testAddr(1), testAddr(2), 7_000)
	assert.Equal(t, ledgersvc.ErrInsufficientBalance, err)

	// Cannot list more than held.
	_, err = f.svc.PostSale(ctx, testAddr(1), f.asset.AssetID, unit, 7_000, 100)
	assert.Equal(t, ledgersvc.ErrInsufficientBalance, err)
}

// Two rival bids; the seller accepts the lower one (the min price is
// advisory, not enforced). Winner gets units, seller gets the winner's
// escrow, the loser is made whole.
func TestAcceptBid_CompetingBids(t *testing.T) {
	f := setupSalebookTest(t)
	ctx := context.Background()
	seller, alice, bob := testAddr(1), testAddr(2), testAddr(3)
	f.fund(t, alice, 1_000_000)
	f.fund(t, bob, 1_000_000)

	listing, err := f.svc.PostSale(ctx, seller, f.asset.AssetID, unit, 1_000, 120)
	require.NoError(t, err)

	aliceBid, err := f.svc.PlaceBid(ctx, alice, listing.ListingID, 1_000, 150)
	require.NoError(t, err)
	bobBid, err := f.svc.PlaceBid(ctx, bob, listing.ListingID, 1_000, 90)
	require.NoError(t, err)

	// Escrow is debited up front.
	aliceCash, _ := f.vault.CashBalance(ctx, alice, unit)
	assert.Equal(t, int64(1_000_000-150_000), aliceCash)

	accepted, err := f.svc.AcceptBid(ctx, seller, listing.ListingID, bobBid.BidID)
	require.NoError(t, err)
	assert.Equal(t, domain.BidStatusAccepted, accepted.Status)

	// Units settled to Bob, payment to the seller, Alice refunded in full.
	bobUnits, _ := f.ledger.BalanceOf(ctx, f.asset.AssetID, bob)
	assert.Equal(t, int64(1_000), bobUnits)
	sellerCash, _ := f.vault.CashBalance(ctx, seller, unit)
	assert.Equal(t, int64(90_000), sellerCash)
	aliceCash, _ = f.vault.CashBalance(ctx, alice, unit)
	assert.Equal(t, int64(1_000_000), aliceCash)

	got, err := f.svc.GetListing(ctx, listing.ListingID)
	require.NoError(t, err)
	assert.Equal(t, domain.ListingStatusSettled, got.Status)
	assert.Equal(t, &bobBid.BidID, got.AcceptedBidID)

	refunded, err := f.svc.ListingBids(ctx, listing.ListingID)
	require.NoError(t, err)
	for _, b := range refunded {
		if b.BidID == aliceBid.BidID {
			assert.Equal(t, domain.BidStatusRefunded, b.Status)
		}
	}

	// Closed listing takes no further bids or acceptances.
	_, err = f.svc.PlaceBid(ctx, alice, listing.ListingID, 10, 100)
	assert.Equal(t, ErrListingClosed, err)
}

func TestAcceptBid_PartialFillUnlocksRemainder(t *testing.T) {
	f := setupSalebookTest(t)
	ctx := context.Background()
	seller, buyer := testAddr(1), testAddr(2)
	f.fund(t, buyer, 500_000)

	listing, err := f.svc.PostSale(ctx, seller, f.asset.AssetID, unit, 4_000, 100)
	require.NoError(t, err)
	bid, err := f.svc.PlaceBid(ctx, buyer, listing.ListingID, 1_500, 100)
	require.NoError(t, err)

	_, err = f.svc.AcceptBid(ctx, seller, listing.ListingID, bid.BidID)
	require.NoError(t, err)

	// One accepted bid consumes the listing; unsold units unlock.
	var h domain.Holding
	require.NoError(t, f.db.Where("asset_id = ? AND address = ?", f.asset.AssetID, seller).First(&h).Error)
	assert.Equal(t, int64(8_500), h.Units)
	assert.Equal(t, int64(0), h.LockedUnits)
}

func TestAcceptBid_Rejections(t *testing.T) {
	f := setupSalebookTest(t)
	ctx := context.Background()
	seller, buyer := testAddr(1), testAddr(2)
	f.fund(t, buyer, 10_000_000)

	listing, err := f.svc.PostSale(ctx, seller, f.asset.AssetID, unit, 1_000, 100)
	require.NoError(t, err)

	// Over-sized bids are accepted as bids but rejected at acceptance.
	big, err := f.svc.PlaceBid(ctx, buyer, listing.ListingID, 1_500, 100)
	require.NoError(t, err)
	_, err = f.svc.AcceptBid(ctx, seller, listing.ListingID, big.BidID)
	assert.Equal(t, ErrInvalidAmount, err)

	_, err = f.svc.AcceptBid(ctx, testAddr(3), listing.ListingID, big.BidID)
	assert.Equal(t, ErrNotSeller, err)
	_, err = f.svc.AcceptBid(ctx, seller, listing.ListingID, uuid.New())
	assert.Equal(t, ErrBidNotFound, err)

	// Insufficient escrow funds reject the bid outright.
	_, err = f.svc.PlaceBid(ctx, testAddr(4), listing.ListingID, 1_000, 100)
	assert.Equal(t, vaultsvc.ErrInsufficientFunds, err)
}

func TestCancelListing_RefundsAndUnlocks(t *testing.T) {
	f := setupSalebookTest(t)
	ctx := context.Background()
	seller, buyer := testAddr(1), testAddr(2)
	f.fund(t, buyer, 200_000)

	listing, err := f.svc.PostSale(ctx, seller, f.asset.AssetID, unit, 1_000, 100)
	require.NoError(t, err)
	_, err = f.svc.PlaceBid(ctx, buyer, listing.ListingID, 1_000, 100)
	require.NoError(t, err)

	require.NoError(t, f.svc.CancelListing(ctx, seller, listing.ListingID))

	buyerCash, _ := f.vault.CashBalance(ctx, buyer, unit)
	assert.Equal(t, int64(200_000), buyerCash)
	var h domain.Holding
	require.NoError(t, f.db.Where("asset_id = ? AND address = ?", f.asset.AssetID, seller).First(&h).Error)
	assert.Equal(t, int64(0), h.LockedUnits)
}

func TestCancelBid(t *testing.T) {
	f := setupSalebookTest(t)
	ctx := context.Background()
	seller, buyer := testAddr(1), testAddr(2)
	f.fund(t, buyer, 200_000)

	listing, err := f.svc.PostSale(ctx, seller, f.asset.AssetID, unit, 1_000, 100)
	require.NoError(t, err)
	bid, err := f.svc.PlaceBid(ctx, buyer, listing.ListingID, 500, 100)
	require.NoError(t, err)

	assert.Equal(t, ErrNotBidder, f.svc.CancelBid(ctx, testAddr(3), bid.BidID))
	require.NoError(t, f.svc.CancelBid(ctx, buyer, bid.BidID))
	assert.Equal(t, ErrBidNotOpen, f.svc.CancelBid(ctx, buyer, bid.BidID))

	buyerCash, _ := f.vault.CashBalance(ctx, buyer, unit)
	assert.Equal(t, int64(200_000), buyerCash)
}

func leaseIntentFor(f *salebookFixture, lessor, lessee signer, listing *domain.Listing, nonce uint64) leaseintent.Intent {
	now := time.Now()
	return leaseintent.Intent{
		Lessor:          lessor.address,
		Lessee:          lessee.address,
		AssetID:         listing.AssetID,
		PaymentUnit:     listing.PaymentUnit,
		RentAmount:      listing.RentAmount,
		RentPeriodSecs:  listing.RentPeriodSecs,
		SecurityDeposit: listing.SecurityDeposit,
		StartTime:       now.Unix(),
		EndTime:         now.Add(365 * 24 * time.Hour).Unix(),
		MetadataHash:    f.schemaHash,
		LegalDocHash:    f.schemaHash,
		Nonce:           nonce,
		Deadline:        now.Add(time.Hour).Unix(),
		TermsVersion:    1,
		SchemaHash:      f.schemaHash,
	}
}

// Full lease path: offer, escrowed lease bid, dual-signed acceptance. One
// transaction ends with a verified lease, a frozen checkpoint, a funded
// revenue round, and the deposit still held.
func TestAcceptLeaseBid_EndToEnd(t *testing.T) {
	f := setupSalebookTest(t)
	ctx := context.Background()
	lessor := newSigner(t)
	lessee := newSigner(t)

	// The lessor holds 6,000 of 10,000 units.
	require.NoError(t, f.ledger.Transfer(ctx, f.asset.AssetID, testAddr(1), lessor.address, 6_000))
	f.fund(t, lessee.address, 50_000)

	listing, err := f.svc.PostLeaseOffer(ctx, lessor.address, f.asset.AssetID, unit, 30_000, 86_400*30, 5_000)
	require.NoError(t, err)

	bid, err := f.svc.PlaceLeaseBid(ctx, lessee.address, listing.ListingID)
	require.NoError(t, err)
	assert.Equal(t, int64(35_000), bid.EscrowAmount)
	lesseeCash, _ := f.vault.CashBalance(ctx, lessee.address, unit)
	assert.Equal(t, int64(15_000), lesseeCash)

	intent := leaseIntentFor(f, lessor, lessee, listing, 1)
	digest := leaseintent.HashIntent(intent)
	lease, err := f.svc.AcceptLeaseBid(ctx, lessor.address, listing.ListingID, bid.BidID,
		intent, lessor.sign(digest), lessee.sign(digest), time.Now())
	require.NoError(t, err)

	assert.Equal(t, lessor.address, lease.LessorAddress)
	assert.Equal(t, lessee.address, lease.LesseeAddress)
	require.NotNil(t, lease.RoundID)
	require.NotNil(t, lease.DepositTicketID)

	// The rent funds the round; the deposit stays held in the lease ticket.
	round, err := f.revenue.GetRound(ctx, *lease.RoundID)
	require.NoError(t, err)
	assert.Equal(t, int64(30_000), round.TotalEscrowed)
	assert.Equal(t, lease.CheckpointID, round.CheckpointID)

	depositTicket, err := f.vault.GetTicket(ctx, *lease.DepositTicketID)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusHeld, depositTicket.Status)
	assert.Equal(t, int64(5_000), depositTicket.Amount-depositTicket.ReleasedAmount)

	// Claims pay against the checkpoint frozen at acceptance: 60/40 split.
	paid, err := f.revenue.Claim(ctx, round.RoundID, lessor.address)
	require.NoError(t, err)
	assert.Equal(t, int64(18_000), paid)
	paid, err = f.revenue.Claim(ctx, round.RoundID, testAddr(1))
	require.NoError(t, err)
	assert.Equal(t, int64(12_000), paid)
}

func TestAcceptLeaseBid_IntentMismatch(t *testing.T) {
	f := setupSalebookTest(t)
	ctx := context.Background()
	lessor := newSigner(t)
	lessee := newSigner(t)

	require.NoError(t, f.ledger.Transfer(ctx, f.asset.AssetID, testAddr(1), lessor.address, 1_000))
	f.fund(t, lessee.address, 50_000)

	listing, err := f.svc.PostLeaseOffer(ctx, lessor.address, f.asset.AssetID, unit, 30_000, 86_400*30, 5_000)
	require.NoError(t, err)
	bid, err := f.svc.PlaceLeaseBid(ctx, lessee.address, listing.ListingID)
	require.NoError(t, err)

	// Intent terms drifting from the listing are rejected before any
	// signature work.
	intent := leaseIntentFor(f, lessor, lessee, listing, 1)
	intent.RentAmount = 29_999
	digest := leaseintent.HashIntent(intent)
	_, err = f.svc.AcceptLeaseBid(ctx, lessor.address, listing.ListingID, bid.BidID,
		intent, lessor.sign(digest), lessee.sign(digest), time.Now())
	assert.Equal(t, ErrIntentMismatch, err)

	// A failed acceptance leaves the bid open and escrow intact.
	bids, err := f.svc.ListingBids(ctx, listing.ListingID)
	require.NoError(t, err)
	require.Len(t, bids, 1)
	assert.Equal(t, domain.BidStatusOpen, bids[0].Status)
}

func TestAcceptLeaseBid_BadSignatureRollsBack(t *testing.T) {
	f := setupSalebookTest(t)
	ctx := context.Background()
	lessor := newSigner(t)
	lessee := newSigner(t)
	stranger := newSigner(t)

	require.NoError(t, f.ledger.Transfer(ctx, f.asset.AssetID, testAddr(1), lessor.address, 1_000))
	f.fund(t, lessee.address, 50_000)

	listing, err := f.svc.PostLeaseOffer(ctx, lessor.address, f.asset.AssetID, unit, 30_000, 86_400*30, 5_000)
	require.NoError(t, err)
	bid, err := f.svc.PlaceLeaseBid(ctx, lessee.address, listing.ListingID)
	require.NoError(t, err)

	intent := leaseIntentFor(f, lessor, lessee, listing, 1)
	digest := leaseintent.HashIntent(intent)
	_, err = f.svc.AcceptLeaseBid(ctx, lessor.address, listing.ListingID, bid.BidID,
		intent, stranger.sign(digest), lessee.sign(digest), time.Now())
	assert.Equal(t, leaseintent.ErrInvalidSignature, err)

	// Nothing committed: no lease, no nonce, no checkpoint, listing open.
	var leases, nonces, checkpoints int64
	require.NoError(t, f.db.Model(&domain.LeaseRecord{}).Count(&leases).Error)
	require.NoError(t, f.db.Model(&domain.LeaseNonce{}).Count(&nonces).Error)
	require.NoError(t, f.db.Model(&domain.Checkpoint{}).Count(&checkpoints).Error)
	assert.Zero(t, leases)
	assert.Zero(t, nonces)
	assert.Zero(t, checkpoints)

	got, err := f.svc.GetListing(ctx, listing.ListingID)
	require.NoError(t, err)
	assert.Equal(t, domain.ListingStatusOpen, got.Status)
}

func TestPostLeaseOffer_RequiresHolding(t *testing.T) {
	f := setupSalebookTest(t)
	ctx := context.Background()
	_, err := f.svc.PostLeaseOffer(ctx, testAddr(7), f.asset.AssetID, unit, 30_000, 86_400*30, 0)
	assert.Equal(t, ledgersvc.ErrInsufficientBalance, err)
}

func TestPlaceLeaseBid_WrongKind(t *testing.T) {
	f := setupSalebookTest(t)
	ctx := context.Background()
	f.fund(t, testAddr(2), 1_000_000)

	sale, err := f.svc.PostSale(ctx, testAddr(1), f.asset.AssetID, unit, 1_000, 100)
	require.NoError(t, err)
	_, err = f.svc.PlaceLeaseBid(ctx, testAddr(2), sale.ListingID)
	assert.Equal(t, ErrWrongKind, err)

	lease, err := f.svc.PostLeaseOffer(ctx, testAddr(1), f.asset.AssetID, unit, 30_000, 86_400*30, 0)
	require.NoError(t, err)
	_, err = f.svc.PlaceBid(ctx, testAddr(2), lease.ListingID, 100, 100)
	assert.Equal(t, ErrWrongKind, err)
}

// An asset issued without naming a checkpoint authority must still complete
// the full lease path: the issuance default and the revenue distributor have
// to be the same address.
func TestAcceptLeaseBid_DefaultIssuedAsset(t *testing.T) {
	f := setupSalebookTest(t)
	ctx := context.Background()
	lessor := newSigner(t)
	lessee := newSigner(t)

	var at domain.AssetType
	require.NoError(t, f.db.Where("name = ?", "villa").First(&at).Error)
	issuance := &assetssvc.Service{
		DB:               f.db,
		Ledger:           f.ledger,
		Events:           &eventssvc.Service{DB: f.db},
		DefaultAuthority: testAddr(9),
	}
	asset, err := issuance.IssueAsset(ctx, assetssvc.IssueParams{
		Issuer:      lessor.address,
		AssetTypeID: at.TypeID,
		Symbol:      "VILLA-2",
		TotalSupply: 1_000,
	})
	require.NoError(t, err)
	require.Equal(t, testAddr(9), asset.CheckpointAuthority)

	f.fund(t, lessee.address, 50_000)
	listing, err := f.svc.PostLeaseOffer(ctx, lessor.address, asset.AssetID, unit, 30_000, 86_400*30, 0)
	require.NoError(t, err)
	bid, err := f.svc.PlaceLeaseBid(ctx, lessee.address, listing.ListingID)
	require.NoError(t, err)

	intent := leaseIntentFor(f, lessor, lessee, listing, 1)
	digest := leaseintent.HashIntent(intent)
	lease, err := f.svc.AcceptLeaseBid(ctx, lessor.address, listing.ListingID, bid.BidID,
		intent, lessor.sign(digest), lessee.sign(digest), time.Now())
	require.NoError(t, err)
	require.NotNil(t, lease.RoundID)

	// The sole holder claims the whole rent.
	paid, err := f.revenue.Claim(ctx, *lease.RoundID, lessor.address)
	require.NoError(t, err)
	assert.Equal(t, int64(30_000), paid)
}

func TestPlaceBid_EscrowOverflow(t *testing.T) {
	f := setupSalebookTest(t)
	ctx := context.Background()
	f.fund(t, testAddr(2), 1_000)

	listing, err := f.svc.PostSale(ctx, testAddr(1), f.asset.AssetID, unit, 1_000, 100)
	require.NoError(t, err)

	_, err = f.svc.PlaceBid(ctx, testAddr(2), listing.ListingID, math.MaxInt64/2+1, 3)
	assert.Equal(t, ErrInvalidAmount, err)
}

func TestAcceptLeaseBid_RefundsRivalLeaseBids(t *testing.T) {
	f := setupSalebookTest(t)
	ctx := context.Background()
	lessor := newSigner(t)
	winner := newSigner(t)
	loser := newSigner(t)

	require.NoError(t, f.ledger.Transfer(ctx, f.asset.AssetID, testAddr(1), lessor.address, 1_000))
	f.fund(t, winner.address, 50_000)
	f.fund(t, loser.address, 50_000)

	listing, err := f.svc.PostLeaseOffer(ctx, lessor.address, f.asset.AssetID, unit, 30_000, 86_400*30, 5_000)
	require.NoError(t, err)
	winBid, err := f.svc.PlaceLeaseBid(ctx, winner.address, listing.ListingID)
	require.NoError(t, err)
	_, err = f.svc.PlaceLeaseBid(ctx, loser.address, listing.ListingID)
	require.NoError(t, err)

	intent := leaseIntentFor(f, lessor, winner, listing, 1)
	digest := leaseintent.HashIntent(intent)
	_, err = f.svc.AcceptLeaseBid(ctx, lessor.address, listing.ListingID, winBid.BidID,
		intent, lessor.sign(digest), winner.sign(digest), time.Now())
	require.NoError(t, err)

	loserCash, _ := f.vault.CashBalance(ctx, loser.address, unit)
	assert.Equal(t, int64(50_000), loserCash)
}

package core

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"marketchain/core/genesis"
	"marketchain/core/types"
	"marketchain/native/auction"
	"marketchain/native/bank"
	nativecommon "marketchain/native/common"
	nativedrop "marketchain/native/drop"
	"marketchain/native/market"
	"marketchain/native/nft"
	"marketchain/native/offer"
	"marketchain/storage"
)

const startingBalance = 1_000_000

func newTestAddress(fill byte) [20]byte {
	var addr [20]byte
	copy(addr[:], bytes.Repeat([]byte{fill}, 20))
	return addr
}

var (
	operatorAddr = newTestAddress(0xAA)
	feeRecipient = newTestAddress(0xFE)
	alice        = newTestAddress(0x0A)
	bob          = newTestAddress(0x0B)
	carol        = newTestAddress(0x0C)
	dave         = newTestAddress(0x0D)
	erin         = newTestAddress(0x0E)

	marketVault  = bank.VaultAddress(nativecommon.ModuleMarket)
	auctionVault = bank.VaultAddress(nativecommon.ModuleAuction)
	offerVault   = bank.VaultAddress(nativecommon.ModuleOffer)
	dropVault    = bank.VaultAddress(nativecommon.ModuleDrop)
)

type harness struct {
	t      *testing.T
	node   *Node
	now    int64
	nonces map[[20]byte]uint64
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	db, err := storage.NewMemDB()
	require.NoError(t, err)
	t.Cleanup(db.Close)

	h := &harness{t: t, now: 1_000, nonces: make(map[[20]byte]uint64)}
	node, err := NewNode(db, WithNowFunc(func() int64 { return h.now }))
	require.NoError(t, err)
	h.node = node

	alloc := ""
	for i, addr := range [][20]byte{alice, bob, carol, dave, erin} {
		if i > 0 {
			alloc += ","
		}
		alloc += fmt.Sprintf("%q: \"%d\"", common.Address(addr).Hex(), startingBalance)
	}
	doc := fmt.Sprintf(`{"operator": %q, "platformFee": {"rate": 25, "recipient": %q}, "alloc": {%s}}`,
		common.Address(operatorAddr).Hex(), common.Address(feeRecipient).Hex(), alloc)
	spec, err := genesis.ParseGenesisSpec([]byte(doc))
	require.NoError(t, err)
	require.NoError(t, node.InitGenesis(spec))
	return h
}

func (h *harness) send(from [20]byte, txType types.TxType, value int64, payload interface{}) (*types.Receipt, error) {
	h.t.Helper()
	data, err := json.Marshal(payload)
	require.NoError(h.t, err)
	tx := &types.Transaction{
		Type:  txType,
		From:  common.Address(from),
		Nonce: h.nonces[from],
		Value: big.NewInt(value),
		Data:  data,
	}
	receipt, err := h.node.Apply(tx)
	if err == nil {
		h.nonces[from]++
	}
	return receipt, err
}

func (h *harness) mustSend(from [20]byte, txType types.TxType, value int64, payload interface{}) *types.Receipt {
	h.t.Helper()
	receipt, err := h.send(from, txType, value, payload)
	require.NoError(h.t, err)
	return receipt
}

func (h *harness) balance(addr [20]byte) int64 {
	h.t.Helper()
	var out int64
	require.NoError(h.t, h.node.View(func(l *Ledgers) error {
		bal, err := l.Bank.Balance(addr)
		if err != nil {
			return err
		}
		out = bal.Int64()
		return nil
	}))
	return out
}

func (h *harness) ownerOf(asset nft.AssetRef) [20]byte {
	h.t.Helper()
	var owner [20]byte
	require.NoError(h.t, h.node.View(func(l *Ledgers) error {
		var err error
		owner, err = l.NFT.OwnerOf(asset)
		return err
	}))
	return owner
}

func (h *harness) auction(asset nft.AssetRef) *auction.Auction {
	h.t.Helper()
	var out *auction.Auction
	require.NoError(h.t, h.node.View(func(l *Ledgers) error {
		var err error
		out, err = l.Auction.Auction(asset)
		return err
	}))
	return out
}

// requireConservation checks every vault holds exactly what it owes.
func (h *harness) requireConservation() {
	h.t.Helper()
	require.NoError(h.t, h.node.View(func(l *Ledgers) error {
		auctions, err := l.Auction.FetchAuctions()
		if err != nil {
			return err
		}
		owedBids := big.NewInt(0)
		for _, a := range auctions {
			if !a.Concluded {
				owedBids.Add(owedBids, a.Escrowed())
			}
		}
		offers, err := l.Offer.FetchOffers()
		if err != nil {
			return err
		}
		owedOffers := big.NewInt(0)
		for _, o := range offers {
			owedOffers.Add(owedOffers, o.Price)
		}
		require.Equal(h.t, owedBids.Int64(), h.balance(auctionVault))
		require.Equal(h.t, owedOffers.Int64(), h.balance(offerVault))
		require.Zero(h.t, h.balance(marketVault))
		require.Zero(h.t, h.balance(dropVault))
		return nil
	}))
}

// mintTo creates a registry owned by owner and mints one token to it.
func (h *harness) mintTo(owner [20]byte, symbol string) nft.AssetRef {
	h.t.Helper()
	h.mustSend(owner, types.TxTypeCreateRegistry, 0, CreateRegistryPayload{Name: symbol, Symbol: symbol})
	registry := nft.CollectionAddress(owner, symbol)
	receipt := h.mustSend(owner, types.TxTypeMint, 0, MintPayload{Registry: registry, To: owner})
	asset, ok := receipt.Result.(nft.AssetRef)
	require.True(h.t, ok)
	return asset
}

func assetParams(asset nft.AssetRef) AssetParams {
	return AssetParams{Registry: asset.Registry, TokenID: asset.TokenID}
}

func TestListingSaleSplitsProceeds(t *testing.T) {
	h := newHarness(t)
	asset := h.mintTo(alice, "ART")
	h.mustSend(alice, types.TxTypeApprove, 0, ApprovePayload{AssetParams: assetParams(asset), Spender: marketVault})

	receipt := h.mustSend(alice, types.TxTypeCreateListing, 0, CreateListingPayload{
		AssetParams: assetParams(asset),
		Price:       big.NewInt(10),
		Category:    "art",
	})
	listing := receipt.Result.(*market.Listing)
	require.Equal(t, uint64(1), listing.ItemID)

	_, err := h.send(bob, types.TxTypeBuy, 9, BuyPayload{ItemID: listing.ItemID})
	require.ErrorIs(t, err, nativecommon.ErrPaymentMismatch)

	receipt = h.mustSend(bob, types.TxTypeBuy, 10, BuyPayload{
		ItemID:        listing.ItemID,
		RoyaltyParams: RoyaltyParams{RoyaltyRecipient: carol, RoyaltyRate: 250},
	})
	sold := receipt.Result.(*market.Listing)
	require.Equal(t, market.ListingSold, sold.Status)
	require.Equal(t, bob, sold.Buyer)

	require.Equal(t, bob, h.ownerOf(asset))
	require.Equal(t, int64(startingBalance+8), h.balance(alice))
	require.Equal(t, int64(startingBalance+2), h.balance(carol))
	require.Equal(t, int64(startingBalance-10), h.balance(bob))
	require.Zero(t, h.balance(feeRecipient))

	_, err = h.send(dave, types.TxTypeBuy, 10, BuyPayload{ItemID: listing.ItemID})
	require.ErrorIs(t, err, market.ErrListingNotActive)
	require.ErrorIs(t, err, nativecommon.ErrInvalidState)
	require.Equal(t, int64(startingBalance), h.balance(dave))
	h.requireConservation()
}

func TestListingRequiresApprovalAndOwnership(t *testing.T) {
	h := newHarness(t)
	asset := h.mintTo(alice, "ART")

	_, err := h.send(alice, types.TxTypeCreateListing, 0, CreateListingPayload{AssetParams: assetParams(asset), Price: big.NewInt(10)})
	require.ErrorIs(t, err, nativecommon.ErrNotOwnerOrNotApproved)

	h.mustSend(alice, types.TxTypeApprove, 0, ApprovePayload{AssetParams: assetParams(asset), Spender: marketVault})
	_, err = h.send(bob, types.TxTypeCreateListing, 0, CreateListingPayload{AssetParams: assetParams(asset), Price: big.NewInt(10)})
	require.ErrorIs(t, err, nativecommon.ErrNotOwnerOrNotApproved)
	_, err = h.send(alice, types.TxTypeCreateListing, 0, CreateListingPayload{AssetParams: assetParams(asset), Price: big.NewInt(0)})
	require.ErrorIs(t, err, market.ErrInvalidPrice)

	receipt := h.mustSend(alice, types.TxTypeCreateListing, 0, CreateListingPayload{AssetParams: assetParams(asset), Price: big.NewInt(10)})
	listing := receipt.Result.(*market.Listing)

	// The seller moves the asset away; the stale listing cannot settle.
	h.mustSend(alice, types.TxTypeTransferAsset, 0, TransferAssetPayload{AssetParams: assetParams(asset), To: carol})
	_, err = h.send(bob, types.TxTypeBuy, 10, BuyPayload{ItemID: listing.ItemID})
	require.ErrorIs(t, err, nativecommon.ErrNotOwnerOrNotApproved)
	require.Equal(t, int64(startingBalance), h.balance(bob))

	receipt = h.mustSend(alice, types.TxTypeCancelListing, 0, ItemPayload{ItemID: listing.ItemID})
	cancelled := receipt.Result.(*market.Listing)
	require.Equal(t, market.ListingCancelled, cancelled.Status)
	require.Equal(t, alice, cancelled.Buyer)

	require.NoError(t, h.node.View(func(l *Ledgers) error {
		settled, err := l.Market.FetchSettledByBuyer(alice)
		require.NoError(t, err)
		require.Len(t, settled, 1)
		active, err := l.Market.FetchActive()
		require.NoError(t, err)
		require.Empty(t, active)
		return nil
	}))
}

func TestAuctionDisplacementRefundsLowestBid(t *testing.T) {
	h := newHarness(t)
	h.mustSend(alice, types.TxTypeCreateRegistry, 0, CreateRegistryPayload{Name: "Drop", Symbol: "DROP"})
	registry := nft.CollectionAddress(alice, "DROP")
	h.mustSend(alice, types.TxTypeSetMinter, 0, SetMinterPayload{Registry: registry, Minter: auctionVault, Enabled: true})

	drop := nft.AssetRef{Registry: registry, TokenID: 100}
	h.mustSend(alice, types.TxTypeCreateAuction, 0, CreateAuctionPayload{
		AssetParams:  assetParams(drop),
		MinBid:       big.NewInt(100),
		MaxDate:      2_000,
		MaxMint:      2,
		ArtistWallet: carol,
		ArtistSplit:  10,
	})

	_, err := h.send(bob, types.TxTypePlaceBid, 99, assetParams(drop))
	require.ErrorIs(t, err, nativecommon.ErrBidTooLow)

	h.mustSend(bob, types.TxTypePlaceBid, 100, assetParams(drop))
	h.mustSend(dave, types.TxTypePlaceBid, 150, assetParams(drop))
	h.requireConservation()
	h.mustSend(erin, types.TxTypePlaceBid, 120, assetParams(drop))

	a := h.auction(drop)
	require.Equal(t, 2, a.CountBidMade())
	require.Equal(t, int64(150), a.Bids[0].Value.Int64())
	require.Equal(t, dave, a.Bids[0].Bidder)
	require.Equal(t, int64(120), a.Bids[1].Value.Int64())
	require.Equal(t, int64(startingBalance), h.balance(bob))
	require.Equal(t, int64(270), h.balance(auctionVault))
	h.requireConservation()

	_, err = h.send(bob, types.TxTypePlaceBid, 120, assetParams(drop))
	require.ErrorIs(t, err, nativecommon.ErrBidTooLow)

	_, err = h.send(bob, types.TxTypeConcludeAuction, 0, ConcludeAuctionPayload{AssetParams: assetParams(drop), Permutation: []uint64{1, 0}})
	require.ErrorIs(t, err, nativecommon.ErrNotOwnerOrNotApproved)
	_, err = h.send(alice, types.TxTypeConcludeAuction, 0, ConcludeAuctionPayload{AssetParams: assetParams(drop), Permutation: []uint64{1, 1}})
	require.ErrorIs(t, err, auction.ErrInvalidPermutation)

	receipt := h.mustSend(alice, types.TxTypeConcludeAuction, 0, ConcludeAuctionPayload{AssetParams: assetParams(drop), Permutation: []uint64{1, 0}})
	concluded := receipt.Result.(*auction.Auction)
	require.True(t, concluded.Concluded)
	require.Equal(t, []uint64{1, 2}, concluded.Minted)

	require.Equal(t, erin, h.ownerOf(nft.AssetRef{Registry: registry, TokenID: 1}))
	require.Equal(t, dave, h.ownerOf(nft.AssetRef{Registry: registry, TokenID: 2}))
	require.Equal(t, int64(startingBalance+27), h.balance(carol))
	require.Equal(t, int64(startingBalance+243), h.balance(alice))
	require.Zero(t, h.balance(auctionVault))

	_, err = h.send(alice, types.TxTypeConcludeAuction, 0, ConcludeAuctionPayload{AssetParams: assetParams(drop), Permutation: []uint64{1, 0}})
	require.ErrorIs(t, err, nativecommon.ErrAlreadyConcluded)
	h.requireConservation()
}

func TestRejectedRefundRollsBackDisplacingBid(t *testing.T) {
	h := newHarness(t)
	h.mustSend(alice, types.TxTypeCreateRegistry, 0, CreateRegistryPayload{Name: "One", Symbol: "ONE"})
	registry := nft.CollectionAddress(alice, "ONE")
	h.mustSend(alice, types.TxTypeSetMinter, 0, SetMinterPayload{Registry: registry, Minter: auctionVault, Enabled: true})
	drop := nft.AssetRef{Registry: registry, TokenID: 1}
	h.mustSend(alice, types.TxTypeCreateAuction, 0, CreateAuctionPayload{
		AssetParams: assetParams(drop),
		MinBid:      big.NewInt(100),
		MaxMint:     1,
	})

	h.mustSend(bob, types.TxTypePlaceBid, 100, assetParams(drop))
	h.mustSend(bob, types.TxTypeSetRejectPayments, 0, SetRejectPaymentsPayload{Reject: true})

	daveNonce := h.nonces[dave]
	_, err := h.send(dave, types.TxTypePlaceBid, 150, assetParams(drop))
	require.ErrorIs(t, err, nativecommon.ErrTransferFailed)
	require.Equal(t, daveNonce, h.nonces[dave])
	require.Equal(t, int64(startingBalance), h.balance(dave))

	a := h.auction(drop)
	require.Len(t, a.Bids, 1)
	require.Equal(t, bob, a.Bids[0].Bidder)
	require.Equal(t, int64(100), h.balance(auctionVault))
	h.requireConservation()

	h.mustSend(bob, types.TxTypeSetRejectPayments, 0, SetRejectPaymentsPayload{Reject: false})
	h.mustSend(dave, types.TxTypePlaceBid, 150, assetParams(drop))
	require.Equal(t, int64(startingBalance), h.balance(bob))
	require.Equal(t, int64(150), h.balance(auctionVault))
	h.requireConservation()
}

func TestAuctionConclusionIsGatedByDeadlineOrCapacity(t *testing.T) {
	h := newHarness(t)
	h.mustSend(alice, types.TxTypeCreateRegistry, 0, CreateRegistryPayload{Name: "Gate", Symbol: "GATE"})
	registry := nft.CollectionAddress(alice, "GATE")
	drop := nft.AssetRef{Registry: registry, TokenID: 1}

	_, err := h.send(alice, types.TxTypeCreateAuction, 0, CreateAuctionPayload{
		AssetParams: assetParams(drop), MinBid: big.NewInt(1), MaxDate: 1_500, MaxMint: 3,
	})
	require.ErrorIs(t, err, nativecommon.ErrNotOwnerOrNotApproved)

	h.mustSend(alice, types.TxTypeSetMinter, 0, SetMinterPayload{Registry: registry, Minter: auctionVault, Enabled: true})
	_, err = h.send(bob, types.TxTypeCreateAuction, 0, CreateAuctionPayload{
		AssetParams: assetParams(drop), MinBid: big.NewInt(1), MaxDate: 1_500, MaxMint: 3,
	})
	require.ErrorIs(t, err, nativecommon.ErrNotOwnerOrNotApproved)
	_, err = h.send(alice, types.TxTypeCreateAuction, 0, CreateAuctionPayload{
		AssetParams: assetParams(drop), MinBid: big.NewInt(1), MaxDate: 1_500, MaxMint: 3, ArtistWallet: carol, ArtistSplit: 101,
	})
	require.ErrorIs(t, err, nativecommon.ErrInvalidFeeConfiguration)

	h.mustSend(operatorAddr, types.TxTypeCreateAuction, 0, CreateAuctionPayload{
		AssetParams: assetParams(drop), MinBid: big.NewInt(1), MaxDate: 1_500, MaxMint: 3,
	})
	h.mustSend(bob, types.TxTypePlaceBid, 5, assetParams(drop))

	_, err = h.send(operatorAddr, types.TxTypeConcludeAuction, 0, ConcludeAuctionPayload{AssetParams: assetParams(drop), Permutation: []uint64{0}})
	require.ErrorIs(t, err, auction.ErrAuctionOpen)

	h.now = 1_500
	_, err = h.send(dave, types.TxTypePlaceBid, 5, assetParams(drop))
	require.ErrorIs(t, err, nativecommon.ErrAuctionExpired)

	h.mustSend(operatorAddr, types.TxTypeConcludeAuction, 0, ConcludeAuctionPayload{AssetParams: assetParams(drop), Permutation: []uint64{0}})
	require.Equal(t, bob, h.ownerOf(nft.AssetRef{Registry: registry, TokenID: 1}))
	require.Equal(t, int64(5), h.balance(operatorAddr))

	// A concluded auction may be replaced by a new one for the same drop.
	h.mustSend(alice, types.TxTypeCreateAuction, 0, CreateAuctionPayload{
		AssetParams: assetParams(drop), MinBid: big.NewInt(1), MaxMint: 1,
	})
	require.False(t, h.auction(drop).Concluded)
	h.requireConservation()
}

func TestOfferLifecycle(t *testing.T) {
	h := newHarness(t)
	asset := h.mintTo(alice, "ART")

	_, err := h.send(bob, types.TxTypeCreateOffer, 0, assetParams(asset))
	require.ErrorIs(t, err, nativecommon.ErrZeroValueOffer)
	_, err = h.send(bob, types.TxTypeCreateOffer, 10, AssetParams{Registry: asset.Registry, TokenID: 42})
	require.ErrorIs(t, err, nativecommon.ErrRecordNotFound)

	receipt := h.mustSend(bob, types.TxTypeCreateOffer, 50, assetParams(asset))
	bobOffer := receipt.Result.(*offer.Offer)
	h.requireConservation()

	h.mustSend(bob, types.TxTypeChangeOffer, 80, OfferPayload{OfferID: bobOffer.OfferID})
	require.Equal(t, int64(startingBalance-80), h.balance(bob))
	h.requireConservation()

	receipt = h.mustSend(erin, types.TxTypeCreateOffer, 30, assetParams(asset))
	erinOffer := receipt.Result.(*offer.Offer)
	h.mustSend(erin, types.TxTypeCancelOffer, 0, OfferPayload{OfferID: erinOffer.OfferID})
	_, err = h.send(erin, types.TxTypeCancelOffer, 0, OfferPayload{OfferID: erinOffer.OfferID})
	require.ErrorIs(t, err, nativecommon.ErrInvalidState)
	require.Equal(t, int64(startingBalance), h.balance(erin))

	_, err = h.send(alice, types.TxTypeAcceptOffer, 0, AcceptOfferPayload{OfferID: bobOffer.OfferID})
	require.ErrorIs(t, err, nativecommon.ErrNotOwnerOrNotApproved)

	h.mustSend(alice, types.TxTypeApprove, 0, ApprovePayload{AssetParams: assetParams(asset), Spender: offerVault})
	_, err = h.send(carol, types.TxTypeAcceptOffer, 0, AcceptOfferPayload{OfferID: bobOffer.OfferID})
	require.ErrorIs(t, err, nativecommon.ErrNotOwnerOrNotApproved)

	h.mustSend(alice, types.TxTypeAcceptOffer, 0, AcceptOfferPayload{
		OfferID:       bobOffer.OfferID,
		RoyaltyParams: RoyaltyParams{RoyaltyRecipient: carol, RoyaltyRate: 100},
	})
	require.Equal(t, bob, h.ownerOf(asset))
	require.Equal(t, int64(2), h.balance(feeRecipient))
	require.Equal(t, int64(startingBalance+8), h.balance(carol))
	require.Equal(t, int64(startingBalance+70), h.balance(alice))

	_, err = h.send(alice, types.TxTypeAcceptOffer, 0, AcceptOfferPayload{OfferID: bobOffer.OfferID})
	require.ErrorIs(t, err, nativecommon.ErrNotOwnerOrNotApproved)

	receipt = h.mustSend(dave, types.TxTypeCreateOffer, 40, assetParams(asset))
	daveOffer := receipt.Result.(*offer.Offer)
	_, err = h.send(alice, types.TxTypeDenyOffer, 0, OfferPayload{OfferID: daveOffer.OfferID})
	require.ErrorIs(t, err, nativecommon.ErrNotOwnerOrNotApproved)
	h.mustSend(bob, types.TxTypeDenyOffer, 0, OfferPayload{OfferID: daveOffer.OfferID})
	require.Equal(t, int64(startingBalance), h.balance(dave))
	h.requireConservation()
}

func TestNonceReplayIsRejected(t *testing.T) {
	h := newHarness(t)
	h.mustSend(alice, types.TxTypeTransfer, 5, TransferPayload{To: bob})

	replay := &types.Transaction{Type: types.TxTypeTransfer, From: common.Address(alice), Nonce: 0, Value: big.NewInt(5)}
	replay.Data, _ = json.Marshal(TransferPayload{To: bob})
	_, err := h.node.Apply(replay)
	require.ErrorIs(t, err, ErrNonceMismatch)
	require.Equal(t, int64(startingBalance+5), h.balance(bob))
}

func TestValueOnNonPayableOperationIsRejected(t *testing.T) {
	h := newHarness(t)
	_, err := h.send(alice, types.TxTypeCreateRegistry, 5, CreateRegistryPayload{Name: "X", Symbol: "X"})
	require.ErrorIs(t, err, nativecommon.ErrPaymentMismatch)
	require.Equal(t, int64(startingBalance), h.balance(alice))

	_, err = h.send(alice, types.TxType("bogus_op"), 0, nil)
	require.ErrorIs(t, err, ErrUnknownTxType)
}

func TestPausedModuleRejectsMutations(t *testing.T) {
	h := newHarness(t)
	asset := h.mintTo(alice, "ART")

	_, err := h.send(alice, types.TxTypeSetPaused, 0, SetPausedPayload{Module: nativecommon.ModuleOffer, Paused: true})
	require.ErrorIs(t, err, nativecommon.ErrNotOwnerOrNotApproved)

	h.mustSend(operatorAddr, types.TxTypeSetPaused, 0, SetPausedPayload{Module: nativecommon.ModuleOffer, Paused: true})
	_, err = h.send(bob, types.TxTypeCreateOffer, 10, assetParams(asset))
	require.ErrorIs(t, err, nativecommon.ErrModulePaused)

	status, err := h.node.Status()
	require.NoError(t, err)
	require.Equal(t, []string{nativecommon.ModuleOffer}, status.Paused)

	h.mustSend(operatorAddr, types.TxTypeSetPaused, 0, SetPausedPayload{Module: nativecommon.ModuleOffer, Paused: false})
	h.mustSend(bob, types.TxTypeCreateOffer, 10, assetParams(asset))
}

func TestPlatformFeeIsOperatorOnly(t *testing.T) {
	h := newHarness(t)
	_, err := h.send(alice, types.TxTypeSetPlatformFee, 0, SetPlatformFeePayload{Rate: 50})
	require.ErrorIs(t, err, nativecommon.ErrNotOwnerOrNotApproved)
	_, err = h.send(operatorAddr, types.TxTypeSetPlatformFee, 0, SetPlatformFeePayload{Rate: 1_001})
	require.ErrorIs(t, err, nativecommon.ErrInvalidFeeConfiguration)

	h.mustSend(operatorAddr, types.TxTypeSetPlatformFee, 0, SetPlatformFeePayload{Rate: 50})
	require.NoError(t, h.node.View(func(l *Ledgers) error {
		cfg, err := l.Market.PlatformFee()
		require.NoError(t, err)
		require.Equal(t, uint32(50), cfg.PlatformRate)
		return nil
	}))
}

func TestReceiptsCarryCommittedEvents(t *testing.T) {
	h := newHarness(t)
	receipt := h.mustSend(alice, types.TxTypeTransfer, 7, TransferPayload{To: bob})
	require.Equal(t, uint64(1), receipt.Height)
	require.Len(t, receipt.Events, 1)
	require.Equal(t, bank.EventTypeTransfer, receipt.Events[0].Type)

	_, err := h.send(alice, types.TxTypeTransfer, startingBalance*2, TransferPayload{To: bob})
	require.ErrorIs(t, err, bank.ErrInsufficientBalance)

	events := h.node.RecentEvents(0)
	require.Len(t, events, 1)

	status, err := h.node.Status()
	require.NoError(t, err)
	require.Equal(t, uint64(1), status.Height)
	require.Equal(t, uint32(25), status.PlatformRate)
}

func TestSubscribeEventsReplaysBacklogThenStreams(t *testing.T) {
	h := newHarness(t)
	h.mustSend(alice, types.TxTypeTransfer, 1, TransferPayload{To: bob})
	h.mustSend(alice, types.TxTypeTransfer, 2, TransferPayload{To: bob})

	updates, cancel, backlog := h.node.SubscribeEvents(context.Background(), 1)
	require.Len(t, backlog, 1)
	require.Equal(t, uint64(2), backlog[0].Sequence)
	require.Equal(t, uint64(2), backlog[0].Height)

	h.mustSend(bob, types.TxTypeTransfer, 3, TransferPayload{To: carol})
	select {
	case live := <-updates:
		require.Equal(t, uint64(3), live.Sequence)
		require.Equal(t, bank.EventTypeTransfer, live.Event.Type)
	case <-time.After(time.Second):
		t.Fatal("no event delivered to subscriber")
	}

	cancel()
	_, open := <-updates
	require.False(t, open)

	// a cancelled subscriber no longer receives commits
	h.mustSend(bob, types.TxTypeTransfer, 1, TransferPayload{To: carol})
	require.Len(t, h.node.RecentEvents(0), 4)
}

func TestDropSaleMintsOnPurchase(t *testing.T) {
	h := newHarness(t)
	h.mustSend(alice, types.TxTypeCreateRegistry, 0, CreateRegistryPayload{Name: "Edition", Symbol: "ED"})
	registry := nft.CollectionAddress(alice, "ED")
	create := CreateSalePayload{
		Registry:     registry,
		Price:        big.NewInt(100),
		MaxDate:      2_000,
		MaxMint:      2,
		ArtistWallet: carol,
		ArtistSplit:  20,
	}

	_, err := h.send(bob, types.TxTypeCreateSale, 0, create)
	require.ErrorIs(t, err, nativecommon.ErrNotOwnerOrNotApproved)
	h.mustSend(alice, types.TxTypeCreateSale, 0, create)

	// the vault still lacks the minter role
	_, err = h.send(bob, types.TxTypePurchase, 100, SalePayload{Registry: registry})
	require.ErrorIs(t, err, nft.ErrNotMinter)
	require.Equal(t, int64(startingBalance), h.balance(bob))
	h.mustSend(alice, types.TxTypeSetMinter, 0, SetMinterPayload{Registry: registry, Minter: dropVault, Enabled: true})

	_, err = h.send(bob, types.TxTypePurchase, 99, SalePayload{Registry: registry})
	require.ErrorIs(t, err, nativecommon.ErrPaymentMismatch)

	receipt := h.mustSend(bob, types.TxTypePurchase, 100, SalePayload{Registry: registry})
	bought := receipt.Result.(*nativedrop.Purchase)
	require.Equal(t, uint64(1), bought.TokenID)
	require.Equal(t, bob, h.ownerOf(nft.AssetRef{Registry: registry, TokenID: 1}))
	require.Equal(t, int64(startingBalance-100), h.balance(bob))
	require.Equal(t, int64(startingBalance+20), h.balance(carol))
	require.Equal(t, int64(startingBalance+80), h.balance(alice))
	h.requireConservation()

	h.mustSend(dave, types.TxTypePurchase, 100, SalePayload{Registry: registry})
	_, err = h.send(erin, types.TxTypePurchase, 100, SalePayload{Registry: registry})
	require.ErrorIs(t, err, nativedrop.ErrSoldOut)
	require.Equal(t, int64(startingBalance), h.balance(erin))

	h.mustSend(alice, types.TxTypeSetMaxMint, 0, SetMaxMintPayload{Registry: registry, MaxMint: 3})
	h.now = 2_000
	_, err = h.send(erin, types.TxTypePurchase, 100, SalePayload{Registry: registry})
	require.ErrorIs(t, err, nativecommon.ErrAuctionExpired)

	h.mustSend(operatorAddr, types.TxTypeSetPaused, 0, SetPausedPayload{Module: nativecommon.ModuleDrop, Paused: true})
	_, err = h.send(alice, types.TxTypeSetMaxDate, 0, SetMaxDatePayload{Registry: registry, MaxDate: 3_000})
	require.ErrorIs(t, err, nativecommon.ErrModulePaused)
	h.mustSend(operatorAddr, types.TxTypeSetPaused, 0, SetPausedPayload{Module: nativecommon.ModuleDrop, Paused: false})

	h.mustSend(alice, types.TxTypeSetMaxDate, 0, SetMaxDatePayload{Registry: registry, MaxDate: 3_000})
	receipt = h.mustSend(erin, types.TxTypePurchase, 100, SalePayload{Registry: registry})
	require.Equal(t, uint64(3), receipt.Result.(*nativedrop.Purchase).TokenID)

	require.NoError(t, h.node.View(func(l *Ledgers) error {
		sale, err := l.Drop.Sale(registry)
		require.NoError(t, err)
		require.Equal(t, uint64(3), sale.Sold)
		require.True(t, sale.SoldOut())
		return nil
	}))
	h.requireConservation()
}

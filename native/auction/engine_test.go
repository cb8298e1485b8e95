package auction

import (
	"errors"
	"math"
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"

	"marketchain/native/common"
	"marketchain/native/nft"
)

type mockState struct {
	auctions map[nft.AssetRef]*Auction
	order    []nft.AssetRef
	operator [20]byte
}

func newMockState() *mockState {
	return &mockState{auctions: make(map[nft.AssetRef]*Auction)}
}

func (m *mockState) AuctionGet(asset nft.AssetRef) (*Auction, bool, error) {
	a, ok := m.auctions[asset]
	if !ok {
		return nil, false, nil
	}
	return a.Clone(), true, nil
}

func (m *mockState) AuctionPut(a *Auction) error {
	if _, ok := m.auctions[a.Asset]; !ok {
		m.order = append(m.order, a.Asset)
	}
	m.auctions[a.Asset] = a.Clone()
	return nil
}

func (m *mockState) Auctions(fn func(*Auction) error) error {
	for _, ref := range m.order {
		if err := fn(m.auctions[ref].Clone()); err != nil {
			return err
		}
	}
	return nil
}

func (m *mockState) Operator() ([20]byte, error) { return m.operator, nil }

type mockRegistry struct {
	collection *nft.Collection
	minted     [][20]byte
}

func (r *mockRegistry) Collection(addr [20]byte) (*nft.Collection, error) {
	if r.collection == nil || r.collection.Address != addr {
		return nil, nft.ErrCollectionNotFound
	}
	return r.collection.Clone(), nil
}

func (r *mockRegistry) IsMinter(registry, addr [20]byte) (bool, error) {
	c, err := r.Collection(registry)
	if err != nil {
		return false, err
	}
	return c.IsMinter(addr), nil
}

func (r *mockRegistry) Mint(minter, registry, to [20]byte) (nft.AssetRef, error) {
	ok, err := r.IsMinter(registry, minter)
	if err != nil {
		return nft.AssetRef{}, err
	}
	if !ok {
		return nft.AssetRef{}, nft.ErrNotMinter
	}
	r.minted = append(r.minted, to)
	return nft.AssetRef{Registry: registry, TokenID: uint64(len(r.minted))}, nil
}

type mockBank struct {
	balances map[[20]byte]int64
	rejects  map[[20]byte]bool
}

func newMockBank() *mockBank {
	return &mockBank{balances: make(map[[20]byte]int64), rejects: make(map[[20]byte]bool)}
}

func (b *mockBank) Transfer(from, to [20]byte, amount *big.Int) error {
	if amount.Sign() == 0 {
		return nil
	}
	if b.balances[from] < amount.Int64() {
		return errors.New("insufficient balance")
	}
	if b.rejects[to] {
		return common.ErrTransferFailed
	}
	b.balances[from] -= amount.Int64()
	b.balances[to] += amount.Int64()
	return nil
}

var (
	owner    = [20]byte{0x01}
	artist   = [20]byte{0x02}
	operator = [20]byte{0x0F}
	bidders  = [][20]byte{{0x11}, {0x12}, {0x13}, {0x14}}
	registry = [20]byte{0xCC}
	drop     = nft.AssetRef{Registry: registry, TokenID: 7}
)

type fixture struct {
	engine   *Engine
	state    *mockState
	registry *mockRegistry
	bank     *mockBank
	now      int64
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		state:    newMockState(),
		registry: &mockRegistry{},
		bank:     newMockBank(),
		now:      1_000,
	}
	f.state.operator = operator
	f.engine = NewEngine()
	f.engine.SetState(f.state)
	f.engine.SetRegistry(f.registry)
	f.engine.SetBank(f.bank)
	f.engine.SetNowFunc(func() int64 { return f.now })
	f.registry.collection = &nft.Collection{
		Address: registry,
		Owner:   owner,
		Minters: [][20]byte{owner, f.engine.Vault()},
	}
	for _, b := range bidders {
		f.bank.balances[b] = 1_000
	}
	return f
}

func (f *fixture) create(t *testing.T, maxMint uint64, maxDate uint64) {
	t.Helper()
	_, err := f.engine.CreateAuction(common.Call{Caller: owner}, CreateParams{
		Asset:        drop,
		MinBid:       big.NewInt(100),
		MaxDate:      maxDate,
		MaxMint:      maxMint,
		ArtistWallet: artist,
		ArtistSplit:  10,
	})
	require.NoError(t, err)
}

func (f *fixture) bid(bidder [20]byte, value int64) (*Auction, error) {
	return f.engine.PlaceBid(common.Call{Caller: bidder, Value: big.NewInt(value)}, drop)
}

func TestBidBookEvictsLowestThenLatest(t *testing.T) {
	book := newBidBook([]Bid{
		{Bidder: bidders[0], Value: big.NewInt(100), Seq: 1},
		{Bidder: bidders[1], Value: big.NewInt(150), Seq: 2},
		{Bidder: bidders[2], Value: big.NewInt(100), Seq: 3},
	}, 3)
	require.True(t, book.full())
	require.Equal(t, uint64(3), book.min().Seq)

	evicted := book.evict()
	require.Equal(t, bidders[2], evicted.Bidder)
	require.Equal(t, uint64(1), book.min().Seq)
	require.False(t, book.full())
}

func TestBidBookLargeCapacityIsNotFull(t *testing.T) {
	book := newBidBook(nil, math.MaxUint64)
	require.False(t, book.full())
	book.push(Bid{Bidder: bidders[0], Value: big.NewInt(1), Seq: 1})
	require.False(t, book.full())
	require.Len(t, book.list(), 1)
}

func TestCreateAuctionBoundsUnits(t *testing.T) {
	f := newFixture(t)
	p := CreateParams{Asset: drop, MinBid: big.NewInt(100), MaxMint: math.MaxUint64, ArtistWallet: artist, ArtistSplit: 10}

	_, err := f.engine.CreateAuction(common.Call{Caller: owner}, p)
	require.ErrorIs(t, err, common.ErrInvalidState)

	p.MaxMint = MaxUnits
	_, err = f.engine.CreateAuction(common.Call{Caller: owner}, p)
	require.NoError(t, err)
	require.NotPanics(t, func() {
		_, err = f.bid(bidders[0], 100)
	})
	require.NoError(t, err)
}

func TestSortedBidsPrefersEarlierAmongEqualValues(t *testing.T) {
	a := &Auction{Bids: []Bid{
		{Bidder: bidders[0], Value: big.NewInt(120), Seq: 3},
		{Bidder: bidders[1], Value: big.NewInt(150), Seq: 2},
		{Bidder: bidders[2], Value: big.NewInt(120), Seq: 1},
	}}
	sorted := a.SortedBids()
	require.Equal(t, []uint64{2, 1, 3}, []uint64{sorted[0].Seq, sorted[1].Seq, sorted[2].Seq})
	require.Equal(t, int64(390), a.Escrowed().Int64())
}

func TestValidatePermutation(t *testing.T) {
	require.NoError(t, ValidatePermutation([]uint64{1, 0, 2}, 3))
	require.NoError(t, ValidatePermutation(nil, 0))
	for _, perm := range [][]uint64{{0, 0}, {0, 2}, {0}, {0, 1, 2}} {
		require.ErrorIs(t, ValidatePermutation(perm, 2), ErrInvalidPermutation, "%v", perm)
	}
}

func TestCreateAuctionValidation(t *testing.T) {
	f := newFixture(t)
	base := CreateParams{Asset: drop, MinBid: big.NewInt(100), MaxMint: 2, ArtistWallet: artist, ArtistSplit: 10}

	_, err := f.engine.CreateAuction(common.Call{Caller: bidders[0]}, base)
	require.ErrorIs(t, err, common.ErrNotOwnerOrNotApproved)

	p := base
	p.MaxMint = 0
	_, err = f.engine.CreateAuction(common.Call{Caller: owner}, p)
	require.ErrorIs(t, err, common.ErrInvalidState)

	p = base
	p.ArtistSplit = 101
	_, err = f.engine.CreateAuction(common.Call{Caller: owner}, p)
	require.ErrorIs(t, err, common.ErrInvalidFeeConfiguration)

	p = base
	p.MaxDate = 999
	_, err = f.engine.CreateAuction(common.Call{Caller: owner}, p)
	require.ErrorIs(t, err, common.ErrInvalidState)

	f.registry.collection.Minters = [][20]byte{owner}
	_, err = f.engine.CreateAuction(common.Call{Caller: owner}, base)
	require.ErrorIs(t, err, common.ErrNotOwnerOrNotApproved)
	f.registry.collection.Minters = [][20]byte{owner, f.engine.Vault()}

	_, err = f.engine.CreateAuction(common.Call{Caller: operator}, base)
	require.NoError(t, err)
	_, err = f.engine.CreateAuction(common.Call{Caller: owner}, base)
	require.ErrorIs(t, err, common.ErrInvalidState)
}

func TestPlaceBidDisplacesLowestAndRefunds(t *testing.T) {
	f := newFixture(t)
	f.create(t, 2, 2_000)

	_, err := f.bid(bidders[0], 99)
	require.ErrorIs(t, err, common.ErrBidTooLow)

	_, err = f.bid(bidders[0], 100)
	require.NoError(t, err)
	_, err = f.bid(bidders[1], 150)
	require.NoError(t, err)

	_, err = f.bid(bidders[2], 100)
	require.ErrorIs(t, err, common.ErrBidTooLow)

	a, err := f.bid(bidders[2], 120)
	require.NoError(t, err)
	require.Equal(t, 2, a.CountBidMade())
	require.Equal(t, bidders[1], a.Bids[0].Bidder)
	require.Equal(t, bidders[2], a.Bids[1].Bidder)

	require.Equal(t, int64(1_000), f.bank.balances[bidders[0]])
	require.Equal(t, int64(270), f.bank.balances[f.engine.Vault()])
}

func TestPlaceBidReportsRejectedRefund(t *testing.T) {
	f := newFixture(t)
	f.create(t, 1, 0)

	_, err := f.bid(bidders[0], 100)
	require.NoError(t, err)
	f.bank.rejects[bidders[0]] = true

	_, err = f.bid(bidders[1], 200)
	require.ErrorIs(t, err, common.ErrTransferFailed)
}

func TestPlaceBidRefusesClosedAuctions(t *testing.T) {
	f := newFixture(t)
	f.create(t, 2, 2_000)

	f.now = 2_000
	_, err := f.bid(bidders[0], 100)
	require.ErrorIs(t, err, common.ErrAuctionExpired)

	_, err = f.engine.PlaceBid(common.Call{Caller: bidders[0], Value: big.NewInt(100)}, nft.AssetRef{Registry: registry, TokenID: 99})
	require.ErrorIs(t, err, ErrNoAuctionForAsset)
}

func TestConcludeAssignsUnitsAndSplitsProceeds(t *testing.T) {
	f := newFixture(t)
	f.create(t, 2, 2_000)

	_, err := f.bid(bidders[0], 150)
	require.NoError(t, err)

	_, err = f.engine.ConcludeAuction(common.Call{Caller: owner}, drop, []uint64{0})
	require.ErrorIs(t, err, ErrAuctionOpen)

	_, err = f.bid(bidders[1], 120)
	require.NoError(t, err)

	_, err = f.engine.ConcludeAuction(common.Call{Caller: bidders[0]}, drop, []uint64{0, 1})
	require.ErrorIs(t, err, common.ErrNotOwnerOrNotApproved)
	_, err = f.engine.ConcludeAuction(common.Call{Caller: owner}, drop, []uint64{0, 0})
	require.ErrorIs(t, err, ErrInvalidPermutation)

	a, err := f.engine.ConcludeAuction(common.Call{Caller: owner}, drop, []uint64{1, 0})
	require.NoError(t, err)
	require.True(t, a.Concluded)
	require.Equal(t, []uint64{1, 2}, a.Minted)
	require.Equal(t, [][20]byte{bidders[1], bidders[0]}, f.registry.minted)

	require.Equal(t, int64(27), f.bank.balances[artist])
	require.Equal(t, int64(243), f.bank.balances[owner])
	require.Zero(t, f.bank.balances[f.engine.Vault()])

	_, err = f.engine.ConcludeAuction(common.Call{Caller: owner}, drop, []uint64{1, 0})
	require.ErrorIs(t, err, common.ErrAlreadyConcluded)
	_, err = f.bid(bidders[2], 500)
	require.ErrorIs(t, err, ErrAuctionClosed)
}

func TestConcludeAfterExpiryWithPartialBids(t *testing.T) {
	f := newFixture(t)
	f.create(t, 3, 2_000)

	_, err := f.bid(bidders[0], 100)
	require.NoError(t, err)

	f.now = 2_000
	a, err := f.engine.ConcludeAuction(common.Call{Caller: operator}, drop, []uint64{0})
	require.NoError(t, err)
	require.Len(t, a.Minted, 1)
	require.Equal(t, int64(10), f.bank.balances[artist])
	require.Equal(t, int64(90), f.bank.balances[owner])

	auctions, err := f.engine.FetchAuctions()
	require.NoError(t, err)
	require.Len(t, auctions, 1)
}

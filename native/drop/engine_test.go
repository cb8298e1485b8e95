package drop

import (
	"errors"
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"

	"marketchain/core/events"
	"marketchain/native/common"
	"marketchain/native/nft"
)

type mockState struct {
	sales    map[[20]byte]*Sale
	order    [][20]byte
	operator [20]byte
}

func (m *mockState) DropGet(registry [20]byte) (*Sale, bool, error) {
	s, ok := m.sales[registry]
	if !ok {
		return nil, false, nil
	}
	return s.Clone(), true, nil
}

func (m *mockState) DropPut(s *Sale) error {
	if _, ok := m.sales[s.Registry]; !ok {
		m.order = append(m.order, s.Registry)
	}
	m.sales[s.Registry] = s.Clone()
	return nil
}

func (m *mockState) Drops(fn func(*Sale) error) error {
	for _, registry := range m.order {
		if err := fn(m.sales[registry].Clone()); err != nil {
			return err
		}
	}
	return nil
}

func (m *mockState) Operator() ([20]byte, error) { return m.operator, nil }

type mockRegistry struct {
	collection *nft.Collection
	owners     map[uint64][20]byte
}

func (r *mockRegistry) Collection(addr [20]byte) (*nft.Collection, error) {
	if r.collection == nil || r.collection.Address != addr {
		return nil, nft.ErrCollectionNotFound
	}
	return r.collection.Clone(), nil
}

func (r *mockRegistry) Mint(minter, registry, to [20]byte) (nft.AssetRef, error) {
	c, err := r.Collection(registry)
	if err != nil {
		return nft.AssetRef{}, err
	}
	if !c.IsMinter(minter) {
		return nft.AssetRef{}, nft.ErrNotMinter
	}
	id := uint64(len(r.owners) + 1)
	r.owners[id] = to
	return nft.AssetRef{Registry: registry, TokenID: id}, nil
}

type mockBank struct {
	balances map[[20]byte]int64
}

func (b *mockBank) Transfer(from, to [20]byte, amount *big.Int) error {
	if amount.Sign() == 0 {
		return nil
	}
	if b.balances[from] < amount.Int64() {
		return errors.New("insufficient balance")
	}
	b.balances[from] -= amount.Int64()
	b.balances[to] += amount.Int64()
	return nil
}

var (
	owner    = [20]byte{0x01}
	artist   = [20]byte{0x02}
	buyer    = [20]byte{0x03}
	operator = [20]byte{0x0F}
	registry = [20]byte{0xCC}
)

type fixture struct {
	engine   *Engine
	state    *mockState
	registry *mockRegistry
	bank     *mockBank
	events   *events.Buffer
	now      int64
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		state:    &mockState{sales: make(map[[20]byte]*Sale), operator: operator},
		registry: &mockRegistry{owners: make(map[uint64][20]byte)},
		bank:     &mockBank{balances: map[[20]byte]int64{buyer: 1_000}},
		events:   &events.Buffer{},
		now:      1_000,
	}
	f.engine = NewEngine()
	f.engine.SetState(f.state)
	f.engine.SetRegistry(f.registry)
	f.engine.SetBank(f.bank)
	f.engine.SetEmitter(f.events)
	f.engine.SetNowFunc(func() int64 { return f.now })
	f.registry.collection = &nft.Collection{
		Address: registry,
		Owner:   owner,
		Minters: [][20]byte{owner, f.engine.Vault()},
	}
	return f
}

func (f *fixture) create(t *testing.T, maxMint, maxDate uint64) *Sale {
	t.Helper()
	s, err := f.engine.CreateSale(common.Call{Caller: owner}, CreateParams{
		Registry:     registry,
		Price:        big.NewInt(100),
		MaxDate:      maxDate,
		MaxMint:      maxMint,
		ArtistWallet: artist,
		ArtistSplit:  30,
	})
	require.NoError(t, err)
	return s
}

func (f *fixture) buy(value int64) (*Purchase, error) {
	return f.engine.Purchase(common.Call{Caller: buyer, Value: big.NewInt(value)}, registry)
}

func TestCreateSaleValidation(t *testing.T) {
	f := newFixture(t)
	valid := CreateParams{Registry: registry, Price: big.NewInt(100), MaxMint: 2, ArtistWallet: artist, ArtistSplit: 30}

	_, err := f.engine.CreateSale(common.Call{Caller: buyer}, valid)
	require.ErrorIs(t, err, common.ErrNotOwnerOrNotApproved)

	bad := valid
	bad.Registry = [20]byte{0xDD}
	_, err = f.engine.CreateSale(common.Call{Caller: owner}, bad)
	require.ErrorIs(t, err, common.ErrRecordNotFound)

	bad = valid
	bad.Price = big.NewInt(0)
	_, err = f.engine.CreateSale(common.Call{Caller: owner}, bad)
	require.ErrorIs(t, err, common.ErrInvalidState)

	bad = valid
	bad.MaxMint = MaxUnits + 1
	_, err = f.engine.CreateSale(common.Call{Caller: owner}, bad)
	require.ErrorIs(t, err, common.ErrInvalidState)

	bad = valid
	bad.ArtistSplit = 101
	_, err = f.engine.CreateSale(common.Call{Caller: owner}, bad)
	require.ErrorIs(t, err, common.ErrInvalidFeeConfiguration)

	bad = valid
	bad.MaxDate = 1_000
	_, err = f.engine.CreateSale(common.Call{Caller: owner}, bad)
	require.ErrorIs(t, err, common.ErrInvalidState)

	_, err = f.engine.CreateSale(common.Call{Caller: owner, Value: big.NewInt(1)}, valid)
	require.ErrorIs(t, err, common.ErrPaymentMismatch)

	s, err := f.engine.CreateSale(common.Call{Caller: operator}, valid)
	require.NoError(t, err)
	require.Equal(t, operator, s.SaleOwner)
	require.Equal(t, EventTypeSaleCreated, f.events.Events()[0].EventType())

	_, err = f.engine.CreateSale(common.Call{Caller: owner}, valid)
	require.ErrorIs(t, err, ErrSaleOpen)
}

func TestPurchaseMintsAndSplitsPrice(t *testing.T) {
	f := newFixture(t)
	f.create(t, 2, 0)

	_, err := f.buy(99)
	require.ErrorIs(t, err, common.ErrPaymentMismatch)
	_, err = f.buy(101)
	require.ErrorIs(t, err, common.ErrPaymentMismatch)

	p, err := f.buy(100)
	require.NoError(t, err)
	require.Equal(t, uint64(1), p.TokenID)
	require.Equal(t, buyer, f.registry.owners[1])
	require.Equal(t, int64(30), p.ArtistShare.Int64())
	require.Equal(t, int64(70), p.OwnerShare.Int64())
	require.Equal(t, int64(30), f.bank.balances[artist])
	require.Equal(t, int64(70), f.bank.balances[owner])
	require.Equal(t, int64(900), f.bank.balances[buyer])
	require.Zero(t, f.bank.balances[f.engine.Vault()])

	s, err := f.engine.Sale(registry)
	require.NoError(t, err)
	require.Equal(t, uint64(1), s.Sold)
	require.Equal(t, uint64(1), s.Remaining())
	require.Equal(t, uint64(1), s.LastTokenID)
}

func TestPurchaseStopsAtMaxMint(t *testing.T) {
	f := newFixture(t)
	f.create(t, 1, 0)
	_, err := f.buy(100)
	require.NoError(t, err)

	_, err = f.buy(100)
	require.ErrorIs(t, err, ErrSoldOut)
	require.ErrorIs(t, err, common.ErrInvalidState)
	require.Equal(t, int64(900), f.bank.balances[buyer])

	_, err = f.engine.SetMaxMint(common.Call{Caller: buyer}, registry, 3)
	require.ErrorIs(t, err, common.ErrNotOwnerOrNotApproved)
	_, err = f.engine.SetMaxMint(common.Call{Caller: owner}, registry, 0)
	require.ErrorIs(t, err, common.ErrInvalidState)

	s, err := f.engine.SetMaxMint(common.Call{Caller: owner}, registry, 3)
	require.NoError(t, err)
	require.Equal(t, uint64(3), s.MaxMint)

	p, err := f.buy(100)
	require.NoError(t, err)
	require.Equal(t, uint64(2), p.TokenID)
}

func TestPurchaseClosesAtMaxDate(t *testing.T) {
	f := newFixture(t)
	f.create(t, 5, 0)

	_, err := f.engine.SetMaxDate(common.Call{Caller: operator}, registry, 2_000)
	require.NoError(t, err)
	_, err = f.buy(100)
	require.NoError(t, err)

	f.now = 2_000
	_, err = f.buy(100)
	require.ErrorIs(t, err, common.ErrAuctionExpired)

	// an expired sale can be replaced
	_, err = f.engine.CreateSale(common.Call{Caller: owner}, CreateParams{
		Registry: registry,
		Price:    big.NewInt(50),
		MaxMint:  1,
	})
	require.NoError(t, err)
	p, err := f.buy(50)
	require.NoError(t, err)
	require.Equal(t, int64(50), p.OwnerShare.Int64())
}

func TestPurchaseRequiresMinterRole(t *testing.T) {
	f := newFixture(t)
	f.create(t, 1, 0)
	f.registry.collection.Minters = [][20]byte{owner}

	_, err := f.buy(100)
	require.ErrorIs(t, err, nft.ErrNotMinter)
}

func TestPurchaseWithoutSale(t *testing.T) {
	f := newFixture(t)
	_, err := f.buy(100)
	require.ErrorIs(t, err, ErrNoSale)
	require.ErrorIs(t, err, common.ErrRecordNotFound)
}

func TestPausedDropRejectsPurchases(t *testing.T) {
	f := newFixture(t)
	f.create(t, 1, 0)
	f.engine.SetPauses(pauses{common.ModuleDrop: true})

	_, err := f.buy(100)
	require.ErrorIs(t, err, common.ErrModulePaused)

	sales, err := f.engine.FetchSales()
	require.NoError(t, err)
	require.Len(t, sales, 1)
}

type pauses map[string]bool

func (p pauses) IsPaused(module string) bool { return p[module] }

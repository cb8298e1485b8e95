package offer

import (
	"errors"
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"

	"marketchain/native/common"
	"marketchain/native/fees"
	"marketchain/native/nft"
)

type mockState struct {
	nextID uint64
	offers map[uint64]*Offer
	order  []uint64
	fees   fees.Config
}

func (m *mockState) OfferNextID() (uint64, error) {
	m.nextID++
	return m.nextID, nil
}

func (m *mockState) OfferPut(o *Offer) error {
	if _, ok := m.offers[o.OfferID]; !ok {
		m.order = append(m.order, o.OfferID)
	}
	m.offers[o.OfferID] = o.Clone()
	return nil
}

func (m *mockState) OfferGet(id uint64) (*Offer, bool, error) {
	o, ok := m.offers[id]
	if !ok {
		return nil, false, nil
	}
	return o.Clone(), true, nil
}

func (m *mockState) Offers(fn func(*Offer) error) error {
	for _, id := range m.order {
		if err := fn(m.offers[id].Clone()); err != nil {
			return err
		}
	}
	return nil
}

func (m *mockState) FeeConfig() (fees.Config, error) { return m.fees, nil }

type mockRegistry struct {
	owners    map[nft.AssetRef][20]byte
	approvals map[nft.AssetRef][20]byte
}

func (r *mockRegistry) OwnerOf(asset nft.AssetRef) ([20]byte, error) {
	owner, ok := r.owners[asset]
	if !ok {
		return [20]byte{}, nft.ErrTokenNotFound
	}
	return owner, nil
}

func (r *mockRegistry) IsApproved(asset nft.AssetRef, spender [20]byte) (bool, error) {
	return r.approvals[asset] == spender, nil
}

func (r *mockRegistry) TransferFrom(operator, from, to [20]byte, asset nft.AssetRef) error {
	if r.owners[asset] != from || r.approvals[asset] != operator {
		return common.ErrNotOwnerOrNotApproved
	}
	r.owners[asset] = to
	delete(r.approvals, asset)
	return nil
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
	owner     = [20]byte{0x01}
	alice     = [20]byte{0x02}
	bob       = [20]byte{0x03}
	creator   = [20]byte{0x04}
	feeWallet = [20]byte{0xFE}
	token     = nft.AssetRef{Registry: [20]byte{0xCC}, TokenID: 3}
)

type fixture struct {
	engine   *Engine
	state    *mockState
	registry *mockRegistry
	bank     *mockBank
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		state: &mockState{
			offers: make(map[uint64]*Offer),
			fees:   fees.Config{PlatformRate: 20, Recipient: feeWallet},
		},
		registry: &mockRegistry{
			owners:    map[nft.AssetRef][20]byte{token: owner},
			approvals: make(map[nft.AssetRef][20]byte),
		},
		bank: &mockBank{balances: map[[20]byte]int64{alice: 1_000, bob: 1_000}},
	}
	f.engine = NewEngine()
	f.engine.SetState(f.state)
	f.engine.SetRegistry(f.registry)
	f.engine.SetBank(f.bank)
	f.engine.SetNowFunc(func() int64 { return 500 })
	return f
}

func (f *fixture) offer(t *testing.T, from [20]byte, value int64) *Offer {
	t.Helper()
	o, err := f.engine.CreateOffer(common.Call{Caller: from, Value: big.NewInt(value)}, token)
	require.NoError(t, err)
	return o
}

func TestCreateOfferEscrowsValue(t *testing.T) {
	f := newFixture(t)

	_, err := f.engine.CreateOffer(common.Call{Caller: alice}, token)
	require.ErrorIs(t, err, common.ErrZeroValueOffer)

	_, err = f.engine.CreateOffer(common.Call{Caller: owner, Value: big.NewInt(10)}, token)
	require.ErrorIs(t, err, ErrSelfOffer)

	_, err = f.engine.CreateOffer(common.Call{Caller: alice, Value: big.NewInt(10)}, nft.AssetRef{TokenID: 9})
	require.ErrorIs(t, err, common.ErrRecordNotFound)

	o := f.offer(t, alice, 300)
	require.Equal(t, uint64(1), o.OfferID)
	require.Equal(t, StatusOpen, o.Status)
	require.Equal(t, int64(700), f.bank.balances[alice])
	require.Equal(t, int64(300), f.bank.balances[f.engine.Vault()])
}

func TestChangeOfferReplacesEscrow(t *testing.T) {
	f := newFixture(t)
	o := f.offer(t, alice, 300)

	_, err := f.engine.ChangeOffer(common.Call{Caller: bob, Value: big.NewInt(100)}, o.OfferID)
	require.ErrorIs(t, err, common.ErrNotOwnerOrNotApproved)

	_, err = f.engine.ChangeOffer(common.Call{Caller: alice}, o.OfferID)
	require.ErrorIs(t, err, common.ErrZeroValueOffer)

	changed, err := f.engine.ChangeOffer(common.Call{Caller: alice, Value: big.NewInt(900)}, o.OfferID)
	require.NoError(t, err)
	require.Equal(t, int64(900), changed.Price.Int64())
	require.Equal(t, int64(100), f.bank.balances[alice])
	require.Equal(t, int64(900), f.bank.balances[f.engine.Vault()])
}

func TestCancelAndDenyRefund(t *testing.T) {
	f := newFixture(t)
	first := f.offer(t, alice, 300)
	second := f.offer(t, bob, 200)

	_, err := f.engine.CancelOffer(common.Call{Caller: owner}, first.OfferID)
	require.ErrorIs(t, err, common.ErrNotOwnerOrNotApproved)

	cancelled, err := f.engine.CancelOffer(common.Call{Caller: alice}, first.OfferID)
	require.NoError(t, err)
	require.Equal(t, StatusCancelled, cancelled.Status)
	require.Equal(t, int64(1_000), f.bank.balances[alice])

	_, err = f.engine.CancelOffer(common.Call{Caller: alice}, first.OfferID)
	require.ErrorIs(t, err, ErrOfferNotOpen)

	_, err = f.engine.DenyOffer(common.Call{Caller: alice}, second.OfferID)
	require.ErrorIs(t, err, common.ErrNotOwnerOrNotApproved)

	denied, err := f.engine.DenyOffer(common.Call{Caller: owner}, second.OfferID)
	require.NoError(t, err)
	require.Equal(t, StatusDenied, denied.Status)
	require.Equal(t, int64(1_000), f.bank.balances[bob])
	require.Zero(t, f.bank.balances[f.engine.Vault()])

	open, err := f.engine.FetchOffers()
	require.NoError(t, err)
	require.Empty(t, open)

	resolved, err := f.engine.ByID(first.OfferID)
	require.NoError(t, err)
	require.Equal(t, StatusCancelled, resolved.Status)
}

func TestAcceptOfferSettles(t *testing.T) {
	f := newFixture(t)
	winning := f.offer(t, alice, 500)
	losing := f.offer(t, bob, 100)

	_, err := f.engine.AcceptOffer(common.Call{Caller: owner}, winning.OfferID, fees.Royalty{})
	require.ErrorIs(t, err, common.ErrNotOwnerOrNotApproved)

	f.registry.approvals[token] = f.engine.Vault()
	_, err = f.engine.AcceptOffer(common.Call{Caller: bob}, winning.OfferID, fees.Royalty{})
	require.ErrorIs(t, err, common.ErrNotOwnerOrNotApproved)

	accepted, err := f.engine.AcceptOffer(common.Call{Caller: owner}, winning.OfferID, fees.Royalty{Recipient: creator, Rate: 100})
	require.NoError(t, err)
	require.Equal(t, StatusAccepted, accepted.Status)
	require.Equal(t, alice, f.registry.owners[token])

	require.Equal(t, int64(10), f.bank.balances[feeWallet])
	require.Equal(t, int64(50), f.bank.balances[creator])
	require.Equal(t, int64(440), f.bank.balances[owner])
	require.Equal(t, int64(100), f.bank.balances[f.engine.Vault()])

	f.registry.approvals[token] = f.engine.Vault()
	_, err = f.engine.AcceptOffer(common.Call{Caller: alice}, winning.OfferID, fees.Royalty{})
	require.ErrorIs(t, err, ErrOfferNotOpen)
	require.ErrorIs(t, err, common.ErrInvalidState)
	require.Equal(t, int64(100), f.bank.balances[f.engine.Vault()])
	delete(f.registry.approvals, token)

	_, err = f.engine.DenyOffer(common.Call{Caller: owner}, losing.OfferID)
	require.ErrorIs(t, err, common.ErrNotOwnerOrNotApproved)
	_, err = f.engine.DenyOffer(common.Call{Caller: alice}, losing.OfferID)
	require.NoError(t, err)
}

func TestOfferQueries(t *testing.T) {
	f := newFixture(t)
	f.offer(t, alice, 100)
	f.offer(t, bob, 150)
	latest := f.offer(t, alice, 200)

	mine, err := f.engine.FetchOffersForAddress(alice)
	require.NoError(t, err)
	require.Len(t, mine, 2)

	found, err := f.engine.ByAssetAndOfferer(token, alice)
	require.NoError(t, err)
	require.Equal(t, latest.OfferID, found.OfferID)

	_, err = f.engine.ByAssetAndOfferer(token, creator)
	require.ErrorIs(t, err, ErrOfferNotFound)
	_, err = f.engine.ByID(99)
	require.ErrorIs(t, err, common.ErrRecordNotFound)
}

package drop

import (
	"errors"
	"fmt"
	"math"
	"math/big"
	"time"

	"marketchain/core/events"
	"marketchain/core/types"
	"marketchain/native/bank"
	"marketchain/native/common"
	"marketchain/native/fees"
	"marketchain/native/nft"
)

var (
	errNilState = errors.New("drop engine: state not configured")
	// ErrNoSale is returned when the registry has no sale.
	ErrNoSale = fmt.Errorf("%w: no sale for registry", common.ErrRecordNotFound)
	// ErrSoldOut is returned once every unit of a sale has been minted.
	ErrSoldOut = fmt.Errorf("%w: no units left", common.ErrInvalidState)
	// ErrSaleOpen is returned when replacing a sale that can still sell.
	ErrSaleOpen = fmt.Errorf("%w: sale still open", common.ErrInvalidState)
)

// MaxUnits bounds MaxMint for a single sale.
const MaxUnits = math.MaxInt32

type engineState interface {
	DropGet(registry [20]byte) (*Sale, bool, error)
	DropPut(s *Sale) error
	Drops(fn func(*Sale) error) error
	Operator() ([20]byte, error)
}

type assetRegistry interface {
	Collection(addr [20]byte) (*nft.Collection, error)
	Mint(minter, registry, to [20]byte) (nft.AssetRef, error)
}

type valueTransfer interface {
	Transfer(from, to [20]byte, amount *big.Int) error
}

// Engine runs fixed-price primary sales. Payments pass through the drop vault,
// which mints on the buyer's behalf and must hold the registry minter role.
type Engine struct {
	state    engineState
	registry assetRegistry
	bank     valueTransfer
	emitter  events.Emitter
	pauses   common.PauseView
	vault    [20]byte
	nowFn    func() int64
}

// NewEngine creates a drop engine with a no-op emitter.
func NewEngine() *Engine {
	return &Engine{
		emitter: events.NoopEmitter{},
		vault:   bank.VaultAddress(common.ModuleDrop),
		nowFn:   func() int64 { return time.Now().Unix() },
	}
}

func (e *Engine) SetState(state engineState) { e.state = state }

// SetRegistry configures the registry units are minted from.
func (e *Engine) SetRegistry(registry assetRegistry) { e.registry = registry }

func (e *Engine) SetBank(b valueTransfer) { e.bank = b }

func (e *Engine) SetPauses(p common.PauseView) { e.pauses = p }

// Vault returns the address that must hold the minter role.
func (e *Engine) Vault() [20]byte { return e.vault }

func (e *Engine) SetNowFunc(now func() int64) {
	if now == nil {
		e.nowFn = func() int64 { return time.Now().Unix() }
		return
	}
	e.nowFn = now
}

func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

func (e *Engine) emit(evt *types.Event) {
	if e.emitter == nil || evt == nil {
		return
	}
	e.emitter.Emit(evt)
}

func (e *Engine) now() uint64 {
	if e.nowFn == nil {
		return uint64(time.Now().Unix())
	}
	return uint64(e.nowFn())
}

func (e *Engine) ready() error {
	if e == nil || e.state == nil || e.registry == nil || e.bank == nil {
		return errNilState
	}
	return nil
}

func (e *Engine) isOperator(addr [20]byte) (bool, error) {
	operator, err := e.state.Operator()
	if err != nil {
		return false, err
	}
	return operator != ([20]byte{}) && operator == addr, nil
}

func checkMaxMint(maxMint, sold uint64) error {
	if maxMint == 0 || maxMint > MaxUnits {
		return fmt.Errorf("%w: maxMint must be between 1 and %d", common.ErrInvalidState, MaxUnits)
	}
	if maxMint < sold {
		return fmt.Errorf("%w: maxMint %d below %d units sold", common.ErrInvalidState, maxMint, sold)
	}
	return nil
}

// CreateParams holds the parameters of a new sale.
type CreateParams struct {
	Registry     [20]byte
	Price        *big.Int
	MaxDate      uint64
	MaxMint      uint64
	ArtistWallet [20]byte
	ArtistSplit  uint32
}

// CreateSale opens a sale on p.Registry. The caller must be the operator or
// the registry owner. A sale that is sold out or past its date is replaced.
func (e *Engine) CreateSale(call common.Call, p CreateParams) (*Sale, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	if err := common.Guard(e.pauses, common.ModuleDrop); err != nil {
		return nil, err
	}
	if call.AttachedValue().Sign() != 0 {
		return nil, fmt.Errorf("%w: sale creation does not accept value", common.ErrPaymentMismatch)
	}
	collection, err := e.registry.Collection(p.Registry)
	if err != nil {
		return nil, err
	}
	operator, err := e.isOperator(call.Caller)
	if err != nil {
		return nil, err
	}
	if !operator && collection.Owner != call.Caller {
		return nil, fmt.Errorf("%w: only the operator or registry owner may sell", common.ErrNotOwnerOrNotApproved)
	}
	if p.Price == nil || p.Price.Sign() <= 0 {
		return nil, fmt.Errorf("%w: price must be positive", common.ErrInvalidState)
	}
	if err := checkMaxMint(p.MaxMint, 0); err != nil {
		return nil, err
	}
	if p.ArtistSplit > uint32(fees.ScalePercent) {
		return nil, fmt.Errorf("%w: artist split %d exceeds 100", common.ErrInvalidFeeConfiguration, p.ArtistSplit)
	}
	if err := (fees.Royalty{Recipient: p.ArtistWallet, Rate: p.ArtistSplit}).Validate(); err != nil {
		return nil, err
	}
	now := e.now()
	if p.MaxDate != 0 && p.MaxDate <= now {
		return nil, fmt.Errorf("%w: maxDate already passed", common.ErrInvalidState)
	}
	existing, ok, err := e.state.DropGet(p.Registry)
	if err != nil {
		return nil, err
	}
	if ok && !existing.SoldOut() && !existing.Expired(now) {
		return nil, ErrSaleOpen
	}
	s := &Sale{
		Registry:     p.Registry,
		Price:        new(big.Int).Set(p.Price),
		MaxDate:      p.MaxDate,
		MaxMint:      p.MaxMint,
		SaleOwner:    call.Caller,
		ArtistWallet: p.ArtistWallet,
		ArtistSplit:  p.ArtistSplit,
		CreatedAt:    now,
	}
	if err := e.state.DropPut(s); err != nil {
		return nil, err
	}
	e.emit(NewSaleCreatedEvent(s))
	return s.Clone(), nil
}

func (e *Engine) load(registry [20]byte) (*Sale, error) {
	s, ok, err := e.state.DropGet(registry)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNoSale
	}
	return s, nil
}

// Purchase sells one unit for exactly the sale price. The token is minted to
// the caller and the price is split between the artist and the sale owner.
func (e *Engine) Purchase(call common.Call, registry [20]byte) (*Purchase, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	if err := common.Guard(e.pauses, common.ModuleDrop); err != nil {
		return nil, err
	}
	s, err := e.load(registry)
	if err != nil {
		return nil, err
	}
	if s.Expired(e.now()) {
		return nil, common.ErrAuctionExpired
	}
	if s.SoldOut() {
		return nil, ErrSoldOut
	}
	value := call.AttachedValue()
	if value.Cmp(s.Price) != 0 {
		return nil, fmt.Errorf("%w: price is %s, got %s", common.ErrPaymentMismatch, s.Price, value)
	}
	split, err := fees.Compute(value, 0, s.ArtistSplit, fees.ScalePercent)
	if err != nil {
		return nil, err
	}
	if err := e.bank.Transfer(call.Caller, e.vault, value); err != nil {
		return nil, err
	}
	ref, err := e.registry.Mint(e.vault, registry, call.Caller)
	if err != nil {
		return nil, err
	}
	s.Sold++
	s.LastTokenID = ref.TokenID
	if err := e.state.DropPut(s); err != nil {
		return nil, err
	}
	if err := e.bank.Transfer(e.vault, s.ArtistWallet, split.Royalty); err != nil {
		return nil, err
	}
	if err := e.bank.Transfer(e.vault, s.SaleOwner, split.Remainder); err != nil {
		return nil, err
	}
	p := &Purchase{
		Registry:    registry,
		TokenID:     ref.TokenID,
		Buyer:       call.Caller,
		Price:       value,
		ArtistShare: split.Royalty,
		OwnerShare:  split.Remainder,
	}
	e.emit(NewPurchasedEvent(p))
	return p, nil
}

func (e *Engine) loadForUpdate(call common.Call, registry [20]byte) (*Sale, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	if err := common.Guard(e.pauses, common.ModuleDrop); err != nil {
		return nil, err
	}
	s, err := e.load(registry)
	if err != nil {
		return nil, err
	}
	operator, err := e.isOperator(call.Caller)
	if err != nil {
		return nil, err
	}
	if !operator && s.SaleOwner != call.Caller {
		return nil, fmt.Errorf("%w: only the sale owner or operator may update", common.ErrNotOwnerOrNotApproved)
	}
	return s, nil
}

// SetMaxDate moves the purchase deadline. Zero removes it; a past value
// closes the sale.
func (e *Engine) SetMaxDate(call common.Call, registry [20]byte, maxDate uint64) (*Sale, error) {
	s, err := e.loadForUpdate(call, registry)
	if err != nil {
		return nil, err
	}
	s.MaxDate = maxDate
	if err := e.state.DropPut(s); err != nil {
		return nil, err
	}
	e.emit(NewSaleUpdatedEvent(s))
	return s.Clone(), nil
}

// SetMaxMint changes the number of units for sale. It cannot drop below the
// units already sold.
func (e *Engine) SetMaxMint(call common.Call, registry [20]byte, maxMint uint64) (*Sale, error) {
	s, err := e.loadForUpdate(call, registry)
	if err != nil {
		return nil, err
	}
	if err := checkMaxMint(maxMint, s.Sold); err != nil {
		return nil, err
	}
	s.MaxMint = maxMint
	if err := e.state.DropPut(s); err != nil {
		return nil, err
	}
	e.emit(NewSaleUpdatedEvent(s))
	return s.Clone(), nil
}

// Sale returns the sale for registry.
func (e *Engine) Sale(registry [20]byte) (*Sale, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	s, err := e.load(registry)
	if err != nil {
		return nil, err
	}
	return s.Clone(), nil
}

// FetchSales returns every sale record.
func (e *Engine) FetchSales() ([]*Sale, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	out := make([]*Sale, 0)
	err := e.state.Drops(func(s *Sale) error {
		out = append(out, s.Clone())
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

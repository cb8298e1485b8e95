package offer

import (
	"errors"
	"fmt"
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
	errNilState = errors.New("offer engine: state not configured")
	// ErrOfferNotFound is returned for unknown offer ids.
	ErrOfferNotFound = fmt.Errorf("%w: offer not found", common.ErrRecordNotFound)
	// ErrOfferNotOpen is returned when the offer was already resolved.
	ErrOfferNotOpen = fmt.Errorf("%w: offer not open", common.ErrInvalidState)
	// ErrSelfOffer is returned when the owner bids on its own asset.
	ErrSelfOffer = fmt.Errorf("%w: owner cannot make an offer on its own asset", common.ErrInvalidState)
)

type engineState interface {
	OfferNextID() (uint64, error)
	OfferPut(o *Offer) error
	OfferGet(id uint64) (*Offer, bool, error)
	Offers(fn func(*Offer) error) error
	FeeConfig() (fees.Config, error)
}

type assetRegistry interface {
	OwnerOf(asset nft.AssetRef) ([20]byte, error)
	IsApproved(asset nft.AssetRef, spender [20]byte) (bool, error)
	TransferFrom(operator, from, to [20]byte, asset nft.AssetRef) error
}

type valueTransfer interface {
	Transfer(from, to [20]byte, amount *big.Int) error
}

// Engine runs the offer ledger. Open offers are escrowed in the offer vault.
type Engine struct {
	state    engineState
	registry assetRegistry
	bank     valueTransfer
	emitter  events.Emitter
	pauses   common.PauseView
	vault    [20]byte
	nowFn    func() int64
}

// NewEngine creates an offer engine with a no-op emitter.
func NewEngine() *Engine {
	return &Engine{
		emitter: events.NoopEmitter{},
		vault:   bank.VaultAddress(common.ModuleOffer),
		nowFn:   func() int64 { return time.Now().Unix() },
	}
}

// SetState configures the state backend used by the engine.
func (e *Engine) SetState(state engineState) { e.state = state }

// SetRegistry configures the asset registry.
func (e *Engine) SetRegistry(registry assetRegistry) { e.registry = registry }

// SetBank configures the value transfer collaborator.
func (e *Engine) SetBank(b valueTransfer) { e.bank = b }

func (e *Engine) SetPauses(p common.PauseView) { e.pauses = p }

// Vault returns the escrow address owners approve before accepting.
func (e *Engine) Vault() [20]byte { return e.vault }

// SetNowFunc overrides the time source used by the engine.
func (e *Engine) SetNowFunc(now func() int64) {
	if now == nil {
		e.nowFn = func() int64 { return time.Now().Unix() }
		return
	}
	e.nowFn = now
}

// SetEmitter configures the event emitter. Passing nil resets it to a no-op.
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
	if err := common.Guard(e.pauses, common.ModuleOffer); err != nil {
		return err
	}
	return nil
}

func (e *Engine) load(id uint64) (*Offer, error) {
	o, ok, err := e.state.OfferGet(id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrOfferNotFound
	}
	return o, nil
}

// loadOpen returns an open offer made by caller.
func (e *Engine) loadOpen(id uint64, caller [20]byte) (*Offer, error) {
	o, err := e.load(id)
	if err != nil {
		return nil, err
	}
	if o.Offerer != caller {
		return nil, fmt.Errorf("%w: only the offerer may modify offer %d", common.ErrNotOwnerOrNotApproved, id)
	}
	if o.Status != StatusOpen {
		return nil, ErrOfferNotOpen
	}
	return o, nil
}

// CreateOffer escrows the attached value as an offer for asset.
func (e *Engine) CreateOffer(call common.Call, asset nft.AssetRef) (*Offer, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	value := call.AttachedValue()
	if value.Sign() <= 0 {
		return nil, common.ErrZeroValueOffer
	}
	owner, err := e.registry.OwnerOf(asset)
	if err != nil {
		return nil, err
	}
	if owner == call.Caller {
		return nil, ErrSelfOffer
	}
	if err := e.bank.Transfer(call.Caller, e.vault, value); err != nil {
		return nil, err
	}
	id, err := e.state.OfferNextID()
	if err != nil {
		return nil, err
	}
	now := e.now()
	o := &Offer{
		OfferID:   id,
		Asset:     asset,
		Offerer:   call.Caller,
		Price:     value,
		Status:    StatusOpen,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := e.state.OfferPut(o); err != nil {
		return nil, err
	}
	e.emit(NewOfferCreatedEvent(o))
	return o.Clone(), nil
}

// ChangeOffer replaces the escrowed amount of an open offer with the
// attached value. The previous escrow is refunded before the new amount is
// taken.
func (e *Engine) ChangeOffer(call common.Call, id uint64) (*Offer, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	value := call.AttachedValue()
	if value.Sign() <= 0 {
		return nil, common.ErrZeroValueOffer
	}
	o, err := e.loadOpen(id, call.Caller)
	if err != nil {
		return nil, err
	}
	previous := o.Price
	o.Price = value
	o.UpdatedAt = e.now()
	if err := e.state.OfferPut(o); err != nil {
		return nil, err
	}
	if err := e.bank.Transfer(e.vault, o.Offerer, previous); err != nil {
		return nil, err
	}
	if err := e.bank.Transfer(call.Caller, e.vault, value); err != nil {
		return nil, err
	}
	e.emit(NewOfferChangedEvent(o, previous))
	return o.Clone(), nil
}

// CancelOffer withdraws an open offer and refunds the offerer.
func (e *Engine) CancelOffer(call common.Call, id uint64) (*Offer, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	o, err := e.loadOpen(id, call.Caller)
	if err != nil {
		return nil, err
	}
	return e.close(o, StatusCancelled, NewOfferCancelledEvent)
}

// DenyOffer lets the current asset owner refuse an open offer. The offerer
// is refunded.
func (e *Engine) DenyOffer(call common.Call, id uint64) (*Offer, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	o, err := e.load(id)
	if err != nil {
		return nil, err
	}
	if err := e.requireOwner(o.Asset, call.Caller); err != nil {
		return nil, err
	}
	if o.Status != StatusOpen {
		return nil, ErrOfferNotOpen
	}
	return e.close(o, StatusDenied, NewOfferDeniedEvent)
}

func (e *Engine) close(o *Offer, status Status, event func(*Offer) *types.Event) (*Offer, error) {
	o.Status = status
	o.UpdatedAt = e.now()
	if err := e.state.OfferPut(o); err != nil {
		return nil, err
	}
	if err := e.bank.Transfer(e.vault, o.Offerer, o.Price); err != nil {
		return nil, err
	}
	e.emit(event(o))
	return o.Clone(), nil
}

func (e *Engine) requireOwner(asset nft.AssetRef, caller [20]byte) error {
	owner, err := e.registry.OwnerOf(asset)
	if err != nil {
		return err
	}
	if owner != caller {
		return fmt.Errorf("%w: caller does not own %s", common.ErrNotOwnerOrNotApproved, asset)
	}
	return nil
}

// AcceptOffer sells the asset to the offerer for the escrowed price. The
// caller must own the asset and have approved the offer vault.
func (e *Engine) AcceptOffer(call common.Call, id uint64, royalty fees.Royalty) (*Offer, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	o, err := e.load(id)
	if err != nil {
		return nil, err
	}
	if err := e.requireOwner(o.Asset, call.Caller); err != nil {
		return nil, err
	}
	if o.Status != StatusOpen {
		return nil, ErrOfferNotOpen
	}
	approved, err := e.registry.IsApproved(o.Asset, e.vault)
	if err != nil {
		return nil, err
	}
	if !approved {
		return nil, fmt.Errorf("%w: offer vault not approved for %s", common.ErrNotOwnerOrNotApproved, o.Asset)
	}
	if err := royalty.Validate(); err != nil {
		return nil, err
	}
	cfg, err := e.state.FeeConfig()
	if err != nil {
		return nil, err
	}
	split, err := fees.Compute(o.Price, cfg.PlatformRate, royalty.Rate, fees.ScalePerMille)
	if err != nil {
		return nil, err
	}

	o.Status = StatusAccepted
	o.UpdatedAt = e.now()
	if err := e.state.OfferPut(o); err != nil {
		return nil, err
	}
	if err := e.registry.TransferFrom(e.vault, call.Caller, o.Offerer, o.Asset); err != nil {
		return nil, err
	}
	if err := e.bank.Transfer(e.vault, cfg.Recipient, split.Platform); err != nil {
		return nil, err
	}
	if err := e.bank.Transfer(e.vault, royalty.Recipient, split.Royalty); err != nil {
		return nil, err
	}
	if err := e.bank.Transfer(e.vault, call.Caller, split.Remainder); err != nil {
		return nil, err
	}
	e.emit(NewOfferAcceptedEvent(o, call.Caller, split))
	return o.Clone(), nil
}

// ByID returns the offer with the given id in any status.
func (e *Engine) ByID(id uint64) (*Offer, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	return e.load(id)
}

// ByAssetAndOfferer returns the most recent open offer offerer made for
// asset.
func (e *Engine) ByAssetAndOfferer(asset nft.AssetRef, offerer [20]byte) (*Offer, error) {
	open, err := e.filter(func(o *Offer) bool { return o.Asset == asset && o.Offerer == offerer })
	if err != nil {
		return nil, err
	}
	if len(open) == 0 {
		return nil, ErrOfferNotFound
	}
	return open[len(open)-1], nil
}

// FetchOffers returns every open offer in creation order.
func (e *Engine) FetchOffers() ([]*Offer, error) {
	return e.filter(func(*Offer) bool { return true })
}

// FetchOffersForAddress returns the open offers made by offerer.
func (e *Engine) FetchOffersForAddress(offerer [20]byte) ([]*Offer, error) {
	return e.filter(func(o *Offer) bool { return o.Offerer == offerer })
}

func (e *Engine) filter(keep func(*Offer) bool) ([]*Offer, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	out := make([]*Offer, 0)
	err := e.state.Offers(func(o *Offer) error {
		if o.Status == StatusOpen && keep(o) {
			out = append(out, o.Clone())
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

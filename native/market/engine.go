package market

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
	errNilState = errors.New("market engine: state not configured")
	// ErrInvalidPrice is returned for listings without a positive price.
	ErrInvalidPrice = fmt.Errorf("%w: price must be positive", common.ErrPaymentMismatch)
	// ErrListingNotActive is returned when a listing was already sold or
	// cancelled.
	ErrListingNotActive = fmt.Errorf("%w: listing not active", common.ErrInvalidState)
	// ErrListingNotFound is returned for unknown item ids.
	ErrListingNotFound = fmt.Errorf("%w: listing not found", common.ErrRecordNotFound)
	// ErrAlreadyListed is returned when the seller already has an active
	// listing for the asset.
	ErrAlreadyListed = fmt.Errorf("%w: asset already listed", common.ErrInvalidState)
)

type engineState interface {
	MarketNextItemID() (uint64, error)
	MarketPutListing(l *Listing) error
	MarketListing(itemID uint64) (*Listing, bool, error)
	MarketListings(fn func(*Listing) error) error
	MarketActiveListing(asset nft.AssetRef) (*Listing, bool, error)
	FeeConfig() (fees.Config, error)
	SetFeeConfig(cfg fees.Config) error
	Operator() ([20]byte, error)
}

type assetRegistry interface {
	OwnerOf(asset nft.AssetRef) ([20]byte, error)
	IsApproved(asset nft.AssetRef, spender [20]byte) (bool, error)
	TransferFrom(operator, from, to [20]byte, asset nft.AssetRef) error
}

type valueTransfer interface {
	Transfer(from, to [20]byte, amount *big.Int) error
}

// Engine runs the fixed-price listing ledger. Sale proceeds pass through the
// market vault within a single call, so the vault is empty between calls.
type Engine struct {
	state    engineState
	registry assetRegistry
	bank     valueTransfer
	emitter  events.Emitter
	pauses   common.PauseView
	vault    [20]byte
	nowFn    func() int64
}

// NewEngine creates a market engine with a no-op emitter.
func NewEngine() *Engine {
	return &Engine{
		emitter: events.NoopEmitter{},
		vault:   bank.VaultAddress(common.ModuleMarket),
		nowFn:   func() int64 { return time.Now().Unix() },
	}
}

// SetState configures the state backend used by the engine.
func (e *Engine) SetState(state engineState) { e.state = state }

// SetRegistry configures the asset registry.
func (e *Engine) SetRegistry(registry assetRegistry) { e.registry = registry }

// SetBank configures the value transfer collaborator.
func (e *Engine) SetBank(b valueTransfer) { e.bank = b }

// SetPauses configures the pause view consulted before mutations.
func (e *Engine) SetPauses(p common.PauseView) { e.pauses = p }

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

// Vault returns the custody address the market must be approved for.
func (e *Engine) Vault() [20]byte { return e.vault }

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

// CreateListing offers asset for sale at price. The caller must own the asset
// and have approved the market vault. An asset has at most one active
// listing.
func (e *Engine) CreateListing(call common.Call, asset nft.AssetRef, price *big.Int, category string) (*Listing, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	if err := common.Guard(e.pauses, common.ModuleMarket); err != nil {
		return nil, err
	}
	if call.AttachedValue().Sign() != 0 {
		return nil, fmt.Errorf("%w: listing does not accept value", common.ErrPaymentMismatch)
	}
	if price == nil || price.Sign() <= 0 {
		return nil, ErrInvalidPrice
	}
	if err := e.checkSellable(asset, call.Caller); err != nil {
		return nil, err
	}
	if err := e.retireStale(asset, call.Caller); err != nil {
		return nil, err
	}
	id, err := e.state.MarketNextItemID()
	if err != nil {
		return nil, err
	}
	listing := &Listing{
		ItemID:    id,
		Asset:     asset,
		Seller:    call.Caller,
		Price:     new(big.Int).Set(price),
		Category:  category,
		Status:    ListingActive,
		CreatedAt: e.now(),
	}
	if err := e.state.MarketPutListing(listing); err != nil {
		return nil, err
	}
	e.emit(NewListingCreatedEvent(listing))
	return listing.Clone(), nil
}

// retireStale enforces one active listing per asset. A listing left behind
// by a previous owner is cancelled so the new owner can list.
func (e *Engine) retireStale(asset nft.AssetRef, seller [20]byte) error {
	existing, ok, err := e.state.MarketActiveListing(asset)
	if err != nil || !ok {
		return err
	}
	if existing.Seller == seller {
		return fmt.Errorf("%w: item %d", ErrAlreadyListed, existing.ItemID)
	}
	existing.Status = ListingCancelled
	existing.Buyer = existing.Seller
	existing.SettledAt = e.now()
	if err := e.state.MarketPutListing(existing); err != nil {
		return err
	}
	e.emit(NewListingCancelledEvent(existing))
	return nil
}

func (e *Engine) checkSellable(asset nft.AssetRef, seller [20]byte) error {
	owner, err := e.registry.OwnerOf(asset)
	if err != nil {
		return err
	}
	if owner != seller {
		return fmt.Errorf("%w: seller does not own %s", common.ErrNotOwnerOrNotApproved, asset)
	}
	approved, err := e.registry.IsApproved(asset, e.vault)
	if err != nil {
		return err
	}
	if !approved {
		return fmt.Errorf("%w: market not approved for %s", common.ErrNotOwnerOrNotApproved, asset)
	}
	return nil
}

func (e *Engine) load(itemID uint64) (*Listing, error) {
	l, ok, err := e.state.MarketListing(itemID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrListingNotFound
	}
	return l, nil
}

// Buy settles an active listing. The attached value must equal the price.
// The listing is marked sold before the asset moves and the proceeds are
// disbursed.
func (e *Engine) Buy(call common.Call, itemID uint64, royalty fees.Royalty) (*Listing, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	if err := common.Guard(e.pauses, common.ModuleMarket); err != nil {
		return nil, err
	}
	listing, err := e.load(itemID)
	if err != nil {
		return nil, err
	}
	if listing.Status != ListingActive {
		return nil, ErrListingNotActive
	}
	paid := call.AttachedValue()
	if paid.Cmp(listing.Price) != 0 {
		return nil, fmt.Errorf("%w: attached %s, price %s", common.ErrPaymentMismatch, paid, listing.Price)
	}
	if err := royalty.Validate(); err != nil {
		return nil, err
	}
	cfg, err := e.state.FeeConfig()
	if err != nil {
		return nil, err
	}
	split, err := fees.Compute(listing.Price, cfg.PlatformRate, royalty.Rate, fees.ScalePerMille)
	if err != nil {
		return nil, err
	}
	if err := e.checkSellable(listing.Asset, listing.Seller); err != nil {
		return nil, err
	}
	if err := e.bank.Transfer(call.Caller, e.vault, paid); err != nil {
		return nil, err
	}

	listing.Status = ListingSold
	listing.Buyer = call.Caller
	listing.SettledAt = e.now()
	if err := e.state.MarketPutListing(listing); err != nil {
		return nil, err
	}

	if err := e.registry.TransferFrom(e.vault, listing.Seller, call.Caller, listing.Asset); err != nil {
		return nil, err
	}
	if err := e.bank.Transfer(e.vault, cfg.Recipient, split.Platform); err != nil {
		return nil, err
	}
	if err := e.bank.Transfer(e.vault, royalty.Recipient, split.Royalty); err != nil {
		return nil, err
	}
	if err := e.bank.Transfer(e.vault, listing.Seller, split.Remainder); err != nil {
		return nil, err
	}
	e.emit(NewListingSoldEvent(listing, split))
	return listing.Clone(), nil
}

// Cancel withdraws an active listing. Only the seller may cancel.
func (e *Engine) Cancel(call common.Call, itemID uint64) (*Listing, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	if err := common.Guard(e.pauses, common.ModuleMarket); err != nil {
		return nil, err
	}
	listing, err := e.load(itemID)
	if err != nil {
		return nil, err
	}
	if listing.Seller != call.Caller {
		return nil, fmt.Errorf("%w: only the seller may cancel", common.ErrNotOwnerOrNotApproved)
	}
	if listing.Status != ListingActive {
		return nil, ErrListingNotActive
	}
	listing.Status = ListingCancelled
	listing.Buyer = listing.Seller
	listing.SettledAt = e.now()
	if err := e.state.MarketPutListing(listing); err != nil {
		return nil, err
	}
	e.emit(NewListingCancelledEvent(listing))
	return listing.Clone(), nil
}

// Listing returns the listing with the given item id.
func (e *Engine) Listing(itemID uint64) (*Listing, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	return e.load(itemID)
}

func (e *Engine) filter(keep func(*Listing) bool) ([]*Listing, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	out := make([]*Listing, 0)
	err := e.state.MarketListings(func(l *Listing) error {
		if keep(l) {
			out = append(out, l.Clone())
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// FetchActive returns every active listing in creation order.
func (e *Engine) FetchActive() ([]*Listing, error) {
	return e.filter(func(l *Listing) bool { return l.Status == ListingActive })
}

// FetchActiveBySeller returns the active listings of seller.
func (e *Engine) FetchActiveBySeller(seller [20]byte) ([]*Listing, error) {
	return e.filter(func(l *Listing) bool { return l.Status == ListingActive && l.Seller == seller })
}

// FetchSettledByBuyer returns the sold and cancelled listings whose buyer is
// buyer. Cancelled listings appear under their seller.
func (e *Engine) FetchSettledByBuyer(buyer [20]byte) ([]*Listing, error) {
	return e.filter(func(l *Listing) bool { return l.Status != ListingActive && l.Buyer == buyer })
}

func (e *Engine) requireOperator(caller [20]byte) error {
	operator, err := e.state.Operator()
	if err != nil {
		return err
	}
	if operator == ([20]byte{}) || operator != caller {
		return fmt.Errorf("%w: operator only", common.ErrNotOwnerOrNotApproved)
	}
	return nil
}

// PlatformFee returns the current fee configuration.
func (e *Engine) PlatformFee() (fees.Config, error) {
	if e == nil || e.state == nil {
		return fees.Config{}, errNilState
	}
	return e.state.FeeConfig()
}

// SetPlatformFee updates the per-mille platform rate. Operator only.
func (e *Engine) SetPlatformFee(call common.Call, rate uint32) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	if err := e.requireOperator(call.Caller); err != nil {
		return err
	}
	cfg, err := e.state.FeeConfig()
	if err != nil {
		return err
	}
	cfg.PlatformRate = rate
	return e.storeFeeConfig(cfg)
}

// SetFeeRecipient updates the address that receives platform fees. Operator
// only.
func (e *Engine) SetFeeRecipient(call common.Call, recipient [20]byte) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	if err := e.requireOperator(call.Caller); err != nil {
		return err
	}
	if recipient == ([20]byte{}) {
		return fmt.Errorf("%w: fee recipient required", common.ErrInvalidFeeConfiguration)
	}
	cfg, err := e.state.FeeConfig()
	if err != nil {
		return err
	}
	cfg.Recipient = recipient
	return e.storeFeeConfig(cfg)
}

func (e *Engine) storeFeeConfig(cfg fees.Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := e.state.SetFeeConfig(cfg); err != nil {
		return err
	}
	e.emit(NewFeeUpdatedEvent(cfg))
	return nil
}

package auction

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
	errNilState = errors.New("auction engine: state not configured")
	// ErrNoAuctionForAsset is returned when no auction record exists.
	ErrNoAuctionForAsset = fmt.Errorf("%w: no auction for asset", common.ErrRecordNotFound)
	// ErrAuctionOpen is returned when concluding before the bidding window
	// closed or capacity was reached.
	ErrAuctionOpen = fmt.Errorf("%w: auction still open", common.ErrInvalidState)
	// ErrAuctionClosed is returned when bidding on a concluded auction.
	ErrAuctionClosed = fmt.Errorf("%w: auction concluded", common.ErrInvalidState)
	// ErrInvalidPermutation is returned when the unit assignment is not a
	// bijection over the kept bids.
	ErrInvalidPermutation = fmt.Errorf("%w: invalid winner permutation", common.ErrInvalidState)
)

// MaxUnits bounds the number of units one auction may sell. Every kept bid
// is stored in the auction record.
const MaxUnits = math.MaxInt32

type engineState interface {
	AuctionGet(asset nft.AssetRef) (*Auction, bool, error)
	AuctionPut(a *Auction) error
	Auctions(fn func(*Auction) error) error
	Operator() ([20]byte, error)
}

type assetRegistry interface {
	Collection(addr [20]byte) (*nft.Collection, error)
	IsMinter(registry, addr [20]byte) (bool, error)
	Mint(minter, registry, to [20]byte) (nft.AssetRef, error)
}

type valueTransfer interface {
	Transfer(from, to [20]byte, amount *big.Int) error
}

// Engine runs the multi-unit auction ledger. Kept bids are escrowed in the
// auction vault until they are displaced or the auction concludes.
type Engine struct {
	state    engineState
	registry assetRegistry
	bank     valueTransfer
	emitter  events.Emitter
	pauses   common.PauseView
	vault    [20]byte
	nowFn    func() int64
}

// NewEngine creates an auction engine with a no-op emitter.
func NewEngine() *Engine {
	return &Engine{
		emitter: events.NoopEmitter{},
		vault:   bank.VaultAddress(common.ModuleAuction),
		nowFn:   func() int64 { return time.Now().Unix() },
	}
}

// SetState configures the state backend used by the engine.
func (e *Engine) SetState(state engineState) { e.state = state }

// SetRegistry configures the asset registry units are minted from.
func (e *Engine) SetRegistry(registry assetRegistry) { e.registry = registry }

// SetBank configures the value transfer collaborator.
func (e *Engine) SetBank(b valueTransfer) { e.bank = b }

func (e *Engine) SetPauses(p common.PauseView) { e.pauses = p }

// Vault returns the escrow address that must hold the minter role.
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
	return nil
}

func (e *Engine) isOperator(addr [20]byte) (bool, error) {
	operator, err := e.state.Operator()
	if err != nil {
		return false, err
	}
	return operator != ([20]byte{}) && operator == addr, nil
}

// CreateParams holds the parameters of a new auction.
type CreateParams struct {
	Asset        nft.AssetRef
	MinBid       *big.Int
	MaxDate      uint64
	MaxMint      uint64
	ArtistWallet [20]byte
	ArtistSplit  uint32
}

// CreateAuction opens an auction for p.Asset. The caller must be the
// platform operator or the registry owner, and the auction vault must hold
// the registry's minter role. A concluded auction for the same asset is
// replaced.
func (e *Engine) CreateAuction(call common.Call, p CreateParams) (*Auction, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	if err := common.Guard(e.pauses, common.ModuleAuction); err != nil {
		return nil, err
	}
	if call.AttachedValue().Sign() != 0 {
		return nil, fmt.Errorf("%w: auction creation does not accept value", common.ErrPaymentMismatch)
	}
	collection, err := e.registry.Collection(p.Asset.Registry)
	if err != nil {
		return nil, err
	}
	operator, err := e.isOperator(call.Caller)
	if err != nil {
		return nil, err
	}
	if !operator && collection.Owner != call.Caller {
		return nil, fmt.Errorf("%w: only the operator or registry owner may auction", common.ErrNotOwnerOrNotApproved)
	}
	minter, err := e.registry.IsMinter(p.Asset.Registry, e.vault)
	if err != nil {
		return nil, err
	}
	if !minter {
		return nil, fmt.Errorf("%w: auction vault lacks minter role", common.ErrNotOwnerOrNotApproved)
	}
	if p.MaxMint == 0 || p.MaxMint > MaxUnits {
		return nil, fmt.Errorf("%w: maxMint must be between 1 and %d", common.ErrInvalidState, MaxUnits)
	}
	if p.MinBid == nil || p.MinBid.Sign() <= 0 {
		return nil, fmt.Errorf("%w: minBid must be positive", common.ErrInvalidState)
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
	existing, ok, err := e.state.AuctionGet(p.Asset)
	if err != nil {
		return nil, err
	}
	if ok && !existing.Concluded {
		return nil, fmt.Errorf("%w: auction already open for %s", common.ErrInvalidState, p.Asset)
	}
	a := &Auction{
		Asset:        p.Asset,
		MinBid:       new(big.Int).Set(p.MinBid),
		MaxDate:      p.MaxDate,
		MaxMint:      p.MaxMint,
		AuctionOwner: call.Caller,
		ArtistWallet: p.ArtistWallet,
		ArtistSplit:  p.ArtistSplit,
		NextSeq:      1,
		CreatedAt:    now,
	}
	if err := e.state.AuctionPut(a); err != nil {
		return nil, err
	}
	e.emit(NewAuctionCreatedEvent(a))
	return a.Clone(), nil
}

func (e *Engine) load(asset nft.AssetRef) (*Auction, error) {
	a, ok, err := e.state.AuctionGet(asset)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNoAuctionForAsset
	}
	return a, nil
}

// PlaceBid escrows the attached value as a bid. Below capacity the bid must
// reach MinBid; at capacity it must exceed the lowest kept bid, which is
// evicted and refunded in the same call.
func (e *Engine) PlaceBid(call common.Call, asset nft.AssetRef) (*Auction, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	if err := common.Guard(e.pauses, common.ModuleAuction); err != nil {
		return nil, err
	}
	a, err := e.load(asset)
	if err != nil {
		return nil, err
	}
	if a.Concluded {
		return nil, ErrAuctionClosed
	}
	if a.Expired(e.now()) {
		return nil, common.ErrAuctionExpired
	}
	value := call.AttachedValue()
	book := newBidBook(a.Bids, a.MaxMint)

	var evicted *Bid
	if book.full() {
		lowest := book.min()
		if value.Cmp(lowest.Value) <= 0 {
			return nil, fmt.Errorf("%w: must exceed lowest kept bid %s", common.ErrBidTooLow, lowest.Value)
		}
		out := book.evict()
		evicted = &out
	} else if value.Cmp(a.MinBid) < 0 {
		return nil, fmt.Errorf("%w: minimum bid is %s", common.ErrBidTooLow, a.MinBid)
	}

	if err := e.bank.Transfer(call.Caller, e.vault, value); err != nil {
		return nil, err
	}
	bid := Bid{Bidder: call.Caller, Value: value, Seq: a.NextSeq}
	book.push(bid)
	a.NextSeq++
	a.Bids = book.list()
	if err := e.state.AuctionPut(a); err != nil {
		return nil, err
	}
	e.emit(NewBidPlacedEvent(asset, bid))

	if evicted != nil {
		if err := e.bank.Transfer(e.vault, evicted.Bidder, evicted.Value); err != nil {
			return nil, fmt.Errorf("refund displaced bid: %w", err)
		}
		e.emit(NewBidRefundedEvent(asset, *evicted))
	}
	return e.view(a), nil
}

// ValidatePermutation checks that perm is a bijection over [0, n).
func ValidatePermutation(perm []uint64, n int) error {
	if len(perm) != n {
		return fmt.Errorf("%w: got %d entries for %d bids", ErrInvalidPermutation, len(perm), n)
	}
	seen := make([]bool, n)
	for _, unit := range perm {
		if unit >= uint64(n) || seen[unit] {
			return fmt.Errorf("%w: unit %d out of range or repeated", ErrInvalidPermutation, unit)
		}
		seen[unit] = true
	}
	return nil
}

// ConcludeAuction settles a closed auction. perm[k] names the unit index
// assigned to the k-th bid in descending order. One unit is minted per kept
// bid; the bid total is split between the artist (percent) and the auction
// owner.
func (e *Engine) ConcludeAuction(call common.Call, asset nft.AssetRef, perm []uint64) (*Auction, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	if err := common.Guard(e.pauses, common.ModuleAuction); err != nil {
		return nil, err
	}
	a, err := e.load(asset)
	if err != nil {
		return nil, err
	}
	operator, err := e.isOperator(call.Caller)
	if err != nil {
		return nil, err
	}
	if !operator && a.AuctionOwner != call.Caller {
		return nil, fmt.Errorf("%w: only the auction owner or operator may conclude", common.ErrNotOwnerOrNotApproved)
	}
	if a.Concluded {
		return nil, common.ErrAlreadyConcluded
	}
	now := e.now()
	if !a.Expired(now) && !a.Full() {
		return nil, ErrAuctionOpen
	}
	sorted := a.SortedBids()
	if err := ValidatePermutation(perm, len(sorted)); err != nil {
		return nil, err
	}
	winners := make([][20]byte, len(sorted))
	for k, unit := range perm {
		winners[unit] = sorted[k].Bidder
	}
	gross := a.Escrowed()
	split, err := fees.Compute(gross, 0, a.ArtistSplit, fees.ScalePercent)
	if err != nil {
		return nil, err
	}

	a.Concluded = true
	a.ConcludedAt = now
	a.Minted = make([]uint64, 0, len(winners))
	for _, winner := range winners {
		ref, err := e.registry.Mint(e.vault, asset.Registry, winner)
		if err != nil {
			return nil, err
		}
		a.Minted = append(a.Minted, ref.TokenID)
	}
	if err := e.state.AuctionPut(a); err != nil {
		return nil, err
	}

	if err := e.bank.Transfer(e.vault, a.ArtistWallet, split.Royalty); err != nil {
		return nil, err
	}
	if err := e.bank.Transfer(e.vault, a.AuctionOwner, split.Remainder); err != nil {
		return nil, err
	}
	e.emit(NewAuctionConcludedEvent(a, gross, split))
	return e.view(a), nil
}

func (e *Engine) view(a *Auction) *Auction {
	out := a.Clone()
	out.Bids = a.SortedBids()
	return out
}

// Auction returns the auction for asset with bids in descending order.
func (e *Engine) Auction(asset nft.AssetRef) (*Auction, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	a, err := e.load(asset)
	if err != nil {
		return nil, err
	}
	return e.view(a), nil
}

// FetchAuctions returns every auction record.
func (e *Engine) FetchAuctions() ([]*Auction, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	out := make([]*Auction, 0)
	err := e.state.Auctions(func(a *Auction) error {
		out = append(out, e.view(a))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

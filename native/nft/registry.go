package nft

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/crypto"

	"marketchain/core/events"
	"marketchain/core/types"
	"marketchain/native/common"
)

var (
	errNilState = errors.New("nft registry: state not configured")
	// ErrZeroAddress is returned when an operation targets the zero address.
	ErrZeroAddress = errors.New("nft registry: zero address")
	// ErrNotMinter is returned when the caller lacks the minter role.
	ErrNotMinter = fmt.Errorf("%w: caller is not a minter", common.ErrNotOwnerOrNotApproved)
	// ErrTokenNotFound is returned when a token has not been minted.
	ErrTokenNotFound = fmt.Errorf("%w: token not minted", common.ErrRecordNotFound)
	// ErrCollectionNotFound is returned for unknown registry addresses.
	ErrCollectionNotFound = fmt.Errorf("%w: registry not found", common.ErrRecordNotFound)
)

type registryState interface {
	NFTCollection(addr [20]byte) (*Collection, bool, error)
	NFTPutCollection(c *Collection) error
	NFTToken(asset AssetRef) (*Token, bool, error)
	NFTPutToken(t *Token) error
	NFTOperatorApproval(registry, owner, operator [20]byte) (bool, error)
	NFTSetOperatorApproval(registry, owner, operator [20]byte, approved bool) error
}

// Registry tracks collections, token ownership and approvals. It is the sole
// source of truth for who owns an asset.
type Registry struct {
	state   registryState
	emitter events.Emitter
	pauses  common.PauseView
}

// NewRegistry creates a registry with a no-op emitter.
func NewRegistry() *Registry {
	return &Registry{emitter: events.NoopEmitter{}}
}

// SetState configures the state backend used by the registry.
func (r *Registry) SetState(state registryState) { r.state = state }

// SetPauses configures the pause view consulted before mutations.
func (r *Registry) SetPauses(p common.PauseView) { r.pauses = p }

// SetEmitter configures the event emitter. Passing nil resets it to a no-op.
func (r *Registry) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		r.emitter = events.NoopEmitter{}
		return
	}
	r.emitter = emitter
}

func (r *Registry) emit(evt *types.Event) {
	if r.emitter == nil || evt == nil {
		return
	}
	r.emitter.Emit(evt)
}

func (r *Registry) ready() error {
	if r == nil || r.state == nil {
		return errNilState
	}
	return nil
}

// CollectionAddress derives the address of a collection created by owner.
func CollectionAddress(owner [20]byte, symbol string) [20]byte {
	var addr [20]byte
	payload := append([]byte("nft:"), owner[:]...)
	payload = append(payload, []byte(strings.ToUpper(symbol))...)
	copy(addr[:], crypto.Keccak256(payload)[12:])
	return addr
}

// CreateRegistry opens a new collection owned by the caller, who also
// receives the minter role.
func (r *Registry) CreateRegistry(call common.Call, name, symbol string) (*Collection, error) {
	if err := r.ready(); err != nil {
		return nil, err
	}
	if err := common.Guard(r.pauses, common.ModuleNFT); err != nil {
		return nil, err
	}
	symbol = strings.TrimSpace(symbol)
	if symbol == "" {
		return nil, fmt.Errorf("%w: symbol required", common.ErrInvalidState)
	}
	addr := CollectionAddress(call.Caller, symbol)
	if _, exists, err := r.state.NFTCollection(addr); err != nil {
		return nil, err
	} else if exists {
		return nil, fmt.Errorf("%w: registry %x already exists", common.ErrInvalidState, addr)
	}
	c := &Collection{
		Address:     addr,
		Owner:       call.Caller,
		Name:        strings.TrimSpace(name),
		Symbol:      strings.ToUpper(symbol),
		NextTokenID: 1,
		Minters:     [][20]byte{call.Caller},
	}
	if err := r.state.NFTPutCollection(c); err != nil {
		return nil, err
	}
	r.emit(NewRegistryCreatedEvent(c))
	return c.Clone(), nil
}

// SetMinter grants or revokes the minter role. Only the collection owner may
// manage minters.
func (r *Registry) SetMinter(call common.Call, registry, minter [20]byte, enabled bool) error {
	if err := r.ready(); err != nil {
		return err
	}
	if err := common.Guard(r.pauses, common.ModuleNFT); err != nil {
		return err
	}
	c, err := r.Collection(registry)
	if err != nil {
		return err
	}
	if c.Owner != call.Caller {
		return fmt.Errorf("%w: only the registry owner manages minters", common.ErrNotOwnerOrNotApproved)
	}
	if minter == ([20]byte{}) {
		return ErrZeroAddress
	}
	filtered := c.Minters[:0]
	for _, m := range c.Minters {
		if m != minter {
			filtered = append(filtered, m)
		}
	}
	if enabled {
		filtered = append(filtered, minter)
	}
	c.Minters = filtered
	if err := r.state.NFTPutCollection(c); err != nil {
		return err
	}
	r.emit(NewMinterUpdatedEvent(registry, minter, enabled))
	return nil
}

// Collection loads a collection by address.
func (r *Registry) Collection(addr [20]byte) (*Collection, error) {
	if err := r.ready(); err != nil {
		return nil, err
	}
	c, ok, err := r.state.NFTCollection(addr)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrCollectionNotFound
	}
	return c.Clone(), nil
}

// IsMinter reports whether addr holds the minter role on registry.
func (r *Registry) IsMinter(registry, addr [20]byte) (bool, error) {
	c, err := r.Collection(registry)
	if err != nil {
		return false, err
	}
	return c.IsMinter(addr), nil
}

// Mint creates the next token of the collection for to. The caller is the
// minter; the ledgers mint on behalf of their module vault.
func (r *Registry) Mint(minter [20]byte, registry, to [20]byte) (AssetRef, error) {
	if err := r.ready(); err != nil {
		return AssetRef{}, err
	}
	if err := common.Guard(r.pauses, common.ModuleNFT); err != nil {
		return AssetRef{}, err
	}
	if to == ([20]byte{}) {
		return AssetRef{}, ErrZeroAddress
	}
	c, err := r.Collection(registry)
	if err != nil {
		return AssetRef{}, err
	}
	if !c.IsMinter(minter) {
		return AssetRef{}, ErrNotMinter
	}
	if c.NextTokenID == 0 {
		c.NextTokenID = 1
	}
	token := &Token{Registry: registry, TokenID: c.NextTokenID, Owner: to}
	c.NextTokenID++
	if err := r.state.NFTPutCollection(c); err != nil {
		return AssetRef{}, err
	}
	if err := r.state.NFTPutToken(token); err != nil {
		return AssetRef{}, err
	}
	r.emit(NewMintedEvent(token.Ref(), to))
	return token.Ref(), nil
}

func (r *Registry) token(asset AssetRef) (*Token, error) {
	if err := r.ready(); err != nil {
		return nil, err
	}
	t, ok, err := r.state.NFTToken(asset)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrTokenNotFound
	}
	return t.Clone(), nil
}

// Exists reports whether the asset has been minted.
func (r *Registry) Exists(asset AssetRef) (bool, error) {
	if err := r.ready(); err != nil {
		return false, err
	}
	_, ok, err := r.state.NFTToken(asset)
	return ok, err
}

// OwnerOf returns the current owner of the asset.
func (r *Registry) OwnerOf(asset AssetRef) ([20]byte, error) {
	t, err := r.token(asset)
	if err != nil {
		return [20]byte{}, err
	}
	return t.Owner, nil
}

// IsApproved reports whether spender may move the asset on the owner's
// behalf through a single-token approval or an operator approval. Ownership
// alone does not count.
func (r *Registry) IsApproved(asset AssetRef, spender [20]byte) (bool, error) {
	t, err := r.token(asset)
	if err != nil {
		return false, err
	}
	return r.approved(t, spender)
}

func (r *Registry) approved(t *Token, spender [20]byte) (bool, error) {
	if spender == ([20]byte{}) {
		return false, nil
	}
	if t.Approved == spender {
		return true, nil
	}
	return r.state.NFTOperatorApproval(t.Registry, t.Owner, spender)
}

// Approve sets the single-token approval. The caller must own the asset or
// be an approved operator of the owner. Approving the zero address clears it.
func (r *Registry) Approve(call common.Call, asset AssetRef, spender [20]byte) error {
	if err := common.Guard(r.pauses, common.ModuleNFT); err != nil {
		return err
	}
	t, err := r.token(asset)
	if err != nil {
		return err
	}
	if t.Owner != call.Caller {
		operator, err := r.state.NFTOperatorApproval(t.Registry, t.Owner, call.Caller)
		if err != nil {
			return err
		}
		if !operator {
			return fmt.Errorf("%w: caller cannot approve %s", common.ErrNotOwnerOrNotApproved, asset)
		}
	}
	t.Approved = spender
	if err := r.state.NFTPutToken(t); err != nil {
		return err
	}
	r.emit(NewApprovalEvent(asset, t.Owner, spender))
	return nil
}

// SetApprovalForAll toggles operator rights of operator over every token the
// caller holds in registry.
func (r *Registry) SetApprovalForAll(call common.Call, registry, operator [20]byte, approved bool) error {
	if err := r.ready(); err != nil {
		return err
	}
	if err := common.Guard(r.pauses, common.ModuleNFT); err != nil {
		return err
	}
	if operator == ([20]byte{}) || operator == call.Caller {
		return fmt.Errorf("%w: invalid operator", common.ErrInvalidState)
	}
	if _, err := r.Collection(registry); err != nil {
		return err
	}
	if err := r.state.NFTSetOperatorApproval(registry, call.Caller, operator, approved); err != nil {
		return err
	}
	r.emit(NewApprovalForAllEvent(registry, call.Caller, operator, approved))
	return nil
}

// TransferFrom moves the asset from its current owner to to. The operator must
// be the owner or approved for the asset; from must match the current owner.
func (r *Registry) TransferFrom(operator, from, to [20]byte, asset AssetRef) error {
	if err := common.Guard(r.pauses, common.ModuleNFT); err != nil {
		return err
	}
	if to == ([20]byte{}) {
		return ErrZeroAddress
	}
	t, err := r.token(asset)
	if err != nil {
		return err
	}
	if t.Owner != from {
		return fmt.Errorf("%w: %x does not own %s", common.ErrNotOwnerOrNotApproved, from, asset)
	}
	if operator != t.Owner {
		ok, err := r.approved(t, operator)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w: %x may not transfer %s", common.ErrNotOwnerOrNotApproved, operator, asset)
		}
	}
	t.Owner = to
	t.Approved = [20]byte{}
	if err := r.state.NFTPutToken(t); err != nil {
		return err
	}
	r.emit(NewTransferEvent(asset, from, to))
	return nil
}

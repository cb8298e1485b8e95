package nft

import (
	"encoding/hex"
	"strconv"

	"marketchain/core/types"
)

const (
	EventTypeRegistryCreated = "nft.registry.created"
	EventTypeMinterUpdated   = "nft.minter.updated"
	EventTypeMinted          = "nft.minted"
	EventTypeApproval        = "nft.approval"
	EventTypeApprovalForAll  = "nft.approval_for_all"
	EventTypeTransfer        = "nft.transfer"
)

func addrHex(addr [20]byte) string { return hex.EncodeToString(addr[:]) }

func assetAttributes(asset AssetRef) map[string]string {
	return map[string]string{
		"registry": addrHex(asset.Registry),
		"tokenId":  strconv.FormatUint(asset.TokenID, 10),
	}
}

// NewRegistryCreatedEvent returns the payload for a new collection.
func NewRegistryCreatedEvent(c *Collection) *types.Event {
	return &types.Event{Type: EventTypeRegistryCreated, Attributes: map[string]string{
		"registry": addrHex(c.Address),
		"owner":    addrHex(c.Owner),
		"name":     c.Name,
		"symbol":   c.Symbol,
	}}
}

// NewMinterUpdatedEvent returns the payload for a minter role change.
func NewMinterUpdatedEvent(registry, minter [20]byte, enabled bool) *types.Event {
	return &types.Event{Type: EventTypeMinterUpdated, Attributes: map[string]string{
		"registry": addrHex(registry),
		"minter":   addrHex(minter),
		"enabled":  strconv.FormatBool(enabled),
	}}
}

// NewMintedEvent returns the payload for a newly minted token.
func NewMintedEvent(asset AssetRef, to [20]byte) *types.Event {
	attrs := assetAttributes(asset)
	attrs["to"] = addrHex(to)
	return &types.Event{Type: EventTypeMinted, Attributes: attrs}
}

// NewApprovalEvent returns the payload for a single-token approval.
func NewApprovalEvent(asset AssetRef, owner, spender [20]byte) *types.Event {
	attrs := assetAttributes(asset)
	attrs["owner"] = addrHex(owner)
	attrs["spender"] = addrHex(spender)
	return &types.Event{Type: EventTypeApproval, Attributes: attrs}
}

// NewApprovalForAllEvent returns the payload for an operator approval change.
func NewApprovalForAllEvent(registry, owner, operator [20]byte, approved bool) *types.Event {
	return &types.Event{Type: EventTypeApprovalForAll, Attributes: map[string]string{
		"registry": addrHex(registry),
		"owner":    addrHex(owner),
		"operator": addrHex(operator),
		"approved": strconv.FormatBool(approved),
	}}
}

// NewTransferEvent returns the payload for an ownership change.
func NewTransferEvent(asset AssetRef, from, to [20]byte) *types.Event {
	attrs := assetAttributes(asset)
	attrs["from"] = addrHex(from)
	attrs["to"] = addrHex(to)
	return &types.Event{Type: EventTypeTransfer, Attributes: attrs}
}

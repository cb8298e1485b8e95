package market

import (
	"encoding/hex"
	"math/big"
	"strconv"

	"marketchain/core/types"
	"marketchain/native/fees"
)

const (
	EventTypeListingCreated   = "market.listing.created"
	EventTypeListingSold      = "market.listing.sold"
	EventTypeListingCancelled = "market.listing.cancelled"
	EventTypeFeeUpdated       = "market.fee.updated"
)

func listingAttributes(l *Listing) map[string]string {
	return map[string]string{
		"itemId":   strconv.FormatUint(l.ItemID, 10),
		"registry": hex.EncodeToString(l.Asset.Registry[:]),
		"tokenId":  strconv.FormatUint(l.Asset.TokenID, 10),
		"seller":   hex.EncodeToString(l.Seller[:]),
		"price":    amountString(l.Price),
	}
}

func amountString(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}

// NewListingCreatedEvent returns the payload for a new listing.
func NewListingCreatedEvent(l *Listing) *types.Event {
	attrs := listingAttributes(l)
	attrs["category"] = l.Category
	return &types.Event{Type: EventTypeListingCreated, Attributes: attrs}
}

// NewListingSoldEvent returns the payload for a settled sale including the
// fee breakdown.
func NewListingSoldEvent(l *Listing, split fees.Split) *types.Event {
	attrs := listingAttributes(l)
	attrs["buyer"] = hex.EncodeToString(l.Buyer[:])
	attrs["platformFee"] = amountString(split.Platform)
	attrs["royalty"] = amountString(split.Royalty)
	attrs["sellerProceeds"] = amountString(split.Remainder)
	return &types.Event{Type: EventTypeListingSold, Attributes: attrs}
}

// NewListingCancelledEvent returns the payload for a cancelled listing.
func NewListingCancelledEvent(l *Listing) *types.Event {
	return &types.Event{Type: EventTypeListingCancelled, Attributes: listingAttributes(l)}
}

// NewFeeUpdatedEvent returns the payload for a fee configuration change.
func NewFeeUpdatedEvent(cfg fees.Config) *types.Event {
	return &types.Event{Type: EventTypeFeeUpdated, Attributes: map[string]string{
		"platformRate": strconv.FormatUint(uint64(cfg.PlatformRate), 10),
		"recipient":    hex.EncodeToString(cfg.Recipient[:]),
	}}
}

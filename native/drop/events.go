package drop

import (
	"encoding/hex"
	"strconv"

	"marketchain/core/types"
)

const (
	EventTypeSaleCreated = "drop.sale.created"
	EventTypeSaleUpdated = "drop.sale.updated"
	EventTypePurchased   = "drop.purchased"
)

// NewSaleCreatedEvent returns the payload for a new sale.
func NewSaleCreatedEvent(s *Sale) *types.Event {
	return &types.Event{Type: EventTypeSaleCreated, Attributes: map[string]string{
		"registry":    hex.EncodeToString(s.Registry[:]),
		"owner":       hex.EncodeToString(s.SaleOwner[:]),
		"price":       s.Price.String(),
		"maxDate":     strconv.FormatUint(s.MaxDate, 10),
		"maxMint":     strconv.FormatUint(s.MaxMint, 10),
		"artistSplit": strconv.FormatUint(uint64(s.ArtistSplit), 10),
	}}
}

// NewSaleUpdatedEvent returns the payload for a changed sale window.
func NewSaleUpdatedEvent(s *Sale) *types.Event {
	return &types.Event{Type: EventTypeSaleUpdated, Attributes: map[string]string{
		"registry": hex.EncodeToString(s.Registry[:]),
		"maxDate":  strconv.FormatUint(s.MaxDate, 10),
		"maxMint":  strconv.FormatUint(s.MaxMint, 10),
	}}
}

// NewPurchasedEvent returns the payload for a minted purchase.
func NewPurchasedEvent(p *Purchase) *types.Event {
	return &types.Event{Type: EventTypePurchased, Attributes: map[string]string{
		"registry":    hex.EncodeToString(p.Registry[:]),
		"tokenId":     strconv.FormatUint(p.TokenID, 10),
		"buyer":       hex.EncodeToString(p.Buyer[:]),
		"price":       p.Price.String(),
		"artistShare": p.ArtistShare.String(),
		"ownerShare":  p.OwnerShare.String(),
	}}
}

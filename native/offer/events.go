package offer

import (
	"encoding/hex"
	"math/big"
	"strconv"

	"marketchain/core/types"
	"marketchain/native/fees"
)

const (
	EventTypeOfferCreated   = "offer.created"
	EventTypeOfferChanged   = "offer.changed"
	EventTypeOfferCancelled = "offer.cancelled"
	EventTypeOfferDenied    = "offer.denied"
	EventTypeOfferAccepted  = "offer.accepted"
)

func newOfferEvent(eventType string, o *Offer) *types.Event {
	return &types.Event{Type: eventType, Attributes: map[string]string{
		"offerId":  strconv.FormatUint(o.OfferID, 10),
		"registry": hex.EncodeToString(o.Asset.Registry[:]),
		"tokenId":  strconv.FormatUint(o.Asset.TokenID, 10),
		"offerer":  hex.EncodeToString(o.Offerer[:]),
		"price":    o.Price.String(),
	}}
}

// NewOfferCreatedEvent returns the payload for a new offer.
func NewOfferCreatedEvent(o *Offer) *types.Event { return newOfferEvent(EventTypeOfferCreated, o) }

// NewOfferChangedEvent returns the payload for an amended offer.
func NewOfferChangedEvent(o *Offer, previous *big.Int) *types.Event {
	evt := newOfferEvent(EventTypeOfferChanged, o)
	evt.Attributes["previousPrice"] = previous.String()
	return evt
}

// NewOfferCancelledEvent returns the payload for an offer withdrawn by its
// offerer.
func NewOfferCancelledEvent(o *Offer) *types.Event {
	return newOfferEvent(EventTypeOfferCancelled, o)
}

// NewOfferDeniedEvent returns the payload for an offer refused by the owner.
func NewOfferDeniedEvent(o *Offer) *types.Event { return newOfferEvent(EventTypeOfferDenied, o) }

// NewOfferAcceptedEvent returns the payload for a settled offer.
func NewOfferAcceptedEvent(o *Offer, seller [20]byte, split fees.Split) *types.Event {
	evt := newOfferEvent(EventTypeOfferAccepted, o)
	evt.Attributes["seller"] = hex.EncodeToString(seller[:])
	evt.Attributes["platformFee"] = split.Platform.String()
	evt.Attributes["royalty"] = split.Royalty.String()
	evt.Attributes["sellerProceeds"] = split.Remainder.String()
	return evt
}

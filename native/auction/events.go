package auction

import (
	"encoding/hex"
	"math/big"
	"strconv"

	"marketchain/core/types"
	"marketchain/native/fees"
	"marketchain/native/nft"
)

const (
	EventTypeAuctionCreated   = "auction.created"
	EventTypeBidPlaced        = "auction.bid.placed"
	EventTypeBidRefunded      = "auction.bid.refunded"
	EventTypeAuctionConcluded = "auction.concluded"
)

func assetAttributes(asset nft.AssetRef) map[string]string {
	return map[string]string{
		"registry": hex.EncodeToString(asset.Registry[:]),
		"tokenId":  strconv.FormatUint(asset.TokenID, 10),
	}
}

// NewAuctionCreatedEvent returns the payload for a new auction.
func NewAuctionCreatedEvent(a *Auction) *types.Event {
	attrs := assetAttributes(a.Asset)
	attrs["owner"] = hex.EncodeToString(a.AuctionOwner[:])
	attrs["minBid"] = a.MinBid.String()
	attrs["maxDate"] = strconv.FormatUint(a.MaxDate, 10)
	attrs["maxMint"] = strconv.FormatUint(a.MaxMint, 10)
	attrs["artistSplit"] = strconv.FormatUint(uint64(a.ArtistSplit), 10)
	return &types.Event{Type: EventTypeAuctionCreated, Attributes: attrs}
}

// NewBidPlacedEvent returns the payload for an accepted bid.
func NewBidPlacedEvent(asset nft.AssetRef, bid Bid) *types.Event {
	attrs := assetAttributes(asset)
	attrs["bidder"] = hex.EncodeToString(bid.Bidder[:])
	attrs["value"] = bid.Value.String()
	attrs["seq"] = strconv.FormatUint(bid.Seq, 10)
	return &types.Event{Type: EventTypeBidPlaced, Attributes: attrs}
}

// NewBidRefundedEvent returns the payload for a displaced bid.
func NewBidRefundedEvent(asset nft.AssetRef, bid Bid) *types.Event {
	attrs := assetAttributes(asset)
	attrs["bidder"] = hex.EncodeToString(bid.Bidder[:])
	attrs["value"] = bid.Value.String()
	return &types.Event{Type: EventTypeBidRefunded, Attributes: attrs}
}

// NewAuctionConcludedEvent returns the payload for a settled auction.
func NewAuctionConcludedEvent(a *Auction, gross *big.Int, split fees.Split) *types.Event {
	attrs := assetAttributes(a.Asset)
	attrs["units"] = strconv.Itoa(len(a.Minted))
	attrs["gross"] = gross.String()
	attrs["artistShare"] = split.Royalty.String()
	attrs["ownerShare"] = split.Remainder.String()
	return &types.Event{Type: EventTypeAuctionConcluded, Attributes: attrs}
}

package core

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"marketchain/native/fees"
	"marketchain/native/nft"
)

// AssetParams names an asset in transaction payloads.
type AssetParams struct {
	Registry common.Address `json:"registry"`
	TokenID  uint64         `json:"tokenId"`
}

// Ref converts the parameters into a registry reference.
func (a AssetParams) Ref() nft.AssetRef {
	return nft.AssetRef{Registry: a.Registry, TokenID: a.TokenID}
}

// RoyaltyParams carries the optional secondary recipient of a sale.
type RoyaltyParams struct {
	RoyaltyRecipient common.Address `json:"royaltyRecipient"`
	RoyaltyRate      uint32         `json:"royaltyRate"`
}

func (r RoyaltyParams) royalty() fees.Royalty {
	return fees.Royalty{Recipient: r.RoyaltyRecipient, Rate: r.RoyaltyRate}
}

type TransferPayload struct {
	To common.Address `json:"to"`
}

type SetRejectPaymentsPayload struct {
	Reject bool `json:"reject"`
}

type CreateRegistryPayload struct {
	Name   string `json:"name"`
	Symbol string `json:"symbol"`
}

type SetMinterPayload struct {
	Registry common.Address `json:"registry"`
	Minter   common.Address `json:"minter"`
	Enabled  bool           `json:"enabled"`
}

type MintPayload struct {
	Registry common.Address `json:"registry"`
	To       common.Address `json:"to"`
}

type ApprovePayload struct {
	AssetParams
	Spender common.Address `json:"spender"`
}

type SetApprovalForAllPayload struct {
	Registry common.Address `json:"registry"`
	Operator common.Address `json:"operator"`
	Approved bool           `json:"approved"`
}

// TransferAssetPayload moves an asset. From defaults to the caller.
type TransferAssetPayload struct {
	AssetParams
	From *common.Address `json:"from,omitempty"`
	To   common.Address  `json:"to"`
}

type CreateListingPayload struct {
	AssetParams
	Price    *big.Int `json:"price"`
	Category string   `json:"category"`
}

type BuyPayload struct {
	ItemID uint64 `json:"itemId"`
	RoyaltyParams
}

type ItemPayload struct {
	ItemID uint64 `json:"itemId"`
}

type SetPlatformFeePayload struct {
	Rate uint32 `json:"rate"`
}

type SetFeeRecipientPayload struct {
	Recipient common.Address `json:"recipient"`
}

type CreateAuctionPayload struct {
	AssetParams
	MinBid       *big.Int       `json:"minBid"`
	MaxDate      uint64         `json:"maxDate"`
	MaxMint      uint64         `json:"maxMint"`
	ArtistWallet common.Address `json:"artistWallet"`
	ArtistSplit  uint32         `json:"artistSplit"`
}

type ConcludeAuctionPayload struct {
	AssetParams
	Permutation []uint64 `json:"permutation"`
}

type OfferPayload struct {
	OfferID uint64 `json:"offerId"`
}

type AcceptOfferPayload struct {
	OfferID uint64 `json:"offerId"`
	RoyaltyParams
}

type CreateSalePayload struct {
	Registry     common.Address `json:"registry"`
	Price        *big.Int       `json:"price"`
	MaxDate      uint64         `json:"maxDate"`
	MaxMint      uint64         `json:"maxMint"`
	ArtistWallet common.Address `json:"artistWallet"`
	ArtistSplit  uint32         `json:"artistSplit"`
}

type SalePayload struct {
	Registry common.Address `json:"registry"`
}

type SetMaxDatePayload struct {
	Registry common.Address `json:"registry"`
	MaxDate  uint64         `json:"maxDate"`
}

type SetMaxMintPayload struct {
	Registry common.Address `json:"registry"`
	MaxMint  uint64         `json:"maxMint"`
}

type SetPausedPayload struct {
	Module string `json:"module"`
	Paused bool   `json:"paused"`
}

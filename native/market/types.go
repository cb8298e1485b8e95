package market

import (
	"math/big"

	"marketchain/native/nft"
)

// ListingStatus enumerates the lifecycle states of a listing.
type ListingStatus uint8

const (
	ListingActive ListingStatus = iota + 1
	ListingSold
	ListingCancelled
)

func (s ListingStatus) String() string {
	switch s {
	case ListingActive:
		return "active"
	case ListingSold:
		return "sold"
	case ListingCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Listing is a fixed-price sale offer of one asset. Once the status leaves
// Active the record is immutable. A cancelled listing records the seller as
// its buyer.
type Listing struct {
	ItemID    uint64
	Asset     nft.AssetRef
	Seller    [20]byte
	Price     *big.Int
	Category  string
	Status    ListingStatus
	Buyer     [20]byte
	CreatedAt uint64
	SettledAt uint64
}

// Clone returns a deep copy of the listing.
func (l *Listing) Clone() *Listing {
	if l == nil {
		return nil
	}
	clone := *l
	if l.Price != nil {
		clone.Price = new(big.Int).Set(l.Price)
	}
	return &clone
}

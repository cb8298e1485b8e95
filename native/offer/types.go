package offer

import (
	"math/big"

	"marketchain/native/nft"
)

// Status enumerates the lifecycle states of an offer.
type Status uint8

const (
	StatusOpen Status = iota + 1
	StatusAccepted
	StatusDenied
	StatusCancelled
)

func (s Status) String() string {
	switch s {
	case StatusOpen:
		return "open"
	case StatusAccepted:
		return "accepted"
	case StatusDenied:
		return "denied"
	case StatusCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Offer is an escrowed bid for a specific asset. Price is held by the offer
// vault while the offer is open.
type Offer struct {
	OfferID   uint64
	Asset     nft.AssetRef
	Offerer   [20]byte
	Price     *big.Int
	Status    Status
	CreatedAt uint64
	UpdatedAt uint64
}

// Clone returns a deep copy of the offer.
func (o *Offer) Clone() *Offer {
	if o == nil {
		return nil
	}
	clone := *o
	if o.Price != nil {
		clone.Price = new(big.Int).Set(o.Price)
	}
	return &clone
}

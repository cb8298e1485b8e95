package auction

import (
	"math/big"
	"sort"

	"marketchain/native/nft"
)

// Bid is one escrowed bid. Seq orders arrivals within an auction.
type Bid struct {
	Bidder [20]byte
	Value  *big.Int
	Seq    uint64
}

// Auction is a timed ascending auction selling MaxMint units minted from
// Asset.Registry at conclusion. Asset.TokenID identifies the drop, so several
// auctions may run on one registry. ArtistSplit is a percentage.
type Auction struct {
	Asset        nft.AssetRef
	MinBid       *big.Int
	MaxDate      uint64
	MaxMint      uint64
	AuctionOwner [20]byte
	ArtistWallet [20]byte
	ArtistSplit  uint32
	Concluded    bool
	Bids         []Bid
	NextSeq      uint64
	CreatedAt    uint64
	ConcludedAt  uint64
	Minted       []uint64
}

// CountBidMade returns the number of kept bids.
func (a *Auction) CountBidMade() int {
	if a == nil {
		return 0
	}
	return len(a.Bids)
}

// Expired reports whether the bidding window has closed at now.
func (a *Auction) Expired(now uint64) bool {
	return a.MaxDate != 0 && now >= a.MaxDate
}

// Full reports whether every unit has a kept bid.
func (a *Auction) Full() bool {
	return uint64(len(a.Bids)) >= a.MaxMint
}

// Escrowed returns the sum of the kept bids.
func (a *Auction) Escrowed() *big.Int {
	total := big.NewInt(0)
	for _, b := range a.Bids {
		if b.Value != nil {
			total.Add(total, b.Value)
		}
	}
	return total
}

// SortedBids returns the kept bids by value descending, earlier bids first
// among equal values. Unit assignment at conclusion indexes this order.
func (a *Auction) SortedBids() []Bid {
	out := cloneBids(a.Bids)
	sort.SliceStable(out, func(i, j int) bool {
		if c := out[i].Value.Cmp(out[j].Value); c != 0 {
			return c > 0
		}
		return out[i].Seq < out[j].Seq
	})
	return out
}

// Clone returns a deep copy of the auction.
func (a *Auction) Clone() *Auction {
	if a == nil {
		return nil
	}
	clone := *a
	if a.MinBid != nil {
		clone.MinBid = new(big.Int).Set(a.MinBid)
	}
	clone.Bids = cloneBids(a.Bids)
	clone.Minted = append([]uint64(nil), a.Minted...)
	return &clone
}

func cloneBids(bids []Bid) []Bid {
	out := make([]Bid, len(bids))
	for i, b := range bids {
		out[i] = Bid{Bidder: b.Bidder, Seq: b.Seq, Value: big.NewInt(0)}
		if b.Value != nil {
			out[i].Value.Set(b.Value)
		}
	}
	return out
}

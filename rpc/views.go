package rpc

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"marketchain/core/types"
	"marketchain/native/auction"
	"marketchain/native/drop"
	"marketchain/native/fees"
	"marketchain/native/market"
	"marketchain/native/nft"
	"marketchain/native/offer"
)

type assetJSON struct {
	Registry string `json:"registry"`
	TokenID  uint64 `json:"tokenId"`
}

type accountJSON struct {
	Address         string `json:"address"`
	Balance         string `json:"balance"`
	Nonce           uint64 `json:"nonce"`
	RejectsPayments bool   `json:"rejectsPayments"`
}

type collectionJSON struct {
	Address     string   `json:"address"`
	Owner       string   `json:"owner"`
	Name        string   `json:"name"`
	Symbol      string   `json:"symbol"`
	NextTokenID uint64   `json:"nextTokenId"`
	Minters     []string `json:"minters"`
}

type listingJSON struct {
	ItemID    uint64    `json:"itemId"`
	Asset     assetJSON `json:"asset"`
	Seller    string    `json:"seller"`
	Price     string    `json:"price"`
	Category  string    `json:"category"`
	Status    string    `json:"status"`
	Buyer     string    `json:"buyer,omitempty"`
	CreatedAt uint64    `json:"createdAt"`
	SettledAt uint64    `json:"settledAt,omitempty"`
}

type bidJSON struct {
	Bidder string `json:"bidder"`
	Value  string `json:"value"`
	Seq    uint64 `json:"seq"`
}

type auctionJSON struct {
	Asset        assetJSON `json:"asset"`
	MinBid       string    `json:"minBid"`
	MaxDate      uint64    `json:"maxDate"`
	MaxMint      uint64    `json:"maxMint"`
	AuctionOwner string    `json:"auctionOwner"`
	ArtistWallet string    `json:"artistWallet"`
	ArtistSplit  uint32    `json:"artistSplit"`
	Concluded    bool      `json:"concluded"`
	CountBidMade int       `json:"countBidMade"`
	Escrowed     string    `json:"escrowed"`
	Bids         []bidJSON `json:"bids"`
	CreatedAt    uint64    `json:"createdAt"`
	ConcludedAt  uint64    `json:"concludedAt,omitempty"`
	Minted       []uint64  `json:"minted,omitempty"`
}

type offerJSON struct {
	OfferID   uint64    `json:"offerId"`
	Asset     assetJSON `json:"asset"`
	Offerer   string    `json:"offerer"`
	Price     string    `json:"price"`
	Status    string    `json:"status"`
	CreatedAt uint64    `json:"createdAt"`
	UpdatedAt uint64    `json:"updatedAt"`
}

type saleJSON struct {
	Registry     string `json:"registry"`
	Price        string `json:"price"`
	MaxDate      uint64 `json:"maxDate"`
	MaxMint      uint64 `json:"maxMint"`
	Sold         uint64 `json:"sold"`
	Remaining    uint64 `json:"remaining"`
	SaleOwner    string `json:"saleOwner"`
	ArtistWallet string `json:"artistWallet"`
	ArtistSplit  uint32 `json:"artistSplit"`
	CreatedAt    uint64 `json:"createdAt"`
	LastTokenID  uint64 `json:"lastTokenId,omitempty"`
}

type purchaseJSON struct {
	Asset       assetJSON `json:"asset"`
	Buyer       string    `json:"buyer"`
	Price       string    `json:"price"`
	ArtistShare string    `json:"artistShare"`
	OwnerShare  string    `json:"ownerShare"`
}

type feeJSON struct {
	Rate      uint32 `json:"rate"`
	Scale     uint32 `json:"scale"`
	Recipient string `json:"recipient"`
}

type receiptJSON struct {
	TxHash string        `json:"txHash"`
	Height uint64        `json:"height"`
	Time   int64         `json:"time"`
	Result interface{}   `json:"result,omitempty"`
	Events []types.Event `json:"events"`
}

func hexAddr(addr [20]byte) string {
	return common.Address(addr).Hex()
}

func bigString(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}

func assetView(ref nft.AssetRef) assetJSON {
	return assetJSON{Registry: hexAddr(ref.Registry), TokenID: ref.TokenID}
}

func collectionView(c *nft.Collection) collectionJSON {
	out := collectionJSON{
		Address:     hexAddr(c.Address),
		Owner:       hexAddr(c.Owner),
		Name:        c.Name,
		Symbol:      c.Symbol,
		NextTokenID: c.NextTokenID,
		Minters:     make([]string, 0, len(c.Minters)),
	}
	for _, m := range c.Minters {
		out.Minters = append(out.Minters, hexAddr(m))
	}
	return out
}

func listingView(l *market.Listing) listingJSON {
	out := listingJSON{
		ItemID:    l.ItemID,
		Asset:     assetView(l.Asset),
		Seller:    hexAddr(l.Seller),
		Price:     bigString(l.Price),
		Category:  l.Category,
		Status:    l.Status.String(),
		CreatedAt: l.CreatedAt,
		SettledAt: l.SettledAt,
	}
	if l.Status != market.ListingActive {
		out.Buyer = hexAddr(l.Buyer)
	}
	return out
}

func listingViews(listings []*market.Listing) []listingJSON {
	out := make([]listingJSON, 0, len(listings))
	for _, l := range listings {
		out = append(out, listingView(l))
	}
	return out
}

func auctionView(a *auction.Auction) auctionJSON {
	sorted := a.SortedBids()
	out := auctionJSON{
		Asset:        assetView(a.Asset),
		MinBid:       bigString(a.MinBid),
		MaxDate:      a.MaxDate,
		MaxMint:      a.MaxMint,
		AuctionOwner: hexAddr(a.AuctionOwner),
		ArtistWallet: hexAddr(a.ArtistWallet),
		ArtistSplit:  a.ArtistSplit,
		Concluded:    a.Concluded,
		CountBidMade: a.CountBidMade(),
		Escrowed:     bigString(a.Escrowed()),
		Bids:         make([]bidJSON, 0, len(sorted)),
		CreatedAt:    a.CreatedAt,
		ConcludedAt:  a.ConcludedAt,
		Minted:       a.Minted,
	}
	for _, b := range sorted {
		out.Bids = append(out.Bids, bidJSON{Bidder: hexAddr(b.Bidder), Value: bigString(b.Value), Seq: b.Seq})
	}
	return out
}

func auctionViews(auctions []*auction.Auction) []auctionJSON {
	out := make([]auctionJSON, 0, len(auctions))
	for _, a := range auctions {
		out = append(out, auctionView(a))
	}
	return out
}

func offerView(o *offer.Offer) offerJSON {
	return offerJSON{
		OfferID:   o.OfferID,
		Asset:     assetView(o.Asset),
		Offerer:   hexAddr(o.Offerer),
		Price:     bigString(o.Price),
		Status:    o.Status.String(),
		CreatedAt: o.CreatedAt,
		UpdatedAt: o.UpdatedAt,
	}
}

func offerViews(offers []*offer.Offer) []offerJSON {
	out := make([]offerJSON, 0, len(offers))
	for _, o := range offers {
		out = append(out, offerView(o))
	}
	return out
}

func saleView(s *drop.Sale) saleJSON {
	return saleJSON{
		Registry:     hexAddr(s.Registry),
		Price:        bigString(s.Price),
		MaxDate:      s.MaxDate,
		MaxMint:      s.MaxMint,
		Sold:         s.Sold,
		Remaining:    s.Remaining(),
		SaleOwner:    hexAddr(s.SaleOwner),
		ArtistWallet: hexAddr(s.ArtistWallet),
		ArtistSplit:  s.ArtistSplit,
		CreatedAt:    s.CreatedAt,
		LastTokenID:  s.LastTokenID,
	}
}

func saleViews(sales []*drop.Sale) []saleJSON {
	out := make([]saleJSON, 0, len(sales))
	for _, s := range sales {
		out = append(out, saleView(s))
	}
	return out
}

func purchaseView(p *drop.Purchase) purchaseJSON {
	return purchaseJSON{
		Asset:       assetView(nft.AssetRef{Registry: p.Registry, TokenID: p.TokenID}),
		Buyer:       hexAddr(p.Buyer),
		Price:       bigString(p.Price),
		ArtistShare: bigString(p.ArtistShare),
		OwnerShare:  bigString(p.OwnerShare),
	}
}

func feeView(cfg fees.Config) feeJSON {
	return feeJSON{Rate: cfg.PlatformRate, Scale: uint32(fees.ScalePerMille), Recipient: hexAddr(cfg.Recipient)}
}

// resultView renders an operation result returned through a receipt.
func resultView(result interface{}) interface{} {
	switch v := result.(type) {
	case nil:
		return nil
	case *nft.Collection:
		return collectionView(v)
	case nft.AssetRef:
		return assetView(v)
	case *market.Listing:
		return listingView(v)
	case *auction.Auction:
		return auctionView(v)
	case *offer.Offer:
		return offerView(v)
	case *drop.Sale:
		return saleView(v)
	case *drop.Purchase:
		return purchaseView(v)
	default:
		return v
	}
}

func receiptView(r *types.Receipt) receiptJSON {
	events := r.Events
	if events == nil {
		events = []types.Event{}
	}
	return receiptJSON{
		TxHash: r.TxHash.Hex(),
		Height: r.Height,
		Time:   r.Time,
		Result: resultView(r.Result),
		Events: events,
	}
}

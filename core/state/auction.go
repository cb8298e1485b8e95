package state

import (
	"marketchain/native/auction"
	"marketchain/native/nft"
)

func auctionKey(asset nft.AssetRef) []byte {
	return tableKey(auctionPrefix, asset.Registry[:], uint64Bytes(asset.TokenID))
}

func (m *Manager) AuctionGet(asset nft.AssetRef) (*auction.Auction, bool, error) {
	a := new(auction.Auction)
	ok, err := m.KVGet(auctionKey(asset), a)
	if err != nil || !ok {
		return nil, false, err
	}
	return a, true, nil
}

func (m *Manager) AuctionPut(a *auction.Auction) error {
	return m.KVPut(auctionKey(a.Asset), a)
}

// Auctions visits every auction ordered by registry and drop id.
func (m *Manager) Auctions(fn func(*auction.Auction) error) error {
	return kvScan(m, auctionPrefix, fn)
}

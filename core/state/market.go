package state

import (
	"fmt"

	"marketchain/native/market"
	"marketchain/native/nft"
)

func listingKey(itemID uint64) []byte { return tableKey(listingPrefix, uint64Bytes(itemID)) }

func listingAssetKey(asset nft.AssetRef) []byte {
	return tableKey(listingAssetPrefix, asset.Registry[:], uint64Bytes(asset.TokenID))
}

// MarketNextItemID allocates the next listing id. Ids start at 1.
func (m *Manager) MarketNextItemID() (uint64, error) {
	return m.nextSequence(sequenceListing)
}

// MarketPutListing stores l and keeps the asset index pointing at the
// asset's active listing, if any.
func (m *Manager) MarketPutListing(l *market.Listing) error {
	if l == nil || l.ItemID == 0 {
		return fmt.Errorf("market: listing id required")
	}
	if err := m.KVPut(listingKey(l.ItemID), l); err != nil {
		return err
	}
	indexKey := listingAssetKey(l.Asset)
	if l.Status == market.ListingActive {
		return m.KVPut(indexKey, l.ItemID)
	}
	var indexed uint64
	ok, err := m.KVGet(indexKey, &indexed)
	if err != nil {
		return err
	}
	if ok && indexed == l.ItemID {
		return m.KVDelete(indexKey)
	}
	return nil
}

func (m *Manager) MarketListing(itemID uint64) (*market.Listing, bool, error) {
	l := new(market.Listing)
	ok, err := m.KVGet(listingKey(itemID), l)
	if err != nil || !ok {
		return nil, false, err
	}
	return l, true, nil
}

// MarketActiveListing returns the active listing of asset, if one exists.
func (m *Manager) MarketActiveListing(asset nft.AssetRef) (*market.Listing, bool, error) {
	var itemID uint64
	ok, err := m.KVGet(listingAssetKey(asset), &itemID)
	if err != nil || !ok {
		return nil, false, err
	}
	return m.MarketListing(itemID)
}

// MarketListings visits every listing in item id order.
func (m *Manager) MarketListings(fn func(*market.Listing) error) error {
	return kvScan(m, listingPrefix, fn)
}

package state

import (
	"marketchain/native/nft"
)

func collectionKey(addr [20]byte) []byte { return tableKey(nftCollectionPrefix, addr[:]) }

func tokenKey(asset nft.AssetRef) []byte {
	return tableKey(nftTokenPrefix, asset.Registry[:], uint64Bytes(asset.TokenID))
}

func operatorKey(registry, owner, operator [20]byte) []byte {
	return tableKey(nftOperatorPrefix, registry[:], owner[:], operator[:])
}

func (m *Manager) NFTCollection(addr [20]byte) (*nft.Collection, bool, error) {
	c := new(nft.Collection)
	ok, err := m.KVGet(collectionKey(addr), c)
	if err != nil || !ok {
		return nil, false, err
	}
	return c, true, nil
}

func (m *Manager) NFTPutCollection(c *nft.Collection) error {
	return m.KVPut(collectionKey(c.Address), c)
}

func (m *Manager) NFTToken(asset nft.AssetRef) (*nft.Token, bool, error) {
	t := new(nft.Token)
	ok, err := m.KVGet(tokenKey(asset), t)
	if err != nil || !ok {
		return nil, false, err
	}
	return t, true, nil
}

func (m *Manager) NFTPutToken(t *nft.Token) error {
	return m.KVPut(tokenKey(t.Ref()), t)
}

func (m *Manager) NFTOperatorApproval(registry, owner, operator [20]byte) (bool, error) {
	var approved bool
	if _, err := m.KVGet(operatorKey(registry, owner, operator), &approved); err != nil {
		return false, err
	}
	return approved, nil
}

// NFTSetOperatorApproval records or clears an approve-for-all grant.
func (m *Manager) NFTSetOperatorApproval(registry, owner, operator [20]byte, approved bool) error {
	key := operatorKey(registry, owner, operator)
	if !approved {
		return m.store.Delete(key)
	}
	return m.KVPut(key, true)
}

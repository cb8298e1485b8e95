package nft

import (
	"encoding/hex"
	"fmt"
)

// AssetRef identifies a single token inside a registry.
type AssetRef struct {
	Registry [20]byte
	TokenID  uint64
}

// String renders the reference as registry/tokenID.
func (a AssetRef) String() string {
	return fmt.Sprintf("%s/%d", hex.EncodeToString(a.Registry[:]), a.TokenID)
}

// Collection is a registry of uniquely owned tokens. Addresses holding the
// minter role may mint new token ids; the owner manages the role.
type Collection struct {
	Address     [20]byte
	Owner       [20]byte
	Name        string
	Symbol      string
	NextTokenID uint64
	Minters     [][20]byte
}

// IsMinter reports whether addr holds the minter role.
func (c *Collection) IsMinter(addr [20]byte) bool {
	if c == nil {
		return false
	}
	for _, m := range c.Minters {
		if m == addr {
			return true
		}
	}
	return false
}

// Clone returns a deep copy of the collection.
func (c *Collection) Clone() *Collection {
	if c == nil {
		return nil
	}
	clone := *c
	clone.Minters = append([][20]byte(nil), c.Minters...)
	return &clone
}

// Token is the ownership record of a minted token. Approved is the single
// address allowed to move the token besides its owner and approved operators;
// it is cleared on every transfer.
type Token struct {
	Registry [20]byte
	TokenID  uint64
	Owner    [20]byte
	Approved [20]byte
}

// Ref returns the asset reference of the token.
func (t *Token) Ref() AssetRef {
	return AssetRef{Registry: t.Registry, TokenID: t.TokenID}
}

// Clone returns a copy of the token.
func (t *Token) Clone() *Token {
	if t == nil {
		return nil
	}
	clone := *t
	return &clone
}

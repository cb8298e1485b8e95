package state

import (
	"encoding/binary"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
)

// Every record table lives under a four byte keccak prefix of its name so
// tables never overlap and remain scannable in key order.
var (
	accountPrefix       = tablePrefix("account")
	nftCollectionPrefix = tablePrefix("nft/collection")
	nftTokenPrefix      = tablePrefix("nft/token")
	nftOperatorPrefix   = tablePrefix("nft/operator")
	listingPrefix       = tablePrefix("market/listing")
	listingAssetPrefix  = tablePrefix("market/active-by-asset")
	auctionPrefix       = tablePrefix("auction/record")
	dropPrefix          = tablePrefix("drop/sale")
	offerPrefix         = tablePrefix("offer/record")
	paramsPrefix        = tablePrefix("params")
	sequencePrefix      = tablePrefix("sequence")
)

const (
	paramFeeConfig = "fee-config"
	paramOperator  = "operator"
	paramHeight    = "height"
	paramPaused    = "paused/"

	sequenceListing = "listing"
	sequenceOffer   = "offer"
)

func tablePrefix(name string) []byte {
	return ethcrypto.Keccak256([]byte(name))[:4]
}

func tableKey(prefix []byte, parts ...[]byte) []byte {
	size := len(prefix)
	for _, p := range parts {
		size += len(p)
	}
	key := make([]byte, 0, size)
	key = append(key, prefix...)
	for _, p := range parts {
		key = append(key, p...)
	}
	return key
}

func uint64Bytes(v uint64) []byte {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], v)
	return buf[:]
}

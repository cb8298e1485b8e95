package rpc

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"marketchain/native/nft"
)

func parseAddress(field, value string) ([20]byte, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return [20]byte{}, invalidParams(fmt.Sprintf("%s required", field))
	}
	if !common.IsHexAddress(trimmed) {
		return [20]byte{}, invalidParams(fmt.Sprintf("%s must be a hex address", field))
	}
	return common.HexToAddress(trimmed), nil
}

// parseAmount accepts a non-negative decimal or 0x-prefixed integer. An
// empty string is zero.
func parseAmount(field, value string) (*big.Int, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return big.NewInt(0), nil
	}
	amount, ok := new(big.Int).SetString(trimmed, 0)
	if !ok {
		return nil, invalidParams(fmt.Sprintf("%s must be an integer", field))
	}
	if amount.Sign() < 0 {
		return nil, invalidParams(fmt.Sprintf("%s must not be negative", field))
	}
	return amount, nil
}

type addressParams struct {
	Address string `json:"address"`
}

type assetParams struct {
	Registry string `json:"registry"`
	TokenID  uint64 `json:"tokenId"`
}

func (p assetParams) ref() (nft.AssetRef, error) {
	registry, err := parseAddress("registry", p.Registry)
	if err != nil {
		return nft.AssetRef{}, err
	}
	return nft.AssetRef{Registry: registry, TokenID: p.TokenID}, nil
}

type registryParams struct {
	Registry string `json:"registry"`
}

type itemParams struct {
	ItemID uint64 `json:"itemId"`
}

type offerIDParams struct {
	OfferID uint64 `json:"offerId"`
}

type offerByAssetParams struct {
	assetParams
	Offerer string `json:"offerer"`
}

type eventsParams struct {
	Limit int `json:"limit"`
}

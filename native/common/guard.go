package common

import (
	"errors"
	"math/big"
)

var ErrModulePaused = errors.New("module paused")

// Module names used for pause toggles and vault derivation.
const (
	ModuleBank    = "bank"
	ModuleNFT     = "nft"
	ModuleMarket  = "market"
	ModuleAuction = "auction"
	ModuleOffer   = "offer"
	ModuleDrop    = "drop"
)

type PauseView interface {
	IsPaused(module string) bool
}

func Guard(p PauseView, module string) error {
	if p == nil || module == "" {
		return nil
	}
	if p.IsPaused(module) {
		return ErrModulePaused
	}
	return nil
}

// Call carries the verified caller identity and the value attached to the
// invocation.
type Call struct {
	Caller [20]byte
	Value  *big.Int
}

// AttachedValue returns the attached value, treating nil as zero.
func (c Call) AttachedValue() *big.Int {
	if c.Value == nil {
		return big.NewInt(0)
	}
	return new(big.Int).Set(c.Value)
}

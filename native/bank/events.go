package bank

import (
	"encoding/hex"
	"math/big"

	"marketchain/core/types"
)

const EventTypeTransfer = "bank.transfer"

// NewTransferEvent returns the canonical payload for a value movement.
func NewTransferEvent(from, to [20]byte, amount *big.Int) *types.Event {
	return &types.Event{Type: EventTypeTransfer, Attributes: map[string]string{
		"from":   hex.EncodeToString(from[:]),
		"to":     hex.EncodeToString(to[:]),
		"amount": amount.String(),
	}}
}

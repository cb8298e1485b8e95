package common

import "errors"

// Error kinds shared by every ledger. Ledger-specific errors wrap one of
// these so callers can classify failures with errors.Is.
var (
	ErrNotOwnerOrNotApproved   = errors.New("not owner or not approved")
	ErrRecordNotFound          = errors.New("record not found")
	ErrInvalidState            = errors.New("invalid state")
	ErrPaymentMismatch         = errors.New("payment mismatch")
	ErrZeroValueOffer          = errors.New("zero value offer")
	ErrBidTooLow               = errors.New("bid too low")
	ErrAuctionExpired          = errors.New("auction expired")
	ErrAlreadyConcluded        = errors.New("auction already concluded")
	ErrInvalidFeeConfiguration = errors.New("invalid fee configuration")
	ErrTransferFailed          = errors.New("transfer failed")
)

package types

import "math/big"

// Account holds the native balance and replay nonce of an address.
// RejectsPayments marks recipients whose incoming transfers fail, the way a
// contract without a payable fallback would.
type Account struct {
	Nonce           uint64   `json:"nonce"`
	Balance         *big.Int `json:"balance"`
	RejectsPayments bool     `json:"rejectsPayments"`
}

// Clone returns a deep copy of the account.
func (a *Account) Clone() *Account {
	if a == nil {
		return &Account{Balance: big.NewInt(0)}
	}
	clone := *a
	if a.Balance != nil {
		clone.Balance = new(big.Int).Set(a.Balance)
	} else {
		clone.Balance = big.NewInt(0)
	}
	return &clone
}

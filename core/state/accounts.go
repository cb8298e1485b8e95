package state

import (
	"math/big"

	"marketchain/core/types"
)

func accountKey(addr [20]byte) []byte { return tableKey(accountPrefix, addr[:]) }

// GetAccount returns the account stored for addr or an empty account.
func (m *Manager) GetAccount(addr [20]byte) (*types.Account, error) {
	account := new(types.Account)
	ok, err := m.KVGet(accountKey(addr), account)
	if err != nil {
		return nil, err
	}
	if !ok || account.Balance == nil {
		account.Balance = big.NewInt(0)
	}
	return account, nil
}

// PutAccount persists account under addr.
func (m *Manager) PutAccount(addr [20]byte, account *types.Account) error {
	return m.KVPut(accountKey(addr), account.Clone())
}

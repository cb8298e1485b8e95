package state

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/rlp"

	"marketchain/storage"
)

// Manager reads and writes RLP-encoded ledger records through a storage
// view. Bound to a storage.Tx it serves one state transition; bound to a
// storage.Snapshot it serves reads.
type Manager struct {
	store storage.ReadWriter
}

// NewManager creates a state manager operating on the provided store.
func NewManager(store storage.ReadWriter) *Manager {
	return &Manager{store: store}
}

// KVPut stores the provided value under key using RLP encoding.
func (m *Manager) KVPut(key []byte, value interface{}) error {
	if len(key) == 0 {
		return fmt.Errorf("kv: key must not be empty")
	}
	encoded, err := rlp.EncodeToBytes(value)
	if err != nil {
		return err
	}
	return m.store.Put(key, encoded)
}

// KVGet decodes the value stored under key into out. The boolean reports
// whether the key existed.
func (m *Manager) KVGet(key []byte, out interface{}) (bool, error) {
	if len(key) == 0 {
		return false, fmt.Errorf("kv: key must not be empty")
	}
	data, err := m.store.Get(key)
	if errors.Is(err, storage.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if out == nil {
		return true, nil
	}
	if err := rlp.DecodeBytes(data, out); err != nil {
		return false, fmt.Errorf("kv: decode %x: %w", key, err)
	}
	return true, nil
}

// KVDelete removes key. Deleting a missing key is not an error.
func (m *Manager) KVDelete(key []byte) error {
	if len(key) == 0 {
		return fmt.Errorf("kv: key must not be empty")
	}
	return m.store.Delete(key)
}

// kvScan decodes every record under prefix in key order.
func kvScan[T any](m *Manager, prefix []byte, visit func(*T) error) error {
	return m.store.Iterate(prefix, func(key, value []byte) error {
		out := new(T)
		if err := rlp.DecodeBytes(value, out); err != nil {
			return fmt.Errorf("kv: decode %x: %w", key, err)
		}
		return visit(out)
	})
}

func (m *Manager) nextSequence(name string) (uint64, error) {
	key := tableKey(sequencePrefix, []byte(name))
	var current uint64
	if _, err := m.KVGet(key, &current); err != nil {
		return 0, err
	}
	current++
	if err := m.KVPut(key, current); err != nil {
		return 0, err
	}
	return current, nil
}

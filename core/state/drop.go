package state

import "marketchain/native/drop"

func dropKey(registry [20]byte) []byte { return tableKey(dropPrefix, registry[:]) }

func (m *Manager) DropGet(registry [20]byte) (*drop.Sale, bool, error) {
	s := new(drop.Sale)
	ok, err := m.KVGet(dropKey(registry), s)
	if err != nil || !ok {
		return nil, false, err
	}
	return s, true, nil
}

func (m *Manager) DropPut(s *drop.Sale) error {
	return m.KVPut(dropKey(s.Registry), s)
}

// Drops visits every sale ordered by registry address.
func (m *Manager) Drops(fn func(*drop.Sale) error) error {
	return kvScan(m, dropPrefix, fn)
}

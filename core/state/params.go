package state

import (
	"marketchain/native/fees"
)

func paramKey(name string) []byte { return tableKey(paramsPrefix, []byte(name)) }

// FeeConfig returns the platform fee configuration. An unset configuration
// charges no platform fee.
func (m *Manager) FeeConfig() (fees.Config, error) {
	var cfg fees.Config
	if _, err := m.KVGet(paramKey(paramFeeConfig), &cfg); err != nil {
		return fees.Config{}, err
	}
	return cfg, nil
}

func (m *Manager) SetFeeConfig(cfg fees.Config) error {
	return m.KVPut(paramKey(paramFeeConfig), cfg)
}

// Operator returns the platform operator address.
func (m *Manager) Operator() ([20]byte, error) {
	var addr [20]byte
	if _, err := m.KVGet(paramKey(paramOperator), &addr); err != nil {
		return [20]byte{}, err
	}
	return addr, nil
}

func (m *Manager) SetOperator(addr [20]byte) error {
	return m.KVPut(paramKey(paramOperator), addr)
}

// Height returns the number of committed transactions.
func (m *Manager) Height() (uint64, error) {
	var height uint64
	if _, err := m.KVGet(paramKey(paramHeight), &height); err != nil {
		return 0, err
	}
	return height, nil
}

func (m *Manager) SetHeight(height uint64) error {
	return m.KVPut(paramKey(paramHeight), height)
}

// IsPaused reports whether module is paused. Read failures report the
// module as running so reads stay available.
func (m *Manager) IsPaused(module string) bool {
	var paused bool
	if _, err := m.KVGet(paramKey(paramPaused+module), &paused); err != nil {
		return false
	}
	return paused
}

func (m *Manager) SetPaused(module string, paused bool) error {
	return m.KVPut(paramKey(paramPaused+module), paused)
}

package genesis

import (
	"fmt"

	"marketchain/core/state"
	"marketchain/native/bank"
)

// Apply writes the genesis state through manager. The caller commits or
// discards the surrounding storage transaction.
func Apply(spec *GenesisSpec, manager *state.Manager) error {
	if spec == nil {
		return fmt.Errorf("genesis spec must not be nil")
	}
	if manager == nil {
		return fmt.Errorf("state manager must not be nil")
	}
	if err := manager.SetOperator(spec.operator); err != nil {
		return fmt.Errorf("set operator: %w", err)
	}
	if err := manager.SetFeeConfig(spec.fee); err != nil {
		return fmt.Errorf("set fee config: %w", err)
	}
	ledger := bank.NewLedger()
	ledger.SetState(manager)
	for _, alloc := range spec.alloc {
		if err := ledger.Credit(alloc.addr, alloc.amount); err != nil {
			return fmt.Errorf("alloc %x: %w", alloc.addr, err)
		}
	}
	for _, module := range spec.Paused {
		if err := manager.SetPaused(module, true); err != nil {
			return fmt.Errorf("pause %s: %w", module, err)
		}
	}
	return nil
}

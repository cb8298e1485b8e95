package genesis

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math/big"
	"os"
	"sort"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	nativecommon "marketchain/native/common"
	"marketchain/native/fees"
)

// GenesisSpec describes the initial ledger state: the platform operator, the
// fee configuration, starting balances and paused modules.
type GenesisSpec struct {
	Operator    string            `json:"operator"`
	PlatformFee PlatformFeeSpec   `json:"platformFee"`
	Alloc       map[string]string `json:"alloc"` // addr -> amount
	Paused      []string          `json:"paused,omitempty"`

	operator [20]byte
	fee      fees.Config
	alloc    []allocation
}

type PlatformFeeSpec struct {
	Rate      uint32 `json:"rate"`
	Recipient string `json:"recipient"`
}

type allocation struct {
	addr   [20]byte
	amount *big.Int
}

var knownModules = map[string]struct{}{
	nativecommon.ModuleBank:    {},
	nativecommon.ModuleNFT:     {},
	nativecommon.ModuleMarket:  {},
	nativecommon.ModuleAuction: {},
	nativecommon.ModuleOffer:   {},
	nativecommon.ModuleDrop:    {},
}

// IsKnownModule reports whether name is a pausable module.
func IsKnownModule(name string) bool {
	_, ok := knownModules[name]
	return ok
}

func LoadGenesisSpec(path string) (*GenesisSpec, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("genesis spec path must be provided")
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read genesis spec %q: %w", path, err)
	}
	spec, err := ParseGenesisSpec(raw)
	if err != nil {
		return nil, fmt.Errorf("genesis spec %q: %w", path, err)
	}
	return spec, nil
}

// ParseGenesisSpec decodes and validates a JSON genesis document.
func ParseGenesisSpec(raw []byte) (*GenesisSpec, error) {
	var spec GenesisSpec
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&spec); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	if err := spec.validate(); err != nil {
		return nil, fmt.Errorf("invalid: %w", err)
	}
	return &spec, nil
}

func (s *GenesisSpec) OperatorAddress() [20]byte { return s.operator }
func (s *GenesisSpec) FeeConfig() fees.Config { return s.fee }

func (s *GenesisSpec) validate() error {
	operator, err := parseAddress(s.Operator)
	if err != nil {
		return fmt.Errorf("operator: %w", err)
	}
	s.operator = operator

	s.fee = fees.Config{PlatformRate: s.PlatformFee.Rate}
	if strings.TrimSpace(s.PlatformFee.Recipient) != "" {
		recipient, err := parseAddress(s.PlatformFee.Recipient)
		if err != nil {
			return fmt.Errorf("platformFee.recipient: %w", err)
		}
		s.fee.Recipient = recipient
	}
	if err := s.fee.Validate(); err != nil {
		return fmt.Errorf("platformFee: %w", err)
	}

	addrs := make([]string, 0, len(s.Alloc))
	for addr := range s.Alloc {
		addrs = append(addrs, addr)
	}
	sort.Strings(addrs)
	s.alloc = s.alloc[:0]
	for _, raw := range addrs {
		addr, err := parseAddress(raw)
		if err != nil {
			return fmt.Errorf("alloc %q: %w", raw, err)
		}
		amount, err := parseAmountString(s.Alloc[raw])
		if err != nil {
			return fmt.Errorf("alloc %q: %w", raw, err)
		}
		s.alloc = append(s.alloc, allocation{addr: addr, amount: amount})
	}

	for _, module := range s.Paused {
		if !IsKnownModule(module) {
			return fmt.Errorf("paused: unknown module %q", module)
		}
	}
	return nil
}

func parseAddress(value string) ([20]byte, error) {
	trimmed := strings.TrimSpace(value)
	if !common.IsHexAddress(trimmed) {
		return [20]byte{}, fmt.Errorf("invalid address %q", value)
	}
	addr := common.HexToAddress(trimmed)
	if addr == (common.Address{}) {
		return [20]byte{}, fmt.Errorf("zero address not allowed")
	}
	return addr, nil
}

func parseAmountString(value string) (*big.Int, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return big.NewInt(0), nil
	}
	amount, ok := new(big.Int).SetString(trimmed, 10)
	if !ok {
		return nil, fmt.Errorf("invalid amount %q", value)
	}
	if amount.Sign() < 0 {
		return nil, fmt.Errorf("amount must not be negative")
	}
	return amount, nil
}

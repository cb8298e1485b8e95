package fees

import (
	"fmt"
	"math/big"

	"marketchain/native/common"
)

// Scale is the denominator a fee rate is expressed against.
type Scale uint32

const (
	// ScalePerMille is used by the listing and offer ledgers (rate / 1000).
	ScalePerMille Scale = 1_000
	// ScalePercent is used by the auction ledger (rate / 100).
	ScalePercent Scale = 100
)

// Config is the process-wide platform fee configuration. The rate is
// expressed per-mille.
type Config struct {
	PlatformRate uint32
	Recipient    [20]byte
}

// Validate checks the rate against the per-mille scale and that a recipient
// is configured whenever a fee is charged.
func (c Config) Validate() error {
	if c.PlatformRate > uint32(ScalePerMille) {
		return fmt.Errorf("%w: platform rate %d exceeds %d", common.ErrInvalidFeeConfiguration, c.PlatformRate, ScalePerMille)
	}
	if c.PlatformRate > 0 && c.Recipient == ([20]byte{}) {
		return fmt.Errorf("%w: fee recipient not configured", common.ErrInvalidFeeConfiguration)
	}
	return nil
}

// Royalty names an optional secondary recipient and its rate.
type Royalty struct {
	Recipient [20]byte
	Rate      uint32
}

// Validate rejects a positive rate paid to the zero address.
func (r Royalty) Validate() error {
	if r.Rate > 0 && r.Recipient == ([20]byte{}) {
		return fmt.Errorf("%w: royalty recipient required", common.ErrInvalidFeeConfiguration)
	}
	return nil
}

// Split is the three-way division of a gross amount.
type Split struct {
	Gross     *big.Int
	Platform  *big.Int
	Royalty   *big.Int
	Remainder *big.Int
}

// Compute divides gross into platform, royalty and remainder shares using
// floor division against scale. Platform + Royalty + Remainder == Gross.
func Compute(gross *big.Int, platformRate, royaltyRate uint32, scale Scale) (Split, error) {
	if scale == 0 {
		return Split{}, fmt.Errorf("%w: zero scale", common.ErrInvalidFeeConfiguration)
	}
	if gross == nil {
		gross = big.NewInt(0)
	}
	if gross.Sign() < 0 {
		return Split{}, fmt.Errorf("%w: negative gross amount", common.ErrInvalidFeeConfiguration)
	}
	if uint64(platformRate)+uint64(royaltyRate) > uint64(scale) {
		return Split{}, fmt.Errorf("%w: rates %d+%d exceed scale %d", common.ErrInvalidFeeConfiguration, platformRate, royaltyRate, scale)
	}
	denominator := new(big.Int).SetUint64(uint64(scale))
	platform := new(big.Int).Mul(gross, new(big.Int).SetUint64(uint64(platformRate)))
	platform.Quo(platform, denominator)
	royalty := new(big.Int).Mul(gross, new(big.Int).SetUint64(uint64(royaltyRate)))
	royalty.Quo(royalty, denominator)
	owed := new(big.Int).Add(platform, royalty)
	if owed.Cmp(gross) > 0 {
		return Split{}, fmt.Errorf("%w: fees exceed gross amount", common.ErrInvalidFeeConfiguration)
	}
	return Split{
		Gross:     new(big.Int).Set(gross),
		Platform:  platform,
		Royalty:   royalty,
		Remainder: new(big.Int).Sub(gross, owed),
	}, nil
}

package config

import (
	"fmt"
	"strings"

	"marketchain/observability/logging"
)

// MinSecretLength is the shortest HMAC secret accepted when auth is enabled.
const MinSecretLength = 32

// Validate checks the configuration for values the node cannot run with.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.RPCAddress) == "" {
		return fmt.Errorf("RPCAddress must be set")
	}
	if !c.InMemory && strings.TrimSpace(c.DataDir) == "" {
		return fmt.Errorf("DataDir must be set unless InMemory is enabled")
	}
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("log: %w", err)
	}
	if c.Auth.Enabled && len(c.Auth.HMACSecret) < MinSecretLength {
		return fmt.Errorf("auth: HMACSecret must be at least %d bytes", MinSecretLength)
	}
	if c.Auth.ClockSkewSeconds < 0 {
		return fmt.Errorf("auth: ClockSkewSeconds must not be negative")
	}
	if c.RateLimit.RatePerSecond < 0 || c.RateLimit.Burst < 0 {
		return fmt.Errorf("rateLimit: values must not be negative")
	}
	if c.RateLimit.RatePerSecond > 0 && c.RateLimit.Burst == 0 {
		return fmt.Errorf("rateLimit: Burst must be positive when RatePerSecond is set")
	}
	return nil
}

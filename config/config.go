package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// EnvJWTSecret overrides Auth.HMACSecret when set.
const EnvJWTSecret = "MARKET_JWT_SECRET"

type Config struct {
	Environment  string          `toml:"Environment" yaml:"environment"`
	RPCAddress   string          `toml:"RPCAddress" yaml:"rpcAddress"`
	DataDir      string          `toml:"DataDir" yaml:"dataDir"`
	InMemory     bool            `toml:"InMemory" yaml:"inMemory"`
	GenesisFile  string          `toml:"GenesisFile" yaml:"genesisFile"`
	EventHistory int             `toml:"EventHistory" yaml:"eventHistory"`
	Log          LogConfig       `toml:"Log" yaml:"log"`
	Tracing      bool            `toml:"Tracing" yaml:"tracing"`
	HTTP         HTTPConfig      `toml:"HTTP" yaml:"http"`
	Auth         AuthConfig      `toml:"Auth" yaml:"auth"`
	RateLimit    RateLimitConfig `toml:"RateLimit" yaml:"rateLimit"`
}

// LogConfig selects the log level and, when File is set, appends logs to
// that file instead of stdout.
type LogConfig struct {
	Level string `toml:"Level" yaml:"level"`
	File  string `toml:"File" yaml:"file"`
}

type HTTPConfig struct {
	ReadTimeoutSeconds     int `toml:"ReadTimeoutSeconds" yaml:"readTimeoutSeconds"`
	WriteTimeoutSeconds    int `toml:"WriteTimeoutSeconds" yaml:"writeTimeoutSeconds"`
	ShutdownTimeoutSeconds int `toml:"ShutdownTimeoutSeconds" yaml:"shutdownTimeoutSeconds"`
}

// AuthConfig configures HMAC-signed bearer tokens. The token subject is the
// caller address. With auth disabled callers name themselves, which is only
// acceptable on development nodes.
type AuthConfig struct {
	Enabled          bool   `toml:"Enabled" yaml:"enabled"`
	HMACSecret       string `toml:"HMACSecret" yaml:"hmacSecret"`
	Issuer           string `toml:"Issuer" yaml:"issuer"`
	Audience         string `toml:"Audience" yaml:"audience"`
	ClockSkewSeconds int    `toml:"ClockSkewSeconds" yaml:"clockSkewSeconds"`
}

type RateLimitConfig struct {
	RatePerSecond float64 `toml:"RatePerSecond" yaml:"ratePerSecond"`
	Burst         int     `toml:"Burst" yaml:"burst"`
}

// Load loads the configuration from path. A missing TOML file is created
// with defaults; files ending in .yaml or .yml are decoded as YAML.
func Load(path string) (*Config, error) {
	cfg := Default()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		if isYAML(path) {
			return nil, fmt.Errorf("config file %s not found", path)
		}
		return createDefault(path)
	}

	if isYAML(path) {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(raw, cfg); err != nil {
			return nil, fmt.Errorf("decode %s: %w", path, err)
		}
	} else {
		meta, err := toml.DecodeFile(path, cfg)
		if err != nil {
			return nil, err
		}
		if undecoded := meta.Undecoded(); len(undecoded) > 0 {
			return nil, fmt.Errorf("config file %s has unknown key %s", path, undecoded[0])
		}
	}

	cfg.applyEnv()
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config file %s: %w", path, err)
	}
	return cfg, nil
}

// Default returns the development defaults.
func Default() *Config {
	return &Config{
		Environment:  "dev",
		RPCAddress:   ":8545",
		DataDir:      "./market-data",
		EventHistory: 256,
		Log:          LogConfig{Level: "info"},
		HTTP: HTTPConfig{
			ReadTimeoutSeconds:     10,
			WriteTimeoutSeconds:    10,
			ShutdownTimeoutSeconds: 5,
		},
		Auth: AuthConfig{
			Issuer:           "marketchain",
			ClockSkewSeconds: 30,
		},
		RateLimit: RateLimitConfig{RatePerSecond: 20, Burst: 40},
	}
}

func (c *Config) applyEnv() {
	if secret := strings.TrimSpace(os.Getenv(EnvJWTSecret)); secret != "" {
		c.Auth.HMACSecret = secret
	}
}

func (c *Config) applyDefaults() {
	def := Default()
	if strings.TrimSpace(c.Environment) == "" {
		c.Environment = def.Environment
	}
	if strings.TrimSpace(c.Log.Level) == "" {
		c.Log.Level = def.Log.Level
	}
	if c.EventHistory <= 0 {
		c.EventHistory = def.EventHistory
	}
	if c.HTTP.ReadTimeoutSeconds <= 0 {
		c.HTTP.ReadTimeoutSeconds = def.HTTP.ReadTimeoutSeconds
	}
	if c.HTTP.WriteTimeoutSeconds <= 0 {
		c.HTTP.WriteTimeoutSeconds = def.HTTP.WriteTimeoutSeconds
	}
	if c.HTTP.ShutdownTimeoutSeconds <= 0 {
		c.HTTP.ShutdownTimeoutSeconds = def.HTTP.ShutdownTimeoutSeconds
	}
}

// StatePath returns the goleveldb directory.
func (c *Config) StatePath() string {
	return filepath.Join(c.DataDir, "state")
}

func isYAML(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}

func createDefault(path string) (*Config, error) {
	cfg := Default()
	if err := persist(path, cfg); err != nil {
		return nil, err
	}
	cfg.applyEnv()
	return cfg, nil
}

func persist(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_TRUNC|os.O_CREATE, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	return toml.NewEncoder(f).Encode(cfg)
}

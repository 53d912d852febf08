package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"tokenvesting/crypto"
	"tokenvesting/native/vesting"
)

// DefaultGenesisSupply is 100,000,000 tokens at 18 decimals.
const DefaultGenesisSupply = "100000000000000000000000000"

type Config struct {
	RPCAddress        string          `toml:"RPCAddress"`
	DataDir           string          `toml:"DataDir"`
	GenesisFile       string          `toml:"GenesisFile"`
	Environment       string          `toml:"Environment"`
	OwnerKeystorePath string          `toml:"OwnerKeystorePath"`
	Storage           StorageConfig   `toml:"Storage"`
	Vesting           VestingConfig   `toml:"Vesting"`
	Token             TokenConfig     `toml:"Token"`
	Auth              AuthConfig      `toml:"Auth"`
	RateLimit         RateLimitConfig `toml:"RateLimit"`
	Audit             AuditConfig     `toml:"Audit"`
	Telemetry         TelemetryConfig `toml:"Telemetry"`
	Log               LogConfig       `toml:"Log"`
}

type StorageConfig struct {
	// Backend is one of leveldb, bolt or memory.
	Backend string `toml:"Backend"`
}

type VestingConfig struct {
	Owner                   string `toml:"Owner"`
	Vault                   string `toml:"Vault"`
	AdvisersPartnershipsBps uint16 `toml:"AdvisersPartnershipsBps"`
	MarketingBps            uint16 `toml:"MarketingBps"`
	ReserveFundsBps         uint16 `toml:"ReserveFundsBps"`
}

type TokenConfig struct {
	Address  string `toml:"Address"`
	Symbol   string `toml:"Symbol"`
	Name     string `toml:"Name"`
	Decimals uint8  `toml:"Decimals"`
}

type AuthConfig struct {
	HMACSecret string `toml:"HMACSecret"`
	Issuer     string `toml:"Issuer"`
	Audience   string `toml:"Audience"`
	// ClockSkewSeconds is the leeway applied to exp/nbf checks.
	ClockSkewSeconds int `toml:"ClockSkewSeconds"`
}

type RateLimitConfig struct {
	RequestsPerSecond float64 `toml:"RequestsPerSecond"`
	Burst             int     `toml:"Burst"`
}

type AuditConfig struct {
	// DSN is a SQLite path/DSN or a postgres:// URL. Empty disables the journal.
	DSN string `toml:"DSN"`
}

type TelemetryConfig struct {
	Endpoint string `toml:"Endpoint"`
	Insecure bool   `toml:"Insecure"`
	Headers  string `toml:"Headers"`
	Metrics  bool   `toml:"Metrics"`
	Traces   bool   `toml:"Traces"`
}

type LogConfig struct {
	File       string `toml:"File"`
	MaxSizeMB  int    `toml:"MaxSizeMB"`
	MaxBackups int    `toml:"MaxBackups"`
	MaxAgeDays int    `toml:"MaxAgeDays"`
	Compress   bool   `toml:"Compress"`
}

type loadOptions struct {
	keystorePassphrase string
	passphraseSet      bool
	passphraseSource   func() (string, error)
}

// Option customises Load.
type Option func(*loadOptions)

// WithKeystorePassphrase supplies the passphrase used to encrypt the owner
// keystore generated alongside a default configuration.
func WithKeystorePassphrase(passphrase string) Option {
	return func(o *loadOptions) {
		o.keystorePassphrase = passphrase
		o.passphraseSet = true
	}
}

// WithKeystorePassphraseSource defers passphrase resolution until a default
// configuration actually needs to be generated.
func WithKeystorePassphraseSource(source func() (string, error)) Option {
	return func(o *loadOptions) {
		o.passphraseSource = source
	}
}

// Load loads the configuration from the given path, creating a default file
// (plus owner keystore and genesis) when none exists.
func Load(path string, opts ...Option) (*Config, error) {
	options := loadOptions{}
	for _, opt := range opts {
		opt(&options)
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return createDefault(path, options)
	}

	cfg := &Config{}
	meta, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, err
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("config file %s has unknown field %s", path, undecoded[0])
	}
	cfg.applyDefaults(filepath.Dir(path))
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyDefaults(baseDir string) {
	if strings.TrimSpace(c.RPCAddress) == "" {
		c.RPCAddress = ":8545"
	}
	if strings.TrimSpace(c.DataDir) == "" {
		c.DataDir = filepath.Join(baseDir, "vesting-data")
	}
	if strings.TrimSpace(c.Environment) == "" {
		c.Environment = "local"
	}
	if strings.TrimSpace(c.Storage.Backend) == "" {
		c.Storage.Backend = "leveldb"
	}
	if c.Vesting.AdvisersPartnershipsBps == 0 && c.Vesting.MarketingBps == 0 && c.Vesting.ReserveFundsBps == 0 {
		d := vesting.DefaultAllocations()
		c.Vesting.AdvisersPartnershipsBps = d.AdvisersPartnershipsBps
		c.Vesting.MarketingBps = d.MarketingBps
		c.Vesting.ReserveFundsBps = d.ReserveFundsBps
	}
	if strings.TrimSpace(c.Token.Symbol) == "" {
		c.Token.Symbol = "VEST"
	}
	if c.Token.Decimals == 0 {
		c.Token.Decimals = 18
	}
	if strings.TrimSpace(c.Auth.Issuer) == "" {
		c.Auth.Issuer = "vestingctl"
	}
	if c.Auth.ClockSkewSeconds <= 0 {
		c.Auth.ClockSkewSeconds = 30
	}
	if c.RateLimit.RequestsPerSecond <= 0 {
		c.RateLimit.RequestsPerSecond = 20
	}
	if c.RateLimit.Burst <= 0 {
		c.RateLimit.Burst = 40
	}
	if c.Log.MaxSizeMB <= 0 {
		c.Log.MaxSizeMB = 100
	}
}

// Allocations returns the configured category split.
func (c *Config) Allocations() vesting.Allocations {
	return vesting.Allocations{
		AdvisersPartnershipsBps: c.Vesting.AdvisersPartnershipsBps,
		MarketingBps:            c.Vesting.MarketingBps,
		ReserveFundsBps:         c.Vesting.ReserveFundsBps,
	}
}

func (c *Config) OwnerAddress() ([20]byte, error) { return crypto.ParseAddress(c.Vesting.Owner) }
func (c *Config) VaultAddress() ([20]byte, error) { return crypto.ParseAddress(c.Vesting.Vault) }
func (c *Config) TokenAddress() ([20]byte, error) { return crypto.ParseAddress(c.Token.Address) }

// createDefault creates and saves a default configuration file together with
// a freshly generated owner keystore and a genesis file funding the vault.
func createDefault(path string, options loadOptions) (*Config, error) {
	if !options.passphraseSet && options.passphraseSource != nil {
		pass, err := options.passphraseSource()
		if err != nil {
			return nil, fmt.Errorf("config: resolve keystore passphrase: %w", err)
		}
		options.keystorePassphrase = pass
		options.passphraseSet = true
	}
	if !options.passphraseSet || options.keystorePassphrase == "" {
		return nil, errors.New("config: keystore passphrase required to generate default owner key")
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	key, err := crypto.GeneratePrivateKey()
	if err != nil {
		return nil, err
	}
	keystorePath := filepath.Join(dir, "owner.keystore")
	if err := crypto.SaveToKeystore(keystorePath, key, options.keystorePassphrase); err != nil {
		return nil, err
	}
	secret, err := randomSecret()
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		RPCAddress:        ":8545",
		DataDir:           filepath.Join(dir, "vesting-data"),
		GenesisFile:       filepath.Join(dir, "genesis.json"),
		Environment:       "local",
		OwnerKeystorePath: keystorePath,
		Storage:           StorageConfig{Backend: "leveldb"},
		Vesting: VestingConfig{
			Owner: key.Address().Hex(),
			Vault: derivedAddress("vesting-vault"),
		},
		Token: TokenConfig{
			Address:  derivedAddress("vesting-token"),
			Symbol:   "VEST",
			Name:     "Vesting Token",
			Decimals: 18,
		},
		Auth:  AuthConfig{HMACSecret: secret, Issuer: "vestingctl"},
		Audit: AuditConfig{DSN: filepath.Join(dir, "vesting-data", "journal.db")},
	}
	cfg.applyDefaults(dir)

	genesis := map[string]map[string]string{"alloc": {cfg.Vesting.Vault: DefaultGenesisSupply}}
	data, err := json.MarshalIndent(genesis, "", "  ")
	if err != nil {
		return nil, err
	}
	if err := os.WriteFile(cfg.GenesisFile, data, 0o644); err != nil {
		return nil, err
	}
	if err := persist(path, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func persist(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_TRUNC|os.O_CREATE, 0o600)
	if err != nil {
		return err
	}
	defer f.Close()

	return toml.NewEncoder(f).Encode(cfg)
}

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/accounts/keystore"
	"github.com/stretchr/testify/require"

	"tokenvesting/core/genesis"
	"tokenvesting/crypto"
)

const testKeystorePassphrase = "test-passphrase"

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

const validConfig = `
RPCAddress = "127.0.0.1:9000"

[Storage]
Backend = "bolt"

[Vesting]
Owner = "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266"
Vault = "0x5FbDB2315678afecb367f032d93F642f64180aa3"

[Token]
Address = "0x00000000000000000000000000000000000000ee"

[Auth]
HMACSecret = "0123456789abcdef0123"
`

func TestLoadAppliesDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, validConfig))
	require.NoError(t, err)
	require.Equal(t, "127.0.0.1:9000", cfg.RPCAddress)
	require.Equal(t, "bolt", cfg.Storage.Backend)
	require.Equal(t, "local", cfg.Environment)
	require.Equal(t, uint16(1_000), cfg.Vesting.AdvisersPartnershipsBps)
	require.Equal(t, uint16(600), cfg.Vesting.MarketingBps)
	require.Equal(t, uint16(400), cfg.Vesting.ReserveFundsBps)
	require.Equal(t, "VEST", cfg.Token.Symbol)
	require.Equal(t, uint8(18), cfg.Token.Decimals)
	require.Equal(t, 30, cfg.Auth.ClockSkewSeconds)
	require.Equal(t, 40, cfg.RateLimit.Burst)

	owner, err := cfg.OwnerAddress()
	require.NoError(t, err)
	require.Equal(t, "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266", crypto.FromBytes(owner).Hex())
}

func TestLoadRejectsInvalidConfig(t *testing.T) {
	cases := map[string]string{
		"unknown field":   validConfig + "\nBogus = 1\n",
		"bad backend":     strings.Replace(validConfig, `"bolt"`, `"redis"`, 1),
		"bad owner":       strings.Replace(validConfig, "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266", "0x12", 1),
		"owner is vault":  strings.Replace(validConfig, "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266", "0x5FbDB2315678afecb367f032d93F642f64180aa3", 1),
		"short secret":    strings.Replace(validConfig, "0123456789abcdef0123", "short", 1),
		"allocation >100": strings.Replace(validConfig, "[Token]", "AdvisersPartnershipsBps = 9000\nMarketingBps = 2000\n\n[Token]", 1),
		"telemetry":       validConfig + "\n[Telemetry]\nTraces = true\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Load(writeConfig(t, body))
			require.Error(t, err)
		})
	}
}

func TestLoadWithoutPassphraseFailsToCreateDefault(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "config.toml"))
	require.Error(t, err)
}

func TestLoadCreatesDefaultDeployment(t *testing.T) {
	t.Cleanup(crypto.SetKeystoreScrypt(keystore.LightScryptN, keystore.LightScryptP))
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")

	cfg, err := Load(path, WithKeystorePassphrase(testKeystorePassphrase))
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	key, err := crypto.LoadFromKeystore(cfg.OwnerKeystorePath, testKeystorePassphrase)
	require.NoError(t, err)
	owner, err := cfg.OwnerAddress()
	require.NoError(t, err)
	require.Equal(t, key.Address().Raw(), owner)

	spec, err := genesis.Load(cfg.GenesisFile)
	require.NoError(t, err)
	allocs, err := spec.Allocations()
	require.NoError(t, err)
	require.Len(t, allocs, 1)
	vault, err := cfg.VaultAddress()
	require.NoError(t, err)
	require.Equal(t, vault, allocs[0].Account)
	require.Equal(t, DefaultGenesisSupply, allocs[0].Amount.Dec())

	reloaded, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, cfg.Auth.HMACSecret, reloaded.Auth.HMACSecret)
}

func TestLoadPassphraseSourceIsLazy(t *testing.T) {
	t.Cleanup(crypto.SetKeystoreScrypt(keystore.LightScryptN, keystore.LightScryptP))
	calls := 0
	source := func() (string, error) {
		calls++
		return testKeystorePassphrase, nil
	}

	_, err := Load(writeConfig(t, validConfig), WithKeystorePassphraseSource(source))
	require.NoError(t, err)
	require.Zero(t, calls, "existing configs never prompt")

	_, err = Load(filepath.Join(t.TempDir(), "nested", "config.toml"), WithKeystorePassphraseSource(source))
	require.NoError(t, err)
	require.Equal(t, 1, calls)
}

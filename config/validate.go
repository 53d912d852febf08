package config

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"

	"tokenvesting/crypto"
	"tokenvesting/storage"
)

// Validate rejects configurations the daemon cannot start with.
func (c *Config) Validate() error {
	switch strings.ToLower(strings.TrimSpace(c.Storage.Backend)) {
	case storage.BackendLevelDB, storage.BackendBolt, storage.BackendMemory:
	default:
		return fmt.Errorf("config: unknown storage backend %q", c.Storage.Backend)
	}
	owner, err := c.OwnerAddress()
	if err != nil {
		return fmt.Errorf("config: Vesting.Owner: %w", err)
	}
	vault, err := c.VaultAddress()
	if err != nil {
		return fmt.Errorf("config: Vesting.Vault: %w", err)
	}
	if owner == vault {
		return fmt.Errorf("config: Vesting.Owner and Vesting.Vault must differ")
	}
	if _, err := c.TokenAddress(); err != nil {
		return fmt.Errorf("config: Token.Address: %w", err)
	}
	if err := c.Allocations().Validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if len(strings.TrimSpace(c.Auth.HMACSecret)) < 16 {
		return fmt.Errorf("config: Auth.HMACSecret must be at least 16 characters")
	}
	if c.Telemetry.Traces || c.Telemetry.Metrics {
		if strings.TrimSpace(c.Telemetry.Endpoint) == "" {
			return fmt.Errorf("config: Telemetry.Endpoint required when exporters are enabled")
		}
	}
	return nil
}

func randomSecret() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

// derivedAddress gives default deployments stable, obviously synthetic
// addresses for the vault and token.
func derivedAddress(label string) string {
	hash := ethcrypto.Keccak256([]byte(label))
	var raw [20]byte
	copy(raw[:], hash[12:])
	return crypto.FromBytes(raw).Hex()
}

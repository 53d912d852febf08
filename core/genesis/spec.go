package genesis

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/holiman/uint256"

	"tokenvesting/crypto"
)

// Spec lists the token balances minted when the ledger is first created.
type Spec struct {
	// Alloc maps an account (hex or bech32) to a decimal amount.
	Alloc map[string]string `json:"alloc"`
}

// Allocation is a parsed Alloc entry.
type Allocation struct {
	Account [20]byte
	Amount  *uint256.Int
}

// Load reads a JSON genesis file.
func Load(path string) (*Spec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read genesis: %w", err)
	}
	var spec Spec
	if err := json.Unmarshal(data, &spec); err != nil {
		return nil, fmt.Errorf("decode genesis: %w", err)
	}
	return &spec, nil
}

// Allocations validates the spec and returns its entries sorted by account so
// every node mints in the same order.
func (s *Spec) Allocations() ([]Allocation, error) {
	if s == nil {
		return nil, nil
	}
	out := make([]Allocation, 0, len(s.Alloc))
	seen := make(map[[20]byte]struct{}, len(s.Alloc))
	for rawAddr, rawAmount := range s.Alloc {
		account, err := crypto.ParseAddress(rawAddr)
		if err != nil {
			return nil, fmt.Errorf("genesis alloc %q: %w", rawAddr, err)
		}
		if _, dup := seen[account]; dup {
			return nil, fmt.Errorf("genesis alloc %q: duplicate account", rawAddr)
		}
		seen[account] = struct{}{}
		amount, err := uint256.FromDecimal(strings.TrimSpace(rawAmount))
		if err != nil {
			return nil, fmt.Errorf("genesis alloc %q: invalid amount %q: %w", rawAddr, rawAmount, err)
		}
		if amount.IsZero() {
			continue
		}
		out = append(out, Allocation{Account: account, Amount: amount})
	}
	sort.Slice(out, func(i, j int) bool {
		return string(out[i].Account[:]) < string(out[j].Account[:])
	})
	return out, nil
}

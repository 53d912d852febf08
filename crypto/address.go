package crypto

import (
	"fmt"
	"strings"

	"github.com/btcsuite/btcutil/bech32"
	"github.com/ethereum/go-ethereum/common"
)

// AddressPrefix is the human-readable part used for bech32 rendering.
type AddressPrefix string

// VestPrefix is the bech32 prefix of ledger accounts.
const VestPrefix AddressPrefix = "vest"

// Address is a 20-byte account identifier with a display prefix.
type Address struct {
	prefix AddressPrefix
	bytes  [20]byte
}

func NewAddress(prefix AddressPrefix, b []byte) (Address, error) {
	if len(b) != 20 {
		return Address{}, fmt.Errorf("crypto: address must be 20 bytes, got %d", len(b))
	}
	var out Address
	out.prefix = prefix
	copy(out.bytes[:], b)
	return out, nil
}

// FromBytes wraps a raw account identifier using the ledger prefix.
func FromBytes(raw [20]byte) Address {
	return Address{prefix: VestPrefix, bytes: raw}
}

// String renders the bech32 form.
func (a Address) String() string {
	conv, err := bech32.ConvertBits(a.bytes[:], 8, 5, true)
	if err != nil {
		return ""
	}
	encoded, err := bech32.Encode(string(a.prefix), conv)
	if err != nil {
		return ""
	}
	return encoded
}

// Hex renders the EIP-55 checksummed form.
func (a Address) Hex() string {
	return common.Address(a.bytes).Hex()
}

func (a Address) Raw() [20]byte { return a.bytes }

func (a Address) Bytes() []byte {
	out := a.bytes
	return out[:]
}

// Prefix returns the human-readable prefix associated with the address.
func (a Address) Prefix() AddressPrefix {
	return a.prefix
}

func DecodeAddress(addrStr string) (Address, error) {
	prefix, decoded, err := bech32.Decode(addrStr)
	if err != nil {
		return Address{}, fmt.Errorf("invalid bech32 string: %w", err)
	}
	conv, err := bech32.ConvertBits(decoded, 5, 8, false)
	if err != nil {
		return Address{}, fmt.Errorf("error converting bits: %w", err)
	}
	return NewAddress(AddressPrefix(prefix), conv)
}

// ParseAddress accepts either a 0x-prefixed hex address or a bech32 address
// and returns the raw identifier.
func ParseAddress(value string) ([20]byte, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return [20]byte{}, fmt.Errorf("crypto: empty address")
	}
	if strings.HasPrefix(trimmed, "0x") || strings.HasPrefix(trimmed, "0X") {
		if !common.IsHexAddress(trimmed) {
			return [20]byte{}, fmt.Errorf("crypto: invalid hex address %q", value)
		}
		return common.HexToAddress(trimmed), nil
	}
	addr, err := DecodeAddress(trimmed)
	if err != nil {
		return [20]byte{}, err
	}
	return addr.Raw(), nil
}

// MustParseAddress is ParseAddress for constants; it panics on malformed input.
func MustParseAddress(value string) [20]byte {
	out, err := ParseAddress(value)
	if err != nil {
		panic(err)
	}
	return out
}

package vesting

import (
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"
)

// ScheduleID derives the identifier of the index-th schedule of holder as
// keccak256(holder || uint256(index)), the packed ABI encoding of the pair.
func ScheduleID(holder [20]byte, index uint64) [32]byte {
	word := uint256.NewInt(index).Bytes32()
	return ethcrypto.Keccak256Hash(holder[:], word[:])
}

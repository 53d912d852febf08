package state

import (
	"math/big"

	"github.com/holiman/uint256"

	"tokenvesting/native/token"
)

var (
	tokenBalancePrefix = []byte("token/balance/")
	tokenSupplyKey     = []byte("token/supply")
)

func (tx *Tx) TokenBalance(addr [20]byte) (*uint256.Int, error) {
	bal := new(big.Int)
	if _, err := tx.KVGet(prefixed(tokenBalancePrefix, addr[:]), bal); err != nil {
		return nil, err
	}
	return fromBig(bal)
}

func (tx *Tx) PutTokenBalance(addr [20]byte, amount *uint256.Int) error {
	return tx.KVPut(prefixed(tokenBalancePrefix, addr[:]), toBig(amount))
}

func (tx *Tx) TokenSupply() (*uint256.Int, error) {
	supply := new(big.Int)
	if _, err := tx.KVGet(tokenSupplyKey, supply); err != nil {
		return nil, err
	}
	return fromBig(supply)
}

func (tx *Tx) PutTokenSupply(amount *uint256.Int) error {
	return tx.KVPut(tokenSupplyKey, toBig(amount))
}

var _ token.State = (*Tx)(nil)

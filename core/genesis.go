package core

import (
	"fmt"

	"tokenvesting/core/genesis"
)

var genesisAppliedKey = []byte("genesis/applied")

// ApplyGenesis mints the genesis allocations once. It reports whether minting
// happened; later calls are no-ops.
func (n *Node) ApplyGenesis(spec *genesis.Spec) (bool, error) {
	allocs, err := spec.Allocations()
	if err != nil {
		return false, err
	}
	raw, err := n.Begin()
	if err != nil {
		return false, err
	}
	sess := raw.(*session)
	applied, err := sess.KVGet(genesisAppliedKey, nil)
	if err != nil {
		sess.Discard()
		return false, err
	}
	if applied {
		sess.Discard()
		return false, nil
	}
	for _, alloc := range allocs {
		if err := sess.ledger.Mint(alloc.Account, alloc.Amount); err != nil {
			sess.Discard()
			return false, fmt.Errorf("genesis mint: %w", err)
		}
	}
	if err := sess.KVPut(genesisAppliedKey, true); err != nil {
		sess.Discard()
		return false, err
	}
	if err := sess.Commit(); err != nil {
		return false, err
	}
	return true, nil
}

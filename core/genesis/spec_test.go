package genesis

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadAndAllocations(t *testing.T) {
	path := filepath.Join(t.TempDir(), "genesis.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"alloc": {
			"0x00000000000000000000000000000000000000bb": "5",
			"0x00000000000000000000000000000000000000aa": "100000000",
			"0x00000000000000000000000000000000000000cc": "0"
		}
	}`), 0o600))

	spec, err := Load(path)
	require.NoError(t, err)
	allocs, err := spec.Allocations()
	require.NoError(t, err)
	require.Len(t, allocs, 2)
	require.Equal(t, byte(0xaa), allocs[0].Account[19])
	require.Equal(t, uint64(100_000_000), allocs[0].Amount.Uint64())
	require.Equal(t, byte(0xbb), allocs[1].Account[19])
}

func TestAllocationsRejectsBadInput(t *testing.T) {
	_, err := (&Spec{Alloc: map[string]string{"nope": "1"}}).Allocations()
	require.Error(t, err)
	_, err = (&Spec{Alloc: map[string]string{"0x00000000000000000000000000000000000000aa": "-1"}}).Allocations()
	require.Error(t, err)

	allocs, err := (*Spec)(nil).Allocations()
	require.NoError(t, err)
	require.Empty(t, allocs)
}

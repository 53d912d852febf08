package passphrase

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSourcePrefersEnvironment(t *testing.T) {
	t.Setenv("VESTING_TEST_PASS", "from-env")
	src := NewSource("VESTING_TEST_PASS", "owner keystore")
	src.isTerminal = func() bool { t.Fatal("terminal should not be consulted"); return false }

	value, err := src.Get()
	require.NoError(t, err)
	require.Equal(t, "from-env", value)
}

func TestSourceRejectsEmptyEnvironment(t *testing.T) {
	t.Setenv("VESTING_TEST_PASS", "  ")
	_, err := NewSource("VESTING_TEST_PASS", "").Get()
	require.ErrorContains(t, err, "set but empty")
}

func TestSourcePromptsOnce(t *testing.T) {
	src := NewSource("", "owner keystore")
	reads := 0
	src.isTerminal = func() bool { return true }
	src.readSecret = func() ([]byte, error) {
		reads++
		return []byte("typed"), nil
	}
	for i := 0; i < 2; i++ {
		value, err := src.Get()
		require.NoError(t, err)
		require.Equal(t, "typed", value)
	}
	require.Equal(t, 1, reads)
}

func TestSourceWithoutTerminal(t *testing.T) {
	src := NewSource("VESTING_TEST_UNSET_PASS", "owner keystore")
	src.isTerminal = func() bool { return false }
	_, err := src.Get()
	require.ErrorContains(t, err, "VESTING_TEST_UNSET_PASS")
}

package vesting

import (
	"math"
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"
)

func testSchedule(amount uint64, start, cliff, duration, slice uint64) *Schedule {
	return &Schedule{
		Initialized:        true,
		Start:              start,
		Cliff:              start + cliff,
		Duration:           duration,
		SlicePeriodSeconds: slice,
		AmountTotal:        uint256.NewInt(amount),
		Released:           uint256.NewInt(0),
	}
}

func TestComputeReleasable(t *testing.T) {
	tests := []struct {
		name     string
		schedule *Schedule
		released uint64
		now      uint64
		want     uint64
	}{
		{"before start", testSchedule(100, 1000, 0, 1000, 1), 0, 999, 0},
		{"at start", testSchedule(100, 1000, 0, 1000, 1), 0, 1000, 0},
		{"half", testSchedule(100, 1000, 0, 1000, 1), 0, 1500, 50},
		{"half minus released", testSchedule(100, 1000, 0, 1000, 1), 10, 1500, 40},
		{"released exceeds vested", testSchedule(100, 1000, 0, 1000, 1), 60, 1500, 0},
		{"before cliff", testSchedule(100, 1000, 600, 1000, 1), 0, 1599, 0},
		{"at cliff", testSchedule(100, 1000, 600, 1000, 1), 0, 1600, 60},
		{"cliff beyond end", testSchedule(100, 1000, 2000, 1000, 1), 0, 2500, 0},
		{"slice floor", testSchedule(100, 1000, 0, 1000, 250), 0, 1499, 25},
		{"floor division", testSchedule(7, 0, 0, 3, 1), 0, 1, 2},
		{"coarse slice pending", testSchedule(7, 0, 0, 3, 2), 0, 1, 0},
		{"coarse slice first", testSchedule(7, 0, 0, 3, 2), 0, 2, 4},
		{"coarse slice drained", testSchedule(7, 0, 0, 3, 2), 4, 2, 0},
		{"coarse slice end", testSchedule(7, 0, 0, 3, 2), 4, 3, 3},
		{"at end", testSchedule(100, 1000, 0, 1000, 1), 30, 2000, 70},
		{"after end", testSchedule(100, 1000, 0, 1000, 7), 0, 1_000_000, 100},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			tc.schedule.Released = uint256.NewInt(tc.released)
			got := ComputeReleasable(tc.schedule, tc.now)
			require.Equal(t, tc.want, got.Uint64())
		})
	}
}

func TestComputeReleasableRevoked(t *testing.T) {
	s := testSchedule(100, 0, 0, 10, 1)
	s.Revoked = true
	require.True(t, ComputeReleasable(s, 100).IsZero())
	require.True(t, ComputeReleasable(nil, 100).IsZero())
}

func TestComputeReleasableIsMonotonicAndBounded(t *testing.T) {
	s := testSchedule(1_000_003, 50, 10, 997, 13)
	prev := uint256.NewInt(0)
	for now := uint64(0); now < 1200; now++ {
		got := ComputeReleasable(s, now)
		require.False(t, got.Lt(prev), "now=%d", now)
		require.False(t, got.Gt(s.AmountTotal), "now=%d", now)
		require.True(t, got.Eq(ComputeReleasable(s, now)), "pure at now=%d", now)
		prev = got
	}
	require.Equal(t, uint64(1_000_003), prev.Uint64())
}

func TestComputeReleasableLargeAmounts(t *testing.T) {
	max := new(uint256.Int).SetAllOne()
	s := &Schedule{
		Start:              0,
		Duration:           4,
		SlicePeriodSeconds: 1,
		AmountTotal:        max,
		Released:           uint256.NewInt(0),
	}
	got := ComputeReleasable(s, 2)
	want := new(uint256.Int).Rsh(max, 1)
	require.True(t, got.Eq(want), "got %s want %s", got.Dec(), want.Dec())
}

func TestSplitAllocation(t *testing.T) {
	balance := uint256.NewInt(100_000_000)
	bank, pool := SplitAllocation(balance, 1_000, 7)
	require.Equal(t, uint64(700_000), bank.Uint64())
	require.Equal(t, uint64(9_300_000), pool.Uint64())

	bank, pool = SplitAllocation(uint256.NewInt(999), 1_000, 33)
	require.Equal(t, uint64(32), bank.Uint64())
	require.Equal(t, uint64(67), pool.Uint64())

	bank, pool = SplitAllocation(balance, 400, 100)
	require.Equal(t, uint64(4_000_000), bank.Uint64())
	require.Zero(t, pool.Uint64())
}

func TestParseCategory(t *testing.T) {
	for input, want := range map[string]Category{
		"0":             CategoryAdvisersPartnerships,
		"marketing":     CategoryMarketing,
		"reserve_funds": CategoryReserveFunds,
		" Reserve ":     CategoryReserveFunds,
	} {
		got, err := ParseCategory(input)
		require.NoError(t, err, input)
		require.Equal(t, want, got)
	}
	_, err := ParseCategory("3")
	require.ErrorIs(t, err, ErrInvalidCategory)
	_, err = ParseCategory("treasury")
	require.ErrorIs(t, err, ErrInvalidCategory)
}

func TestScheduleEndSaturates(t *testing.T) {
	s := testSchedule(1_000, 10, 0, math.MaxUint64, 1)
	require.Equal(t, uint64(math.MaxUint64), s.End())
	require.True(t, ComputeReleasable(s, 11).IsZero())
	require.Equal(t, uint64(110), testSchedule(1, 10, 0, 100, 1).End())
}

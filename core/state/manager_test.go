package state

import (
	"path/filepath"
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"

	"tokenvesting/native/vesting"
	"tokenvesting/storage"
)

func testSchedule() *vesting.Schedule {
	var beneficiary [20]byte
	beneficiary[19] = 0x42
	return &vesting.Schedule{
		ID:                 vesting.ScheduleID(beneficiary, 0),
		Initialized:        true,
		Beneficiary:        beneficiary,
		Category:           vesting.CategoryMarketing,
		Cliff:              110,
		Start:              100,
		Duration:           1_000,
		SlicePeriodSeconds: 1,
		Revocable:          true,
		AmountTotal:        uint256.NewInt(500),
		Released:           uint256.NewInt(0),
	}
}

func TestTxIsolationAndCommit(t *testing.T) {
	manager := NewManager(storage.NewMemDB())

	tx := manager.Begin()
	require.NoError(t, tx.KVPut([]byte("answer"), uint64(42)))
	var got uint64
	ok, err := tx.KVGet([]byte("answer"), &got)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, uint64(42), got)

	other := manager.Begin()
	ok, err = other.KVGet([]byte("answer"), &got)
	require.NoError(t, err)
	require.False(t, ok, "uncommitted writes must stay private")

	require.NoError(t, tx.Commit())
	ok, err = manager.Begin().KVGet([]byte("answer"), &got)
	require.NoError(t, err)
	require.True(t, ok)
	require.ErrorIs(t, tx.Commit(), errTxClosed)
}

func TestTxDiscardAndDelete(t *testing.T) {
	manager := NewManager(storage.NewMemDB())
	seed := manager.Begin()
	require.NoError(t, seed.KVPut([]byte("k"), "v"))
	require.NoError(t, seed.Commit())

	tx := manager.Begin()
	require.NoError(t, tx.KVDelete([]byte("k")))
	ok, err := tx.KVGet([]byte("k"), nil)
	require.NoError(t, err)
	require.False(t, ok)
	tx.Discard()

	ok, err = manager.Begin().KVGet([]byte("k"), nil)
	require.NoError(t, err)
	require.True(t, ok)

	_, err = tx.KVGet([]byte("k"), nil)
	require.ErrorIs(t, err, errTxClosed)
	require.Error(t, manager.Begin().KVPut(nil, 1))
}

func TestVestingTablesRoundTrip(t *testing.T) {
	db, err := storage.NewLevelDB(filepath.Join(t.TempDir(), "state"))
	require.NoError(t, err)
	defer db.Close()
	manager := NewManager(db)

	schedule := testSchedule()
	owner := [20]byte{1}
	tx := manager.Begin()
	require.NoError(t, tx.PutVestingOwner(owner))
	require.NoError(t, tx.PutVestingSchedule(schedule))
	require.NoError(t, tx.AppendVestingScheduleID(schedule.ID))
	require.NoError(t, tx.PutVestingHolderCount(schedule.Beneficiary, 1))
	require.NoError(t, tx.PutVestingTotal(uint256.NewInt(500)))
	pool := vesting.NewPool(vesting.CategoryMarketing)
	pool.TGEPercent = 5
	pool.TGEBank = uint256.NewInt(300_000)
	pool.VestingPool = uint256.NewInt(5_700_000)
	require.NoError(t, tx.PutVestingPool(pool))
	require.NoError(t, tx.Commit())

	read := manager.Begin()
	defer read.Discard()
	gotOwner, ok, err := read.VestingOwner()
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, owner, gotOwner)

	got, ok, err := read.VestingSchedule(schedule.ID)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, schedule.Cliff, got.Cliff)
	require.True(t, got.AmountTotal.Eq(schedule.AmountTotal))
	require.Equal(t, vesting.CategoryMarketing, got.Category)

	count, err := read.VestingScheduleCount()
	require.NoError(t, err)
	require.Equal(t, uint64(1), count)
	id, ok, err := read.VestingScheduleIDAt(0)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, schedule.ID, id)
	_, ok, err = read.VestingScheduleIDAt(1)
	require.NoError(t, err)
	require.False(t, ok)

	gotPool, err := read.VestingPool(vesting.CategoryMarketing)
	require.NoError(t, err)
	require.Equal(t, uint8(5), gotPool.TGEPercent)
	require.Equal(t, uint64(5_700_000), gotPool.VestingPool.Uint64())
	empty, err := read.VestingPool(vesting.CategoryReserveFunds)
	require.NoError(t, err)
	require.True(t, empty.TGEBank.IsZero())

	total, err := read.VestingTotal()
	require.NoError(t, err)
	require.Equal(t, uint64(500), total.Uint64())
}

func TestScheduleImmutability(t *testing.T) {
	manager := NewManager(storage.NewMemDB())
	tx := manager.Begin()
	schedule := testSchedule()
	require.NoError(t, tx.PutVestingSchedule(schedule))

	released := schedule.Clone()
	released.Released = uint256.NewInt(10)
	require.NoError(t, tx.PutVestingSchedule(released))

	tampered := released.Clone()
	tampered.Duration = 1
	require.Error(t, tx.PutVestingSchedule(tampered))

	overdrawn := released.Clone()
	overdrawn.Released = uint256.NewInt(501)
	require.Error(t, tx.PutVestingSchedule(overdrawn))

	revoked := released.Clone()
	revoked.Revoked = true
	require.NoError(t, tx.PutVestingSchedule(revoked))
	require.Error(t, tx.PutVestingSchedule(released), "revocation is permanent")

	require.NoError(t, tx.PutVestingHolderCount(schedule.Beneficiary, 2))
	require.Error(t, tx.PutVestingHolderCount(schedule.Beneficiary, 1))
}

func TestTokenTables(t *testing.T) {
	manager := NewManager(storage.NewMemDB())
	tx := manager.Begin()
	holder := [20]byte{9}
	bal, err := tx.TokenBalance(holder)
	require.NoError(t, err)
	require.True(t, bal.IsZero())
	require.NoError(t, tx.PutTokenBalance(holder, uint256.NewInt(77)))
	require.NoError(t, tx.PutTokenSupply(uint256.NewInt(77)))
	require.NoError(t, tx.Commit())

	read := manager.Begin()
	bal, err = read.TokenBalance(holder)
	require.NoError(t, err)
	require.Equal(t, uint64(77), bal.Uint64())
	supply, err := read.TokenSupply()
	require.NoError(t, err)
	require.Equal(t, uint64(77), supply.Uint64())
}

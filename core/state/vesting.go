package state

import (
	"fmt"
	"math/big"
	"strconv"

	"github.com/holiman/uint256"

	"tokenvesting/native/vesting"
)

var (
	vestingOwnerKey       = []byte("vesting/owner")
	vestingTotalKey       = []byte("vesting/total")
	vestingCountKey       = []byte("vesting/count")
	vestingPoolPrefix     = []byte("vesting/pool/")
	vestingSchedulePrefix = []byte("vesting/schedule/")
	vestingIndexPrefix    = []byte("vesting/index/")
	vestingHolderPrefix   = []byte("vesting/holder-count/")
)

type storedPool struct {
	TGEPercent  uint8
	TGEBank     *big.Int
	VestingPool *big.Int
	Committed   *big.Int
	Released    *big.Int
}

type storedSchedule struct {
	ID                 [32]byte
	Initialized        bool
	Beneficiary        [20]byte
	Category           uint8
	Cliff              uint64
	Start              uint64
	Duration           uint64
	SlicePeriodSeconds uint64
	Revocable          bool
	AmountTotal        *big.Int
	Released           *big.Int
	Revoked            bool
}

func prefixed(prefix []byte, suffix []byte) []byte {
	out := make([]byte, len(prefix)+len(suffix))
	copy(out, prefix)
	copy(out[len(prefix):], suffix)
	return out
}

func poolKey(c vesting.Category) []byte {
	return prefixed(vestingPoolPrefix, []byte{byte(c)})
}

func scheduleKey(id [32]byte) []byte {
	return prefixed(vestingSchedulePrefix, id[:])
}

func indexKey(index uint64) []byte {
	return prefixed(vestingIndexPrefix, []byte(strconv.FormatUint(index, 10)))
}

func holderCountKey(holder [20]byte) []byte {
	return prefixed(vestingHolderPrefix, holder[:])
}

func toBig(v *uint256.Int) *big.Int {
	if v == nil {
		return new(big.Int)
	}
	return v.ToBig()
}

func fromBig(v *big.Int) (*uint256.Int, error) {
	if v == nil {
		return uint256.NewInt(0), nil
	}
	out, overflow := uint256.FromBig(v)
	if overflow {
		return nil, fmt.Errorf("state: amount %s overflows 256 bits", v)
	}
	return out, nil
}

// VestingOwner returns the administrator recorded at initialisation.
func (tx *Tx) VestingOwner() ([20]byte, bool, error) {
	var owner [20]byte
	ok, err := tx.KVGet(vestingOwnerKey, &owner)
	return owner, ok, err
}

func (tx *Tx) PutVestingOwner(owner [20]byte) error {
	return tx.KVPut(vestingOwnerKey, owner)
}

// VestingPool returns the stored pool or an empty one when the category has
// never been written.
func (tx *Tx) VestingPool(c vesting.Category) (*vesting.Pool, error) {
	var stored storedPool
	ok, err := tx.KVGet(poolKey(c), &stored)
	if err != nil {
		return nil, err
	}
	pool := vesting.NewPool(c)
	if !ok {
		return pool, nil
	}
	pool.TGEPercent = stored.TGEPercent
	if pool.TGEBank, err = fromBig(stored.TGEBank); err != nil {
		return nil, err
	}
	if pool.VestingPool, err = fromBig(stored.VestingPool); err != nil {
		return nil, err
	}
	if pool.Committed, err = fromBig(stored.Committed); err != nil {
		return nil, err
	}
	if pool.Released, err = fromBig(stored.Released); err != nil {
		return nil, err
	}
	return pool, nil
}

func (tx *Tx) PutVestingPool(p *vesting.Pool) error {
	if p == nil {
		return fmt.Errorf("state: nil vesting pool")
	}
	if !p.Category.Valid() {
		return vesting.ErrInvalidCategory
	}
	return tx.KVPut(poolKey(p.Category), storedPool{
		TGEPercent:  p.TGEPercent,
		TGEBank:     toBig(p.TGEBank),
		VestingPool: toBig(p.VestingPool),
		Committed:   toBig(p.Committed),
		Released:    toBig(p.Released),
	})
}

func (tx *Tx) VestingTotal() (*uint256.Int, error) {
	total := new(big.Int)
	if _, err := tx.KVGet(vestingTotalKey, total); err != nil {
		return nil, err
	}
	return fromBig(total)
}

func (tx *Tx) PutVestingTotal(total *uint256.Int) error {
	return tx.KVPut(vestingTotalKey, toBig(total))
}

func (tx *Tx) VestingSchedule(id [32]byte) (*vesting.Schedule, bool, error) {
	var stored storedSchedule
	ok, err := tx.KVGet(scheduleKey(id), &stored)
	if err != nil || !ok {
		return nil, false, err
	}
	amount, err := fromBig(stored.AmountTotal)
	if err != nil {
		return nil, false, err
	}
	released, err := fromBig(stored.Released)
	if err != nil {
		return nil, false, err
	}
	return &vesting.Schedule{
		ID:                 stored.ID,
		Initialized:        stored.Initialized,
		Beneficiary:        stored.Beneficiary,
		Category:           vesting.Category(stored.Category),
		Cliff:              stored.Cliff,
		Start:              stored.Start,
		Duration:           stored.Duration,
		SlicePeriodSeconds: stored.SlicePeriodSeconds,
		Revocable:          stored.Revocable,
		AmountTotal:        amount,
		Released:           released,
		Revoked:            stored.Revoked,
	}, true, nil
}

// PutVestingSchedule stores s. Once a schedule exists only Released and
// Revoked may change, and Revoked may not be cleared.
func (tx *Tx) PutVestingSchedule(s *vesting.Schedule) error {
	if s == nil {
		return fmt.Errorf("state: nil vesting schedule")
	}
	existing, ok, err := tx.VestingSchedule(s.ID)
	if err != nil {
		return err
	}
	if ok {
		if existing.Beneficiary != s.Beneficiary || existing.Start != s.Start || existing.Cliff != s.Cliff ||
			existing.Duration != s.Duration || existing.SlicePeriodSeconds != s.SlicePeriodSeconds ||
			existing.Revocable != s.Revocable || existing.Category != s.Category ||
			!existing.AmountTotal.Eq(s.AmountTotal) {
			return fmt.Errorf("state: immutable fields of schedule %x changed", s.ID)
		}
		if existing.Revoked && !s.Revoked {
			return fmt.Errorf("state: schedule %x cannot be un-revoked", s.ID)
		}
	}
	if s.Released != nil && s.AmountTotal != nil && s.Released.Gt(s.AmountTotal) {
		return fmt.Errorf("state: schedule %x released exceeds total", s.ID)
	}
	return tx.KVPut(scheduleKey(s.ID), storedSchedule{
		ID:                 s.ID,
		Initialized:        s.Initialized,
		Beneficiary:        s.Beneficiary,
		Category:           uint8(s.Category),
		Cliff:              s.Cliff,
		Start:              s.Start,
		Duration:           s.Duration,
		SlicePeriodSeconds: s.SlicePeriodSeconds,
		Revocable:          s.Revocable,
		AmountTotal:        toBig(s.AmountTotal),
		Released:           toBig(s.Released),
		Revoked:            s.Revoked,
	})
}

func (tx *Tx) VestingScheduleCount() (uint64, error) {
	var count uint64
	_, err := tx.KVGet(vestingCountKey, &count)
	return count, err
}

func (tx *Tx) VestingScheduleIDAt(index uint64) ([32]byte, bool, error) {
	var id [32]byte
	ok, err := tx.KVGet(indexKey(index), &id)
	return id, ok, err
}

// AppendVestingScheduleID records id at the next global index.
func (tx *Tx) AppendVestingScheduleID(id [32]byte) error {
	count, err := tx.VestingScheduleCount()
	if err != nil {
		return err
	}
	if err := tx.KVPut(indexKey(count), id); err != nil {
		return err
	}
	return tx.KVPut(vestingCountKey, count+1)
}

func (tx *Tx) VestingHolderCount(holder [20]byte) (uint64, error) {
	var count uint64
	_, err := tx.KVGet(holderCountKey(holder), &count)
	return count, err
}

func (tx *Tx) PutVestingHolderCount(holder [20]byte, count uint64) error {
	current, err := tx.VestingHolderCount(holder)
	if err != nil {
		return err
	}
	if count < current {
		return fmt.Errorf("state: holder counter cannot decrease (%d -> %d)", current, count)
	}
	return tx.KVPut(holderCountKey(holder), count)
}

var _ vesting.State = (*Tx)(nil)

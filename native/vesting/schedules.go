package vesting

import (
	"math/bits"

	"github.com/holiman/uint256"

	"tokenvesting/core/events"
)

// CreateVestingSchedule stores a new schedule for params.Beneficiary funded
// from the withdrawable balance and returns its identifier.
func (e *Engine) CreateVestingSchedule(caller [20]byte, params CreateParams) ([32]byte, error) {
	if !params.Category.Valid() {
		return [32]byte{}, ErrInvalidCategory
	}
	if params.Duration == 0 {
		return [32]byte{}, ErrInvalidDuration
	}
	if params.SlicePeriodSeconds < 1 {
		return [32]byte{}, ErrInvalidSlicePeriod
	}
	if params.Amount == nil || params.Amount.IsZero() {
		return [32]byte{}, ErrInvalidAmount
	}
	cliff, carry := bits.Add64(params.Start, params.Cliff, 0)
	if carry != 0 {
		return [32]byte{}, ErrTimestampOverflow
	}
	if _, carry := bits.Add64(params.Start, params.Duration, 0); carry != 0 {
		return [32]byte{}, ErrTimestampOverflow
	}
	var id [32]byte
	err := e.update(func(sess Session, buf *events.Buffer) error {
		if err := e.requireOwner(sess, caller); err != nil {
			return err
		}
		available, err := e.withdrawable(sess)
		if err != nil {
			return err
		}
		if params.Amount.Gt(available) {
			return ErrInsufficientFunds
		}
		count, err := sess.VestingHolderCount(params.Beneficiary)
		if err != nil {
			return err
		}
		id = ScheduleID(params.Beneficiary, count)
		schedule := &Schedule{
			ID:                 id,
			Initialized:        true,
			Beneficiary:        params.Beneficiary,
			Category:           params.Category,
			Cliff:              cliff,
			Start:              params.Start,
			Duration:           params.Duration,
			SlicePeriodSeconds: params.SlicePeriodSeconds,
			Revocable:          params.Revocable,
			AmountTotal:        new(uint256.Int).Set(params.Amount),
			Released:           uint256.NewInt(0),
		}
		if err := sess.PutVestingSchedule(schedule); err != nil {
			return err
		}
		if err := sess.AppendVestingScheduleID(id); err != nil {
			return err
		}
		if err := sess.PutVestingHolderCount(params.Beneficiary, count+1); err != nil {
			return err
		}
		if err := adjustTotal(sess, params.Amount, true); err != nil {
			return err
		}
		pool, err := sess.VestingPool(params.Category)
		if err != nil {
			return err
		}
		pool.Committed = new(uint256.Int).Add(cloneAmount(pool.Committed), params.Amount)
		if err := sess.PutVestingPool(pool); err != nil {
			return err
		}
		emitTo(buf, NewScheduleCreatedEvent(schedule))
		return nil
	})
	if err != nil {
		return [32]byte{}, err
	}
	return id, nil
}

// Release transfers amount of the vested, unreleased balance to the
// beneficiary. Either the beneficiary or the owner may call it. The category
// selects the pool whose bookkeeping records the release.
func (e *Engine) Release(caller [20]byte, id [32]byte, amount *uint256.Int, category Category) error {
	if !category.Valid() {
		return ErrInvalidCategory
	}
	return e.update(func(sess Session, buf *events.Buffer) error {
		schedule, err := loadSchedule(sess, id)
		if err != nil {
			return err
		}
		if schedule.Revoked {
			return ErrScheduleRevoked
		}
		owner, err := e.loadOwner(sess)
		if err != nil {
			return err
		}
		if caller != schedule.Beneficiary && caller != owner {
			return ErrUnauthorized
		}
		if amount == nil || amount.IsZero() {
			return ErrInvalidAmount
		}
		releasable := ComputeReleasable(schedule, e.now())
		if amount.Gt(releasable) {
			return ErrInsufficientVestedAmount
		}
		if err := e.settle(sess, schedule, amount, category); err != nil {
			return err
		}
		emitTo(buf, NewReleasedEvent(schedule, amount, caller))
		return nil
	})
}

// Revoke settles the vested portion of a revocable schedule, then marks it
// revoked so the unvested remainder returns to the withdrawable balance.
func (e *Engine) Revoke(caller [20]byte, id [32]byte, category Category) error {
	if !category.Valid() {
		return ErrInvalidCategory
	}
	return e.update(func(sess Session, buf *events.Buffer) error {
		if err := e.requireOwner(sess, caller); err != nil {
			return err
		}
		schedule, err := loadSchedule(sess, id)
		if err != nil {
			return err
		}
		if schedule.Revoked {
			return ErrScheduleRevoked
		}
		if !schedule.Revocable {
			return ErrNotRevocable
		}
		vested := ComputeReleasable(schedule, e.now())
		if !vested.IsZero() {
			if err := e.settle(sess, schedule, vested, category); err != nil {
				return err
			}
		}
		unreleased := schedule.Unreleased()
		schedule.Revoked = true
		if err := sess.PutVestingSchedule(schedule); err != nil {
			return err
		}
		if err := adjustTotal(sess, unreleased, false); err != nil {
			return err
		}
		pool, err := sess.VestingPool(schedule.Category)
		if err != nil {
			return err
		}
		committed := cloneAmount(pool.Committed)
		if unreleased.Gt(committed) {
			committed.Clear()
		} else {
			committed.Sub(committed, unreleased)
		}
		pool.Committed = committed
		if err := sess.PutVestingPool(pool); err != nil {
			return err
		}
		emitTo(buf, NewRevokedEvent(schedule, vested, unreleased))
		return nil
	})
}

// settle books amount as released on the schedule and category, then pays the
// beneficiary from the vault.
func (e *Engine) settle(sess Session, schedule *Schedule, amount *uint256.Int, category Category) error {
	schedule.Released = new(uint256.Int).Add(cloneAmount(schedule.Released), amount)
	if err := sess.PutVestingSchedule(schedule); err != nil {
		return err
	}
	if err := adjustTotal(sess, amount, false); err != nil {
		return err
	}
	pool, err := sess.VestingPool(category)
	if err != nil {
		return err
	}
	pool.Released = new(uint256.Int).Add(cloneAmount(pool.Released), amount)
	if err := sess.PutVestingPool(pool); err != nil {
		return err
	}
	return e.transfer(sess, schedule.Beneficiary, amount)
}

// GetVestingSchedulesCount returns the number of schedules ever created.
func (e *Engine) GetVestingSchedulesCount() (uint64, error) {
	var count uint64
	err := e.view(func(sess Session) error {
		var err error
		count, err = sess.VestingScheduleCount()
		return err
	})
	return count, err
}

// GetVestingSchedulesCountByBeneficiary returns how many schedules were created
// for holder.
func (e *Engine) GetVestingSchedulesCountByBeneficiary(holder [20]byte) (uint64, error) {
	var count uint64
	err := e.view(func(sess Session) error {
		var err error
		count, err = sess.VestingHolderCount(holder)
		return err
	})
	return count, err
}

// GetVestingIDAtIndex returns the identifier of the index-th schedule in
// creation order.
func (e *Engine) GetVestingIDAtIndex(index uint64) ([32]byte, error) {
	var id [32]byte
	err := e.view(func(sess Session) error {
		found, ok, err := sess.VestingScheduleIDAt(index)
		if err != nil {
			return err
		}
		if !ok {
			return ErrScheduleNotFound
		}
		id = found
		return nil
	})
	return id, err
}

// GetVestingSchedule returns a copy of the stored schedule. The category must
// name one of the pools.
func (e *Engine) GetVestingSchedule(id [32]byte, category Category) (*Schedule, error) {
	if !category.Valid() {
		return nil, ErrInvalidCategory
	}
	return e.getSchedule(id)
}

func (e *Engine) getSchedule(id [32]byte) (*Schedule, error) {
	var out *Schedule
	err := e.view(func(sess Session) error {
		schedule, err := loadSchedule(sess, id)
		if err != nil {
			return err
		}
		out = schedule
		return nil
	})
	return out, err
}

// GetVestingScheduleByAddressAndIndex resolves the index-th schedule of holder.
func (e *Engine) GetVestingScheduleByAddressAndIndex(holder [20]byte, index uint64) (*Schedule, error) {
	return e.getSchedule(ScheduleID(holder, index))
}

// GetLastVestingScheduleForHolder returns the most recent schedule of holder.
func (e *Engine) GetLastVestingScheduleForHolder(holder [20]byte) (*Schedule, error) {
	var out *Schedule
	err := e.view(func(sess Session) error {
		count, err := sess.VestingHolderCount(holder)
		if err != nil {
			return err
		}
		if count == 0 {
			return ErrScheduleNotFound
		}
		out, err = loadSchedule(sess, ScheduleID(holder, count-1))
		return err
	})
	return out, err
}

// ComputeReleasableAmount evaluates the schedule at the engine's current time.
func (e *Engine) ComputeReleasableAmount(id [32]byte, category Category) (*uint256.Int, error) {
	if !category.Valid() {
		return nil, ErrInvalidCategory
	}
	var out *uint256.Int
	err := e.view(func(sess Session) error {
		schedule, err := loadSchedule(sess, id)
		if err != nil {
			return err
		}
		out = ComputeReleasable(schedule, e.now())
		return nil
	})
	return out, err
}

// ComputeVestingScheduleIDForAddressAndIndex derives the identifier without
// touching state.
func (e *Engine) ComputeVestingScheduleIDForAddressAndIndex(holder [20]byte, index uint64) [32]byte {
	return ScheduleID(holder, index)
}

// ComputeNextVestingScheduleIDForHolder returns the identifier the next
// schedule created for holder will receive.
func (e *Engine) ComputeNextVestingScheduleIDForHolder(holder [20]byte) ([32]byte, error) {
	var id [32]byte
	err := e.view(func(sess Session) error {
		count, err := sess.VestingHolderCount(holder)
		if err != nil {
			return err
		}
		id = ScheduleID(holder, count)
		return nil
	})
	return id, err
}

func loadSchedule(sess Session, id [32]byte) (*Schedule, error) {
	schedule, ok, err := sess.VestingSchedule(id)
	if err != nil {
		return nil, err
	}
	if !ok || schedule == nil || !schedule.Initialized {
		return nil, ErrScheduleNotFound
	}
	return schedule.Clone(), nil
}

func adjustTotal(sess Session, delta *uint256.Int, add bool) error {
	total, err := sess.VestingTotal()
	if err != nil {
		return err
	}
	next := cloneAmount(total)
	if add {
		next.Add(next, delta)
	} else if delta.Gt(next) {
		next.Clear()
	} else {
		next.Sub(next, delta)
	}
	return sess.PutVestingTotal(next)
}

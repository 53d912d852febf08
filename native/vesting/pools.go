package vesting

import (
	"fmt"

	"github.com/holiman/uint256"

	"tokenvesting/core/events"
)

// SetTGE records the TGE percentage of each category. Each call overwrites the
// previous configuration; balances only change on the next CalculatePools.
func (e *Engine) SetTGE(caller [20]byte, tge TGE) error {
	for _, c := range Categories {
		if tge.Percent(c) > 100 {
			return fmt.Errorf("%w: %s=%d", ErrInvalidPercent, c, tge.Percent(c))
		}
	}
	return e.update(func(sess Session, buf *events.Buffer) error {
		if err := e.requireOwner(sess, caller); err != nil {
			return err
		}
		for _, c := range Categories {
			pool, err := sess.VestingPool(c)
			if err != nil {
				return err
			}
			pool.TGEPercent = tge.Percent(c)
			if err := sess.PutVestingPool(pool); err != nil {
				return err
			}
		}
		emitTo(buf, NewTGEConfiguredEvent(tge))
		return nil
	})
}

// GetTGE returns the configured percentages.
func (e *Engine) GetTGE() (TGE, error) {
	var out TGE
	err := e.view(func(sess Session) error {
		pools, err := loadPools(sess)
		if err != nil {
			return err
		}
		out = TGE{
			AdvisersPartnerships: pools[CategoryAdvisersPartnerships].TGEPercent,
			Marketing:            pools[CategoryMarketing].TGEPercent,
			ReserveFunds:         pools[CategoryReserveFunds].TGEPercent,
		}
		return nil
	})
	return out, err
}

// CalculatePools splits the current vault balance into per-category TGE banks
// and vesting pools. Re-running it recomputes every pool from the balance held
// at that moment.
func (e *Engine) CalculatePools(caller [20]byte) error {
	return e.update(func(sess Session, buf *events.Buffer) error {
		if err := e.requireOwner(sess, caller); err != nil {
			return err
		}
		balance, err := sess.Ledger().BalanceOf(e.vault)
		if err != nil {
			return err
		}
		pools, err := loadPools(sess)
		if err != nil {
			return err
		}
		for _, pool := range pools {
			pool.TGEBank, pool.VestingPool = SplitAllocation(balance, e.allocations.Bps(pool.Category), pool.TGEPercent)
			if err := sess.PutVestingPool(pool); err != nil {
				return err
			}
		}
		emitTo(buf, NewPoolsCalculatedEvent(balance, pools))
		return nil
	})
}

// WithdrawFromTGEBank pays amount out of the category's TGE bank to the owner.
func (e *Engine) WithdrawFromTGEBank(caller [20]byte, category Category, amount *uint256.Int) error {
	if !category.Valid() {
		return ErrInvalidCategory
	}
	if amount == nil || amount.IsZero() {
		return ErrInvalidAmount
	}
	return e.update(func(sess Session, buf *events.Buffer) error {
		if err := e.requireOwner(sess, caller); err != nil {
			return err
		}
		pool, err := sess.VestingPool(category)
		if err != nil {
			return err
		}
		if amount.Gt(cloneAmount(pool.TGEBank)) {
			return ErrInsufficientBankBalance
		}
		held, err := sess.Ledger().BalanceOf(e.vault)
		if err != nil {
			return err
		}
		locked, err := sess.VestingTotal()
		if err != nil {
			return err
		}
		needed := new(uint256.Int).Add(cloneAmount(locked), amount)
		if needed.Gt(held) {
			return ErrInsufficientFunds
		}
		pool.TGEBank = new(uint256.Int).Sub(cloneAmount(pool.TGEBank), amount)
		pool.Released = new(uint256.Int).Add(cloneAmount(pool.Released), amount)
		if err := sess.PutVestingPool(pool); err != nil {
			return err
		}
		if err := e.transfer(sess, caller, amount); err != nil {
			return err
		}
		emitTo(buf, NewTGEWithdrawnEvent(pool, amount, caller))
		return nil
	})
}

// GetPool returns a copy of one category's pool.
func (e *Engine) GetPool(category Category) (*Pool, error) {
	if !category.Valid() {
		return nil, ErrInvalidCategory
	}
	var out *Pool
	err := e.view(func(sess Session) error {
		pool, err := sess.VestingPool(category)
		if err != nil {
			return err
		}
		out = pool.Clone()
		return nil
	})
	return out, err
}

// GetPools returns every pool in category order.
func (e *Engine) GetPools() ([]*Pool, error) {
	var out []*Pool
	err := e.view(func(sess Session) error {
		var err error
		out, err = loadPools(sess)
		return err
	})
	return out, err
}

func loadPools(sess Session) ([]*Pool, error) {
	pools := make([]*Pool, 0, len(Categories))
	for _, c := range Categories {
		pool, err := sess.VestingPool(c)
		if err != nil {
			return nil, err
		}
		pools = append(pools, pool)
	}
	return pools, nil
}

package vesting

import (
	"fmt"
	"math"
	"math/bits"
	"strconv"
	"strings"

	"github.com/holiman/uint256"
)

// Category identifies one of the three allocation pools.
type Category uint8

const (
	CategoryAdvisersPartnerships Category = iota
	CategoryMarketing
	CategoryReserveFunds
)

// Categories lists every pool in storage order.
var Categories = []Category{CategoryAdvisersPartnerships, CategoryMarketing, CategoryReserveFunds}

// Valid reports whether the category value is within the supported range.
func (c Category) Valid() bool {
	switch c {
	case CategoryAdvisersPartnerships, CategoryMarketing, CategoryReserveFunds:
		return true
	default:
		return false
	}
}

func (c Category) String() string {
	switch c {
	case CategoryAdvisersPartnerships:
		return "advisers_partnerships"
	case CategoryMarketing:
		return "marketing"
	case CategoryReserveFunds:
		return "reserve_funds"
	default:
		return "unknown(" + strconv.Itoa(int(c)) + ")"
	}
}

// ParseCategory accepts either the numeric pool index or its canonical name.
func ParseCategory(value string) (Category, error) {
	trimmed := strings.ToLower(strings.TrimSpace(value))
	if n, err := strconv.ParseUint(trimmed, 10, 8); err == nil {
		c := Category(n)
		if !c.Valid() {
			return 0, fmt.Errorf("%w: %d", ErrInvalidCategory, n)
		}
		return c, nil
	}
	for _, c := range Categories {
		if c.String() == trimmed {
			return c, nil
		}
	}
	switch trimmed {
	case "advisers", "partnerships", "advisersandpartnerships":
		return CategoryAdvisersPartnerships, nil
	case "reserve", "reservefunds":
		return CategoryReserveFunds, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidCategory, value)
}

// Schedule is a single beneficiary's vesting grant. Cliff is stored as an
// absolute timestamp (start + cliff duration). Everything except Released and
// Revoked is immutable once stored.
type Schedule struct {
	ID                 [32]byte
	Initialized        bool
	Beneficiary        [20]byte
	Category           Category
	Cliff              uint64
	Start              uint64
	Duration           uint64
	SlicePeriodSeconds uint64
	Revocable          bool
	AmountTotal        *uint256.Int
	Released           *uint256.Int
	Revoked            bool
}

// Clone returns a deep copy of the schedule so callers can mutate the copy
// without affecting the stored instance.
func (s *Schedule) Clone() *Schedule {
	if s == nil {
		return nil
	}
	clone := *s
	clone.AmountTotal = cloneAmount(s.AmountTotal)
	clone.Released = cloneAmount(s.Released)
	return &clone
}

// End returns the timestamp at which the schedule is fully vested, saturating
// at math.MaxUint64.
func (s *Schedule) End() uint64 {
	end, carry := bits.Add64(s.Start, s.Duration, 0)
	if carry != 0 {
		return math.MaxUint64
	}
	return end
}

// Unreleased returns AmountTotal - Released.
func (s *Schedule) Unreleased() *uint256.Int {
	total := cloneAmount(s.AmountTotal)
	released := cloneAmount(s.Released)
	if released.Gt(total) {
		return uint256.NewInt(0)
	}
	return total.Sub(total, released)
}

// Pool captures the TGE configuration and balances of one category.
// Committed and Released are bookkeeping tallies of schedule activity booked
// against the category; they do not alter the pool balances.
type Pool struct {
	Category    Category
	TGEPercent  uint8
	TGEBank     *uint256.Int
	VestingPool *uint256.Int
	Committed   *uint256.Int
	Released    *uint256.Int
}

// NewPool returns an empty pool for the category.
func NewPool(c Category) *Pool {
	return &Pool{
		Category:    c,
		TGEBank:     uint256.NewInt(0),
		VestingPool: uint256.NewInt(0),
		Committed:   uint256.NewInt(0),
		Released:    uint256.NewInt(0),
	}
}

func (p *Pool) Clone() *Pool {
	if p == nil {
		return nil
	}
	clone := *p
	clone.TGEBank = cloneAmount(p.TGEBank)
	clone.VestingPool = cloneAmount(p.VestingPool)
	clone.Committed = cloneAmount(p.Committed)
	clone.Released = cloneAmount(p.Released)
	return &clone
}

// Reserved returns TGEBank + VestingPool.
func (p *Pool) Reserved() *uint256.Int {
	out := cloneAmount(p.TGEBank)
	return out.Add(out, cloneAmount(p.VestingPool))
}

// TGE mirrors the three percentages configured by SetTGE.
type TGE struct {
	AdvisersPartnerships uint8
	Marketing            uint8
	ReserveFunds         uint8
}

// Percent returns the configured percentage for the category.
func (t TGE) Percent(c Category) uint8 {
	switch c {
	case CategoryAdvisersPartnerships:
		return t.AdvisersPartnerships
	case CategoryMarketing:
		return t.Marketing
	case CategoryReserveFunds:
		return t.ReserveFunds
	default:
		return 0
	}
}

// CreateParams carries the inputs of CreateVestingSchedule. Cliff is a
// duration relative to Start.
type CreateParams struct {
	Category           Category
	Beneficiary        [20]byte
	Start              uint64
	Cliff              uint64
	Duration           uint64
	SlicePeriodSeconds uint64
	Revocable          bool
	Amount             *uint256.Int
}

func cloneAmount(v *uint256.Int) *uint256.Int {
	if v == nil {
		return uint256.NewInt(0)
	}
	return new(uint256.Int).Set(v)
}

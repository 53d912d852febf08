package vesting

import "github.com/holiman/uint256"

// ComputeReleasable returns the amount of the schedule that may be released at
// now. The result is floored at zero and never exceeds AmountTotal - Released.
//
// Vesting is linear between Start and Start+Duration and quantised to whole
// slice periods. Nothing vests before the cliff or after revocation.
func ComputeReleasable(s *Schedule, now uint64) *uint256.Int {
	if s == nil || s.Revoked || now < s.Cliff {
		return uint256.NewInt(0)
	}
	if now >= s.End() {
		return s.Unreleased()
	}
	if now < s.Start || s.Duration == 0 {
		return uint256.NewInt(0)
	}
	slice := s.SlicePeriodSeconds
	if slice == 0 {
		slice = 1
	}
	elapsed := now - s.Start
	vestedSeconds := (elapsed / slice) * slice

	total := cloneAmount(s.AmountTotal)
	vested, overflow := new(uint256.Int).MulDivOverflow(total, uint256.NewInt(vestedSeconds), uint256.NewInt(s.Duration))
	if overflow {
		// unreachable while vestedSeconds < Duration
		vested = total
	}
	released := cloneAmount(s.Released)
	if released.Gt(vested) {
		return uint256.NewInt(0)
	}
	return vested.Sub(vested, released)
}

// SplitAllocation divides balance*bps/10000 into the TGE bank (percent of the
// allocation, floored) and the vesting pool (the remainder).
func SplitAllocation(balance *uint256.Int, bps uint16, percent uint8) (tgeBank, pool *uint256.Int) {
	allocation, _ := new(uint256.Int).MulDivOverflow(cloneAmount(balance), uint256.NewInt(uint64(bps)), uint256.NewInt(BasisPoints))
	tgeBank, _ = new(uint256.Int).MulDivOverflow(allocation, uint256.NewInt(uint64(percent)), uint256.NewInt(100))
	pool = new(uint256.Int).Sub(allocation, tgeBank)
	return tgeBank, pool
}

package vesting

import "fmt"

// BasisPoints is the denominator of allocation shares.
const BasisPoints = 10_000

// Allocations holds the share of the vault balance assigned to each category,
// expressed in basis points of the balance at CalculatePools time.
type Allocations struct {
	AdvisersPartnershipsBps uint16
	MarketingBps            uint16
	ReserveFundsBps         uint16
}

// DefaultAllocations splits 10% / 6% / 4% of the vault balance.
func DefaultAllocations() Allocations {
	return Allocations{
		AdvisersPartnershipsBps: 1_000,
		MarketingBps:            600,
		ReserveFundsBps:         400,
	}
}

// Bps returns the allocation for the category.
func (a Allocations) Bps(c Category) uint16 {
	switch c {
	case CategoryAdvisersPartnerships:
		return a.AdvisersPartnershipsBps
	case CategoryMarketing:
		return a.MarketingBps
	case CategoryReserveFunds:
		return a.ReserveFundsBps
	default:
		return 0
	}
}

// Validate ensures the three shares fit within the balance.
func (a Allocations) Validate() error {
	total := uint32(a.AdvisersPartnershipsBps) + uint32(a.MarketingBps) + uint32(a.ReserveFundsBps)
	if total > BasisPoints {
		return fmt.Errorf("vesting: allocations total %d bps exceeds %d", total, BasisPoints)
	}
	return nil
}

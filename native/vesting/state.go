package vesting

import "github.com/holiman/uint256"

// State is the persistence surface the engine needs. Reads observe writes made
// earlier in the same session.
type State interface {
	VestingOwner() ([20]byte, bool, error)
	PutVestingOwner(owner [20]byte) error

	VestingPool(c Category) (*Pool, error)
	PutVestingPool(p *Pool) error

	// VestingTotal is the sum of AmountTotal - Released over every schedule
	// that has not been revoked.
	VestingTotal() (*uint256.Int, error)
	PutVestingTotal(total *uint256.Int) error

	VestingSchedule(id [32]byte) (*Schedule, bool, error)
	PutVestingSchedule(s *Schedule) error
	VestingScheduleCount() (uint64, error)
	VestingScheduleIDAt(index uint64) ([32]byte, bool, error)
	AppendVestingScheduleID(id [32]byte) error
	VestingHolderCount(holder [20]byte) (uint64, error)
	PutVestingHolderCount(holder [20]byte, count uint64) error
}

// Ledger is the fungible-token collaborator holding the vault balance.
type Ledger interface {
	Address() [20]byte
	Transfer(from, to [20]byte, amount *uint256.Int) error
	BalanceOf(addr [20]byte) (*uint256.Int, error)
	TotalSupply() (*uint256.Int, error)
}

// Session is a unit of work over State and the token ledger. Commit applies
// every staged write atomically; Discard drops them.
type Session interface {
	State
	Ledger() Ledger
	Commit() error
	Discard()
}

// Backend opens sessions.
type Backend interface {
	Begin() (Session, error)
}

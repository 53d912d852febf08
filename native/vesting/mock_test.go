package vesting

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/holiman/uint256"

	"tokenvesting/core/events"
)

var errMockTransfer = errors.New("mock: insufficient balance")

// mockState is an in-memory snapshot of the vesting tables and token balances.
type mockState struct {
	owner       *[20]byte
	pools       map[Category]*Pool
	total       *uint256.Int
	schedules   map[[32]byte]*Schedule
	index       [][32]byte
	holderCount map[[20]byte]uint64
	balances    map[[20]byte]*uint256.Int
	supply      *uint256.Int
}

func newMockState() *mockState {
	return &mockState{
		pools:       make(map[Category]*Pool),
		total:       uint256.NewInt(0),
		schedules:   make(map[[32]byte]*Schedule),
		holderCount: make(map[[20]byte]uint64),
		balances:    make(map[[20]byte]*uint256.Int),
		supply:      uint256.NewInt(0),
	}
}

func (m *mockState) clone() *mockState {
	out := newMockState()
	if m.owner != nil {
		owner := *m.owner
		out.owner = &owner
	}
	for c, p := range m.pools {
		out.pools[c] = p.Clone()
	}
	out.total = cloneAmount(m.total)
	for id, s := range m.schedules {
		out.schedules[id] = s.Clone()
	}
	out.index = append([][32]byte(nil), m.index...)
	for k, v := range m.holderCount {
		out.holderCount[k] = v
	}
	for k, v := range m.balances {
		out.balances[k] = cloneAmount(v)
	}
	out.supply = cloneAmount(m.supply)
	return out
}

type mockBackend struct {
	committed    *mockState
	token        [20]byte
	failCommit   bool
	failTransfer bool
}

func newMockBackend() *mockBackend {
	return &mockBackend{committed: newMockState(), token: newTestAddress(0xEE)}
}

func (b *mockBackend) Begin() (Session, error) {
	return &mockSession{backend: b, mockState: b.committed.clone()}, nil
}

func (b *mockBackend) mint(to [20]byte, amount uint64) {
	bal := cloneAmount(b.committed.balances[to])
	b.committed.balances[to] = bal.Add(bal, uint256.NewInt(amount))
	b.committed.supply.Add(b.committed.supply, uint256.NewInt(amount))
}

func (b *mockBackend) balance(addr [20]byte) *uint256.Int {
	return cloneAmount(b.committed.balances[addr])
}

type mockSession struct {
	*mockState
	backend *mockBackend
	closed  bool
}

func (s *mockSession) Ledger() Ledger { return mockLedger{s} }

func (s *mockSession) Commit() error {
	if s.closed {
		return fmt.Errorf("mock: session closed")
	}
	s.closed = true
	if s.backend.failCommit {
		return fmt.Errorf("mock: commit failed")
	}
	s.backend.committed = s.mockState
	return nil
}

func (s *mockSession) Discard() { s.closed = true }

func (m *mockState) VestingOwner() ([20]byte, bool, error) {
	if m.owner == nil {
		return [20]byte{}, false, nil
	}
	return *m.owner, true, nil
}

func (m *mockState) PutVestingOwner(owner [20]byte) error {
	m.owner = &owner
	return nil
}

func (m *mockState) VestingPool(c Category) (*Pool, error) {
	if p, ok := m.pools[c]; ok {
		return p.Clone(), nil
	}
	return NewPool(c), nil
}

func (m *mockState) PutVestingPool(p *Pool) error {
	m.pools[p.Category] = p.Clone()
	return nil
}

func (m *mockState) VestingTotal() (*uint256.Int, error) { return cloneAmount(m.total), nil }

func (m *mockState) PutVestingTotal(total *uint256.Int) error {
	m.total = cloneAmount(total)
	return nil
}

func (m *mockState) VestingSchedule(id [32]byte) (*Schedule, bool, error) {
	s, ok := m.schedules[id]
	if !ok {
		return nil, false, nil
	}
	return s.Clone(), true, nil
}

func (m *mockState) PutVestingSchedule(s *Schedule) error {
	m.schedules[s.ID] = s.Clone()
	return nil
}

func (m *mockState) VestingScheduleCount() (uint64, error) { return uint64(len(m.index)), nil }

func (m *mockState) VestingScheduleIDAt(index uint64) ([32]byte, bool, error) {
	if index >= uint64(len(m.index)) {
		return [32]byte{}, false, nil
	}
	return m.index[index], true, nil
}

func (m *mockState) AppendVestingScheduleID(id [32]byte) error {
	m.index = append(m.index, id)
	return nil
}

func (m *mockState) VestingHolderCount(holder [20]byte) (uint64, error) {
	return m.holderCount[holder], nil
}

func (m *mockState) PutVestingHolderCount(holder [20]byte, count uint64) error {
	m.holderCount[holder] = count
	return nil
}

type mockLedger struct{ s *mockSession }

func (l mockLedger) Address() [20]byte { return l.s.backend.token }

func (l mockLedger) Transfer(from, to [20]byte, amount *uint256.Int) error {
	if l.s.backend.failTransfer {
		return errMockTransfer
	}
	fromBal := cloneAmount(l.s.balances[from])
	if amount.Gt(fromBal) {
		return errMockTransfer
	}
	l.s.balances[from] = fromBal.Sub(fromBal, amount)
	toBal := cloneAmount(l.s.balances[to])
	l.s.balances[to] = toBal.Add(toBal, amount)
	return nil
}

func (l mockLedger) BalanceOf(addr [20]byte) (*uint256.Int, error) {
	return cloneAmount(l.s.balances[addr]), nil
}

func (l mockLedger) TotalSupply() (*uint256.Int, error) { return cloneAmount(l.s.supply), nil }

type recordingEmitter struct{ events []events.Event }

func (r *recordingEmitter) Emit(evt events.Event) { r.events = append(r.events, evt) }

func (r *recordingEmitter) types() []string {
	out := make([]string, 0, len(r.events))
	for _, evt := range r.events {
		out = append(out, evt.EventType())
	}
	return out
}

func newTestAddress(fill byte) [20]byte {
	var addr [20]byte
	copy(addr[:], bytes.Repeat([]byte{fill}, 20))
	return addr
}

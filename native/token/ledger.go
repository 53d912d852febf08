package token

import (
	"fmt"

	"github.com/holiman/uint256"

	"tokenvesting/core/events"
)

// State persists balances and the total supply.
type State interface {
	TokenBalance(addr [20]byte) (*uint256.Int, error)
	PutTokenBalance(addr [20]byte, amount *uint256.Int) error
	TokenSupply() (*uint256.Int, error)
	PutTokenSupply(amount *uint256.Int) error
}

// Metadata describes the token for clients.
type Metadata struct {
	Address  [20]byte
	Symbol   string
	Name     string
	Decimals uint8
}

// Ledger is a minimal fungible-token ledger with ERC-20 transfer semantics.
type Ledger struct {
	meta    Metadata
	state   State
	emitter events.Emitter
}

// NewLedger binds the token metadata to a state backend.
func NewLedger(meta Metadata, state State) *Ledger {
	return &Ledger{meta: meta, state: state, emitter: events.NoopEmitter{}}
}

// SetEmitter configures where Transfer and Mint events go. Passing nil resets
// the emitter to a no-op implementation.
func (l *Ledger) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		l.emitter = events.NoopEmitter{}
		return
	}
	l.emitter = emitter
}

func (l *Ledger) Address() [20]byte { return l.meta.Address }

func (l *Ledger) Metadata() Metadata { return l.meta }

func (l *Ledger) BalanceOf(addr [20]byte) (*uint256.Int, error) {
	if l.state == nil {
		return nil, ErrNilState
	}
	return l.state.TokenBalance(addr)
}

func (l *Ledger) TotalSupply() (*uint256.Int, error) {
	if l.state == nil {
		return nil, ErrNilState
	}
	return l.state.TokenSupply()
}

// Transfer moves amount from one account to another. A zero amount is a
// no-op, as with ERC-20.
func (l *Ledger) Transfer(from, to [20]byte, amount *uint256.Int) error {
	if l.state == nil {
		return ErrNilState
	}
	if amount == nil || amount.IsZero() {
		return nil
	}
	fromBal, err := l.state.TokenBalance(from)
	if err != nil {
		return err
	}
	if amount.Gt(fromBal) {
		return fmt.Errorf("%w: have %s, need %s", ErrInsufficientBalance, fromBal.Dec(), amount.Dec())
	}
	if from != to {
		toBal, err := l.state.TokenBalance(to)
		if err != nil {
			return err
		}
		if err := l.state.PutTokenBalance(from, new(uint256.Int).Sub(fromBal, amount)); err != nil {
			return err
		}
		if err := l.state.PutTokenBalance(to, new(uint256.Int).Add(toBal, amount)); err != nil {
			return err
		}
	}
	l.emitter.Emit(tokenEvent{evt: NewTransferEvent(l.meta.Address, from, to, amount)})
	return nil
}

// Mint creates amount new units credited to to.
func (l *Ledger) Mint(to [20]byte, amount *uint256.Int) error {
	if l.state == nil {
		return ErrNilState
	}
	if amount == nil || amount.IsZero() {
		return ErrInvalidAmount
	}
	supply, err := l.state.TokenSupply()
	if err != nil {
		return err
	}
	next, overflow := new(uint256.Int).AddOverflow(supply, amount)
	if overflow {
		return ErrSupplyOverflow
	}
	bal, err := l.state.TokenBalance(to)
	if err != nil {
		return err
	}
	if err := l.state.PutTokenBalance(to, new(uint256.Int).Add(bal, amount)); err != nil {
		return err
	}
	if err := l.state.PutTokenSupply(next); err != nil {
		return err
	}
	l.emitter.Emit(tokenEvent{evt: NewMintEvent(l.meta.Address, to, amount)})
	return nil
}

package vesting

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/holiman/uint256"

	"tokenvesting/core/events"
	"tokenvesting/core/types"
)

var errNilBackend = errors.New("vesting: backend not configured")

// Engine owns the vesting ledger: TGE pools, schedules and the release/revoke
// flow. Every mutation runs in one backend session under the engine lock, and
// events are published only after the session commits.
type Engine struct {
	mu          sync.RWMutex
	backend     Backend
	emitter     events.Emitter
	vault       [20]byte
	allocations Allocations
	nowFn       func() int64
}

// NewEngine creates a vesting engine with a no-op emitter and the default
// allocation split.
func NewEngine() *Engine {
	return &Engine{
		emitter:     events.NoopEmitter{},
		allocations: DefaultAllocations(),
		nowFn:       func() int64 { return time.Now().Unix() },
	}
}

// SetBackend configures the state backend used by the engine.
func (e *Engine) SetBackend(backend Backend) { e.backend = backend }

// SetVault configures the account whose token balance funds every pool and
// schedule.
func (e *Engine) SetVault(addr [20]byte) { e.vault = addr }

// Vault returns the funding account.
func (e *Engine) Vault() [20]byte { return e.vault }

// SetAllocations overrides the category shares used by CalculatePools.
func (e *Engine) SetAllocations(a Allocations) error {
	if err := a.Validate(); err != nil {
		return err
	}
	e.mu.Lock()
	e.allocations = a
	e.mu.Unlock()
	return nil
}

// SetNowFunc overrides the time source used by the engine. Primarily intended
// for tests to provide deterministic timestamps.
func (e *Engine) SetNowFunc(now func() int64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if now == nil {
		e.nowFn = func() int64 { return time.Now().Unix() }
		return
	}
	e.nowFn = now
}

// SetEmitter configures the event emitter used by the engine. Passing nil resets
// the emitter to a no-op implementation.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

// Initialize records owner as the ledger administrator on first use. Later
// calls must present the same owner.
func (e *Engine) Initialize(owner [20]byte) error {
	return e.update(func(sess Session, buf *events.Buffer) error {
		stored, ok, err := sess.VestingOwner()
		if err != nil {
			return err
		}
		if ok {
			if stored != owner {
				return ErrOwnerMismatch
			}
			return nil
		}
		if err := sess.PutVestingOwner(owner); err != nil {
			return err
		}
		total, err := sess.VestingTotal()
		if err != nil {
			return err
		}
		if err := sess.PutVestingTotal(total); err != nil {
			return err
		}
		for _, c := range Categories {
			pool, err := sess.VestingPool(c)
			if err != nil {
				return err
			}
			if err := sess.PutVestingPool(pool); err != nil {
				return err
			}
		}
		emitTo(buf, NewOwnerInitializedEvent(owner))
		return nil
	})
}

// Owner returns the persisted owner identity.
func (e *Engine) Owner() ([20]byte, error) {
	var owner [20]byte
	err := e.view(func(sess Session) error {
		var err error
		owner, err = e.loadOwner(sess)
		return err
	})
	return owner, err
}

// GetToken returns the identity of the token ledger backing the vault.
func (e *Engine) GetToken() ([20]byte, error) {
	var token [20]byte
	err := e.view(func(sess Session) error {
		ledger := sess.Ledger()
		if ledger == nil {
			return errNilBackend
		}
		token = ledger.Address()
		return nil
	})
	return token, err
}

// GetWithdrawableAmount returns the vault balance not committed to pools or
// to unreleased, unrevoked schedules, floored at zero.
func (e *Engine) GetWithdrawableAmount() (*uint256.Int, error) {
	var out *uint256.Int
	err := e.view(func(sess Session) error {
		var err error
		out, err = e.withdrawable(sess)
		return err
	})
	return out, err
}

func (e *Engine) withdrawable(sess Session) (*uint256.Int, error) {
	held, err := sess.Ledger().BalanceOf(e.vault)
	if err != nil {
		return nil, err
	}
	committed, err := sess.VestingTotal()
	if err != nil {
		return nil, err
	}
	committed = cloneAmount(committed)
	for _, c := range Categories {
		pool, err := sess.VestingPool(c)
		if err != nil {
			return nil, err
		}
		committed.Add(committed, pool.Reserved())
	}
	out := cloneAmount(held)
	if committed.Gt(out) {
		return uint256.NewInt(0), nil
	}
	return out.Sub(out, committed), nil
}

func (e *Engine) update(fn func(sess Session, buf *events.Buffer) error) error {
	if e == nil || e.backend == nil {
		return errNilBackend
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	sess, err := e.backend.Begin()
	if err != nil {
		return err
	}
	var buf events.Buffer
	if err := fn(sess, &buf); err != nil {
		sess.Discard()
		return err
	}
	if err := sess.Commit(); err != nil {
		return fmt.Errorf("vesting: commit: %w", err)
	}
	buf.Flush(e.emitter)
	return nil
}

func (e *Engine) view(fn func(sess Session) error) error {
	if e == nil || e.backend == nil {
		return errNilBackend
	}
	e.mu.RLock()
	defer e.mu.RUnlock()
	sess, err := e.backend.Begin()
	if err != nil {
		return err
	}
	defer sess.Discard()
	return fn(sess)
}

func (e *Engine) loadOwner(sess Session) ([20]byte, error) {
	owner, ok, err := sess.VestingOwner()
	if err != nil {
		return [20]byte{}, err
	}
	if !ok {
		return [20]byte{}, ErrNotInitialized
	}
	return owner, nil
}

func (e *Engine) requireOwner(sess Session, caller [20]byte) error {
	owner, err := e.loadOwner(sess)
	if err != nil {
		return err
	}
	if caller != owner {
		return ErrUnauthorized
	}
	return nil
}

func (e *Engine) transfer(sess Session, to [20]byte, amount *uint256.Int) error {
	if err := sess.Ledger().Transfer(e.vault, to, amount); err != nil {
		return fmt.Errorf("%w: %w", ErrTransferFailed, err)
	}
	return nil
}

// now must be called with e.mu held.
func (e *Engine) now() uint64 {
	ts := e.nowFn()
	if ts < 0 {
		return 0
	}
	return uint64(ts)
}

func emitTo(buf *events.Buffer, evt *types.Event) {
	if buf == nil || evt == nil {
		return
	}
	buf.Emit(vestingEvent{evt: evt})
}

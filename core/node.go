package core

import (
	"fmt"
	"sync"

	"github.com/holiman/uint256"

	"tokenvesting/core/events"
	vestingstate "tokenvesting/core/state"
	"tokenvesting/native/token"
	"tokenvesting/native/vesting"
	"tokenvesting/storage"
)

// NodeConfig carries the identities and parameters the node is built from.
type NodeConfig struct {
	Owner       [20]byte
	Vault       [20]byte
	Token       token.Metadata
	Allocations vesting.Allocations
	// Sinks receive every committed event in addition to live subscribers.
	Sinks []events.Emitter
}

// Node is the central controller, wiring storage, the token ledger and the
// vesting engine together.
type Node struct {
	db      storage.Database
	state   *vestingstate.Manager
	token   token.Metadata
	engine  *vesting.Engine
	bus     *events.Bus
	closeMu sync.Once
}

// NewNode opens the vesting engine over db and records the configured owner.
func NewNode(db storage.Database, cfg NodeConfig) (*Node, error) {
	if db == nil {
		return nil, fmt.Errorf("core: database required")
	}
	if cfg.Owner == ([20]byte{}) {
		return nil, fmt.Errorf("core: owner address required")
	}
	if cfg.Vault == ([20]byte{}) {
		return nil, fmt.Errorf("core: vault address required")
	}
	node := &Node{
		db:    db,
		state: vestingstate.NewManager(db),
		token: cfg.Token,
		bus:   events.NewBus(cfg.Sinks...),
	}
	engine := vesting.NewEngine()
	engine.SetBackend(node)
	engine.SetVault(cfg.Vault)
	engine.SetEmitter(node.bus)
	if cfg.Allocations != (vesting.Allocations{}) {
		if err := engine.SetAllocations(cfg.Allocations); err != nil {
			return nil, err
		}
	}
	if err := engine.Initialize(cfg.Owner); err != nil {
		return nil, err
	}
	node.engine = engine
	return node, nil
}

// Engine exposes the vesting engine.
func (n *Node) Engine() *vesting.Engine { return n.engine }

// Events exposes the committed-event bus.
func (n *Node) Events() *events.Bus { return n.bus }

// Token returns the token metadata.
func (n *Node) Token() token.Metadata { return n.token }

// Begin implements vesting.Backend. Token transfers made through the session's
// ledger are published only after the session commits.
func (n *Node) Begin() (vesting.Session, error) {
	tx := n.state.Begin()
	sess := &session{Tx: tx, bus: n.bus}
	sess.ledger = token.NewLedger(n.token, tx)
	sess.ledger.SetEmitter(&sess.pending)
	return sess, nil
}

// BalanceOf reads a committed token balance.
func (n *Node) BalanceOf(addr [20]byte) (*uint256.Int, error) {
	sess, err := n.Begin()
	if err != nil {
		return nil, err
	}
	defer sess.Discard()
	return sess.Ledger().BalanceOf(addr)
}

// TotalSupply reads the committed token supply.
func (n *Node) TotalSupply() (*uint256.Int, error) {
	sess, err := n.Begin()
	if err != nil {
		return nil, err
	}
	defer sess.Discard()
	return sess.Ledger().TotalSupply()
}

// Close releases the database.
func (n *Node) Close() error {
	var err error
	n.closeMu.Do(func() { err = n.db.Close() })
	return err
}

type session struct {
	*vestingstate.Tx
	ledger  *token.Ledger
	pending events.Buffer
	bus     events.Emitter
}

func (s *session) Ledger() vesting.Ledger { return s.ledger }

func (s *session) Commit() error {
	if err := s.Tx.Commit(); err != nil {
		s.pending.Reset()
		return err
	}
	s.pending.Flush(s.bus)
	return nil
}

func (s *session) Discard() {
	s.pending.Reset()
	s.Tx.Discard()
}

var _ vesting.Backend = (*Node)(nil)

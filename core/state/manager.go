package state

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"

	"tokenvesting/storage"
)

var errTxClosed = errors.New("state: transaction already closed")

// Manager provides transactional access to the key-value store backing the
// vesting ledger.
type Manager struct {
	db storage.Database
	// commitMu serialises batch writes so overlapping transactions commit in a
	// well-defined order.
	commitMu sync.Mutex
}

// NewManager creates a state manager operating on the provided database.
func NewManager(db storage.Database) *Manager {
	return &Manager{db: db}
}

// Begin opens a transaction whose writes stay private until Commit.
func (m *Manager) Begin() *Tx {
	return &Tx{manager: m, writes: make(map[string]*stagedValue)}
}

func kvKey(key []byte) []byte {
	return ethcrypto.Keccak256(key)
}

type stagedValue struct {
	data    []byte
	deleted bool
}

// Tx stages RLP-encoded writes over the manager's database.
type Tx struct {
	manager *Manager
	writes  map[string]*stagedValue
	closed  bool
}

// KVPut stores the provided value under the supplied key using RLP encoding.
// The key is hashed with keccak256 before it reaches the database.
func (tx *Tx) KVPut(key []byte, value interface{}) error {
	if tx.closed {
		return errTxClosed
	}
	if len(key) == 0 {
		return fmt.Errorf("kv: key must not be empty")
	}
	encoded, err := rlp.EncodeToBytes(value)
	if err != nil {
		return err
	}
	tx.writes[string(kvKey(key))] = &stagedValue{data: encoded}
	return nil
}

// KVDelete removes the key when the transaction commits.
func (tx *Tx) KVDelete(key []byte) error {
	if tx.closed {
		return errTxClosed
	}
	if len(key) == 0 {
		return fmt.Errorf("kv: key must not be empty")
	}
	tx.writes[string(kvKey(key))] = &stagedValue{deleted: true}
	return nil
}

// KVGet retrieves the value stored under the supplied key and decodes it into
// the provided destination. The boolean return value indicates whether the key
// existed in state.
func (tx *Tx) KVGet(key []byte, out interface{}) (bool, error) {
	if tx.closed {
		return false, errTxClosed
	}
	if len(key) == 0 {
		return false, fmt.Errorf("kv: key must not be empty")
	}
	hashed := kvKey(key)
	var data []byte
	if staged, ok := tx.writes[string(hashed)]; ok {
		if staged.deleted {
			return false, nil
		}
		data = staged.data
	} else {
		raw, err := tx.manager.db.Get(hashed)
		if errors.Is(err, storage.ErrNotFound) {
			return false, nil
		}
		if err != nil {
			return false, err
		}
		data = raw
	}
	if len(data) == 0 {
		return false, nil
	}
	if out == nil {
		return true, nil
	}
	if err := rlp.DecodeBytes(data, out); err != nil {
		return false, err
	}
	return true, nil
}

// Pending reports the number of staged writes.
func (tx *Tx) Pending() int { return len(tx.writes) }

// Commit flushes every staged write in one atomic batch.
func (tx *Tx) Commit() error {
	if tx.closed {
		return errTxClosed
	}
	tx.closed = true
	if len(tx.writes) == 0 {
		return nil
	}
	keys := make([]string, 0, len(tx.writes))
	for k := range tx.writes {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	tx.manager.commitMu.Lock()
	defer tx.manager.commitMu.Unlock()
	batch := tx.manager.db.NewBatch()
	for _, k := range keys {
		staged := tx.writes[k]
		if staged.deleted {
			batch.Delete([]byte(k))
			continue
		}
		batch.Put([]byte(k), staged.data)
	}
	if err := batch.Write(); err != nil {
		return fmt.Errorf("state: commit: %w", err)
	}
	return nil
}

// Discard drops all staged writes.
func (tx *Tx) Discard() {
	tx.closed = true
	tx.writes = nil
}

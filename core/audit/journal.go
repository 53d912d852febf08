package audit

import (
	"context"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"lukechampine.com/blake3"

	"tokenvesting/core/events"
	"tokenvesting/core/types"
)

// GenesisHash is the PrevHash of the first journal entry.
var GenesisHash = strings.Repeat("0", 64)

// Entry is one committed ledger event. Hash chains every entry to its
// predecessor so any rewrite of history is detectable.
type Entry struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	Seq       uint64    `gorm:"uniqueIndex;not null"`
	Type      string    `gorm:"index;not null"`
	Payload   string    `gorm:"type:text;not null"`
	PrevHash  string    `gorm:"size:64;not null"`
	Hash      string    `gorm:"size:64;uniqueIndex;not null"`
	CreatedAt time.Time
}

// TableName pins the table name independent of gorm's pluralisation.
func (Entry) TableName() string { return "vesting_journal" }

// Open connects to the journal database. DSNs starting with postgres:// or
// postgresql:// use Postgres; anything else is treated as a SQLite path or DSN.
func Open(dsn string) (*gorm.DB, error) {
	trimmed := strings.TrimSpace(dsn)
	if trimmed == "" {
		return nil, fmt.Errorf("audit: dsn required")
	}
	cfg := &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)}
	var dialector gorm.Dialector
	if strings.HasPrefix(trimmed, "postgres://") || strings.HasPrefix(trimmed, "postgresql://") {
		dialector = postgres.Open(trimmed)
	} else {
		dialector = sqlite.Open(trimmed)
	}
	db, err := gorm.Open(dialector, cfg)
	if err != nil {
		return nil, fmt.Errorf("audit: open: %w", err)
	}
	return db, nil
}

// AutoMigrate creates or updates the journal table.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(&Entry{})
}

// Journal appends events to the hash chain. It implements events.Emitter so
// it can sit directly on the node's event bus.
type Journal struct {
	db     *gorm.DB
	logger *slog.Logger
	mu     sync.Mutex
	seq    uint64
	head   string
}

// NewJournal migrates the schema and resumes from the last stored entry.
func NewJournal(db *gorm.DB, log *slog.Logger) (*Journal, error) {
	if db == nil {
		return nil, fmt.Errorf("audit: database required")
	}
	if log == nil {
		log = slog.Default()
	}
	if err := AutoMigrate(db); err != nil {
		return nil, fmt.Errorf("audit: migrate: %w", err)
	}
	j := &Journal{db: db, logger: log, head: GenesisHash}
	var last Entry
	err := db.Order("seq desc").Limit(1).Take(&last).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
	case err != nil:
		return nil, fmt.Errorf("audit: load head: %w", err)
	default:
		j.seq = last.Seq
		j.head = last.Hash
	}
	return j, nil
}

// Head returns the sequence number and hash of the latest entry.
func (j *Journal) Head() (uint64, string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.seq, j.head
}

// Emit implements events.Emitter. Failures are logged; the ledger state has
// already committed by the time events are published.
func (j *Journal) Emit(evt events.Event) {
	if _, err := j.Append(context.Background(), events.Canonical(evt)); err != nil {
		j.logger.Error("audit journal append failed",
			slog.String("event", evt.EventType()),
			slog.Any("error", err))
	}
}

// Append stores evt as the next entry of the chain.
func (j *Journal) Append(ctx context.Context, evt *types.Event) (*Entry, error) {
	if evt == nil {
		return nil, fmt.Errorf("audit: nil event")
	}
	payload, err := encodePayload(evt.Attributes)
	if err != nil {
		return nil, err
	}
	j.mu.Lock()
	defer j.mu.Unlock()
	entry := &Entry{
		ID:        uuid.New(),
		Seq:       j.seq + 1,
		Type:      evt.Type,
		Payload:   payload,
		PrevHash:  j.head,
		CreatedAt: time.Now().UTC(),
	}
	entry.Hash = ChainHash(entry.PrevHash, entry.Seq, entry.Type, entry.Payload)
	if err := j.db.WithContext(ctx).Create(entry).Error; err != nil {
		return nil, fmt.Errorf("audit: append: %w", err)
	}
	j.seq = entry.Seq
	j.head = entry.Hash
	return entry, nil
}

// List returns up to limit entries with Seq greater than after.
func (j *Journal) List(ctx context.Context, after uint64, limit int) ([]Entry, error) {
	if limit <= 0 || limit > 1000 {
		limit = 1000
	}
	var out []Entry
	err := j.db.WithContext(ctx).Where("seq > ?", after).Order("seq asc").Limit(limit).Find(&out).Error
	return out, err
}

// VerifyResult summarises a chain walk.
type VerifyResult struct {
	Entries  uint64 `json:"entries"`
	Head     string `json:"head"`
	Valid    bool   `json:"valid"`
	BrokenAt uint64 `json:"brokenAt,omitempty"`
	Reason   string `json:"reason,omitempty"`
}

// Verify recomputes every hash from the genesis entry forward.
func (j *Journal) Verify(ctx context.Context) (VerifyResult, error) {
	result := VerifyResult{Head: GenesisHash, Valid: true}
	prev := GenesisHash
	var after uint64
	for {
		batch, err := j.List(ctx, after, 500)
		if err != nil {
			return result, err
		}
		if len(batch) == 0 {
			return result, nil
		}
		for _, entry := range batch {
			expectedSeq := result.Entries + 1
			switch {
			case entry.Seq != expectedSeq:
				return broken(result, entry.Seq, fmt.Sprintf("sequence gap: expected %d", expectedSeq)), nil
			case entry.PrevHash != prev:
				return broken(result, entry.Seq, "previous hash mismatch"), nil
			case ChainHash(entry.PrevHash, entry.Seq, entry.Type, entry.Payload) != entry.Hash:
				return broken(result, entry.Seq, "entry hash mismatch"), nil
			}
			prev = entry.Hash
			result.Entries++
			result.Head = entry.Hash
			after = entry.Seq
		}
	}
}

func broken(result VerifyResult, seq uint64, reason string) VerifyResult {
	result.Valid = false
	result.BrokenAt = seq
	result.Reason = reason
	return result
}

// ChainHash computes blake3(prev || seq || type || 0x00 || payload).
func ChainHash(prev string, seq uint64, eventType, payload string) string {
	h := blake3.New(32, nil)
	h.Write([]byte(prev))
	var seqBuf [8]byte
	binary.BigEndian.PutUint64(seqBuf[:], seq)
	h.Write(seqBuf[:])
	h.Write([]byte(eventType))
	h.Write([]byte{0})
	h.Write([]byte(payload))
	return hex.EncodeToString(h.Sum(nil))
}

// encodePayload renders attributes as JSON; map keys are emitted sorted.
func encodePayload(attrs map[string]string) (string, error) {
	if attrs == nil {
		attrs = map[string]string{}
	}
	data, err := json.Marshal(attrs)
	if err != nil {
		return "", fmt.Errorf("audit: encode payload: %w", err)
	}
	return string(data), nil
}

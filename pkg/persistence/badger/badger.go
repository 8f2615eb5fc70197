package badger

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"path/filepath"
	"sync"
	"time"

	badgerdb "github.com/dgraph-io/badger/v3"
	"go.uber.org/zap"

	"github.com/Layr-Labs/verified-messages-go/pkg/persistence"
	"github.com/Layr-Labs/verified-messages-go/pkg/types"
)

// Key prefixes for namespacing
const (
	keyPrefixRecord      = "record:"
	keyPrefixEvent       = "event:"
	keySequence          = "metadata:sequence"
	keySchemaVersion     = "metadata:schema_version"
	currentSchemaVersion = "v1"
)

// BadgerPersistence is a disk-backed registry using Badger.
// Provides durable storage with ACID guarantees.
type BadgerPersistence struct {
	db       *badgerdb.DB
	logger   *zap.Logger
	gcCancel context.CancelFunc
	gcWg     sync.WaitGroup
	mu       sync.RWMutex
	closed   bool

	// commitMu serializes CommitPost so the sequence counter never conflicts
	commitMu sync.Mutex
}

// NewBadgerPersistence creates a new Badger-backed persistence layer.
// The database is opened at the specified path with SyncWrites enabled for durability.
// A background goroutine is started for garbage collection.
func NewBadgerPersistence(dataPath string, logger *zap.Logger) (*BadgerPersistence, error) {
	absPath, err := filepath.Abs(dataPath)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve absolute path: %w", err)
	}

	opts := badgerdb.DefaultOptions(absPath)
	opts.Logger = &badgerLoggerAdapter{logger: logger}
	opts.SyncWrites = true
	opts.CompactL0OnClose = true
	opts.NumVersionsToKeep = 1

	db, err := badgerdb.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger database at %s: %w", absPath, err)
	}

	bp := &BadgerPersistence{
		db:     db,
		logger: logger,
	}

	if err := bp.initSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	bp.gcCancel = cancel
	bp.gcWg.Add(1)
	go bp.runGC(ctx)

	logger.Sugar().Infow("Badger persistence initialized", "path", absPath)

	return bp, nil
}

// initSchema initializes or validates the schema version
func (b *BadgerPersistence) initSchema() error {
	return b.db.Update(func(txn *badgerdb.Txn) error {
		item, err := txn.Get([]byte(keySchemaVersion))
		if errors.Is(err, badgerdb.ErrKeyNotFound) {
			return txn.Set([]byte(keySchemaVersion), []byte(currentSchemaVersion))
		}
		if err != nil {
			return fmt.Errorf("failed to read schema version: %w", err)
		}

		var existingVersion string
		err = item.Value(func(val []byte) error {
			existingVersion = string(val)
			return nil
		})
		if err != nil {
			return fmt.Errorf("failed to read schema version value: %w", err)
		}

		if existingVersion != currentSchemaVersion {
			return fmt.Errorf("unsupported schema version: %s (expected: %s)", existingVersion, currentSchemaVersion)
		}

		return nil
	})
}

// runGC runs periodic garbage collection in the background
func (b *BadgerPersistence) runGC(ctx context.Context) {
	defer b.gcWg.Done()

	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			err := b.db.RunValueLogGC(0.5)
			if err != nil && !errors.Is(err, badgerdb.ErrNoRewrite) {
				b.logger.Sugar().Warnw("Badger GC error", "error", err)
			}
		case <-ctx.Done():
			return
		}
	}
}

func recordKey(key types.RegistryKey) []byte {
	return append([]byte(keyPrefixRecord), key[:]...)
}

// eventKey uses a big-endian sequence so iteration order is commit order.
func eventKey(seq uint64) []byte {
	k := make([]byte, len(keyPrefixEvent)+8)
	copy(k, keyPrefixEvent)
	binary.BigEndian.PutUint64(k[len(keyPrefixEvent):], seq)
	return k
}

// IsPosted reports whether a record exists for key
func (b *BadgerPersistence) IsPosted(key types.RegistryKey) (bool, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return false, persistence.ErrClosed
	}

	found := false
	err := b.db.View(func(txn *badgerdb.Txn) error {
		_, err := txn.Get(recordKey(key))
		if errors.Is(err, badgerdb.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		found = true
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("failed to look up record: %w", err)
	}
	return found, nil
}

// CommitPost writes record, event and the advanced sequence counter in one transaction
func (b *BadgerPersistence) CommitPost(record *types.PostedMessageRecord, event *types.PostedMessageEvent) error {
	if err := persistence.ValidateCommit(record, event); err != nil {
		return err
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return persistence.ErrClosed
	}

	b.commitMu.Lock()
	defer b.commitMu.Unlock()

	recordData, err := persistence.MarshalRecord(record)
	if err != nil {
		return fmt.Errorf("failed to marshal PostedMessageRecord: %w", err)
	}

	var seq uint64
	err = b.db.Update(func(txn *badgerdb.Txn) error {
		_, err := txn.Get(recordKey(record.Key))
		if err == nil {
			return persistence.ErrAlreadyPosted
		}
		if !errors.Is(err, badgerdb.ErrKeyNotFound) {
			return err
		}

		seq, err = readSequence(txn)
		if err != nil {
			return err
		}
		seq++

		committed := *event
		committed.Sequence = seq
		eventData, err := persistence.MarshalEvent(&committed)
		if err != nil {
			return err
		}

		seqBytes := make([]byte, 8)
		binary.BigEndian.PutUint64(seqBytes, seq)

		if err := txn.Set(recordKey(record.Key), recordData); err != nil {
			return err
		}
		if err := txn.Set(eventKey(seq), eventData); err != nil {
			return err
		}
		return txn.Set([]byte(keySequence), seqBytes)
	})
	if errors.Is(err, persistence.ErrAlreadyPosted) {
		return err
	}
	if err != nil {
		return fmt.Errorf("failed to commit post: %w", err)
	}

	event.Sequence = seq
	return nil
}

func readSequence(txn *badgerdb.Txn) (uint64, error) {
	item, err := txn.Get([]byte(keySequence))
	if errors.Is(err, badgerdb.ErrKeyNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}

	var seq uint64
	err = item.Value(func(val []byte) error {
		if len(val) != 8 {
			return fmt.Errorf("invalid sequence value length: %d", len(val))
		}
		seq = binary.BigEndian.Uint64(val)
		return nil
	})
	return seq, err
}

// LoadRecord retrieves the record for key
func (b *BadgerPersistence) LoadRecord(key types.RegistryKey) (*types.PostedMessageRecord, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return nil, persistence.ErrClosed
	}

	var data []byte
	err := b.db.View(func(txn *badgerdb.Txn) error {
		item, err := txn.Get(recordKey(key))
		if errors.Is(err, badgerdb.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}

		return item.Value(func(val []byte) error {
			data = append([]byte{}, val...)
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load PostedMessageRecord: %w", err)
	}

	if data == nil {
		return nil, nil
	}

	record, err := persistence.UnmarshalRecord(data)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal PostedMessageRecord: %w", err)
	}
	return record, nil
}

// ListRecords returns all records. Badger iterates keys in byte order,
// which is registry key order under the shared prefix.
func (b *BadgerPersistence) ListRecords() ([]*types.PostedMessageRecord, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return nil, persistence.ErrClosed
	}

	records := make([]*types.PostedMessageRecord, 0)
	err := b.iterate([]byte(keyPrefixRecord), nil, func(key, val []byte) (bool, error) {
		record, err := persistence.UnmarshalRecord(val)
		if err != nil {
			b.logger.Sugar().Warnw("Failed to unmarshal PostedMessageRecord, skipping",
				"key", fmt.Sprintf("%x", key), "error", err)
			return true, nil
		}
		records = append(records, record)
		return true, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list PostedMessageRecords: %w", err)
	}
	return records, nil
}

// ListEvents returns events after afterSequence in commit order
func (b *BadgerPersistence) ListEvents(afterSequence uint64, limit int) ([]*types.PostedMessageEvent, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return nil, persistence.ErrClosed
	}

	events := make([]*types.PostedMessageEvent, 0)
	if afterSequence == math.MaxUint64 {
		return events, nil
	}
	err := b.iterate([]byte(keyPrefixEvent), eventKey(afterSequence+1), func(key, val []byte) (bool, error) {
		event, err := persistence.UnmarshalEvent(val)
		if err != nil {
			return false, fmt.Errorf("failed to unmarshal PostedMessageEvent at %x: %w", key, err)
		}
		events = append(events, event)
		return limit <= 0 || len(events) < limit, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list PostedMessageEvents: %w", err)
	}
	return events, nil
}

// iterate walks prefix starting at seek (or the prefix start when nil) until fn returns false.
func (b *BadgerPersistence) iterate(prefix, seek []byte, fn func(key, val []byte) (bool, error)) error {
	return b.db.View(func(txn *badgerdb.Txn) error {
		opts := badgerdb.DefaultIteratorOptions
		opts.Prefix = prefix

		it := txn.NewIterator(opts)
		defer it.Close()

		if seek == nil {
			seek = prefix
		}
		for it.Seek(seek); it.Valid(); it.Next() {
			item := it.Item()

			var data []byte
			err := item.Value(func(val []byte) error {
				data = append([]byte{}, val...)
				return nil
			})
			if err != nil {
				return fmt.Errorf("failed to read value: %w", err)
			}

			more, err := fn(item.KeyCopy(nil), data)
			if err != nil {
				return err
			}
			if !more {
				return nil
			}
		}
		return nil
	})
}

// Close shuts down the persistence layer
func (b *BadgerPersistence) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	b.mu.Unlock()

	if b.gcCancel != nil {
		b.gcCancel()
	}
	b.gcWg.Wait()

	if err := b.db.Close(); err != nil {
		return fmt.Errorf("failed to close badger database: %w", err)
	}

	b.logger.Sugar().Info("Badger persistence closed")
	return nil
}

// HealthCheck verifies the persistence layer is operational
func (b *BadgerPersistence) HealthCheck() error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return persistence.ErrClosed
	}

	return b.db.View(func(txn *badgerdb.Txn) error {
		_, err := txn.Get([]byte(keySchemaVersion))
		if errors.Is(err, badgerdb.ErrKeyNotFound) {
			return fmt.Errorf("schema version not found - database may be corrupted")
		}
		return err
	})
}

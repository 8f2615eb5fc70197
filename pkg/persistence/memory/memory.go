package memory

import (
	"fmt"
	"sort"
	"sync"

	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/Layr-Labs/verified-messages-go/pkg/persistence"
	"github.com/Layr-Labs/verified-messages-go/pkg/types"
)

// MemoryPersistence is an in-memory implementation of IRegistryPersistence.
// Intended for tests and local development.
//
// All data is stored in memory and will be lost when the process exits.
// Thread-safe using sync.RWMutex for concurrent access.
// Deep copies data to prevent external mutation.
type MemoryPersistence struct {
	mu sync.RWMutex

	// Registry: key -> record
	records map[types.RegistryKey]*types.PostedMessageRecord

	// Event log, in sequence order
	events []*types.PostedMessageEvent

	// Closed flag
	closed bool
}

// NewMemoryPersistence creates a new in-memory persistence layer.
// Prints a loud warning since posted messages do not survive a restart.
func NewMemoryPersistence() *MemoryPersistence {
	fmt.Println("⚠️  WARNING: Using in-memory persistence - ALL POSTED MESSAGES WILL BE LOST ON RESTART")
	fmt.Println("⚠️  Set VM_PERSISTENCE_TYPE=badger, redis or sql for durable storage")

	return &MemoryPersistence{
		records: make(map[types.RegistryKey]*types.PostedMessageRecord),
		events:  make([]*types.PostedMessageEvent, 0),
	}
}

// IsPosted reports whether a record exists for key.
func (m *MemoryPersistence) IsPosted(key types.RegistryKey) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return false, persistence.ErrClosed
	}

	_, exists := m.records[key]
	return exists, nil
}

// CommitPost inserts record and event under a single write lock.
func (m *MemoryPersistence) CommitPost(record *types.PostedMessageRecord, event *types.PostedMessageEvent) error {
	if err := persistence.ValidateCommit(record, event); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return persistence.ErrClosed
	}

	if _, exists := m.records[record.Key]; exists {
		return persistence.ErrAlreadyPosted
	}

	event.Sequence = uint64(len(m.events)) + 1

	m.records[record.Key] = deepCopyRecord(record)
	m.events = append(m.events, deepCopyEvent(event))

	return nil
}

// LoadRecord retrieves the record for key.
func (m *MemoryPersistence) LoadRecord(key types.RegistryKey) (*types.PostedMessageRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, persistence.ErrClosed
	}

	record, exists := m.records[key]
	if !exists {
		return nil, nil
	}

	return deepCopyRecord(record), nil
}

// ListRecords returns all records sorted by key.
func (m *MemoryPersistence) ListRecords() ([]*types.PostedMessageRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, persistence.ErrClosed
	}

	records := make([]*types.PostedMessageRecord, 0, len(m.records))
	for _, r := range m.records {
		records = append(records, deepCopyRecord(r))
	}

	sort.Slice(records, func(i, j int) bool {
		return records[i].Key.Less(records[j].Key)
	})

	return records, nil
}

// ListEvents returns events after afterSequence.
func (m *MemoryPersistence) ListEvents(afterSequence uint64, limit int) ([]*types.PostedMessageEvent, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, persistence.ErrClosed
	}

	page := persistence.FilterEvents(m.events, afterSequence, limit)
	for i, e := range page {
		page[i] = deepCopyEvent(e)
	}
	return page, nil
}

// Close marks the persistence layer as closed.
func (m *MemoryPersistence) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.closed = true
	return nil
}

// HealthCheck verifies the persistence layer is operational.
func (m *MemoryPersistence) HealthCheck() error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return persistence.ErrClosed
	}

	return nil
}

func deepCopyRecord(r *types.PostedMessageRecord) *types.PostedMessageRecord {
	c := *r
	c.Message = append(hexutil.Bytes{}, r.Message...)
	return &c
}

func deepCopyEvent(e *types.PostedMessageEvent) *types.PostedMessageEvent {
	c := *e
	c.Message = append(hexutil.Bytes{}, e.Message...)
	return &c
}

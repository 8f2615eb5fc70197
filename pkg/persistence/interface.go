package persistence

import "github.com/Layr-Labs/verified-messages-go/pkg/types"

// IRegistryPersistence stores the posted-message registry and its event log.
// All implementations must be thread-safe.
//
// The interface supports:
// - Existence lookups for (message, signer) registry keys
// - An atomic commit point that inserts a record together with its event
// - Read access to committed records and events
// - Lifecycle management (close, health check)
type IRegistryPersistence interface {
	// Registry

	// IsPosted reports whether a record exists for key.
	// Returns error only on storage failure.
	IsPosted(key types.RegistryKey) (bool, error)

	// CommitPost atomically inserts record and event if no record exists for
	// record.Key. If one exists, returns ErrAlreadyPosted and writes nothing.
	// Concurrent commits of the same key: exactly one succeeds.
	// On success event.Sequence is set to the committed sequence number.
	CommitPost(record *types.PostedMessageRecord, event *types.PostedMessageEvent) error

	// LoadRecord retrieves the record for key.
	// Returns nil if it doesn't exist, error only on storage failure.
	LoadRecord(key types.RegistryKey) (*types.PostedMessageRecord, error)

	// ListRecords returns every record sorted by key (ascending).
	// Returns empty slice if none exist.
	ListRecords() ([]*types.PostedMessageRecord, error)

	// Event Log

	// ListEvents returns up to limit events with Sequence > afterSequence,
	// in sequence order. limit <= 0 means no limit.
	ListEvents(afterSequence uint64, limit int) ([]*types.PostedMessageEvent, error)

	// Lifecycle Management

	// Close cleanly shuts down the persistence layer.
	// Idempotent - safe to call multiple times.
	// After Close(), all other operations return ErrClosed.
	Close() error

	// HealthCheck verifies the persistence layer is operational.
	HealthCheck() error
}

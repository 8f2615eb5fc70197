// Package persistencetest holds the behavioral checks every
// IRegistryPersistence backend must pass.
package persistencetest

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Layr-Labs/verified-messages-go/pkg/persistence"
	"github.com/Layr-Labs/verified-messages-go/pkg/types"
)

const testSigner = "ST1SJ3DTE5DN7X54YDH5D64R3BCB6A2AG2ZQ8YPD5"

// NewEvent builds an uncommitted event for message under a deterministic key.
func NewEvent(message string) *types.PostedMessageEvent {
	return &types.PostedMessageEvent{
		ID:       uuid.NewString(),
		Key:      sha256.Sum256([]byte(message)),
		Message:  []byte(message),
		Signer:   testSigner,
		PostedAt: 1700000000,
	}
}

// Commit commits NewEvent(message) and fails the test on error.
func Commit(t *testing.T, store persistence.IRegistryPersistence, message string) *types.PostedMessageEvent {
	t.Helper()
	event := NewEvent(message)
	require.NoError(t, store.CommitPost(event.Record(), event))
	return event
}

// RunSuite runs the shared backend checks. newStore must return an empty,
// open store; the suite closes it.
func RunSuite(t *testing.T, newStore func(t *testing.T) persistence.IRegistryPersistence) {
	t.Run("CommitAndLoad", func(t *testing.T) {
		store := newStore(t)
		defer func() { _ = store.Close() }()

		event := NewEvent("Hello Clarity")

		posted, err := store.IsPosted(event.Key)
		require.NoError(t, err)
		assert.False(t, posted)

		require.NoError(t, store.CommitPost(event.Record(), event))
		assert.Equal(t, uint64(1), event.Sequence)

		posted, err = store.IsPosted(event.Key)
		require.NoError(t, err)
		assert.True(t, posted)

		loaded, err := store.LoadRecord(event.Key)
		require.NoError(t, err)
		require.NotNil(t, loaded)
		assert.Equal(t, event.Record(), loaded)
	})

	t.Run("LoadRecordNotFound", func(t *testing.T) {
		store := newStore(t)
		defer func() { _ = store.Close() }()

		loaded, err := store.LoadRecord(types.RegistryKey{0xff})
		require.NoError(t, err)
		assert.Nil(t, loaded)
	})

	t.Run("DuplicateCommitRejected", func(t *testing.T) {
		store := newStore(t)
		defer func() { _ = store.Close() }()

		first := Commit(t, store, "once")

		again := NewEvent("once")
		err := store.CommitPost(again.Record(), again)
		require.ErrorIs(t, err, persistence.ErrAlreadyPosted)
		assert.Zero(t, again.Sequence)

		events, err := store.ListEvents(0, 0)
		require.NoError(t, err)
		require.Len(t, events, 1)
		assert.Equal(t, first.ID, events[0].ID)
	})

	t.Run("InvalidCommitRejected", func(t *testing.T) {
		store := newStore(t)
		defer func() { _ = store.Close() }()

		event := NewEvent("mismatch")
		record := event.Record()
		record.Key = types.RegistryKey{1}
		require.Error(t, store.CommitPost(record, event))
		require.Error(t, store.CommitPost(nil, event))

		records, err := store.ListRecords()
		require.NoError(t, err)
		assert.Empty(t, records)
	})

	t.Run("EventsInCommitOrder", func(t *testing.T) {
		store := newStore(t)
		defer func() { _ = store.Close() }()

		var committed []*types.PostedMessageEvent
		for i := 0; i < 5; i++ {
			committed = append(committed, Commit(t, store, fmt.Sprintf("message-%d", i)))
		}

		events, err := store.ListEvents(0, 0)
		require.NoError(t, err)
		require.Len(t, events, 5)
		for i, e := range events {
			assert.Equal(t, uint64(i+1), e.Sequence)
			assert.Equal(t, committed[i].ID, e.ID)
			assert.Equal(t, committed[i].Message, e.Message)
		}

		page, err := store.ListEvents(2, 2)
		require.NoError(t, err)
		require.Len(t, page, 2)
		assert.Equal(t, uint64(3), page[0].Sequence)
		assert.Equal(t, uint64(4), page[1].Sequence)

		tail, err := store.ListEvents(5, 10)
		require.NoError(t, err)
		assert.Empty(t, tail)
	})

	t.Run("RecordsSortedByKey", func(t *testing.T) {
		store := newStore(t)
		defer func() { _ = store.Close() }()

		for i := 0; i < 8; i++ {
			Commit(t, store, fmt.Sprintf("sorted-%d", i))
		}

		records, err := store.ListRecords()
		require.NoError(t, err)
		require.Len(t, records, 8)
		for i := 1; i < len(records); i++ {
			assert.True(t, records[i-1].Key.Less(records[i].Key))
		}
	})

	t.Run("ConcurrentCommitSameKey", func(t *testing.T) {
		store := newStore(t)
		defer func() { _ = store.Close() }()

		const workers = 16
		var (
			wg        sync.WaitGroup
			successes atomic.Int32
			conflicts atomic.Int32
		)
		for i := 0; i < workers; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				event := NewEvent("race")
				err := store.CommitPost(event.Record(), event)
				switch {
				case err == nil:
					successes.Add(1)
				case errors.Is(err, persistence.ErrAlreadyPosted):
					conflicts.Add(1)
				default:
					t.Errorf("unexpected commit error: %v", err)
				}
			}()
		}
		wg.Wait()

		assert.Equal(t, int32(1), successes.Load())
		assert.Equal(t, int32(workers-1), conflicts.Load())

		events, err := store.ListEvents(0, 0)
		require.NoError(t, err)
		assert.Len(t, events, 1)
	})

	t.Run("ConcurrentCommitDistinctKeys", func(t *testing.T) {
		store := newStore(t)
		defer func() { _ = store.Close() }()

		const workers = 16
		var wg sync.WaitGroup
		for i := 0; i < workers; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				event := NewEvent(fmt.Sprintf("distinct-%d", i))
				if err := store.CommitPost(event.Record(), event); err != nil {
					t.Errorf("commit %d: %v", i, err)
				}
			}(i)
		}
		wg.Wait()

		events, err := store.ListEvents(0, 0)
		require.NoError(t, err)
		require.Len(t, events, workers)
		seen := make(map[uint64]bool)
		for _, e := range events {
			assert.False(t, seen[e.Sequence], "duplicate sequence %d", e.Sequence)
			seen[e.Sequence] = true
			assert.LessOrEqual(t, e.Sequence, uint64(workers))
		}
	})

	t.Run("Close", func(t *testing.T) {
		store := newStore(t)

		require.NoError(t, store.HealthCheck())
		require.NoError(t, store.Close())
		require.NoError(t, store.Close())

		assert.Error(t, store.HealthCheck())
		_, err := store.IsPosted(types.RegistryKey{})
		assert.Error(t, err)
		event := NewEvent("after close")
		assert.Error(t, store.CommitPost(event.Record(), event))
		_, err = store.ListEvents(0, 0)
		assert.Error(t, err)
	})
}

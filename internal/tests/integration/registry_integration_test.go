package integration

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Layr-Labs/verified-messages-go/pkg/config"
	"github.com/Layr-Labs/verified-messages-go/pkg/persistence"
	"github.com/Layr-Labs/verified-messages-go/pkg/persistence/badger"
	"github.com/Layr-Labs/verified-messages-go/pkg/persistence/memory"
	"github.com/Layr-Labs/verified-messages-go/pkg/persistence/sql"
	"github.com/Layr-Labs/verified-messages-go/pkg/registry"
	"github.com/Layr-Labs/verified-messages-go/pkg/testutil"
)

// Test_RegistryIntegration runs the full HTTP flow against every embeddable backend
func Test_RegistryIntegration(t *testing.T) {
	backends := map[string]func(t *testing.T) persistence.IRegistryPersistence{
		"memory": func(t *testing.T) persistence.IRegistryPersistence {
			return memory.NewMemoryPersistence()
		},
		"badger": func(t *testing.T) persistence.IRegistryPersistence {
			store, err := badger.NewBadgerPersistence(t.TempDir(), zap.NewNop())
			require.NoError(t, err)
			return store
		},
		"sqlite": func(t *testing.T) persistence.IRegistryPersistence {
			store, err := sql.NewSQLPersistence(&sql.SQLConfig{
				Driver: config.SQLDriverSqlite,
				DSN:    filepath.Join(t.TempDir(), "registry.db"),
			}, zap.NewNop())
			require.NoError(t, err)
			return store
		},
	}

	for name, newStore := range backends {
		t.Run(name, func(t *testing.T) {
			store := newStore(t)
			defer func() { _ = store.Close() }()

			t.Run("PostFlowAcrossReplicas", func(t *testing.T) {
				testPostFlowAcrossReplicas(t, store)
			})
		})
	}
}

func testPostFlowAcrossReplicas(t *testing.T, store persistence.IRegistryPersistence) {
	ctx := context.Background()
	cluster := testutil.NewTestCluster(t, 3, store, config.NetworkTestnet)
	signers := testutil.CreateTestSigners(t, 2, config.NetworkTestnet)

	message := []byte("Hello Clarity")
	sig := signers[0].Sign(t, message)

	event, err := cluster.Clients[0].PostMessage(ctx, message, sig, signers[0].Address)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), event.Sequence)

	// Every replica sees the post, and none accepts it twice
	for i, c := range cluster.Clients {
		posted, err := c.IsMessagePosted(ctx, message, signers[0].Address)
		require.NoError(t, err)
		assert.True(t, posted, "replica %d", i)

		_, err = c.PostMessage(ctx, message, sig, signers[0].Address)
		assert.ErrorIs(t, err, registry.ErrMessageAlreadyPosted, "replica %d", i)
	}

	// Same message, different signer is a separate entry
	event, err = cluster.Clients[1].PostMessage(ctx, message, signers[1].Sign(t, message), signers[1].Address)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), event.Sequence)

	// A signature from one signer cannot be posted as the other
	other := []byte("other")
	_, err = cluster.Clients[2].PostMessage(ctx, other, signers[0].Sign(t, other), signers[1].Address)
	assert.ErrorIs(t, err, registry.ErrInvalidSignature)

	events, err := cluster.Clients[2].Events(ctx, 0, 0)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, signers[0].Address, events[0].Signer)
	assert.Equal(t, signers[1].Address, events[1].Signer)

	root, count, err := cluster.Clients[0].LedgerRoot(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
	for _, c := range cluster.Clients[1:] {
		_, proofRoot, err := c.ProveMessage(ctx, message, signers[1].Address)
		require.NoError(t, err)
		assert.Equal(t, root, proofRoot)
	}
}

// Test_ConcurrentPostsAcrossReplicas races the same post through every replica
func Test_ConcurrentPostsAcrossReplicas(t *testing.T) {
	store := memory.NewMemoryPersistence()
	defer func() { _ = store.Close() }()

	ctx := context.Background()
	cluster := testutil.NewTestCluster(t, 4, store, config.NetworkTestnet)
	signers := testutil.CreateTestSigners(t, 1, config.NetworkTestnet)

	message := []byte("first come first served")
	sig := signers[0].Sign(t, message)

	var successes, duplicates atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := cluster.Clients[i%len(cluster.Clients)].PostMessage(ctx, message, sig, signers[0].Address)
			switch {
			case err == nil:
				successes.Add(1)
			case assert.ErrorIs(t, err, registry.ErrMessageAlreadyPosted):
				duplicates.Add(1)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(1), successes.Load())
	assert.Equal(t, int32(19), duplicates.Load())
}

// Test_RestartKeepsLedger checks a durable backend serves the same ledger after reopening
func Test_RestartKeepsLedger(t *testing.T) {
	ctx := context.Background()
	dataPath := t.TempDir()
	signers := testutil.CreateTestSigners(t, 3, config.NetworkMainnet)

	store, err := badger.NewBadgerPersistence(dataPath, zap.NewNop())
	require.NoError(t, err)

	cluster := testutil.NewTestCluster(t, 1, store, config.NetworkMainnet)
	for i, s := range signers {
		message := []byte(fmt.Sprintf("message %d", i))
		_, err := cluster.Clients[0].PostMessage(ctx, message, s.Sign(t, message), s.Address)
		require.NoError(t, err)
	}
	rootBefore, _, err := cluster.Clients[0].LedgerRoot(ctx)
	require.NoError(t, err)
	cluster.Close()
	require.NoError(t, store.Close())

	store, err = badger.NewBadgerPersistence(dataPath, zap.NewNop())
	require.NoError(t, err)
	defer func() { _ = store.Close() }()

	cluster = testutil.NewTestCluster(t, 1, store, config.NetworkMainnet)
	rootAfter, count, err := cluster.Clients[0].LedgerRoot(ctx)
	require.NoError(t, err)
	assert.Equal(t, rootBefore, rootAfter)
	assert.Equal(t, 3, count)

	posted, err := cluster.Clients[0].IsMessagePosted(ctx, []byte("message 1"), signers[1].Address)
	require.NoError(t, err)
	assert.True(t, posted)
}

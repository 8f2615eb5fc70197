package redis

import (
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Layr-Labs/verified-messages-go/pkg/logger"
	"github.com/Layr-Labs/verified-messages-go/pkg/persistence"
	"github.com/Layr-Labs/verified-messages-go/pkg/persistence/persistencetest"
)

// getTestRedisAddress returns the Redis address for testing.
// Uses REDIS_TEST_ADDRESS env var if set, otherwise defaults to localhost:6379.
func getTestRedisAddress() string {
	if addr := os.Getenv("REDIS_TEST_ADDRESS"); addr != "" {
		return addr
	}
	return "localhost:6379"
}

// requireRedis skips the test if Redis is not available. Each call gets a
// fresh key prefix so tests never see each other's data.
func requireRedis(t *testing.T, prefix string) *RedisPersistence {
	t.Helper()

	testLogger, err := logger.NewLogger(&logger.LoggerConfig{Debug: false})
	require.NoError(t, err)

	if prefix == "" {
		prefix = "test-" + uuid.NewString() + ":"
	}
	cfg := &RedisConfig{
		Address:   getTestRedisAddress(),
		DB:        15, // Use DB 15 for tests to avoid conflicts
		KeyPrefix: prefix,
	}

	rp, err := NewRedisPersistence(cfg, testLogger)
	if err != nil {
		t.Skipf("Redis not available at %s: %v", cfg.Address, err)
		return nil
	}
	return rp
}

func TestRedisPersistence(t *testing.T) {
	persistencetest.RunSuite(t, func(t *testing.T) persistence.IRegistryPersistence {
		return requireRedis(t, "")
	})
}

func TestRedisPersistence_SharedPrefix(t *testing.T) {
	prefix := "test-" + uuid.NewString() + ":"

	first := requireRedis(t, prefix)
	defer func() { _ = first.Close() }()
	second := requireRedis(t, prefix)
	defer func() { _ = second.Close() }()

	event := persistencetest.Commit(t, first, "shared")

	// A second client on the same prefix sees the commit and cannot repeat it
	posted, err := second.IsPosted(event.Key)
	require.NoError(t, err)
	assert.True(t, posted)

	dup := persistencetest.NewEvent("shared")
	require.ErrorIs(t, second.CommitPost(dup.Record(), dup), persistence.ErrAlreadyPosted)

	next := persistencetest.Commit(t, second, "shared-next")
	assert.Equal(t, uint64(2), next.Sequence)
}

func TestNewRedisPersistence_InvalidConfig(t *testing.T) {
	testLogger, err := logger.NewLogger(&logger.LoggerConfig{Debug: false})
	require.NoError(t, err)

	_, err = NewRedisPersistence(nil, testLogger)
	assert.Error(t, err)

	_, err = NewRedisPersistence(&RedisConfig{}, testLogger)
	assert.Error(t, err)
}

package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validServerConfig() *ServerConfig {
	return &ServerConfig{
		Port:    8080,
		Network: NetworkTestnet,
		Persistence: PersistenceConfig{
			Type: PersistenceTypeMemory,
		},
	}
}

func TestNetwork_AddressVersion(t *testing.T) {
	v, err := NetworkMainnet.AddressVersion()
	require.NoError(t, err)
	assert.Equal(t, byte(22), v)

	v, err = NetworkTestnet.AddressVersion()
	require.NoError(t, err)
	assert.Equal(t, byte(26), v)

	_, err = Network("devnet").AddressVersion()
	require.Error(t, err)
}

func TestParseNetwork(t *testing.T) {
	n, err := ParseNetwork(" Mainnet ")
	require.NoError(t, err)
	assert.Equal(t, NetworkMainnet, n)

	n, err = ParseNetwork("testnet")
	require.NoError(t, err)
	assert.Equal(t, NetworkTestnet, n)

	_, err = ParseNetwork("regtest")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported network")
}

func TestServerConfig_Validate(t *testing.T) {
	t.Run("valid memory config", func(t *testing.T) {
		require.NoError(t, validServerConfig().Validate())
	})

	t.Run("invalid port", func(t *testing.T) {
		c := validServerConfig()
		c.Port = 0
		err := c.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "port")
	})

	t.Run("unsupported network", func(t *testing.T) {
		c := validServerConfig()
		c.Network = "devnet"
		err := c.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "network")
	})

	t.Run("rate limit without burst", func(t *testing.T) {
		c := validServerConfig()
		c.PostRateLimit = 10
		err := c.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "postBurst")
	})

	t.Run("accumulates errors", func(t *testing.T) {
		c := validServerConfig()
		c.Port = -1
		c.Network = "nope"
		err := c.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "port")
		assert.Contains(t, err.Error(), "network")
	})
}

func TestPersistenceConfig_Validate(t *testing.T) {
	testCases := []struct {
		name    string
		cfg     PersistenceConfig
		wantErr string
	}{
		{"memory", PersistenceConfig{Type: PersistenceTypeMemory}, ""},
		{"badger", PersistenceConfig{Type: PersistenceTypeBadger, DataPath: "/tmp/vm"}, ""},
		{"badger without path", PersistenceConfig{Type: PersistenceTypeBadger}, "dataPath"},
		{"redis", PersistenceConfig{Type: PersistenceTypeRedis, Redis: RedisSettings{Address: "localhost:6379"}}, ""},
		{"redis without address", PersistenceConfig{Type: PersistenceTypeRedis}, "redis.address"},
		{"redis bad db", PersistenceConfig{Type: PersistenceTypeRedis, Redis: RedisSettings{Address: "localhost:6379", DB: 16}}, "redis.db"},
		{"sqlite", PersistenceConfig{Type: PersistenceTypeSQL, SQL: SQLSettings{Driver: SQLDriverSqlite, DSN: "file:vm.db"}}, ""},
		{"sql bad driver", PersistenceConfig{Type: PersistenceTypeSQL, SQL: SQLSettings{Driver: "mysql", DSN: "x"}}, "sql.driver"},
		{"sql without dsn", PersistenceConfig{Type: PersistenceTypeSQL, SQL: SQLSettings{Driver: SQLDriverPostgres}}, "sql.dsn"},
		{"unknown type", PersistenceConfig{Type: "etcd"}, "persistence.type"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.cfg.Validate()
			if tc.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantErr)
		})
	}
}

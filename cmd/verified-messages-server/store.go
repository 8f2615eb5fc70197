package main

import (
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/Layr-Labs/verified-messages-go/pkg/config"
	"github.com/Layr-Labs/verified-messages-go/pkg/persistence"
	"github.com/Layr-Labs/verified-messages-go/pkg/persistence/badger"
	"github.com/Layr-Labs/verified-messages-go/pkg/persistence/memory"
	"github.com/Layr-Labs/verified-messages-go/pkg/persistence/redis"
	"github.com/Layr-Labs/verified-messages-go/pkg/persistence/sql"
)

// newStore opens the registry backend selected by cfg
func newStore(cfg *config.PersistenceConfig, l *zap.Logger) (persistence.IRegistryPersistence, error) {
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid persistence configuration")
	}

	switch cfg.Type {
	case config.PersistenceTypeMemory:
		return memory.NewMemoryPersistence(), nil
	case config.PersistenceTypeBadger:
		store, err := badger.NewBadgerPersistence(cfg.DataPath, l)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to open badger store at %s", cfg.DataPath)
		}
		return store, nil
	case config.PersistenceTypeRedis:
		store, err := redis.NewRedisPersistence(&redis.RedisConfig{
			Address:   cfg.Redis.Address,
			Password:  cfg.Redis.Password,
			DB:        cfg.Redis.DB,
			KeyPrefix: cfg.Redis.KeyPrefix,
		}, l)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to connect to redis at %s", cfg.Redis.Address)
		}
		return store, nil
	case config.PersistenceTypeSQL:
		store, err := sql.NewSQLPersistence(&sql.SQLConfig{Driver: cfg.SQL.Driver, DSN: cfg.SQL.DSN}, l)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to open %s store", cfg.SQL.Driver)
		}
		return store, nil
	}
	return nil, errors.Errorf("unsupported persistence type %q", cfg.Type)
}

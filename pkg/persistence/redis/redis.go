package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/Layr-Labs/verified-messages-go/pkg/persistence"
	"github.com/Layr-Labs/verified-messages-go/pkg/types"
)

// Key names for namespacing in Redis
const (
	keyPrefixRecord      = "vm:record:"
	keyPrefixEvent       = "vm:event:"
	keySequence          = "vm:metadata:sequence"
	keySchemaVersion     = "vm:metadata:schema_version"
	currentSchemaVersion = "v1"

	// Index sets for listing operations (Redis doesn't support prefix iteration natively).
	// Records are scored 0 so ZRANGE returns them in lexical (key) order;
	// events are scored by sequence.
	keyIndexRecords = "vm:records:index"
	keyIndexEvents  = "vm:events:index"

	operationTimeout = 5 * time.Second
)

// commitScript inserts a record and its event atomically.
// Returns 0 if the record already exists, otherwise the new sequence number.
//
// KEYS[1] record key, KEYS[2] sequence key, KEYS[3] records index,
// KEYS[4] events index. ARGV[1] record JSON, ARGV[2] event JSON,
// ARGV[3] registry key hex, ARGV[4] event key prefix.
var commitScript = redis.NewScript(`
if redis.call("EXISTS", KEYS[1]) == 1 then
	return 0
end
local seq = redis.call("INCR", KEYS[2])
redis.call("SET", KEYS[1], ARGV[1])
redis.call("ZADD", KEYS[3], 0, ARGV[3])
redis.call("SET", ARGV[4] .. seq, ARGV[2])
redis.call("ZADD", KEYS[4], seq, tostring(seq))
return seq
`)

// RedisPersistence is a registry backed by Redis.
// Suitable for deployments where several server replicas share one registry.
type RedisPersistence struct {
	client    *redis.Client
	logger    *zap.Logger
	keyPrefix string // Custom prefix for all keys
	mu        sync.RWMutex
	closed    bool
}

// RedisConfig holds the configuration for connecting to Redis
type RedisConfig struct {
	// Address is the Redis server address (host:port)
	Address string
	// Password is the optional Redis password
	Password string
	// DB is the Redis database number (0-15)
	DB int
	// KeyPrefix is an optional custom prefix for all keys, e.g. "myapp:" results in
	// keys like "myapp:vm:record:0x...". If empty, keys use the default "vm:" prefix.
	KeyPrefix string
}

// NewRedisPersistence creates a new Redis-backed persistence layer.
func NewRedisPersistence(cfg *RedisConfig, logger *zap.Logger) (*RedisPersistence, error) {
	if cfg == nil {
		return nil, fmt.Errorf("redis config cannot be nil")
	}

	if cfg.Address == "" {
		return nil, fmt.Errorf("redis address cannot be empty")
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), operationTimeout)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", cfg.Address, err)
	}

	rp := &RedisPersistence{
		client:    client,
		logger:    logger,
		keyPrefix: cfg.KeyPrefix,
	}

	if err := rp.initSchema(ctx); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	logger.Sugar().Infow("Redis persistence initialized", "address", cfg.Address, "db", cfg.DB, "key_prefix", cfg.KeyPrefix)

	return rp, nil
}

// prefixKey adds the custom key prefix (if configured) to a key
func (r *RedisPersistence) prefixKey(key string) string {
	return r.keyPrefix + key
}

func (r *RedisPersistence) recordKey(key types.RegistryKey) string {
	return r.prefixKey(keyPrefixRecord + key.Hex())
}

func (r *RedisPersistence) eventKey(seq string) string {
	return r.prefixKey(keyPrefixEvent + seq)
}

// initSchema initializes or validates the schema version
func (r *RedisPersistence) initSchema(ctx context.Context) error {
	schemaKey := r.prefixKey(keySchemaVersion)

	set, err := r.client.SetNX(ctx, schemaKey, currentSchemaVersion, 0).Result()
	if err != nil {
		return fmt.Errorf("failed to write schema version: %w", err)
	}
	if set {
		return nil
	}

	existingVersion, err := r.client.Get(ctx, schemaKey).Result()
	if err != nil {
		return fmt.Errorf("failed to read schema version: %w", err)
	}
	if existingVersion != currentSchemaVersion {
		return fmt.Errorf("unsupported schema version: %s (expected: %s)", existingVersion, currentSchemaVersion)
	}

	return nil
}

// IsPosted reports whether a record exists for key
func (r *RedisPersistence) IsPosted(key types.RegistryKey) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		return false, persistence.ErrClosed
	}

	ctx, cancel := context.WithTimeout(context.Background(), operationTimeout)
	defer cancel()

	n, err := r.client.Exists(ctx, r.recordKey(key)).Result()
	if err != nil {
		return false, fmt.Errorf("failed to look up record: %w", err)
	}
	return n == 1, nil
}

// CommitPost runs the commit script so the existence check and all writes
// happen as one Redis operation
func (r *RedisPersistence) CommitPost(record *types.PostedMessageRecord, event *types.PostedMessageEvent) error {
	if err := persistence.ValidateCommit(record, event); err != nil {
		return err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		return persistence.ErrClosed
	}

	recordData, err := persistence.MarshalRecord(record)
	if err != nil {
		return fmt.Errorf("failed to marshal PostedMessageRecord: %w", err)
	}

	// The stored event carries no sequence; it is restored from the index score on read.
	stored := *event
	stored.Sequence = 0
	eventData, err := persistence.MarshalEvent(&stored)
	if err != nil {
		return fmt.Errorf("failed to marshal PostedMessageEvent: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), operationTimeout)
	defer cancel()

	keys := []string{
		r.recordKey(record.Key),
		r.prefixKey(keySequence),
		r.prefixKey(keyIndexRecords),
		r.prefixKey(keyIndexEvents),
	}
	seq, err := commitScript.Run(ctx, r.client, keys,
		string(recordData), string(eventData), record.Key.Hex(), r.prefixKey(keyPrefixEvent)).Int64()
	if err != nil {
		return fmt.Errorf("failed to commit post: %w", err)
	}
	if seq == 0 {
		return persistence.ErrAlreadyPosted
	}

	event.Sequence = uint64(seq)
	return nil
}

// LoadRecord retrieves the record for key
func (r *RedisPersistence) LoadRecord(key types.RegistryKey) (*types.PostedMessageRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		return nil, persistence.ErrClosed
	}

	ctx, cancel := context.WithTimeout(context.Background(), operationTimeout)
	defer cancel()

	data, err := r.client.Get(ctx, r.recordKey(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load PostedMessageRecord: %w", err)
	}

	record, err := persistence.UnmarshalRecord(data)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal PostedMessageRecord: %w", err)
	}
	return record, nil
}

// ListRecords returns all records sorted by key
func (r *RedisPersistence) ListRecords() ([]*types.PostedMessageRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		return nil, persistence.ErrClosed
	}

	ctx, cancel := context.WithTimeout(context.Background(), operationTimeout)
	defer cancel()

	hexKeys, err := r.client.ZRange(ctx, r.prefixKey(keyIndexRecords), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list record keys: %w", err)
	}

	records := make([]*types.PostedMessageRecord, 0, len(hexKeys))
	if len(hexKeys) == 0 {
		return records, nil
	}

	keys := make([]string, len(hexKeys))
	for i, h := range hexKeys {
		keys[i] = r.prefixKey(keyPrefixRecord + h)
	}

	values, err := r.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to fetch PostedMessageRecords: %w", err)
	}

	for i, val := range values {
		data, ok := val.(string)
		if !ok {
			r.logger.Sugar().Warnw("Record in index but missing, skipping", "key", keys[i])
			continue
		}

		record, err := persistence.UnmarshalRecord([]byte(data))
		if err != nil {
			r.logger.Sugar().Warnw("Failed to unmarshal PostedMessageRecord, skipping",
				"key", keys[i], "error", err)
			continue
		}
		records = append(records, record)
	}

	return records, nil
}

// ListEvents returns events after afterSequence in commit order
func (r *RedisPersistence) ListEvents(afterSequence uint64, limit int) ([]*types.PostedMessageEvent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		return nil, persistence.ErrClosed
	}

	ctx, cancel := context.WithTimeout(context.Background(), operationTimeout)
	defer cancel()

	opt := &redis.ZRangeBy{
		Min: "(" + strconv.FormatUint(afterSequence, 10),
		Max: "+inf",
	}
	if limit > 0 {
		opt.Count = int64(limit)
	}

	seqs, err := r.client.ZRangeByScore(ctx, r.prefixKey(keyIndexEvents), opt).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list event sequences: %w", err)
	}

	events := make([]*types.PostedMessageEvent, 0, len(seqs))
	if len(seqs) == 0 {
		return events, nil
	}

	keys := make([]string, len(seqs))
	for i, s := range seqs {
		keys[i] = r.eventKey(s)
	}

	values, err := r.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to fetch PostedMessageEvents: %w", err)
	}

	for i, val := range values {
		data, ok := val.(string)
		if !ok {
			return nil, fmt.Errorf("event %s is indexed but missing", keys[i])
		}

		event, err := persistence.UnmarshalEvent([]byte(data))
		if err != nil {
			return nil, fmt.Errorf("failed to unmarshal PostedMessageEvent %s: %w", keys[i], err)
		}

		event.Sequence, err = strconv.ParseUint(seqs[i], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid event sequence %q: %w", seqs[i], err)
		}
		events = append(events, event)
	}

	return events, nil
}

// Close shuts down the persistence layer
func (r *RedisPersistence) Close() error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	r.mu.Unlock()

	if err := r.client.Close(); err != nil {
		return fmt.Errorf("failed to close Redis client: %w", err)
	}

	r.logger.Sugar().Info("Redis persistence closed")
	return nil
}

// HealthCheck verifies the persistence layer is operational
func (r *RedisPersistence) HealthCheck() error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		return persistence.ErrClosed
	}

	ctx, cancel := context.WithTimeout(context.Background(), operationTimeout)
	defer cancel()

	if err := r.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis health check failed: %w", err)
	}

	_, err := r.client.Get(ctx, r.prefixKey(keySchemaVersion)).Result()
	if errors.Is(err, redis.Nil) {
		return fmt.Errorf("schema version not found - database may not be properly initialized")
	}
	if err != nil {
		return fmt.Errorf("failed to verify schema version: %w", err)
	}

	return nil
}

// Package sql implements the registry on a relational database through gorm.
// Postgres suits shared deployments; sqlite suits single-host installs and tests.
package sql

import (
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	"github.com/Layr-Labs/verified-messages-go/pkg/config"
	"github.com/Layr-Labs/verified-messages-go/pkg/persistence"
	"github.com/Layr-Labs/verified-messages-go/pkg/types"
)

// postedMessage is the registry row. Key is the 0x-hex registry key, so
// ordering by it matches byte order.
type postedMessage struct {
	Key      string `gorm:"column:registry_key;primaryKey;type:varchar(66)"`
	Message  []byte `gorm:"column:message;not null"`
	Signer   string `gorm:"column:signer;not null;index"`
	PostedAt int64  `gorm:"column:posted_at;not null"`
}

func (postedMessage) TableName() string {
	return "posted_messages"
}

// postedMessageEvent is the event log row. Sequence is assigned by the database.
type postedMessageEvent struct {
	Sequence uint64 `gorm:"column:sequence;primaryKey;autoIncrement"`
	ID       string `gorm:"column:id;not null;uniqueIndex"`
	Key      string `gorm:"column:registry_key;not null;uniqueIndex"`
	Message  []byte `gorm:"column:message;not null"`
	Signer   string `gorm:"column:signer;not null"`
	PostedAt int64  `gorm:"column:posted_at;not null"`
}

func (postedMessageEvent) TableName() string {
	return "posted_message_events"
}

// SQLConfig holds the configuration for connecting to the database
type SQLConfig struct {
	Driver config.SQLDriver
	// DSN is a postgres connection string or a sqlite file path / URI
	DSN string
}

// SQLPersistence is a registry backed by a gorm database.
type SQLPersistence struct {
	db     *gorm.DB
	logger *zap.Logger
	mu     sync.RWMutex
	closed bool
}

// NewSQLPersistence opens the database and migrates the registry tables.
func NewSQLPersistence(cfg *SQLConfig, logger *zap.Logger) (*SQLPersistence, error) {
	if cfg == nil {
		return nil, fmt.Errorf("sql config cannot be nil")
	}
	if cfg.DSN == "" {
		return nil, fmt.Errorf("sql dsn cannot be empty")
	}

	var dial gorm.Dialector
	switch cfg.Driver {
	case config.SQLDriverPostgres:
		dial = postgres.Open(cfg.DSN)
	case config.SQLDriverSqlite:
		dial = sqlite.Open(cfg.DSN)
	default:
		return nil, fmt.Errorf("unsupported sql driver: %s", cfg.Driver)
	}

	db, err := gorm.Open(dial, &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open %s database: %w", cfg.Driver, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database handle: %w", err)
	}
	if cfg.Driver == config.SQLDriverSqlite {
		// sqlite allows a single writer; one connection queues commits instead of failing them with SQLITE_BUSY
		sqlDB.SetMaxOpenConns(1)
	}

	if err := db.AutoMigrate(&postedMessage{}, &postedMessageEvent{}); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("failed to migrate registry tables: %w", err)
	}

	logger.Sugar().Infow("SQL persistence initialized", "driver", cfg.Driver.String())

	return &SQLPersistence{
		db:     db,
		logger: logger,
	}, nil
}

// IsPosted reports whether a record exists for key
func (s *SQLPersistence) IsPosted(key types.RegistryKey) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return false, persistence.ErrClosed
	}

	var count int64
	if err := s.db.Model(&postedMessage{}).Where("registry_key = ?", key.Hex()).Count(&count).Error; err != nil {
		return false, fmt.Errorf("failed to look up record: %w", err)
	}
	return count > 0, nil
}

// CommitPost inserts the record and its event in one transaction. The record
// insert uses ON CONFLICT DO NOTHING, so a concurrent duplicate affects zero rows.
func (s *SQLPersistence) CommitPost(record *types.PostedMessageRecord, event *types.PostedMessageEvent) error {
	if err := persistence.ValidateCommit(record, event); err != nil {
		return err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return persistence.ErrClosed
	}

	row := &postedMessage{
		Key:      record.Key.Hex(),
		Message:  append([]byte{}, record.Message...),
		Signer:   record.Signer,
		PostedAt: record.PostedAt,
	}
	eventRow := &postedMessageEvent{
		ID:       event.ID,
		Key:      event.Key.Hex(),
		Message:  append([]byte{}, event.Message...),
		Signer:   event.Signer,
		PostedAt: event.PostedAt,
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(row)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return persistence.ErrAlreadyPosted
		}
		return tx.Create(eventRow).Error
	})
	if errors.Is(err, persistence.ErrAlreadyPosted) {
		return err
	}
	if err != nil {
		return fmt.Errorf("failed to commit post: %w", err)
	}

	event.Sequence = eventRow.Sequence
	return nil
}

// LoadRecord retrieves the record for key
func (s *SQLPersistence) LoadRecord(key types.RegistryKey) (*types.PostedMessageRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, persistence.ErrClosed
	}

	var rows []postedMessage
	if err := s.db.Where("registry_key = ?", key.Hex()).Limit(1).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to load PostedMessageRecord: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0].toRecord()
}

// ListRecords returns all records sorted by key
func (s *SQLPersistence) ListRecords() ([]*types.PostedMessageRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, persistence.ErrClosed
	}

	var rows []postedMessage
	if err := s.db.Order("registry_key ASC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list PostedMessageRecords: %w", err)
	}

	records := make([]*types.PostedMessageRecord, 0, len(rows))
	for _, row := range rows {
		record, err := row.toRecord()
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, nil
}

// ListEvents returns events after afterSequence in commit order
func (s *SQLPersistence) ListEvents(afterSequence uint64, limit int) ([]*types.PostedMessageEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, persistence.ErrClosed
	}

	q := s.db.Where("sequence > ?", afterSequence).Order("sequence ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}

	var rows []postedMessageEvent
	if err := q.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list PostedMessageEvents: %w", err)
	}

	events := make([]*types.PostedMessageEvent, 0, len(rows))
	for _, row := range rows {
		event, err := row.toEvent()
		if err != nil {
			return nil, err
		}
		events = append(events, event)
	}
	return events, nil
}

// Close shuts down the persistence layer
func (s *SQLPersistence) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get database handle: %w", err)
	}
	if err := sqlDB.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}

	s.logger.Sugar().Info("SQL persistence closed")
	return nil
}

// HealthCheck verifies the persistence layer is operational
func (s *SQLPersistence) HealthCheck() error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return persistence.ErrClosed
	}

	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get database handle: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		return fmt.Errorf("sql health check failed: %w", err)
	}
	return nil
}

func (r postedMessage) toRecord() (*types.PostedMessageRecord, error) {
	key, err := types.RegistryKeyFromHex(r.Key)
	if err != nil {
		return nil, fmt.Errorf("corrupt record key %q: %w", r.Key, err)
	}
	return &types.PostedMessageRecord{
		Key:      key,
		Message:  append([]byte{}, r.Message...),
		Signer:   r.Signer,
		PostedAt: r.PostedAt,
	}, nil
}

func (e postedMessageEvent) toEvent() (*types.PostedMessageEvent, error) {
	key, err := types.RegistryKeyFromHex(e.Key)
	if err != nil {
		return nil, fmt.Errorf("corrupt event key %q: %w", e.Key, err)
	}
	return &types.PostedMessageEvent{
		ID:       e.ID,
		Sequence: e.Sequence,
		Key:      key,
		Message:  append([]byte{}, e.Message...),
		Signer:   e.Signer,
		PostedAt: e.PostedAt,
	}, nil
}

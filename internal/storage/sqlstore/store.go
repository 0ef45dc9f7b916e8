package sqlstore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/mcnannay/peptrackr/internal/core/domain"
	"github.com/mcnannay/peptrackr/internal/core/service"
)

// findBatchSize bounds the number of bound parameters per IN query.
const findBatchSize = 500

// Config configures the SQL store.
type Config struct {
	// DSN is a database URL or SQLite DSN (see ParseDSN).
	DSN string

	// BusyTimeout is how long a writer waits on a locked database.
	BusyTimeout time.Duration

	// SlowQuery logs statements slower than this at warn level (0 disables).
	SlowQuery time.Duration
}

// Store implements service.EntryRepository on a gorm connection.
type Store struct {
	db     *gorm.DB
	logger *slog.Logger
}

var _ service.EntryRepository = (*Store)(nil)

// Open connects to the database and runs pending migrations.
func Open(cfg Config, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}

	dsn, err := ParseDSN(cfg.DSN)
	if err != nil {
		return nil, err
	}

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         newSlogLogger(logger, cfg.SlowQuery),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("sqlstore: open: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("sqlstore: pool: %w", err)
	}
	// SQLite allows one writer; a single connection also keeps ":memory:"
	// databases alive for the life of the store.
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetConnMaxLifetime(0)

	if cfg.BusyTimeout > 0 {
		if err := db.Exec(fmt.Sprintf("PRAGMA busy_timeout = %d", cfg.BusyTimeout.Milliseconds())).Error; err != nil {
			sqlDB.Close()
			return nil, fmt.Errorf("sqlstore: busy_timeout: %w", err)
		}
	}

	if err := Migrate(db); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("sqlstore: migrate: %w", err)
	}

	logger.Info("sql store opened", "driver", "sqlite", "table", TableName)

	return &Store{db: db, logger: logger}, nil
}

// New wraps an existing, migrated gorm connection.
func New(db *gorm.DB, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{db: db, logger: logger}
}

// Get retrieves the value stored under key.
func (s *Store) Get(ctx context.Context, key string) (domain.Value, error) {
	var rows []kvRow
	// Find instead of First: an absent key is not worth an error log line.
	result := s.db.WithContext(ctx).Where("key = ?", key).Limit(1).Find(&rows)
	if result.Error != nil {
		return nil, fmt.Errorf("read key %s: %w", key, result.Error)
	}
	if len(rows) == 0 {
		return nil, domain.ErrEntryNotFound
	}
	return domain.Value(rows[0].Value), nil
}

// Find retrieves the entries among keys that exist.
func (s *Store) Find(ctx context.Context, keys []string) (map[string]domain.Value, error) {
	out := make(map[string]domain.Value, len(keys))
	for start := 0; start < len(keys); start += findBatchSize {
		end := min(start+findBatchSize, len(keys))

		var rows []kvRow
		if err := s.db.WithContext(ctx).Where("key IN ?", keys[start:end]).Find(&rows).Error; err != nil {
			return nil, fmt.Errorf("read keys: %w", err)
		}
		for _, r := range rows {
			out[r.Key] = domain.Value(r.Value)
		}
	}
	return out, nil
}

// All retrieves every stored entry.
func (s *Store) All(ctx context.Context) (map[string]domain.Value, error) {
	var rows []kvRow
	if err := s.db.WithContext(ctx).Order("key").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("read all: %w", err)
	}

	out := make(map[string]domain.Value, len(rows))
	for _, r := range rows {
		out[r.Key] = domain.Value(r.Value)
	}
	return out, nil
}

// Exists reports whether key is present.
func (s *Store) Exists(ctx context.Context, key string) (bool, error) {
	var n int64
	if err := s.db.WithContext(ctx).Model(&kvRow{}).Where("key = ?", key).Count(&n).Error; err != nil {
		return false, fmt.Errorf("lookup key %s: %w", key, err)
	}
	return n > 0, nil
}

// Insert stores a new entry.
func (s *Store) Insert(ctx context.Context, entry *domain.Entry) error {
	row := kvRow{Key: entry.Key, Value: datatypes.JSON(entry.Value)}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return domain.ErrEntryConflict
		}
		return fmt.Errorf("insert key %s: %w", entry.Key, err)
	}
	return nil
}

// Replace overwrites the value of an existing entry.
func (s *Store) Replace(ctx context.Context, entry *domain.Entry) error {
	result := s.db.WithContext(ctx).
		Model(&kvRow{}).
		Where("key = ?", entry.Key).
		Update("value", datatypes.JSON(entry.Value))
	if result.Error != nil {
		return fmt.Errorf("update key %s: %w", entry.Key, result.Error)
	}
	if result.RowsAffected == 0 {
		return domain.ErrEntryNotFound
	}
	return nil
}

// Upsert inserts entry or overwrites the existing row in one statement.
func (s *Store) Upsert(ctx context.Context, entry *domain.Entry) error {
	row := kvRow{Key: entry.Key, Value: datatypes.JSON(entry.Value)}
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "key"}},
			DoUpdates: clause.AssignmentColumns([]string{"value"}),
		}).
		Create(&row).Error
	if err != nil {
		return fmt.Errorf("upsert key %s: %w", entry.Key, err)
	}
	return nil
}

// Delete removes the entry stored under key.
func (s *Store) Delete(ctx context.Context, key string) error {
	result := s.db.WithContext(ctx).Where("key = ?", key).Delete(&kvRow{})
	if result.Error != nil {
		return fmt.Errorf("delete key %s: %w", key, result.Error)
	}
	if result.RowsAffected == 0 {
		return domain.ErrEntryNotFound
	}
	return nil
}

// Count returns the number of stored entries.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int64
	if err := s.db.WithContext(ctx).Model(&kvRow{}).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("count: %w", err)
	}
	return int(n), nil
}

// Ping checks that the database answers.
func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Close closes the underlying connection pool.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	s.logger.Info("sql store closed")
	return sqlDB.Close()
}

package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/storefront/cartsync/internal/domain/cart"
)

// snapshotRecord is the gorm model for a cached cart snapshot. One row per
// account key; the payload is the same JSON array the other backends store.
type snapshotRecord struct {
	AccountKey string `gorm:"primaryKey;size:128"`
	Payload    []byte
	UpdatedAt  time.Time
}

// TableName sets the table name for gorm
func (snapshotRecord) TableName() string {
	return "cart_snapshots"
}

// SQLiteSnapshotStore implements cart.SnapshotStore on a local SQLite file,
// the durable storage slot of the engine: it survives restarts the way
// browser storage survives page reloads.
type SQLiteSnapshotStore struct {
	db       *gorm.DB
	validate *validator.Validate
	logger   *zap.Logger
}

// NewSQLiteSnapshotStore opens (and migrates) the SQLite file at path
func NewSQLiteSnapshotStore(path string, logger *zap.Logger) (*SQLiteSnapshotStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open snapshot database: %w", err)
	}
	if err := db.AutoMigrate(&snapshotRecord{}); err != nil {
		return nil, fmt.Errorf("failed to migrate snapshot schema: %w", err)
	}
	return &SQLiteSnapshotStore{
		db:       db,
		validate: newLineValidator(),
		logger:   logger,
	}, nil
}

// Save persists the lines under key, replacing any previous copy
func (s *SQLiteSnapshotStore) Save(ctx context.Context, key string, lines []cart.Line) error {
	data, err := encodeLines(lines)
	if err != nil {
		return err
	}
	record := snapshotRecord{AccountKey: key, Payload: data, UpdatedAt: time.Now()}
	if err := s.db.WithContext(ctx).Save(&record).Error; err != nil {
		return fmt.Errorf("failed to save cart snapshot: %w", err)
	}
	return nil
}

// Load returns the cached lines for key, dropping malformed rows
func (s *SQLiteSnapshotStore) Load(ctx context.Context, key string) ([]cart.Line, error) {
	var record snapshotRecord
	err := s.db.WithContext(ctx).First(&record, "account_key = ?", key).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load cart snapshot: %w", err)
	}
	return decodeLines(record.Payload, s.validate, s.logger)
}

// Delete discards the cached copy for key
func (s *SQLiteSnapshotStore) Delete(ctx context.Context, key string) error {
	if err := s.db.WithContext(ctx).Delete(&snapshotRecord{}, "account_key = ?", key).Error; err != nil {
		return fmt.Errorf("failed to delete cart snapshot: %w", err)
	}
	return nil
}

// Close closes the underlying database handle
func (s *SQLiteSnapshotStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Ensure SQLiteSnapshotStore implements SnapshotStore
var _ cart.SnapshotStore = (*SQLiteSnapshotStore)(nil)

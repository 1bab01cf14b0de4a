package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/mattn/go-sqlite3"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"github.com/itory/itory/internal/logging"
	"github.com/itory/itory/internal/ports"
)

// SQLiteStore implements ports.SnapshotStore using GORM
type SQLiteStore struct {
	db  *gorm.DB
	now func() time.Time
	ttl time.Duration
}

// Verify interface compliance at compile time
var _ ports.SnapshotStore = (*SQLiteStore)(nil)

// gormLogger wraps the itory logger for GORM
type gormLogger struct {
	level logger.LogLevel
}

func (l *gormLogger) LogMode(level logger.LogLevel) logger.Interface {
	return &gormLogger{level: level}
}

func (l *gormLogger) Info(ctx context.Context, msg string, data ...any) {
	if l.level >= logger.Info {
		logging.Logger.Info(fmt.Sprintf(msg, data...))
	}
}

func (l *gormLogger) Warn(ctx context.Context, msg string, data ...any) {
	if l.level >= logger.Warn {
		logging.Logger.Warn(fmt.Sprintf(msg, data...))
	}
}

func (l *gormLogger) Error(ctx context.Context, msg string, data ...any) {
	if l.level >= logger.Error {
		logging.Logger.Error(fmt.Sprintf(msg, data...))
	}
}

func (l *gormLogger) Trace(ctx context.Context, begin time.Time, fc func() (sql string, rowsAffected int64), err error) {
	if l.level < logger.Info {
		return
	}

	elapsed := time.Since(begin)
	sql, rows := fc()

	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		logging.Logger.Error("gorm query error",
			"error", err,
			"duration", elapsed,
			"sql", sql,
			"rows", rows,
		)
	} else if elapsed > 200*time.Millisecond {
		logging.Logger.Warn("slow query",
			"duration", elapsed,
			"sql", sql,
			"rows", rows,
		)
	} else {
		logging.Logger.Debug("gorm query",
			"duration", elapsed,
			"sql", sql,
			"rows", rows,
		)
	}
}

func newGormLogger() logger.Interface {
	if os.Getenv("ITORY_DEBUG") == "1" {
		return (&gormLogger{}).LogMode(logger.Info)
	}
	return (&gormLogger{}).LogMode(logger.Silent)
}

// NewSQLiteStore opens (creating if needed) the snapshot database at dbPath.
// Snapshots older than ttl are treated as absent; zero disables expiry.
func NewSQLiteStore(dbPath string, ttl time.Duration) (*SQLiteStore, error) {
	// Expand home directory if present
	if len(dbPath) > 0 && dbPath[0] == '~' {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		dbPath = filepath.Join(homeDir, dbPath[1:])
	}

	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		PrepareStmt: false,
		NowFunc:     func() time.Time { return time.Now().UTC() },
		Logger:      newGormLogger(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// WAL lets a second process read while the TUI writes
	db.Exec("PRAGMA journal_mode=WAL")
	db.Exec("PRAGMA busy_timeout=5000")
	db.Exec("PRAGMA synchronous=NORMAL")

	if err := db.AutoMigrate(&SnapshotModel{}); err != nil {
		return nil, fmt.Errorf("failed to migrate snapshot schema: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database handle: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)
	sqlDB.SetConnMaxLifetime(0)

	logging.Logger.Debug("Snapshot database opened", "path", dbPath, "ttl", ttl)

	store := &SQLiteStore{
		db:  db,
		now: func() time.Time { return time.Now().UTC() },
		ttl: ttl,
	}
	if removed, err := store.PurgeExpired(context.Background()); err != nil {
		logging.Logger.Warn("Failed to purge expired snapshots", "error", err)
	} else if removed > 0 {
		logging.Logger.Info("Purged expired snapshots", "count", removed)
	}
	return store, nil
}

// NewSQLiteStoreForPath opens the snapshot database inside an ITORY_HOME directory
func NewSQLiteStoreForPath(itoryHomePath string, ttl time.Duration) (*SQLiteStore, error) {
	return NewSQLiteStore(filepath.Join(itoryHomePath, "state.db"), ttl)
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Load implements SnapshotStore.Load
func (s *SQLiteStore) Load(ctx context.Context, key string) ([]byte, error) {
	var row SnapshotModel
	err := withRetry(func() error {
		return s.db.WithContext(ctx).Where("snapshot_key = ?", key).First(&row).Error
	}, 3)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load snapshot %s: %w", key, err)
	}

	if row.expired(s.now()) {
		logging.Logger.Info("Snapshot expired, purging", "key", key, "expires_at", row.ExpiresAt)
		if err := s.Delete(ctx, key); err != nil {
			logging.Logger.Warn("Failed to purge expired snapshot", "key", key, "error", err)
		}
		return nil, nil
	}
	return row.Payload, nil
}

// Save implements SnapshotStore.Save
func (s *SQLiteStore) Save(ctx context.Context, key string, payload []byte) error {
	row := SnapshotModel{
		Key:     key,
		Payload: payload,
	}
	if s.ttl > 0 {
		expiresAt := s.now().Add(s.ttl)
		row.ExpiresAt = &expiresAt
	}

	return withRetry(func() error {
		err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "snapshot_key"}},
			DoUpdates: clause.AssignmentColumns([]string{"payload", "expires_at", "updated_at"}),
		}).Create(&row).Error
		if err != nil {
			return fmt.Errorf("failed to save snapshot %s: %w", key, err)
		}
		return nil
	}, 3)
}

// Delete implements SnapshotStore.Delete. Deleting a missing key is not an error.
func (s *SQLiteStore) Delete(ctx context.Context, key string) error {
	return withRetry(func() error {
		if err := s.db.WithContext(ctx).Where("snapshot_key = ?", key).Delete(&SnapshotModel{}).Error; err != nil {
			return fmt.Errorf("failed to delete snapshot %s: %w", key, err)
		}
		return nil
	}, 3)
}

// PurgeExpired removes every expired snapshot and returns how many were removed
func (s *SQLiteStore) PurgeExpired(ctx context.Context) (int64, error) {
	var removed int64
	err := withRetry(func() error {
		res := s.db.WithContext(ctx).
			Where("expires_at IS NOT NULL AND expires_at <= ?", s.now()).
			Delete(&SnapshotModel{})
		removed = res.RowsAffected
		return res.Error
	}, 3)
	if err != nil {
		return 0, fmt.Errorf("failed to purge expired snapshots: %w", err)
	}
	return removed, nil
}

// withRetry retries operations on SQLITE_BUSY with a linear backoff
func withRetry(fn func() error, maxRetries int) error {
	var err error
	for i := 0; i < maxRetries; i++ {
		err = fn()
		if err == nil {
			return nil
		}

		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && (sqliteErr.Code == sqlite3.ErrBusy || sqliteErr.Code == sqlite3.ErrLocked) {
			time.Sleep(time.Millisecond * time.Duration(50*(i+1)))
			continue
		}

		return err
	}
	return fmt.Errorf("operation failed after %d retries: %w", maxRetries, err)
}

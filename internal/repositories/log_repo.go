package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync" // Import sync for mutex
	"time"

	"go-crewkit/internal/models"

	"go.uber.org/zap"
)

// ErrLogStoreUnavailable is returned when an operation fails because the
// SQLite handle has not been set yet or the store cannot be reached.
var ErrLogStoreUnavailable = errors.New("log store unavailable")

// LogRepository defines the interface for log record operations
type LogRepository interface {
	InsertLog(ctx context.Context, entry models.LogEntry) error
	GetLogs(ctx context.Context, limit int) ([]models.LogEntry, error)
	GetRecentLogs(ctx context.Context, limit int) ([]models.LogEntry, error)
	DeleteLogsByID(ctx context.Context, ids []int64) error

	// SetDB needs to be part of the interface so the app can attach the
	// SQLite handle after the loggers (which use this repo) already exist.
	SetDB(db *sql.DB)
	SetLogger(logger *zap.Logger)
}

// logRepositoryImpl implements LogRepository over SQLite
type logRepositoryImpl struct {
	db     *sql.DB // Can be nil during early startup
	logger *zap.Logger
	mu     sync.RWMutex // Protects db and logger handles
}

// NewLogRepository creates a new LogRepository. The DB handle may be nil
// initially; InsertLog must tolerate that until SetDB is called.
func NewLogRepository(db *sql.DB, logger *zap.Logger) LogRepository {
	if logger == nil {
		fallbackLogger, _ := zap.NewDevelopment()
		logger = fallbackLogger
		logger.Warn("NewLogRepository received nil logger, using fallback.")
	}
	return &logRepositoryImpl{
		db:     db,
		logger: logger,
	}
}

func (r *logRepositoryImpl) handle() *sql.DB {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.db
}

func (r *logRepositoryImpl) InsertLog(ctx context.Context, entry models.LogEntry) error {
	db := r.handle()
	if db == nil {
		// Expected briefly during startup before SetDB; the SQLite core
		// reports this on stderr without failing anything.
		return fmt.Errorf("sqlite handle is nil: %w", ErrLogStoreUnavailable)
	}
	query := `INSERT INTO tbl_log (timestamp, level, message, fields) VALUES (?, ?, ?, ?)`
	fieldsJSON := entry.Fields
	if fieldsJSON == "" {
		fieldsJSON = "{}"
	}
	_, err := db.ExecContext(ctx, query, entry.Timestamp.Format(time.RFC3339Nano), entry.Level, entry.Message, fieldsJSON)
	if err != nil {
		return fmt.Errorf("sqlite insert failed: %w", err)
	}
	return nil
}

// GetLogs returns the oldest records first (archival order).
func (r *logRepositoryImpl) GetLogs(ctx context.Context, limit int) ([]models.LogEntry, error) {
	return r.queryLogs(ctx, `SELECT id, timestamp, level, message, fields FROM tbl_log ORDER BY id ASC LIMIT ?`, limit)
}

// GetRecentLogs returns the newest records first (API log viewer).
func (r *logRepositoryImpl) GetRecentLogs(ctx context.Context, limit int) ([]models.LogEntry, error) {
	return r.queryLogs(ctx, `SELECT id, timestamp, level, message, fields FROM tbl_log ORDER BY id DESC LIMIT ?`, limit)
}

func (r *logRepositoryImpl) queryLogs(ctx context.Context, query string, limit int) ([]models.LogEntry, error) {
	db := r.handle()
	if db == nil {
		return nil, fmt.Errorf("sqlite handle is nil: %w", ErrLogStoreUnavailable)
	}
	rows, err := db.QueryContext(ctx, query, limit)
	if err != nil {
		r.logger.Error("Failed to query logs from SQLite", zap.Error(err))
		return nil, fmt.Errorf("sqlite query failed: %w", err)
	}
	defer rows.Close()
	var logs []models.LogEntry
	for rows.Next() {
		var entry models.LogEntry
		var tsStr string
		var fields sql.NullString
		if err := rows.Scan(&entry.ID, &tsStr, &entry.Level, &entry.Message, &fields); err != nil {
			r.logger.Error("Failed to scan log row from SQLite", zap.Error(err))
			continue
		}
		entry.Timestamp, err = time.Parse(time.RFC3339Nano, tsStr)
		if err != nil {
			r.logger.Warn("Failed to parse timestamp from SQLite", zap.String("raw_ts", tsStr), zap.Error(err))
			entry.Timestamp = time.Now().UTC()
		}
		if fields.Valid {
			entry.Fields = fields.String
		} else {
			entry.Fields = "{}"
		}
		logs = append(logs, entry)
	}
	if err = rows.Err(); err != nil {
		r.logger.Error("Error during iteration over SQLite log rows", zap.Error(err))
		return nil, fmt.Errorf("sqlite row iteration error: %w", err)
	}
	return logs, nil
}

func (r *logRepositoryImpl) DeleteLogsByID(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	db := r.handle()
	if db == nil {
		return fmt.Errorf("sqlite handle is nil: %w", ErrLogStoreUnavailable)
	}
	placeholders := make([]string, len(ids))
	args := make([]interface{}, len(ids))
	for i, id := range ids {
		placeholders[i] = "?"
		args[i] = id
	}
	query := fmt.Sprintf(`DELETE FROM tbl_log WHERE id IN (%s)`, strings.Join(placeholders, ","))
	result, err := db.ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to delete logs from SQLite", zap.Error(err))
		return fmt.Errorf("sqlite delete failed: %w", err)
	}
	rowsAffected, _ := result.RowsAffected()
	r.logger.Debug("Deleted logs from SQLite", zap.Int64("rows_affected", rowsAffected), zap.Int("id_count", len(ids)))
	return nil
}

// SetDB attaches the SQLite handle once the database is initialized.
// Concurrency-safe: the SQLite logging core may already be writing.
func (r *logRepositoryImpl) SetDB(db *sql.DB) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.db = db
	status := "nil"
	if db != nil {
		status = "set/updated"
	}
	r.logger.Info("LogRepository SQLite handle updated via SetDB", zap.String("status", status))
}

// SetLogger swaps the repository's own logger once the final run logger
// exists (the repo is created before the loggers it feeds).
func (r *logRepositoryImpl) SetLogger(logger *zap.Logger) {
	if logger == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.logger = logger
}

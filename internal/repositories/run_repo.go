package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go-crewkit/internal/models"

	"go.uber.org/zap"
)

// ErrRunNotFound is returned when a crew run cannot be located.
var ErrRunNotFound = errors.New("crew run not found")

// RunRepository persists crew kickoff history.
type RunRepository interface {
	InsertRun(ctx context.Context, run models.CrewRun) (int64, error)
	GetRunByID(ctx context.Context, id int64) (*models.CrewRun, error)
	ListRuns(ctx context.Context, limit int) ([]models.CrewRun, error)
}

type runRepositoryImpl struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewRunRepository creates a new RunRepository backed by SQLite.
func NewRunRepository(db *sql.DB, logger *zap.Logger) RunRepository {
	if logger == nil {
		fallbackLogger, _ := zap.NewDevelopment()
		logger = fallbackLogger
		logger.Warn("NewRunRepository received nil logger, using fallback.")
	}
	return &runRepositoryImpl{db: db, logger: logger}
}

func (r *runRepositoryImpl) InsertRun(ctx context.Context, run models.CrewRun) (int64, error) {
	if r.db == nil {
		return 0, fmt.Errorf("sqlite handle is nil: %w", ErrLogStoreUnavailable)
	}
	query := `INSERT INTO tbl_crew_run (topic, inputs, result_preview, duration_seconds, status, error, created_at)
	          VALUES (?, ?, ?, ?, ?, ?, ?)`
	createdAt := run.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	result, err := r.db.ExecContext(ctx, query,
		run.Topic, run.Inputs, run.ResultPreview, run.DurationSecs, run.Status, run.Error,
		createdAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		r.logger.Error("Failed to insert crew run", zap.Error(err))
		return 0, fmt.Errorf("sqlite insert run failed: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		r.logger.Warn("Could not obtain crew run insert id", zap.Error(err))
		return 0, nil
	}
	return id, nil
}

func (r *runRepositoryImpl) GetRunByID(ctx context.Context, id int64) (*models.CrewRun, error) {
	if r.db == nil {
		return nil, fmt.Errorf("sqlite handle is nil: %w", ErrLogStoreUnavailable)
	}
	query := `SELECT id, topic, inputs, result_preview, duration_seconds, status, error, created_at
	          FROM tbl_crew_run WHERE id = ?`
	row := r.db.QueryRowContext(ctx, query, id)
	run, err := scanRun(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRunNotFound
	}
	if err != nil {
		r.logger.Error("Failed to scan crew run row", zap.Int64("id", id), zap.Error(err))
		return nil, fmt.Errorf("sqlite get run failed: %w", err)
	}
	return run, nil
}

func (r *runRepositoryImpl) ListRuns(ctx context.Context, limit int) ([]models.CrewRun, error) {
	if r.db == nil {
		return nil, fmt.Errorf("sqlite handle is nil: %w", ErrLogStoreUnavailable)
	}
	query := `SELECT id, topic, inputs, result_preview, duration_seconds, status, error, created_at
	          FROM tbl_crew_run ORDER BY id DESC LIMIT ?`
	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		r.logger.Error("Failed to query crew runs", zap.Error(err))
		return nil, fmt.Errorf("sqlite list runs failed: %w", err)
	}
	defer rows.Close()
	var runs []models.CrewRun
	for rows.Next() {
		run, err := scanRun(rows.Scan)
		if err != nil {
			r.logger.Error("Failed to scan crew run row", zap.Error(err))
			continue
		}
		runs = append(runs, *run)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite run row iteration error: %w", err)
	}
	return runs, nil
}

func scanRun(scan func(dest ...interface{}) error) (*models.CrewRun, error) {
	var run models.CrewRun
	var tsStr string
	var errStr sql.NullString
	if err := scan(&run.ID, &run.Topic, &run.Inputs, &run.ResultPreview, &run.DurationSecs, &run.Status, &errStr, &tsStr); err != nil {
		return nil, err
	}
	if errStr.Valid {
		run.Error = errStr.String
	}
	if ts, err := time.Parse(time.RFC3339Nano, tsStr); err == nil {
		run.CreatedAt = ts
	} else {
		run.CreatedAt = time.Now().UTC()
	}
	return &run, nil
}

package logging

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go-crewkit/internal/config"
	"go-crewkit/internal/models"
	"go-crewkit/internal/repositories"

	"github.com/klauspost/compress/gzip"
	"go.uber.org/zap"
)

// ErrArchiveWrite is returned when a batch could not be flushed to the
// archive file. Batches that fail to archive stay in SQLite.
var ErrArchiveWrite = errors.New("log archive write error")

// LogProcessor drains structured log records from SQLite into gzipped JSONL
// archive files so the store stays small across long-lived processes.
type LogProcessor struct {
	cfg       *config.Config
	logRepo   repositories.LogRepository
	logger    *zap.Logger
	ticker    *time.Ticker
	stopChan  chan struct{}
	isRunning bool
}

// NewLogProcessor creates a new LogProcessor instance
func NewLogProcessor(cfg *config.Config, logRepo repositories.LogRepository, logger *zap.Logger) *LogProcessor {
	return &LogProcessor{
		cfg:      cfg,
		logRepo:  logRepo,
		logger:   logger,
		stopChan: make(chan struct{}),
	}
}

// Start begins the log processing loop in a separate goroutine
func (p *LogProcessor) Start() {
	if p.isRunning {
		p.logger.Warn("Log processor already running")
		return
	}
	p.ticker = time.NewTicker(p.cfg.LogBatchInterval)
	p.isRunning = true
	go p.run()
	p.logger.Info("SQLite to archive log processor started", zap.Duration("interval", p.cfg.LogBatchInterval))
}

// Stop signals the log processing loop to terminate gracefully and flushes a
// final batch.
func (p *LogProcessor) Stop() {
	if !p.isRunning {
		p.logger.Warn("Log processor not running")
		return
	}
	p.logger.Info("Stopping log archive processor...")
	select {
	case <-p.stopChan:
		// Already closed
	default:
		close(p.stopChan)
	}
	if p.ticker != nil {
		p.ticker.Stop()
	}
	p.isRunning = false
	// Wait briefly allows run() goroutine to exit gracefully after receiving signal
	time.Sleep(500 * time.Millisecond)
	p.logger.Info("Processing final log batch before shutdown...")
	retryDelay := time.Duration(p.cfg.LogArchiveRetryDelaySecs) * time.Second
	shutdownCtx, cancel := context.WithTimeout(context.Background(), retryDelay+5*time.Second)
	defer cancel()
	p.processBatch(shutdownCtx)
	p.logger.Info("Log processor stopped.")
}

// run is the main loop that periodically processes log batches
func (p *LogProcessor) run() {
	for {
		select {
		case <-p.ticker.C:
			// Check if stopped before processing
			select {
			case <-p.stopChan:
				p.logger.Info("Stop signal received before processing tick, exiting loop.")
				return
			default:
			}
			tickCtx, cancel := context.WithTimeout(context.Background(), p.cfg.LogBatchInterval-1*time.Second)
			p.processBatch(tickCtx)
			cancel()
		case <-p.stopChan:
			p.logger.Info("Received stop signal, exiting log processing loop.")
			return
		}
	}
}

// processBatch fetches log records from SQLite and appends them to a gzipped
// JSONL archive. Records are deleted from SQLite only after a successful
// archive flush, so a failed flush duplicates nothing and loses nothing.
func (p *LogProcessor) processBatch(ctx context.Context) {
	p.logger.Debug("Processing log batch...")

	// 1. Get records from SQLite
	logs, err := p.logRepo.GetLogs(ctx, p.cfg.LogProcessorBatchSize)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			p.logger.Info("Context cancelled/timed out during SQLite fetch.", zap.Error(err))
		} else {
			p.logger.Error("Failed to get logs from SQLite", zap.Error(err))
		}
		return
	}
	if len(logs) == 0 {
		p.logger.Debug("No logs in SQLite to process")
		return
	}
	p.logger.Debug("Fetched logs from SQLite", zap.Int("count", len(logs)))

	// 2. Attempt the archive flush with retry
	retryDelay := time.Duration(p.cfg.LogArchiveRetryDelaySecs) * time.Second
	var flushErr error
	success := false
	for attempt := 1; attempt <= p.cfg.LogArchiveRetryAttempts; attempt++ {
		if ctx.Err() != nil {
			p.logger.Info("Context cancelled before archive flush attempt.", zap.Error(ctx.Err()))
			flushErr = ctx.Err()
			break
		}

		flushErr = p.flushToArchive(logs)
		if flushErr == nil {
			p.logger.Debug("Successfully archived log batch", zap.Int("count", len(logs)), zap.Int("attempt", attempt))
			success = true
			break
		}

		p.logger.Warn("Archive flush failed, will retry",
			zap.Error(flushErr),
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", p.cfg.LogArchiveRetryAttempts),
		)
		select {
		case <-time.After(retryDelay):
			continue
		case <-ctx.Done():
			p.logger.Info("Parent context cancelled during archive retry wait.", zap.Error(ctx.Err()))
			flushErr = ctx.Err()
		case <-p.stopChan:
			p.logger.Info("Stop signal received during archive retry wait.")
			flushErr = errors.New("processor stopped")
		}
		break
	}

	// 3. Check if flush eventually succeeded
	if !success {
		p.logger.Warn("Failed to archive log batch after all attempts or cancellation/stop", zap.Error(flushErr), zap.Int("log_count", len(logs)))
		return // Do NOT delete from SQLite
	}

	// 4. Delete records from SQLite (only after successful archive flush)
	logIDs := make([]int64, len(logs))
	for i, log := range logs {
		logIDs[i] = log.ID
	}
	if err := p.logRepo.DeleteLogsByID(ctx, logIDs); err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			p.logger.Warn("Context cancelled/timed out during SQLite delete.", zap.Error(err), zap.Int("count", len(logIDs)))
		} else {
			p.logger.Error("CRITICAL: Failed to delete logs from SQLite after successful archive flush. Records are duplicated.", zap.Error(err), zap.Int64s("log_ids", logIDs))
		}
		return
	}

	p.logger.Info("Processed and archived log batch", zap.Int("count", len(logs)))
}

// flushToArchive appends records as gzipped JSONL to a per-day archive file.
func (p *LogProcessor) flushToArchive(logs []models.LogEntry) error {
	if err := os.MkdirAll(p.cfg.LogArchiveDir, 0755); err != nil {
		return fmt.Errorf("failed to create archive directory %s: %w: %w", p.cfg.LogArchiveDir, err, ErrArchiveWrite)
	}
	path := filepath.Join(p.cfg.LogArchiveDir, fmt.Sprintf("logs_%s.jsonl.gz", time.Now().Format("20060102")))

	// Gzip members concatenate, so appending a fresh member per batch keeps
	// the file a valid gzip stream.
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to open archive file %s: %w: %w", path, err, ErrArchiveWrite)
	}
	defer f.Close()

	gz := gzip.NewWriter(f)
	enc := json.NewEncoder(gz)
	for _, entry := range logs {
		if err := enc.Encode(entry); err != nil {
			gz.Close()
			return fmt.Errorf("failed to encode log entry %d: %w: %w", entry.ID, err, ErrArchiveWrite)
		}
	}
	if err := gz.Close(); err != nil {
		return fmt.Errorf("failed to finalize gzip member: %w: %w", err, ErrArchiveWrite)
	}
	return nil
}

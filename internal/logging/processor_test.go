package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"go-crewkit/internal/config"
	"go-crewkit/internal/models"

	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func processorConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		LogBatchInterval:         5 * time.Second,
		LogProcessorBatchSize:    100,
		LogArchiveDir:            filepath.Join(t.TempDir(), "archive"),
		LogArchiveRetryAttempts:  2,
		LogArchiveRetryDelaySecs: 0,
	}
}

func seedRepo(t *testing.T, repo *memLogRepo, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		require.NoError(t, repo.InsertLog(context.Background(), models.LogEntry{
			Timestamp: time.Now(),
			Level:     "info",
			Message:   "record",
		}))
	}
}

func readArchive(t *testing.T, dir string) []models.LogEntry {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join(dir, "logs_*.jsonl.gz"))
	require.NoError(t, err)
	require.Len(t, matches, 1)

	f, err := os.Open(matches[0])
	require.NoError(t, err)
	defer f.Close()
	gz, err := gzip.NewReader(f)
	require.NoError(t, err)
	// Multistream (the default) walks every appended gzip member.
	data, err := io.ReadAll(gz)
	require.NoError(t, err)

	var entries []models.LogEntry
	dec := json.NewDecoder(bytes.NewReader(data))
	for dec.More() {
		var e models.LogEntry
		require.NoError(t, dec.Decode(&e))
		entries = append(entries, e)
	}
	return entries
}

func TestProcessBatchArchivesThenDeletes(t *testing.T) {
	cfg := processorConfig(t)
	repo := &memLogRepo{}
	seedRepo(t, repo, 3)

	p := NewLogProcessor(cfg, repo, zap.NewNop())
	p.processBatch(context.Background())

	assert.Empty(t, repo.entries, "archived records are removed from the store")
	entries := readArchive(t, cfg.LogArchiveDir)
	assert.Len(t, entries, 3)
	assert.Equal(t, "record", entries[0].Message)
}

func TestProcessBatchKeepsRecordsOnArchiveFailure(t *testing.T) {
	cfg := processorConfig(t)
	// Occupy the archive dir path with a regular file so MkdirAll fails.
	blocker := filepath.Join(t.TempDir(), "blocked")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0644))
	cfg.LogArchiveDir = blocker

	repo := &memLogRepo{}
	seedRepo(t, repo, 2)

	p := NewLogProcessor(cfg, repo, zap.NewNop())
	p.processBatch(context.Background())

	assert.Len(t, repo.entries, 2, "failed archive flush must not delete records")
}

func TestProcessBatchAppendsAcrossBatches(t *testing.T) {
	cfg := processorConfig(t)
	repo := &memLogRepo{}
	p := NewLogProcessor(cfg, repo, zap.NewNop())

	seedRepo(t, repo, 2)
	p.processBatch(context.Background())
	seedRepo(t, repo, 1)
	p.processBatch(context.Background())

	entries := readArchive(t, cfg.LogArchiveDir)
	assert.Len(t, entries, 3, "second batch appends a new gzip member to the same file")
}

func TestProcessorStartStop(t *testing.T) {
	cfg := processorConfig(t)
	cfg.LogBatchInterval = 50 * time.Millisecond
	repo := &memLogRepo{}
	seedRepo(t, repo, 1)

	p := NewLogProcessor(cfg, repo, zap.NewNop())
	p.Start()
	p.Stop() // Stop performs a final flush

	assert.Empty(t, repo.entries)
	entries := readArchive(t, cfg.LogArchiveDir)
	assert.Len(t, entries, 1)
}

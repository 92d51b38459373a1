package services

import (
	"context"
	"errors"
	"testing"

	"go-crewkit/internal/config"
	"go-crewkit/internal/llm"
	"go-crewkit/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type stubCaller struct {
	response string
	err      error
	calls    int
}

func (s *stubCaller) Call(context.Context, []llm.Message, []llm.Tool, map[string]llm.ToolFunc) (string, error) {
	s.calls++
	return s.response, s.err
}

type memRunRepo struct {
	runs []models.CrewRun
	err  error
}

func (m *memRunRepo) InsertRun(_ context.Context, run models.CrewRun) (int64, error) {
	if m.err != nil {
		return 0, m.err
	}
	run.ID = int64(len(m.runs) + 1)
	m.runs = append(m.runs, run)
	return run.ID, nil
}

func (m *memRunRepo) GetRunByID(_ context.Context, id int64) (*models.CrewRun, error) {
	for i := range m.runs {
		if m.runs[i].ID == id {
			return &m.runs[i], nil
		}
	}
	return nil, errors.New("not found")
}

func (m *memRunRepo) ListRuns(_ context.Context, limit int) ([]models.CrewRun, error) {
	if limit > len(m.runs) {
		limit = len(m.runs)
	}
	return m.runs[:limit], nil
}

func serviceUnderTest(t *testing.T, caller *stubCaller, repo *memRunRepo) (CrewService, *observer.ObservedLogs) {
	t.Helper()
	core, logs := observer.New(zap.DebugLevel)
	logger := zap.New(core)
	cfg := &config.Config{PreviewLength: 500}
	return NewCrewService(cfg, repo, nil, caller, logger), logs
}

func TestRunTopicCompletedRunPersisted(t *testing.T) {
	caller := &stubCaller{response: "Report body"}
	repo := &memRunRepo{}
	svc, logs := serviceUnderTest(t, caller, repo)

	run, err := svc.RunTopic(context.Background(), "AI Ethics!", nil)
	require.NoError(t, err)

	assert.Equal(t, models.RunStatusCompleted, run.Status)
	assert.Equal(t, "AI_Ethics", run.Topic)
	assert.Equal(t, "Report body", run.ResultPreview)
	assert.NotZero(t, run.ID)
	assert.Contains(t, run.Inputs, "AI Ethics!")
	assert.Equal(t, 2, caller.calls, "one model call per task")

	require.Len(t, repo.runs, 1)
	assert.Equal(t, models.RunStatusCompleted, repo.runs[0].Status)
	assert.Equal(t, 1, logs.FilterMessageSnippet("Crew kickoff completed").Len())
}

func TestRunTopicFailureStillPersisted(t *testing.T) {
	failure := errors.New("model unavailable")
	caller := &stubCaller{err: failure}
	repo := &memRunRepo{}
	svc, _ := serviceUnderTest(t, caller, repo)

	run, err := svc.RunTopic(context.Background(), "AI Ethics", nil)
	require.ErrorIs(t, err, failure, "kickoff error is returned unchanged")

	require.NotNil(t, run)
	assert.Equal(t, models.RunStatusFailed, run.Status)
	assert.Contains(t, run.Error, "model unavailable")
	require.Len(t, repo.runs, 1)
	assert.Equal(t, models.RunStatusFailed, repo.runs[0].Status)
}

func TestRunTopicPersistFailureDoesNotMaskResult(t *testing.T) {
	caller := &stubCaller{response: "Report body"}
	repo := &memRunRepo{err: errors.New("store down")}
	svc, logs := serviceUnderTest(t, caller, repo)

	run, err := svc.RunTopic(context.Background(), "AI Ethics", nil)
	require.NoError(t, err, "insert failure never fails the run")
	assert.Equal(t, models.RunStatusCompleted, run.Status)
	assert.Zero(t, run.ID)
	assert.Equal(t, 1, logs.FilterMessageSnippet("Failed to persist crew run").Len())
}

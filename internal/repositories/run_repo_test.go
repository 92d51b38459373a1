package repositories

import (
	"context"
	"testing"
	"time"

	"go-crewkit/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestRunRepositoryRoundTrip(t *testing.T) {
	repo := NewRunRepository(testDB(t), zap.NewNop())
	ctx := context.Background()

	id, err := repo.InsertRun(ctx, models.CrewRun{
		Topic:         "AI_Ethics",
		Inputs:        `{"topic":"AI Ethics"}`,
		ResultPreview: "Report body",
		DurationSecs:  12.34,
		Status:        models.RunStatusCompleted,
	})
	require.NoError(t, err)
	require.NotZero(t, id)

	run, err := repo.GetRunByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "AI_Ethics", run.Topic)
	assert.Equal(t, models.RunStatusCompleted, run.Status)
	assert.Equal(t, "Report body", run.ResultPreview)
	assert.InDelta(t, 12.34, run.DurationSecs, 0.001)
	assert.Empty(t, run.Error)
	assert.False(t, run.CreatedAt.IsZero())
}

func TestRunRepositoryFailedRun(t *testing.T) {
	repo := NewRunRepository(testDB(t), zap.NewNop())
	ctx := context.Background()

	id, err := repo.InsertRun(ctx, models.CrewRun{
		Topic:     "AI_Ethics",
		Inputs:    "{}",
		Status:    models.RunStatusFailed,
		Error:     "model unavailable",
		CreatedAt: time.Now().UTC(),
	})
	require.NoError(t, err)

	run, err := repo.GetRunByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, models.RunStatusFailed, run.Status)
	assert.Equal(t, "model unavailable", run.Error)
}

func TestRunRepositoryListNewestFirst(t *testing.T) {
	repo := NewRunRepository(testDB(t), zap.NewNop())
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := repo.InsertRun(ctx, models.CrewRun{Topic: "t", Inputs: "{}", Status: models.RunStatusCompleted})
		require.NoError(t, err)
	}

	runs, err := repo.ListRuns(ctx, 2)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.True(t, runs[0].ID > runs[1].ID)
}

func TestRunRepositoryNotFound(t *testing.T) {
	repo := NewRunRepository(testDB(t), zap.NewNop())
	_, err := repo.GetRunByID(context.Background(), 9999)
	assert.ErrorIs(t, err, ErrRunNotFound)
}

func TestRunRepositoryNilDB(t *testing.T) {
	repo := NewRunRepository(nil, zap.NewNop())
	_, err := repo.InsertRun(context.Background(), models.CrewRun{Topic: "t", Inputs: "{}", Status: models.RunStatusCompleted})
	assert.ErrorIs(t, err, ErrLogStoreUnavailable)
}

package agent

import (
	"context"
	"fmt"
	"time"

	"go-crewkit/internal/logging"
	"go-crewkit/internal/task"

	"go.uber.org/zap"
)

// loggedExecutor wraps a task.Executor with start/completion/failure records
// without changing its result or error.
type loggedExecutor struct {
	inner   task.Executor
	logger  *zap.Logger
	preview int
}

// WithLogging decorates an executor with lifecycle logging. Wrapping an
// already wrapped executor returns it unchanged.
func WithLogging(e task.Executor, logger *zap.Logger, previewLen int) task.Executor {
	if existing, ok := e.(*loggedExecutor); ok {
		return existing
	}
	if logger == nil {
		logger = logging.GetRunLogger()
	}
	if previewLen <= 0 {
		previewLen = logging.DefaultPreviewLength
	}
	return &loggedExecutor{inner: e, logger: logger, preview: previewLen}
}

func (e *loggedExecutor) Role() string { return e.inner.Role() }
func (e *loggedExecutor) Goal() string { return e.inner.Goal() }

func (e *loggedExecutor) ExecuteTask(ctx context.Context, t *task.Task, inputs map[string]interface{}) (string, error) {
	startTime := time.Now()
	e.logger.Info(fmt.Sprintf("Agent '%s' starting task: %s", e.inner.Role(), logging.Preview(t.Description, e.preview)))
	filtered := logging.FilterInputs(inputs)
	if len(filtered) > 0 {
		e.logger.Info(fmt.Sprintf("Agent inputs: %s", logging.JSONPayload(filtered)))
	}

	output, err := e.inner.ExecuteTask(ctx, t, inputs)
	elapsed := time.Since(startTime).Seconds()
	if err != nil {
		e.logger.Error(fmt.Sprintf("Agent '%s' failed after %.2f seconds: %v", e.inner.Role(), elapsed, err))
		return output, err
	}

	e.logger.Info(fmt.Sprintf("Agent '%s' completed task in %.2f seconds", e.inner.Role(), elapsed))
	e.logger.Info(fmt.Sprintf("Agent result preview:\n%s", logging.Preview(output, e.preview)))
	return output, nil
}

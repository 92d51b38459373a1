package task

import (
	"context"
	"fmt"
	"time"

	"go-crewkit/internal/logging"

	"go.uber.org/zap"
)

// loggedRunner wraps a Runner with start/completion/failure records. It never
// changes the output or the error of the underlying runner.
type loggedRunner struct {
	inner   Runner
	logger  *zap.Logger
	preview int
}

// WithLogging decorates a runner with lifecycle logging. Wrapping an already
// wrapped runner returns it unchanged, so records are never duplicated.
func WithLogging(r Runner, logger *zap.Logger, previewLen int) Runner {
	if existing, ok := r.(*loggedRunner); ok {
		return existing
	}
	if logger == nil {
		logger = logging.GetRunLogger()
	}
	if previewLen <= 0 {
		previewLen = logging.DefaultPreviewLength
	}
	return &loggedRunner{inner: r, logger: logger, preview: previewLen}
}

func (r *loggedRunner) Spec() *Task { return r.inner.Spec() }

func (r *loggedRunner) Execute(ctx context.Context, inputs map[string]interface{}) (string, error) {
	t := r.inner.Spec()
	startTime := time.Now()

	r.logger.Info(fmt.Sprintf("Starting task: %s", logging.Preview(t.Description, r.preview)))
	filtered := logging.FilterInputs(inputs)
	if len(filtered) > 0 {
		r.logger.Info(fmt.Sprintf("Task inputs: %s", logging.JSONPayload(filtered)))
	}
	if t.Agent != nil {
		agentInfo := map[string]interface{}{
			"role": t.Agent.Role(),
			"goal": t.Agent.Goal(),
		}
		r.logger.Info(fmt.Sprintf("Assigned agent: %s", logging.JSONPayload(agentInfo)))
	}

	output, err := r.inner.Execute(ctx, inputs)
	elapsed := time.Since(startTime).Seconds()
	if err != nil {
		r.logger.Error(fmt.Sprintf("Task failed after %.2f seconds: %v", elapsed, err))
		return output, err
	}

	r.logger.Info(fmt.Sprintf("Task completed in %.2f seconds", elapsed))
	r.logger.Info(fmt.Sprintf("Task result preview:\n%s", logging.Preview(output, r.preview)))
	return output, nil
}

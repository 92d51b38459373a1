package task

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

// stubExecutor implements Executor with a canned response.
type stubExecutor struct {
	role   string
	goal   string
	output string
	err    error

	gotTask   *Task
	gotInputs map[string]interface{}
}

func (s *stubExecutor) Role() string { return s.role }
func (s *stubExecutor) Goal() string { return s.goal }

func (s *stubExecutor) ExecuteTask(_ context.Context, t *Task, inputs map[string]interface{}) (string, error) {
	s.gotTask = t
	s.gotInputs = inputs
	return s.output, s.err
}

func observedLogger(t *testing.T) (*zap.Logger, *observer.ObservedLogs) {
	t.Helper()
	core, logs := observer.New(zap.DebugLevel)
	return zap.New(core), logs
}

func TestInterpolate(t *testing.T) {
	got := Interpolate("Research {topic} at depth {depth}", map[string]interface{}{"topic": "AI Ethics", "depth": 3})
	assert.Equal(t, "Research AI Ethics at depth 3", got)

	assert.Equal(t, "no placeholders", Interpolate("no placeholders", map[string]interface{}{"topic": "x"}))
	assert.Equal(t, "keep {unknown}", Interpolate("keep {unknown}", map[string]interface{}{"topic": "x"}))
	assert.Equal(t, "{topic}", Interpolate("{topic}", nil))
}

func TestBaseRunnerInterpolatesAndDelegates(t *testing.T) {
	logger, _ := observedLogger(t)
	exec := &stubExecutor{role: "Writer", goal: "Write", output: "Report body"}
	spec := New("Write about {topic}", "A report on {topic}", exec, logger)

	out, err := NewRunner(spec).Execute(context.Background(), map[string]interface{}{"topic": "AI Ethics"})
	require.NoError(t, err)
	assert.Equal(t, "Report body", out)
	require.NotNil(t, exec.gotTask)
	assert.Equal(t, "Write about AI Ethics", exec.gotTask.Description)
	assert.Equal(t, "A report on AI Ethics", exec.gotTask.ExpectedOutput)
}

func TestBaseRunnerRequiresAgent(t *testing.T) {
	logger, _ := observedLogger(t)
	spec := New("Orphan task", "out", nil, logger)

	_, err := NewRunner(spec).Execute(context.Background(), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no agent")
}

func TestBaseRunnerRunsCallbackAfterSuccess(t *testing.T) {
	logger, logs := observedLogger(t)
	exec := &stubExecutor{role: "Writer", goal: "Write", output: "done"}
	spec := New("Task", "out", exec, logger)

	var callbackOutput string
	spec.Callback = func(_ *Task, output string) error {
		callbackOutput = output
		return errors.New("callback exploded")
	}

	out, err := NewRunner(spec).Execute(context.Background(), nil)
	require.NoError(t, err, "callback errors never fail the task")
	assert.Equal(t, "done", out)
	assert.Equal(t, "done", callbackOutput)
	assert.Equal(t, 1, logs.FilterMessageSnippet("callback failed").Len())
}

func TestBaseRunnerSkipsCallbackOnFailure(t *testing.T) {
	logger, _ := observedLogger(t)
	exec := &stubExecutor{role: "Writer", goal: "Write", err: errors.New("boom")}
	spec := New("Task", "out", exec, logger)

	called := false
	spec.Callback = func(*Task, string) error {
		called = true
		return nil
	}

	_, err := NewRunner(spec).Execute(context.Background(), nil)
	require.Error(t, err)
	assert.False(t, called)
}

func TestLoggedRunnerPassesThroughResult(t *testing.T) {
	logger, logs := observedLogger(t)
	exec := &stubExecutor{role: "Writer", goal: "Write clearly", output: "Report body"}
	spec := New("Write about {topic}", "", exec, logger)
	runner := WithLogging(NewRunner(spec), logger, 0)

	out, err := runner.Execute(context.Background(), map[string]interface{}{"topic": "AI Ethics"})
	require.NoError(t, err)
	assert.Equal(t, "Report body", out)

	assert.Equal(t, 1, logs.FilterMessageSnippet("Starting task").Len())
	assert.Equal(t, 1, logs.FilterMessageSnippet("Task completed in").Len())
	assert.Equal(t, 1, logs.FilterMessageSnippet("Task result preview").Len())
	assert.Equal(t, 1, logs.FilterMessageSnippet(`"role": "Writer"`).Len(), "agent info payload logged")
	assert.Equal(t, 0, logs.FilterMessageSnippet("Task failed").Len())
}

func TestLoggedRunnerLogsFailureOnce(t *testing.T) {
	logger, logs := observedLogger(t)
	failure := errors.New("model unavailable")
	exec := &stubExecutor{role: "Writer", goal: "Write", err: failure}
	spec := New("Task", "out", exec, logger)
	runner := WithLogging(NewRunner(spec), logger, 0)

	_, err := runner.Execute(context.Background(), nil)
	require.ErrorIs(t, err, failure, "error is returned unchanged")

	assert.Equal(t, 1, logs.FilterMessageSnippet("Task failed").Len())
	assert.Equal(t, 0, logs.FilterMessageSnippet("Task completed").Len())
}

func TestLoggedRunnerFiltersInputs(t *testing.T) {
	logger, logs := observedLogger(t)
	exec := &stubExecutor{role: "Writer", goal: "Write", output: "ok"}
	spec := New("Task", "out", exec, logger)
	runner := WithLogging(NewRunner(spec), logger, 0)

	_, err := runner.Execute(context.Background(), map[string]interface{}{
		"topic":    "AI Ethics",
		"llm":      "handle",
		"_context": "previous",
	})
	require.NoError(t, err)

	inputLogs := logs.FilterMessageSnippet("Task inputs")
	require.Equal(t, 1, inputLogs.Len())
	msg := inputLogs.All()[0].Message
	assert.Contains(t, msg, "AI Ethics")
	assert.NotContains(t, msg, "handle")
	assert.NotContains(t, msg, "previous")
}

func TestWithLoggingIdempotent(t *testing.T) {
	logger, logs := observedLogger(t)
	exec := &stubExecutor{role: "Writer", goal: "Write", output: "ok"}
	spec := New("Task", "out", exec, logger)

	once := WithLogging(NewRunner(spec), logger, 0)
	twice := WithLogging(once, logger, 0)
	assert.Same(t, once, twice)

	_, err := twice.Execute(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, 1, logs.FilterMessageSnippet("Starting task").Len(), "no duplicated records")
}

package task

import (
	"context"
	"fmt"
	"strings"

	"go-crewkit/internal/logging"

	"go.uber.org/zap"
)

// Executor is the agent-side contract a task delegates its work to. Agents
// implement it; tasks and crews only see this interface.
type Executor interface {
	Role() string
	Goal() string
	ExecuteTask(ctx context.Context, t *Task, inputs map[string]interface{}) (string, error)
}

// Runner executes a task against a set of kickoff inputs. Both the plain
// runner and the logging decorator satisfy it, so callers never need to know
// whether logging is attached.
type Runner interface {
	Spec() *Task
	Execute(ctx context.Context, inputs map[string]interface{}) (string, error)
}

// Task describes one unit of crew work.
type Task struct {
	Description    string
	ExpectedOutput string
	Agent          Executor
	// Callback runs after a successful execution with the produced output.
	// A callback error is logged but never fails the task.
	Callback func(t *Task, output string) error

	logger *zap.Logger
}

// New creates a task and logs its configuration. A nil logger falls back to
// the global run logger.
func New(description, expectedOutput string, agent Executor, logger *zap.Logger) *Task {
	if logger == nil {
		logger = logging.GetRunLogger()
	}
	t := &Task{
		Description:    description,
		ExpectedOutput: expectedOutput,
		Agent:          agent,
		logger:         logger,
	}

	logger.Info(fmt.Sprintf("Created task: %s", logging.Preview(description, 50)))
	configInfo := map[string]interface{}{
		"description":     description,
		"expected_output": expectedOutput,
		"agent":           agentRole(agent),
	}
	logger.Info(fmt.Sprintf("Task Configuration: %s", logging.JSONPayload(configInfo)))
	return t
}

// NewRunner returns the plain, un-logged runner for t.
func NewRunner(t *Task) Runner {
	return &baseRunner{task: t}
}

type baseRunner struct {
	task *Task
}

func (r *baseRunner) Spec() *Task { return r.task }

// Execute interpolates inputs into the task text and delegates to the
// assigned agent. The callback, when set, runs only after success.
func (r *baseRunner) Execute(ctx context.Context, inputs map[string]interface{}) (string, error) {
	t := r.task
	if t.Agent == nil {
		return "", fmt.Errorf("task has no agent assigned: %s", logging.Preview(t.Description, 50))
	}

	description := Interpolate(t.Description, inputs)
	expectedOutput := Interpolate(t.ExpectedOutput, inputs)

	resolved := &Task{
		Description:    description,
		ExpectedOutput: expectedOutput,
		Agent:          t.Agent,
		Callback:       t.Callback,
		logger:         t.logger,
	}

	output, err := t.Agent.ExecuteTask(ctx, resolved, inputs)
	if err != nil {
		return "", err
	}

	if t.Callback != nil {
		if cbErr := t.Callback(t, output); cbErr != nil {
			cbLogger := t.logger
			if cbLogger == nil {
				cbLogger = logging.GetRunLogger()
			}
			cbLogger.Error(fmt.Sprintf("Task callback failed: %v", cbErr))
		}
	}
	return output, nil
}

// Interpolate replaces {key} placeholders in s with the corresponding input
// values. Unmatched placeholders are left untouched.
func Interpolate(s string, inputs map[string]interface{}) string {
	if len(inputs) == 0 || !strings.Contains(s, "{") {
		return s
	}
	for key, value := range inputs {
		s = strings.ReplaceAll(s, "{"+key+"}", fmt.Sprintf("%v", value))
	}
	return s
}

func agentRole(agent Executor) string {
	if agent == nil {
		return ""
	}
	return agent.Role()
}

package crew

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go-crewkit/internal/agent"
	"go-crewkit/internal/llm"
	"go-crewkit/internal/logging"
	"go-crewkit/internal/task"

	"go.uber.org/zap"
)

// Process selects how tasks are ordered and assigned.
type Process string

const (
	ProcessSequential   Process = "sequential"
	ProcessHierarchical Process = "hierarchical"
)

// Config describes a crew before logging decoration is applied.
type Config struct {
	Agents  []task.Executor
	Tasks   []*task.Task
	Process Process
	// ManagerLLM assigns agents to unassigned tasks when the process is
	// hierarchical.
	ManagerLLM agent.Caller
	Verbose    bool
}

// Result is the outcome of a crew kickoff.
type Result struct {
	Raw         string
	TaskOutputs []string
	Duration    float64
}

// Crew runs a set of tasks across its agents with lifecycle logging on every
// layer.
type Crew struct {
	agents     []task.Executor
	runners    []task.Runner
	process    Process
	managerLLM agent.Caller
	logger     *zap.Logger
	preview    int
}

// New builds a crew and wraps every agent and task with logging. Wrapping is
// idempotent, so agents shared between crews are decorated only once. The
// crew composition is logged at construction.
func New(cfg Config, logger *zap.Logger) (*Crew, error) {
	if logger == nil {
		logger = logging.GetRunLogger()
	}
	if len(cfg.Tasks) == 0 {
		return nil, fmt.Errorf("crew requires at least one task")
	}
	process := cfg.Process
	if process == "" {
		process = ProcessSequential
	}
	if process == ProcessHierarchical && cfg.ManagerLLM == nil {
		return nil, fmt.Errorf("hierarchical process requires a manager LLM")
	}

	c := &Crew{
		process:    process,
		managerLLM: cfg.ManagerLLM,
		logger:     logger,
		preview:    logging.DefaultPreviewLength,
	}
	for _, a := range cfg.Agents {
		c.agents = append(c.agents, agent.WithLogging(a, logger, c.preview))
	}
	for _, t := range cfg.Tasks {
		if t.Agent != nil {
			t.Agent = agent.WithLogging(t.Agent, logger, c.preview)
		}
		c.runners = append(c.runners, task.WithLogging(task.NewRunner(t), logger, c.preview))
	}

	logger.Info("Initialized crew")
	compositionInfo := map[string]interface{}{
		"process":     string(process),
		"agent_count": len(c.agents),
		"task_count":  len(c.runners),
		"verbose":     cfg.Verbose,
	}
	logger.Info(fmt.Sprintf("Crew Configuration: %s", logging.JSONPayload(compositionInfo)))
	return c, nil
}

// Kickoff runs every task in order. Each task receives the previous task's
// output as working context. The final task's output becomes the raw result.
// A task failure stops the run; the failure is logged once and the error is
// returned unchanged.
func (c *Crew) Kickoff(ctx context.Context, inputs map[string]interface{}) (*Result, error) {
	startTime := time.Now()
	c.logger.Info(fmt.Sprintf("Starting crew kickoff (%s process, %d tasks)", c.process, len(c.runners)))
	filtered := logging.FilterInputs(inputs)
	if len(filtered) > 0 {
		c.logger.Info(fmt.Sprintf("Kickoff inputs: %s", logging.JSONPayload(filtered)))
	}

	if c.process == ProcessHierarchical {
		if err := c.assignAgents(ctx); err != nil {
			elapsed := time.Since(startTime).Seconds()
			c.logger.Error(fmt.Sprintf("Crew kickoff failed after %.2f seconds: %v", elapsed, err))
			return nil, err
		}
	}

	taskInputs := make(map[string]interface{}, len(inputs)+1)
	for k, v := range inputs {
		taskInputs[k] = v
	}

	var outputs []string
	for i, runner := range c.runners {
		output, err := runner.Execute(ctx, taskInputs)
		if err != nil {
			elapsed := time.Since(startTime).Seconds()
			c.logger.Error(fmt.Sprintf("Crew kickoff failed on task %d after %.2f seconds: %v", i+1, elapsed, err))
			return nil, err
		}
		outputs = append(outputs, output)
		taskInputs["_context"] = output
	}

	elapsed := time.Since(startTime).Seconds()
	raw := ""
	if len(outputs) > 0 {
		raw = outputs[len(outputs)-1]
	}
	c.logger.Info(fmt.Sprintf("Crew kickoff completed in %.2f seconds", elapsed))
	c.logger.Info(fmt.Sprintf("Crew result preview:\n%s", logging.Preview(raw, c.preview)))

	return &Result{Raw: raw, TaskOutputs: outputs, Duration: elapsed}, nil
}

// assignAgents asks the manager LLM to pick a role for every task that has no
// agent. An unrecognized answer falls back to the first agent.
func (c *Crew) assignAgents(ctx context.Context) error {
	if len(c.agents) == 0 {
		return fmt.Errorf("hierarchical process requires at least one agent")
	}
	roles := make([]string, len(c.agents))
	for i, a := range c.agents {
		roles[i] = a.Role()
	}

	for _, runner := range c.runners {
		t := runner.Spec()
		if t.Agent != nil {
			continue
		}
		messages := []llm.Message{
			{Role: "system", Content: "You are a crew manager. Reply with exactly one role name from the list, nothing else."},
			{Role: "user", Content: fmt.Sprintf("Available roles: %s\n\nWhich role should handle this task?\n%s", strings.Join(roles, ", "), t.Description)},
		}
		answer, err := c.managerLLM.Call(ctx, messages, nil, nil)
		if err != nil {
			return fmt.Errorf("manager assignment failed: %w", err)
		}

		assigned := c.agents[0]
		answer = strings.ToLower(strings.TrimSpace(answer))
		for _, a := range c.agents {
			if strings.Contains(answer, strings.ToLower(a.Role())) {
				assigned = a
				break
			}
		}
		t.Agent = assigned
		c.logger.Info(fmt.Sprintf("Manager assigned agent '%s' to task: %s", assigned.Role(), logging.Preview(t.Description, 50)))
	}
	return nil
}

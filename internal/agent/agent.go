package agent

import (
	"context"
	"fmt"
	"strings"

	"go-crewkit/internal/llm"
	"go-crewkit/internal/logging"
	"go-crewkit/internal/pkg/validation"
	"go-crewkit/internal/task"

	"go.uber.org/zap"
)

// Caller is the slice of the LLM client an agent needs. *llm.Client
// satisfies it; tests substitute fakes.
type Caller interface {
	Call(ctx context.Context, messages []llm.Message, tools []llm.Tool, availableFunctions map[string]llm.ToolFunc) (string, error)
}

// Tool pairs a function schema with the Go function that backs it.
type Tool struct {
	Name        string
	Description string
	Parameters  map[string]interface{}
	Fn          llm.ToolFunc
}

// Config describes an agent persona.
type Config struct {
	Role            string `validate:"required"`
	Goal            string `validate:"required"`
	Backstory       string
	Verbose         bool
	AllowDelegation bool
}

// Agent executes tasks by prompting an LLM with its persona. It satisfies
// task.Executor.
type Agent struct {
	cfg    Config
	caller Caller
	tools  []Tool
	logger *zap.Logger
}

// New validates the configuration and creates an agent. Construction is
// logged with the full persona payload; absent optional fields show as empty.
func New(cfg Config, caller Caller, tools []Tool, logger *zap.Logger) (*Agent, error) {
	if logger == nil {
		logger = logging.GetRunLogger()
	}
	if verrs := validation.ValidateStruct(cfg); verrs != nil {
		msgs := make([]string, len(verrs))
		for i, ve := range verrs {
			msgs[i] = ve.Message
		}
		return nil, fmt.Errorf("invalid agent configuration: %s", strings.Join(msgs, "; "))
	}
	if caller == nil {
		return nil, fmt.Errorf("agent %q requires an LLM caller", cfg.Role)
	}

	logger.Info(fmt.Sprintf("Initialized agent: %s", cfg.Role))
	toolNames := make([]string, len(tools))
	for i, tool := range tools {
		toolNames[i] = tool.Name
	}
	configInfo := map[string]interface{}{
		"role":             cfg.Role,
		"goal":             cfg.Goal,
		"backstory":        cfg.Backstory,
		"verbose":          cfg.Verbose,
		"allow_delegation": cfg.AllowDelegation,
		"tools":            toolNames,
	}
	logger.Info(fmt.Sprintf("Agent Configuration: %s", logging.JSONPayload(configInfo)))

	return &Agent{cfg: cfg, caller: caller, tools: tools, logger: logger}, nil
}

// Role returns the agent's role.
func (a *Agent) Role() string { return a.cfg.Role }

// Goal returns the agent's goal.
func (a *Agent) Goal() string { return a.cfg.Goal }

// ExecuteTask prompts the LLM with the agent persona and the task text. Any
// context carried from a previous task arrives under the "_context" input key
// and is appended to the user prompt.
func (a *Agent) ExecuteTask(ctx context.Context, t *task.Task, inputs map[string]interface{}) (string, error) {
	messages := []llm.Message{
		{Role: "system", Content: a.systemPrompt()},
		{Role: "user", Content: userPrompt(t, inputs)},
	}

	var llmTools []llm.Tool
	var availableFunctions map[string]llm.ToolFunc
	if len(a.tools) > 0 {
		llmTools = make([]llm.Tool, len(a.tools))
		availableFunctions = make(map[string]llm.ToolFunc, len(a.tools))
		for i, tool := range a.tools {
			llmTools[i] = llm.Tool{Name: tool.Name, Description: tool.Description, Parameters: tool.Parameters}
			availableFunctions[tool.Name] = tool.Fn
		}
	}

	return a.caller.Call(ctx, messages, llmTools, availableFunctions)
}

func (a *Agent) systemPrompt() string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are %s.", a.cfg.Role)
	if a.cfg.Backstory != "" {
		b.WriteString(" " + a.cfg.Backstory)
	}
	fmt.Fprintf(&b, "\nYour personal goal is: %s", a.cfg.Goal)
	return b.String()
}

func userPrompt(t *task.Task, inputs map[string]interface{}) string {
	var b strings.Builder
	b.WriteString(t.Description)
	if t.ExpectedOutput != "" {
		fmt.Fprintf(&b, "\n\nExpected output: %s", t.ExpectedOutput)
	}
	if contextValue, ok := inputs["_context"]; ok {
		if contextText, ok := contextValue.(string); ok && contextText != "" {
			fmt.Fprintf(&b, "\n\nThis is the context you're working with:\n%s", contextText)
		}
	}
	return b.String()
}

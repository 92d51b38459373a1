package services

import (
	"context"
	"encoding/json"
	"time"

	"go-crewkit/internal/agent"
	"go-crewkit/internal/config"
	"go-crewkit/internal/crew"
	"go-crewkit/internal/logging"
	"go-crewkit/internal/models"
	"go-crewkit/internal/repositories"
	"go-crewkit/internal/task"

	"go.uber.org/zap"
)

// CrewService defines the interface for running a crew against a topic.
type CrewService interface {
	RunTopic(ctx context.Context, topic string, inputs map[string]interface{}) (*models.CrewRun, error)
}

type crewServiceImpl struct {
	cfg     *config.Config
	runRepo repositories.RunRepository
	loggers *logging.AppLoggers
	caller  agent.Caller
	logger  *zap.Logger
}

// NewCrewService creates a new CrewService.
func NewCrewService(cfg *config.Config, runRepo repositories.RunRepository, loggers *logging.AppLoggers, caller agent.Caller, logger *zap.Logger) CrewService {
	return &crewServiceImpl{
		cfg:     cfg,
		runRepo: runRepo,
		loggers: loggers,
		caller:  caller,
		logger:  logger,
	}
}

// RunTopic redirects run logging to a topic-named file, assembles the
// research crew and kicks it off. The run outcome is persisted whether the
// kickoff succeeded or failed; a kickoff error is returned unchanged.
func (s *crewServiceImpl) RunTopic(ctx context.Context, topic string, inputs map[string]interface{}) (*models.CrewRun, error) {
	if s.loggers != nil {
		if _, err := s.loggers.SetTopic(topic); err != nil {
			s.logger.Warn("Could not redirect run log for topic, continuing with current file", zap.String("topic", topic), zap.Error(err))
		}
	}

	if inputs == nil {
		inputs = map[string]interface{}{}
	}
	if _, ok := inputs["topic"]; !ok {
		inputs["topic"] = topic
	}

	researchCrew, err := s.buildCrew()
	if err != nil {
		s.logger.Error("Failed to assemble crew", zap.Error(err))
		return nil, err
	}

	result, kickoffErr := researchCrew.Kickoff(ctx, inputs)

	run := models.CrewRun{
		Topic:     config.SanitizeTopic(topic),
		Inputs:    encodeInputs(inputs),
		CreatedAt: time.Now().UTC(),
	}
	if kickoffErr != nil {
		run.Status = models.RunStatusFailed
		run.Error = kickoffErr.Error()
	} else {
		run.Status = models.RunStatusCompleted
		run.ResultPreview = logging.Preview(result.Raw, s.cfg.PreviewLength)
		run.DurationSecs = result.Duration
	}

	// Persisting history must never mask the run outcome.
	if id, insertErr := s.runRepo.InsertRun(ctx, run); insertErr != nil {
		s.logger.Error("Failed to persist crew run", zap.Error(insertErr))
	} else {
		run.ID = id
	}

	if kickoffErr != nil {
		return &run, kickoffErr
	}
	return &run, nil
}

// buildCrew assembles the default two-agent research/writing crew.
func (s *crewServiceImpl) buildCrew() (*crew.Crew, error) {
	researcher, err := agent.New(agent.Config{
		Role:      "Senior Research Analyst",
		Goal:      "Uncover the most relevant facts and recent developments about {topic}",
		Backstory: "You are a meticulous analyst known for separating signal from noise.",
	}, s.caller, nil, s.logger)
	if err != nil {
		return nil, err
	}
	writer, err := agent.New(agent.Config{
		Role:      "Tech Content Writer",
		Goal:      "Turn research findings into a clear, engaging report",
		Backstory: "You write concise technical prose for a broad audience.",
	}, s.caller, nil, s.logger)
	if err != nil {
		return nil, err
	}

	researchTask := task.New(
		"Research the topic: {topic}. Gather key facts, recent developments and notable viewpoints.",
		"A bullet list of the most important findings about {topic}.",
		researcher, s.logger,
	)
	writeTask := task.New(
		"Using the research context, write a concise, well-structured report about {topic}.",
		"A short report in markdown with a title, summary and key sections.",
		writer, s.logger,
	)

	return crew.New(crew.Config{
		Agents:  []task.Executor{researcher, writer},
		Tasks:   []*task.Task{researchTask, writeTask},
		Process: crew.ProcessSequential,
	}, s.logger)
}

func encodeInputs(inputs map[string]interface{}) string {
	b, err := json.Marshal(logging.FilterInputs(inputs))
	if err != nil {
		return "{}"
	}
	return string(b)
}

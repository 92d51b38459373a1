package bootstrap

import (
	"database/sql"
	"time"

	"go-crewkit/internal/config"
	"go-crewkit/internal/handlers"
	"go-crewkit/internal/llm"
	"go-crewkit/internal/logging"
	"go-crewkit/internal/repositories"
	"go-crewkit/internal/services"

	"go.uber.org/zap"
)

// AppComponents holds the initialized components like handlers, processors, and repositories.
type AppComponents struct {
	CrewHandler  *handlers.CrewHandler
	ChatHandler  *handlers.ChatHandler
	LogHandler   *handlers.LogHandler
	LogProcessor *logging.LogProcessor
	LogRepo      repositories.LogRepository
	RunRepo      repositories.RunRepository
	LLMClient    *llm.Client
}

// InitializeAppComponents creates and wires up the application's core
// components: repositories, the LLM client, services, handlers and the log
// archive processor. The loggers and the log repository already exist at this
// point because the logging cores depend on them.
func InitializeAppComponents(
	cfg *config.Config,
	appLoggers *logging.AppLoggers,
	logRepo repositories.LogRepository,
	sqliteDB *sql.DB,
) (*AppComponents, error) {

	runLogger := appLoggers.Run
	runLogger.Info("Initializing application components: Repositories, LLM client, Services, Handlers, Processors...")

	// --- 1. Remaining Repositories ---
	runRepo := repositories.NewRunRepository(sqliteDB, runLogger)
	runLogger.Info("Repositories initialized.")

	// --- 2. LLM Client ---
	var temperature *float64
	if cfg.LLMTemperature != 0 {
		t := cfg.LLMTemperature
		temperature = &t
	}
	llmClient, err := llm.NewClient(llm.Config{
		Model:       cfg.LLMModel,
		BaseURL:     cfg.LLMBaseURL,
		APIKey:      cfg.LLMAPIKey,
		Timeout:     time.Duration(cfg.LLMTimeoutSeconds) * time.Second,
		Temperature: temperature,
		MaxTokens:   cfg.LLMMaxTokens,
	}, runLogger)
	if err != nil {
		runLogger.Error("Failed to initialize LLM client", zap.Error(err))
		return nil, err
	}
	runLogger.Info("LLM client initialized.", zap.String("model", llmClient.Model()))

	// --- 3. Services ---
	crewService := services.NewCrewService(cfg, runRepo, appLoggers, llmClient, runLogger)
	chatService := services.NewChatService(llmClient, runLogger)
	runLogger.Info("Services initialized.")

	// --- 4. Handlers ---
	crewHandler := handlers.NewCrewHandler(crewService, runLogger)
	chatHandler := handlers.NewChatHandler(chatService, runLogger)
	logHandler := handlers.NewLogHandler(logRepo, runRepo, runLogger)
	runLogger.Info("Handlers initialized.")

	// --- 5. Processors ---
	logProcessor := logging.NewLogProcessor(cfg, logRepo, runLogger)
	runLogger.Info("Processors initialized.")

	runLogger.Info("Application components initialization complete.")

	return &AppComponents{
		CrewHandler:  crewHandler,
		ChatHandler:  chatHandler,
		LogHandler:   logHandler,
		LogProcessor: logProcessor,
		LogRepo:      logRepo,
		RunRepo:      runRepo,
		LLMClient:    llmClient,
	}, nil
}

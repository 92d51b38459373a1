package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"go-crewkit/internal/bootstrap"
	"go-crewkit/internal/config"
	"go-crewkit/internal/database"
	"go-crewkit/internal/logging"
	"go-crewkit/internal/middleware"
	"go-crewkit/internal/repositories"
	routes "go-crewkit/internal/routes"
	"go-crewkit/internal/utils"

	"github.com/gofiber/contrib/fiberzap/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Run initializes and starts the application
func Run() {
	var runLogger *zap.Logger
	var sqliteLogger *zap.Logger
	var sqliteDB *sql.DB
	var cfg *config.Config
	var err error
	var appFiber *fiber.App
	var components *bootstrap.AppComponents
	var logRepo repositories.LogRepository

	initAppStartTime := time.Now()

	// --- 1. Load Configuration ---
	tempConfigLogger, _ := zap.NewProduction(zap.ErrorOutput(zapcore.Lock(os.Stderr)))
	defer tempConfigLogger.Sync()

	cfg, err = config.LoadConfig(tempConfigLogger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// --- 2. Initialize LogRepository (with nil DB and temp logger initially) ---
	// LogRepository methods must be nil-safe for the DB handle during this
	// early phase: the SQLite logging core writes through it before InitSQLite.
	logRepo = repositories.NewLogRepository(nil, tempConfigLogger)
	tempConfigLogger.Info("LogRepository initially created (DB handle is nil, using temp logger).")

	// --- 3. Initialize Application Loggers (run and SQLite-dedicated) ---
	appLoggers, err := logging.InitializeLoggers(cfg, logRepo)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: Failed to initialize application loggers: %v\n", err)
		os.Exit(1)
	}
	runLogger = appLoggers.Run
	sqliteLogger = appLoggers.SQLite

	// --- 4. Set Global Loggers ---
	logging.SetGlobalLoggers(runLogger, sqliteLogger)
	runLogger.Info("Global application loggers (run and SQLite-dedicated) have been set.")
	logRepo.SetLogger(runLogger)

	// --- 5. Trace Config Details ---
	utils.TraceConfigDetails(runLogger, cfg)

	// --- 6. Initialize SQLite Database ---
	sqliteDB, err = database.InitSQLite(cfg, runLogger)
	if err != nil {
		if cfg.SQLiteLogEnabled {
			runLogger.Fatal("Failed to initialize SQLite database", zap.Error(err))
		}
		runLogger.Warn("SQLite initialization failed; log store and run history are disabled.", zap.Error(err))
	} else {
		logRepo.SetDB(sqliteDB)
		runLogger.Info("SQLiteDB handle has been set in LogRepository. SQLite logger is now fully functional.")
	}

	// --- 7. Initialize Fiber App ---
	runLogger.Info("Initializing Fiber application...")
	appFiber = fiber.New(fiber.Config{
		AppName: "go-crewkit",
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			lg := middleware.GetRequestRunLogger(c)
			code := fiber.StatusInternalServerError
			var e *fiber.Error
			if errors.As(err, &e) && e != nil {
				code = e.Code
			}
			fields := []zap.Field{
				zap.Int("status", code),
				zap.String("path", c.Path()),
				zap.String("method", c.Method()),
				zap.String("ip", c.IP()),
				zap.Error(err),
			}
			if reqIDStr, ok := c.Locals(middleware.RequestIDKey).(string); ok && reqIDStr != "" {
				fields = append(fields, zap.String("request_id", reqIDStr))
			}
			if code == fiber.StatusNotFound {
				lg.Warn("Resource not found", fields...)
			} else {
				lg.Error("Generic ErrorHandler", fields...)
			}
			resp := fiber.Map{"error": "An unexpected error occurred"}
			if cfg != nil && cfg.AppEnv != "production" {
				resp["detail"] = err.Error()
			}
			return c.Status(code).JSON(resp)
		},
	})

	// --- 8. Initialize Remaining Application Components (Bootstrap) ---
	components, err = bootstrap.InitializeAppComponents(cfg, appLoggers, logRepo, sqliteDB)
	if err != nil {
		runLogger.Fatal("Failed to initialize application components", zap.Error(err))
	}

	// --- 9. Register Middleware ---
	appFiber.Use(recover.New(recover.Config{
		EnableStackTrace: strings.ToLower(cfg.LogLevel) == "debug",
		StackTraceHandler: func(c *fiber.Ctx, e interface{}) {
			logger := middleware.GetRequestRunLogger(c)
			if logger == nil {
				logger = logging.GetRunLogger()
			}
			logger.Error("Panic recovered", zap.Any("panic_value", e))
		},
	}))
	runLogger.Info("Configuring CORS", zap.String("origins", cfg.CORSAllowOrigins), zap.String("methods", cfg.CORSAllowMethods), zap.String("headers", cfg.CORSAllowHeaders))
	appFiber.Use(cors.New(cors.Config{
		AllowOrigins: cfg.CORSAllowOrigins,
		AllowMethods: cfg.CORSAllowMethods,
		AllowHeaders: cfg.CORSAllowHeaders,
	}))
	appFiber.Use(middleware.RequestLoggers(runLogger, sqliteLogger))
	if strings.ToLower(cfg.LogLevel) == "debug" {
		appFiber.Use(middleware.RequestDebugLogger())
	}
	appFiber.Use(fiberzap.New(fiberzap.Config{
		Logger: runLogger,
		Fields: []string{"status", "method", "url", "ip", "latency", "error"},
		FieldsFunc: func(c *fiber.Ctx) []zap.Field {
			fields := []zap.Field{zap.String("log_type", "access")}
			reqID := ""
			if idVal := c.Locals(middleware.RequestIDKey); idVal != nil {
				if idStr, ok := idVal.(string); ok {
					reqID = idStr
				}
			}
			if reqID == "" {
				reqID = c.Get(middleware.RequestIDHeader)
			}
			if reqID != "" {
				fields = append(fields, zap.String("request_id", reqID))
			}
			return fields
		},
		Next: func(c *fiber.Ctx) bool {
			return c.Path() == "/health"
		},
	}))

	// --- 10. Setup Application Routes ---
	routes.SetupRoutes(appFiber, cfg, runLogger, components.CrewHandler, components.ChatHandler, components.LogHandler, sqliteDB)

	// --- 11. Start Log Processor ---
	if sqliteDB != nil && cfg.SQLiteLogEnabled {
		components.LogProcessor.Start()
	} else {
		runLogger.Info("Log archive processor not started (SQLite store unavailable or disabled).")
	}

	// --- 12. Start Server & Graceful Shutdown ---
	serverCtx, cancelServerCtx := context.WithCancel(context.Background())
	defer cancelServerCtx()
	serverStopped := make(chan struct{})

	initAppDurationMs := time.Since(initAppStartTime).Milliseconds()

	go func() {
		defer close(serverStopped)
		listenAddr := ":" + cfg.Port
		runLogger.Info(fmt.Sprintf("Completed initialization application in %d ms.", initAppDurationMs))
		runLogger.Info("Starting Fiber server...",
			zap.String("address", listenAddr),
			zap.Int("pid", os.Getpid()),
			zap.String("app_env", cfg.AppEnv),
		)

		if err := appFiber.Listen(listenAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			runLogger.Error("Server listener failed", zap.String("address", listenAddr), zap.Error(err))
			cancelServerCtx()
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	select {
	case s := <-sig:
		runLogger.Info("Shutdown signal received.", zap.String("signal", s.String()))
	case <-serverCtx.Done():
		runLogger.Info("Server context cancelled, initiating shutdown.")
	}

	runLogger.Info("Initiating graceful shutdown...")
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancelShutdown()

	if sqliteDB != nil && cfg.SQLiteLogEnabled {
		components.LogProcessor.Stop()
	}

	if err := appFiber.ShutdownWithContext(shutdownCtx); err != nil {
		runLogger.Error("Fiber server shutdown failed", zap.Error(err))
	} else {
		runLogger.Info("Fiber server gracefully stopped.")
	}
	<-serverStopped
	runLogger.Info("HTTP listener goroutine stopped.")

	runLogger.Info("Syncing run logger before shutdown...")
	if errSync := runLogger.Sync(); errSync != nil {
		errMsg := errSync.Error()
		if strings.Contains(errMsg, "handle is invalid") || strings.Contains(errMsg, "sync /dev/stdout") {
			// Often expected when stdout isn't available at exit
			runLogger.Debug("Logger sync warning for stdout (handle likely invalid during shutdown).", zap.Error(errSync))
		} else {
			fmt.Fprintf(os.Stderr, "[WARN] Error syncing run logger: %v\n", errSync)
		}
	}
	fmt.Println("[INFO] Logger sync attempts completed.")

	if sqliteDB != nil {
		if errClose := sqliteDB.Close(); errClose != nil {
			fmt.Fprintf(os.Stderr, "[ERROR] Error closing SQLite database: %v\n", errClose)
		} else {
			fmt.Println("[INFO] SQLite database connection closed.")
		}
	}

	fmt.Println("[INFO] Application shutdown complete.")
}

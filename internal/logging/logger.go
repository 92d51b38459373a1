package logging

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync" // Import sync for mutex
	"time"

	"go-crewkit/internal/config"
	"go-crewkit/internal/models"
	"go-crewkit/internal/repositories"

	"github.com/DeRuina/timberjack"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// FallbackWarning is emitted exactly once when the enhanced logging path
// cannot be set up and the process degrades to basic console logging.
const FallbackWarning = "Could not initialize enhanced logging, using basic logging"

var (
	globalRunLogger    *zap.Logger
	globalSQLiteLogger *zap.Logger // Can be nil
	globalLoggersMu    sync.RWMutex
)

// AppLoggers holds the different logger instances for the application.
type AppLoggers struct {
	Run    *zap.Logger // Per-run logger (console + topic log file)
	SQLite *zap.Logger // For dedicated SQLite logging (can be nil if disabled)

	syncer *runFileSyncer // nil when running on the basic fallback path
	topic  string
	mu     sync.Mutex
}

// Custom level encoder function for the console core.
func customColorLevelEncoder(level zapcore.Level, enc zapcore.PrimitiveArrayEncoder) {
	var colorPrefix, colorSuffix string
	switch level {
	case zapcore.DebugLevel:
		colorPrefix = "\x1b[35m" // Magenta
		colorSuffix = "\x1b[0m"
	case zapcore.InfoLevel:
		colorPrefix = "\x1b[32m" // Green
		colorSuffix = "\x1b[0m"
	case zapcore.WarnLevel:
		colorPrefix = "\x1b[33m" // Yellow
		colorSuffix = "\x1b[0m"
	case zapcore.ErrorLevel, zapcore.DPanicLevel, zapcore.PanicLevel, zapcore.FatalLevel:
		colorPrefix = "\x1b[31m" // Red
		colorSuffix = "\x1b[0m"
	}
	enc.AppendString(colorPrefix + "[" + level.CapitalString() + "]" + colorSuffix)
}

// ConsoleEncoderConfig sets up the console (human readable) encoder config.
func ConsoleEncoderConfig() zapcore.EncoderConfig {
	consoleEncoderCfg := zap.NewDevelopmentEncoderConfig()
	consoleEncoderCfg.EncodeLevel = customColorLevelEncoder
	consoleEncoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	consoleEncoderCfg.EncodeCaller = zapcore.ShortCallerEncoder
	return consoleEncoderCfg
}

// RunLogFilename computes the per-run log file path: logs/<topic>_<timestamp>.log.
func RunLogFilename(dir, topic string, t time.Time) string {
	return filepath.Join(dir, fmt.Sprintf("%s_%s.log", topic, t.Format("20060102_150405")))
}

// --- Run file syncer ---

// runFileSyncer is a zapcore.WriteSyncer over a timberjack file logger whose
// target path can be swapped when the topic changes mid-process. Rotation by
// size/interval stays enabled as a safety net for very long runs.
type runFileSyncer struct {
	mu      sync.Mutex
	cfg     *config.Config
	current *timberjack.Logger
	path    string
}

func newRunFileSyncer(cfg *config.Config, topic string) *runFileSyncer {
	s := &runFileSyncer{cfg: cfg}
	s.current, s.path = s.open(topic)
	return s
}

func (s *runFileSyncer) open(topic string) (*timberjack.Logger, string) {
	path := RunLogFilename(s.cfg.LogDir, topic, time.Now())
	return &timberjack.Logger{
		Filename:         path,
		MaxSize:          s.cfg.LogMaxSize,
		MaxBackups:       s.cfg.LogMaxBackups,
		MaxAge:           s.cfg.LogMaxAge,
		Compress:         s.cfg.LogCompress,
		LocalTime:        true,
		RotationInterval: time.Duration(s.cfg.LogRotateInterval) * time.Hour,
	}, path
}

func (s *runFileSyncer) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current.Write(p)
}

func (s *runFileSyncer) Sync() error {
	return nil // timberjack flushes on write
}

// SwitchTopic closes the current run file and opens a fresh one for the new
// topic. Returns the new file path.
func (s *runFileSyncer) SwitchTopic(topic string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.current.Close(); err != nil {
		return "", fmt.Errorf("failed to close run log file %s: %w", s.path, err)
	}
	s.current, s.path = s.open(topic)
	return s.path, nil
}

// Path returns the current run log file path.
func (s *runFileSyncer) Path() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.path
}

// --- Initialization ---

// InitializeLoggers creates the per-run logger (console + topic log file) and
// a dedicated SQLite logger. It degrades rather than fails: if the run file
// cannot be set up, a basic console logger is returned together with a single
// warning record, and the process continues.
func InitializeLoggers(cfg *config.Config, logRepo repositories.LogRepository) (*AppLoggers, error) {
	var runLogLevel zapcore.Level
	if err := runLogLevel.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		fmt.Fprintf(os.Stderr, "[WARN] Invalid LOG_LEVEL '%s' for run logger, defaulting to info: %v\n", cfg.LogLevel, err)
		runLogLevel = zapcore.InfoLevel
	}

	consoleSyncer := zapcore.Lock(os.Stdout)
	consoleCore := zapcore.NewCore(zapcore.NewConsoleEncoder(ConsoleEncoderConfig()), consoleSyncer, runLogLevel)

	appLoggers := &AppLoggers{topic: cfg.Topic}

	if !cfg.EnhancedLogging {
		// Enhanced path disabled: console only, interceptors get a nop logger.
		appLoggers.Run = zap.New(consoleCore).Named(DefaultLoggerName)
		appLoggers.SQLite = zap.NewNop()
		appLoggers.Run.Info("Enhanced logging disabled by configuration; run file and SQLite sinks are off.")
		return appLoggers, nil
	}

	if err := os.MkdirAll(cfg.LogDir, 0755); err != nil {
		// Degrade to basic logging instead of failing the host application.
		fallback := zap.New(consoleCore).Named(DefaultLoggerName)
		fallback.Warn(FallbackWarning, zap.String("logDir", cfg.LogDir), zap.Error(err))
		appLoggers.Run = fallback
		appLoggers.SQLite = zap.NewNop()
		return appLoggers, nil
	}

	appLoggers.syncer = newRunFileSyncer(cfg, cfg.Topic)
	fileCore := zapcore.NewCore(NewLineEncoder(), appLoggers.syncer, runLogLevel)

	appLoggers.Run = zap.New(zapcore.NewTee(consoleCore, fileCore)).Named(DefaultLoggerName)
	appLoggers.Run.Info("======================================================================================")
	appLoggers.Run.Info("Run logger initialized",
		zap.String("environment", cfg.AppEnv),
		zap.String("configuredLevel", cfg.LogLevel),
		zap.String("effectiveLevel", runLogLevel.String()),
		zap.String("topic", cfg.Topic),
		zap.String("logFile", appLoggers.syncer.Path()),
	)

	// --- Initialize Dedicated SQLite Logger ---
	if cfg.SQLiteLogEnabled {
		var sqliteLogLevel zapcore.Level
		if err := sqliteLogLevel.UnmarshalText([]byte(cfg.SQLiteLogLevel)); err != nil {
			fmt.Fprintf(os.Stderr, "[WARN] Invalid SQLITE_LOG_LEVEL '%s', defaulting to info: %v\n", cfg.SQLiteLogLevel, err)
			sqliteLogLevel = zapcore.InfoLevel
		}
		sqliteOnlyCore := NewSQLiteCore(sqliteLogLevel, logRepo)
		appLoggers.SQLite = zap.New(sqliteOnlyCore).Named(DefaultLoggerName)
		appLoggers.Run.Info("Dedicated SQLite logger initialized",
			zap.String("effectiveLevel", sqliteLogLevel.String()),
		)
	} else {
		appLoggers.Run.Info("Dedicated SQLite logger is disabled by configuration.")
		appLoggers.SQLite = zap.NewNop() // Provide a no-op logger if disabled
	}

	return appLoggers, nil
}

// LogFile returns the current run log file path (empty on the fallback path).
func (a *AppLoggers) LogFile() string {
	if a.syncer == nil {
		return ""
	}
	return a.syncer.Path()
}

// SetTopic switches log output to a new per-topic run file when the sanitized
// topic actually changed. Returns the new log file path, or "" if nothing
// changed. A switch failure leaves the previous file in place.
func (a *AppLoggers) SetTopic(topic string) (string, error) {
	clean := config.SanitizeTopic(topic)
	if clean == "" {
		return "", nil
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if clean == a.topic {
		return "", nil
	}
	if a.syncer == nil {
		// Basic fallback path has no run file to switch.
		a.topic = clean
		return "", nil
	}
	oldTopic := a.topic
	newPath, err := a.syncer.SwitchTopic(clean)
	if err != nil {
		a.Run.Error("Failed to switch run log file for new topic", zap.String("topic", clean), zap.Error(err))
		return "", err
	}
	a.topic = clean
	a.Run.Info("Logging redirected to new topic-based file",
		zap.String("oldTopic", oldTopic),
		zap.String("newTopic", clean),
		zap.String("logFile", newPath),
	)
	return newPath, nil
}

// --- Custom SQLite Zap Core ---

// sqliteCore implements zapcore.Core and writes log records to SQLite via a
// LogRepository. A failed insert must never surface to the caller; it is
// reported on stderr only.
type sqliteCore struct {
	zapcore.LevelEnabler
	repo   repositories.LogRepository
	fields []zapcore.Field // Fields added via logger.With()
}

// NewSQLiteCore creates a new core for writing log records to SQLite.
func NewSQLiteCore(enab zapcore.LevelEnabler, repo repositories.LogRepository) zapcore.Core {
	return &sqliteCore{
		LevelEnabler: enab,
		repo:         repo,
		fields:       make([]zapcore.Field, 0),
	}
}

func (c *sqliteCore) With(fields []zapcore.Field) zapcore.Core {
	clone := &sqliteCore{
		LevelEnabler: c.LevelEnabler,
		repo:         c.repo,
		fields:       append(append([]zapcore.Field(nil), c.fields...), fields...),
	}
	return clone
}

func (c *sqliteCore) Check(ent zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if c.Enabled(ent.Level) {
		return ce.AddCore(ent, c)
	}
	return ce
}

// Write uses MapObjectEncoder to correctly extract and marshal custom fields.
func (c *sqliteCore) Write(ent zapcore.Entry, fields []zapcore.Field) error {
	allFields := append(append([]zapcore.Field(nil), c.fields...), fields...)

	mapEncoder := zapcore.NewMapObjectEncoder()
	for _, field := range allFields {
		field.AddTo(mapEncoder)
	}

	logEntry := models.LogEntry{
		Timestamp: ent.Time.Local(),
		Level:     ent.Level.String(),
		Message:   ent.Message,
		Fields:    "{}",
	}
	if len(mapEncoder.Fields) > 0 {
		fieldBytes, err := json.Marshal(mapEncoder.Fields)
		if err == nil {
			logEntry.Fields = string(fieldBytes)
		} else {
			fmt.Fprintf(os.Stderr, "ERROR: Failed to marshal custom fields map for SQLite: %v\n", err)
			logEntry.Fields = fmt.Sprintf(`{"marshal_error": %q, "original_message": %q}`, err.Error(), ent.Message)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := c.repo.InsertLog(ctx, logEntry); err != nil {
		fmt.Fprintf(os.Stderr, "CRITICAL: Failed to insert log entry into SQLite: %v\n", err)
	}

	return nil
}

func (c *sqliteCore) Sync() error {
	return nil
}

// --- Global Logger Access ---

// SetGlobalLoggers sets the global logger instances.
func SetGlobalLoggers(runLogger, sqliteLogger *zap.Logger) {
	globalLoggersMu.Lock()
	defer globalLoggersMu.Unlock()
	globalRunLogger = runLogger
	if sqliteLogger != nil {
		globalSQLiteLogger = sqliteLogger
	} else {
		globalSQLiteLogger = zap.NewNop() // Ensure it's not nil
	}
}

// GetRunLogger returns the initialized global run logger. Falls back to a
// basic production logger if accessed before initialization.
func GetRunLogger() *zap.Logger {
	globalLoggersMu.RLock()
	l := globalRunLogger
	globalLoggersMu.RUnlock()

	if l == nil {
		fallbackLogger, _ := zap.NewProduction()
		fallbackLogger.Warn("Global run logger accessed before being set!")
		return fallbackLogger
	}
	return l
}

// GetSQLiteLogger returns the initialized global SQLite logger.
// Returns a Nop logger if SQLite logging was disabled or not initialized.
func GetSQLiteLogger() *zap.Logger {
	globalLoggersMu.RLock()
	l := globalSQLiteLogger
	globalLoggersMu.RUnlock()

	if l == nil {
		return zap.NewNop()
	}
	return l
}

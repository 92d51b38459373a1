package config

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap" // Use logger for loading errors
)

// MaxTopicLength bounds the sanitized topic used in run log file names.
const MaxTopicLength = 40

var topicSanitizer = regexp.MustCompile(`[^\w\s]`)

// Config holds all configuration for the application
type Config struct {
	AppEnv           string
	Port             string
	CORSAllowOrigins string
	CORSAllowMethods string
	CORSAllowHeaders string

	// --- Run logging ---
	Topic             string // Topic used for run log file naming (sanitized)
	EnhancedLogging   bool   // Master toggle for the enhanced logging path
	LogDir            string
	LogLevel          string
	LogRotateInterval int // Hour
	LogMaxSize        int // MB
	LogMaxBackups     int
	LogMaxAge         int // Days
	LogCompress       bool

	// --- Structured log store (SQLite) ---
	SQLiteDBPath     string
	SQLiteLogEnabled bool
	SQLiteLogLevel   string

	// --- Log archive processor ---
	LogBatchInterval         time.Duration
	LogProcessorBatchSize    int    // Number of log records per archive batch
	LogArchiveDir            string // Destination for gzipped JSONL archives
	LogArchiveRetryAttempts  int    // Max retries for an archive flush on I/O error
	LogArchiveRetryDelaySecs int    // Delay between retries in seconds
	PreviewLength            int    // Max chars of inputs/results echoed into log messages

	// --- LLM client ---
	LLMModel          string
	LLMBaseURL        string
	LLMAPIKey         string
	LLMTimeoutSeconds int
	LLMTemperature    float64
	LLMMaxTokens      int
}

// LoadConfig reads configuration from environment variables or .env file
func LoadConfig(logger *zap.Logger) (*Config, error) { // logger can be nil here
	appEnv := os.Getenv("APP_ENV")
	if appEnv == "" {
		appEnv = "local" // Default to local if not set
	}

	envFileName := fmt.Sprintf(".env.%s", appEnv)
	if _, err := os.Stat(envFileName); err == nil {
		if err := godotenv.Load(envFileName); err != nil {
			if logger != nil {
				logger.Warn("Error loading .env file, continuing with environment variables", zap.String("file", envFileName), zap.Error(err))
			}
		} else {
			if logger != nil {
				logger.Info("Loaded configuration", zap.String("file", envFileName))
			}
		}
	} else if appEnv == "local" {
		// Try loading .env.local by default if .env.local specifically exists
		if _, err := os.Stat(".env.local"); err == nil {
			if err := godotenv.Load(".env.local"); err != nil {
				if logger != nil {
					logger.Warn("Error loading .env.local file", zap.Error(err))
				}
			} else {
				if logger != nil {
					logger.Info("Loaded configuration from .env.local")
				}
			}
		} else {
			if logger != nil {
				logger.Warn(".env.local not found, relying on environment variables or defaults")
			}
		}
	} else {
		if logger != nil {
			logger.Warn("No specific .env file found for environment, relying on environment variables or defaults", zap.String("environment", appEnv))
		}
	}

	cfg := &Config{
		AppEnv: getEnv("APP_ENV", "local"),
		Port:   getEnv("PORT", "3000"),

		// --- Run logging ---
		Topic:             SanitizeTopic(getEnv("CREW_TOPIC", "crew")),
		EnhancedLogging:   getEnvAsBool("CREW_ENHANCED_LOGGING", true),
		LogDir:            getEnv("LOG_DIR", "./logs"),
		LogLevel:          strings.ToLower(getEnv("LOG_LEVEL", "info")),
		LogRotateInterval: getEnvAsInt("LOG_ROTATE_INTERVAL", 24),
		LogMaxSize:        getEnvAsInt("LOG_MAX_SIZE", 100),
		LogMaxBackups:     getEnvAsInt("LOG_MAX_BACKUPS", 5),
		LogMaxAge:         getEnvAsInt("LOG_MAX_AGE", 30),
		LogCompress:       getEnvAsBool("LOG_COMPRESS", false),

		// --- Structured log store ---
		SQLiteDBPath:     getEnv("SQLITE_DB_PATH", "./logs/logs.db"),
		SQLiteLogEnabled: getEnvAsBool("SQLITE_LOG_ENABLED", true),
		SQLiteLogLevel:   strings.ToLower(getEnv("SQLITE_LOG_LEVEL", "info")),

		// --- Log archive processor ---
		LogProcessorBatchSize:    getEnvAsInt("LOG_PROCESSOR_BATCH_SIZE", 100),
		LogArchiveDir:            getEnv("LOG_ARCHIVE_DIR", "./logs/archive"),
		LogArchiveRetryAttempts:  getEnvAsInt("LOG_ARCHIVE_RETRY_ATTEMPTS", 3),
		LogArchiveRetryDelaySecs: getEnvAsInt("LOG_ARCHIVE_RETRY_DELAY_SECONDS", 30),
		PreviewLength:            getEnvAsInt("LOG_PREVIEW_LENGTH", 500),

		// --- LLM client ---
		LLMModel:          getEnv("LLM_MODEL", "gpt-4o-mini"),
		LLMBaseURL:        getEnv("LLM_BASE_URL", "https://api.openai.com/v1"),
		LLMAPIKey:         getEnv("LLM_API_KEY", ""),
		LLMTimeoutSeconds: getEnvAsInt("LLM_TIMEOUT_SECONDS", 120),
		LLMTemperature:    getEnvAsFloat("LLM_TEMPERATURE", 0.7),
		LLMMaxTokens:      getEnvAsInt("LLM_MAX_TOKENS", 0),

		// --- Load CORS Settings ---
		// Default AllowOrigins to "*" for local, empty for others (forcing explicit setting)
		CORSAllowOrigins: getEnv("CORS_ALLOW_ORIGINS", func() string {
			if getEnv("APP_ENV", "local") == "local" || getEnv("APP_ENV", "local") == "development" {
				return "*" // Be permissive in local/dev
			}
			return "" // Force setting in prod/other envs
		}()),
		CORSAllowMethods: getEnv("CORS_ALLOW_METHODS", "GET,POST,HEAD,PUT,DELETE,PATCH"),
		CORSAllowHeaders: getEnv("CORS_ALLOW_HEADERS", "Origin,Content-Type,Accept,Authorization"),
	}

	// Validation for LogLevel string here if desired
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true, "dpanic": true, "panic": true, "fatal": true}
	if !validLevels[cfg.LogLevel] {
		if logger != nil {
			logger.Warn("Invalid LOG_LEVEL specified, defaulting to 'info'", zap.String("invalidLevel", cfg.LogLevel))
		}
		cfg.LogLevel = "info" // Reset to default if invalid
	}
	if !validLevels[cfg.SQLiteLogLevel] {
		if logger != nil {
			logger.Warn("Invalid SQLITE_LOG_LEVEL specified, defaulting to 'info'", zap.String("invalidLevel", cfg.SQLiteLogLevel))
		}
		cfg.SQLiteLogLevel = "info"
	}

	batchIntervalSec := getEnvAsInt("LOG_BATCH_INTERVAL_SECONDS", 60)
	cfg.LogBatchInterval = time.Duration(batchIntervalSec) * time.Second

	if cfg.LLMAPIKey == "" {
		if logger != nil {
			logger.Warn("LLM_API_KEY is not set. Calls to hosted providers will fail; local endpoints may not require it.")
		}
	}

	// Add warning for default/empty CORS origins in production
	if cfg.AppEnv != "local" && cfg.AppEnv != "development" && (cfg.CORSAllowOrigins == "*" || cfg.CORSAllowOrigins == "") {
		if logger != nil {
			logger.Warn("CORS_ALLOW_ORIGINS is set to '*' or is empty in a non-local/dev environment. This is insecure. Set specific origins for production.")
		}
		return nil, fmt.Errorf("CORS_ALLOW_ORIGINS must be set explicitly in production environments")
	}

	// Create log directory if it doesnt exist
	if _, err := os.Stat(cfg.LogDir); os.IsNotExist(err) {
		if err := os.MkdirAll(cfg.LogDir, 0755); err != nil {
			if logger != nil {
				logger.Error("Failed to create log directory", zap.String("path", cfg.LogDir), zap.Error(err))
			}
			// Still return error regardless of logger
			return nil, fmt.Errorf("failed to create log directory %s: %w", cfg.LogDir, err)
		}
		if logger != nil {
			logger.Info("Created log directory", zap.String("path", cfg.LogDir))
		}
	}

	return cfg, nil
}

// SanitizeTopic normalizes a free-form topic string for use in file names:
// special characters are removed, spaces become underscores, and the result
// is truncated to MaxTopicLength characters.
func SanitizeTopic(topic string) string {
	clean := topicSanitizer.ReplaceAllString(topic, "")
	clean = strings.Join(strings.Fields(clean), "_")
	if len(clean) > MaxTopicLength {
		clean = clean[:MaxTopicLength]
	}
	return clean
}

// Helper function to get env var or default
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

// Helper function to get env var as int or default
func getEnvAsInt(key string, fallback int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return fallback
}

// Helper function to get env var as bool or default
func getEnvAsBool(key string, fallback bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return fallback
}

// Helper function to get env var as float or default
func getEnvAsFloat(key string, fallback float64) float64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return fallback
}

package utils

import (
	"fmt"

	"go-crewkit/internal/config"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TraceConfigDetails(logger *zap.Logger, cfg *config.Config) {
	if logger == nil || cfg == nil {
		fmt.Println("[WARN] logger or config is nil in TraceConfigDetails")
		return
	}
	maskedAPIKey := MaskAPIKey(cfg.LLMAPIKey)
	fields := []zapcore.Field{
		zap.String("AppEnv", cfg.AppEnv),
		zap.String("Port", cfg.Port),
		zap.String("Topic", cfg.Topic),
		zap.Bool("EnhancedLogging", cfg.EnhancedLogging),
		zap.String("LogDir", cfg.LogDir),
		zap.String("LogLevel", cfg.LogLevel),
		zap.Int("LogRotateIntervalHours", cfg.LogRotateInterval),
		zap.Int("LogMaxSizeMB", cfg.LogMaxSize),
		zap.Int("LogMaxBackups", cfg.LogMaxBackups),
		zap.Int("LogMaxAgeDays", cfg.LogMaxAge),
		zap.Bool("LogCompress", cfg.LogCompress),
		zap.String("SQLiteDBPath", cfg.SQLiteDBPath),
		zap.Bool("SQLiteLog_Enabled", cfg.SQLiteLogEnabled),
		zap.String("SQLiteLog_Level", cfg.SQLiteLogLevel),
		zap.Duration("LogProcessor_BatchInterval", cfg.LogBatchInterval),
		zap.Int("LogProcessor_BatchSize", cfg.LogProcessorBatchSize),
		zap.String("LogProcessor_ArchiveDir", cfg.LogArchiveDir),
		zap.Int("LogProcessor_ArchiveRetryAttempts", cfg.LogArchiveRetryAttempts),
		zap.Int("LogProcessor_ArchiveRetryDelaySeconds", cfg.LogArchiveRetryDelaySecs),
		zap.Int("PreviewLength", cfg.PreviewLength),
		zap.String("LLM_Model", cfg.LLMModel),
		zap.String("LLM_BaseURL", cfg.LLMBaseURL),
		zap.String("LLM_APIKey", maskedAPIKey),
		zap.Int("LLM_TimeoutSeconds", cfg.LLMTimeoutSeconds),
		zap.Float64("LLM_Temperature", cfg.LLMTemperature),
		zap.Int("LLM_MaxTokens", cfg.LLMMaxTokens),
		zap.String("CORS_AllowOrigins", cfg.CORSAllowOrigins),
		zap.String("CORS_AllowMethods", cfg.CORSAllowMethods),
		zap.String("CORS_AllowHeaders", cfg.CORSAllowHeaders),
	}
	logger.Debug("Loaded application configuration details", fields...)
}

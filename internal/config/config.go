package config

import (
	"os"
	"strconv"
	"time"

	"factorlens/internal/errors"
)

// Config represents the complete application configuration
type Config struct {
	Database DatabaseConfig
	Redis    RedisConfig
	Server   ServerConfig
	Analysis AnalysisConfig
	Batch    BatchConfig
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	URL     string
	SSLMode string
}

// RedisConfig holds the optional forecast-cache settings. An empty Addr
// disables caching entirely.
type RedisConfig struct {
	Addr        string
	Password    string
	DB          int
	ForecastTTL time.Duration
}

// ServerConfig holds web server settings
type ServerConfig struct {
	Port    string
	GinMode string
}

// AnalysisConfig holds the statistical thresholds of the discovery,
// learning, and prediction pipeline.
type AnalysisConfig struct {
	// Discovery acceptance gate and lookback window.
	MinCorrelation      float64
	SignificanceLevel   float64
	DiscoveryWindowDays int

	// Validation and confidence blending.
	TrialSaturation      int
	BacktestMinMatches   int
	BacktestMaxErrorPct  float64
	ValidationWindowDays int

	// Learning-store thresholds.
	RollupMinAccuracyPct   float64
	RollupMinDataPoints    int
	ResolveMinConfidence   float64
	VersionConflictRetries int

	// Prediction.
	BaselineWindowDays int
	PredictTimeout     time.Duration
}

// BatchConfig bounds the multi-entity batch runner and the recurring
// discovery/validation schedule.
type BatchConfig struct {
	MaxConcurrentEntities int64
	EntityTimeout         time.Duration
	DiscoveryInterval     time.Duration
	ValidationInterval    time.Duration
}

// Load reads configuration from environment variables and validates it
func Load() (*Config, error) {
	config := &Config{
		Database: DatabaseConfig{
			URL:     os.Getenv("DATABASE_URL"),
			SSLMode: getEnvOrDefault("SSL_MODE", "disable"),
		},
		Redis: RedisConfig{
			Addr:        getEnvOrDefault("REDIS_ADDR", ""),
			Password:    getEnvOrDefault("REDIS_PASSWORD", ""),
			DB:          getEnvIntOrDefault("REDIS_DB", 0),
			ForecastTTL: getEnvDurationOrDefault("FORECAST_CACHE_TTL", 15*time.Minute),
		},
		Server: ServerConfig{
			Port:    getEnvOrDefault("PORT", "8080"),
			GinMode: getEnvOrDefault("GIN_MODE", "release"),
		},
		Analysis: AnalysisConfig{
			MinCorrelation:         getEnvFloatOrDefault("MIN_CORRELATION", 0.15),
			SignificanceLevel:      getEnvFloatOrDefault("SIGNIFICANCE_LEVEL", 0.05),
			DiscoveryWindowDays:    getEnvIntOrDefault("DISCOVERY_WINDOW_DAYS", 90),
			TrialSaturation:        getEnvIntOrDefault("TRIAL_SATURATION", 100),
			BacktestMinMatches:     getEnvIntOrDefault("BACKTEST_MIN_MATCHES", 5),
			BacktestMaxErrorPct:    getEnvFloatOrDefault("BACKTEST_MAX_ERROR_PCT", 25),
			ValidationWindowDays:   getEnvIntOrDefault("VALIDATION_WINDOW_DAYS", 30),
			RollupMinAccuracyPct:   getEnvFloatOrDefault("ROLLUP_MIN_ACCURACY_PCT", 70),
			RollupMinDataPoints:    getEnvIntOrDefault("ROLLUP_MIN_DATA_POINTS", 20),
			ResolveMinConfidence:   getEnvFloatOrDefault("RESOLVE_MIN_CONFIDENCE", 60),
			VersionConflictRetries: getEnvIntOrDefault("VERSION_CONFLICT_RETRIES", 3),
			BaselineWindowDays:     getEnvIntOrDefault("BASELINE_WINDOW_DAYS", 90),
			PredictTimeout:         getEnvDurationOrDefault("PREDICT_TIMEOUT", 5*time.Second),
		},
		Batch: BatchConfig{
			MaxConcurrentEntities: int64(getEnvIntOrDefault("MAX_CONCURRENT_ENTITIES", 8)),
			EntityTimeout:         getEnvDurationOrDefault("ENTITY_TIMEOUT", 2*time.Minute),
			DiscoveryInterval:     getEnvDurationOrDefault("DISCOVERY_INTERVAL", 24*time.Hour),
			ValidationInterval:    getEnvDurationOrDefault("VALIDATION_INTERVAL", 12*time.Hour),
		},
	}

	if err := validateConfig(config); err != nil {
		return nil, errors.Wrap(err, "configuration validation failed")
	}
	return config, nil
}

func validateConfig(config *Config) error {
	if config.Database.URL == "" {
		return errors.ConfigInvalid("DATABASE_URL is required")
	}
	if config.Analysis.MinCorrelation <= 0 || config.Analysis.MinCorrelation >= 1 {
		return errors.ConfigInvalid("MIN_CORRELATION must be in (0,1)")
	}
	if config.Analysis.SignificanceLevel <= 0 || config.Analysis.SignificanceLevel >= 1 {
		return errors.ConfigInvalid("SIGNIFICANCE_LEVEL must be in (0,1)")
	}
	if config.Batch.MaxConcurrentEntities < 1 {
		return errors.ConfigInvalid("MAX_CONCURRENT_ENTITIES must be at least 1")
	}
	return nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvFloatOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

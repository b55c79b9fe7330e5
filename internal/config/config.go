package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// ServerConfig holds HTTP settings.
type ServerConfig struct {
	Addr              string
	GenerateRateLimit int
	ShutdownGrace     time.Duration
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string
	Format string
}

// Config holds all runtime configuration for the rota service.
type Config struct {
	Server ServerConfig
	Log    LogConfig
	DBPath string
}

const (
	defaultAddr              = "localhost:8080"
	defaultDBPath            = "flatrota.db"
	defaultLogLevel          = "info"
	defaultLogFormat         = "text"
	defaultGenerateRateLimit = 10
	defaultShutdownGrace     = 10 * time.Second
)

func getEnvString(key, defaultVal string) string {
	if val, ok := os.LookupEnv(key); ok && val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if val, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return defaultVal
}

// Load reads optional .env files, then FLATROTA_* environment variables, over
// the defaults. Variables already set in the environment win over .env files.
func Load(envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("load %s: %w", f, err)
		}
	}

	cfg := &Config{
		Server: ServerConfig{
			Addr:              getEnvString("FLATROTA_ADDR", defaultAddr),
			GenerateRateLimit: getEnvInt("FLATROTA_GENERATE_RATE_LIMIT", defaultGenerateRateLimit),
			ShutdownGrace:     getEnvDuration("FLATROTA_SHUTDOWN_GRACE", defaultShutdownGrace),
		},
		Log: LogConfig{
			Level:  getEnvString("FLATROTA_LOG_LEVEL", defaultLogLevel),
			Format: strings.ToLower(getEnvString("FLATROTA_LOG_FORMAT", defaultLogFormat)),
		},
		DBPath: getEnvString("FLATROTA_DB_PATH", defaultDBPath),
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks settings that would otherwise fail late at startup.
func (c *Config) Validate() error {
	if c.Server.GenerateRateLimit < 1 {
		return fmt.Errorf("generate rate limit must be positive, got %d", c.Server.GenerateRateLimit)
	}
	if c.Server.ShutdownGrace < 0 {
		return fmt.Errorf("shutdown grace must not be negative, got %s", c.Server.ShutdownGrace)
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("unknown log format %q", c.Log.Format)
	}
	if c.DBPath == "" {
		return fmt.Errorf("database path is required")
	}
	return nil
}

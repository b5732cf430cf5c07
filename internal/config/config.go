package config

import (
	"fmt"
	"os"
	"strconv"

	"duel-tracker/internal/constants"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"go.uber.org/fx"
)

type Config struct {
	DBPath          string
	ServerPort      string
	LogLevel        string
	DefaultKFactor  int
	RegistryBaseURL string // optional; empty disables the identity registry
}

func Load(logger zerolog.Logger) (*Config, error) {
	if err := godotenv.Load(); err != nil {
		logger.Debug().Msg(".env file not found, using environment variables or defaults")
	}

	cfg := &Config{
		DBPath:          getEnv("DB_PATH", "duels.db"),
		ServerPort:      getEnv("SERVER_PORT", "8080"),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
		DefaultKFactor:  constants.DefaultKFactor,
		RegistryBaseURL: getEnv("REGISTRY_BASE_URL", ""),
	}

	if v := os.Getenv("DEFAULT_K_FACTOR"); v != "" {
		k, err := strconv.Atoi(v)
		if err != nil || k <= 0 {
			return nil, fmt.Errorf("DEFAULT_K_FACTOR must be a positive integer, got %q", v)
		}
		cfg.DefaultKFactor = k
	}

	logger.Info().
		Str("db_path", cfg.DBPath).
		Str("server_port", cfg.ServerPort).
		Str("log_level", cfg.LogLevel).
		Int("default_k_factor", cfg.DefaultKFactor).
		Bool("registry_enabled", cfg.RegistryBaseURL != "").
		Msg("configuration loaded")

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

var Module = fx.Provide(Load)

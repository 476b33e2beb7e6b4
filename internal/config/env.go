package config

import (
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/Shafi-prog/money-tracker-sub001/internal/logging"
)

var envOnce sync.Once

// LoadEnv loads environment variables from a .env file if one exists in the
// working directory or its parent. Missing files are fine; real environment
// variables always win over file values.
func LoadEnv(logger logging.Logger) {
	envOnce.Do(func() {
		if logger == nil {
			logger = logging.GetLogger()
		}
		envFile := ".env"
		if _, err := os.Stat(envFile); os.IsNotExist(err) {
			envFile = filepath.Join("..", ".env")
			if _, err := os.Stat(envFile); os.IsNotExist(err) {
				logger.Debug("no .env file found, using environment variables")
				return
			}
		}
		if err := godotenv.Load(envFile); err != nil {
			logger.WithError(err).Warn("error loading .env file")
			return
		}
		logger.Info("loaded environment variables", logging.Field{Key: "file", Value: envFile})
	})
}

// ConfigureLogging builds the application logger from the loaded config.
func ConfigureLogging(cfg *Config) logging.Logger {
	return logging.NewLogrusAdapter(cfg.Log.Level, cfg.Log.Format)
}

// ParseLevel reports whether level names a known logrus level, defaulting to
// info on garbage. Backs the root command's --log-level override.
func ParseLevel(level string) string {
	if _, err := logrus.ParseLevel(strings.ToLower(level)); err != nil {
		return "info"
	}
	return strings.ToLower(level)
}

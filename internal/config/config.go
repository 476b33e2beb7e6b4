// Package config provides Viper-based hierarchical configuration management
// for the tracker: defaults, an optional config.yaml, then environment
// variables, with secret material (API keys, bot tokens) bound from env only.
package config

import (
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

// Config represents the complete application configuration.
type Config struct {
	Log struct {
		Level  string `mapstructure:"level" yaml:"level"`
		Format string `mapstructure:"format" yaml:"format"`
	} `mapstructure:"log" yaml:"log"`

	Database struct {
		Path string `mapstructure:"path" yaml:"path"`
	} `mapstructure:"database" yaml:"database"`

	Rules struct {
		TemplatesFile   string `mapstructure:"templates_file" yaml:"templates_file"`
		ClassifierFile  string `mapstructure:"classifier_file" yaml:"classifier_file"`
		CacheTTLSeconds int    `mapstructure:"cache_ttl_seconds" yaml:"cache_ttl_seconds"`
	} `mapstructure:"rules" yaml:"rules"`

	Dedup struct {
		CacheTTLMinutes  int     `mapstructure:"cache_ttl_minutes" yaml:"cache_ttl_minutes"`
		LookbackWindow   int     `mapstructure:"lookback_window" yaml:"lookback_window"`
		RecordTTLHours   int     `mapstructure:"record_ttl_hours" yaml:"record_ttl_hours"`
		LockWaitSeconds  int     `mapstructure:"lock_wait_seconds" yaml:"lock_wait_seconds"`
		PruneProbability float64 `mapstructure:"prune_probability" yaml:"prune_probability"`
	} `mapstructure:"dedup" yaml:"dedup"`

	Worker struct {
		BatchSize       int `mapstructure:"batch_size" yaml:"batch_size"`
		LockWaitSeconds int `mapstructure:"lock_wait_seconds" yaml:"lock_wait_seconds"`
		IntervalSeconds int `mapstructure:"interval_seconds" yaml:"interval_seconds"`
	} `mapstructure:"worker" yaml:"worker"`

	Budget struct {
		SalaryDay      int     `mapstructure:"salary_day" yaml:"salary_day"`
		AlertThreshold float64 `mapstructure:"alert_threshold" yaml:"alert_threshold"`
	} `mapstructure:"budget" yaml:"budget"`

	AI struct {
		Enabled        bool   `mapstructure:"enabled" yaml:"enabled"`
		AutoLearn      bool   `mapstructure:"auto_learn" yaml:"auto_learn"`
		TimeoutSeconds int    `mapstructure:"timeout_seconds" yaml:"timeout_seconds"`
		Gemini         struct {
			Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
			Model   string `mapstructure:"model" yaml:"model"`
			APIKey  string `mapstructure:"api_key" yaml:"-"` // Never serialize API key
		} `mapstructure:"gemini" yaml:"gemini"`
		OpenAI struct {
			Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
			BaseURL string `mapstructure:"base_url" yaml:"base_url"`
			Model   string `mapstructure:"model" yaml:"model"`
			APIKey  string `mapstructure:"api_key" yaml:"-"` // Never serialize API key
		} `mapstructure:"openai" yaml:"openai"`
	} `mapstructure:"ai" yaml:"ai"`

	Report struct {
		Telegram struct {
			Enabled  bool   `mapstructure:"enabled" yaml:"enabled"`
			ChatID   string `mapstructure:"chat_id" yaml:"chat_id"`
			BotToken string `mapstructure:"bot_token" yaml:"-"` // Never serialize bot token
		} `mapstructure:"telegram" yaml:"telegram"`
	} `mapstructure:"report" yaml:"report"`

	Server struct {
		ListenAddr string `mapstructure:"listen_addr" yaml:"listen_addr"`
	} `mapstructure:"server" yaml:"server"`
}

// InitializeConfig initializes Viper configuration with hierarchical loading.
func InitializeConfig() (*Config, error) {
	v := viper.New()

	// 1. Set defaults
	setDefaults(v)

	// 2. Config file locations
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("$HOME/.money-tracker")
	v.AddConfigPath(".money-tracker")
	v.AddConfigPath(".")

	// 3. Environment variables
	v.SetEnvPrefix("TRACKER")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// 4. Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			// Continue with defaults and env vars even on a broken file.
			fmt.Printf("Warning: error reading config file %s: %v\n", v.ConfigFileUsed(), err)
		}
	}

	// 5. Secrets always come from unprefixed env vars.
	if err := v.BindEnv("ai.gemini.api_key", "GEMINI_API_KEY"); err != nil {
		fmt.Printf("Warning: failed to bind GEMINI_API_KEY environment variable: %v\n", err)
	}
	if err := v.BindEnv("ai.openai.api_key", "OPENAI_API_KEY"); err != nil {
		fmt.Printf("Warning: failed to bind OPENAI_API_KEY environment variable: %v\n", err)
	}
	if err := v.BindEnv("report.telegram.bot_token", "TELEGRAM_BOT_TOKEN"); err != nil {
		fmt.Printf("Warning: failed to bind TELEGRAM_BOT_TOKEN environment variable: %v\n", err)
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// 6. Validate configuration
	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// setDefaults sets default configuration values.
func setDefaults(v *viper.Viper) {
	// Log defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")

	// Storage defaults
	v.SetDefault("database.path", "tracker.db")
	v.SetDefault("rules.templates_file", "templates.yaml")
	v.SetDefault("rules.classifier_file", "rules.yaml")
	v.SetDefault("rules.cache_ttl_seconds", 300)

	// Dedup defaults
	v.SetDefault("dedup.cache_ttl_minutes", 60)
	v.SetDefault("dedup.lookback_window", 2500)
	v.SetDefault("dedup.record_ttl_hours", 72)
	v.SetDefault("dedup.lock_wait_seconds", 20)
	v.SetDefault("dedup.prune_probability", 0.1)

	// Worker defaults
	v.SetDefault("worker.batch_size", 15)
	v.SetDefault("worker.lock_wait_seconds", 20)
	v.SetDefault("worker.interval_seconds", 30)

	// Budget defaults
	v.SetDefault("budget.salary_day", 25)
	v.SetDefault("budget.alert_threshold", 0.8)

	// AI defaults
	v.SetDefault("ai.enabled", false)
	v.SetDefault("ai.auto_learn", true)
	v.SetDefault("ai.timeout_seconds", 30)
	v.SetDefault("ai.gemini.enabled", true)
	v.SetDefault("ai.gemini.model", "gemini-2.0-flash")
	v.SetDefault("ai.openai.enabled", false)
	v.SetDefault("ai.openai.base_url", "https://api.openai.com/v1")
	v.SetDefault("ai.openai.model", "gpt-4o-mini")

	// Report defaults
	v.SetDefault("report.telegram.enabled", false)
	v.SetDefault("report.telegram.chat_id", "")

	// Server defaults
	v.SetDefault("server.listen_addr", ":8080")
}

// validateConfig validates the configuration values.
func validateConfig(config *Config) error {
	if _, err := logrus.ParseLevel(config.Log.Level); err != nil {
		return fmt.Errorf("invalid log level: %s", config.Log.Level)
	}
	if config.Log.Format != "text" && config.Log.Format != "json" {
		return fmt.Errorf("invalid log format: %s (must be 'text' or 'json')", config.Log.Format)
	}

	if config.Database.Path == "" {
		return fmt.Errorf("database.path cannot be empty")
	}

	if config.Dedup.LookbackWindow < 1 {
		return fmt.Errorf("dedup.lookback_window must be positive, got: %d", config.Dedup.LookbackWindow)
	}
	if config.Dedup.PruneProbability < 0.0 || config.Dedup.PruneProbability > 1.0 {
		return fmt.Errorf("dedup.prune_probability must be between 0.0 and 1.0, got: %f", config.Dedup.PruneProbability)
	}

	if config.Worker.BatchSize < 1 || config.Worker.BatchSize > 100 {
		return fmt.Errorf("worker.batch_size must be between 1 and 100, got: %d", config.Worker.BatchSize)
	}

	if config.Budget.SalaryDay < 1 || config.Budget.SalaryDay > 28 {
		return fmt.Errorf("budget.salary_day must be between 1 and 28, got: %d", config.Budget.SalaryDay)
	}
	if config.Budget.AlertThreshold <= 0.0 || config.Budget.AlertThreshold > 1.0 {
		return fmt.Errorf("budget.alert_threshold must be between 0.0 and 1.0, got: %f", config.Budget.AlertThreshold)
	}

	if config.AI.Enabled {
		if config.AI.TimeoutSeconds < 1 || config.AI.TimeoutSeconds > 300 {
			return fmt.Errorf("ai.timeout_seconds must be between 1 and 300, got: %d", config.AI.TimeoutSeconds)
		}
		if config.AI.Gemini.Enabled && config.AI.Gemini.APIKey == "" {
			return fmt.Errorf("GEMINI_API_KEY required when the Gemini provider is enabled")
		}
		if config.AI.OpenAI.Enabled && config.AI.OpenAI.APIKey == "" {
			return fmt.Errorf("OPENAI_API_KEY required when the OpenAI provider is enabled")
		}
	}

	if config.Report.Telegram.Enabled {
		if config.Report.Telegram.BotToken == "" {
			return fmt.Errorf("TELEGRAM_BOT_TOKEN required when Telegram reporting is enabled")
		}
		if config.Report.Telegram.ChatID == "" {
			return fmt.Errorf("report.telegram.chat_id required when Telegram reporting is enabled")
		}
	}

	return nil
}

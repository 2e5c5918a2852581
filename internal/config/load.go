package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// EnvPrefix is the prefix for all environment variables read by Load.
const EnvPrefix = "SUMMA"

// setDefaults registers a default for every optional key. Keys must be known
// to viper for AutomaticEnv to pick them up during Unmarshal.
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.log_level", "info")
	v.SetDefault("server.shutdown_timeout_seconds", 15)

	v.SetDefault("database.url", "")
	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 25)
	v.SetDefault("database.conn_max_lifetime_minutes", 5)

	v.SetDefault("llm.provider", "groq")
	v.SetDefault("llm.api_key", "")
	v.SetDefault("llm.model", "")
	v.SetDefault("llm.base_url", "")
	v.SetDefault("llm.request_timeout_seconds", 60)
	v.SetDefault("llm.requests_per_minute", 30)
	v.SetDefault("llm.default_retry_after_seconds", 5)
	v.SetDefault("llm.max_retry_wait_seconds", 600)
	v.SetDefault("llm.chunk_size", 16384)

	v.SetDefault("task.worker_count", 2)
	v.SetDefault("task.queue_size", 100)
	v.SetDefault("task.stuck_task_age_minutes", 30)
	v.SetDefault("task.job_timeout_minutes", 30)

	v.SetDefault("progress.subscriber_buffer", 32)

	v.SetDefault("text.fetch_timeout_seconds", 30)
	v.SetDefault("text.max_bytes", 32<<20)
	v.SetDefault("text.fallback_url_templates", []string{})
}

// Load configuration from environment variables and optionally a config file.
// Environment variables take precedence over values from the config file.
// When configPath is empty, Load looks for config.yaml in the working directory
// and silently continues if none exists.
// Returns a populated Config struct or an error if loading/validation fails.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) || configPath != "" {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks cfg against its struct tags.
func Validate(cfg *Config) error {
	if err := validator.New().Struct(cfg); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}
	return nil
}

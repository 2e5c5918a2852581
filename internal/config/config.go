package config

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server   ServerConfig   `mapstructure:"server" validate:"required"`
	Database DatabaseConfig `mapstructure:"database" validate:"required"`
	LLM      LLMConfig      `mapstructure:"llm" validate:"required"`
	Task     TaskConfig     `mapstructure:"task" validate:"required"`
	Progress ProgressConfig `mapstructure:"progress" validate:"required"`
	Text     TextConfig     `mapstructure:"text" validate:"required"`
}

// ServerConfig contains all server-related configuration settings.
type ServerConfig struct {
	Port                   int    `mapstructure:"port" validate:"required,gt=0,lt=65536"`
	LogLevel               string `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
	ShutdownTimeoutSeconds int    `mapstructure:"shutdown_timeout_seconds" validate:"gt=0"`
}

// DatabaseConfig contains all database-related configuration settings.
type DatabaseConfig struct {
	URL                    string `mapstructure:"url" validate:"required,url"`
	MaxOpenConns           int    `mapstructure:"max_open_conns" validate:"gt=0"`
	MaxIdleConns           int    `mapstructure:"max_idle_conns" validate:"gte=0"`
	ConnMaxLifetimeMinutes int    `mapstructure:"conn_max_lifetime_minutes" validate:"gt=0"`
}

// LLMConfig contains settings for the completion backend used to summarize
// chunks and reduce partial summaries.
type LLMConfig struct {
	// Provider selects the backend: "groq" (OpenAI-compatible) or "gemini".
	Provider string `mapstructure:"provider" validate:"required,oneof=groq gemini"`
	APIKey   string `mapstructure:"api_key" validate:"required"`
	Model    string `mapstructure:"model"`
	// BaseURL overrides the provider endpoint. Empty means the provider default.
	BaseURL                  string `mapstructure:"base_url" validate:"omitempty,url"`
	RequestTimeoutSeconds    int    `mapstructure:"request_timeout_seconds" validate:"gt=0"`
	RequestsPerMinute        int    `mapstructure:"requests_per_minute" validate:"gte=0"`
	DefaultRetryAfterSeconds int    `mapstructure:"default_retry_after_seconds" validate:"gt=0"`
	MaxRetryWaitSeconds      int    `mapstructure:"max_retry_wait_seconds" validate:"gt=0"`
	ChunkSize                int    `mapstructure:"chunk_size" validate:"gt=0"`
}

// TaskConfig contains settings for the background task runner.
type TaskConfig struct {
	WorkerCount         int `mapstructure:"worker_count" validate:"gt=0"`
	QueueSize           int `mapstructure:"queue_size" validate:"gt=0"`
	StuckTaskAgeMinutes int `mapstructure:"stuck_task_age_minutes" validate:"gt=0"`
	JobTimeoutMinutes   int `mapstructure:"job_timeout_minutes" validate:"gt=0"`
}

// ProgressConfig contains settings for the progress channel hub.
type ProgressConfig struct {
	SubscriberBuffer int `mapstructure:"subscriber_buffer" validate:"gt=0"`
}

// TextConfig contains settings for resolving document text over HTTP.
type TextConfig struct {
	FetchTimeoutSeconds int   `mapstructure:"fetch_timeout_seconds" validate:"gt=0"`
	MaxBytes            int64 `mapstructure:"max_bytes" validate:"gt=0"`

	// FallbackURLTemplates are tried in order when a document has no text of
	// its own. "{id}" is replaced by the document ID.
	FallbackURLTemplates []string `mapstructure:"fallback_url_templates" validate:"omitempty,dive,required"`
}

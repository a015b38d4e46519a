package config

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server  ServerConfig  `mapstructure:"server" validate:"required"`
	Task    TaskConfig    `mapstructure:"task" validate:"required"`
	Storage StorageConfig `mapstructure:"storage" validate:"required"`
	Checker CheckerConfig `mapstructure:"checker" validate:"required"`
}

// ServerConfig contains all server-related configuration settings.
type ServerConfig struct {
	Port     int    `mapstructure:"port" validate:"required,gt=0,lt=65536"`
	LogLevel string `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
	// AllowedOrigins is the CORS allow-list; "*" allows any origin.
	AllowedOrigins         []string `mapstructure:"allowed_origins"`
	ShutdownTimeoutSeconds int      `mapstructure:"shutdown_timeout_seconds" validate:"gt=0"`
}

// TaskConfig contains settings for background inspection tasks and their live feeds.
type TaskConfig struct {
	// MaxRunning bounds how many checker runs execute at once.
	// Tasks beyond the limit wait for a slot; their feeds stay open.
	MaxRunning             int `mapstructure:"max_running" validate:"gt=0"`
	StreamHeartbeatSeconds int `mapstructure:"stream_heartbeat_seconds" validate:"gt=0"`
}

// StorageConfig contains the directories used for uploaded documents and review results.
type StorageConfig struct {
	UploadDir string `mapstructure:"upload_dir" validate:"required"`
	ResultDir string `mapstructure:"result_dir" validate:"required"`
}

// CheckerConfig contains settings for the translation checker and its LLM reviewer.
type CheckerConfig struct {
	// GeminiAPIKey enables the LLM review step. When empty only glossary checks run.
	GeminiAPIKey       string `mapstructure:"gemini_api_key"`
	DefaultModel       string `mapstructure:"default_model" validate:"required"`
	MaxRetries         int    `mapstructure:"max_retries" validate:"gte=0"`
	RetryDelaySeconds  int    `mapstructure:"retry_delay_seconds" validate:"gte=1"`
	DefaultGlossaryURL string `mapstructure:"default_glossary_url" validate:"omitempty,url"`
	GlossaryCacheSize  int    `mapstructure:"glossary_cache_size" validate:"gt=0"`
	// GlossaryCacheTTLSeconds bounds how long a fetched glossary is reused by runs.
	GlossaryCacheTTLSeconds int `mapstructure:"glossary_cache_ttl_seconds" validate:"gt=0"`
	HTTPTimeoutSeconds      int `mapstructure:"http_timeout_seconds" validate:"gt=0"`
}

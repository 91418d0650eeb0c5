package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/spf13/viper"
	"github.com/subosito/gotenv"
)

// Config holds all application configuration
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Database   DatabaseConfig   `mapstructure:"database"`
	OpenAI     OpenAIConfig     `mapstructure:"openai"`
	Extraction ExtractionConfig `mapstructure:"extraction"`
	Export     ExportConfig     `mapstructure:"export"`
	Logger     LoggerConfig     `mapstructure:"logger"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host          string        `mapstructure:"host"`
	Port          int           `mapstructure:"port"`
	ReadTimeout   time.Duration `mapstructure:"read_timeout"`
	WriteTimeout  time.Duration `mapstructure:"write_timeout"`
	MaxUploadSize int64         `mapstructure:"max_upload_size"`
}

// DatabaseConfig holds database configuration. An empty Path disables storage.
type DatabaseConfig struct {
	Path            string        `mapstructure:"path"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// OpenAIConfig holds configuration of the optional AI extraction tier
type OpenAIConfig struct {
	APIKey            string        `mapstructure:"api_key"`
	BaseURL           string        `mapstructure:"base_url"`
	Model             string        `mapstructure:"model"`
	Temperature       float32       `mapstructure:"temperature"`
	MaxTokens         int           `mapstructure:"max_tokens"`
	Timeout           time.Duration `mapstructure:"timeout"`
	RequestsPerMinute int           `mapstructure:"requests_per_minute"`
}

// Enabled reports whether the AI tier has credentials
func (o OpenAIConfig) Enabled() bool {
	return o.APIKey != ""
}

// ExtractionConfig holds tuning of the regex extraction engine
type ExtractionConfig struct {
	KnownVendors        []string `mapstructure:"known_vendors"`
	ReviewThreshold     float64  `mapstructure:"review_threshold"`
	HeuristicLineWindow int      `mapstructure:"heuristic_line_window"`
	MaxTextBytes        int      `mapstructure:"max_text_bytes"`
	CrossValidate       bool     `mapstructure:"cross_validate"`
}

// ExportConfig holds spreadsheet export configuration
type ExportConfig struct {
	MaxRows int `mapstructure:"max_rows"`
}

// LoggerConfig holds logger configuration
type LoggerConfig struct {
	Level      string `mapstructure:"level"`
	OutputPath string `mapstructure:"output_path"`
	Format     string `mapstructure:"format"`
}

// Load loads configuration from an optional YAML file, a .env file and the
// environment. An empty configPath uses defaults and environment only.
func Load(configPath string) (*Config, error) {
	if err := gotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	v := viper.New()
	v.SetConfigType("yaml")
	v.AutomaticEnv()
	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	bindEnvVars(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("server.write_timeout", 60*time.Second)
	v.SetDefault("server.max_upload_size", 20<<20)

	// Database defaults
	v.SetDefault("database.path", "data/docextract.db")
	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", 5*time.Minute)

	// OpenAI defaults
	v.SetDefault("openai.model", "gpt-4o-mini")
	v.SetDefault("openai.temperature", 0.0)
	v.SetDefault("openai.max_tokens", 2000)
	v.SetDefault("openai.timeout", 60*time.Second)
	v.SetDefault("openai.requests_per_minute", 20)

	// Extraction defaults
	v.SetDefault("extraction.known_vendors", []string{
		"MGD Construction Services",
		"Master Gutters Installation Service",
		"Mayan's Construction Corp",
	})
	v.SetDefault("extraction.review_threshold", 0.70)
	v.SetDefault("extraction.heuristic_line_window", 15)
	v.SetDefault("extraction.max_text_bytes", 2<<20)
	v.SetDefault("extraction.cross_validate", true)

	// Export defaults
	v.SetDefault("export.max_rows", 10000)

	// Logger defaults
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.output_path", "stdout")
	v.SetDefault("logger.format", "json")
}

// bindEnvVars binds environment variables to configuration
func bindEnvVars(v *viper.Viper) {
	// Sensitive credentials from environment
	_ = v.BindEnv("openai.api_key", "OPENAI_API_KEY")
	_ = v.BindEnv("openai.base_url", "OPENAI_BASE_URL")
	_ = v.BindEnv("database.path", "DOCEXTRACT_DB_PATH")
	_ = v.BindEnv("logger.level", "DOCEXTRACT_LOG_LEVEL")
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535, got %d", c.Server.Port)
	}
	if c.Extraction.ReviewThreshold <= 0 || c.Extraction.ReviewThreshold > 1 {
		return fmt.Errorf("extraction.review_threshold must be within (0, 1], got %.2f", c.Extraction.ReviewThreshold)
	}
	if c.Extraction.HeuristicLineWindow <= 0 {
		return fmt.Errorf("extraction.heuristic_line_window must be positive")
	}
	if c.Extraction.MaxTextBytes < 0 {
		return fmt.Errorf("extraction.max_text_bytes must not be negative")
	}
	if c.OpenAI.Enabled() && c.OpenAI.RequestsPerMinute <= 0 {
		return fmt.Errorf("openai.requests_per_minute must be positive when openai is enabled")
	}
	return nil
}

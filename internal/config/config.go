package config

import (
	"time"

	"github.com/vovakirdan/grammarchat-server/internal/completion"
)

// Storage driver names accepted by app.OpenStore.
const (
	DriverMemory = "memory"
	DriverFile   = "file"
	DriverSQLite = "sqlite"
	DriverRedis  = "redis"
)

// Completion provider names accepted by app.NewCompletionClient.
const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"
)

// Config holds server configuration values.
type Config struct {
	Addr              string        `mapstructure:"addr" yaml:"addr"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout" yaml:"read_header_timeout"`
	ShutdownTimeout   time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
	LogLevel          string        `mapstructure:"log_level" yaml:"log_level"`
	LogFormat         string        `mapstructure:"log_format" yaml:"log_format"`
	MaxMessageBytes   int64         `mapstructure:"max_message_bytes" yaml:"max_message_bytes"`

	Storage    StorageConfig    `mapstructure:"storage" yaml:"storage"`
	Completion CompletionConfig `mapstructure:"completion" yaml:"completion"`
}

// StorageConfig selects and configures the message log persistence backend.
type StorageConfig struct {
	Driver    string `mapstructure:"driver" yaml:"driver"`
	Path      string `mapstructure:"path" yaml:"path"`
	Key       string `mapstructure:"key" yaml:"key"`
	RedisAddr string `mapstructure:"redis_addr" yaml:"redis_addr"`
	RedisDB   int    `mapstructure:"redis_db" yaml:"redis_db"`
}

// CompletionConfig configures the text-generation backend.
// The API key is read from the environment into Secrets.
type CompletionConfig struct {
	Provider       string        `mapstructure:"provider" yaml:"provider"`
	BaseURL        string        `mapstructure:"base_url" yaml:"base_url"`
	Model          string        `mapstructure:"model" yaml:"model"`
	Timeout        time.Duration `mapstructure:"timeout" yaml:"timeout"`
	PromptTemplate string        `mapstructure:"prompt_template" yaml:"prompt_template"`
}

// Default returns configuration with reasonable starter defaults.
func Default() Config {
	return Config{
		Addr:              ":8080",
		ReadHeaderTimeout: 5 * time.Second,
		ShutdownTimeout:   5 * time.Second,
		LogLevel:          "info",
		LogFormat:         "console",
		MaxMessageBytes:   1 << 16,
		Storage: StorageConfig{
			Driver: DriverFile,
			Path:   "data",
			Key:    "messages",
		},
		Completion: CompletionConfig{
			Provider:       ProviderGemini,
			BaseURL:        "https://generativelanguage.googleapis.com/v1beta",
			Model:          "gemini-1.5-flash",
			Timeout:        30 * time.Second,
			PromptTemplate: completion.DefaultPromptTemplate,
		},
	}
}

// UpdateFrom overwrites non-zero values from other config into receiver.
func (c *Config) UpdateFrom(other Config) {
	if other.Addr != "" {
		c.Addr = other.Addr
	}
	if other.ReadHeaderTimeout != 0 {
		c.ReadHeaderTimeout = other.ReadHeaderTimeout
	}
	if other.ShutdownTimeout != 0 {
		c.ShutdownTimeout = other.ShutdownTimeout
	}
	if other.LogLevel != "" {
		c.LogLevel = other.LogLevel
	}
	if other.LogFormat != "" {
		c.LogFormat = other.LogFormat
	}
	if other.MaxMessageBytes != 0 {
		c.MaxMessageBytes = other.MaxMessageBytes
	}
	if other.Storage.Driver != "" {
		c.Storage.Driver = other.Storage.Driver
	}
	if other.Storage.Path != "" {
		c.Storage.Path = other.Storage.Path
	}
	if other.Storage.Key != "" {
		c.Storage.Key = other.Storage.Key
	}
	if other.Completion.Provider != "" {
		c.Completion.Provider = other.Completion.Provider
	}
	if other.Completion.Model != "" {
		c.Completion.Model = other.Completion.Model
	}
	if other.Completion.BaseURL != "" {
		c.Completion.BaseURL = other.Completion.BaseURL
	}
}

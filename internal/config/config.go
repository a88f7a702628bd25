// Package config loads the service-level configuration for the HTTP
// server. Provider credentials and model selection are configured
// separately through the llm package's environment variables.
package config

import "time"

// Config holds all service configuration.
type Config struct {
	Server     ServerConfig     `mapstructure:"server" validate:"required"`
	Generation GenerationConfig `mapstructure:"generation" validate:"required"`
	Store      StoreConfig      `mapstructure:"store"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port" validate:"required,gt=0,lt=65536"`
	LogLevel        string        `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout" validate:"gte=0"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"gte=0"`

	// MaxUploadBytes bounds the size of attachment uploads.
	MaxUploadBytes int64 `mapstructure:"max_upload_bytes" validate:"gt=0"`
}

// GenerationConfig contains question generation settings.
type GenerationConfig struct {
	BatchSize       int           `mapstructure:"batch_size" validate:"required,gt=0"`
	InterBatchDelay time.Duration `mapstructure:"inter_batch_delay" validate:"gte=0"`
	MaxTokens       int           `mapstructure:"max_tokens" validate:"required,gt=0"`
	Temperature     float64       `mapstructure:"temperature" validate:"gte=0,lte=2"`
	CacheCapacity   int           `mapstructure:"cache_capacity" validate:"gt=0"`
}

// StoreConfig contains event log settings.
type StoreConfig struct {
	// Path is the SQLite database location. Empty selects the default
	// data directory; "disabled" turns event logging off.
	Path string `mapstructure:"path"`
}

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	// Default values
	DefaultPort            = 8085
	DefaultHost            = "127.0.0.1"
	DefaultLogLevel        = "info"
	DefaultMaxTemplateSize = 25 * 1024 * 1024 // 25MB
	DefaultFetchTimeout    = 10 * time.Second
	DefaultConcurrency     = 4
)

// Config holds all configuration for the certfill service.
type Config struct {
	// Server configuration
	Host string
	Port int

	// Document configuration
	TemplateDirectory string
	MaxTemplateSize   int64 // Maximum template file size in bytes

	// Fill configuration
	FetchTimeout       time.Duration // Bound on remote signature fetches
	CompileConcurrency int           // Concurrent fills per compiled report

	// Persistence; empty keeps submissions and position overrides in memory
	DatabaseDSN string

	// Application configuration
	Version    string
	ServerName string
	LogLevel   string
}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() *Config {
	currentDir, err := os.Getwd()
	if err != nil {
		currentDir = "."
	}

	return &Config{
		Host:               DefaultHost,
		Port:               DefaultPort,
		TemplateDirectory:  filepath.Join(currentDir, "templates"),
		MaxTemplateSize:    DefaultMaxTemplateSize,
		FetchTimeout:       DefaultFetchTimeout,
		CompileConcurrency: DefaultConcurrency,
		Version:            "1.0.0",
		ServerName:         "certfill",
		LogLevel:           DefaultLogLevel,
	}
}

// LoadFromFlags parses command line flags and returns a configuration.
func LoadFromFlags() (*Config, error) {
	cfg := DefaultConfig()

	setupViperEnvironment(cfg)
	defineCommandLineFlags(cfg)
	bindFlagsToViper()

	pflag.Parse()

	populateConfigFromViper(cfg)

	if cfg.TemplateDirectory != "" {
		if expandedPath, err := filepath.Abs(cfg.TemplateDirectory); err == nil {
			cfg.TemplateDirectory = expandedPath
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// setupViperEnvironment configures viper with environment variables and defaults.
func setupViperEnvironment(cfg *Config) {
	viper.SetEnvPrefix("CERTFILL")
	viper.AutomaticEnv()

	viper.SetDefault("host", cfg.Host)
	viper.SetDefault("port", cfg.Port)
	viper.SetDefault("templatedir", cfg.TemplateDirectory)
	viper.SetDefault("maxtemplatesize", cfg.MaxTemplateSize)
	viper.SetDefault("fetchtimeout", cfg.FetchTimeout)
	viper.SetDefault("concurrency", cfg.CompileConcurrency)
	viper.SetDefault("dsn", cfg.DatabaseDSN)
	viper.SetDefault("loglevel", cfg.LogLevel)
}

// defineCommandLineFlags sets up all command line flags.
func defineCommandLineFlags(cfg *Config) {
	pflag.String("host", cfg.Host, "Server host address")
	pflag.Int("port", cfg.Port, "Server port")
	pflag.String("templatedir", cfg.TemplateDirectory, "Directory containing fillable PDF templates")
	pflag.Int64("maxtemplatesize", cfg.MaxTemplateSize, "Maximum template file size in bytes")
	pflag.Duration("fetchtimeout", cfg.FetchTimeout, "Timeout for fetching remote signature images")
	pflag.Int("concurrency", cfg.CompileConcurrency, "Concurrent fills per compiled report")
	pflag.String("dsn", cfg.DatabaseDSN, "Postgres DSN for durable storage (empty for in-memory)")
	pflag.String("loglevel", cfg.LogLevel, "Log level (debug, info, warn, error)")
}

// bindFlagsToViper binds command line flags to viper configuration.
func bindFlagsToViper() {
	_ = viper.BindPFlag("host", pflag.Lookup("host"))
	_ = viper.BindPFlag("port", pflag.Lookup("port"))
	_ = viper.BindPFlag("templatedir", pflag.Lookup("templatedir"))
	_ = viper.BindPFlag("maxtemplatesize", pflag.Lookup("maxtemplatesize"))
	_ = viper.BindPFlag("fetchtimeout", pflag.Lookup("fetchtimeout"))
	_ = viper.BindPFlag("concurrency", pflag.Lookup("concurrency"))
	_ = viper.BindPFlag("dsn", pflag.Lookup("dsn"))
	_ = viper.BindPFlag("loglevel", pflag.Lookup("loglevel"))
}

// populateConfigFromViper fills the config struct with values from viper.
func populateConfigFromViper(cfg *Config) {
	cfg.Host = viper.GetString("host")
	cfg.Port = viper.GetInt("port")
	cfg.TemplateDirectory = viper.GetString("templatedir")
	cfg.MaxTemplateSize = viper.GetInt64("maxtemplatesize")
	cfg.FetchTimeout = viper.GetDuration("fetchtimeout")
	cfg.CompileConcurrency = viper.GetInt("concurrency")
	cfg.DatabaseDSN = viper.GetString("dsn")
	cfg.LogLevel = viper.GetString("loglevel")
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return errors.New("port must be between 1 and 65535")
	}

	if c.TemplateDirectory == "" {
		return errors.New("template directory cannot be empty")
	}
	if info, err := os.Stat(c.TemplateDirectory); err != nil {
		return fmt.Errorf("cannot access template directory %s: %w", c.TemplateDirectory, err)
	} else if !info.IsDir() {
		return fmt.Errorf("template directory %s is not a directory", c.TemplateDirectory)
	}

	if c.MaxTemplateSize <= 0 {
		return errors.New("maximum template size must be positive")
	}
	if c.FetchTimeout <= 0 {
		return errors.New("fetch timeout must be positive")
	}
	if c.CompileConcurrency < 1 {
		return errors.New("compile concurrency must be at least 1")
	}

	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[c.LogLevel] {
		return fmt.Errorf("invalid log level: %s (must be one of: debug, info, warn, error)", c.LogLevel)
	}

	return nil
}

// Address returns the server address as host:port.
func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// IsDebug returns true if debug logging is enabled.
func (c *Config) IsDebug() bool {
	return c.LogLevel == "debug"
}

// String returns a string representation of the configuration.
func (c *Config) String() string {
	return fmt.Sprintf("Config{Host: %s, Port: %d, TemplateDirectory: %s, LogLevel: %s, MaxTemplateSize: %d, Concurrency: %d}",
		c.Host, c.Port, c.TemplateDirectory, c.LogLevel, c.MaxTemplateSize, c.CompileConcurrency)
}

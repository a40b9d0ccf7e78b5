// Package config loads the inkfs server's configuration: a YAML file,
// overridden by INKFS_*-prefixed environment variables. No CLI flag is
// bound into viper; the server's --config flag only selects the file.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the inkfs server's full configuration.
type Config struct {
	Logging LoggingConfig `mapstructure:"logging"`
	HTTP    HTTPConfig    `mapstructure:"http"`
	Store   StoreConfig   `mapstructure:"store"`
	Content ContentConfig `mapstructure:"content"`
}

// LoggingConfig controls internal/logger.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`  // DEBUG, INFO, WARN, ERROR
	Format string `mapstructure:"format"` // text, json
	Output string `mapstructure:"output"` // stdout, stderr, or a file path
}

// HTTPConfig controls the api.Server listener.
type HTTPConfig struct {
	Addr            string        `mapstructure:"addr"` // host:port, e.g. ":3000"
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// StoreConfig selects and configures the metadata store backend.
type StoreConfig struct {
	// Driver is "postgres" or "memory". "memory" exists for local
	// development and tests; production deployments use "postgres".
	Driver      string `mapstructure:"driver"`
	PostgresDSN string `mapstructure:"postgres_dsn"`
	AutoMigrate bool   `mapstructure:"auto_migrate"`
}

// ContentConfig configures the content store's base directory.
type ContentConfig struct {
	BaseDir string `mapstructure:"base_dir"`
}

// Default returns the configuration used when no file, env var, or flag
// overrides a field.
func Default() *Config {
	return &Config{
		Logging: LoggingConfig{Level: "INFO", Format: "text", Output: "stderr"},
		HTTP:    HTTPConfig{Addr: ":3000", ShutdownTimeout: 5 * time.Second},
		Store:   StoreConfig{Driver: "postgres", AutoMigrate: true},
		Content: ContentConfig{BaseDir: "/var/lib/inkfs"},
	}
}

// Load reads configPath (if non-empty) as a YAML file, layers INKFS_*
// environment variables over it, and returns the result merged onto
// Default(). An empty configPath with no matching file on disk is not an
// error: the server runs on defaults plus environment overrides alone.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("INKFS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := Default()
	applyDefaultsToViper(v, cfg)

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config: read %s: %w", configPath, err)
		}
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/inkfs")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, fmt.Errorf("config: read default location: %w", err)
			}
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}
	return cfg, nil
}

// applyDefaultsToViper seeds viper's own default layer so that
// AutomaticEnv/config-file values that are merely absent (rather than
// explicitly zero) still resolve to Default()'s values after Unmarshal.
func applyDefaultsToViper(v *viper.Viper, cfg *Config) {
	v.SetDefault("logging.level", cfg.Logging.Level)
	v.SetDefault("logging.format", cfg.Logging.Format)
	v.SetDefault("logging.output", cfg.Logging.Output)
	v.SetDefault("http.addr", cfg.HTTP.Addr)
	v.SetDefault("http.shutdown_timeout", cfg.HTTP.ShutdownTimeout)
	v.SetDefault("store.driver", cfg.Store.Driver)
	v.SetDefault("store.postgres_dsn", cfg.Store.PostgresDSN)
	v.SetDefault("store.auto_migrate", cfg.Store.AutoMigrate)
	v.SetDefault("content.base_dir", cfg.Content.BaseDir)
}

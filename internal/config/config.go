// Package config loads server settings from the environment and an optional
// config file.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the full server configuration. Every key can be set through the
// upper-case environment variable of the same name (e.g. DB_PATH).
type Config struct {
	Port   int    `mapstructure:"port"`
	DBPath string `mapstructure:"db_path"`

	GeminiAPIKey           string `mapstructure:"gemini_api_key"`
	GeminiModel            string `mapstructure:"gemini_model"`
	DiagnosticsCredentials string `mapstructure:"diagnostics_credentials"`

	JWTSecret string        `mapstructure:"jwt_secret"`
	JWTTTL    time.Duration `mapstructure:"jwt_ttl"`

	LogLevel string `mapstructure:"log_level"`

	MaxImageBytes     int64         `mapstructure:"max_image_bytes"`
	ExtractionTimeout time.Duration `mapstructure:"extraction_timeout"`
	CommitParallelism int           `mapstructure:"commit_parallelism"`
	AllowedOrigin     string        `mapstructure:"allowed_origin"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("port", 8080)
	v.SetDefault("db_path", "./data/debtbook.db")
	v.SetDefault("gemini_api_key", "")
	v.SetDefault("gemini_model", "gemini-2.0-flash")
	v.SetDefault("diagnostics_credentials", "")
	v.SetDefault("jwt_secret", "")
	v.SetDefault("jwt_ttl", 24*time.Hour)
	v.SetDefault("log_level", "info")
	v.SetDefault("max_image_bytes", 15<<20)
	v.SetDefault("extraction_timeout", 60*time.Second)
	v.SetDefault("commit_parallelism", 8)
	v.SetDefault("allowed_origin", "*")
}

// Load reads configuration. path names a config file; when empty, config.yaml in
// the working directory is used if present. Environment variables override both.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path == "" {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	} else {
		v.SetConfigFile(path)
	}

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := c.validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *Config) validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	if c.DBPath == "" {
		return errors.New("db_path must not be empty")
	}
	if c.JWTTTL <= 0 {
		return fmt.Errorf("invalid jwt_ttl %s", c.JWTTTL)
	}
	if c.MaxImageBytes <= 0 {
		return fmt.Errorf("invalid max_image_bytes %d", c.MaxImageBytes)
	}
	if c.ExtractionTimeout <= 0 {
		return fmt.Errorf("invalid extraction_timeout %s", c.ExtractionTimeout)
	}
	if c.CommitParallelism <= 0 {
		return fmt.Errorf("invalid commit_parallelism %d", c.CommitParallelism)
	}
	return nil
}

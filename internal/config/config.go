package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/lehigh-university-libraries/ocrserver/internal/cache"
	"github.com/lehigh-university-libraries/ocrserver/internal/ocr"
	"gopkg.in/yaml.v3"
)

type ServerConfig struct {
	Host         string `yaml:"host"`
	Port         int    `yaml:"port"`
	MaxBodyBytes int64  `yaml:"max_body_bytes"`
}

// Addr is the listen address for net/http
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

type Config struct {
	Server   ServerConfig `yaml:"server"`
	OCR      ocr.Config   `yaml:"ocr"`
	Cache    cache.Config `yaml:"cache"`
	LogLevel string       `yaml:"log_level"`
}

// Default listens on port 80 and reads model files from models/
func Default() Config {
	return Config{
		Server: ServerConfig{
			Host:         "0.0.0.0",
			Port:         80,
			MaxBodyBytes: 10 * 1024 * 1024,
		},
		OCR: ocr.Config{
			Provider:    ocr.DefaultProvider,
			ModelPath:   "models/ocr.traineddata",
			CharsetPath: "models/charsets.json",
			Timeout:     30 * time.Second,
		},
		Cache: cache.Config{
			Type: "none",
			TTL:  time.Hour,
		},
		LogLevel: "info",
	}
}

// Load reads an optional YAML file over the defaults, then applies
// environment overrides. An empty path skips the file.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Server.Port)
	}
	if c.Server.MaxBodyBytes <= 0 {
		return fmt.Errorf("max_body_bytes must be positive")
	}
	return nil
}

func applyEnv(cfg *Config) error {
	setString(&cfg.Server.Host, "HOST")
	if err := setInt(&cfg.Server.Port, "PORT"); err != nil {
		return err
	}
	if v := os.Getenv("MAX_BODY_BYTES"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid MAX_BODY_BYTES %q: %w", v, err)
		}
		cfg.Server.MaxBodyBytes = n
	}

	setString(&cfg.OCR.Provider, "OCR_PROVIDER")
	setString(&cfg.OCR.Model, "OCR_MODEL")
	setString(&cfg.OCR.ModelPath, "OCR_MODEL_PATH")
	setString(&cfg.OCR.CharsetPath, "OCR_CHARSET_PATH")
	if err := setDuration(&cfg.OCR.Timeout, "OCR_TIMEOUT"); err != nil {
		return err
	}

	setString(&cfg.Cache.Type, "CACHE_TYPE")
	if err := setDuration(&cfg.Cache.TTL, "CACHE_TTL"); err != nil {
		return err
	}
	setString(&cfg.Cache.Redis.Addr, "REDIS_ADDR")
	setString(&cfg.Cache.Redis.Password, "REDIS_PASSWORD")
	if err := setInt(&cfg.Cache.Redis.DB, "REDIS_DB"); err != nil {
		return err
	}

	setString(&cfg.LogLevel, "LOG_LEVEL")
	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	*dst = n
	return nil
}

func setDuration(dst *time.Duration, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	*dst = d
	return nil
}

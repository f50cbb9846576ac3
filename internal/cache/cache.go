package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"time"
)

// Store caches recognition results keyed by image content.
// Implementations must be safe for concurrent use.
type Store interface {
	// Get returns the cached value and whether it was found.
	Get(ctx context.Context, key string) (string, bool, error)

	// Set stores the value, replacing any existing entry.
	Set(ctx context.Context, key, value string) error
}

// Config selects and configures a Store
type Config struct {
	Type  string        `yaml:"type"`
	TTL   time.Duration `yaml:"ttl"`
	Redis RedisConfig   `yaml:"redis"`
}

// Key derives a cache key from raw image bytes
func Key(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// New builds the store named by cfg.Type. "none" and "" return a nil Store.
func New(cfg Config) (Store, error) {
	switch cfg.Type {
	case "", "none":
		slog.Info("Result cache disabled")
		return nil, nil
	case "memory":
		slog.Info("Using in memory result cache", "ttl", cfg.TTL)
		return NewMemory(cfg.TTL), nil
	case "redis":
		slog.Info("Using redis result cache", "addr", cfg.Redis.Addr, "ttl", cfg.TTL)
		client, err := NewRedisClient(&cfg.Redis)
		if err != nil {
			return nil, err
		}
		return NewRedis(client, cfg.Redis.Namespace, cfg.TTL), nil
	default:
		return nil, fmt.Errorf("%v is not a valid cache type", cfg.Type)
	}
}

package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

type RedisConfig struct {
	Addr      string `yaml:"addr"`
	Password  string `yaml:"password"`
	DB        int    `yaml:"db"`
	Namespace string `yaml:"namespace"`
}

// NewRedisClient connects and pings the server so a bad address fails at startup
func NewRedisClient(config *RedisConfig) (*redis.Client, error) {
	if config.Addr == "" {
		return nil, fmt.Errorf("redis address is required")
	}

	client := redis.NewClient(&redis.Options{
		Addr:     config.Addr,
		Password: config.Password,
		DB:       config.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", config.Addr, err)
	}
	return client, nil
}

type Redis struct {
	client    *redis.Client
	namespace string
	ttl       time.Duration
}

func NewRedis(client *redis.Client, namespace string, ttl time.Duration) *Redis {
	if namespace == "" {
		namespace = "ocrserver"
	}
	return &Redis{client: client, namespace: namespace, ttl: ttl}
}

func createKey(namespace, key string) string {
	return fmt.Sprintf("%s:result:%s", namespace, key)
}

func (r *Redis) Get(ctx context.Context, key string) (string, bool, error) {
	val, err := r.client.Get(ctx, createKey(r.namespace, key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return val, true, nil
}

func (r *Redis) Set(ctx context.Context, key, value string) error {
	return r.client.Set(ctx, createKey(r.namespace, key), value, r.ttl).Err()
}

package db

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/go-redis/redis/v8"
)

// RedisGateway stores each collection as a JSON string under its own Redis key
type RedisGateway struct {
	Client *redis.Client
	Prefix string // Optional namespace, e.g. "tracker:" -> tracker:classes
}

// NewRedisGateway creates a new RedisGateway instance
func NewRedisGateway(client *redis.Client, prefix string) *RedisGateway {
	return &RedisGateway{
		Client: client,
		Prefix: prefix,
	}
}

func (g *RedisGateway) key(name string) string {
	return g.Prefix + name
}

// Get reads the JSON document stored under key
func (g *RedisGateway) Get(ctx context.Context, key string) ([]byte, bool, error) {
	data, err := g.Client.Get(ctx, g.key(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		log.Printf("Error reading key %s: %v", g.key(key), err)
		return nil, false, fmt.Errorf("failed to read %s from Redis: %w", key, err)
	}
	return data, true, nil
}

// Set overwrites the JSON document stored under key
func (g *RedisGateway) Set(ctx context.Context, key string, value []byte) error {
	if err := g.Client.Set(ctx, g.key(key), value, 0).Err(); err != nil {
		log.Printf("Error writing key %s: %v", g.key(key), err)
		return fmt.Errorf("failed to write %s to Redis: %w", key, err)
	}
	return nil
}

// Ping checks the connection
func (g *RedisGateway) Ping(ctx context.Context) error {
	return g.Client.Ping(ctx).Err()
}

// InitializeRedisClient creates and tests a Redis client connection
func InitializeRedisClient(ctx context.Context, addr, password string, dbIndex int) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       dbIndex,
	})

	if _, err := rdb.Ping(ctx).Result(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("could not connect to Redis at %s: %w", addr, err)
	}

	log.Printf("Successfully connected to Redis %s (DB %d)", addr, dbIndex)
	return rdb, nil
}

// Package kv stores per-user metadata in redis with optional expiry.
package kv

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/philipparndt/modelforge/internal/config"
)

var (
	ErrNotFound = errors.New("key not found")
	ErrClosed   = errors.New("kv store is closed")
)

// Store is a string key-value store
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
	List(ctx context.Context, prefix string) ([]string, error)
}

// RedisStore implements Store on redis
type RedisStore struct {
	client     *redis.Client
	defaultTTL time.Duration
	logger     *zap.Logger
	mu         sync.RWMutex
	closed     bool
}

// scanBatch is the COUNT hint of SCAN iterations
const scanBatch = 100

// NewRedisStore connects and pings the server
func NewRedisStore(ctx context.Context, cfg config.RedisConfig, logger *zap.Logger) (*RedisStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	logger.Info("kv store connected", zap.String("addr", cfg.Addr))
	return &RedisStore{
		client:     client,
		defaultTTL: cfg.DefaultTTL,
		logger:     logger.With(zap.String("component", "kv")),
	}, nil
}

// Client exposes the redis client for stores that need list commands
func (s *RedisStore) Client() *redis.Client {
	return s.client
}

func (s *RedisStore) check() error {
	if s.closed {
		return ErrClosed
	}
	return nil
}

// Get returns ErrNotFound for missing keys
func (s *RedisStore) Get(ctx context.Context, key string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.check(); err != nil {
		return "", err
	}

	val, err := s.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	if err != nil {
		s.logger.Error("kv get failed", zap.String("key", key), zap.Error(err))
		return "", fmt.Errorf("kv get failed: %w", err)
	}
	return val, nil
}

// Set stores value. A zero ttl uses the configured default; zero default means no expiry.
func (s *RedisStore) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.check(); err != nil {
		return err
	}

	if ttl == 0 {
		ttl = s.defaultTTL
	}
	if err := s.client.Set(ctx, key, value, ttl).Err(); err != nil {
		s.logger.Error("kv set failed", zap.String("key", key), zap.Error(err))
		return fmt.Errorf("kv set failed: %w", err)
	}
	return nil
}

// Delete removes keys; missing keys are ignored
func (s *RedisStore) Delete(ctx context.Context, keys ...string) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.check(); err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}
	if err := s.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("kv delete failed: %w", err)
	}
	return nil
}

// List returns the sorted keys starting with prefix
func (s *RedisStore) List(ctx context.Context, prefix string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.check(); err != nil {
		return nil, err
	}

	var keys []string
	iter := s.client.Scan(ctx, 0, prefix+"*", scanBatch).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("kv list failed: %w", err)
	}
	sort.Strings(keys)
	return keys, nil
}

// Ping checks the connection
func (s *RedisStore) Ping(ctx context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.check(); err != nil {
		return err
	}
	return s.client.Ping(ctx).Err()
}

// Close releases the connection pool
func (s *RedisStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.client.Close()
}

// GetJSON decodes the value at key into dest
func GetJSON(ctx context.Context, s Store, key string, dest any) error {
	val, err := s.Get(ctx, key)
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(val), dest); err != nil {
		return fmt.Errorf("failed to decode %s: %w", key, err)
	}
	return nil
}

// SetJSON encodes value and stores it at key
func SetJSON(ctx context.Context, s Store, key string, value any, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", key, err)
	}
	return s.Set(ctx, key, string(data), ttl)
}

// ModelKey is the metadata key of one user model
func ModelKey(userID, modelID string) string {
	return "user:" + userID + ":model:" + modelID
}

// ModelPrefix prefixes every model metadata key of a user
func ModelPrefix(userID string) string {
	return "user:" + userID + ":model:"
}

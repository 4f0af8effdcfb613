package redis

// Package redis provides the Redis-backed local key/value store used to
// cache the session token, subject, and profile between process starts.

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// LocalStore implements ports.LocalStore on a Redis client. Keys are
// namespaced with a prefix so several deployments can share one instance.
type LocalStore struct {
	client redis.UniversalClient
	prefix string
}

// NewLocalStore creates a local store with the default "portal:" prefix.
func NewLocalStore(client redis.UniversalClient) *LocalStore {
	return &LocalStore{client: client, prefix: "portal:"}
}

// NewLocalStoreWithPrefix creates a local store with a custom key prefix.
func NewLocalStoreWithPrefix(client redis.UniversalClient, prefix string) *LocalStore {
	return &LocalStore{client: client, prefix: prefix}
}

// Get reads a key. A missing key is reported through ok, not an error.
func (s *LocalStore) Get(ctx context.Context, key string) (string, bool, error) {
	val, err := s.client.Get(ctx, s.prefix+key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("redis get %q: %w", key, err)
	}
	return val, true, nil
}

// Set writes a key without expiry. Cached session state lives until an
// explicit Remove.
func (s *LocalStore) Set(ctx context.Context, key, value string) error {
	if err := s.client.Set(ctx, s.prefix+key, value, 0).Err(); err != nil {
		return fmt.Errorf("redis set %q: %w", key, err)
	}
	return nil
}

// Remove deletes a key. Removing an absent key is not an error.
func (s *LocalStore) Remove(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, s.prefix+key).Err(); err != nil {
		return fmt.Errorf("redis del %q: %w", key, err)
	}
	return nil
}

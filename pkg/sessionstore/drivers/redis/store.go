// Package redis keeps the session in Redis, so several processes on one
// machine (or a kiosk fleet behind one account) can share a sign-in.
package redis

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"

	"github.com/aussiebroadwan/rollcall/pkg/sessionstore"
)

// DefaultPrefix namespaces the session keys.
const DefaultPrefix = "rollcall:session:"

type Options struct {
	Addr     string
	Password string
	DB       int
	Prefix   string
}

type Store struct {
	client *redis.Client
	prefix string
	owned  bool
}

// New connects to Redis using opts and verifies the connection.
func New(ctx context.Context, opts Options) (*Store, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}

	s := NewWithClient(client, opts.Prefix)
	s.owned = true
	return s, nil
}

// NewWithClient wraps an existing client. Close does not close it.
func NewWithClient(client *redis.Client, prefix string) *Store {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &Store{client: client, prefix: prefix}
}

func (s *Store) key(k sessionstore.Key) string {
	return s.prefix + k.String()
}

func (s *Store) Get(ctx context.Context, key sessionstore.Key) (string, error) {
	if err := sessionstore.CheckKey(key); err != nil {
		return "", err
	}

	value, err := s.client.Get(ctx, s.key(key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", sessionstore.ErrNotFound
	}
	if err != nil {
		return "", err
	}
	return value, nil
}

func (s *Store) Set(ctx context.Context, key sessionstore.Key, value string) error {
	if err := sessionstore.CheckKey(key); err != nil {
		return err
	}
	return s.client.Set(ctx, s.key(key), value, 0).Err()
}

func (s *Store) Clear(ctx context.Context, key sessionstore.Key) error {
	if err := sessionstore.CheckKey(key); err != nil {
		return err
	}
	return s.client.Del(ctx, s.key(key)).Err()
}

func (s *Store) Close() error {
	if !s.owned {
		return nil
	}
	return s.client.Close()
}

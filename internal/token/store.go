package token

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrCredentialMissing is returned when no bearer token exists for an
// identity. This is an expected condition: the account either never
// authorized or the token entry expired, and the caller should surface a
// re-authorize signal instead of retrying.
var ErrCredentialMissing = errors.New("no credential for identity")

// Store maps a mail-account identity (its address) to a currently valid
// bearer token. Tokens are written wholesale by the authorization callbacks
// and read on every pipeline run; the store owns no refresh logic.
type Store interface {
	Get(ctx context.Context, identity string) (string, error)
	Set(ctx context.Context, identity, token string) error
}

const keyPrefix = "token:"

// RedisStore is the shared credential store: auth callbacks on the API
// process write tokens, worker processes read them per job.
type RedisStore struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewRedisStore creates a redis-backed store. ttl bounds how long a written
// token stays visible; zero means no expiry.
func NewRedisStore(rdb *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{rdb: rdb, ttl: ttl}
}

func (s *RedisStore) Get(ctx context.Context, identity string) (string, error) {
	val, err := s.rdb.Get(ctx, keyPrefix+identity).Result()
	if err == redis.Nil {
		return "", ErrCredentialMissing
	}
	if err != nil {
		return "", err
	}
	return val, nil
}

func (s *RedisStore) Set(ctx context.Context, identity, token string) error {
	return s.rdb.Set(ctx, keyPrefix+identity, token, s.ttl).Err()
}

// MemoryStore is an in-process Store for tests and local runs.
type MemoryStore struct {
	mu     sync.RWMutex
	tokens map[string]string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{tokens: make(map[string]string)}
}

func (s *MemoryStore) Get(ctx context.Context, identity string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	token, ok := s.tokens[identity]
	if !ok {
		return "", ErrCredentialMissing
	}
	return token, nil
}

func (s *MemoryStore) Set(ctx context.Context, identity, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens[identity] = token
	return nil
}

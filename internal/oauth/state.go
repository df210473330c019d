package oauth

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// StateTTL is how long a login state stays valid
const StateTTL = 10 * time.Minute

// ErrStateNotFound is returned for unknown, expired or reused states
var ErrStateNotFound = errors.New("oauth: state not found or expired")

// StateStore keeps issued login states until their callback consumes them
type StateStore interface {
	Save(ctx context.Context, state, provider string, ttl time.Duration) error
	// Consume returns the provider the state was issued for and deletes it
	Consume(ctx context.Context, state string) (string, error)
	Ping(ctx context.Context) error
}

// NewState returns a random state value
func NewState() string {
	return uuid.NewString()
}

// NewStateStore connects to Redis when redisURL is set and falls back to memory otherwise
func NewStateStore(redisURL string) (StateStore, error) {
	if redisURL == "" {
		return NewMemoryStateStore(), nil
	}
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse REDIS_URL: %w", err)
	}
	log.WithField("addr", opts.Addr).Info("oauth state stored in redis")
	return NewRedisStateStore(redis.NewClient(opts)), nil
}

// RedisStateStore keeps states in Redis so every replica can serve the callback
type RedisStateStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStateStore wraps a Redis client
func NewRedisStateStore(client *redis.Client) *RedisStateStore {
	return &RedisStateStore{client: client, prefix: "studyhub:oauth_state:"}
}

// Save implements StateStore
func (s *RedisStateStore) Save(ctx context.Context, state, provider string, ttl time.Duration) error {
	if err := s.client.Set(ctx, s.prefix+state, provider, ttl).Err(); err != nil {
		return fmt.Errorf("save oauth state: %w", err)
	}
	return nil
}

// Consume implements StateStore
func (s *RedisStateStore) Consume(ctx context.Context, state string) (string, error) {
	provider, err := s.client.GetDel(ctx, s.prefix+state).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrStateNotFound
	}
	if err != nil {
		return "", fmt.Errorf("consume oauth state: %w", err)
	}
	return provider, nil
}

// Ping implements StateStore
func (s *RedisStateStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close releases the Redis connection pool
func (s *RedisStateStore) Close() error {
	return s.client.Close()
}

type memoryState struct {
	provider  string
	expiresAt time.Time
}

// MemoryStateStore is the single-instance fallback
type MemoryStateStore struct {
	mu     sync.Mutex
	states map[string]memoryState
	now    func() time.Time
}

// NewMemoryStateStore creates an empty in-memory store
func NewMemoryStateStore() *MemoryStateStore {
	return &MemoryStateStore{states: map[string]memoryState{}, now: time.Now}
}

// Save implements StateStore
func (s *MemoryStateStore) Save(_ context.Context, state, provider string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.states[state] = memoryState{provider: provider, expiresAt: s.now().Add(ttl)}
	return nil
}

// Consume implements StateStore
func (s *MemoryStateStore) Consume(_ context.Context, state string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.states[state]
	if !ok {
		return "", ErrStateNotFound
	}
	delete(s.states, state)
	if s.now().After(st.expiresAt) {
		return "", ErrStateNotFound
	}
	return st.provider, nil
}

// Ping implements StateStore
func (s *MemoryStateStore) Ping(context.Context) error { return nil }

// Sweep drops expired states and returns how many were removed
func (s *MemoryStateStore) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	removed := 0
	for k, st := range s.states {
		if now.After(st.expiresAt) {
			delete(s.states, k)
			removed++
		}
	}
	return removed
}

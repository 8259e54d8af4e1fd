package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "apply:session:"

// RedisStore keeps sessions as JSON strings with a TTL.
type RedisStore struct {
	Client redis.UniversalClient
}

// NewRedisClient parses url, applies the pool size, and pings the server.
func NewRedisClient(ctx context.Context, url string, poolSize int) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("session: parse redis URL: %w", err)
	}
	if poolSize > 0 {
		opts.PoolSize = poolSize
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("session: redis ping: %w", err)
	}
	return client, nil
}

func (s RedisStore) Load(ctx context.Context, id string) (Session, error) {
	raw, err := s.Client.Get(ctx, keyPrefix+id).Bytes()
	if errors.Is(err, redis.Nil) {
		return Session{}, ErrNotFound
	}
	if err != nil {
		return Session{}, fmt.Errorf("session: load: %w", err)
	}
	var sess Session
	if err := json.Unmarshal(raw, &sess); err != nil {
		return Session{}, fmt.Errorf("session: decode: %w", err)
	}
	return sess, nil
}

func (s RedisStore) Save(ctx context.Context, sess Session, ttl time.Duration) error {
	raw, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("session: encode: %w", err)
	}
	if err := s.Client.Set(ctx, keyPrefix+sess.ID, raw, ttl).Err(); err != nil {
		return fmt.Errorf("session: save: %w", err)
	}
	return nil
}

func (s RedisStore) Delete(ctx context.Context, id string) error {
	n, err := s.Client.Del(ctx, keyPrefix+id).Result()
	if err != nil {
		return fmt.Errorf("session: delete: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// MemoryStore keeps sessions in process memory for local development.
// Expired entries are dropped lazily on Load.
type MemoryStore struct {
	mu   sync.Mutex
	data map[string]memEntry
	Now  func() time.Time
}

type memEntry struct {
	sess    Session
	expires time.Time
}

func (m *MemoryStore) now() time.Time {
	if m.Now != nil {
		return m.Now()
	}
	return time.Now()
}

func (m *MemoryStore) Load(_ context.Context, id string) (Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.data[id]
	if !ok {
		return Session{}, ErrNotFound
	}
	if !m.now().Before(e.expires) {
		delete(m.data, id)
		return Session{}, ErrNotFound
	}
	return e.sess.clone(), nil
}

func (m *MemoryStore) Save(_ context.Context, sess Session, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.data == nil {
		m.data = map[string]memEntry{}
	}
	m.data[sess.ID] = memEntry{sess: sess.clone(), expires: m.now().Add(ttl)}
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.data[id]; !ok {
		return ErrNotFound
	}
	delete(m.data, id)
	return nil
}

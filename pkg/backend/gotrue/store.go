package gotrue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/redis/go-redis/v9"

	"github.com/dmitrymomot/authsync/pkg/backend"
)

// Store keeps the current session. Load returns nil, nil when nothing is
// stored.
type Store interface {
	Load(ctx context.Context, key string) (*backend.Session, error)
	Save(ctx context.Context, key string, s *backend.Session) error
	Delete(ctx context.Context, key string) error
}

// MemoryStore keeps sessions in process memory.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]backend.Session
}

// NewMemoryStore returns an empty in-process store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[string]backend.Session)}
}

func (m *MemoryStore) Load(_ context.Context, key string) (*backend.Session, error) {
	m.mu.RLock()
	s, ok := m.sessions[key]
	m.mu.RUnlock()

	if !ok {
		return nil, nil
	}
	return &s, nil
}

func (m *MemoryStore) Save(_ context.Context, key string, s *backend.Session) error {
	if s == nil {
		return errors.New("gotrue: nil session")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[key] = *s
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, key)
	return nil
}

// DefaultRefreshWindow is how long a stored session outlives its access token
// so the refresh token can still be used.
const DefaultRefreshWindow = 7 * 24 * time.Hour

// RedisStore keeps sessions as JSON values in Redis. Entries expire once the
// access token has expired and the refresh window has passed.
type RedisStore struct {
	db            redis.UniversalClient
	prefix        string
	refreshWindow time.Duration
	clock         clockwork.Clock
}

// RedisStoreOption configures a RedisStore.
type RedisStoreOption func(*RedisStore)

// WithKeyPrefix namespaces stored keys. Default "authsync:".
func WithKeyPrefix(prefix string) RedisStoreOption {
	return func(s *RedisStore) { s.prefix = prefix }
}

// WithRefreshWindow sets how long a session outlives its access token
// expiry in Redis.
func WithRefreshWindow(d time.Duration) RedisStoreOption {
	return func(s *RedisStore) {
		if d >= 0 {
			s.refreshWindow = d
		}
	}
}

// WithStoreClock sets the clock TTLs are computed against.
func WithStoreClock(clock clockwork.Clock) RedisStoreOption {
	return func(s *RedisStore) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// NewRedisStore keeps sessions as JSON values in Redis.
func NewRedisStore(db redis.UniversalClient, opts ...RedisStoreOption) *RedisStore {
	s := &RedisStore{
		db:            db,
		prefix:        "authsync:",
		refreshWindow: DefaultRefreshWindow,
		clock:         clockwork.NewRealClock(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (r *RedisStore) Load(ctx context.Context, key string) (*backend.Session, error) {
	raw, err := r.db.Get(ctx, r.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("gotrue: load session: %w", err)
	}

	var s backend.Session
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("gotrue: decode session: %w", err)
	}
	return &s, nil
}

func (r *RedisStore) Save(ctx context.Context, key string, s *backend.Session) error {
	if s == nil {
		return errors.New("gotrue: nil session")
	}
	raw, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("gotrue: encode session: %w", err)
	}

	// Zero means no expiry in go-redis.
	var ttl time.Duration
	if !s.ExpiresAt.IsZero() {
		ttl = s.ExpiresAt.Sub(r.clock.Now()) + r.refreshWindow
		if ttl <= 0 {
			return r.Delete(ctx, key)
		}
	}

	if err := r.db.Set(ctx, r.prefix+key, raw, ttl).Err(); err != nil {
		return fmt.Errorf("gotrue: save session: %w", err)
	}
	return nil
}

func (r *RedisStore) Delete(ctx context.Context, key string) error {
	if err := r.db.Del(ctx, r.prefix+key).Err(); err != nil {
		return fmt.Errorf("gotrue: delete session: %w", err)
	}
	return nil
}

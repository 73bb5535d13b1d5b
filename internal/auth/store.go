package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gofrs/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/vasiliy-maslov/storefront/internal/apperr"
	"github.com/vasiliy-maslov/storefront/internal/session"
)

var ErrSessionNotFound = errors.New("session not found or expired")

// SessionStore keeps the server side of every issued token.
type SessionStore interface {
	Save(ctx context.Context, s *session.Session) error
	Get(ctx context.Context, id uuid.UUID) (*session.Session, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type redisStore struct {
	rdb redis.Cmdable
}

func NewRedisStore(rdb redis.Cmdable) SessionStore {
	return &redisStore{rdb: rdb}
}

func sessionKey(id uuid.UUID) string {
	return "session:" + id.String()
}

func (r *redisStore) Save(ctx context.Context, s *session.Session) error {
	raw, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("auth: failed to encode session: %w", err)
	}
	ttl := time.Until(s.ExpiresAt)
	if ttl <= 0 {
		return fmt.Errorf("auth: session %s already expired", s.ID)
	}
	if err := r.rdb.Set(ctx, sessionKey(s.ID), raw, ttl).Err(); err != nil {
		return apperr.Remote("auth: failed to store session", err)
	}
	return nil
}

func (r *redisStore) Get(ctx context.Context, id uuid.UUID) (*session.Session, error) {
	raw, err := r.rdb.Get(ctx, sessionKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrSessionNotFound
		}
		return nil, apperr.Remote("auth: failed to load session", err)
	}

	var s session.Session
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("auth: failed to decode session: %w", err)
	}
	return &s, nil
}

func (r *redisStore) Delete(ctx context.Context, id uuid.UUID) error {
	if err := r.rdb.Del(ctx, sessionKey(id)).Err(); err != nil {
		return apperr.Remote("auth: failed to delete session", err)
	}
	return nil
}

// MemoryStore is a process-local SessionStore for tests and single-node runs.
type MemoryStore struct {
	mu       sync.Mutex
	sessions map[uuid.UUID]session.Session
	now      func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[uuid.UUID]session.Session), now: time.Now}
}

func (m *MemoryStore) Save(_ context.Context, s *session.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.ID] = *s
	return nil
}

func (m *MemoryStore) Get(_ context.Context, id uuid.UUID) (*session.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	if !s.ExpiresAt.After(m.now()) {
		delete(m.sessions, id)
		return nil, ErrSessionNotFound
	}
	return &s, nil
}

func (m *MemoryStore) Delete(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
	return nil
}

// Len reports the number of stored sessions.
func (m *MemoryStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rmtechsolution/valentine-backend/services/story-service/models"
)

var (
	ErrSessionNotFound  = errors.New("session not found")
	ErrConcurrentUpdate = errors.New("session was modified concurrently")
)

const maxUpdateRetries = 5

// SessionStore persists wizard sessions.
//
// Update loads the session, applies fn and saves the result atomically with
// respect to other updates of the same session. fn may run more than once
// and must not have side effects outside the session. Returning an error
// from fn aborts the update.
type SessionStore interface {
	Create(ctx context.Context, s *models.Session) error
	Get(ctx context.Context, id string) (*models.Session, error)
	Update(ctx context.Context, id string, fn func(*models.Session) error) (*models.Session, error)
	Delete(ctx context.Context, id string) error
}

// RedisSessionStore keeps sessions as JSON values with a TTL.
type RedisSessionStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisSessionStore(client *redis.Client, ttl time.Duration) *RedisSessionStore {
	return &RedisSessionStore{client: client, ttl: ttl}
}

func (r *RedisSessionStore) getKey(id string) string {
	return fmt.Sprintf("story:session:%s", id)
}

func (r *RedisSessionStore) Create(ctx context.Context, s *models.Session) error {
	data, err := json.Marshal(s)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, r.getKey(s.ID), data, r.ttl).Err()
}

func (r *RedisSessionStore) Get(ctx context.Context, id string) (*models.Session, error) {
	data, err := r.client.Get(ctx, r.getKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, err
	}
	return decodeSession(data)
}

func (r *RedisSessionStore) Update(ctx context.Context, id string, fn func(*models.Session) error) (*models.Session, error) {
	key := r.getKey(id)
	var updated *models.Session

	txf := func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return ErrSessionNotFound
		}
		if err != nil {
			return err
		}
		s, err := decodeSession(data)
		if err != nil {
			return err
		}
		if err := fn(s); err != nil {
			return err
		}
		s.UpdatedAt = time.Now().UTC()
		out, err := json.Marshal(s)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, out, r.ttl)
			return nil
		})
		if err == nil {
			updated = s
		}
		return err
	}

	for i := 0; i < maxUpdateRetries; i++ {
		err := r.client.Watch(ctx, txf, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			return nil, err
		}
		return updated, nil
	}
	return nil, ErrConcurrentUpdate
}

func (r *RedisSessionStore) Delete(ctx context.Context, id string) error {
	return r.client.Del(ctx, r.getKey(id)).Err()
}

// MemorySessionStore is a process-local SessionStore for development and tests.
// Sessions are stored encoded so callers never share state with the store.
type MemorySessionStore struct {
	mu       sync.Mutex
	sessions map[string][]byte
}

func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{sessions: make(map[string][]byte)}
}

func (m *MemorySessionStore) Create(_ context.Context, s *models.Session) error {
	data, err := json.Marshal(s)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.ID] = data
	return nil
}

func (m *MemorySessionStore) Get(_ context.Context, id string) (*models.Session, error) {
	m.mu.Lock()
	data, ok := m.sessions[id]
	m.mu.Unlock()
	if !ok {
		return nil, ErrSessionNotFound
	}
	return decodeSession(data)
}

func (m *MemorySessionStore) Update(_ context.Context, id string, fn func(*models.Session) error) (*models.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	data, ok := m.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	s, err := decodeSession(data)
	if err != nil {
		return nil, err
	}
	if err := fn(s); err != nil {
		return nil, err
	}
	s.UpdatedAt = time.Now().UTC()
	out, err := json.Marshal(s)
	if err != nil {
		return nil, err
	}
	m.sessions[id] = out
	return s, nil
}

func (m *MemorySessionStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
	return nil
}

func decodeSession(data []byte) (*models.Session, error) {
	var s models.Session
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to decode session: %w", err)
	}
	return &s, nil
}

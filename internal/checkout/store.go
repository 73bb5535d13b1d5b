package checkout

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
)

var ErrDraftNotFound = errors.New("checkout draft not found")

type DraftStore interface {
	Get(ctx context.Context, userID uuid.UUID) (*Draft, error)
	Save(ctx context.Context, d *Draft) error
	Delete(ctx context.Context, userID uuid.UUID) error
	// Claim moves the draft from step from to step to and reports whether
	// this caller made the move. Concurrent claims on one draft have a
	// single winner.
	Claim(ctx context.Context, userID uuid.UUID, from, to Step) (bool, error)
}

type redisDraftStore struct {
	rdb redis.UniversalClient
	ttl time.Duration
}

// NewRedisDraftStore keeps drafts for ttl after their last change.
func NewRedisDraftStore(rdb redis.UniversalClient, ttl time.Duration) DraftStore {
	return &redisDraftStore{rdb: rdb, ttl: ttl}
}

func draftKey(userID uuid.UUID) string {
	return "checkout:" + userID.String()
}

func (s *redisDraftStore) Get(ctx context.Context, userID uuid.UUID) (*Draft, error) {
	raw, err := s.rdb.Get(ctx, draftKey(userID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrDraftNotFound
		}
		return nil, apperr.Remote("checkout: failed to load draft", err)
	}

	var d Draft
	if err := json.Unmarshal(raw, &d); err != nil {
		return nil, fmt.Errorf("checkout: failed to decode draft: %w", err)
	}
	return &d, nil
}

func (s *redisDraftStore) Save(ctx context.Context, d *Draft) error {
	d.UpdatedAt = time.Now().UTC()
	raw, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("checkout: failed to encode draft: %w", err)
	}
	if err := s.rdb.Set(ctx, draftKey(d.UserID), raw, s.ttl).Err(); err != nil {
		return apperr.Remote("checkout: failed to store draft", err)
	}
	return nil
}

func (s *redisDraftStore) Delete(ctx context.Context, userID uuid.UUID) error {
	if err := s.rdb.Del(ctx, draftKey(userID)).Err(); err != nil {
		return apperr.Remote("checkout: failed to delete draft", err)
	}
	return nil
}

func (s *redisDraftStore) Claim(ctx context.Context, userID uuid.UUID, from, to Step) (bool, error) {
	key := draftKey(userID)
	claimed := false

	err := s.rdb.Watch(ctx, func(tx *redis.Tx) error {
		raw, err := tx.Get(ctx, key).Bytes()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				return ErrDraftNotFound
			}
			return err
		}

		var d Draft
		if err := json.Unmarshal(raw, &d); err != nil {
			return fmt.Errorf("decode draft: %w", err)
		}
		if d.Step != from {
			return nil
		}

		d.Step, d.LastError = to, ""
		d.UpdatedAt = time.Now().UTC()
		if raw, err = json.Marshal(&d); err != nil {
			return fmt.Errorf("encode draft: %w", err)
		}
		if _, err := tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, raw, s.ttl)
			return nil
		}); err != nil {
			return err
		}
		claimed = true
		return nil
	}, key)

	switch {
	case err == nil:
		return claimed, nil
	case errors.Is(err, redis.TxFailedErr):
		// another writer touched the draft between WATCH and EXEC
		return false, nil
	case errors.Is(err, ErrDraftNotFound):
		return false, err
	default:
		return false, apperr.Remote("checkout: failed to claim draft", err)
	}
}

type memoryDraftStore struct {
	mu     sync.Mutex
	drafts map[uuid.UUID]Draft
}

func NewMemoryDraftStore() DraftStore {
	return &memoryDraftStore{drafts: make(map[uuid.UUID]Draft)}
}

func (s *memoryDraftStore) Get(_ context.Context, userID uuid.UUID) (*Draft, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.drafts[userID]
	if !ok {
		return nil, ErrDraftNotFound
	}
	return &d, nil
}

func (s *memoryDraftStore) Save(_ context.Context, d *Draft) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	d.UpdatedAt = time.Now().UTC()
	s.drafts[d.UserID] = *d
	return nil
}

func (s *memoryDraftStore) Delete(_ context.Context, userID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.drafts, userID)
	return nil
}

func (s *memoryDraftStore) Claim(_ context.Context, userID uuid.UUID, from, to Step) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.drafts[userID]
	if !ok {
		return false, ErrDraftNotFound
	}
	if d.Step != from {
		return false, nil
	}
	d.Step, d.LastError = to, ""
	d.UpdatedAt = time.Now().UTC()
	s.drafts[userID] = d
	return true, nil
}

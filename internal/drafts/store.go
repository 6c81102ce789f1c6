package drafts

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"

	pkgerrors "github.com/angelmondragon/quotation-engine/pkg/errors"
	"github.com/angelmondragon/quotation-engine/pkg/redis"
	"github.com/angelmondragon/quotation-engine/pkg/types"
)

const keyPrefix = "quote-draft:"

// Draft is the unsubmitted editor state persisted between sessions.
type Draft struct {
	RequestID  string                `json:"requestId"`
	Parameters types.QuoteParameters `json:"parameters"`
	LineItems  []types.LineItem      `json:"lineItems"`
	SavedAt    time.Time             `json:"savedAt"`
}

// Store persists drafts keyed by service request.
type Store interface {
	Save(ctx context.Context, requestID string, draft Draft) error
	Load(ctx context.Context, requestID string) (Draft, bool, error)
	Clear(ctx context.Context, requestID string) error
}

// Key returns the storage key for a request's draft.
func Key(requestID string) string {
	return keyPrefix + requestID
}

func checkRequestID(requestID string) error {
	if strings.TrimSpace(requestID) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "request id is required")
	}
	return nil
}

func encode(draft Draft) ([]byte, error) {
	payload, err := json.Marshal(draft)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode draft")
	}
	return payload, nil
}

func decode(payload []byte) (Draft, error) {
	var draft Draft
	if err := json.Unmarshal(payload, &draft); err != nil {
		return Draft{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "decode draft")
	}
	return draft, nil
}

// RedisStore keeps drafts in Redis without expiry.
type RedisStore struct {
	kv redis.KV
}

func NewRedisStore(kv redis.KV) (*RedisStore, error) {
	if kv == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "redis client is required")
	}
	return &RedisStore{kv: kv}, nil
}

func (s *RedisStore) Save(ctx context.Context, requestID string, draft Draft) error {
	if err := checkRequestID(requestID); err != nil {
		return err
	}
	payload, err := encode(draft)
	if err != nil {
		return err
	}
	if err := s.kv.Set(ctx, Key(requestID), payload, 0); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save draft")
	}
	return nil
}

func (s *RedisStore) Load(ctx context.Context, requestID string) (Draft, bool, error) {
	if err := checkRequestID(requestID); err != nil {
		return Draft{}, false, err
	}
	raw, err := s.kv.Get(ctx, Key(requestID))
	if err != nil {
		if redis.IsNil(err) {
			return Draft{}, false, nil
		}
		return Draft{}, false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load draft")
	}
	draft, err := decode([]byte(raw))
	if err != nil {
		return Draft{}, false, err
	}
	return draft, true, nil
}

func (s *RedisStore) Clear(ctx context.Context, requestID string) error {
	if err := checkRequestID(requestID); err != nil {
		return err
	}
	if err := s.kv.Del(ctx, Key(requestID)); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clear draft")
	}
	return nil
}

// MemoryStore keeps serialized drafts in process memory.
type MemoryStore struct {
	mu    sync.RWMutex
	items map[string][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{items: map[string][]byte{}}
}

func (s *MemoryStore) Save(_ context.Context, requestID string, draft Draft) error {
	if err := checkRequestID(requestID); err != nil {
		return err
	}
	payload, err := encode(draft)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.items[Key(requestID)] = payload
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Load(_ context.Context, requestID string) (Draft, bool, error) {
	if err := checkRequestID(requestID); err != nil {
		return Draft{}, false, err
	}
	s.mu.RLock()
	payload, ok := s.items[Key(requestID)]
	s.mu.RUnlock()
	if !ok {
		return Draft{}, false, nil
	}
	draft, err := decode(payload)
	if err != nil {
		return Draft{}, false, err
	}
	return draft, true, nil
}

func (s *MemoryStore) Clear(_ context.Context, requestID string) error {
	if err := checkRequestID(requestID); err != nil {
		return err
	}
	s.mu.Lock()
	delete(s.items, Key(requestID))
	s.mu.Unlock()
	return nil
}

package memory

import (
	"context"
	"encoding/json"
	"fmt"

	"novaerp/internal/core/apperror"
	"novaerp/internal/core/idempotency"
)

var _ idempotency.Store = (*IdempotencyStore)(nil)

type idempotencyRecord struct {
	userID      string
	operation   string
	requestHash string
	status      idempotency.Status
	replay      idempotency.Replay
	updatedAt   int64
}

// IdempotencyStore keeps idempotency keys in the store.
type IdempotencyStore struct {
	store *Store
}

// Idempotency returns the idempotency key store.
func (s *Store) Idempotency() *IdempotencyStore { return &IdempotencyStore{store: s} }

// AcquireKey implements idempotency.Store.
func (i *IdempotencyStore) AcquireKey(_ context.Context, key, userID, operation, requestHash string) (*idempotency.Replay, error) {
	s := i.store
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	rec, ok := s.idempotent[key]
	if !ok {
		s.idempotent[key] = &idempotencyRecord{
			userID:      userID,
			operation:   operation,
			requestHash: requestHash,
			status:      idempotency.StatusPending,
			updatedAt:   now.UnixNano(),
		}
		return nil, nil
	}

	if rec.userID != userID || rec.operation != operation || rec.requestHash != requestHash {
		return nil, apperror.NewIdempotencyMismatch(key)
	}

	switch rec.status {
	case idempotency.StatusSuccess, idempotency.StatusFailed:
		replay := rec.replay
		return &replay, nil
	default:
		if now.UnixNano()-rec.updatedAt > int64(idempotency.StaleAfter) {
			rec.updatedAt = now.UnixNano()
			return nil, nil
		}
		return nil, apperror.NewIdempotencyConflict(key)
	}
}

// CompleteKey implements idempotency.Store.
func (i *IdempotencyStore) CompleteKey(_ context.Context, key string, statusCode int, contentType string, response any) error {
	return i.finish(key, idempotency.StatusSuccess, statusCode, contentType, response)
}

// FailKey implements idempotency.Store.
func (i *IdempotencyStore) FailKey(_ context.Context, key string, statusCode int, contentType string, response any) error {
	return i.finish(key, idempotency.StatusFailed, statusCode, contentType, response)
}

// ReleaseKey implements idempotency.Store.
func (i *IdempotencyStore) ReleaseKey(_ context.Context, key string) error {
	s := i.store
	s.mu.Lock()
	defer s.mu.Unlock()

	if rec, ok := s.idempotent[key]; ok && rec.status == idempotency.StatusPending {
		delete(s.idempotent, key)
	}
	return nil
}

func (i *IdempotencyStore) finish(key string, status idempotency.Status, statusCode int, contentType string, response any) error {
	var body []byte
	if response != nil {
		b, err := json.Marshal(response)
		if err != nil {
			return fmt.Errorf("marshal response: %w", err)
		}
		body = b
	}

	s := i.store
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.idempotent[key]
	if !ok {
		return nil
	}
	rec.status = status
	rec.updatedAt = s.now().UnixNano()
	rec.replay = idempotency.Replay{
		StatusCode:  idempotency.NormalizeStatus(statusCode),
		ContentType: idempotency.NormalizeContentType(contentType),
		Body:        body,
	}
	return nil
}

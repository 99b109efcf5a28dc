package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"novaerp/internal/core/apperror"
	"novaerp/internal/core/idempotency"
)

var _ idempotency.Store = (*IdempotencyStore)(nil)

// IdempotencyStore keeps idempotency keys in sys_idempotency.
type IdempotencyStore struct {
	txManager *TxManager
	ttl       time.Duration
}

// NewIdempotencyStore creates a new idempotency store.
func NewIdempotencyStore(txManager *TxManager, ttl time.Duration) *IdempotencyStore {
	return &IdempotencyStore{txManager: txManager, ttl: ttl}
}

type idempotencyRow struct {
	inserted    bool
	userID      string
	operation   string
	status      idempotency.Status
	requestHash string
	response    []byte
	statusCode  *int
	contentType *string
	updatedAt   time.Time
}

// AcquireKey implements idempotency.Store.
func (s *IdempotencyStore) AcquireKey(ctx context.Context, key, userID, operation, requestHash string) (*idempotency.Replay, error) {
	now := time.Now().UTC()
	q := s.txManager.GetQuerier(ctx)

	// xmax = 0 only for a freshly inserted row.
	var row idempotencyRow
	err := q.QueryRow(ctx, `
		INSERT INTO sys_idempotency (idempotency_key, user_id, operation, status, request_hash, created_at, updated_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $6, $7)
		ON CONFLICT (idempotency_key) DO UPDATE SET
			expires_at = GREATEST(sys_idempotency.expires_at, EXCLUDED.expires_at)
		RETURNING (xmax = 0), user_id, operation, status, request_hash,
		          response, response_status, response_content_type, updated_at
	`, key, userID, operation, idempotency.StatusPending, requestHash, now, now.Add(s.ttl)).Scan(
		&row.inserted, &row.userID, &row.operation, &row.status, &row.requestHash,
		&row.response, &row.statusCode, &row.contentType, &row.updatedAt,
	)
	if err != nil {
		return nil, TranslateError(fmt.Errorf("acquire idempotency key: %w", err))
	}

	if row.inserted {
		return nil, nil
	}

	if row.userID != userID || row.operation != operation || row.requestHash != requestHash {
		return nil, apperror.NewIdempotencyMismatch(key)
	}

	switch row.status {
	case idempotency.StatusSuccess, idempotency.StatusFailed:
		replay := &idempotency.Replay{Body: row.response}
		if row.statusCode != nil {
			replay.StatusCode = *row.statusCode
		}
		if row.contentType != nil {
			replay.ContentType = *row.contentType
		}
		replay.StatusCode = idempotency.NormalizeStatus(replay.StatusCode)
		replay.ContentType = idempotency.NormalizeContentType(replay.ContentType)
		return replay, nil
	}

	if now.Sub(row.updatedAt) <= idempotency.StaleAfter {
		return nil, apperror.NewIdempotencyConflict(key)
	}

	// Reclaim a key abandoned by a crashed request. Only one caller wins.
	tag, err := q.Exec(ctx, `
		UPDATE sys_idempotency SET updated_at = $1
		WHERE idempotency_key = $2 AND status = $3 AND updated_at = $4
	`, now, key, idempotency.StatusPending, row.updatedAt)
	if err != nil {
		return nil, TranslateError(fmt.Errorf("reclaim stale key: %w", err))
	}
	if tag.RowsAffected() == 0 {
		return nil, apperror.NewIdempotencyConflict(key)
	}
	return nil, nil
}

// CompleteKey implements idempotency.Store.
func (s *IdempotencyStore) CompleteKey(ctx context.Context, key string, statusCode int, contentType string, response any) error {
	return s.finish(ctx, key, idempotency.StatusSuccess, statusCode, contentType, response)
}

// FailKey implements idempotency.Store.
func (s *IdempotencyStore) FailKey(ctx context.Context, key string, statusCode int, contentType string, response any) error {
	return s.finish(ctx, key, idempotency.StatusFailed, statusCode, contentType, response)
}

// ReleaseKey implements idempotency.Store.
func (s *IdempotencyStore) ReleaseKey(ctx context.Context, key string) error {
	_, err := s.txManager.GetQuerier(ctx).Exec(ctx,
		`DELETE FROM sys_idempotency WHERE idempotency_key = $1 AND status = $2`,
		key, idempotency.StatusPending)
	if err != nil {
		return TranslateError(fmt.Errorf("release idempotency key: %w", err))
	}
	return nil
}

func (s *IdempotencyStore) finish(ctx context.Context, key string, status idempotency.Status, statusCode int, contentType string, response any) error {
	var body []byte
	if response != nil {
		b, err := json.Marshal(response)
		if err != nil {
			return fmt.Errorf("marshal response: %w", err)
		}
		body = b
	}

	_, err := s.txManager.GetQuerier(ctx).Exec(ctx, `
		UPDATE sys_idempotency
		SET status = $1,
		    response = $2,
		    response_status = $3,
		    response_content_type = $4,
		    updated_at = $5
		WHERE idempotency_key = $6
	`, status, body, statusCode, contentType, time.Now().UTC(), key)
	if err != nil {
		return TranslateError(fmt.Errorf("finish idempotency key: %w", err))
	}
	return nil
}

// CleanupExpired removes expired idempotency records.
func (s *IdempotencyStore) CleanupExpired(ctx context.Context) (int64, error) {
	result, err := s.txManager.GetQuerier(ctx).Exec(ctx,
		`DELETE FROM sys_idempotency WHERE expires_at < $1`, time.Now().UTC())
	if err != nil {
		return 0, TranslateError(err)
	}
	return result.RowsAffected(), nil
}

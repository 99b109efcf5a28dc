// Package idempotency defines the key store behind the Idempotency-Key header.
package idempotency

import (
	"context"
	"time"
)

// Status represents the state of an idempotent operation.
type Status string

const (
	StatusPending Status = "pending"
	StatusSuccess Status = "success"
	StatusFailed  Status = "failed"
)

// StaleAfter is how long a pending key may sit before another request may
// reclaim it (the original request most likely crashed).
const StaleAfter = time.Minute

// DefaultTTL is how long a finished key is kept for replay.
const DefaultTTL = 24 * time.Hour

// Replay is a cached HTTP response returned for a repeated key.
type Replay struct {
	StatusCode  int
	ContentType string
	Body        []byte
}

// Store manages idempotency keys.
type Store interface {
	// AcquireKey returns (nil, nil) when the caller owns the key and should
	// run the operation, a Replay when the operation already finished, and an
	// error when the key is in flight or was issued for a different request.
	AcquireKey(ctx context.Context, key, userID, operation, requestHash string) (*Replay, error)

	// CompleteKey stores the successful response for replay.
	CompleteKey(ctx context.Context, key string, statusCode int, contentType string, response any) error

	// FailKey stores the error response for replay.
	FailKey(ctx context.Context, key string, statusCode int, contentType string, response any) error

	// ReleaseKey forgets a pending key so the request can be retried, used
	// when the operation failed for a transient reason.
	ReleaseKey(ctx context.Context, key string) error
}

// NormalizeStatus defaults a missing stored status to 200.
func NormalizeStatus(status int) int {
	if status == 0 {
		return 200
	}
	return status
}

// NormalizeContentType defaults a missing stored content type to JSON.
func NormalizeContentType(ct string) string {
	if ct == "" {
		return "application/json"
	}
	return ct
}

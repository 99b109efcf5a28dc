package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"novaerp/internal/core/event"
	"novaerp/internal/core/id"
	"novaerp/pkg/logger"
)

// OutboxStatus represents the state of an outbox message.
type OutboxStatus string

const (
	OutboxStatusPending   OutboxStatus = "pending"
	OutboxStatusPublished OutboxStatus = "published"
	OutboxStatusFailed    OutboxStatus = "failed"
)

// MaxOutboxRetries is the number of failed deliveries after which a message
// is marked failed and becomes eligible for the DLQ.
const MaxOutboxRetries = 5

const insertOutboxSQL = `
	INSERT INTO sys_outbox (id, aggregate_type, aggregate_id, event_type, payload, status, created_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7)`

// OutboxMessage represents a message in the transactional outbox.
type OutboxMessage struct {
	ID            id.ID        `db:"id"`
	AggregateType string       `db:"aggregate_type"` // Sale, Product
	AggregateID   id.ID        `db:"aggregate_id"`
	EventType     string       `db:"event_type"` // sale.completed, stock.moved
	Payload       []byte       `db:"payload"`
	Status        OutboxStatus `db:"status"`
	RetryCount    int          `db:"retry_count"`
	LastError     *string      `db:"last_error"`
	NextRetryAt   *time.Time   `db:"next_retry_at"`
	CreatedAt     time.Time    `db:"created_at"`
	PublishedAt   *time.Time   `db:"published_at"`
}

var _ event.Publisher = (*OutboxPublisher)(nil)

// OutboxPublisher writes events to sys_outbox in the caller's transaction.
type OutboxPublisher struct {
	batch *BatchExecutor
}

// NewOutboxPublisher creates a new outbox publisher.
func NewOutboxPublisher(txManager *TxManager) *OutboxPublisher {
	return &OutboxPublisher{batch: NewBatchExecutor(txManager)}
}

// Publish implements event.Publisher. Must be called inside a transaction.
func (p *OutboxPublisher) Publish(ctx context.Context, events ...event.Event) error {
	if len(events) == 0 {
		return nil
	}

	now := time.Now().UTC()
	queries := make([]BatchQuery, 0, len(events))
	for _, e := range events {
		payload, err := json.Marshal(e.Payload)
		if err != nil {
			return fmt.Errorf("marshal %s payload: %w", e.EventType, err)
		}
		queries = append(queries, BatchQuery{
			SQL:  insertOutboxSQL,
			Args: []any{id.New(), e.AggregateType, e.AggregateID, e.EventType, payload, OutboxStatusPending, now},
		})
	}

	if err := p.batch.ExecuteBatch(ctx, queries); err != nil {
		return TranslateError(fmt.Errorf("insert outbox messages: %w", err))
	}
	return nil
}

// OutboxHandler delivers outbox messages to a broker.
type OutboxHandler interface {
	Handle(ctx context.Context, msg *OutboxMessage) error
}

// OutboxRelay reads pending messages and hands them to an OutboxHandler.
type OutboxRelay struct {
	pool      *pgxpool.Pool
	batchSize int
	handler   OutboxHandler
}

// NewOutboxRelay creates a new outbox relay.
func NewOutboxRelay(pool *Pool, batchSize int, handler OutboxHandler) *OutboxRelay {
	if batchSize <= 0 {
		batchSize = 100
	}
	return &OutboxRelay{
		pool:      pool.Pool,
		batchSize: batchSize,
		handler:   handler,
	}
}

// Run polls the outbox every interval until ctx is done.
func (r *OutboxRelay) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		n, err := r.ProcessBatch(ctx)
		if err != nil {
			logger.Error(ctx, "outbox batch failed", "error", err)
		} else if n > 0 {
			logger.Debug(ctx, "outbox batch relayed", "count", n)
		}

		if moved, err := r.MoveToDLQ(ctx); err != nil {
			logger.Error(ctx, "outbox DLQ move failed", "error", err)
		} else if moved > 0 {
			logger.Warn(ctx, "outbox messages moved to DLQ", "count", moved)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// ProcessBatch fetches and delivers pending messages and returns how many
// were delivered. The rows stay locked (SKIP LOCKED) until the batch is done,
// so several relays can run side by side.
func (r *OutboxRelay) ProcessBatch(ctx context.Context) (int, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return 0, TranslateError(fmt.Errorf("begin relay tx: %w", err))
	}
	defer func() { _ = tx.Rollback(context.WithoutCancel(ctx)) }()

	rows, err := tx.Query(ctx, `
		SELECT id, aggregate_type, aggregate_id, event_type, payload, status,
		       retry_count, last_error, next_retry_at, created_at, published_at
		FROM sys_outbox
		WHERE status = $1
		  AND (next_retry_at IS NULL OR next_retry_at <= NOW())
		ORDER BY created_at
		LIMIT $2
		FOR UPDATE SKIP LOCKED
	`, OutboxStatusPending, r.batchSize)
	if err != nil {
		return 0, TranslateError(fmt.Errorf("fetch outbox messages: %w", err))
	}

	var messages []*OutboxMessage
	for rows.Next() {
		var msg OutboxMessage
		if err := rows.Scan(
			&msg.ID, &msg.AggregateType, &msg.AggregateID, &msg.EventType,
			&msg.Payload, &msg.Status, &msg.RetryCount, &msg.LastError,
			&msg.NextRetryAt, &msg.CreatedAt, &msg.PublishedAt,
		); err != nil {
			rows.Close()
			return 0, fmt.Errorf("scan outbox message: %w", err)
		}
		messages = append(messages, &msg)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, fmt.Errorf("iterate outbox messages: %w", err)
	}

	processed := 0
	for _, msg := range messages {
		if err := r.handler.Handle(ctx, msg); err != nil {
			logger.Warn(ctx, "outbox delivery failed",
				"message_id", msg.ID, "event_type", msg.EventType, "retry", msg.RetryCount, "error", err)

			next := time.Now().UTC().Add(retryBackoff(msg.RetryCount))
			if _, uErr := tx.Exec(ctx, `
				UPDATE sys_outbox
				SET retry_count = retry_count + 1,
				    last_error = $1,
				    next_retry_at = $2,
				    status = CASE WHEN retry_count + 1 >= $3 THEN $4 ELSE status END
				WHERE id = $5
			`, err.Error(), next, MaxOutboxRetries, OutboxStatusFailed, msg.ID); uErr != nil {
				return processed, TranslateError(fmt.Errorf("record delivery failure: %w", uErr))
			}
			continue
		}

		if _, err := tx.Exec(ctx,
			`UPDATE sys_outbox SET status = $1, published_at = $2 WHERE id = $3`,
			OutboxStatusPublished, time.Now().UTC(), msg.ID,
		); err != nil {
			return processed, TranslateError(fmt.Errorf("mark published: %w", err))
		}
		processed++
	}

	if err := tx.Commit(context.WithoutCancel(ctx)); err != nil {
		return 0, TranslateError(fmt.Errorf("commit relay tx: %w", err))
	}
	return processed, nil
}

// retryBackoff grows linearly: 1m, 2m, 3m...
func retryBackoff(retryCount int) time.Duration {
	return time.Duration(retryCount+1) * time.Minute
}

// MoveToDLQ moves messages that exhausted their retries to sys_outbox_dlq.
func (r *OutboxRelay) MoveToDLQ(ctx context.Context) (int64, error) {
	result, err := r.pool.Exec(ctx, `
		WITH moved AS (
			DELETE FROM sys_outbox
			WHERE status = $1 AND retry_count >= $2
			RETURNING *
		)
		INSERT INTO sys_outbox_dlq
		SELECT *, NOW() AS failed_at, last_error AS failure_reason FROM moved
	`, OutboxStatusFailed, MaxOutboxRetries)
	if err != nil {
		return 0, TranslateError(fmt.Errorf("move to DLQ: %w", err))
	}
	return result.RowsAffected(), nil
}

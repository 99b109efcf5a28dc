// Package messaging delivers outbox events to Kafka.
package messaging

import (
	"context"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"

	"novaerp/internal/infrastructure/storage/postgres"
)

// Header keys set on every relayed message.
const (
	HeaderEventType     = "event-type"
	HeaderAggregateType = "aggregate-type"
	HeaderMessageID     = "message-id"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

var _ postgres.OutboxHandler = (*KafkaPublisher)(nil)

// KafkaPublisher writes outbox messages to one topic, keyed by aggregate id
// so events of one sale or product stay ordered within a partition.
type KafkaPublisher struct {
	writer       messageWriter
	writeTimeout time.Duration
}

// KafkaConfig configures the producer.
type KafkaConfig struct {
	Brokers      []string
	Topic        string
	WriteTimeout time.Duration
}

// NewKafkaPublisher creates a publisher backed by a kafka.Writer.
func NewKafkaPublisher(cfg KafkaConfig) *KafkaPublisher {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.Hash{},
		BatchSize:    100,
		BatchTimeout: 10 * time.Millisecond,
		RequiredAcks: kafka.RequireAll,
		Compression:  kafka.Snappy,
	}
	return newKafkaPublisher(writer, cfg.WriteTimeout)
}

func newKafkaPublisher(writer messageWriter, timeout time.Duration) *KafkaPublisher {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &KafkaPublisher{writer: writer, writeTimeout: timeout}
}

// Handle implements postgres.OutboxHandler.
func (p *KafkaPublisher) Handle(ctx context.Context, msg *postgres.OutboxMessage) error {
	message := BuildMessage(msg)
	otel.GetTextMapPropagator().Inject(ctx, headerCarrier{headers: &message.Headers})

	ctx, cancel := context.WithTimeout(ctx, p.writeTimeout)
	defer cancel()

	if err := p.writer.WriteMessages(ctx, message); err != nil {
		return fmt.Errorf("write %s to kafka: %w", msg.EventType, err)
	}
	return nil
}

// Close flushes pending writes.
func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// BuildMessage maps an outbox row onto a Kafka message.
func BuildMessage(msg *postgres.OutboxMessage) kafka.Message {
	return kafka.Message{
		Key:   []byte(msg.AggregateID.String()),
		Value: msg.Payload,
		Time:  msg.CreatedAt,
		Headers: []kafka.Header{
			{Key: HeaderEventType, Value: []byte(msg.EventType)},
			{Key: HeaderAggregateType, Value: []byte(msg.AggregateType)},
			{Key: HeaderMessageID, Value: []byte(msg.ID.String())},
		},
	}
}

// headerCarrier adapts Kafka headers to propagation.TextMapCarrier.
type headerCarrier struct {
	headers *[]kafka.Header
}

func (c headerCarrier) Get(key string) string {
	for _, h := range *c.headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}

func (c headerCarrier) Set(key, value string) {
	for i, h := range *c.headers {
		if h.Key == key {
			(*c.headers)[i].Value = []byte(value)
			return
		}
	}
	*c.headers = append(*c.headers, kafka.Header{Key: key, Value: []byte(value)})
}

func (c headerCarrier) Keys() []string {
	keys := make([]string, len(*c.headers))
	for i, h := range *c.headers {
		keys[i] = h.Key
	}
	return keys
}

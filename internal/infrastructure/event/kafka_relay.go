package event

import (
	"context"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/vde76ru/module-sub000/internal/domain/shared"
)

// MessageWriter is the part of kafka.Writer the relay uses
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaRelay publishes outbox entries to a Kafka topic. Messages are keyed
// by aggregate ID so events of one aggregate stay ordered within a partition.
type KafkaRelay struct {
	writer MessageWriter
	logger *zap.Logger
}

// KafkaRelayConfig configures the relay writer
type KafkaRelayConfig struct {
	Brokers      []string
	Topic        string
	ClientID     string
	WriteTimeout time.Duration
}

// NewKafkaRelay creates a relay writing to cfg.Topic
func NewKafkaRelay(cfg KafkaRelayConfig, logger *zap.Logger) *KafkaRelay {
	w := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		WriteTimeout: cfg.WriteTimeout,
		Transport:    &kafka.Transport{ClientID: cfg.ClientID},
	}
	logger.Info("kafka relay initialized",
		zap.String("topic", cfg.Topic),
		zap.Strings("brokers", cfg.Brokers),
	)
	return NewKafkaRelayWithWriter(w, logger)
}

// NewKafkaRelayWithWriter creates a relay over an existing writer
func NewKafkaRelayWithWriter(w MessageWriter, logger *zap.Logger) *KafkaRelay {
	return &KafkaRelay{writer: w, logger: logger}
}

// Forward writes one entry and waits for the broker acknowledgement
func (r *KafkaRelay) Forward(ctx context.Context, entry *shared.OutboxEntry) error {
	msg := kafka.Message{
		Key:   []byte(entry.AggregateID.String()),
		Value: entry.Payload,
		Headers: []kafka.Header{
			{Key: "event_id", Value: []byte(entry.EventID.String())},
			{Key: "event_type", Value: []byte(entry.EventType)},
			{Key: "aggregate_type", Value: []byte(entry.AggregateType)},
			{Key: "tenant_id", Value: []byte(entry.TenantID.String())},
		},
		Time: entry.CreatedAt,
	}
	if err := r.writer.WriteMessages(ctx, msg); err != nil {
		return err
	}
	r.logger.Debug("event relayed",
		zap.String("event_id", entry.EventID.String()),
		zap.String("event_type", entry.EventType),
	)
	return nil
}

// Close flushes and closes the writer
func (r *KafkaRelay) Close() error {
	return r.writer.Close()
}

var _ Relay = (*KafkaRelay)(nil)

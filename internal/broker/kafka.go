package broker

import (
	"context"
	"time"

	"ticketing/internal/models"

	"github.com/segmentio/kafka-go"
)

// MessageWriter is the producing side of the bus. *kafka.Writer satisfies it.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// MessageReader is the consuming side of the bus for one subject and one
// consumer group. *kafka.Reader satisfies it.
type MessageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// NewWriter creates a Kafka writer that returns only once every in-sync
// replica has accepted the message. Topics are set per message.
func NewWriter(brokers []string) *kafka.Writer {
	return &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireAll,
		MaxAttempts:            3,
		WriteTimeout:           10 * time.Second,
		ReadTimeout:            10 * time.Second,
		AllowAutoTopicCreation: true,
	}
}

// NewReader creates a Kafka reader subscribed to subject under the durable
// consumer group queueGroup. A new group starts from the oldest available
// message; an existing group resumes after its last committed offset.
// Offsets are committed synchronously, only through CommitMessages.
func NewReader(brokers []string, subject models.Subject, queueGroup string) *kafka.Reader {
	return kafka.NewReader(kafka.ReaderConfig{
		Brokers:        brokers,
		Topic:          subject.Topic(),
		GroupID:        queueGroup,
		MinBytes:       1,
		MaxBytes:       10e6,
		MaxWait:        500 * time.Millisecond,
		CommitInterval: 0,
		StartOffset:    kafka.FirstOffset,
	})
}

// ReaderFactory opens a reader for a subject under a queue group.
type ReaderFactory func(subject models.Subject, queueGroup string) MessageReader

// KafkaReaders returns a ReaderFactory backed by the given brokers.
func KafkaReaders(brokers []string) ReaderFactory {
	return func(subject models.Subject, queueGroup string) MessageReader {
		return NewReader(brokers, subject, queueGroup)
	}
}

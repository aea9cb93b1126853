package broker

import (
	"context"
	"fmt"
	"time"

	"ticketing/internal/models"
	"ticketing/internal/util"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

const (
	HeaderSubject   = "subject"
	HeaderEventID   = "event_id"
	HeaderTimestamp = "timestamp"
)

type Producer struct {
	writer MessageWriter
	logger *zap.Logger
}

// NewProducer creates a producer over an already constructed writer.
func NewProducer(writer MessageWriter) *Producer {
	return &Producer{
		writer: writer,
		logger: util.GetLogger(),
	}
}

// Send writes body to the subject's topic and returns once the bus accepted
// it. Failures are returned as is; the producer never retries beyond the
// writer's own attempts.
func (p *Producer) Send(ctx context.Context, subject models.Subject, key string, body []byte) error {
	eventID := uuid.New().String()
	msg := kafka.Message{
		Topic: subject.Topic(),
		Key:   []byte(key),
		Value: body,
		Time:  time.Now(),
		Headers: []kafka.Header{
			{Key: HeaderSubject, Value: []byte(subject)},
			{Key: HeaderEventID, Value: []byte(eventID)},
			{Key: HeaderTimestamp, Value: []byte(time.Now().UTC().Format(time.RFC3339Nano))},
		},
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		util.EventsPublishFailedTotal.WithLabelValues(string(subject)).Inc()
		return fmt.Errorf("failed to write message to kafka: %w", err)
	}

	util.EventsPublishedTotal.WithLabelValues(string(subject)).Inc()
	p.logger.Debug("Published event",
		zap.String("subject", string(subject)),
		zap.String("key", key),
		zap.String("event_id", eventID))
	return nil
}

// Close closes the producer
func (p *Producer) Close() error {
	return p.writer.Close()
}

func headerValue(msg kafka.Message, key string) string {
	for _, h := range msg.Headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}

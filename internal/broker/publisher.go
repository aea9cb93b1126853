package broker

import (
	"context"
	"encoding/json"
	"fmt"

	"ticketing/internal/models"
	"ticketing/internal/util"

	"go.opentelemetry.io/otel/attribute"
)

// EventPublisher announces events of a single payload type.
type EventPublisher[E models.Event] interface {
	Publish(ctx context.Context, event E) error
}

// Publisher serializes payloads of type E to JSON and sends them under E's
// subject. Business invariants must hold before Publish is called.
type Publisher[E models.Event] struct {
	producer *Producer
}

// NewPublisher creates a publisher for the payload type E.
func NewPublisher[E models.Event](producer *Producer) *Publisher[E] {
	return &Publisher[E]{producer: producer}
}

// Subject returns the subject E is published under.
func (p *Publisher[E]) Subject() models.Subject {
	var zero E
	return zero.Subject()
}

// Publish returns nil only once the bus has accepted the event.
func (p *Publisher[E]) Publish(ctx context.Context, event E) error {
	subject := p.Subject()
	ctx, span := util.StartSpan(ctx, "Publisher.Publish",
		attribute.String("subject", string(subject)),
		attribute.String("key", event.Key()))
	defer span.End()

	body, err := json.Marshal(event)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to marshal %s event: %w", subject, err)
	}

	if err := p.producer.Send(ctx, subject, event.Key(), body); err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to publish %s event: %w", subject, err)
	}
	return nil
}

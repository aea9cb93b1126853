package broker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"ticketing/internal/models"

	"github.com/segmentio/kafka-go"
)

// ErrAckTimeout is returned by Ack once the ack wait of the delivery has
// elapsed; the message is redelivered instead.
var ErrAckTimeout = errors.New("ack wait elapsed")

// Committer advances a consumer group's durable checkpoint.
type Committer interface {
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
}

// Message is the handle a listener receives with every delivery. The
// checkpoint only moves when Ack succeeds.
type Message struct {
	raw       kafka.Message
	subject   models.Subject
	attempt   int
	deadline  time.Time
	committer Committer

	mu    sync.Mutex
	acked bool
}

// NewMessage wraps a fetched message for delivery attempt attempt, which must
// be acknowledged before deadline.
func NewMessage(raw kafka.Message, subject models.Subject, attempt int, deadline time.Time, committer Committer) *Message {
	return &Message{
		raw:       raw,
		subject:   subject,
		attempt:   attempt,
		deadline:  deadline,
		committer: committer,
	}
}

// Ack acknowledges the message. Repeated calls after a successful ack are
// no-ops.
func (m *Message) Ack(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.acked {
		return nil
	}
	if time.Now().After(m.deadline) {
		return ErrAckTimeout
	}
	if err := m.committer.CommitMessages(ctx, m.raw); err != nil {
		return fmt.Errorf("failed to commit message: %w", err)
	}
	m.acked = true
	return nil
}

// Acked reports whether Ack succeeded.
func (m *Message) Acked() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.acked
}

func (m *Message) Subject() models.Subject { return m.subject }

// Data returns the raw payload bytes.
func (m *Message) Data() []byte { return m.raw.Value }

// Attempt is 1 for the first delivery and increments on every redelivery.
func (m *Message) Attempt() int { return m.attempt }

func (m *Message) Redelivered() bool { return m.attempt > 1 }

// EventID returns the id the publisher stamped on the message, if any.
func (m *Message) EventID() string { return headerValue(m.raw, HeaderEventID) }

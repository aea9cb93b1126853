package broker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"ticketing/internal/models"
	"ticketing/internal/util"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// DefaultAckWait is how long a delivery may stay unacknowledged before it is
// redelivered.
const DefaultAckWait = 5 * time.Second

// ErrDecode marks a payload that could not be parsed into its event type.
var ErrDecode = errors.New("malformed event payload")

// Listener handles one subject, fixed by the payload type E, on behalf of a
// queue group. OnMessage must call msg.Ack once the event has been applied;
// returning an error, or returning without acking, leads to redelivery.
type Listener[E models.Event] interface {
	QueueGroupName() string
	OnMessage(ctx context.Context, data E, msg *Message) error
}

// Runner is a running subscription, independent of its payload type.
type Runner interface {
	Subject() models.Subject
	Run(ctx context.Context) error
	Close() error
}

// DefaultMaxPending bounds how many unacked messages a subscription holds
// before it stops fetching.
const DefaultMaxPending = 1024

type subscriptionOptions struct {
	ackWait    time.Duration
	maxPending int
}

type SubscriptionOption func(*subscriptionOptions)

// WithAckWait overrides DefaultAckWait.
func WithAckWait(d time.Duration) SubscriptionOption {
	return func(o *subscriptionOptions) {
		if d > 0 {
			o.ackWait = d
		}
	}
}

// WithMaxPending overrides DefaultMaxPending.
func WithMaxPending(n int) SubscriptionOption {
	return func(o *subscriptionOptions) {
		if n > 0 {
			o.maxPending = n
		}
	}
}

// Subscription feeds the messages of one subject and queue group to a
// listener, one handler call at a time. New messages are delivered in fetch
// order. A message the listener does not ack is kept pending and redelivered
// ackWait after its previous delivery started, with no upper bound on
// redeliveries, while later messages keep flowing. The consumer group offset
// only advances past a message once it and everything before it are acked.
type Subscription[E models.Event] struct {
	reader     MessageReader
	listener   Listener[E]
	subject    models.Subject
	queueGroup string
	ackWait    time.Duration
	maxPending int
	logger     *zap.Logger
}

// pendingDelivery is a fetched message that has not been acked yet.
type pendingDelivery struct {
	raw     kafka.Message
	attempt int
	due     time.Time
}

// Subscribe opens a reader for E's subject under the listener's queue group.
func Subscribe[E models.Event](readers ReaderFactory, listener Listener[E], opts ...SubscriptionOption) *Subscription[E] {
	var zero E
	return NewSubscription[E](readers(zero.Subject(), listener.QueueGroupName()), listener, opts...)
}

// NewSubscription creates a subscription over an already opened reader.
func NewSubscription[E models.Event](reader MessageReader, listener Listener[E], opts ...SubscriptionOption) *Subscription[E] {
	o := subscriptionOptions{ackWait: DefaultAckWait, maxPending: DefaultMaxPending}
	for _, opt := range opts {
		opt(&o)
	}

	var zero E
	subject := zero.Subject()
	return &Subscription[E]{
		reader:     reader,
		listener:   listener,
		subject:    subject,
		queueGroup: listener.QueueGroupName(),
		ackWait:    o.ackWait,
		maxPending: o.maxPending,
		logger: util.GetLogger().With(
			zap.String("subject", string(subject)),
			zap.String("queue_group", listener.QueueGroupName())),
	}
}

func (s *Subscription[E]) Subject() models.Subject { return s.subject }

// Run consumes until ctx is cancelled.
func (s *Subscription[E]) Run(ctx context.Context) error {
	s.logger.Info("Listening", zap.Duration("ack_wait", s.ackWait))

	ctx, cancel := context.WithCancel(ctx)
	fetched := make(chan kafka.Message)
	fetchDone := make(chan struct{})
	go func() {
		defer close(fetchDone)
		s.fetch(ctx, fetched)
	}()
	defer func() {
		cancel()
		<-fetchDone
	}()

	offsets := newOffsetTracker(s.reader)
	var pending []*pendingDelivery

	timer := time.NewTimer(time.Hour)
	defer timer.Stop()

	for {
		var in <-chan kafka.Message
		if len(pending) < s.maxPending {
			in = fetched
		}

		var due <-chan time.Time
		if next := earliestDue(pending); !next.IsZero() {
			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
			timer.Reset(time.Until(next))
			due = timer.C
		}

		select {
		case <-ctx.Done():
			s.logger.Info("Subscription context cancelled, stopping", zap.Int("pending", len(pending)))
			return nil
		case raw := <-in:
			offsets.track(raw)
			p := &pendingDelivery{raw: raw}
			if !s.attempt(ctx, offsets, p) {
				pending = append(pending, p)
			}
		case <-due:
			pending = s.redeliverDue(ctx, offsets, pending)
		}
	}
}

// fetch pulls messages off the reader and hands them to Run.
func (s *Subscription[E]) fetch(ctx context.Context, out chan<- kafka.Message) {
	for {
		raw, err := s.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			s.logger.Error("Error fetching message", zap.Error(err))
			select {
			case <-ctx.Done():
				return
			case <-time.After(time.Second):
			}
			continue
		}

		select {
		case out <- raw:
		case <-ctx.Done():
			return
		}
	}
}

// redeliverDue retries every pending message whose ack wait has elapsed and
// returns the ones still unacked.
func (s *Subscription[E]) redeliverDue(ctx context.Context, offsets *offsetTracker, pending []*pendingDelivery) []*pendingDelivery {
	remaining := pending[:0]
	for _, p := range pending {
		if ctx.Err() != nil || time.Now().Before(p.due) {
			remaining = append(remaining, p)
			continue
		}
		util.EventsRedeliveredTotal.WithLabelValues(string(s.subject), s.queueGroup).Inc()
		if !s.attempt(ctx, offsets, p) {
			remaining = append(remaining, p)
		}
	}
	for i := len(remaining); i < len(pending); i++ {
		pending[i] = nil
	}
	return remaining
}

func earliestDue(pending []*pendingDelivery) time.Time {
	var next time.Time
	for _, p := range pending {
		if next.IsZero() || p.due.Before(next) {
			next = p.due
		}
	}
	return next
}

// Close closes the underlying reader.
func (s *Subscription[E]) Close() error {
	return s.reader.Close()
}

// attempt starts the next delivery of p and reports whether it was acked.
func (s *Subscription[E]) attempt(ctx context.Context, offsets *offsetTracker, p *pendingDelivery) bool {
	p.attempt++
	started := time.Now()
	p.due = started.Add(s.ackWait)
	return s.deliver(ctx, offsets, p.raw, p.attempt, started)
}

// deliver runs one delivery attempt and reports whether it was acked.
func (s *Subscription[E]) deliver(ctx context.Context, committer Committer, raw kafka.Message, attempt int, start time.Time) bool {
	ctx, span := util.StartSpan(ctx, "Subscription.deliver",
		attribute.String("subject", string(s.subject)),
		attribute.String("queue_group", s.queueGroup),
		attribute.Int("attempt", attempt))
	defer span.End()

	defer func() {
		util.EventHandlerLatency.WithLabelValues(string(s.subject)).Observe(time.Since(start).Seconds())
	}()
	util.EventsReceivedTotal.WithLabelValues(string(s.subject), s.queueGroup).Inc()

	logger := s.logger.With(
		zap.Int("partition", raw.Partition),
		zap.Int64("offset", raw.Offset),
		zap.Int("attempt", attempt))
	logger.Debug("Message received")

	handlerCtx, cancel := context.WithTimeout(ctx, s.ackWait)
	defer cancel()

	data, err := s.decode(raw)
	if err != nil {
		util.EventHandlerFailuresTotal.WithLabelValues(string(s.subject), "decode").Inc()
		span.RecordError(err)
		logger.Error("Failed to decode message", zap.Error(err), zap.ByteString("payload", raw.Value))
		return false
	}

	msg := NewMessage(raw, s.subject, attempt, start.Add(s.ackWait), committer)
	if err := s.listener.OnMessage(handlerCtx, data, msg); err != nil {
		util.EventHandlerFailuresTotal.WithLabelValues(string(s.subject), "handler").Inc()
		span.RecordError(err)
		logger.Warn("Handler failed, message will be redelivered", zap.Error(err))
		return false
	}

	if !msg.Acked() {
		util.EventHandlerFailuresTotal.WithLabelValues(string(s.subject), "not_acked").Inc()
		logger.Warn("Handler returned without acking, message will be redelivered")
		return false
	}

	util.EventsAckedTotal.WithLabelValues(string(s.subject), s.queueGroup).Inc()
	return true
}

func (s *Subscription[E]) decode(raw kafka.Message) (E, error) {
	if subject := headerValue(raw, HeaderSubject); subject != "" && subject != string(s.subject) {
		var zero E
		return zero, fmt.Errorf("%w: subject %q delivered to %q listener", ErrDecode, subject, s.subject)
	}
	return Decode[E](raw.Value)
}

// Decode parses a JSON payload into the event type E.
func Decode[E models.Event](data []byte) (E, error) {
	var event E
	if err := json.Unmarshal(data, &event); err != nil {
		return event, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	return event, nil
}

package worker

import (
	"context"
	"errors"

	"ticketing/internal/broker"
	"ticketing/internal/models"
	"ticketing/internal/store"
	"ticketing/internal/util"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Worker runs a service's subscriptions side by side
type Worker struct {
	name    string
	runners []broker.Runner
	logger  *zap.Logger
}

// NewTicketsWorker subscribes the tickets service to order events
func NewTicketsWorker(
	readers broker.ReaderFactory,
	tickets store.TicketRepository,
	updated broker.EventPublisher[models.TicketUpdatedEvent],
	opts ...broker.SubscriptionOption,
) *Worker {
	return newWorker("tickets",
		broker.Subscribe[models.OrderCreatedEvent](readers, NewOrderCreatedListener(tickets, updated), opts...),
		broker.Subscribe[models.OrderCancelledEvent](readers, NewOrderCancelledListener(tickets, updated), opts...),
	)
}

// NewOrdersWorker subscribes the orders service to ticket events
func NewOrdersWorker(
	readers broker.ReaderFactory,
	tickets store.TicketRepository,
	opts ...broker.SubscriptionOption,
) *Worker {
	return newWorker("orders",
		broker.Subscribe[models.TicketCreatedEvent](readers, NewTicketCreatedListener(tickets), opts...),
		broker.Subscribe[models.TicketUpdatedEvent](readers, NewTicketUpdatedListener(tickets), opts...),
	)
}

func newWorker(name string, runners ...broker.Runner) *Worker {
	return &Worker{name: name, runners: runners, logger: util.GetLogger()}
}

// Start runs every subscription until ctx is cancelled or one fails
func (w *Worker) Start(ctx context.Context) error {
	w.logger.Info("Starting worker", zap.String("worker", w.name), zap.Int("subscriptions", len(w.runners)))

	g, ctx := errgroup.WithContext(ctx)
	for _, r := range w.runners {
		r := r
		g.Go(func() error {
			return r.Run(ctx)
		})
	}
	return g.Wait()
}

// Stop closes every subscription
func (w *Worker) Stop() error {
	w.logger.Info("Stopping worker", zap.String("worker", w.name))

	var errs []error
	for _, r := range w.runners {
		if err := r.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

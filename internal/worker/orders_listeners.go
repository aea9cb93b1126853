package worker

import (
	"context"
	"errors"
	"fmt"

	"ticketing/internal/broker"
	"ticketing/internal/models"
	"ticketing/internal/store"
	"ticketing/internal/util"

	"go.uber.org/zap"
)

// OrdersQueueGroup load-balances ticket events across orders instances.
const OrdersQueueGroup = "orders-service"

// TicketCreatedListener creates the orders service's ticket replica.
type TicketCreatedListener struct {
	tickets store.TicketRepository
	logger  *zap.Logger
}

func NewTicketCreatedListener(tickets store.TicketRepository) *TicketCreatedListener {
	return &TicketCreatedListener{tickets: tickets, logger: util.GetLogger()}
}

func (l *TicketCreatedListener) QueueGroupName() string { return OrdersQueueGroup }

func (l *TicketCreatedListener) OnMessage(ctx context.Context, data models.TicketCreatedEvent, msg *broker.Message) error {
	ticket := &models.Ticket{
		ID:     data.ID,
		Title:  data.Title,
		Price:  data.Price,
		UserID: data.UserID,
	}

	err := l.tickets.InsertTicket(ctx, ticket)
	switch {
	case errors.Is(err, store.ErrConflict):
		// replica exists already, a redelivery after a lost ack
		l.logger.Info("Ticket replica already exists", zap.String("ticket_id", data.ID))
	case err != nil:
		return fmt.Errorf("failed to create ticket replica: %w", err)
	default:
		l.logger.Info("Ticket replica created",
			zap.String("ticket_id", ticket.ID),
			zap.Int64("version", ticket.Version))
	}

	return msg.Ack(ctx)
}

// TicketUpdatedListener applies ticket updates to the replica strictly one
// version at a time.
type TicketUpdatedListener struct {
	tickets store.TicketRepository
	logger  *zap.Logger
}

func NewTicketUpdatedListener(tickets store.TicketRepository) *TicketUpdatedListener {
	return &TicketUpdatedListener{tickets: tickets, logger: util.GetLogger()}
}

func (l *TicketUpdatedListener) QueueGroupName() string { return OrdersQueueGroup }

func (l *TicketUpdatedListener) OnMessage(ctx context.Context, data models.TicketUpdatedEvent, msg *broker.Message) error {
	ticket, err := l.tickets.FindTicketLastVersion(ctx, data.ID, data.Version)
	if errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("%w: ticket %s version %d: %v", ErrStaleEvent, data.ID, data.Version, err)
	}
	if err != nil {
		return err
	}

	ticket.Title = data.Title
	ticket.Price = data.Price
	ticket.OrderID = data.OrderID
	if err := l.tickets.SaveTicket(ctx, ticket); err != nil {
		return fmt.Errorf("failed to update ticket replica: %w", err)
	}

	l.logger.Info("Ticket replica updated",
		zap.String("ticket_id", ticket.ID),
		zap.Int64("version", ticket.Version))

	return msg.Ack(ctx)
}

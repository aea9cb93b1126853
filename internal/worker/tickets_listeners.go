package worker

import (
	"context"
	"fmt"

	"ticketing/internal/broker"
	"ticketing/internal/models"
	"ticketing/internal/store"
	"ticketing/internal/util"

	"go.uber.org/zap"
)

// TicketsQueueGroup load-balances order events across tickets instances.
const TicketsQueueGroup = "tickets-service"

// OrderCreatedListener marks a ticket as held by the new order and announces
// the resulting ticket version.
type OrderCreatedListener struct {
	tickets store.TicketRepository
	updated broker.EventPublisher[models.TicketUpdatedEvent]
	logger  *zap.Logger
}

func NewOrderCreatedListener(tickets store.TicketRepository, updated broker.EventPublisher[models.TicketUpdatedEvent]) *OrderCreatedListener {
	return &OrderCreatedListener{tickets: tickets, updated: updated, logger: util.GetLogger()}
}

func (l *OrderCreatedListener) QueueGroupName() string { return TicketsQueueGroup }

func (l *OrderCreatedListener) OnMessage(ctx context.Context, data models.OrderCreatedEvent, msg *broker.Message) error {
	ticket, err := l.tickets.GetTicketByID(ctx, data.Ticket.ID)
	if err != nil {
		return fmt.Errorf("failed to load ticket for order %s: %w", data.ID, err)
	}

	// A redelivery after a failed publish finds the reservation saved, so the
	// current version is announced again before acking.
	if ticket.OrderID != nil && *ticket.OrderID == data.ID {
		l.logger.Info("Ticket already reserved by order, republishing",
			zap.String("ticket_id", ticket.ID),
			zap.String("order_id", data.ID),
			zap.Int64("version", ticket.Version))
		if err := l.updated.Publish(ctx, models.NewTicketUpdatedEvent(ticket)); err != nil {
			return err
		}
		return msg.Ack(ctx)
	}
	if ticket.IsReserved() {
		l.logger.Warn("Ticket reserved by another order, overwriting",
			zap.String("ticket_id", ticket.ID),
			zap.String("previous_order_id", *ticket.OrderID),
			zap.String("order_id", data.ID))
	}

	orderID := data.ID
	ticket.OrderID = &orderID
	if err := l.tickets.SaveTicket(ctx, ticket); err != nil {
		return fmt.Errorf("failed to reserve ticket: %w", err)
	}

	if err := l.updated.Publish(ctx, models.NewTicketUpdatedEvent(ticket)); err != nil {
		return err
	}

	l.logger.Info("Ticket reserved",
		zap.String("ticket_id", ticket.ID),
		zap.String("order_id", data.ID),
		zap.Int64("version", ticket.Version))

	return msg.Ack(ctx)
}

// OrderCancelledListener releases a ticket held by the cancelled order and
// announces the resulting ticket version.
type OrderCancelledListener struct {
	tickets store.TicketRepository
	updated broker.EventPublisher[models.TicketUpdatedEvent]
	logger  *zap.Logger
}

func NewOrderCancelledListener(tickets store.TicketRepository, updated broker.EventPublisher[models.TicketUpdatedEvent]) *OrderCancelledListener {
	return &OrderCancelledListener{tickets: tickets, updated: updated, logger: util.GetLogger()}
}

func (l *OrderCancelledListener) QueueGroupName() string { return TicketsQueueGroup }

func (l *OrderCancelledListener) OnMessage(ctx context.Context, data models.OrderCancelledEvent, msg *broker.Message) error {
	ticket, err := l.tickets.GetTicketByID(ctx, data.Ticket.ID)
	if err != nil {
		return fmt.Errorf("failed to load ticket for order %s: %w", data.ID, err)
	}

	if ticket.OrderID != nil && *ticket.OrderID != data.ID {
		l.logger.Info("Ticket not held by cancelled order",
			zap.String("ticket_id", ticket.ID),
			zap.String("order_id", data.ID))
		return msg.Ack(ctx)
	}
	// Already released, possibly by an earlier delivery of this event whose
	// publish failed. The event carries no ticket version, so any released
	// ticket that has been updated is announced again; replicas reject the
	// duplicate by version.
	if ticket.OrderID == nil {
		l.logger.Info("Ticket already released",
			zap.String("ticket_id", ticket.ID),
			zap.String("order_id", data.ID),
			zap.Int64("version", ticket.Version))
		if ticket.Version > 0 {
			if err := l.updated.Publish(ctx, models.NewTicketUpdatedEvent(ticket)); err != nil {
				return err
			}
		}
		return msg.Ack(ctx)
	}

	ticket.OrderID = nil
	if err := l.tickets.SaveTicket(ctx, ticket); err != nil {
		return fmt.Errorf("failed to release ticket: %w", err)
	}

	if err := l.updated.Publish(ctx, models.NewTicketUpdatedEvent(ticket)); err != nil {
		return err
	}

	l.logger.Info("Ticket released",
		zap.String("ticket_id", ticket.ID),
		zap.String("order_id", data.ID),
		zap.Int64("version", ticket.Version))

	return msg.Ack(ctx)
}

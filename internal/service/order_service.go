package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ticketing/internal/broker"
	"ticketing/internal/models"
	"ticketing/internal/store"
	"ticketing/internal/util"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// ExpirationScheduler tracks when pending orders expire.
type ExpirationScheduler interface {
	ScheduleExpiration(ctx context.Context, orderID string, at time.Time) error
	RemoveExpiration(ctx context.Context, orderID string) error
}

// OrderService handles order business logic in the orders service
type OrderService struct {
	tickets    store.TicketRepository
	orders     store.OrderRepository
	scheduler  ExpirationScheduler
	created    broker.EventPublisher[models.OrderCreatedEvent]
	cancelled  broker.EventPublisher[models.OrderCancelledEvent]
	expiration time.Duration
	now        func() time.Time
	logger     *zap.Logger
}

// NewOrderService creates a new order service. scheduler may be nil, in which
// case orders never expire on their own.
func NewOrderService(
	tickets store.TicketRepository,
	orders store.OrderRepository,
	scheduler ExpirationScheduler,
	created broker.EventPublisher[models.OrderCreatedEvent],
	cancelled broker.EventPublisher[models.OrderCancelledEvent],
	expiration time.Duration,
) *OrderService {
	return &OrderService{
		tickets:    tickets,
		orders:     orders,
		scheduler:  scheduler,
		created:    created,
		cancelled:  cancelled,
		expiration: expiration,
		now:        time.Now,
		logger:     util.GetLogger(),
	}
}

// OrderDetails is an order together with the ticket it reserves
type OrderDetails struct {
	*models.Order
	Ticket *models.Ticket `json:"ticket"`
}

// CreateOrder reserves ticketID for userID until the expiration window ends
func (s *OrderService) CreateOrder(ctx context.Context, userID, ticketID string) (*models.Order, error) {
	ctx, span := util.StartSpan(ctx, "OrderService.CreateOrder", attribute.String("ticket_id", ticketID))
	defer span.End()

	if ticketID == "" {
		return nil, fmt.Errorf("%w: ticketId is required", ErrValidation)
	}

	ticket, err := s.tickets.GetTicketByID(ctx, ticketID)
	if err != nil {
		util.OrdersRejectedTotal.WithLabelValues("ticket_not_found").Inc()
		return nil, err
	}

	reserved, err := s.orders.IsTicketReserved(ctx, ticket.ID)
	if err != nil {
		return nil, err
	}
	if reserved {
		util.OrdersRejectedTotal.WithLabelValues("reserved").Inc()
		return nil, ErrTicketReserved
	}

	order := &models.Order{
		UserID:      userID,
		Status:      models.OrderStatusCreated,
		ExpiresAt:   s.now().Add(s.expiration).UTC(),
		TicketID:    ticket.ID,
		TicketPrice: ticket.Price,
	}
	if err := s.orders.InsertOrder(ctx, order); err != nil {
		if errors.Is(err, store.ErrConflict) {
			util.OrdersRejectedTotal.WithLabelValues("reserved").Inc()
			return nil, fmt.Errorf("%w: %v", ErrTicketReserved, err)
		}
		return nil, fmt.Errorf("failed to create order: %w", err)
	}

	util.OrdersCreatedTotal.Inc()
	s.logger.Info("Order created",
		zap.String("order_id", order.ID),
		zap.String("ticket_id", order.TicketID),
		zap.Time("expires_at", order.ExpiresAt))

	if s.scheduler != nil {
		if err := s.scheduler.ScheduleExpiration(ctx, order.ID, order.ExpiresAt); err != nil {
			s.logger.Error("Failed to schedule order expiration",
				zap.String("order_id", order.ID),
				zap.Error(err))
		}
	}

	if err := s.created.Publish(ctx, models.NewOrderCreatedEvent(order)); err != nil {
		return nil, err
	}
	return order, nil
}

// CancelOrder cancels an order on behalf of its owner
func (s *OrderService) CancelOrder(ctx context.Context, userID, orderID string) (*models.Order, error) {
	ctx, span := util.StartSpan(ctx, "OrderService.CancelOrder", attribute.String("order_id", orderID))
	defer span.End()

	order, err := s.orders.GetOrderByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.UserID != userID {
		return nil, ErrNotAuthorized
	}

	if err := s.cancel(ctx, order); err != nil {
		return nil, err
	}
	util.OrdersCancelledTotal.Inc()
	return order, nil
}

// ExpireOrder cancels an order whose expiration passed. Orders that already
// completed or were cancelled are left alone.
func (s *OrderService) ExpireOrder(ctx context.Context, orderID string) error {
	ctx, span := util.StartSpan(ctx, "OrderService.ExpireOrder", attribute.String("order_id", orderID))
	defer span.End()

	order, err := s.orders.GetOrderByID(ctx, orderID)
	if errors.Is(err, store.ErrNotFound) {
		s.logger.Warn("Expiring unknown order", zap.String("order_id", orderID))
		return nil
	}
	if err != nil {
		return err
	}
	if order.Status.IsTerminal() {
		return nil
	}

	if err := s.cancel(ctx, order); err != nil {
		return err
	}
	util.OrdersExpiredTotal.Inc()
	s.logger.Info("Order expired", zap.String("order_id", order.ID))
	return nil
}

func (s *OrderService) cancel(ctx context.Context, order *models.Order) error {
	if err := order.TransitionTo(models.OrderStatusCancelled); err != nil {
		return err
	}
	if err := s.orders.SaveOrder(ctx, order); err != nil {
		return fmt.Errorf("failed to cancel order: %w", err)
	}

	s.logger.Info("Order cancelled",
		zap.String("order_id", order.ID),
		zap.Int64("version", order.Version))

	if s.scheduler != nil {
		if err := s.scheduler.RemoveExpiration(ctx, order.ID); err != nil {
			s.logger.Warn("Failed to remove order expiration",
				zap.String("order_id", order.ID),
				zap.Error(err))
		}
	}

	return s.cancelled.Publish(ctx, models.NewOrderCancelledEvent(order))
}

// GetOrder retrieves an order of userID with its ticket
func (s *OrderService) GetOrder(ctx context.Context, userID, orderID string) (*OrderDetails, error) {
	order, err := s.orders.GetOrderByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.UserID != userID {
		return nil, ErrNotAuthorized
	}

	ticket, err := s.tickets.GetTicketByID(ctx, order.TicketID)
	if err != nil {
		return nil, err
	}
	return &OrderDetails{Order: order, Ticket: ticket}, nil
}

// ListOrders retrieves the orders of userID
func (s *OrderService) ListOrders(ctx context.Context, userID string) ([]models.Order, error) {
	return s.orders.ListOrdersByUserID(ctx, userID)
}

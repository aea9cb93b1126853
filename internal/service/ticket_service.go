package service

import (
	"context"
	"fmt"
	"strings"

	"ticketing/internal/broker"
	"ticketing/internal/models"
	"ticketing/internal/store"
	"ticketing/internal/util"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// TicketService handles ticket business logic in the tickets service
type TicketService struct {
	tickets store.TicketRepository
	created broker.EventPublisher[models.TicketCreatedEvent]
	updated broker.EventPublisher[models.TicketUpdatedEvent]
	logger  *zap.Logger
}

// NewTicketService creates a new ticket service
func NewTicketService(
	tickets store.TicketRepository,
	created broker.EventPublisher[models.TicketCreatedEvent],
	updated broker.EventPublisher[models.TicketUpdatedEvent],
) *TicketService {
	return &TicketService{
		tickets: tickets,
		created: created,
		updated: updated,
		logger:  util.GetLogger(),
	}
}

// TicketRequest is the body of ticket create and update requests
type TicketRequest struct {
	Title string          `json:"title"`
	Price decimal.Decimal `json:"price"`
}

func (r *TicketRequest) validate() error {
	r.Title = strings.TrimSpace(r.Title)
	if r.Title == "" {
		return fmt.Errorf("%w: title is required", ErrValidation)
	}
	if !r.Price.IsPositive() {
		return fmt.Errorf("%w: price must be greater than 0", ErrValidation)
	}
	return nil
}

// CreateTicket stores a ticket owned by userID and announces it
func (s *TicketService) CreateTicket(ctx context.Context, userID string, req TicketRequest) (*models.Ticket, error) {
	ctx, span := util.StartSpan(ctx, "TicketService.CreateTicket")
	defer span.End()

	if err := req.validate(); err != nil {
		return nil, err
	}

	ticket := &models.Ticket{
		Title:  req.Title,
		Price:  req.Price,
		UserID: userID,
	}
	if err := s.tickets.InsertTicket(ctx, ticket); err != nil {
		return nil, fmt.Errorf("failed to create ticket: %w", err)
	}

	util.TicketsCreatedTotal.Inc()
	s.logger.Info("Ticket created",
		zap.String("ticket_id", ticket.ID),
		zap.Int64("version", ticket.Version))

	if err := s.created.Publish(ctx, models.NewTicketCreatedEvent(ticket)); err != nil {
		return nil, err
	}
	return ticket, nil
}

// UpdateTicket changes title and price. Only the owner may update, and not
// while an order holds the ticket.
func (s *TicketService) UpdateTicket(ctx context.Context, userID, ticketID string, req TicketRequest) (*models.Ticket, error) {
	ctx, span := util.StartSpan(ctx, "TicketService.UpdateTicket", attribute.String("ticket_id", ticketID))
	defer span.End()

	if err := req.validate(); err != nil {
		return nil, err
	}

	ticket, err := s.tickets.GetTicketByID(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if ticket.UserID != userID {
		return nil, ErrNotAuthorized
	}
	if ticket.IsReserved() {
		return nil, fmt.Errorf("%w: cannot edit a reserved ticket", ErrTicketReserved)
	}

	ticket.Title = req.Title
	ticket.Price = req.Price
	if err := s.tickets.SaveTicket(ctx, ticket); err != nil {
		return nil, fmt.Errorf("failed to update ticket: %w", err)
	}

	util.TicketsUpdatedTotal.Inc()
	s.logger.Info("Ticket updated",
		zap.String("ticket_id", ticket.ID),
		zap.Int64("version", ticket.Version))

	if err := s.updated.Publish(ctx, models.NewTicketUpdatedEvent(ticket)); err != nil {
		return nil, err
	}
	return ticket, nil
}

// GetTicket retrieves a ticket by ID
func (s *TicketService) GetTicket(ctx context.Context, ticketID string) (*models.Ticket, error) {
	return s.tickets.GetTicketByID(ctx, ticketID)
}

// ListTickets lists tickets, optionally only those no order holds
func (s *TicketService) ListTickets(ctx context.Context, onlyAvailable bool) ([]models.Ticket, error) {
	return s.tickets.ListTickets(ctx, onlyAvailable)
}

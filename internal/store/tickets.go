package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"ticketing/internal/models"

	"github.com/google/uuid"
)

const ticketColumns = `id, title, price, user_id, order_id, version, created_at, updated_at`

// InsertTicket stores a new ticket at version 0. A ticket without an id gets a
// fresh one; replicas keep the id of their origin.
func (s *Store) InsertTicket(ctx context.Context, ticket *models.Ticket) error {
	if ticket.ID == "" {
		ticket.ID = uuid.New().String()
	}
	ticket.Version = 0

	query := `
		INSERT INTO tickets (id, title, price, user_id, order_id, version)
		VALUES ($1, $2, $3, $4, $5, 0)
		RETURNING created_at, updated_at`

	err := s.db.QueryRowxContext(ctx, query,
		ticket.ID, ticket.Title, ticket.Price, ticket.UserID, ticket.OrderID,
	).Scan(&ticket.CreatedAt, &ticket.UpdatedAt)
	if isErrorUniqueViolation(err) {
		return fmt.Errorf("%w: ticket %s already exists", ErrConflict, ticket.ID)
	}
	if err != nil {
		return fmt.Errorf("failed to insert ticket: %w", err)
	}
	return nil
}

// SaveTicket writes ticket only if the stored version still equals
// ticket.Version, then advances ticket.Version.
func (s *Store) SaveTicket(ctx context.Context, ticket *models.Ticket) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE tickets
		SET title = $1, price = $2, user_id = $3, order_id = $4, version = version + 1, updated_at = NOW()
		WHERE id = $5 AND version = $6`,
		ticket.Title, ticket.Price, ticket.UserID, ticket.OrderID, ticket.ID, ticket.Version)
	if err != nil {
		return fmt.Errorf("failed to save ticket: %w", err)
	}

	if err := s.checkVersionedWrite(ctx, res, "tickets", ticket.ID, ticket.Version); err != nil {
		return err
	}
	ticket.Version++
	return nil
}

// GetTicketByID retrieves a ticket by ID
func (s *Store) GetTicketByID(ctx context.Context, id string) (*models.Ticket, error) {
	var ticket models.Ticket
	err := s.db.GetContext(ctx, &ticket, "SELECT "+ticketColumns+" FROM tickets WHERE id = $1", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: ticket %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return &ticket, nil
}

func (s *Store) FindTicketLastVersion(ctx context.Context, id string, eventVersion int64) (*models.Ticket, error) {
	var ticket models.Ticket
	err := s.db.GetContext(ctx, &ticket,
		"SELECT "+ticketColumns+" FROM tickets WHERE id = $1 AND version = $2", id, eventVersion-1)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: ticket %s at version %d", ErrNotFound, id, eventVersion-1)
	}
	if err != nil {
		return nil, err
	}
	return &ticket, nil
}

// ListTickets retrieves tickets, oldest first
func (s *Store) ListTickets(ctx context.Context, onlyAvailable bool) ([]models.Ticket, error) {
	query := "SELECT " + ticketColumns + " FROM tickets"
	if onlyAvailable {
		query += " WHERE order_id IS NULL"
	}
	query += " ORDER BY created_at, id"

	tickets := []models.Ticket{}
	if err := s.db.SelectContext(ctx, &tickets, query); err != nil {
		return nil, fmt.Errorf("failed to list tickets: %w", err)
	}
	return tickets, nil
}

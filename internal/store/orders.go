package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"ticketing/internal/models"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/samber/lo"
)

const orderColumns = `id, user_id, status, expires_at, ticket_id, ticket_price, version, created_at, updated_at`

// InsertOrder stores a new order at version 0. It fails with ErrConflict when
// another active order already holds the ticket.
func (s *Store) InsertOrder(ctx context.Context, order *models.Order) error {
	if order.ID == "" {
		order.ID = uuid.New().String()
	}
	order.Version = 0

	query := `
		INSERT INTO orders (id, user_id, status, expires_at, ticket_id, ticket_price, version)
		VALUES ($1, $2, $3, $4, $5, $6, 0)
		RETURNING created_at, updated_at`

	err := s.db.QueryRowxContext(ctx, query,
		order.ID, order.UserID, order.Status, order.ExpiresAt, order.TicketID, order.TicketPrice,
	).Scan(&order.CreatedAt, &order.UpdatedAt)
	if isErrorUniqueViolation(err) {
		return fmt.Errorf("%w: ticket %s is already reserved", ErrConflict, order.TicketID)
	}
	if err != nil {
		return fmt.Errorf("failed to insert order: %w", err)
	}
	return nil
}

// SaveOrder writes order only if the stored version still equals
// order.Version, then advances order.Version.
func (s *Store) SaveOrder(ctx context.Context, order *models.Order) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE orders
		SET status = $1, expires_at = $2, version = version + 1, updated_at = NOW()
		WHERE id = $3 AND version = $4`,
		order.Status, order.ExpiresAt, order.ID, order.Version)
	if isErrorUniqueViolation(err) {
		return fmt.Errorf("%w: ticket %s is already reserved", ErrConflict, order.TicketID)
	}
	if err != nil {
		return fmt.Errorf("failed to save order: %w", err)
	}

	if err := s.checkVersionedWrite(ctx, res, "orders", order.ID, order.Version); err != nil {
		return err
	}
	order.Version++
	return nil
}

// GetOrderByID retrieves an order by ID
func (s *Store) GetOrderByID(ctx context.Context, id string) (*models.Order, error) {
	var order models.Order
	err := s.db.GetContext(ctx, &order, "SELECT "+orderColumns+" FROM orders WHERE id = $1", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: order %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// ListOrdersByUserID retrieves orders for a user, newest first
func (s *Store) ListOrdersByUserID(ctx context.Context, userID string) ([]models.Order, error) {
	orders := []models.Order{}
	err := s.db.SelectContext(ctx, &orders,
		"SELECT "+orderColumns+" FROM orders WHERE user_id = $1 ORDER BY created_at DESC", userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	return orders, nil
}

func (s *Store) IsTicketReserved(ctx context.Context, ticketID string) (bool, error) {
	statuses := lo.Map(models.ActiveOrderStatuses, func(st models.OrderStatus, _ int) string {
		return string(st)
	})

	query, args, err := sqlx.In(
		"SELECT EXISTS(SELECT 1 FROM orders WHERE ticket_id = ? AND status IN (?))", ticketID, statuses)
	if err != nil {
		return false, err
	}

	var reserved bool
	if err := s.db.GetContext(ctx, &reserved, s.db.Rebind(query), args...); err != nil {
		return false, fmt.Errorf("failed to check reservation: %w", err)
	}
	return reserved, nil
}

package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"ticketing/internal/models"
	"ticketing/internal/util"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

// TicketRepository persists tickets under optimistic concurrency control:
// InsertTicket stores version 0, SaveTicket commits only from the version the
// caller read and bumps it by one.
type TicketRepository interface {
	InsertTicket(ctx context.Context, ticket *models.Ticket) error
	SaveTicket(ctx context.Context, ticket *models.Ticket) error
	GetTicketByID(ctx context.Context, id string) (*models.Ticket, error)
	// FindTicketLastVersion returns the ticket only while it is stored at
	// eventVersion-1, the version an event at eventVersion was built on.
	FindTicketLastVersion(ctx context.Context, id string, eventVersion int64) (*models.Ticket, error)
	ListTickets(ctx context.Context, onlyAvailable bool) ([]models.Ticket, error)
}

// OrderRepository persists orders with the same versioning rules as tickets.
type OrderRepository interface {
	InsertOrder(ctx context.Context, order *models.Order) error
	SaveOrder(ctx context.Context, order *models.Order) error
	GetOrderByID(ctx context.Context, id string) (*models.Order, error)
	ListOrdersByUserID(ctx context.Context, userID string) ([]models.Order, error)
	// IsTicketReserved reports whether an order in an active status
	// references the ticket.
	IsTicketReserved(ctx context.Context, ticketID string) (bool, error)
}

type UserRepository interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
}

// Store is the Postgres implementation of every repository.
type Store struct {
	db *sqlx.DB
}

// NewStore creates a new database store
func NewStore(databaseURL string) (*Store, error) {
	db, err := sqlx.Connect("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// Migrate applies a schema made of idempotent statements.
func (s *Store) Migrate(ctx context.Context, schema string) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}
	return nil
}

// checkVersionedWrite turns a conditional UPDATE that touched no row into
// ErrNotFound or ErrConflict.
func (s *Store) checkVersionedWrite(ctx context.Context, res sql.Result, table, id string, version int64) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 1 {
		return nil
	}

	var exists bool
	if err := s.db.GetContext(ctx, &exists,
		"SELECT EXISTS(SELECT 1 FROM "+table+" WHERE id = $1)", id); err != nil {
		return fmt.Errorf("failed to check %s existence: %w", table, err)
	}
	if !exists {
		return fmt.Errorf("%w: %s %s", ErrNotFound, table, id)
	}

	util.VersionConflictsTotal.WithLabelValues(table).Inc()
	return fmt.Errorf("%w: %s %s is no longer at version %d", ErrConflict, table, id, version)
}

// Ping checks the database connection
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

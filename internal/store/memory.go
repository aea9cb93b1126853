package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"ticketing/internal/models"
	"ticketing/internal/util"

	"github.com/google/uuid"
	"github.com/samber/lo"
)

// MemoryStore keeps every repository in process memory with the same
// versioning and uniqueness rules as Store. Used by tests and by
// DATABASE_DRIVER=memory.
type MemoryStore struct {
	mu      sync.RWMutex
	tickets map[string]models.Ticket
	orders  map[string]models.Order
	users   map[string]models.User
	now     func() time.Time
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		tickets: make(map[string]models.Ticket),
		orders:  make(map[string]models.Order),
		users:   make(map[string]models.User),
		now:     time.Now,
	}
}

func cloneTicket(t models.Ticket) models.Ticket {
	if t.OrderID != nil {
		orderID := *t.OrderID
		t.OrderID = &orderID
	}
	return t
}

func (m *MemoryStore) InsertTicket(ctx context.Context, ticket *models.Ticket) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if ticket.ID == "" {
		ticket.ID = uuid.New().String()
	}
	if _, ok := m.tickets[ticket.ID]; ok {
		return fmt.Errorf("%w: ticket %s already exists", ErrConflict, ticket.ID)
	}

	now := m.now()
	ticket.Version = 0
	ticket.CreatedAt = now
	ticket.UpdatedAt = now
	m.tickets[ticket.ID] = cloneTicket(*ticket)
	return nil
}

func (m *MemoryStore) SaveTicket(ctx context.Context, ticket *models.Ticket) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored, ok := m.tickets[ticket.ID]
	if !ok {
		return fmt.Errorf("%w: tickets %s", ErrNotFound, ticket.ID)
	}
	if stored.Version != ticket.Version {
		util.VersionConflictsTotal.WithLabelValues("tickets").Inc()
		return fmt.Errorf("%w: tickets %s is no longer at version %d", ErrConflict, ticket.ID, ticket.Version)
	}

	ticket.Version++
	ticket.CreatedAt = stored.CreatedAt
	ticket.UpdatedAt = m.now()
	m.tickets[ticket.ID] = cloneTicket(*ticket)
	return nil
}

func (m *MemoryStore) GetTicketByID(ctx context.Context, id string) (*models.Ticket, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	stored, ok := m.tickets[id]
	if !ok {
		return nil, fmt.Errorf("%w: ticket %s", ErrNotFound, id)
	}
	ticket := cloneTicket(stored)
	return &ticket, nil
}

func (m *MemoryStore) FindTicketLastVersion(ctx context.Context, id string, eventVersion int64) (*models.Ticket, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	stored, ok := m.tickets[id]
	if !ok || stored.Version != eventVersion-1 {
		return nil, fmt.Errorf("%w: ticket %s at version %d", ErrNotFound, id, eventVersion-1)
	}
	ticket := cloneTicket(stored)
	return &ticket, nil
}

func (m *MemoryStore) ListTickets(ctx context.Context, onlyAvailable bool) ([]models.Ticket, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	tickets := make([]models.Ticket, 0, len(m.tickets))
	for _, t := range m.tickets {
		if onlyAvailable && t.IsReserved() {
			continue
		}
		tickets = append(tickets, cloneTicket(t))
	}
	sort.Slice(tickets, func(i, j int) bool {
		if tickets[i].CreatedAt.Equal(tickets[j].CreatedAt) {
			return tickets[i].ID < tickets[j].ID
		}
		return tickets[i].CreatedAt.Before(tickets[j].CreatedAt)
	})
	return tickets, nil
}

// ticketHeldLocked reports whether an active order other than exceptID holds
// ticketID. Callers hold m.mu.
func (m *MemoryStore) ticketHeldLocked(ticketID, exceptID string) bool {
	return lo.SomeBy(lo.Values(m.orders), func(o models.Order) bool {
		return o.ID != exceptID && o.TicketID == ticketID && o.Status.IsActive()
	})
}

func (m *MemoryStore) InsertOrder(ctx context.Context, order *models.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if order.ID == "" {
		order.ID = uuid.New().String()
	}
	if _, ok := m.orders[order.ID]; ok {
		return fmt.Errorf("%w: order %s already exists", ErrConflict, order.ID)
	}
	if order.Status.IsActive() && m.ticketHeldLocked(order.TicketID, order.ID) {
		return fmt.Errorf("%w: ticket %s is already reserved", ErrConflict, order.TicketID)
	}

	now := m.now()
	order.Version = 0
	order.CreatedAt = now
	order.UpdatedAt = now
	m.orders[order.ID] = *order
	return nil
}

func (m *MemoryStore) SaveOrder(ctx context.Context, order *models.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored, ok := m.orders[order.ID]
	if !ok {
		return fmt.Errorf("%w: orders %s", ErrNotFound, order.ID)
	}
	if stored.Version != order.Version {
		util.VersionConflictsTotal.WithLabelValues("orders").Inc()
		return fmt.Errorf("%w: orders %s is no longer at version %d", ErrConflict, order.ID, order.Version)
	}
	if order.Status.IsActive() && m.ticketHeldLocked(stored.TicketID, order.ID) {
		return fmt.Errorf("%w: ticket %s is already reserved", ErrConflict, stored.TicketID)
	}

	// only status and expiry are mutable
	stored.Status = order.Status
	stored.ExpiresAt = order.ExpiresAt
	stored.Version++
	stored.UpdatedAt = m.now()
	m.orders[order.ID] = stored

	order.Version = stored.Version
	order.UpdatedAt = stored.UpdatedAt
	return nil
}

func (m *MemoryStore) GetOrderByID(ctx context.Context, id string) (*models.Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	stored, ok := m.orders[id]
	if !ok {
		return nil, fmt.Errorf("%w: order %s", ErrNotFound, id)
	}
	return &stored, nil
}

func (m *MemoryStore) ListOrdersByUserID(ctx context.Context, userID string) ([]models.Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	orders := lo.Filter(lo.Values(m.orders), func(o models.Order, _ int) bool {
		return o.UserID == userID
	})
	sort.Slice(orders, func(i, j int) bool {
		if orders[i].CreatedAt.Equal(orders[j].CreatedAt) {
			return orders[i].ID > orders[j].ID
		}
		return orders[i].CreatedAt.After(orders[j].CreatedAt)
	})
	return orders, nil
}

func (m *MemoryStore) IsTicketReserved(ctx context.Context, ticketID string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.ticketHeldLocked(ticketID, ""), nil
}

func (m *MemoryStore) CreateUser(ctx context.Context, user *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.users[user.Email]; ok {
		return fmt.Errorf("%w: email %s in use", ErrConflict, user.Email)
	}
	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	user.CreatedAt = m.now()
	m.users[user.Email] = *user
	return nil
}

func (m *MemoryStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	stored, ok := m.users[email]
	if !ok {
		return nil, fmt.Errorf("%w: user %s", ErrNotFound, email)
	}
	return &stored, nil
}

var (
	_ TicketRepository = (*MemoryStore)(nil)
	_ OrderRepository  = (*MemoryStore)(nil)
	_ UserRepository   = (*MemoryStore)(nil)
	_ TicketRepository = (*Store)(nil)
	_ OrderRepository  = (*Store)(nil)
	_ UserRepository   = (*Store)(nil)
)

package store

import (
	"context"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"ticketing/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type repositories interface {
	TicketRepository
	OrderRepository
	UserRepository
}

// backends returns every repository implementation available to the test.
// Postgres runs only when TEST_DATABASE_URL points at a scratch database.
func backends(t *testing.T) map[string]func(t *testing.T) repositories {
	all := map[string]func(t *testing.T) repositories{
		"memory": func(t *testing.T) repositories { return NewMemoryStore() },
	}

	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		return all
	}

	all["postgres"] = func(t *testing.T) repositories {
		s, err := NewStore(url)
		require.NoError(t, err)
		t.Cleanup(func() { s.Close() })

		ctx := context.Background()
		require.NoError(t, s.Migrate(ctx, OrdersSchema))
		require.NoError(t, s.Migrate(ctx, UsersSchema))
		_, err = s.db.ExecContext(ctx, "TRUNCATE orders, tickets, users")
		require.NoError(t, err)
		return s
	}
	return all
}

func forEachBackend(t *testing.T, fn func(t *testing.T, repo repositories)) {
	for name, open := range backends(t) {
		t.Run(name, func(t *testing.T) {
			fn(t, open(t))
		})
	}
}

func newTicket(id string) *models.Ticket {
	return &models.Ticket{ID: id, Title: "concert", Price: decimal.NewFromInt(20), UserID: "u1"}
}

func TestInsertTicketStartsAtVersionZero(t *testing.T) {
	forEachBackend(t, func(t *testing.T, repo repositories) {
		ctx := context.Background()
		ticket := &models.Ticket{Title: "concert", Price: decimal.NewFromInt(20), UserID: "u1", Version: 7}

		require.NoError(t, repo.InsertTicket(ctx, ticket))
		assert.NotEmpty(t, ticket.ID)
		assert.Equal(t, int64(0), ticket.Version)

		stored, err := repo.GetTicketByID(ctx, ticket.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(0), stored.Version)
		assert.True(t, stored.Price.Equal(decimal.NewFromInt(20)))
		assert.Nil(t, stored.OrderID)
	})
}

func TestInsertTicketDuplicateID(t *testing.T) {
	forEachBackend(t, func(t *testing.T, repo repositories) {
		ctx := context.Background()
		require.NoError(t, repo.InsertTicket(ctx, newTicket("T1")))

		err := repo.InsertTicket(ctx, newTicket("T1"))
		assert.ErrorIs(t, err, ErrConflict)
	})
}

func TestSaveTicketIncrementsVersion(t *testing.T) {
	forEachBackend(t, func(t *testing.T, repo repositories) {
		ctx := context.Background()
		ticket := newTicket("T1")
		require.NoError(t, repo.InsertTicket(ctx, ticket))

		orderID := "O1"
		ticket.OrderID = &orderID
		require.NoError(t, repo.SaveTicket(ctx, ticket))
		assert.Equal(t, int64(1), ticket.Version)

		ticket.Title = "opera"
		require.NoError(t, repo.SaveTicket(ctx, ticket))
		assert.Equal(t, int64(2), ticket.Version)

		stored, err := repo.GetTicketByID(ctx, "T1")
		require.NoError(t, err)
		assert.Equal(t, int64(2), stored.Version)
		assert.Equal(t, "opera", stored.Title)
		require.NotNil(t, stored.OrderID)
		assert.Equal(t, "O1", *stored.OrderID)
	})
}

func TestSaveTicketStaleVersionConflicts(t *testing.T) {
	forEachBackend(t, func(t *testing.T, repo repositories) {
		ctx := context.Background()
		require.NoError(t, repo.InsertTicket(ctx, newTicket("T1")))

		first, err := repo.GetTicketByID(ctx, "T1")
		require.NoError(t, err)
		second, err := repo.GetTicketByID(ctx, "T1")
		require.NoError(t, err)

		first.Title = "first"
		require.NoError(t, repo.SaveTicket(ctx, first))

		second.Title = "second"
		err = repo.SaveTicket(ctx, second)
		assert.ErrorIs(t, err, ErrConflict)
		assert.Equal(t, int64(0), second.Version)

		stored, err := repo.GetTicketByID(ctx, "T1")
		require.NoError(t, err)
		assert.Equal(t, "first", stored.Title)
		assert.Equal(t, int64(1), stored.Version)
	})
}

func TestSaveTicketMissing(t *testing.T) {
	forEachBackend(t, func(t *testing.T, repo repositories) {
		err := repo.SaveTicket(context.Background(), newTicket("missing"))
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestConcurrentSavesOnlyOneWins(t *testing.T) {
	forEachBackend(t, func(t *testing.T, repo repositories) {
		ctx := context.Background()
		require.NoError(t, repo.InsertTicket(ctx, newTicket("T1")))

		const writers = 8
		var (
			wg        sync.WaitGroup
			wins      atomic.Int32
			conflicts atomic.Int32
		)
		for i := 0; i < writers; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				ticket := newTicket("T1")
				err := repo.SaveTicket(ctx, ticket)
				switch {
				case err == nil:
					wins.Add(1)
				case assert.ErrorIs(t, err, ErrConflict):
					conflicts.Add(1)
				}
			}()
		}
		wg.Wait()

		assert.Equal(t, int32(1), wins.Load())
		assert.Equal(t, int32(writers-1), conflicts.Load())
	})
}

func TestFindTicketLastVersion(t *testing.T) {
	forEachBackend(t, func(t *testing.T, repo repositories) {
		ctx := context.Background()
		ticket := newTicket("T1")
		require.NoError(t, repo.InsertTicket(ctx, ticket))
		require.NoError(t, repo.SaveTicket(ctx, ticket))
		require.NoError(t, repo.SaveTicket(ctx, ticket))
		// stored at version 2

		found, err := repo.FindTicketLastVersion(ctx, "T1", 3)
		require.NoError(t, err)
		assert.Equal(t, int64(2), found.Version)

		_, err = repo.FindTicketLastVersion(ctx, "T1", 2)
		assert.ErrorIs(t, err, ErrNotFound, "already applied")

		_, err = repo.FindTicketLastVersion(ctx, "T1", 5)
		assert.ErrorIs(t, err, ErrNotFound, "out of order")

		_, err = repo.FindTicketLastVersion(ctx, "unknown", 1)
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestListTicketsOnlyAvailable(t *testing.T) {
	forEachBackend(t, func(t *testing.T, repo repositories) {
		ctx := context.Background()
		free := newTicket("T1")
		held := newTicket("T2")
		require.NoError(t, repo.InsertTicket(ctx, free))
		require.NoError(t, repo.InsertTicket(ctx, held))

		orderID := "O1"
		held.OrderID = &orderID
		require.NoError(t, repo.SaveTicket(ctx, held))

		all, err := repo.ListTickets(ctx, false)
		require.NoError(t, err)
		assert.Len(t, all, 2)

		available, err := repo.ListTickets(ctx, true)
		require.NoError(t, err)
		require.Len(t, available, 1)
		assert.Equal(t, "T1", available[0].ID)
	})
}

func newOrder(ticketID, userID string) *models.Order {
	return &models.Order{
		UserID:      userID,
		Status:      models.OrderStatusCreated,
		ExpiresAt:   time.Now().Add(15 * time.Minute).UTC().Truncate(time.Second),
		TicketID:    ticketID,
		TicketPrice: decimal.NewFromInt(20),
	}
}

func TestInsertOrderReservesTicket(t *testing.T) {
	forEachBackend(t, func(t *testing.T, repo repositories) {
		ctx := context.Background()
		require.NoError(t, repo.InsertTicket(ctx, newTicket("T1")))

		reserved, err := repo.IsTicketReserved(ctx, "T1")
		require.NoError(t, err)
		assert.False(t, reserved)

		order := newOrder("T1", "u2")
		require.NoError(t, repo.InsertOrder(ctx, order))
		assert.NotEmpty(t, order.ID)
		assert.Equal(t, int64(0), order.Version)

		reserved, err = repo.IsTicketReserved(ctx, "T1")
		require.NoError(t, err)
		assert.True(t, reserved)

		err = repo.InsertOrder(ctx, newOrder("T1", "u3"))
		assert.ErrorIs(t, err, ErrConflict)
	})
}

func TestCancelledOrderReleasesTicket(t *testing.T) {
	forEachBackend(t, func(t *testing.T, repo repositories) {
		ctx := context.Background()
		require.NoError(t, repo.InsertTicket(ctx, newTicket("T1")))

		order := newOrder("T1", "u2")
		require.NoError(t, repo.InsertOrder(ctx, order))

		require.NoError(t, order.TransitionTo(models.OrderStatusCancelled))
		require.NoError(t, repo.SaveOrder(ctx, order))
		assert.Equal(t, int64(1), order.Version)

		reserved, err := repo.IsTicketReserved(ctx, "T1")
		require.NoError(t, err)
		assert.False(t, reserved)

		require.NoError(t, repo.InsertOrder(ctx, newOrder("T1", "u3")))
	})
}

func TestSaveOrderStaleVersionConflicts(t *testing.T) {
	forEachBackend(t, func(t *testing.T, repo repositories) {
		ctx := context.Background()
		require.NoError(t, repo.InsertTicket(ctx, newTicket("T1")))
		order := newOrder("T1", "u2")
		require.NoError(t, repo.InsertOrder(ctx, order))

		stale := *order
		order.Status = models.OrderStatusCancelled
		require.NoError(t, repo.SaveOrder(ctx, order))

		stale.Status = models.OrderStatusAwaitingPayment
		err := repo.SaveOrder(ctx, &stale)
		assert.ErrorIs(t, err, ErrConflict)

		stored, err := repo.GetOrderByID(ctx, order.ID)
		require.NoError(t, err)
		assert.Equal(t, models.OrderStatusCancelled, stored.Status)
	})
}

func TestListOrdersByUserID(t *testing.T) {
	forEachBackend(t, func(t *testing.T, repo repositories) {
		ctx := context.Background()
		require.NoError(t, repo.InsertTicket(ctx, newTicket("T1")))
		require.NoError(t, repo.InsertTicket(ctx, newTicket("T2")))
		require.NoError(t, repo.InsertOrder(ctx, newOrder("T1", "u2")))
		require.NoError(t, repo.InsertOrder(ctx, newOrder("T2", "u3")))

		orders, err := repo.ListOrdersByUserID(ctx, "u2")
		require.NoError(t, err)
		require.Len(t, orders, 1)
		assert.Equal(t, "T1", orders[0].TicketID)

		_, err = repo.GetOrderByID(ctx, "missing")
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestCreateUserUniqueEmail(t *testing.T) {
	forEachBackend(t, func(t *testing.T, repo repositories) {
		ctx := context.Background()
		user := &models.User{Email: "a@b.c", PasswordHash: "hash"}
		require.NoError(t, repo.CreateUser(ctx, user))
		assert.NotEmpty(t, user.ID)

		err := repo.CreateUser(ctx, &models.User{Email: "a@b.c", PasswordHash: "other"})
		assert.ErrorIs(t, err, ErrConflict)

		found, err := repo.GetUserByEmail(ctx, "a@b.c")
		require.NoError(t, err)
		assert.Equal(t, user.ID, found.ID)
		assert.Equal(t, "hash", found.PasswordHash)

		_, err = repo.GetUserByEmail(ctx, "x@y.z")
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestMemoryStoreReturnsCopies(t *testing.T) {
	repo := NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, repo.InsertTicket(ctx, newTicket("T1")))

	got, err := repo.GetTicketByID(ctx, "T1")
	require.NoError(t, err)
	orderID := "O1"
	got.OrderID = &orderID
	got.Title = "mutated"

	again, err := repo.GetTicketByID(ctx, "T1")
	require.NoError(t, err)
	assert.Equal(t, "concert", again.Title)
	assert.Nil(t, again.OrderID)
}

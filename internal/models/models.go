package models

import (
	"errors"
	"fmt"
	"time"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"
)

func init() {
	// prices travel as JSON numbers on the bus and over HTTP
	decimal.MarshalJSONWithoutQuotes = true
}

// Ticket is owned by the tickets service; the orders service keeps a replica.
// OrderID is set while an order holds the ticket.
type Ticket struct {
	ID        string          `db:"id" json:"id"`
	Title     string          `db:"title" json:"title"`
	Price     decimal.Decimal `db:"price" json:"price"`
	UserID    string          `db:"user_id" json:"userId"`
	OrderID   *string         `db:"order_id" json:"orderId,omitempty"`
	Version   int64           `db:"version" json:"version"`
	CreatedAt time.Time       `db:"created_at" json:"-"`
	UpdatedAt time.Time       `db:"updated_at" json:"-"`
}

// IsReserved reports whether an order currently holds the ticket.
func (t *Ticket) IsReserved() bool {
	return t.OrderID != nil
}

// OrderStatus values
type OrderStatus string

const (
	OrderStatusCreated         OrderStatus = "created"
	OrderStatusAwaitingPayment OrderStatus = "awaiting:payment"
	OrderStatusComplete        OrderStatus = "complete"
	OrderStatusCancelled       OrderStatus = "cancelled"
)

// ActiveOrderStatuses are the statuses in which an order reserves its ticket.
var ActiveOrderStatuses = []OrderStatus{
	OrderStatusCreated,
	OrderStatusAwaitingPayment,
	OrderStatusComplete,
}

var ErrInvalidTransition = errors.New("invalid order status transition")

var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusCreated:         {OrderStatusAwaitingPayment, OrderStatusCancelled},
	OrderStatusAwaitingPayment: {OrderStatusComplete, OrderStatusCancelled},
}

// IsTerminal reports whether no transition out of s exists.
func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusComplete || s == OrderStatusCancelled
}

// IsActive reports whether an order in status s reserves its ticket.
func (s OrderStatus) IsActive() bool {
	return lo.Contains(ActiveOrderStatuses, s)
}

// Order is a purchase attempt on a single ticket.
type Order struct {
	ID          string          `db:"id" json:"id"`
	UserID      string          `db:"user_id" json:"userId"`
	Status      OrderStatus     `db:"status" json:"status"`
	ExpiresAt   time.Time       `db:"expires_at" json:"expiresAt"`
	TicketID    string          `db:"ticket_id" json:"ticketId"`
	TicketPrice decimal.Decimal `db:"ticket_price" json:"ticketPrice"`
	Version     int64           `db:"version" json:"version"`
	CreatedAt   time.Time       `db:"created_at" json:"-"`
	UpdatedAt   time.Time       `db:"updated_at" json:"-"`
}

// TransitionTo moves the order to status next, rejecting moves out of terminal
// statuses and moves the status machine does not allow.
func (o *Order) TransitionTo(next OrderStatus) error {
	if !lo.Contains(orderTransitions[o.Status], next) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, o.Status, next)
	}
	o.Status = next
	return nil
}

// User is an account of the auth service.
type User struct {
	ID           string    `db:"id"`
	Email        string    `db:"email"`
	PasswordHash string    `db:"password_hash"`
	CreatedAt    time.Time `db:"created_at"`
}

// UserView is the public shape of a user; it never carries the password hash.
type UserView struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

func (u *User) PublicView() UserView {
	return UserView{ID: u.ID, Email: u.Email}
}

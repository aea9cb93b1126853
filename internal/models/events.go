package models

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Subject is a bus routing key naming an event kind.
type Subject string

const (
	SubjectTicketCreated  Subject = "ticket:created"
	SubjectTicketUpdated  Subject = "ticket:updated"
	SubjectOrderCreated   Subject = "order:created"
	SubjectOrderCancelled Subject = "order:cancelled"
)

// Subjects lists every subject known to the system.
var Subjects = []Subject{
	SubjectTicketCreated,
	SubjectTicketUpdated,
	SubjectOrderCreated,
	SubjectOrderCancelled,
}

// Topic returns the Kafka topic carrying the subject. Topic names may not
// contain ':' so it is replaced with '.'.
func (s Subject) Topic() string {
	return strings.ReplaceAll(string(s), ":", ".")
}

// Event is implemented by every payload type. Each payload type is bound to
// exactly one subject, so a Publisher or Listener parameterised by the payload
// type can only ever use that subject.
type Event interface {
	Subject() Subject
	// Key is the id of the entity the event describes.
	Key() string
}

// TicketCreatedEvent published when a ticket is created
type TicketCreatedEvent struct {
	ID      string          `json:"id"`
	Version int64           `json:"version"`
	Title   string          `json:"title"`
	Price   decimal.Decimal `json:"price"`
	UserID  string          `json:"userId"`
}

func (TicketCreatedEvent) Subject() Subject { return SubjectTicketCreated }
func (e TicketCreatedEvent) Key() string    { return e.ID }

// TicketUpdatedEvent published on every committed ticket mutation
type TicketUpdatedEvent struct {
	ID      string          `json:"id"`
	Version int64           `json:"version"`
	Title   string          `json:"title"`
	Price   decimal.Decimal `json:"price"`
	UserID  string          `json:"userId"`
	OrderID *string         `json:"orderId,omitempty"`
}

func (TicketUpdatedEvent) Subject() Subject { return SubjectTicketUpdated }
func (e TicketUpdatedEvent) Key() string    { return e.ID }

// TicketRef is the ticket snapshot carried by order events.
type TicketRef struct {
	ID    string          `json:"id"`
	Price decimal.Decimal `json:"price"`
}

// OrderCreatedEvent published when an order reserves a ticket
type OrderCreatedEvent struct {
	ID        string      `json:"id"`
	Version   int64       `json:"version"`
	Status    OrderStatus `json:"status"`
	UserID    string      `json:"userId"`
	ExpiresAt time.Time   `json:"expiresAt"`
	Ticket    TicketRef   `json:"ticket"`
}

func (OrderCreatedEvent) Subject() Subject { return SubjectOrderCreated }
func (e OrderCreatedEvent) Key() string    { return e.Ticket.ID }

// OrderCancelledEvent published when an order releases its ticket
type OrderCancelledEvent struct {
	ID      string    `json:"id"`
	Version int64     `json:"version"`
	Ticket  TicketRef `json:"ticket"`
}

func (OrderCancelledEvent) Subject() Subject { return SubjectOrderCancelled }
func (e OrderCancelledEvent) Key() string    { return e.Ticket.ID }

// NewTicketCreatedEvent snapshots t right after its first save.
func NewTicketCreatedEvent(t *Ticket) TicketCreatedEvent {
	return TicketCreatedEvent{
		ID:      t.ID,
		Version: t.Version,
		Title:   t.Title,
		Price:   t.Price,
		UserID:  t.UserID,
	}
}

// NewTicketUpdatedEvent snapshots t right after a committed save.
func NewTicketUpdatedEvent(t *Ticket) TicketUpdatedEvent {
	return TicketUpdatedEvent{
		ID:      t.ID,
		Version: t.Version,
		Title:   t.Title,
		Price:   t.Price,
		UserID:  t.UserID,
		OrderID: t.OrderID,
	}
}

func NewOrderCreatedEvent(o *Order) OrderCreatedEvent {
	return OrderCreatedEvent{
		ID:        o.ID,
		Version:   o.Version,
		Status:    o.Status,
		UserID:    o.UserID,
		ExpiresAt: o.ExpiresAt.UTC(),
		Ticket:    TicketRef{ID: o.TicketID, Price: o.TicketPrice},
	}
}

func NewOrderCancelledEvent(o *Order) OrderCancelledEvent {
	return OrderCancelledEvent{
		ID:      o.ID,
		Version: o.Version,
		Ticket:  TicketRef{ID: o.TicketID, Price: o.TicketPrice},
	}
}

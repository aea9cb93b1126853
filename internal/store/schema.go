package store

const ticketsTable = `
CREATE TABLE IF NOT EXISTS tickets (
	id TEXT PRIMARY KEY,
	title TEXT NOT NULL,
	price NUMERIC(12, 2) NOT NULL CHECK (price > 0),
	user_id TEXT NOT NULL DEFAULT '',
	order_id TEXT,
	version BIGINT NOT NULL DEFAULT 0,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
`

// TicketsSchema is the schema of the tickets service.
const TicketsSchema = ticketsTable

// OrdersSchema is the schema of the orders service: the ticket replica plus
// orders. The partial unique index lets at most one active order hold a
// ticket even when two creations race past IsTicketReserved.
const OrdersSchema = ticketsTable + `
CREATE TABLE IF NOT EXISTS orders (
	id TEXT PRIMARY KEY,
	user_id TEXT NOT NULL,
	status TEXT NOT NULL,
	expires_at TIMESTAMPTZ NOT NULL,
	ticket_id TEXT NOT NULL REFERENCES tickets (id),
	ticket_price NUMERIC(12, 2) NOT NULL,
	version BIGINT NOT NULL DEFAULT 0,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS orders_user_id_idx ON orders (user_id);

CREATE UNIQUE INDEX IF NOT EXISTS orders_active_ticket_idx ON orders (ticket_id)
	WHERE status IN ('created', 'awaiting:payment', 'complete');
`

// UsersSchema is the schema of the auth service.
const UsersSchema = `
CREATE TABLE IF NOT EXISTS users (
	id TEXT PRIMARY KEY,
	email TEXT NOT NULL UNIQUE,
	password_hash TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
`

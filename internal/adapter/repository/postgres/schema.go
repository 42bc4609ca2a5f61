package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// Amounts are NUMERIC(20,0) so the whole uint64 range fits; the CHECK keeps
// sums from growing past it.
const amount = `NUMERIC(20, 0) NOT NULL CHECK (%[1]s >= 0 AND %[1]s <= 18446744073709551615)`

var schema = []string{
	`CREATE TABLE IF NOT EXISTS event_runs (
	id BIGSERIAL PRIMARY KEY,
	host TEXT NOT NULL,
	experience_ref TEXT NOT NULL DEFAULT '',
	price_per_seat ` + fmt.Sprintf(amount, "price_per_seat") + `,
	max_seats BIGINT NOT NULL CHECK (max_seats > 0),
	seats_booked BIGINT NOT NULL DEFAULT 0 CHECK (seats_booked <= max_seats),
	host_stake ` + fmt.Sprintf(amount, "host_stake") + `,
	event_time TIMESTAMP WITH TIME ZONE NOT NULL,
	status VARCHAR(16) NOT NULL,
	host_stake_withdrawn BOOLEAN NOT NULL DEFAULT FALSE,
	created_at TIMESTAMP WITH TIME ZONE NOT NULL,
	updated_at TIMESTAMP WITH TIME ZONE NOT NULL,
	version INTEGER NOT NULL DEFAULT 1
)`,
	`CREATE INDEX IF NOT EXISTS event_runs_host_idx ON event_runs (host)`,

	`CREATE TABLE IF NOT EXISTS bookings (
	id BIGSERIAL PRIMARY KEY,
	run_id BIGINT NOT NULL REFERENCES event_runs (id),
	user_account TEXT NOT NULL,
	seat_count BIGINT NOT NULL CHECK (seat_count > 0),
	total_payment ` + fmt.Sprintf(amount, "total_payment") + `,
	user_stake ` + fmt.Sprintf(amount, "user_stake") + `,
	status VARCHAR(16) NOT NULL,
	booked_at TIMESTAMP WITH TIME ZONE NOT NULL,
	settled_at TIMESTAMP WITH TIME ZONE
)`,
	`CREATE INDEX IF NOT EXISTS bookings_run_idx ON bookings (run_id)`,
	`CREATE INDEX IF NOT EXISTS bookings_user_idx ON bookings (user_account)`,

	`CREATE TABLE IF NOT EXISTS custody (
	id SMALLINT PRIMARY KEY CHECK (id = 1),
	balance ` + fmt.Sprintf(amount, "balance") + `
)`,
	`INSERT INTO custody (id, balance) VALUES (1, 0) ON CONFLICT (id) DO NOTHING`,

	`CREATE TABLE IF NOT EXISTS account_balances (
	account TEXT PRIMARY KEY,
	balance ` + fmt.Sprintf(amount, "balance") + `
)`,

	`CREATE TABLE IF NOT EXISTS ledger_entries (
	seq BIGSERIAL,
	id UUID PRIMARY KEY,
	run_id BIGINT NOT NULL,
	booking_id BIGINT NOT NULL DEFAULT 0,
	account TEXT NOT NULL,
	kind VARCHAR(32) NOT NULL,
	amount ` + fmt.Sprintf(amount, "amount") + `,
	created_at TIMESTAMP WITH TIME ZONE NOT NULL
)`,
	`CREATE INDEX IF NOT EXISTS ledger_entries_run_idx ON ledger_entries (run_id, seq)`,

	`CREATE TABLE IF NOT EXISTS outbox (
	seq BIGSERIAL,
	id UUID PRIMARY KEY,
	name VARCHAR(64) NOT NULL,
	payload JSONB NOT NULL,
	created_at TIMESTAMP WITH TIME ZONE NOT NULL,
	published_at TIMESTAMP WITH TIME ZONE
)`,
	`CREATE INDEX IF NOT EXISTS outbox_pending_idx ON outbox (seq) WHERE published_at IS NULL`,
}

func InitializeDBSchema(ctx context.Context, db *sqlx.DB) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to initialize schema: %w", err)
		}
	}

	return nil
}

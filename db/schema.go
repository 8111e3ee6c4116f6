// ABOUTME: Database schema definitions
// ABOUTME: Creates lead, lead entry and customer tables for SQLite and Postgres
package db

import (
	"database/sql"
	"fmt"
)

// The column types below are understood by both go-sqlite3 and Postgres;
// TIMESTAMP columns scan into time.Time with either driver.
const schema = `
CREATE TABLE IF NOT EXISTS leads (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	company TEXT NOT NULL DEFAULT '',
	email TEXT NOT NULL DEFAULT '',
	phone TEXT NOT NULL DEFAULT '',
	location TEXT NOT NULL DEFAULT '',
	stage TEXT NOT NULL,
	position INTEGER NOT NULL DEFAULT 0,
	priority TEXT NOT NULL,
	score INTEGER NOT NULL DEFAULT 0,
	deal_value BIGINT NOT NULL DEFAULT 0,
	probability INTEGER NOT NULL DEFAULT 0,
	tags TEXT NOT NULL DEFAULT '[]',
	last_activity TEXT NOT NULL DEFAULT '',
	last_activity_date TIMESTAMP NOT NULL,
	created_at TIMESTAMP NOT NULL,
	updated_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_leads_stage_position ON leads(stage, position);

CREATE TABLE IF NOT EXISTS lead_entries (
	id TEXT PRIMARY KEY,
	lead_id TEXT NOT NULL REFERENCES leads(id),
	kind TEXT NOT NULL,
	type TEXT NOT NULL DEFAULT '',
	body TEXT NOT NULL,
	url TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_lead_entries_lead_id ON lead_entries(lead_id, created_at);

CREATE TABLE IF NOT EXISTS customers (
	id TEXT PRIMARY KEY,
	company TEXT NOT NULL,
	contact_name TEXT NOT NULL DEFAULT '',
	email TEXT NOT NULL DEFAULT '',
	phone TEXT NOT NULL DEFAULT '',
	industry TEXT NOT NULL DEFAULT '',
	location TEXT NOT NULL DEFAULT '',
	status TEXT NOT NULL,
	relationship_score INTEGER NOT NULL DEFAULT 0,
	total_value TEXT NOT NULL DEFAULT '',
	tags TEXT NOT NULL DEFAULT '[]',
	last_interaction TIMESTAMP,
	created_at TIMESTAMP NOT NULL,
	updated_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_customers_status ON customers(status);
CREATE INDEX IF NOT EXISTS idx_customers_company ON customers(company);
`

func InitSchema(db *sql.DB) error {
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}
	return nil
}

package database

import (
	"fmt"
	"log/slog"
)

func (db *DB) RunMigrations() error {
	slog.Info("Running database migrations...")

	migrations := []string{
		createUsersTable,
		createEventsTable,
		createRegistrationsTable,
		createRegistrationsUserIndex,
		createRegistrationsWaitlistIndex,
	}

	for i, migration := range migrations {
		slog.Info("Running migration", "step", i+1)
		if _, err := db.Exec(migration); err != nil {
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
	}

	slog.Info("All migrations completed successfully")
	return nil
}

const createUsersTable = `
CREATE TABLE IF NOT EXISTS users (
    user_id VARCHAR(64) PRIMARY KEY,
    name VARCHAR(200) NOT NULL,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);`

const createEventsTable = `
CREATE TABLE IF NOT EXISTS events (
    event_id VARCHAR(64) PRIMARY KEY,
    title VARCHAR(200) NOT NULL,
    description VARCHAR(1000) NOT NULL,
    date VARCHAR(64) NOT NULL,
    location VARCHAR(200) NOT NULL,
    capacity INTEGER NOT NULL,
    organizer VARCHAR(100) NOT NULL,
    status VARCHAR(20) NOT NULL DEFAULT 'active',
    waitlist_enabled BOOLEAN NOT NULL DEFAULT FALSE,
    current_registrations INTEGER NOT NULL DEFAULT 0,
    current_waitlist INTEGER NOT NULL DEFAULT 0,
    version BIGINT NOT NULL DEFAULT 0,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),

    CHECK (capacity > 0),
    CHECK (current_registrations >= 0),
    CHECK (current_waitlist >= 0),
    CHECK (status IN ('active', 'completed', 'cancelled'))
);`

const createRegistrationsTable = `
CREATE TABLE IF NOT EXISTS registrations (
    event_id VARCHAR(64) NOT NULL REFERENCES events(event_id) ON DELETE CASCADE,
    user_id VARCHAR(64) NOT NULL REFERENCES users(user_id) ON DELETE CASCADE,
    status VARCHAR(20) NOT NULL,
    registered_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    position INTEGER,
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),

    PRIMARY KEY (event_id, user_id),
    CHECK (status IN ('registered', 'waitlisted', 'cancelled')),
    CHECK (position IS NULL OR position > 0)
);`

const createRegistrationsUserIndex = `
CREATE INDEX IF NOT EXISTS registrations_user_id_idx
ON registrations (user_id);`

const createRegistrationsWaitlistIndex = `
CREATE UNIQUE INDEX IF NOT EXISTS registrations_waitlist_position_idx
ON registrations (event_id, position)
WHERE status = 'waitlisted';`

package store

import (
	"context"
	"database/sql"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS attendance (
	id               BIGSERIAL PRIMARY KEY,
	participant_id   TEXT NOT NULL,
	participant_name TEXT NOT NULL,
	checkin_iso      TEXT NOT NULL,
	checkin_date     TEXT NOT NULL,
	checkin_time     TEXT NOT NULL,
	status           TEXT NOT NULL CHECK (status IN ('Present', 'Late')),
	created_at       TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	CONSTRAINT uq_attendance_participant_day UNIQUE (participant_id, checkin_date)
);

CREATE INDEX IF NOT EXISTS idx_attendance_date ON attendance (checkin_date, checkin_time);
`

// AUTOINCREMENT keeps ids from being reused after deletes.
const sqliteSchema = `
CREATE TABLE IF NOT EXISTS attendance (
	id               INTEGER PRIMARY KEY AUTOINCREMENT,
	participant_id   TEXT NOT NULL,
	participant_name TEXT NOT NULL,
	checkin_iso      TEXT NOT NULL,
	checkin_date     TEXT NOT NULL,
	checkin_time     TEXT NOT NULL,
	status           TEXT NOT NULL CHECK (status IN ('Present', 'Late')),
	created_at       DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	UNIQUE (participant_id, checkin_date)
);

CREATE INDEX IF NOT EXISTS idx_attendance_date ON attendance (checkin_date, checkin_time);
`

func migrate(ctx context.Context, db *sql.DB, driver string) error {
	schema := sqliteSchema
	if driver == DriverPostgres {
		schema = postgresSchema
	}
	_, err := db.ExecContext(ctx, schema)
	return err
}

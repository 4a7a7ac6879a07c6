package attendance

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"classattend/internal/store"
)

// Repository persists attendance records in Postgres or SQLite.
//
// Placeholders are written as $1..$n in order of first use so the same text
// runs on both pgx and go-sqlite3.
type Repository struct {
	db *sql.DB

	// onConflict runs between a conflicting insert and the read-back.
	onConflict func()
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

const recordColumns = `id, participant_id, participant_name, checkin_iso, checkin_date, checkin_time, status`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(s rowScanner) (Record, error) {
	var (
		rec    Record
		iso    string
		status string
	)
	if err := s.Scan(&rec.ID, &rec.ParticipantID, &rec.ParticipantName, &iso, &rec.Date, &rec.Time, &status); err != nil {
		return Record{}, err
	}
	rec.Status = Status(status)
	if !rec.Status.Valid() {
		return Record{}, fmt.Errorf("record %d: unknown status %q", rec.ID, status)
	}
	if t, err := time.Parse(time.RFC3339, iso); err == nil {
		rec.CheckedInAt = t
	}
	return rec, nil
}

// insertAttempts bounds how often Insert retries when the conflicting row
// is deleted before it can be read back.
const insertAttempts = 2

var errConflictVanished = errors.New("conflicting row deleted before it could be read")

// Insert writes rec unless (participant_id, checkin_date) already exists, in
// which case the stored record is returned with inserted=false. A duplicate
// is always a persisted row with a real id.
func (r *Repository) Insert(ctx context.Context, rec Record) (Record, bool, error) {
	for attempt := 0; attempt < insertAttempts; attempt++ {
		row := r.db.QueryRowContext(ctx, `
			INSERT INTO attendance (participant_id, participant_name, checkin_iso, checkin_date, checkin_time, status)
			VALUES ($1, $2, $3, $4, $5, $6)
			ON CONFLICT (participant_id, checkin_date) DO NOTHING
			RETURNING id
		`, rec.ParticipantID, rec.ParticipantName, rec.CheckedInAt.Format(time.RFC3339), rec.Date, rec.Time, string(rec.Status))

		err := row.Scan(&rec.ID)
		switch {
		case err == nil:
			return rec, true, nil
		case errors.Is(err, sql.ErrNoRows), store.IsUniqueViolation(err):
			rec.ID = 0
			if r.onConflict != nil {
				r.onConflict()
			}
			existing, found, ferr := r.find(ctx, rec.ParticipantID, rec.Date)
			if ferr != nil {
				return Record{}, false, ferr
			}
			if found {
				return existing, false, nil
			}
			// Deleted between the two statements; the key is free again.
		default:
			return Record{}, false, storeErr("r.db.QueryRowContext", err)
		}
	}
	return Record{}, false, storeErr("r.Insert", errConflictVanished)
}

func (r *Repository) find(ctx context.Context, participantID, date string) (Record, bool, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+recordColumns+`
		FROM attendance
		WHERE participant_id = $1 AND checkin_date = $2
	`, participantID, date)
	rec, err := scanRecord(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Record{}, false, nil
		}
		return Record{}, false, storeErr("r.find", err)
	}
	return rec, true, nil
}

// ListByDate returns the records of one day, latest check-in first.
func (r *Repository) ListByDate(ctx context.Context, date string) ([]Record, error) {
	return r.query(ctx, "r.ListByDate", `
		SELECT `+recordColumns+`
		FROM attendance
		WHERE checkin_date = $1
		ORDER BY checkin_time DESC, id DESC
	`, date)
}

// ListAll returns every record in insertion order.
func (r *Repository) ListAll(ctx context.Context) ([]Record, error) {
	return r.query(ctx, "r.ListAll", `
		SELECT `+recordColumns+`
		FROM attendance
		ORDER BY id ASC
	`)
}

// ListRecent returns the newest records across all days.
func (r *Repository) ListRecent(ctx context.Context, limit int) ([]Record, error) {
	return r.query(ctx, "r.ListRecent", `
		SELECT `+recordColumns+`
		FROM attendance
		ORDER BY id DESC
		LIMIT $1
	`, limit)
}

func (r *Repository) query(ctx context.Context, op, query string, args ...any) ([]Record, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, storeErr(op+" -> r.db.QueryContext", err)
	}
	defer rows.Close()

	var res []Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, storeErr(op+" -> rows.Scan", err)
		}
		res = append(res, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr(op+" -> rows.Err", err)
	}
	return res, nil
}

// DeleteByDate removes one day of records in a single transaction.
func (r *Repository) DeleteByDate(ctx context.Context, date string) (int64, error) {
	return r.deleteWhere(ctx, "r.DeleteByDate", `DELETE FROM attendance WHERE checkin_date = $1`, date)
}

// DeleteAll removes every record in a single transaction.
func (r *Repository) DeleteAll(ctx context.Context) (int64, error) {
	return r.deleteWhere(ctx, "r.DeleteAll", `DELETE FROM attendance`)
}

func (r *Repository) deleteWhere(ctx context.Context, op, query string, args ...any) (int64, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, storeErr(op+" -> r.db.BeginTx", err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, storeErr(op+" -> tx.ExecContext", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, storeErr(op+" -> res.RowsAffected", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, storeErr(op+" -> tx.Commit", err)
	}
	return n, nil
}

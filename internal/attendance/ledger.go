package attendance

import (
	"context"
	"strings"
	"time"
)

// Record is one participant's check-in for one calendar day.
type Record struct {
	ID              int64     `json:"id"`
	ParticipantID   string    `json:"participant_id"`
	ParticipantName string    `json:"participant_name"`
	Date            string    `json:"date"`
	Time            string    `json:"time"`
	CheckedInAt     time.Time `json:"checked_in_at"`
	Status          Status    `json:"status"`
}

// Result is the outcome of Ledger.Record. When Duplicate is set, Record holds
// the entry stored by the earlier successful check-in.
type Result struct {
	Record    Record
	Duplicate bool
}

// Store persists records. Insert must be atomic with respect to the
// (participant id, date) uniqueness rule and report false instead of
// overwriting when a record already exists.
type Store interface {
	Insert(ctx context.Context, rec Record) (Record, bool, error)
	ListByDate(ctx context.Context, date string) ([]Record, error)
	ListAll(ctx context.Context) ([]Record, error)
	ListRecent(ctx context.Context, limit int) ([]Record, error)
	DeleteByDate(ctx context.Context, date string) (int64, error)
	DeleteAll(ctx context.Context) (int64, error)
}

// DefaultRecentLimit is the size of the recent check-in feed.
const DefaultRecentLimit = 20

// Ledger owns the attendance records and applies the classification rule on
// insert.
type Ledger struct {
	store  Store
	clock  Clock
	cutoff Cutoff
}

// NewLedger creates a ledger over store.
func NewLedger(store Store, clock Clock, cutoff Cutoff) *Ledger {
	return &Ledger{store: store, clock: clock, cutoff: cutoff}
}

// Cutoff returns the configured cutoff.
func (l *Ledger) Cutoff() Cutoff { return l.cutoff }

// Now returns the current time in the attendance time zone.
func (l *Ledger) Now() time.Time { return l.clock.Now() }

// Today returns the current calendar date.
func (l *Ledger) Today() string { return Day(l.clock.Now()) }

// Record inserts a check-in for ts unless the participant already has one for
// that date. Duplicates are reported through Result, not as an error.
func (l *Ledger) Record(ctx context.Context, participantID, participantName string, ts time.Time) (Result, error) {
	participantID = strings.TrimSpace(participantID)
	participantName = strings.TrimSpace(participantName)
	if participantID == "" || participantName == "" {
		return Result{}, ErrMissingFields
	}

	rec := Record{
		ParticipantID:   participantID,
		ParticipantName: participantName,
		Date:            Day(ts),
		Time:            TimeOfDay(ts),
		CheckedInAt:     ts.Truncate(time.Second),
		Status:          Classify(ts, l.cutoff),
	}
	stored, inserted, err := l.store.Insert(ctx, rec)
	if err != nil {
		return Result{}, err
	}
	return Result{Record: stored, Duplicate: !inserted}, nil
}

// ListForDate returns the records of date, most recent check-in first.
func (l *Ledger) ListForDate(ctx context.Context, date string) ([]Record, error) {
	if !ValidDay(date) {
		return nil, ErrInvalidDate
	}
	return l.store.ListByDate(ctx, date)
}

// ListAll returns every record in insertion order.
func (l *Ledger) ListAll(ctx context.Context) ([]Record, error) {
	return l.store.ListAll(ctx)
}

// ListRecent returns at most limit records, newest first.
func (l *Ledger) ListRecent(ctx context.Context, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = DefaultRecentLimit
	}
	return l.store.ListRecent(ctx, limit)
}

// DeleteForDate removes every record of date. Deleting an empty day succeeds.
func (l *Ledger) DeleteForDate(ctx context.Context, date string) (int64, error) {
	if !ValidDay(date) {
		return 0, ErrInvalidDate
	}
	return l.store.DeleteByDate(ctx, date)
}

// DeleteAll removes every record.
func (l *Ledger) DeleteAll(ctx context.Context) (int64, error) {
	return l.store.DeleteAll(ctx)
}

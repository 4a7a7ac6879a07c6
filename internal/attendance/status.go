package attendance

import (
	"fmt"
	"time"
)

// Status is the on-time classification stored with a record.
type Status string

const (
	StatusPresent Status = "Present"
	StatusLate    Status = "Late"
)

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	return s == StatusPresent || s == StatusLate
}

// Cutoff is the local time of day separating on-time from late check-ins.
type Cutoff struct {
	Hour   int
	Minute int
}

// Validate checks the cutoff is a real wall-clock time.
func (c Cutoff) Validate() error {
	if c.Hour < 0 || c.Hour > 23 {
		return fmt.Errorf("cutoff hour %d out of range", c.Hour)
	}
	if c.Minute < 0 || c.Minute > 59 {
		return fmt.Errorf("cutoff minute %d out of range", c.Minute)
	}
	return nil
}

func (c Cutoff) String() string {
	return fmt.Sprintf("%02d:%02d", c.Hour, c.Minute)
}

// Instant returns the cutoff on the calendar date of ts, in ts's location.
func (c Cutoff) Instant(ts time.Time) time.Time {
	y, m, d := ts.Date()
	return time.Date(y, m, d, c.Hour, c.Minute, 0, 0, ts.Location())
}

// Classify returns Present when ts is at or before the cutoff of its own day.
func Classify(ts time.Time, c Cutoff) Status {
	if ts.After(c.Instant(ts)) {
		return StatusLate
	}
	return StatusPresent
}

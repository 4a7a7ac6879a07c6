package attendance

import "time"

const (
	dateLayout = "2006-01-02"
	timeLayout = "15:04:05"
)

// Clock supplies the current time in the attendance time zone.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock and converts it to a fixed location.
type SystemClock struct {
	Location *time.Location
}

// NewSystemClock returns a clock pinned to loc (UTC when nil).
func NewSystemClock(loc *time.Location) SystemClock {
	if loc == nil {
		loc = time.UTC
	}
	return SystemClock{Location: loc}
}

func (c SystemClock) Now() time.Time {
	return time.Now().In(c.Location)
}

// Day formats the calendar date of t in t's location.
func Day(t time.Time) string { return t.Format(dateLayout) }

// TimeOfDay formats the wall-clock time of t with second precision.
func TimeOfDay(t time.Time) string { return t.Format(timeLayout) }

// ValidDay reports whether s is a canonical YYYY-MM-DD date.
func ValidDay(s string) bool {
	_, err := time.Parse(dateLayout, s)
	return err == nil
}

package timestamp

import (
	"fmt"
	"time"
)

// EventDateTime mirrors the wire shape the remote calendar service uses for
// an event's start/end (Google Calendar's EventDateTime: a bare calendar
// date XOR a zoned instant, never both, per spec §4.2). Org-mode's
// active/inactive distinction has no wire equivalent — a timestamp that
// reaches the remote is always agenda-visible there — so it is lost
// crossing this boundary and restored as Active on the way back.
type EventDateTime struct {
	Date     *time.Time // set instead of DateTime for an all-day event
	DateTime *time.Time
	TimeZone string // IANA zone name, empty if the instant carries its own
}

// ToEventDateTime converts ts to its wire representation.
func ToEventDateTime(ts Timestamp) EventDateTime {
	if hasTime(ts.Kind) {
		t := ts.Instant
		return EventDateTime{DateTime: &t, TimeZone: t.Location().String()}
	}
	d := ts.Instant
	return EventDateTime{Date: &d}
}

// FromEventDateTime converts a wire EventDateTime back to a Timestamp.
// Exactly one of Date/DateTime must be set, matching the union the remote
// service itself enforces.
func FromEventDateTime(edt EventDateTime) (Timestamp, error) {
	switch {
	case edt.DateTime != nil && edt.Date != nil:
		return Timestamp{}, fmt.Errorf("timestamp: EventDateTime has both date and date_time set")
	case edt.DateTime != nil:
		t := *edt.DateTime
		if edt.TimeZone != "" {
			if loc, err := time.LoadLocation(edt.TimeZone); err == nil {
				t = t.In(loc)
			}
		}
		return NewDateTime(t, true), nil
	case edt.Date != nil:
		return NewDate(*edt.Date, true), nil
	default:
		return Timestamp{}, fmt.Errorf("timestamp: EventDateTime has neither date nor date_time set")
	}
}

// RFC3339 renders ts as an RFC 3339 string, the wire format the remote
// service uses for a task's due and completed timestamps.
func (ts Timestamp) RFC3339() string {
	return ts.Instant.Format(time.RFC3339)
}

// ParseRFC3339 parses a task's due/completed RFC 3339 string back into a
// Timestamp. Remote tasks carry no org-mode active/inactive concept, so
// isActive is left to the caller (due dates are active, completed stamps
// are not, per render.go's task rendering).
func ParseRFC3339(s string, isActive bool) (Timestamp, error) {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return Timestamp{}, fmt.Errorf("timestamp: %q is not RFC3339: %w", s, err)
	}
	return NewDateTime(t, isActive), nil
}

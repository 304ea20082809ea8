// Package timestamp implements the four org-mode timestamp variants and
// their total ordering, rendering, and parsing.
//
// Grounded on _examples/original_source/src/org/timestamp.rs: a Rust enum
// over NaiveDate/DateTime<Tz> crossed with an active/inactive flag, ordered
// by (instant, active) with dates promoted to local midnight for comparison
// purposes. Rendering uses github.com/ncruces/go-strftime, matching the
// %Y-%m-%d %a[, %H:%M] layout the original produces with chrono.
package timestamp

import (
	"fmt"
	"time"

	"github.com/ncruces/go-strftime"
)

// Kind distinguishes the four timestamp variants.
type Kind int

const (
	// ActiveDate is a bare date shown in the agenda, e.g. <2024-01-02 Tue>.
	ActiveDate Kind = iota
	// InactiveDate is a bare date not shown in the agenda, e.g. [2024-01-02 Tue].
	InactiveDate
	// ActiveDateTime carries a time of day and is shown in the agenda.
	ActiveDateTime
	// InactiveDateTime carries a time of day and is not shown in the agenda.
	InactiveDateTime
)

// Timestamp is one of the four org-mode timestamp variants, always carrying
// an absolute instant (dates are treated as local midnight) so values of
// different kinds can still be totally ordered against each other.
type Timestamp struct {
	Instant time.Time
	Kind    Kind
}

func hasTime(k Kind) bool {
	return k == ActiveDateTime || k == InactiveDateTime
}

func active(k Kind) bool {
	return k == ActiveDate || k == ActiveDateTime
}

// NewDate builds a date-only timestamp, truncating t to local midnight.
func NewDate(t time.Time, isActive bool) Timestamp {
	t = t.Local()
	midnight := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	k := InactiveDate
	if isActive {
		k = ActiveDate
	}
	return Timestamp{Instant: midnight, Kind: k}
}

// NewDateTime builds a timestamp carrying a time of day.
func NewDateTime(t time.Time, isActive bool) Timestamp {
	k := InactiveDateTime
	if isActive {
		k = ActiveDateTime
	}
	return Timestamp{Instant: t.Local(), Kind: k}
}

// Active reports whether this timestamp is the active (agenda-visible) variant.
func (ts Timestamp) Active() bool {
	return active(ts.Kind)
}

// Activate returns ts flipped to its active variant.
func (ts Timestamp) Activate() Timestamp {
	if hasTime(ts.Kind) {
		ts.Kind = ActiveDateTime
	} else {
		ts.Kind = ActiveDate
	}
	return ts
}

// Deactivate returns ts flipped to its inactive variant.
func (ts Timestamp) Deactivate() Timestamp {
	if hasTime(ts.Kind) {
		ts.Kind = InactiveDateTime
	} else {
		ts.Kind = InactiveDate
	}
	return ts
}

// Less implements the total order: by instant first, then inactive before
// active at an identical instant (matches the original's
// (self_inner, self_active) tuple comparison).
func (ts Timestamp) Less(other Timestamp) bool {
	if !ts.Instant.Equal(other.Instant) {
		return ts.Instant.Before(other.Instant)
	}
	return !ts.Active() && other.Active()
}

const (
	dateLayout     = "%Y-%m-%d %a"
	dateTimeLayout = "%Y-%m-%d %a %H:%M"
)

// ToOrg renders the timestamp in its org-mode textual form, wrapped in
// angle brackets when active and square brackets when inactive.
func (ts Timestamp) ToOrg() string {
	layout := dateLayout
	if hasTime(ts.Kind) {
		layout = dateTimeLayout
	}
	body := strftime.Format(layout, ts.Instant)
	if ts.Active() {
		return "<" + body + ">"
	}
	return "[" + body + "]"
}

// String satisfies fmt.Stringer so timestamps print legibly in logs and
// test failures.
func (ts Timestamp) String() string {
	return ts.ToOrg()
}

// Parse parses a single org-mode timestamp, including its enclosing
// <...>/[...] delimiters, e.g. "<2024-01-02 Tue 09:30>".
func Parse(s string) (Timestamp, error) {
	if len(s) < 2 {
		return Timestamp{}, fmt.Errorf("timestamp: %q too short", s)
	}
	isActive := s[0] == '<'
	closer := byte(']')
	if isActive {
		closer = '>'
	} else if s[0] != '[' {
		return Timestamp{}, fmt.Errorf("timestamp: %q missing opening delimiter", s)
	}
	if s[len(s)-1] != closer {
		return Timestamp{}, fmt.Errorf("timestamp: %q missing closing delimiter", s)
	}
	body := s[1 : len(s)-1]

	if t, err := time.ParseInLocation("2006-01-02 Mon 15:04", body, time.Local); err == nil {
		return NewDateTime(t, isActive), nil
	}
	if t, err := time.ParseInLocation("2006-01-02 Mon", body, time.Local); err == nil {
		return NewDate(t, isActive), nil
	}
	return Timestamp{}, fmt.Errorf("timestamp: %q does not match a known layout", s)
}

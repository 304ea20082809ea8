package render

import (
	"strings"

	"github.com/jra3/orgfs/internal/orgmodel"
	"github.com/jra3/orgfs/internal/orgparse"
	"github.com/jra3/orgfs/internal/timestamp"
)

// EventFromHeadline reconstructs the calendar-event fields a user could have
// edited from a parsed headline, the inverse of eventHeadline. The
// "<start>--<end>" range line calendar.rs writes right after the title
// isn't planning syntax (DEADLINE:/CLOSED:), so orgparse folds it into the
// headline's body; this picks it back out as the body's first line.
func EventFromHeadline(h *orgparse.Headline) (orgmodel.CalendarEvent, bool) {
	rangeLine, notes := splitRangeLine(h.Body)
	start, end, ok := parseRange(rangeLine)
	if !ok {
		return orgmodel.CalendarEvent{}, false
	}
	return orgmodel.CalendarEvent{
		ID:      h.Properties["id"],
		ETag:    h.Properties["etag"],
		Summary: h.Title,
		Start:   start,
		End:     end,
		Notes:   notes,
		SelfLink: h.Properties["self_link"],
		WebLink:  h.Properties["web_view_link"],
	}, true
}

// TaskFromHeadline reconstructs the task fields a user could have edited
// from a parsed headline, the inverse of taskHeadline.
func TaskFromHeadline(h *orgparse.Headline) orgmodel.Task {
	t := orgmodel.Task{
		ID:       h.Properties["id"],
		ETag:     h.Properties["etag"],
		Title:    h.Title,
		Notes:    h.Body,
		SelfLink: h.Properties["self_link"],
		WebLink:  h.Properties["web_view_link"],
	}
	if h.Closed != "" {
		if ts, err := timestamp.Parse(h.Closed); err == nil {
			t.Completed = &ts
		}
	}
	if h.Deadline != "" {
		if ts, err := timestamp.Parse(h.Deadline); err == nil {
			t.Due = &ts
		}
	}
	return t
}

// splitRangeLine splits a headline body into its leading timestamp-range
// line (if any) and the remaining notes text.
func splitRangeLine(body string) (rangeLine, notes string) {
	lines := strings.SplitN(body, "\n", 2)
	rangeLine = strings.TrimSpace(lines[0])
	if len(lines) > 1 {
		notes = strings.Trim(lines[1], "\n")
	}
	return rangeLine, notes
}

func parseRange(line string) (start, end timestamp.Timestamp, ok bool) {
	parts := strings.SplitN(line, "--", 2)
	if len(parts) != 2 {
		return timestamp.Timestamp{}, timestamp.Timestamp{}, false
	}
	s, err := timestamp.Parse(strings.TrimSpace(parts[0]))
	if err != nil {
		return timestamp.Timestamp{}, timestamp.Timestamp{}, false
	}
	e, err := timestamp.Parse(strings.TrimSpace(parts[1]))
	if err != nil {
		return timestamp.Timestamp{}, timestamp.Timestamp{}, false
	}
	return s, e, true
}

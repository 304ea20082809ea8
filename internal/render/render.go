// Package render serializes an entry store snapshot into the org-mode text
// a client reads from /calendars/<name>.org or /tasks/<name>.org, including
// conflict-marker blocks for pending writes.
//
// Grounded on _examples/original_source/src/org/calendar.rs's and
// src/org/tasklist.rs's ToOrg implementations (headline, planning,
// property drawer, body, in that exact field order) and
// src/org/conflict.rs's push_conflict_str for the conflict block text.
package render

import (
	"fmt"
	"sort"
	"strings"

	"github.com/jra3/orgfs/internal/orgmodel"
	"github.com/jra3/orgfs/internal/position"
	"github.com/jra3/orgfs/internal/store"
)

const (
	conflictStart  = "<<<<<<< remote (read only)"
	conflictMiddle = "======="
	conflictEnd    = ">>>>>>> local"
)

func conflictBlock(remote, local string) string {
	var b strings.Builder
	b.WriteString(conflictStart)
	b.WriteByte('\n')
	b.WriteString(remote)
	b.WriteString(conflictMiddle)
	b.WriteByte('\n')
	b.WriteString(local)
	b.WriteString(conflictEnd)
	b.WriteByte('\n')
	return b.String()
}

// eventHeadline renders one calendar event as a headline block, matching
// calendar.rs's ToOrg for OrgCalendar.
func eventHeadline(e orgmodel.CalendarEvent, comment bool) string {
	var b strings.Builder
	b.WriteString("* ")
	if comment {
		b.WriteString("COMMENT ")
	}
	summary := e.Summary
	if summary == "" {
		summary = "Untitled Event"
	}
	b.WriteString(summary)
	b.WriteByte('\n')

	b.WriteString(e.Start.ToOrg())
	b.WriteString("--")
	b.WriteString(e.End.ToOrg())
	b.WriteByte('\n')

	b.WriteString(":PROPERTIES:\n")
	writeProperty(&b, "id", e.ID)
	writeProperty(&b, "etag", e.ETag)
	writeProperty(&b, "self_link", e.SelfLink)
	writeProperty(&b, "web_view_link", e.WebLink)
	b.WriteString(":END:\n")

	if e.Notes != "" {
		b.WriteByte('\n')
		b.WriteString(e.Notes)
		b.WriteByte('\n')
	}
	return b.String()
}

// taskHeadline renders one task as a headline block, matching
// tasklist.rs's ToOrg for OrgTaskList.
func taskHeadline(t orgmodel.Task, comment bool) string {
	var b strings.Builder
	b.WriteString("* ")
	if comment {
		b.WriteString("COMMENT ")
	}
	var planning string
	if t.Completed != nil {
		planning = "CLOSED: " + t.Completed.Deactivate().ToOrg()
	} else {
		b.WriteString("TODO ")
		if t.Due != nil {
			planning = "DEADLINE: " + t.Due.Activate().ToOrg()
		}
	}
	b.WriteString(t.Title)
	b.WriteByte('\n')
	if planning != "" {
		b.WriteString(planning)
		b.WriteByte('\n')
	}

	b.WriteString(":PROPERTIES:\n")
	writeProperty(&b, "etag", t.ETag)
	writeProperty(&b, "id", t.ID)
	writeProperty(&b, "self_link", t.SelfLink)
	writeProperty(&b, "web_view_link", t.WebLink)
	b.WriteString(":END:\n")

	if t.Notes != "" {
		b.WriteByte('\n')
		b.WriteString(t.Notes)
		b.WriteByte('\n')
	}
	return b.String()
}

func writeProperty(b *strings.Builder, key, value string) {
	if value == "" {
		return
	}
	fmt.Fprintf(b, ":%s: %s\n", key, value)
}

// pendingEventInsertText renders a prospective insert as it would appear in a
// conflict block's local side.
func pendingEventInsertText(ins orgmodel.Insert) string {
	if ins.Event == nil {
		return ""
	}
	return eventHeadline(*ins.Event, false)
}

func pendingTaskInsertText(ins orgmodel.Insert) string {
	if ins.Task == nil {
		return ""
	}
	return taskHeadline(*ins.Task, false)
}

// Calendar renders the full org-mode document for a calendar's entry
// store, interleaving pending writes as conflict blocks.
func Calendar(s *store.Store[orgmodel.CalendarEvent]) string {
	live := s.Snapshot()
	pending := s.PendingSnapshot()

	ids := make([]string, 0, len(live))
	for id := range live {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		a, b := live[ids[i]], live[ids[j]]
		if !a.Start.Instant.Equal(b.Start.Instant) {
			return a.Start.Instant.Before(b.Start.Instant)
		}
		return a.End.Instant.Before(b.End.Instant)
	})

	var blocks []string
	for _, id := range ids {
		e := live[id]
		if mod, ok := pending.Modifies[id]; ok {
			blocks = append(blocks, renderEventModify(e, mod))
			continue
		}
		blocks = append(blocks, eventHeadline(e, false))
	}
	for _, ins := range pending.Inserts {
		if ins.Kind != orgmodel.InsertCalendarEvent {
			continue
		}
		blocks = append(blocks, conflictBlock("", pendingEventInsertText(ins)))
	}

	return strings.Join(blocks, "\n")
}

func renderEventModify(live orgmodel.CalendarEvent, mod orgmodel.Modify) string {
	remote := eventHeadline(live, true)
	switch mod.Op {
	case orgmodel.ModifyDelete:
		return conflictBlock(remote, "")
	case orgmodel.ModifyPatch:
		local := ""
		if mod.Event != nil {
			local = eventHeadline(*mod.Event, false)
		}
		return conflictBlock(remote, local)
	}
	return remote
}

// TaskList renders the full org-mode document for a task list's entry
// store, interleaving pending writes as conflict blocks. Tasks sort by
// (parent position, own position) per spec §4.4 so children immediately
// follow their parent.
func TaskList(s *store.Store[orgmodel.Task]) string {
	live := s.Snapshot()
	pending := s.PendingSnapshot()

	ids := make([]string, 0, len(live))
	for id := range live {
		ids = append(ids, id)
	}
	parentPosOf := func(t orgmodel.Task) string {
		if t.ParentID == "" {
			return ""
		}
		if p, ok := live[t.ParentID]; ok {
			return p.Position
		}
		return ""
	}
	sort.Slice(ids, func(i, j int) bool {
		a, b := live[ids[i]], live[ids[j]]
		pa, pb := parentPosOf(a), parentPosOf(b)
		if pa != pb {
			return position.Less(pa, pb)
		}
		return position.Less(a.Position, b.Position)
	})

	var blocks []string
	for _, id := range ids {
		t := live[id]
		if mod, ok := pending.Modifies[id]; ok {
			blocks = append(blocks, renderTaskModify(t, mod))
			continue
		}
		blocks = append(blocks, taskHeadline(t, false))
	}
	for _, ins := range pending.Inserts {
		if ins.Kind != orgmodel.InsertTask {
			continue
		}
		blocks = append(blocks, conflictBlock("", pendingTaskInsertText(ins)))
	}

	return strings.Join(blocks, "\n")
}

func renderTaskModify(live orgmodel.Task, mod orgmodel.Modify) string {
	remote := taskHeadline(live, true)
	switch mod.Op {
	case orgmodel.ModifyDelete:
		return conflictBlock(remote, "")
	case orgmodel.ModifyPatch:
		local := ""
		if mod.Task != nil {
			local = taskHeadline(*mod.Task, false)
		}
		return conflictBlock(remote, local)
	}
	return remote
}

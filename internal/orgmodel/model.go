// Package orgmodel defines the wire-level data model shared by the entry
// store, renderer, diff engine, and reconciler: calendars, task lists,
// events, tasks, and the pending-writes sideband attached to each parent's
// entry store.
//
// Grounded on _examples/original_source/src/org.rs and
// src/org/{calendar,tasklist}.rs (the ByETag<T> wrapper and the
// insert/modify pending structures), translated from Rust enums into Go
// structs and a small tagged-union Modify type.
package orgmodel

import (
	"time"

	"github.com/jra3/orgfs/internal/timestamp"
)

// ParentKind distinguishes a calendar from a task list.
type ParentKind int

const (
	ParentCalendar ParentKind = iota
	ParentTaskList
)

// ParentDescriptor names the calendar or task list an entry store holds,
// mirroring spec §3's "Parent descriptor".
type ParentDescriptor struct {
	Kind    ParentKind
	ID      string
	Name    string // calendar summary, or task list title
	Updated time.Time
}

// FileName is the name this parent renders as under /calendars or /tasks.
func (p ParentDescriptor) FileName() string {
	return p.Name + ".org"
}

// CalendarEvent is one event entry in a calendar's entry store.
type CalendarEvent struct {
	ID        string
	ETag      string
	Summary   string
	Start     timestamp.Timestamp
	End       timestamp.Timestamp
	Cancelled bool
	Notes     string
	SelfLink  string
	WebLink   string
}

// Tombstoned reports whether this event has been cancelled on the remote.
func (e CalendarEvent) Tombstoned() bool { return e.Cancelled }

// Key returns the (id, etag) identity used for ByETag equality per spec §3:
// "Two entries hash-equal iff their (id, etag) match."
func (e CalendarEvent) Key() (string, string) { return e.ID, e.ETag }

// GetID and GetETag satisfy internal/store's Entry constraint.
func (e CalendarEvent) GetID() string   { return e.ID }
func (e CalendarEvent) GetETag() string { return e.ETag }

// Task is one task entry in a task list's entry store.
type Task struct {
	ID        string
	ETag      string
	Title     string
	Notes     string
	Due       *timestamp.Timestamp
	Completed *timestamp.Timestamp
	Deleted   bool
	ParentID  string // id of the parent task, "" if top-level
	Position  string // fractional position string, see internal/position
	SelfLink  string
	WebLink   string
}

// Tombstoned reports whether this task has been deleted on the remote.
func (t Task) Tombstoned() bool { return t.Deleted }

// Key returns the (id, etag) identity used for ByETag equality.
func (t Task) Key() (string, string) { return t.ID, t.ETag }

// GetID and GetETag satisfy internal/store's Entry constraint.
func (t Task) GetID() string   { return t.ID }
func (t Task) GetETag() string { return t.ETag }

// InsertKind distinguishes what's being inserted when a pending insert is
// eventually replayed against the remote.
type InsertKind int

const (
	InsertCalendarEvent InsertKind = iota
	InsertTask
)

// Anchor describes where a pending task insert (or move) should land
// relative to its siblings, per spec §4.1/§4.7.
type Anchor struct {
	ParentID    *string
	Predecessor *string
	Successor   *string
}

// Insert is a prospective new entry with no server id yet (spec §3: "A
// pending Insert has no id until the remote confirms").
type Insert struct {
	Kind  InsertKind
	Event *CalendarEvent
	Task  *Task
	Anchor
}

// Equal compares two inserts by their semantic content, ignoring any
// wire noise, so the same logical insert replayed twice collapses to one
// pending entry (mirrors the original's manual PartialEq on
// CalendarEventInsert/TaskInsert).
func (i Insert) Equal(o Insert) bool {
	if i.Kind != o.Kind {
		return false
	}
	switch i.Kind {
	case InsertCalendarEvent:
		if i.Event == nil || o.Event == nil {
			return i.Event == o.Event
		}
		return i.Event.Summary == o.Event.Summary &&
			i.Event.Start == o.Event.Start &&
			i.Event.End == o.Event.End
	case InsertTask:
		if i.Task == nil || o.Task == nil {
			return i.Task == o.Task
		}
		return i.Task.Title == o.Task.Title &&
			i.Task.Notes == o.Task.Notes &&
			i.Anchor == o.Anchor
	}
	return false
}

// ModifyOp distinguishes a patch from a delete within a pending Modify.
type ModifyOp int

const (
	ModifyPatch ModifyOp = iota
	ModifyDelete
)

// Modify is a pending update to an existing id: either a replacement
// entry (Patch) or a removal (Delete), per spec §3.
type Modify struct {
	Op    ModifyOp
	Event *CalendarEvent // set when Op == ModifyPatch and this is a calendar
	Task  *Task          // set when Op == ModifyPatch and this is a task list
}

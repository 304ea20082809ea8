// Package reconciler implements the single write-command consumer of
// spec §4.7: filesystem upcalls enqueue Commands on a buffered channel,
// and this package's Reconciler drains them one at a time, calling the
// remote client and applying results to the entry store so the store's
// single-writer discipline holds.
//
// Grounded on _examples/jra3-linear-fuse/internal/sync/worker.go's
// queue-draining worker shape (one goroutine owns all remote writes,
// channel-fed, logs and continues past individual command failures) and on
// _examples/original_source/src/main.rs's command enum for the command
// taxonomy (CalendarEvent/Task/Sync*/Touch*).
package reconciler

import (
	"github.com/jra3/orgfs/internal/orgmodel"
)

// Op is the operation a CalendarEvent/Task command carries out.
type Op int

const (
	OpInsert Op = iota
	OpPatch
	OpDelete
	OpMove // tasks only
)

// Kind distinguishes the six command shapes spec §4.7 names.
type Kind int

const (
	KindCalendarEvent Kind = iota
	KindTask
	KindSyncCalendar
	KindSyncTasklist
	KindTouchCalendar
	KindTouchTasklist
)

// Command is one unit of work enqueued by a filesystem upcall (fsync), or
// by the poller for Sync*. The reconciler handles Touch* commands, but no
// component in this module enqueues them.
type Command struct {
	Kind     Kind
	ParentID string // calendar id or task-list id

	Op      Op
	EntryID string // target id for Patch/Delete/Move

	Event *orgmodel.CalendarEvent // set for KindCalendarEvent Insert/Patch
	Task  *orgmodel.Task          // set for KindTask Insert/Patch
	Anchor orgmodel.Anchor        // set for KindTask Insert/Move
}

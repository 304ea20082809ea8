// Package remote defines the boundary between the synchronization engine
// and the remote calendar/task service. Per spec §1, the concrete REST
// call shapes, OAuth flow, and HTTP transport are out of scope for this
// module ("abstracted as a RemoteClient trait exposing list/get/insert/
// patch/delete/move per resource") — Client is that trait, an external
// collaborator this module only consumes.
//
// Grounded on _examples/jra3-linear-fuse/internal/repo/repo.go's
// Repository interface shape (one method per read/write operation,
// banner-commented sections) and on _examples/original_source/src/client.rs
// (list/get/insert/patch/delete/move split one level below GoogleClient).
package remote

import (
	"context"
	"time"

	"github.com/jra3/orgfs/internal/orgmodel"
)

// ErrNotImplemented is returned by operations a given Client does not
// support (e.g. Move on a calendar, which spec §6 marks "tasks only").
var ErrNotImplemented = notImplementedError{}

type notImplementedError struct{}

func (notImplementedError) Error() string { return "remote: operation not implemented" }

// CalendarPage is one page of a calendar's list() result.
type CalendarPage struct {
	Events        []orgmodel.CalendarEvent
	NextSyncToken string
	UpdatedAt     time.Time
}

// TaskPage is one page of a task list's list() result.
type TaskPage struct {
	Tasks         []orgmodel.Task
	NextSyncToken string
	UpdatedAt     time.Time
}

// Client is the remote service boundary. The only implementation in this
// module is the in-memory Fake, used by the tests and by the mount command.
type Client interface {
	// ==========================================================================
	// Discovery
	// ==========================================================================

	ListCalendars(ctx context.Context) ([]orgmodel.ParentDescriptor, error)
	ListTaskLists(ctx context.Context) ([]orgmodel.ParentDescriptor, error)

	// ==========================================================================
	// Calendar events
	// ==========================================================================

	ListEvents(ctx context.Context, calendarID, syncToken string) (CalendarPage, error)
	GetEvent(ctx context.Context, calendarID, id string) (orgmodel.CalendarEvent, error)
	InsertEvent(ctx context.Context, calendarID string, e orgmodel.CalendarEvent) (orgmodel.CalendarEvent, error)
	PatchEvent(ctx context.Context, calendarID, id string, e orgmodel.CalendarEvent) (orgmodel.CalendarEvent, error)
	DeleteEvent(ctx context.Context, calendarID, id string) error

	// ==========================================================================
	// Tasks
	// ==========================================================================

	ListTasks(ctx context.Context, listID, syncToken string) (TaskPage, error)
	GetTask(ctx context.Context, listID, id string) (orgmodel.Task, error)
	InsertTask(ctx context.Context, listID string, t orgmodel.Task, anchor orgmodel.Anchor) (orgmodel.Task, error)
	PatchTask(ctx context.Context, listID, id string, t orgmodel.Task) (orgmodel.Task, error)
	DeleteTask(ctx context.Context, listID, id string) error
	MoveTask(ctx context.Context, listID, id string, anchor orgmodel.Anchor) (orgmodel.Task, error)
}

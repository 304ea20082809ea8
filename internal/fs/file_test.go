package fs

import (
	"context"
	"strings"
	"syscall"
	"testing"
	"time"

	"github.com/hanwen/go-fuse/v2/fuse"

	"github.com/jra3/orgfs/internal/orgmodel"
	"github.com/jra3/orgfs/internal/reconciler"
	"github.com/jra3/orgfs/internal/timestamp"
)

func newTestFS(t *testing.T) (*OrgFS, <-chan reconciler.Command) {
	t.Helper()
	commands := make(chan reconciler.Command, 16)
	calendars := []orgmodel.ParentDescriptor{{Kind: orgmodel.ParentCalendar, ID: "cal1", Name: "Work"}}
	taskLists := []orgmodel.ParentDescriptor{{Kind: orgmodel.ParentTaskList, ID: "list1", Name: "Home"}}
	ofs := New(calendars, taskLists, commands)
	return ofs, commands
}

func calendarNode(ofs *OrgFS) *CalendarFileNode {
	return &CalendarFileNode{
		BaseNode: BaseNode{fs: ofs},
		parentID: "cal1",
		store:    ofs.Calendars["cal1"],
	}
}

func taskNode(ofs *OrgFS) *TaskFileNode {
	return &TaskFileNode{
		BaseNode: BaseNode{fs: ofs},
		parentID: "list1",
		store:    ofs.TaskLists["list1"],
	}
}

// openRow allocates a snapshot row directly against an arbitrary inode
// number, bypassing the go-fuse Inode machinery the real Open() reads the
// ino from, so Read/Write/Setattr/Fsync/Release can be exercised without
// mounting.
func openRow(t *testing.T, ofs *OrgFS, ino uint64, rendered string) *fileHandle {
	t.Helper()
	handle, _ := ofs.Snapshot.Open(ino, 1, rendered)
	return &fileHandle{pid: 1, handle: handle}
}

func TestCalendarFileReadReflectsStore(t *testing.T) {
	ofs, _ := newTestFS(t)
	n := calendarNode(ofs)
	ts := timestamp.NewDateTime(time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC), true)
	n.store.Add("e1", orgmodel.CalendarEvent{ID: "e1", ETag: "v1", Summary: "Standup", Start: ts, End: ts})

	fh := openRow(t, ofs, 0, n.render())
	result, errno := n.Read(context.Background(), fh, make([]byte, 4096), 0)
	if errno != 0 {
		t.Fatalf("Read errno = %v, want 0", errno)
	}
	data, _ := result.Bytes(nil)
	if !strings.Contains(string(data), "Standup") {
		t.Errorf("Read result %q does not contain the event summary", data)
	}
}

func TestCalendarFileReadNegativeOffsetIsEinval(t *testing.T) {
	ofs, _ := newTestFS(t)
	n := calendarNode(ofs)
	fh := openRow(t, ofs, 0, n.render())
	_, errno := n.Read(context.Background(), fh, make([]byte, 10), -1)
	if errno != syscall.EINVAL {
		t.Errorf("Read(off=-1) errno = %v, want EINVAL", errno)
	}
}

func TestCalendarFileReadUnknownRowIsEbadf(t *testing.T) {
	ofs, _ := newTestFS(t)
	n := calendarNode(ofs)
	fh := &fileHandle{pid: 99, handle: 0} // never opened
	_, errno := n.Read(context.Background(), fh, make([]byte, 10), 0)
	if errno != syscall.EBADF {
		t.Errorf("Read on unopened row errno = %v, want EBADF", errno)
	}
}

func TestCalendarFileWriteThenFsyncEnqueuesInsert(t *testing.T) {
	ofs, commands := newTestFS(t)
	n := calendarNode(ofs)
	const ino = 0
	base := n.render()
	fh := openRow(t, ofs, ino, base)

	addition := "* New event\n<2024-05-02 Thu 10:00>--<2024-05-02 Thu 11:00>\n"
	written, errno := n.Write(context.Background(), fh, []byte(addition), int64(len(base)))
	if errno != 0 {
		t.Fatalf("Write errno = %v, want 0", errno)
	}
	if written != uint32(len(addition)) {
		t.Errorf("Write n = %d, want %d", written, len(addition))
	}

	if errno := n.Fsync(context.Background(), fh, 0); errno != 0 {
		t.Fatalf("Fsync errno = %v, want 0", errno)
	}

	select {
	case cmd := <-commands:
		if cmd.Kind != reconciler.KindCalendarEvent || cmd.Op != reconciler.OpInsert {
			t.Errorf("unexpected command: %+v", cmd)
		}
		if cmd.Event == nil || cmd.Event.Summary != "New event" {
			t.Errorf("expected inserted event summary %q, got %+v", "New event", cmd.Event)
		}
	default:
		t.Fatal("expected a command to be enqueued after fsync")
	}
}

// TestCalendarFileEditExistingEventThenFsyncEnqueuesPatch covers the S2
// scenario: editing an existing event's summary must round-trip its id
// through orgparse so the diff is classified as a patch, not an
// add+remove pair that trips the mass-delete guard.
func TestCalendarFileEditExistingEventThenFsyncEnqueuesPatch(t *testing.T) {
	ofs, commands := newTestFS(t)
	n := calendarNode(ofs)
	ts := timestamp.NewDateTime(time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC), true)
	n.store.Add("e1", orgmodel.CalendarEvent{ID: "e1", ETag: "v1", Summary: "Standup", Start: ts, End: ts})

	const ino = 0
	base := n.render()
	fh := openRow(t, ofs, ino, base)

	edited := strings.Replace(base, "Standup", "Standup (moved)", 1)
	if edited == base {
		t.Fatal("test setup: expected rendered body to contain the event summary")
	}
	// The write buffer starts out holding the rendered text and only takes
	// appends, so a whole-file rewrite truncates first, as editors do.
	trunc := &fuse.SetAttrIn{}
	trunc.Valid = fuse.FATTR_SIZE
	if errno := n.Setattr(context.Background(), fh, trunc, &fuse.AttrOut{}); errno != 0 {
		t.Fatalf("Setattr(size=0) errno = %v, want 0", errno)
	}
	if _, errno := n.Write(context.Background(), fh, []byte(edited), 0); errno != 0 {
		t.Fatalf("Write errno = %v, want 0", errno)
	}

	if errno := n.Fsync(context.Background(), fh, 0); errno != 0 {
		t.Fatalf("Fsync errno = %v, want 0", errno)
	}

	select {
	case cmd := <-commands:
		if cmd.Kind != reconciler.KindCalendarEvent || cmd.Op != reconciler.OpPatch {
			t.Errorf("unexpected command: %+v", cmd)
		}
		if cmd.EntryID != "e1" {
			t.Errorf("EntryID = %q, want %q", cmd.EntryID, "e1")
		}
		if cmd.Event == nil || cmd.Event.Summary != "Standup (moved)" {
			t.Errorf("expected patched event summary %q, got %+v", "Standup (moved)", cmd.Event)
		}
	default:
		t.Fatal("expected a command to be enqueued after fsync")
	}
}

func TestTaskFileWriteThenFsyncEnqueuesInsert(t *testing.T) {
	ofs, commands := newTestFS(t)
	n := taskNode(ofs)
	const ino = 0
	base := n.render()
	fh := openRow(t, ofs, ino, base)

	addition := "* TODO buy milk\n"
	if _, errno := n.Write(context.Background(), fh, []byte(addition), int64(len(base))); errno != 0 {
		t.Fatalf("Write errno = %v, want 0", errno)
	}
	if errno := n.Fsync(context.Background(), fh, 0); errno != 0 {
		t.Fatalf("Fsync errno = %v, want 0", errno)
	}

	select {
	case cmd := <-commands:
		if cmd.Kind != reconciler.KindTask || cmd.Op != reconciler.OpInsert {
			t.Errorf("unexpected command: %+v", cmd)
		}
		if cmd.Task == nil || cmd.Task.Title != "buy milk" {
			t.Errorf("expected inserted task title %q, got %+v", "buy milk", cmd.Task)
		}
	default:
		t.Fatal("expected a command to be enqueued after fsync")
	}
}

func TestCalendarFileSetattrTruncateZero(t *testing.T) {
	ofs, _ := newTestFS(t)
	n := calendarNode(ofs)
	fh := openRow(t, ofs, 0, n.render())

	in := &fuse.SetAttrIn{}
	in.Valid = fuse.FATTR_SIZE
	in.Size = 0
	out := &fuse.AttrOut{}

	if errno := n.Setattr(context.Background(), fh, in, out); errno != 0 {
		t.Fatalf("Setattr(truncate 0) errno = %v, want 0", errno)
	}
}

func TestCalendarFileSetattrTruncateNonzeroIgnored(t *testing.T) {
	ofs, _ := newTestFS(t)
	n := calendarNode(ofs)
	fh := openRow(t, ofs, 0, n.render())
	before := n.render()

	in := &fuse.SetAttrIn{}
	in.Valid = fuse.FATTR_SIZE
	in.Size = 3
	out := &fuse.AttrOut{}

	if errno := n.Setattr(context.Background(), fh, in, out); errno != 0 {
		t.Fatalf("Setattr(truncate 3) errno = %v, want 0 (ignored, not an error)", errno)
	}
	if n.render() != before {
		t.Error("a non-zero truncate must not change the rendered content")
	}
}

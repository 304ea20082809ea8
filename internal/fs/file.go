package fs

import (
	"context"
	"syscall"

	gofs "github.com/hanwen/go-fuse/v2/fs"
	"github.com/hanwen/go-fuse/v2/fuse"

	"github.com/jra3/orgfs/internal/diffengine"
	"github.com/jra3/orgfs/internal/orgmodel"
	"github.com/jra3/orgfs/internal/orgparse"
	"github.com/jra3/orgfs/internal/reconciler"
	"github.com/jra3/orgfs/internal/render"
	"github.com/jra3/orgfs/internal/snapshot"
	"github.com/jra3/orgfs/internal/store"
)

// fileHandle is returned from Open and threaded back through Read, Write,
// Fsync, and Release. It carries the caller pid so every later upcall
// uses the same (inode, pid) row in the snapshot table as Open allocated.
type fileHandle struct {
	pid    uint32
	handle uint64
}

var _ gofs.FileHandle = (*fileHandle)(nil)

// CalendarFileNode is a synthesized .org file under /calendars.
type CalendarFileNode struct {
	BaseNode
	parentID string
	store    *store.Store[orgmodel.CalendarEvent]
}

var _ gofs.NodeGetattrer = (*CalendarFileNode)(nil)
var _ gofs.NodeOpener = (*CalendarFileNode)(nil)
var _ gofs.NodeReader = (*CalendarFileNode)(nil)
var _ gofs.NodeWriter = (*CalendarFileNode)(nil)
var _ gofs.NodeSetattrer = (*CalendarFileNode)(nil)
var _ gofs.NodeFsyncer = (*CalendarFileNode)(nil)
var _ gofs.NodeReleaser = (*CalendarFileNode)(nil)

func (n *CalendarFileNode) render() string {
	if text, ok := n.fs.renderCache.Get(n.parentID); ok {
		return text
	}
	text := render.Calendar(n.store)
	n.fs.renderCache.Set(n.parentID, text)
	return text
}

func (n *CalendarFileNode) Getattr(ctx context.Context, f gofs.FileHandle, out *fuse.AttrOut) syscall.Errno {
	sizeAttr(&out.Attr, n.fs, n.store.Updated(), len(n.render()))
	return 0
}

func (n *CalendarFileNode) Open(ctx context.Context, flags uint32) (gofs.FileHandle, uint32, syscall.Errno) {
	pid := callerPid(ctx)
	handle, firstForPid := n.fs.Snapshot.Open(n.EmbeddedInode().StableAttr().Ino, pid, n.render())
	if firstForPid {
		n.fs.watchPid(pid)
	}
	return &fileHandle{pid: pid, handle: handle}, 0, 0
}

func (n *CalendarFileNode) Read(ctx context.Context, f gofs.FileHandle, dest []byte, off int64) (fuse.ReadResult, syscall.Errno) {
	if off < 0 {
		return fuse.ReadResultData(nil), syscall.EINVAL
	}
	pid := handlePid(f, ctx)
	row, ok := n.fs.Snapshot.Read(n.EmbeddedInode().StableAttr().Ino, pid, n.render())
	if !ok {
		return fuse.ReadResultData(nil), syscall.EBADF
	}
	content := []byte(row.Snapshot)
	if off >= int64(len(content)) {
		return fuse.ReadResultData(nil), 0
	}
	end := off + int64(len(dest))
	if end > int64(len(content)) {
		end = int64(len(content))
	}
	return fuse.ReadResultData(content[off:end]), 0
}

func (n *CalendarFileNode) Write(ctx context.Context, f gofs.FileHandle, data []byte, off int64) (uint32, syscall.Errno) {
	pid := handlePid(f, ctx)
	written, err := n.fs.Snapshot.Write(n.EmbeddedInode().StableAttr().Ino, pid, off, data)
	if err != nil {
		n.fs.log("write rejected for %s: %v", n.parentID, err)
		return 0, syscall.EBADF
	}
	return uint32(written), 0
}

func (n *CalendarFileNode) Setattr(ctx context.Context, f gofs.FileHandle, in *fuse.SetAttrIn, out *fuse.AttrOut) syscall.Errno {
	if size, ok := in.GetSize(); ok {
		if size != 0 {
			n.fs.log("ignoring unsupported truncate to size %d on %s", size, n.parentID)
		} else {
			pid := handlePid(f, ctx)
			if err := n.fs.Snapshot.Truncate(n.EmbeddedInode().StableAttr().Ino, pid); err != nil {
				return syscall.ENOENT
			}
		}
	}
	sizeAttr(&out.Attr, n.fs, n.store.Updated(), len(n.render()))
	return 0
}

func (n *CalendarFileNode) Fsync(ctx context.Context, f gofs.FileHandle, flags uint32) syscall.Errno {
	pid := handlePid(f, ctx)
	ino := n.EmbeddedInode().StableAttr().Ino
	row, ok := n.fs.Snapshot.Fsync(ino, pid)
	if !ok {
		return 0
	}
	applyEventDiff(n.fs, n.parentID, row)
	n.fs.renderCache.Delete(n.parentID)
	n.fs.Snapshot.Reset(ino, pid, n.render())
	return 0
}

func (n *CalendarFileNode) Release(ctx context.Context, f gofs.FileHandle) syscall.Errno {
	if fh, ok := f.(*fileHandle); ok {
		n.fs.Snapshot.Release(n.EmbeddedInode().StableAttr().Ino, fh.pid, fh.handle)
	}
	return 0
}

// TaskFileNode is a synthesized .org file under /tasks.
type TaskFileNode struct {
	BaseNode
	parentID string
	store    *store.Store[orgmodel.Task]
}

var _ gofs.NodeGetattrer = (*TaskFileNode)(nil)
var _ gofs.NodeOpener = (*TaskFileNode)(nil)
var _ gofs.NodeReader = (*TaskFileNode)(nil)
var _ gofs.NodeWriter = (*TaskFileNode)(nil)
var _ gofs.NodeSetattrer = (*TaskFileNode)(nil)
var _ gofs.NodeFsyncer = (*TaskFileNode)(nil)
var _ gofs.NodeReleaser = (*TaskFileNode)(nil)

func (n *TaskFileNode) render() string {
	if text, ok := n.fs.renderCache.Get(n.parentID); ok {
		return text
	}
	text := render.TaskList(n.store)
	n.fs.renderCache.Set(n.parentID, text)
	return text
}

func (n *TaskFileNode) Getattr(ctx context.Context, f gofs.FileHandle, out *fuse.AttrOut) syscall.Errno {
	sizeAttr(&out.Attr, n.fs, n.store.Updated(), len(n.render()))
	return 0
}

func (n *TaskFileNode) Open(ctx context.Context, flags uint32) (gofs.FileHandle, uint32, syscall.Errno) {
	pid := callerPid(ctx)
	handle, firstForPid := n.fs.Snapshot.Open(n.EmbeddedInode().StableAttr().Ino, pid, n.render())
	if firstForPid {
		n.fs.watchPid(pid)
	}
	return &fileHandle{pid: pid, handle: handle}, 0, 0
}

func (n *TaskFileNode) Read(ctx context.Context, f gofs.FileHandle, dest []byte, off int64) (fuse.ReadResult, syscall.Errno) {
	if off < 0 {
		return fuse.ReadResultData(nil), syscall.EINVAL
	}
	pid := handlePid(f, ctx)
	row, ok := n.fs.Snapshot.Read(n.EmbeddedInode().StableAttr().Ino, pid, n.render())
	if !ok {
		return fuse.ReadResultData(nil), syscall.EBADF
	}
	content := []byte(row.Snapshot)
	if off >= int64(len(content)) {
		return fuse.ReadResultData(nil), 0
	}
	end := off + int64(len(dest))
	if end > int64(len(content)) {
		end = int64(len(content))
	}
	return fuse.ReadResultData(content[off:end]), 0
}

func (n *TaskFileNode) Write(ctx context.Context, f gofs.FileHandle, data []byte, off int64) (uint32, syscall.Errno) {
	pid := handlePid(f, ctx)
	written, err := n.fs.Snapshot.Write(n.EmbeddedInode().StableAttr().Ino, pid, off, data)
	if err != nil {
		n.fs.log("write rejected for %s: %v", n.parentID, err)
		return 0, syscall.EBADF
	}
	return uint32(written), 0
}

func (n *TaskFileNode) Setattr(ctx context.Context, f gofs.FileHandle, in *fuse.SetAttrIn, out *fuse.AttrOut) syscall.Errno {
	if size, ok := in.GetSize(); ok {
		if size != 0 {
			n.fs.log("ignoring unsupported truncate to size %d on %s", size, n.parentID)
		} else {
			pid := handlePid(f, ctx)
			if err := n.fs.Snapshot.Truncate(n.EmbeddedInode().StableAttr().Ino, pid); err != nil {
				return syscall.ENOENT
			}
		}
	}
	sizeAttr(&out.Attr, n.fs, n.store.Updated(), len(n.render()))
	return 0
}

func (n *TaskFileNode) Fsync(ctx context.Context, f gofs.FileHandle, flags uint32) syscall.Errno {
	pid := handlePid(f, ctx)
	ino := n.EmbeddedInode().StableAttr().Ino
	row, ok := n.fs.Snapshot.Fsync(ino, pid)
	if !ok {
		return 0
	}
	applyTaskDiff(n.fs, n.parentID, row)
	n.fs.renderCache.Delete(n.parentID)
	n.fs.Snapshot.Reset(ino, pid, n.render())
	return 0
}

func (n *TaskFileNode) Release(ctx context.Context, f gofs.FileHandle) syscall.Errno {
	if fh, ok := f.(*fileHandle); ok {
		n.fs.Snapshot.Release(n.EmbeddedInode().StableAttr().Ino, fh.pid, fh.handle)
	}
	return 0
}

// applyEventDiff computes the headline diff between the buffer's base
// snapshot and its current content and enqueues the resulting write
// commands, per spec §4.6 ("fsync computes a headline diff ... and
// converts every diff element to a write command").
func applyEventDiff(ofs *OrgFS, calendarID string, row snapshot.Row) {
	oldHeadlines := orgparse.Parse(orgparse.StripConflicts(row.Snapshot))
	newHeadlines := orgparse.Parse(orgparse.StripConflicts(string(row.Buffer)))

	diff, ok := diffengine.Compute(oldHeadlines, newHeadlines)
	if !ok {
		ofs.log("mass-delete guard tripped for calendar %s, discarding diff", calendarID)
		return
	}
	for _, cmd := range reconciler.EventCommandsFromDiff(calendarID, diff) {
		select {
		case ofs.Commands <- cmd:
		default:
			ofs.log("command channel full, dropping write for calendar %s", calendarID)
		}
	}
}

func applyTaskDiff(ofs *OrgFS, listID string, row snapshot.Row) {
	oldHeadlines := orgparse.Parse(orgparse.StripConflicts(row.Snapshot))
	newHeadlines := orgparse.Parse(orgparse.StripConflicts(string(row.Buffer)))

	diff, ok := diffengine.Compute(oldHeadlines, newHeadlines)
	if !ok {
		ofs.log("mass-delete guard tripped for task list %s, discarding diff", listID)
		return
	}
	for _, cmd := range reconciler.TaskCommandsFromDiff(listID, diff, newHeadlines) {
		select {
		case ofs.Commands <- cmd:
		default:
			ofs.log("command channel full, dropping write for task list %s", listID)
		}
	}
}

// callerPid reads the requesting process's pid off the FUSE request
// context via fuse.FromContext (go-fuse's raw bridge stashes the request
// header's Caller there before invoking the high-level Node methods). A
// caller that can't be resolved (e.g. a synthetic/internal call) is
// treated as pid 0. It still gets its own snapshot row, but internal/snapshot
// treats a release from pid 0 as kernel-originated and scrubs that handle
// from every row.
func callerPid(ctx context.Context) uint32 {
	if caller, ok := fuse.FromContext(ctx); ok {
		return caller.Pid
	}
	return 0
}

func handlePid(f gofs.FileHandle, ctx context.Context) uint32 {
	if fh, ok := f.(*fileHandle); ok {
		return fh.pid
	}
	return callerPid(ctx)
}

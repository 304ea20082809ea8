package fs

import (
	"context"
	"syscall"
	"time"

	gofs "github.com/hanwen/go-fuse/v2/fs"
	"github.com/hanwen/go-fuse/v2/fuse"
)

// CalendarsDirNode is inode 2: one synthesized .org file per known
// calendar, named after its FileName, per spec §4.9.
type CalendarsDirNode struct {
	BaseNode
}

var _ gofs.NodeReaddirer = (*CalendarsDirNode)(nil)
var _ gofs.NodeLookuper = (*CalendarsDirNode)(nil)
var _ gofs.NodeGetattrer = (*CalendarsDirNode)(nil)

func (n *CalendarsDirNode) Getattr(ctx context.Context, f gofs.FileHandle, out *fuse.AttrOut) syscall.Errno {
	now := time.Now()
	out.Mode = 0755 | syscall.S_IFDIR
	n.SetOwner(out)
	out.SetTimes(&now, &now, &now)
	return 0
}

func (n *CalendarsDirNode) Readdir(ctx context.Context) (gofs.DirStream, syscall.Errno) {
	var entries []fuse.DirEntry
	for _, p := range n.fs.sortedParents(false, true) {
		entries = append(entries, fuse.DirEntry{Name: p.fileName, Mode: syscall.S_IFREG, Ino: p.ino})
	}
	return gofs.NewListDirStream(entries), 0
}

func (n *CalendarsDirNode) Lookup(ctx context.Context, name string, out *fuse.EntryOut) (*gofs.Inode, syscall.Errno) {
	for _, p := range n.fs.sortedParents(false, true) {
		if p.fileName != name {
			continue
		}
		s := n.fs.Calendars[p.id]
		node := &CalendarFileNode{BaseNode: BaseNode{fs: n.fs}, parentID: p.id, store: s}
		sizeAttr(&out.Attr, n.fs, s.Updated(), len(node.render()))
		return n.NewInode(ctx, node, gofs.StableAttr{Mode: syscall.S_IFREG, Ino: p.ino}), 0
	}
	return nil, syscall.ENOENT
}

// TasksDirNode is inode 3, the task-list analogue of CalendarsDirNode.
type TasksDirNode struct {
	BaseNode
}

var _ gofs.NodeReaddirer = (*TasksDirNode)(nil)
var _ gofs.NodeLookuper = (*TasksDirNode)(nil)
var _ gofs.NodeGetattrer = (*TasksDirNode)(nil)

func (n *TasksDirNode) Getattr(ctx context.Context, f gofs.FileHandle, out *fuse.AttrOut) syscall.Errno {
	now := time.Now()
	out.Mode = 0755 | syscall.S_IFDIR
	n.SetOwner(out)
	out.SetTimes(&now, &now, &now)
	return 0
}

func (n *TasksDirNode) Readdir(ctx context.Context) (gofs.DirStream, syscall.Errno) {
	var entries []fuse.DirEntry
	for _, p := range n.fs.sortedParents(true, false) {
		entries = append(entries, fuse.DirEntry{Name: p.fileName, Mode: syscall.S_IFREG, Ino: p.ino})
	}
	return gofs.NewListDirStream(entries), 0
}

func (n *TasksDirNode) Lookup(ctx context.Context, name string, out *fuse.EntryOut) (*gofs.Inode, syscall.Errno) {
	for _, p := range n.fs.sortedParents(true, false) {
		if p.fileName != name {
			continue
		}
		s := n.fs.TaskLists[p.id]
		node := &TaskFileNode{BaseNode: BaseNode{fs: n.fs}, parentID: p.id, store: s}
		sizeAttr(&out.Attr, n.fs, s.Updated(), len(node.render()))
		return n.NewInode(ctx, node, gofs.StableAttr{Mode: syscall.S_IFREG, Ino: p.ino}), 0
	}
	return nil, syscall.ENOENT
}

func sizeAttr(out *fuse.Attr, ofs *OrgFS, mtime time.Time, size int) {
	out.Mode = 0644 | syscall.S_IFREG
	out.Uid = ofs.uid
	out.Gid = ofs.gid
	out.Size = uint64(size)
	out.SetTimes(&mtime, &mtime, &mtime)
}

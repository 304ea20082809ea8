package fs

import (
	"context"
	"syscall"
	"time"

	gofs "github.com/hanwen/go-fuse/v2/fs"
	"github.com/hanwen/go-fuse/v2/fuse"
)

// RootNode is inode 1: a static directory holding exactly "calendars" and
// "tasks", per spec §4.9.
type RootNode struct {
	BaseNode
}

var _ gofs.NodeReaddirer = (*RootNode)(nil)
var _ gofs.NodeLookuper = (*RootNode)(nil)
var _ gofs.NodeGetattrer = (*RootNode)(nil)

func (n *RootNode) Getattr(ctx context.Context, f gofs.FileHandle, out *fuse.AttrOut) syscall.Errno {
	now := time.Now()
	out.Mode = 0755 | syscall.S_IFDIR
	n.SetOwner(out)
	out.SetTimes(&now, &now, &now)
	return 0
}

func (n *RootNode) Readdir(ctx context.Context) (gofs.DirStream, syscall.Errno) {
	entries := []fuse.DirEntry{
		{Name: "calendars", Mode: syscall.S_IFDIR, Ino: InoCalendars},
		{Name: "tasks", Mode: syscall.S_IFDIR, Ino: InoTasks},
	}
	return gofs.NewListDirStream(entries), 0
}

func (n *RootNode) Lookup(ctx context.Context, name string, out *fuse.EntryOut) (*gofs.Inode, syscall.Errno) {
	now := time.Now()
	switch name {
	case "calendars":
		node := &CalendarsDirNode{BaseNode: BaseNode{fs: n.fs}}
		out.Attr.Mode = 0755 | syscall.S_IFDIR
		out.Attr.Uid = n.fs.uid
		out.Attr.Gid = n.fs.gid
		out.Attr.SetTimes(&now, &now, &now)
		return n.NewInode(ctx, node, gofs.StableAttr{Mode: syscall.S_IFDIR, Ino: InoCalendars}), 0

	case "tasks":
		node := &TasksDirNode{BaseNode: BaseNode{fs: n.fs}}
		out.Attr.Mode = 0755 | syscall.S_IFDIR
		out.Attr.Uid = n.fs.uid
		out.Attr.Gid = n.fs.gid
		out.Attr.SetTimes(&now, &now, &now)
		return n.NewInode(ctx, node, gofs.StableAttr{Mode: syscall.S_IFDIR, Ino: InoTasks}), 0
	}
	return nil, syscall.ENOENT
}

// Package snapshot implements the (inode, pid)-keyed write-buffer table
// described in spec §4.6: the bridge between stateless FUSE upcalls and the
// stateful editing session a client process runs against one open file.
//
// Grounded on _examples/jra3-linear-fuse/internal/cache/cache.go for the
// single-mutex-guarded-map shape (one lock, short critical sections, no
// remote I/O while held) and on the host filesystem layer
// (_examples/jra3-linear-fuse/pkg/fuse) for the open/read/write/release
// lifecycle those methods are called from.
package snapshot

import (
	"fmt"
	"sync"
)

// Key identifies one editing session: a single client process with a file
// open on a single inode.
type Key struct {
	Ino uint64
	Pid uint32
}

// Row is the state captured for one (inode, pid) editing session.
type Row struct {
	// Snapshot is the rendered org text as it stood the last time this
	// pid read (or, at open, first saw) the file. fsync diffs against
	// this.
	Snapshot string
	// Buffer accumulates bytes from write() calls, append-only.
	Buffer []byte
	// Handles is the set of open file handles this pid holds on this
	// inode, keyed by handle number.
	Handles map[uint64]struct{}
}

func newRow(snapshot string) *Row {
	return &Row{Snapshot: snapshot, Buffer: []byte(snapshot), Handles: map[uint64]struct{}{}}
}

// Table is the process-wide snapshot/write-buffer table, one mutex guarding
// a plain map. Never hold the mutex across remote I/O or rendering of a
// fresh store snapshot — callers render/diff outside the lock where
// possible and only touch the table to read or mutate a Row.
type Table struct {
	mu   sync.Mutex
	rows map[Key]*Row
	// pidsSeen tracks which pids have already triggered a "watch this
	// pid" notice, so it fires exactly once per process lifetime.
	pidsSeen map[uint32]struct{}
}

// New returns an empty Table.
func New() *Table {
	return &Table{
		rows:     make(map[Key]*Row),
		pidsSeen: make(map[uint32]struct{}),
	}
}

// Open allocates a row for (ino, pid) if none exists, captures the given
// freshly-rendered text as its initial snapshot and write buffer, and
// returns a fresh file handle plus whether this is the first time this pid
// has been seen (the caller should install a child-exit watcher in that
// case, per spec §4.6's "watch this pid" notice).
func (t *Table) Open(ino uint64, pid uint32, rendered string) (handle uint64, firstForPid bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	key := Key{Ino: ino, Pid: pid}
	row, ok := t.rows[key]
	if !ok {
		row = newRow(rendered)
		t.rows[key] = row
	}

	handle = smallestFreeHandle(row.Handles)
	row.Handles[handle] = struct{}{}

	if _, seen := t.pidsSeen[pid]; !seen {
		t.pidsSeen[pid] = struct{}{}
		firstForPid = true
	}
	return handle, firstForPid
}

func smallestFreeHandle(held map[uint64]struct{}) uint64 {
	for h := uint64(1); ; h++ {
		if _, ok := held[h]; !ok {
			return h
		}
	}
}

// Read returns the row's snapshot text for reference against the given
// freshly-rendered text: per spec §4.6, read serves the fresh text but then
// resets the captured snapshot to it, so the next fsync diffs only against
// what this client has actually seen.
func (t *Table) Read(ino uint64, pid uint32, rendered string) (row Row, ok bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	r, exists := t.rows[Key{Ino: ino, Pid: pid}]
	if !exists {
		return Row{}, false
	}
	r.Snapshot = rendered
	return *r, true
}

// ErrBadOffset reports a write() call whose offset does not match the
// current end of the write buffer; per spec §4.6 the buffer is append-only.
var ErrBadOffset = fmt.Errorf("snapshot: write offset does not match buffer end")

// Write appends data to the row's write buffer. offset must equal the
// buffer's current length (append-only discipline matching how editors
// stream writes through FUSE).
func (t *Table) Write(ino uint64, pid uint32, offset int64, data []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	row, ok := t.rows[Key{Ino: ino, Pid: pid}]
	if !ok {
		return 0, ErrRowNotFound
	}
	if offset != int64(len(row.Buffer)) {
		return 0, ErrBadOffset
	}
	row.Buffer = append(row.Buffer, data...)
	return len(data), nil
}

// ErrRowNotFound reports an operation against an (ino, pid) with no open row.
var ErrRowNotFound = fmt.Errorf("snapshot: no open row for this inode/pid")

// Truncate implements setattr(size=0): spec §4.6 supports only truncating
// the write buffer to empty, for editors that overwrite by truncate-then-write.
func (t *Table) Truncate(ino uint64, pid uint32) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	row, ok := t.rows[Key{Ino: ino, Pid: pid}]
	if !ok {
		return ErrRowNotFound
	}
	row.Buffer = row.Buffer[:0]
	return nil
}

// Fsync returns the row's current snapshot and write buffer for the caller
// to diff and render from, without mutating the row — the caller resets
// the snapshot to the post-write rendering itself (via Reset) right after
// enqueueing the resulting commands, so the next write's diff starts clean.
func (t *Table) Fsync(ino uint64, pid uint32) (row Row, ok bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	r, exists := t.rows[Key{Ino: ino, Pid: pid}]
	if !exists {
		return Row{}, false
	}
	return *r, true
}

// Reset replaces a row's snapshot and write buffer with freshly rendered
// text, called after fsync has turned the prior buffer into write commands.
func (t *Table) Reset(ino uint64, pid uint32, rendered string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	row, ok := t.rows[Key{Ino: ino, Pid: pid}]
	if !ok {
		return
	}
	row.Snapshot = rendered
	row.Buffer = []byte(rendered)
}

// Release drops the given handle from its row. An empty row (no remaining
// handles) is garbage-collected. Per spec §4.6, a release from pid 0
// (kernel-originated, e.g. during unmount) scrubs that handle from every
// row regardless of which pid opened it.
func (t *Table) Release(ino uint64, pid uint32, handle uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if pid == 0 {
		for key, row := range t.rows {
			delete(row.Handles, handle)
			if len(row.Handles) == 0 {
				delete(t.rows, key)
			}
		}
		return
	}

	key := Key{Ino: ino, Pid: pid}
	row, ok := t.rows[key]
	if !ok {
		return
	}
	delete(row.Handles, handle)
	if len(row.Handles) == 0 {
		delete(t.rows, key)
	}
}

// DropPid removes every row belonging to pid, called when an external
// watcher observes that process has exited.
func (t *Table) DropPid(pid uint32) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for key := range t.rows {
		if key.Pid == pid {
			delete(t.rows, key)
		}
	}
}

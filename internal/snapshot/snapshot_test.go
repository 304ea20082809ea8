package snapshot

import "testing"

func TestOpenAllocatesSmallestFreeHandle(t *testing.T) {
	tab := New()
	h1, first := tab.Open(4, 100, "a")
	if h1 != 1 || !first {
		t.Fatalf("expected handle 1 and firstForPid true, got %d %v", h1, first)
	}
	h2, first2 := tab.Open(4, 100, "a")
	if h2 != 2 || first2 {
		t.Fatalf("expected handle 2 and firstForPid false, got %d %v", h2, first2)
	}
}

func TestOpenFirstForPidFiresOncePerPid(t *testing.T) {
	tab := New()
	tab.Open(4, 7, "a")
	_, first := tab.Open(5, 7, "b")
	if first {
		t.Fatalf("expected firstForPid false for a pid already seen on a different inode")
	}
}

func TestReadUpdatesSnapshotToFreshRender(t *testing.T) {
	tab := New()
	tab.Open(4, 1, "old")
	row, ok := tab.Read(4, 1, "new")
	if !ok || row.Snapshot != "new" {
		t.Fatalf("expected snapshot updated to 'new', got %+v ok=%v", row, ok)
	}
}

func TestWriteRequiresAppendOnlyOffset(t *testing.T) {
	tab := New()
	tab.Open(4, 1, "abc")
	if _, err := tab.Write(4, 1, 0, []byte("x")); err != ErrBadOffset {
		t.Fatalf("expected ErrBadOffset for a mid-buffer write, got %v", err)
	}
	n, err := tab.Write(4, 1, 3, []byte("def"))
	if err != nil || n != 3 {
		t.Fatalf("expected a clean append, got n=%d err=%v", n, err)
	}
}

func TestTruncateEmptiesBuffer(t *testing.T) {
	tab := New()
	tab.Open(4, 1, "abc")
	if err := tab.Truncate(4, 1); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	row, _ := tab.Fsync(4, 1)
	if len(row.Buffer) != 0 {
		t.Fatalf("expected empty buffer after truncate, got %q", row.Buffer)
	}
}

func TestReleaseGarbageCollectsEmptyRow(t *testing.T) {
	tab := New()
	h, _ := tab.Open(4, 1, "a")
	tab.Release(4, 1, h)
	if _, ok := tab.Fsync(4, 1); ok {
		t.Fatalf("expected row to be garbage collected after last handle release")
	}
}

func TestReleaseFromPidZeroScrubsEveryRow(t *testing.T) {
	tab := New()
	h1, _ := tab.Open(4, 1, "a")
	h2, _ := tab.Open(5, 2, "b")
	_ = h2
	tab.Release(0, 0, h1)
	if _, ok := tab.Fsync(4, 1); ok {
		t.Fatalf("expected pid-0 release to scrub handle from every row")
	}
}

func TestDropPidRemovesAllItsRows(t *testing.T) {
	tab := New()
	tab.Open(4, 1, "a")
	tab.Open(5, 1, "b")
	tab.Open(6, 2, "c")
	tab.DropPid(1)
	if _, ok := tab.Fsync(4, 1); ok {
		t.Fatalf("expected pid 1's row on ino 4 to be dropped")
	}
	if _, ok := tab.Fsync(5, 1); ok {
		t.Fatalf("expected pid 1's row on ino 5 to be dropped")
	}
	if _, ok := tab.Fsync(6, 2); !ok {
		t.Fatalf("expected pid 2's row to remain")
	}
}

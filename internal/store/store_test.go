package store

import (
	"testing"
	"time"

	"github.com/jra3/orgfs/internal/orgmodel"
)

func testParent() orgmodel.ParentDescriptor {
	return orgmodel.ParentDescriptor{Kind: orgmodel.ParentCalendar, ID: "c1", Name: "Work"}
}

func TestSyncInsertsNewEntries(t *testing.T) {
	s := New[orgmodel.CalendarEvent](testParent())
	s.Sync([]orgmodel.CalendarEvent{{ID: "e1", ETag: "v1", Summary: "A"}}, time.Now())

	got, ok := s.Get("e1")
	if !ok {
		t.Fatalf("expected e1 to be present after sync")
	}
	if got.Summary != "A" {
		t.Fatalf("got summary %q, want %q", got.Summary, "A")
	}
}

func TestSyncIsIdempotentOnUnchangedETag(t *testing.T) {
	s := New[orgmodel.CalendarEvent](testParent())
	batch := []orgmodel.CalendarEvent{{ID: "e1", ETag: "v1", Summary: "A"}}
	s.Sync(batch, time.Now())
	s.Sync(batch, time.Now())

	m := s.Snapshot()
	if len(m) != 1 {
		t.Fatalf("expected exactly one entry after repeated sync, got %d", len(m))
	}
}

func TestSyncReplacesOnChangedETag(t *testing.T) {
	s := New[orgmodel.CalendarEvent](testParent())
	s.Sync([]orgmodel.CalendarEvent{{ID: "e1", ETag: "v1", Summary: "A"}}, time.Now())
	s.Sync([]orgmodel.CalendarEvent{{ID: "e1", ETag: "v2", Summary: "A2"}}, time.Now())

	got, ok := s.Get("e1")
	if !ok || got.Summary != "A2" || got.ETag != "v2" {
		t.Fatalf("expected e1 to be replaced with v2/A2, got %+v (ok=%v)", got, ok)
	}
}

func TestSyncRemovesTombstonedEntries(t *testing.T) {
	s := New[orgmodel.CalendarEvent](testParent())
	s.Sync([]orgmodel.CalendarEvent{{ID: "e1", ETag: "v1", Summary: "A"}}, time.Now())
	s.Sync([]orgmodel.CalendarEvent{{ID: "e1", ETag: "v2", Summary: "A", Cancelled: true}}, time.Now())

	if _, ok := s.Get("e1"); ok {
		t.Fatalf("expected tombstoned entry e1 to be removed from the live map")
	}
}

func TestSyncSkipsEntriesWithNoID(t *testing.T) {
	s := New[orgmodel.CalendarEvent](testParent())
	s.Sync([]orgmodel.CalendarEvent{{ID: "", ETag: "v1", Summary: "nameless"}}, time.Now())
	if len(s.Snapshot()) != 0 {
		t.Fatalf("expected entries with no id to be skipped entirely")
	}
}

func TestSnapshotIsImmutableAcrossSubsequentWrites(t *testing.T) {
	s := New[orgmodel.CalendarEvent](testParent())
	s.Sync([]orgmodel.CalendarEvent{{ID: "e1", ETag: "v1", Summary: "A"}}, time.Now())
	snap := s.Snapshot()
	s.Add("e2", orgmodel.CalendarEvent{ID: "e2", ETag: "v1", Summary: "B"})

	if _, ok := snap["e2"]; ok {
		t.Fatalf("a previously taken snapshot must not observe later writes")
	}
}

func TestPendingInsertDeduplicates(t *testing.T) {
	s := New[orgmodel.CalendarEvent](testParent())
	ins := orgmodel.Insert{
		Kind:  orgmodel.InsertCalendarEvent,
		Event: &orgmodel.CalendarEvent{Summary: "New event"},
	}
	s.PushPendingInsert(ins)
	s.PushPendingInsert(ins)

	p := s.PendingSnapshot()
	if len(p.Inserts) != 1 {
		t.Fatalf("expected duplicate insert to collapse to one pending entry, got %d", len(p.Inserts))
	}
}

func TestClearPendingReturnsOldAndResets(t *testing.T) {
	s := New[orgmodel.CalendarEvent](testParent())
	s.PushPendingModify("e1", orgmodel.Modify{Op: orgmodel.ModifyDelete})

	old := s.ClearPending()
	if len(old.Modifies) != 1 {
		t.Fatalf("expected ClearPending to return the prior pending set")
	}
	if len(s.PendingSnapshot().Modifies) != 0 {
		t.Fatalf("expected pending set to be empty after ClearPending")
	}
}

func TestTouchAdvancesUpdated(t *testing.T) {
	s := New[orgmodel.CalendarEvent](testParent())
	before := s.Updated()
	s.Touch(time.Second)
	after := s.Updated()
	if !after.After(before) {
		t.Fatalf("expected Touch to advance Updated(): before=%v after=%v", before, after)
	}
}

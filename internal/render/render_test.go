package render

import (
	"strings"
	"testing"
	"time"

	"github.com/jra3/orgfs/internal/orgmodel"
	"github.com/jra3/orgfs/internal/orgparse"
	"github.com/jra3/orgfs/internal/store"
	"github.com/jra3/orgfs/internal/timestamp"
)

func TestCalendarRendersEventsInStartOrder(t *testing.T) {
	s := store.New[orgmodel.CalendarEvent](orgmodel.ParentDescriptor{ID: "c", Name: "Work"})
	later := timestamp.NewDateTime(time.Date(2024, 5, 2, 9, 0, 0, 0, time.Local), true)
	earlier := timestamp.NewDateTime(time.Date(2024, 5, 1, 9, 0, 0, 0, time.Local), true)
	s.Sync([]orgmodel.CalendarEvent{
		{ID: "e2", ETag: "v1", Summary: "B", Start: later, End: later},
		{ID: "e1", ETag: "v1", Summary: "A", Start: earlier, End: earlier},
	}, time.Now())

	out := Calendar(s)
	hs := orgparse.Parse(out)
	if len(hs) != 2 {
		t.Fatalf("expected 2 headlines, got %d", len(hs))
	}
	if hs[0].Title != "A" || hs[1].Title != "B" {
		t.Fatalf("expected order [A, B], got [%s, %s]", hs[0].Title, hs[1].Title)
	}
	if hs[0].ID() != "e1" || hs[1].ID() != "e2" {
		t.Fatalf("expected ids [e1, e2], got [%s, %s]", hs[0].ID(), hs[1].ID())
	}
}

func TestCalendarRendersPatchAsConflictBlock(t *testing.T) {
	s := store.New[orgmodel.CalendarEvent](orgmodel.ParentDescriptor{ID: "c", Name: "Work"})
	ts := timestamp.NewDateTime(time.Date(2024, 5, 1, 9, 0, 0, 0, time.Local), true)
	s.Sync([]orgmodel.CalendarEvent{{ID: "e1", ETag: "v1", Summary: "B", Start: ts, End: ts}}, time.Now())
	s.PushPendingModify("e1", orgmodel.Modify{
		Op:    orgmodel.ModifyPatch,
		Event: &orgmodel.CalendarEvent{ID: "e1", ETag: "v1", Summary: "B2", Start: ts, End: ts},
	})

	out := Calendar(s)
	if !strings.Contains(out, conflictStart) {
		t.Fatalf("expected a conflict block in output:\n%s", out)
	}
	if !strings.Contains(out, "COMMENT B") {
		t.Fatalf("expected remote side to show the COMMENT-marked old summary:\n%s", out)
	}
	if !strings.Contains(out, "B2") {
		t.Fatalf("expected local side to show the new summary:\n%s", out)
	}

	local := orgparse.Parse(orgparse.StripConflicts(out))
	if len(local) != 1 || local[0].Title != "B2" {
		t.Fatalf("expected stripped content to show only B2, got %v", local)
	}
}

func TestTaskListOrdersChildrenAfterParent(t *testing.T) {
	s := store.New[orgmodel.Task](orgmodel.ParentDescriptor{ID: "l", Name: "Home"})
	s.Sync([]orgmodel.Task{
		{ID: "t2", ETag: "v1", Title: "child of t1", ParentID: "t1", Position: "1"},
		{ID: "t1", ETag: "v1", Title: "parent", Position: "2"},
		{ID: "t3", ETag: "v1", Title: "top level before parent", Position: "1"},
	}, time.Now())

	out := TaskList(s)
	hs := orgparse.Parse(out)
	titles := make([]string, len(hs))
	for i, h := range hs {
		titles[i] = h.Title
	}
	want := []string{"top level before parent", "parent", "child of t1"}
	for i := range want {
		if titles[i] != want[i] {
			t.Fatalf("titles = %v, want %v", titles, want)
		}
	}
}

func TestTaskHeadlineOmitsTodoWhenCompleted(t *testing.T) {
	done := timestamp.NewDate(time.Date(2024, 6, 1, 0, 0, 0, 0, time.Local), false)
	out := taskHeadline(orgmodel.Task{ID: "t1", Title: "finished", Completed: &done}, false)
	if strings.Contains(out, "TODO") {
		t.Fatalf("a completed task must not render the TODO keyword:\n%s", out)
	}
	if !strings.Contains(out, "CLOSED:") {
		t.Fatalf("expected a CLOSED planning line:\n%s", out)
	}
}

func TestTaskHeadlineEmitsDeadlineWhenNotCompleted(t *testing.T) {
	due := timestamp.NewDate(time.Date(2024, 6, 1, 0, 0, 0, 0, time.Local), false)
	out := taskHeadline(orgmodel.Task{ID: "t1", Title: "pending", Due: &due}, false)
	if !strings.Contains(out, "TODO pending") {
		t.Fatalf("expected TODO keyword for an incomplete task:\n%s", out)
	}
	if !strings.Contains(out, "DEADLINE:") {
		t.Fatalf("expected a DEADLINE planning line:\n%s", out)
	}
}

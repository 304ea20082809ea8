package remote

import (
	"context"
	"testing"
	"time"

	"github.com/jra3/orgfs/internal/orgmodel"
	"github.com/jra3/orgfs/internal/timestamp"
)

func TestFakeInsertEventRoundTripsThroughWire(t *testing.T) {
	f := NewFake()
	start := timestamp.NewDateTime(time.Date(2024, time.May, 1, 9, 0, 0, 0, time.UTC), true)
	end := timestamp.NewDateTime(time.Date(2024, time.May, 1, 10, 0, 0, 0, time.UTC), true)

	got, err := f.InsertEvent(context.Background(), "cal1", orgmodel.CalendarEvent{Summary: "Standup", Start: start, End: end})
	if err != nil {
		t.Fatalf("InsertEvent error: %v", err)
	}
	if !got.Start.Instant.Equal(start.Instant) || !got.End.Instant.Equal(end.Instant) {
		t.Fatalf("InsertEvent did not preserve the event's instants through the wire round trip: got %+v", got)
	}
}

func TestFakeInsertTaskRoundTripsDueThroughWire(t *testing.T) {
	f := NewFake()
	due := timestamp.NewDateTime(time.Date(2024, time.May, 1, 0, 0, 0, 0, time.UTC), true)

	got, err := f.InsertTask(context.Background(), "list1", orgmodel.Task{Title: "buy milk", Due: &due}, orgmodel.Anchor{})
	if err != nil {
		t.Fatalf("InsertTask error: %v", err)
	}
	if got.Due == nil || !got.Due.Instant.Equal(due.Instant) {
		t.Fatalf("InsertTask did not preserve Due through the RFC3339 wire round trip: got %+v", got)
	}
}

package remote

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jra3/orgfs/internal/orgmodel"
	"github.com/jra3/orgfs/internal/timestamp"
)

// throughWire simulates what every real HTTP-backed Client implementation
// must do at this same boundary: marshal Start/End to the wire's
// EventDateTime union and back, per spec §4.2. Fake has no actual HTTP
// transport to round-trip through, so it calls the conversions directly
// rather than leaving them unexercised.
func throughWire(e orgmodel.CalendarEvent) orgmodel.CalendarEvent {
	start, err := timestamp.FromEventDateTime(timestamp.ToEventDateTime(e.Start))
	if err == nil {
		e.Start = start
	}
	end, err := timestamp.FromEventDateTime(timestamp.ToEventDateTime(e.End))
	if err == nil {
		e.End = end
	}
	return e
}

// throughWireTask is throughWire's task analogue: Due/Completed round-trip
// as RFC 3339 strings, per spec §4.2, rather than the org timestamp itself.
func throughWireTask(t orgmodel.Task) orgmodel.Task {
	if t.Due != nil {
		if due, err := timestamp.ParseRFC3339(t.Due.RFC3339(), true); err == nil {
			t.Due = &due
		}
	}
	if t.Completed != nil {
		if done, err := timestamp.ParseRFC3339(t.Completed.RFC3339(), false); err == nil {
			t.Completed = &done
		}
	}
	return t
}

// Fake is an in-memory Client used by tests (and, per the file layout a
// real HTTP-backed client could eventually sit beside) to exercise the
// reconciler, poller, and filesystem layers without a live remote service.
//
// Grounded on _examples/jra3-linear-fuse/internal/repo/mock.go's
// MockRepository (plain struct fields holding the dataset, one method per
// interface operation) and on _examples/jra3-linear-fuse/internal/testutil/
// mockserver.go's recorded-calls/SetError pattern for failure injection.
type Fake struct {
	mu sync.Mutex

	calendars []orgmodel.ParentDescriptor
	taskLists []orgmodel.ParentDescriptor
	events    map[string]map[string]orgmodel.CalendarEvent // calendarID -> eventID -> event
	tasks     map[string]map[string]orgmodel.Task          // listID -> taskID -> task

	failing bool
	calls   []string
}

// NewFake returns an empty Fake client ready for test setup.
func NewFake() *Fake {
	return &Fake{
		events: make(map[string]map[string]orgmodel.CalendarEvent),
		tasks:  make(map[string]map[string]orgmodel.Task),
	}
}

// SetFailing makes every subsequent call return an error, modeling spec
// scenario S3 ("Configure the remote client to fail all calls").
func (f *Fake) SetFailing(failing bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failing = failing
}

// Calls returns the names of every operation invoked so far, in order.
func (f *Fake) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *Fake) record(name string) error {
	f.calls = append(f.calls, name)
	if f.failing {
		return errors.New("remote: fake client configured to fail")
	}
	return nil
}

// AddCalendar registers a calendar (and its initial events) for ListCalendars/ListEvents.
func (f *Fake) AddCalendar(p orgmodel.ParentDescriptor, events ...orgmodel.CalendarEvent) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calendars = append(f.calendars, p)
	m := make(map[string]orgmodel.CalendarEvent, len(events))
	for _, e := range events {
		m[e.ID] = e
	}
	f.events[p.ID] = m
}

// AddTaskList registers a task list (and its initial tasks) for ListTaskLists/ListTasks.
func (f *Fake) AddTaskList(p orgmodel.ParentDescriptor, tasks ...orgmodel.Task) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.taskLists = append(f.taskLists, p)
	m := make(map[string]orgmodel.Task, len(tasks))
	for _, t := range tasks {
		m[t.ID] = t
	}
	f.tasks[p.ID] = m
}

func (f *Fake) ListCalendars(ctx context.Context) ([]orgmodel.ParentDescriptor, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("ListCalendars"); err != nil {
		return nil, err
	}
	return append([]orgmodel.ParentDescriptor(nil), f.calendars...), nil
}

func (f *Fake) ListTaskLists(ctx context.Context) ([]orgmodel.ParentDescriptor, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("ListTaskLists"); err != nil {
		return nil, err
	}
	return append([]orgmodel.ParentDescriptor(nil), f.taskLists...), nil
}

func (f *Fake) ListEvents(ctx context.Context, calendarID, syncToken string) (CalendarPage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("ListEvents"); err != nil {
		return CalendarPage{}, err
	}
	var out []orgmodel.CalendarEvent
	for _, e := range f.events[calendarID] {
		out = append(out, e)
	}
	return CalendarPage{Events: out, UpdatedAt: time.Now()}, nil
}

func (f *Fake) GetEvent(ctx context.Context, calendarID, id string) (orgmodel.CalendarEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("GetEvent"); err != nil {
		return orgmodel.CalendarEvent{}, err
	}
	e, ok := f.events[calendarID][id]
	if !ok {
		return orgmodel.CalendarEvent{}, errors.New("remote: event not found")
	}
	return e, nil
}

func (f *Fake) InsertEvent(ctx context.Context, calendarID string, e orgmodel.CalendarEvent) (orgmodel.CalendarEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("InsertEvent"); err != nil {
		return orgmodel.CalendarEvent{}, err
	}
	e.ID = uuid.NewString()
	e.ETag = uuid.NewString()
	e = throughWire(e)
	if f.events[calendarID] == nil {
		f.events[calendarID] = make(map[string]orgmodel.CalendarEvent)
	}
	f.events[calendarID][e.ID] = e
	return e, nil
}

func (f *Fake) PatchEvent(ctx context.Context, calendarID, id string, e orgmodel.CalendarEvent) (orgmodel.CalendarEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("PatchEvent"); err != nil {
		return orgmodel.CalendarEvent{}, err
	}
	e.ID = id
	e.ETag = uuid.NewString()
	e = throughWire(e)
	f.events[calendarID][id] = e
	return e, nil
}

func (f *Fake) DeleteEvent(ctx context.Context, calendarID, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("DeleteEvent"); err != nil {
		return err
	}
	delete(f.events[calendarID], id)
	return nil
}

func (f *Fake) ListTasks(ctx context.Context, listID, syncToken string) (TaskPage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("ListTasks"); err != nil {
		return TaskPage{}, err
	}
	var out []orgmodel.Task
	for _, t := range f.tasks[listID] {
		out = append(out, t)
	}
	return TaskPage{Tasks: out, UpdatedAt: time.Now()}, nil
}

func (f *Fake) GetTask(ctx context.Context, listID, id string) (orgmodel.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("GetTask"); err != nil {
		return orgmodel.Task{}, err
	}
	t, ok := f.tasks[listID][id]
	if !ok {
		return orgmodel.Task{}, errors.New("remote: task not found")
	}
	return t, nil
}

func (f *Fake) InsertTask(ctx context.Context, listID string, t orgmodel.Task, anchor orgmodel.Anchor) (orgmodel.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("InsertTask"); err != nil {
		return orgmodel.Task{}, err
	}
	t.ID = uuid.NewString()
	t.ETag = uuid.NewString()
	if anchor.ParentID != nil {
		t.ParentID = *anchor.ParentID
	}
	t = throughWireTask(t)
	if f.tasks[listID] == nil {
		f.tasks[listID] = make(map[string]orgmodel.Task)
	}
	f.tasks[listID][t.ID] = t
	return t, nil
}

func (f *Fake) PatchTask(ctx context.Context, listID, id string, t orgmodel.Task) (orgmodel.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("PatchTask"); err != nil {
		return orgmodel.Task{}, err
	}
	t.ID = id
	t.ETag = uuid.NewString()
	t = throughWireTask(t)
	f.tasks[listID][id] = t
	return t, nil
}

func (f *Fake) DeleteTask(ctx context.Context, listID, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("DeleteTask"); err != nil {
		return err
	}
	delete(f.tasks[listID], id)
	return nil
}

func (f *Fake) MoveTask(ctx context.Context, listID, id string, anchor orgmodel.Anchor) (orgmodel.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("MoveTask"); err != nil {
		return orgmodel.Task{}, err
	}
	t, ok := f.tasks[listID][id]
	if !ok {
		return orgmodel.Task{}, errors.New("remote: task not found")
	}
	t.ETag = uuid.NewString()
	if anchor.ParentID != nil {
		t.ParentID = *anchor.ParentID
	}
	f.tasks[listID][id] = t
	return t, nil
}

var _ Client = (*Fake)(nil)

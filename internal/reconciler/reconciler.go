package reconciler

import (
	"context"
	"log"
	"time"

	"golang.org/x/time/rate"

	"github.com/jra3/orgfs/internal/orgmodel"
	"github.com/jra3/orgfs/internal/position"
	"github.com/jra3/orgfs/internal/remote"
	"github.com/jra3/orgfs/internal/store"
)

// defaultTouchDelay mirrors the original's TOUCH_DELAY: long enough after
// a save for the editor's own write to settle before the mtime bump tricks
// it into reloading.
const defaultTouchDelay = 1 * time.Second

// Toucher bumps the mtime of a rendered file, called after TouchCalendar/
// TouchTasklist commands; implemented by the filesystem layer.
type Toucher interface {
	TouchCalendar(calendarID string)
	TouchTasklist(listID string)
}

// Reconciler is the single consumer of the write-command channel. It must
// run from exactly one goroutine (via Run) so that pending-writes updates
// and store mutations stay linearizable, per spec §4.7.
type Reconciler struct {
	Remote     remote.Client
	Calendars  map[string]*store.Store[orgmodel.CalendarEvent]
	TaskLists  map[string]*store.Store[orgmodel.Task]
	Toucher    Toucher
	TouchDelay time.Duration

	// Limiter throttles outbound remote calls; nil means unthrottled
	// (tests construct Reconcilers without one).
	Limiter *rate.Limiter

	// syncTokens remembers the last incremental sync token per parent, so
	// a Sync* command can request only the delta since the previous poll.
	syncTokens map[string]string
}

// New returns a Reconciler wired to the given remote client and store
// registries. Calendars/TaskLists are expected to be fully populated
// before Run starts; this module does not add or remove parents at
// runtime.
func New(client remote.Client, calendars map[string]*store.Store[orgmodel.CalendarEvent], taskLists map[string]*store.Store[orgmodel.Task], toucher Toucher) *Reconciler {
	return &Reconciler{
		Remote:     client,
		Calendars:  calendars,
		TaskLists:  taskLists,
		Toucher:    toucher,
		TouchDelay: defaultTouchDelay,
		Limiter:    rate.NewLimiter(rate.Limit(5), 5),
		syncTokens: make(map[string]string),
	}
}

// throttle blocks until the rate limiter admits one more outbound remote
// call, a no-op when no limiter is configured.
func (r *Reconciler) throttle(ctx context.Context) {
	if r.Limiter == nil {
		return
	}
	_ = r.Limiter.Wait(ctx)
}

// Run drains commands until ctx is cancelled or the channel is closed.
func (r *Reconciler) Run(ctx context.Context, commands <-chan Command) {
	for {
		select {
		case <-ctx.Done():
			return
		case cmd, ok := <-commands:
			if !ok {
				return
			}
			r.process(ctx, cmd)
		}
	}
}

func (r *Reconciler) process(ctx context.Context, cmd Command) {
	switch cmd.Kind {
	case KindCalendarEvent:
		r.processEvent(ctx, cmd)
	case KindTask:
		r.processTask(ctx, cmd)
	case KindSyncCalendar:
		r.syncCalendar(ctx, cmd.ParentID)
	case KindSyncTasklist:
		r.syncTasklist(ctx, cmd.ParentID)
	case KindTouchCalendar:
		r.scheduleTouch(func() { r.Toucher.TouchCalendar(cmd.ParentID) })
	case KindTouchTasklist:
		r.scheduleTouch(func() { r.Toucher.TouchTasklist(cmd.ParentID) })
	}
}

func (r *Reconciler) scheduleTouch(fn func()) {
	if r.Toucher == nil {
		return
	}
	time.AfterFunc(r.TouchDelay, fn)
}

func (r *Reconciler) processEvent(ctx context.Context, cmd Command) {
	s, ok := r.Calendars[cmd.ParentID]
	if !ok {
		log.Printf("reconciler: unknown calendar %q, dropping command", cmd.ParentID)
		return
	}

	switch cmd.Op {
	case OpInsert:
		r.throttle(ctx)
		result, err := r.Remote.InsertEvent(ctx, cmd.ParentID, *cmd.Event)
		if err != nil {
			log.Printf("reconciler: insert event on %q failed: %v", cmd.ParentID, err)
			s.PushPendingInsert(orgmodel.Insert{Kind: orgmodel.InsertCalendarEvent, Event: cmd.Event})
			return
		}
		s.Add(result.ID, result)
	case OpPatch:
		r.throttle(ctx)
		result, err := r.Remote.PatchEvent(ctx, cmd.ParentID, cmd.EntryID, *cmd.Event)
		if err != nil {
			log.Printf("reconciler: patch event %q on %q failed: %v", cmd.EntryID, cmd.ParentID, err)
			s.PushPendingModify(cmd.EntryID, orgmodel.Modify{Op: orgmodel.ModifyPatch, Event: cmd.Event})
			return
		}
		s.UpdateEntry(result.ID, result)
	case OpDelete:
		r.throttle(ctx)
		if err := r.Remote.DeleteEvent(ctx, cmd.ParentID, cmd.EntryID); err != nil {
			log.Printf("reconciler: delete event %q on %q failed: %v", cmd.EntryID, cmd.ParentID, err)
			s.PushPendingModify(cmd.EntryID, orgmodel.Modify{Op: orgmodel.ModifyDelete})
			return
		}
		s.DeleteEntry(cmd.EntryID)
	}
}

func (r *Reconciler) processTask(ctx context.Context, cmd Command) {
	s, ok := r.TaskLists[cmd.ParentID]
	if !ok {
		log.Printf("reconciler: unknown task list %q, dropping command", cmd.ParentID)
		return
	}

	switch cmd.Op {
	case OpInsert:
		t := *cmd.Task
		t.Position = r.synthesizePosition(s, cmd.Anchor)
		r.throttle(ctx)
		result, err := r.Remote.InsertTask(ctx, cmd.ParentID, t, cmd.Anchor)
		if err != nil {
			log.Printf("reconciler: insert task on %q failed: %v", cmd.ParentID, err)
			s.PushPendingInsert(orgmodel.Insert{Kind: orgmodel.InsertTask, Task: &t, Anchor: cmd.Anchor})
			return
		}
		result.Position = t.Position
		s.Add(result.ID, result)
	case OpPatch:
		r.throttle(ctx)
		result, err := r.Remote.PatchTask(ctx, cmd.ParentID, cmd.EntryID, *cmd.Task)
		if err != nil {
			log.Printf("reconciler: patch task %q on %q failed: %v", cmd.EntryID, cmd.ParentID, err)
			s.PushPendingModify(cmd.EntryID, orgmodel.Modify{Op: orgmodel.ModifyPatch, Task: cmd.Task})
			return
		}
		if existing, ok := s.Get(cmd.EntryID); ok {
			result.Position = existing.Position
		}
		s.UpdateEntry(result.ID, result)
	case OpDelete:
		r.throttle(ctx)
		if err := r.Remote.DeleteTask(ctx, cmd.ParentID, cmd.EntryID); err != nil {
			log.Printf("reconciler: delete task %q on %q failed: %v", cmd.EntryID, cmd.ParentID, err)
			s.PushPendingModify(cmd.EntryID, orgmodel.Modify{Op: orgmodel.ModifyDelete})
			return
		}
		s.DeleteEntry(cmd.EntryID)
	case OpMove:
		newPos := r.synthesizePosition(s, cmd.Anchor)
		r.throttle(ctx)
		result, err := r.Remote.MoveTask(ctx, cmd.ParentID, cmd.EntryID, cmd.Anchor)
		if err != nil {
			log.Printf("reconciler: move task %q on %q failed: %v", cmd.EntryID, cmd.ParentID, err)
			s.PushPendingModify(cmd.EntryID, orgmodel.Modify{Op: orgmodel.ModifyPatch, Task: cmd.Task})
			return
		}
		result.Position = newPos
		s.UpdateEntry(result.ID, result)
	}
}

// synthesizePosition computes a fractional position for a task landing
// between the anchor's predecessor and successor siblings, per spec §4.1/
// §4.7: local ordering stays correct until the next sync supplies the
// remote's authoritative value.
func (r *Reconciler) synthesizePosition(s *store.Store[orgmodel.Task], anchor orgmodel.Anchor) string {
	var predPos, succPos *string
	if anchor.Predecessor != nil {
		if t, ok := s.Get(*anchor.Predecessor); ok {
			p := t.Position
			predPos = &p
		}
	}
	if anchor.Successor != nil {
		if t, ok := s.Get(*anchor.Successor); ok {
			p := t.Position
			succPos = &p
		}
	}
	switch {
	case predPos == nil && succPos == nil:
		return position.Bump(position.Sentinel)
	case predPos == nil:
		return position.Midpoint(position.Sentinel, *succPos)
	case succPos == nil:
		return position.Bump(*predPos)
	default:
		return position.Midpoint(*predPos, *succPos)
	}
}

// syncCalendar drains pending writes (re-issuing each against the remote
// with the pending set cleared, so failures requeue them) and then
// refreshes the store from the remote delta.
func (r *Reconciler) syncCalendar(ctx context.Context, calendarID string) {
	s, ok := r.Calendars[calendarID]
	if !ok {
		log.Printf("reconciler: unknown calendar %q, dropping sync", calendarID)
		return
	}

	pending := s.ClearPending()
	for _, ins := range pending.Inserts {
		if ins.Kind != orgmodel.InsertCalendarEvent || ins.Event == nil {
			continue
		}
		r.throttle(ctx)
		result, err := r.Remote.InsertEvent(ctx, calendarID, *ins.Event)
		if err != nil {
			s.PushPendingInsert(ins)
			continue
		}
		s.Add(result.ID, result)
	}
	for id, mod := range pending.Modifies {
		switch mod.Op {
		case orgmodel.ModifyPatch:
			if mod.Event == nil {
				continue
			}
			r.throttle(ctx)
			result, err := r.Remote.PatchEvent(ctx, calendarID, id, *mod.Event)
			if err != nil {
				s.PushPendingModify(id, mod)
				continue
			}
			s.UpdateEntry(result.ID, result)
		case orgmodel.ModifyDelete:
			r.throttle(ctx)
			if err := r.Remote.DeleteEvent(ctx, calendarID, id); err != nil {
				s.PushPendingModify(id, mod)
				continue
			}
			s.DeleteEntry(id)
		}
	}

	r.throttle(ctx)
	page, err := r.Remote.ListEvents(ctx, calendarID, r.syncTokens[calendarID])
	if err != nil {
		log.Printf("reconciler: list events for %q failed: %v", calendarID, err)
		return
	}
	r.syncTokens[calendarID] = page.NextSyncToken
	updatedAt := page.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Now()
	}
	s.Sync(page.Events, updatedAt)
}

func (r *Reconciler) syncTasklist(ctx context.Context, listID string) {
	s, ok := r.TaskLists[listID]
	if !ok {
		log.Printf("reconciler: unknown task list %q, dropping sync", listID)
		return
	}

	pending := s.ClearPending()
	for _, ins := range pending.Inserts {
		if ins.Kind != orgmodel.InsertTask || ins.Task == nil {
			continue
		}
		t := *ins.Task
		t.Position = r.synthesizePosition(s, ins.Anchor)
		r.throttle(ctx)
		result, err := r.Remote.InsertTask(ctx, listID, t, ins.Anchor)
		if err != nil {
			s.PushPendingInsert(ins)
			continue
		}
		result.Position = t.Position
		s.Add(result.ID, result)
	}
	for id, mod := range pending.Modifies {
		switch mod.Op {
		case orgmodel.ModifyPatch:
			if mod.Task == nil {
				continue
			}
			r.throttle(ctx)
			result, err := r.Remote.PatchTask(ctx, listID, id, *mod.Task)
			if err != nil {
				s.PushPendingModify(id, mod)
				continue
			}
			if existing, ok := s.Get(id); ok {
				result.Position = existing.Position
			}
			s.UpdateEntry(result.ID, result)
		case orgmodel.ModifyDelete:
			r.throttle(ctx)
			if err := r.Remote.DeleteTask(ctx, listID, id); err != nil {
				s.PushPendingModify(id, mod)
				continue
			}
			s.DeleteEntry(id)
		}
	}

	r.throttle(ctx)
	page, err := r.Remote.ListTasks(ctx, listID, r.syncTokens[listID])
	if err != nil {
		log.Printf("reconciler: list tasks for %q failed: %v", listID, err)
		return
	}
	r.syncTokens[listID] = page.NextSyncToken
	updatedAt := page.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Now()
	}
	for i := range page.Tasks {
		page.Tasks[i].Position = position.Bump(page.Tasks[i].Position)
	}
	s.Sync(page.Tasks, updatedAt)
}
